// Package models defines the persisted entities of the social graph.
package models

// All lists every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&PasswordReset{},
		&PhotoGallery{},
		&Friendship{},
		&Group{},
		&GroupMember{},
		&Page{},
		&PageMember{},
		&Post{},
		&PostLike{},
		&Comment{},
		&Reaction{},
		&Story{},
		&StoryView{},
		&Notification{},
		&Message{},
	}
}
