package cli

import "time"

// The types below mirror the JSON the API returns. They are declared here so
// the CLI depends on the wire format only.

type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"fullName"`
	Email      string `json:"email,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Bio        string `json:"bio,omitempty"`
	IsVerified bool   `json:"isVerified,omitempty"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Friend struct {
	User
	FriendSince time.Time `json:"friendSince"`
}

type FriendList struct {
	Friends []Friend `json:"friends"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

type Friendship struct {
	ID        string    `json:"id"`
	User1ID   string    `json:"user1Id"`
	User2ID   string    `json:"user2Id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	User1     *User     `json:"user1,omitempty"`
	User2     *User     `json:"user2,omitempty"`
}

type FriendsOverview struct {
	Friends         []Friend     `json:"friends"`
	PendingReceived []Friendship `json:"pendingReceived"`
	PendingSent     []Friendship `json:"pendingSent"`
}

type Suggestion struct {
	ID                 string `json:"id"`
	Username           string `json:"username"`
	FullName           string `json:"fullName"`
	MutualFriendsCount int    `json:"mutualFriendsCount"`
}

type SuggestionPage struct {
	Suggestions []Suggestion `json:"suggestions"`
	Total       int          `json:"total"`
	Limit       int          `json:"limit"`
	Offset      int          `json:"offset"`
}

type FriendBadges struct {
	PendingRequests int `json:"pendingRequests"`
	Suggestions     int `json:"suggestions"`
	Friends         int `json:"friends"`
	Total           int `json:"total"`
}

type SearchPerson struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	FullName         string `json:"fullName"`
	FriendshipStatus string `json:"friendshipStatus,omitempty"`
}

type SearchGroup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
	IsMember  bool   `json:"isMember"`
}

type SearchPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	IsFollowing bool   `json:"isFollowing"`
}

type SearchResults struct {
	People []SearchPerson `json:"personnes"`
	Groups []SearchGroup  `json:"groupes"`
	Pages  []SearchPage   `json:"pages"`
}

type StoryStats struct {
	ViewCount     int64 `json:"viewCount"`
	ReactionCount int64 `json:"reactionCount"`
}

type Story struct {
	ID        string     `json:"id"`
	ImageURL  *string    `json:"imageUrl"`
	VideoURL  *string    `json:"videoUrl"`
	Text      *string    `json:"text"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      *User      `json:"user"`
	Stats     StoryStats `json:"stats"`
}

type Pagination struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Skip    int   `json:"skip"`
	HasMore bool  `json:"hasMore"`
}

type StoriesResponse struct {
	Data       []Story    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"isRead"`
	CreatedAt  time.Time `json:"createdAt"`
}

type TypingStatus struct {
	IsPartnerTyping bool `json:"isPartnerTyping"`
}
