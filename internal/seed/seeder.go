package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/unify/internal/logger"
	"github.com/zfogg/unify/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

// Options sizes a development seed
type Options struct {
	Users   int
	Groups  int
	Pages   int
	Posts   int
	Stories int
}

// DevOptions is what `seed dev` creates by default
func DevOptions() Options {
	return Options{Users: 60, Groups: 8, Pages: 6, Posts: 200, Stories: 30}
}

// Summary counts the rows a seed run created
type Summary struct {
	Users       int
	Friendships int
	Groups      int
	Pages       int
	Posts       int
	Comments    int
	Stories     int
	Messages    int
}

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	rng *rand.Rand
	// passwordHash is computed once; bcrypt per user makes large seeds slow
	passwordHash string
}

// NewSeeder creates a seeder. A non-zero seed makes the generated data
// reproducible.
func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	_ = gofakeit.Seed(seed)
	return &Seeder{db: db, rng: rand.New(rand.NewSource(seed))}
}

// SeedDev fills the database with a realistic social graph
func (s *Seeder) SeedDev(ctx context.Context, opts Options) (*Summary, error) {
	db := s.db.WithContext(ctx)
	sum := &Summary{}
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(db, opts.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	sum.Users = len(users)

	log("Creating friendships...")
	if sum.Friendships, err = s.seedFriendships(db, users); err != nil {
		return nil, fmt.Errorf("failed to seed friendships: %w", err)
	}

	log("Creating groups and pages...")
	if sum.Groups, err = s.seedGroups(db, users, opts.Groups); err != nil {
		return nil, fmt.Errorf("failed to seed groups: %w", err)
	}
	if sum.Pages, err = s.seedPages(db, users, opts.Pages); err != nil {
		return nil, fmt.Errorf("failed to seed pages: %w", err)
	}

	log("Creating posts and comments...")
	posts, err := s.seedPosts(db, users, opts.Posts)
	if err != nil {
		return nil, fmt.Errorf("failed to seed posts: %w", err)
	}
	sum.Posts = len(posts)
	if sum.Comments, err = s.seedComments(db, users, posts); err != nil {
		return nil, fmt.Errorf("failed to seed comments: %w", err)
	}

	log("Creating stories...")
	if sum.Stories, err = s.seedStories(db, users, opts.Stories); err != nil {
		return nil, fmt.Errorf("failed to seed stories: %w", err)
	}

	log("Creating conversations...")
	if sum.Messages, err = s.seedMessages(db, users); err != nil {
		return nil, fmt.Errorf("failed to seed messages: %w", err)
	}

	logger.Log.Info("Seed complete",
		zap.Int("users", sum.Users),
		zap.Int("friendships", sum.Friendships),
		zap.Int("posts", sum.Posts),
		zap.Int("stories", sum.Stories),
	)
	return sum, nil
}

// Clean removes every row, children before parents
func (s *Seeder) Clean(ctx context.Context) error {
	all := models.All()
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Unscoped().Delete(all[i]).Error; err != nil {
			return fmt.Errorf("failed to clean %T: %w", all[i], err)
		}
	}
	return nil
}

func (s *Seeder) hash() (*string, error) {
	if s.passwordHash == "" {
		h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		s.passwordHash = string(h)
	}
	h := s.passwordHash
	return &h, nil
}

// seedUsers creates count users with unique usernames and emails
func (s *Seeder) seedUsers(db *gorm.DB, count int) ([]models.User, error) {
	hash, err := s.hash()
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		first, last := gofakeit.FirstName(), gofakeit.LastName()
		username := fmt.Sprintf("%s.%s%d", toSlug(first), toSlug(last), s.rng.Intn(1000))
		email := username + "@example.com"

		// Ensure unique username/email
		var existing int64
		for {
			db.Model(&models.User{}).Where("username = ? OR email = ?", username, email).Count(&existing)
			if existing == 0 {
				break
			}
			username = fmt.Sprintf("%s%d", username, s.rng.Intn(10))
			email = username + "@example.com"
		}

		lastActive := gofakeit.DateRange(time.Now().AddDate(0, 0, -30), time.Now())
		user := models.User{
			Email:        email,
			Username:     username,
			FullName:     first + " " + last,
			Bio:          gofakeit.HipsterSentence(),
			Avatar:       fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
			PasswordHash: hash,
			LastActiveAt: &lastActive,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

// seedFriendships links each user to a few neighbours so that most users
// have friends of friends to be suggested
func (s *Seeder) seedFriendships(db *gorm.DB, users []models.User) (int, error) {
	n := len(users)
	created := 0
	seen := map[[2]int]bool{}
	for i := range users {
		for _, step := range []int{1, 2, 5} {
			j := (i + step) % n
			if i == j {
				continue
			}
			pair := [2]int{min(i, j), max(i, j)}
			if seen[pair] {
				continue
			}
			seen[pair] = true

			status := models.FriendshipAccepted
			switch r := s.rng.Float64(); {
			case r < 0.15:
				status = models.FriendshipPending
			case r < 0.18:
				status = models.FriendshipDeclined
			}
			f := models.Friendship{User1ID: users[i].ID, User2ID: users[j].ID, Status: status}
			if err := db.Create(&f).Error; err != nil {
				return created, err
			}
			created++
		}
	}
	return created, nil
}

func (s *Seeder) seedGroups(db *gorm.DB, users []models.User, count int) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	for i := 0; i < count; i++ {
		admin := users[s.rng.Intn(len(users))]
		group := models.Group{
			Name:        gofakeit.Hobby() + " " + gofakeit.City(),
			Description: gofakeit.HipsterSentence(),
			Image:       s.imageURL(400, 400),
			AdminID:     admin.ID,
			IsPrivate:   s.rng.Float64() < 0.25,
		}
		if err := db.Create(&group).Error; err != nil {
			return i, err
		}
		now := time.Now().UTC()
		members := []models.GroupMember{{GroupID: group.ID, UserID: admin.ID, Role: models.GroupRoleAdmin, JoinedAt: &now}}
		for _, idx := range s.rng.Perm(len(users))[:min(len(users), 10)] {
			u := users[idx]
			if u.ID == admin.ID {
				continue
			}
			m := models.GroupMember{GroupID: group.ID, UserID: u.ID, Role: models.GroupRoleMember}
			// some memberships stay pending invitations
			if s.rng.Float64() < 0.8 {
				joined := gofakeit.DateRange(now.AddDate(0, -3, 0), now)
				m.JoinedAt = &joined
			}
			members = append(members, m)
		}
		if err := db.Create(&members).Error; err != nil {
			return i, err
		}
	}
	return count, nil
}

func (s *Seeder) seedPages(db *gorm.DB, users []models.User, count int) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	categories := []string{"food", "music", "sport", "tech", "travel", "art"}
	for i := 0; i < count; i++ {
		owner := users[s.rng.Intn(len(users))]
		page := models.Page{
			Name:        gofakeit.Company(),
			Description: gofakeit.HipsterSentence(),
			Image:       s.imageURL(400, 400),
			CoverImage:  s.imageURL(1200, 400),
			Category:    categories[s.rng.Intn(len(categories))],
			IsVerified:  s.rng.Float64() < 0.2,
			OwnerID:     owner.ID,
		}
		if err := db.Create(&page).Error; err != nil {
			return i, err
		}
		members := []models.PageMember{{PageID: page.ID, UserID: owner.ID, Role: models.PageRoleOwner}}
		for _, idx := range s.rng.Perm(len(users))[:min(len(users), 15)] {
			if users[idx].ID == owner.ID {
				continue
			}
			members = append(members, models.PageMember{PageID: page.ID, UserID: users[idx].ID, Role: models.PageRoleFollower})
		}
		if err := db.Create(&members).Error; err != nil {
			return i, err
		}
	}
	return count, nil
}

func (s *Seeder) seedPosts(db *gorm.DB, users []models.User, count int) ([]models.Post, error) {
	if len(users) == 0 || count == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.rng.Intn(len(users))]
		images := []string{}
		if s.rng.Float64() < 0.4 {
			images = append(images, s.imageURL(1080, 1080))
		}
		posts = append(posts, models.Post{
			UserID:    author.ID,
			Content:   gofakeit.HipsterSentence() + " " + gofakeit.HipsterSentence(),
			ImageURLs: images,
			CreatedAt: gofakeit.DateRange(now.AddDate(0, 0, -14), now),
		})
	}
	if err := db.CreateInBatches(&posts, 100).Error; err != nil {
		return nil, err
	}

	for i := range posts {
		likers := s.rng.Perm(len(users))[:s.rng.Intn(min(len(users), 8)+1)]
		if len(likers) == 0 {
			continue
		}
		likes := make([]models.PostLike, 0, len(likers))
		for _, idx := range likers {
			likes = append(likes, models.PostLike{PostID: posts[i].ID, UserID: users[idx].ID})
		}
		if err := db.Create(&likes).Error; err != nil {
			return nil, err
		}
		posts[i].LikeCount = len(likes)
		if err := db.Model(&posts[i]).UpdateColumn("like_count", len(likes)).Error; err != nil {
			return nil, err
		}
	}
	return posts, nil
}

// seedComments adds up to four comments per post and replies to some of them
func (s *Seeder) seedComments(db *gorm.DB, users []models.User, posts []models.Post) (int, error) {
	total := 0
	for _, post := range posts {
		n := s.rng.Intn(5)
		if n == 0 {
			continue
		}
		at := post.CreatedAt
		comments := make([]models.Comment, 0, n)
		for i := 0; i < n; i++ {
			at = at.Add(time.Duration(s.rng.Intn(120)+1) * time.Minute)
			comments = append(comments, models.Comment{
				PostID:    post.ID,
				UserID:    users[s.rng.Intn(len(users))].ID,
				Content:   gofakeit.HipsterSentence(),
				CreatedAt: at,
			})
		}
		if err := db.Create(&comments).Error; err != nil {
			return total, err
		}
		count := len(comments)

		if s.rng.Float64() < 0.3 {
			parent := comments[0]
			reply := models.Comment{
				PostID:    post.ID,
				UserID:    users[s.rng.Intn(len(users))].ID,
				ParentID:  &parent.ID,
				Content:   gofakeit.HipsterSentence(),
				CreatedAt: at.Add(time.Minute),
			}
			if err := db.Create(&reply).Error; err != nil {
				return total, err
			}
			count++
		}
		if err := db.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumn("comment_count", count).Error; err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

// seedStories posts live stories plus a few expired ones for the cleanup job
func (s *Seeder) seedStories(db *gorm.DB, users []models.User, count int) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	for i := 0; i < count; i++ {
		author := users[s.rng.Intn(len(users))]
		age := time.Duration(s.rng.Intn(30)) * time.Hour
		created := now.Add(-age)
		story := models.Story{
			UserID:    author.ID,
			CreatedAt: created,
			ExpiresAt: created.Add(models.StoryLifetime),
		}
		if s.rng.Float64() < 0.6 {
			url := s.imageURL(1080, 1920)
			story.ImageURL = &url
		} else {
			text := gofakeit.HipsterSentence()
			story.Text = &text
		}
		if err := db.Create(&story).Error; err != nil {
			return i, err
		}
		for _, idx := range s.rng.Perm(len(users))[:s.rng.Intn(min(len(users), 6)+1)] {
			if users[idx].ID == author.ID {
				continue
			}
			view := models.StoryView{StoryID: story.ID, UserID: users[idx].ID, ViewedAt: created.Add(time.Minute)}
			if err := db.Create(&view).Error; err != nil {
				return i, err
			}
		}
	}
	return count, nil
}

// seedMessages writes a short conversation along every accepted friendship
// of the first users, leaving the last message unread
func (s *Seeder) seedMessages(db *gorm.DB, users []models.User) (int, error) {
	var friendships []models.Friendship
	if err := db.Where("status = ?", models.FriendshipAccepted).Limit(40).Find(&friendships).Error; err != nil {
		return 0, err
	}
	total := 0
	now := time.Now().UTC()
	for _, f := range friendships {
		at := gofakeit.DateRange(now.AddDate(0, 0, -7), now.Add(-time.Hour))
		n := s.rng.Intn(6) + 2
		msgs := make([]models.Message, 0, n)
		for i := 0; i < n; i++ {
			from, to := f.User1ID, f.User2ID
			if i%2 == 1 {
				from, to = to, from
			}
			at = at.Add(time.Duration(s.rng.Intn(10)+1) * time.Minute)
			m := models.Message{SenderID: from, ReceiverID: to, Content: gofakeit.HipsterSentence(), CreatedAt: at}
			if i < n-1 {
				read := at.Add(time.Minute)
				m.IsRead, m.ReadAt = true, &read
			}
			msgs = append(msgs, m)
		}
		if err := db.Create(&msgs).Error; err != nil {
			return total, err
		}
		total += len(msgs)
	}
	return total, nil
}

// imageURL points at a stable placeholder image
func (s *Seeder) imageURL(width, height int) string {
	return fmt.Sprintf("https://picsum.photos/seed/%d/%d/%d", s.rng.Intn(100000), width, height)
}

func toSlug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
