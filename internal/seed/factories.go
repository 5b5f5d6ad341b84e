// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"yatube/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the plaintext password of every seeded user.
const DefaultPassword = "password123"

// FactoryOptions tune how entities are generated.
type FactoryOptions struct {
	// SkipBcrypt stores a fast low-cost hash; for local demos only.
	SkipBcrypt bool
	// MaxDays spreads post and comment timestamps over this many past days.
	MaxDays int
	// RandSeed makes generation reproducible when non-zero.
	RandSeed int64
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts FactoryOptions
	rng  *rand.Rand
	hash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts FactoryOptions) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed))}
}

// passwordHash is computed once; bcrypt per user would dominate seeding time.
func (f *Factory) passwordHash() (string, error) {
	if f.hash != "" {
		return f.hash, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", err
	}
	f.hash = string(h)
	return f.hash, nil
}

func (f *Factory) pastTime() time.Time {
	daysBack := f.rng.Intn(f.opts.MaxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour -
		time.Duration(minsBack)*time.Minute)
}

// CreateUser constructs and persists a sample user.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}

	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	user := &models.User{
		Username:  usernameFor(first, last, gofakeit.Number(100, 9999)),
		FirstName: first,
		LastName:  last,
		Email:     gofakeit.Email(),
		Password:  hash,
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateGroup constructs and persists a sample group.
func (f *Factory) CreateGroup(overrides ...func(*models.Group)) (*models.Group, error) {
	title := strings.TrimSpace(gofakeit.HipsterWord() + " " + gofakeit.Noun())
	group := &models.Group{
		Title:       fmt.Sprintf("%s %d", title, gofakeit.Number(10, 999)),
		Description: gofakeit.Sentence(12),
	}
	group.Slug = slugify(group.Title)

	for _, override := range overrides {
		override(group)
	}

	if err := f.db.Create(group).Error; err != nil {
		return nil, err
	}
	return group, nil
}

// CreatePost constructs and persists a sample post by author, filed under
// group when it is not nil.
func (f *Factory) CreatePost(author *models.User, group *models.Group, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		Text:      gofakeit.Paragraph(1, 3, 12, "\n"),
		AuthorID:  author.ID,
		CreatedAt: f.pastTime(),
	}
	if group != nil {
		post.GroupID = &group.ID
	}

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Omit("Author", "Group").Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment constructs and persists a sample comment on post.
func (f *Factory) CreateComment(author *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Text:      gofakeit.Sentence(8),
		AuthorID:  author.ID,
		PostID:    post.ID,
		CreatedAt: post.CreatedAt.Add(time.Duration(f.rng.Intn(72)+1) * time.Hour),
	}

	for _, override := range overrides {
		override(comment)
	}

	if err := f.db.Omit("Author", "Post").Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateFollow persists a follow edge; self edges are skipped and duplicates are ignored.
func (f *Factory) CreateFollow(user, author *models.User) error {
	if user.ID == author.ID {
		return nil
	}
	var existing int64
	if err := f.db.Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", user.ID, author.ID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	return f.db.Create(&models.Follow{UserID: user.ID, AuthorID: author.ID}).Error
}

func usernameFor(first, last string, n int) string {
	keep := func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}
	return fmt.Sprintf("%s.%s%d", strings.Map(keep, first), strings.Map(keep, last), n)
}

func slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteRune('-')
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = fmt.Sprintf("group-%d", time.Now().UnixNano())
		log.Printf("seed: title %q produced an empty slug, using %s", title, slug)
	}
	if len(slug) > 100 {
		slug = slug[:100]
	}
	return slug
}
