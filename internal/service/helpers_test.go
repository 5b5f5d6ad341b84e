package service

import (
	"testing"
	"time"

	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/repository"
	"yatube/internal/testutil"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type services struct {
	db        *gorm.DB
	mediaDir  string
	feedStore *cache.MemoryStore
	posts     *PostService
	feeds     *FeedService
	follows   *FollowService
	comments  *CommentService
	users     *UserService
	groups    *GroupService
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newServices wires every service over a fresh in-memory database. The
// global feed cache reads time from clock.
func newServices(t *testing.T, clock *fakeClock) *services {
	t.Helper()

	db := testutil.NewDB(t)
	mediaDir := t.TempDir()
	cfg := &config.Config{MediaRoot: mediaDir, ImageMaxUploadSizeMB: 1}

	postRepo := repository.NewPostRepository(db, 10)
	groupRepo := repository.NewGroupRepository(db)
	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	if clock == nil {
		clock = &fakeClock{now: time.Now()}
	}
	feedStore := cache.NewMemoryStore(clock.Now)
	feedCache := cache.New("feed_test", feedStore)

	images := NewImageService(cfg)
	return &services{
		db:        db,
		mediaDir:  mediaDir,
		feedStore: feedStore,
		posts:     NewPostService(postRepo, groupRepo, userRepo, images),
		feeds:     NewFeedService(postRepo, groupRepo, userRepo, feedCache, cache.GlobalFeedTTL),
		follows:   NewFollowService(followRepo, userRepo),
		comments:  NewCommentService(commentRepo),
		users:     NewUserService(userRepo).WithBcryptCost(bcrypt.MinCost),
		groups:    NewGroupService(groupRepo, userRepo, postRepo, images),
	}
}
