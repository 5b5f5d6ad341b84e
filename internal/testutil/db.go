// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"yatube/internal/database"
	"yatube/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plaintext password of every user created by CreateUser.
const Password = "s3cret-pass"

// NewDB opens a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts a user whose password is Password.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	u := &models.User{Username: username, Password: string(hash)}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateAdmin inserts a user with IsAdmin set.
func CreateAdmin(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := CreateUser(t, db, username)
	require.NoError(t, db.Model(u).Update("is_admin", true).Error)
	u.IsAdmin = true
	return u
}

func CreateGroup(t *testing.T, db *gorm.DB, title, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: title, Slug: slug, Description: title + " description"}
	require.NoError(t, db.Create(g).Error)
	return g
}

// CreatePost inserts a post. A zero createdAt lets the database assign the time.
func CreatePost(t *testing.T, db *gorm.DB, author *models.User, group *models.Group, text string, createdAt time.Time) *models.Post {
	t.Helper()
	p := &models.Post{Text: text, AuthorID: author.ID, CreatedAt: createdAt}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// Follow inserts a follow edge directly.
func Follow(t *testing.T, db *gorm.DB, user, author *models.User) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{UserID: user.ID, AuthorID: author.ID}).Error)
}

// Clock returns distinct, increasing timestamps so ordering by created_at is deterministic.
type Clock struct {
	next time.Time
}

func NewClock() *Clock {
	return &Clock{next: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Tick() time.Time {
	c.next = c.next.Add(time.Minute)
	return c.next
}
