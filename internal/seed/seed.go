package seed

import (
	"fmt"
	"log/slog"

	"yatube/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumGroups   int
	NumPosts    int
	NumComments int
	// FollowsPerUser is how many other users each seeded user follows.
	FollowsPerUser int
	ShouldClean    bool
	Factory        FactoryOptions
}

// Result counts what a run created.
type Result struct {
	Users    int
	Groups   int
	Posts    int
	Comments int
	Follows  int
}

// Seed populates the database with demo data.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	slog.Info("starting database seeding",
		slog.Int("users", opts.NumUsers),
		slog.Int("groups", opts.NumGroups),
		slog.Int("posts", opts.NumPosts),
	)

	if opts.ShouldClean {
		if err := ClearAll(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f := NewFactory(db, opts.Factory)
	res := &Result{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)
	if len(users) == 0 {
		return res, nil
	}

	groups := make([]*models.Group, 0, opts.NumGroups)
	for i := 0; i < opts.NumGroups; i++ {
		g, err := f.CreateGroup()
		if err != nil {
			return nil, fmt.Errorf("failed to create groups: %w", err)
		}
		groups = append(groups, g)
	}
	res.Groups = len(groups)

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[f.rng.Intn(len(users))]
		var group *models.Group
		// Roughly a third of posts stay outside any group.
		if len(groups) > 0 && f.rng.Intn(3) > 0 {
			group = groups[f.rng.Intn(len(groups))]
		}
		p, err := f.CreatePost(author, group)
		if err != nil {
			return nil, fmt.Errorf("failed to create posts: %w", err)
		}
		posts = append(posts, p)
	}
	res.Posts = len(posts)

	if len(posts) > 0 {
		for i := 0; i < opts.NumComments; i++ {
			if _, err := f.CreateComment(users[f.rng.Intn(len(users))], posts[f.rng.Intn(len(posts))]); err != nil {
				return nil, fmt.Errorf("failed to create comments: %w", err)
			}
			res.Comments++
		}
	}

	for _, u := range users {
		for _, idx := range f.rng.Perm(len(users))[:min(max(opts.FollowsPerUser, 0), len(users))] {
			if users[idx].ID == u.ID {
				continue
			}
			if err := f.CreateFollow(u, users[idx]); err != nil {
				return nil, fmt.Errorf("failed to create follows: %w", err)
			}
			res.Follows++
		}
	}

	slog.Info("database seeding completed",
		slog.Int("users", res.Users),
		slog.Int("groups", res.Groups),
		slog.Int("posts", res.Posts),
		slog.Int("comments", res.Comments),
		slog.Int("follows", res.Follows),
	)
	return res, nil
}

// ClearAll deletes every row, children first so foreign keys hold.
func ClearAll(db *gorm.DB) error {
	slog.Info("clearing existing data")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.Group{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
