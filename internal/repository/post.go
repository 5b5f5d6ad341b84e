// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"yatube/internal/models"
	"yatube/internal/pagination"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// GetByAuthorAndID finds post id only when it was written by authorID.
	GetByAuthorAndID(ctx context.Context, authorID, id uint) (*models.Post, error)
	// UpdateContent persists text, group and image; author and created_at never change.
	UpdateContent(ctx context.Context, post *models.Post) error
	CountByAuthor(ctx context.Context, authorID uint) (int64, error)
	// CountByImage is how many posts point at the image path.
	CountByImage(ctx context.Context, image string) (int64, error)
	// ListImagesByAuthor returns the image columns of authorID's posts that carry one.
	ListImagesByAuthor(ctx context.Context, authorID uint) ([]models.Post, error)

	ListAll(ctx context.Context, rawPage string) (*models.PostPage, error)
	ListByGroup(ctx context.Context, groupID uint, rawPage string) (*models.PostPage, error)
	ListByAuthor(ctx context.Context, authorID uint, rawPage string) (*models.PostPage, error)
	ListFollowedBy(ctx context.Context, userID uint, rawPage string) (*models.PostPage, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db       *gorm.DB
	pageSize int
}

// NewPostRepository creates a new post repository; pageSize <= 0 uses pagination.DefaultPageSize.
func NewPostRepository(db *gorm.DB, pageSize int) PostRepository {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &postRepository{db: db, pageSize: pageSize}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Group").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.withDetails(r.db.WithContext(ctx)).
		Preload("Author").
		Preload("Group").
		First(&post, "posts.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) GetByAuthorAndID(ctx context.Context, authorID, id uint) (*models.Post, error) {
	var post models.Post
	err := r.withDetails(r.db.WithContext(ctx)).
		Preload("Author").
		Preload("Group").
		Where("posts.author_id = ?", authorID).
		First(&post, "posts.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) UpdateContent(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).
		Model(post).
		Select("Text", "GroupID", "Image", "ImageWebP").
		Updates(post).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("author_id = ?", authorID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *postRepository) CountByImage(ctx context.Context, image string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("image = ?", image).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *postRepository) ListImagesByAuthor(ctx context.Context, authorID uint) ([]models.Post, error) {
	posts := make([]models.Post, 0)
	err := r.db.WithContext(ctx).
		Select("id", "image", "image_webp").
		Where("author_id = ? AND image <> ''", authorID).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListAll(ctx context.Context, rawPage string) (*models.PostPage, error) {
	return r.list(ctx, rawPage, func(db *gorm.DB) *gorm.DB { return db })
}

func (r *postRepository) ListByGroup(ctx context.Context, groupID uint, rawPage string) (*models.PostPage, error) {
	return r.list(ctx, rawPage, func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.group_id = ?", groupID)
	})
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, rawPage string) (*models.PostPage, error) {
	return r.list(ctx, rawPage, func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.author_id = ?", authorID)
	})
}

func (r *postRepository) ListFollowedBy(ctx context.Context, userID uint, rawPage string) (*models.PostPage, error) {
	return r.list(ctx, rawPage, func(db *gorm.DB) *gorm.DB {
		followed := r.db.WithContext(ctx).Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
		return db.Where("posts.author_id IN (?)", followed)
	})
}

// list counts the scoped posts, resolves the page and loads it newest first.
// Posts sharing a timestamp keep insertion order.
func (r *postRepository) list(ctx context.Context, rawPage string, scope func(*gorm.DB) *gorm.DB) (*models.PostPage, error) {
	var count int64
	if err := scope(r.db.WithContext(ctx).Model(&models.Post{})).Count(&count).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	page := pagination.Resolve(rawPage, count, r.pageSize)

	posts := make([]models.Post, 0, page.Limit())
	if count > 0 {
		err := scope(r.withDetails(r.db.WithContext(ctx))).
			Preload("Author").
			Preload("Group").
			Order("posts.created_at DESC").
			Order("posts.id ASC").
			Limit(page.Limit()).
			Offset(page.Offset()).
			Find(&posts).Error
		if err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	return &models.PostPage{
		Posts:       posts,
		Number:      page.Number,
		NumPages:    page.NumPages,
		Count:       count,
		HasNext:     page.HasNext(),
		HasPrevious: page.HasPrevious(),
	}, nil
}

// withDetails selects the comment count alongside each post.
func (r *postRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Post{}).
		Select("posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count")
}
