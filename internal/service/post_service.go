// Package service holds the application's business rules on top of the repositories.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
)

const (
	MaxPostTextLength = 50000
)

type PostService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	images    *ImageService
}

// PostInput is the submitted post form. It has no author field: the author
// of a created post is always the acting user.
type PostInput struct {
	Text  string
	Group string // group id as submitted; empty means no group
	Image *ImageUpload
	// ClearImage drops the current image on edit when no new one is uploaded.
	ClearImage bool
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	images *ImageService,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		userRepo:  userRepo,
		images:    images,
	}
}

// CanEdit reports whether user may modify post.
func (s *PostService) CanEdit(user *models.User, post *models.Post) bool {
	return user != nil && post != nil && post.AuthorID == user.ID
}

// GetPost loads post id written by username. A post that exists under a
// different author is reported as not found.
func (s *PostService) GetPost(ctx context.Context, username string, id uint) (*models.Post, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.postRepo.GetByAuthorAndID(ctx, author.ID, id)
}

// CountByAuthor is the number of posts author has written.
func (s *PostService) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	return s.postRepo.CountByAuthor(ctx, authorID)
}

func (s *PostService) CreatePost(ctx context.Context, author *models.User, in PostInput) (*models.Post, error) {
	if author == nil {
		return nil, models.NewUnauthorizedError("authentication required")
	}

	post := &models.Post{AuthorID: author.ID}
	prepared, err := s.applyInput(ctx, post, in)
	if err != nil {
		return nil, err
	}

	if err := s.storeImage(post, prepared); err != nil {
		return nil, err
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		releaseImage(ctx, s.postRepo, s.images, post.Image, post.ImageWebP)
		return nil, err
	}

	observability.PostsCreated.Inc()
	post.Author = *author
	return post, nil
}

// EditPost applies in to post when user is its author. It returns false,
// without error and without touching post, when user may not edit it.
func (s *PostService) EditPost(ctx context.Context, user *models.User, post *models.Post, in PostInput) (bool, error) {
	if !s.CanEdit(user, post) {
		return false, nil
	}

	updated := *post
	prepared, err := s.applyInput(ctx, &updated, in)
	if err != nil {
		return false, err
	}
	if prepared == nil && in.ClearImage {
		updated.Image = ""
		updated.ImageWebP = ""
	}

	if err := s.storeImage(&updated, prepared); err != nil {
		return false, err
	}
	if err := s.postRepo.UpdateContent(ctx, &updated); err != nil {
		return false, err
	}

	if post.Image != "" && post.Image != updated.Image {
		releaseImage(ctx, s.postRepo, s.images, post.Image, post.ImageWebP)
	}
	*post = updated
	return true, nil
}

// applyInput validates in and copies text and group onto post. A valid upload
// is returned prepared but not yet written.
func (s *PostService) applyInput(ctx context.Context, post *models.Post, in PostInput) (*PreparedImage, error) {
	v := models.ValidationResult{}

	text := strings.TrimSpace(in.Text)
	switch {
	case text == "":
		v.Add("text", models.ErrRequired)
	case utf8.RuneCountInString(text) > MaxPostTextLength:
		v.Add("text", models.ErrTooLong)
	}

	group, err := s.resolveGroup(ctx, in.Group)
	if err != nil {
		if !models.IsNotFound(err) {
			return nil, err
		}
		v.Add("group", models.ErrInvalidChoice)
	}

	var prepared *PreparedImage
	if in.Image != nil {
		prepared, err = s.images.Prepare(*in.Image)
		if err != nil {
			var imgErr *ImageError
			if !errors.As(err, &imgErr) {
				return nil, err
			}
			v.Add("image", imgErr.Kind)
		}
	}

	if err := models.NewFormError(v); err != nil {
		return nil, err
	}

	post.Text = text
	post.GroupID = nil
	post.Group = group
	if group != nil {
		post.GroupID = &group.ID
	}
	return prepared, nil
}

func (s *PostService) storeImage(post *models.Post, prepared *PreparedImage) error {
	if prepared == nil {
		return nil
	}
	if err := s.images.Save(prepared); err != nil {
		return err
	}
	post.Image = prepared.RelJPEG()
	post.ImageWebP = prepared.RelWebP()
	return nil
}

// resolveGroup maps the submitted choice to a group. Anything that is not the
// id of an existing group is NotFound.
func (s *PostService) resolveGroup(ctx context.Context, raw string) (*models.Group, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, models.NewNotFoundError("Group", raw)
	}
	return s.groupRepo.GetByID(ctx, uint(id))
}

// releaseImage deletes an image's files once no post refers to them. Identical
// uploads share one file name, so a replaced image may still be in use.
func releaseImage(ctx context.Context, postRepo repository.PostRepository, images *ImageService, jpeg, webp string) {
	if jpeg == "" || images == nil {
		return
	}
	refs, err := postRepo.CountByImage(ctx, jpeg)
	if err != nil {
		slog.WarnContext(ctx, "image reference count failed", slog.String("image", jpeg), slog.String("error", err.Error()))
		return
	}
	if refs == 0 {
		images.RemoveFiles(jpeg, webp)
	}
}
