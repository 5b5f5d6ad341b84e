package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"yatube/internal/models"
	"yatube/internal/repository"
)

const MaxCommentTextLength = 10000

type CommentService struct {
	commentRepo repository.CommentRepository
}

func NewCommentService(commentRepo repository.CommentRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo}
}

// AddComment stores text as user's comment on post. Invalid text is a
// *models.FormError and nothing is created.
func (s *CommentService) AddComment(ctx context.Context, user *models.User, post *models.Post, text string) (*models.Comment, error) {
	if user == nil {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	if post == nil {
		return nil, models.NewNotFoundError("Post", 0)
	}

	v := models.ValidationResult{}
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		v.Add("text", models.ErrRequired)
	case utf8.RuneCountInString(text) > MaxCommentTextLength:
		v.Add("text", models.ErrTooLong)
	}
	if err := models.NewFormError(v); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		Text:     text,
		PostID:   post.ID,
		AuthorID: user.ID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	comment.Author = *user
	return comment, nil
}

// ListComments returns post's comments oldest first.
func (s *CommentService) ListComments(ctx context.Context, post *models.Post) ([]models.Comment, error) {
	if post == nil {
		return nil, models.NewNotFoundError("Post", 0)
	}
	return s.commentRepo.ListByPost(ctx, post.ID)
}
