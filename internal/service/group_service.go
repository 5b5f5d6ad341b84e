package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"
)

// GroupService covers the administrative operations: groups and user removal.
type GroupService struct {
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	postRepo  repository.PostRepository
	images    *ImageService
}

type CreateGroupInput struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func NewGroupService(
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	images *ImageService,
) *GroupService {
	return &GroupService{groupRepo: groupRepo, userRepo: userRepo, postRepo: postRepo, images: images}
}

func (s *GroupService) ListGroups(ctx context.Context) ([]models.Group, error) {
	return s.groupRepo.List(ctx)
}

func (s *GroupService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	v := models.ValidationResult{}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		v.Add("title", models.ErrRequired)
	case utf8.RuneCountInString(title) > validation.MaxGroupTitleLength:
		v.Add("title", models.ErrTooLong)
	}

	slug := strings.TrimSpace(in.Slug)
	switch {
	case slug == "":
		v.Add("slug", models.ErrRequired)
	case utf8.RuneCountInString(slug) > validation.MaxGroupSlugLength:
		v.Add("slug", models.ErrTooLong)
	case validation.ValidateGroupSlug(slug) != nil:
		v.Add("slug", models.ErrInvalid)
	}

	description := strings.TrimSpace(in.Description)
	if utf8.RuneCountInString(description) > validation.MaxGroupDescriptionLength {
		v.Add("description", models.ErrTooLong)
	}

	if err := models.NewFormError(v); err != nil {
		return nil, err
	}

	group := &models.Group{Title: title, Slug: slug, Description: description}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
			dup := models.ValidationResult{}
			dup.Add("slug", models.ErrDuplicate)
			return nil, models.NewFormError(dup)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "group created", slog.String("slug", group.Slug), slog.Uint64("group_id", uint64(group.ID)))
	return group, nil
}

// DeleteGroup removes the group; its posts stay, without a group.
func (s *GroupService) DeleteGroup(ctx context.Context, slug string) error {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	return s.groupRepo.Delete(ctx, group.ID)
}

// DeleteUser removes the account and everything it authored, then deletes
// image files no remaining post uses.
func (s *GroupService) DeleteUser(ctx context.Context, username string) error {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	withImages, err := s.postRepo.ListImagesByAuthor(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(withImages))
	for _, p := range withImages {
		if _, ok := seen[p.Image]; ok {
			continue
		}
		seen[p.Image] = struct{}{}
		releaseImage(ctx, s.postRepo, s.images, p.Image, p.ImageWebP)
	}
	return nil
}
