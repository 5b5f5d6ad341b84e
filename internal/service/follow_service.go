package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/repository"
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

// FollowCounts is shown on a profile.
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo}
}

// Follow makes user a follower of the author named username. Following
// yourself, or someone you already follow, changes nothing.
func (s *FollowService) Follow(ctx context.Context, user *models.User, username string) error {
	if user == nil {
		return models.NewUnauthorizedError("authentication required")
	}
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if author.ID == user.ID {
		return nil
	}

	exists, err := s.followRepo.Exists(ctx, user.ID, author.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.followRepo.Create(ctx, user.ID, author.ID)
}

// Unfollow removes the edge when present.
func (s *FollowService) Unfollow(ctx context.Context, user *models.User, username string) error {
	if user == nil {
		return models.NewUnauthorizedError("authentication required")
	}
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.followRepo.Delete(ctx, user.ID, author.ID)
}

// IsFollowing is false for anonymous visitors.
func (s *FollowService) IsFollowing(ctx context.Context, user *models.User, author *models.User) (bool, error) {
	if user == nil || author == nil {
		return false, nil
	}
	return s.followRepo.Exists(ctx, user.ID, author.ID)
}

func (s *FollowService) FollowedAuthors(ctx context.Context, user *models.User) ([]models.User, error) {
	if user == nil {
		return []models.User{}, nil
	}
	return s.followRepo.ListAuthors(ctx, user.ID)
}

func (s *FollowService) Counts(ctx context.Context, authorID uint) (FollowCounts, error) {
	followers, err := s.followRepo.CountFollowers(ctx, authorID)
	if err != nil {
		return FollowCounts{}, err
	}
	following, err := s.followRepo.CountFollowing(ctx, authorID)
	if err != nil {
		return FollowCounts{}, err
	}
	return FollowCounts{Followers: followers, Following: following}, nil
}
