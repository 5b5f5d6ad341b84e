package service

import (
	"context"
	"errors"
	"testing"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollow_Idempotent(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	reader := testutil.CreateUser(t, s.db, "reader")
	leo := testutil.CreateUser(t, s.db, "leo")

	require.NoError(t, s.follows.Follow(ctx, reader, "leo"))
	require.NoError(t, s.follows.Follow(ctx, reader, "leo"))

	var edges int64
	require.NoError(t, s.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	following, err := s.follows.IsFollowing(ctx, reader, leo)
	require.NoError(t, err)
	assert.True(t, following)

	counts, err := s.follows.Counts(ctx, leo.ID)
	require.NoError(t, err)
	assert.Equal(t, FollowCounts{Followers: 1, Following: 0}, counts)

	require.NoError(t, s.follows.Unfollow(ctx, reader, "leo"))
	require.NoError(t, s.follows.Unfollow(ctx, reader, "leo"))

	following, err = s.follows.IsFollowing(ctx, reader, leo)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollow_SelfIsNoOp(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	leo := testutil.CreateUser(t, s.db, "leo")

	require.NoError(t, s.follows.Follow(ctx, leo, "leo"))

	following, err := s.follows.IsFollowing(ctx, leo, leo)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollow_UnknownAuthor(t *testing.T) {
	s := newServices(t, nil)
	reader := testutil.CreateUser(t, s.db, "reader")

	err := s.follows.Follow(context.Background(), reader, "ghost")
	assert.True(t, models.IsNotFound(err))
}

func TestFollowedAuthors(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	reader := testutil.CreateUser(t, s.db, "reader")
	testutil.CreateUser(t, s.db, "zed")
	testutil.CreateUser(t, s.db, "amy")

	require.NoError(t, s.follows.Follow(ctx, reader, "zed"))
	require.NoError(t, s.follows.Follow(ctx, reader, "amy"))

	authors, err := s.follows.FollowedAuthors(ctx, reader)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, "amy", authors[0].Username)
	assert.Equal(t, "zed", authors[1].Username)

	authors, err = s.follows.FollowedAuthors(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, authors)

	anonymous, err := s.follows.IsFollowing(ctx, nil, reader)
	require.NoError(t, err)
	assert.False(t, anonymous)
}

// followRepoStub fails every call with err.
type followRepoStub struct {
	err error
}

func (s *followRepoStub) Create(context.Context, uint, uint) error         { return s.err }
func (s *followRepoStub) Delete(context.Context, uint, uint) error         { return s.err }
func (s *followRepoStub) Exists(context.Context, uint, uint) (bool, error) { return false, s.err }
func (s *followRepoStub) ListAuthors(context.Context, uint) ([]models.User, error) {
	return nil, s.err
}
func (s *followRepoStub) CountFollowers(context.Context, uint) (int64, error) { return 0, s.err }
func (s *followRepoStub) CountFollowing(context.Context, uint) (int64, error) { return 0, s.err }

func TestFollow_PropagatesStoreErrors(t *testing.T) {
	s := newServices(t, nil)
	reader := testutil.CreateUser(t, s.db, "reader")
	testutil.CreateUser(t, s.db, "leo")

	boom := errors.New("store unavailable")
	svc := NewFollowService(&followRepoStub{err: boom}, s.follows.userRepo)

	assert.ErrorIs(t, svc.Follow(context.Background(), reader, "leo"), boom)
	_, err := svc.Counts(context.Background(), reader.ID)
	assert.ErrorIs(t, err, boom)
}
