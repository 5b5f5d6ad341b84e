package repository

import (
	"context"
	"testing"
	"time"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_CreateIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	reader := testutil.CreateUser(t, db, "reader")
	leo := testutil.CreateUser(t, db, "leo")

	require.NoError(t, repo.Create(ctx, reader.ID, leo.ID))
	require.NoError(t, repo.Create(ctx, reader.ID, leo.ID))

	var count int64
	db.Model(&models.Follow{}).Count(&count)
	assert.Equal(t, int64(1), count)

	exists, err := repo.Exists(ctx, reader.ID, leo.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, leo.ID, reader.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFollowRepository_CountsAndAuthors(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	reader := testutil.CreateUser(t, db, "reader")
	zed := testutil.CreateUser(t, db, "zed")
	ann := testutil.CreateUser(t, db, "ann")
	testutil.Follow(t, db, reader, zed)
	testutil.Follow(t, db, reader, ann)
	testutil.Follow(t, db, ann, zed)

	authors, err := repo.ListAuthors(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, "ann", authors[0].Username)
	assert.Equal(t, "zed", authors[1].Username)

	followers, err := repo.CountFollowers(ctx, zed.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), followers)

	following, err := repo.CountFollowing(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), following)

	require.NoError(t, repo.Delete(ctx, reader.ID, zed.ID))
	require.NoError(t, repo.Delete(ctx, reader.ID, zed.ID))
	following, err = repo.CountFollowing(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), following)
}

func TestCommentRepository_ListByPostOldestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	leo := testutil.CreateUser(t, db, "leo")
	post := testutil.CreatePost(t, db, leo, nil, "hello", time.Time{})
	other := testutil.CreatePost(t, db, leo, nil, "other", time.Time{})

	base := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, &models.Comment{Text: "second", PostID: post.ID, AuthorID: leo.ID, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, repo.Create(ctx, &models.Comment{Text: "first", PostID: post.ID, AuthorID: leo.ID, CreatedAt: base}))
	require.NoError(t, repo.Create(ctx, &models.Comment{Text: "elsewhere", PostID: other.ID, AuthorID: leo.ID}))

	comments, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)
	assert.Equal(t, "leo", comments[0].Author.Username)
}
