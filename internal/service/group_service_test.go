package service

import (
	"context"
	"testing"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroup(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()

	group, err := s.groups.CreateGroup(ctx, CreateGroupInput{Title: "Cats", Slug: "cats", Description: "All about cats"})
	require.NoError(t, err)
	assert.NotZero(t, group.ID)

	_, err = s.groups.CreateGroup(ctx, CreateGroupInput{Title: "Cats again", Slug: "cats"})
	assert.True(t, formFields(t, err).Has("slug", models.ErrDuplicate))

	_, err = s.groups.CreateGroup(ctx, CreateGroupInput{Title: "", Slug: "bad slug!"})
	fields := formFields(t, err)
	assert.True(t, fields.Has("title", models.ErrRequired))
	assert.True(t, fields.Has("slug", models.ErrInvalid))

	groups, err := s.groups.ListGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestDeleteGroup_KeepsPostsWithoutGroup(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	leo := testutil.CreateUser(t, s.db, "leo")
	cats := testutil.CreateGroup(t, s.db, "Cats", "cats")
	post := testutil.CreatePost(t, s.db, leo, cats, "meow", testutil.NewClock().Tick())

	require.NoError(t, s.groups.DeleteGroup(ctx, "cats"))

	stored, err := s.posts.GetPost(ctx, "leo", post.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.GroupID)

	_, _, err = s.feeds.GroupFeed(ctx, "cats", "")
	assert.True(t, models.IsNotFound(err))

	assert.True(t, models.IsNotFound(s.groups.DeleteGroup(ctx, "cats")))
}

func TestDeleteUser_Cascades(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	leo := testutil.CreateUser(t, s.db, "leo")
	bum := testutil.CreateUser(t, s.db, "bum")
	clock := testutil.NewClock()
	leoPost := testutil.CreatePost(t, s.db, leo, nil, "leo post", clock.Tick())
	bumPost := testutil.CreatePost(t, s.db, bum, nil, "bum post", clock.Tick())
	_, err := s.comments.AddComment(ctx, bum, leoPost, "on leo")
	require.NoError(t, err)
	_, err = s.comments.AddComment(ctx, leo, bumPost, "by leo")
	require.NoError(t, err)
	testutil.Follow(t, s.db, bum, leo)
	testutil.Follow(t, s.db, leo, bum)

	require.NoError(t, s.groups.DeleteUser(ctx, "leo"))

	var posts, comments, follows int64
	require.NoError(t, s.db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, s.db.Model(&models.Comment{}).Count(&comments).Error)
	require.NoError(t, s.db.Model(&models.Follow{}).Count(&follows).Error)
	assert.Equal(t, int64(1), posts)
	assert.Zero(t, comments)
	assert.Zero(t, follows)

	assert.True(t, models.IsNotFound(s.groups.DeleteUser(ctx, "leo")))
}

func TestDeleteUser_RemovesUnsharedImages(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()
	leo := testutil.CreateUser(t, s.db, "leo")
	bum := testutil.CreateUser(t, s.db, "bum")
	shared := testutil.TinyPNG(t, 40, 30)

	own, err := s.posts.CreatePost(ctx, leo, PostInput{Text: "mine", Image: &ImageUpload{Filename: "a.png", Content: testutil.TinyPNG(t, 12, 12)}})
	require.NoError(t, err)
	leoShared, err := s.posts.CreatePost(ctx, leo, PostInput{Text: "ours", Image: &ImageUpload{Filename: "b.png", Content: shared}})
	require.NoError(t, err)
	_, err = s.posts.CreatePost(ctx, bum, PostInput{Text: "ours too", Image: &ImageUpload{Filename: "c.png", Content: shared}})
	require.NoError(t, err)

	require.NoError(t, s.groups.DeleteUser(ctx, "leo"))

	assert.False(t, s.mediaExists(t, own.Image))
	assert.False(t, s.mediaExists(t, own.ImageWebP))
	assert.True(t, s.mediaExists(t, leoShared.Image), "bum's post still uses the file")
}
