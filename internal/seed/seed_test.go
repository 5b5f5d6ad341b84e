package seed

import (
	"testing"

	"yatube/internal/models"
	"yatube/internal/testutil"
	"yatube/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_PopulatesAndCleans(t *testing.T) {
	db := testutil.NewDB(t)

	opts := Options{
		NumUsers:       5,
		NumGroups:      2,
		NumPosts:       20,
		NumComments:    10,
		FollowsPerUser: 2,
		ShouldClean:    true,
		Factory:        FactoryOptions{SkipBcrypt: true, RandSeed: 42},
	}
	res, err := Seed(db, opts)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Users)
	assert.Equal(t, 20, res.Posts)
	assert.Equal(t, 10, res.Comments)

	var posts, follows int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Follow{}).Count(&follows).Error)
	assert.Equal(t, int64(20), posts)
	assert.Equal(t, int64(res.Follows), follows)

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_id = author_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)

	require.NoError(t, ClearAll(db))
	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

func TestFactory_GeneratesValidNames(t *testing.T) {
	db := testutil.NewDB(t)
	f := NewFactory(db, FactoryOptions{SkipBcrypt: true, RandSeed: 7})

	for i := 0; i < 10; i++ {
		u, err := f.CreateUser()
		require.NoError(t, err)
		assert.NoError(t, validation.ValidateUsername(u.Username), u.Username)

		g, err := f.CreateGroup()
		require.NoError(t, err)
		assert.NoError(t, validation.ValidateGroupSlug(g.Slug), g.Slug)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "cold-brew-coffee-12", slugify("Cold Brew Coffee 12"))
	assert.Equal(t, "a-b", slugify("  a & b "))
}
