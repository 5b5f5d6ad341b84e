package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "server-test-secret-0123456789abcdef"

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:            testSecret,
		Port:                 "0",
		Env:                  "test",
		MediaRoot:            t.TempDir(),
		MediaURL:             "/media/",
		ImageMaxUploadSizeMB: 1,
		LoginURL:             "/auth/login/",
		FeedPageSize:         10,
		FeedCacheTTLSeconds:  20,
	}
	db := testutil.NewDB(t)

	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	return &testEnv{app: s.App(), db: db, cfg: cfg}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func authorize(t *testing.T, req *http.Request, user *models.User) *http.Request {
	t.Helper()
	token, _, err := middleware.IssueToken(testSecret, user.ID, user.Username, time.Now())
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return req
}

func multipartRequest(t *testing.T, target string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestNewPost_AnonymousRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		resp := env.do(t, httptest.NewRequest(method, "/new/", nil))
		assert.Equal(t, http.StatusFound, resp.StatusCode, method)
		assert.Equal(t, "/auth/login/?next=/new/", resp.Header.Get("Location"), method)
	}

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/follow/", nil))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/?next=/follow/", resp.Header.Get("Location"))
}

func TestSignupLoginAndPost(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, formRequest(http.MethodPost, "/auth/signup/", url.Values{
		"username":  {"bum"},
		"password1": {"Sturdy-pass-2024"},
		"password2": {"Sturdy-pass-2024"},
	}))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login/", resp.Header.Get("Location"))

	resp = env.do(t, formRequest(http.MethodPost, "/auth/login/", url.Values{
		"username": {"bum"},
		"password": {"Sturdy-pass-2024"},
	}))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	var session *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.TokenCookie {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := formRequest(http.MethodPost, "/new/", url.Values{"text": {"New text"}})
	req.AddCookie(session)
	resp = env.do(t, req)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	var posts []models.Post
	require.NoError(t, env.db.Preload("Author").Find(&posts).Error)
	require.Len(t, posts, 1)
	assert.Equal(t, "bum", posts[0].Author.Username)
	assert.Equal(t, "New text", posts[0].Text)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "New text")
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "leo")

	resp := env.do(t, formRequest(http.MethodPost, "/auth/login/", url.Values{
		"username": {"leo"},
		"password": {"not-the-password"},
	}))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_RedirectsToNext(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "leo")

	resp := env.do(t, formRequest(http.MethodPost, "/auth/login/?next=/new/", url.Values{
		"username": {"leo"},
		"password": {testutil.Password},
	}))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/new/", resp.Header.Get("Location"))

	resp = env.do(t, formRequest(http.MethodPost, "/auth/login/", url.Values{
		"username": {"leo"},
		"password": {testutil.Password},
		"next":     {"//evil.example.com/"},
	}))
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestCreatePost_ValidationRendersForm(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")

	resp := env.do(t, authorize(t, multipartRequest(t, "/new/", map[string]string{"text": "with file"}, "notes.txt", []byte("just words")), leo))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page PostFormPage
	decode(t, resp, &page)
	assert.Equal(t, []models.ErrorKind{models.ErrInvalidImage}, page.Form.Errors["image"])
	assert.Equal(t, "with file", page.Form.Values["text"])

	resp = env.do(t, authorize(t, formRequest(http.MethodPost, "/new/", url.Values{"text": {""}}), leo))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &page)
	assert.Equal(t, []models.ErrorKind{models.ErrRequired}, page.Form.Errors["text"])

	var count int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreatePost_WithImage(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")

	resp := env.do(t, authorize(t, multipartRequest(t, "/new/", map[string]string{"text": "picture"}, "pic.png", testutil.TinyPNG(t, 32, 32)), leo))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var post models.Post
	require.NoError(t, env.db.First(&post).Error)
	require.NotEmpty(t, post.Image)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, env.cfg.MediaURL+post.Image, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNotFoundDocuments(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	testutil.CreatePost(t, env.db, leo, nil, "exists", time.Time{})

	for _, target := range []string{"/nobody/", "/group/missing/", "/leo/999/", "/leo/abc/", "/a/b/c/d/"} {
		resp := env.do(t, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusNotFound, resp.StatusCode, target)

		var body models.ErrorResponse
		decode(t, resp, &body)
		assert.Equal(t, models.CodeNotFound, body.Code, target)
		assert.Equal(t, target, body.Path, target)
	}
}

func TestProfileAndPostView(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	reader := testutil.CreateUser(t, env.db, "reader")
	post := testutil.CreatePost(t, env.db, leo, nil, "hello world", time.Time{})
	testutil.Follow(t, env.db, reader, leo)

	resp := env.do(t, authorize(t, httptest.NewRequest(http.MethodGet, "/leo/", nil), reader))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile struct {
		Author    models.User     `json:"author"`
		Page      models.PostPage `json:"page"`
		Following bool            `json:"following"`
		Counts    struct {
			Followers int64 `json:"followers"`
		} `json:"counts"`
	}
	decode(t, resp, &profile)
	assert.Equal(t, "leo", profile.Author.Username)
	assert.True(t, profile.Following)
	assert.Equal(t, int64(1), profile.Counts.Followers)
	require.Len(t, profile.Page.Posts, 1)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/leo/%d/", post.ID), nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Post       models.Post `json:"post"`
		PostsCount int64       `json:"posts_count"`
		CanEdit    bool        `json:"can_edit"`
	}
	decode(t, resp, &view)
	assert.Equal(t, "hello world", view.Post.Text)
	assert.Equal(t, int64(1), view.PostsCount)
	assert.False(t, view.CanEdit)
}

func TestEditPost_NonOwnerRedirected(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	bum := testutil.CreateUser(t, env.db, "bum")
	post := testutil.CreatePost(t, env.db, leo, nil, "original", time.Time{})
	editURL := fmt.Sprintf("/leo/%d/edit/", post.ID)
	viewURL := fmt.Sprintf("/leo/%d/", post.ID)

	resp := env.do(t, authorize(t, formRequest(http.MethodPost, editURL, url.Values{"text": {"hijacked"}}), bum))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, viewURL, resp.Header.Get("Location"))

	resp = env.do(t, authorize(t, httptest.NewRequest(http.MethodGet, editURL, nil), bum))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, viewURL, resp.Header.Get("Location"))

	var stored models.Post
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.Equal(t, "original", stored.Text)

	resp = env.do(t, authorize(t, formRequest(http.MethodPost, editURL, url.Values{"text": {"revised"}}), leo))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, viewURL, resp.Header.Get("Location"))
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.Equal(t, "revised", stored.Text)
	assert.Equal(t, leo.ID, stored.AuthorID)
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	bum := testutil.CreateUser(t, env.db, "bum")
	post := testutil.CreatePost(t, env.db, leo, nil, "topic", time.Time{})
	target := fmt.Sprintf("/leo/%d/comment/", post.ID)

	resp := env.do(t, formRequest(http.MethodPost, target, url.Values{"text": {"anonymous"}}))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/auth/login/?next="))

	resp = env.do(t, authorize(t, formRequest(http.MethodPost, target, url.Values{"text": {"nice post"}}), bum))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, fmt.Sprintf("/leo/%d/", post.ID), resp.Header.Get("Location"))

	resp = env.do(t, authorize(t, formRequest(http.MethodPost, target, url.Values{"text": {"  "}}), bum))
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	var comments []models.Comment
	require.NoError(t, env.db.Find(&comments).Error)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice post", comments[0].Text)
	assert.Equal(t, bum.ID, comments[0].AuthorID)
}

func TestFollowAndUnfollow(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	reader := testutil.CreateUser(t, env.db, "reader")
	testutil.CreatePost(t, env.db, leo, nil, "for followers", time.Time{})

	for i := 0; i < 2; i++ {
		resp := env.do(t, authorize(t, httptest.NewRequest(http.MethodPost, "/leo/follow/", nil), reader))
		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/follow/", resp.Header.Get("Location"))
	}

	var edges int64
	require.NoError(t, env.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)

	resp := env.do(t, authorize(t, httptest.NewRequest(http.MethodGet, "/follow/", nil), reader))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "for followers")

	resp = env.do(t, authorize(t, httptest.NewRequest(http.MethodPost, "/leo/unfollow/", nil), reader))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	require.NoError(t, env.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Zero(t, edges)

	resp = env.do(t, authorize(t, httptest.NewRequest(http.MethodPost, "/reader/follow/", nil), reader))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	require.NoError(t, env.db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Zero(t, edges)

	resp = env.do(t, authorize(t, httptest.NewRequest(http.MethodPost, "/ghost/follow/", nil), reader))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	leo := testutil.CreateUser(t, env.db, "leo")
	admin := testutil.CreateAdmin(t, env.db, "root")
	cats := testutil.CreateGroup(t, env.db, "Cats", "cats")
	post := testutil.CreatePost(t, env.db, leo, cats, "meow", time.Time{})

	resp := env.do(t, authorize(t, httptest.NewRequest(http.MethodDelete, "/admin/groups/cats/", nil), leo))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, httptest.NewRequest(http.MethodDelete, "/admin/groups/cats/", nil))
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/admin/groups/", strings.NewReader(`{"title":"Dogs","slug":"dogs"}`))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp = env.do(t, authorize(t, req, admin))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, authorize(t, httptest.NewRequest(http.MethodDelete, "/admin/groups/cats/", nil), admin))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var stored models.Post
	require.NoError(t, env.db.First(&stored, post.ID).Error)
	assert.Nil(t, stored.GroupID)

	resp = env.do(t, authorize(t, httptest.NewRequest(http.MethodDelete, "/admin/users/leo/", nil), admin))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var posts int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)
}

func TestHealthChecks(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
