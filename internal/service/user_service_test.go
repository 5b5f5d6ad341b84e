package service

import (
	"context"
	"strings"
	"testing"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup_CreatesAccount(t *testing.T) {
	s := newServices(t, nil)
	ctx := context.Background()

	user, err := s.users.Signup(ctx, SignupInput{
		Username:        "leo",
		Password:        "war-and-peace-1869",
		PasswordConfirm: "war-and-peace-1869",
		FirstName:       "Leo",
		LastName:        "Tolstoy",
		Email:           "leo@example.com",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "war-and-peace-1869", user.Password)
	assert.Equal(t, "Leo Tolstoy", user.FullName())

	authed, err := s.users.Authenticate(ctx, "leo", "war-and-peace-1869")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = s.users.Authenticate(ctx, "leo", "wrong-password")
	assert.Equal(t, 401, models.StatusFor(err))
	_, err = s.users.Authenticate(ctx, "ghost", "whatever-pass")
	assert.Equal(t, 401, models.StatusFor(err))
}

func TestSignup_Validation(t *testing.T) {
	s := newServices(t, nil)
	testutil.CreateUser(t, s.db, "taken")

	valid := func() SignupInput {
		return SignupInput{Username: "newbie", Password: "s3cret-pass", PasswordConfirm: "s3cret-pass"}
	}

	tests := []struct {
		name   string
		mutate func(*SignupInput)
		field  string
		kind   models.ErrorKind
	}{
		{"missing username", func(in *SignupInput) { in.Username = "" }, "username", models.ErrRequired},
		{"username too long", func(in *SignupInput) { in.Username = strings.Repeat("a", 151) }, "username", models.ErrTooLong},
		{"username with space", func(in *SignupInput) { in.Username = "bad name" }, "username", models.ErrInvalid},
		{"reserved username", func(in *SignupInput) { in.Username = "follow" }, "username", models.ErrInvalid},
		{"duplicate username", func(in *SignupInput) { in.Username = "taken" }, "username", models.ErrDuplicate},
		{"short password", func(in *SignupInput) { in.Password, in.PasswordConfirm = "short", "short" }, "password", models.ErrInvalid},
		{"numeric password", func(in *SignupInput) { in.Password, in.PasswordConfirm = "12345678901", "12345678901" }, "password", models.ErrInvalid},
		{"confirmation mismatch", func(in *SignupInput) { in.PasswordConfirm = "other-pass" }, "password_confirm", models.ErrMismatch},
		{"bad email", func(in *SignupInput) { in.Email = "not-an-email" }, "email", models.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := s.users.Signup(context.Background(), in)
			fields := formFields(t, err)
			assert.True(t, fields.Has(tt.field, tt.kind), "fields: %v", fields)
		})
	}

	var count int64
	require.NoError(t, s.db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
