package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

const maxNameLength = 150

type UserService struct {
	userRepo   repository.UserRepository
	bcryptCost int
}

// SignupInput is the registration form.
type SignupInput struct {
	Username        string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	Email           string
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo, bcryptCost: bcrypt.DefaultCost}
}

// WithBcryptCost returns s hashing with cost; tests use bcrypt.MinCost.
func (s *UserService) WithBcryptCost(cost int) *UserService {
	s.bcryptCost = cost
	return s
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.userRepo.GetByUsername(ctx, username)
}

// Signup validates the form and creates the account. Field problems are
// returned together as a *models.FormError.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	v := models.ValidationResult{}

	username := strings.TrimSpace(in.Username)
	switch err := validation.ValidateUsername(username); {
	case err == nil:
		taken, err := s.userRepo.ExistsByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if taken {
			v.Add("username", models.ErrDuplicate)
		}
	case errors.Is(err, validation.ErrUsernameRequired):
		v.Add("username", models.ErrRequired)
	case errors.Is(err, validation.ErrUsernameTooLong):
		v.Add("username", models.ErrTooLong)
	default:
		v.Add("username", models.ErrInvalid)
	}

	switch {
	case in.Password == "":
		v.Add("password", models.ErrRequired)
	case validation.ValidatePassword(in.Password, username) != nil:
		v.Add("password", models.ErrInvalid)
	}
	if in.Password != in.PasswordConfirm {
		v.Add("password_confirm", models.ErrMismatch)
	}

	email := strings.TrimSpace(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		v.Add("email", models.ErrInvalid)
	}
	firstName := strings.TrimSpace(in.FirstName)
	if utf8.RuneCountInString(firstName) > maxNameLength {
		v.Add("first_name", models.ErrTooLong)
	}
	lastName := strings.TrimSpace(in.LastName)
	if utf8.RuneCountInString(lastName) > maxNameLength {
		v.Add("last_name", models.ErrTooLong)
	}

	if err := models.NewFormError(v); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same name.
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
			dup := models.ValidationResult{}
			dup.Add("username", models.ErrDuplicate)
			return nil, models.NewFormError(dup)
		}
		return nil, err
	}
	return user, nil
}

// Authenticate checks username and password. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if models.IsNotFound(err) {
			return nil, models.NewUnauthorizedError("invalid username or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("invalid username or password")
	}
	return user, nil
}
