package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/auth"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/repository"
)

// AuthService handles sign-up, login and the GitHub callback:
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// It never touches cookies; that is the handler's job.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and the issued JWT so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Credentials is the login and signup body.
type Credentials struct {
	Email       string `json:"email"                 validate:"required,email,max=254"`
	Password    string `json:"password"              validate:"required"`
	DisplayName string `json:"displayName,omitempty" validate:"max=100"`
}

// Signup creates a password account and signs it in.
func (s *AuthService) Signup(ctx context.Context, c Credentials) (*AuthResult, error) {
	c.Email = model.NormalizeEmail(c.Email)
	c.DisplayName = strings.TrimSpace(c.DisplayName)

	fields := map[string]string{}
	if n := utf8.RuneCountInString(c.Password); n > 0 && n < auth.MinPasswordLength {
		fields["password"] = fmt.Sprintf("must be at least %d characters", auth.MinPasswordLength)
	}
	if err := check(c, fields); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(c.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Email:        c.Email,
		DisplayName:  c.DisplayName,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "an account with this email already exists",
				Field:   "email",
			}
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))
	return s.issue(user)
}

// Login checks email and password. Any mismatch, including an unknown email
// or an OAuth-only account, is the same ErrUnauthorized so callers cannot
// probe which emails exist.
func (s *AuthService) Login(ctx context.Context, c Credentials) (*AuthResult, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetByEmail(ctx, model.NormalizeEmail(c.Email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, invalid
	}
	if err := s.passwords.Verify(user.PasswordHash, c.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub upserts the account behind a GitHub profile and
// signs it in.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	id := gh.ID
	user := &model.User{
		Email:       model.NormalizeEmail(gh.Email),
		DisplayName: gh.DisplayName(),
		GitHubID:    &id,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", gh.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return s.issue(user)
}

// Me returns the user behind a validated session.
func (s *AuthService) Me(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("no session")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken returns the user id inside a session token.
func (s *AuthService) ValidateToken(token string) (string, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
