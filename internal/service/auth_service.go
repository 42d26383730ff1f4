package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/security/auth"
	"github.com/elebur/VoteAPI/internal/validation"
)

// AuthService handles credentials and tokens
type AuthService struct {
	store  domain.Store
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(store domain.Store, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{store: store, tokens: tokens, logger: logger}
}

// LoginInput is the body of POST /token/.
type LoginInput struct {
	Username *string `json:"username" validate:"required,min=1"`
	Password *string `json:"password" validate:"required,min=1"`
}

// RefreshInput is the body of POST /token/refresh/.
type RefreshInput struct {
	Refresh *string `json:"refresh" validate:"required,min=1"`
}

// Login checks the credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (auth.Pair, error) {
	if fields := validation.Struct(in); fields != nil {
		return auth.Pair{}, &domain.ValidationError{Fields: fields}
	}

	user, err := s.store.Users().GetByUsername(ctx, *in.Username)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Info("login attempt with unknown username", slog.String("username", *in.Username))
		return auth.Pair{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return auth.Pair{}, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, *in.Password) {
		s.logger.Info("login failed with wrong password", slog.String("username", user.Username))
		return auth.Pair{}, domain.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(auth.Subject{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin})
	if err != nil {
		return auth.Pair{}, err
	}
	s.logger.Info("user logged in", slog.Int64("user_id", user.ID), slog.String("username", user.Username))
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, in RefreshInput) (string, error) {
	if fields := validation.Struct(in); fields != nil {
		return "", &domain.ValidationError{Fields: fields}
	}
	access, err := s.tokens.Refresh(*in.Refresh)
	if err != nil {
		s.logger.Debug("refresh rejected", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	return access, nil
}

// Authenticate resolves an access token to the user it was issued for. Tokens of
// deleted users are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := s.tokens.Validate(token, auth.TokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	user, err := s.store.Users().GetByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %d no longer exists", domain.ErrTokenInvalid, claims.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &auth.Principal{UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin}, nil
}

// CreateSuperuser stores an admin account. It is the bootstrap path used by votectl.
func (s *AuthService) CreateSuperuser(ctx context.Context, username, email, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, &domain.ValidationError{Message: "username and password are required"}
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{Username: username, Email: email, PasswordHash: hash, IsAdmin: true}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, usernameTaken(username)
		}
		return nil, fmt.Errorf("create superuser: %w", err)
	}
	s.logger.Info("superuser created", slog.Int64("user_id", user.ID), slog.String("username", username))
	return user, nil
}

func usernameTaken(username string) error {
	return &domain.ConflictError{Message: fmt.Sprintf("The username '%s' is already in use", username)}
}

// newLogin hashes the password and inserts the user through tx.
func newLogin(ctx context.Context, tx domain.Repositories, username, email, passwordHash string) (*domain.User, error) {
	if _, err := tx.Users().GetByUsername(ctx, username); err == nil {
		return nil, usernameTaken(username)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	user := &domain.User{Username: username, Email: email, PasswordHash: passwordHash}
	if err := tx.Users().Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, usernameTaken(username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
