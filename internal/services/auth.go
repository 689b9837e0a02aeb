package services

import (
	"context"
	"errors"
	"fmt"

	"todo-list/backend/internal/models"
	"todo-list/backend/internal/repositories"
)

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	ResolveUser(ctx context.Context, username string) (*models.User, error)
}

type AuthServiceImpl struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenService
}

func NewAuthService(users UserStore, hasher *PasswordHasher, tokens *TokenService) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, hasher: hasher, tokens: tokens}
}

// Register stores a new user with a hashed password. A unique-index
// violation from a concurrent registration is reported the same way as the
// pre-check.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (*models.User, error) {
	_, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Password: hashed}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// Login does not distinguish an unknown username from a wrong password.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if !s.hasher.Verify(password, user.Password) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return "", fmt.Errorf("issue token for %q: %w", username, err)
	}
	return token, nil
}

func (s *AuthServiceImpl) ResolveUser(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, ErrUserNotFound
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
