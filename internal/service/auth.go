package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/store"
)

var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so callers cannot tell which one failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned when registering an email that already
	// has an admin account.
	ErrEmailTaken = errors.New("email already exists")
)

// AdminStore is the subset of the persistence gateway AuthService needs.
type AdminStore interface {
	CreateAdmin(ctx context.Context, admin *model.Admin) error
	GetAdminByEmail(ctx context.Context, email string) (*model.Admin, error)
}

// AuthService registers admins and checks their passwords.
type AuthService struct {
	store AdminStore
	creds *Credentials
}

func NewAuthService(s AdminStore, creds *Credentials) *AuthService {
	return &AuthService{store: s, creds: creds}
}

// Register hashes password and stores a new admin account.
func (s *AuthService) Register(ctx context.Context, email, password string) (*model.Admin, error) {
	hash, err := s.creds.Hash(password)
	if err != nil {
		return nil, err
	}

	admin := &model.Admin{Email: email, PasswordHash: hash}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("register admin: %w", err)
	}
	return admin, nil
}

// Authenticate returns the admin for email when password matches.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.Admin, error) {
	admin, err := s.store.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate admin: %w", err)
	}

	ok, err := s.creds.Verify(password, admin.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}
