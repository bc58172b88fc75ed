package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/storage"
)

var (
	// ErrEmailTaken indicates a registration against an email that
	// already has an account
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers every login failure mode: unknown
	// email, wrong password, deactivated account. Callers must not be
	// able to tell these apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserStore persists accounts. Implemented by storage.MemoryStore and
// postgres.Store.
type UserStore interface {
	// CreateUser persists a new account; storage.ErrDuplicate when the
	// email is already registered
	CreateUser(ctx context.Context, user *auth.User) (*auth.User, error)

	// GetUserByEmail looks an account up by its login email
	GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
}

// Service implements registration and credential checks
type Service struct {
	users UserStore
}

// NewService creates an account service over the given store
func NewService(users UserStore) *Service {
	return &Service{users: users}
}

// Register creates a new active account. The raw password is hashed
// here and never stored.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (*auth.User, error) {
	passwordHash, err := auth.HashPassword(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	user, err := s.users.CreateUser(ctx, &auth.User{
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return user, nil
}

// Authenticate verifies an email/password pair. All failures collapse
// into ErrInvalidCredentials; the password is always checked even for
// unknown emails so response timing does not leak which emails exist.
func (s *Service) Authenticate(ctx context.Context, email, rawPassword string) (*auth.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			auth.VerifyPassword(dummyHash, rawPassword)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, rawPassword) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// dummyHash is a valid bcrypt hash of an unguessable value, used to
// equalize timing when the email does not exist.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
