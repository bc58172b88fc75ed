package accounts

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/storage"
)

type fakeUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*auth.User
	nextID  int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*auth.User)}
}

func (s *fakeUserStore) CreateUser(_ context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := s.byEmail[key]; ok {
		return nil, storage.ErrDuplicate
	}
	s.nextID++
	stored := *user
	stored.ID = s.nextID
	s.byEmail[key] = &stored
	return &stored, nil
}

func (s *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func TestServiceRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active user with a hashed password", func(t *testing.T) {
		svc := NewService(newFakeUserStore())

		user, err := svc.Register(ctx, "reader@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "reader@example.com", user.Email)
		assert.True(t, user.IsActive)
		assert.NotEqual(t, "secret1", user.PasswordHash)
		assert.True(t, auth.VerifyPassword(user.PasswordHash, "secret1"))
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		svc := NewService(newFakeUserStore())

		_, err := svc.Register(ctx, "reader@example.com", "secret1")
		require.NoError(t, err)
		_, err = svc.Register(ctx, "reader@example.com", "other-secret")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})
}

func TestServiceAuthenticate(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Service, *fakeUserStore) {
		store := newFakeUserStore()
		svc := NewService(store)
		_, err := svc.Register(ctx, "reader@example.com", "secret1")
		require.NoError(t, err)
		return svc, store
	}

	t.Run("valid credentials", func(t *testing.T) {
		svc, _ := setup(t)

		user, err := svc.Authenticate(ctx, "reader@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "reader@example.com", user.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _ := setup(t)

		_, err := svc.Authenticate(ctx, "reader@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, _ := setup(t)

		_, err := svc.Authenticate(ctx, "nobody@example.com", "secret1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		svc, store := setup(t)
		store.byEmail["reader@example.com"].IsActive = false

		_, err := svc.Authenticate(ctx, "reader@example.com", "secret1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
