package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/giabaovo/resola-code-challenge/pkg/storage"
)

var (
	// ErrInvalidToken indicates the presented credential does not resolve
	// to an authenticated user
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenNotFound indicates a revoke target does not exist
	ErrTokenNotFound = errors.New("token not found")
)

// TokenStore persists tokens. Implemented by storage.MemoryStore and
// postgres.Store.
type TokenStore interface {
	// GetOrCreateToken returns the existing token for t.UserID or, if
	// none exists, persists t. The check-and-insert must be atomic so
	// concurrent logins cannot mint two tokens for one user. The second
	// return value reports whether t was inserted.
	GetOrCreateToken(ctx context.Context, t *Token) (*Token, bool, error)

	// GetTokenByHash looks a token up by its SHA-256 digest
	GetTokenByHash(ctx context.Context, keyHash string) (*Token, error)

	// DeleteTokenByHash removes a token; storage.ErrNotFound when absent
	DeleteTokenByHash(ctx context.Context, keyHash string) error

	// DeleteExpiredTokens purges tokens whose expiry is before now
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// UserGetter resolves stored users by id
type UserGetter interface {
	GetUserByID(ctx context.Context, id int64) (*User, error)
}

// resolveCacheSize bounds the in-process resolve cache
const resolveCacheSize = 4096

// resolveCacheMaxAge bounds staleness across replicas: a revoke on one
// replica must be visible on another within this window.
const resolveCacheMaxAge = 30 * time.Second

type cachedResolution struct {
	user     *User
	expiry   *time.Time
	cachedAt time.Time
}

// TokenAuthority issues, resolves, and revokes opaque bearer tokens,
// each bound to exactly one user.
type TokenAuthority struct {
	tokens TokenStore
	users  UserGetter
	ttl    time.Duration // 0 disables expiry
	cache  *lru.Cache[string, cachedResolution]
	now    func() time.Time
}

// NewTokenAuthority creates a token authority. ttl of zero issues
// non-expiring tokens.
func NewTokenAuthority(tokens TokenStore, users UserGetter, ttl time.Duration) *TokenAuthority {
	cache, _ := lru.New[string, cachedResolution](resolveCacheSize)
	return &TokenAuthority{
		tokens: tokens,
		users:  users,
		ttl:    ttl,
		cache:  cache,
		now:    time.Now,
	}
}

// Issue returns the user's active token, minting one if none exists.
// Re-requesting is idempotent: an existing unexpired token is returned
// unchanged. An expired leftover is rotated.
func (ta *TokenAuthority) Issue(ctx context.Context, user *User) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		key, keyHash, err := GenerateToken()
		if err != nil {
			return "", err
		}

		candidate := &Token{
			UserID:    user.ID,
			Key:       key,
			KeyHash:   keyHash,
			CreatedAt: ta.now(),
		}
		if ta.ttl > 0 {
			expiresAt := ta.now().Add(ta.ttl)
			candidate.ExpiresAt = &expiresAt
		}

		token, created, err := ta.tokens.GetOrCreateToken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to issue token: %w", err)
		}
		if created || !token.Expired(ta.now()) {
			return token.Key, nil
		}

		// Expired leftover blocks the per-user uniqueness; clear it and
		// retry once.
		if err := ta.tokens.DeleteTokenByHash(ctx, token.KeyHash); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("failed to rotate expired token: %w", err)
		}
		ta.cache.Remove(token.KeyHash)
	}

	return "", fmt.Errorf("failed to issue token: rotation retry exhausted")
}

// Resolve maps a presented credential to its user. Absent, expired, or
// inactive-user tokens all yield ErrInvalidToken.
func (ta *TokenAuthority) Resolve(ctx context.Context, tokenString string) (*User, error) {
	if err := ValidateTokenFormat(tokenString); err != nil {
		return nil, ErrInvalidToken
	}

	keyHash := HashToken(tokenString)
	now := ta.now()

	if entry, ok := ta.cache.Get(keyHash); ok {
		if now.Sub(entry.cachedAt) < resolveCacheMaxAge {
			if entry.expiry != nil && now.After(*entry.expiry) {
				ta.cache.Remove(keyHash)
				return nil, ErrInvalidToken
			}
			return entry.user, nil
		}
		ta.cache.Remove(keyHash)
	}

	token, err := ta.tokens.GetTokenByHash(ctx, keyHash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}

	if token.Expired(now) {
		return nil, ErrInvalidToken
	}

	user, err := ta.users.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load token user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}

	ta.cache.Add(keyHash, cachedResolution{
		user:     user,
		expiry:   token.ExpiresAt,
		cachedAt: now,
	})

	return user, nil
}

// Revoke deletes the token record. Revoking an unknown or already
// revoked token reports ErrTokenNotFound.
func (ta *TokenAuthority) Revoke(ctx context.Context, tokenString string) error {
	keyHash := HashToken(tokenString)
	ta.cache.Remove(keyHash)

	if err := ta.tokens.DeleteTokenByHash(ctx, keyHash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Sweep purges expired tokens and returns the number removed. Run
// periodically by the daemon's cron scheduler.
func (ta *TokenAuthority) Sweep(ctx context.Context) (int64, error) {
	purged, err := ta.tokens.DeleteExpiredTokens(ctx, ta.now())
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired tokens: %w", err)
	}
	return purged, nil
}
