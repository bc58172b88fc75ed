package auth

import "time"

// User represents a registered account. The email is the login key;
// there is no separate username.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never exposed
	IsActive     bool      `json:"is_active"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Token is the persisted record of an opaque bearer credential. The Key
// is the opaque value handed to the client; KeyHash is its SHA-256 and
// the unique lookup column. Exactly one token exists per user.
type Token struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Key       string     `json:"-"` // returned to the owner once per login
	KeyHash   string     `json:"-"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the token is past its expiry. Tokens without
// an expiry never expire.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
