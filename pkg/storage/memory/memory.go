// Package memory provides an in-memory storage backend. It backs local
// development and tests; data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/books"
	"github.com/giabaovo/resola-code-challenge/pkg/storage"
)

// Store is a mutex-guarded in-memory implementation of the user, token,
// and book stores. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	usersByID    map[int64]*auth.User
	usersByEmail map[string]*auth.User
	nextUserID   int64

	tokensByHash map[string]*auth.Token
	tokensByUser map[int64]*auth.Token
	nextTokenID  int64

	booksByID  map[int64]*books.Book
	nextBookID int64

	now func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		usersByID:    make(map[int64]*auth.User),
		usersByEmail: make(map[string]*auth.User),
		tokensByHash: make(map[string]*auth.Token),
		tokensByUser: make(map[int64]*auth.Token),
		booksByID:    make(map[int64]*books.Book),
		now:          time.Now,
	}
}

// CreateUser persists a new account. Emails are unique
// case-insensitively.
func (s *Store) CreateUser(_ context.Context, user *auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := s.usersByEmail[key]; exists {
		return nil, storage.ErrDuplicate
	}

	s.nextUserID++
	stored := *user
	stored.ID = s.nextUserID
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt

	s.usersByID[stored.ID] = &stored
	s.usersByEmail[key] = &stored
	return copyUser(&stored), nil
}

// GetUserByEmail looks an account up by login email, case-insensitively
func (s *Store) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(user), nil
}

// GetUserByID looks an account up by id
func (s *Store) GetUserByID(_ context.Context, id int64) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyUser(user), nil
}

// GetOrCreateToken returns the user's existing token or inserts t. The
// whole check-and-insert runs under one lock so concurrent logins agree
// on a single token.
func (s *Store) GetOrCreateToken(_ context.Context, t *auth.Token) (*auth.Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tokensByUser[t.UserID]; ok {
		return copyToken(existing), false, nil
	}

	s.nextTokenID++
	stored := *t
	stored.ID = s.nextTokenID

	s.tokensByHash[stored.KeyHash] = &stored
	s.tokensByUser[stored.UserID] = &stored
	return copyToken(&stored), true, nil
}

// GetTokenByHash looks a token up by its SHA-256 digest
func (s *Store) GetTokenByHash(_ context.Context, keyHash string) (*auth.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokensByHash[keyHash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyToken(token), nil
}

// DeleteTokenByHash removes a token
func (s *Store) DeleteTokenByHash(_ context.Context, keyHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokensByHash[keyHash]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.tokensByHash, keyHash)
	delete(s.tokensByUser, token.UserID)
	return nil
}

// DeleteExpiredTokens purges tokens whose expiry is before now
func (s *Store) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for hash, token := range s.tokensByHash {
		if token.Expired(now) {
			delete(s.tokensByHash, hash)
			delete(s.tokensByUser, token.UserID)
			purged++
		}
	}
	return purged, nil
}

// CreateBook persists a new catalog entry
func (s *Store) CreateBook(_ context.Context, book *books.Book) (*books.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBookID++
	stored := *book
	stored.ID = s.nextBookID
	stored.CreatedAt = s.now()
	stored.UpdatedAt = stored.CreatedAt

	s.booksByID[stored.ID] = &stored
	return copyBook(&stored), nil
}

// GetBookByID fetches a catalog entry
func (s *Store) GetBookByID(_ context.Context, id int64) (*books.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.booksByID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyBook(book), nil
}

// UpdateBook replaces the mutable fields of an existing entry
func (s *Store) UpdateBook(_ context.Context, book *books.Book) (*books.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.booksByID[book.ID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	updated := *book
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = s.now()

	s.booksByID[updated.ID] = &updated
	return copyBook(&updated), nil
}

// DeleteBook removes a catalog entry
func (s *Store) DeleteBook(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.booksByID[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.booksByID, id)
	return nil
}

// ListBooks returns entries matching the filter, ordered by id
func (s *Store) ListBooks(_ context.Context, filter books.ListFilter) ([]*books.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*books.Book
	for _, book := range s.booksByID {
		if filter.Matches(book) {
			list = append(list, copyBook(book))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Copies keep callers from mutating shared state through returned
// pointers.

func copyUser(u *auth.User) *auth.User {
	c := *u
	return &c
}

func copyToken(t *auth.Token) *auth.Token {
	c := *t
	if t.ExpiresAt != nil {
		expiresAt := *t.ExpiresAt
		c.ExpiresAt = &expiresAt
	}
	return &c
}

func copyBook(b *books.Book) *books.Book {
	c := *b
	return &c
}
