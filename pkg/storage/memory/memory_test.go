package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/books"
	"github.com/giabaovo/resola-code-challenge/pkg/storage"
)

func TestUserStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create and fetch", func(t *testing.T) {
		store := NewStore()

		created, err := store.CreateUser(ctx, &auth.User{Email: "reader@example.com", IsActive: true})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		byEmail, err := store.GetUserByEmail(ctx, "reader@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)

		byID, err := store.GetUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "reader@example.com", byID.Email)
	})

	t.Run("email uniqueness is case-insensitive", func(t *testing.T) {
		store := NewStore()

		_, err := store.CreateUser(ctx, &auth.User{Email: "reader@example.com"})
		require.NoError(t, err)
		_, err = store.CreateUser(ctx, &auth.User{Email: "Reader@Example.COM"})
		assert.ErrorIs(t, err, storage.ErrDuplicate)
	})

	t.Run("unknown lookups", func(t *testing.T) {
		store := NewStore()

		_, err := store.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = store.GetUserByID(ctx, 42)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("returned pointers are copies", func(t *testing.T) {
		store := NewStore()

		created, err := store.CreateUser(ctx, &auth.User{Email: "reader@example.com"})
		require.NoError(t, err)
		created.Email = "mutated@example.com"

		fetched, err := store.GetUserByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "reader@example.com", fetched.Email)
	})
}

func TestTokenStore(t *testing.T) {
	ctx := context.Background()

	mint := func(t *testing.T, userID int64) *auth.Token {
		key, keyHash, err := auth.GenerateToken()
		require.NoError(t, err)
		return &auth.Token{UserID: userID, Key: key, KeyHash: keyHash, CreatedAt: time.Now()}
	}

	t.Run("get-or-create is idempotent per user", func(t *testing.T) {
		store := NewStore()

		first, created, err := store.GetOrCreateToken(ctx, mint(t, 1))
		require.NoError(t, err)
		assert.True(t, created)

		second, created, err := store.GetOrCreateToken(ctx, mint(t, 1))
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.Key, second.Key)
	})

	t.Run("concurrent logins agree on one token", func(t *testing.T) {
		store := NewStore()

		const workers = 16
		tokens := make([]string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				token, _, err := store.GetOrCreateToken(ctx, mint(t, 1))
				require.NoError(t, err)
				tokens[i] = token.Key
			}(i)
		}
		wg.Wait()

		for _, token := range tokens[1:] {
			assert.Equal(t, tokens[0], token)
		}
	})

	t.Run("lookup and delete by hash", func(t *testing.T) {
		store := NewStore()

		minted := mint(t, 1)
		stored, _, err := store.GetOrCreateToken(ctx, minted)
		require.NoError(t, err)

		found, err := store.GetTokenByHash(ctx, stored.KeyHash)
		require.NoError(t, err)
		assert.Equal(t, stored.UserID, found.UserID)

		require.NoError(t, store.DeleteTokenByHash(ctx, stored.KeyHash))
		_, err = store.GetTokenByHash(ctx, stored.KeyHash)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, store.DeleteTokenByHash(ctx, stored.KeyHash), storage.ErrNotFound)
	})

	t.Run("delete frees the user slot", func(t *testing.T) {
		store := NewStore()

		first, _, err := store.GetOrCreateToken(ctx, mint(t, 1))
		require.NoError(t, err)
		require.NoError(t, store.DeleteTokenByHash(ctx, first.KeyHash))

		second, created, err := store.GetOrCreateToken(ctx, mint(t, 1))
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, first.Key, second.Key)
	})

	t.Run("expired sweep", func(t *testing.T) {
		store := NewStore()

		now := time.Now()
		past := now.Add(-time.Hour)
		future := now.Add(time.Hour)

		expired := mint(t, 1)
		expired.ExpiresAt = &past
		_, _, err := store.GetOrCreateToken(ctx, expired)
		require.NoError(t, err)

		live := mint(t, 2)
		live.ExpiresAt = &future
		_, _, err = store.GetOrCreateToken(ctx, live)
		require.NoError(t, err)

		purged, err := store.DeleteExpiredTokens(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), purged)

		_, err = store.GetTokenByHash(ctx, expired.KeyHash)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = store.GetTokenByHash(ctx, live.KeyHash)
		assert.NoError(t, err)
	})
}

func TestBookStore(t *testing.T) {
	ctx := context.Background()

	sample := func(title, author, date string) *books.Book {
		publishDate, _ := time.Parse("2006-01-02", date)
		return &books.Book{
			Title:       title,
			Author:      author,
			PublishDate: publishDate,
			ISBN:        "9780134190440",
			Price:       "39.99",
		}
	}

	t.Run("crud round trip", func(t *testing.T) {
		store := NewStore()

		created, err := store.CreateBook(ctx, sample("Book A", "Alan Donovan", "2015-10-26"))
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		fetched, err := store.GetBookByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Book A", fetched.Title)

		fetched.Price = "45.00"
		updated, err := store.UpdateBook(ctx, fetched)
		require.NoError(t, err)
		assert.Equal(t, "45.00", updated.Price)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)

		require.NoError(t, store.DeleteBook(ctx, created.ID))
		_, err = store.GetBookByID(ctx, created.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("update unknown id", func(t *testing.T) {
		store := NewStore()

		_, err := store.UpdateBook(ctx, sample("Ghost", "Nobody", "2020-01-01"))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("list is filtered and ordered", func(t *testing.T) {
		store := NewStore()

		_, err := store.CreateBook(ctx, sample("Book A", "Alan Donovan", "2015-10-26"))
		require.NoError(t, err)
		_, err = store.CreateBook(ctx, sample("Book B", "Rob Pike", "2012-06-01"))
		require.NoError(t, err)
		_, err = store.CreateBook(ctx, sample("Book C", "Alan Donovan", "2012-09-15"))
		require.NoError(t, err)

		all, err := store.ListBooks(ctx, books.ListFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Book A", all[0].Title)
		assert.Equal(t, "Book C", all[2].Title)

		filtered, err := store.ListBooks(ctx, books.ListFilter{Author: "Alan Donovan", Year: 2012})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, "Book C", filtered[0].Title)
	})
}
