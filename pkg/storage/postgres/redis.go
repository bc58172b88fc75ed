package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/giabaovo/resola-code-challenge/pkg/auth"
	"github.com/giabaovo/resola-code-challenge/pkg/books"
	"github.com/giabaovo/resola-code-challenge/pkg/observability"
	"github.com/giabaovo/resola-code-challenge/pkg/storage"
)

const (
	bookCacheName  = "book"
	tokenCacheName = "token"
)

// Cache is a Redis read-through cache for catalog lookups. All
// operations are best-effort: a cache failure degrades to a database
// read, never to a request failure.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewCache connects to Redis and verifies the connection
func NewCache(cfg storage.Config, logger *observability.Logger, metrics *observability.Metrics) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}
	opts.DB = cfg.RedisDB
	opts.MaxRetries = cfg.RedisMaxRetries
	opts.PoolSize = cfg.RedisPoolSize

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Cache{client: client, ttl: cfg.CacheTTL, logger: logger, metrics: metrics}, nil
}

// Client exposes the underlying connection for health checks
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// GetBook returns a cached catalog entry, if present
func (c *Cache) GetBook(ctx context.Context, id int64) (*books.Book, bool) {
	data, err := c.client.Get(ctx, bookKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("book cache read failed")
		}
		c.countMiss(bookCacheName)
		return nil, false
	}

	var book books.Book
	if err := json.Unmarshal(data, &book); err != nil {
		c.logger.WithError(err).Warn("book cache entry corrupt")
		c.client.Del(ctx, bookKey(id))
		c.countMiss(bookCacheName)
		return nil, false
	}

	c.countHit(bookCacheName)
	return &book, true
}

// SetBook stores a catalog entry with the configured TTL
func (c *Cache) SetBook(ctx context.Context, book *books.Book) {
	data, err := json.Marshal(book)
	if err != nil {
		c.logger.WithError(err).Warn("book cache encode failed")
		return
	}
	if err := c.client.Set(ctx, bookKey(book.ID), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("book cache write failed")
	}
}

// DeleteBook invalidates a cached entry after a write
func (c *Cache) DeleteBook(ctx context.Context, id int64) {
	if err := c.client.Del(ctx, bookKey(id)).Err(); err != nil {
		c.logger.WithError(err).Warn("book cache invalidation failed")
	}
}

// cachedToken is the wire form of a token row in Redis. The opaque key
// itself is never cached; resolve only needs the owner and the expiry.
type cachedToken struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// GetToken returns a cached token row, if present. Callers check expiry
// themselves, so a stale entry can never revive an expired token.
func (c *Cache) GetToken(ctx context.Context, keyHash string) (*auth.Token, bool) {
	data, err := c.client.Get(ctx, tokenKey(keyHash)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("token cache read failed")
		}
		c.countMiss(tokenCacheName)
		return nil, false
	}

	var entry cachedToken
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.WithError(err).Warn("token cache entry corrupt")
		c.client.Del(ctx, tokenKey(keyHash))
		c.countMiss(tokenCacheName)
		return nil, false
	}

	c.countHit(tokenCacheName)
	return &auth.Token{
		ID:        entry.ID,
		UserID:    entry.UserID,
		KeyHash:   keyHash,
		ExpiresAt: entry.ExpiresAt,
		CreatedAt: entry.CreatedAt,
	}, true
}

// SetToken stores a token row with the configured TTL
func (c *Cache) SetToken(ctx context.Context, token *auth.Token) {
	data, err := json.Marshal(cachedToken{
		ID:        token.ID,
		UserID:    token.UserID,
		ExpiresAt: token.ExpiresAt,
		CreatedAt: token.CreatedAt,
	})
	if err != nil {
		c.logger.WithError(err).Warn("token cache encode failed")
		return
	}
	if err := c.client.Set(ctx, tokenKey(token.KeyHash), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("token cache write failed")
	}
}

// DeleteToken invalidates a cached token row after a revoke
func (c *Cache) DeleteToken(ctx context.Context, keyHash string) {
	if err := c.client.Del(ctx, tokenKey(keyHash)).Err(); err != nil {
		c.logger.WithError(err).Warn("token cache invalidation failed")
	}
}

func bookKey(id int64) string {
	return fmt.Sprintf("bookstore:book:%d", id)
}

func tokenKey(keyHash string) string {
	return "bookstore:token:" + keyHash
}

func (c *Cache) countHit(name string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(name).Inc()
	}
}

func (c *Cache) countMiss(name string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(name).Inc()
	}
}
