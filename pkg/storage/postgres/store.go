package postgres

import (
	"database/sql"
	"time"

	"github.com/giabaovo/resola-code-challenge/pkg/observability"
)

const backendName = "postgres"

// Store implements the user, token, and book stores over PostgreSQL.
// cache and metrics may be nil.
type Store struct {
	db      *sql.DB
	cache   *Cache
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewStore creates a PostgreSQL-backed store
func NewStore(db *sql.DB, cache *Cache, logger *observability.Logger, metrics *observability.Metrics) *Store {
	return &Store{db: db, cache: cache, logger: logger, metrics: metrics}
}

// DB exposes the underlying pool for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the pool and the cache connection
func (s *Store) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	return s.db.Close()
}

// ReportPoolStats publishes connection pool gauges
func (s *Store) ReportPoolStats() {
	if s.metrics == nil {
		return
	}
	stats := s.db.Stats()
	s.metrics.DBConnectionsActive.Set(float64(stats.InUse))
	s.metrics.DBConnectionsIdle.Set(float64(stats.Idle))
}

func (s *Store) observe(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.ObserveStorage(operation, backendName, start, err)
	}
}
