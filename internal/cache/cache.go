// Package cache provides a SQLite-backed response cache for the external
// metadata sources, so repeated ingests of the same work do not hammer
// the APIs.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/viper"
	_ "modernc.org/sqlite"
)

const (
	// DefaultTTL is the time-to-live for cached responses (30 days).
	DefaultTTL = 720 * time.Hour
	// NegativeTTL is the shorter TTL for cached "not found" responses.
	NegativeTTL = 168 * time.Hour
)

// FetchFunc fetches data from an external source on cache miss.
type FetchFunc[T any] func() (T, error)

// DB manages the cache database connection.
type DB struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

var (
	global     *DB
	globalOnce sync.Once
)

// Global returns the singleton cache database, opening it on first use at
// the path named by the cache.dbfile config key.
func Global() (*DB, error) {
	var initErr error
	globalOnce.Do(func() {
		path := viper.GetString("cache.dbfile")
		if path == "" {
			path = "./cache.db"
		}
		global, initErr = Open(path)
	})
	if initErr != nil {
		return nil, initErr
	}
	return global, nil
}

// ResetGlobal closes and clears the singleton so the next Global call
// reopens it. For tests.
func ResetGlobal() error {
	var err error
	if global != nil {
		err = global.Close()
	}
	global = nil
	globalOnce = sync.Once{}
	return err
}

// Open opens the cache database at path and ensures all tables exist.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("connecting to cache database: %w", err), closeErr)
	}

	c := &DB{db: db, path: path}
	for _, schema := range allSchemas {
		if _, err := db.Exec(schema); err != nil {
			closeErr := db.Close()
			return nil, errors.Join(fmt.Errorf("creating cache table: %w", err), closeErr)
		}
	}
	return c, nil
}

// Close closes the database connection.
func (c *DB) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached value for key in table, if present and younger
// than ttl.
func (c *DB) Get(table, key string, ttl time.Duration) (string, bool, error) {
	if !validTableNames[table] {
		return "", false, fmt.Errorf("invalid cache table name: %s", table)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	query := fmt.Sprintf("SELECT data, cached_at FROM %s WHERE cache_key = ?", table)

	var data string
	var cachedAt time.Time
	err := c.db.QueryRow(query, key).Scan(&data, &cachedAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying cache: %w", err)
	}

	if age := time.Now().UTC().Sub(cachedAt); age > ttl {
		slog.Debug("Cache entry expired", "table", table, "key", key, "age", age)
		return "", false, nil
	}
	return data, true, nil
}

// Set stores a value for key in table, replacing any previous entry.
func (c *DB) Set(table, key, data string) error {
	if !validTableNames[table] {
		return fmt.Errorf("invalid cache table name: %s", table)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (cache_key, data, cached_at) VALUES (?, ?, CURRENT_TIMESTAMP)", table)
	if _, err := c.db.Exec(query, key, data); err != nil {
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

// Invalidate deletes every entry in the named table and returns the
// number of rows removed.
func (c *DB) Invalidate(table string) (int64, error) {
	if !validTableNames[table] {
		return 0, fmt.Errorf("invalid cache table name: %s", table)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s", table))
	if err != nil {
		return 0, fmt.Errorf("clearing cache table: %w", err)
	}
	return res.RowsAffected()
}

// configuredTTL reads cache.ttl from config, falling back to DefaultTTL.
func configuredTTL() time.Duration {
	s := viper.GetString("cache.ttl")
	if s == "" {
		return DefaultTTL
	}
	ttl, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("Invalid cache TTL, using default", "ttl", s, "error", err)
		return DefaultTTL
	}
	return ttl
}

// GetOrFetch returns the cached value for key, or calls fetch and caches
// the result. The second return reports whether the value came from
// cache. A broken cache degrades to a direct fetch.
func GetOrFetch[T any](table, key string, fetch FetchFunc[T]) (T, bool, error) {
	return GetOrFetchWithPolicy(table, key, fetch, nil)
}

// GetOrFetchWithPolicy is GetOrFetch with control over whether a fetched
// value should be stored. A nil shouldCache stores everything.
func GetOrFetchWithPolicy[T any](table, key string, fetch FetchFunc[T], shouldCache func(T) bool) (T, bool, error) {
	var zero T

	db, err := Global()
	if err != nil {
		slog.Warn("Cache unavailable, fetching directly", "error", err)
		data, fetchErr := fetch()
		return data, false, fetchErr
	}

	cached, hit, err := db.Get(table, key, configuredTTL())
	if err == nil && hit {
		var result T
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			slog.Debug("Cache hit", "table", table, "key", key)
			return result, true, nil
		}
		slog.Warn("Corrupt cache entry, refetching", "table", table, "key", key)
	}

	slog.Debug("Cache miss", "table", table, "key", key)
	data, err := fetch()
	if err != nil {
		return zero, false, err
	}

	if shouldCache != nil && !shouldCache(data) {
		return data, false, nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to marshal value for caching", "table", table, "key", key, "error", err)
		return data, false, nil
	}
	if err := db.Set(table, key, string(encoded)); err != nil {
		// A failed store never fails the fetch.
		slog.Warn("Failed to store cache entry", "table", table, "key", key, "error", err)
	}
	return data, false, nil
}
