// Package clientdata provides persistent caching for external API client responses.
// Entries are stored with expiration timestamps for cache-first behavior.
package clientdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/aristath/marketintel/internal/cache"
)

// Repository provides cache operations for client data.
// It satisfies cache.Store.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

var _ cache.Store = (*Repository)(nil)

type row struct {
	Data      []byte `db:"data"`
	ExpiresAt int64  `db:"expires_at"`
}

// Set saves data with expiration = now + ttl, replacing any existing entry.
func (r *Repository) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if data == nil {
		data = []byte{}
	}
	expiresAt := r.now().Add(ttl).Unix()

	query := r.db.Rebind(`
		INSERT INTO client_data (cache_key, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`)

	if _, err := r.db.ExecContext(ctx, query, key, data, expiresAt); err != nil {
		return fmt.Errorf("failed to store client data %s: %w", key, err)
	}
	return nil
}

// Get returns data regardless of expiration status.
// Expired entries are a fallback when API calls fail.
func (r *Repository) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	var rec row
	err := r.db.GetContext(ctx, &rec, r.db.Rebind("SELECT data, expires_at FROM client_data WHERE cache_key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("failed to get client data %s: %w", key, err)
	}
	return cache.Entry{Data: rec.Data, ExpiresAt: time.Unix(rec.ExpiresAt, 0)}, true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM client_data WHERE cache_key = ?"), key); err != nil {
		return fmt.Errorf("failed to delete client data %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes entries that expired more than retention ago.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := r.now().Add(-retention).Unix()

	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM client_data WHERE expires_at < ?"), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired client data: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}
