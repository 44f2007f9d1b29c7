package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pocketbase/dbx"
	_ "modernc.org/sqlite"
)

// SQLiteBackend is the structured fallback: a single key-value table in
// an embedded SQLite file. Rows may carry an absolute expiration; reads
// self-evict expired rows the same way the expiring cache does.
type SQLiteBackend struct {
	db *dbx.DB
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := dbx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.NewQuery(`
		CREATE TABLE IF NOT EXISTS fallback_records (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0,
			timestamp  INTEGER NOT NULL
		)
	`).Execute()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

func (b *SQLiteBackend) Probe(ctx context.Context) error {
	_, err := b.db.NewQuery("SELECT 1").WithContext(ctx).Execute()
	return err
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var row struct {
		Value     []byte `db:"value"`
		ExpiresAt int64  `db:"expires_at"`
	}

	err := b.db.Select("value", "expires_at").
		From("fallback_records").
		Where(dbx.HashExp{"key": key}).
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}

	if row.ExpiresAt > 0 && time.Now().UnixMilli() > row.ExpiresAt {
		// Lazy eviction: an expired row reads as absent.
		_ = b.Delete(ctx, key)
		return nil, ErrKeyNotFound
	}

	return row.Value, nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now().UnixMilli()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now + ttl.Milliseconds()
	}

	_, err := b.db.NewQuery(`
		INSERT INTO fallback_records (key, value, expires_at, timestamp)
		VALUES ({:key}, {:value}, {:expires_at}, {:timestamp})
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			timestamp = excluded.timestamp
	`).Bind(dbx.Params{
		"key":        key,
		"value":      value,
		"expires_at": expiresAt,
		"timestamp":  now,
	}).WithContext(ctx).Execute()
	return err
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	_, err := b.db.Delete("fallback_records", dbx.HashExp{"key": key}).
		WithContext(ctx).
		Execute()
	return err
}

func (b *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.db.Select("key").
		From("fallback_records").
		Where(dbx.Like("key", prefix).Match(false, true)).
		WithContext(ctx).
		Column(&keys)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
