package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrConflict is returned by CompareAndSwap when the stored value is not the
// one the caller read.
var ErrConflict = errors.New("store: value changed concurrently")

// KVStore is a namespaced string key-value table. Namespaces keep several
// consoles or test cases sharing one database file apart.
type KVStore struct {
	db        *sql.DB
	namespace string
}

func NewKVStore(db *sql.DB, namespace string) *KVStore {
	return &KVStore{db: db, namespace: namespace}
}

// Get returns the value for key and whether it exists.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`, s.namespace, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// CompareAndSwap writes next only if the current value equals *prev, or if
// prev is nil and the key is absent. Otherwise it returns ErrConflict.
func (s *KVStore) CompareAndSwap(ctx context.Context, key string, prev *string, next string) error {
	var (
		result sql.Result
		err    error
	)
	if prev == nil {
		result, err = s.db.ExecContext(ctx,
			`INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(namespace, key) DO NOTHING`,
			s.namespace, key, next,
		)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE kv SET value = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE namespace = ? AND key = ? AND value = ?`,
			next, s.namespace, key, *prev,
		)
	}
	if err != nil {
		return fmt.Errorf("compare and swap %q: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE namespace = ? AND key = ?`, s.namespace, key,
	)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
