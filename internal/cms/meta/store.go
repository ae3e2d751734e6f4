package meta

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Store provides metadata access for content records. Values are JSON-encoded
// at rest and decoded on read, so callers always see native values and
// round-trips never double-encode.
//
// A key may carry multiple values for the same record. Set replaces all of
// them; Add appends one more.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore creates a metadata store. A nil logger defaults to a no-op logger.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// GetAll returns every metadata entry for the record, keyed by metadata key,
// with values in insertion order.
func (s *Store) GetAll(ctx context.Context, recordID int64) (map[string][]interface{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM record_meta WHERE record_id = $1 ORDER BY id`,
		recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]interface{})
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		result[key] = append(result[key], decodeValue(raw))
	}
	return result, rows.Err()
}

// Get returns the first value stored under the key. The second return value
// reports whether the key exists.
func (s *Store) Get(ctx context.Context, recordID int64, key string) (interface{}, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM record_meta WHERE record_id = $1 AND key = $2 ORDER BY id LIMIT 1`,
		recordID, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read metadata key %q: %w", key, err)
	}
	return decodeValue(raw), true, nil
}

// GetInt64 reads a key holding a record id pointer. Pointers are stored as
// decimal strings so they survive JSON round-trips without float conversion.
func (s *Store) GetInt64(ctx context.Context, recordID int64, key string) (int64, bool, error) {
	v, ok, err := s.Get(ctx, recordID, key)
	if err != nil || !ok {
		return 0, false, err
	}
	str, ok := v.(string)
	if !ok {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// Set writes a single value under the key, replacing any existing values.
func (s *Store) Set(ctx context.Context, recordID int64, key string, value interface{}) error {
	raw, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("failed to encode metadata value for %q: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM record_meta WHERE record_id = $1 AND key = $2`,
		recordID, key); err != nil {
		return fmt.Errorf("failed to clear metadata key %q: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO record_meta (record_id, key, value) VALUES ($1, $2, $3)`,
		recordID, key, raw); err != nil {
		return fmt.Errorf("failed to write metadata key %q: %w", key, err)
	}
	return nil
}

// Add appends a value under the key without touching existing values.
func (s *Store) Add(ctx context.Context, recordID int64, key string, value interface{}) error {
	raw, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("failed to encode metadata value for %q: %w", key, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO record_meta (record_id, key, value) VALUES ($1, $2, $3)`,
		recordID, key, raw); err != nil {
		return fmt.Errorf("failed to append metadata key %q: %w", key, err)
	}
	return nil
}

// Delete removes every value stored under the key. Missing keys are a no-op.
func (s *Store) Delete(ctx context.Context, recordID int64, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM record_meta WHERE record_id = $1 AND key = $2`,
		recordID, key); err != nil {
		return fmt.Errorf("failed to delete metadata key %q: %w", key, err)
	}
	return nil
}

// Exists reports whether the key is present on the record.
func (s *Store) Exists(ctx context.Context, recordID int64, key string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM record_meta WHERE record_id = $1 AND key = $2`,
		recordID, key).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check metadata key %q: %w", key, err)
	}
	return count > 0, nil
}

// DeleteAllForRecord removes every metadata row for the record. Used when the
// record itself is permanently deleted.
func (s *Store) DeleteAllForRecord(ctx context.Context, recordID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM record_meta WHERE record_id = $1`,
		recordID); err != nil {
		return fmt.Errorf("failed to delete metadata for record %d: %w", recordID, err)
	}
	return nil
}

// encodeValue serializes a value for storage.
func encodeValue(value interface{}) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// decodeValue deserializes a stored value. Rows written by older tooling may
// hold bare strings; those are returned as-is.
func decodeValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}
