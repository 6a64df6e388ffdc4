package statestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Record is a flat field-name to value mapping. Values are encoded on
// write and decoded on read according to the bound schema's field types.
type Record map[string]any

// Stored is a record annotated with the physical key it was written to.
type Stored struct {
	Key    string
	Fields Record
}

// ValidationError reports a record that failed schema validation. The
// write is aborted atomically; no partial field set is persisted.
type ValidationError struct {
	Schema string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema %s: field %q: %s", e.Schema, e.Field, e.Reason)
}

// IsValidation returns true if the error is a schema validation failure.
// Validation failures are non-retryable: the record itself is wrong.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Store provides schema-bound hash operations against Redis. All keys are
// namespaced as {prefix}:{schema_name}:{local_key} with empty segments
// elided. The store is safe for concurrent use; per-key atomicity is
// Redis's own — callers needing cross-key ordering must enforce it
// themselves.
type Store struct {
	rdb    *redis.Client
	schema *Schema
	prefix string
}

// New creates a store binding the given schema and namespace prefix to a
// Redis client. The prefix may be empty.
func New(rdb *redis.Client, schema *Schema, prefix string) *Store {
	return &Store{rdb: rdb, schema: schema, prefix: prefix}
}

// Close closes the underlying Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Key resolves a local key to its physical form:
// {prefix}:{schema_name}:{local_key}. Empty segments are elided, so
// Key("") is the store's namespace root.
func (s *Store) Key(localKey string) string {
	parts := make([]string, 0, 3)
	if s.prefix != "" {
		parts = append(parts, s.prefix)
	}
	parts = append(parts, s.schema.Name())
	if localKey != "" {
		parts = append(parts, localKey)
	}
	return strings.Join(parts, ":")
}

// Save validates the record against the bound schema and writes it to the
// resolved physical key as a full replacement of any prior field set.
// Returns a *ValidationError (and leaves prior state untouched) if the
// record is invalid. On success returns the stored record annotated with
// its physical key.
func (s *Store) Save(ctx context.Context, localKey string, rec Record) (*Stored, error) {
	return s.SaveRaw(ctx, s.Key(localKey), rec)
}

// SaveRaw is Save with the physical key given verbatim, bypassing key
// construction. Validation still applies.
func (s *Store) SaveRaw(ctx context.Context, key string, rec Record) (*Stored, error) {
	if err := s.schema.Validate(rec); err != nil {
		return nil, err
	}

	hash := make(map[string]any, len(rec))
	for field, value := range rec {
		encoded, err := encodeField(s.schema.fields[field].Type, value)
		if err != nil {
			// Validate already checked encodability; reaching here means
			// the record was mutated concurrently.
			return nil, &ValidationError{Schema: s.schema.Name(), Field: field, Reason: err.Error()}
		}
		hash[field] = encoded
	}

	// Full replacement: drop the old field set before writing the new one,
	// so removed fields do not linger.
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(hash) > 0 {
		pipe.HSet(ctx, key, hash)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to write record to Redis: %w", err)
	}

	return &Stored{Key: key, Fields: rec}, nil
}

// Fetch reads the record at the resolved physical key, decoding each field
// per its declared type. A key that was never written returns an empty
// record — absence is not an error.
func (s *Store) Fetch(ctx context.Context, localKey string) (Record, error) {
	return s.FetchRaw(ctx, s.Key(localKey))
}

// FetchRaw is Fetch with the physical key given verbatim.
func (s *Store) FetchRaw(ctx context.Context, key string) (Record, error) {
	hash, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read record from Redis: %w", err)
	}

	rec := make(Record, len(hash))
	for field, raw := range hash {
		value, err := s.schema.decodeField(field, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode record at %s: %w", key, err)
		}
		rec[field] = value
	}

	return rec, nil
}

// FetchAll scans for physical keys containing the given substring and
// returns a mapping from physical key to decoded record. Returns an empty
// mapping when nothing matches.
//
// This is a SCAN over the whole keyspace, not an indexed lookup: cost is
// proportional to the total number of keys on the server. Acceptable at
// this store's scale.
func (s *Store) FetchAll(ctx context.Context, substr string) (map[string]Record, error) {
	pattern := "*" + substr + "*"
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()

	records := make(map[string]Record)
	for iter.Next(ctx) {
		key := iter.Val()
		rec, err := s.FetchRaw(ctx, key)
		if err != nil {
			return nil, err
		}
		records[key] = rec
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}

	return records, nil
}

// ExpireAt sets a relative TTL on the resolved physical key. A missing
// key is a safe no-op.
func (s *Store) ExpireAt(ctx context.Context, localKey string, ttl time.Duration) error {
	if err := s.rdb.Expire(ctx, s.Key(localKey), ttl).Err(); err != nil {
		return fmt.Errorf("failed to set TTL: %w", err)
	}
	return nil
}

// Delete removes every physical key containing the resolved key as a
// substring and returns the number of keys removed. Delete with an empty
// local key clears the store's whole namespace. Zero means nothing
// matched — not an error.
func (s *Store) Delete(ctx context.Context, localKey string) (int64, error) {
	pattern := "*" + s.Key(localKey) + "*"
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan keys for delete: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	deleted, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete keys: %w", err)
	}
	return deleted, nil
}
