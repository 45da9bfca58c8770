package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Entry is one stored key.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Seq   int64  `json:"seq"`
}

// Save describes one applied write.
type Save struct {
	Seq         int64  `json:"seq"`
	Digest      string `json:"digest"`
	KeysSet     int    `json:"keys_set"`
	KeysDeleted int    `json:"keys_deleted"`
}

// Get returns the values of the keys that are present.
func (s *Store) Get(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv WHERE key IN (`+placeholders+`) ORDER BY key COLLATE BINARY`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("get: scan: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	return out, nil
}

// Apply sets every key with a non-nil value and deletes every key with a nil
// value in a single transaction. Applying content identical to the last save
// is a no-op.
func (s *Store) Apply(ctx context.Context, values map[string]*string) error {
	_, _, err := s.ApplySave(ctx, values)
	return err
}

// ApplySave is Apply returning the save record; ok is false when the write
// was skipped as identical to the last one.
func (s *Store) ApplySave(ctx context.Context, values map[string]*string) (save Save, ok bool, err error) {
	digest, err := Digest(values)
	if err != nil {
		return Save{}, false, fmt.Errorf("apply: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Save{}, false, fmt.Errorf("apply: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var last Save
	err = tx.QueryRowContext(ctx,
		`SELECT seq, digest FROM saves ORDER BY seq DESC LIMIT 1`,
	).Scan(&last.Seq, &last.Digest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Save{}, false, fmt.Errorf("apply: last save: %w", err)
	}
	if last.Digest == digest {
		return last, false, nil
	}

	save = Save{Seq: last.Seq + 1, Digest: digest}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := values[k]
		if v == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, k); err != nil {
				return Save{}, false, fmt.Errorf("apply: delete %q: %w", k, err)
			}
			save.KeysDeleted++
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO kv (key, value, seq) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, seq = excluded.seq
		`, k, *v, save.Seq)
		if err != nil {
			return Save{}, false, fmt.Errorf("apply: set %q: %w", k, err)
		}
		save.KeysSet++
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO saves (seq, digest, keys_set, keys_deleted) VALUES (?, ?, ?, ?)`,
		save.Seq, save.Digest, save.KeysSet, save.KeysDeleted,
	)
	if err != nil {
		return Save{}, false, fmt.Errorf("apply: record save: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Save{}, false, fmt.Errorf("apply: commit: %w", err)
	}
	return save, true, nil
}

// Entries returns every stored key in key order.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, seq FROM kv ORDER BY key COLLATE BINARY`)
	if err != nil {
		return nil, fmt.Errorf("entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.Seq); err != nil {
			return nil, fmt.Errorf("entries: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LastSave returns the most recent save; ok is false when nothing was ever
// saved.
func (s *Store) LastSave(ctx context.Context) (save Save, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT seq, digest, keys_set, keys_deleted FROM saves ORDER BY seq DESC LIMIT 1`,
	).Scan(&save.Seq, &save.Digest, &save.KeysSet, &save.KeysDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return Save{}, false, nil
	}
	if err != nil {
		return Save{}, false, fmt.Errorf("last save: %w", err)
	}
	return save, true, nil
}

// Reset deletes every key and the save history.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reset: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM kv`, `DELETE FROM saves`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reset: commit: %w", err)
	}
	return nil
}
