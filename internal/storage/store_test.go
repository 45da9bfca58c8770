package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func str(s string) *string { return &s }

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"kv", "saves"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_MigratesIndex(t *testing.T) {
	s := createTestStore(t)

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_kv_seq'",
	).Scan(&name)
	if err != nil {
		t.Errorf("index idx_kv_seq missing: %v", err)
	}
}

func TestApply_SetsAndDeletesAtomically(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Apply(ctx, map[string]*string{"a": str("1"), "b": str("2"), "c": str("3")})
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	save, ok, err := s.ApplySave(ctx, map[string]*string{"a": str("10"), "b": nil, "c": str("3")})
	if err != nil || !ok {
		t.Fatalf("ApplySave() = %v, %v", ok, err)
	}
	if save.Seq != 2 || save.KeysSet != 2 || save.KeysDeleted != 1 {
		t.Errorf("save = %+v, want seq=2 set=2 deleted=1", save)
	}

	got, err := s.Get(ctx, []string{"a", "b", "c", "missing"})
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	want := map[string]string{"a": "10", "c": "3"}
	if len(got) != len(want) {
		t.Fatalf("Get() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Get()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestApply_IdenticalContentIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	values := map[string]*string{"a": str("1"), "gone": nil}
	if _, ok, err := s.ApplySave(ctx, values); err != nil || !ok {
		t.Fatalf("first ApplySave() = %v, %v", ok, err)
	}
	last, ok, err := s.ApplySave(ctx, map[string]*string{"a": str("1")})
	if err != nil {
		t.Fatalf("second ApplySave() failed: %v", err)
	}
	if ok {
		t.Error("identical content should not be written again")
	}
	if last.Seq != 1 {
		t.Errorf("last.Seq = %d, want 1", last.Seq)
	}
}

func TestApply_RollsBackOnCancelledContext(t *testing.T) {
	s := createTestStore(t)

	if err := s.Apply(context.Background(), map[string]*string{"a": str("1")}); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Apply(ctx, map[string]*string{"a": str("2"), "b": str("2")}); err == nil {
		t.Fatal("Apply() with cancelled context should fail")
	}

	got, err := s.Get(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got["a"] != "1" || len(got) != 1 {
		t.Errorf("Get() = %v, want only a=1", got)
	}
}

func TestEntriesAndReset(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Apply(ctx, map[string]*string{"b": str("2"), "a": str("1")}); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	entries, err := s.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries() failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "a" || entries[1].Key != "b" {
		t.Errorf("Entries() = %+v, want a then b", entries)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}
	entries, _ = s.Entries(ctx)
	if len(entries) != 0 {
		t.Errorf("Entries() after reset = %+v", entries)
	}
	if _, ok, _ := s.LastSave(ctx); ok {
		t.Error("LastSave() after reset should report nothing")
	}
}

func TestDigest(t *testing.T) {
	d1, err := Digest(map[string]*string{"a": str("1"), "b": str("<x>")})
	if err != nil {
		t.Fatalf("Digest() failed: %v", err)
	}
	d2, _ := Digest(map[string]*string{"b": str("<x>"), "a": str("1"), "c": nil})
	if d1 != d2 {
		t.Error("digest must ignore key order and deleted keys")
	}

	// NFC: precomposed and decomposed forms hash the same.
	d3, _ := Digest(map[string]*string{"n": str("caf\u00e9")})
	d4, _ := Digest(map[string]*string{"n": str("cafe\u0301")})
	if d3 != d4 {
		t.Error("digest must normalize strings to NFC")
	}

	if len(d1) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(d1))
	}
}
