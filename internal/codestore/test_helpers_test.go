package codestore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestFileStore opens a JSON-backed store in a temp directory.
func createTestFileStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guild_codes.json")
	s := Load(context.Background(), NewFileBackend(path, discardLogger()), discardLogger())
	t.Cleanup(func() { s.Close() })
	return s, path
}

// createTestSQLiteStore opens a SQLite-backed store in a temp directory.
func createTestSQLiteStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codes.db")
	b, err := OpenSQLite(path, discardLogger())
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	s := Load(context.Background(), b, discardLogger())
	t.Cleanup(func() { s.Close() })
	return s, path
}

func mustCode(t *testing.T, tokens ...string) Code {
	t.Helper()
	c, err := ParseCode(tokens)
	if err != nil {
		t.Fatalf("ParseCode(%v) failed: %v", tokens, err)
	}
	return c
}

// failingBackend loads fine and refuses every Persist.
type failingBackend struct {
	initial map[string]Code
	loadErr error
}

var errPersist = errors.New("disk full")

func (b *failingBackend) Load(context.Context) (map[string]Code, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	out := map[string]Code{}
	for k, v := range b.initial {
		out[k] = v
	}
	return out, nil
}

func (b *failingBackend) Persist(context.Context, map[string]Code) error { return errPersist }

func (b *failingBackend) Close() error { return nil }
