package codestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileBackend stores the mapping as indented JSON:
//
//	{
//	  "1408947324524298353": ["fish", "cake", "apple", "fish"]
//	}
//
// Writes go to a temp file in the same directory which is then renamed over
// the canonical path, so readers see the old file or the new one, never a
// truncated one.
type FileBackend struct {
	path   string
	logger *slog.Logger
}

// NewFileBackend returns a backend for the JSON file at path.
// The file does not need to exist yet.
func NewFileBackend(path string, logger *slog.Logger) *FileBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileBackend{path: path, logger: logger}
}

// Load reads and decodes the file.
// A missing file yields an empty map; undecodable content wraps ErrCorrupt.
func (b *FileBackend) Load(_ context.Context) (map[string]Code, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Code{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]Code{}, nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCorrupt, b.path, err)
	}

	raw := make(map[string][]string, len(entries))
	for id, msg := range entries {
		var tokens []string
		if err := json.Unmarshal(msg, &tokens); err != nil {
			b.logger.Debug("dropping undecodable entry", "community", id, "error", err)
			continue
		}
		raw[id] = tokens
	}
	return decodeEntries(raw, b.logger), nil
}

// Persist serialises codes and atomically replaces the file.
func (b *FileBackend) Persist(_ context.Context, codes map[string]Code) error {
	raw := make(map[string][]string, len(codes))
	for id, c := range codes {
		raw[id] = c.Tokens()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("encode codes: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	return nil
}

// Close is a no-op; the file is only open during Load and Persist.
func (b *FileBackend) Close() error {
	return nil
}
