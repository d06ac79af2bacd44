package codestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrCorrupt indicates backing data that could not be decoded.
// Backends wrap it; the Store recovers from it by starting empty.
var ErrCorrupt = errors.New("backing data corrupt")

// Backend persists the full community → code mapping.
//
// Load returns an empty map (not an error) when nothing has been persisted
// yet. Persist must be all-or-nothing: a concurrent or later Load observes
// either the previous mapping or the new one.
type Backend interface {
	Load(ctx context.Context) (map[string]Code, error)
	Persist(ctx context.Context, codes map[string]Code) error
	Close() error
}

// Store is the process-wide owner of stored join codes.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialised by a single writer lock, so parallel dispatch cannot lose
// updates.
type Store struct {
	mu      sync.RWMutex
	codes   map[string]Code
	backend Backend
	logger  *slog.Logger
}

// Load reads the backing storage and returns a ready Store.
// It never fails: unreadable or corrupt data is logged and treated as empty.
func Load(ctx context.Context, backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{backend: backend, logger: logger, codes: map[string]Code{}}

	codes, err := backend.Load(ctx)
	switch {
	case err == nil:
		s.codes = codes
	case errors.Is(err, ErrCorrupt):
		logger.Warn("code store corrupt, starting empty", "error", err)
	default:
		logger.Warn("code store unreadable, starting empty", "error", err)
	}
	if s.codes == nil {
		s.codes = map[string]Code{}
	}

	logger.Info("code store loaded", "communities", len(s.codes))
	return s
}

// Get returns the code stored for a community.
func (s *Store) Get(communityID string) (Code, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.codes[NormalizeID(communityID)]
	return c, ok
}

// Set stores code for a community, replacing any previous entry.
// The mapping is persisted before Set returns.
func (s *Store) Set(ctx context.Context, communityID string, code Code) error {
	key := NormalizeID(communityID)
	if key == "" {
		return ErrInvalidCommunity
	}
	code, err := ParseCode(code[:])
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneLocked()
	next[key] = code
	if err := s.backend.Persist(ctx, next); err != nil {
		return fmt.Errorf("persist code for %s: %w", key, err)
	}
	s.codes = next

	s.logger.Info("join code stored", "community", key, "code", code.String())
	return nil
}

// Remove deletes the entry for a community.
// Returns false without touching storage when there is no entry.
func (s *Store) Remove(ctx context.Context, communityID string) (bool, error) {
	key := NormalizeID(communityID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[key]; !ok {
		return false, nil
	}

	next := s.cloneLocked()
	delete(next, key)
	if err := s.backend.Persist(ctx, next); err != nil {
		return false, fmt.Errorf("persist removal for %s: %w", key, err)
	}
	s.codes = next

	s.logger.Info("join code removed", "community", key)
	return true, nil
}

// Canonicalize rewrites every stored token through canon and persists the
// result when anything changed. It returns the number of communities whose
// code was rewritten. Files written by earlier deployments stored display
// glyphs rather than token ids; canon maps those back to ids.
func (s *Store) Canonicalize(ctx context.Context, canon func(string) string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cloneLocked()
	changed := 0
	for key, code := range next {
		rewritten := code
		for i, tok := range code {
			if id := NormalizeID(canon(tok)); id != "" {
				rewritten[i] = id
			}
		}
		if rewritten != code {
			next[key] = rewritten
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := s.backend.Persist(ctx, next); err != nil {
		return 0, fmt.Errorf("persist canonical codes: %w", err)
	}
	s.codes = next

	s.logger.Info("stored codes canonicalized", "communities", changed)
	return changed, nil
}

// Len returns the number of stored codes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codes)
}

// Communities returns the stored community ids in sorted order.
func (s *Store) Communities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.codes))
	for id := range s.codes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns a copy of the full mapping.
func (s *Store) Snapshot() map[string]Code {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneLocked()
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) cloneLocked() map[string]Code {
	out := make(map[string]Code, len(s.codes)+1)
	for k, v := range s.codes {
		out[k] = v
	}
	return out
}

// decodeEntries keeps the well-formed entries of a raw mapping.
// Dropped entries are reported at debug level.
func decodeEntries(raw map[string][]string, logger *slog.Logger) map[string]Code {
	codes := make(map[string]Code, len(raw))
	for id, tokens := range raw {
		key := NormalizeID(id)
		if key == "" {
			logger.Debug("dropping entry with empty community id")
			continue
		}
		code, err := ParseCode(tokens)
		if err != nil {
			logger.Debug("dropping malformed entry", "community", key, "error", err)
			continue
		}
		codes[key] = code
	}
	return codes
}
