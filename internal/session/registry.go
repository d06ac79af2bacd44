package session

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultRetention is how long a closed session is remembered after it closes.
const DefaultRetention = 15 * time.Minute

// Clock supplies the current time. Tests use testutil.FakeClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Committer Committer
	Handles   HandleGenerator // UUIDv7Generator when nil
	Timeout   time.Duration   // DefaultTimeout when zero
	Retention time.Duration   // DefaultRetention when zero
	Logger    *slog.Logger
}

// Registry owns every live session and routes handles to them.
//
// Closed sessions stay registered for the retention window so that a late
// press is still answered with the right failure: AUTHORIZATION_FAILURE for
// someone else, SESSION_CLOSED for the owner. Unknown handles (swept, or
// created by a previous process) are SESSION_CLOSED.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	committer Committer
	handles   HandleGenerator
	timeout   time.Duration
	retention time.Duration
	logger    *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	r := &Registry{
		sessions:  make(map[string]*Session),
		committer: cfg.Committer,
		handles:   cfg.Handles,
		timeout:   cfg.Timeout,
		retention: cfg.Retention,
		logger:    cfg.Logger,
	}
	if r.handles == nil {
		r.handles = UUIDv7Generator{}
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.retention <= 0 {
		r.retention = DefaultRetention
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Begin creates and registers a new Active session.
func (r *Registry) Begin(ownerID, communityID, communityName string, now time.Time) *Session {
	s := New(Config{
		Handle:        r.handles.Generate(),
		OwnerID:       ownerID,
		CommunityID:   communityID,
		CommunityName: communityName,
		Timeout:       r.timeout,
		Committer:     r.committer,
	}, now)

	r.mu.Lock()
	r.sessions[s.handle] = s
	r.mu.Unlock()

	r.logger.Debug("session started", "session", s.handle, "owner", ownerID, "community", communityID)
	return s
}

// Lookup returns the session for handle.
// Unknown handles yield a SESSION_CLOSED error for action.
func (r *Registry) Lookup(handle, action string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[handle]
	if !ok {
		return nil, NewClosedError(handle, action)
	}
	return s, nil
}

// Len returns the number of registered sessions, including closed ones.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Active returns the number of sessions still in StateActive.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.state == StateActive {
			n++
		}
	}
	return n
}

// Sweep expires idle sessions and forgets sessions closed longer than the
// retention window. Returns the number of expired and dropped sessions.
func (r *Registry) Sweep(now time.Time) (expired, dropped int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for handle, s := range r.sessions {
		if s.Expire(now) {
			expired++
			r.logger.Debug("session expired", "session", handle, "owner", s.ownerID)
		}
		if s.state.Terminal() && !now.Before(s.closedAt.Add(r.retention)) {
			delete(r.sessions, handle)
			dropped++
		}
	}
	return expired, dropped
}
