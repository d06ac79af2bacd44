package session

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/joincode/internal/codestore"
)

// DefaultTimeout is how long an Active session may sit idle before it expires.
const DefaultTimeout = 300 * time.Second

// Action names, used in errors and logs.
const (
	ActionBegin   = "begin"
	ActionSelect  = "select"
	ActionClear   = "clear"
	ActionConfirm = "confirm"
	ActionCancel  = "cancel"
	ActionReset   = "reset"
)

// State is the lifecycle state of a Session.
type State int

const (
	StateActive State = iota
	StateConfirmed
	StateCancelled
	StateExpired
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateConfirmed:
		return "confirmed"
	case StateCancelled:
		return "cancelled"
	case StateExpired:
		return "expired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s != StateActive
}

// Committer receives the confirmed code. Implemented by *codestore.Store.
type Committer interface {
	Set(ctx context.Context, communityID string, code codestore.Code) error
}

// View is an immutable snapshot of a Session, consumed by the renderer.
type View struct {
	Handle        string
	OwnerID       string
	CommunityID   string
	CommunityName string
	Selections    []string
	State         State
	CreatedAt     time.Time
	LastActivity  time.Time
}

// Session is one in-progress code edit, owned by the user who started it.
type Session struct {
	handle        string
	ownerID       string
	communityID   string
	communityName string
	selections    []string
	state         State
	createdAt     time.Time
	lastActivity  time.Time
	closedAt      time.Time
	timeout       time.Duration
	committer     Committer
}

// Config holds the immutable parameters of a new Session.
type Config struct {
	Handle        string
	OwnerID       string
	CommunityID   string
	CommunityName string
	Timeout       time.Duration // DefaultTimeout when zero
	Committer     Committer
}

// New creates an Active session with an empty selection.
func New(cfg Config, now time.Time) *Session {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		handle:        cfg.Handle,
		ownerID:       cfg.OwnerID,
		communityID:   cfg.CommunityID,
		communityName: cfg.CommunityName,
		selections:    make([]string, 0, codestore.CodeLength),
		state:         StateActive,
		createdAt:     now,
		lastActivity:  now,
		timeout:       timeout,
		committer:     cfg.Committer,
	}
}

// Handle returns the opaque session handle.
func (s *Session) Handle() string { return s.handle }

// OwnerID returns the id of the user who started the session.
func (s *Session) OwnerID() string { return s.ownerID }

// State returns the current lifecycle state without evaluating expiry.
func (s *Session) State() State { return s.state }

// Len returns the number of selected tokens.
func (s *Session) Len() int { return len(s.selections) }

// View returns a snapshot of the session.
func (s *Session) View() View {
	sel := make([]string, len(s.selections))
	copy(sel, s.selections)
	return View{
		Handle:        s.handle,
		OwnerID:       s.ownerID,
		CommunityID:   s.communityID,
		CommunityName: s.communityName,
		Selections:    sel,
		State:         s.state,
		CreatedAt:     s.createdAt,
		LastActivity:  s.lastActivity,
	}
}

// Deadline returns the instant at which an idle Active session expires.
func (s *Session) Deadline() time.Time {
	return s.lastActivity.Add(s.timeout)
}

// Select appends tokenID to the selection.
func (s *Session) Select(actorID, tokenID string, now time.Time) error {
	if err := s.guard(actorID, ActionSelect, now); err != nil {
		return err
	}
	if len(s.selections) >= codestore.CodeLength {
		return newCapacityError(s.handle, codestore.CodeLength)
	}
	s.selections = append(s.selections, tokenID)
	s.lastActivity = now
	return nil
}

// Clear empties the selection.
func (s *Session) Clear(actorID string, now time.Time) error {
	if err := s.guard(actorID, ActionClear, now); err != nil {
		return err
	}
	s.selections = s.selections[:0]
	s.lastActivity = now
	return nil
}

// Confirm commits a complete selection and closes the session.
// When the commit fails the session stays Active so the owner can retry.
func (s *Session) Confirm(ctx context.Context, actorID string, now time.Time) (codestore.Code, error) {
	if err := s.guard(actorID, ActionConfirm, now); err != nil {
		return codestore.Code{}, err
	}
	if len(s.selections) != codestore.CodeLength {
		return codestore.Code{}, newIncompleteError(s.handle, len(s.selections), codestore.CodeLength)
	}

	code, err := codestore.ParseCode(s.selections)
	if err != nil {
		return codestore.Code{}, err
	}
	if err := s.committer.Set(ctx, s.communityID, code); err != nil {
		return codestore.Code{}, fmt.Errorf("commit session %s: %w", s.handle, err)
	}

	s.close(StateConfirmed, now)
	return code, nil
}

// Cancel closes the session without touching the store.
func (s *Session) Cancel(actorID string, now time.Time) error {
	if err := s.guard(actorID, ActionCancel, now); err != nil {
		return err
	}
	s.close(StateCancelled, now)
	return nil
}

// Expire transitions an idle Active session to Expired.
// Returns true when the transition happened.
func (s *Session) Expire(now time.Time) bool {
	if s.state != StateActive || now.Before(s.Deadline()) {
		return false
	}
	s.close(StateExpired, s.Deadline())
	return true
}

// ClosedAt returns when the session reached a terminal state (zero while Active).
func (s *Session) ClosedAt() time.Time { return s.closedAt }

// Authorize reports whether actorID may perform action now, applying the same
// owner, expiry and state checks as the operations themselves. Callers use it
// to reject a foreign actor before validating the request payload.
func (s *Session) Authorize(actorID, action string, now time.Time) error {
	return s.guard(actorID, action, now)
}

// guard applies the owner, expiry and state checks shared by all operations.
func (s *Session) guard(actorID, action string, now time.Time) error {
	if actorID != s.ownerID {
		return NewAuthorizationError(s.handle, action, actorID)
	}
	s.Expire(now)
	if s.state != StateActive {
		return NewClosedError(s.handle, action)
	}
	return nil
}

func (s *Session) close(state State, at time.Time) {
	s.state = state
	s.closedAt = at
}
