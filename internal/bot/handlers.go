package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/joincode/internal/catalog"
	"github.com/roach88/joincode/internal/codestore"
	"github.com/roach88/joincode/internal/render"
	"github.com/roach88/joincode/internal/session"
)

// Config wires the collaborators of Handlers.
type Config struct {
	Store        *codestore.Store
	Sessions     *session.Registry
	Catalog      *catalog.Catalog
	Capabilities CapabilityChecker // NoCapabilities when nil
	Clock        session.Clock     // SystemClock when nil
	Logger       *slog.Logger

	// OpenSetCode lets anyone in a community start /setcode. Reset stays
	// gated either way.
	OpenSetCode bool
}

// Handlers implements every command and component entry point.
type Handlers struct {
	store        *codestore.Store
	sessions     *session.Registry
	catalog      *catalog.Catalog
	capabilities CapabilityChecker
	clock        session.Clock
	logger       *slog.Logger
	openSetCode  bool
}

// New creates Handlers from cfg. Store, Sessions and Catalog are required.
func New(cfg Config) *Handlers {
	h := &Handlers{
		store:        cfg.Store,
		sessions:     cfg.Sessions,
		catalog:      cfg.Catalog,
		capabilities: cfg.Capabilities,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		openSetCode:  cfg.OpenSetCode,
	}
	if h.capabilities == nil {
		h.capabilities = NoCapabilities{}
	}
	if h.clock == nil {
		h.clock = session.SystemClock{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Handle routes a command invocation by name.
func (h *Handlers) Handle(ctx context.Context, inv CommandInvocation) Response {
	switch inv.Command {
	case CommandSetCode:
		return h.Begin(ctx, inv)
	case CommandCode:
		return h.Inspect(ctx, inv)
	case CommandResetCode:
		return h.Reset(ctx, inv)
	case CommandPing:
		return h.Ping(ctx, inv)
	case CommandHelp:
		return h.Help(ctx, inv)
	default:
		h.logger.Warn("unknown command", "command", inv.Command, "invoker", inv.InvokerID)
		return Response{Payload: render.Unknown()}
	}
}

// Begin starts a code-builder session for the invoker (/setcode).
func (h *Handlers) Begin(ctx context.Context, inv CommandInvocation) Response {
	if inv.CommunityID == "" {
		return Response{Payload: render.NotInCommunity()}
	}
	if !h.openSetCode && !h.canManage(ctx, inv) {
		return h.fail(session.NewAuthorizationError("", session.ActionBegin, inv.InvokerID))
	}

	s := h.sessions.Begin(inv.InvokerID, codestore.NormalizeID(inv.CommunityID), inv.CommunityName, h.clock.Now())
	h.logger.Info("code builder opened",
		"session", s.Handle(),
		"community", inv.CommunityID,
		"owner", inv.InvokerID,
	)
	return Response{Payload: render.Builder(s.View(), h.catalog)}
}

// Inspect shows the stored code for the invoker's community (/code).
func (h *Handlers) Inspect(_ context.Context, inv CommandInvocation) Response {
	if inv.CommunityID == "" {
		return Response{Payload: render.NotInCommunity()}
	}
	code, ok := h.store.Get(inv.CommunityID)
	if !ok {
		return Response{Payload: render.NotSet()}
	}
	return Response{Payload: render.StoredCode(code, h.catalog)}
}

// Reset removes the stored code (/resetcode). Requires manage capability.
func (h *Handlers) Reset(ctx context.Context, inv CommandInvocation) Response {
	if inv.CommunityID == "" {
		return Response{Payload: render.NotInCommunity()}
	}
	if !h.canManage(ctx, inv) {
		return h.fail(session.NewAuthorizationError("", session.ActionReset, inv.InvokerID))
	}

	removed, err := h.store.Remove(ctx, inv.CommunityID)
	if err != nil {
		h.logger.Error("reset failed", "community", inv.CommunityID, "error", err)
		return h.fail(err)
	}
	if !removed {
		return Response{Payload: render.NothingToReset()}
	}
	h.logger.Info("join code reset", "community", inv.CommunityID, "invoker", inv.InvokerID)
	return Response{Payload: render.ResetDone()}
}

// Ping is the liveness check. It always succeeds.
func (h *Handlers) Ping(context.Context, CommandInvocation) Response {
	return Response{Payload: render.Pong()}
}

// Help lists the commands.
func (h *Handlers) Help(context.Context, CommandInvocation) Response {
	entries := make([]render.HelpEntry, len(Commands))
	for i, c := range Commands {
		entries[i] = render.HelpEntry{Name: c.Name, Description: c.Help}
	}
	return Response{Payload: render.Help(entries)}
}

// Interact applies a button press to the session it belongs to.
//
// Successful presses update the builder message in place. Failures answer
// privately and leave the builder untouched.
func (h *Handlers) Interact(ctx context.Context, ci ComponentInteraction) Response {
	ctl, err := render.ParseControl(ci.CustomID)
	if err != nil {
		h.logger.Warn("unrecognised control", "custom_id", ci.CustomID, "error", err)
		return Response{Payload: render.Unknown(), Err: err}
	}

	action := sessionAction(ctl.Action)
	s, err := h.sessions.Lookup(ctl.Handle, action)
	if err != nil {
		return h.fail(err)
	}

	now := h.clock.Now()
	switch ctl.Action {
	case render.ControlPick:
		if err := s.Authorize(ci.InvokerID, action, now); err != nil {
			return h.fail(err)
		}
		if _, ok := h.catalog.Lookup(ctl.TokenID); !ok {
			h.logger.Warn("pick of unknown token", "session", ctl.Handle, "token", ctl.TokenID)
			return Response{Payload: render.Unknown(), Err: fmt.Errorf("%w: %q", ErrUnknownToken, ctl.TokenID)}
		}
		if err := s.Select(ci.InvokerID, ctl.TokenID, now); err != nil {
			return h.fail(err)
		}
		return Response{Payload: render.Builder(s.View(), h.catalog), Update: true}

	case render.ControlClear:
		if err := s.Clear(ci.InvokerID, now); err != nil {
			return h.fail(err)
		}
		return Response{Payload: render.Builder(s.View(), h.catalog), Update: true}

	case render.ControlConfirm:
		code, err := s.Confirm(ctx, ci.InvokerID, now)
		if err != nil {
			if session.CodeOf(err) == "" {
				h.logger.Error("commit failed", "session", s.Handle(), "error", err)
			}
			return h.fail(err)
		}
		v := s.View()
		h.logger.Info("join code saved", "session", v.Handle, "community", v.CommunityID, "code", code.String())
		return Response{Payload: render.Saved(v, h.catalog), Update: true}

	default: // render.ControlCancel
		if err := s.Cancel(ci.InvokerID, now); err != nil {
			return h.fail(err)
		}
		h.logger.Debug("code builder cancelled", "session", s.Handle())
		return Response{Payload: render.Cancelled(), Update: true}
	}
}

func (h *Handlers) canManage(ctx context.Context, inv CommandInvocation) bool {
	return inv.CanManage || h.capabilities.CanManage(ctx, inv.CommunityID, inv.InvokerID)
}

func (h *Handlers) fail(err error) Response {
	if code := session.CodeOf(err); code != "" {
		h.logger.Debug("interaction rejected", "code", code, "action", session.ActionOf(err), "error", err)
	}
	return Response{Payload: render.Failure(err), Err: err}
}

func sessionAction(control string) string {
	switch control {
	case render.ControlPick:
		return session.ActionSelect
	case render.ControlClear:
		return session.ActionClear
	case render.ControlConfirm:
		return session.ActionConfirm
	default:
		return session.ActionCancel
	}
}
