package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/joincode/internal/catalog"
	"github.com/roach88/joincode/internal/codestore"
	"github.com/roach88/joincode/internal/render"
	"github.com/roach88/joincode/internal/session"
	"github.com/roach88/joincode/internal/testutil"
)

type fixture struct {
	handlers *Handlers
	store    *codestore.Store
	sessions *session.Registry
	clock    *testutil.FakeClock
	caps     *testutil.Capabilities
	path     string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// eighteenTokens mirrors the size of the default catalog with ids t1..t18.
func eighteenTokens(t *testing.T) *catalog.Catalog {
	t.Helper()
	toks := make([]catalog.Token, 18)
	for i := range toks {
		toks[i] = catalog.Token{ID: fmt.Sprintf("t%d", i+1), Glyph: fmt.Sprintf("<:t%d:%d>", i+1, 1000+i)}
	}
	c, err := catalog.New(toks)
	require.NoError(t, err)
	return c
}

func newFixture(t *testing.T, opts ...func(*Config)) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := discardLogger()
	path := filepath.Join(t.TempDir(), "codes.json")
	store := codestore.Load(ctx, codestore.NewFileBackend(path, logger), logger)
	t.Cleanup(func() { _ = store.Close() })

	clock := testutil.NewFakeClock()
	sessions := session.NewRegistry(session.RegistryConfig{
		Committer: store,
		Handles:   testutil.NewSequentialHandles("s"),
		Logger:    logger,
	})
	caps := testutil.NewCapabilities("admin")

	cfg := Config{
		Store:        store,
		Sessions:     sessions,
		Catalog:      eighteenTokens(t),
		Capabilities: caps,
		Clock:        clock,
		Logger:       logger,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &fixture{
		handlers: New(cfg),
		store:    store,
		sessions: sessions,
		clock:    clock,
		caps:     caps,
		path:     path,
	}
}

func (f *fixture) command(user, community, name string) Response {
	return f.handlers.Handle(context.Background(), CommandInvocation{
		InvokerID:     user,
		CommunityID:   community,
		CommunityName: "Guild " + community,
		Command:       name,
	})
}

func (f *fixture) press(user, handle, action, token string) Response {
	id := render.Control{Handle: handle, Action: action, TokenID: token}.ID()
	return f.handlers.Interact(context.Background(), ComponentInteraction{
		InvokerID:   user,
		CommunityID: "G1",
		CustomID:    id,
	})
}

func TestHandlers_ConfirmScenario(t *testing.T) {
	f := newFixture(t)

	resp := f.command("admin", "G1", CommandSetCode)
	require.NoError(t, resp.Err)
	assert.False(t, resp.Update)
	assert.Equal(t, render.Private, resp.Payload.Visibility)
	assert.Len(t, resp.Payload.Rows, 5)

	for _, tok := range []string{"t3", "t7", "t1", "t3"} {
		r := f.press("admin", "s-1", render.ControlPick, tok)
		require.NoError(t, r.Err)
		assert.True(t, r.Update)
	}

	r := f.press("admin", "s-1", render.ControlConfirm, "")
	require.NoError(t, r.Err)
	assert.True(t, r.Update)
	assert.Contains(t, r.Payload.Content, "Saved join code for **Guild G1**")
	assert.Empty(t, r.Payload.Rows)

	code, ok := f.store.Get("G1")
	require.True(t, ok)
	assert.Equal(t, codestore.Code{"t3", "t7", "t1", "t3"}, code)

	// A different user pressing the closed builder is refused as unauthorised.
	r = f.press("bob", "s-1", render.ControlPick, "t2")
	assert.True(t, session.IsAuthorizationError(r.Err))
	assert.False(t, r.Update)
	assert.Equal(t, "Only the person who started this can select icons.", r.Payload.Content)

	code, _ = f.store.Get("G1")
	assert.Equal(t, codestore.Code{"t3", "t7", "t1", "t3"}, code)
}

func TestHandlers_PersistsToDisk(t *testing.T) {
	f := newFixture(t)
	f.command("admin", "G1", CommandSetCode)
	for _, tok := range []string{"t1", "t2", "t3", "t4"} {
		f.press("admin", "s-1", render.ControlPick, tok)
	}
	require.NoError(t, f.press("admin", "s-1", render.ControlConfirm, "").Err)

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"G1"`)
	assert.Contains(t, string(data), `"t4"`)
}

func TestHandlers_OtherUserCannotSelectActiveSession(t *testing.T) {
	f := newFixture(t)
	f.command("admin", "G1", CommandSetCode)
	f.press("admin", "s-1", render.ControlPick, "t1")

	r := f.press("bob", "s-1", render.ControlPick, "t2")
	assert.True(t, session.IsAuthorizationError(r.Err))

	s, err := f.sessions.Lookup("s-1", session.ActionSelect)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, s.View().Selections)
}

func TestHandlers_CapacityAndIncomplete(t *testing.T) {
	f := newFixture(t)
	f.command("admin", "G1", CommandSetCode)

	r := f.press("admin", "s-1", render.ControlConfirm, "")
	assert.True(t, session.IsIncompleteError(r.Err))
	assert.Equal(t, "Pick 4 icons first.", r.Payload.Content)

	for _, tok := range []string{"t1", "t2", "t3", "t4"} {
		require.NoError(t, f.press("admin", "s-1", render.ControlPick, tok).Err)
	}
	r = f.press("admin", "s-1", render.ControlPick, "t5")
	assert.True(t, session.IsCapacityError(r.Err))
	assert.False(t, r.Update)

	_, ok := f.store.Get("G1")
	assert.False(t, ok)
}

func TestHandlers_ClearRerendersEmpty(t *testing.T) {
	f := newFixture(t)
	f.command("admin", "G1", CommandSetCode)
	f.press("admin", "s-1", render.ControlPick, "t1")
	f.press("admin", "s-1", render.ControlPick, "t2")

	r := f.press("admin", "s-1", render.ControlClear, "")
	require.NoError(t, r.Err)
	assert.True(t, r.Update)
	assert.Contains(t, r.Payload.Content, "▢ ▢ ▢ ▢")
}

func TestHandlers_CancelLeavesStoreAlone(t *testing.T) {
	f := newFixture(t)
	f.command("admin", "G1", CommandSetCode)
	for _, tok := range []string{"t1", "t2", "t3", "t4"} {
		f.press("admin", "s-1", render.ControlPick, tok)
	}

	r := f.press("admin", "s-1", render.ControlCancel, "")
	require.NoError(t, r.Err)
	assert.Equal(t, "❌ Cancelled.", r.Payload.Content)

	r = f.press("admin", "s-1", render.ControlConfirm, "")
	assert.True(t, session.IsClosedError(r.Err))

	_, ok := f.store.Get("G1")
	assert.False(t, ok)
}

func TestHandlers_ExpiredSession(t *testing.T) {
	f := newFixture(t)
	f.command("admin", "G1", CommandSetCode)
	f.press("admin", "s-1", render.ControlPick, "t1")

	f.clock.Advance(session.DefaultTimeout + time.Second)

	r := f.press("admin", "s-1", render.ControlPick, "t2")
	assert.True(t, session.IsClosedError(r.Err))
	assert.Equal(t, "This code picker has closed. Run `/setcode` to start again.", r.Payload.Content)
}

func TestHandlers_UnknownHandle(t *testing.T) {
	f := newFixture(t)
	r := f.press("admin", "from-a-previous-run", render.ControlClear, "")
	assert.True(t, session.IsClosedError(r.Err))
}

func TestHandlers_UnknownTokenRejected(t *testing.T) {
	f := newFixture(t)
	f.command("admin", "G1", CommandSetCode)

	r := f.press("admin", "s-1", render.ControlPick, "diamond")
	assert.ErrorIs(t, r.Err, ErrUnknownToken)
	assert.True(t, IsInvalidInput(r.Err))

	s, err := f.sessions.Lookup("s-1", session.ActionSelect)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestHandlers_ForeignUnknownTokenIsAuthorizationFailure(t *testing.T) {
	f := newFixture(t)
	f.command("admin", "G1", CommandSetCode)

	r := f.press("bob", "s-1", render.ControlPick, "diamond")
	assert.True(t, session.IsAuthorizationError(r.Err), "got %v", r.Err)
	assert.NotErrorIs(t, r.Err, ErrUnknownToken)
	assert.Equal(t, "Only the person who started this can select icons.", r.Payload.Content)
}

func TestHandlers_MalformedControl(t *testing.T) {
	f := newFixture(t)
	r := f.handlers.Interact(context.Background(), ComponentInteraction{InvokerID: "admin", CustomID: "jc:s-1:explode"})
	assert.ErrorIs(t, r.Err, render.ErrInvalidControl)
	assert.True(t, IsInvalidInput(r.Err))
	assert.Equal(t, render.Unknown(), r.Payload)
}

func TestHandlers_ResetScenario(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(context.Background(), "G1", codestore.Code{"t1", "t2", "t3", "t4"}))

	r := f.command("bob", "G1", CommandResetCode)
	assert.True(t, session.IsAuthorizationError(r.Err))
	assert.Equal(t, "You need **Manage Server** to reset the code.", r.Payload.Content)
	_, ok := f.store.Get("G1")
	assert.True(t, ok, "entry must survive an unauthorised reset")

	r = f.command("admin", "G1", CommandResetCode)
	require.NoError(t, r.Err)
	assert.Equal(t, render.ResetDone(), r.Payload)
	_, ok = f.store.Get("G1")
	assert.False(t, ok)

	r = f.command("admin", "G1", CommandResetCode)
	require.NoError(t, r.Err)
	assert.Equal(t, render.NothingToReset(), r.Payload)
}

func TestHandlers_PlatformPermissionCounts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(context.Background(), "G1", codestore.Code{"t1", "t2", "t3", "t4"}))

	r := f.handlers.Handle(context.Background(), CommandInvocation{
		InvokerID:   "owner",
		CommunityID: "G1",
		Command:     CommandResetCode,
		CanManage:   true,
	})
	require.NoError(t, r.Err)
	assert.Equal(t, render.ResetDone(), r.Payload)
}

func TestHandlers_BeginRequiresCapability(t *testing.T) {
	f := newFixture(t)

	r := f.command("bob", "G1", CommandSetCode)
	assert.True(t, session.IsAuthorizationError(r.Err))
	assert.Equal(t, "You need **Manage Server** to set the code.", r.Payload.Content)
	assert.Equal(t, 0, f.sessions.Len())

	f.caps.Grant("bob", "G1")
	r = f.command("bob", "G1", CommandSetCode)
	require.NoError(t, r.Err)
	assert.Equal(t, 1, f.sessions.Len())

	r = f.command("bob", "G2", CommandSetCode)
	assert.True(t, session.IsAuthorizationError(r.Err))
}

func TestHandlers_OpenSetCode(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.OpenSetCode = true })

	r := f.command("bob", "G1", CommandSetCode)
	require.NoError(t, r.Err)
	assert.Equal(t, 1, f.sessions.Len())

	r = f.command("bob", "G1", CommandResetCode)
	assert.True(t, session.IsAuthorizationError(r.Err))
}

func TestHandlers_Inspect(t *testing.T) {
	f := newFixture(t)

	r := f.command("bob", "G1", CommandCode)
	assert.Equal(t, render.NotSet(), r.Payload)

	require.NoError(t, f.store.Set(context.Background(), "G1", codestore.Code{"t1", "t2", "gone", "t1"}))
	r = f.command("bob", "G1", CommandCode)
	require.NotNil(t, r.Payload.Embed)
	assert.Equal(t, render.Public, r.Payload.Visibility)
	assert.Equal(t, "<:t1:1000> <:t2:1001> :gone: <:t1:1000>", r.Payload.Embed.Description)
}

func TestHandlers_InspectLegacyGlyphEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guild_codes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"G1": ["<:t3:1002>", "<:t7:1006>", "<:t1:1000>", "<:t3:1002>"]}`), 0o644))

	ctx := context.Background()
	logger := discardLogger()
	cat := eighteenTokens(t)
	store := codestore.Load(ctx, codestore.NewFileBackend(path, logger), logger)
	t.Cleanup(func() { _ = store.Close() })

	f := newFixture(t, func(c *Config) { c.Store = store; c.Catalog = cat })

	// Rendering copes with glyph values before they are rewritten.
	r := f.command("bob", "G1", CommandCode)
	require.NotNil(t, r.Payload.Embed)
	assert.Equal(t, "<:t3:1002> <:t7:1006> <:t1:1000> <:t3:1002>", r.Payload.Embed.Description)

	changed, err := store.Canonicalize(ctx, cat.Canonical)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	code, _ := store.Get("G1")
	assert.Equal(t, codestore.Code{"t3", "t7", "t1", "t3"}, code)
	r = f.command("bob", "G1", CommandCode)
	assert.Equal(t, "<:t3:1002> <:t7:1006> <:t1:1000> <:t3:1002>", r.Payload.Embed.Description)
}

func TestHandlers_OutsideCommunity(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{CommandSetCode, CommandCode, CommandResetCode} {
		r := f.command("admin", "", name)
		assert.Equal(t, render.NotInCommunity(), r.Payload, name)
	}
	assert.Equal(t, render.Pong(), f.command("admin", "", CommandPing).Payload)
}

func TestHandlers_PingAndHelp(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, render.Pong(), f.command("anyone", "G1", CommandPing).Payload)

	help := f.command("anyone", "G1", CommandHelp).Payload
	require.NotNil(t, help.Embed)
	require.Len(t, help.Embed.Fields, len(Commands))
	assert.Equal(t, "/setcode", help.Embed.Fields[0].Name)
	assert.Equal(t, "/help", help.Embed.Fields[4].Name)
}

func TestHandlers_UnknownCommand(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, render.Unknown(), f.command("admin", "G1", "dance").Payload)
}

type brokenBackend struct{}

func (brokenBackend) Load(context.Context) (map[string]codestore.Code, error) { return nil, nil }
func (brokenBackend) Persist(context.Context, map[string]codestore.Code) error {
	return fmt.Errorf("disk full")
}
func (brokenBackend) Close() error { return nil }

func TestHandlers_CommitFailureKeepsSessionActive(t *testing.T) {
	f := newFixture(t)
	logger := discardLogger()
	store := codestore.Load(context.Background(), brokenBackend{}, logger)
	sessions := session.NewRegistry(session.RegistryConfig{
		Committer: store,
		Handles:   testutil.NewSequentialHandles("s"),
		Logger:    logger,
	})
	f.handlers = New(Config{
		Store:        store,
		Sessions:     sessions,
		Catalog:      eighteenTokens(t),
		Capabilities: f.caps,
		Clock:        f.clock,
		Logger:       logger,
	})

	f.command("admin", "G1", CommandSetCode)
	for _, tok := range []string{"t1", "t2", "t3", "t4"} {
		f.press("admin", "s-1", render.ControlPick, tok)
	}
	r := f.press("admin", "s-1", render.ControlConfirm, "")
	require.Error(t, r.Err)
	assert.Equal(t, "Something went wrong. Please try again.", r.Payload.Content)

	s, err := sessions.Lookup("s-1", session.ActionConfirm)
	require.NoError(t, err)
	assert.Equal(t, session.StateActive, s.State())
}
