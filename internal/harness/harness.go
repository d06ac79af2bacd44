package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/joincode/internal/bot"
	"github.com/roach88/joincode/internal/catalog"
	"github.com/roach88/joincode/internal/codestore"
	"github.com/roach88/joincode/internal/render"
	"github.com/roach88/joincode/internal/session"
	"github.com/roach88/joincode/internal/testutil"
)

// Harness holds the live objects of one scenario run.
type Harness struct {
	scenario *Scenario
	path     string
	catalog  *catalog.Catalog
	clock    *testutil.FakeClock
	handles  *recordingHandles
	logger   *slog.Logger
	timeout  time.Duration

	store    *codestore.Store
	sessions *session.Registry
	handlers *bot.Handlers
}

// recordingHandles remembers the last handle it generated so steps can
// address "the builder that was just opened".
type recordingHandles struct {
	inner session.HandleGenerator
	last  string
}

func (g *recordingHandles) Generate() string {
	g.last = g.inner.Generate()
	return g.last
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh JSON store in a temporary directory
// that is removed afterwards. An error is returned only when the scenario
// cannot be set up; step and assertion failures are reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "joincode-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	h, err := newHarness(scenario, filepath.Join(dir, "codes.json"))
	if err != nil {
		return nil, err
	}
	defer h.close()

	ctx := context.Background()
	if err := h.seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.execute(ctx, i+1, step, result)
	}

	for code, tokens := range h.store.Snapshot() {
		result.Codes[code] = tokens.Tokens()
	}
	result.ActiveSessions = h.sessions.Active()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(s *Scenario, path string) (*Harness, error) {
	cat, err := scenarioCatalog(s)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}

	var timeout time.Duration
	if s.Timeout != "" {
		timeout, _ = time.ParseDuration(s.Timeout)
	}

	h := &Harness{
		scenario: s,
		path:     path,
		catalog:  cat,
		clock:    testutil.NewFakeClock(),
		handles:  &recordingHandles{inner: testutil.NewSequentialHandles("session")},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:  timeout,
	}
	h.boot()
	return h, nil
}

// boot (re)creates everything a process start would: the store is loaded
// from disk and the session registry starts empty.
func (h *Harness) boot() {
	ctx := context.Background()
	h.store = codestore.Load(ctx, codestore.NewFileBackend(h.path, h.logger), h.logger)
	if _, err := h.store.Canonicalize(ctx, h.catalog.Canonical); err != nil {
		h.logger.Warn("could not rewrite legacy codes", "error", err)
	}
	h.sessions = session.NewRegistry(session.RegistryConfig{
		Committer: h.store,
		Handles:   h.handles,
		Timeout:   h.timeout,
		Logger:    h.logger,
	})
	h.handlers = bot.New(bot.Config{
		Store:        h.store,
		Sessions:     h.sessions,
		Catalog:      h.catalog,
		Capabilities: bot.NewManagerList(h.scenario.Managers),
		Clock:        h.clock,
		Logger:       h.logger,
		OpenSetCode:  h.scenario.OpenSetCode,
	})
}

func (h *Harness) close() {
	if h.store != nil {
		_ = h.store.Close()
	}
}

func (h *Harness) seed(ctx context.Context) error {
	for community, tokens := range h.scenario.Seed {
		code, err := codestore.ParseCode(tokens)
		if err != nil {
			return fmt.Errorf("seed %s: %w", community, err)
		}
		if err := h.store.Set(ctx, community, code); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, n int, step Step, result *Result) {
	ev := TraceEvent{Step: n, Kind: step.Kind(), User: step.User}

	switch ev.Kind {
	case KindCommand:
		community := orDefault(step.Community, DefaultCommunity)
		ev.Input = fmt.Sprintf("/%s in %s", step.Command, community)
		resp := h.handlers.Handle(ctx, bot.CommandInvocation{
			InvokerID:     step.User,
			CommunityID:   community,
			CommunityName: "Guild " + community,
			Command:       step.Command,
			CanManage:     step.CanManage,
		})
		h.recordResponse(&ev, resp)

	case KindPress:
		id := step.CustomID
		if id == "" {
			handle := orDefault(step.Session, h.handles.last)
			id = render.Control{Handle: handle, Action: step.Press, TokenID: step.Token}.ID()
		}
		ev.Input = id
		resp := h.handlers.Interact(ctx, bot.ComponentInteraction{
			InvokerID:   step.User,
			CommunityID: orDefault(step.Community, DefaultCommunity),
			CustomID:    id,
		})
		h.recordResponse(&ev, resp)

	case KindAdvance:
		d, _ := time.ParseDuration(step.Advance)
		h.clock.Advance(d)
		ev.Input = step.Advance

	case KindSweep:
		expired, dropped := h.sessions.Sweep(h.clock.Now())
		ev.Input = fmt.Sprintf("expired=%d dropped=%d", expired, dropped)

	case KindRestart:
		h.close()
		h.boot()
		ev.Input = fmt.Sprintf("reloaded %d codes", h.store.Len())
	}

	result.Trace = append(result.Trace, ev)
	if step.Expect != nil {
		for _, msg := range checkExpect(ev, step.Expect) {
			result.AddError(fmt.Sprintf("step %d: %s", n, msg))
		}
	}
}

func (h *Harness) recordResponse(ev *TraceEvent, resp bot.Response) {
	ev.Outcome = outcome(resp.Err)
	ev.Update = resp.Update
	ev.Output = render.Dump(resp.Payload)
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := session.CodeOf(err); code != "" {
		return string(code)
	}
	if bot.IsInvalidInput(err) {
		return OutcomeInvalid
	}
	return OutcomeError
}

func checkExpect(ev TraceEvent, want *Expect) []string {
	var errs []string
	if want.Outcome != "" && want.Outcome != ev.Outcome {
		errs = append(errs, fmt.Sprintf("expected outcome %s, got %s", want.Outcome, ev.Outcome))
	}
	if want.Update != nil && *want.Update != ev.Update {
		errs = append(errs, fmt.Sprintf("expected update=%t, got %t", *want.Update, ev.Update))
	}
	if want.Contains != "" && !strings.Contains(ev.Output, want.Contains) {
		errs = append(errs, fmt.Sprintf("expected reply to contain %q, got:\n%s", want.Contains, ev.Output))
	}
	if want.Visibility != "" && !strings.HasPrefix(ev.Output, "visibility: "+want.Visibility+"\n") {
		errs = append(errs, fmt.Sprintf("expected %s reply", want.Visibility))
	}
	return errs
}

func scenarioCatalog(s *Scenario) (*catalog.Catalog, error) {
	if len(s.Catalog) > 0 {
		return catalog.New(s.Catalog)
	}
	if s.CatalogSize > 0 {
		toks := make([]catalog.Token, s.CatalogSize)
		for i := range toks {
			id := fmt.Sprintf("t%d", i+1)
			toks[i] = catalog.Token{ID: id, Glyph: "[" + id + "]"}
		}
		return catalog.New(toks)
	}
	return catalog.Default()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
