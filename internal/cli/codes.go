package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/joincode/internal/catalog"
	"github.com/roach88/joincode/internal/codestore"
	"github.com/roach88/joincode/internal/config"
	"github.com/roach88/joincode/internal/render"
)

// CodeView is one stored code as printed by show and set.
type CodeView struct {
	Community string   `json:"community"`
	Tokens    []string `json:"tokens"`
	Glyphs    []string `json:"glyphs"`
}

func newCodeView(community string, code codestore.Code, cat *catalog.Catalog) CodeView {
	return CodeView{
		Community: community,
		Tokens:    code.Tokens(),
		Glyphs:    cat.Glyphs(code.Tokens()),
	}
}

func (v CodeView) text() string {
	return fmt.Sprintf("%s: %s  (%s)\n", v.Community, render.Slots(v.Glyphs), strings.Join(v.Tokens, " "))
}

// operatorEnv is what the offline code commands share: config, catalog
// and an open store.
type operatorEnv struct {
	cfg   config.Config
	cat   *catalog.Catalog
	store *codestore.Store
	out   *OutputFormatter
}

func openOperatorEnv(ctx context.Context, opts *RootOptions, cmd *cobra.Command) (*operatorEnv, error) {
	out := newFormatter(cmd, opts)
	logger := newLogger(opts, quietUnlessVerbose(opts, cmd.ErrOrStderr()))

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	out.VerboseLog("opening %s store at %s", cfg.Store.Backend, cfg.Store.Path)
	st, err := openStore(ctx, cfg.Store, cat, logger)
	if err != nil {
		return nil, err
	}
	return &operatorEnv{cfg: cfg, cat: cat, store: st, out: out}, nil
}

func (e *operatorEnv) close() {
	if err := e.store.Close(); err != nil {
		e.out.VerboseLog("error closing store: %v", err)
	}
}

// quietUnlessVerbose keeps store logs out of operator output unless asked for.
func quietUnlessVerbose(opts *RootOptions, w io.Writer) io.Writer {
	if opts.Verbose {
		return w
	}
	return io.Discard
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [community-id]",
		Short: "Print stored join codes",
		Long: `Print the join code stored for one community, or every stored code
when no community is given.

Examples:
  joincode show
  joincode show 123456789012345678 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args, cmd)
		},
	}
}

func runShow(opts *RootOptions, args []string, cmd *cobra.Command) error {
	env, err := openOperatorEnv(cmd.Context(), opts, cmd)
	if err != nil {
		return err
	}
	defer env.close()

	if len(args) == 1 {
		code, ok := env.store.Get(args[0])
		if !ok {
			return env.out.fail(ExitFailure, CodeNotFound, fmt.Sprintf("no code set for %s", args[0]), nil)
		}
		view := newCodeView(codestore.NormalizeID(args[0]), code, env.cat)
		return env.out.Success(view, view.text())
	}

	views := make([]CodeView, 0, env.store.Len())
	var b strings.Builder
	snapshot := env.store.Snapshot()
	for _, id := range env.store.Communities() {
		view := newCodeView(id, snapshot[id], env.cat)
		views = append(views, view)
		b.WriteString(view.text())
	}
	if len(views) == 0 {
		b.WriteString("No codes stored.\n")
	}
	return env.out.Success(views, b.String())
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <community-id> <t1> <t2> <t3> <t4>",
		Short: "Store a join code without Discord",
		Long: `Store a join code for a community. Every token must be listed in the
catalog; run "joincode catalog" to see the ids.

Example:
  joincode set 123456789012345678 book_and_quill fish cake fish`,
		Args:          cobra.ExactArgs(1 + codestore.CodeLength),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(rootOpts, args[0], args[1:], cmd)
		},
	}
}

func runSet(opts *RootOptions, community string, tokens []string, cmd *cobra.Command) error {
	env, err := openOperatorEnv(cmd.Context(), opts, cmd)
	if err != nil {
		return err
	}
	defer env.close()

	var unknown []string
	for _, tok := range tokens {
		if _, ok := env.cat.Lookup(tok); !ok {
			unknown = append(unknown, tok)
		}
	}
	if len(unknown) > 0 {
		return env.out.fail(ExitCommandError, CodeInvalidInput, "not in catalog: "+strings.Join(unknown, ", "), unknown)
	}

	code, err := codestore.ParseCode(tokens)
	if err != nil {
		return env.out.fail(ExitCommandError, CodeInvalidInput, err.Error(), nil)
	}
	if err := env.store.Set(cmd.Context(), community, code); err != nil {
		return WrapExitError(ExitFailure, "failed to store code", err)
	}

	view := newCodeView(codestore.NormalizeID(community), code, env.cat)
	return env.out.Success(view, "Saved "+view.text())
}

// ResetResult reports what reset did.
type ResetResult struct {
	Community string `json:"community"`
	Removed   bool   `json:"removed"`
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <community-id>",
		Short: "Remove a stored join code without Discord",
		Long: `Remove the join code stored for a community. Resetting a community
with no code is not an error.

Example:
  joincode reset 123456789012345678`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(rootOpts, args[0], cmd)
		},
	}
}

func runReset(opts *RootOptions, community string, cmd *cobra.Command) error {
	env, err := openOperatorEnv(cmd.Context(), opts, cmd)
	if err != nil {
		return err
	}
	defer env.close()

	removed, err := env.store.Remove(cmd.Context(), community)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to remove code", err)
	}

	id := codestore.NormalizeID(community)
	text := fmt.Sprintf("Removed the code for %s.\n", id)
	if !removed {
		text = fmt.Sprintf("No code is set for %s.\n", id)
	}
	return env.out.Success(ResetResult{Community: id, Removed: removed}, text)
}
