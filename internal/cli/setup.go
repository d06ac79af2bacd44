package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/joincode/internal/catalog"
	"github.com/roach88/joincode/internal/codestore"
	"github.com/roach88/joincode/internal/config"
)

// newLogger returns the process logger: text to w, DEBUG with --verbose.
func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(config.Options{ConfigFile: opts.ConfigFile})
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// loadCatalog returns the configured catalog, or the built-in one when no
// path is set.
func loadCatalog(path string) (*catalog.Catalog, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if path == "" {
		cat, err = catalog.Default()
	} else {
		cat, err = catalog.Load(path)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	return cat, nil
}

// openStore opens the configured backend, loads the code mapping and rewrites
// legacy glyph-valued entries to token ids.
func openStore(ctx context.Context, cfg config.StoreConfig, cat *catalog.Catalog, logger *slog.Logger) (*codestore.Store, error) {
	var backend codestore.Backend
	switch cfg.Backend {
	case config.BackendSQLite:
		b, err := codestore.OpenSQLite(cfg.Path, logger)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open store", err)
		}
		backend = b
	case config.BackendJSON:
		backend = codestore.NewFileBackend(cfg.Path, logger)
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown store backend %q", cfg.Backend))
	}
	st := codestore.Load(ctx, backend, logger)
	if _, err := st.Canonicalize(ctx, cat.Canonical); err != nil {
		logger.Warn("could not rewrite legacy codes", "error", err)
	}
	return st, nil
}
