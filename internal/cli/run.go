package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/joincode/internal/bot"
	"github.com/roach88/joincode/internal/dispatch"
	"github.com/roach88/joincode/internal/gateway"
	"github.com/roach88/joincode/internal/session"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	GuildID string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve the join-code commands",
		Long: `Start the bot.

The bot token is read from DISCORD_TOKEN (or JOINCODE_DISCORD_TOKEN), from a
.env file in the working directory, or from discord.token in the config file.
Without a token the command exits with code 2 before connecting.

Slash commands are registered for one guild when --guild (discord.guild_id)
is set, and globally otherwise.

Example:
  DISCORD_TOKEN=... joincode run
  joincode run --config ./joincode.yaml --guild 123456789012345678 -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.GuildID, "guild", "", "register commands in this guild only (overrides discord.guild_id)")

	return cmd
}

func runBot(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return WrapExitError(ExitCommandError, "startup configuration missing", err)
	}
	if opts.GuildID != "" {
		cfg.Discord.GuildID = opts.GuildID
	}

	cat, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "tokens", cat.Len())

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	st, err := openStore(ctx, cfg.Store, cat, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	sessions := session.NewRegistry(session.RegistryConfig{
		Committer: st,
		Handles:   session.UUIDv7Generator{},
		Timeout:   cfg.Session.Timeout,
		Retention: cfg.Session.Retention,
		Logger:    logger,
	})
	handlers := bot.New(bot.Config{
		Store:        st,
		Sessions:     sessions,
		Catalog:      cat,
		Capabilities: bot.NewManagerList(cfg.Permissions.Managers),
		Logger:       logger,
		OpenSetCode:  cfg.Permissions.OpenSetCode,
	})
	dispatcher := dispatch.New(dispatch.Config{
		Handler:       handlers,
		Sweeper:       sessions,
		SweepInterval: cfg.Session.SweepInterval,
		Logger:        logger,
	})

	gw, err := gateway.New(gateway.Config{
		Token:       cfg.Discord.Token,
		GuildID:     cfg.Discord.GuildID,
		OpenSetCode: cfg.Permissions.OpenSetCode,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create gateway", err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- dispatcher.Run(ctx) }()

	if err := gw.Open(ctx); err != nil {
		cancel()
		<-runErr
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return WrapExitError(ExitFailure, "failed to connect to Discord", err)
	}
	defer func() {
		if closeErr := gw.Close(); closeErr != nil {
			logger.Error("error closing gateway", "error", closeErr)
		}
	}()

	logger.Info("bot started", "store", cfg.Store.Path, "backend", cfg.Store.Backend, "guild", cfg.Discord.GuildID)
	fmt.Fprintln(cmd.OutOrStdout(), "Bot is online. Press Ctrl-C to stop.")

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "dispatcher error", err)
	}

	logger.Info("bot stopped gracefully",
		"processed", dispatcher.Processed(),
		"failed", dispatcher.Failed(),
	)
	return nil
}
