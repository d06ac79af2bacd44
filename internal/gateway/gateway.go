package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/roach88/joincode/internal/bot"
	"github.com/roach88/joincode/internal/dispatch"
)

// Enqueuer accepts interactions for the single-writer loop.
// Implemented by *dispatch.Dispatcher.
type Enqueuer interface {
	Command(inv bot.CommandInvocation, reply dispatch.ReplyFunc) bool
	Component(ci bot.ComponentInteraction, reply dispatch.ReplyFunc) bool
}

// Responder sends an interaction response. Implemented by *discordgo.Session.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// GuildNamer resolves a guild id to its display name ("" when unknown).
type GuildNamer func(guildID string) string

// Config configures a Gateway.
type Config struct {
	Token       string
	GuildID     string // register commands here only; empty means global
	OpenSetCode bool
	Dispatcher  Enqueuer
	Logger      *slog.Logger
}

// Gateway owns the Discord connection.
type Gateway struct {
	session     *discordgo.Session
	dispatcher  Enqueuer
	respond     Responder
	guildName   GuildNamer
	guildID     string
	openSetCode bool
	logger      *slog.Logger
	ready       chan error
}

// ErrNotReady indicates the connection closed before Discord sent READY.
var ErrNotReady = errors.New("gateway closed before ready")

// New creates a Gateway. It does not connect; call Open.
func New(cfg Config) (*Gateway, error) {
	if cfg.Token == "" {
		return nil, errors.New("gateway: empty token")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("gateway: nil dispatcher")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds

	g := &Gateway{
		session:     s,
		dispatcher:  cfg.Dispatcher,
		respond:     s,
		guildName:   stateGuildName(s),
		guildID:     cfg.GuildID,
		openSetCode: cfg.OpenSetCode,
		logger:      logger,
		ready:       make(chan error, 1),
	}
	s.AddHandler(g.onReady)
	s.AddHandler(g.onInteraction)
	return g, nil
}

// Open connects and waits until commands are registered or ctx is done.
func (g *Gateway) Open(ctx context.Context) error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	select {
	case err := <-g.ready:
		if err != nil {
			_ = g.session.Close()
		}
		return err
	case <-ctx.Done():
		_ = g.session.Close()
		return ctx.Err()
	}
}

// Close disconnects.
func (g *Gateway) Close() error {
	return g.session.Close()
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		g.signalReady(ErrNotReady)
		return
	}
	g.logger.Info("logged in", "user", r.User.Username, "id", r.User.ID, "guilds", len(r.Guilds))

	_, err := RegisterCommands(s, r.User.ID, g.guildID, g.openSetCode, g.logger)
	g.signalReady(err)
}

// signalReady reports the first READY outcome; later reconnects only log.
func (g *Gateway) signalReady(err error) {
	if err != nil {
		g.logger.Error("command registration failed", "error", err)
	}
	select {
	case g.ready <- err:
	default:
	}
}

func (g *Gateway) onInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	g.handleInteraction(i.Interaction)
}

// handleInteraction converts and enqueues one interaction. The reply runs on
// the dispatch goroutine once the handler is done.
func (g *Gateway) handleInteraction(i *discordgo.Interaction) {
	reply := func(resp bot.Response) error {
		return g.respond.InteractionRespond(i, InteractionResponse(resp))
	}

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		inv, _ := CommandInvocation(i, g.name(i.GuildID))
		if !g.dispatcher.Command(inv, reply) {
			g.logger.Warn("dropped command: dispatcher stopped", "command", inv.Command)
		}
	case discordgo.InteractionMessageComponent:
		ci, _ := ComponentInteraction(i)
		if !g.dispatcher.Component(ci, reply) {
			g.logger.Warn("dropped component: dispatcher stopped", "custom_id", ci.CustomID)
		}
	default:
		g.logger.Debug("ignored interaction", "type", i.Type.String())
	}
}

func (g *Gateway) name(guildID string) string {
	if guildID == "" || g.guildName == nil {
		return ""
	}
	return g.guildName(guildID)
}

func stateGuildName(s *discordgo.Session) GuildNamer {
	return func(guildID string) string {
		guild, err := s.State.Guild(guildID)
		if err != nil {
			return ""
		}
		return guild.Name
	}
}
