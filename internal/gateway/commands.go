package gateway

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/roach88/joincode/internal/bot"
)

// Registrar overwrites an application's command set.
// Implemented by *discordgo.Session.
type Registrar interface {
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// ApplicationCommands builds the slash command definitions. The code-writing
// commands are hidden from members without Manage Server unless openSetCode
// relaxes /setcode.
func ApplicationCommands(openSetCode bool) []*discordgo.ApplicationCommand {
	manage := int64(discordgo.PermissionManageServer)
	dm := false

	out := make([]*discordgo.ApplicationCommand, 0, len(bot.Commands))
	for _, c := range bot.Commands {
		cmd := &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
		}
		switch c.Name {
		case bot.CommandSetCode:
			if !openSetCode {
				cmd.DefaultMemberPermissions = &manage
			}
			cmd.DMPermission = &dm
		case bot.CommandResetCode:
			cmd.DefaultMemberPermissions = &manage
			cmd.DMPermission = &dm
		case bot.CommandCode:
			cmd.DMPermission = &dm
		}
		out = append(out, cmd)
	}
	return out
}

// RegisterCommands replaces the command set in guildID, or globally when
// guildID is empty. Only one of the two scopes is ever written, so members
// never see a command twice.
func RegisterCommands(r Registrar, appID, guildID string, openSetCode bool, logger *slog.Logger) ([]*discordgo.ApplicationCommand, error) {
	created, err := r.ApplicationCommandBulkOverwrite(appID, guildID, ApplicationCommands(openSetCode))
	if err != nil {
		if guildID == "" {
			return nil, fmt.Errorf("register global commands: %w", err)
		}
		return nil, fmt.Errorf("register commands in guild %s: %w", guildID, err)
	}

	scope := "global"
	if guildID != "" {
		scope = "guild"
	}
	logger.Info("commands synced", "scope", scope, "guild", guildID, "count", len(created))
	return created, nil
}
