package gateway

import (
	"regexp"

	"github.com/bwmarrin/discordgo"

	"github.com/roach88/joincode/internal/bot"
	"github.com/roach88/joincode/internal/render"
)

// manageMask is the set of permission bits that count as "may manage".
const manageMask = int64(discordgo.PermissionManageServer | discordgo.PermissionAdministrator)

var customEmoji = regexp.MustCompile(`^<(a?):([A-Za-z0-9_]+):([0-9]+)>$`)

// CanManage reports whether a member's resolved permissions include
// Manage Server or Administrator.
func CanManage(permissions int64) bool {
	return permissions&manageMask != 0
}

// invokerID returns the id of the user behind an interaction, in a guild or
// a direct message.
func invokerID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// CommandInvocation converts a slash command interaction.
func CommandInvocation(i *discordgo.Interaction, guildName string) (bot.CommandInvocation, bool) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return bot.CommandInvocation{}, false
	}
	inv := bot.CommandInvocation{
		InvokerID:     invokerID(i),
		CommunityID:   i.GuildID,
		CommunityName: guildName,
		Command:       i.ApplicationCommandData().Name,
	}
	if i.Member != nil {
		inv.CanManage = CanManage(i.Member.Permissions)
	}
	return inv, true
}

// ComponentInteraction converts a button press.
func ComponentInteraction(i *discordgo.Interaction) (bot.ComponentInteraction, bool) {
	if i == nil || i.Type != discordgo.InteractionMessageComponent {
		return bot.ComponentInteraction{}, false
	}
	return bot.ComponentInteraction{
		InvokerID:   invokerID(i),
		CommunityID: i.GuildID,
		CustomID:    i.MessageComponentData().CustomID,
	}, true
}

// InteractionResponse converts a handler response.
func InteractionResponse(resp bot.Response) *discordgo.InteractionResponse {
	p := resp.Payload
	data := &discordgo.InteractionResponseData{
		Content:    p.Content,
		Components: components(p.Rows),
	}
	if p.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{embed(p.Embed)}
	}

	typ := discordgo.InteractionResponseChannelMessageWithSource
	if resp.Update {
		// An update keeps the original message's visibility; clearing the
		// rows removes the buttons of a finished builder.
		typ = discordgo.InteractionResponseUpdateMessage
		if data.Components == nil {
			data.Components = []discordgo.MessageComponent{}
		}
		if data.Embeds == nil {
			data.Embeds = []*discordgo.MessageEmbed{}
		}
	} else if p.Visibility == render.Private {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	return &discordgo.InteractionResponse{Type: typ, Data: data}
}

func components(rows []render.Row) []discordgo.MessageComponent {
	if len(rows) == 0 {
		return nil
	}
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			btn := discordgo.Button{
				CustomID: b.ID,
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
			}
			if b.Glyph != "" {
				btn.Emoji = Emoji(b.Glyph)
			}
			buttons = append(buttons, btn)
		}
		out = append(out, discordgo.ActionsRow{Components: buttons})
	}
	return out
}

func buttonStyle(s render.Style) discordgo.ButtonStyle {
	switch s {
	case render.StylePrimary:
		return discordgo.PrimaryButton
	case render.StyleSuccess:
		return discordgo.SuccessButton
	case render.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.SecondaryButton
	}
}

func embed(e *render.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return out
}

// Emoji turns a glyph into a button emoji. Custom emoji use the
// <:name:id> (or <a:name:id>) mention form; anything else is treated as a
// unicode emoji.
func Emoji(glyph string) *discordgo.ComponentEmoji {
	if m := customEmoji.FindStringSubmatch(glyph); m != nil {
		return &discordgo.ComponentEmoji{Name: m[2], ID: m[3], Animated: m[1] == "a"}
	}
	return &discordgo.ComponentEmoji{Name: glyph}
}
