package gateway

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/joincode/internal/bot"
	"github.com/roach88/joincode/internal/render"
)

func commandInteraction(name string, perms int64) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "G1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}, Permissions: perms},
		Data:    discordgo.ApplicationCommandInteractionData{Name: name},
	}
}

func componentInteraction(customID string) *discordgo.Interaction {
	return &discordgo.Interaction{
		Type:    discordgo.InteractionMessageComponent,
		GuildID: "G1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
		Data:    discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: discordgo.ButtonComponent},
	}
}

func TestCanManage(t *testing.T) {
	assert.True(t, CanManage(discordgo.PermissionManageServer))
	assert.True(t, CanManage(discordgo.PermissionAdministrator))
	assert.True(t, CanManage(discordgo.PermissionManageServer|discordgo.PermissionSendMessages))
	assert.False(t, CanManage(discordgo.PermissionSendMessages))
	assert.False(t, CanManage(0))
}

func TestCommandInvocation(t *testing.T) {
	inv, ok := CommandInvocation(commandInteraction("setcode", discordgo.PermissionManageServer), "Crafters")
	require.True(t, ok)
	assert.Equal(t, bot.CommandInvocation{
		InvokerID:     "u1",
		CommunityID:   "G1",
		CommunityName: "Crafters",
		Command:       "setcode",
		CanManage:     true,
	}, inv)

	_, ok = CommandInvocation(componentInteraction("jc:s:clear"), "")
	assert.False(t, ok)
}

func TestCommandInvocation_DirectMessage(t *testing.T) {
	i := &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		User: &discordgo.User{ID: "u9"},
		Data: discordgo.ApplicationCommandInteractionData{Name: "code"},
	}
	inv, ok := CommandInvocation(i, "")
	require.True(t, ok)
	assert.Equal(t, "u9", inv.InvokerID)
	assert.Empty(t, inv.CommunityID)
	assert.False(t, inv.CanManage)
}

func TestComponentInteraction(t *testing.T) {
	ci, ok := ComponentInteraction(componentInteraction("jc:s-1:pick:fish"))
	require.True(t, ok)
	assert.Equal(t, bot.ComponentInteraction{InvokerID: "u1", CommunityID: "G1", CustomID: "jc:s-1:pick:fish"}, ci)

	_, ok = ComponentInteraction(commandInteraction("ping", 0))
	assert.False(t, ok)
}

func TestEmoji(t *testing.T) {
	assert.Equal(t, &discordgo.ComponentEmoji{Name: "mc_fish", ID: "1408972336652222495"}, Emoji("<:mc_fish:1408972336652222495>"))
	assert.Equal(t, &discordgo.ComponentEmoji{Name: "party", ID: "12", Animated: true}, Emoji("<a:party:12>"))
	assert.Equal(t, &discordgo.ComponentEmoji{Name: "🌞"}, Emoji("🌞"))
}

func TestInteractionResponse_PrivateBuilder(t *testing.T) {
	p := render.Payload{
		Content: "pick",
		Rows: []render.Row{
			{{ID: "jc:s:pick:fish", Glyph: "<:mc_fish:1>"}},
			{{ID: "jc:s:clear", Label: "Clear", Style: render.StyleDanger}, {ID: "jc:s:confirm", Label: "Confirm", Style: render.StyleSuccess}},
		},
		Visibility: render.Private,
	}
	got := InteractionResponse(bot.Response{Payload: p})

	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, got.Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, got.Data.Flags)
	assert.Equal(t, "pick", got.Data.Content)
	require.Len(t, got.Data.Components, 2)

	row, ok := got.Data.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	btn, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	assert.Equal(t, "jc:s:pick:fish", btn.CustomID)
	assert.Equal(t, discordgo.SecondaryButton, btn.Style)
	assert.Equal(t, &discordgo.ComponentEmoji{Name: "mc_fish", ID: "1"}, btn.Emoji)

	row = got.Data.Components[1].(discordgo.ActionsRow)
	clearBtn := row.Components[0].(discordgo.Button)
	assert.Equal(t, "Clear", clearBtn.Label)
	assert.Equal(t, discordgo.DangerButton, clearBtn.Style)
	assert.Nil(t, clearBtn.Emoji)
	assert.Equal(t, discordgo.SuccessButton, row.Components[1].(discordgo.Button).Style)
}

func TestInteractionResponse_PublicEmbed(t *testing.T) {
	p := render.Payload{
		Embed: &render.Embed{
			Title:       render.CodeTitle,
			Description: "a b c d",
			Color:       render.ColorGreen,
			Fields:      []render.Field{{Name: "/code", Value: "show"}},
		},
		Visibility: render.Public,
	}
	got := InteractionResponse(bot.Response{Payload: p})

	assert.Equal(t, discordgo.MessageFlags(0), got.Data.Flags)
	require.Len(t, got.Data.Embeds, 1)
	assert.Equal(t, render.CodeTitle, got.Data.Embeds[0].Title)
	assert.Equal(t, render.ColorGreen, got.Data.Embeds[0].Color)
	assert.Equal(t, "/code", got.Data.Embeds[0].Fields[0].Name)
	assert.Nil(t, got.Data.Components)
}

func TestInteractionResponse_UpdateClearsButtons(t *testing.T) {
	got := InteractionResponse(bot.Response{Payload: render.Cancelled(), Update: true})

	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, got.Type)
	assert.Equal(t, "❌ Cancelled.", got.Data.Content)
	assert.NotNil(t, got.Data.Components)
	assert.Empty(t, got.Data.Components)
	assert.Equal(t, discordgo.MessageFlags(0), got.Data.Flags)
}
