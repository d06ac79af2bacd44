// Package gateway connects the bot to Discord with discordgo.
//
// It translates InteractionCreate events into bot.CommandInvocation and
// bot.ComponentInteraction values, hands them to the dispatcher, and turns
// the resulting bot.Response into an interaction response. Command
// registration uses a single strategy: the configured guild when one is
// set, global otherwise.
package gateway
