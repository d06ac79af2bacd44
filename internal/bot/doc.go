// Package bot implements the command and component handlers of the
// join-code bot.
//
// Handlers are transport-agnostic: the gateway translates platform events
// into CommandInvocation and ComponentInteraction values and sends the
// returned Response back. All handlers are expected to run on the single
// dispatch goroutine (see internal/dispatch), so a session is never mutated
// concurrently.
package bot
