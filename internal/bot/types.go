package bot

import (
	"context"
	"errors"

	"github.com/roach88/joincode/internal/render"
)

// ErrUnknownToken indicates a pick of a token that is not in the catalog.
var ErrUnknownToken = errors.New("unknown token")

// IsInvalidInput reports whether err rejects a control id or token that
// this bot could not have rendered.
func IsInvalidInput(err error) bool {
	return errors.Is(err, render.ErrInvalidControl) || errors.Is(err, ErrUnknownToken)
}

// Command names.
const (
	CommandSetCode   = "setcode"
	CommandCode      = "code"
	CommandResetCode = "resetcode"
	CommandPing      = "ping"
	CommandHelp      = "help"
)

// Command describes one slash command for registration and help.
type Command struct {
	Name        string
	Description string
	Help        string
}

// Commands is the command set, in help order.
var Commands = []Command{
	{Name: CommandSetCode, Description: "Pick and save a 4-icon join code for this server.", Help: "Pick and save a 4-icon join code for this server."},
	{Name: CommandCode, Description: "Show this server's saved join code.", Help: "Show the saved join code for this server."},
	{Name: CommandResetCode, Description: "Reset the saved join code for this server.", Help: "Clear the saved join code."},
	{Name: CommandPing, Description: "Check if the bot is alive.", Help: "Check if the bot is online."},
	{Name: CommandHelp, Description: "Show all available commands for this bot.", Help: "Show this help menu."},
}

// CommandInvocation is a slash command as delivered by the gateway.
type CommandInvocation struct {
	InvokerID     string
	CommunityID   string // empty outside a community (direct message)
	CommunityName string
	Command       string
	// CanManage is the platform's own answer to "may the invoker manage
	// this community", taken from the event payload.
	CanManage bool
}

// ComponentInteraction is a button press on a message this bot rendered.
type ComponentInteraction struct {
	InvokerID   string
	CommunityID string
	CustomID    string
}

// Response is what the gateway sends back for one event.
type Response struct {
	Payload render.Payload
	// Update replaces the message the control belongs to instead of
	// sending a new one.
	Update bool
	// Err is the failure the payload reports, nil on success.
	Err error
}

// CapabilityChecker answers whether a user may manage a community.
// It is consulted in addition to CommandInvocation.CanManage.
type CapabilityChecker interface {
	CanManage(ctx context.Context, communityID, userID string) bool
}

// NoCapabilities grants nothing beyond what the platform reports.
type NoCapabilities struct{}

// CanManage always returns false.
func (NoCapabilities) CanManage(context.Context, string, string) bool { return false }
