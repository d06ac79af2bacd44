package render

import (
	"fmt"
	"strings"

	"github.com/roach88/joincode/internal/catalog"
	"github.com/roach88/joincode/internal/codestore"
	"github.com/roach88/joincode/internal/session"
)

// Layout limits of the builder message.
const (
	ButtonsPerRow = 5
	MaxTokenRows  = 4
)

// Placeholder fills unselected slots.
const Placeholder = "▢"

// Embed colours.
const (
	ColorGreen = 0x2ecc71
	ColorBlue  = 0x3498db
)

// CodeTitle is the title of the public join-code card.
const CodeTitle = "Minecraft Education Join Code"

// Slots renders glyphs padded with placeholders up to the code length.
func Slots(glyphs []string) string {
	slots := make([]string, 0, codestore.CodeLength)
	slots = append(slots, glyphs...)
	for len(slots) < codestore.CodeLength {
		slots = append(slots, Placeholder)
	}
	return strings.Join(slots, " ")
}

// Prompt is the builder message text for a selection.
func Prompt(glyphs []string) string {
	return fmt.Sprintf("**Pick %d icons (order matters):**\n%s", codestore.CodeLength, Slots(glyphs))
}

// Builder renders an in-progress session: prompt, token rows and the
// Clear/Confirm/Cancel row.
func Builder(v session.View, cat *catalog.Catalog) Payload {
	return Payload{
		Content:    Prompt(cat.Glyphs(v.Selections)),
		Rows:       builderRows(v.Handle, cat),
		Visibility: Private,
	}
}

func builderRows(handle string, cat *catalog.Catalog) []Row {
	var rows []Row
	var row Row
	for _, tok := range cat.Tokens() {
		if len(rows) == MaxTokenRows {
			break
		}
		id := Control{Handle: handle, Action: ControlPick, TokenID: tok.ID}.ID()
		if len(id) > MaxControlIDLength {
			continue
		}
		row = append(row, Button{ID: id, Glyph: tok.Glyph, Style: StyleSecondary})
		if len(row) == ButtonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 && len(rows) < MaxTokenRows {
		rows = append(rows, row)
	}

	rows = append(rows, Row{
		{ID: Control{Handle: handle, Action: ControlClear}.ID(), Label: "Clear", Style: StyleDanger},
		{ID: Control{Handle: handle, Action: ControlConfirm}.ID(), Label: "Confirm", Style: StyleSuccess},
		{ID: Control{Handle: handle, Action: ControlCancel}.ID(), Label: "Cancel", Style: StyleSecondary},
	})
	return rows
}

// Saved replaces the builder once the code has been stored.
func Saved(v session.View, cat *catalog.Catalog) Payload {
	name := v.CommunityName
	if name == "" {
		name = "this server"
	}
	return Payload{
		Content:    fmt.Sprintf("✅ Saved join code for **%s**: %s", name, Slots(cat.Glyphs(v.Selections))),
		Visibility: Private,
	}
}

// Cancelled replaces the builder when the owner cancels.
func Cancelled() Payload {
	return Payload{Content: "❌ Cancelled.", Visibility: Private}
}

// StoredCode is the public card showing a community's code.
func StoredCode(code codestore.Code, cat *catalog.Catalog) Payload {
	return Payload{
		Embed: &Embed{
			Title:       CodeTitle,
			Description: Slots(cat.Glyphs(code.Tokens())),
			Color:       ColorGreen,
		},
		Visibility: Public,
	}
}

// NotSet answers /code when nothing is stored.
func NotSet() Payload {
	return Payload{Content: "No code set yet. Ask server owner to run `/setcode`.", Visibility: Private}
}

// ResetDone confirms a removal.
func ResetDone() Payload {
	return Payload{Content: "🗑️ The join code has been reset.", Visibility: Private}
}

// NothingToReset answers /resetcode when nothing is stored.
func NothingToReset() Payload {
	return Payload{Content: "No code is set yet.", Visibility: Private}
}

// Pong answers the liveness check.
func Pong() Payload {
	return Payload{Content: "🏓 Pong! The bot is online.", Visibility: Public}
}

// NotInCommunity answers commands used outside a community (direct messages).
func NotInCommunity() Payload {
	return Payload{Content: "This command only works inside a server.", Visibility: Private}
}

// Unknown answers a command or control this bot does not recognise.
func Unknown() Payload {
	return Payload{Content: "Sorry, I don't know how to handle that.", Visibility: Private}
}

// HelpEntry describes one command in the help card.
type HelpEntry struct {
	Name        string
	Description string
}

// Help lists the available commands.
func Help(entries []HelpEntry) Payload {
	fields := make([]Field, len(entries))
	for i, e := range entries {
		fields[i] = Field{Name: "/" + e.Name, Value: e.Description}
	}
	return Payload{
		Embed: &Embed{
			Title:       "Minecraft EDU Join Code Bot — Help",
			Description: "Here are the available commands:",
			Color:       ColorBlue,
			Fields:      fields,
		},
		Visibility: Private,
	}
}

// Failure turns an error into the private message shown to the actor.
// Each failure class has its own wording; authorization failures in
// particular point at the missing permission.
func Failure(err error) Payload {
	return Payload{Content: failureText(err), Visibility: Private}
}

func failureText(err error) string {
	action := session.ActionOf(err)
	switch session.CodeOf(err) {
	case session.ErrCodeAuthorization:
		switch action {
		case session.ActionBegin:
			return "You need **Manage Server** to set the code."
		case session.ActionReset:
			return "You need **Manage Server** to reset the code."
		case session.ActionSelect:
			return "Only the person who started this can select icons."
		default:
			return fmt.Sprintf("Only the starter can %s.", action)
		}
	case session.ErrCodeCapacityExceeded:
		return fmt.Sprintf("Code already has %d icons. Press Confirm or Clear.", codestore.CodeLength)
	case session.ErrCodeIncompleteSelection:
		return fmt.Sprintf("Pick %d icons first.", codestore.CodeLength)
	case session.ErrCodeSessionClosed:
		return "This code picker has closed. Run `/setcode` to start again."
	default:
		return "Something went wrong. Please try again."
	}
}
