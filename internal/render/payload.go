package render

import (
	"fmt"
	"strings"
)

// Visibility controls who sees a response.
type Visibility int

const (
	// Private responses are shown only to the invoking user.
	Private Visibility = iota
	// Public responses are shown to the whole channel.
	Public
)

func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	return "private"
}

// Style is the colour role of a button.
type Style int

const (
	StyleSecondary Style = iota
	StylePrimary
	StyleSuccess
	StyleDanger
)

func (s Style) String() string {
	switch s {
	case StylePrimary:
		return "primary"
	case StyleSuccess:
		return "success"
	case StyleDanger:
		return "danger"
	default:
		return "secondary"
	}
}

// Button is one interactive control. Exactly one of Label or Glyph is usually set.
type Button struct {
	ID    string
	Label string
	Glyph string
	Style Style
}

// Row is a horizontal group of buttons.
type Row []Button

// Field is a titled block inside an Embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich card with a title and colour bar.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
}

// Payload is a complete message body.
type Payload struct {
	Content    string
	Embed      *Embed
	Rows       []Row
	Visibility Visibility
}

// Buttons returns every button in row order.
func (p Payload) Buttons() []Button {
	var out []Button
	for _, r := range p.Rows {
		out = append(out, r...)
	}
	return out
}

// Dump renders p as stable plain text for golden snapshots and CLI output.
func Dump(p Payload) string {
	var b strings.Builder

	fmt.Fprintf(&b, "visibility: %s\n", p.Visibility)
	if p.Content != "" {
		b.WriteString("content:\n")
		for _, line := range strings.Split(p.Content, "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	if p.Embed != nil {
		fmt.Fprintf(&b, "embed: %s #%06x\n", p.Embed.Title, p.Embed.Color)
		if p.Embed.Description != "" {
			fmt.Fprintf(&b, "  description: %s\n", p.Embed.Description)
		}
		for _, f := range p.Embed.Fields {
			fmt.Fprintf(&b, "  field %s: %s\n", f.Name, f.Value)
		}
	}
	for i, row := range p.Rows {
		parts := make([]string, len(row))
		for j, btn := range row {
			parts[j] = dumpButton(btn)
		}
		fmt.Fprintf(&b, "row %d: %s\n", i, strings.Join(parts, " | "))
	}
	return b.String()
}

func dumpButton(btn Button) string {
	parts := []string{btn.ID}
	if btn.Glyph != "" {
		parts = append(parts, btn.Glyph)
	}
	if btn.Label != "" {
		parts = append(parts, fmt.Sprintf("%q", btn.Label))
	}
	parts = append(parts, "("+btn.Style.String()+")")
	return strings.Join(parts, " ")
}
