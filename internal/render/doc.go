// Package render turns session and store state into display payloads.
//
// Every function here is pure: the same input always yields the same
// Payload, which makes the output suitable for golden snapshots (see Dump).
// Payloads are platform-neutral; the gateway translates them into Discord
// messages, embeds and buttons.
//
// # Layout
//
// The builder message shows the selected glyphs followed by placeholder
// slots, then up to MaxTokenRows rows of ButtonsPerRow token buttons and a
// final row with Clear, Confirm and Cancel. Catalog entries beyond
// MaxTokenRows*ButtonsPerRow are not shown.
package render
