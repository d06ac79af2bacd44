package render

import (
	"errors"
	"fmt"
	"strings"
)

// Control actions carried in button ids.
const (
	ControlPick    = "pick"
	ControlClear   = "clear"
	ControlConfirm = "confirm"
	ControlCancel  = "cancel"
)

// MaxControlIDLength is the platform limit on a button id.
const MaxControlIDLength = 100

const controlPrefix = "jc"

// ErrInvalidControl indicates a button id this bot did not produce.
var ErrInvalidControl = errors.New("invalid control id")

// Control identifies a button press: which session, which action, and for
// picks, which token. Encoded as "jc:<handle>:<action>[:<token>]".
type Control struct {
	Handle  string
	Action  string
	TokenID string
}

// ID encodes the control.
func (c Control) ID() string {
	if c.Action == ControlPick {
		return strings.Join([]string{controlPrefix, c.Handle, c.Action, c.TokenID}, ":")
	}
	return strings.Join([]string{controlPrefix, c.Handle, c.Action}, ":")
}

// ParseControl decodes a button id produced by Control.ID.
func ParseControl(id string) (Control, error) {
	parts := strings.Split(id, ":")
	if len(parts) < 3 || parts[0] != controlPrefix || parts[1] == "" {
		return Control{}, fmt.Errorf("%w: %q", ErrInvalidControl, id)
	}

	c := Control{Handle: parts[1], Action: parts[2]}
	switch c.Action {
	case ControlPick:
		if len(parts) != 4 || parts[3] == "" {
			return Control{}, fmt.Errorf("%w: pick without token: %q", ErrInvalidControl, id)
		}
		c.TokenID = parts[3]
	case ControlClear, ControlConfirm, ControlCancel:
		if len(parts) != 3 {
			return Control{}, fmt.Errorf("%w: %q", ErrInvalidControl, id)
		}
	default:
		return Control{}, fmt.Errorf("%w: unknown action %q", ErrInvalidControl, c.Action)
	}
	return c, nil
}

// IsControlID reports whether id looks like one of ours, without full validation.
func IsControlID(id string) bool {
	return strings.HasPrefix(id, controlPrefix+":")
}
