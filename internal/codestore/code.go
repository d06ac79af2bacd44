package codestore

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CodeLength is the number of tokens in a join code.
const CodeLength = 4

// ErrInvalidCode indicates a token sequence that cannot form a Code.
var ErrInvalidCode = errors.New("invalid join code")

// ErrInvalidCommunity indicates an empty community identifier.
var ErrInvalidCommunity = errors.New("invalid community id")

// Code is an ordered, fixed-length sequence of token identifiers.
// Duplicates are allowed; order is significant.
type Code [CodeLength]string

// ParseCode converts tokens into a Code.
// Returns ErrInvalidCode unless there are exactly CodeLength non-empty tokens.
func ParseCode(tokens []string) (Code, error) {
	var c Code
	if len(tokens) != CodeLength {
		return c, fmt.Errorf("%w: have %d tokens, need %d", ErrInvalidCode, len(tokens), CodeLength)
	}
	for i, tok := range tokens {
		tok = NormalizeID(tok)
		if tok == "" {
			return Code{}, fmt.Errorf("%w: token %d is empty", ErrInvalidCode, i)
		}
		c[i] = tok
	}
	return c, nil
}

// Tokens returns the code as a fresh slice.
func (c Code) Tokens() []string {
	out := make([]string, CodeLength)
	copy(out, c[:])
	return out
}

// String joins the tokens with commas.
func (c Code) String() string {
	return strings.Join(c[:], ",")
}

// NormalizeID trims and NFC-normalises an identifier so that visually
// identical ids map to the same key.
func NormalizeID(id string) string {
	return norm.NFC.String(strings.TrimSpace(id))
}
