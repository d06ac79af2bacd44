package codestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCode(t *testing.T) {
	c, err := ParseCode([]string{"t3", "t7", "t1", "t3"})
	require.NoError(t, err)
	assert.Equal(t, Code{"t3", "t7", "t1", "t3"}, c)
	assert.Equal(t, []string{"t3", "t7", "t1", "t3"}, c.Tokens())
	assert.Equal(t, "t3,t7,t1,t3", c.String())
}

func TestParseCode_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
	}{
		{"empty", nil},
		{"too short", []string{"a", "b", "c"}},
		{"too long", []string{"a", "b", "c", "d", "e"}},
		{"blank token", []string{"a", " ", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCode(tt.tokens)
			assert.ErrorIs(t, err, ErrInvalidCode)
		})
	}
}

func TestNormalizeID_NFC(t *testing.T) {
	// "é" as e + combining acute vs precomposed
	decomposed := "cafe\u0301"
	precomposed := "caf\u00e9"
	assert.Equal(t, NormalizeID(precomposed), NormalizeID(decomposed))
	assert.Equal(t, "g1", NormalizeID("  g1 "))
}

func TestCode_TokensIsCopy(t *testing.T) {
	c := Code{"a", "b", "c", "d"}
	toks := c.Tokens()
	toks[0] = "z"
	assert.Equal(t, "a", c[0])
}
