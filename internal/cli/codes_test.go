package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetShowReset(t *testing.T) {
	dir := isolate(t)
	cfg := writeConfig(t, dir, "store:\n  path: codes.json\n")

	stdout, _, err := execute(t, "--config", cfg, "set", "G1", "book_and_quill", "cake", "cake", "llama")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Saved G1: <:mc_bookandquil:1408972331212079125>")
	assert.Contains(t, stdout, "(book_and_quill cake cake llama)")

	data, err := os.ReadFile(filepath.Join(dir, "codes.json"))
	require.NoError(t, err)
	var onDisk map[string][]string
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, map[string][]string{"G1": {"book_and_quill", "cake", "cake", "llama"}}, onDisk)

	stdout, _, err = execute(t, "--config", cfg, "show", "G1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "G1: ")
	assert.Contains(t, stdout, "(book_and_quill cake cake llama)")

	stdout, _, err = execute(t, "--config", cfg, "reset", "G1")
	require.NoError(t, err)
	assert.Equal(t, "Removed the code for G1.\n", stdout)

	stdout, _, err = execute(t, "--config", cfg, "reset", "G1")
	require.NoError(t, err)
	assert.Equal(t, "No code is set for G1.\n", stdout)

	_, _, err = execute(t, "--config", cfg, "show", "G1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "no code set for G1")
}

func TestShow_AllSorted(t *testing.T) {
	dir := isolate(t)
	cfg := writeConfig(t, dir, "store:\n  path: codes.json\n")

	stdout, _, err := execute(t, "--config", cfg, "show")
	require.NoError(t, err)
	assert.Equal(t, "No codes stored.\n", stdout)

	for _, id := range []string{"G2", "G1"} {
		_, _, err := execute(t, "--config", cfg, "set", id, "apple", "apple", "apple", "apple")
		require.NoError(t, err)
	}

	stdout, _, err = execute(t, "--config", cfg, "--format", "json", "show")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []CodeView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "G1", resp.Data[0].Community)
	assert.Equal(t, "G2", resp.Data[1].Community)
	assert.Equal(t, []string{"apple", "apple", "apple", "apple"}, resp.Data[0].Tokens)
	assert.Equal(t, "<:mc_apple:1408972328036991130>", resp.Data[0].Glyphs[0])
}

func TestShow_RewritesLegacyGlyphFile(t *testing.T) {
	dir := isolate(t)
	cfg := writeConfig(t, dir, "store:\n  path: guild_codes.json\n")
	fish := "<:mc_fish:1408972336652222495>"
	cake := "<:mc_cake:1408972332642336961>"
	legacy := `{"G1": ["` + fish + `", "` + cake + `", "` + fish + `", "` + fish + `"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guild_codes.json"), []byte(legacy), 0o644))

	stdout, _, err := execute(t, "--config", cfg, "show", "G1")
	require.NoError(t, err)
	assert.Equal(t, "G1: "+fish+" "+cake+" "+fish+" "+fish+"  (fish cake fish fish)\n", stdout)

	data, err := os.ReadFile(filepath.Join(dir, "guild_codes.json"))
	require.NoError(t, err)
	var onDisk map[string][]string
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, map[string][]string{"G1": {"fish", "cake", "fish", "fish"}}, onDisk)
}

func TestSet_RejectsUnknownTokens(t *testing.T) {
	dir := isolate(t)
	cfg := writeConfig(t, dir, "store:\n  path: codes.json\n")

	stdout, _, err := execute(t, "--config", cfg, "--format", "json", "set", "G1", "apple", "diamond", "apple", "emerald")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "not in catalog: diamond, emerald", err.Error())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidInput, resp.Error.Code)

	_, statErr := os.Stat(filepath.Join(dir, "codes.json"))
	assert.True(t, os.IsNotExist(statErr), "a rejected set must not write the store")
}

func TestSet_HelpExampleRuns(t *testing.T) {
	dir := isolate(t)
	cfg := writeConfig(t, dir, "store:\n  path: codes.json\n")

	long := NewSetCommand(&RootOptions{}).Long
	i := strings.Index(long, "joincode set ")
	require.GreaterOrEqual(t, i, 0)
	example := strings.Fields(strings.SplitN(long[i:], "\n", 2)[0])

	args := append([]string{"--config", cfg}, example[1:]...)
	_, _, err := execute(t, args...)
	require.NoError(t, err, "the documented example must be accepted")
}

func TestSet_WrongArgCount(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "set", "G1", "apple", "apple")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 5 arg(s), received 3")
}

func TestSetShow_SQLite(t *testing.T) {
	dir := isolate(t)
	cfg := writeConfig(t, dir, "store:\n  backend: sqlite\n  path: codes.db\n")

	_, _, err := execute(t, "--config", cfg, "set", "G9", "map", "sign", "panda", "potion")
	require.NoError(t, err)

	stdout, _, err := execute(t, "--config", cfg, "--format", "json", "show", "G9")
	require.NoError(t, err)

	var resp struct {
		Data CodeView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, []string{"map", "sign", "panda", "potion"}, resp.Data.Tokens)
}

func TestOperatorCommands_BadConfig(t *testing.T) {
	dir := isolate(t)
	cfg := writeConfig(t, dir, "store:\n  backend: postgres\n")

	_, _, err := execute(t, "--config", cfg, "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
