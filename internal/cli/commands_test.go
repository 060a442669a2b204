package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chatlog/internal/chat"
	"github.com/roach88/chatlog/internal/config"
)

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	for _, k := range []string{config.EnvDatabase, config.EnvBatchSize, config.EnvLogLevel} {
		t.Setenv(k, "")
	}

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "chatlog.db")
}

// decodeData decodes a JSON CLI response and returns its data payload.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()

	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func importFixture(t *testing.T, db string) {
	t.Helper()

	out, err := runCLI(t, "import", "--db", db, filepath.Join("testdata", "messages.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "4 message(s) appended\n", out)
}

func assertGolden(t *testing.T, name, actual string) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(actual))
}

func TestSearch_TextPage(t *testing.T) {
	db := tempDB(t)
	importFixture(t, db)

	out, err := runCLI(t, "search", "tag", "--db", db, "--limit", "2")
	require.NoError(t, err)
	assertGolden(t, "search_tag_page", out)
}

func TestSearch_TextAllPages(t *testing.T) {
	db := tempDB(t)
	importFixture(t, db)

	out, err := runCLI(t, "search", "tag", "--db", db, "--limit", "2", "--all")
	require.NoError(t, err)
	assertGolden(t, "search_tag_all", out)
}

func TestSearch_Filters(t *testing.T) {
	db := tempDB(t)
	importFixture(t, db)

	tests := []struct {
		name  string
		args  []string
		texts []string
	}{
		{"kind", []string{"--kind", "party"}, []string{"tag is moving north"}},
		{"account", []string{"--account", ":Tester.1234"}, []string{"unrelated chatter", "stack on tag"}},
		{"window", []string{"--since", "1700000060", "--until", "1700000120"},
			[]string{"everyone stack on tag now", "tag is moving north"}},
		{"offset", []string{"--offset", "3"}, []string{"stack on tag"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"search", "--db", db, "--format", "json"}, tt.args...)
			out, err := runCLI(t, args...)
			require.NoError(t, err)

			var got searchOutput
			decodeData(t, out, &got)

			var texts []string
			for _, m := range got.Messages {
				texts = append(texts, m.Text)
			}
			assert.Equal(t, tt.texts, texts)
			assert.False(t, got.HasMore)
		})
	}
}

func TestSearch_InvalidKind(t *testing.T) {
	_, err := runCLI(t, "search", "--db", tempDB(t), "--kind", "guild")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSearch_LimitOutOfRange(t *testing.T) {
	for _, limit := range []string{"-1", strconv.Itoa(chat.MaxBatchSize + 1), "1099511627776", strconv.Itoa(math.MaxInt)} {
		t.Run(limit, func(t *testing.T) {
			_, err := runCLI(t, "search", "--db", tempDB(t), "--limit", limit)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}

func TestAppend_ThenSearch(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "append", "--db", db,
		"--kind", "party", "--account", ":Solo.1", "--character", "Solo",
		"--text", "anyone for fractals", "--timestamp", "1700000000")
	require.NoError(t, err)
	assert.Equal(t, "1 message(s) appended\n", out)

	out, err = runCLI(t, "search", "fractal", "--db", db, "--format", "json")
	require.NoError(t, err)

	var got searchOutput
	decodeData(t, out, &got)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, ":Solo.1", got.Messages[0].AccountName)
	assert.NotZero(t, got.Messages[0].SessionStart)
}

func TestImport_RejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, writeTestFile(path, "kind: guild\naccount_name: x\n"))

	_, err := runCLI(t, "import", "--db", tempDB(t), path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestNote_Lifecycle(t *testing.T) {
	db := tempDB(t)
	const account = ":Tester.1234"

	getNote := func() noteOutput {
		t.Helper()
		out, err := runCLI(t, "note", "get", account, "--db", db, "--format", "json")
		require.NoError(t, err)
		var got noteOutput
		decodeData(t, out, &got)
		return got
	}

	assert.Equal(t, "not_found", getNote().State)

	_, err := runCLI(t, "note", "set", account, "reliable commander", "--db", db)
	require.NoError(t, err)
	_, err = runCLI(t, "note", "color", account, "0.25", "0.5", "1", "--db", db)
	require.NoError(t, err)

	got := getNote()
	require.Equal(t, "success", got.State)
	assert.Equal(t, "reliable commander", got.Note.Text)
	require.NotNil(t, got.Note.Color)
	assert.InDelta(t, 0.5, got.Note.Color.G, 1e-6)

	// Editing the text keeps the color.
	_, err = runCLI(t, "note", "set", account, "still reliable", "--db", db)
	require.NoError(t, err)
	got = getNote()
	assert.Equal(t, "still reliable", got.Note.Text)
	assert.NotNil(t, got.Note.Color)

	_, err = runCLI(t, "note", "clear-color", account, "--db", db)
	require.NoError(t, err)
	assert.Nil(t, getNote().Note.Color)

	out, err := runCLI(t, "note", "delete", account, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "note delete: "+account+"\n", out)
	assert.Equal(t, "not_found", getNote().State)
}

func TestNote_GetText(t *testing.T) {
	db := tempDB(t)

	_, err := runCLI(t, "note", "set", ":A.1", "hello", "--db", db)
	require.NoError(t, err)

	out, err := runCLI(t, "note", "get", ":A.1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, ":A.1: hello")
	assert.Contains(t, out, "added ")
}

func TestNote_InvalidColor(t *testing.T) {
	_, err := runCLI(t, "note", "color", ":A.1", "1.5", "0", "0", "--db", tempDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMigrate_ListsMigrations(t *testing.T) {
	db := tempDB(t)

	out, err := runCLI(t, "migrate", "--db", db, "--format", "json")
	require.NoError(t, err)

	var got migrateOutput
	decodeData(t, out, &got)
	require.Len(t, got.Migrations, 4)
	assert.Equal(t, "2022-08-07-create-messages", got.Migrations[0].Name)
	assert.Equal(t, int64(0), got.Messages)

	out, err = runCLI(t, "migrate", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "4 migration(s)")
	assert.Contains(t, out, "2023-06-18-notes-color")
}

func TestConfigFile_BatchSize(t *testing.T) {
	db := tempDB(t)
	importFixture(t, db)

	cfgPath := filepath.Join(t.TempDir(), "chatlog.toml")
	require.NoError(t, writeTestFile(cfgPath, "[search]\nbatch_size = 1\n"))

	out, err := runCLI(t, "search", "--config", cfgPath, "--db", db, "--format", "json")
	require.NoError(t, err)

	var got searchOutput
	decodeData(t, out, &got)
	assert.Len(t, got.Messages, 1)
	assert.True(t, got.HasMore)
	assert.Equal(t, 1, got.NextOffset)
}

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
