package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tieubaoca/research-assistant/config"
	"github.com/tieubaoca/research-assistant/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Provider:     config.ProviderOpenAI,
		Model:        "llama3",
		AIEndpoint:   "http://127.0.0.1:1/v1",
		OpenAIAPIKey: "dummy-key",
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			DSN:    filepath.Join(dir, "users.db"),
		},
		Tools: config.ToolsConfig{
			Save: config.SaveConfig{Dir: filepath.Join(dir, "reports")},
		},
	}
}

func TestNewApp_MissingKeyFailsBeforeOpeningStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAIAPIKey = ""

	_, err := newApp(context.Background(), cfg, logging.Nop())
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	_, statErr := os.Stat(cfg.Database.DSN)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewApp_WiresAgentTools(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agent = true

	a, err := newApp(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	defer a.Close()

	var names []string
	for _, tool := range a.tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"wikipedia", "save_to_file"}, names)
	assert.Nil(t, a.search)

	ok, err := a.users.Register(context.Background(), "alice", "a@x.io", "pw1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.PDF", "c.docx", "notes"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

	paths, err := supportedFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.PDF"), filepath.Join(dir, "b.txt")}, paths)
}
