package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendSelection(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "file", cfg.Backend())

	cfg.Store.Driver = "SQLite"
	assert.Equal(t, "sqlite", cfg.Backend())

	cfg.Sheets.SpreadsheetID = "sheet-123"
	assert.Equal(t, "sheets", cfg.Backend())
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invite.yaml")
	yamlDoc := `
http_addr: ":9000"
store:
  driver: sqlite
  sqlite_path: /tmp/guests.db
sheets:
  tab: RSVPs
whatsapp:
  enabled: true
  hosts: Ann & Bo
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Chdir(dir)
	t.Setenv("INVITE_CONFIG", path)
	t.Setenv("PORT", "7070")
	t.Setenv("GOOGLE_SHEETS_ID", "abc")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("WHATSAPP_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/guests.db", cfg.Store.SQLitePath)
	assert.Equal(t, "RSVPs", cfg.Sheets.Tab)
	assert.Equal(t, "sheets", cfg.Backend())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.False(t, cfg.WhatsApp.Enabled)
	assert.Equal(t, "Ann & Bo", cfg.WhatsApp.Hosts)
}

func TestLoadConfigBadFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INVITE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
