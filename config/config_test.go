package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("CONFIG_PATH", path)
}

func TestLoadConfigDefaults(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":8080"
postgres:
  dsn: "postgres://localhost/wall"
storage:
  baseUrl: "http://localhost:54321/storage/v1"
chain:
  rpcUrl: "http://localhost:8545"
  contractAddress: "0xF0cBB3bbE6f1c08447bA82B61A4b314A4C22962a"
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "participants_insert", cfg.Postgres.Channel)
	assert.Equal(t, "avatars", cfg.Storage.Bucket)
	assert.Equal(t, "wall-service", cfg.Logging.Service)
	assert.Equal(t, "std", cfg.Logging.Backend)
	assert.Equal(t, "https://monument.example", cfg.Wall.SiteURL)

	assert.Equal(t, 500*time.Millisecond, cfg.FlushInterval())
	assert.Equal(t, 60*time.Second, cfg.ReceiptTimeout())
	assert.Equal(t, 2*time.Second, cfg.ReceiptPollInterval())
	assert.Equal(t, 30*time.Second, cfg.StorageTimeout())
}

func TestLoadConfigOverrides(t *testing.T) {
	writeConfig(t, `
http:
  addr: ":9090"
  allowedOrigins: ["https://wall.example"]
postgres:
  dsn: "postgres://localhost/wall"
  channel: wall_events
storage:
  baseUrl: "http://localhost:54321/storage/v1"
  timeout: 5s
chain:
  rpcUrl: "http://localhost:8545"
  contractAddress: "0xF0cBB3bbE6f1c08447bA82B61A4b314A4C22962a"
  receiptTimeout: 30s
  pollInterval: 500ms
wall:
  flushInterval: 250ms
  siteUrl: "https://wall.example"
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://wall.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "wall_events", cfg.Postgres.Channel)
	assert.Equal(t, 250*time.Millisecond, cfg.FlushInterval())
	assert.Equal(t, 30*time.Second, cfg.ReceiptTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.ReceiptPollInterval())
	assert.Equal(t, 5*time.Second, cfg.StorageTimeout())
}

func TestLoadConfigMissingRequired(t *testing.T) {
	for name, content := range map[string]string{
		"http.addr": `
postgres: {dsn: "postgres://localhost/wall"}
storage: {baseUrl: "http://x"}
chain: {rpcUrl: "http://x", contractAddress: "0x1"}
`,
		"postgres.dsn": `
http: {addr: ":8080"}
storage: {baseUrl: "http://x"}
chain: {rpcUrl: "http://x", contractAddress: "0x1"}
`,
		"chain.contractAddress": `
http: {addr: ":8080"}
postgres: {dsn: "postgres://localhost/wall"}
storage: {baseUrl: "http://x"}
chain: {rpcUrl: "http://x"}
`,
	} {
		t.Run(name, func(t *testing.T) {
			writeConfig(t, content)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
