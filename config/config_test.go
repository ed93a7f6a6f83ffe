package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"HTB_API_TOKEN": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.HTBToken)
	assert.Equal(t, DefaultAPIBase, cfg.APIBase)
	assert.Equal(t, DefaultClientID, cfg.ClientID)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, DefaultIPCTimeout, cfg.IPCTimeout)
	assert.Equal(t, DefaultEnvironment, cfg.Environment)
	assert.Equal(t, BackendIPC, cfg.Backend)
	assert.Empty(t, cfg.JaegerEndpoint)
}

func TestFromLookupMissingToken(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{}))
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = FromLookup(lookupFrom(map[string]string{"HTB_API_TOKEN": ""}))
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestFromLookupOverrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"HTB_API_TOKEN":     "secret",
		"HTB_API_BASE":      "http://localhost:8080/api",
		"CLIENT_ID":         "42",
		"POLL_INTERVAL":     "30s",
		"HTTP_TIMEOUT":      "2s",
		"IPC_TIMEOUT":       "1s",
		"TRACE_ENVIRONMENT": "prod",
		"PRESENCE_BACKEND":  "gateway",
		"DISCORD_BOT_TOKEN": "bot",
		"JAEGER_ENDPOINT":   "http://localhost:14268/api/traces",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.APIBase)
	assert.Equal(t, "42", cfg.ClientID)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Second, cfg.IPCTimeout)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, BackendGateway, cfg.Backend)
	assert.Equal(t, "bot", cfg.DiscordBotToken)
	assert.Equal(t, "http://localhost:14268/api/traces", cfg.JaegerEndpoint)
}

func TestFromLookupMalformed(t *testing.T) {
	tests := map[string]map[string]string{
		"bad interval":     {"POLL_INTERVAL": "soon"},
		"zero interval":    {"POLL_INTERVAL": "0s"},
		"negative timeout": {"HTTP_TIMEOUT": "-1s"},
		"bad ipc timeout":  {"IPC_TIMEOUT": "5"},
		"unknown backend":  {"PRESENCE_BACKEND": "carrier-pigeon"},
		"gateway no token": {"PRESENCE_BACKEND": "gateway"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			env["HTB_API_TOKEN"] = "secret"
			_, err := FromLookup(lookupFrom(env))
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTB_API_TOKEN=from-file\nPOLL_INTERVAL=15s\n"), 0o600))

	t.Cleanup(func() {
		os.Unsetenv("HTB_API_TOKEN")
		os.Unsetenv("POLL_INTERVAL")
	})
	os.Unsetenv("HTB_API_TOKEN")
	os.Unsetenv("POLL_INTERVAL")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.HTBToken)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTB_API_TOKEN=from-file\n"), 0o600))

	t.Setenv("HTB_API_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.HTBToken)
}

func TestLoadMissingFileFallsBackToEnvironment(t *testing.T) {
	t.Setenv("HTB_API_TOKEN", "from-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.HTBToken)
}
