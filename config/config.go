package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBase      = "https://app.hackthebox.com/api/v4"
	DefaultClientID     = "1125543074861432864"
	DefaultPollInterval = 10 * time.Second
	DefaultHTTPTimeout  = 8 * time.Second
	DefaultIPCTimeout   = 5 * time.Second
	DefaultEnvironment  = "local"

	BackendIPC     = "ipc"
	BackendGateway = "gateway"
)

var (
	ErrMissingToken    = errors.New("HTB_API_TOKEN must be set")
	ErrMissingBotToken = errors.New("DISCORD_BOT_TOKEN must be set for the gateway backend")
)

type Config struct {
	// HTBToken is the bearer token for the HTB API. Never log it.
	HTBToken        string
	APIBase         string
	ClientID        string
	PollInterval    time.Duration
	HTTPTimeout     time.Duration
	IPCTimeout      time.Duration
	Backend         string
	DiscordBotToken string
	JaegerEndpoint  string
	Environment     string
}

// Load reads envFile (if it exists) into the process environment without
// overriding variables that are already set, then builds a Config from it.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config using lookup to resolve variables.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		HTBToken:        get("HTB_API_TOKEN", ""),
		APIBase:         get("HTB_API_BASE", DefaultAPIBase),
		ClientID:        get("CLIENT_ID", DefaultClientID),
		Backend:         get("PRESENCE_BACKEND", BackendIPC),
		DiscordBotToken: get("DISCORD_BOT_TOKEN", ""),
		JaegerEndpoint:  get("JAEGER_ENDPOINT", ""),
		Environment:     get("TRACE_ENVIRONMENT", DefaultEnvironment),
	}
	if cfg.HTBToken == "" {
		return nil, ErrMissingToken
	}

	var err error
	cfg.PollInterval, err = positiveDuration("POLL_INTERVAL", get("POLL_INTERVAL", ""), DefaultPollInterval)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout, err = positiveDuration("HTTP_TIMEOUT", get("HTTP_TIMEOUT", ""), DefaultHTTPTimeout)
	if err != nil {
		return nil, err
	}
	cfg.IPCTimeout, err = positiveDuration("IPC_TIMEOUT", get("IPC_TIMEOUT", ""), DefaultIPCTimeout)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendIPC:
	case BackendGateway:
		if cfg.DiscordBotToken == "" {
			return nil, ErrMissingBotToken
		}
	default:
		return nil, fmt.Errorf("unknown PRESENCE_BACKEND %q", cfg.Backend)
	}

	return cfg, nil
}

func positiveDuration(key, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, d)
	}
	return d, nil
}
