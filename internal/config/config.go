package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Channel transport
	SocketURL      string
	HeartbeatEvery time.Duration
	ReconnectMin   time.Duration
	ReconnectMax   time.Duration

	// REST API
	APIBaseURL string

	// Initially selected sport
	Sport string

	// Pregame browse at startup; empty disables it
	PregameFilter string

	// Subscription limits
	LimitsPath string

	// Raw message archive
	ArchiveEnabled bool
	ArchivePath    string

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		SocketURL:      envStr("LIVEFEED_SOCKET_URL", "ws://localhost:4100/socket"),
		HeartbeatEvery: time.Duration(envInt("LIVEFEED_HEARTBEAT_SEC", 30)) * time.Second,
		ReconnectMin:   time.Duration(envInt("LIVEFEED_RECONNECT_MIN_SEC", 1)) * time.Second,
		ReconnectMax:   time.Duration(envInt("LIVEFEED_RECONNECT_MAX_SEC", 30)) * time.Second,

		APIBaseURL: envStr("LIVEFEED_API_URL", "http://localhost:4100"),

		Sport: envStr("LIVEFEED_SPORT", "soccer"),

		PregameFilter: envStr("LIVEFEED_PREGAME_FILTER", ""),

		LimitsPath: envStr("LIVEFEED_LIMITS_PATH", "internal/config/sub_limits.yaml"),

		ArchiveEnabled: envStr("LIVEFEED_ARCHIVE_ENABLED", "false") == "true",
		ArchivePath:    envStr("LIVEFEED_ARCHIVE_PATH", "data/feed_archive.db"),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
