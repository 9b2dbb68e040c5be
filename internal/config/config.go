package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ArenaBaseURL string
	ArenaWSURL   string

	PlayerID   string
	PlayerName string

	RedisURL    string
	DatabaseURL string

	MsgTemplateDir string

	RequestTimeout   time.Duration
	WSMaxReconnect   int
	WSReconnectDelay time.Duration
	HistoryLimit     int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		RequestTimeout:   10 * time.Second,
		WSMaxReconnect:   5,
		WSReconnectDelay: time.Second,
		HistoryLimit:     10,
	}

	cfg.ArenaBaseURL = strings.TrimSpace(os.Getenv("ARENA_BASE_URL"))
	cfg.ArenaWSURL = strings.TrimSpace(os.Getenv("ARENA_WS_URL"))
	cfg.PlayerID = strings.TrimSpace(os.Getenv("PLAYER_ID"))
	cfg.PlayerName = strings.TrimSpace(os.Getenv("PLAYER_NAME"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MsgTemplateDir = strings.TrimSpace(os.Getenv("MSG_TEMPLATE_DIR"))

	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_MAX_RECONNECT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.WSMaxReconnect = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("WS_RECONNECT_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WSReconnectDelay = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}

	if cfg.ArenaBaseURL == "" {
		return nil, errors.New("ARENA_BASE_URL is required")
	}
	if cfg.ArenaWSURL == "" {
		return nil, errors.New("ARENA_WS_URL is required")
	}
	if cfg.PlayerID == "" {
		return nil, errors.New("PLAYER_ID is required")
	}

	return cfg, nil
}
