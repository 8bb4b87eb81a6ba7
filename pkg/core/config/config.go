// Package config loads runtime settings from the environment, reading a .env
// file first when one exists.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults
const (
	DefaultSaveDebounce       = 750 * time.Millisecond
	DefaultCloseCallThreshold = 5.0
)

// Config holds every runtime setting.
type Config struct {
	DatabaseURL        string        // DATABASE_URL, selects the Postgres store
	SQLitePath         string        // SQLITE_PATH, selects the SQLite store
	StoreDir           string        // SCENARIO_STORE_DIR, selects the file store
	SaveDebounce       time.Duration // SAVE_DEBOUNCE_MS
	CloseCallThreshold float64       // CLOSE_CALL_THRESHOLD
	LogLevel           slog.Level    // LOG_LEVEL: debug, info, warn, error
}

// Load reads the given .env files (default ".env"; missing files are ignored)
// and then the process environment. Variables already set in the environment
// are not overwritten by the file.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		SQLitePath:         os.Getenv("SQLITE_PATH"),
		StoreDir:           os.Getenv("SCENARIO_STORE_DIR"),
		SaveDebounce:       DefaultSaveDebounce,
		CloseCallThreshold: DefaultCloseCallThreshold,
		LogLevel:           slog.LevelInfo,
	}

	if v := strings.TrimSpace(os.Getenv("SAVE_DEBOUNCE_MS")); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return Config{}, fmt.Errorf("SAVE_DEBOUNCE_MS must be a non-negative integer, got '%s'", v)
		}
		cfg.SaveDebounce = time.Duration(ms) * time.Millisecond
	}

	if v := strings.TrimSpace(os.Getenv("CLOSE_CALL_THRESHOLD")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return Config{}, fmt.Errorf("CLOSE_CALL_THRESHOLD must be a non-negative number, got '%s'", v)
		}
		cfg.CloseCallThreshold = f
	}

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		level, err := ParseLevel(v)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(name)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: unknown level '%s'", name)
	}
	return level, nil
}

// NewLogger returns a text logger writing to w at the configured level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}
