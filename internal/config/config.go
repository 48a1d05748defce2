package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the console's settings.
type Config struct {
	APIBase    string
	EventsPath string
	BranchID   string
	PageSize   int
	Strict     bool
	Debounce   Debounce
	Log        Log
	Metrics    Metrics
}

// Debounce holds the invalidation quiet period of each screen.
type Debounce struct {
	CustomerDetail time.Duration
	CustomerList   time.Duration
	PaymentHistory time.Duration
}

// Log configures the zap log file.
type Log struct {
	File  string
	Level string
}

// Metrics configures the Prometheus endpoint. An empty Bind disables it.
type Metrics struct {
	Bind string
}

const (
	defaultConfigPath = "~/.config/gymsync/config.toml"
	defaultAPIBase    = "127.0.0.1:8080"
	defaultEventsPath = "/api/events"
	defaultPageSize   = 25
	maxPageSize       = 200
	defaultLogFile    = "~/.local/state/gymsync/gymsync.log"
	defaultLogLevel   = "info"

	defaultDetailDebounce   = 500 * time.Millisecond
	defaultListDebounce     = time.Second
	defaultPaymentsDebounce = time.Second
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	return Config{
		APIBase:    defaultAPIBase,
		EventsPath: defaultEventsPath,
		PageSize:   defaultPageSize,
		Debounce: Debounce{
			CustomerDetail: defaultDetailDebounce,
			CustomerList:   defaultListDebounce,
			PaymentHistory: defaultPaymentsDebounce,
		},
		Log: Log{
			File:  mustExpand(defaultLogFile),
			Level: defaultLogLevel,
		},
	}
}

type rawConfig struct {
	APIBase    string `toml:"api_base"`
	EventsPath string `toml:"events_path"`
	BranchID   string `toml:"branch_id"`
	PageSize   int    `toml:"page_size"`
	Strict     bool   `toml:"strict"`
	Debounce   struct {
		CustomerDetail string `toml:"customer_detail"`
		CustomerList   string `toml:"customer_list"`
		PaymentHistory string `toml:"payment_history"`
	} `toml:"debounce"`
	Log struct {
		File  string `toml:"file"`
		Level string `toml:"level"`
	} `toml:"log"`
	Metrics struct {
		Bind string `toml:"bind"`
	} `toml:"metrics"`
}

// Load reads the config at path, falling back to defaults when the file is
// missing or a field is empty.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Defaults()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBase); v != "" {
		cfg.APIBase = v
	}
	if v := strings.TrimSpace(raw.EventsPath); v != "" {
		if !strings.HasPrefix(v, "/") {
			v = "/" + v
		}
		cfg.EventsPath = v
	}
	cfg.BranchID = strings.TrimSpace(raw.BranchID)
	if raw.PageSize > 0 {
		cfg.PageSize = min(raw.PageSize, maxPageSize)
	}
	cfg.Strict = raw.Strict

	durations := []struct {
		key  string
		raw  string
		dest *time.Duration
	}{
		{"debounce.customer_detail", raw.Debounce.CustomerDetail, &cfg.Debounce.CustomerDetail},
		{"debounce.customer_list", raw.Debounce.CustomerList, &cfg.Debounce.CustomerList},
		{"debounce.payment_history", raw.Debounce.PaymentHistory, &cfg.Debounce.PaymentHistory},
	}
	for _, d := range durations {
		if err := parseDuration(d.key, d.raw, d.dest); err != nil {
			return Config{}, err
		}
	}

	if v := strings.TrimSpace(raw.Log.File); v != "" {
		cfg.Log.File = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.Log.Level); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	cfg.Metrics.Bind = strings.TrimSpace(raw.Metrics.Bind)

	return cfg, nil
}

// parseDuration sets dest from value, leaving the default when value is
// empty.
func parseDuration(key, value string, dest *time.Duration) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("parse %s: duration must be positive, got %s", key, value)
	}
	*dest = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
