package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != defaultAPIBase {
		t.Fatalf("APIBase = %q, want %q", cfg.APIBase, defaultAPIBase)
	}
	if cfg.EventsPath != "/api/events" {
		t.Fatalf("EventsPath = %q, want /api/events", cfg.EventsPath)
	}
	if cfg.PageSize != 25 {
		t.Fatalf("PageSize = %d, want 25", cfg.PageSize)
	}
	if cfg.Debounce.CustomerDetail != 500*time.Millisecond ||
		cfg.Debounce.CustomerList != time.Second ||
		cfg.Debounce.PaymentHistory != time.Second {
		t.Fatalf("Debounce = %+v, want 500ms/1s/1s", cfg.Debounce)
	}

	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.Log.File != wantLog {
		t.Fatalf("Log.File = %q, want %q", cfg.Log.File, wantLog)
	}
	if cfg.Log.Level != "info" || cfg.Metrics.Bind != "" || cfg.Strict {
		t.Fatalf("cfg = %+v, want info level, no metrics, not strict", cfg)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_base = "  10.0.0.5:9999  "
events_path = "stream"
branch_id = " north "
page_size = 50
strict = true

[debounce]
customer_detail = "250ms"
payment_history = " 2s "

[log]
file = "  ~/gym/logs/console.log  "
level = "DEBUG"

[metrics]
bind = "127.0.0.1:9464"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != "10.0.0.5:9999" {
		t.Fatalf("APIBase = %q, want %q", cfg.APIBase, "10.0.0.5:9999")
	}
	if cfg.EventsPath != "/stream" {
		t.Fatalf("EventsPath = %q, want /stream", cfg.EventsPath)
	}
	if cfg.BranchID != "north" || cfg.PageSize != 50 || !cfg.Strict {
		t.Fatalf("cfg = %+v, want branch north, page size 50, strict", cfg)
	}
	if cfg.Debounce.CustomerDetail != 250*time.Millisecond {
		t.Fatalf("CustomerDetail = %v, want 250ms", cfg.Debounce.CustomerDetail)
	}
	if cfg.Debounce.CustomerList != time.Second {
		t.Fatalf("CustomerList = %v, want default 1s", cfg.Debounce.CustomerList)
	}
	if cfg.Debounce.PaymentHistory != 2*time.Second {
		t.Fatalf("PaymentHistory = %v, want 2s", cfg.Debounce.PaymentHistory)
	}
	if !strings.HasPrefix(cfg.Log.File, home) || !strings.HasSuffix(cfg.Log.File, "console.log") {
		t.Fatalf("Log.File = %q, want console.log under HOME %q", cfg.Log.File, home)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Metrics.Bind != "127.0.0.1:9464" {
		t.Fatalf("Metrics.Bind = %q, want 127.0.0.1:9464", cfg.Metrics.Bind)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
api_base = "   "
page_size = -3

[debounce]
customer_list = ""
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBase != defaultAPIBase {
		t.Fatalf("APIBase = %q, want %q", cfg.APIBase, defaultAPIBase)
	}
	if cfg.PageSize != defaultPageSize {
		t.Fatalf("PageSize = %d, want %d", cfg.PageSize, defaultPageSize)
	}
	if cfg.Debounce.CustomerList != defaultListDebounce {
		t.Fatalf("CustomerList = %v, want %v", cfg.Debounce.CustomerList, defaultListDebounce)
	}
}

func TestLoad_ClampsPageSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`page_size = 10000`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.PageSize != maxPageSize {
		t.Fatalf("PageSize = %d, want %d", cfg.PageSize, maxPageSize)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`api_base = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	tests := map[string]string{
		"garbage":  "[debounce]\ncustomer_detail = \"soon\"",
		"negative": "[debounce]\npayment_history = \"-1s\"",
		"zero":     "[debounce]\ncustomer_list = \"0s\"",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), "parse debounce.") {
				t.Fatalf("Load error = %v, want debounce parse error", err)
			}
		})
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
