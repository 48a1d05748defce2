// Package config loads the console's TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/gymsync/config.toml (default)
//  3. If the config file doesn't exist, fall back to Defaults
//  4. If the file exists but fields are missing or empty, use defaults
//
// # Default Values
//
//   - API base: 127.0.0.1:8080
//   - Event stream path: /api/events
//   - Page size: 25 (capped at 200)
//   - Debounce: 500ms for customer detail, 1s for the list and payments
//   - Log file: ~/.local/state/gymsync/gymsync.log at level info
//   - Metrics endpoint: disabled
//
// # TOML Format
//
//	api_base = "127.0.0.1:8080"
//	events_path = "/api/events"
//	branch_id = "north"
//	page_size = 25
//	strict = false
//
//	[debounce]
//	customer_detail = "500ms"
//	customer_list = "1s"
//	payment_history = "1s"
//
//	[log]
//	file = "~/.local/state/gymsync/gymsync.log"
//	level = "info"
//
//	[metrics]
//	bind = "127.0.0.1:9464"
//
// Durations use time.ParseDuration syntax and must be positive. Tilde
// expansion is applied to the config path and the log file.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors
//   - Unparseable or non-positive debounce durations
//
// Missing config files are NOT an error, so the console works against a
// local backend without any setup.
package config
