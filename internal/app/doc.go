// Package app is the composition root for gymsync.
//
// setup loads the TOML config, opens the zap log file, builds the Prometheus
// registry and controller diagnostics, and connects the HTTP data source and
// the event hub fed by the server-sent event stream. Run then starts the
// event feed, the optional metrics endpoint and the Bubble Tea console under
// one errgroup; quitting the console cancels the rest. Watch runs the same
// stack headless for a single customer and prints each state change.
package app
