// Package logtail reads the tail of the console's own log file.
//
// The console logs zap JSON lines to a file so the terminal stays clean.
// Read returns the last N lines of that file in one pass with O(N) memory,
// and Parse turns each JSON line into an Entry the log view can style.
// Lines that are not JSON are kept as plain messages.
//
// Read returns nil, nil for a file that does not exist yet; other I/O errors
// are returned wrapped.
package logtail
