// Package realtime carries backend invalidation events to sync controllers.
//
// Hub is an in-process EventSource: controllers register listeners by event
// name and Emit fans events out to them. Feed keeps a server-sent event
// connection to the backend open and publishes every event it reads onto the
// hub. Disconnects are retried with exponential backoff and the last event id
// is replayed on reconnect so the backend can fill the gap.
//
// Events are fire-and-forget. Nothing here orders events relative to fetch
// completions; controllers cope with that through generations.
package realtime
