package livesync

import (
	"errors"
	"strings"

	"github.com/five82/gymsync/internal/state"
)

var (
	// ErrDisposed is returned by Load after Dispose.
	ErrDisposed = errors.New("livesync: controller disposed")
	// ErrCancelled marks a fetch that was superseded or torn down. It never
	// reaches SyncState.
	ErrCancelled = errors.New("livesync: fetch cancelled")
	// ErrNoFetcher is returned when a controller is built without a fetch func.
	ErrNoFetcher = errors.New("livesync: fetcher is required")
)

// userMessager is implemented by transport errors that carry a message meant
// for people rather than logs.
type userMessager interface {
	UserMessage() string
}

// Describe converts err into the displayable ErrorInfo stored in SyncState.
func Describe(err error) state.ErrorInfo {
	if err == nil {
		return state.ErrorInfo{}
	}
	msg := err.Error()
	var um userMessager
	if errors.As(err, &um) {
		if m := strings.TrimSpace(um.UserMessage()); m != "" {
			msg = m
		}
	}
	return state.ErrorInfo{Message: msg, Err: err}
}
