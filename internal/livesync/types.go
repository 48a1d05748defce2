package livesync

import (
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

// EntityID identifies the entity a controller tracks.
type EntityID string

// Mode selects how a load reports failure.
type Mode int

const (
	// Loud loads surface failures as an Error state.
	Loud Mode = iota
	// Silent loads keep whatever is on screen and report failures out of band.
	Silent
)

func (m Mode) String() string {
	if m == Silent {
		return "silent"
	}
	return "loud"
}

// Guard vetoes silent refreshes while it returns true. Guards must be cheap
// and free of side effects; they may be called from any goroutine.
type Guard func() bool

// GuardID identifies a registered Guard.
type GuardID uint64

// Event is a named invalidation notice delivered by an EventSource.
type Event struct {
	Name    string
	Payload []byte
}

// Handler receives events from an EventSource.
type Handler func(Event)

// ListenerID identifies a handler registered on an EventSource.
type ListenerID uint64

// EventSource is the realtime transport a controller listens on.
type EventSource interface {
	On(name string, h Handler) ListenerID
	Off(name string, id ListenerID)
}

// Predicate decides whether an event concerns this controller.
type Predicate func(Event) bool

// FieldEquals matches events whose JSON payload has want at path, e.g.
// FieldEquals("customerId", "c-42").
func FieldEquals(path, want string) Predicate {
	return func(ev Event) bool {
		res := gjson.GetBytes(ev.Payload, path)
		return res.Exists() && res.String() == want
	}
}

// AllOf matches when every non-nil predicate matches.
func AllOf(preds ...Predicate) Predicate {
	return func(ev Event) bool {
		return lo.EveryBy(preds, func(p Predicate) bool { return p == nil || p(ev) })
	}
}
