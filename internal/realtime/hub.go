package realtime

import (
	"slices"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/five82/gymsync/internal/livesync"
)

// Event names published by the backend.
const (
	CustomerCreated = "customer.created"
	CustomerUpdated = "customer.updated"
	CustomerDeleted = "customer.deleted"
	ContractUpdated = "contract.updated"
	PaymentCreated  = "payment.created"
	PaymentRefunded = "payment.refunded"
)

// Hub fans events out to named listeners. It is the in-process transport
// controllers subscribe to; the Feed fills it from the backend stream.
type Hub struct {
	log *zap.Logger

	mu        sync.RWMutex
	next      livesync.ListenerID
	listeners map[string]map[livesync.ListenerID]livesync.Handler
}

var _ livesync.EventSource = (*Hub)(nil)

// NewHub returns an empty hub. A nil logger discards output.
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:       log,
		listeners: make(map[string]map[livesync.ListenerID]livesync.Handler),
	}
}

// On registers fn for events called name.
func (h *Hub) On(name string, fn livesync.Handler) livesync.ListenerID {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	byID, ok := h.listeners[name]
	if !ok {
		byID = make(map[livesync.ListenerID]livesync.Handler)
		h.listeners[name] = byID
	}
	byID[h.next] = fn
	return h.next
}

// Off removes a listener. Unknown ids are ignored.
func (h *Hub) Off(name string, id livesync.ListenerID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byID, ok := h.listeners[name]
	if !ok {
		return
	}
	delete(byID, id)
	if len(byID) == 0 {
		delete(h.listeners, name)
	}
}

// Emit delivers ev to every listener registered for ev.Name, in registration
// order, and returns how many were called. Listeners run on the caller's
// goroutine without the hub lock held.
func (h *Hub) Emit(ev livesync.Event) int {
	h.mu.RLock()
	byID := h.listeners[ev.Name]
	ids := lo.Keys(byID)
	slices.Sort(ids)
	handlers := make([]livesync.Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, byID[id])
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		h.call(ev, fn)
	}
	return len(handlers)
}

func (h *Hub) call(ev livesync.Event, fn livesync.Handler) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("event listener panicked", zap.String("event", ev.Name), zap.Any("panic", r))
		}
	}()
	fn(ev)
}

// Listeners returns how many listeners are registered for name.
func (h *Hub) Listeners(name string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[name])
}
