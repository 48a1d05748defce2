package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// relay carries controller notifications, which arrive on fetch and timer
// goroutines, into the Bubble Tea loop. Each slot holds only its newest
// message; slots are drained in the order they were first filled.
type relay struct {
	mu     sync.Mutex
	slots  map[string]tea.Msg
	order  []string
	notify chan struct{}
}

// relayMsg is one drained batch.
type relayMsg []tea.Msg

func newRelay() *relay {
	return &relay{
		slots:  make(map[string]tea.Msg),
		notify: make(chan struct{}, 1),
	}
}

// post stores msg in slot, replacing anything not yet drained. It never
// blocks, so it is safe to call from inside Update.
func (r *relay) post(slot string, msg tea.Msg) {
	r.mu.Lock()
	if _, ok := r.slots[slot]; !ok {
		r.order = append(r.order, slot)
	}
	r.slots[slot] = msg
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *relay) drain() []tea.Msg {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return nil
	}
	msgs := make([]tea.Msg, 0, len(r.order))
	for _, slot := range r.order {
		msgs = append(msgs, r.slots[slot])
	}
	clear(r.slots)
	r.order = r.order[:0]
	return msgs
}

// wait returns a command that blocks until something is posted and then
// delivers everything pending as a relayMsg. Update re-arms it after each
// batch.
func (r *relay) wait(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-r.notify:
				if msgs := r.drain(); len(msgs) > 0 {
					return relayMsg(msgs)
				}
			}
		}
	}
}
