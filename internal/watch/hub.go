// Package watch implements the in-process change-notification hub behind
// reactive local queries. Repositories publish an event after every committed
// write; subscribers re-run their query on each matching event. Events carry
// no payload: a notification means "the named scope changed, read again".
package watch

import "sync"

// Collection identifies which table a change event refers to.
type Collection string

const (
	Items      Collection = "items"
	Groceries  Collection = "grocery_entries"
	Households Collection = "households"
)

// Event describes a committed change to one household's slice of a collection.
type Event struct {
	Collection  Collection
	HouseholdID string
}

type subscription struct {
	ch          chan Event
	collection  Collection
	householdID string
}

// Hub fans change events out to subscribers. Publishing never blocks: each
// subscriber channel holds one pending notification and further events
// coalesce into it.
type Hub struct {
	mu   sync.Mutex
	subs map[int]*subscription
	next int
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscription)}
}

// Subscribe registers interest in changes to one household's collection.
// The returned cancel function must be called to release the subscription.
func (h *Hub) Subscribe(c Collection, householdID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	sub := &subscription{
		ch:          make(chan Event, 1),
		collection:  c,
		householdID: householdID,
	}
	h.subs[id] = sub

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub.ch)
		}
	}
	return sub.ch, cancel
}

// Publish notifies every subscriber whose scope matches the event. A pending
// undelivered notification absorbs the new one; subscribers always re-read
// the latest committed state anyway.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.collection != ev.Collection {
			continue
		}
		if sub.householdID != "" && sub.householdID != ev.HouseholdID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
