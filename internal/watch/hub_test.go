package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversMatchingEvents(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(Items, "h1")
	defer cancel()

	h.Publish(Event{Collection: Items, HouseholdID: "h1"})

	ev := <-ch
	assert.Equal(t, Items, ev.Collection)
	assert.Equal(t, "h1", ev.HouseholdID)
}

func TestHub_FiltersByCollectionAndHousehold(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(Items, "h1")
	defer cancel()

	h.Publish(Event{Collection: Groceries, HouseholdID: "h1"})
	h.Publish(Event{Collection: Items, HouseholdID: "h2"})

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

func TestHub_EmptyScopeMatchesAllHouseholds(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(Households, "")
	defer cancel()

	h.Publish(Event{Collection: Households, HouseholdID: "h1"})

	ev := <-ch
	assert.Equal(t, "h1", ev.HouseholdID)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(Items, "h1")
	defer cancel()

	// Nobody is reading; repeated publishes coalesce into the single
	// buffered slot instead of blocking.
	for i := 0; i < 10; i++ {
		h.Publish(Event{Collection: Items, HouseholdID: "h1"})
	}

	<-ch
	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("expected a single coalesced event, got another: %+v", ev)
		}
	default:
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(Items, "h1")

	cancel()
	cancel() // second cancel is a no-op

	_, ok := <-ch
	require.False(t, ok, "channel must be closed after cancel")

	// Publishing after cancel must not panic.
	h.Publish(Event{Collection: Items, HouseholdID: "h1"})
}
