package remote

import (
	"context"
	"sync"
)

// MemoryClient is an in-memory Client for tests and offline development.
// All operations are safe for concurrent use.
type MemoryClient struct {
	mu         sync.Mutex
	items      map[string]map[string]ItemDoc
	entries    map[string]map[string]GroceryEntryDoc
	households map[string]HouseholdDoc
	failOp     func(op, id string) error
}

// NewMemoryClient returns an empty in-memory document store.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		items:      make(map[string]map[string]ItemDoc),
		entries:    make(map[string]map[string]GroceryEntryDoc),
		households: make(map[string]HouseholdDoc),
	}
}

func (m *MemoryClient) Close() error { return nil }

// SetFailOp installs a hook consulted before every operation with the
// operation name ("PutItem", "ListItems", ...) and the document id (empty
// for listings). A non-nil return aborts the operation with that error.
// Pass nil to clear. Safe to call while operations are in flight.
func (m *MemoryClient) SetFailOp(fn func(op, id string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOp = fn
}

func (m *MemoryClient) fail(op, id string) error {
	m.mu.Lock()
	fn := m.failOp
	m.mu.Unlock()
	if fn != nil {
		return fn(op, id)
	}
	return nil
}

func (m *MemoryClient) ListItems(_ context.Context, householdID string) ([]ItemDoc, error) {
	if err := m.fail("ListItems", ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var docs []ItemDoc
	for _, doc := range m.items[householdID] {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *MemoryClient) PutItem(_ context.Context, householdID string, doc ItemDoc) error {
	if err := m.fail("PutItem", doc.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.items[householdID] == nil {
		m.items[householdID] = make(map[string]ItemDoc)
	}
	m.items[householdID][doc.ID] = doc
	return nil
}

func (m *MemoryClient) DeleteItem(_ context.Context, householdID, id string) error {
	if err := m.fail("DeleteItem", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items[householdID], id)
	return nil
}

func (m *MemoryClient) ListGroceryEntries(_ context.Context, householdID string) ([]GroceryEntryDoc, error) {
	if err := m.fail("ListGroceryEntries", ""); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var docs []GroceryEntryDoc
	for _, doc := range m.entries[householdID] {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *MemoryClient) PutGroceryEntry(_ context.Context, householdID string, doc GroceryEntryDoc) error {
	if err := m.fail("PutGroceryEntry", doc.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries[householdID] == nil {
		m.entries[householdID] = make(map[string]GroceryEntryDoc)
	}
	m.entries[householdID][doc.ID] = doc
	return nil
}

func (m *MemoryClient) DeleteGroceryEntry(_ context.Context, householdID, _, id string) error {
	if err := m.fail("DeleteGroceryEntry", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries[householdID], id)
	return nil
}

func (m *MemoryClient) PutHousehold(_ context.Context, doc HouseholdDoc) error {
	if err := m.fail("PutHousehold", doc.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.households[doc.ID] = doc
	return nil
}

func (m *MemoryClient) DeleteHousehold(_ context.Context, id string) error {
	if err := m.fail("DeleteHousehold", id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.households, id)
	return nil
}

// Item returns a stored item document directly, bypassing the failure hook.
func (m *MemoryClient) Item(householdID, id string) (ItemDoc, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.items[householdID][id]
	return doc, ok
}

// GroceryEntry returns a stored entry document directly.
func (m *MemoryClient) GroceryEntry(householdID, id string) (GroceryEntryDoc, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.entries[householdID][id]
	return doc, ok
}

// Household returns a stored household document directly.
func (m *MemoryClient) Household(id string) (HouseholdDoc, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.households[id]
	return doc, ok
}
