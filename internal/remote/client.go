// Package remote abstracts the shared cloud document store the sync engine
// reconciles against. Documents live in a hierarchy scoped per household:
//
//	households/{householdID}/items/{id}
//	households/{householdID}/groceryLists/{listID}/entries/{id}
//	households/{householdID}
//
// Implementations own per-operation timeouts and map transport errors onto
// common.ErrRemoteUnavailable / common.ErrRemoteRejected so the engine can
// treat every remote failure as retryable.
package remote

import (
	"context"
	"time"
)

// ItemDoc is the wire form of a pantry item. Timestamps are pointers because
// server-assigned values may not be populated yet; the mapper substitutes
// wall-clock time for absent ones.
type ItemDoc struct {
	ID                string         `firestore:"id"`
	Barcode           string         `firestore:"barcode,omitempty"`
	Name              string         `firestore:"name"`
	Quantity          float64        `firestore:"quantity"`
	Unit              string         `firestore:"unit,omitempty"`
	ExpiryDate        *time.Time     `firestore:"expiryDate,omitempty"`
	Location          string         `firestore:"location,omitempty"`
	PhotoURL          string         `firestore:"photoUrl,omitempty"`
	Notes             string         `firestore:"notes,omitempty"`
	Nutrition         map[string]any `firestore:"nutrition,omitempty"`
	AddedBy           string         `firestore:"addedBy,omitempty"`
	LowStockThreshold float64        `firestore:"lowStockThreshold"`
	CreatedAt         *time.Time     `firestore:"createdAt,omitempty"`
	UpdatedAt         *time.Time     `firestore:"updatedAt,omitempty"`
}

// GroceryEntryDoc is the wire form of a grocery entry.
type GroceryEntryDoc struct {
	ID        string     `firestore:"id"`
	ListID    string     `firestore:"listId"`
	ItemRef   string     `firestore:"itemRef,omitempty"`
	Name      string     `firestore:"name"`
	Quantity  float64    `firestore:"quantity"`
	Unit      string     `firestore:"unit,omitempty"`
	Source    string     `firestore:"source,omitempty"`
	IsChecked bool       `firestore:"isChecked"`
	CreatedAt *time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt *time.Time `firestore:"updatedAt,omitempty"`
}

// HouseholdDoc is the wire form of a household.
type HouseholdDoc struct {
	ID        string     `firestore:"id"`
	Name      string     `firestore:"name"`
	OwnerID   string     `firestore:"ownerId,omitempty"`
	Members   []string   `firestore:"members,omitempty"`
	CreatedAt *time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt *time.Time `firestore:"updatedAt,omitempty"`
}

// Client is the typed surface over the remote document store.
type Client interface {
	// ListItems returns every item document in the household scope.
	ListItems(ctx context.Context, householdID string) ([]ItemDoc, error)

	// PutItem fully replaces the item document keyed by doc.ID.
	PutItem(ctx context.Context, householdID string, doc ItemDoc) error

	// DeleteItem removes the item document. Deleting an absent document
	// succeeds.
	DeleteItem(ctx context.Context, householdID, id string) error

	// ListGroceryEntries returns every entry document across all of the
	// household's grocery lists.
	ListGroceryEntries(ctx context.Context, householdID string) ([]GroceryEntryDoc, error)

	// PutGroceryEntry fully replaces the entry document keyed by doc.ID
	// under the list named by doc.ListID.
	PutGroceryEntry(ctx context.Context, householdID string, doc GroceryEntryDoc) error

	// DeleteGroceryEntry removes the entry document. Deleting an absent
	// document succeeds.
	DeleteGroceryEntry(ctx context.Context, householdID, listID, id string) error

	// PutHousehold fully replaces the household document keyed by doc.ID.
	PutHousehold(ctx context.Context, doc HouseholdDoc) error

	// DeleteHousehold removes the household document.
	DeleteHousehold(ctx context.Context, id string) error

	// Close releases the underlying connection.
	Close() error
}
