package models

import "time"

// Source tags recording how a grocery entry came to exist.
const (
	SourceManual   = "manual"
	SourceExpiring = "expiring"
	SourceLowStock = "low-stock"
	SourceAI       = "ai"
)

// DefaultListID is the grocery list entries belong to unless the caller
// names one.
const DefaultListID = "default"

// GroceryEntry is a single line on a household grocery list.
type GroceryEntry struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id"`
	ListID      string    `json:"list_id"`
	ItemRef     string    `json:"item_ref"`
	Name        string    `json:"name"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	Source      string    `json:"source"`
	Checked     bool      `json:"checked"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	IsSynced    bool      `json:"is_synced"`
	IsDeleted   bool      `json:"is_deleted"`
}
