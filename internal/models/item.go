// Package models defines the entity types persisted by the local store and
// reconciled with the remote store. Every entity carries the same sync
// metadata: a client-generated id, the owning household, creation and update
// timestamps, a dirty flag (IsSynced=false means unconfirmed local changes)
// and a tombstone flag (IsDeleted=true means logically removed, retained
// until the deletion is confirmed remotely).
package models

import "time"

// Storage locations for pantry items.
const (
	LocationFridge  = "fridge"
	LocationFreezer = "freezer"
	LocationPantry  = "pantry"
	LocationOther   = "other"
)

// Item is a pantry/fridge item.
type Item struct {
	ID                string         `json:"id"`
	HouseholdID       string         `json:"household_id"`
	Barcode           string         `json:"barcode"`
	Name              string         `json:"name"`
	Quantity          float64        `json:"quantity"`
	Unit              string         `json:"unit"`
	ExpiryDate        *time.Time     `json:"expiry_date"`
	Location          string         `json:"location"`
	PhotoURL          string         `json:"photo_url"`
	Notes             string         `json:"notes"`
	Nutrition         map[string]any `json:"nutrition"`
	AddedBy           string         `json:"added_by"`
	LowStockThreshold float64        `json:"low_stock_threshold"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	IsSynced          bool           `json:"is_synced"`
	IsDeleted         bool           `json:"is_deleted"`
}

// LowOnStock reports whether the item is at or below its low-stock threshold.
// Items without a threshold never count as low.
func (i *Item) LowOnStock() bool {
	return i.LowStockThreshold > 0 && i.Quantity <= i.LowStockThreshold
}
