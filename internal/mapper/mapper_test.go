package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchensync/kitchensync/internal/models"
	"github.com/kitchensync/kitchensync/internal/remote"
)

var fixedNow = func() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestItemRoundTrip(t *testing.T) {
	expiry := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	item := &models.Item{
		ID:                "i1",
		HouseholdID:       "h1",
		Barcode:           "4006381333931",
		Name:              "Milk",
		Quantity:          2,
		Unit:              "l",
		ExpiryDate:        &expiry,
		Location:          models.LocationFridge,
		PhotoURL:          "https://example.com/milk.jpg",
		Notes:             "semi-skimmed",
		Nutrition:         map[string]any{"kcal": 47.0},
		AddedBy:           "u1",
		LowStockThreshold: 1,
		CreatedAt:         time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC),
		IsSynced:          false,
		IsDeleted:         true,
	}

	doc := ItemToDoc(item)
	back := ItemFromDoc(doc, "h1", fixedNow)

	// Sync bookkeeping never travels over the wire: a pulled record is
	// always live and synced, whatever the local flags were.
	assert.True(t, back.IsSynced)
	assert.False(t, back.IsDeleted)

	item.IsSynced = true
	item.IsDeleted = false
	assert.Equal(t, *item, back)
}

func TestItemFromDoc_DefaultsAbsentTimestamps(t *testing.T) {
	doc := remote.ItemDoc{ID: "i1", Name: "Eggs"}

	item := ItemFromDoc(doc, "h1", fixedNow)

	assert.Equal(t, fixedNow(), item.CreatedAt)
	assert.Equal(t, fixedNow(), item.UpdatedAt)
	assert.Equal(t, "h1", item.HouseholdID)
	assert.Nil(t, item.ExpiryDate)
}

func TestItemToDoc_OmitsEmptyNutrition(t *testing.T) {
	doc := ItemToDoc(&models.Item{ID: "i1", Name: "Eggs", Nutrition: map[string]any{}})
	assert.Nil(t, doc.Nutrition)
}

func TestItemToDoc_ZeroTimestampsBecomeNil(t *testing.T) {
	doc := ItemToDoc(&models.Item{ID: "i1", Name: "Eggs"})
	assert.Nil(t, doc.CreatedAt)
	assert.Nil(t, doc.UpdatedAt)
}

func TestItemMapping_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, loc)
	doc := ItemToDoc(&models.Item{ID: "i1", Name: "Eggs", CreatedAt: created})

	require.NotNil(t, doc.CreatedAt)
	assert.Equal(t, time.UTC, doc.CreatedAt.Location())
	assert.True(t, doc.CreatedAt.Equal(created))
}

func TestGroceryRoundTrip(t *testing.T) {
	entry := &models.GroceryEntry{
		ID:          "g1",
		HouseholdID: "h1",
		ListID:      models.DefaultListID,
		ItemRef:     "i1",
		Name:        "Milk",
		Quantity:    1,
		Unit:        "l",
		Source:      models.SourceExpiring,
		Checked:     true,
		CreatedAt:   time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC),
	}

	back := GroceryFromDoc(GroceryToDoc(entry), "h1", fixedNow)

	entry.IsSynced = true
	entry.IsDeleted = false
	assert.Equal(t, *entry, back)
}

func TestGroceryFromDoc_DefaultsListID(t *testing.T) {
	entry := GroceryFromDoc(remote.GroceryEntryDoc{ID: "g1", Name: "Milk"}, "h1", fixedNow)
	assert.Equal(t, models.DefaultListID, entry.ListID)
}

func TestHouseholdRoundTrip(t *testing.T) {
	h := &models.Household{
		ID:        "h1",
		Name:      "Home",
		OwnerID:   "u1",
		MemberIDs: []string{"u1", "u2"},
		CreatedAt: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC),
	}

	doc := HouseholdToDoc(h)
	back := HouseholdFromDoc(doc, fixedNow)

	h.IsSynced = true
	h.IsDeleted = false
	assert.Equal(t, *h, back)

	// The doc carries a copy, not an alias, of the member list.
	doc.Members[0] = "mutated"
	assert.Equal(t, "u1", h.MemberIDs[0])
}
