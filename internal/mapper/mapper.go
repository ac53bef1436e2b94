// Package mapper converts between local store records and remote store
// documents. All functions are pure: the only non-determinism is the injected
// clock used to default timestamps the remote side has not populated yet.
//
// Conversion rules:
//   - records pulled from the remote come back with IsSynced=true and
//     IsDeleted=false (a document that exists remotely is, by definition,
//     not deleted);
//   - the household id on a pulled record comes from the sync scope, never
//     from the document;
//   - absent remote timestamps default to the current wall-clock time;
//   - empty opaque maps are omitted on the wire, never defaulted to
//     sentinel values;
//   - all timestamps are normalized to UTC.
package mapper

import (
	"maps"
	"time"

	"github.com/kitchensync/kitchensync/internal/models"
	"github.com/kitchensync/kitchensync/internal/remote"
)

// ItemToDoc converts a local item to its wire form.
func ItemToDoc(item *models.Item) remote.ItemDoc {
	doc := remote.ItemDoc{
		ID:                item.ID,
		Barcode:           item.Barcode,
		Name:              item.Name,
		Quantity:          item.Quantity,
		Unit:              item.Unit,
		ExpiryDate:        utcPtr(item.ExpiryDate),
		Location:          item.Location,
		PhotoURL:          item.PhotoURL,
		Notes:             item.Notes,
		AddedBy:           item.AddedBy,
		LowStockThreshold: item.LowStockThreshold,
		CreatedAt:         timePtr(item.CreatedAt),
		UpdatedAt:         timePtr(item.UpdatedAt),
	}
	if len(item.Nutrition) > 0 {
		doc.Nutrition = maps.Clone(item.Nutrition)
	}
	return doc
}

// ItemFromDoc converts a remote item document to a local record in the given
// household scope.
func ItemFromDoc(doc remote.ItemDoc, householdID string, now func() time.Time) models.Item {
	item := models.Item{
		ID:                doc.ID,
		HouseholdID:       householdID,
		Barcode:           doc.Barcode,
		Name:              doc.Name,
		Quantity:          doc.Quantity,
		Unit:              doc.Unit,
		ExpiryDate:        utcPtr(doc.ExpiryDate),
		Location:          doc.Location,
		PhotoURL:          doc.PhotoURL,
		Notes:             doc.Notes,
		AddedBy:           doc.AddedBy,
		LowStockThreshold: doc.LowStockThreshold,
		CreatedAt:         timeOrNow(doc.CreatedAt, now),
		UpdatedAt:         timeOrNow(doc.UpdatedAt, now),
		IsSynced:          true,
		IsDeleted:         false,
	}
	if len(doc.Nutrition) > 0 {
		item.Nutrition = maps.Clone(doc.Nutrition)
	}
	return item
}

// GroceryToDoc converts a local grocery entry to its wire form.
func GroceryToDoc(entry *models.GroceryEntry) remote.GroceryEntryDoc {
	return remote.GroceryEntryDoc{
		ID:        entry.ID,
		ListID:    entry.ListID,
		ItemRef:   entry.ItemRef,
		Name:      entry.Name,
		Quantity:  entry.Quantity,
		Unit:      entry.Unit,
		Source:    entry.Source,
		IsChecked: entry.Checked,
		CreatedAt: timePtr(entry.CreatedAt),
		UpdatedAt: timePtr(entry.UpdatedAt),
	}
}

// GroceryFromDoc converts a remote entry document to a local record in the
// given household scope.
func GroceryFromDoc(doc remote.GroceryEntryDoc, householdID string, now func() time.Time) models.GroceryEntry {
	listID := doc.ListID
	if listID == "" {
		listID = models.DefaultListID
	}
	return models.GroceryEntry{
		ID:          doc.ID,
		HouseholdID: householdID,
		ListID:      listID,
		ItemRef:     doc.ItemRef,
		Name:        doc.Name,
		Quantity:    doc.Quantity,
		Unit:        doc.Unit,
		Source:      doc.Source,
		Checked:     doc.IsChecked,
		CreatedAt:   timeOrNow(doc.CreatedAt, now),
		UpdatedAt:   timeOrNow(doc.UpdatedAt, now),
		IsSynced:    true,
		IsDeleted:   false,
	}
}

// HouseholdToDoc converts a local household to its wire form.
func HouseholdToDoc(h *models.Household) remote.HouseholdDoc {
	doc := remote.HouseholdDoc{
		ID:        h.ID,
		Name:      h.Name,
		OwnerID:   h.OwnerID,
		CreatedAt: timePtr(h.CreatedAt),
		UpdatedAt: timePtr(h.UpdatedAt),
	}
	if len(h.MemberIDs) > 0 {
		doc.Members = append([]string(nil), h.MemberIDs...)
	}
	return doc
}

// HouseholdFromDoc converts a remote household document to a local record.
func HouseholdFromDoc(doc remote.HouseholdDoc, now func() time.Time) models.Household {
	h := models.Household{
		ID:        doc.ID,
		Name:      doc.Name,
		OwnerID:   doc.OwnerID,
		CreatedAt: timeOrNow(doc.CreatedAt, now),
		UpdatedAt: timeOrNow(doc.UpdatedAt, now),
		IsSynced:  true,
		IsDeleted: false,
	}
	if len(doc.Members) > 0 {
		h.MemberIDs = append([]string(nil), doc.Members...)
	}
	return h
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func timeOrNow(t *time.Time, now func() time.Time) time.Time {
	if t == nil || t.IsZero() {
		return now().UTC()
	}
	return t.UTC()
}
