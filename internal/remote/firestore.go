package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kitchensync/kitchensync/internal/common"
)

const (
	collectionHouseholds   = "households"
	collectionItems        = "items"
	collectionGroceryLists = "groceryLists"
	collectionEntries      = "entries"
)

// FirestoreClient implements Client against Google Cloud Firestore, the
// hosted document store shared by all devices in a household.
type FirestoreClient struct {
	c       *firestore.Client
	timeout time.Duration
}

// NewFirestoreClient connects to the given Firestore project. timeout bounds
// each individual operation; zero disables the bound.
func NewFirestoreClient(ctx context.Context, projectID string, timeout time.Duration, opts ...option.ClientOption) (*FirestoreClient, error) {
	c, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreClient{c: c, timeout: timeout}, nil
}

func (f *FirestoreClient) Close() error {
	return f.c.Close()
}

func (f *FirestoreClient) household(id string) *firestore.DocumentRef {
	return f.c.Collection(collectionHouseholds).Doc(id)
}

func (f *FirestoreClient) ListItems(ctx context.Context, householdID string) ([]ItemDoc, error) {
	ctx, cancel := f.opCtx(ctx)
	defer cancel()

	iter := f.household(householdID).Collection(collectionItems).Documents(ctx)
	defer iter.Stop()

	var docs []ItemDoc
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify(err)
		}
		var doc ItemDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("%w: malformed item document %s: %v", common.ErrRemoteRejected, snap.Ref.ID, err)
		}
		doc.ID = snap.Ref.ID
		docs = append(docs, doc)
	}
	return docs, nil
}

func (f *FirestoreClient) PutItem(ctx context.Context, householdID string, doc ItemDoc) error {
	ctx, cancel := f.opCtx(ctx)
	defer cancel()

	_, err := f.household(householdID).Collection(collectionItems).Doc(doc.ID).Set(ctx, doc)
	return classify(err)
}

func (f *FirestoreClient) DeleteItem(ctx context.Context, householdID, id string) error {
	ctx, cancel := f.opCtx(ctx)
	defer cancel()

	_, err := f.household(householdID).Collection(collectionItems).Doc(id).Delete(ctx)
	return classify(err)
}

func (f *FirestoreClient) ListGroceryEntries(ctx context.Context, householdID string) ([]GroceryEntryDoc, error) {
	ctx, cancel := f.opCtx(ctx)
	defer cancel()

	// DocumentRefs, not Documents: list documents are usually "virtual"
	// (they exist only through their entries subcollection) and a snapshot
	// query would skip them.
	lists := f.household(householdID).Collection(collectionGroceryLists).DocumentRefs(ctx)

	var docs []GroceryEntryDoc
	for {
		listRef, err := lists.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classify(err)
		}

		entries := listRef.Collection(collectionEntries).Documents(ctx)
		for {
			snap, err := entries.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				entries.Stop()
				return nil, classify(err)
			}
			var doc GroceryEntryDoc
			if err := snap.DataTo(&doc); err != nil {
				entries.Stop()
				return nil, fmt.Errorf("%w: malformed grocery document %s: %v", common.ErrRemoteRejected, snap.Ref.ID, err)
			}
			doc.ID = snap.Ref.ID
			if doc.ListID == "" {
				doc.ListID = listRef.ID
			}
			docs = append(docs, doc)
		}
		entries.Stop()
	}
	return docs, nil
}

func (f *FirestoreClient) PutGroceryEntry(ctx context.Context, householdID string, doc GroceryEntryDoc) error {
	ctx, cancel := f.opCtx(ctx)
	defer cancel()

	_, err := f.household(householdID).
		Collection(collectionGroceryLists).Doc(doc.ListID).
		Collection(collectionEntries).Doc(doc.ID).
		Set(ctx, doc)
	return classify(err)
}

func (f *FirestoreClient) DeleteGroceryEntry(ctx context.Context, householdID, listID, id string) error {
	ctx, cancel := f.opCtx(ctx)
	defer cancel()

	_, err := f.household(householdID).
		Collection(collectionGroceryLists).Doc(listID).
		Collection(collectionEntries).Doc(id).
		Delete(ctx)
	return classify(err)
}

func (f *FirestoreClient) PutHousehold(ctx context.Context, doc HouseholdDoc) error {
	ctx, cancel := f.opCtx(ctx)
	defer cancel()

	_, err := f.household(doc.ID).Set(ctx, doc)
	return classify(err)
}

func (f *FirestoreClient) DeleteHousehold(ctx context.Context, id string) error {
	ctx, cancel := f.opCtx(ctx)
	defer cancel()

	_, err := f.household(id).Delete(ctx)
	return classify(err)
}

func (f *FirestoreClient) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, f.timeout)
}

// classify maps transport errors onto the shared remote sentinels. Transient
// conditions become ErrRemoteUnavailable, everything else ErrRemoteRejected.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", common.ErrRemoteRejected, err)
	}
}
