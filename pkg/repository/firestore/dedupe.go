package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/talaria-bot/talaria/pkg/domain/types"
)

// seenDoc records one processed message ID. ExpiresAt doubles as the field
// for a Firestore TTL policy so stale markers get garbage collected.
type seenDoc struct {
	MessageID string    `firestore:"MessageID"`
	SeenAt    time.Time `firestore:"SeenAt"`
	ExpiresAt time.Time `firestore:"ExpiresAt"`
}

type dedupeRepository struct {
	client           *firestore.Client
	collectionPrefix string
	window           time.Duration
}

func newDedupeRepository(client *firestore.Client, window time.Duration) *dedupeRepository {
	return &dedupeRepository{
		client: client,
		window: window,
	}
}

func (r *dedupeRepository) seenCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_processed_messages"
	}
	return "processed_messages"
}

// IsNew marks messageID as seen and reports whether this call was the first
// within the retention window. Create-if-absent gives concurrent deliveries
// of the same ID exactly one true.
func (r *dedupeRepository) IsNew(ctx context.Context, messageID string) (bool, error) {
	now := time.Now().UTC()
	docRef := r.client.Collection(r.seenCollection()).Doc(messageID)

	_, err := docRef.Create(ctx, &seenDoc{
		MessageID: messageID,
		SeenAt:    now,
		ExpiresAt: now.Add(r.window),
	})
	if err == nil {
		return true, nil
	}
	if status.Code(err) != codes.AlreadyExists {
		return false, goerr.Wrap(err, "dedupe check failed",
			goerr.T(types.ErrTagBackend),
			goerr.V("messageID", messageID))
	}

	// The marker exists. If its retention expired but the TTL policy has
	// not collected it yet, take it over; the transaction keeps the
	// take-over single-winner.
	var isNew bool
	txErr := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				isNew = true
				return tx.Set(docRef, &seenDoc{
					MessageID: messageID,
					SeenAt:    now,
					ExpiresAt: now.Add(r.window),
				})
			}
			return err
		}

		var d seenDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}

		if now.Before(d.ExpiresAt) {
			isNew = false
			return nil
		}

		isNew = true
		return tx.Set(docRef, &seenDoc{
			MessageID: messageID,
			SeenAt:    now,
			ExpiresAt: now.Add(r.window),
		})
	})
	if txErr != nil {
		return false, goerr.Wrap(txErr, "dedupe check failed",
			goerr.T(types.ErrTagBackend),
			goerr.V("messageID", messageID))
	}

	return isNew, nil
}
