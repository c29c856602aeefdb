package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/pbnkron/kron/internal/core/domain"
)

type mirrorDoc struct {
	AuthorUID  string     `firestore:"authorUid"`
	AuthorName string     `firestore:"authorName"`
	Text       string     `firestore:"text"`
	Type       string     `firestore:"type"`
	Status     string     `firestore:"status"`
	Deadline   *time.Time `firestore:"deadline"`
	CreatedAt  time.Time  `firestore:"createdAt"`
}

func mirrorFromSnapshot(snap *firestore.DocumentSnapshot) (*domain.Mirror, error) {
	var d mirrorDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode mirror %s: %w", snap.Ref.ID, err)
	}
	return &domain.Mirror{
		ID:         snap.Ref.ID,
		AuthorUID:  d.AuthorUID,
		AuthorName: d.AuthorName,
		Text:       d.Text,
		Type:       domain.GoalType(d.Type),
		Status:     domain.GoalStatus(d.Status),
		Deadline:   d.Deadline,
		CreatedAt:  d.CreatedAt,
	}, nil
}

type MirrorRepository struct {
	client *firestore.Client
	logger zerolog.Logger
}

func NewMirrorRepository(client *firestore.Client, logger zerolog.Logger) *MirrorRepository {
	return &MirrorRepository{client: client, logger: logger}
}

func (r *MirrorRepository) col() *firestore.CollectionRef {
	return r.client.Collection(collectionMirrors)
}

// Upsert merges the mirror fields. When m carries no createdAt the server
// timestamp is written only if the stored mirror has none, which needs a
// read inside a transaction.
func (r *MirrorRepository) Upsert(ctx context.Context, m *domain.Mirror) error {
	ref := r.col().Doc(m.ID)
	data := map[string]any{
		"authorUid":  m.AuthorUID,
		"authorName": m.AuthorName,
		"text":       m.Text,
		"type":       string(m.Type),
		"status":     string(m.Status),
		"deadline":   m.Deadline,
	}

	if !m.CreatedAt.IsZero() {
		data["createdAt"] = m.CreatedAt
		if _, err := ref.Set(ctx, data, firestore.MergeAll); err != nil {
			return fmt.Errorf("upsert mirror: %w", err)
		}
		return nil
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && !isNotFound(err) {
			return err
		}
		if snap == nil || !snap.Exists() || !hasField(snap, "createdAt") {
			data["createdAt"] = firestore.ServerTimestamp
		}
		return tx.Set(ref, data, firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("upsert mirror: %w", err)
	}
	return nil
}

func hasField(snap *firestore.DocumentSnapshot, field string) bool {
	v, err := snap.DataAt(field)
	return err == nil && v != nil
}

// Delete is idempotent: Firestore does not fail on missing documents.
func (r *MirrorRepository) Delete(ctx context.Context, goalID string) error {
	_, err := r.col().Doc(goalID).Delete(ctx)
	return err
}

func (r *MirrorRepository) Get(ctx context.Context, goalID string) (*domain.Mirror, error) {
	snap, err := r.col().Doc(goalID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrGoalNotFound
		}
		return nil, err
	}
	return mirrorFromSnapshot(snap)
}

func (r *MirrorRepository) ListByAuthor(ctx context.Context, authorUID string) ([]*domain.Mirror, error) {
	snaps, err := r.col().Where("authorUid", "==", authorUID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeMirrors(snaps)
}

func (r *MirrorRepository) List(ctx context.Context, filter domain.GoalFilter) ([]*domain.Mirror, error) {
	snaps, err := r.feedQuery(filter).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return decodeMirrors(snaps)
}

func (r *MirrorRepository) feedQuery(filter domain.GoalFilter) firestore.Query {
	q := r.col().Query
	if filter.Type != "" {
		q = q.Where("type", "==", string(filter.Type))
	}
	return q.OrderBy("createdAt", firestore.Desc)
}

func decodeMirrors(snaps []*firestore.DocumentSnapshot) ([]*domain.Mirror, error) {
	out := make([]*domain.Mirror, 0, len(snaps))
	for _, snap := range snaps {
		m, err := mirrorFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// RenameAuthor rewrites authorName inside one transaction. Mirrors that are
// gone or belong to someone else are skipped; any failure commits nothing.
func (r *MirrorRepository) RenameAuthor(ctx context.Context, authorUID, authorName string, goalIDs []string) error {
	if len(goalIDs) == 0 {
		return nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(goalIDs))
	for _, id := range goalIDs {
		refs = append(refs, r.col().Doc(id))
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			if !snap.Exists() {
				continue
			}
			owner, err := snap.DataAt("authorUid")
			if err != nil || owner != authorUID {
				continue
			}
			if err := tx.Update(snap.Ref, []firestore.Update{{Path: "authorName", Value: authorName}}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("rename: transaction: %w", err)
	}
	return nil
}

// Watch follows the feed query with a snapshot listener. Every change
// delivers the full ordered result set.
func (r *MirrorRepository) Watch(ctx context.Context, filter domain.GoalFilter) (<-chan []*domain.Mirror, error) {
	it := r.feedQuery(filter).Snapshots(ctx)

	out := make(chan []*domain.Mirror, 1)
	go func() {
		defer close(out)
		defer it.Stop()

		for {
			qs, err := it.Next()
			if err != nil {
				if !errors.Is(err, iterator.Done) && ctx.Err() == nil {
					r.logger.Error().Err(err).Msg("feed listener ended")
				}
				return
			}
			snaps, err := qs.Documents.GetAll()
			if err != nil {
				r.logger.Error().Err(err).Msg("feed snapshot read failed")
				return
			}
			mirrors, err := decodeMirrors(snaps)
			if err != nil {
				r.logger.Error().Err(err).Msg("feed snapshot decode failed")
				return
			}
			select {
			case out <- mirrors:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
