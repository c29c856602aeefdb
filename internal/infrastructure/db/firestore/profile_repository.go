package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/pbnkron/kron/internal/core/domain"
)

type profileDoc struct {
	Username  string    `firestore:"username"`
	Email     string    `firestore:"email"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func profileFromSnapshot(snap *firestore.DocumentSnapshot) (*domain.Profile, error) {
	var d profileDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", snap.Ref.ID, err)
	}
	return &domain.Profile{
		UID:       snap.Ref.ID,
		Username:  d.Username,
		Email:     d.Email,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

type ProfileRepository struct {
	client *firestore.Client
}

func NewProfileRepository(client *firestore.Client) *ProfileRepository {
	return &ProfileRepository{client: client}
}

func (r *ProfileRepository) Get(ctx context.Context, uid string) (*domain.Profile, error) {
	snap, err := userDoc(r.client, uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return profileFromSnapshot(snap)
}

// Ensure merge-writes the profile. username and createdAt are only written
// when the stored document lacks them.
func (r *ProfileRepository) Ensure(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	ref := userDoc(r.client, p.UID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && !isNotFound(err) {
			return err
		}
		exists := snap != nil && snap.Exists()

		data := map[string]any{"updatedAt": firestore.ServerTimestamp}
		if p.Email != "" {
			data["email"] = p.Email
		}
		if !exists || !hasField(snap, "createdAt") {
			data["createdAt"] = firestore.ServerTimestamp
		}
		if !exists || !hasField(snap, "username") {
			data["username"] = p.Username
		}
		return tx.Set(ref, data, firestore.MergeAll)
	})
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}

	return r.Get(ctx, p.UID)
}

func (r *ProfileRepository) SetUsername(ctx context.Context, uid, username string) error {
	_, err := userDoc(r.client, uid).Set(ctx, map[string]any{
		"username":  username,
		"updatedAt": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("set username: %w", err)
	}
	return nil
}

func (r *ProfileRepository) ListUIDs(ctx context.Context) ([]string, error) {
	refs, err := r.client.Collection(collectionUsers).DocumentRefs(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.ID)
	}
	return out, nil
}
