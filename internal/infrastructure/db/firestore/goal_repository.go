package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/pbnkron/kron/internal/core/domain"
)

type goalDoc struct {
	Text      string     `firestore:"text"`
	Type      string     `firestore:"type"`
	Status    string     `firestore:"status"`
	Deadline  *time.Time `firestore:"deadline"`
	Public    bool       `firestore:"public"`
	CreatedAt time.Time  `firestore:"createdAt"`
	UpdatedAt time.Time  `firestore:"updatedAt"`
}

func goalFromSnapshot(ownerUID string, snap *firestore.DocumentSnapshot) (*domain.Goal, error) {
	var d goalDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode goal %s: %w", snap.Ref.ID, err)
	}
	return &domain.Goal{
		ID:        snap.Ref.ID,
		OwnerUID:  ownerUID,
		Text:      d.Text,
		Type:      domain.GoalType(d.Type),
		Status:    domain.GoalStatus(d.Status),
		Deadline:  d.Deadline,
		Public:    d.Public,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

type GoalRepository struct {
	client *firestore.Client
}

func NewGoalRepository(client *firestore.Client) *GoalRepository {
	return &GoalRepository{client: client}
}

// Create writes the goal with both timestamps set to the commit time, then
// reads it back to return the resolved values.
func (r *GoalRepository) Create(ctx context.Context, g *domain.Goal) (*domain.Goal, error) {
	ref := goalsOf(r.client, g.OwnerUID).Doc(g.ID)

	_, err := ref.Create(ctx, map[string]any{
		"text":      g.Text,
		"type":      string(g.Type),
		"status":    string(g.Status),
		"deadline":  g.Deadline,
		"public":    g.Public,
		"createdAt": firestore.ServerTimestamp,
		"updatedAt": firestore.ServerTimestamp,
	})
	if err != nil {
		if isAlreadyExists(err) {
			return nil, fmt.Errorf("insert goal: %w", domain.ErrGoalExists)
		}
		return nil, fmt.Errorf("insert goal: %w", err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read back goal: %w", err)
	}
	return goalFromSnapshot(g.OwnerUID, snap)
}

func (r *GoalRepository) Get(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error) {
	snap, err := goalsOf(r.client, ownerUID).Doc(goalID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrGoalNotFound
		}
		return nil, err
	}
	return goalFromSnapshot(ownerUID, snap)
}

// Update applies the patched fields and stamps updatedAt. Firestore rejects
// updates to missing documents, which maps to ErrGoalNotFound.
func (r *GoalRepository) Update(ctx context.Context, ownerUID, goalID string, patch domain.GoalPatch) error {
	updates := []firestore.Update{{Path: "updatedAt", Value: firestore.ServerTimestamp}}
	if patch.Text != nil {
		updates = append(updates, firestore.Update{Path: "text", Value: *patch.Text})
	}
	if patch.Type != nil {
		updates = append(updates, firestore.Update{Path: "type", Value: string(*patch.Type)})
	}
	if patch.Status != nil {
		updates = append(updates, firestore.Update{Path: "status", Value: string(*patch.Status)})
	}
	if patch.Deadline != nil {
		updates = append(updates, firestore.Update{Path: "deadline", Value: patch.Deadline.At})
	}
	if patch.Public != nil {
		updates = append(updates, firestore.Update{Path: "public", Value: *patch.Public})
	}

	if _, err := goalsOf(r.client, ownerUID).Doc(goalID).Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return domain.ErrGoalNotFound
		}
		return fmt.Errorf("update goal: %w", err)
	}
	return nil
}

func (r *GoalRepository) Delete(ctx context.Context, ownerUID, goalID string) error {
	_, err := goalsOf(r.client, ownerUID).Doc(goalID).Delete(ctx)
	return err
}

func (r *GoalRepository) List(ctx context.Context, ownerUID string, filter domain.GoalFilter) ([]*domain.Goal, error) {
	q := goalsOf(r.client, ownerUID).Query
	if filter.Type != "" {
		q = q.Where("type", "==", string(filter.Type))
	}

	snaps, err := q.OrderBy("createdAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Goal, 0, len(snaps))
	for _, snap := range snaps {
		g, err := goalFromSnapshot(ownerUID, snap)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}
