package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pbnkron/kron/internal/core/domain"
)

type goalDocument struct {
	ID        string     `bson:"_id"`
	OwnerUID  string     `bson:"ownerUid"`
	Text      string     `bson:"text"`
	Type      string     `bson:"type"`
	Status    string     `bson:"status"`
	Deadline  *time.Time `bson:"deadline"`
	Public    bool       `bson:"public"`
	CreatedAt time.Time  `bson:"createdAt"`
	UpdatedAt time.Time  `bson:"updatedAt"`
}

func (d goalDocument) toDomain() *domain.Goal {
	return &domain.Goal{
		ID:        d.ID,
		OwnerUID:  d.OwnerUID,
		Text:      d.Text,
		Type:      domain.GoalType(d.Type),
		Status:    domain.GoalStatus(d.Status),
		Deadline:  d.Deadline,
		Public:    d.Public,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// GoalRepository stores private goals in one collection keyed by goal id and
// scoped by ownerUid on every query.
type GoalRepository struct {
	col *mongo.Collection
}

func NewGoalRepository(db *mongo.Database) *GoalRepository {
	return &GoalRepository{col: db.Collection(collectionGoals)}
}

// Create inserts the goal with createdAt and updatedAt both taken from the
// server clock in the same operation. It never overwrites: an id already in
// use, by this owner or another, fails with domain.ErrGoalExists.
func (r *GoalRepository) Create(ctx context.Context, g *domain.Goal) (*domain.Goal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "ownerUid", Value: literal(g.OwnerUID)},
		{Key: "text", Value: literal(g.Text)},
		{Key: "type", Value: literal(string(g.Type))},
		{Key: "status", Value: literal(string(g.Status))},
		{Key: "deadline", Value: literal(g.Deadline)},
		{Key: "public", Value: g.Public},
		{Key: "createdAt", Value: "$$NOW"},
		{Key: "updatedAt", Value: "$$NOW"},
	}}}}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc goalDocument
	if err := r.col.FindOneAndUpdate(ctx, createFilter(g), update, opts).Decode(&doc); err != nil {
		return nil, insertGoalError(err)
	}
	return doc.toDomain(), nil
}

// createFilter matches no stored goal: every stored goal has createdAt. The
// upsert therefore always inserts, taking _id and ownerUid from the equality
// terms, and an existing _id surfaces as a duplicate-key error.
func createFilter(g *domain.Goal) bson.D {
	return bson.D{
		{Key: "_id", Value: g.ID},
		{Key: "ownerUid", Value: g.OwnerUID},
		{Key: "createdAt", Value: bson.D{{Key: "$exists", Value: false}}},
	}
}

func insertGoalError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert goal: %w", domain.ErrGoalExists)
	}
	return fmt.Errorf("insert goal: %w", err)
}

func (r *GoalRepository) Get(ctx context.Context, ownerUID, goalID string) (*domain.Goal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc goalDocument
	err := r.col.FindOne(ctx, bson.M{"_id": goalID, "ownerUid": ownerUID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrGoalNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// Update sets the patched fields and stamps updatedAt, even for an empty patch.
func (r *GoalRepository) Update(ctx context.Context, ownerUID, goalID string, patch domain.GoalPatch) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{}
	if patch.Text != nil {
		set["text"] = *patch.Text
	}
	if patch.Type != nil {
		set["type"] = string(*patch.Type)
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.Deadline != nil {
		set["deadline"] = patch.Deadline.At
	}
	if patch.Public != nil {
		set["public"] = *patch.Public
	}

	update := bson.M{"$currentDate": bson.M{"updatedAt": true}}
	if len(set) > 0 {
		update["$set"] = set
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": goalID, "ownerUid": ownerUID}, update)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrGoalNotFound
	}
	return nil
}

func (r *GoalRepository) Delete(ctx context.Context, ownerUID, goalID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteOne(ctx, bson.M{"_id": goalID, "ownerUid": ownerUID})
	return err
}

func (r *GoalRepository) List(ctx context.Context, ownerUID string, filter domain.GoalFilter) ([]*domain.Goal, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := bson.M{"ownerUid": ownerUID}
	if filter.Type != "" {
		q["type"] = string(filter.Type)
	}

	cur, err := r.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}

	var docs []goalDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*domain.Goal, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// EnsureIndexes creates necessary indexes on the goals collection.
func (r *GoalRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerUid", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "ownerUid", Value: 1}, {Key: "type", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
