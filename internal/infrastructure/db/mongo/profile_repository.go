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

type profileDocument struct {
	UID       string    `bson:"_id"`
	Username  string    `bson:"username"`
	Email     string    `bson:"email,omitempty"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (d profileDocument) toDomain() *domain.Profile {
	return &domain.Profile{
		UID:       d.UID,
		Username:  d.Username,
		Email:     d.Email,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ProfileRepository stores one document per user in the users collection.
type ProfileRepository struct {
	col *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{col: db.Collection(collectionProfiles)}
}

func (r *ProfileRepository) Get(ctx context.Context, uid string) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc profileDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": uid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// Ensure merge-creates the profile. An existing username and createdAt are kept.
func (r *ProfileRepository) Ensure(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.D{
		{Key: "username", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$username", literal(p.Username)}}}},
		{Key: "createdAt", Value: keepOrNow("createdAt")},
		{Key: "updatedAt", Value: "$$NOW"},
	}
	if p.Email != "" {
		set = append(set, bson.E{Key: "email", Value: literal(p.Email)})
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc profileDocument
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": p.UID}, mongo.Pipeline{{{Key: "$set", Value: set}}}, opts).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ProfileRepository) SetUsername(ctx context.Context, uid, username string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "username", Value: literal(username)},
		{Key: "createdAt", Value: keepOrNow("createdAt")},
		{Key: "updatedAt", Value: "$$NOW"},
	}}}}

	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": uid}, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("set username: %w", err)
	}
	return nil
}

func (r *ProfileRepository) ListUIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}

	var docs []struct {
		UID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.UID)
	}
	return out, nil
}
