package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pbnkron/kron/internal/core/domain"
)

// illegalOperation is returned by a standalone mongod asked to start a transaction.
const illegalOperation = 20

// ErrTransactionsUnavailable is returned by RenameAuthor on a server that
// cannot run multi-document transactions (a standalone mongod).
var ErrTransactionsUnavailable = errors.New("transactions unavailable: mongo must run as a replica set")

type mirrorDocument struct {
	ID         string     `bson:"_id"`
	AuthorUID  string     `bson:"authorUid"`
	AuthorName string     `bson:"authorName"`
	Text       string     `bson:"text"`
	Type       string     `bson:"type"`
	Status     string     `bson:"status"`
	Deadline   *time.Time `bson:"deadline"`
	CreatedAt  time.Time  `bson:"createdAt"`
}

func (d mirrorDocument) toDomain() *domain.Mirror {
	return &domain.Mirror{
		ID:         d.ID,
		AuthorUID:  d.AuthorUID,
		AuthorName: d.AuthorName,
		Text:       d.Text,
		Type:       domain.GoalType(d.Type),
		Status:     domain.GoalStatus(d.Status),
		Deadline:   d.Deadline,
		CreatedAt:  d.CreatedAt,
	}
}

// MirrorRepository stores the public feed in public_goals, keyed by goal id.
type MirrorRepository struct {
	client *mongo.Client
	col    *mongo.Collection
	logger zerolog.Logger
}

func NewMirrorRepository(client *mongo.Client, db *mongo.Database, logger zerolog.Logger) *MirrorRepository {
	return &MirrorRepository{client: client, col: db.Collection(collectionMirrors), logger: logger}
}

// Upsert merges the mirror. A zero CreatedAt keeps the stored value, or takes
// the server clock when the mirror is new.
func (r *MirrorRepository) Upsert(ctx context.Context, m *domain.Mirror) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var createdAt any = keepOrNow("createdAt")
	if !m.CreatedAt.IsZero() {
		createdAt = literal(m.CreatedAt)
	}

	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "authorUid", Value: literal(m.AuthorUID)},
		{Key: "authorName", Value: literal(m.AuthorName)},
		{Key: "text", Value: literal(m.Text)},
		{Key: "type", Value: literal(string(m.Type))},
		{Key: "status", Value: literal(string(m.Status))},
		{Key: "deadline", Value: literal(m.Deadline)},
		{Key: "createdAt", Value: createdAt},
	}}}}

	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": m.ID}, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert mirror: %w", err)
	}
	return nil
}

func (r *MirrorRepository) Delete(ctx context.Context, goalID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.DeleteOne(ctx, bson.M{"_id": goalID})
	return err
}

func (r *MirrorRepository) Get(ctx context.Context, goalID string) (*domain.Mirror, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mirrorDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": goalID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrGoalNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *MirrorRepository) ListByAuthor(ctx context.Context, authorUID string) ([]*domain.Mirror, error) {
	return r.find(ctx, bson.M{"authorUid": authorUID})
}

func (r *MirrorRepository) List(ctx context.Context, filter domain.GoalFilter) ([]*domain.Mirror, error) {
	return r.find(ctx, feedQuery(filter))
}

func feedQuery(filter domain.GoalFilter) bson.M {
	q := bson.M{}
	if filter.Type != "" {
		q["type"] = string(filter.Type)
	}
	return q
}

func (r *MirrorRepository) find(ctx context.Context, q bson.M) ([]*domain.Mirror, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}

	var docs []mirrorDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]*domain.Mirror, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// RenameAuthor rewrites authorName on the listed mirrors inside one
// transaction, so either every mirror is renamed or none is. A server without
// transactions fails with ErrTransactionsUnavailable and nothing is written.
func (r *MirrorRepository) RenameAuthor(ctx context.Context, authorUID, authorName string, goalIDs []string) error {
	if len(goalIDs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": bson.M{"$in": goalIDs}, "authorUid": authorUID}
	update := bson.M{"$set": bson.M{"authorName": authorName}}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("rename: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return r.col.UpdateMany(sc, filter, update)
	})
	if err != nil {
		return renameError(err)
	}
	return nil
}

// renameError wraps a failed rename transaction.
func renameError(err error) error {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == illegalOperation {
		return fmt.Errorf("rename: %w: %w", ErrTransactionsUnavailable, err)
	}
	return fmt.Errorf("rename: transaction: %w", err)
}

// Watch emits the feed once, then again after every change to public_goals.
// It needs a replica set; the channel closes when ctx ends or the stream fails.
func (r *MirrorRepository) Watch(ctx context.Context, filter domain.GoalFilter) (<-chan []*domain.Mirror, error) {
	stream, err := r.col.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("watch feed: %w", err)
	}

	out := make(chan []*domain.Mirror, 1)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		send := func() bool {
			snap, err := r.find(ctx, feedQuery(filter))
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Error().Err(err).Msg("feed snapshot failed")
				}
				return false
			}
			select {
			case out <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}
		for stream.Next(ctx) {
			if !send() {
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			r.logger.Error().Err(err).Msg("feed change stream ended")
		}
	}()

	return out, nil
}

// EnsureIndexes creates necessary indexes on the public_goals collection.
func (r *MirrorRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "authorUid", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "createdAt", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
