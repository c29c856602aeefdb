package mongo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pbnkron/kron/internal/core/domain"
)

func TestLiteral(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "$literal", Value: "$text"}}, literal("$text"))
	assert.Equal(t, bson.D{{Key: "$literal", Value: nil}}, literal(nil))
}

func TestKeepOrNow(t *testing.T) {
	want := bson.D{{Key: "$ifNull", Value: bson.A{"$createdAt", "$$NOW"}}}
	assert.Equal(t, want, keepOrNow("createdAt"))
}

func TestRenameError_StandaloneServerIsNotRetriedWithoutTransaction(t *testing.T) {
	standalone := mongo.CommandError{Code: illegalOperation, Name: "IllegalOperation", Message: "Transaction numbers are only allowed on a replica set member or mongos"}

	err := renameError(fmt.Errorf("with transaction: %w", standalone))
	assert.ErrorIs(t, err, ErrTransactionsUnavailable)

	var cmdErr mongo.CommandError
	assert.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, int32(illegalOperation), cmdErr.Code)
}

func TestRenameError_OtherFailures(t *testing.T) {
	cause := mongo.CommandError{Code: 112, Name: "WriteConflict"}

	err := renameError(cause)
	assert.NotErrorIs(t, err, ErrTransactionsUnavailable)
	assert.ErrorContains(t, err, "rename: transaction")
}

func TestCreateFilter_ScopesByOwnerAndMatchesNoStoredGoal(t *testing.T) {
	f := createFilter(&domain.Goal{ID: "g1", OwnerUID: "u1"})

	assert.Equal(t, bson.D{
		{Key: "_id", Value: "g1"},
		{Key: "ownerUid", Value: "u1"},
		{Key: "createdAt", Value: bson.D{{Key: "$exists", Value: false}}},
	}, f)
}

func TestInsertGoalError(t *testing.T) {
	dup := mongo.CommandError{Code: 11000, Message: "E11000 duplicate key error collection: kron.goals index: _id_"}
	assert.ErrorIs(t, insertGoalError(dup), domain.ErrGoalExists)

	other := errors.New("connection reset")
	err := insertGoalError(other)
	assert.NotErrorIs(t, err, domain.ErrGoalExists)
	assert.ErrorIs(t, err, other)
}
