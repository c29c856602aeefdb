package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyText          = errors.New("goal text must not be empty")
	ErrInvalidGoalType    = errors.New("invalid goal type")
	ErrInvalidStatus      = errors.New("invalid goal status")
	ErrGoalNotFound       = errors.New("goal not found")
	ErrGoalExists         = errors.New("goal id already in use")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrCreateInFlight     = errors.New("a goal create is already in flight")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidUsername    = errors.New("username must not be empty")
	ErrMirrorSync         = errors.New("public mirror out of sync")
	ErrInvalidDeadline    = errors.New("invalid deadline")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
)

// MirrorStep names the mirror write that failed after the private write settled.
type MirrorStep string

const (
	StepMirrorUpsert MirrorStep = "mirror_upsert"
	StepMirrorDelete MirrorStep = "mirror_delete"
)

// MirrorSyncError reports a partial failure: the private record was written
// but the mirror write did not land. It is not rolled back.
type MirrorSyncError struct {
	GoalID string
	Step   MirrorStep
	Err    error
}

func (e *MirrorSyncError) Error() string {
	return fmt.Sprintf("%s for goal %s: %v", e.Step, e.GoalID, e.Err)
}

func (e *MirrorSyncError) Unwrap() []error {
	return []error{ErrMirrorSync, e.Err}
}
