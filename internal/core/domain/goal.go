package domain

import (
	"strings"
	"time"
)

// GoalType is the cadence of a goal.
type GoalType string

const (
	GoalTypeOneTime GoalType = "one"
	GoalTypeDaily   GoalType = "daily"
	GoalTypeWeekly  GoalType = "weekly"
)

// Valid reports whether t is one of the known goal types.
func (t GoalType) Valid() bool {
	switch t {
	case GoalTypeOneTime, GoalTypeDaily, GoalTypeWeekly:
		return true
	}
	return false
}

// GoalStatus is the progress state of a goal.
type GoalStatus string

const (
	StatusDoing  GoalStatus = "doing"
	StatusDone   GoalStatus = "done"
	StatusMissed GoalStatus = "miss"
)

// Valid reports whether s is one of the known goal statuses.
func (s GoalStatus) Valid() bool {
	switch s {
	case StatusDoing, StatusDone, StatusMissed:
		return true
	}
	return false
}

// Goal is the authoritative private record, owned by exactly one user.
type Goal struct {
	ID        string     `json:"id"`
	OwnerUID  string     `json:"owner_uid"`
	Text      string     `json:"text"`
	Type      GoalType   `json:"type"`
	Status    GoalStatus `json:"status"`
	Deadline  *time.Time `json:"deadline"`
	Public    bool       `json:"public"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewGoalInput carries the fields a user supplies when creating a goal.
type NewGoalInput struct {
	Text     string
	Type     GoalType
	Deadline *time.Time
	IsPublic bool
}

// Validate trims the text and checks the enumerations.
func (in *NewGoalInput) Validate() error {
	in.Text = strings.TrimSpace(in.Text)
	if in.Text == "" {
		return ErrEmptyText
	}
	if in.Type == "" {
		in.Type = GoalTypeOneTime
	}
	if !in.Type.Valid() {
		return ErrInvalidGoalType
	}
	return nil
}

// DeadlineChange wraps a deadline update so that "clear the deadline" (At == nil)
// can be told apart from "leave it untouched" (no DeadlineChange at all).
type DeadlineChange struct {
	At *time.Time
}

// GoalPatch is a sparse update: nil fields are left untouched on the private record.
type GoalPatch struct {
	Text     *string
	Type     *GoalType
	Status   *GoalStatus
	Deadline *DeadlineChange
	Public   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p GoalPatch) IsEmpty() bool {
	return p.Text == nil && p.Type == nil && p.Status == nil && p.Deadline == nil && p.Public == nil
}

// Validate checks the fields present in the patch.
func (p *GoalPatch) Validate() error {
	if p.Text != nil {
		trimmed := strings.TrimSpace(*p.Text)
		if trimmed == "" {
			return ErrEmptyText
		}
		p.Text = &trimmed
	}
	if p.Type != nil && !p.Type.Valid() {
		return ErrInvalidGoalType
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// Apply returns a copy of g with the patch applied. Timestamps are not touched.
func (p GoalPatch) Apply(g Goal) Goal {
	if p.Text != nil {
		g.Text = *p.Text
	}
	if p.Type != nil {
		g.Type = *p.Type
	}
	if p.Status != nil {
		g.Status = *p.Status
	}
	if p.Deadline != nil {
		g.Deadline = p.Deadline.At
	}
	if p.Public != nil {
		g.Public = *p.Public
	}
	return g
}

// GoalFilter narrows a goal or mirror listing by type. An empty Type means all.
type GoalFilter struct {
	Type GoalType
}

// ParseGoalFilter maps the "all|one|daily|weekly" selector used by list views.
func ParseGoalFilter(s string) (GoalFilter, error) {
	switch s {
	case "", "all":
		return GoalFilter{}, nil
	}
	t := GoalType(s)
	if !t.Valid() {
		return GoalFilter{}, ErrInvalidGoalType
	}
	return GoalFilter{Type: t}, nil
}

// Matches reports whether a goal of type t passes the filter.
func (f GoalFilter) Matches(t GoalType) bool {
	return f.Type == "" || f.Type == t
}
