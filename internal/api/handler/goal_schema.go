package handler

import (
	"encoding/json"
	"time"

	"github.com/pbnkron/kron/pkg/countdown"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

// Deadline accepts an RFC 3339 timestamp, a date ("2026-03-01"), epoch
// milliseconds, or null.
type createGoalRequest struct {
	Text       string          `json:"text"         validate:"required,max=500"`
	Type       string          `json:"type"         validate:"omitempty,oneof=one daily weekly"`
	Deadline   json.RawMessage `json:"deadline"     swaggertype:"string"`
	Public     bool            `json:"public"`
	AuthorName string          `json:"author_name"  validate:"max=80"`
}

// Absent fields are left untouched. "deadline": null clears the deadline.
type updateGoalRequest struct {
	Text     *string         `json:"text"     validate:"omitempty,max=500"`
	Type     *string         `json:"type"     validate:"omitempty,oneof=one daily weekly"`
	Status   *string         `json:"status"   validate:"omitempty,oneof=doing done miss"`
	Deadline json.RawMessage `json:"deadline" swaggertype:"string"`
	Public   *bool           `json:"public"`
}

type renameRequest struct {
	Username string `json:"username" validate:"max=80"`
}

// --- Response types ---

type goalLinks struct {
	Self      string `json:"self"`
	Countdown string `json:"countdown"`
}

type goalResponse struct {
	ID        string     `json:"id"`
	Text      string     `json:"text"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	Deadline  *time.Time `json:"deadline"`
	Public    bool       `json:"public"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Links     goalLinks  `json:"_links"`
}

type listGoalsResponse struct {
	Data []goalResponse `json:"data"`
}

type mirrorResponse struct {
	ID         string     `json:"id"`
	AuthorUID  string     `json:"author_uid"`
	AuthorName string     `json:"author_name"`
	Text       string     `json:"text"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Deadline   *time.Time `json:"deadline"`
	CreatedAt  time.Time  `json:"created_at"`
}

type feedResponse struct {
	Data []mirrorResponse `json:"data"`
}

type profileResponse struct {
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type renameResponse struct {
	Username string `json:"username"`
	Renamed  bool   `json:"renamed"`
}

// countdownResponse carries a nil State when the goal has no deadline.
type countdownResponse struct {
	GoalID   string           `json:"goal_id"`
	Deadline *time.Time       `json:"deadline"`
	State    *countdown.State `json:"state"`
	Label    string           `json:"label,omitempty"`
}

type reconcileResponse struct {
	Upserted []string `json:"upserted"`
	Deleted  []string `json:"deleted"`
}
