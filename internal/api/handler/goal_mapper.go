package handler

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
	"github.com/pbnkron/kron/pkg/countdown"
)

// --- Request → Service input ---

func toNewGoalInput(req createGoalRequest) (domain.NewGoalInput, error) {
	deadline, _, err := parseDeadline(req.Deadline)
	if err != nil {
		return domain.NewGoalInput{}, err
	}
	return domain.NewGoalInput{
		Text:     req.Text,
		Type:     domain.GoalType(req.Type),
		Deadline: deadline,
		IsPublic: req.Public,
	}, nil
}

func toAuthor(id domain.Identity, displayName string) ports.Author {
	return ports.Author{
		UID:         id.UID,
		DisplayName: displayName,
		Email:       id.Email,
	}
}

func toGoalPatch(req updateGoalRequest) (domain.GoalPatch, error) {
	patch := domain.GoalPatch{
		Text:   req.Text,
		Public: req.Public,
	}
	if req.Type != nil {
		t := domain.GoalType(*req.Type)
		patch.Type = &t
	}
	if req.Status != nil {
		s := domain.GoalStatus(*req.Status)
		patch.Status = &s
	}

	deadline, present, err := parseDeadline(req.Deadline)
	if err != nil {
		return domain.GoalPatch{}, err
	}
	if present {
		patch.Deadline = &domain.DeadlineChange{At: deadline}
	}
	return patch, nil
}

// parseDeadline decodes a raw JSON deadline. present is false when the field
// was omitted. A JSON null, a blank string or 0 is present with a nil time.
func parseDeadline(raw json.RawMessage) (at *time.Time, present bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, true, domain.ErrInvalidDeadline
	}
	if clearsDeadline(v) {
		return nil, true, nil
	}

	t, ok := countdown.Normalize(v)
	if !ok {
		return nil, true, domain.ErrInvalidDeadline
	}
	t = t.UTC()
	return &t, true, nil
}

func clearsDeadline(v any) bool {
	switch d := v.(type) {
	case string:
		return strings.TrimSpace(d) == ""
	case json.Number:
		f, err := d.Float64()
		return err == nil && f == 0
	}
	return false
}

// --- Domain → Response ---

func toGoalResponse(g *domain.Goal) goalResponse {
	self := "/v1/goals/" + g.ID
	return goalResponse{
		ID:        g.ID,
		Text:      g.Text,
		Type:      string(g.Type),
		Status:    string(g.Status),
		Deadline:  g.Deadline,
		Public:    g.Public,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
		Links: goalLinks{
			Self:      self,
			Countdown: self + "/countdown",
		},
	}
}

func toGoalResponses(goals []*domain.Goal) []goalResponse {
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, toGoalResponse(g))
	}
	return out
}

func toMirrorResponses(mirrors []*domain.Mirror) []mirrorResponse {
	out := make([]mirrorResponse, 0, len(mirrors))
	for _, m := range mirrors {
		out = append(out, mirrorResponse{
			ID:         m.ID,
			AuthorUID:  m.AuthorUID,
			AuthorName: m.AuthorName,
			Text:       m.Text,
			Type:       string(m.Type),
			Status:     string(m.Status),
			Deadline:   m.Deadline,
			CreatedAt:  m.CreatedAt,
		})
	}
	return out
}

func toProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		UID:       p.UID,
		Username:  p.Username,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toCountdownResponse(g *domain.Goal, now time.Time) countdownResponse {
	resp := countdownResponse{GoalID: g.ID, Deadline: g.Deadline}
	target, ok := countdown.Normalize(g.Deadline)
	if !ok {
		return resp
	}
	st := countdown.Tick(target, now)
	resp.State = &st
	resp.Label = countdown.Label(st)
	return resp
}

func toReconcileResponse(plan ports.ReconcilePlan) reconcileResponse {
	resp := reconcileResponse{
		Upserted: make([]string, 0, len(plan.Upsert)),
		Deleted:  append([]string{}, plan.Delete...),
	}
	for _, m := range plan.Upsert {
		resp.Upserted = append(resp.Upserted, m.ID)
	}
	return resp
}
