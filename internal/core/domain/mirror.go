package domain

import "time"

// Mirror is the public, denormalized copy of a Goal shown in the shared feed.
// It shares the Goal's ID and exists only while the Goal is public.
type Mirror struct {
	ID         string     `json:"id"`
	AuthorUID  string     `json:"author_uid"`
	AuthorName string     `json:"author_name"`
	Text       string     `json:"text"`
	Type       GoalType   `json:"type"`
	Status     GoalStatus `json:"status"`
	Deadline   *time.Time `json:"deadline"`
	// CreatedAt is copied from the source goal. A zero value asks the store to
	// stamp its own clock on first write.
	CreatedAt time.Time `json:"created_at"`
}

// MirrorOf projects a goal into its mirror for the given author name.
func MirrorOf(g Goal, authorName string) Mirror {
	return Mirror{
		ID:         g.ID,
		AuthorUID:  g.OwnerUID,
		AuthorName: authorName,
		Text:       g.Text,
		Type:       g.Type,
		Status:     g.Status,
		Deadline:   g.Deadline,
		CreatedAt:  g.CreatedAt,
	}
}

// InSync reports whether m carries the same projected fields as want.
// CreatedAt is ignored: stores differ in timestamp precision.
func (m Mirror) InSync(want Mirror) bool {
	return m.ID == want.ID &&
		m.AuthorUID == want.AuthorUID &&
		m.AuthorName == want.AuthorName &&
		m.Text == want.Text &&
		m.Type == want.Type &&
		m.Status == want.Status &&
		sameInstant(m.Deadline, want.Deadline)
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Truncate(time.Millisecond).Equal(b.Truncate(time.Millisecond))
}
