// Package memory is an in-process document store. It backs local development
// and tests, and mirrors the semantics of the hosted stores: server-side
// timestamps, merge upserts, an all-or-nothing rename batch and live feed
// snapshots.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pbnkron/kron/internal/core/domain"
	"github.com/pbnkron/kron/internal/core/ports"
)

// Store holds every collection behind a single lock.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	goals    map[string]map[string]domain.Goal
	mirrors  map[string]domain.Mirror
	profiles map[string]domain.Profile
	users    map[string]domain.User

	subMu  sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

type Option func(*Store)

// WithClock replaces the store's server clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		goals:    make(map[string]map[string]domain.Goal),
		mirrors:  make(map[string]domain.Mirror),
		profiles: make(map[string]domain.Profile),
		users:    make(map[string]domain.User),
		subs:     make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ports bundles the store for the composition root.
func (s *Store) Ports() ports.Store {
	return ports.Store{
		Goals:    GoalRepo{s},
		Mirrors:  MirrorRepo{s},
		Profiles: ProfileRepo{s},
		Feed:     MirrorRepo{s},
		Auth:     AuthRepo{s},
		Ping:     func(context.Context) error { return nil },
		Close: func(context.Context) error {
			s.closeSubscribers()
			return nil
		},
	}
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// ── goals ───────────────────────────────────────────────────────────────────

type GoalRepo struct{ s *Store }

func (r GoalRepo) Create(_ context.Context, g *domain.Goal) (*domain.Goal, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, owned := range s.goals {
		if _, taken := owned[g.ID]; taken {
			return nil, domain.ErrGoalExists
		}
	}

	stored := *g
	stored.CreatedAt = s.stamp()
	stored.UpdatedAt = stored.CreatedAt
	if s.goals[g.OwnerUID] == nil {
		s.goals[g.OwnerUID] = make(map[string]domain.Goal)
	}
	s.goals[g.OwnerUID][g.ID] = stored
	return &stored, nil
}

func (r GoalRepo) Get(_ context.Context, ownerUID, goalID string) (*domain.Goal, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.goals[ownerUID][goalID]
	if !ok {
		return nil, domain.ErrGoalNotFound
	}
	return &g, nil
}

func (r GoalRepo) Update(_ context.Context, ownerUID, goalID string, patch domain.GoalPatch) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.goals[ownerUID][goalID]
	if !ok {
		return domain.ErrGoalNotFound
	}
	updated := patch.Apply(g)
	updated.UpdatedAt = s.stamp()
	s.goals[ownerUID][goalID] = updated
	return nil
}

func (r GoalRepo) Delete(_ context.Context, ownerUID, goalID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.goals[ownerUID], goalID)
	return nil
}

func (r GoalRepo) List(_ context.Context, ownerUID string, filter domain.GoalFilter) ([]*domain.Goal, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Goal, 0, len(s.goals[ownerUID]))
	for _, g := range s.goals[ownerUID] {
		if filter.Matches(g.Type) {
			g := g
			out = append(out, &g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

// ── mirrors ─────────────────────────────────────────────────────────────────

type MirrorRepo struct{ s *Store }

func (r MirrorRepo) Upsert(_ context.Context, m *domain.Mirror) error {
	s := r.s
	s.mu.Lock()
	stored := *m
	if stored.CreatedAt.IsZero() {
		if existing, ok := s.mirrors[m.ID]; ok {
			stored.CreatedAt = existing.CreatedAt
		} else {
			stored.CreatedAt = s.stamp()
		}
	}
	s.mirrors[m.ID] = stored
	s.mu.Unlock()

	s.publish()
	return nil
}

func (r MirrorRepo) Delete(_ context.Context, goalID string) error {
	s := r.s
	s.mu.Lock()
	_, existed := s.mirrors[goalID]
	delete(s.mirrors, goalID)
	s.mu.Unlock()

	if existed {
		s.publish()
	}
	return nil
}

func (r MirrorRepo) Get(_ context.Context, goalID string) (*domain.Mirror, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mirrors[goalID]
	if !ok {
		return nil, domain.ErrGoalNotFound
	}
	return &m, nil
}

func (r MirrorRepo) ListByAuthor(_ context.Context, authorUID string) ([]*domain.Mirror, error) {
	return r.s.listMirrors(func(m domain.Mirror) bool { return m.AuthorUID == authorUID }), nil
}

// RenameAuthor validates every target before writing any, so a failure
// leaves all mirrors untouched.
func (r MirrorRepo) RenameAuthor(_ context.Context, authorUID, authorName string, goalIDs []string) error {
	s := r.s
	s.mu.Lock()
	targets := make([]string, 0, len(goalIDs))
	for _, id := range goalIDs {
		if m, ok := s.mirrors[id]; ok && m.AuthorUID == authorUID {
			targets = append(targets, id)
		}
	}
	for _, id := range targets {
		m := s.mirrors[id]
		m.AuthorName = authorName
		s.mirrors[id] = m
	}
	s.mu.Unlock()

	if len(targets) > 0 {
		s.publish()
	}
	return nil
}

func (r MirrorRepo) List(_ context.Context, filter domain.GoalFilter) ([]*domain.Mirror, error) {
	return r.s.listMirrors(func(m domain.Mirror) bool { return filter.Matches(m.Type) }), nil
}

// Watch sends the current feed immediately and again after every mirror
// write. A slow reader only ever sees the latest snapshot.
func (r MirrorRepo) Watch(ctx context.Context, filter domain.GoalFilter) (<-chan []*domain.Mirror, error) {
	s := r.s
	sub := &subscriber{
		filter: filter,
		ch:     make(chan []*domain.Mirror, 1),
	}

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.subMu.Unlock()

	sub.offer(s.listMirrors(func(m domain.Mirror) bool { return filter.Matches(m.Type) }))

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			sub.close()
		}
		s.subMu.Unlock()
	}()

	return sub.ch, nil
}

func (s *Store) listMirrors(keep func(domain.Mirror) bool) []*domain.Mirror {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Mirror, 0, len(s.mirrors))
	for _, m := range s.mirrors {
		if keep(m) {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out
}

func newerFirst(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA < idB
}

// ── feed subscribers ────────────────────────────────────────────────────────

type subscriber struct {
	mu     sync.Mutex
	filter domain.GoalFilter
	ch     chan []*domain.Mirror
	closed bool
}

// offer replaces any unread snapshot with snap.
func (sub *subscriber) offer(snap []*domain.Mirror) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- snap
}

func (sub *subscriber) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}

func (s *Store) publish() {
	s.subMu.Lock()
	subs := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subMu.Unlock()

	for _, sub := range subs {
		f := sub.filter
		sub.offer(s.listMirrors(func(m domain.Mirror) bool { return f.Matches(m.Type) }))
	}
}

func (s *Store) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, sub := range s.subs {
		sub.close()
		delete(s.subs, id)
	}
}

// ── profiles ────────────────────────────────────────────────────────────────

type ProfileRepo struct{ s *Store }

func (r ProfileRepo) Get(_ context.Context, uid string) (*domain.Profile, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[uid]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (r ProfileRepo) Ensure(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	existing, ok := s.profiles[p.UID]
	if !ok {
		stored := *p
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.profiles[p.UID] = stored
		return &stored, nil
	}

	if existing.Username == "" {
		existing.Username = p.Username
	}
	if p.Email != "" {
		existing.Email = p.Email
	}
	existing.UpdatedAt = now
	s.profiles[p.UID] = existing
	return &existing, nil
}

func (r ProfileRepo) SetUsername(_ context.Context, uid, username string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.stamp()
	p, ok := s.profiles[uid]
	if !ok {
		p = domain.Profile{UID: uid, CreatedAt: now}
	}
	p.Username = username
	p.UpdatedAt = now
	s.profiles[uid] = p
	return nil
}

func (r ProfileRepo) ListUIDs(context.Context) ([]string, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.profiles))
	for uid := range s.profiles {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out, nil
}

// ── credentials ─────────────────────────────────────────────────────────────

type AuthRepo struct{ s *Store }

func (r AuthRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r AuthRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Email]; ok {
		return nil, domain.ErrUserExists
	}
	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.users[user.Email] = stored
	return &stored, nil
}
