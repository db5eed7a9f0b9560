package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"habitkit/internal/modules/session/domain"
	apperrors "habitkit/internal/platform/errors"
)

// memStore mimics the remote tables, including the
// UNIQUE(user_id, challenge_id, is_active) key, and lets tests fail
// individual calls.
type memStore struct {
	mu          sync.Mutex
	seq         int
	sessions    map[string]domain.Session
	reflections []domain.Reflection
	fail        map[string]error
	// beforeInsert runs outside the lock just before a session insert.
	beforeInsert func()
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]domain.Session{}, fail: map[string]error{}}
}

func (m *memStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

func (m *memStore) check(op string) error {
	return m.fail[op]
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) put(s domain.Session) domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = m.nextID("sess")
	}
	m.sessions[s.ID] = s
	return s
}

func (m *memStore) all() []domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) allReflections() []domain.Reflection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Reflection(nil), m.reflections...)
}

func (m *memStore) FindActive(_ context.Context, userID, challengeID string) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("FindActive"); err != nil {
		return nil, err
	}
	var out []domain.Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.ChallengeID == challengeID && s.InProgress() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *memStore) Insert(_ context.Context, s domain.Session) (domain.Session, error) {
	if m.beforeInsert != nil {
		m.beforeInsert()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("Insert"); err != nil {
		return domain.Session{}, err
	}
	for _, existing := range m.sessions {
		if existing.UserID == s.UserID && existing.ChallengeID == s.ChallengeID && existing.IsActive == s.IsActive {
			return domain.Session{}, fmt.Errorf("insert: %w", apperrors.ErrUniqueViolation)
		}
	}
	s.ID = m.nextID("sess")
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memStore) deleteWhere(op string, match func(domain.Session) bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(op); err != nil {
		return 0, err
	}
	var n int64
	for id, s := range m.sessions {
		if match(s) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteStale(_ context.Context, userID, challengeID string) (int64, error) {
	return m.deleteWhere("DeleteStale", func(s domain.Session) bool {
		return s.UserID == userID && s.ChallengeID == challengeID && !s.InProgress()
	})
}

func (m *memStore) DeleteInactive(_ context.Context, userID, challengeID string) (int64, error) {
	return m.deleteWhere("DeleteInactive", func(s domain.Session) bool {
		return s.UserID == userID && s.ChallengeID == challengeID && !s.IsActive
	})
}

func (m *memStore) DeleteActive(_ context.Context, userID, challengeID string) (int64, error) {
	return m.deleteWhere("DeleteActive", func(s domain.Session) bool {
		return s.UserID == userID && s.ChallengeID == challengeID && s.IsActive
	})
}

func (m *memStore) MarkCompleted(_ context.Context, userID, sessionID string, completedAt time.Time, anon bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("MarkCompleted"); err != nil {
		return false, err
	}
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID || !s.IsActive {
		return false, nil
	}
	for id, other := range m.sessions {
		if id != sessionID && other.UserID == s.UserID && other.ChallengeID == s.ChallengeID && !other.IsActive {
			return false, fmt.Errorf("update: %w", apperrors.ErrUniqueViolation)
		}
	}
	s.IsActive = false
	s.CompletedAt = &completedAt
	s.PostedAnonymously = anon
	m.sessions[sessionID] = s
	return true, nil
}

func (m *memStore) ListInProgress(_ context.Context, userID string) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("ListInProgress"); err != nil {
		return nil, err
	}
	var out []domain.Session
	for _, s := range m.sessions {
		if s.UserID == userID && s.InProgress() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *memStore) DeleteByIDs(_ context.Context, userID string, ids []string) (int64, error) {
	set := map[string]struct{}{}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return m.deleteWhere("DeleteByIDs", func(s domain.Session) bool {
		_, ok := set[s.ID]
		return ok && s.UserID == userID
	})
}

// reflections is the ReflectionStore view over the same memStore.
type reflections struct{ *memStore }

func (r reflections) Insert(_ context.Context, ref domain.Reflection) (domain.Reflection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("InsertReflection"); err != nil {
		return domain.Reflection{}, err
	}
	ref.ID = r.nextID("refl")
	r.reflections = append(r.reflections, ref)
	return ref, nil
}

func (r reflections) ListBySessionIDs(_ context.Context, userID string, ids []string) ([]domain.Reflection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check("ListBySessionIDs"); err != nil {
		return nil, err
	}
	set := map[string]struct{}{}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	var out []domain.Reflection
	for _, ref := range r.reflections {
		if _, ok := set[ref.SessionID]; ok && ref.UserID == userID {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r reflections) List(_ context.Context, userID, challengeID string) ([]domain.Reflection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Reflection
	for _, ref := range r.reflections {
		if ref.UserID == userID && (challengeID == "" || ref.ChallengeID == challengeID) {
			out = append(out, ref)
		}
	}
	return out, nil
}
