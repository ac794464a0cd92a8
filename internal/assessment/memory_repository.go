package assessment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps sessions in process memory. Answers are kept in
// first-submission order.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	answers  map[uuid.UUID][]Answer
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[uuid.UUID]*Session),
		answers:  make(map[uuid.UUID][]Answer),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) GetActiveSession(_ context.Context, owner string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *Session
	for _, s := range r.sessions {
		if s.Owner != owner || !s.IsActive() {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryRepository) CreateSession(_ context.Context, owner string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Owner == owner && s.IsActive() {
			s.Status = StatusExpired
		}
	}
	s := &Session{
		ID:        uuid.New(),
		Owner:     owner,
		Status:    StatusActive,
		Phase:     PhaseQuestionnaire,
		StartedAt: r.now(),
	}
	r.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) GetSession(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) UpdatePhase(_ context.Context, id uuid.UUID, phase Phase, symptom string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Phase = phase
	if symptom != "" {
		s.DetectedSymptom = symptom
	}
	return nil
}

func (r *MemoryRepository) Complete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if !s.IsActive() {
		return ErrNotActive
	}
	now := r.now()
	s.Status = StatusCompleted
	s.CompletedAt = &now
	return nil
}

func (r *MemoryRepository) Expire(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if !s.IsActive() {
		return ErrNotActive
	}
	s.Status = StatusExpired
	return nil
}

func (r *MemoryRepository) UpsertAnswer(_ context.Context, sessionID uuid.UUID, a Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	now := r.now()
	a.Raw = append([]byte(nil), a.Raw...)
	list := r.answers[sessionID]
	for i := range list {
		if list[i].QuestionID == a.QuestionID {
			a.CreatedAt, a.UpdatedAt = list[i].CreatedAt, now
			list[i] = a
			return nil
		}
	}
	a.CreatedAt, a.UpdatedAt = now, now
	r.answers[sessionID] = append(list, a)
	return nil
}

func (r *MemoryRepository) GetAnswers(_ context.Context, sessionID uuid.UUID) ([]Answer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.answers[sessionID]
	out := make([]Answer, len(list))
	copy(out, list)
	return out, nil
}
