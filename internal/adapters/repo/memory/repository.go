package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/bnema/meeting-assistant-cli/internal/adapters/repo/keylock"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

// SessionRepository keeps sessions in process memory. Values are cloned on the way in and out so
// callers never share slices with the store.
type SessionRepository struct {
	locks *keylock.Locker

	mu       sync.RWMutex
	sessions map[domain.SessionID]domain.Session
}

var _ ports.SessionStore = (*SessionRepository)(nil)

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		locks:    keylock.New(),
		sessions: map[domain.SessionID]domain.Session{},
	}
}

func (r *SessionRepository) Get(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	return session.Clone(), nil
}

func (r *SessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	sessions := make([]domain.Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session.Clone())
	}
	r.mu.RUnlock()

	slices.SortFunc(sessions, func(a, b domain.Session) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})

	return sessions, nil
}

func (r *SessionRepository) Update(ctx context.Context, id domain.SessionID, fn ports.UpdateFunc) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	unlock, err := r.locks.Lock(ctx, string(id))
	if err != nil {
		return domain.Session{}, err
	}
	defer unlock()

	r.mu.RLock()
	current, found := r.sessions[id]
	r.mu.RUnlock()

	next, err := fn(current.Clone(), found)
	if err != nil {
		return domain.Session{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if err := validateUpdate(id, next); err != nil {
		return domain.Session{}, err
	}

	r.mu.Lock()
	r.sessions[id] = next.Clone()
	r.mu.Unlock()

	return next.Clone(), nil
}

func (r *SessionRepository) Purge(ctx context.Context, id domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock, err := r.locks.Lock(ctx, string(id))
	if err != nil {
		return err
	}
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)

	return nil
}

func validateUpdate(id domain.SessionID, next domain.Session) error {
	if next.ID != id {
		return fmt.Errorf("update session %s: returned session has id %q", id, next.ID)
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}

	return nil
}
