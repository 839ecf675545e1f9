package ports

import (
	"context"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

// UpdateFunc receives the stored session (found=false when there is none) and returns the session
// to persist. Returning an error aborts the update and nothing is written.
type UpdateFunc func(current domain.Session, found bool) (domain.Session, error)

// SessionStore persists sessions by id. Implementations run at most one Update per session id at
// a time, let different ids proceed in parallel and never hold a store-wide lock while fn runs.
type SessionStore interface {
	Get(ctx context.Context, id domain.SessionID) (domain.Session, error)
	List(ctx context.Context) ([]domain.Session, error)
	Update(ctx context.Context, id domain.SessionID, fn UpdateFunc) (domain.Session, error)
	Purge(ctx context.Context, id domain.SessionID) error
}
