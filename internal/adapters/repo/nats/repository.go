// Package nats stores sessions in a JetStream key-value bucket so several assistant processes can
// share them. Writes use the entry revision as a compare-and-set guard.
package nats

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/bnema/meeting-assistant-cli/internal/adapters/repo/keylock"
	tomlrepo "github.com/bnema/meeting-assistant-cli/internal/adapters/repo/toml"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

const DefaultBucket = "meeting_sessions"

type Config struct {
	Bucket string
	// TTL expires idle sessions inside the bucket; zero keeps them until purged.
	TTL     time.Duration
	Storage jetstream.StorageType
}

type SessionRepository struct {
	kv    jetstream.KeyValue
	locks *keylock.Locker
}

var _ ports.SessionStore = (*SessionRepository)(nil)

func NewSessionRepository(ctx context.Context, nc *nats.Conn, cfg Config) (*SessionRepository, error) {
	if nc == nil {
		return nil, errors.New("nats connection is required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "meeting assistant sessions",
		History:     1,
		TTL:         cfg.TTL,
		Storage:     cfg.Storage,
	})
	if err != nil {
		return nil, fmt.Errorf("create session bucket %s: %w", cfg.Bucket, err)
	}

	return &SessionRepository{kv: kv, locks: keylock.New()}, nil
}

func (r *SessionRepository) Get(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	session, _, found, err := r.load(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	if !found {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	return session, nil
}

func (r *SessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lister, err := r.kv.ListKeys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return []domain.Session{}, nil
		}
		return nil, fmt.Errorf("list session keys: %w", err)
	}
	var keys []string
	for key := range lister.Keys() {
		keys = append(keys, key)
	}
	_ = lister.Stop()
	slices.Sort(keys)

	sessions := make([]domain.Session, 0, len(keys))
	for _, key := range keys {
		session, _, found, err := r.load(ctx, domain.SessionID(key))
		if err != nil {
			return nil, err
		}
		if found {
			sessions = append(sessions, session)
		}
	}

	return sessions, nil
}

func (r *SessionRepository) Update(ctx context.Context, id domain.SessionID, fn ports.UpdateFunc) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if !id.Valid() {
		return domain.Session{}, fmt.Errorf("invalid session id %q", id)
	}

	unlock, err := r.locks.Lock(ctx, string(id))
	if err != nil {
		return domain.Session{}, err
	}
	defer unlock()

	current, revision, found, err := r.load(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}

	next, err := fn(current, found)
	if err != nil {
		return domain.Session{}, err
	}
	if next.ID != id {
		return domain.Session{}, fmt.Errorf("update session %s: returned session has id %q", id, next.ID)
	}
	if err := next.Validate(); err != nil {
		return domain.Session{}, fmt.Errorf("update session %s: %w", id, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	data, err := tomlrepo.EncodeSession(next)
	if err != nil {
		return domain.Session{}, err
	}

	if found {
		_, err = r.kv.Update(ctx, string(id), data, revision)
	} else {
		_, err = r.kv.Create(ctx, string(id), data)
	}
	if err != nil {
		if isRevisionConflict(err) {
			return domain.Session{}, fmt.Errorf("update session %s: %w", id, domain.ErrConcurrentUpdate)
		}
		return domain.Session{}, fmt.Errorf("put session entry: %w", err)
	}

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

	if _, _, found, err := r.load(ctx, id); err != nil {
		return err
	} else if !found {
		return domain.ErrSessionNotFound
	}

	if err := r.kv.Purge(ctx, string(id)); err != nil {
		return fmt.Errorf("purge session entry: %w", err)
	}

	return nil
}

func (r *SessionRepository) load(ctx context.Context, id domain.SessionID) (domain.Session, uint64, bool, error) {
	if !id.Valid() {
		return domain.Session{}, 0, false, fmt.Errorf("invalid session id %q", id)
	}

	entry, err := r.kv.Get(ctx, string(id))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return domain.Session{}, 0, false, nil
		}
		return domain.Session{}, 0, false, fmt.Errorf("get session entry: %w", err)
	}

	session, err := tomlrepo.DecodeSession(entry.Value())
	if err != nil {
		return domain.Session{}, 0, false, err
	}

	return session, entry.Revision(), true, nil
}

func isRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}

	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
