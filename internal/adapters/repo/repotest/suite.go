// Package repotest holds the behaviour every ports.SessionStore backend must share.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

// FullSession returns a session with every field populated, for round-trip checks.
func FullSession(id domain.SessionID) domain.Session {
	created := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	schema := domain.MeetingSchema{
		Title:           "Quarterly review",
		Participants:    []string{"John", "Mary"},
		Date:            "2026-10-23",
		StartTime:       "14:00",
		DurationMinutes: 60,
		Location:        "Room 4B",
	}

	session := domain.NewSession(id, created)
	session.Schema = schema
	session.History = domain.History{}.
		Append(domain.MeetingSchema{Participants: []string{"John"}, Date: "2026-10-23"}, domain.Turn{Text: "Schedule a meeting with John on Friday", At: created}).
		Append(schema, domain.Turn{Text: "2pm for an hour, add Mary", At: created.Add(time.Minute + 250*time.Millisecond)})
	session.Pending = domain.Decision{
		State:    domain.StateAwaitingConfirmation,
		Action:   domain.ActionOfferConfirmation,
		Slots:    []domain.Interval{{Start: created.Add(4 * time.Hour), End: created.Add(8 * time.Hour)}},
		Conflict: false,
		Failed:   []domain.Field{domain.FieldLocation},
		Reason:   "",
	}
	session.LastActiveAt = created.Add(2 * time.Minute)

	return session
}

func put(t *testing.T, store ports.SessionStore, session domain.Session) {
	t.Helper()

	_, err := store.Update(context.Background(), session.ID, func(domain.Session, bool) (domain.Session, error) {
		return session, nil
	})
	require.NoError(t, err)
}

// Run exercises a fresh store from newStore for each case.
func Run(t *testing.T, newStore func(t *testing.T) ports.SessionStore) {
	t.Run("round trip", func(t *testing.T) {
		store := newStore(t)
		want := FullSession("round-trip")
		put(t, store, want)

		got, err := store.Get(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("empty session round trip", func(t *testing.T) {
		store := newStore(t)
		want := domain.NewSession("empty", time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC))
		put(t, store, want)

		got, err := store.Get(context.Background(), want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("get unknown session", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("update reports whether the session existed", func(t *testing.T) {
		store := newStore(t)
		var seen []bool
		for i := 0; i < 2; i++ {
			_, err := store.Update(context.Background(), "s1", func(current domain.Session, found bool) (domain.Session, error) {
				seen = append(seen, found)
				if !found {
					current = domain.NewSession("s1", time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC))
				}
				return current, nil
			})
			require.NoError(t, err)
		}
		assert.Equal(t, []bool{false, true}, seen)
	})

	t.Run("failed update persists nothing", func(t *testing.T) {
		store := newStore(t)
		original := FullSession("abort")
		put(t, store, original)

		boom := errors.New("reply generation failed")
		_, err := store.Update(context.Background(), original.ID, func(current domain.Session, _ bool) (domain.Session, error) {
			current.Schema.Title = "changed"
			return current, boom
		})
		require.ErrorIs(t, err, boom)

		got, err := store.Get(context.Background(), original.ID)
		require.NoError(t, err)
		assert.Equal(t, original, got)
	})

	t.Run("invalid schema is rejected", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Update(context.Background(), "invalid", func(domain.Session, bool) (domain.Session, error) {
			session := domain.NewSession("invalid", time.Now())
			session.Schema.Date = "next friday"
			return session, nil
		})
		require.Error(t, err)

		_, err = store.Get(context.Background(), "invalid")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("cancelled context persists nothing", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		_, err := store.Update(ctx, "cancelled", func(domain.Session, bool) (domain.Session, error) {
			cancel()
			return domain.NewSession("cancelled", time.Now()), nil
		})
		require.ErrorIs(t, err, context.Canceled)

		_, err = store.Get(context.Background(), "cancelled")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("purge removes one session", func(t *testing.T) {
		store := newStore(t)
		put(t, store, FullSession("keep"))
		put(t, store, FullSession("drop"))

		require.NoError(t, store.Purge(context.Background(), "drop"))
		assert.ErrorIs(t, store.Purge(context.Background(), "drop"), domain.ErrSessionNotFound)

		_, err := store.Get(context.Background(), "drop")
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		sessions, err := store.List(context.Background())
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, domain.SessionID("keep"), sessions[0].ID)
	})

	t.Run("purged id starts over", func(t *testing.T) {
		store := newStore(t)
		put(t, store, FullSession("again"))
		require.NoError(t, store.Purge(context.Background(), "again"))

		_, err := store.Update(context.Background(), "again", func(_ domain.Session, found bool) (domain.Session, error) {
			assert.False(t, found)
			return domain.NewSession("again", time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)), nil
		})
		require.NoError(t, err)
	})

	t.Run("list is ordered by id", func(t *testing.T) {
		store := newStore(t)
		for _, id := range []domain.SessionID{"c", "a", "b"} {
			put(t, store, FullSession(id))
		}

		sessions, err := store.List(context.Background())
		require.NoError(t, err)
		ids := make([]domain.SessionID, 0, len(sessions))
		for _, session := range sessions {
			ids = append(ids, session.ID)
		}
		assert.Equal(t, []domain.SessionID{"a", "b", "c"}, ids)
	})

	t.Run("updates to one session are serialized", func(t *testing.T) {
		store := newStore(t)
		const writers = 12

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.Update(context.Background(), "counter", func(current domain.Session, found bool) (domain.Session, error) {
					if !found {
						current = domain.NewSession("counter", time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC))
					}
					current.History = current.History.Append(current.Schema, domain.Turn{Text: fmt.Sprintf("turn %d", i)})
					return current, nil
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		got, err := store.Get(context.Background(), "counter")
		require.NoError(t, err)
		assert.Len(t, got.History, writers)
	})

	t.Run("different sessions do not block each other", func(t *testing.T) {
		store := newStore(t)
		entered := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)

		go func() {
			_, err := store.Update(context.Background(), "slow", func(domain.Session, bool) (domain.Session, error) {
				close(entered)
				<-release
				return domain.NewSession("slow", time.Now()), nil
			})
			done <- err
		}()
		<-entered

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := store.Update(ctx, "fast", func(domain.Session, bool) (domain.Session, error) {
			return domain.NewSession("fast", time.Now()), nil
		})
		close(release)

		require.NoError(t, err)
		require.NoError(t, <-done)
	})
}
