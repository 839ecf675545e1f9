package domain

import (
	"slices"
	"strings"
	"time"
)

type SessionID string

func (id SessionID) Valid() bool {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" || len(trimmed) > 128 {
		return false
	}
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}

	return true
}

// Snapshot is one immutable history entry.
type Snapshot struct {
	Schema     MeetingSchema
	Turn       string
	RecordedAt time.Time
}

type History []Snapshot

// Append returns a new history with the snapshot added; the receiver is never mutated.
func (h History) Append(schema MeetingSchema, turn Turn) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)

	return append(out, Snapshot{
		Schema:     schema.Clone(),
		Turn:       turn.Text,
		RecordedAt: NormalizeTimestamp(turn.At),
	})
}

func (h History) Clone() History {
	if h == nil {
		return nil
	}
	out := make(History, len(h))
	for i, snapshot := range h {
		out[i] = snapshot
		out[i].Schema = snapshot.Schema.Clone()
	}

	return out
}

func (h History) Last() (Snapshot, bool) {
	if len(h) == 0 {
		return Snapshot{}, false
	}

	return h[len(h)-1], true
}

type Session struct {
	ID           SessionID
	Schema       MeetingSchema
	History      History
	Pending      Decision
	CreatedAt    time.Time
	LastActiveAt time.Time
}

func NewSession(id SessionID, now time.Time) Session {
	now = NormalizeTimestamp(now)

	return Session{
		ID:           id,
		Pending:      Decision{State: StateCollecting},
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

func (s Session) State() State {
	if s.Pending.State == "" {
		return StateCollecting
	}

	return s.Pending.State
}

func (s Session) Clone() Session {
	out := s
	out.Schema = s.Schema.Clone()
	out.History = s.History.Clone()
	out.Pending = s.Pending.Clone()

	return out
}

func (s Session) Validate() error {
	return s.Schema.Validate()
}

// NormalizeTimestamp drops the monotonic reading and location so persisted times compare equal after decoding.
func NormalizeTimestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}

	return t.UTC()
}

func cloneFields(fields []Field) []Field {
	if len(fields) == 0 {
		return nil
	}

	return slices.Clone(fields)
}
