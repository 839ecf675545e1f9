package application

import (
	"time"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

// TurnResult is what a caller shows the user after a turn.
type TurnResult struct {
	SessionID domain.SessionID
	Reply     string
	State     domain.State
	Decision  domain.Decision
	Schema    domain.MeetingSchema
	Changed   []domain.Field
	Reopened  bool
	// Persisted is false when the turn was answered without touching the session.
	Persisted bool
}

type VoiceTurnResult struct {
	Transcript string
	Turn       TurnResult
	Audio      []byte
}

// SessionSummary is the listing view of a stored session.
type SessionSummary struct {
	ID           domain.SessionID `json:"id" yaml:"id" toml:"id"`
	State        domain.State     `json:"state" yaml:"state" toml:"state"`
	Title        string           `json:"title" yaml:"title" toml:"title"`
	Date         string           `json:"date,omitempty" yaml:"date,omitempty" toml:"date,omitempty"`
	StartTime    string           `json:"start_time,omitempty" yaml:"start_time,omitempty" toml:"start_time,omitempty"`
	Missing      []domain.Field   `json:"missing,omitempty" yaml:"missing,omitempty" toml:"missing,omitempty"`
	Turns        int              `json:"turns" yaml:"turns" toml:"turns"`
	CreatedAt    time.Time        `json:"created_at" yaml:"created_at" toml:"created_at"`
	LastActiveAt time.Time        `json:"last_active_at" yaml:"last_active_at" toml:"last_active_at"`
}

func summarize(session domain.Session) SessionSummary {
	return SessionSummary{
		ID:           session.ID,
		State:        session.State(),
		Title:        session.Schema.DisplayTitle(),
		Date:         session.Schema.Date,
		StartTime:    session.Schema.StartTime,
		Missing:      session.Schema.Missing(),
		Turns:        len(session.History),
		CreatedAt:    session.CreatedAt,
		LastActiveAt: session.LastActiveAt,
	}
}
