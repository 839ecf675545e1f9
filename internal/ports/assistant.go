package ports

import (
	"context"
	"io"
	"time"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

type ExtractRequest struct {
	Text    string
	Schema  domain.MeetingSchema
	History domain.History
	Now     time.Time
}

// Extractor proposes candidate field values for one user turn. The returned order is meaningful:
// among candidates of equal precedence for a field, the later one wins.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) ([]domain.Candidate, error)
}

// ReplyGenerator renders the user-facing reply for a decision.
type ReplyGenerator interface {
	Generate(ctx context.Context, decision domain.Decision, schema domain.MeetingSchema) (string, error)
}

type AvailabilityProvider interface {
	// FreeIntervals returns the ordered free intervals for a date in domain.DateLayout.
	FreeIntervals(ctx context.Context, date string) ([]domain.Interval, error)
}

type EventCreator interface {
	CreateEvent(ctx context.Context, schema domain.MeetingSchema) (string, error)
}

type EventLookup interface {
	// FindEventDate returns the date of the first event on or after from whose title matches.
	FindEventDate(ctx context.Context, title string, from time.Time) (string, error)
}

type SpeechToText interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type TurnOutcome struct {
	SessionID domain.SessionID
	State     domain.State
	Action    domain.Action
	Changed   []domain.Field
	Failures  int
	Reopened  bool
	Err       error
	Duration  time.Duration
}

// TurnObserver is notified after every turn, successful or not.
type TurnObserver interface {
	ObserveTurn(outcome TurnOutcome)
}

type NopTurnObserver struct{}

func (NopTurnObserver) ObserveTurn(TurnOutcome) {}
