package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/logging"
	"github.com/bnema/meeting-assistant-cli/internal/normalize"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

var (
	ErrEmptyPrompt      = errors.New("prompt is empty")
	ErrInvalidSessionID = errors.New("invalid session id")
)

type ConversationDeps struct {
	Store        ports.SessionStore
	Extractor    ports.Extractor
	Replies      ports.ReplyGenerator
	Availability ports.AvailabilityProvider
	Events       ports.EventCreator
	// Lookup resolves anchored dates such as "the day after the offsite"; nil leaves them unresolved.
	Lookup   ports.EventLookup
	IDs      ports.IDGenerator
	Clock    ports.Clock
	Observer ports.TurnObserver
	Logger   *logging.Logger
	Location *time.Location
}

// ConversationService runs one user turn at a time against a session: extract, normalize, merge,
// decide, call out for availability or event creation, reply, persist.
type ConversationService struct {
	store        ports.SessionStore
	extractor    ports.Extractor
	replies      ports.ReplyGenerator
	availability ports.AvailabilityProvider
	events       ports.EventCreator
	lookup       ports.EventLookup
	ids          ports.IDGenerator
	clock        ports.Clock
	observer     ports.TurnObserver
	logger       *logging.Logger
	location     *time.Location
}

func NewConversationService(deps ConversationDeps) *ConversationService {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Observer == nil {
		deps.Observer = ports.NopTurnObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Nop()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	return &ConversationService{
		store:        deps.Store,
		extractor:    deps.Extractor,
		replies:      deps.Replies,
		availability: deps.Availability,
		events:       deps.Events,
		lookup:       deps.Lookup,
		ids:          deps.IDs,
		clock:        deps.Clock,
		observer:     deps.Observer,
		logger:       deps.Logger,
		location:     deps.Location,
	}
}

func (s *ConversationService) Location() *time.Location {
	return s.location
}

// HandleTurn processes one utterance. The session is read and written under the store's
// per-session exclusion, so concurrent turns on one id are applied one after the other. Any error
// returned here means nothing was persisted.
func (s *ConversationService) HandleTurn(ctx context.Context, cmd HandleTurnCommand) (TurnResult, error) {
	started := s.clock.Now()
	outcome := ports.TurnOutcome{SessionID: cmd.SessionID}
	result, err := s.handleTurn(ctx, cmd, &outcome)

	outcome.Err = err
	outcome.Duration = s.clock.Now().Sub(started)
	s.observer.ObserveTurn(outcome)

	ctx = logging.WithSessionID(ctx, string(outcome.SessionID))
	if err != nil {
		s.logger.Warn(ctx, "turn aborted", zap.Error(err))
		return TurnResult{}, err
	}
	s.logger.Info(ctx, "turn handled",
		zap.String("state", string(result.State)),
		zap.String("action", string(result.Decision.Action)),
		zap.Int("changed", len(result.Changed)),
		zap.Bool("persisted", result.Persisted),
	)

	return result, nil
}

func (s *ConversationService) handleTurn(ctx context.Context, cmd HandleTurnCommand, outcome *ports.TurnOutcome) (TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return TurnResult{}, err
	}

	prompt := strings.TrimSpace(cmd.Prompt)
	if prompt == "" {
		return TurnResult{}, ErrEmptyPrompt
	}

	id := cmd.SessionID
	if id == "" {
		id = domain.SessionID(s.ids.NewSessionID())
	}
	if !id.Valid() {
		return TurnResult{}, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	outcome.SessionID = id

	now := s.clock.Now()
	turn := domain.Turn{Text: prompt, At: now}

	var (
		loaded domain.Session
		result TurnResult
	)
	_, err := s.store.Update(ctx, id, func(current domain.Session, found bool) (domain.Session, error) {
		if !found {
			current = domain.NewSession(id, now)
		}
		loaded = current.Clone()

		next, turnResult, err := s.advance(ctx, current, turn, outcome)
		if err != nil {
			return domain.Session{}, err
		}
		result = turnResult

		return next, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailed) && ctx.Err() == nil {
			return s.rephrase(ctx, loaded, outcome)
		}
		return TurnResult{}, fmt.Errorf("handle turn for session %s: %w", id, err)
	}

	result.Persisted = true
	return result, nil
}

func (s *ConversationService) advance(ctx context.Context, session domain.Session, turn domain.Turn, outcome *ports.TurnOutcome) (domain.Session, TurnResult, error) {
	candidates, err := s.extractor.Extract(ctx, ports.ExtractRequest{
		Text:    turn.Text,
		Schema:  session.Schema.Clone(),
		History: session.History.Clone(),
		Now:     turn.At,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Session{}, TurnResult{}, ctxErr
		}
		return domain.Session{}, TurnResult{}, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}

	ref := normalize.Reference{
		Now:      turn.At,
		Location: s.location,
		Anchors:  s.resolveAnchors(ctx, candidates, turn.At),
	}
	normalized := normalize.Normalize(candidates, ref)
	intent := domain.Interpret(turn.Text, session.Pending)
	step := domain.Advance(session, normalized, intent, turn)

	switch step.Decision.Action {
	case domain.ActionFetchAvailability:
		step, err = s.fetchAvailability(ctx, step)
	case domain.ActionCreateEvent:
		step, err = s.createEvent(ctx, step, turn)
	}
	if err != nil {
		return domain.Session{}, TurnResult{}, err
	}

	reply, err := s.replies.Generate(ctx, step.Decision, step.Schema)
	if err != nil {
		return domain.Session{}, TurnResult{}, fmt.Errorf("generate reply: %w", err)
	}

	next := session
	next.Schema = step.Schema
	next.History = step.History
	next.Pending = step.Decision
	next.LastActiveAt = domain.NormalizeTimestamp(turn.At)

	outcome.State = step.Decision.State
	outcome.Action = step.Decision.Action
	outcome.Changed = step.Merge.Changed
	outcome.Failures = len(step.Merge.Failures)
	outcome.Reopened = step.Reopened

	return next, TurnResult{
		SessionID: session.ID,
		Reply:     reply,
		State:     step.Decision.State,
		Decision:  step.Decision.Clone(),
		Schema:    step.Schema.Clone(),
		Changed:   step.Merge.Changed,
		Reopened:  step.Reopened,
	}, nil
}

func (s *ConversationService) fetchAvailability(ctx context.Context, step domain.Step) (domain.Step, error) {
	if s.availability == nil {
		return step.WithAvailabilityFailure("no calendar is configured"), nil
	}

	slots, err := s.availability.FreeIntervals(ctx, step.Schema.Date)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return step, ctxErr
		}
		s.logger.Warn(ctx, "availability fetch failed", zap.String("date", step.Schema.Date), zap.Error(err))
		return step.WithAvailabilityFailure(fmt.Errorf("%w: %w", domain.ErrAvailabilityFetchFailed, err).Error()), nil
	}

	return step.WithAvailability(slots, s.location), nil
}

func (s *ConversationService) createEvent(ctx context.Context, step domain.Step, turn domain.Turn) (domain.Step, error) {
	if s.events == nil {
		return step.WithEventFailure(&domain.EventCreationError{Reason: "no calendar is configured"}, turn), nil
	}

	eventID, err := s.events.CreateEvent(ctx, step.Schema)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return step, ctxErr
		}

		var failure *domain.EventCreationError
		if !errors.As(err, &failure) {
			failure = &domain.EventCreationError{Reason: err.Error(), Err: err}
		}
		s.logger.Warn(ctx, "event creation failed",
			zap.String("field", string(failure.ImplicatedField())),
			zap.Error(err),
		)
		return step.WithEventFailure(failure, turn), nil
	}

	return step.WithEventCreated(eventID), nil
}

// resolveAnchors looks up the events that date candidates are anchored to. Lookup failures leave
// the anchor out, which turns the candidate into a normalization failure and a targeted question.
func (s *ConversationService) resolveAnchors(ctx context.Context, candidates []domain.Candidate, now time.Time) map[string]string {
	if s.lookup == nil {
		return nil
	}

	var anchors map[string]string
	for _, candidate := range candidates {
		if candidate.Field != domain.FieldDate {
			continue
		}
		title, ok := normalize.AnchorTitle(candidate.Raw)
		if !ok {
			continue
		}
		if _, done := anchors[title]; done {
			continue
		}

		date, err := s.lookup.FindEventDate(ctx, title, now)
		if err != nil {
			s.logger.Debug(ctx, "anchor event lookup failed", zap.String("title", title), zap.Error(err))
			continue
		}
		if anchors == nil {
			anchors = map[string]string{}
		}
		anchors[title] = date
	}

	return anchors
}

func (s *ConversationService) rephrase(ctx context.Context, session domain.Session, outcome *ports.TurnOutcome) (TurnResult, error) {
	decision := domain.RephraseDecision(session.Pending)
	reply, err := s.replies.Generate(ctx, decision, session.Schema)
	if err != nil {
		return TurnResult{}, fmt.Errorf("generate reply: %w", err)
	}

	outcome.State = decision.State
	outcome.Action = decision.Action

	return TurnResult{
		SessionID: session.ID,
		Reply:     reply,
		State:     decision.State,
		Decision:  decision,
		Schema:    session.Schema.Clone(),
	}, nil
}

func (s *ConversationService) GetSession(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}

	return session, nil
}

func (s *ConversationService) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, summarize(session))
	}

	return summaries, nil
}

func (s *ConversationService) PurgeSession(ctx context.Context, id domain.SessionID) error {
	if err := s.store.Purge(ctx, id); err != nil {
		return fmt.Errorf("purge session %s: %w", id, err)
	}

	return nil
}

// PurgeIdleSessions removes sessions that have not seen a turn for longer than idleAfter. It is an
// operator action; the turn engine never purges on its own.
func (s *ConversationService) PurgeIdleSessions(ctx context.Context, idleAfter time.Duration) ([]domain.SessionID, error) {
	if idleAfter <= 0 {
		return nil, fmt.Errorf("idle threshold must be positive, got %s", idleAfter)
	}

	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	cutoff := s.clock.Now().Add(-idleAfter)
	var purged []domain.SessionID
	for _, session := range sessions {
		if !session.LastActiveAt.Before(cutoff) {
			continue
		}
		if err := s.store.Purge(ctx, session.ID); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				continue
			}
			return purged, fmt.Errorf("purge session %s: %w", session.ID, err)
		}
		purged = append(purged, session.ID)
	}

	if len(purged) > 0 {
		s.logger.Info(ctx, "purged idle sessions", zap.Int("count", len(purged)), zap.Duration("idle_after", idleAfter))
	}

	return purged, nil
}
