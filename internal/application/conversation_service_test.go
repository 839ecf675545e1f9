package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/bnema/meeting-assistant-cli/internal/adapters/repo/memory"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/logging"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
	"github.com/bnema/meeting-assistant-cli/internal/ports/mocks"
)

// Sunday 2026-10-18, 09:30 UTC.
var testNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

type conversationHarness struct {
	service      *ConversationService
	store        *memory.SessionRepository
	extractor    *mocks.MockExtractor
	replies      *mocks.MockReplyGenerator
	availability *mocks.MockAvailabilityProvider
	events       *mocks.MockEventCreator
	lookup       *mocks.MockEventLookup
	ids          *mocks.MockIDGenerator
	logger       *logging.TestLogger

	mu       sync.Mutex
	outcomes []ports.TurnOutcome
	script   map[string][]domain.Candidate
}

func newConversationHarness(t *testing.T) *conversationHarness {
	t.Helper()

	h := &conversationHarness{
		store:        memory.NewSessionRepository(),
		extractor:    mocks.NewMockExtractor(t),
		replies:      mocks.NewMockReplyGenerator(t),
		availability: mocks.NewMockAvailabilityProvider(t),
		events:       mocks.NewMockEventCreator(t),
		lookup:       mocks.NewMockEventLookup(t),
		ids:          mocks.NewMockIDGenerator(t),
		logger:       logging.NewTestLogger(),
		script:       map[string][]domain.Candidate{},
	}

	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(testNow).Maybe()

	observer := mocks.NewMockTurnObserver(t)
	observer.EXPECT().ObserveTurn(mock.Anything).Run(func(outcome ports.TurnOutcome) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.outcomes = append(h.outcomes, outcome)
	}).Maybe()

	h.extractor.EXPECT().Extract(mockAnyContext(), mock.Anything).RunAndReturn(
		func(_ context.Context, req ports.ExtractRequest) ([]domain.Candidate, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.script[req.Text], nil
		}).Maybe()

	h.replies.EXPECT().Generate(mockAnyContext(), mock.Anything, mock.Anything).RunAndReturn(
		func(_ context.Context, decision domain.Decision, _ domain.MeetingSchema) (string, error) {
			return fmt.Sprintf("%s %s", decision.Action, decision.Field), nil
		}).Maybe()

	h.service = NewConversationService(ConversationDeps{
		Store:        h.store,
		Extractor:    h.extractor,
		Replies:      h.replies,
		Availability: h.availability,
		Events:       h.events,
		Lookup:       h.lookup,
		IDs:          h.ids,
		Clock:        clock,
		Observer:     observer,
		Logger:       h.logger.Logger,
		Location:     time.UTC,
	})

	return h
}

func (h *conversationHarness) says(text string, candidates ...domain.Candidate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.script[text] = candidates
}

func (h *conversationHarness) turn(t *testing.T, id domain.SessionID, text string) TurnResult {
	t.Helper()

	result, err := h.service.HandleTurn(context.Background(), HandleTurnCommand{Prompt: text, SessionID: id})
	require.NoError(t, err)

	return result
}

func (h *conversationHarness) lastOutcome(t *testing.T) ports.TurnOutcome {
	t.Helper()

	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.outcomes)

	return h.outcomes[len(h.outcomes)-1]
}

func explicit(field domain.Field, raw string) domain.Candidate {
	return domain.Candidate{Field: field, Raw: raw, Explicit: true}
}

func utc(hour, minute int) time.Time {
	return time.Date(2026, 10, 23, hour, minute, 0, 0, time.UTC)
}

// scheduleUntilConfirmation drives a session through scenarios 1 and 2.
func scheduleUntilConfirmation(t *testing.T, h *conversationHarness, id domain.SessionID) {
	t.Helper()

	h.says("Schedule a meeting with John on Friday",
		explicit(domain.FieldParticipants, "John"),
		explicit(domain.FieldDate, "Friday"),
	)
	h.says("2pm for an hour",
		explicit(domain.FieldStartTime, "2pm"),
		explicit(domain.FieldDuration, "an hour"),
	)
	h.availability.EXPECT().FreeIntervals(mockAnyContext(), "2026-10-23").
		Return([]domain.Interval{{Start: utc(13, 0), End: utc(17, 0)}}, nil).Once()

	h.turn(t, id, "Schedule a meeting with John on Friday")
	result := h.turn(t, id, "2pm for an hour")
	require.Equal(t, domain.StateAwaitingConfirmation, result.State)
}

func TestHandleTurnFirstTurnAsksForStartTime(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	h.says("Schedule a meeting with John on Friday",
		explicit(domain.FieldParticipants, "John"),
		explicit(domain.FieldDate, "Friday"),
	)

	result := h.turn(t, "s1", "Schedule a meeting with John on Friday")

	assert.Equal(t, domain.StateCollecting, result.State)
	assert.Equal(t, domain.FieldStartTime, result.Decision.Field)
	assert.Equal(t, "ask_field start_time", result.Reply)
	assert.Equal(t, "2026-10-23", result.Schema.Date)
	assert.Equal(t, []string{"John"}, result.Schema.Participants)
	assert.True(t, result.Persisted)

	stored, err := h.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateCollecting, stored.State())
	assert.Len(t, stored.History, 1)
	assert.Equal(t, testNow, stored.CreatedAt)
	assert.Equal(t, testNow, stored.LastActiveAt)
}

func TestHandleTurnCompletingSchemaOffersConfirmation(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	scheduleUntilConfirmation(t, h, "s1")

	stored, err := h.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAwaitingConfirmation, stored.State())
	assert.Equal(t, domain.ActionOfferConfirmation, stored.Pending.Action)
	assert.False(t, stored.Pending.Conflict)
	assert.Equal(t, []domain.Interval{{Start: utc(13, 0), End: utc(17, 0)}}, stored.Pending.Slots)
	assert.False(t, stored.Schema.Confirmed)
	assert.Equal(t, "14:00", stored.Schema.StartTime)
	assert.Equal(t, 60, stored.Schema.DurationMinutes)
}

func TestHandleTurnFlagsConflictWithBusySlot(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	h.says("John, Friday 2pm for an hour",
		explicit(domain.FieldParticipants, "John"),
		explicit(domain.FieldDate, "Friday"),
		explicit(domain.FieldStartTime, "2pm"),
		explicit(domain.FieldDuration, "an hour"),
	)
	h.availability.EXPECT().FreeIntervals(mockAnyContext(), "2026-10-23").
		Return([]domain.Interval{{Start: utc(9, 0), End: utc(12, 0)}}, nil).Once()

	result := h.turn(t, "s1", "John, Friday 2pm for an hour")

	assert.Equal(t, domain.StateAwaitingConfirmation, result.State)
	assert.True(t, result.Decision.Conflict)
}

func TestHandleTurnDateChangeReentersAvailability(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	scheduleUntilConfirmation(t, h, "s1")

	h.says("actually make it Thursday", explicit(domain.FieldDate, "Thursday"))
	h.availability.EXPECT().FreeIntervals(mockAnyContext(), "2026-10-22").
		Return([]domain.Interval{{Start: utc(8, 0).AddDate(0, 0, -1), End: utc(18, 0).AddDate(0, 0, -1)}}, nil).Once()

	result := h.turn(t, "s1", "actually make it Thursday")

	assert.Equal(t, domain.StateAwaitingConfirmation, result.State)
	assert.Equal(t, "2026-10-22", result.Schema.Date)
	assert.Equal(t, []domain.Field{domain.FieldDate}, result.Changed)
	assert.False(t, result.Schema.Confirmed)
	assert.False(t, result.Decision.Conflict)
}

func TestHandleTurnAffirmationCreatesEvent(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	scheduleUntilConfirmation(t, h, "s1")

	h.events.EXPECT().CreateEvent(mockAnyContext(), mock.MatchedBy(func(schema domain.MeetingSchema) bool {
		return schema.Confirmed && schema.Date == "2026-10-23" && schema.StartTime == "14:00"
	})).Return("evt-1", nil).Once()

	result := h.turn(t, "s1", "yes, book it")

	assert.Equal(t, domain.StateDone, result.State)
	assert.Equal(t, "evt-1", result.Decision.EventID)
	assert.True(t, result.Schema.Confirmed)

	stored, err := h.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, stored.State())
	assert.True(t, stored.Schema.Confirmed)
	last, ok := stored.History.Last()
	require.True(t, ok)
	assert.True(t, last.Schema.Confirmed)
	assert.Equal(t, "yes, book it", last.Turn)
}

func TestHandleTurnEventFailureReturnsToCollecting(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	scheduleUntilConfirmation(t, h, "s1")

	h.events.EXPECT().CreateEvent(mockAnyContext(), mock.Anything).
		Return("", &domain.EventCreationError{Field: domain.FieldStartTime, Reason: "slot is taken"}).Once()

	result := h.turn(t, "s1", "yes")

	assert.Equal(t, domain.StateCollecting, result.State)
	assert.Equal(t, domain.ActionAskField, result.Decision.Action)
	assert.Equal(t, domain.FieldStartTime, result.Decision.Field)
	assert.Equal(t, "slot is taken", result.Decision.Reason)
	assert.False(t, result.Schema.Confirmed)
	assert.Empty(t, result.Schema.StartTime)

	stored, err := h.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, stored.Schema.Confirmed)
	h.logger.AssertLogged(t, zapcore.WarnLevel, "event creation failed")
}

func TestHandleTurnWrapsUntypedEventFailure(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	scheduleUntilConfirmation(t, h, "s1")

	h.events.EXPECT().CreateEvent(mockAnyContext(), mock.Anything).Return("", errors.New("calendar is read-only")).Once()

	result := h.turn(t, "s1", "confirm")

	assert.Equal(t, domain.StateCollecting, result.State)
	assert.Equal(t, domain.FieldStartTime, result.Decision.Field)
	assert.Contains(t, result.Decision.Reason, "read-only")
}

func TestHandleTurnDeclineCancels(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	scheduleUntilConfirmation(t, h, "s1")

	result := h.turn(t, "s1", "no")

	assert.Equal(t, domain.StateCancelled, result.State)
	assert.Equal(t, "report_cancelled ", result.Reply)
}

func TestHandleTurnExtractionFailureAsksToRephraseWithoutPersisting(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	scheduleUntilConfirmation(t, h, "s1")
	before, err := h.store.Get(context.Background(), "s1")
	require.NoError(t, err)

	failing := mocks.NewMockExtractor(t)
	failing.EXPECT().Extract(mockAnyContext(), mock.Anything).Return(nil, errors.New("model timed out")).Once()
	h.service.extractor = failing

	result, err := h.service.HandleTurn(context.Background(), HandleTurnCommand{Prompt: "blah", SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, domain.ActionAskRephrase, result.Decision.Action)
	assert.Equal(t, domain.StateAwaitingConfirmation, result.State)
	assert.False(t, result.Persisted)

	after, err := h.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestHandleTurnExtractionFailureOnNewSessionStoresNothing(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	failing := mocks.NewMockExtractor(t)
	failing.EXPECT().Extract(mockAnyContext(), mock.Anything).Return(nil, errors.New("bad json")).Once()
	h.service.extractor = failing

	result, err := h.service.HandleTurn(context.Background(), HandleTurnCommand{Prompt: "hmm", SessionID: "fresh"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCollecting, result.State)
	assert.Equal(t, domain.ActionAskRephrase, result.Decision.Action)

	_, err = h.store.Get(context.Background(), "fresh")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestHandleTurnAvailabilityFailurePersistsAndRetries(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	h.says("John, Friday 2pm for an hour",
		explicit(domain.FieldParticipants, "John"),
		explicit(domain.FieldDate, "Friday"),
		explicit(domain.FieldStartTime, "2pm"),
		explicit(domain.FieldDuration, "an hour"),
	)
	h.availability.EXPECT().FreeIntervals(mockAnyContext(), "2026-10-23").
		Return(nil, errors.New("calendar unreachable")).Once()

	result := h.turn(t, "s1", "John, Friday 2pm for an hour")
	assert.Equal(t, domain.StateAwaitingAvailability, result.State)
	assert.Contains(t, result.Decision.Reason, "calendar unreachable")
	assert.True(t, result.Persisted)

	stored, err := h.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateAwaitingAvailability, stored.State())
	assert.Equal(t, "14:00", stored.Schema.StartTime)

	h.availability.EXPECT().FreeIntervals(mockAnyContext(), "2026-10-23").
		Return([]domain.Interval{{Start: utc(13, 0), End: utc(17, 0)}}, nil).Once()

	result = h.turn(t, "s1", "try again")
	assert.Equal(t, domain.StateAwaitingConfirmation, result.State)
}

func TestHandleTurnReplyFailureAbortsTurn(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	h.says("with John", explicit(domain.FieldParticipants, "John"))

	failing := mocks.NewMockReplyGenerator(t)
	failing.EXPECT().Generate(mockAnyContext(), mock.Anything, mock.Anything).Return("", errors.New("rate limited")).Once()
	h.service.replies = failing

	_, err := h.service.HandleTurn(context.Background(), HandleTurnCommand{Prompt: "with John", SessionID: "s1"})
	require.ErrorContains(t, err, "generate reply")

	_, err = h.store.Get(context.Background(), "s1")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	outcome := h.lastOutcome(t)
	assert.Equal(t, domain.SessionID("s1"), outcome.SessionID)
	assert.Error(t, outcome.Err)
}

func TestHandleTurnCancelledContextPersistsNothing(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.service.HandleTurn(ctx, HandleTurnCommand{Prompt: "with John", SessionID: "s1"})
	require.ErrorIs(t, err, context.Canceled)

	sessions, err := h.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestHandleTurnValidatesInput(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)

	_, err := h.service.HandleTurn(context.Background(), HandleTurnCommand{Prompt: "   ", SessionID: "s1"})
	require.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = h.service.HandleTurn(context.Background(), HandleTurnCommand{Prompt: "hello", SessionID: "../etc"})
	require.ErrorIs(t, err, ErrInvalidSessionID)
}

func TestHandleTurnGeneratesSessionIDWhenMissing(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	h.ids.EXPECT().NewSessionID().Return("generated-1").Once()
	h.says("with John", explicit(domain.FieldParticipants, "John"))

	result := h.turn(t, "", "with John")

	assert.Equal(t, domain.SessionID("generated-1"), result.SessionID)
	_, err := h.store.Get(context.Background(), "generated-1")
	require.NoError(t, err)
}

func TestHandleTurnResolvesAnchoredDates(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	h.lookup.EXPECT().FindEventDate(mockAnyContext(), "offsite", testNow).Return("2026-10-28", nil).Once()
	h.says("the day after the offsite", explicit(domain.FieldDate, "the day after the offsite"))

	result := h.turn(t, "s1", "the day after the offsite")

	assert.Equal(t, "2026-10-29", result.Schema.Date)
}

func TestHandleTurnUnknownAnchorAsksForDate(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	h.lookup.EXPECT().FindEventDate(mockAnyContext(), "dentist", testNow).Return("", domain.ErrEventNotFound).Once()
	h.says("with John the day after the dentist",
		explicit(domain.FieldParticipants, "John"),
		explicit(domain.FieldDate, "the day after the dentist"),
	)

	result := h.turn(t, "s1", "with John the day after the dentist")

	assert.Equal(t, domain.StateCollecting, result.State)
	assert.Equal(t, domain.FieldDate, result.Decision.Field)
	assert.Equal(t, []domain.Field{domain.FieldDate}, result.Decision.Failed)
	assert.Empty(t, result.Schema.Date)
}

func TestHandleTurnReportsOutcomeToObserver(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	h.says("with John on Friday at 3",
		explicit(domain.FieldParticipants, "John"),
		explicit(domain.FieldDate, "Friday"),
		explicit(domain.FieldStartTime, "at 3"),
	)

	h.turn(t, "s1", "with John on Friday at 3")

	outcome := h.lastOutcome(t)
	assert.Equal(t, domain.SessionID("s1"), outcome.SessionID)
	assert.Equal(t, domain.StateCollecting, outcome.State)
	assert.Equal(t, domain.ActionAskField, outcome.Action)
	assert.Equal(t, []domain.Field{domain.FieldDate, domain.FieldParticipants}, outcome.Changed)
	assert.Equal(t, 1, outcome.Failures)
	assert.NoError(t, outcome.Err)
	h.logger.AssertLogged(t, zapcore.InfoLevel, "turn handled")
}

func TestHandleTurnReopensTerminalSessionOnNewRequest(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	scheduleUntilConfirmation(t, h, "s1")
	h.turn(t, "s1", "cancel")

	h.says("book another meeting with Mary", explicit(domain.FieldParticipants, "Mary"))
	result := h.turn(t, "s1", "book another meeting with Mary")

	assert.True(t, result.Reopened)
	assert.Equal(t, domain.StateCollecting, result.State)
	assert.Equal(t, []string{"Mary"}, result.Schema.Participants)
	assert.Empty(t, result.Schema.Date)
}

func TestHandleTurnSerializesTurnsOnOneSession(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	const turns = 10
	for i := 0; i < turns; i++ {
		h.says("title "+strconv.Itoa(i), explicit(domain.FieldTitle, "Title "+strconv.Itoa(i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.service.HandleTurn(context.Background(), HandleTurnCommand{Prompt: "title " + strconv.Itoa(i), SessionID: "shared"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := h.store.Get(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, stored.History, turns)
}

func TestListAndPurgeSessions(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	h.says("with John", explicit(domain.FieldParticipants, "John"))
	h.turn(t, "b", "with John")
	h.turn(t, "a", "with John")

	summaries, err := h.service.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, domain.SessionID("a"), summaries[0].ID)
	assert.Equal(t, "Meeting", summaries[0].Title)
	assert.Equal(t, []domain.Field{domain.FieldDate, domain.FieldStartTime, domain.FieldDuration}, summaries[0].Missing)
	assert.Equal(t, 1, summaries[0].Turns)

	require.NoError(t, h.service.PurgeSession(context.Background(), "a"))
	_, err = h.service.GetSession(context.Background(), "a")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	err = h.service.PurgeSession(context.Background(), "a")
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestPurgeIdleSessions(t *testing.T) {
	t.Parallel()

	h := newConversationHarness(t)
	for id, lastActive := range map[domain.SessionID]time.Time{
		"stale":  testNow.Add(-48 * time.Hour),
		"recent": testNow.Add(-time.Hour),
	} {
		session := domain.NewSession(id, lastActive)
		_, err := h.store.Update(context.Background(), id, func(domain.Session, bool) (domain.Session, error) {
			return session, nil
		})
		require.NoError(t, err)
	}

	purged, err := h.service.PurgeIdleSessions(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []domain.SessionID{"stale"}, purged)

	_, err = h.store.Get(context.Background(), "recent")
	require.NoError(t, err)

	_, err = h.service.PurgeIdleSessions(context.Background(), 0)
	require.Error(t, err)
}
