package domain

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

type State string

const (
	StateCollecting           State = "COLLECTING"
	StateAwaitingAvailability State = "AWAITING_AVAILABILITY"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateScheduling           State = "SCHEDULING"
	StateDone                 State = "DONE"
	StateCancelled            State = "CANCELLED"
)

func (s State) Valid() bool {
	switch s {
	case StateCollecting, StateAwaitingAvailability, StateAwaitingConfirmation, StateScheduling, StateDone, StateCancelled:
		return true
	default:
		return false
	}
}

func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

type Action string

const (
	ActionAskField          Action = "ask_field"
	ActionFetchAvailability Action = "fetch_availability"
	ActionOfferConfirmation Action = "offer_confirmation"
	ActionCreateEvent       Action = "create_event"
	ActionReportDone        Action = "report_done"
	ActionReportCancelled   Action = "report_cancelled"
	ActionAskRephrase       Action = "ask_rephrase"
)

type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Contains(start, end time.Time) bool {
	return !start.Before(i.Start) && !end.After(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Decision is the decider's output and doubles as the session's pending action.
type Decision struct {
	State    State
	Action   Action
	Field    Field
	Reason   string
	Slots    []Interval
	Conflict bool
	EventID  string
	Failed   []Field
}

func (d Decision) Clone() Decision {
	out := d
	if d.Slots != nil {
		out.Slots = slices.Clone(d.Slots)
	}
	out.Failed = cloneFields(d.Failed)

	return out
}

type Intent string

const (
	IntentNone    Intent = ""
	IntentAffirm  Intent = "affirm"
	IntentDecline Intent = "decline"
	IntentCancel  Intent = "cancel"
)

var (
	affirmPattern   = phrasePattern("yes", "yeah", "yep", "confirm", "confirmed", "schedule it", "book it", "that works", "sounds good", "go ahead", "please do", "sure", "ok", "okay", "that's right", "correct", "exactly", "no problem", "no worries")
	declinePattern  = phrasePattern("no", "nope", "nah", "don't", "do not", "not that")
	cancelPattern   = phrasePattern("cancel", "never mind", "nevermind", "forget it", "abort")
	requestPattern  = phrasePattern("schedule", "book", "set up", "arrange", "reschedule", "meeting", "meet", "call", "appointment", "another", "new")
	apostropheStyle = strings.NewReplacer("’", "'", "‘", "'")
)

func phrasePattern(phrases ...string) *regexp.Regexp {
	quoted := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		quoted = append(quoted, regexp.QuoteMeta(phrase))
	}

	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Interpret reads yes/no replies in the context of the pending decision. A bare "yes" only
// counts while a confirmation is being awaited; cancel phrases count in any non-terminal state.
func Interpret(text string, pending Decision) Intent {
	text = apostropheStyle.Replace(text)
	if pending.State.Terminal() {
		return IntentNone
	}
	if cancelPattern.MatchString(text) {
		return IntentCancel
	}
	if pending.State != StateAwaitingConfirmation {
		return IntentNone
	}

	// When both appear, the earlier phrase leads the reply ("yes, no changes" confirms).
	affirm := affirmPattern.FindStringIndex(text)
	decline := declinePattern.FindStringIndex(text)
	switch {
	case affirm != nil && (decline == nil || affirm[0] <= decline[0]):
		return IntentAffirm
	case decline != nil:
		return IntentDecline
	}

	return IntentNone
}

// MentionsRequest reports whether the text reads like a new scheduling request.
func MentionsRequest(text string) bool {
	return requestPattern.MatchString(text)
}

// Step is the outcome of one turn before any external call resolves it.
type Step struct {
	Schema   MeetingSchema
	History  History
	Decision Decision
	Merge    MergeResult
	Reopened bool
}

// Advance merges a turn into the session and decides the next action.
func Advance(session Session, candidates []NormalizedCandidate, intent Intent, turn Turn) Step {
	previous := session.Pending
	if previous.State == "" {
		previous.State = StateCollecting
	}
	schema := session.Schema.Clone()
	history := session.History

	step := Step{}
	if previous.State.Terminal() {
		if !anyResolved(candidates) && !MentionsRequest(turn.Text) {
			return Step{Schema: schema, History: history, Decision: terminalDecision(previous)}
		}
		schema = MeetingSchema{}
		history = history.Append(schema, turn)
		previous = Decision{State: StateCollecting}
		intent = IntentNone
		step.Reopened = true
	}

	if intent == IntentCancel {
		step.Schema = schema
		step.History = history
		step.Decision = Decision{State: StateCancelled, Action: ActionReportCancelled}
		return step
	}

	merged := Merge(schema, history, candidates, turn)
	step.Merge = merged
	step.Schema = merged.Schema
	step.History = merged.History
	step.Decision = decide(previous, merged, intent)

	if step.Decision.State == StateScheduling {
		step.Schema.Confirmed = true
		step.History = step.History.Append(step.Schema, turn)
	}

	return step
}

func decide(previous Decision, merged MergeResult, intent Intent) Decision {
	schema := merged.Schema
	failed := failedFields(merged.Failures)

	if previous.State == StateAwaitingConfirmation && !merged.HasChanges() {
		switch intent {
		case IntentAffirm:
			if schema.CanConfirm() {
				return Decision{State: StateScheduling, Action: ActionCreateEvent}
			}
		case IntentDecline:
			return Decision{State: StateCancelled, Action: ActionReportCancelled}
		}
	}

	if missing := schema.Missing(); len(missing) > 0 {
		return Decision{State: StateCollecting, Action: ActionAskField, Field: askFor(missing, failed), Failed: failed}
	}

	if len(failed) > 0 {
		state := previous.State
		if state != StateAwaitingConfirmation && state != StateAwaitingAvailability {
			state = StateCollecting
		}
		return Decision{State: state, Action: ActionAskField, Field: failed[0], Failed: failed, Slots: previous.Slots, Conflict: previous.Conflict}
	}

	if previous.State == StateAwaitingConfirmation && !merged.HasChanges() {
		return Decision{State: StateAwaitingConfirmation, Action: ActionOfferConfirmation, Slots: previous.Slots, Conflict: previous.Conflict}
	}

	return Decision{State: StateAwaitingAvailability, Action: ActionFetchAvailability}
}

// WithAvailability moves an availability request to awaiting confirmation.
func (s Step) WithAvailability(slots []Interval, loc *time.Location) Step {
	var normalized []Interval
	for _, slot := range slots {
		normalized = append(normalized, Interval{Start: NormalizeTimestamp(slot.Start), End: NormalizeTimestamp(slot.End)})
	}
	decision := Decision{State: StateAwaitingConfirmation, Action: ActionOfferConfirmation, Slots: normalized}
	start, startErr := s.Schema.StartAt(loc)
	end, endErr := s.Schema.EndAt(loc)
	if startErr == nil && endErr == nil {
		decision.Conflict = !slices.ContainsFunc(slots, func(slot Interval) bool {
			return slot.Contains(start, end)
		})
	}
	s.Decision = decision

	return s
}

// WithAvailabilityFailure keeps the session waiting for availability so the next turn retries.
func (s Step) WithAvailabilityFailure(reason string) Step {
	s.Decision = Decision{State: StateAwaitingAvailability, Action: ActionFetchAvailability, Reason: reason}
	return s
}

func (s Step) WithEventCreated(eventID string) Step {
	s.Decision = Decision{State: StateDone, Action: ActionReportDone, EventID: eventID}
	return s
}

// WithEventFailure reopens collecting for the implicated field with the confirmation withdrawn.
func (s Step) WithEventFailure(failure *EventCreationError, turn Turn) Step {
	field := failure.ImplicatedField()
	schema := s.Schema.Clone()
	schema.Confirmed = false
	schema.Clear(field)

	s.Schema = schema
	s.History = s.History.Append(schema, turn)
	s.Decision = Decision{State: StateCollecting, Action: ActionAskField, Field: field, Reason: failure.Reason}

	return s
}

// RephraseDecision keeps the pending state and asks the user to say it again.
func RephraseDecision(pending Decision) Decision {
	out := pending.Clone()
	if out.State == "" {
		out.State = StateCollecting
	}
	out.Action = ActionAskRephrase

	return out
}

func terminalDecision(previous Decision) Decision {
	if previous.State == StateDone {
		return Decision{State: StateDone, Action: ActionReportDone, EventID: previous.EventID}
	}

	return Decision{State: StateCancelled, Action: ActionReportCancelled}
}

func askFor(missing []Field, failed []Field) Field {
	for _, field := range missing {
		if slices.Contains(failed, field) {
			return field
		}
	}

	return missing[0]
}

func failedFields(failures []*NormalizationError) []Field {
	var fields []Field
	for _, field := range FieldPriority {
		for _, failure := range failures {
			if failure.Field == field && !slices.Contains(fields, field) {
				fields = append(fields, field)
			}
		}
	}

	return fields
}

func anyResolved(candidates []NormalizedCandidate) bool {
	return slices.ContainsFunc(candidates, NormalizedCandidate.OK)
}
