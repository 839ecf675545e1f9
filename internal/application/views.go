package application

import (
	"time"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

// MeetingView is the exported form of a meeting schema (JSON, YAML and TOML).
type MeetingView struct {
	Title           string   `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
	Participants    []string `json:"participants,omitempty" yaml:"participants,omitempty" toml:"participants,omitempty"`
	Date            string   `json:"date,omitempty" yaml:"date,omitempty" toml:"date,omitempty"`
	StartTime       string   `json:"start_time,omitempty" yaml:"start_time,omitempty" toml:"start_time,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty" toml:"duration_minutes,omitempty"`
	Location        string   `json:"location,omitempty" yaml:"location,omitempty" toml:"location,omitempty"`
	Confirmed       bool     `json:"confirmed" yaml:"confirmed" toml:"confirmed"`
}

type DecisionView struct {
	State    string   `json:"state" yaml:"state" toml:"state"`
	Action   string   `json:"action,omitempty" yaml:"action,omitempty" toml:"action,omitempty"`
	Field    string   `json:"field,omitempty" yaml:"field,omitempty" toml:"field,omitempty"`
	Reason   string   `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty"`
	Slots    []string `json:"free_slots,omitempty" yaml:"free_slots,omitempty" toml:"free_slots,omitempty"`
	Conflict bool     `json:"conflict,omitempty" yaml:"conflict,omitempty" toml:"conflict,omitempty"`
	EventID  string   `json:"event_id,omitempty" yaml:"event_id,omitempty" toml:"event_id,omitempty"`
	Failed   []string `json:"failed,omitempty" yaml:"failed,omitempty" toml:"failed,omitempty"`
}

type HistoryEntryView struct {
	Turn       string      `json:"turn" yaml:"turn" toml:"turn"`
	RecordedAt time.Time   `json:"recorded_at" yaml:"recorded_at" toml:"recorded_at"`
	Meeting    MeetingView `json:"meeting" yaml:"meeting" toml:"meeting"`
}

// SessionDetail is the full exported view of one session.
type SessionDetail struct {
	ID           string             `json:"id" yaml:"id" toml:"id"`
	State        string             `json:"state" yaml:"state" toml:"state"`
	Meeting      MeetingView        `json:"meeting" yaml:"meeting" toml:"meeting"`
	Missing      []string           `json:"missing,omitempty" yaml:"missing,omitempty" toml:"missing,omitempty"`
	Pending      DecisionView       `json:"pending" yaml:"pending" toml:"pending"`
	History      []HistoryEntryView `json:"history,omitempty" yaml:"history,omitempty" toml:"history,omitempty"`
	CreatedAt    time.Time          `json:"created_at" yaml:"created_at" toml:"created_at"`
	LastActiveAt time.Time          `json:"last_active_at" yaml:"last_active_at" toml:"last_active_at"`
}

// TurnView is what chat clients receive for one turn.
type TurnView struct {
	SessionID string       `json:"session_id"`
	Reply     string       `json:"reply"`
	State     string       `json:"state"`
	Decision  DecisionView `json:"decision"`
	Meeting   MeetingView  `json:"meeting"`
	Missing   []string     `json:"missing,omitempty"`
	Changed   []string     `json:"changed,omitempty"`
	Reopened  bool         `json:"reopened,omitempty"`
	Persisted bool         `json:"persisted"`
}

func NewMeetingView(schema domain.MeetingSchema) MeetingView {
	return MeetingView{
		Title:           schema.Title,
		Participants:    schema.Clone().Participants,
		Date:            schema.Date,
		StartTime:       schema.StartTime,
		DurationMinutes: schema.DurationMinutes,
		Location:        schema.Location,
		Confirmed:       schema.Confirmed,
	}
}

// NewDecisionView formats free slots as HH:MM-HH:MM in loc.
func NewDecisionView(decision domain.Decision, loc *time.Location) DecisionView {
	if loc == nil {
		loc = time.UTC
	}

	view := DecisionView{
		State:    string(decision.State),
		Action:   string(decision.Action),
		Field:    string(decision.Field),
		Reason:   decision.Reason,
		Conflict: decision.Conflict,
		EventID:  decision.EventID,
		Failed:   fieldNames(decision.Failed),
	}
	for _, slot := range decision.Slots {
		view.Slots = append(view.Slots,
			slot.Start.In(loc).Format(domain.TimeLayout)+"-"+slot.End.In(loc).Format(domain.TimeLayout))
	}

	return view
}

func NewSessionDetail(session domain.Session, loc *time.Location) SessionDetail {
	detail := SessionDetail{
		ID:           string(session.ID),
		State:        string(session.State()),
		Meeting:      NewMeetingView(session.Schema),
		Missing:      fieldNames(session.Schema.Missing()),
		Pending:      NewDecisionView(session.Pending, loc),
		CreatedAt:    session.CreatedAt,
		LastActiveAt: session.LastActiveAt,
	}
	for _, snapshot := range session.History {
		detail.History = append(detail.History, HistoryEntryView{
			Turn:       snapshot.Turn,
			RecordedAt: snapshot.RecordedAt,
			Meeting:    NewMeetingView(snapshot.Schema),
		})
	}

	return detail
}

func NewTurnView(result TurnResult, loc *time.Location) TurnView {
	return TurnView{
		SessionID: string(result.SessionID),
		Reply:     result.Reply,
		State:     string(result.State),
		Decision:  NewDecisionView(result.Decision, loc),
		Meeting:   NewMeetingView(result.Schema),
		Missing:   fieldNames(result.Schema.Missing()),
		Changed:   fieldNames(result.Changed),
		Reopened:  result.Reopened,
		Persisted: result.Persisted,
	}
}

func fieldNames(fields []domain.Field) []string {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = string(field)
	}

	return names
}
