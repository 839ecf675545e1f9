package toml

import (
	"fmt"
	"time"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version int           `toml:"version"`
	Session sessionSchema `toml:"session"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported session schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type sessionSchema struct {
	ID           string           `toml:"id"`
	CreatedAt    string           `toml:"created_at"`
	LastActiveAt string           `toml:"last_active_at"`
	Meeting      meetingSchema    `toml:"meeting"`
	Pending      decisionSchema   `toml:"pending"`
	History      []snapshotSchema `toml:"history,omitempty"`
}

type meetingSchema struct {
	Title           string   `toml:"title,omitempty"`
	Participants    []string `toml:"participants,omitempty"`
	Date            string   `toml:"date,omitempty"`
	StartTime       string   `toml:"start_time,omitempty"`
	DurationMinutes int      `toml:"duration_minutes,omitempty"`
	Location        string   `toml:"location,omitempty"`
	Confirmed       bool     `toml:"confirmed"`
}

type decisionSchema struct {
	State    string           `toml:"state"`
	Action   string           `toml:"action,omitempty"`
	Field    string           `toml:"field,omitempty"`
	Reason   string           `toml:"reason,omitempty"`
	Slots    []intervalSchema `toml:"slots,omitempty"`
	Conflict bool             `toml:"conflict"`
	EventID  string           `toml:"event_id,omitempty"`
	Failed   []string         `toml:"failed,omitempty"`
}

type intervalSchema struct {
	Start string `toml:"start"`
	End   string `toml:"end"`
}

type snapshotSchema struct {
	Meeting    meetingSchema `toml:"meeting"`
	Turn       string        `toml:"turn"`
	RecordedAt string        `toml:"recorded_at,omitempty"`
}

func toSchema(session domain.Session) sessionSchema {
	encoded := sessionSchema{
		ID:           string(session.ID),
		CreatedAt:    formatTime(session.CreatedAt),
		LastActiveAt: formatTime(session.LastActiveAt),
		Meeting:      toMeetingSchema(session.Schema),
		Pending:      toDecisionSchema(session.Pending),
	}
	for _, snapshot := range session.History {
		encoded.History = append(encoded.History, snapshotSchema{
			Meeting:    toMeetingSchema(snapshot.Schema),
			Turn:       snapshot.Turn,
			RecordedAt: formatTime(snapshot.RecordedAt),
		})
	}

	return encoded
}

func fromSchema(encoded sessionSchema) (domain.Session, error) {
	session := domain.Session{
		ID:           domain.SessionID(encoded.ID),
		Schema:       fromMeetingSchema(encoded.Meeting),
		CreatedAt:    parseTime(encoded.CreatedAt),
		LastActiveAt: parseTime(encoded.LastActiveAt),
	}

	pending, err := fromDecisionSchema(encoded.Pending)
	if err != nil {
		return domain.Session{}, fmt.Errorf("decode session %s: %w", encoded.ID, err)
	}
	session.Pending = pending

	for _, snapshot := range encoded.History {
		session.History = append(session.History, domain.Snapshot{
			Schema:     fromMeetingSchema(snapshot.Meeting),
			Turn:       snapshot.Turn,
			RecordedAt: parseTime(snapshot.RecordedAt),
		})
	}

	return session, nil
}

func toMeetingSchema(schema domain.MeetingSchema) meetingSchema {
	return meetingSchema{
		Title:           schema.Title,
		Participants:    schema.Participants,
		Date:            schema.Date,
		StartTime:       schema.StartTime,
		DurationMinutes: schema.DurationMinutes,
		Location:        schema.Location,
		Confirmed:       schema.Confirmed,
	}
}

func fromMeetingSchema(encoded meetingSchema) domain.MeetingSchema {
	return domain.MeetingSchema{
		Title:           encoded.Title,
		Participants:    encoded.Participants,
		Date:            encoded.Date,
		StartTime:       encoded.StartTime,
		DurationMinutes: encoded.DurationMinutes,
		Location:        encoded.Location,
		Confirmed:       encoded.Confirmed,
	}
}

func toDecisionSchema(decision domain.Decision) decisionSchema {
	encoded := decisionSchema{
		State:    string(decision.State),
		Action:   string(decision.Action),
		Field:    string(decision.Field),
		Reason:   decision.Reason,
		Conflict: decision.Conflict,
		EventID:  decision.EventID,
	}
	for _, slot := range decision.Slots {
		encoded.Slots = append(encoded.Slots, intervalSchema{Start: formatTime(slot.Start), End: formatTime(slot.End)})
	}
	for _, field := range decision.Failed {
		encoded.Failed = append(encoded.Failed, string(field))
	}

	return encoded
}

func fromDecisionSchema(encoded decisionSchema) (domain.Decision, error) {
	state := domain.State(encoded.State)
	if state != "" && !state.Valid() {
		return domain.Decision{}, fmt.Errorf("unknown state %q", encoded.State)
	}

	decision := domain.Decision{
		State:    state,
		Action:   domain.Action(encoded.Action),
		Field:    domain.Field(encoded.Field),
		Reason:   encoded.Reason,
		Conflict: encoded.Conflict,
		EventID:  encoded.EventID,
	}
	for _, slot := range encoded.Slots {
		decision.Slots = append(decision.Slots, domain.Interval{Start: parseTime(slot.Start), End: parseTime(slot.End)})
	}
	for _, field := range encoded.Failed {
		decision.Failed = append(decision.Failed, domain.Field(field))
	}

	return decision, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return domain.NormalizeTimestamp(parsed)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return domain.NormalizeTimestamp(value).Format(time.RFC3339Nano)
}
