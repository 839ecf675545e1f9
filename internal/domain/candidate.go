package domain

import (
	"slices"
	"time"
)

// Candidate is one proposed field value as reported by an extractor.
type Candidate struct {
	Field    Field
	Raw      string
	Explicit bool
}

// NormalizedCandidate holds the canonical value of a Candidate, or Err when it could not be resolved.
type NormalizedCandidate struct {
	Field    Field
	Raw      string
	Explicit bool

	Text         string
	Participants []string
	Minutes      int

	Err *NormalizationError
}

func (c NormalizedCandidate) OK() bool {
	return c.Err == nil && c.Field.Valid()
}

func (c NormalizedCandidate) matches(s MeetingSchema) bool {
	switch c.Field {
	case FieldTitle:
		return s.Title == c.Text
	case FieldParticipants:
		return slices.Equal(NormalizeParticipants(s.Participants), NormalizeParticipants(c.Participants))
	case FieldDate:
		return s.Date == c.Text
	case FieldStartTime:
		return s.StartTime == c.Text
	case FieldDuration:
		return s.DurationMinutes == c.Minutes
	case FieldLocation:
		return s.Location == c.Text
	default:
		return true
	}
}

func (c NormalizedCandidate) applyTo(s *MeetingSchema) {
	switch c.Field {
	case FieldTitle:
		s.Title = c.Text
	case FieldParticipants:
		s.Participants = NormalizeParticipants(c.Participants)
	case FieldDate:
		s.Date = c.Text
	case FieldStartTime:
		s.StartTime = c.Text
	case FieldDuration:
		s.DurationMinutes = c.Minutes
	case FieldLocation:
		s.Location = c.Text
	}
}

type Turn struct {
	Text string
	At   time.Time
}
