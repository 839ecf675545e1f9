package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type Field string

const (
	FieldTitle        Field = "title"
	FieldParticipants Field = "participants"
	FieldDate         Field = "date"
	FieldStartTime    Field = "start_time"
	FieldDuration     Field = "duration_minutes"
	FieldLocation     Field = "location"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultTitle       = "Meeting"
	MaxDurationMinutes = 24 * 60
)

// FieldPriority is the order in which missing fields are asked for.
var FieldPriority = []Field{FieldDate, FieldStartTime, FieldDuration, FieldParticipants, FieldTitle, FieldLocation}

func ParseField(raw string) (Field, bool) {
	field := Field(strings.ToLower(strings.TrimSpace(raw)))
	switch field {
	case "duration", "duration_min", "minutes":
		return FieldDuration, true
	case "time", "start":
		return FieldStartTime, true
	case "attendees", "participant", "with":
		return FieldParticipants, true
	case "event_title", "subject":
		return FieldTitle, true
	}
	if field.Valid() {
		return field, true
	}

	return "", false
}

func (f Field) Valid() bool {
	switch f {
	case FieldTitle, FieldParticipants, FieldDate, FieldStartTime, FieldDuration, FieldLocation:
		return true
	default:
		return false
	}
}

func (f Field) Required() bool {
	switch f {
	case FieldParticipants, FieldDate, FieldStartTime, FieldDuration:
		return true
	default:
		return false
	}
}

func (f Field) Label() string {
	switch f {
	case FieldStartTime:
		return "start time"
	case FieldDuration:
		return "duration"
	default:
		return string(f)
	}
}

type MeetingSchema struct {
	Title           string
	Participants    []string
	Date            string
	StartTime       string
	DurationMinutes int
	Location        string
	Confirmed       bool
}

func ValidDate(value string) bool {
	parsed, err := time.Parse(DateLayout, value)
	return err == nil && parsed.Format(DateLayout) == value
}

func ValidStartTime(value string) bool {
	parsed, err := time.Parse(TimeLayout, value)
	return err == nil && parsed.Format(TimeLayout) == value
}

func ValidDuration(minutes int) bool {
	return minutes > 0 && minutes <= MaxDurationMinutes
}

func ValidParticipants(participants []string) bool {
	if len(participants) == 0 {
		return false
	}
	for _, participant := range participants {
		if strings.TrimSpace(participant) == "" {
			return false
		}
	}

	return true
}

func ValidText(value string) bool {
	return strings.TrimSpace(value) != ""
}

// NormalizeParticipants returns a sorted, case-insensitively de-duplicated set, nil when empty.
func NormalizeParticipants(participants []string) []string {
	out := make([]string, 0, len(participants))
	seen := make(map[string]struct{}, len(participants))
	for _, participant := range participants {
		trimmed := strings.Join(strings.Fields(participant), " ")
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}

	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})

	return out
}

func (s MeetingSchema) IsSet(field Field) bool {
	switch field {
	case FieldTitle:
		return s.Title != ""
	case FieldParticipants:
		return len(s.Participants) > 0
	case FieldDate:
		return s.Date != ""
	case FieldStartTime:
		return s.StartTime != ""
	case FieldDuration:
		return s.DurationMinutes != 0
	case FieldLocation:
		return s.Location != ""
	default:
		return false
	}
}

func (s *MeetingSchema) Clear(field Field) {
	switch field {
	case FieldTitle:
		s.Title = ""
	case FieldParticipants:
		s.Participants = nil
	case FieldDate:
		s.Date = ""
	case FieldStartTime:
		s.StartTime = ""
	case FieldDuration:
		s.DurationMinutes = 0
	case FieldLocation:
		s.Location = ""
	}
}

func (s MeetingSchema) Value(field Field) string {
	switch field {
	case FieldTitle:
		return s.Title
	case FieldParticipants:
		return strings.Join(s.Participants, ", ")
	case FieldDate:
		return s.Date
	case FieldStartTime:
		return s.StartTime
	case FieldDuration:
		if s.DurationMinutes == 0 {
			return ""
		}
		return fmt.Sprintf("%d", s.DurationMinutes)
	case FieldLocation:
		return s.Location
	default:
		return ""
	}
}

// Missing lists unset required fields in FieldPriority order.
func (s MeetingSchema) Missing() []Field {
	var missing []Field
	for _, field := range FieldPriority {
		if field.Required() && !s.IsSet(field) {
			missing = append(missing, field)
		}
	}

	return missing
}

// UnsetOptional lists unset optional fields in FieldPriority order.
func (s MeetingSchema) UnsetOptional() []Field {
	var unset []Field
	for _, field := range FieldPriority {
		if !field.Required() && !s.IsSet(field) {
			unset = append(unset, field)
		}
	}

	return unset
}

func (s MeetingSchema) IsComplete() bool {
	return len(s.Missing()) == 0
}

func (s MeetingSchema) CanConfirm() bool {
	return s.IsComplete() && s.validFields() == nil
}

func (s MeetingSchema) Validate() error {
	if err := s.validFields(); err != nil {
		return err
	}
	if s.Confirmed && !s.IsComplete() {
		return fmt.Errorf("confirmed meeting is missing %s", joinFields(s.Missing()))
	}

	return nil
}

func (s MeetingSchema) validFields() error {
	if s.Date != "" && !ValidDate(s.Date) {
		return fmt.Errorf("date %q is not in %s form", s.Date, DateLayout)
	}
	if s.StartTime != "" && !ValidStartTime(s.StartTime) {
		return fmt.Errorf("start time %q is not in %s form", s.StartTime, TimeLayout)
	}
	if s.DurationMinutes != 0 && !ValidDuration(s.DurationMinutes) {
		return fmt.Errorf("duration %d is out of range", s.DurationMinutes)
	}
	if len(s.Participants) > 0 && !ValidParticipants(s.Participants) {
		return fmt.Errorf("participants contain a blank entry")
	}

	return nil
}

func (s MeetingSchema) Clone() MeetingSchema {
	out := s
	if s.Participants != nil {
		out.Participants = slices.Clone(s.Participants)
	}

	return out
}

func (s MeetingSchema) Equal(other MeetingSchema) bool {
	return s.Title == other.Title &&
		slices.Equal(NormalizeParticipants(s.Participants), NormalizeParticipants(other.Participants)) &&
		s.Date == other.Date &&
		s.StartTime == other.StartTime &&
		s.DurationMinutes == other.DurationMinutes &&
		s.Location == other.Location &&
		s.Confirmed == other.Confirmed
}

func (s MeetingSchema) DisplayTitle() string {
	if strings.TrimSpace(s.Title) == "" {
		return DefaultTitle
	}

	return s.Title
}

func (s MeetingSchema) StartAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if !ValidDate(s.Date) || !ValidStartTime(s.StartTime) {
		return time.Time{}, fmt.Errorf("meeting start is not set")
	}

	return time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+s.StartTime, loc)
}

func (s MeetingSchema) EndAt(loc *time.Location) (time.Time, error) {
	start, err := s.StartAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	if !ValidDuration(s.DurationMinutes) {
		return time.Time{}, fmt.Errorf("meeting duration is not set")
	}

	return start.Add(time.Duration(s.DurationMinutes) * time.Minute), nil
}

func joinFields(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, string(field))
	}

	return strings.Join(parts, ", ")
}
