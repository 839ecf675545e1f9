// Package normalize turns raw candidate strings into canonical field values.
//
// Every function here is pure: relative expressions resolve against Reference.Now in
// Reference.Location, never against the wall clock, and the same input always yields the same
// output. Anything that cannot be resolved confidently becomes a failure marker.
package normalize

import (
	"errors"
	"strings"
	"time"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

// Reference is the context relative expressions are resolved against.
type Reference struct {
	Now      time.Time
	Location *time.Location
	// Anchors maps lower-cased event titles to dates in domain.DateLayout, for phrases such as
	// "the day after the offsite".
	Anchors map[string]string
}

func (r Reference) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}

	return r.Location
}

// today is local midnight of the reference day.
func (r Reference) today() time.Time {
	now := r.Now.In(r.location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func Normalize(candidates []domain.Candidate, ref Reference) []domain.NormalizedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	out := make([]domain.NormalizedCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, One(candidate, ref))
	}

	return out
}

// One normalizes a single candidate.
func One(candidate domain.Candidate, ref Reference) domain.NormalizedCandidate {
	out := domain.NormalizedCandidate{Field: candidate.Field, Raw: candidate.Raw, Explicit: candidate.Explicit}

	var err error
	switch candidate.Field {
	case domain.FieldDate:
		out.Text, err = Date(candidate.Raw, ref)
	case domain.FieldStartTime:
		out.Text, err = StartTime(candidate.Raw)
	case domain.FieldDuration:
		out.Minutes, err = Duration(candidate.Raw)
	case domain.FieldParticipants:
		out.Participants, err = Participants(candidate.Raw)
	case domain.FieldTitle, domain.FieldLocation:
		out.Text, err = Text(candidate.Raw)
	default:
		err = errors.New("unknown field")
	}
	if err != nil {
		out.Text, out.Minutes, out.Participants = "", 0, nil
		out.Err = &domain.NormalizationError{Field: candidate.Field, Raw: candidate.Raw, Reason: err.Error()}
	}

	return out
}

// Participants splits a list of names; names are kept as display names.
func Participants(raw string) ([]string, error) {
	cleaned := strings.TrimSpace(raw)
	lower := strings.ToLower(cleaned)
	for _, prefix := range []string{"with ", "invite ", "and "} {
		if strings.HasPrefix(lower, prefix) {
			cleaned = cleaned[len(prefix):]
			lower = lower[len(prefix):]
		}
	}

	parts := participantSeparator.Split(cleaned, -1)
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.Trim(strings.TrimSpace(part), `"'.`)
		switch strings.ToLower(name) {
		case "", "me", "myself", "i":
			continue
		}
		names = append(names, name)
	}

	names = domain.NormalizeParticipants(names)
	if len(names) == 0 {
		return nil, errors.New("no participant names")
	}

	return names, nil
}

// Text collapses whitespace and strips surrounding quotes.
func Text(raw string) (string, error) {
	text := strings.Join(strings.Fields(raw), " ")
	text = strings.Trim(text, `"'“”‘’`)
	text = strings.TrimSpace(text)
	if !domain.ValidText(text) {
		return "", errors.New("empty value")
	}

	return text, nil
}

// clean lower-cases and strips filler punctuation shared by the date, time and duration parsers.
func clean(raw string) string {
	text := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	text = strings.Trim(text, " .,!?;")
	text = strings.ReplaceAll(text, "’", "'")

	return text
}

func trimPrefixes(text string, prefixes ...string) string {
	for {
		trimmed := text
		for _, prefix := range prefixes {
			trimmed = strings.TrimPrefix(trimmed, prefix)
		}
		if trimmed == text {
			return text
		}
		text = trimmed
	}
}
