package domain

import "slices"

type MergeResult struct {
	Schema   MeetingSchema
	History  History
	Changed  []Field
	Failures []*NormalizationError
}

func (r MergeResult) HasChanges() bool {
	return len(r.Changed) > 0
}

func (r MergeResult) Touched(field Field) bool {
	return slices.Contains(r.Changed, field)
}

// Merge folds one turn's normalized candidates into the current schema.
//
// An unset field takes the winning candidate. A set field is only overwritten by an explicit
// candidate. Any change clears Confirmed and appends the new schema to history; a turn that
// changes nothing leaves history untouched.
func Merge(current MeetingSchema, history History, candidates []NormalizedCandidate, turn Turn) MergeResult {
	winners := selectWinners(candidates)

	next := current.Clone()
	var changed []Field
	for _, field := range FieldPriority {
		candidate, ok := winners[field]
		if !ok || candidate.matches(next) {
			continue
		}
		if next.IsSet(field) && !candidate.Explicit {
			continue
		}
		candidate.applyTo(&next)
		changed = append(changed, field)
	}

	result := MergeResult{Schema: next, History: history, Changed: changed}
	if len(changed) > 0 {
		result.Schema.Confirmed = false
		result.History = history.Append(result.Schema, turn)
	}

	for _, candidate := range candidates {
		if candidate.Err == nil {
			continue
		}
		if _, resolved := winners[candidate.Field]; resolved {
			continue
		}
		result.Failures = append(result.Failures, candidate.Err)
	}

	return result
}

// selectWinners picks one candidate per field: explicit beats inferred, and among candidates of
// equal precedence the later one in list order wins. Participants of equal precedence are unioned.
func selectWinners(candidates []NormalizedCandidate) map[Field]NormalizedCandidate {
	winners := make(map[Field]NormalizedCandidate, len(candidates))
	for _, candidate := range candidates {
		if !candidate.OK() {
			continue
		}

		existing, found := winners[candidate.Field]
		switch {
		case !found:
			winners[candidate.Field] = candidate
		case candidate.Explicit && !existing.Explicit:
			winners[candidate.Field] = candidate
		case candidate.Explicit != existing.Explicit:
		case candidate.Field == FieldParticipants:
			union := existing
			union.Participants = NormalizeParticipants(append(slices.Clone(existing.Participants), candidate.Participants...))
			union.Raw = existing.Raw + ", " + candidate.Raw
			winners[candidate.Field] = union
		default:
			winners[candidate.Field] = candidate
		}
	}

	return winners
}
