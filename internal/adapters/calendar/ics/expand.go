package ics

import (
	"slices"
	"time"

	"github.com/teambition/rrule-go"
)

const maxOccurrencesPerEvent = 5000

// Occurrence is one concrete instance of a calendar event.
type Occurrence struct {
	UID         string
	Summary     string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Transparent bool
}

// Busy reports whether the occurrence blocks time. All-day entries are treated as markers
// (holidays, birthdays, offsites) rather than as busy time.
func (o Occurrence) Busy() bool {
	return !o.AllDay && !o.Transparent && o.End.After(o.Start)
}

func (o Occurrence) overlaps(from, to time.Time) bool {
	if o.End.Equal(o.Start) {
		return !o.Start.Before(from) && o.Start.Before(to)
	}
	return o.Start.Before(to) && o.End.After(from)
}

// expand returns the occurrences overlapping [from, to) in start order.
func expand(events []event, from, to time.Time, loc *time.Location) []Occurrence {
	overridden := map[string]map[int64]bool{}
	for _, ev := range events {
		if ev.RecurrenceID == nil {
			continue
		}
		if overridden[ev.UID] == nil {
			overridden[ev.UID] = map[int64]bool{}
		}
		overridden[ev.UID][ev.RecurrenceID.Unix()] = true
	}

	var out []Occurrence
	for _, ev := range events {
		if ev.RRule == "" || ev.RecurrenceID != nil {
			occ := occurrence(ev, ev.Start, ev.End, loc)
			if occ.overlaps(from, to) {
				out = append(out, occ)
			}
			continue
		}
		out = append(out, expandRecurring(ev, overridden[ev.UID], from, to, loc)...)
	}

	slices.SortStableFunc(out, func(a, b Occurrence) int {
		return a.Start.Compare(b.Start)
	})

	return out
}

func expandRecurring(ev event, overridden map[int64]bool, from, to time.Time, loc *time.Location) []Occurrence {
	rule, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		// Keep at least the first instance of an event whose rule cannot be read.
		occ := occurrence(ev, ev.Start, ev.End, loc)
		if occ.overlaps(from, to) {
			return []Occurrence{occ}
		}
		return nil
	}
	rule.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	length := ev.End.Sub(ev.Start)
	starts := set.Between(from.Add(-length).In(ev.Start.Location()), to.In(ev.Start.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
	}

	var out []Occurrence
	for _, start := range starts {
		if overridden[start.Unix()] {
			continue
		}
		end := start.Add(length)
		if ev.AllDay {
			start = onDate(start, loc)
			end = start.AddDate(0, 0, max(1, int(length/(24*time.Hour))))
		}
		occ := occurrence(ev, start, end, loc)
		if occ.overlaps(from, to) {
			out = append(out, occ)
		}
	}

	return out
}

func occurrence(ev event, start, end time.Time, loc *time.Location) Occurrence {
	return Occurrence{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Location:    ev.Location,
		Start:       start.In(loc),
		End:         end.In(loc),
		AllDay:      ev.AllDay,
		Transparent: ev.Transparent,
	}
}
