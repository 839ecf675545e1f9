package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// event is one VEVENT as read from a calendar, before recurrence expansion.
type event struct {
	UID         string
	Summary     string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Transparent bool
	RRule       string
	ExDates     []time.Time
	// RecurrenceID is set on an edited instance of a recurring event.
	RecurrenceID *time.Time
}

func parseEvents(body []byte, loc *time.Location) ([]event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var events []event
	for _, ve := range cal.Events() {
		ev, ok := parseVEvent(ve, loc)
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	return events, nil
}

// parseVEvent skips cancelled events and events without a usable start.
func parseVEvent(ve *ical.VEvent, loc *time.Location) (event, bool) {
	var ev event
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		ev.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		return event{}, false
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyTransp); p != nil && strings.EqualFold(p.Value, "TRANSPARENT") {
		ev.Transparent = true
	}

	startProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if startProp == nil {
		return event{}, false
	}
	ev.AllDay = isDateValue(startProp)

	if ev.AllDay {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return event{}, false
		}
		ev.Start = onDate(start, loc)
		ev.End = ev.Start.AddDate(0, 0, 1)
		if end, err := ve.GetAllDayEndAt(); err == nil && onDate(end, loc).After(ev.Start) {
			ev.End = onDate(end, loc)
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return event{}, false
		}
		ev.Start = floating(start, startProp, loc)
		ev.End = ev.Start
		if end, err := ve.GetEndAt(); err == nil {
			ev.End = floating(end, ve.GetProperty(ical.ComponentPropertyDtEnd), loc)
		}
		if ev.End.Before(ev.Start) {
			ev.End = ev.Start
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseTimeValue(strings.TrimSpace(part), p.ICalParameters, loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, err := parseTimeValue(p.Value, p.ICalParameters, loc); err == nil {
			ev.RecurrenceID = &t
		}
	}

	return ev, true
}

func isDateValue(p *ical.IANAProperty) bool {
	if values, ok := p.ICalParameters["VALUE"]; ok && len(values) > 0 && strings.EqualFold(values[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// floating moves a time without zone information ("20261023T140000") into the calendar's
// location; the parser would otherwise read it in the process's local zone.
func floating(t time.Time, p *ical.IANAProperty, loc *time.Location) time.Time {
	if p == nil || strings.HasSuffix(p.Value, "Z") {
		return t
	}
	if _, ok := p.ICalParameters["TZID"]; ok {
		return t
	}

	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

func onDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func parseTimeValue(value string, params map[string][]string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if tz, ok := params["TZID"]; ok && len(tz) == 1 {
		if zone, err := time.LoadLocation(tz[0]); err == nil {
			loc = zone
		}
	}

	switch {
	case strings.HasSuffix(value, "Z"):
		return time.Parse("20060102T150405Z", value)
	case strings.Contains(value, "T"):
		return time.ParseInLocation("20060102T150405", value, loc)
	default:
		return time.ParseInLocation("20060102", value, loc)
	}
}
