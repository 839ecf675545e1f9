package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

var (
	isoDatePattern      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	inDaysPattern       = regexp.MustCompile(`^in (\d+|` + numberWordPattern + `) (days?|weeks?)$`)
	weekdayPattern      = regexp.MustCompile(`^(?:(this|next|coming) )?(` + alternation(weekdays) + `)$`)
	monthDayPattern     = regexp.MustCompile(`^(` + alternation(months) + `)\.? (\d{1,2})(?:st|nd|rd|th)?(?:,? (\d{4}))?$`)
	dayMonthPattern     = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?(?: of)? (` + alternation(months) + `)(?:,? (\d{4}))?$`)
	ordinalDayPattern   = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)$`)
	anchoredDatePattern = regexp.MustCompile(`^(?:\+?(\d+|` + numberWordPattern + `) )?(days?|weeks?) (after|before) (.+)$`)
)

// Date resolves a date phrase to domain.DateLayout.
func Date(raw string, ref Reference) (string, error) {
	text := trimPrefixes(clean(raw), "on ", "for ")
	today := ref.today()

	switch text {
	case "":
		return "", errors.New("empty date")
	case "today", "tonight", "this afternoon", "this evening":
		return format(today), nil
	case "tomorrow", "tmrw", "tomorrow morning", "tomorrow afternoon":
		return format(today.AddDate(0, 0, 1)), nil
	case "day after tomorrow", "the day after tomorrow":
		return format(today.AddDate(0, 0, 2)), nil
	}

	if match := isoDatePattern.FindStringSubmatch(text); match != nil {
		year, _ := strconv.Atoi(match[1])
		month, _ := strconv.Atoi(match[2])
		day, _ := strconv.Atoi(match[3])
		date, ok := calendarDate(year, time.Month(month), day, today.Location())
		if !ok {
			return "", fmt.Errorf("%s is not a calendar date", text)
		}
		return format(date), nil
	}

	if match := inDaysPattern.FindStringSubmatch(text); match != nil {
		count, _ := parseCount(match[1])
		if strings.HasPrefix(match[2], "week") {
			count *= 7
		}
		return format(today.AddDate(0, 0, count)), nil
	}

	text = strings.TrimPrefix(text, "the ")

	if match := weekdayPattern.FindStringSubmatch(text); match != nil {
		date, err := nextWeekday(today, weekdays[match[2]], match[1] == "this")
		if err != nil {
			return "", err
		}
		return format(date), nil
	}

	if match := monthDayPattern.FindStringSubmatch(text); match != nil {
		return monthDay(today, months[match[1]], match[2], match[3])
	}
	if match := dayMonthPattern.FindStringSubmatch(text); match != nil {
		return monthDay(today, months[match[2]], match[1], match[3])
	}

	if match := ordinalDayPattern.FindStringSubmatch(text); match != nil {
		day, _ := strconv.Atoi(match[1])
		for offset := 0; offset < 12; offset++ {
			month := today.AddDate(0, offset, 1-today.Day())
			date, ok := calendarDate(month.Year(), month.Month(), day, today.Location())
			if ok && !date.Before(today) {
				return format(date), nil
			}
		}
		return "", fmt.Errorf("no upcoming month has a day %d", day)
	}

	if offset, title, ok := parseAnchored(text); ok {
		anchor, found := ref.Anchors[title]
		if !found {
			return "", fmt.Errorf("no calendar event named %q", title)
		}
		base, err := time.ParseInLocation(domain.DateLayout, anchor, today.Location())
		if err != nil {
			return "", fmt.Errorf("anchor %q has invalid date %q", title, anchor)
		}
		return format(base.AddDate(0, 0, offset)), nil
	}

	return "", fmt.Errorf("unrecognized date %q", text)
}

// AnchorTitle returns the lower-cased event title a phrase like "the day after the offsite" refers
// to, so callers can look it up and fill Reference.Anchors before normalizing.
func AnchorTitle(raw string) (string, bool) {
	text := strings.TrimPrefix(trimPrefixes(clean(raw), "on ", "for "), "the ")
	if text == "day after tomorrow" {
		return "", false
	}
	_, title, ok := parseAnchored(text)

	return title, ok
}

func parseAnchored(text string) (int, string, bool) {
	match := anchoredDatePattern.FindStringSubmatch(text)
	if match == nil {
		return 0, "", false
	}
	title := trimPrefixes(match[4], "the ", "my ", "our ", "a ", "an ")
	if title == "" || title == "tomorrow" || title == "today" {
		return 0, "", false
	}

	count := 1
	if match[1] != "" {
		count, _ = parseCount(match[1])
	}
	if strings.HasPrefix(match[2], "week") {
		count *= 7
	}
	if match[3] == "before" {
		count = -count
	}

	return count, title, true
}

// nextWeekday finds the first given weekday after from, or on from when inclusive.
func nextWeekday(from time.Time, day time.Weekday, inclusive bool) (time.Time, error) {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   from,
		Byweekday: []rrule.Weekday{rruleWeekdays[day]},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("build weekday rule: %w", err)
	}

	next := rule.After(from, inclusive)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("no upcoming %s", day)
	}

	return next.In(from.Location()), nil
}

// monthDay resolves a month and day, rolling forward a year when no year is given and the date
// has already passed.
func monthDay(today time.Time, month time.Month, rawDay, rawYear string) (string, error) {
	day, _ := strconv.Atoi(rawDay)
	year := today.Year()
	if rawYear != "" {
		year, _ = strconv.Atoi(rawYear)
	}

	date, ok := calendarDate(year, month, day, today.Location())
	if rawYear == "" && (!ok || date.Before(today)) {
		date, ok = calendarDate(year+1, month, day, today.Location())
	}
	if !ok {
		return "", fmt.Errorf("%s %d is not a calendar date", month, day)
	}

	return format(date), nil
}

func calendarDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	date := time.Date(year, month, day, 0, 0, 0, 0, loc)

	return date, date.Month() == month && date.Day() == day
}

func format(date time.Time) string {
	return date.Format(domain.DateLayout)
}
