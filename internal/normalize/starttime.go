package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	clockPattern     = regexp.MustCompile(`^(\d{1,2})(?:[:.h](\d{2}))?\s*(a\.?m\.?|p\.?m\.?)?$`)
	relativeToHour   = regexp.MustCompile(`^(quarter|half|\d{1,2}|five|ten|twenty) (?:minutes )?(past|after|to) (.+)$`)
	timeRangePattern = regexp.MustCompile(`^(.+?)\s*(?:-|–|\bto\b|\buntil\b|\btill\b)\s*(.+)$`)
	meridiemSuffix   = regexp.MustCompile(`(a\.?m\.?|p\.?m\.?)$`)
)

var errAmbiguousHour = errors.New("ambiguous hour, am or pm")

var dayPeriods = []struct {
	suffix   string
	meridiem string
}{
	{" in the morning", "am"},
	{" in the afternoon", "pm"},
	{" in the evening", "pm"},
	{" at night", "pm"},
	{" tonight", "pm"},
}

// StartTime resolves a time phrase to domain.TimeLayout. Lower bounds ("after 3pm") resolve to the
// bound itself; upper bounds and bare hours without am/pm are ambiguous.
func StartTime(raw string) (string, error) {
	text := clean(raw)
	if strings.HasPrefix(text, "before ") || strings.HasPrefix(text, "by ") || strings.HasPrefix(text, "no later than ") {
		return "", errors.New("only an upper bound was given")
	}
	text = trimPrefixes(text, "at ", "from ", "starting at ", "starting ", "around ", "about ", "after ", "no earlier than ", "sometime after ")

	switch text {
	case "":
		return "", errors.New("empty time")
	case "noon", "midday", "12 noon":
		return "12:00", nil
	case "midnight", "12 midnight":
		return "00:00", nil
	case "morning", "afternoon", "evening", "tonight", "lunch", "lunchtime", "later", "soon", "eod", "end of day":
		return "", fmt.Errorf("%q is not a specific time", text)
	}

	for _, period := range dayPeriods {
		if strings.HasSuffix(text, period.suffix) {
			text = strings.TrimSuffix(text, period.suffix) + period.meridiem
			break
		}
	}
	text = strings.TrimSpace(strings.Replace(text, " o'clock", "", 1))

	if match := relativeToHour.FindStringSubmatch(text); match != nil {
		hour, minute, err := parseClock(match[3])
		if err != nil {
			return "", err
		}
		offset := 0
		switch match[1] {
		case "quarter":
			offset = 15
		case "half":
			offset = 30
		default:
			offset, _ = parseCount(match[1])
		}
		if match[2] == "to" {
			offset = -offset
		}
		total := (hour*60 + minute + offset + 24*60) % (24 * 60)
		return fmt.Sprintf("%02d:%02d", total/60, total%60), nil
	}

	if match := timeRangePattern.FindStringSubmatch(text); match != nil {
		start, end := match[1], match[2]
		if !meridiemSuffix.MatchString(start) {
			if suffix := meridiemSuffix.FindString(end); suffix != "" {
				start += suffix
			}
		}
		text = start
	}

	hour, minute, err := parseClock(text)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func parseClock(text string) (int, int, error) {
	match := clockPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return 0, 0, fmt.Errorf("unrecognized time %q", text)
	}

	hour, _ := strconv.Atoi(match[1])
	minute := 0
	if match[2] != "" {
		minute, _ = strconv.Atoi(match[2])
	}
	if minute > 59 {
		return 0, 0, fmt.Errorf("minute %d out of range", minute)
	}

	if meridiem := strings.ReplaceAll(match[3], ".", ""); meridiem != "" {
		if hour < 1 || hour > 12 {
			return 0, 0, fmt.Errorf("hour %d out of range for %s", hour, meridiem)
		}
		switch {
		case meridiem == "pm" && hour < 12:
			hour += 12
		case meridiem == "am" && hour == 12:
			hour = 0
		}
		return hour, minute, nil
	}

	if hour > 23 {
		return 0, 0, fmt.Errorf("hour %d out of range", hour)
	}
	// 24-hour readings: 13..23, 00, a zero-padded hour, or 12:MM.
	if hour == 0 || hour >= 13 || strings.HasPrefix(match[1], "0") || (hour == 12 && match[2] != "") {
		return hour, minute, nil
	}

	return 0, 0, errAmbiguousHour
}
