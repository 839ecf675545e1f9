package normalize

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

var (
	compactDuration  = regexp.MustCompile(`^(\d+)\s*h\s*(\d{1,2})(?:\s*m(?:in)?)?$`)
	durationPart     = regexp.MustCompile(`(\d+(?:\.\d+)?|` + numberWordPattern + `|half)\s*-?\s*(hours?|hrs?|h|minutes?|mins?|m)\b`)
	durationFiller   = regexp.MustCompile(`^(?:\s|,|and)*$`)
	andAHalfSuffix   = regexp.MustCompile(`^(.+?)\s*(hours?|hrs?)\s+and\s+a\s+half$`)
	durationPrefixes = []string{"for ", "lasting ", "about ", "around ", "roughly ", "approximately ", "approx ", "a duration of "}
)

var fixedDurations = map[string]int{
	"half hour":            30,
	"half an hour":         30,
	"a half hour":          30,
	"half-hour":            30,
	"a half-hour":          30,
	"quarter hour":         15,
	"a quarter hour":       15,
	"quarter of an hour":   15,
	"a quarter of an hour": 15,
	"an hour":              60,
	"a hour":               60,
	"hour":                 60,
	"one hour":             60,
	"an hour and a half":   90,
	"hour and a half":      90,
	"one and a half hours": 90,
	"a couple of hours":    120,
	"a couple hours":       120,
}

// Duration resolves a duration phrase to whole minutes. There is no default: anything that is not
// a recognizable length is a failure.
func Duration(raw string) (int, error) {
	text := trimPrefixes(clean(raw), durationPrefixes...)
	if text == "" {
		return 0, errors.New("empty duration")
	}

	if minutes, ok := fixedDurations[text]; ok {
		return minutes, nil
	}

	if match := compactDuration.FindStringSubmatch(text); match != nil {
		hours, _ := strconv.Atoi(match[1])
		minutes, _ := strconv.Atoi(match[2])
		return checkMinutes(float64(hours*60 + minutes))
	}

	if match := andAHalfSuffix.FindStringSubmatch(text); match != nil {
		hours, ok := parseQuantity(match[1])
		if !ok {
			return 0, fmt.Errorf("unrecognized duration %q", text)
		}
		return checkMinutes((hours + 0.5) * 60)
	}

	matches := durationPart.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("unrecognized duration %q", text)
	}

	var total float64
	last := 0
	for _, match := range matches {
		if !durationFiller.MatchString(text[last:match[0]]) {
			return 0, fmt.Errorf("unrecognized duration %q", text)
		}
		token, unit := text[match[2]:match[3]], text[match[4]:match[5]]
		if !unitFollows(token, text[match[3]:match[4]], unit) {
			return 0, fmt.Errorf("unrecognized duration %q", text)
		}
		quantity, ok := parseQuantity(token)
		if !ok {
			return 0, fmt.Errorf("unrecognized duration %q", text)
		}
		if strings.HasPrefix(unit, "h") {
			quantity *= 60
		}
		total += quantity
		last = match[1]
	}
	if !durationFiller.MatchString(text[last:]) {
		return 0, fmt.Errorf("unrecognized duration %q", text)
	}

	return checkMinutes(total)
}

// unitFollows rejects word quantities glued to a unit or abbreviated to one letter, so an
// interjection such as "ah" is not read as "a h".
func unitFollows(token, gap, unit string) bool {
	if token == "" || (token[0] >= '0' && token[0] <= '9') {
		return true
	}
	if gap == "" {
		return false
	}

	return unit != "h" && unit != "m"
}

func parseQuantity(token string) (float64, bool) {
	token = strings.TrimSpace(token)
	if token == "half" {
		return 0.5, true
	}
	if n, ok := parseCount(token); ok {
		return float64(n), true
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}

	return value, true
}

func checkMinutes(minutes float64) (int, error) {
	if minutes != math.Trunc(minutes) {
		return 0, fmt.Errorf("%g minutes is not a whole number", minutes)
	}
	whole := int(minutes)
	if !domain.ValidDuration(whole) {
		return 0, fmt.Errorf("%d minutes is out of range", whole)
	}

	return whole, nil
}
