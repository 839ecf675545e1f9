// Package heuristic extracts meeting details with regular expressions and renders replies from
// templates. It needs no network access and backs the model adapters when they fail.
package heuristic

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

const (
	weekdayNames = `monday|tuesday|wednesday|thursday|friday|saturday|sunday|tues|thurs`
	monthNames   = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`
	countWords   = `\d+|an?|one|two|three|four|five|six|seven|eight|nine|ten|fifteen|twenty|thirty|forty-five|forty|fifty|sixty|ninety`
	meridiem     = `(?:[ap]\.m\.|[ap]m\b)`
	clock        = `\d{1,2}(?:[:.]\d{2})?\s*` + meridiem + `?`
	nameWord     = `[A-Z][\p{L}'-]+`
	fullName     = nameWord + `(?:\s+` + nameWord + `)?`
	nameSep      = `(?:\s*,\s*(?:and\s+)?|\s+and\s+|\s*&\s*)`
)

type pattern struct {
	field    domain.Field
	re       *regexp.Regexp
	group    int
	explicit bool
}

// Order matters: on overlapping matches of equal extent the earlier pattern wins.
var patterns = []pattern{
	{field: domain.FieldDate, re: regexp.MustCompile(`(?i)\b(?:the\s+)?day\s+after\s+tomorrow\b`), explicit: true},
	{field: domain.FieldDate, re: regexp.MustCompile(`(?i)\b(?:today|tomorrow|tonight)\b`), explicit: true},
	{field: domain.FieldDate, re: regexp.MustCompile(`(?i)\b(?:(?:this|next|coming|on)\s+)?(?:` + weekdayNames + `)\b`), explicit: true},
	{field: domain.FieldDate, re: regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`), explicit: true},
	{field: domain.FieldDate, re: regexp.MustCompile(`(?i)\b(?:` + monthNames + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?\b`), explicit: true},
	{field: domain.FieldDate, re: regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?(?:` + monthNames + `)\b(?:,?\s+\d{4}\b)?`), explicit: true},
	{field: domain.FieldDate, re: regexp.MustCompile(`(?i)\bthe\s+\d{1,2}(?:st|nd|rd|th)\b`), explicit: true},
	{field: domain.FieldDate, re: regexp.MustCompile(`(?i)\bin\s+(?:` + countWords + `)\s+(?:days?|weeks?)\b`), explicit: true},
	{field: domain.FieldDate, re: regexp.MustCompile(`(?i)\b(?:the\s+day|(?:\+?` + countWords + `)\s+(?:days?|weeks?))\s+(?:after|before)\s+(?:(?:the|our|my)\s+)?[a-z][\w-]*`), explicit: true},

	{field: domain.FieldStartTime, re: regexp.MustCompile(`(?i)\b(?:from\s+)?` + clock + `\s*(?:-|–|\bto\b|\buntil\b|\btill\b)\s*\d{1,2}(?:[:.]\d{2})?\s*` + meridiem), explicit: true},
	{field: domain.FieldStartTime, re: regexp.MustCompile(`(?i)\b(?:quarter|half|\d{1,2}|five|ten|twenty)\s+(?:minutes\s+)?(?:past|after|to)\s+\d{1,2}(?:[:.]\d{2})?\s*` + meridiem + `?`), explicit: true},
	{field: domain.FieldStartTime, re: regexp.MustCompile(`(?i)\b(?:at|after|from|around|by|before|no\s+later\s+than|no\s+earlier\s+than|starting\s+at)\s+(?:` + clock + `(?:\s+(?:in\s+the\s+(?:morning|afternoon|evening)|o'clock))?|noon|midday|midnight)`), explicit: true},
	{field: domain.FieldStartTime, re: regexp.MustCompile(`(?i)\b\d{1,2}(?:[:.]\d{2})?\s*` + meridiem), explicit: true},
	{field: domain.FieldStartTime, re: regexp.MustCompile(`\b\d{1,2}:\d{2}\b`), explicit: true},
	{field: domain.FieldStartTime, re: regexp.MustCompile(`(?i)\b(?:noon|midday|midnight)\b`), explicit: true},

	{field: domain.FieldDuration, re: regexp.MustCompile(`(?i)\b(?:(?:an?|one|\d+|two|three)\s+)?hours?\s+and\s+a\s+half\b`), explicit: true},
	{field: domain.FieldDuration, re: regexp.MustCompile(`(?i)\b(?:a\s+)?half(?:\s+an?)?[\s-]hour\b`), explicit: true},
	{field: domain.FieldDuration, re: regexp.MustCompile(`(?i)\b(?:a\s+)?quarter(?:\s+of\s+an)?\s+hour\b`), explicit: true},
	{field: domain.FieldDuration, re: regexp.MustCompile(`(?i)\ba\s+couple(?:\s+of)?\s+hours\b`), explicit: true},
	{field: domain.FieldDuration, re: regexp.MustCompile(`(?i)\b\d+\s*h\s*\d{1,2}\b`), explicit: true},
	{field: domain.FieldDuration, re: regexp.MustCompile(`(?i)\b(?:\d+(?:\.\d+)?\s*-?\s*(?:hours?|hrs?|h|minutes?|mins?)|(?:` + countWords + `)(?:\s+|\s*-\s*)(?:hours?|hrs?|minutes?|mins?))\b(?:\s+(?:and\s+)?(?:\d+\s*|(?:` + countWords + `)\s+)(?:minutes?|mins?)\b)?`), explicit: true},

	{field: domain.FieldParticipants, re: regexp.MustCompile(`\b(?i:with|invite|inviting|meet)\s+(` + fullName + `(?:` + nameSep + fullName + `)*)`), group: 1, explicit: true},

	{field: domain.FieldTitle, re: regexp.MustCompile(`"([^"]+)"|“([^”]+)”`), group: -1, explicit: true},
	{field: domain.FieldTitle, re: regexp.MustCompile(`(?:^|\s)'([^']+)'(?:$|[\s.,!?])`), group: 1, explicit: true},
	{field: domain.FieldTitle, re: regexp.MustCompile(`(?i)\b(?:called|titled|named)\s+([\w'-]+(?:\s+[\w'-]+){0,4}?)(?:\s+(?:on|at|for|with|tomorrow|today|next|this|in|from)\b|[,.!?]|$)`), group: 1, explicit: true},
	{field: domain.FieldTitle, re: regexp.MustCompile(`(?i)\b(?:about|regarding|to\s+discuss)\s+(?:the\s+)?([\w'-]+(?:\s+[\w'-]+){0,4}?)(?:\s+(?:on|at|for|with|tomorrow|today|next|this|in|from)\b|[,.!?]|$)`), group: 1},
	{field: domain.FieldTitle, re: regexp.MustCompile(`(?i)\b([a-z][\w-]*)\s+(meeting|session|call|sync|review|interview|standup|stand-up|lunch|appointment|class|lesson|workshop|retro|demo|1:1)s?\b`), group: -2},

	{field: domain.FieldLocation, re: regexp.MustCompile(`(?i)\b(?:on|via|over|using)\s+(zoom|teams|google\s+meet|skype|webex|slack|the\s+phone)\b`), group: 1, explicit: true},
	{field: domain.FieldLocation, re: regexp.MustCompile(`\b(?i:in|at)\s+((?i:the\s+)?(?i:conference\s+room|meeting\s+room|room|office|cafe|café|library|lobby|hq|boardroom|cafeteria)(?:\s+[A-Z0-9][\w-]*)?)`), group: 1, explicit: true},
}

// titleStopWords are words that cannot start an inferred "<word> meeting" title.
var titleStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "this": true, "that": true, "my": true, "our": true, "your": true,
	"new": true, "another": true, "schedule": true, "book": true, "set": true, "up": true, "quick": true,
	"short": true, "long": true, "first": true, "next": true, "same": true, "one": true, "hour": true,
	"minute": true, "to": true, "for": true, "with": true, "and": true, "of": true, "in": true, "on": true,
	"meeting": true, "call": true, "video": true, "phone": true, "zoom": true, "online": true, "virtual": true,
}

var calendarWords = regexp.MustCompile(`(?i)^(?:` + weekdayNames + `|` + monthNames + `|today|tomorrow|tonight)$`)

type Extractor struct{}

var _ ports.Extractor = (*Extractor)(nil)

func NewExtractor() *Extractor {
	return &Extractor{}
}

type span struct {
	start, end int
	order      int
	candidate  domain.Candidate
}

// Extract returns candidates in the order their text appears, so a later mention of a field wins
// over an earlier one of the same precedence.
func (e *Extractor) Extract(ctx context.Context, req ports.ExtractRequest) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := req.Text
	var spans []span
	for order, p := range patterns {
		for _, match := range p.re.FindAllStringSubmatchIndex(text, -1) {
			raw, ok := captured(text, match, p.group)
			if !ok {
				continue
			}
			candidate, ok := shape(p, raw)
			if !ok {
				continue
			}
			spans = append(spans, span{start: match[0], end: match[1], order: order, candidate: candidate})
		}
	}

	return resolveOverlaps(spans), nil
}

func captured(text string, match []int, group int) (string, bool) {
	switch {
	case group == 0:
		return text[match[0]:match[1]], true
	case group > 0:
		if match[2*group] < 0 {
			return "", false
		}
		return text[match[2*group]:match[2*group+1]], true
	case group == -1:
		// First non-empty alternative.
		for i := 1; 2*i < len(match); i++ {
			if match[2*i] >= 0 {
				return text[match[2*i]:match[2*i+1]], true
			}
		}
		return "", false
	default:
		// Activity titles keep both words.
		return text[match[2]:match[3]] + " " + text[match[4]:match[5]], true
	}
}

func shape(p pattern, raw string) (domain.Candidate, bool) {
	raw = strings.TrimSpace(raw)
	switch p.field {
	case domain.FieldParticipants:
		raw = dropCalendarWords(raw)
	case domain.FieldTitle:
		if p.group == -2 {
			first, _, _ := strings.Cut(strings.ToLower(raw), " ")
			if titleStopWords[first] || calendarWords.MatchString(first) {
				return domain.Candidate{}, false
			}
		}
		raw = capitalize(raw)
	case domain.FieldLocation:
		raw = capitalize(strings.TrimPrefix(strings.TrimPrefix(raw, "the "), "The "))
	}
	if raw == "" {
		return domain.Candidate{}, false
	}

	return domain.Candidate{Field: p.field, Raw: raw, Explicit: p.explicit}, true
}

// dropCalendarWords cuts names such as "John Friday" back to "John".
func dropCalendarWords(raw string) string {
	var kept []string
	for _, word := range strings.Fields(raw) {
		if calendarWords.MatchString(strings.Trim(word, ",&")) {
			continue
		}
		kept = append(kept, word)
	}

	return strings.TrimRight(strings.Join(kept, " "), " ,&")
}

func capitalize(raw string) string {
	r, size := utf8.DecodeRuneInString(raw)
	if size == 0 {
		return raw
	}
	return string(unicode.ToUpper(r)) + raw[size:]
}

// resolveOverlaps keeps the longest match at each position, preferring earlier patterns on ties,
// and returns the survivors in text order. Dates, times and durations compete for the same digits;
// the other fields only compete with themselves ("the budget review at 3pm" carries a title and a
// time).
func resolveOverlaps(spans []span) []domain.Candidate {
	slices.SortFunc(spans, func(a, b span) int {
		if a.start != b.start {
			return a.start - b.start
		}
		if a.end != b.end {
			return b.end - a.end
		}
		return a.order - b.order
	})

	var out []domain.Candidate
	ends := map[string]int{}
	for _, s := range spans {
		group := string(s.candidate.Field)
		switch s.candidate.Field {
		case domain.FieldDate, domain.FieldStartTime, domain.FieldDuration:
			group = "when"
		}
		if end, ok := ends[group]; ok && s.start < end {
			continue
		}
		ends[group] = s.end
		out = append(out, s.candidate)
	}

	return out
}
