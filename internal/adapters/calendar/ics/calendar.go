// Package ics reads availability from iCalendar sources and books meetings into a local .ics file.
package ics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

const (
	DefaultWorkStart = "09:00"
	DefaultWorkEnd   = "18:00"
	defaultDuration  = 30 * time.Minute
	lookupHorizon    = 366 * 24 * time.Hour
	productService   = "meeting-assistant"
	calendarFileMode = 0o600
	calendarDirMode  = 0o700
)

type Config struct {
	// Path is the writable calendar new meetings are booked into. It is also read for availability.
	Path string
	// Subscriptions are extra read-only sources: local paths or http(s) URLs.
	Subscriptions []string
	Location      *time.Location
	WorkStart     string
	WorkEnd       string
	CacheDir      string
	HTTPClient    *http.Client
	Clock         ports.Clock
}

type Calendar struct {
	path          string
	subscriptions []string
	location      *time.Location
	workStart     string
	workEnd       string
	clock         ports.Clock
	fetcher       *fetcher

	// mu serializes writers of path within this process.
	mu sync.Mutex
}

var (
	_ ports.AvailabilityProvider = (*Calendar)(nil)
	_ ports.EventCreator         = (*Calendar)(nil)
	_ ports.EventLookup          = (*Calendar)(nil)
)

func New(cfg Config) (*Calendar, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.WorkStart == "" {
		cfg.WorkStart = DefaultWorkStart
	}
	if cfg.WorkEnd == "" {
		cfg.WorkEnd = DefaultWorkEnd
	}
	if !domain.ValidStartTime(cfg.WorkStart) || !domain.ValidStartTime(cfg.WorkEnd) || cfg.WorkEnd <= cfg.WorkStart {
		return nil, fmt.Errorf("invalid working hours %s-%s", cfg.WorkStart, cfg.WorkEnd)
	}
	if cfg.Clock == nil {
		cfg.Clock = ports.SystemClock{}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: fetchTimeout}
	}

	path := cfg.Path
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve calendar path: %w", err)
		}
		path = abs
	}

	return &Calendar{
		path:          path,
		subscriptions: slices.Clone(cfg.Subscriptions),
		location:      cfg.Location,
		workStart:     cfg.WorkStart,
		workEnd:       cfg.WorkEnd,
		clock:         cfg.Clock,
		fetcher:       &fetcher{client: cfg.HTTPClient, cacheDir: cfg.CacheDir},
	}, nil
}

func (c *Calendar) Location() *time.Location {
	return c.location
}

// Events lists the occurrences overlapping [from, to) across every source, in start order.
func (c *Calendar) Events(ctx context.Context, from, to time.Time) ([]Occurrence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []event
	for _, source := range c.sources() {
		body, err := c.fetcher.load(ctx, source)
		if err != nil {
			return nil, err
		}
		parsed, err := parseEvents(body, c.location)
		if err != nil {
			return nil, fmt.Errorf("read calendar %s: %w", displaySource(source), err)
		}
		events = append(events, parsed...)
	}

	return expand(events, from, to, c.location), nil
}

// FreeIntervals returns the free time within working hours on date.
func (c *Calendar) FreeIntervals(ctx context.Context, date string) ([]domain.Interval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dayStart, err := time.ParseInLocation(domain.DateLayout+" "+domain.TimeLayout, date+" "+c.workStart, c.location)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", domain.ErrAvailabilityFetchFailed, date)
	}
	dayEnd, _ := time.ParseInLocation(domain.DateLayout+" "+domain.TimeLayout, date+" "+c.workEnd, c.location)

	occurrences, err := c.Events(ctx, dayStart, dayEnd)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrAvailabilityFetchFailed, err)
	}

	return freeWithin(dayStart, dayEnd, occurrences), nil
}

// FindEventDate returns the date of the first event on or after from whose summary contains title.
func (c *Calendar) FindEventDate(ctx context.Context, title string, from time.Time) (string, error) {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return "", errors.New("find event: empty title")
	}

	start := onDate(from.In(c.location), c.location)
	occurrences, err := c.Events(ctx, start, start.Add(lookupHorizon))
	if err != nil {
		return "", fmt.Errorf("find event %q: %w", title, err)
	}

	for _, occ := range occurrences {
		if strings.Contains(strings.ToLower(occ.Summary), title) {
			return occ.Start.In(c.location).Format(domain.DateLayout), nil
		}
	}

	return "", fmt.Errorf("find event %q: %w", title, domain.ErrEventNotFound)
}

// CreateEvent books the meeting into the writable calendar. A meeting that overlaps busy time
// is refused so the user can pick another start.
func (c *Calendar) CreateEvent(ctx context.Context, schema domain.MeetingSchema) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.path == "" {
		return "", &domain.EventCreationError{Reason: "no writable calendar is configured"}
	}

	start, err := schema.StartAt(c.location)
	if err != nil {
		field := domain.FieldStartTime
		if !domain.ValidDate(schema.Date) {
			field = domain.FieldDate
		}
		return "", &domain.EventCreationError{Field: field, Reason: "the meeting has no start", Err: err}
	}
	end := start.Add(defaultDuration)
	if schema.DurationMinutes > 0 {
		end = start.Add(time.Duration(schema.DurationMinutes) * time.Minute)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	occurrences, err := c.Events(ctx, start, end)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &domain.EventCreationError{Reason: "the calendar could not be read", Err: err}
	}
	for _, occ := range occurrences {
		if occ.Busy() && occ.overlaps(start, end) {
			return "", &domain.EventCreationError{
				Field: domain.FieldStartTime,
				Reason: fmt.Sprintf("%q already takes %s-%s",
					occ.Summary, occ.Start.Format(domain.TimeLayout), occ.End.Format(domain.TimeLayout)),
			}
		}
	}

	cal, err := c.loadWritable()
	if err != nil {
		return "", &domain.EventCreationError{Reason: "the calendar could not be read", Err: err}
	}

	id := uuid.NewString()
	now := c.clock.Now()
	ev := cal.AddEvent(id)
	ev.SetDtStampTime(now)
	ev.SetCreatedTime(now)
	ev.SetStartAt(start)
	ev.SetEndAt(end)
	ev.SetSummary(schema.DisplayTitle())
	if schema.Location != "" {
		ev.SetLocation(schema.Location)
	}
	if len(schema.Participants) > 0 {
		ev.SetDescription("Participants: " + strings.Join(schema.Participants, ", "))
	}

	if err := c.writeCalendar(cal); err != nil {
		return "", &domain.EventCreationError{Reason: "the calendar could not be saved", Err: err}
	}

	return id, nil
}

func (c *Calendar) sources() []string {
	sources := make([]string, 0, len(c.subscriptions)+1)
	if c.path != "" {
		sources = append(sources, c.path)
	}
	return append(sources, c.subscriptions...)
}

func (c *Calendar) loadWritable() (*ical.Calendar, error) {
	body, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ical.NewCalendarFor(productService), nil
		}
		return nil, fmt.Errorf("read calendar file: %w", err)
	}
	if strings.TrimSpace(string(body)) == "" {
		return ical.NewCalendarFor(productService), nil
	}

	cal, err := ical.ParseCalendar(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse calendar file: %w", err)
	}

	return cal, nil
}

func (c *Calendar) writeCalendar(cal *ical.Calendar) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, calendarDirMode); err != nil {
		return fmt.Errorf("create calendar directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".calendar-*.ics.tmp")
	if err != nil {
		return fmt.Errorf("create temp calendar file: %w", err)
	}
	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if err := cal.SerializeTo(tempFile); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp calendar file: %w", err)
	}
	if err := tempFile.Chmod(calendarFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp calendar file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp calendar file: %w", err)
	}
	if err := os.Rename(tempName, c.path); err != nil {
		return fmt.Errorf("replace calendar file: %w", err)
	}
	cleanup = false

	return nil
}

// freeWithin subtracts busy occurrences from [start, end).
func freeWithin(start, end time.Time, occurrences []Occurrence) []domain.Interval {
	var free []domain.Interval
	cursor := start
	for _, occ := range occurrences {
		if !occ.Busy() || !occ.End.After(cursor) {
			continue
		}
		if occ.Start.After(cursor) {
			gapEnd := occ.Start
			if gapEnd.After(end) {
				gapEnd = end
			}
			if gapEnd.After(cursor) {
				free = append(free, domain.Interval{Start: cursor, End: gapEnd})
			}
		}
		if occ.End.After(cursor) {
			cursor = occ.End
		}
		if !cursor.Before(end) {
			return free
		}
	}
	if cursor.Before(end) {
		free = append(free, domain.Interval{Start: cursor, End: end})
	}

	return free
}

func displaySource(source string) string {
	if isRemote(source) {
		return redactURL(source)
	}
	return source
}
