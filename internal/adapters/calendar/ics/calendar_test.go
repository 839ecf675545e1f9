package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports/mocks"
)

var workCalendar = strings.Join([]string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//test//calendar//EN",
	"BEGIN:VEVENT",
	"UID:standup",
	"DTSTAMP:20261001T000000Z",
	"DTSTART:20261019T093000Z",
	"DTEND:20261019T100000Z",
	"RRULE:FREQ=DAILY;BYDAY=MO,TU,WE,TH,FR",
	"EXDATE:20261022T093000Z",
	"SUMMARY:Standup",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:lunch",
	"DTSTAMP:20261001T000000Z",
	"DTSTART:20261023T120000Z",
	"DTEND:20261023T130000Z",
	"SUMMARY:Lunch with Sam",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:focus",
	"DTSTAMP:20261001T000000Z",
	"DTSTART:20261023T150000Z",
	"DTEND:20261023T160000Z",
	"TRANSP:TRANSPARENT",
	"SUMMARY:Focus time",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:cancelled",
	"DTSTAMP:20261001T000000Z",
	"DTSTART:20261023T160000Z",
	"DTEND:20261023T170000Z",
	"STATUS:CANCELLED",
	"SUMMARY:Retro",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:offsite",
	"DTSTAMP:20261001T000000Z",
	"DTSTART;VALUE=DATE:20261027",
	"DTEND;VALUE=DATE:20261028",
	"SUMMARY:Team Offsite",
	"END:VEVENT",
	"END:VCALENDAR",
	"",
}, "\r\n")

var testNow = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func writeFixture(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "work.ics")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func newTestCalendar(t *testing.T, cfg Config) *Calendar {
	t.Helper()

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(testNow).Maybe()
	cfg.Clock = clock

	cal, err := New(cfg)
	require.NoError(t, err)

	return cal
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, time.UTC)
}

func TestFreeIntervals(t *testing.T) {
	t.Parallel()

	cal := newTestCalendar(t, Config{Subscriptions: []string{writeFixture(t, workCalendar)}})

	tests := []struct {
		name string
		date string
		want []domain.Interval
	}{
		{
			name: "busy friday",
			date: "2026-10-23",
			want: []domain.Interval{
				{Start: at(23, 9, 0), End: at(23, 9, 30)},
				{Start: at(23, 10, 0), End: at(23, 12, 0)},
				{Start: at(23, 13, 0), End: at(23, 18, 0)},
			},
		},
		{
			name: "excluded standup",
			date: "2026-10-22",
			want: []domain.Interval{{Start: at(22, 9, 0), End: at(22, 18, 0)}},
		},
		{
			name: "weekend",
			date: "2026-10-24",
			want: []domain.Interval{{Start: at(24, 9, 0), End: at(24, 18, 0)}},
		},
		{
			name: "all-day events do not block",
			date: "2026-10-27",
			want: []domain.Interval{
				{Start: at(27, 9, 0), End: at(27, 9, 30)},
				{Start: at(27, 10, 0), End: at(27, 18, 0)},
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := cal.FreeIntervals(context.Background(), tc.date)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFreeIntervalsFailures(t *testing.T) {
	t.Parallel()

	cal := newTestCalendar(t, Config{Subscriptions: []string{writeFixture(t, workCalendar)}})
	_, err := cal.FreeIntervals(context.Background(), "next friday")
	require.ErrorIs(t, err, domain.ErrAvailabilityFetchFailed)

	broken := newTestCalendar(t, Config{Subscriptions: []string{writeFixture(t, "BEGIN:VEVENT\r\nEND:VEVENT\r\n")}})
	_, err = broken.FreeIntervals(context.Background(), "2026-10-23")
	require.ErrorIs(t, err, domain.ErrAvailabilityFetchFailed)
}

func TestNewRejectsInvertedWorkingHours(t *testing.T) {
	t.Parallel()

	_, err := New(Config{WorkStart: "18:00", WorkEnd: "09:00"})
	assert.ErrorContains(t, err, "invalid working hours")
}

func TestFindEventDate(t *testing.T) {
	t.Parallel()

	cal := newTestCalendar(t, Config{Subscriptions: []string{writeFixture(t, workCalendar)}})

	date, err := cal.FindEventDate(context.Background(), "offsite", testNow)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-27", date)

	date, err = cal.FindEventDate(context.Background(), "Standup", testNow)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", date)

	_, err = cal.FindEventDate(context.Background(), "dentist", testNow)
	require.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestFloatingTimesUseCalendarLocation(t *testing.T) {
	t.Parallel()

	zone := time.FixedZone("UTC+1", 3600)
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//calendar//EN",
		"BEGIN:VEVENT",
		"UID:dentist",
		"DTSTAMP:20261001T000000Z",
		"DTSTART:20261023T140000",
		"DTEND:20261023T150000",
		"SUMMARY:Dentist",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	cal := newTestCalendar(t, Config{Location: zone, Subscriptions: []string{writeFixture(t, body)}})

	events, err := cal.Events(context.Background(), time.Date(2026, 10, 23, 0, 0, 0, 0, zone), time.Date(2026, 10, 24, 0, 0, 0, 0, zone))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Start.Equal(time.Date(2026, 10, 23, 14, 0, 0, 0, zone)))
	assert.True(t, events[0].End.Equal(time.Date(2026, 10, 23, 15, 0, 0, 0, zone)))
}

func TestCreateEvent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "calendars", "meetings.ics")
	cal := newTestCalendar(t, Config{Path: path, Subscriptions: []string{writeFixture(t, workCalendar)}})
	schema := domain.MeetingSchema{
		Participants:    []string{"Alice"},
		Date:            "2026-10-23",
		StartTime:       "14:00",
		DurationMinutes: 60,
		Location:        "Room 4B",
		Confirmed:       true,
	}

	id, err := cal.CreateEvent(context.Background(), schema)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	events, err := cal.Events(context.Background(), at(23, 0, 0), at(24, 0, 0))
	require.NoError(t, err)
	var booked *Occurrence
	for i := range events {
		if events[i].UID == id {
			booked = &events[i]
		}
	}
	require.NotNil(t, booked)
	assert.Equal(t, "Meeting", booked.Summary)
	assert.Equal(t, "Room 4B", booked.Location)
	assert.True(t, booked.Start.Equal(at(23, 14, 0)))
	assert.True(t, booked.End.Equal(at(23, 15, 0)))

	t.Run("overlapping the new meeting", func(t *testing.T) {
		_, err := cal.CreateEvent(context.Background(), schema)
		var failure *domain.EventCreationError
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, domain.FieldStartTime, failure.Field)
		assert.Equal(t, `"Meeting" already takes 14:00-15:00`, failure.Reason)
		assert.ErrorIs(t, err, domain.ErrEventCreationFailed)
	})

	t.Run("overlapping a subscribed event", func(t *testing.T) {
		lunch := schema
		lunch.StartTime = "12:30"
		_, err := cal.CreateEvent(context.Background(), lunch)
		assert.ErrorContains(t, err, `"Lunch with Sam" already takes 12:00-13:00`)
	})

	t.Run("transparent events do not block", func(t *testing.T) {
		focus := schema
		focus.StartTime = "15:00"
		focus.Title = "Design review"
		_, err := cal.CreateEvent(context.Background(), focus)
		require.NoError(t, err)
	})
}

func TestCreateEventFailures(t *testing.T) {
	t.Parallel()

	noPath := newTestCalendar(t, Config{})
	_, err := noPath.CreateEvent(context.Background(), domain.MeetingSchema{Date: "2026-10-23", StartTime: "14:00", DurationMinutes: 30})
	var failure *domain.EventCreationError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, "no writable calendar is configured", failure.Reason)

	cal := newTestCalendar(t, Config{Path: filepath.Join(t.TempDir(), "meetings.ics")})
	_, err = cal.CreateEvent(context.Background(), domain.MeetingSchema{Date: "2026-10-23", DurationMinutes: 30})
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, domain.FieldStartTime, failure.Field)
}

func TestCreateEventDefaultsDuration(t *testing.T) {
	t.Parallel()

	cal := newTestCalendar(t, Config{Path: filepath.Join(t.TempDir(), "meetings.ics")})
	id, err := cal.CreateEvent(context.Background(), domain.MeetingSchema{Date: "2026-10-23", StartTime: "14:00"})
	require.NoError(t, err)

	events, err := cal.Events(context.Background(), at(23, 0, 0), at(24, 0, 0))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].UID)
	assert.Equal(t, 30*time.Minute, events[0].End.Sub(events[0].Start))
}

func TestCreateEventConcurrentBookingsDoNotOverlap(t *testing.T) {
	t.Parallel()

	cal := newTestCalendar(t, Config{Path: filepath.Join(t.TempDir(), "meetings.ics")})
	schema := domain.MeetingSchema{Date: "2026-10-23", StartTime: "14:00", DurationMinutes: 30}

	var wg sync.WaitGroup
	var booked atomic.Int32
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cal.CreateEvent(context.Background(), schema); err == nil {
				booked.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), booked.Load())
}

func TestRemoteSubscriptionUsesCache(t *testing.T) {
	t.Parallel()

	var (
		fail     atomic.Bool
		mu       sync.Mutex
		received []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		received = append(received, r.Header.Get("If-None-Match"))
		mu.Unlock()

		switch {
		case fail.Load():
			w.WriteHeader(http.StatusInternalServerError)
		case r.Header.Get("If-None-Match") == `"v1"`:
			w.WriteHeader(http.StatusNotModified)
		default:
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte(workCalendar))
		}
	}))
	t.Cleanup(server.Close)

	url := server.URL + "/private/secret-token/basic.ics"
	cal := newTestCalendar(t, Config{Subscriptions: []string{url}, CacheDir: t.TempDir()})
	want := []domain.Interval{
		{Start: at(23, 9, 0), End: at(23, 9, 30)},
		{Start: at(23, 10, 0), End: at(23, 12, 0)},
		{Start: at(23, 13, 0), End: at(23, 18, 0)},
	}

	for range 2 {
		got, err := cal.FreeIntervals(context.Background(), "2026-10-23")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	fail.Store(true)
	got, err := cal.FreeIntervals(context.Background(), "2026-10-23")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	mu.Lock()
	assert.Equal(t, []string{"", `"v1"`, `"v1"`}, received)
	mu.Unlock()

	uncached := newTestCalendar(t, Config{Subscriptions: []string{url}})
	_, err = uncached.FreeIntervals(context.Background(), "2026-10-23")
	require.ErrorIs(t, err, domain.ErrAvailabilityFetchFailed)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestFreeWithin(t *testing.T) {
	t.Parallel()

	busy := func(from, to time.Time) Occurrence {
		return Occurrence{Start: from, End: to}
	}

	got := freeWithin(at(23, 9, 0), at(23, 18, 0), []Occurrence{
		busy(at(23, 8, 0), at(23, 9, 30)),
		busy(at(23, 11, 0), at(23, 12, 0)),
		busy(at(23, 11, 30), at(23, 12, 30)),
		busy(at(23, 17, 0), at(23, 19, 0)),
	})
	assert.Equal(t, []domain.Interval{
		{Start: at(23, 9, 30), End: at(23, 11, 0)},
		{Start: at(23, 12, 30), End: at(23, 17, 0)},
	}, got)

	assert.Empty(t, freeWithin(at(23, 9, 0), at(23, 18, 0), []Occurrence{busy(at(23, 8, 0), at(23, 19, 0))}))
}
