package heuristic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

func TestReplyGeneratorGenerate(t *testing.T) {
	t.Parallel()

	ready := domain.MeetingSchema{
		Participants:    []string{"Alice"},
		Date:            "2026-10-23",
		StartTime:       "14:00",
		DurationMinutes: 60,
	}
	slot := func(fromHour, toHour int) domain.Interval {
		return domain.Interval{
			Start: time.Date(2026, 10, 23, fromHour, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 10, 23, toHour, 0, 0, 0, time.UTC),
		}
	}

	tests := []struct {
		name     string
		decision domain.Decision
		schema   domain.MeetingSchema
		want     string
	}{
		{
			name:     "ask for a missing field",
			decision: domain.Decision{Action: domain.ActionAskField, Field: domain.FieldDate},
			want:     "What day should the meeting be on?",
		},
		{
			name:     "ask again after a failure",
			decision: domain.Decision{Action: domain.ActionAskField, Field: domain.FieldStartTime, Failed: []domain.Field{domain.FieldStartTime}},
			want:     "I couldn't pin down the start time. What time should it start?",
		},
		{
			name:     "ask after the calendar rejected the event",
			decision: domain.Decision{Action: domain.ActionAskField, Field: domain.FieldStartTime, Reason: "slot taken"},
			want:     "That didn't work (slot taken). What time should it start?",
		},
		{
			name:     "availability failure",
			decision: domain.Decision{Action: domain.ActionFetchAvailability, Reason: "calendar offline"},
			want:     "I couldn't check the calendar (calendar offline). Say anything to try again.",
		},
		{
			name:     "offer a free slot",
			decision: domain.Decision{Action: domain.ActionOfferConfirmation, Slots: []domain.Interval{slot(9, 18)}},
			schema:   ready,
			want:     "Meeting with Alice on 2026-10-23 at 14:00 for 60 minutes. You're free then. Shall I book it?",
		},
		{
			name:     "offer with a conflict",
			decision: domain.Decision{Action: domain.ActionOfferConfirmation, Conflict: true, Slots: []domain.Interval{slot(9, 12), slot(15, 18)}},
			schema:   ready,
			want:     "Meeting with Alice on 2026-10-23 at 14:00 for 60 minutes. That clashes with your calendar. Free: 09:00-12:00, 15:00-18:00. Shall I book it?",
		},
		{
			name:     "offer on a full day",
			decision: domain.Decision{Action: domain.ActionOfferConfirmation, Conflict: true},
			schema:   ready,
			want:     "Meeting with Alice on 2026-10-23 at 14:00 for 60 minutes. That day looks fully booked. Shall I book it?",
		},
		{
			name:     "done",
			decision: domain.Decision{Action: domain.ActionReportDone, EventID: "evt-1"},
			want:     "Done, it's on the calendar (event evt-1).",
		},
		{
			name:     "cancelled",
			decision: domain.Decision{Action: domain.ActionReportCancelled},
			want:     "Okay, I've cancelled this request.",
		},
		{
			name:     "rephrase",
			decision: domain.Decision{Action: domain.ActionAskRephrase},
			want:     "Sorry, I didn't catch that. Could you say it another way?",
		},
	}

	generator := NewReplyGenerator(time.UTC)
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := generator.Generate(context.Background(), tc.decision, tc.schema)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestReplyGeneratorListsAtMostThreeSlots(t *testing.T) {
	t.Parallel()

	var slots []domain.Interval
	for hour := 8; hour < 18; hour += 2 {
		slots = append(slots, domain.Interval{
			Start: time.Date(2026, 10, 23, hour, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 10, 23, hour+1, 0, 0, 0, time.UTC),
		})
	}

	got := NewReplyGenerator(nil).slots(slots)
	assert.Equal(t, "08:00-09:00, 10:00-11:00, 12:00-13:00, and 2 more", got)
}

func TestReplyGeneratorUnknownAction(t *testing.T) {
	t.Parallel()

	_, err := NewReplyGenerator(time.UTC).Generate(context.Background(), domain.Decision{Action: "dance"}, domain.MeetingSchema{})
	assert.ErrorContains(t, err, `no reply template for action "dance"`)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	got := Summary(domain.MeetingSchema{
		Title:           "Sync",
		Participants:    []string{"Alice", "Bob", "Carol"},
		Date:            "2026-10-23",
		StartTime:       "09:00",
		DurationMinutes: 30,
		Location:        "Room 4B",
	})
	assert.Equal(t, "Sync with Alice, Bob and Carol on 2026-10-23 at 09:00 for 30 minutes (Room 4B)", got)
}
