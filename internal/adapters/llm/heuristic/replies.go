package heuristic

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

const maxListedSlots = 3

var questions = map[domain.Field]string{
	domain.FieldDate:         "What day should the meeting be on?",
	domain.FieldStartTime:    "What time should it start?",
	domain.FieldDuration:     "How long should it last?",
	domain.FieldParticipants: "Who should I invite?",
	domain.FieldTitle:        "What should I call it?",
	domain.FieldLocation:     "Where will it take place?",
}

// ReplyGenerator renders replies from fixed templates.
type ReplyGenerator struct {
	location *time.Location
}

var _ ports.ReplyGenerator = (*ReplyGenerator)(nil)

func NewReplyGenerator(location *time.Location) *ReplyGenerator {
	if location == nil {
		location = time.UTC
	}

	return &ReplyGenerator{location: location}
}

func (g *ReplyGenerator) Generate(ctx context.Context, decision domain.Decision, schema domain.MeetingSchema) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch decision.Action {
	case domain.ActionAskField:
		return g.askField(decision), nil
	case domain.ActionFetchAvailability:
		if decision.Reason != "" {
			return fmt.Sprintf("I couldn't check the calendar (%s). Say anything to try again.", decision.Reason), nil
		}
		return "Let me check the calendar.", nil
	case domain.ActionOfferConfirmation:
		return g.offer(decision, schema), nil
	case domain.ActionCreateEvent:
		return "Booking it now.", nil
	case domain.ActionReportDone:
		if decision.EventID == "" {
			return "It's on the calendar.", nil
		}
		return fmt.Sprintf("Done, it's on the calendar (event %s).", decision.EventID), nil
	case domain.ActionReportCancelled:
		return "Okay, I've cancelled this request.", nil
	case domain.ActionAskRephrase:
		return "Sorry, I didn't catch that. Could you say it another way?", nil
	default:
		return "", fmt.Errorf("no reply template for action %q", decision.Action)
	}
}

func (g *ReplyGenerator) askField(decision domain.Decision) string {
	question, ok := questions[decision.Field]
	if !ok {
		question = fmt.Sprintf("What is the %s?", decision.Field.Label())
	}

	var prefix string
	switch {
	case decision.Reason != "":
		prefix = fmt.Sprintf("That didn't work (%s). ", decision.Reason)
	case slices.Contains(decision.Failed, decision.Field):
		prefix = fmt.Sprintf("I couldn't pin down the %s. ", decision.Field.Label())
	}

	return prefix + question
}

func (g *ReplyGenerator) offer(decision domain.Decision, schema domain.MeetingSchema) string {
	var b strings.Builder
	b.WriteString(Summary(schema))
	b.WriteString(".")

	switch {
	case decision.Conflict && len(decision.Slots) == 0:
		b.WriteString(" That day looks fully booked.")
	case decision.Conflict:
		b.WriteString(" That clashes with your calendar. Free: ")
		b.WriteString(g.slots(decision.Slots))
		b.WriteString(".")
	case len(decision.Slots) > 0:
		b.WriteString(" You're free then.")
	}
	b.WriteString(" Shall I book it?")

	return b.String()
}

func (g *ReplyGenerator) slots(slots []domain.Interval) string {
	listed := make([]string, 0, maxListedSlots)
	for i, slot := range slots {
		if i == maxListedSlots {
			listed = append(listed, fmt.Sprintf("and %d more", len(slots)-maxListedSlots))
			break
		}
		listed = append(listed, slot.Start.In(g.location).Format("15:04")+"-"+slot.End.In(g.location).Format("15:04"))
	}

	return strings.Join(listed, ", ")
}

// Summary describes a schema in one line, for example
// "Meeting with Alice and Bob on 2026-10-23 at 14:00 for 60 minutes".
func Summary(schema domain.MeetingSchema) string {
	var b strings.Builder
	b.WriteString(schema.DisplayTitle())
	if len(schema.Participants) > 0 {
		b.WriteString(" with ")
		b.WriteString(joinNames(schema.Participants))
	}
	if schema.Date != "" {
		b.WriteString(" on ")
		b.WriteString(schema.Date)
	}
	if schema.StartTime != "" {
		b.WriteString(" at ")
		b.WriteString(schema.StartTime)
	}
	if schema.DurationMinutes > 0 {
		fmt.Fprintf(&b, " for %d minutes", schema.DurationMinutes)
	}
	if schema.Location != "" {
		b.WriteString(" (")
		b.WriteString(schema.Location)
		b.WriteString(")")
	}

	return b.String()
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
