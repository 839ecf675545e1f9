package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

const replySystemPrompt = `You are a friendly meeting scheduling assistant replying in one or two short sentences.
You receive the next action as JSON and must word it for the user. Use only the facts given; never invent
times, names or dates.
- ask_field: ask for the field named in "field". If "failed" lists it, say you could not understand it.
- fetch_availability: if "reason" is set, say the calendar could not be checked and that any reply retries.
- offer_confirmation: summarize the meeting, mention "conflict" and the free slots if present, then ask to book it.
- report_done: confirm the booking and give the event id.
- report_cancelled: acknowledge the cancellation.
- ask_rephrase: ask the user to say it another way.
Reply with plain text only.`

type replyFacts struct {
	Action   domain.Action  `json:"action"`
	State    domain.State   `json:"state"`
	Field    string         `json:"field,omitempty"`
	Failed   []domain.Field `json:"failed,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Conflict bool           `json:"conflict,omitempty"`
	Slots    []string       `json:"free_slots,omitempty"`
	EventID  string         `json:"event_id,omitempty"`
	Meeting  meetingFacts   `json:"meeting"`
}

type meetingFacts struct {
	Title           string   `json:"title"`
	Participants    []string `json:"participants,omitempty"`
	Date            string   `json:"date,omitempty"`
	StartTime       string   `json:"start_time,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	Location        string   `json:"location,omitempty"`
}

type Generator struct {
	client   *Client
	location *time.Location
}

var _ ports.ReplyGenerator = (*Generator)(nil)

func NewGenerator(client *Client, location *time.Location) *Generator {
	if location == nil {
		location = time.UTC
	}

	return &Generator{client: client, location: location}
}

func (g *Generator) Generate(ctx context.Context, decision domain.Decision, schema domain.MeetingSchema) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	facts := replyFacts{
		Action:   decision.Action,
		State:    decision.State,
		Failed:   decision.Failed,
		Reason:   decision.Reason,
		Conflict: decision.Conflict,
		EventID:  decision.EventID,
		Meeting: meetingFacts{
			Title:           schema.DisplayTitle(),
			Participants:    schema.Participants,
			Date:            schema.Date,
			StartTime:       schema.StartTime,
			DurationMinutes: schema.DurationMinutes,
			Location:        schema.Location,
		},
	}
	if decision.Field != "" {
		facts.Field = decision.Field.Label()
	}
	for _, slot := range decision.Slots {
		facts.Slots = append(facts.Slots, slot.Start.In(g.location).Format(domain.TimeLayout)+"-"+slot.End.In(g.location).Format(domain.TimeLayout))
	}

	payload, err := json.Marshal(facts)
	if err != nil {
		return "", fmt.Errorf("encode reply facts: %w", err)
	}

	reply, err := g.client.Complete(ctx, replySystemPrompt, string(payload), false)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	if reply == "" {
		return "", errors.New("generate reply: model returned an empty reply")
	}

	return reply, nil
}
