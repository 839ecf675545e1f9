package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

const extractionSystemPrompt = `You extract meeting details from one message of a scheduling conversation.
Report only what the message itself says. Copy each value exactly as the user phrased it ("next friday",
"after 3pm", "an hour and a half", "two days after the offsite"); never convert or guess.
Fields: title, participants, date, start_time, duration_minutes, location.
Set explicit to true when the user states the value directly and false when you infer it (for example a
title guessed from "piano lesson"). List candidates in the order they appear in the message.
Return ONLY a JSON object like:
{"candidates": [{"field": "date", "raw": "next friday", "explicit": true}]}
Return {"candidates": []} when the message carries no meeting details, such as "yes" or "thanks".`

type extractionResponse struct {
	Candidates []struct {
		Field    string `json:"field"`
		Raw      string `json:"raw"`
		Explicit bool   `json:"explicit"`
	} `json:"candidates"`
}

type Extractor struct {
	client *Client
}

var _ ports.Extractor = (*Extractor)(nil)

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Extract(ctx context.Context, req ports.ExtractRequest) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := e.client.Complete(ctx, extractionSystemPrompt, extractionPrompt(req), true)
	if err != nil {
		return nil, fmt.Errorf("extract candidates: %w", err)
	}

	var parsed extractionResponse
	raw := extractJSON(content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// The body echoes the user's message, so only its size reaches the logs.
		return nil, fmt.Errorf("decode extraction response (%d bytes): %w", len(raw), err)
	}

	candidates := make([]domain.Candidate, 0, len(parsed.Candidates))
	for _, c := range parsed.Candidates {
		field, ok := domain.ParseField(c.Field)
		value := strings.TrimSpace(c.Raw)
		if !ok || value == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{Field: field, Raw: value, Explicit: c.Explicit})
	}

	return candidates, nil
}

func extractionPrompt(req ports.ExtractRequest) string {
	var b strings.Builder
	if !req.Now.IsZero() {
		fmt.Fprintf(&b, "Today is %s, %s.\n", req.Now.Weekday(), req.Now.Format(domain.DateLayout))
	}

	known := knownFields(req.Schema)
	if len(known) > 0 {
		b.WriteString("Already known:\n")
		for _, line := range known {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if last, ok := req.History.Last(); ok && last.Turn != "" {
		fmt.Fprintf(&b, "Previous message: %q\n", last.Turn)
	}
	fmt.Fprintf(&b, "Message: %q\n", req.Text)

	return b.String()
}

func knownFields(schema domain.MeetingSchema) []string {
	var lines []string
	for _, field := range domain.FieldPriority {
		if schema.IsSet(field) {
			lines = append(lines, string(field)+": "+schema.Value(field))
		}
	}

	return lines
}
