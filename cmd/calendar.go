package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/normalize"
)

func newCalendarCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Inspect the calendar the assistant books into",
	}

	cmd.AddCommand(newCalendarFreeCmd(app), newCalendarEventsCmd(app))

	return cmd
}

func newCalendarFreeCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "free [day]",
		Short: "List free time within working hours (default today)",
		Example: `  ma calendar free
  ma calendar free friday
  ma calendar free 2026-10-23`,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := resolveDay(app, strings.Join(args, " "))
			if err != nil {
				return err
			}

			free, err := app.calendar.FreeIntervals(cmd.Context(), date)
			if err != nil {
				return err
			}

			slots := make([]string, 0, len(free))
			for _, slot := range free {
				slots = append(slots, formatSpan(slot.Start, slot.End, app.calendar.Location()))
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Date string   `json:"date"`
					Free []string `json:"free"`
				}{Date: date, Free: slots})
			}

			out := cmd.OutOrStdout()
			if len(slots) == 0 {
				_, err = fmt.Fprintf(out, "%s: fully booked\n", date)
				return err
			}
			_, _ = fmt.Fprintf(out, "%s free:\n", date)
			for _, slot := range slots {
				_, _ = fmt.Fprintf(out, "  %s\n", slot)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func newCalendarEventsCmd(app *app) *cobra.Command {
	var from string
	var days int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List calendar events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			date, err := resolveDay(app, from)
			if err != nil {
				return err
			}

			loc := app.calendar.Location()
			start, err := time.ParseInLocation(domain.DateLayout, date, loc)
			if err != nil {
				return fmt.Errorf("parse day %q: %w", date, err)
			}

			events, err := app.calendar.Events(cmd.Context(), start, start.AddDate(0, 0, days))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				_, err = fmt.Fprintln(out, "No events.")
				return err
			}
			for _, ev := range events {
				when := ev.Start.In(loc).Format(domain.DateLayout) + " " + formatSpan(ev.Start, ev.End, loc)
				if ev.AllDay {
					when = ev.Start.In(loc).Format(domain.DateLayout) + " all day"
				}
				line := fmt.Sprintf("%s  %s", when, ev.Summary)
				if ev.Location != "" {
					line += " (" + ev.Location + ")"
				}
				if !ev.Busy() && !ev.AllDay {
					line += " [free]"
				}
				_, _ = fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "today", "First day to list (e.g. today, monday, 2026-10-23)")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to list")

	return cmd
}

// resolveDay accepts the same day phrases the assistant understands; empty means today.
func resolveDay(app *app, phrase string) (string, error) {
	if strings.TrimSpace(phrase) == "" {
		phrase = "today"
	}

	date, err := normalize.Date(phrase, normalize.Reference{Now: app.now(), Location: app.calendar.Location()})
	if err != nil {
		return "", fmt.Errorf("understand day %q: %w", phrase, err)
	}

	return date, nil
}

func formatSpan(start, end time.Time, loc *time.Location) string {
	return start.In(loc).Format(domain.TimeLayout) + "-" + end.In(loc).Format(domain.TimeLayout)
}
