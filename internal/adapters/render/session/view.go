package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/meeting-assistant-cli/internal/application"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
)

const (
	barWidth    = 24
	historyTail = 5
	idleFade    = 24 * time.Hour
)

type RenderOptions struct {
	Now time.Time
}

func renderList(summaries []application.SessionSummary, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Meeting Sessions"),
		s.header.Render(fmt.Sprintf("sessions: %d", len(summaries))),
	}

	if len(summaries) == 0 {
		lines = append(lines, s.empty.Render("No sessions stored."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, summary := range summaries {
		lines = append(lines, s.section.Render(renderSummary(summary, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSummary(summary application.SessionSummary, opts RenderOptions, s styles) string {
	heading := lipgloss.JoinHorizontal(lipgloss.Top,
		s.session.Render(sessionTitle(summary.Title, string(summary.ID))),
		"  ",
		stateStyle(summary.State, s).Render(string(summary.State)),
	)

	parts := []string{heading, completenessLine(len(summary.Missing), s)}
	if len(summary.Missing) > 0 {
		parts = append(parts, s.fieldMeta.Render("missing: "+fieldLabels(summary.Missing)))
	}
	if when := scheduledAt(summary.Date, summary.StartTime); when != "" {
		parts = append(parts, s.detail.Render("when: "+when))
	}

	idle := lipgloss.NewStyle().Foreground(idleColor(summary.LastActiveAt, opts.Now))
	parts = append(parts, idle.Render(formatLastActive(summary.LastActiveAt, opts.Now)))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderDetail(detail application.SessionDetail, opts RenderOptions, s styles) string {
	state := domain.State(detail.State)
	lines := []string{
		s.session.Render(sessionTitle(displayTitle(detail.Meeting.Title), detail.ID)),
		lipgloss.JoinHorizontal(lipgloss.Top, s.header.Render("state: "), stateStyle(state, s).Render(detail.State)),
		completenessLine(len(detail.Missing), s),
	}

	fields := []string{}
	for _, field := range domain.FieldPriority {
		fields = append(fields, fieldLine(field, meetingValue(detail.Meeting, field), s))
	}
	confirmed := "no"
	if detail.Meeting.Confirmed {
		confirmed = "yes"
	}
	fields = append(fields, s.fieldKey.Render(fmt.Sprintf("%-13s", "confirmed:"))+s.detail.Render(confirmed))
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, fields...)))

	if pending := pendingLines(detail.Pending, s); len(pending) > 0 {
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, pending...)))
	}

	lines = append(lines, s.section.Render(historyBlock(detail, opts, s)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func fieldLine(field domain.Field, value string, s styles) string {
	key := s.fieldKey.Render(fmt.Sprintf("%-13s", field.Label()+":"))
	if value != "" {
		return key + s.detail.Render(value)
	}
	if field.Required() {
		return key + s.warning.Render("missing")
	}

	return key + s.empty.Render("-")
}

func pendingLines(pending application.DecisionView, s styles) []string {
	if pending.Action == "" {
		return nil
	}

	next := "next: " + pending.Action
	if pending.Field != "" {
		next += " (" + domain.Field(pending.Field).Label() + ")"
	}
	lines := []string{s.header.Render(next)}

	if pending.Reason != "" {
		lines = append(lines, s.warning.Render("reason: "+pending.Reason))
	}
	if pending.Conflict {
		lines = append(lines, s.warning.Render("conflicts with the calendar"))
	}
	if len(pending.Slots) > 0 {
		lines = append(lines, s.detail.Render("free: "+strings.Join(pending.Slots, ", ")))
	}
	if len(pending.Failed) > 0 {
		labels := make([]domain.Field, len(pending.Failed))
		for i, name := range pending.Failed {
			labels[i] = domain.Field(name)
		}
		lines = append(lines, s.warning.Render("not understood: "+fieldLabels(labels)))
	}
	if pending.EventID != "" {
		lines = append(lines, s.detail.Render("event: "+pending.EventID))
	}

	return lines
}

func historyBlock(detail application.SessionDetail, opts RenderOptions, s styles) string {
	lines := []string{s.header.Render(fmt.Sprintf("history: %d turns", len(detail.History)))}

	start := max(0, len(detail.History)-historyTail)
	if start > 0 {
		lines = append(lines, s.empty.Render(fmt.Sprintf("  ... %d earlier", start)))
	}
	for _, entry := range detail.History[start:] {
		stamp := entry.RecordedAt.Format("15:04")
		if !sameDay(entry.RecordedAt, opts.Now) {
			stamp = entry.RecordedAt.Format("15:04 on 02 Jan")
		}
		lines = append(lines, s.fieldMeta.Render("  "+stamp+" ")+s.detail.Render(strconv.Quote(entry.Turn)))
	}

	idle := lipgloss.NewStyle().Foreground(idleColor(detail.LastActiveAt, opts.Now))
	lines = append(lines, idle.Render(formatLastActive(detail.LastActiveAt, opts.Now)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func completenessLine(missing int, s styles) string {
	required := requiredFields()
	filled := max(0, required-missing)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.fieldKey.Render("fields:"),
		" ",
		renderProgressBar(filled, required, barWidth, s),
		" ",
		s.fieldMeta.Render(fmt.Sprintf("%d/%d", filled, required)),
	)
}

func renderProgressBar(filled, total, width int, s styles) string {
	if width <= 0 || total <= 0 {
		return ""
	}

	cells := int(math.Round(float64(width) * float64(filled) / float64(total)))
	cells = min(max(cells, 0), width)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", cells)),
		s.barEmpty.Render(strings.Repeat("-", width-cells)),
		s.barBracket.Render("]"),
	)
}

func requiredFields() int {
	count := 0
	for _, field := range domain.FieldPriority {
		if field.Required() {
			count++
		}
	}
	return count
}

func stateStyle(state domain.State, s styles) lipgloss.Style {
	switch state {
	case domain.StateDone:
		return s.stateDone
	case domain.StateCancelled:
		return s.stateGone
	default:
		return s.stateOpen
	}
}

func meetingValue(meeting application.MeetingView, field domain.Field) string {
	switch field {
	case domain.FieldTitle:
		return meeting.Title
	case domain.FieldParticipants:
		return strings.Join(meeting.Participants, ", ")
	case domain.FieldDate:
		return meeting.Date
	case domain.FieldStartTime:
		return meeting.StartTime
	case domain.FieldDuration:
		if meeting.DurationMinutes > 0 {
			return fmt.Sprintf("%d min", meeting.DurationMinutes)
		}
		return ""
	case domain.FieldLocation:
		return meeting.Location
	default:
		return ""
	}
}

func sessionTitle(title, id string) string {
	return fmt.Sprintf("%s (%s)", strings.TrimSpace(title), id)
}

func displayTitle(title string) string {
	return domain.MeetingSchema{Title: title}.DisplayTitle()
}

func scheduledAt(date, start string) string {
	switch {
	case date != "" && start != "":
		return date + " " + start
	default:
		return date
	}
}

func fieldLabels(fields []domain.Field) string {
	labels := make([]string, len(fields))
	for i, field := range fields {
		labels[i] = field.Label()
	}
	return strings.Join(labels, ", ")
}

func sameDay(a, b time.Time) bool {
	if b.IsZero() {
		return false
	}
	yearA, monthA, dayA := a.Date()
	yearB, monthB, dayB := b.In(a.Location()).Date()
	return yearA == yearB && monthA == monthB && dayA == dayB
}

func formatLastActive(at, now time.Time) string {
	if at.IsZero() {
		return "never active"
	}
	if now.IsZero() {
		return "last active " + at.Format(time.RFC3339)
	}

	idle := now.Sub(at)
	switch {
	case idle < time.Minute:
		return "active just now"
	case idle < time.Hour:
		return plural("active %d %s ago", int(idle.Minutes()), "minute")
	case idle < 24*time.Hour:
		return plural("active %d %s ago", int(idle.Hours()), "hour") + fmt.Sprintf(" (%s)", at.Format("15:04"))
	default:
		days := int(math.Floor(idle.Hours() / 24))
		return plural("active %d %s ago", days, "day") + fmt.Sprintf(" (%s)", at.Format("15:04 on 02 Jan"))
	}
}

func plural(format string, n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf(format, n, unit)
}

// idleColor fades from bright white for a fresh session to grey after a day of silence.
func idleColor(at, now time.Time) lipgloss.Color {
	if now.IsZero() || at.IsZero() || at.After(now) {
		return lipgloss.Color("255")
	}

	return interpolateColor(idleFade.Seconds()-now.Sub(at).Seconds(), 0, idleFade.Seconds())
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp: 240 (faded) to 255 (bright white).
	baseColor := 240.0
	targetColor := 255.0

	return lipgloss.Color(fmt.Sprintf("%d", int(baseColor+(targetColor-baseColor)*normalized)))
}
