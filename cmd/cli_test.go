package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/meeting-assistant-cli/internal/application"
)

const fixtureCalendar = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:review-1\r\n" +
	"DTSTAMP:20261001T000000Z\r\n" +
	"DTSTART:20261023T100000\r\n" +
	"DTEND:20261023T110000\r\n" +
	"SUMMARY:Design review\r\n" +
	"LOCATION:Room 4B\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestVersionPrintsBuildVersion(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", stdout)
}

func TestInvalidConfigFailsEveryCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("MA_SESSIONS_BACKEND", "redis")

	_, _, err := executeCLI(t, home, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sessions.backend")
}

func TestChatOneShotJSONAsksForMissingField(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "chat", "--json", "Schedule a meeting with John on Friday")
	require.NoError(t, err)

	var view application.TurnView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.NotEmpty(t, view.SessionID)
	assert.Equal(t, "COLLECTING", view.State)
	assert.Equal(t, "ask_field", view.Decision.Action)
	assert.Equal(t, "start_time", view.Decision.Field)
	assert.Equal(t, []string{"John"}, view.Meeting.Participants)
	assert.NotEmpty(t, view.Meeting.Date)
	assert.NotEmpty(t, view.Reply)
	assert.True(t, view.Persisted)
}

func TestChatConversationBooksMeetingAcrossInvocations(t *testing.T) {
	home := t.TempDir()

	first := chatJSON(t, home, "", "Schedule a meeting with John on Friday")
	second := chatJSON(t, home, first.SessionID, "at 3pm for 30 minutes")
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "AWAITING_CONFIRMATION", second.State)
	assert.Equal(t, "offer_confirmation", second.Decision.Action)
	assert.Equal(t, "15:00", second.Meeting.StartTime)
	assert.Equal(t, 30, second.Meeting.DurationMinutes)

	third := chatJSON(t, home, first.SessionID, "yes please")
	assert.Equal(t, "DONE", third.State)
	assert.Equal(t, "report_done", third.Decision.Action)
	assert.NotEmpty(t, third.Decision.EventID)
	assert.True(t, third.Meeting.Confirmed)

	calendar, err := os.ReadFile(filepath.Join(home, ".meeting-assistant", "calendar.ics"))
	require.NoError(t, err)
	assert.Contains(t, string(calendar), third.Decision.EventID)
	assert.Contains(t, string(calendar), "Participants: John")

	stdout, _, err := executeCLI(t, home, "session", "show", first.SessionID, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "state: DONE")
	assert.Contains(t, stdout, "turn: yes please")

	stdout, _, err = executeCLI(t, home, "session", "list", "--format", "toml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[[sessions]]")
	assert.Contains(t, stdout, first.SessionID)

	stdout, _, err = executeCLI(t, home, "session", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sessions: 1")
	assert.Contains(t, stdout, "DONE")

	stdout, _, err = executeCLI(t, home, "calendar", "events", "--from", second.Meeting.Date, "--days", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, second.Meeting.Date+" 15:00-15:30  Meeting")
}

func TestChatOneShotPrintsReplyAndSessionHint(t *testing.T) {
	home := t.TempDir()

	stdout, stderr, err := executeCLI(t, home, "chat", "--quiet", "Schedule a meeting with John on Friday")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(stdout))
	assert.Contains(t, stderr, "continue with --session")
}

func TestChatREPLKeepsOneSession(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLIWithInput(t, home,
		"Schedule a meeting with John on Friday\n\nat 3pm for 30 minutes\nexit\n",
		"chat", "--json")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)

	var first, second application.TurnView
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "AWAITING_CONFIRMATION", second.State)
}

func TestSessionCommandsReportErrors(t *testing.T) {
	home := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "unknown session", args: []string{"session", "show", "nope"}, wantErr: "session not found"},
		{name: "unknown format", args: []string{"session", "list", "--format", "xml"}, wantErr: "unsupported format"},
		{name: "purge without target", args: []string{"session", "purge"}, wantErr: "requires a session id or --idle"},
		{name: "purge with both", args: []string{"session", "purge", "abc", "--idle", "1h"}, wantErr: "not both"},
		{name: "purge unknown", args: []string{"session", "purge", "nope"}, wantErr: "session not found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := executeCLI(t, home, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestSessionPurge(t *testing.T) {
	home := t.TempDir()
	view := chatJSON(t, home, "", "Schedule a meeting with John on Friday")

	stdout, _, err := executeCLI(t, home, "session", "purge", "--idle", "1h")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Purged 0 idle sessions")

	stdout, _, err = executeCLI(t, home, "session", "purge", view.SessionID)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Purged session "+view.SessionID)

	stdout, _, err = executeCLI(t, home, "session", "list", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessions":[]}`, stdout)
}

func TestCalendarFreeListsGapsAroundEvents(t *testing.T) {
	home := t.TempDir()
	writeCalendarFixture(t, home)

	stdout, _, err := executeCLI(t, home, "calendar", "free", "2026-10-23")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2026-10-23 free:")
	assert.Contains(t, stdout, "09:00-10:00")
	assert.Contains(t, stdout, "11:00-18:00")

	stdout, _, err = executeCLI(t, home, "calendar", "free", "2026-10-23", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-10-23","free":["09:00-10:00","11:00-18:00"]}`, stdout)

	stdout, _, err = executeCLI(t, home, "calendar", "events", "--from", "2026-10-23", "--days", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "2026-10-23 10:00-11:00  Design review (Room 4B)")

	_, _, err = executeCLI(t, home, "calendar", "free", "someday soon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "understand day")
}

func TestAuthSetStatusDelete(t *testing.T) {
	home := t.TempDir()

	stdout, _, err := executeCLI(t, home, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "api key: not stored")

	_, _, err = executeCLI(t, home, "auth", "set", "--value", "sk-test-123")
	require.NoError(t, err)

	stored, err := os.ReadFile(filepath.Join(home, ".meeting-assistant", "secrets", "meeting-assistant", "openai", "api_key"))
	require.NoError(t, err)
	assert.Contains(t, string(stored), "sk-test-123")

	stdout, _, err = executeCLI(t, home, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "api key: stored")

	_, _, err = executeCLI(t, home, "auth", "delete")
	require.NoError(t, err)

	stdout, _, err = executeCLI(t, home, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "api key: not stored")
}

func TestAuthSetReadsStdin(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLIWithInput(t, home, "sk-from-stdin\n", "auth", "set", "--stdin")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, home, "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "api key: stored")
}

func TestAuthSetRequiresValue(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "auth", "set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value")
}

func TestVoiceNeedsAPIKey(t *testing.T) {
	home := t.TempDir()

	_, _, err := executeCLI(t, home, "voice", "transcribe", "missing.wav")
	require.ErrorIs(t, err, errSpeechUnavailable)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: formatText},
		{raw: "TEXT", want: formatText},
		{raw: "json", want: formatJSON},
		{raw: "yml", want: formatYAML},
		{raw: "toml", want: formatTOML},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()
			got, err := parseFormat(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func chatJSON(t *testing.T, home, sessionID, prompt string) application.TurnView {
	t.Helper()

	args := []string{"chat", "--json"}
	if sessionID != "" {
		args = append(args, "--session", sessionID)
	}
	stdout, _, err := executeCLI(t, home, append(args, prompt)...)
	require.NoError(t, err)

	var view application.TurnView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))

	return view
}

func executeCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWithInput(t, home, "", args...)
}

func executeCLIWithInput(t *testing.T, home, input string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv("MA_SECRETS_BACKEND", "file")
	t.Setenv("MA_LLM_PROVIDER", "heuristic")
	t.Setenv("MA_LLM_API_KEY", "")
	t.Setenv("MA_CALENDAR_TIMEZONE", "UTC")

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetIn(strings.NewReader(input))
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeCalendarFixture(t *testing.T, home string) {
	t.Helper()

	dir := filepath.Join(home, ".meeting-assistant")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calendar.ics"), []byte(fixtureCalendar), 0o600))
}
