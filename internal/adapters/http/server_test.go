package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/bnema/meeting-assistant-cli/internal/application"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/logging"
)

var testNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type stubConversation struct {
	mu       sync.Mutex
	commands []application.HandleTurnCommand
	turnErr  error
	sessions map[domain.SessionID]domain.Session
	purged   []domain.SessionID
}

func newStubConversation() *stubConversation {
	return &stubConversation{sessions: map[domain.SessionID]domain.Session{}}
}

func (s *stubConversation) HandleTurn(_ context.Context, cmd application.HandleTurnCommand) (application.TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	if s.turnErr != nil {
		return application.TurnResult{}, s.turnErr
	}
	if strings.TrimSpace(cmd.Prompt) == "" {
		return application.TurnResult{}, application.ErrEmptyPrompt
	}

	id := cmd.SessionID
	if id == "" {
		id = "generated-1"
	}

	return application.TurnResult{
		SessionID: id,
		Reply:     "What time should it start?",
		State:     domain.StateCollecting,
		Decision: domain.Decision{
			State:  domain.StateCollecting,
			Action: domain.ActionAskField,
			Field:  domain.FieldStartTime,
		},
		Schema:    domain.MeetingSchema{Participants: []string{"John"}, Date: "2026-10-23"},
		Changed:   []domain.Field{domain.FieldParticipants, domain.FieldDate},
		Persisted: true,
	}, nil
}

func (s *stubConversation) GetSession(_ context.Context, id domain.SessionID) (domain.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *stubConversation) ListSessions(_ context.Context) ([]application.SessionSummary, error) {
	var out []application.SessionSummary
	for _, session := range s.sessions {
		out = append(out, application.SessionSummary{
			ID:      session.ID,
			State:   session.State(),
			Title:   session.Schema.DisplayTitle(),
			Date:    session.Schema.Date,
			Missing: session.Schema.Missing(),
			Turns:   len(session.History),
		})
	}
	return out, nil
}

func (s *stubConversation) PurgeSession(_ context.Context, id domain.SessionID) error {
	if _, ok := s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.purged = append(s.purged, id)
	return nil
}

func (s *stubConversation) Location() *time.Location {
	return time.UTC
}

func (s *stubConversation) recorded() []application.HandleTurnCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]application.HandleTurnCommand(nil), s.commands...)
}

func setupTestServer(t *testing.T, conv *stubConversation) (*Server, *logging.TestLogger) {
	t.Helper()

	logger := logging.NewTestLogger()
	server, err := NewServer(conv, logger.Logger, &Config{Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)

	return server, logger
}

func serve(server *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	return rec
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults", func(t *testing.T) {
		t.Parallel()
		server, err := NewServer(newStubConversation(), logging.Nop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost:8080", server.Addr())
		assert.Equal(t, DefaultTurnTimeout, server.config.TurnTimeout)
	})

	t.Run("requires a conversation", func(t *testing.T) {
		t.Parallel()
		_, err := NewServer(nil, logging.Nop(), nil)
		assert.ErrorContains(t, err, "conversation service is required")
	})

	t.Run("requires a logger", func(t *testing.T) {
		t.Parallel()
		_, err := NewServer(newStubConversation(), nil, nil)
		assert.ErrorContains(t, err, "logger is required")
	})
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	server, logger := setupTestServer(t, newStubConversation())
	rec := serve(server, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	logger.AssertLogged(t, zapcore.InfoLevel, "http request")
}

func TestHandleMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "meeting_assistant_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	server, err := NewServer(newStubConversation(), logging.Nop(), &Config{Gatherer: reg})
	require.NoError(t, err)

	rec := serve(server, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "meeting_assistant_test_total 1")
}

func TestHandleChat(t *testing.T) {
	t.Parallel()

	conv := newStubConversation()
	server, _ := setupTestServer(t, conv)

	rec := serve(server, http.MethodPost, "/api/v1/chat",
		`{"prompt":"Schedule a meeting with John on Friday","session_id":"abc-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view application.TurnView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "abc-1", view.SessionID)
	assert.Equal(t, "What time should it start?", view.Reply)
	assert.Equal(t, "COLLECTING", view.State)
	assert.Equal(t, "ask_field", view.Decision.Action)
	assert.Equal(t, "start_time", view.Decision.Field)
	assert.Equal(t, []string{"John"}, view.Meeting.Participants)
	assert.Equal(t, []string{"start_time", "duration_minutes"}, view.Missing)
	assert.True(t, view.Persisted)

	commands := conv.recorded()
	require.Len(t, commands, 1)
	assert.Equal(t, domain.SessionID("abc-1"), commands[0].SessionID)
}

func TestHandleChatErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		turnErr error
		status  int
		message string
	}{
		{name: "malformed body", body: `{"prompt":`, status: http.StatusBadRequest, message: "invalid request body"},
		{name: "empty prompt", body: `{"prompt":"  "}`, status: http.StatusBadRequest, message: "prompt is empty"},
		{
			name:    "invalid session id",
			body:    `{"prompt":"hi","session_id":"../etc"}`,
			turnErr: application.ErrInvalidSessionID,
			status:  http.StatusBadRequest,
			message: "invalid session id",
		},
		{
			name:    "concurrent update",
			body:    `{"prompt":"hi"}`,
			turnErr: domain.ErrConcurrentUpdate,
			status:  http.StatusConflict,
			message: "retry the turn",
		},
		{
			name:    "timeout",
			body:    `{"prompt":"hi"}`,
			turnErr: context.DeadlineExceeded,
			status:  http.StatusGatewayTimeout,
			message: "turn timed out",
		},
		{
			name:    "internal failure is not leaked",
			body:    `{"prompt":"hi"}`,
			turnErr: errors.New("write /var/lib/sessions/x.toml: disk full"),
			status:  http.StatusInternalServerError,
			message: "internal error",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			conv := newStubConversation()
			conv.turnErr = tc.turnErr
			server, _ := setupTestServer(t, conv)

			rec := serve(server, http.MethodPost, "/api/v1/chat", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.message)
			assert.NotContains(t, rec.Body.String(), "disk full")
		})
	}
}

func TestSessionEndpoints(t *testing.T) {
	t.Parallel()

	conv := newStubConversation()
	session := domain.NewSession("abc-1", testNow)
	session.Schema = domain.MeetingSchema{Title: "Budget review", Date: "2026-10-23"}
	session.History = session.History.Append(session.Schema, domain.Turn{Text: "budget review on friday", At: testNow})
	session.Pending = domain.Decision{State: domain.StateCollecting, Action: domain.ActionAskField, Field: domain.FieldParticipants}
	conv.sessions[session.ID] = session
	server, _ := setupTestServer(t, conv)

	rec := serve(server, http.MethodGet, "/api/v1/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list SessionListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, domain.SessionID("abc-1"), list.Sessions[0].ID)
	assert.Equal(t, "Budget review", list.Sessions[0].Title)
	assert.Equal(t, 1, list.Sessions[0].Turns)

	rec = serve(server, http.MethodGet, "/api/v1/sessions/abc-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail application.SessionDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Budget review", detail.Meeting.Title)
	assert.Equal(t, "participants", detail.Pending.Field)
	require.Len(t, detail.History, 1)
	assert.Equal(t, "budget review on friday", detail.History[0].Turn)

	rec = serve(server, http.MethodGet, "/api/v1/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(server, http.MethodGet, "/api/v1/sessions/bad%20id", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(server, http.MethodDelete, "/api/v1/sessions/abc-1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []domain.SessionID{"abc-1"}, conv.purged)

	rec = serve(server, http.MethodDelete, "/api/v1/sessions/abc-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocketKeepsSessionAcrossMessages(t *testing.T) {
	t.Parallel()

	conv := newStubConversation()
	server, _ := setupTestServer(t, conv)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/v1/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var first wsMessage
	require.NoError(t, conn.WriteJSON(ChatRequest{Prompt: "Schedule a meeting with John on Friday"}))
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, "turn", first.Type)
	require.NotNil(t, first.Turn)
	assert.Equal(t, "generated-1", first.Turn.SessionID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var bad wsMessage
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, "error", bad.Type)
	assert.Equal(t, "invalid message", bad.Error)

	var second wsMessage
	require.NoError(t, conn.WriteJSON(ChatRequest{Prompt: "at 3pm"}))
	require.NoError(t, conn.ReadJSON(&second))
	require.Equal(t, "turn", second.Type)

	commands := conv.recorded()
	require.Len(t, commands, 2)
	assert.Equal(t, domain.SessionID(""), commands[0].SessionID)
	assert.Equal(t, domain.SessionID("generated-1"), commands[1].SessionID)
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	t.Parallel()

	server, _ := setupTestServer(t, newStubConversation())
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/v1/ws", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSameHost(t *testing.T) {
	t.Parallel()

	assert.True(t, sameHost("http://localhost:8080", "localhost:8080"))
	assert.False(t, sameHost("https://evil.example", "localhost:8080"))
	assert.False(t, sameHost("garbage", "localhost:8080"))
}
