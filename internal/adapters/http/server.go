// Package http serves the conversation engine over a JSON API and a websocket.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bnema/meeting-assistant-cli/internal/application"
	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/logging"
)

const (
	DefaultHost        = "localhost"
	DefaultPort        = 8080
	DefaultTurnTimeout = 60 * time.Second

	maxPromptBytes = 16 << 10
	wsReadTimeout  = 10 * time.Minute
	wsWriteTimeout = 10 * time.Second
)

// Conversation is the part of the application the server exposes.
type Conversation interface {
	HandleTurn(ctx context.Context, cmd application.HandleTurnCommand) (application.TurnResult, error)
	GetSession(ctx context.Context, id domain.SessionID) (domain.Session, error)
	ListSessions(ctx context.Context) ([]application.SessionSummary, error)
	PurgeSession(ctx context.Context, id domain.SessionID) error
	Location() *time.Location
}

type Config struct {
	Host string
	Port int
	// TurnTimeout bounds one conversation turn, model and calendar calls included.
	TurnTimeout time.Duration
	// AllowedOrigins lists websocket origins besides the server's own; "*" allows any.
	AllowedOrigins []string
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

type Server struct {
	echo         *echo.Echo
	conversation Conversation
	logger       *logging.Logger
	config       Config
	upgrader     websocket.Upgrader
}

func NewServer(conversation Conversation, logger *logging.Logger, cfg *Config) (*Server, error) {
	if conversation == nil {
		return nil, errors.New("conversation service is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking")
	}

	config := Config{}
	if cfg != nil {
		config = *cfg
	}
	if config.Host == "" {
		config.Host = DefaultHost
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.TurnTimeout <= 0 {
		config.TurnTimeout = DefaultTurnTimeout
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:         e,
		conversation: conversation,
		logger:       logger.Named("http"),
		config:       config,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/chat", s.handleChat)
	v1.GET("/sessions", s.handleListSessions)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.DELETE("/sessions/:id", s.handlePurgeSession)
	v1.GET("/ws", s.handleWebSocket)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", s.Addr()))
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logging.WithRequestID(c.Request().Context(), requestID)
		c.SetRequest(c.Request().WithContext(ctx))

		if err := next(c); err != nil {
			c.Error(err)
		}

		s.logger.Info(ctx, "http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)

		return nil
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}

	return sameHost(origin, r.Host)
}

func sameHost(origin, host string) bool {
	_, rest, ok := strings.Cut(origin, "://")
	if !ok {
		return false
	}
	originHost, _, _ := strings.Cut(rest, "/")

	return strings.EqualFold(originHost, host)
}

type HealthResponse struct {
	Status string `json:"status"`
}

// ChatRequest is the body of POST /api/v1/chat and of each websocket message.
type ChatRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id,omitempty"`
}

type SessionListResponse struct {
	Sessions []application.SessionSummary `json:"sessions"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Prompt) > maxPromptBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "prompt is too long")
	}

	view, err := s.turn(c.Request().Context(), req)
	if err != nil {
		return s.httpError(c.Request().Context(), err)
	}

	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleListSessions(c echo.Context) error {
	summaries, err := s.conversation.ListSessions(c.Request().Context())
	if err != nil {
		return s.httpError(c.Request().Context(), err)
	}

	resp := SessionListResponse{Sessions: summaries}
	if resp.Sessions == nil {
		resp.Sessions = []application.SessionSummary{}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetSession(c echo.Context) error {
	id := domain.SessionID(c.Param("id"))
	if !id.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	session, err := s.conversation.GetSession(c.Request().Context(), id)
	if err != nil {
		return s.httpError(c.Request().Context(), err)
	}

	return c.JSON(http.StatusOK, application.NewSessionDetail(session, s.conversation.Location()))
}

func (s *Server) handlePurgeSession(c echo.Context) error {
	id := domain.SessionID(c.Param("id"))
	if !id.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}

	if err := s.conversation.PurgeSession(c.Request().Context(), id); err != nil {
		return s.httpError(c.Request().Context(), err)
	}

	return c.NoContent(http.StatusNoContent)
}

// wsMessage is sent for every websocket turn; exactly one of Turn or Error is set.
type wsMessage struct {
	Type  string                `json:"type"`
	Turn  *application.TurnView `json:"turn,omitempty"`
	Error string                `json:"error,omitempty"`
}

// handleWebSocket runs one conversation per connection. Messages without a session_id continue
// the session of the previous turn on the same connection.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		s.logger.Debug(c.Request().Context(), "websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	ctx := c.Request().Context()
	conn.SetReadLimit(maxPromptBytes)

	var sessionID string
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug(ctx, "websocket closed", zap.Error(err))
			}
			return nil
		}

		out := wsMessage{Type: "turn"}
		var req ChatRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			out = wsMessage{Type: "error", Error: "invalid message"}
		} else {
			if req.SessionID == "" {
				req.SessionID = sessionID
			}
			view, err := s.turn(ctx, req)
			if err != nil {
				_, message := s.classify(ctx, err)
				out = wsMessage{Type: "error", Error: message}
			} else {
				sessionID = view.SessionID
				out.Turn = &view
			}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			s.logger.Debug(ctx, "websocket write failed", zap.Error(err))
			return nil
		}
	}
}

func (s *Server) turn(ctx context.Context, req ChatRequest) (application.TurnView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.TurnTimeout)
	defer cancel()

	result, err := s.conversation.HandleTurn(ctx, application.HandleTurnCommand{
		Prompt:    req.Prompt,
		SessionID: domain.SessionID(strings.TrimSpace(req.SessionID)),
	})
	if err != nil {
		return application.TurnView{}, err
	}

	return application.NewTurnView(result, s.conversation.Location()), nil
}

func (s *Server) httpError(ctx context.Context, err error) error {
	status, message := s.classify(ctx, err)
	return echo.NewHTTPError(status, message)
}

// classify maps application errors to a status and a message safe to show clients.
func (s *Server) classify(ctx context.Context, err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrEmptyPrompt):
		return http.StatusBadRequest, application.ErrEmptyPrompt.Error()
	case errors.Is(err, application.ErrInvalidSessionID):
		return http.StatusBadRequest, application.ErrInvalidSessionID.Error()
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, domain.ErrSessionNotFound.Error()
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict, "session was updated concurrently, retry the turn"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "turn timed out"
	default:
		s.logger.Error(ctx, "request failed", zap.Error(err))
		return http.StatusInternalServerError, "internal error"
	}
}
