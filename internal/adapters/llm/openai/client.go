// Package openai talks to an OpenAI-compatible chat completions API to extract meeting details and
// word replies.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultModel      = "gpt-4o-mini"
	DefaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2
)

var ErrMissingAPIKey = errors.New("openai api key is required")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// RateLimit is the sustained number of requests per second. Zero disables limiting.
	RateLimit  float64
	Burst      int
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Client wraps the SDK client with a shared rate limiter so extraction, replies and speech draw
// from the same budget.
type Client struct {
	api     openaigo.Client
	model   string
	limiter *rate.Limiter
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
		option.WithRequestTimeout(timeout),
	}
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}

	return &Client{
		api:     openaigo.NewClient(opts...),
		model:   model,
		limiter: limiter,
	}, nil
}

func (c *Client) Model() string {
	return c.model
}

// API exposes the SDK client for the audio endpoints. Callers must call Wait first.
func (c *Client) API() *openaigo.Client {
	return &c.api
}

func (c *Client) Wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}
	return nil
}

// Complete sends one system and one user message and returns the trimmed reply text.
func (c *Client) Complete(ctx context.Context, system, user string, jsonObject bool) (string, error) {
	if err := c.Wait(ctx); err != nil {
		return "", err
	}

	params := openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(c.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(system),
			openaigo.UserMessage(user),
		},
		Temperature: openaigo.Float(0),
	}
	if jsonObject {
		params.ResponseFormat = openaigo.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// extractJSON strips a Markdown code fence some models wrap around JSON despite being asked not to.
func extractJSON(s string) string {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	rest := strings.TrimPrefix(raw, "```")
	if i := strings.Index(rest, "\n"); i >= 0 {
		rest = rest[i+1:]
	}
	if i := strings.LastIndex(rest, "```"); i >= 0 {
		rest = rest[:i]
	}

	return strings.TrimSpace(rest)
}
