// Package chain pairs a primary extractor or reply generator with a fallback that takes over when
// the primary fails. Context errors never fall through.
package chain

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/logging"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

type Extractor struct {
	primary  ports.Extractor
	fallback ports.Extractor
	logger   *logging.Logger
}

var _ ports.Extractor = (*Extractor)(nil)

func NewExtractor(primary, fallback ports.Extractor, logger *logging.Logger) (*Extractor, error) {
	if primary == nil || fallback == nil {
		return nil, errors.New("extractor chain needs a primary and a fallback")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &Extractor{primary: primary, fallback: fallback, logger: logger}, nil
}

func (e *Extractor) Extract(ctx context.Context, req ports.ExtractRequest) ([]domain.Candidate, error) {
	candidates, err := e.primary.Extract(ctx, req)
	if err == nil {
		return candidates, nil
	}
	if shouldSkipFallback(ctx, err) {
		return nil, err
	}

	e.logger.Warn(ctx, "primary extractor failed, using fallback", zap.Error(err))
	candidates, fallbackErr := e.fallback.Extract(ctx, req)
	if fallbackErr != nil {
		return nil, fmt.Errorf("primary extractor failed: %w; fallback extractor failed: %w", err, fallbackErr)
	}

	return candidates, nil
}

type Generator struct {
	primary  ports.ReplyGenerator
	fallback ports.ReplyGenerator
	logger   *logging.Logger
}

var _ ports.ReplyGenerator = (*Generator)(nil)

func NewGenerator(primary, fallback ports.ReplyGenerator, logger *logging.Logger) (*Generator, error) {
	if primary == nil || fallback == nil {
		return nil, errors.New("reply generator chain needs a primary and a fallback")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	return &Generator{primary: primary, fallback: fallback, logger: logger}, nil
}

func (g *Generator) Generate(ctx context.Context, decision domain.Decision, schema domain.MeetingSchema) (string, error) {
	reply, err := g.primary.Generate(ctx, decision, schema)
	if err == nil {
		return reply, nil
	}
	if shouldSkipFallback(ctx, err) {
		return "", err
	}

	g.logger.Warn(ctx, "primary reply generator failed, using fallback", zap.Error(err))
	reply, fallbackErr := g.fallback.Generate(ctx, decision, schema)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary reply generator failed: %w; fallback reply generator failed: %w", err, fallbackErr)
	}

	return reply, nil
}

func shouldSkipFallback(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
