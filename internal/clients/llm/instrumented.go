package llm

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dudesk/dudesk-chat/internal/observability"
	"github.com/dudesk/dudesk-chat/internal/pkg/logger"
)

type instrumented struct {
	inner    Streamer
	provider string
	log      *logger.Logger
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

// Instrument wraps s with a span, request metrics and a completion log line.
func Instrument(s Streamer, provider string, log *logger.Logger, m *observability.Metrics) Streamer {
	if log == nil {
		log = logger.Nop()
	}
	return &instrumented{
		inner:    s,
		provider: provider,
		log:      log.With("provider", provider),
		metrics:  m,
		tracer:   observability.Tracer(),
	}
}

func (s *instrumented) StreamChat(ctx context.Context, req ChatRequest, onDelta func(string)) (string, error) {
	ctx, span := s.tracer.Start(ctx, "llm.StreamChat", trace.WithAttributes(
		attribute.String("llm.provider", s.provider),
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.turns", len(req.Turns)),
		attribute.Int("llm.references", len(req.References)),
	))
	defer span.End()

	start := time.Now()
	deltas := 0
	full, err := s.inner.StreamChat(ctx, req, func(d string) {
		deltas++
		s.metrics.IncLLMDelta(s.provider)
		if onDelta != nil {
			onDelta(d)
		}
	})
	dur := time.Since(start)

	status := "ok"
	switch {
	case errors.Is(err, context.Canceled):
		status = "canceled"
	case err != nil:
		status = "error"
	}
	s.metrics.ObserveLLMRequest(s.provider, req.Model, status, dur)
	span.SetAttributes(attribute.Int("llm.deltas", deltas), attribute.Int("llm.reply_chars", len(full)))
	if err != nil && status == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn("model reply failed", "model", req.Model, "duration_ms", dur.Milliseconds(), "error", err)
		return full, err
	}
	s.log.Debug("model reply finished", "model", req.Model, "status", status, "deltas", deltas, "duration_ms", dur.Milliseconds())
	return full, err
}
