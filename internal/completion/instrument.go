package completion

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/completion")

// Instrument wraps a provider so every stream is traced and counted
func Instrument(next Provider, metrics *telemetry.Metrics) Provider {
	return &instrumented{next: next, metrics: metrics}
}

type instrumented struct {
	next    Provider
	metrics *telemetry.Metrics
}

func (p *instrumented) Stream(ctx context.Context, req Request) (Stream, error) {
	ctx, span := tracer.Start(ctx, "completion.Stream", trace.WithAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.max_tokens", req.MaxTokens),
		attribute.Float64("llm.temperature", float64(req.Temperature)),
	))

	s := &instrumentedStream{
		ctx:     ctx,
		model:   req.Model,
		span:    span,
		metrics: p.metrics,
		start:   time.Now(),
	}

	inner, err := p.next.Stream(ctx, req)
	if err != nil {
		s.finish(err)
		return nil, err
	}
	s.inner = inner
	return s, nil
}

type instrumentedStream struct {
	ctx     context.Context
	inner   Stream
	model   string
	span    trace.Span
	metrics *telemetry.Metrics
	start   time.Time
	deltas  int
	once    sync.Once
}

func (s *instrumentedStream) Recv() (string, error) {
	delta, err := s.inner.Recv()
	if err != nil {
		s.finish(err)
		return "", err
	}
	s.deltas++
	return delta, nil
}

func (s *instrumentedStream) Close() error {
	s.finish(errAbandoned)
	return s.inner.Close()
}

var errAbandoned = errors.New("stream closed before exhaustion")

func (s *instrumentedStream) finish(err error) {
	s.once.Do(func() {
		outcome := telemetry.OutcomeOK
		switch {
		case errors.Is(err, io.EOF):
		case errors.Is(err, errAbandoned):
			outcome = telemetry.OutcomeAbandoned
		case s.ctx.Err() != nil:
			outcome = telemetry.OutcomeCancelled
		default:
			outcome = telemetry.OutcomeError
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, err.Error())
		}

		s.span.SetAttributes(
			attribute.Int("llm.deltas", s.deltas),
			attribute.String("llm.outcome", outcome),
		)
		s.span.End()
		s.metrics.ObserveCompletion(s.model, outcome, time.Since(s.start), s.deltas)
	})
}
