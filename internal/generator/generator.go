// Package generator turns a list of on-hand ingredients into a recipe by
// fanning out streaming completions and multiplexing their deltas, tagged by
// part, into a single ordered sink.
package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/completion"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/eventbus"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/models"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/generator")

// Sink receives every fragment of a generation exactly once. Fragments of
// one part arrive in the order they were produced; parts interleave freely.
type Sink func(ctx context.Context, f models.Fragment) error

// Config names the models used by the generator
type Config struct {
	// Model serves every fan-out task
	Model string
	// FastModel serves the seed call; defaults to Model
	FastModel string
}

// Option customizes a Generator
type Option func(*Generator)

// WithPicker replaces the uniform random candidate picker.
// pick(n) must return a value in [0,n).
func WithPicker(pick func(n int) int) Option {
	return func(g *Generator) { g.pick = pick }
}

// WithMetrics records generation and fragment metrics
func WithMetrics(m *telemetry.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithPublisher announces generation lifecycle events
func WithPublisher(p eventbus.Publisher) Option {
	return func(g *Generator) { g.events = p }
}

// Generator runs the seed call and the fan-out for one request at a time;
// it holds no per-request state and is safe for concurrent use.
type Generator struct {
	provider completion.Provider
	cfg      Config
	logger   *zap.Logger
	pick     func(n int) int
	metrics  *telemetry.Metrics
	events   eventbus.Publisher
}

// New creates a Generator
func New(provider completion.Provider, cfg Config, logger *zap.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FastModel == "" {
		cfg.FastModel = cfg.Model
	}

	g := &Generator{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		pick:     rand.IntN,
		events:   eventbus.Noop{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// outcome collects what the lifecycle event reports about a generation
type outcome struct {
	candidates int
	selected   string
}

// Generate proposes candidate recipes, picks one and streams every part of
// it into sink. It returns once all producers have finished and every
// queued fragment has been delivered, even when one of them failed. Only
// cancelling ctx, or a sink error, stops delivery early.
func (g *Generator) Generate(ctx context.Context, req models.GenerationRequest, sink Sink) (err error) {
	id := uuid.NewString()
	logger := g.logger.With(zap.String("generation_id", id))

	ctx, span := tracer.Start(ctx, "generator.Generate", trace.WithAttributes(
		attribute.String("recipe.generation_id", id),
		attribute.String("recipe.prep_time", req.PrepTime),
	))
	defer span.End()

	start := time.Now()
	done := g.metrics.GenerationStarted()
	g.publish(ctx, eventbus.SubjectGenerationStarted, eventbus.GenerationEvent{
		GenerationID: id,
		PrepTime:     req.PrepTime,
	})

	var result outcome
	defer func() {
		g.finish(ctx, logger, span, id, start, result, err)
		switch {
		case err == nil:
			done(telemetry.OutcomeOK)
		case models.ErrorCode(err) == models.ErrCodeCancelled:
			done(telemetry.OutcomeCancelled)
		default:
			done(telemetry.OutcomeError)
		}
	}()

	return g.run(ctx, logger, req, sink, &result)
}

func (g *Generator) run(callerCtx context.Context, logger *zap.Logger, req models.GenerationRequest, sink Sink, result *outcome) error {
	ctx, cancel := context.WithCancel(callerCtx)
	defer cancel()

	// (1) seed call on the fast model
	candidates, err := g.seed(ctx, req)
	if err != nil {
		return asCancelled(callerCtx, err)
	}
	result.candidates = len(candidates)

	// (2) pick one of the candidates actually produced
	selected, err := selectCandidate(candidates, g.pick)
	if err != nil {
		return err
	}
	recipe := candidates[selected]
	result.selected = recipe.Name

	logger.Info("generated recipes",
		zap.Int("candidates", len(candidates)),
		zap.String("selected", recipe.Name),
	)

	// (3) alternates go in before any producer starts
	queue := newFragmentQueue()
	if err := queue.Push(models.Fragment{
		Part:    models.PartAlternates,
		Content: renderAlternates(candidates, selected),
	}); err != nil {
		return err
	}

	// (5) drain concurrently with production
	drained := make(chan error, 1)
	go func() {
		err := g.drain(ctx, queue, sink)
		if err != nil {
			cancel()
		}
		drained <- err
	}()

	// (4) fan out
	exec := newExecutor(g.provider, g.cfg.Model, queue, logger)
	group, gctx := errgroup.WithContext(ctx)

	independent := []Task{
		{Part: models.PartIntro, Prompt: introPrompt(recipe), Settings: introSettings},
		{Part: models.PartIngredientNotes, Prompt: ingredientNotesPrompt(req.IngredientsOnHand), Settings: ingredientNotesSettings},
		{Part: models.PartSides, Prompt: sidesPrompt(recipe), Settings: sidesSettings},
	}
	for _, task := range independent {
		group.Go(func() error {
			_, err := exec.Execute(gctx, task)
			return err
		})
	}

	group.Go(func() error {
		_, err := exec.Execute(gctx, Task{
			Part:     models.PartIngredients,
			Prompt:   ingredientsPrompt(recipe, req.IngredientsOnHand),
			Settings: ingredientsSettings,
			OnComplete: func(ctx context.Context, ingredients string) error {
				_, err := exec.Execute(ctx, Task{
					Part:     models.PartSteps,
					Prompt:   stepsPrompt(recipe, ingredients, req.PrepTime),
					Settings: stepsSettings,
				})
				return err
			},
		})
		return err
	})

	// (6) close once every producer has returned, then wait for the drain.
	// A failed task still lets the drain flush what siblings already queued;
	// only the caller's cancellation cuts it short.
	taskErr := group.Wait()
	queue.Close()
	drainErr := <-drained

	switch {
	case callerCtx.Err() != nil:
		return &models.CancelledError{Err: callerCtx.Err()}
	case drainErr != nil && !models.IsCancellation(drainErr):
		return fmt.Errorf("deliver fragment: %w", drainErr)
	case taskErr != nil:
		return taskErr
	}
	return nil
}

// seed asks for the candidate list without forwarding its deltas anywhere
func (g *Generator) seed(ctx context.Context, req models.GenerationRequest) ([]models.RecipeCandidate, error) {
	settings := seedSettings
	settings.Model = g.cfg.FastModel

	var candidates []models.RecipeCandidate
	exec := newExecutor(g.provider, g.cfg.Model, nil, g.logger)
	_, err := exec.Execute(ctx, Task{
		Part:     models.PartSeed,
		Prompt:   seedPrompt(req.IngredientsOnHand, req.PrepTime),
		Settings: settings,
		OnComplete: func(_ context.Context, text string) error {
			var err error
			candidates, err = parseCandidates(text)
			return err
		},
	})
	return candidates, err
}

// drain hands queued fragments to the sink until the queue is closed and empty
func (g *Generator) drain(ctx context.Context, queue *fragmentQueue, sink Sink) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, ok, err := queue.Pop(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := sink(ctx, f); err != nil {
			return err
		}
		g.metrics.ObserveFragment(string(f.Part), len(f.Content))
	}
}

func (g *Generator) finish(ctx context.Context, logger *zap.Logger, span trace.Span, id string, start time.Time, result outcome, err error) {
	elapsed := time.Since(start)
	event := eventbus.GenerationEvent{
		GenerationID:   id,
		CandidateCount: result.candidates,
		Selected:       result.selected,
		DurationMs:     elapsed.Milliseconds(),
	}

	if err != nil {
		code := models.ErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
		logger.Warn("recipe generation failed",
			zap.String("code", code),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		event.ErrorCode = code
		event.Error = err.Error()
		g.publish(ctx, eventbus.SubjectGenerationFailed, event)
		return
	}

	logger.Info("recipe generation completed", zap.Duration("elapsed", elapsed))
	g.publish(ctx, eventbus.SubjectGenerationCompleted, event)
}

func (g *Generator) publish(ctx context.Context, subject string, event eventbus.GenerationEvent) {
	// lifecycle events still go out when the caller has gone away
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	event.Timestamp = time.Now().UTC()
	if err := g.events.Publish(ctx, subject, event); err != nil {
		g.logger.Warn("failed to publish generation event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

func asCancelled(callerCtx context.Context, err error) error {
	if err != nil && callerCtx.Err() != nil {
		return &models.CancelledError{Err: callerCtx.Err()}
	}
	return err
}
