package generator

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/completion"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Task is one prompt to run for a part
type Task struct {
	Part     models.Part
	Prompt   string
	Settings models.ExecutionSettings
	// OnComplete receives the full accumulated text once the stream is exhausted
	OnComplete func(ctx context.Context, text string) error
}

// Executor runs prompts against a provider and relays every delta, tagged
// with its part, into a fragment queue
type Executor struct {
	provider     completion.Provider
	defaultModel string
	out          *fragmentQueue // nil discards deltas
	logger       *zap.Logger
}

func newExecutor(provider completion.Provider, defaultModel string, out *fragmentQueue, logger *zap.Logger) *Executor {
	return &Executor{
		provider:     provider,
		defaultModel: defaultModel,
		out:          out,
		logger:       logger,
	}
}

// Execute streams the task's prompt and returns the accumulated text.
// Provider failures, including cancellation, are returned as *models.ProviderError.
func (e *Executor) Execute(ctx context.Context, task Task) (string, error) {
	model := task.Settings.Model
	if model == "" {
		model = e.defaultModel
	}

	ctx, span := tracer.Start(ctx, "generator.Execute", trace.WithAttributes(
		attribute.String("recipe.part", string(task.Part)),
		attribute.String("llm.model", model),
	))
	defer span.End()

	e.logger.Debug("running generation for part",
		zap.String("part", string(task.Part)),
		zap.String("model", model),
	)

	output, err := e.collect(ctx, model, task)
	if err != nil {
		return "", err
	}

	e.logger.Debug("generation finished for part",
		zap.String("part", string(task.Part)),
		zap.Int("length", len(output)),
		zap.String("preview", preview(output, 80)),
	)

	if task.OnComplete != nil {
		if err := task.OnComplete(ctx, output); err != nil {
			return output, err
		}
	}
	return output, nil
}

// collect drains the provider stream, pushing each delta as it arrives
func (e *Executor) collect(ctx context.Context, model string, task Task) (string, error) {
	stream, err := e.provider.Stream(ctx, completion.Request{
		Model:       model,
		Prompt:      task.Prompt,
		MaxTokens:   task.Settings.MaxTokens,
		Temperature: task.Settings.Temperature,
		TopP:        task.Settings.TopP,
	})
	if err != nil {
		return "", &models.ProviderError{Part: task.Part, Model: model, Err: err}
	}
	defer stream.Close()

	var buffer strings.Builder
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return buffer.String(), nil
		}
		if err != nil {
			return "", &models.ProviderError{Part: task.Part, Model: model, Err: err}
		}

		if e.out != nil {
			if err := e.out.Push(models.Fragment{Part: task.Part, Content: delta}); err != nil {
				return "", err
			}
		}
		buffer.WriteString(delta)
	}
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
