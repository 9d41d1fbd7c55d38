package generator

import (
	"context"
	"testing"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGenerate_RecordsSpansAndMetrics(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	metrics := telemetry.NewMetrics()
	gen := newTestGenerator(t, scriptedProvider(), WithPicker(pickIndex(0)), WithMetrics(metrics))

	var out collector
	require.NoError(t, gen.Generate(context.Background(), request, out.sink))

	var root sdktrace.ReadOnlySpan
	parts := make(map[string]bool)
	for _, span := range recorder.Ended() {
		switch span.Name() {
		case "generator.Generate":
			root = span
		case "generator.Execute":
			for _, kv := range span.Attributes() {
				if kv.Key == attribute.Key("recipe.part") {
					parts[kv.Value.AsString()] = true
				}
			}
		}
	}
	require.NotNil(t, root)
	assert.Equal(t, map[string]bool{
		"init": true, "add": true, "ste": true, "int": true, "ing": true, "sde": true,
	}, parts)

	// one series per delivered part, one per generation outcome
	count, err := testutil.GatherAndCount(metrics.Registry(), "recipe_fragments_total")
	require.NoError(t, err)
	assert.Equal(t, 6, count)
	count, err = testutil.GatherAndCount(metrics.Registry(), "recipe_generations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
