package completion_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/completion"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/completion/completiontest"
	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(s completion.Stream) error {
	for {
		if _, err := s.Recv(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func TestInstrument_RecordsOutcomes(t *testing.T) {
	metrics := telemetry.NewMetrics()
	scripted := completiontest.New().
		On("good", completiontest.Response{Deltas: []string{"a", "b", "c"}}).
		On("bad", completiontest.Response{Deltas: []string{"a"}, RecvErr: errors.New("reset by peer")}).
		On("refused", completiontest.Response{OpenErr: errors.New("503")}).
		On("early", completiontest.Response{Deltas: []string{"a", "b"}})
	provider := completion.Instrument(scripted, metrics)
	ctx := context.Background()

	s, err := provider.Stream(ctx, completion.Request{Model: "m", Prompt: "good"})
	require.NoError(t, err)
	require.NoError(t, drain(s))
	require.NoError(t, s.Close())

	s, err = provider.Stream(ctx, completion.Request{Model: "m", Prompt: "bad"})
	require.NoError(t, err)
	require.Error(t, drain(s))
	require.NoError(t, s.Close())

	_, err = provider.Stream(ctx, completion.Request{Model: "m", Prompt: "refused"})
	require.Error(t, err)

	s, err = provider.Stream(ctx, completion.Request{Model: "m", Prompt: "early"})
	require.NoError(t, err)
	_, err = s.Recv()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	expected := `
# HELP completion_requests_total Streaming completion requests by model and outcome.
# TYPE completion_requests_total counter
completion_requests_total{model="m",outcome="abandoned"} 1
completion_requests_total{model="m",outcome="error"} 2
completion_requests_total{model="m",outcome="ok"} 1
# HELP completion_deltas_total Text deltas received from the completion provider by model.
# TYPE completion_deltas_total counter
completion_deltas_total{model="m"} 5
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected),
		"completion_requests_total", "completion_deltas_total"))
}

func TestInstrument_Cancelled(t *testing.T) {
	metrics := telemetry.NewMetrics()
	provider := completion.Instrument(
		completiontest.New().Otherwise(completiontest.Response{Hang: true}),
		metrics,
	)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := provider.Stream(ctx, completion.Request{Model: "m", Prompt: "p"})
	require.NoError(t, err)

	cancel()
	_, err = s.Recv()
	assert.ErrorIs(t, err, context.Canceled)

	expected := `
# HELP completion_requests_total Streaming completion requests by model and outcome.
# TYPE completion_requests_total counter
completion_requests_total{model="m",outcome="cancelled"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "completion_requests_total"))
}

func TestInstrument_NilMetrics(t *testing.T) {
	provider := completion.Instrument(completiontest.New(), nil)
	s, err := provider.Stream(context.Background(), completion.Request{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.NoError(t, drain(s))
}
