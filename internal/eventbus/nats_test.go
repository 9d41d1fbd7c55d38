package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		t.Fatal("nats server failed to start")
	}
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestNATSPublisher_PublishesJSON(t *testing.T) {
	ns := runNATSServer(t)

	publisher, err := ConnectNATS(ns.ClientURL(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer publisher.Close()

	received := make(chan *nats.Msg, 1)
	_, err = publisher.Subscribe("recipes.generation.>", func(msg *nats.Msg) {
		received <- msg
	})
	require.NoError(t, err)
	require.NoError(t, publisher.Ping(context.Background()))

	event := GenerationEvent{
		GenerationID:   "gen-1",
		CandidateCount: 3,
		Selected:       "Congee",
		Timestamp:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, publisher.Publish(context.Background(), SubjectGenerationCompleted, event))

	select {
	case msg := <-received:
		assert.Equal(t, SubjectGenerationCompleted, msg.Subject)
		var got GenerationEvent
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, event, got)
	case <-time.After(5 * time.Second):
		t.Fatal("event not received")
	}
}

func TestNATSPublisher_PublishHonorsContext(t *testing.T) {
	ns := runNATSServer(t)

	publisher, err := ConnectNATS(ns.ClientURL(), nil)
	require.NoError(t, err)
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, publisher.Publish(ctx, SubjectGenerationStarted, GenerationEvent{}), context.Canceled)
}

func TestNATSPublisher_PingAfterServerShutdown(t *testing.T) {
	ns := runNATSServer(t)

	publisher, err := ConnectNATS(ns.ClientURL(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer publisher.Close()

	ns.Shutdown()
	ns.WaitForShutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	assert.Error(t, publisher.Ping(ctx))
}

func TestConnectNATS_Unreachable(t *testing.T) {
	_, err := ConnectNATS("nats://127.0.0.1:1", nil)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), SubjectGenerationFailed, GenerationEvent{}))
}
