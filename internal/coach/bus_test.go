package coach

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loqalabs/loqa-coach/internal/analysis"
	"github.com/loqalabs/loqa-coach/internal/bus"
	"github.com/loqalabs/loqa-coach/internal/config"
	"github.com/loqalabs/loqa-coach/internal/llm"
	"github.com/loqalabs/loqa-coach/internal/natsserver"
	"github.com/loqalabs/loqa-coach/internal/protocol"
)

func startBus(t *testing.T) *bus.Client {
	t.Helper()
	srv, err := natsserver.Start(config.BusConfig{Embedded: true, Port: -1}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	client, err := bus.Connect(context.Background(), "coach-test", config.BusConfig{
		Servers:        []string{srv.ClientURL()},
		ConnectTimeout: 2000,
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestBusServiceAnswersAnalyzeRequests(t *testing.T) {
	client := startBus(t)
	svc := newTestService(t, config.LLMConfig{}, nil, nil, client)

	events := make(chan *nats.Msg, 1)
	sub, err := client.Conn().ChanSubscribe(protocol.SubjectSessionRecorded, events)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	busSvc := NewBusService(context.Background(), svc, client, 5*time.Second, discardLogger())
	require.NoError(t, busSvc.Start())
	defer busSvc.Close()
	assert.True(t, busSvc.Healthy())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var reply protocol.AnalyzeReply
	require.NoError(t, client.RequestJSON(ctx, protocol.SubjectAnalyzeRequest, protocol.AnalyzeRequest{
		Transcript:      strongAnswer,
		DurationSeconds: 60,
		QuestionType:    "Engineering",
	}, &reply))

	assert.Empty(t, reply.Error)
	assert.Equal(t, 96, reply.Result.OverallScore)
	assert.Equal(t, analysis.ProviderFallback, reply.Provider)
	assert.NotEmpty(t, reply.FallbackReason)
	assert.NotEmpty(t, reply.Session.ID)

	select {
	case msg := <-events:
		var evt protocol.SessionRecorded
		require.NoError(t, json.Unmarshal(msg.Data, &evt))
		assert.Equal(t, reply.Session.ID, evt.Session.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no session event published")
	}
}

func TestBusServiceReportsErrors(t *testing.T) {
	client := startBus(t)
	svc := newTestService(t, config.LLMConfig{}, nil, nil, nil)

	busSvc := NewBusService(context.Background(), svc, client, 5*time.Second, discardLogger())
	require.NoError(t, busSvc.Start())
	defer busSvc.Close()

	msg, err := client.Conn().Request(protocol.SubjectAnalyzeRequest, []byte("{not json"), 5*time.Second)
	require.NoError(t, err)
	var reply protocol.AnalyzeReply
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.Contains(t, reply.Error, "decode request")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, client.RequestJSON(ctx, protocol.SubjectAnalyzeRequest, protocol.AnalyzeRequest{
		Audio:       make([]byte, 3200),
		AudioFormat: "pcm16",
		SampleRate:  16000,
		Channels:    1,
	}, &reply))
	assert.Equal(t, ErrNoRecognizer.Error(), reply.Error)
}

type blockingGenerator struct {
	started chan struct{}
}

func (g blockingGenerator) Generate(ctx context.Context, _ llm.Request, _ func(llm.Chunk) error) error {
	g.started <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestBusServiceCloseFinishesInFlightRequests(t *testing.T) {
	client := startBus(t)
	gen := blockingGenerator{started: make(chan struct{}, 1)}
	svc := newTestService(t, config.LLMConfig{Enabled: true, TimeoutMS: 60000}, gen, nil, nil)

	busSvc := NewBusService(context.Background(), svc, client, time.Minute, discardLogger())
	require.NoError(t, busSvc.Start())

	replies := make(chan protocol.AnalyzeReply, 1)
	errs := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var reply protocol.AnalyzeReply
		if err := client.RequestJSON(ctx, protocol.SubjectAnalyzeRequest, protocol.AnalyzeRequest{
			Transcript:      strongAnswer,
			DurationSeconds: 60,
		}, &reply); err != nil {
			errs <- err
			return
		}
		replies <- reply
	}()

	select {
	case <-gen.started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the model")
	}
	busSvc.Close()
	assert.False(t, busSvc.Healthy())

	select {
	case reply := <-replies:
		assert.Equal(t, analysis.ProviderFallback, reply.Provider)
		assert.Contains(t, reply.FallbackReason, "canceled")
		recorded := svc.Basic().All(context.Background())
		require.Len(t, recorded, 1)
		assert.Equal(t, reply.Session.ID, recorded[0].ID)
	case err := <-errs:
		t.Fatalf("request failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request got no reply")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var reply protocol.AnalyzeReply
	assert.Error(t, client.RequestJSON(ctx, protocol.SubjectAnalyzeRequest, protocol.AnalyzeRequest{Transcript: strongAnswer}, &reply))
}
