package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/helmkit/internal/testutil"
)

type fakeBroker struct {
	mu        sync.Mutex
	requests  []segkafka.Message
	written   []segkafka.Message
	committed int
	fail      bool
}

func (b *fakeBroker) FetchMessage(ctx context.Context) (segkafka.Message, error) {
	b.mu.Lock()
	if len(b.requests) > 0 {
		m := b.requests[0]
		b.requests = b.requests[1:]
		b.mu.Unlock()
		return m, nil
	}
	b.mu.Unlock()
	<-ctx.Done()
	return segkafka.Message{}, ctx.Err()
}

func (b *fakeBroker) CommitMessages(_ context.Context, msgs ...segkafka.Message) error {
	b.mu.Lock()
	b.committed += len(msgs)
	b.mu.Unlock()
	return nil
}

func (b *fakeBroker) WriteMessages(_ context.Context, msgs ...segkafka.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range msgs {
		if b.fail && m.Topic != "requests.dlq" {
			return context.DeadlineExceeded
		}
		b.written = append(b.written, m)
	}
	return nil
}

func (b *fakeBroker) Close() error               { return nil }
func (b *fakeBroker) Stats() segkafka.ReaderStats { return segkafka.ReaderStats{} }

// fakeWriter is the writer side of fakeBroker.
type fakeWriter struct{ *fakeBroker }

func (fakeWriter) Stats() segkafka.WriterStats { return segkafka.WriterStats{} }

func (b *fakeBroker) transport(kafka.ConsumerConfig, kafka.ProducerConfig) (kafka.ReaderInterface, kafka.WriterInterface) {
	return b, fakeWriter{b}
}

func (b *fakeBroker) snapshot() ([]segkafka.Message, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]segkafka.Message(nil), b.written...), b.committed
}

func workerConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.RequestTopic = "requests"
	cfg.Kafka.ResultTopic = "results"
	cfg.Kafka.RetryBackoff = time.Millisecond
	config.ApplyDefaults(cfg)
	cfg.Server.Host = "127.0.0.1"
	require.NoError(t, cfg.Validate())
	return cfg
}

func start(t *testing.T, a *app) (string, context.CancelFunc, chan error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx, ln) }()
	return "http://" + ln.Addr().String(), cancel, done
}

func stop(t *testing.T, cancel context.CancelFunc, done chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not shut down")
	}
}

func TestNewApp_RequiresKafka(t *testing.T) {
	cfg := workerConfig(t)
	cfg.Kafka.Enabled = false
	_, err := newApp(context.Background(), cfg, testutil.NewMockLogger())
	assert.Error(t, err)
}

func TestApp_ProcessesJobs(t *testing.T) {
	broker := &fakeBroker{requests: []segkafka.Message{
		{Topic: "requests", Offset: 1, Key: []byte("j1"), Value: []byte(`{"id":"j1","operation":"canonicalize","helm":"PEPTIDE1{K}|PEPTIDE2{A}"}`)},
		{Topic: "requests", Offset: 2, Key: []byte("j2"), Value: []byte(`not json`)},
	}}
	cfg := workerConfig(t)
	cfg.Metrics.Enabled = true
	logger := testutil.NewMockLogger()

	a, err := newAppWithTransport(context.Background(), cfg, logger, broker.transport)
	require.NoError(t, err)
	defer a.Close()

	base, cancel, done := start(t, a)
	require.Eventually(t, func() bool {
		_, committed := broker.snapshot()
		return committed == 2
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get(base + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stop(t, cancel, done)

	written, _ := broker.snapshot()
	require.Len(t, written, 2)
	assert.Equal(t, "results", written[0].Topic)

	var first struct {
		ID     string `json:"id"`
		Result struct {
			Canonical string `json:"canonical"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(written[0].Value, &first))
	assert.Equal(t, "j1", first.ID)
	assert.Equal(t, "PEPTIDE1{A}|PEPTIDE2{K}$$$$", first.Result.Canonical)

	var second struct {
		ID    string `json:"id"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(written[1].Value, &second))
	assert.Equal(t, "j2", second.ID)
	assert.Equal(t, "COMMON_002", second.Error.Code)
	assert.True(t, logger.HasMessage("info", "Shutdown signal received"))
}

func TestApp_DeadLettersUnpublishableResults(t *testing.T) {
	broker := &fakeBroker{
		fail: true,
		requests: []segkafka.Message{
			{Topic: "requests", Offset: 1, Key: []byte("j1"), Value: []byte(`{"id":"j1","operation":"validate","helm":"PEPTIDE1{A}"}`)},
		},
	}
	cfg := workerConfig(t)
	cfg.Kafka.DeadLetterTopic = "requests.dlq"
	cfg.Kafka.MaxRetries = 1

	a, err := newAppWithTransport(context.Background(), cfg, testutil.NewMockLogger(), broker.transport)
	require.NoError(t, err)
	defer a.Close()

	_, cancel, done := start(t, a)
	require.Eventually(t, func() bool {
		_, committed := broker.snapshot()
		return committed == 1
	}, 5*time.Second, 10*time.Millisecond)
	stop(t, cancel, done)

	written, _ := broker.snapshot()
	require.Len(t, written, 1)
	assert.Equal(t, "requests.dlq", written[0].Topic)
	assert.Equal(t, []byte("j1"), written[0].Key)
	assert.Equal(t, "requests", header(written[0], kafka.HeaderOriginalTopic))
	assert.Equal(t, "2", header(written[0], kafka.HeaderAttempts))
}

func header(m segkafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
