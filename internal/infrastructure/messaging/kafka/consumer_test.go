package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/helmkit/internal/testutil"
	apperrors "github.com/turtacn/helmkit/pkg/errors"
)

// mockKafkaReader hands out queued messages and then blocks until the
// context ends.
type mockKafkaReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	fetchErrs []error
	committed []int64
	closed    bool
}

func (m *mockKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if len(m.fetchErrs) > 0 {
		err := m.fetchErrs[0]
		m.fetchErrs = m.fetchErrs[1:]
		m.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(m.queue) > 0 {
		msg := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *mockKafkaReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range msgs {
		m.committed = append(m.committed, msg.Offset)
	}
	return nil
}

func (m *mockKafkaReader) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockKafkaReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{} }

func (m *mockKafkaReader) commits() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.committed...)
}

// recordingPublisher collects dead-lettered messages.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) published() []*Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Message(nil), p.msgs...)
}

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers:         []string{"localhost:9092"},
		GroupID:         "helmkit-test",
		Topic:           "requests",
		MaxRetries:      2,
		RetryBackoff:    time.Millisecond,
		MaxRetryBackoff: 2 * time.Millisecond,
		DeadLetterTopic: "requests.dlq",
	}
}

// runUntil runs c until cond holds, then cancels and waits for Run.
func runUntil(t *testing.T, c *Consumer, cond func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestValidateConsumerConfig(t *testing.T) {
	tests := map[string]func(*ConsumerConfig){
		"no brokers":       func(c *ConsumerConfig) { c.Brokers = nil },
		"no group":         func(c *ConsumerConfig) { c.GroupID = "" },
		"no topic":         func(c *ConsumerConfig) { c.Topic = "" },
		"negative retries": func(c *ConsumerConfig) { c.MaxRetries = -1 },
	}
	assert.NoError(t, ValidateConsumerConfig(testConsumerConfig()))
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConsumerConfig()
			mutate(&cfg)
			err := ValidateConsumerConfig(cfg)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
		})
	}
}

func TestConsumer_HandlesAndCommits(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{
		{Topic: "requests", Offset: 1, Value: []byte("a"), Headers: []kafka.Header{{Key: "k", Value: []byte("v")}}},
		{Topic: "requests", Offset: 2, Value: []byte("b")},
	}}
	var seen []string
	var mu sync.Mutex
	handler := func(_ context.Context, msg *Message) error {
		mu.Lock()
		seen = append(seen, string(msg.Value))
		mu.Unlock()
		if msg.Offset == 1 {
			assert.Equal(t, "v", msg.Headers["k"])
		}
		return nil
	}
	c := NewConsumerWithReader(reader, testConsumerConfig(), handler, nil, nil)

	runUntil(t, c, func() bool { return len(reader.commits()) == 2 })

	assert.Equal(t, []int64{1, 2}, reader.commits())
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, ConsumerStats{Consumed: 2, Processed: 2}, c.Stats())
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{{Topic: "requests", Offset: 7, Value: []byte("x")}}}
	var calls atomic.Int32
	handler := func(context.Context, *Message) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}
	dl := &recordingPublisher{}
	c := NewConsumerWithReader(reader, testConsumerConfig(), handler, dl, nil)

	runUntil(t, c, func() bool { return len(reader.commits()) == 1 })

	assert.EqualValues(t, 3, calls.Load())
	stats := c.Stats()
	assert.EqualValues(t, 2, stats.Retried)
	assert.EqualValues(t, 1, stats.Processed)
	assert.Empty(t, dl.published())
}

func TestConsumer_DeadLettersAfterRetries(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{{
		Topic: "requests", Offset: 3, Key: []byte("job-3"), Value: []byte("x"),
		Headers: []kafka.Header{{Key: "trace", Value: []byte("t1")}},
	}}}
	var calls atomic.Int32
	handler := func(context.Context, *Message) error {
		calls.Add(1)
		return errors.New("results topic unavailable")
	}
	dl := &recordingPublisher{}
	logger := testutil.NewMockLogger()
	c := NewConsumerWithReader(reader, testConsumerConfig(), handler, dl, logger)

	runUntil(t, c, func() bool { return len(reader.commits()) == 1 })

	assert.EqualValues(t, 3, calls.Load())
	msgs := dl.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "requests.dlq", msgs[0].Topic)
	assert.Equal(t, []byte("job-3"), msgs[0].Key)
	assert.Equal(t, "requests", msgs[0].Headers[HeaderOriginalTopic])
	assert.Equal(t, "results topic unavailable", msgs[0].Headers[HeaderError])
	assert.Equal(t, "3", msgs[0].Headers[HeaderAttempts])
	assert.Equal(t, "t1", msgs[0].Headers["trace"])

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 1, stats.DeadLettered)
	assert.True(t, logger.HasMessage("error", "Message processing failed after retries"))
}

func TestConsumer_DeadLetterFailureStillCommits(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{{Topic: "requests", Offset: 4, Value: []byte("x")}}}
	dl := &recordingPublisher{err: errors.New("broker down")}
	cfg := testConsumerConfig()
	cfg.MaxRetries = 0
	logger := testutil.NewMockLogger()
	c := NewConsumerWithReader(reader, cfg, func(context.Context, *Message) error {
		return errors.New("boom")
	}, dl, logger)

	runUntil(t, c, func() bool { return len(reader.commits()) == 1 })

	assert.EqualValues(t, 0, c.Stats().DeadLettered)
	assert.True(t, logger.HasMessage("error", "Failed to send to dead letter topic"))
}

func TestConsumer_FetchErrorIsLogged(t *testing.T) {
	reader := &mockKafkaReader{
		fetchErrs: []error{errors.New("coordinator not available")},
		queue:     []kafka.Message{{Topic: "requests", Offset: 9, Value: []byte("x")}},
	}
	logger := testutil.NewMockLogger()
	c := NewConsumerWithReader(reader, testConsumerConfig(), func(context.Context, *Message) error { return nil }, nil, logger)

	runUntil(t, c, func() bool { return len(reader.commits()) == 1 })
	assert.True(t, logger.HasMessage("error", "FetchMessage failed"))
}

func TestConsumer_CancelDuringRetryDoesNotCommit(t *testing.T) {
	reader := &mockKafkaReader{queue: []kafka.Message{{Topic: "requests", Offset: 5, Value: []byte("x")}}}
	cfg := testConsumerConfig()
	cfg.RetryBackoff = time.Hour
	cfg.MaxRetryBackoff = time.Hour
	var calls atomic.Int32
	c := NewConsumerWithReader(reader, cfg, func(context.Context, *Message) error {
		calls.Add(1)
		return errors.New("boom")
	}, nil, nil)

	runUntil(t, c, func() bool { return calls.Load() == 1 })
	assert.Empty(t, reader.commits())
}

func TestConsumer_RunTwice(t *testing.T) {
	reader := &mockKafkaReader{}
	c := NewConsumerWithReader(reader, testConsumerConfig(), func(context.Context, *Message) error { return nil }, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	require.Eventually(t, c.running.Load, time.Second, time.Millisecond)

	assert.ErrorIs(t, c.Run(ctx), ErrAlreadyRunning)
	cancel()
	require.NoError(t, <-done)

	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}
