package kafka

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/pkg/errors"
)

var ErrAlreadyRunning = errors.New(errors.ErrCodeInternal, "consumer already running")

const fetchErrorBackoff = time.Second

// ConsumerConfig holds configuration for the Consumer.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string

	// MaxRetries is the number of redeliveries after the first failure.
	MaxRetries      int
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration
	// DeadLetterTopic receives messages whose handler kept failing.  Empty
	// drops them.
	DeadLetterTopic string
}

// ConsumerStats is a snapshot of consumer counters.
type ConsumerStats struct {
	Consumed     int64
	Processed    int64
	Failed       int64
	Retried      int64
	DeadLettered int64
}

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.ReaderStats
}

// Publisher is the dead-letter sink.  *Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// Consumer reads one topic in a consumer group and hands each message to a
// Handler.  Offsets are committed only after the handler succeeded or the
// message was given up on.
type Consumer struct {
	reader     ReaderInterface
	config     ConsumerConfig
	handler    Handler
	deadLetter Publisher
	logger     logging.Logger
	running    atomic.Bool

	consumed     atomic.Int64
	processed    atomic.Int64
	failed       atomic.Int64
	retried      atomic.Int64
	deadLettered atomic.Int64
}

// NewConsumer creates a Consumer backed by a kafka.Reader.  deadLetter may be
// nil.
func NewConsumer(cfg ConsumerConfig, handler Handler, deadLetter Publisher, logger logging.Logger) (*Consumer, error) {
	if err := ValidateConsumerConfig(cfg); err != nil {
		return nil, err
	}
	return NewConsumerWithReader(NewReader(cfg), cfg, handler, deadLetter, logger), nil
}

// NewReader builds a consumer-group kafka.Reader for cfg.  A new group
// starts from the oldest retained job.
func NewReader(cfg ConsumerConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    1,
		MaxBytes:    10 << 20,
		MaxWait:     time.Second,
		StartOffset: kafka.FirstOffset,
		Dialer:      &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true},
	})
}

// NewConsumerWithReader wraps an existing reader, typically a fake in tests.
func NewConsumerWithReader(r ReaderInterface, cfg ConsumerConfig, handler Handler, deadLetter Publisher, logger logging.Logger) *Consumer {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.MaxRetryBackoff <= 0 {
		cfg.MaxRetryBackoff = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Consumer{
		reader:     r,
		config:     cfg,
		handler:    handler,
		deadLetter: deadLetter,
		logger:     logger,
	}
}

// Run consumes until ctx is cancelled and then returns nil.
func (c *Consumer) Run(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	c.logger.Info("Kafka consumer started",
		logging.String("group", c.config.GroupID),
		logging.String("topic", c.config.Topic))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Kafka consumer stopping", logging.Int64("consumed", c.consumed.Load()))
				return nil
			}
			c.logger.Error("FetchMessage failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchErrorBackoff):
			}
			continue
		}
		c.consumed.Add(1)

		if !c.process(ctx, fromKafka(m)) {
			// Cancelled mid-retry; the message is redelivered after restart.
			return nil
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("CommitMessages failed",
				logging.Int64("offset", m.Offset),
				logging.Err(err))
		}
	}
}

// process runs the handler with retries.  It returns false only when ctx was
// cancelled before the message was settled.
func (c *Consumer) process(ctx context.Context, msg *Message) bool {
	err := c.handler(ctx, msg)
	attempts := 1
	backoff := c.config.RetryBackoff
	for err != nil && attempts <= c.config.MaxRetries {
		c.retried.Add(1)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		err = c.handler(ctx, msg)
		attempts++
		backoff *= 2
		if backoff > c.config.MaxRetryBackoff {
			backoff = c.config.MaxRetryBackoff
		}
	}
	if err == nil {
		c.processed.Add(1)
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	c.failed.Add(1)
	c.logger.Error("Message processing failed after retries",
		logging.String("topic", msg.Topic),
		logging.Int64("offset", msg.Offset),
		logging.Int("attempts", attempts),
		logging.Err(err))
	c.sendToDeadLetter(ctx, msg, err, attempts)
	return true
}

func (c *Consumer) sendToDeadLetter(ctx context.Context, msg *Message, cause error, attempts int) {
	if c.deadLetter == nil || c.config.DeadLetterTopic == "" {
		return
	}
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderError] = cause.Error()
	headers[HeaderAttempts] = strconv.Itoa(attempts)

	dl := &Message{Topic: c.config.DeadLetterTopic, Key: msg.Key, Value: msg.Value, Headers: headers}
	if err := c.deadLetter.Publish(ctx, dl); err != nil {
		c.logger.Error("Failed to send to dead letter topic",
			logging.String("topic", c.config.DeadLetterTopic),
			logging.Err(err))
		return
	}
	c.deadLettered.Add(1)
}

// Stats returns the consumer counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Consumed:     c.consumed.Load(),
		Processed:    c.processed.Load(),
		Failed:       c.failed.Load(),
		Retried:      c.retried.Load(),
		DeadLettered: c.deadLettered.Load(),
	}
}

// Close closes the reader.  Call it after Run returned.
func (c *Consumer) Close() error {
	err := c.reader.Close()
	c.logger.Info("Kafka consumer closed", logging.Int64("consumed", c.consumed.Load()))
	return err
}

// ValidateConsumerConfig validates configuration.
func ValidateConsumerConfig(cfg ConsumerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}
	if cfg.GroupID == "" {
		return errors.New(errors.ErrCodeValidation, "kafka group id is required")
	}
	if cfg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "kafka topic is required")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "kafka max retries must be >= 0")
	}
	return nil
}
