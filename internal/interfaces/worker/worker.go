// Package worker binds queued notation jobs to the notation service: it
// decodes each request message, runs the job and publishes the result.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/helmkit/pkg/errors"
)

// HeaderContentType is set on every result message.
const HeaderContentType = "content-type"

const contentTypeJSON = "application/json"

// Worker turns request messages into result messages.
type Worker struct {
	processor   *notation.JobProcessor
	results     kafka.Publisher
	resultTopic string
	metrics     *prometheus.AppMetrics
	logger      logging.Logger
}

// New returns a Worker publishing results to resultTopic.
func New(processor *notation.JobProcessor, results kafka.Publisher, resultTopic string, metrics *prometheus.AppMetrics, logger logging.Logger) *Worker {
	if metrics == nil {
		metrics = prometheus.NewNopAppMetrics()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Worker{
		processor:   processor,
		results:     results,
		resultTopic: resultTopic,
		metrics:     metrics,
		logger:      logger,
	}
}

// Handle is a kafka.Handler.  Job failures are reported in the result
// message; only a failed publish is returned, so the consumer retries the
// message.
func (w *Worker) Handle(ctx context.Context, msg *kafka.Message) error {
	start := time.Now()

	var (
		res     *notation.JobResult
		outcome string
	)
	req, err := decodeRequest(msg)
	if err != nil {
		res = &notation.JobResult{ID: string(msg.Key), Error: notation.ErrorInfoFor(err)}
		outcome = "malformed"
		w.logger.Warn("Malformed job request",
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
	} else {
		res = w.processor.Process(ctx, req)
		outcome = "success"
		if !res.OK() {
			outcome = "failed"
		}
	}

	value, err := json.Marshal(res)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode job result")
	}
	key := msg.Key
	if len(key) == 0 && res.ID != "" {
		key = []byte(res.ID)
	}
	if err := w.results.Publish(ctx, &kafka.Message{
		Topic:   w.resultTopic,
		Key:     key,
		Value:   value,
		Headers: map[string]string{HeaderContentType: contentTypeJSON},
	}); err != nil {
		return err
	}

	elapsed := time.Since(start)
	prometheus.RecordWorkerJob(w.metrics, res.Operation, outcome, elapsed)
	w.logger.Debug("Job processed",
		logging.String("id", res.ID),
		logging.String("operation", res.Operation),
		logging.String("outcome", outcome),
		logging.Duration("elapsed", elapsed))
	return nil
}

func decodeRequest(msg *kafka.Message) (*notation.JobRequest, error) {
	var req notation.JobRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed job request")
	}
	if req.ID == "" {
		req.ID = string(msg.Key)
	}
	return &req, nil
}
