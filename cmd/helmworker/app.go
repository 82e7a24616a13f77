package main

import (
	"context"
	"fmt"
	"net"

	"github.com/turtacn/helmkit/internal/application/notation"
	"github.com/turtacn/helmkit/internal/bootstrap"
	"github.com/turtacn/helmkit/internal/config"
	"github.com/turtacn/helmkit/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/helmkit/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/helmkit/internal/interfaces/http"
	"github.com/turtacn/helmkit/internal/interfaces/http/handlers"
	"github.com/turtacn/helmkit/internal/interfaces/worker"
)

// transport supplies the Kafka reader and writer; tests inject fakes.
type transport func(kafka.ConsumerConfig, kafka.ProducerConfig) (kafka.ReaderInterface, kafka.WriterInterface)

func brokerTransport(c kafka.ConsumerConfig, p kafka.ProducerConfig) (kafka.ReaderInterface, kafka.WriterInterface) {
	return kafka.NewReader(c), kafka.NewWriter(p)
}

// app holds the wired helmworker components.
type app struct {
	cfg      *config.Config
	logger   logging.Logger
	metrics  *prometheus.AppMetrics
	backends *bootstrap.Backends
	producer *kafka.Producer
	consumer *kafka.Consumer
	server   *httpserver.Server
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*app, error) {
	return newAppWithTransport(ctx, cfg, logger, brokerTransport)
}

func newAppWithTransport(ctx context.Context, cfg *config.Config, logger logging.Logger, tr transport) (*app, error) {
	if !cfg.Kafka.Enabled {
		return nil, fmt.Errorf("helmworker: kafka.enabled must be true")
	}
	metrics, collector, err := bootstrap.NewMetrics(cfg.Metrics, logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, metrics: metrics}

	a.backends, err = bootstrap.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := a.backends.NewStore(ctx, cfg.Monomers.LibraryPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.metrics.MonomerLibrarySize.WithLabelValues("store").Set(float64(store.Len()))
	service := a.backends.NewService(cfg, store, metrics)

	producerCfg := kafka.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	}
	consumerCfg := kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topic:           cfg.Kafka.RequestTopic,
		MaxRetries:      cfg.Kafka.MaxRetries,
		RetryBackoff:    cfg.Kafka.RetryBackoff,
		DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
	}

	if err := kafka.ValidateConsumerConfig(consumerCfg); err != nil {
		a.Close()
		return nil, err
	}
	reader, writer := tr(consumerCfg, producerCfg)
	a.producer = kafka.NewProducerWithWriter(writer, producerCfg, logger.Named("producer"))

	var deadLetter kafka.Publisher
	if cfg.Kafka.DeadLetterTopic != "" {
		deadLetter = a.producer
	}
	w := worker.New(notation.NewJobProcessor(service), a.producer, cfg.Kafka.ResultTopic, metrics, logger.Named("worker"))
	a.consumer = kafka.NewConsumerWithReader(reader, consumerCfg, w.Handle, deadLetter, logger.Named("consumer"))

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Version:          version,
		HealthCheckers:   append([]handlers.HealthChecker{handlers.NewStoreChecker(store)}, a.backends.HealthCheckers()...),
		Server:           cfg.Server,
		Logger:           logger,
		Metrics:          metrics,
		MetricsCollector: collector,
		MetricsPath:      cfg.Metrics.Path,
	})
	a.server = httpserver.NewServer(cfg.Server, router, logger.Named("http"))
	return a, nil
}

// Run consumes jobs until ctx is cancelled, serving health and metrics
// alongside.
func (a *app) Run(ctx context.Context) error {
	return a.run(ctx, nil)
}

// run serves health on ln, or on the configured address when ln is nil.
func (a *app) run(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		if ln != nil {
			serveErr <- a.server.Serve(ln)
		} else {
			serveErr <- a.server.Start()
		}
	}()

	consumeErr := make(chan error, 1)
	go func() { consumeErr <- a.consumer.Run(ctx) }()

	var err error
	select {
	case err = <-serveErr:
		cancel()
		<-consumeErr
		return err
	case err = <-consumeErr:
	}
	a.logger.Info("Shutdown signal received")
	if stopErr := a.server.Stop(context.Background()); stopErr != nil && err == nil {
		err = stopErr
	}
	if serr := <-serveErr; serr != nil && err == nil {
		err = serr
	}
	return err
}

// Close flushes the producer and releases every connection.
func (a *app) Close() {
	if a.consumer != nil {
		_ = a.consumer.Close()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
	if a.backends != nil {
		a.backends.Close()
	}
}
