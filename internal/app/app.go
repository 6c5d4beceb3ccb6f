package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"speech-analytics-pipeline/internal/config"
	"speech-analytics-pipeline/internal/consumer"
	"speech-analytics-pipeline/internal/dedupe"
	"speech-analytics-pipeline/internal/events"
	ophttp "speech-analytics-pipeline/internal/http"
	"speech-analytics-pipeline/internal/observability"
	"speech-analytics-pipeline/internal/observability/logging"
	"speech-analytics-pipeline/internal/observability/metrics"
	"speech-analytics-pipeline/internal/pipeline"
	"speech-analytics-pipeline/internal/retry"
	"speech-analytics-pipeline/internal/service/categorize"
	"speech-analytics-pipeline/internal/service/categorize/openai"
	"speech-analytics-pipeline/internal/service/gcp"
	"speech-analytics-pipeline/internal/service/nlp"
	nlpgoogle "speech-analytics-pipeline/internal/service/nlp/google"
	nlpmock "speech-analytics-pipeline/internal/service/nlp/mock"
	"speech-analytics-pipeline/internal/service/redact"
	"speech-analytics-pipeline/internal/service/redact/dlp"
	redactmock "speech-analytics-pipeline/internal/service/redact/mock"
	"speech-analytics-pipeline/internal/service/stt"
	sttgoogle "speech-analytics-pipeline/internal/service/stt/google"
	sttmock "speech-analytics-pipeline/internal/service/stt/mock"
	"speech-analytics-pipeline/internal/service/transcription"
	"speech-analytics-pipeline/internal/sink"
	"speech-analytics-pipeline/internal/sink/clickhouse"
	"speech-analytics-pipeline/internal/sink/elasticsearch"
	"speech-analytics-pipeline/internal/sink/postgres"
	"speech-analytics-pipeline/internal/sink/xlsx"
)

// grpcHealthService is the name reported by the gRPC health server.
const grpcHealthService = "speech.analytics.Pipeline"

// Application holds process-wide state for the worker.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config
	Metrics     *metrics.Metrics

	pipeline  *pipeline.Pipeline
	consumer  *consumer.Consumer
	publisher *events.Publisher
	sink      *sink.Multi
	closers   []io.Closer // provider clients

	opsServer    *observability.Server
	grpcServer   *grpc.Server
	healthServer *health.Server
	ready        atomic.Bool
}

// New builds every client, sink and the consumer from cfg. Sinks are opened
// (and their schemas created) here so a bad backend fails startup.
func New(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Application, error) {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	a := &Application{
		Cfg:     cfg,
		Metrics: m,
		Logger:  logging.WithComponent("application"),
	}

	policy := retryPolicy(cfg.Retry)
	gcpCfg := gcp.ClientConfig{
		ProjectID:       cfg.GCP.ProjectID,
		CredentialsFile: cfg.GCP.CredentialsFile,
		Interceptor:     observability.UnaryClientInterceptor(m),
	}

	a.publisher = events.New(&events.Config{
		Brokers:         cfg.Kafka.Brokers,
		DeadLetterTopic: cfg.Kafka.DLQTopic,
		EnrichedTopic:   cfg.Kafka.OutputTopic,
		Service:         cfg.Service.Name,
		Retry:           policy,
	}, m)

	multi, err := buildSinks(ctx, cfg, a.publisher, m)
	if err != nil {
		a.publisher.Close()
		return nil, err
	}
	a.sink = multi

	fetcher := transcription.NewFetcher(a.operationClient(gcpCfg, policy), transcription.FetchConfig{
		MinInitialWait: cfg.Fetch.MinInitialWait,
		RetryInterval:  cfg.Fetch.RetryInterval,
		MaxRetries:     cfg.Fetch.MaxRetries,
		TimeoutPolicy:  transcription.TimeoutPolicy(cfg.Fetch.TimeoutPolicy),
	}, m)
	enricher := nlp.NewEnricher(a.analyzer(gcpCfg, policy))
	redactor := redact.NewRedactor(a.masker(gcpCfg, policy), cfg.Redact.Concurrency, m)
	categorizer := categorize.New(buildClassifier(cfg.Categorizer, policy), cfg.Categorizer.Labels)

	a.pipeline = pipeline.New(pipeline.Config{
		Fetcher: fetcher,
		Stages: []pipeline.RecordStage{
			pipeline.StageFunc{StageName: pipeline.KindAnalysis, Fn: enricher.Enrich},
			pipeline.StageFunc{StageName: pipeline.KindRedaction, Fn: redactor.Redact},
			pipeline.StageFunc{StageName: pipeline.KindCategorize, Fn: categorizer.Categorize},
		},
		Sink:        a.sink,
		Dedupe:      dedupe.NewCache(cfg.Dedupe.Capacity, cfg.Dedupe.TTL),
		StrictDates: cfg.Worker.StrictDates,
		Metrics:     m,
	})

	a.consumer = consumer.New(consumer.Config{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.InputTopic,
		GroupID:       cfg.Kafka.GroupID,
		Concurrency:   cfg.Worker.Concurrency,
		RecordTimeout: cfg.Worker.RecordTimeout,
	}, a.pipeline, a.publisher, m)

	a.opsServer = observability.NewServer(cfg.Service.HTTPAddr, ophttp.NewRouter(a.ready.Load))
	a.grpcServer = grpc.NewServer()
	a.healthServer = health.NewServer()
	grpc_health_v1.RegisterHealthServer(a.grpcServer, a.healthServer)
	reflection.Register(a.grpcServer)

	a.Logger.Info().
		Str("stt", cfg.GCP.STTProvider).
		Str("nlp", cfg.NLP.Provider).
		Str("redact", cfg.Redact.Provider).
		Str("categorizer", cfg.Categorizer.Provider).
		Str("sink", a.sink.Name()).
		Msg("Speech analytics application created")
	return a, nil
}

// Start serves the ops endpoints and consumes until ctx is canceled.
func (a *Application) Start(ctx context.Context) error {
	a.StartupTime = time.Now().UTC()

	lis, err := net.Listen("tcp", ":"+a.Cfg.Service.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			a.Logger.Error().Err(err).Msg("gRPC health server error")
		}
	}()
	a.opsServer.Start()

	a.healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	a.healthServer.SetServingStatus(grpcHealthService, grpc_health_v1.HealthCheckResponse_SERVING)
	a.ready.Store(true)

	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Str("grpcPort", a.Cfg.Service.GRPCPort).
		Str("httpAddr", a.Cfg.Service.HTTPAddr).
		Msg("Speech analytics worker starting")

	err = a.consumer.Run(ctx)
	a.ready.Store(false)
	return err
}

// Shutdown stops the listeners and releases every client.
func (a *Application) Shutdown(ctx context.Context) {
	a.Logger.Info().Msg("Speech analytics worker shutting down")

	a.ready.Store(false)
	a.healthServer.Shutdown()
	a.grpcServer.GracefulStop()
	if err := a.opsServer.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("Error shutting down ops server")
	}

	if err := a.consumer.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Error closing consumer")
	}
	if err := a.sink.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Error closing sinks")
	}
	if err := a.publisher.Close(); err != nil {
		a.Logger.Error().Err(err).Msg("Error closing publisher")
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Error closing client")
		}
	}
}

func (a *Application) operationClient(cfg gcp.ClientConfig, policy retry.Policy) stt.OperationClient {
	if a.Cfg.GCP.STTProvider == "mock" {
		return sttmock.New(1)
	}
	c := sttgoogle.New(cfg, policy)
	a.closers = append(a.closers, c)
	return c
}

func (a *Application) analyzer(cfg gcp.ClientConfig, policy retry.Policy) nlp.Analyzer {
	if a.Cfg.NLP.Provider == "mock" {
		return nlpmock.New()
	}
	c := nlpgoogle.New(cfg, policy)
	a.closers = append(a.closers, c)
	return c
}

func (a *Application) masker(cfg gcp.ClientConfig, policy retry.Policy) redact.Redactable {
	if a.Cfg.Redact.Provider == "mock" {
		return redactmock.New(a.Cfg.Redact.Mask)
	}
	c := dlp.New(dlp.Config{
		ProjectID:    a.Cfg.GCP.ProjectID,
		LanguageCode: a.Cfg.Redact.LanguageCode,
		Mask:         a.Cfg.Redact.Mask,
		RatePerSec:   a.Cfg.Redact.RatePerSec,
	}, cfg, policy)
	a.closers = append(a.closers, c)
	return c
}

// buildClassifier returns nil for the "none" provider.
func buildClassifier(cfg config.CategorizerConfig, policy retry.Policy) categorize.Classifier {
	if cfg.Provider != "openai" {
		return nil
	}
	return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, policy)
}

// buildSinks opens every configured backend in order. Backends opened before
// a failure are closed again.
func buildSinks(ctx context.Context, cfg *config.Config, publisher *events.Publisher, m *metrics.Metrics) (*sink.Multi, error) {
	var writers []sink.Writer
	fail := func(err error) (*sink.Multi, error) {
		for _, w := range writers {
			_ = w.Close()
		}
		return nil, err
	}

	for _, backend := range cfg.Sink.Backends {
		switch backend {
		case config.BackendClickHouse:
			w, err := clickhouse.Open(ctx, clickhouse.Config{
				Addr:     cfg.Sink.ClickHouseAddrs,
				Database: cfg.Sink.ClickHouseDatabase,
				Username: cfg.Sink.ClickHouseUsername,
				Password: cfg.Sink.ClickHousePassword,
				Table:    cfg.Sink.ClickHouseTable,
			})
			if err != nil {
				return fail(fmt.Errorf("open clickhouse: %w", err))
			}
			writers = append(writers, w)
		case config.BackendPostgres:
			w, err := postgres.Open(ctx, cfg.Sink.PostgresDSN, cfg.Sink.PostgresTable, int32(cfg.Sink.PostgresMaxConns))
			if err != nil {
				return fail(fmt.Errorf("open postgres: %w", err))
			}
			writers = append(writers, w)
		case config.BackendElasticsearch:
			w, err := elasticsearch.New(cfg.Sink.ElasticsearchAddrs, cfg.Sink.ElasticsearchIndex)
			if err != nil {
				return fail(fmt.Errorf("open elasticsearch: %w", err))
			}
			if err := w.Ping(ctx); err != nil {
				return fail(fmt.Errorf("ping elasticsearch: %w", err))
			}
			writers = append(writers, w)
		case config.BackendXLSX:
			w, err := xlsx.Open(cfg.Sink.XLSXPath)
			if err != nil {
				return fail(fmt.Errorf("open xlsx: %w", err))
			}
			writers = append(writers, w)
		case config.BackendKafka:
			writers = append(writers, publisher)
		default:
			return fail(fmt.Errorf("unknown sink backend %q", backend))
		}
	}
	return sink.NewMulti(m, writers...), nil
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		MaxRetries:      uint64(max(cfg.MaxRetries, 0)),
	}
}
