// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config is the full worker configuration.
type Config struct {
	Service       ServiceConfig
	Kafka         KafkaConfig
	GCP           GCPConfig
	Fetch         FetchConfig
	NLP           NLPConfig
	Redact        RedactConfig
	Categorizer   CategorizerConfig
	Sink          SinkConfig
	Worker        WorkerConfig
	Dedupe        DedupeConfig
	Retry         RetryConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds listener settings.
type ServiceConfig struct {
	Name     string
	GRPCPort string
	HTTPAddr string
}

// KafkaConfig holds broker and topic settings.
type KafkaConfig struct {
	Brokers     []string
	InputTopic  string
	GroupID     string
	DLQTopic    string
	OutputTopic string // empty disables enriched output
}

// GCPConfig is shared by the Speech, Language and DLP clients.
type GCPConfig struct {
	ProjectID       string
	CredentialsFile string
	STTProvider     string // google, mock
}

// FetchConfig controls transcription polling.
type FetchConfig struct {
	MinInitialWait time.Duration
	RetryInterval  time.Duration
	MaxRetries     int
	TimeoutPolicy  string // fail, best_effort
}

// NLPConfig selects the sentiment provider.
type NLPConfig struct {
	Provider string // google, mock
}

// RedactConfig controls the redaction stage.
type RedactConfig struct {
	Provider     string // dlp, mock
	Mask         string
	LanguageCode string
	Concurrency  int
	RatePerSec   float64
}

// CategorizerConfig controls call categorization.
type CategorizerConfig struct {
	Provider     string // none, openai
	OpenAIAPIKey string
	OpenAIModel  string
	Labels       []string
}

// SinkConfig selects and configures the output backends.
type SinkConfig struct {
	Backends           []string
	ClickHouseAddrs    []string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string
	ClickHouseTable    string
	PostgresDSN        string
	PostgresTable      string
	PostgresMaxConns   int
	ElasticsearchAddrs []string
	ElasticsearchIndex string
	XLSXPath           string
}

// WorkerConfig controls record processing.
type WorkerConfig struct {
	Concurrency   int
	RecordTimeout time.Duration
	StrictDates   bool
}

// DedupeConfig sizes the processed-operation cache.
type DedupeConfig struct {
	Capacity int
	TTL      time.Duration
}

// RetryConfig bounds call-site retries of remote services.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRetries      int
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Sink backend names accepted in SINK_BACKENDS.
const (
	BackendClickHouse    = "clickhouse"
	BackendPostgres      = "postgres"
	BackendElasticsearch = "elasticsearch"
	BackendXLSX          = "xlsx"
	BackendKafka         = "kafka"
)

var knownBackends = []string{BackendClickHouse, BackendPostgres, BackendElasticsearch, BackendXLSX, BackendKafka}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:     envOrDefault("SERVICE_NAME", "speech-analytics-pipeline"),
			GRPCPort: envOrDefault("GRPC_PORT", "50051"),
			HTTPAddr: envOrDefault("HTTP_ADDR", ":9090"),
		},
		Kafka: KafkaConfig{
			Brokers:     envList("KAFKA_BROKERS", nil),
			InputTopic:  envOrDefault("KAFKA_INPUT_TOPIC", "stt.jobs"),
			GroupID:     envOrDefault("KAFKA_GROUP_ID", "speech-analytics-pipeline"),
			DLQTopic:    envOrDefault("KAFKA_DLQ_TOPIC", "stt.jobs.dlq"),
			OutputTopic: os.Getenv("KAFKA_OUTPUT_TOPIC"),
		},
		GCP: GCPConfig{
			ProjectID:       os.Getenv("GCP_PROJECT_ID"),
			CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
			STTProvider:     strings.ToLower(envOrDefault("STT_PROVIDER", "google")),
		},
		Fetch: FetchConfig{
			MinInitialWait: envOrDefaultDuration("FETCH_MIN_INITIAL_WAIT", 5*time.Second),
			RetryInterval:  envOrDefaultDuration("FETCH_RETRY_INTERVAL", 120*time.Second),
			MaxRetries:     envOrDefaultInt("FETCH_MAX_RETRIES", 10),
			TimeoutPolicy:  strings.ToLower(envOrDefault("FETCH_TIMEOUT_POLICY", "fail")),
		},
		NLP: NLPConfig{
			Provider: strings.ToLower(envOrDefault("NLP_PROVIDER", "google")),
		},
		Redact: RedactConfig{
			Provider:     strings.ToLower(envOrDefault("REDACT_PROVIDER", "dlp")),
			Mask:         envOrDefault("REDACT_MASK", "#"),
			LanguageCode: envOrDefault("REDACT_LANGUAGE_CODE", "en-US"),
			Concurrency:  envOrDefaultInt("REDACT_CONCURRENCY", 8),
			RatePerSec:   envOrDefaultFloat("REDACT_RATE_PER_SEC", 50),
		},
		Categorizer: CategorizerConfig{
			Provider:     strings.ToLower(envOrDefault("CATEGORIZER_PROVIDER", "none")),
			OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
			OpenAIModel:  envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			Labels:       envList("CATEGORIZER_LABELS", nil),
		},
		Sink: SinkConfig{
			Backends:           envList("SINK_BACKENDS", []string{BackendClickHouse}),
			ClickHouseAddrs:    envList("CLICKHOUSE_ADDR", []string{"localhost:9000"}),
			ClickHouseDatabase: envOrDefault("CLICKHOUSE_DATABASE", "default"),
			ClickHouseUsername: envOrDefault("CLICKHOUSE_USERNAME", "default"),
			ClickHousePassword: os.Getenv("CLICKHOUSE_PASSWORD"),
			ClickHouseTable:    envOrDefault("CLICKHOUSE_TABLE", "call_analytics"),
			PostgresDSN:        os.Getenv("POSTGRES_DSN"),
			PostgresTable:      envOrDefault("POSTGRES_TABLE", "call_analytics"),
			PostgresMaxConns:   envOrDefaultInt("POSTGRES_MAX_CONNS", 8),
			ElasticsearchAddrs: envList("ELASTICSEARCH_ADDR", []string{"http://localhost:9200"}),
			ElasticsearchIndex: envOrDefault("ELASTICSEARCH_INDEX", "call-analytics"),
			XLSXPath:           envOrDefault("XLSX_PATH", "call_analytics.xlsx"),
		},
		Worker: WorkerConfig{
			Concurrency:   envOrDefaultInt("WORKER_CONCURRENCY", 4),
			RecordTimeout: envOrDefaultDuration("WORKER_RECORD_TIMEOUT", 30*time.Minute),
			StrictDates:   envOrDefaultBool("WORKER_STRICT_DATES", false),
		},
		Dedupe: DedupeConfig{
			Capacity: envOrDefaultInt("DEDUPE_CAPACITY", 10000),
			TTL:      envOrDefaultDuration("DEDUPE_TTL", 24*time.Hour),
		},
		Retry: RetryConfig{
			InitialInterval: envOrDefaultDuration("RETRY_INITIAL_INTERVAL", 500*time.Millisecond),
			MaxInterval:     envOrDefaultDuration("RETRY_MAX_INTERVAL", 10*time.Second),
			MaxRetries:      envOrDefaultInt("RETRY_MAX_RETRIES", 5),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.Kafka.InputTopic == "" {
		return fmt.Errorf("KAFKA_INPUT_TOPIC must not be empty")
	}
	if c.Kafka.DLQTopic == "" {
		return fmt.Errorf("KAFKA_DLQ_TOPIC must not be empty")
	}

	if err := oneOf("STT_PROVIDER", c.GCP.STTProvider, "google", "mock"); err != nil {
		return err
	}
	if err := oneOf("NLP_PROVIDER", c.NLP.Provider, "google", "mock"); err != nil {
		return err
	}
	if err := oneOf("REDACT_PROVIDER", c.Redact.Provider, "dlp", "mock"); err != nil {
		return err
	}
	if err := oneOf("CATEGORIZER_PROVIDER", c.Categorizer.Provider, "none", "openai"); err != nil {
		return err
	}
	if err := oneOf("FETCH_TIMEOUT_POLICY", c.Fetch.TimeoutPolicy, "fail", "best_effort"); err != nil {
		return err
	}

	if c.Redact.Provider == "dlp" && c.GCP.ProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required for REDACT_PROVIDER=dlp")
	}
	if c.Categorizer.Provider == "openai" && c.Categorizer.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for CATEGORIZER_PROVIDER=openai")
	}

	if len(c.Sink.Backends) == 0 {
		return fmt.Errorf("SINK_BACKENDS must name at least one backend")
	}
	for _, b := range c.Sink.Backends {
		if !slices.Contains(knownBackends, b) {
			return fmt.Errorf("SINK_BACKENDS: unknown backend %q", b)
		}
	}
	if c.HasBackend(BackendPostgres) && c.Sink.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
	}
	if c.HasBackend(BackendKafka) && c.Kafka.OutputTopic == "" {
		return fmt.Errorf("KAFKA_OUTPUT_TOPIC is required for the kafka backend")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if c.Redact.Concurrency <= 0 {
		return fmt.Errorf("REDACT_CONCURRENCY must be positive")
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("FETCH_MAX_RETRIES cannot be negative")
	}
	if c.Dedupe.Capacity <= 0 {
		return fmt.Errorf("DEDUPE_CAPACITY must be positive")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("RETRY_MAX_RETRIES cannot be negative")
	}
	return nil
}

// HasBackend reports whether name is among the configured sink backends.
func (c *Config) HasBackend(name string) bool {
	return slices.Contains(c.Sink.Backends, name)
}

func oneOf(key, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(allowed, "|"), value)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
