// Package clickhouse writes records to a ClickHouse table with nested
// words, entities and sentences.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog/log"

	"speech-analytics-pipeline/internal/models"
)

// Config holds ClickHouse connection settings.
type Config struct {
	Addr     []string
	Database string
	Username string
	Password string
	Table    string
}

// conn is the subset of driver.Conn used by the writer.
type conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
	Close() error
}

// Writer implements sink.Writer.
type Writer struct {
	conn  conn
	table string
}

// Open connects, pings and creates the table if it does not exist.
func Open(ctx context.Context, cfg Config) (*Writer, error) {
	c, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Addr,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := c.Ping(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	w := &Writer{conn: c, table: cfg.Table}
	if err := w.InitSchema(ctx); err != nil {
		c.Close()
		return nil, err
	}
	log.Info().Strs("addr", cfg.Addr).Str("table", cfg.Table).Msg("ClickHouse sink ready")
	return w, nil
}

// InitSchema creates the records table if it does not exist.
func (w *Writer) InitSchema(ctx context.Context) error {
	if err := w.conn.Exec(ctx, CreateTableSQL(w.table)); err != nil {
		return fmt.Errorf("create table %s: %w", w.table, err)
	}
	return nil
}

// Name identifies the backend.
func (w *Writer) Name() string {
	return "clickhouse"
}

// Write appends one row.
func (w *Writer) Write(ctx context.Context, rec *models.Record) error {
	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+w.table)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	if err := batch.Append(Row(rec)...); err != nil {
		_ = batch.Abort()
		return fmt.Errorf("append row: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Close closes the connection.
func (w *Writer) Close() error {
	return w.conn.Close()
}

// CreateTableSQL is the DDL of the records table. Nested columns are
// flattened into parallel arrays, one per field.
func CreateTableSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	sttnameid String,
	fileid String,
	filename String,
	dlp String,
	callid String,
	date Nullable(DateTime64(3, 'UTC')),
	year Nullable(Int64),
	month Nullable(Int64),
	day Nullable(Int64),
	starttime String,
	duration Nullable(Float64),
	silencesecs Nullable(Float64),
	sentimentscore Nullable(Float64),
	magnitude Nullable(Float64),
	silencepercentage Nullable(Float64),
	speakeronespeaking Nullable(Float64),
	speakertwospeaking Nullable(Float64),
	nlcategory String,
	transcript String,
	words Nested(word String, startSecs Float64, endSecs Float64, speakertag Int64, confidence Float64),
	entities Nested(name String, type String, sentiment Float64),
	sentences Nested(sentence String, sentiment Float64, magnitude Float64)
) ENGINE = MergeTree
ORDER BY (fileid, sttnameid)`
}

// Row returns the column values of rec in table order.
func Row(rec *models.Record) []any {
	var (
		words     = make([]string, len(rec.Words))
		starts    = make([]float64, len(rec.Words))
		ends      = make([]float64, len(rec.Words))
		tags      = make([]int64, len(rec.Words))
		wordConfs = make([]float64, len(rec.Words))
	)
	for i, w := range rec.Words {
		words[i] = w.Word
		starts[i] = w.StartSecs
		ends[i] = w.EndSecs
		tags[i] = int64(w.SpeakerTag)
		wordConfs[i] = w.Confidence
	}

	var (
		names      = make([]string, len(rec.Entities))
		types      = make([]string, len(rec.Entities))
		entitySent = make([]float64, len(rec.Entities))
	)
	for i, e := range rec.Entities {
		names[i] = e.Name
		types[i] = e.Type
		entitySent[i] = e.Sentiment
	}

	var (
		sentences = make([]string, len(rec.Sentences))
		sentSent  = make([]float64, len(rec.Sentences))
		sentMag   = make([]float64, len(rec.Sentences))
	)
	for i, s := range rec.Sentences {
		sentences[i] = s.Sentence
		sentSent[i] = s.Sentiment
		sentMag[i] = s.Magnitude
	}

	return []any{
		rec.OperationID, rec.FileID, rec.Filename, rec.DLP, rec.CallID,
		rec.Date, int64Ptr(rec.Year), int64Ptr(rec.Month), int64Ptr(rec.Day),
		rec.StartTime,
		rec.Duration, rec.SilenceSecs, rec.SentimentScore, rec.Magnitude,
		rec.SilencePercentage, rec.SpeakerOneSpeaking, rec.SpeakerTwoSpeaking,
		rec.NLCategory, rec.Transcript,
		words, starts, ends, tags, wordConfs,
		names, types, entitySent,
		sentences, sentSent, sentMag,
	}
}

func int64Ptr(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}
