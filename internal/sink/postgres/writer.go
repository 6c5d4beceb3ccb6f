// Package postgres writes records to a PostgreSQL table, storing the
// repeated sub-structures as JSONB.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"speech-analytics-pipeline/internal/models"
)

// execer is the subset of *pgxpool.Pool used by the writer.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Writer implements sink.Writer.
type Writer struct {
	db    execer
	table string
}

// Open creates a pool from dsn and creates the table if it does not exist.
func Open(ctx context.Context, dsn, table string, maxConns int32) (*Writer, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	w := &Writer{db: pool, table: table}
	if err := w.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Str("table", table).Msg("PostgreSQL sink ready")
	return w, nil
}

// InitSchema creates the records table if it does not exist.
func (w *Writer) InitSchema(ctx context.Context) error {
	if _, err := w.db.Exec(ctx, CreateTableSQL(w.table)); err != nil {
		return fmt.Errorf("create table %s: %w", w.table, err)
	}
	return nil
}

// Name identifies the backend.
func (w *Writer) Name() string {
	return "postgres"
}

// Write inserts one row.
func (w *Writer) Write(ctx context.Context, rec *models.Record) error {
	args, err := InsertArgs(rec)
	if err != nil {
		return err
	}
	if _, err := w.db.Exec(ctx, InsertSQL(w.table), args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Close closes the pool.
func (w *Writer) Close() error {
	w.db.Close()
	return nil
}

var columns = []string{
	"sttnameid", "fileid", "filename", "dlp", "callid",
	"date", "year", "month", "day", "starttime",
	"duration", "silencesecs", "sentimentscore", "magnitude",
	"silencepercentage", "speakeronespeaking", "speakertwospeaking",
	"nlcategory", "transcript", "words", "entities", "sentences",
}

// CreateTableSQL is the DDL of the records table.
func CreateTableSQL(table string) string {
	return `
CREATE TABLE IF NOT EXISTS ` + table + ` (
    id BIGSERIAL PRIMARY KEY,
    sttnameid TEXT NOT NULL,
    fileid TEXT,
    filename TEXT,
    dlp TEXT,
    callid TEXT,
    date TIMESTAMPTZ,
    year INTEGER,
    month INTEGER,
    day INTEGER,
    starttime TEXT,
    duration DOUBLE PRECISION,
    silencesecs DOUBLE PRECISION,
    sentimentscore DOUBLE PRECISION,
    magnitude DOUBLE PRECISION,
    silencepercentage DOUBLE PRECISION,
    speakeronespeaking DOUBLE PRECISION,
    speakertwospeaking DOUBLE PRECISION,
    nlcategory TEXT,
    transcript TEXT,
    words JSONB NOT NULL DEFAULT '[]',
    entities JSONB NOT NULL DEFAULT '[]',
    sentences JSONB NOT NULL DEFAULT '[]',
    inserted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_` + table + `_fileid ON ` + table + `(fileid);
`
}

// InsertSQL inserts one row into table.
func InsertSQL(table string) string {
	sql := "INSERT INTO " + table + " ("
	values := ""
	for i, c := range columns {
		if i > 0 {
			sql += ", "
			values += ", "
		}
		sql += c
		values += fmt.Sprintf("$%d", i+1)
	}
	return sql + ") VALUES (" + values + ")"
}

// InsertArgs returns the values for InsertSQL.
func InsertArgs(rec *models.Record) ([]any, error) {
	words, err := jsonArray(rec.Words)
	if err != nil {
		return nil, fmt.Errorf("encode words: %w", err)
	}
	entities, err := jsonArray(rec.Entities)
	if err != nil {
		return nil, fmt.Errorf("encode entities: %w", err)
	}
	sentences, err := jsonArray(rec.Sentences)
	if err != nil {
		return nil, fmt.Errorf("encode sentences: %w", err)
	}
	return []any{
		rec.OperationID, rec.FileID, rec.Filename, rec.DLP, rec.CallID,
		rec.Date, rec.Year, rec.Month, rec.Day, rec.StartTime,
		rec.Duration, rec.SilenceSecs, rec.SentimentScore, rec.Magnitude,
		rec.SilencePercentage, rec.SpeakerOneSpeaking, rec.SpeakerTwoSpeaking,
		rec.NLCategory, rec.Transcript, words, entities, sentences,
	}, nil
}

// jsonArray encodes a slice, writing nil as an empty array.
func jsonArray[T any](v []T) (json.RawMessage, error) {
	if v == nil {
		v = []T{}
	}
	return json.Marshal(v)
}
