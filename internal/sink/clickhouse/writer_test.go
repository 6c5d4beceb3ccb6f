package clickhouse

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/require"

	"speech-analytics-pipeline/internal/models"
)

type fakeBatch struct {
	driver.Batch
	rows    [][]any
	sent    bool
	aborted bool
	sendErr error
}

func (b *fakeBatch) Append(v ...any) error {
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeBatch) Send() error {
	b.sent = true
	return b.sendErr
}

func (b *fakeBatch) Abort() error {
	b.aborted = true
	return nil
}

type fakeConn struct {
	execs   []string
	queries []string
	batch   *fakeBatch
}

func (c *fakeConn) Exec(ctx context.Context, query string, args ...any) error {
	c.execs = append(c.execs, query)
	return nil
}

func (c *fakeConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	c.queries = append(c.queries, query)
	return c.batch, nil
}

func (c *fakeConn) Close() error { return nil }

func sampleRecord() *models.Record {
	year := 2024
	return &models.Record{
		OperationID: "op-1",
		FileID:      "file-1",
		Year:        &year,
		Duration:    models.Float64(12.5),
		NLCategory:  models.CategoryUnset,
		Transcript:  "hi there",
		Words: []models.Word{
			{Word: "hi", StartSecs: 0, EndSecs: 0.5, SpeakerTag: 1, Confidence: 0.9},
			{Word: "there", StartSecs: 0.5, EndSecs: 1, SpeakerTag: 2, Confidence: 0.8},
		},
		Entities:  []models.Entity{{Name: "Acme", Type: "ORGANIZATION", Sentiment: 0.1}},
		Sentences: []models.Sentence{{Sentence: "hi there", Sentiment: 0.3, Magnitude: 0.3}},
	}
}

func TestRow(t *testing.T) {
	row := Row(sampleRecord())
	require.Len(t, row, 30)

	require.Equal(t, "op-1", row[0])
	require.Equal(t, "file-1", row[1])
	require.Equal(t, int64(2024), *row[6].(*int64))
	require.Nil(t, row[7].(*int64))
	require.Equal(t, 12.5, *row[10].(*float64))
	require.Equal(t, []string{"hi", "there"}, row[19])
	require.Equal(t, []int64{1, 2}, row[22])
	require.Equal(t, []string{"Acme"}, row[24])
	require.Equal(t, []string{"hi there"}, row[27])
}

func TestRow_EmptyArrays(t *testing.T) {
	row := Row(&models.Record{})
	require.Equal(t, []string{}, row[19])
	require.Equal(t, []string{}, row[24])
	require.Equal(t, []string{}, row[27])
}

func TestCreateTableSQL_ColumnCountMatchesRow(t *testing.T) {
	ddl := CreateTableSQL("records")
	require.True(t, strings.HasPrefix(ddl, "CREATE TABLE IF NOT EXISTS records"))

	// Each nested column expands to one array per field.
	columns := strings.Count(ddl, ",\n") + 1
	flattened := columns - 3 + 5 + 3 + 3
	require.Equal(t, len(Row(&models.Record{})), flattened)
}

func TestWriter_Write(t *testing.T) {
	batch := &fakeBatch{}
	c := &fakeConn{batch: batch}
	w := &Writer{conn: c, table: "records"}

	require.NoError(t, w.InitSchema(context.Background()))
	require.NoError(t, w.Write(context.Background(), sampleRecord()))

	require.Len(t, c.execs, 1)
	require.Equal(t, []string{"INSERT INTO records"}, c.queries)
	require.Len(t, batch.rows, 1)
	require.True(t, batch.sent)
	require.Equal(t, "clickhouse", w.Name())
}

func TestWriter_SendError(t *testing.T) {
	batch := &fakeBatch{sendErr: errors.New("table is read only")}
	w := &Writer{conn: &fakeConn{batch: batch}, table: "records"}

	err := w.Write(context.Background(), sampleRecord())
	require.Error(t, err)
	require.Contains(t, err.Error(), "read only")
}
