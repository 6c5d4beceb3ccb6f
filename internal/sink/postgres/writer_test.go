package postgres

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"speech-analytics-pipeline/internal/models"
)

type fakeDB struct {
	sqls   []string
	args   [][]any
	closed bool
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sqls = append(f.sqls, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Close() { f.closed = true }

func TestInsertSQL(t *testing.T) {
	sql := InsertSQL("records")
	require.True(t, strings.HasPrefix(sql, "INSERT INTO records (sttnameid, fileid"))
	require.Contains(t, sql, "$22)")
	require.NotContains(t, sql, "$23")
}

func TestInsertArgs(t *testing.T) {
	month := 3
	rec := &models.Record{
		OperationID: "op-1",
		Month:       &month,
		Words:       []models.Word{{Word: "hi", SpeakerTag: 1}},
	}

	args, err := InsertArgs(rec)
	require.NoError(t, err)
	require.Len(t, args, len(columns))
	require.Equal(t, "op-1", args[0])
	require.Equal(t, &month, args[7])

	var words []models.Word
	require.NoError(t, json.Unmarshal(args[19].(json.RawMessage), &words))
	require.Equal(t, "hi", words[0].Word)
	require.Equal(t, json.RawMessage("[]"), args[20])
	require.Equal(t, json.RawMessage("[]"), args[21])
}

func TestWriter_Write(t *testing.T) {
	db := &fakeDB{}
	w := &Writer{db: db, table: "records"}

	require.NoError(t, w.InitSchema(context.Background()))
	require.NoError(t, w.Write(context.Background(), &models.Record{OperationID: "op-1"}))
	require.Len(t, db.sqls, 2)
	require.Contains(t, db.sqls[0], "CREATE TABLE IF NOT EXISTS records")
	require.Equal(t, InsertSQL("records"), db.sqls[1])

	require.NoError(t, w.Close())
	require.True(t, db.closed)
	require.Equal(t, "postgres", w.Name())
}
