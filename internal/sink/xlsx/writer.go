// Package xlsx appends records to a spreadsheet for offline review.
package xlsx

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"speech-analytics-pipeline/internal/models"
)

const sheet = "Calls"

// Header is the first row of the sheet.
var Header = []any{
	"sttnameid", "fileid", "filename", "callid", "date", "starttime", "duration",
	"speakeronespeaking", "speakertwospeaking", "silencesecs", "silencepercentage",
	"sentimentscore", "magnitude", "nlcategory", "entities", "transcript",
}

// Writer implements sink.Writer. The workbook is saved after every row.
type Writer struct {
	mu   sync.Mutex
	path string
	f    *excelize.File
	next int
}

// Open opens path, creating the workbook and header row if it does not exist.
func Open(path string) (*Writer, error) {
	w := &Writer{path: path}

	if _, err := os.Stat(path); err == nil {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("read rows: %w", err)
		}
		w.f = f
		w.next = len(rows) + 1
		return w, nil
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &Header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		f.Close()
		return nil, fmt.Errorf("save workbook: %w", err)
	}
	w.f = f
	w.next = 2
	return w, nil
}

// Name identifies the backend.
func (w *Writer) Name() string {
	return "xlsx"
}

// Write appends one row and saves the workbook.
func (w *Writer) Write(ctx context.Context, rec *models.Record) error {
	row := Row(rec)

	w.mu.Lock()
	defer w.mu.Unlock()

	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	if err := w.f.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	w.next++
	return nil
}

// Close closes the workbook.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// Row returns the cell values of rec in Header order. Null numbers are empty cells.
func Row(rec *models.Record) []any {
	date := ""
	if rec.Date != nil {
		date = rec.Date.UTC().Format(time.RFC3339)
	}
	entities := make([]string, len(rec.Entities))
	for i, e := range rec.Entities {
		entities[i] = e.Name
	}
	return []any{
		rec.OperationID, rec.FileID, rec.Filename, rec.CallID, date, rec.StartTime,
		num(rec.Duration), num(rec.SpeakerOneSpeaking), num(rec.SpeakerTwoSpeaking),
		num(rec.SilenceSecs), num(rec.SilencePercentage),
		num(rec.SentimentScore), num(rec.Magnitude),
		rec.NLCategory, strings.Join(entities, ", "), rec.Transcript,
	}
}

func num(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
