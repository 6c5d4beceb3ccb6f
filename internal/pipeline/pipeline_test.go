package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"speech-analytics-pipeline/internal/dedupe"
	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/observability/metrics"
	"speech-analytics-pipeline/internal/service/categorize"
	"speech-analytics-pipeline/internal/service/nlp"
	nlpmock "speech-analytics-pipeline/internal/service/nlp/mock"
	"speech-analytics-pipeline/internal/service/redact"
	redactmock "speech-analytics-pipeline/internal/service/redact/mock"
	sttmock "speech-analytics-pipeline/internal/service/stt/mock"
	"speech-analytics-pipeline/internal/service/transcription"
)

type memorySink struct {
	records []*models.Record
	err     error
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Write(ctx context.Context, rec *models.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) Close() error { return nil }

type fixedClassifier string

func (f fixedClassifier) Classify(ctx context.Context, transcript string, labels []string) (string, error) {
	return string(f), nil
}

type harness struct {
	pipeline *Pipeline
	sink     *memorySink
	stt      *sttmock.Adapter
}

func newHarness(t *testing.T, strictDates bool) *harness {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	stt := sttmock.New(1)
	fetcher := transcription.NewFetcher(stt, transcription.DefaultFetchConfig(), m).
		WithSleep(func(ctx context.Context, d time.Duration) error { return nil })

	enricher := nlp.NewEnricher(nlpmock.New())
	redactor := redact.NewRedactor(redactmock.New("#"), 4, m)
	categorizer := categorize.New(fixedClassifier("cancellation"), nil)
	out := &memorySink{}

	p := New(Config{
		Fetcher: fetcher,
		Stages: []RecordStage{
			StageFunc{StageName: KindAnalysis, Fn: enricher.Enrich},
			StageFunc{StageName: KindRedaction, Fn: redactor.Redact},
			StageFunc{StageName: KindCategorize, Fn: categorizer.Categorize},
		},
		Sink:        out,
		Dedupe:      dedupe.NewCache(100, time.Hour),
		StrictDates: strictDates,
		Metrics:     m,
	})
	return &harness{pipeline: p, sink: out, stt: stt}
}

const stereoJob = `{"sttnameid":"op-1","fileid":"file-1","dlp":"false","filename":"call.wav",
"callid":"c-1","date":"2024-03-15","year":"2024","month":"3","day":"15",
"starttime":"10:30","duration":"5.6","stereo":"true"}`

func TestProcess_Stereo(t *testing.T) {
	h := newHarness(t, false)

	rec, err := h.pipeline.Process(context.Background(), []byte(stereoJob))
	require.NoError(t, err)
	require.Len(t, h.sink.records, 1)
	require.Same(t, rec, h.sink.records[0])

	require.Equal(t, "op-1", rec.OperationID)
	require.Equal(t, "Thank you for calling, how can I help? I want to cancel my subscription.", rec.Transcript)
	require.Len(t, rec.Words, 14)
	require.InDelta(t, 2.1, *rec.SpeakerOneSpeaking, 1e-9)
	require.InDelta(t, 2.1, *rec.SpeakerTwoSpeaking, 1e-9)
	require.InDelta(t, 25, *rec.SilencePercentage, 1)
	require.NotNil(t, rec.SentimentScore)
	require.NotEmpty(t, rec.Sentences)
	require.Equal(t, "cancellation", rec.NLCategory)
	require.NotNil(t, rec.Date)
	require.Equal(t, 2, h.stt.Polls("op-1"))
}

func TestProcess_MonoWithRedaction(t *testing.T) {
	h := newHarness(t, false)
	h.stt.Add("op-2", &models.TranscriptionResult{Results: []models.SegmentResult{{
		Alternatives: []models.Alternative{{
			Transcript: "call 555-1234 now",
			Words: []models.WordInfo{
				{Word: "call", StartTime: "0s", EndTime: "0.5s", SpeakerTag: 1},
				{Word: "555-1234", StartTime: "0.5s", EndTime: "2s", SpeakerTag: 1},
				{Word: "now", StartTime: "2s", EndTime: "2.5s", SpeakerTag: 2},
			},
		}},
	}}})

	payload := `{"sttnameid":"op-2","fileid":"file-2","dlp":"True","duration":"NA","stereo":"false"}`
	rec, err := h.pipeline.Process(context.Background(), []byte(payload))
	require.NoError(t, err)

	require.Equal(t, "call # now", rec.Transcript)
	require.Len(t, rec.Words, 3)
	require.Equal(t, "#", rec.Words[1].Word)
	require.Equal(t, 2.0, *rec.SpeakerOneSpeaking)
	require.Equal(t, 0.5, *rec.SpeakerTwoSpeaking)
	require.Nil(t, rec.Date)
}

func TestProcess_DecodeError(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.pipeline.Process(context.Background(), []byte(`{not json`))
	require.Error(t, err)
	require.Equal(t, KindDecode, Kind(err))
	require.Empty(t, h.sink.records)
}

func TestProcess_Duplicate(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.pipeline.Process(context.Background(), []byte(stereoJob))
	require.NoError(t, err)

	_, err = h.pipeline.Process(context.Background(), []byte(stereoJob))
	require.ErrorIs(t, err, ErrDuplicate)
	require.Len(t, h.sink.records, 1)
}

func TestProcess_DatePolicy(t *testing.T) {
	payload := `{"sttnameid":"op-3","date":"xyzq-baad","stereo":"true"}`

	lenient := newHarness(t, false)
	rec, err := lenient.pipeline.Process(context.Background(), []byte(payload))
	require.NoError(t, err)
	require.Nil(t, rec.Date)

	strict := newHarness(t, true)
	_, err = strict.pipeline.Process(context.Background(), []byte(payload))
	require.Error(t, err)
	require.Equal(t, KindDate, Kind(err))
	require.Empty(t, strict.sink.records)
}

func TestProcess_OperationFailure(t *testing.T) {
	h := newHarness(t, false)
	h.stt.Fail("op-4", errors.New("audio could not be decoded"))

	_, err := h.pipeline.Process(context.Background(), []byte(`{"sttnameid":"op-4","stereo":"false"}`))
	require.Error(t, err)
	require.Equal(t, KindOperation, Kind(err))
}

func TestProcess_SinkFailure(t *testing.T) {
	h := newHarness(t, false)
	h.sink.err = errors.New("disk full")

	_, err := h.pipeline.Process(context.Background(), []byte(stereoJob))
	require.Error(t, err)
	require.Equal(t, KindSink, Kind(err))

	// A failed write is not remembered, so redelivery is processed again.
	h.sink.err = nil
	_, err = h.pipeline.Process(context.Background(), []byte(stereoJob))
	require.NoError(t, err)
}

func TestProcess_StageFailure(t *testing.T) {
	h := newHarness(t, false)
	h.pipeline.cfg.Stages = []RecordStage{StageFunc{
		StageName: KindAnalysis,
		Fn: func(ctx context.Context, rec *models.Record) (*models.Record, error) {
			return nil, &nlp.AnalysisServiceError{Op: "analyzeSentiment", Err: errors.New("quota")}
		},
	}}

	_, err := h.pipeline.Process(context.Background(), []byte(stereoJob))
	require.Equal(t, KindAnalysis, Kind(err))
	require.Empty(t, h.sink.records)
}
