// Command submitjob starts a long-running recognition for a WAV file and
// publishes the job message the enrichment worker consumes.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"speech-analytics-pipeline/internal/models"
	"speech-analytics-pipeline/internal/observability/logging"
	"speech-analytics-pipeline/internal/retry"
	"speech-analytics-pipeline/internal/service/gcp"
	sttgoogle "speech-analytics-pipeline/internal/service/stt/google"
)

type jobFlags struct {
	audio     string
	uri       string
	dlp       bool
	callID    string
	startTime string
	language  string
}

func main() {
	_ = godotenv.Load()

	var f jobFlags
	flag.StringVar(&f.audio, "audio", "testdata/call.wav", "Path to a local PCM WAV file")
	flag.StringVar(&f.uri, "uri", "", "gs:// URI of the same file; inline content is sent when empty")
	flag.BoolVar(&f.dlp, "dlp", false, "Request redaction of the transcript")
	flag.StringVar(&f.callID, "callid", "", "Call identifier")
	flag.StringVar(&f.startTime, "starttime", "", "Call start time")
	flag.StringVar(&f.language, "language", "en-US", "BCP-47 language code")
	brokers := flag.String("brokers", envOr("KAFKA_BROKERS", "localhost:9092"), "Comma-separated Kafka brokers")
	topic := flag.String("topic", envOr("KAFKA_INPUT_TOPIC", "stt.jobs"), "Job topic")
	flag.Parse()

	logCfg := logging.DefaultConfig()
	logCfg.Format = "console"
	logCfg.Service = "submitjob"
	logging.Init(logCfg)

	content, err := os.ReadFile(f.audio)
	if err != nil {
		log.Fatal().Err(err).Str("audio", f.audio).Msg("Failed to read audio file")
	}
	header, err := readWAVHeader(bytes.NewReader(content))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid audio file")
	}
	seconds := header.DurationSeconds(int64(len(content)))
	log.Info().
		Uint16("channels", header.Channels).
		Uint32("sampleRate", header.SampleRate).
		Uint16("bitsPerSample", header.BitsPerSample).
		Float64("durationSecs", seconds).
		Msg("WAV file")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	adapter := sttgoogle.New(gcp.ClientConfig{
		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}, retry.DefaultPolicy())
	defer adapter.Close()

	req := sttgoogle.RecognitionRequest{
		URI:           f.uri,
		AudioEncoding: "LINEAR16",
		SampleRateHz:  int32(header.SampleRate),
		LanguageCode:  f.language,
		Stereo:        header.Channels == 2,
	}
	if f.uri == "" {
		req.Content = content[wavHeaderSize:]
	}
	name, err := adapter.StartRecognition(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start recognition")
	}

	filename := f.audio
	if f.uri != "" {
		filename = f.uri
	}
	msg := jobMessage(name, filename, f, header, seconds, time.Now())
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode job message")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:        *topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	defer writer.Close()

	if err := writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.FileID), Value: payload}); err != nil {
		log.Fatal().Err(err).Str("topic", *topic).Msg("Failed to publish job message")
	}
	log.Info().
		Str("operationId", msg.OperationID).
		Str("fileId", msg.FileID).
		Str("topic", *topic).
		Msg("Job submitted")
}

// jobMessage builds the message for an operation started at now.
func jobMessage(operation, filename string, f jobFlags, h wavHeader, seconds float64, now time.Time) models.JobMessage {
	now = now.UTC()
	duration := models.DurationUnknown
	if seconds > 0 {
		duration = strconv.FormatFloat(seconds, 'f', 2, 64)
	}
	return models.JobMessage{
		OperationID: operation,
		FileID:      uuid.NewString(),
		DLP:         strconv.FormatBool(f.dlp),
		FileName:    filename,
		CallID:      f.callID,
		Date:        now.Format(time.RFC3339),
		Year:        strconv.Itoa(now.Year()),
		Month:       strconv.Itoa(int(now.Month())),
		Day:         strconv.Itoa(now.Day()),
		StartTime:   f.startTime,
		Duration:    duration,
		Stereo:      strconv.FormatBool(h.Channels == 2),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
