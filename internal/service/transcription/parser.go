package transcription

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	dps "github.com/markusmobius/go-dateparser"

	"speech-analytics-pipeline/internal/models"
)

const (
	speakerOneTag = 1
	speakerTwoTag = 2
)

// speechTotals accumulates word timings for one record.
type speechTotals struct {
	total      float64
	speakerOne float64
	speakerTwo float64
	firstStart float64
	lastEnd    float64
	seen       bool
}

func (t *speechTotals) add(tag int, start, end float64) {
	span := end - start
	t.total += span
	switch tag {
	case speakerOneTag:
		t.speakerOne += span
	case speakerTwoTag:
		t.speakerTwo += span
	}
	if !t.seen {
		t.firstStart = start
		t.seen = true
	}
	t.lastEnd = end
}

// Parse flattens a completed transcription into an output record.
//
// Stereo jobs read every segment and attribute words by the segment's channel
// tag; only words on channel 1 or 2 are kept, but every word counts toward the
// total speaking time. Mono jobs read only the last segment, which carries the
// diarized word list, and attribute words by speaker tag.
//
// A source date that cannot be parsed yields a *DateParseError together with
// the otherwise complete record, so callers can choose to keep it with a null
// date.
func Parse(result *models.TranscriptionResult, job models.JobDescriptor) (*models.Record, error) {
	if result == nil {
		return nil, ErrNoWords
	}

	rec := &models.Record{
		OperationID: job.OperationID,
		FileID:      job.FileID,
		Filename:    job.FileName,
		DLP:         job.DLP,
		CallID:      job.CallID,
		Year:        job.Year,
		Month:       job.Month,
		Day:         job.Day,
		StartTime:   job.StartTime,
		NLCategory:  models.CategoryUnset,
		Transcript:  Transcript(result),
		Words:       []models.Word{},
		Entities:    []models.Entity{},
		Sentences:   []models.Sentence{},
	}

	var (
		totals speechTotals
		policy SilencePolicy
		err    error
	)
	if job.IsStereo {
		policy = StereoSilencePolicy
		err = parseStereo(result, rec, &totals)
	} else {
		policy = MonoSilencePolicy
		err = parseMono(result, rec, &totals)
	}
	if err != nil {
		return nil, err
	}
	if !totals.seen {
		return nil, ErrNoWords
	}

	silence := totals.lastEnd - totals.total
	rec.SilenceSecs = models.Float64(silence)
	rec.SilencePercentage = models.Float64(policy(silence, totals.lastEnd))
	rec.SpeakerOneSpeaking = models.Float64(totals.speakerOne)
	rec.SpeakerTwoSpeaking = models.Float64(totals.speakerTwo)
	rec.Duration = models.Float64(totals.firstStart + totals.lastEnd)

	date, err := ParseDate(job.SourceDate)
	if err != nil {
		return rec, err
	}
	rec.Date = date
	return rec, nil
}

// Transcript joins the top alternative of every segment with single spaces.
func Transcript(result *models.TranscriptionResult) string {
	parts := make([]string, 0, len(result.Results))
	for _, seg := range result.Results {
		alt, ok := seg.Top()
		if !ok || alt.Transcript == "" {
			continue
		}
		parts = append(parts, alt.Transcript)
	}
	return strings.Join(parts, " ")
}

func parseStereo(result *models.TranscriptionResult, rec *models.Record, totals *speechTotals) error {
	for _, seg := range result.Results {
		alt, ok := seg.Top()
		if !ok {
			continue
		}
		for _, w := range alt.Words {
			start, end, err := wordTimes(w)
			if err != nil {
				return err
			}
			totals.add(seg.ChannelTag, start, end)
			if seg.ChannelTag != speakerOneTag && seg.ChannelTag != speakerTwoTag {
				continue
			}
			rec.Words = append(rec.Words, models.Word{
				Word:       w.Word,
				StartSecs:  start,
				EndSecs:    end,
				SpeakerTag: seg.ChannelTag,
				Confidence: w.Confidence,
			})
		}
	}
	return nil
}

func parseMono(result *models.TranscriptionResult, rec *models.Record, totals *speechTotals) error {
	if len(result.Results) == 0 {
		return nil
	}
	alt, ok := result.Results[len(result.Results)-1].Top()
	if !ok {
		return nil
	}
	for _, w := range alt.Words {
		start, end, err := wordTimes(w)
		if err != nil {
			return err
		}
		totals.add(w.SpeakerTag, start, end)
		rec.Words = append(rec.Words, models.Word{
			Word:       w.Word,
			StartSecs:  start,
			EndSecs:    end,
			SpeakerTag: w.SpeakerTag,
			Confidence: w.Confidence,
		})
	}
	return nil
}

func wordTimes(w models.WordInfo) (float64, float64, error) {
	start, err := ParseSeconds(w.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("word %q start: %w", w.Word, err)
	}
	end, err := ParseSeconds(w.EndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("word %q end: %w", w.Word, err)
	}
	return start, end, nil
}

// ParseSeconds parses a unit-suffixed offset such as "12.300s". An empty
// offset is zero, since zero durations are omitted from the JSON rendering.
func ParseSeconds(v string) (float64, error) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "s")
	if v == "" {
		return 0, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedTiming, v)
	}
	return secs, nil
}

// jsDateLayout is the Date.prototype.toString rendering once the trailing
// zone name is removed.
const jsDateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700"

// jsZoneName matches the parenthesized zone name, e.g. "(Coordinated Universal Time)".
var jsZoneName = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// ParseDate interprets a free-form date string. Empty input yields a nil date.
// Relative phrases such as "yesterday" are resolved against the current time.
func ParseDate(v string) (*time.Time, error) {
	return parseDateAt(v, time.Now())
}

func parseDateAt(v string, now time.Time) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(jsDateLayout, jsZoneName.ReplaceAllString(v, "")); err == nil {
		return &t, nil
	}
	if t, err := dateparse.ParseAny(v); err == nil {
		return &t, nil
	}
	dt, err := dps.Parse(&dps.Configuration{CurrentTime: now}, v)
	if err != nil {
		return nil, &DateParseError{Value: v, Err: err}
	}
	if dt.Time.IsZero() {
		return nil, &DateParseError{Value: v, Err: fmt.Errorf("no date found")}
	}
	t := dt.Time
	return &t, nil
}
