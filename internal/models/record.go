package models

import "time"

// CategoryUnset is stored in NLCategory until a categorizer assigns a label.
const CategoryUnset = "NA"

// Record is the denormalized output row written to the analytical sinks.
// Scalars are nullable; Words, Entities and Sentences are the repeated
// sub-structures.
type Record struct {
	OperationID        string     `json:"sttnameid"`
	FileID             string     `json:"fileid"`
	Filename           string     `json:"filename"`
	DLP                string     `json:"dlp"`
	CallID             string     `json:"callid"`
	Date               *time.Time `json:"date"`
	Year               *int       `json:"year"`
	Month              *int       `json:"month"`
	Day                *int       `json:"day"`
	StartTime          string     `json:"starttime"`
	Duration           *float64   `json:"duration"`
	SilenceSecs        *float64   `json:"silencesecs"`
	SentimentScore     *float64   `json:"sentimentscore"`
	Magnitude          *float64   `json:"magnitude"`
	SilencePercentage  *float64   `json:"silencepercentage"`
	SpeakerOneSpeaking *float64   `json:"speakeronespeaking"`
	SpeakerTwoSpeaking *float64   `json:"speakertwospeaking"`
	NLCategory         string     `json:"nlcategory"`
	Transcript         string     `json:"transcript"`
	Words              []Word     `json:"words"`
	Entities           []Entity   `json:"entities"`
	Sentences          []Sentence `json:"sentences"`
}

// Word is one recognized word attributed to a speaker or channel.
type Word struct {
	Word       string  `json:"word"`
	StartSecs  float64 `json:"startSecs"`
	EndSecs    float64 `json:"endSecs"`
	SpeakerTag int     `json:"speakertag"`
	Confidence float64 `json:"confidence"`
}

// Entity is a named entity with its sentiment score.
type Entity struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Sentiment float64 `json:"sentiment"`
}

// Sentence is one sentence of the transcript with its sentiment.
type Sentence struct {
	Sentence  string  `json:"sentence"`
	Sentiment float64 `json:"sentiment"`
	Magnitude float64 `json:"magnitude"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Date = clonePtr(r.Date)
	c.Year = clonePtr(r.Year)
	c.Month = clonePtr(r.Month)
	c.Day = clonePtr(r.Day)
	c.Duration = clonePtr(r.Duration)
	c.SilenceSecs = clonePtr(r.SilenceSecs)
	c.SentimentScore = clonePtr(r.SentimentScore)
	c.Magnitude = clonePtr(r.Magnitude)
	c.SilencePercentage = clonePtr(r.SilencePercentage)
	c.SpeakerOneSpeaking = clonePtr(r.SpeakerOneSpeaking)
	c.SpeakerTwoSpeaking = clonePtr(r.SpeakerTwoSpeaking)
	c.Words = cloneSlice(r.Words)
	c.Entities = cloneSlice(r.Entities)
	c.Sentences = cloneSlice(r.Sentences)
	return &c
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
