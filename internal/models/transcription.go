package models

// TranscriptionResult mirrors the REST/JSON rendering of a long-running
// recognition response. Only the paths read by the parser are declared.
type TranscriptionResult struct {
	Results []SegmentResult `json:"results"`
}

// SegmentResult is one contiguous span of recognized audio.
type SegmentResult struct {
	Alternatives []Alternative `json:"alternatives"`
	ChannelTag   int           `json:"channelTag"`
	LanguageCode string        `json:"languageCode,omitempty"`
}

// Alternative is one candidate transcription of a segment.
type Alternative struct {
	Transcript string     `json:"transcript"`
	Confidence float64    `json:"confidence"`
	Words      []WordInfo `json:"words"`
}

// WordInfo carries word timing as unit-suffixed decimal strings (e.g. "12.300s").
type WordInfo struct {
	StartTime  string  `json:"startTime"`
	EndTime    string  `json:"endTime"`
	Word       string  `json:"word"`
	Confidence float64 `json:"confidence"`
	SpeakerTag int     `json:"speakerTag"`
}

// Top returns the first alternative of a segment, if any.
func (s SegmentResult) Top() (Alternative, bool) {
	if len(s.Alternatives) == 0 {
		return Alternative{}, false
	}
	return s.Alternatives[0], true
}
