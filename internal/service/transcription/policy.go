package transcription

// SilencePolicy scales silence seconds against the end time of the last word.
type SilencePolicy func(silenceSecs, endSecs float64) float64

// StereoSilencePolicy yields a whole-number percentage, truncated toward zero.
func StereoSilencePolicy(silenceSecs, endSecs float64) float64 {
	if endSecs == 0 {
		return 0
	}
	return float64(int(silenceSecs / endSecs * 100))
}

// MonoSilencePolicy yields the silence share as a fraction of 1.
func MonoSilencePolicy(silenceSecs, endSecs float64) float64 {
	if endSecs == 0 {
		return 0
	}
	return silenceSecs / endSecs
}
