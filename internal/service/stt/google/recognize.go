package google

import (
	"context"
	"fmt"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

// RecognitionRequest describes an audio file to transcribe asynchronously.
type RecognitionRequest struct {
	URI           string // gs:// URI; takes precedence over Content
	Content       []byte
	AudioEncoding string
	SampleRateHz  int32
	LanguageCode  string
	Stereo        bool
}

// StartRecognition starts a long-running recognition and returns the
// operation name that the enrichment worker later polls.
func (a *Adapter) StartRecognition(ctx context.Context, req RecognitionRequest) (string, error) {
	client, err := a.handle.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("speech client: %w", err)
	}

	audio := &speechpb.RecognitionAudio{}
	if req.URI != "" {
		audio.AudioSource = &speechpb.RecognitionAudio_Uri{Uri: req.URI}
	} else {
		audio.AudioSource = &speechpb.RecognitionAudio_Content{Content: req.Content}
	}

	op, err := client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: RecognitionConfig(req),
		Audio:  audio,
	})
	if err != nil {
		return "", fmt.Errorf("long running recognize: %w", err)
	}
	return op.Name(), nil
}

// RecognitionConfig builds the phone-call recognition config. Stereo audio is
// recognized per channel; mono audio is diarized into two speakers.
func RecognitionConfig(req RecognitionRequest) *speechpb.RecognitionConfig {
	lang := req.LanguageCode
	if lang == "" {
		lang = "en-US"
	}
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   parseAudioEncoding(req.AudioEncoding),
		SampleRateHertz:            req.SampleRateHz,
		LanguageCode:               lang,
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      true,
		EnableWordConfidence:       true,
		UseEnhanced:                true,
		Model:                      "phone_call",
	}
	if req.Stereo {
		cfg.AudioChannelCount = 2
		cfg.EnableSeparateRecognitionPerChannel = true
	} else {
		cfg.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          2,
			MaxSpeakerCount:          2,
		}
	}
	return cfg
}

// parseAudioEncoding maps an encoding name to its enum, defaulting to LINEAR16.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
