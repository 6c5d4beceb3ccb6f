package google

import (
	"testing"

	longrunningpb "cloud.google.com/go/longrunning/autogen/longrunningpb"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
)

func sampleResponse() *speechpb.LongRunningRecognizeResponse {
	return &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{
				ChannelTag: 2,
				Alternatives: []*speechpb.SpeechRecognitionAlternative{
					{
						Transcript: "hello world",
						Confidence: 0.9,
						Words: []*speechpb.WordInfo{
							{Word: "hello", StartTime: durationpb.New(0), EndTime: durationpb.New(1500e6), Confidence: 0.8, SpeakerTag: 1},
							{Word: "world", StartTime: durationpb.New(1500e6), EndTime: durationpb.New(3e9), Confidence: 0.95, SpeakerTag: 2},
						},
					},
				},
			},
		},
	}
}

func TestConvertResponse_RendersRESTShape(t *testing.T) {
	result, err := ConvertResponse(sampleResponse())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(result.Results))
	}

	seg := result.Results[0]
	if seg.ChannelTag != 2 {
		t.Errorf("expected channel tag 2, got %d", seg.ChannelTag)
	}
	alt, ok := seg.Top()
	if !ok {
		t.Fatal("expected an alternative")
	}
	if alt.Transcript != "hello world" {
		t.Errorf("expected transcript 'hello world', got %q", alt.Transcript)
	}
	if got := alt.Words[0].EndTime; got != "1.500s" {
		t.Errorf("expected end time '1.500s', got %q", got)
	}
	if got := alt.Words[1].EndTime; got != "3s" {
		t.Errorf("expected end time '3s', got %q", got)
	}
	if alt.Words[1].SpeakerTag != 2 {
		t.Errorf("expected speaker tag 2, got %d", alt.Words[1].SpeakerTag)
	}
}

func TestToOperation_Done(t *testing.T) {
	resp, err := anypb.New(sampleResponse())
	if err != nil {
		t.Fatalf("pack response: %v", err)
	}
	op := &longrunningpb.Operation{
		Name:   "123",
		Done:   true,
		Result: &longrunningpb.Operation_Response{Response: resp},
	}

	out, err := toOperation(op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Done || out.Result == nil || out.Err != nil {
		t.Fatalf("expected done operation with result, got %+v", out)
	}
}

func TestToOperation_Pending(t *testing.T) {
	out, err := toOperation(&longrunningpb.Operation{Name: "123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Done || out.Result != nil {
		t.Errorf("expected pending operation without result, got %+v", out)
	}
}

func TestToOperation_Failed(t *testing.T) {
	op := &longrunningpb.Operation{
		Name: "123",
		Done: true,
		Result: &longrunningpb.Operation_Error{
			Error: &rpcstatus.Status{Code: int32(codes.InvalidArgument), Message: "bad audio"},
		},
	}

	out, err := toOperation(op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Code(out.Err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument operation error, got %v", out.Err)
	}
}

func TestRecognitionConfig_StereoAndMono(t *testing.T) {
	stereo := RecognitionConfig(RecognitionRequest{Stereo: true, SampleRateHz: 8000})
	if stereo.AudioChannelCount != 2 || !stereo.EnableSeparateRecognitionPerChannel {
		t.Errorf("expected per-channel recognition for stereo, got %+v", stereo)
	}
	if stereo.DiarizationConfig != nil {
		t.Error("expected no diarization for stereo")
	}
	if stereo.LanguageCode != "en-US" || stereo.Model != "phone_call" {
		t.Errorf("unexpected defaults: lang=%s model=%s", stereo.LanguageCode, stereo.Model)
	}

	mono := RecognitionConfig(RecognitionRequest{Stereo: false})
	if mono.DiarizationConfig == nil || !mono.DiarizationConfig.EnableSpeakerDiarization {
		t.Fatal("expected diarization for mono")
	}
	if mono.DiarizationConfig.MaxSpeakerCount != 2 {
		t.Errorf("expected 2 speakers, got %d", mono.DiarizationConfig.MaxSpeakerCount)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"linear16", speechpb.RecognitionConfig_LINEAR16}, // lowercase -> fallback
		{"", speechpb.RecognitionConfig_LINEAR16},         // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
