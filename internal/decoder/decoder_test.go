package decoder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode_FullMessage(t *testing.T) {
	payload := []byte(`{
		"sttnameid": "1234567890",
		"fileid": "kf9q1x2c",
		"dlp": "true",
		"filename": "gs://calls/2020/10/19/call-1.flac",
		"callid": "call-1",
		"date": "Mon Oct 19 2020 10:12:33 GMT+0000 (Coordinated Universal Time)",
		"year": "2020",
		"month": 10,
		"day": "19",
		"starttime": "10:12:33",
		"duration": 93.4,
		"stereo": "true"
	}`)

	job, err := Decode(payload)
	require.NoError(t, err)

	require.Equal(t, "1234567890", job.OperationID)
	require.Equal(t, "kf9q1x2c", job.FileID)
	require.Equal(t, "gs://calls/2020/10/19/call-1.flac", job.FileName)
	require.Equal(t, "call-1", job.CallID)
	require.True(t, job.DLPRequested())
	require.Equal(t, 2020, *job.Year)
	require.Equal(t, 10, *job.Month)
	require.Equal(t, 19, *job.Day)
	require.Equal(t, "10:12:33", job.StartTime)
	require.Equal(t, "93.4", job.Duration)
	require.True(t, job.IsStereo)
}

func TestDecode_UndefinedMetadata(t *testing.T) {
	payload := []byte(`{"sttnameid":"op-1","stereo":"false","year":"undefined","month":null,"callid":"undefined"}`)

	job, err := Decode(payload)
	require.NoError(t, err)
	require.Nil(t, job.Year)
	require.Nil(t, job.Month)
	require.Nil(t, job.Day)
	require.Equal(t, "NA", job.Duration)
	require.False(t, job.IsStereo)
	require.False(t, job.DLPRequested())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		field   string
	}{
		{"not json", []byte(`not-json`), ""},
		{"invalid utf8", []byte{0xff, 0xfe, 0xfd}, ""},
		{"missing operation", []byte(`{"stereo":"true"}`), "sttnameid"},
		{"missing stereo", []byte(`{"sttnameid":"op"}`), "stereo"},
		{"bad stereo", []byte(`{"sttnameid":"op","stereo":"maybe"}`), "stereo"},
		{"bad year", []byte(`{"sttnameid":"op","stereo":"true","year":"twenty"}`), "year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.payload)
			require.Error(t, err)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			require.Equal(t, tt.field, de.Field)
		})
	}
}

func TestDecode_StereoAcceptsBooleans(t *testing.T) {
	job, err := Decode([]byte(`{"sttnameid":"op","stereo":true}`))
	require.NoError(t, err)
	require.True(t, job.IsStereo)
}
