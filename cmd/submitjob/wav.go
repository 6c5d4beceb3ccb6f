package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

const pcmFormat = 1

var errNotWAV = errors.New("not a valid WAV file")

// wavHeader is the fmt chunk of a canonical PCM WAV file.
type wavHeader struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

func readWAVHeader(r io.Reader) (wavHeader, error) {
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return wavHeader{}, fmt.Errorf("read WAV header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return wavHeader{}, errNotWAV
	}

	h := wavHeader{
		AudioFormat:   binary.LittleEndian.Uint16(header[20:22]),
		Channels:      binary.LittleEndian.Uint16(header[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(header[24:28]),
		BitsPerSample: binary.LittleEndian.Uint16(header[34:36]),
	}
	if h.AudioFormat != pcmFormat {
		return h, fmt.Errorf("only PCM format supported, got %d", h.AudioFormat)
	}
	if h.Channels == 0 || h.SampleRate == 0 || h.BitsPerSample == 0 {
		return h, fmt.Errorf("incomplete WAV header: channels=%d sampleRate=%d bitsPerSample=%d",
			h.Channels, h.SampleRate, h.BitsPerSample)
	}
	return h, nil
}

// DurationSeconds estimates the audio length of a file of fileSize bytes.
func (h wavHeader) DurationSeconds(fileSize int64) float64 {
	bytesPerSecond := float64(h.SampleRate) * float64(h.Channels) * float64(h.BitsPerSample) / 8
	data := fileSize - wavHeaderSize
	if data <= 0 || bytesPerSecond == 0 {
		return 0
	}
	return float64(data) / bytesPerSecond
}
