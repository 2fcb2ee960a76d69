package sampler

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/beatpad/beatpad/graph"
)

// ErrNotAudio is returned by Decode for data that is neither WAV nor MP3.
var ErrNotAudio = errors.New("not an audio file")

// Decode decodes a WAV or MP3 file, recognised by its magic bytes, into a
// stereo buffer. Mono audio is copied to both channels and channels past the
// second are dropped.
func Decode(data []byte) (*graph.Buffer, error) {
	switch {
	case isWAV(data):
		return decodeWAV(data)
	case isMP3(data):
		return decodeMP3(data)
	}
	return nil, ErrNotAudio
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

func isMP3(data []byte) bool {
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return true
	}
	return len(data) >= 2 && data[0] == 0xff && data[1]&0xe0 == 0xe0
}

func decodeWAV(data []byte) (*graph.Buffer, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %w", ErrNotAudio)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("cannot decode WAV file: %w", err)
	}
	channels := buf.Format.NumChannels
	bitDepth := int(decoder.BitDepth)
	if channels <= 0 || bitDepth == 0 {
		return nil, fmt.Errorf("WAV file has %d channels at %d bits: %w", channels, bitDepth, ErrNotAudio)
	}
	var offset, factor float32 = 0, float32(int64(1) << (bitDepth - 1))
	if bitDepth == 8 {
		// 8-bit WAV samples are unsigned
		offset, factor = 128, 128
	}
	frames := len(buf.Data) / channels
	out := make([]float32, 2*frames)
	for i := 0; i < frames; i++ {
		l := (float32(buf.Data[i*channels]) - offset) / factor
		r := l
		if channels > 1 {
			r = (float32(buf.Data[i*channels+1]) - offset) / factor
		}
		out[2*i], out[2*i+1] = l, r
	}
	return &graph.Buffer{Data: out, SampleRate: buf.Format.SampleRate}, nil
}

func decodeMP3(data []byte) (*graph.Buffer, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode MP3 file: %w", err)
	}
	// go-mp3 always produces 16-bit little-endian stereo
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("cannot decode MP3 file: %w", err)
	}
	out := make([]float32, len(pcm)/2)
	for i := range out {
		out[i] = float32(int16(uint16(pcm[2*i])|uint16(pcm[2*i+1])<<8)) / 32768
	}
	return &graph.Buffer{Data: out[:len(out)&^1], SampleRate: decoder.SampleRate()}, nil
}
