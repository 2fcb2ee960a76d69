package graph

// Buffer is decoded PCM audio: interleaved stereo samples in [-1, 1] at
// SampleRate frames per second.
type Buffer struct {
	Data       []float32
	SampleRate int
}

// Frames returns the number of stereo frames in the buffer.
func (b *Buffer) Frames() int {
	return len(b.Data) / 2
}

// Duration returns the length of the buffer in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}
