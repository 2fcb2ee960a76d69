package graph

// BufferSource plays a Buffer once, starting at a frame of the context clock,
// through its own gain. A start frame that has already passed when the source
// is first processed starts it immediately. Buffers with a different sample
// rate are resampled with linear interpolation.
type BufferSource struct {
	buffer  *Buffer
	start   int64
	gain    float32
	step    float64 // buffer frames per output frame
	started bool
}

func NewBufferSource(c *Context, b *Buffer, start float64, gain float64) *BufferSource {
	step := 1.0
	if b.SampleRate > 0 {
		step = float64(b.SampleRate) / float64(c.SampleRate())
	}
	return &BufferSource{buffer: b, start: c.Frame(start), gain: float32(gain), step: step}
}

func (s *BufferSource) Process(out []float32, frame int64) bool {
	if !s.started {
		if s.start < frame {
			s.start = frame
		}
		s.started = true
	}
	total := s.buffer.Frames()
	data := s.buffer.Data
	for i := 0; i < len(out)/2; i++ {
		f := frame + int64(i)
		if f < s.start {
			continue
		}
		pos := float64(f-s.start) * s.step
		idx := int(pos)
		if idx >= total {
			return true
		}
		frac := float32(pos - float64(idx))
		l0, r0 := data[2*idx], data[2*idx+1]
		l1, r1 := l0, r0
		if idx+1 < total {
			l1, r1 = data[2*idx+2], data[2*idx+3]
		}
		out[2*i] += (l0 + (l1-l0)*frac) * s.gain
		out[2*i+1] += (r0 + (r1-r0)*frac) * s.gain
	}
	return total == 0
}
