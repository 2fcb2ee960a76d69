// Package graph renders the audio of the engine. A Context mixes scheduled
// sources into interleaved stereo float32 buffers and counts the rendered
// frames; that count is the hardware clock every start and stop time refers
// to.
package graph

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/viterin/vek/vek32"
)

const DefaultSampleRate = 44100

type (
	// Source is anything the context can mix. Process adds the source's
	// output for the frames starting at the absolute frame index frame into
	// out (interleaved stereo) and reports whether the source has finished,
	// after which the context drops it.
	Source interface {
		Process(out []float32, frame int64) (done bool)
	}

	Context struct {
		sampleRate int
		frame      atomic.Int64
		master     atomic.Uint64 // math.Float64bits of the master gain
		meter      *Meter

		mu      sync.Mutex
		sources []Source
		scratch []float32
	}
)

func NewContext(sampleRate int) *Context {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	c := &Context{sampleRate: sampleRate, meter: NewMeter(sampleRate)}
	c.master.Store(math.Float64bits(1))
	return c
}

func (c *Context) SampleRate() int {
	return c.sampleRate
}

// CurrentTime returns the clock in seconds: the number of frames rendered so
// far divided by the sample rate.
func (c *Context) CurrentTime() float64 {
	return float64(c.frame.Load()) / float64(c.sampleRate)
}

// Frame converts a clock time in seconds to a frame index.
func (c *Context) Frame(t float64) int64 {
	return int64(math.Round(t * float64(c.sampleRate)))
}

// SetMasterGain sets the gain applied to the whole mix. The caller clamps.
func (c *Context) SetMasterGain(g float64) {
	c.master.Store(math.Float64bits(g))
}

func (c *Context) MasterGain() float64 {
	return math.Float64frombits(c.master.Load())
}

// Start adds a source to the mix. The source decides itself when it starts
// producing sound.
func (c *Context) Start(s Source) {
	c.mu.Lock()
	c.sources = append(c.sources, s)
	c.mu.Unlock()
}

// Sources returns the sources still in the mix, in the order they were
// started.
func (c *Context) Sources() []Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Source(nil), c.sources...)
}

// NumSources returns the number of sources still in the mix.
func (c *Context) NumSources() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sources)
}

// Render fills out (interleaved stereo, so len(out) must be even) with the
// next len(out)/2 frames of the mix and advances the clock.
func (c *Context) Render(out []float32) {
	clear(out)
	frames := len(out) / 2
	if frames == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cap(c.scratch) < frames*2 {
		c.scratch = make([]float32, frames*2)
	}
	scratch := c.scratch[:frames*2]
	out = out[:frames*2]
	frame := c.frame.Load()
	live := c.sources[:0]
	for _, s := range c.sources {
		clear(scratch)
		done := s.Process(scratch, frame)
		vek32.Add_Inplace(out, scratch)
		if !done {
			live = append(live, s)
		}
	}
	for i := len(live); i < len(c.sources); i++ {
		c.sources[i] = nil // let finished sources be collected
	}
	c.sources = live
	vek32.MulNumber_Inplace(out, float32(c.MasterGain()))
	c.meter.Update(out)
	c.frame.Add(int64(frames))
}

// Meter follows the level of everything Render produces.
func (c *Context) Meter() *Meter {
	return c.meter
}
