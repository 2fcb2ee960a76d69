package graph

import (
	"math"
	"sync/atomic"

	"github.com/beatpad/beatpad"
)

type (
	// Voice is the synth source: oscillator -> low-pass -> envelope gain. The
	// envelope is automated through its Param; the voice finishes at its stop
	// time.
	Voice struct {
		osc      Oscillator
		filter   *LowPass
		envelope *Param
		gain     float32
		rate     float64
		start    int64
		stop     atomic.Int64
		env      []float32
	}

	VoiceConfig struct {
		Waveform  beatpad.Waveform
		Frequency float64 // Hz
		Detune    float64 // cents
		Cutoff    float64 // Hz
		Gain      float64 // multiplies the envelope
		Start     float64 // clock time in seconds
	}
)

// FilterQ is the resonance of the voice filter.
const FilterQ = 1

func NewVoice(c *Context, cfg VoiceConfig) *Voice {
	v := &Voice{
		osc:      Oscillator{Waveform: cfg.Waveform, Frequency: cfg.Frequency, Detune: cfg.Detune},
		filter:   NewLowPass(cfg.Cutoff, FilterQ, c.SampleRate()),
		envelope: NewParam(0),
		gain:     float32(cfg.Gain),
		rate:     float64(c.SampleRate()),
		start:    c.Frame(cfg.Start),
	}
	v.stop.Store(math.MaxInt64)
	return v
}

// Envelope is the gain automation of the voice.
func (v *Voice) Envelope() *Param {
	return v.envelope
}

// Frequency is the pitch of the voice in Hz with the detune applied.
func (v *Voice) Frequency() float64 {
	return v.osc.Frequency * math.Pow(2, v.osc.Detune/1200)
}

// Stop schedules the end of the voice at clock time t (seconds).
func (v *Voice) Stop(t float64) {
	v.stop.Store(int64(math.Round(t * v.rate)))
}

func (v *Voice) Process(out []float32, frame int64) bool {
	n := len(out) / 2
	stop := v.stop.Load()
	if frame >= stop {
		return true
	}
	if cap(v.env) < n {
		v.env = make([]float32, n)
	}
	env := v.env[:n]
	v.envelope.Fill(env, float64(frame)/v.rate, 1/v.rate)
	inc := v.osc.Increment(v.rate)
	for i := 0; i < n; i++ {
		f := frame + int64(i)
		if f < v.start {
			continue
		}
		if f >= stop {
			return true
		}
		y := v.filter.Process(v.osc.Next(inc)) * env[i] * v.gain
		out[2*i] += y
		out[2*i+1] += y
	}
	return frame+int64(n) >= stop
}
