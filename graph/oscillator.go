package graph

import (
	"math"

	"github.com/beatpad/beatpad"
)

// Oscillator is a naive (non band-limited) periodic waveform generator.
type Oscillator struct {
	Waveform  beatpad.Waveform
	Frequency float64 // Hz
	Detune    float64 // cents
	phase     float64 // [0, 1)
}

// Increment returns the phase advance per frame at the given sample rate,
// with the detune applied.
func (o *Oscillator) Increment(sampleRate float64) float64 {
	return o.Frequency * math.Pow(2, o.Detune/1200) / sampleRate
}

// Next returns the current sample and advances the phase by inc.
func (o *Oscillator) Next(inc float64) float32 {
	var v float64
	switch o.Waveform {
	case beatpad.Square:
		if o.phase < 0.5 {
			v = 1
		} else {
			v = -1
		}
	case beatpad.Sawtooth:
		v = 2*o.phase - 1
	case beatpad.Triangle:
		v = 1 - 4*math.Abs(o.phase-0.5)
	default:
		v = math.Sin(2 * math.Pi * o.phase)
	}
	o.phase += inc
	o.phase -= math.Floor(o.phase)
	return float32(v)
}
