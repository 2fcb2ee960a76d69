package graph

import (
	"errors"
	"math"
	"sync"
)

const (
	MeterMinDB = -60.0
	MeterMaxDB = 0.0
)

type (
	// Level holds the left and right channel levels in decibels relative to
	// full scale (0 dB = signal level of +-1).
	Level [2]float64

	// Meter follows the level of the rendered mix. The level is an
	// exponentially smoothed average of the per-sample decibel values, using
	// the Attack time constant (seconds) while the signal rises and Release
	// while it falls. 0.3 s for both gives an average level; 1.5e-3 and 1.5
	// give a peak level.
	Meter struct {
		Attack  float64
		Release float64

		rate float64

		mu    sync.Mutex
		level Level
		err   error
	}
)

var ErrNaN = errors.New("NaN detected in master output")

func NewMeter(sampleRate int) *Meter {
	return &Meter{
		Attack:  0.3,
		Release: 0.3,
		rate:    float64(sampleRate),
		level:   Level{MeterMinDB, MeterMinDB},
	}
}

// Update folds the interleaved stereo buffer into the level. NaN samples are
// skipped and remembered in Err.
func (m *Meter) Update(buf []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alphaAttack := 1 - math.Exp(-1.0/(m.Attack*m.rate))
	alphaRelease := 1 - math.Exp(-1.0/(m.Release*m.rate))
	for j := 0; j < 2; j++ {
		for i := j; i < len(buf); i += 2 {
			sample2 := float64(buf[i]) * float64(buf[i])
			if math.IsNaN(sample2) {
				m.err = ErrNaN
				continue
			}
			dB := 10 * math.Log10(sample2)
			if dB < MeterMinDB || math.IsNaN(dB) {
				dB = MeterMinDB
			}
			if dB > MeterMaxDB {
				dB = MeterMaxDB
			}
			a := alphaAttack
			if dB < m.level[j] {
				a = alphaRelease
			}
			m.level[j] += (dB - m.level[j]) * a
		}
	}
}

func (m *Meter) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Err returns the first problem seen in the output since the last call and
// clears it.
func (m *Meter) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.err
	m.err = nil
	return err
}
