package sequencer

import (
	"math"
	"sync"
	"time"

	"github.com/beatpad/beatpad"
)

const (
	tapWindow  = 4
	tapTimeout = 2 * time.Second
)

// TapTempo derives a tempo from the intervals between taps. The zero value
// is ready to use.
type TapTempo struct {
	mu   sync.Mutex
	taps []time.Time
}

// Tap records a tap at now. Once there are two taps it returns the tempo of
// the average interval over the last four, rounded and clamped. A pause
// longer than two seconds starts over.
func (tt *TapTempo) Tap(now time.Time) (bpm float64, ok bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	if n := len(tt.taps); n > 0 && now.Sub(tt.taps[n-1]) > tapTimeout {
		tt.taps = tt.taps[:0]
	}
	tt.taps = append(tt.taps, now)
	if len(tt.taps) > tapWindow {
		tt.taps = tt.taps[len(tt.taps)-tapWindow:]
	}
	if len(tt.taps) < 2 {
		return 0, false
	}
	avg := tt.taps[len(tt.taps)-1].Sub(tt.taps[0]) / time.Duration(len(tt.taps)-1)
	if avg <= 0 {
		return 0, false
	}
	return beatpad.ClampBPM(math.Round(float64(time.Minute) / float64(avg))), true
}

func (tt *TapTempo) Reset() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.taps = nil
}
