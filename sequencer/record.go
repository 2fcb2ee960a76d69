package sequencer

import (
	"math"

	"github.com/beatpad/beatpad"
)

// Record turns on soundID at the step closest to the current clock time, so
// a pad hit slightly ahead of the beat lands on that beat. The sound gets a
// new track if the pattern has none. Record only works while playing and
// returns the recorded step.
func (s *Scheduler) Record(soundID string, soundType beatpad.SoundType) (step int, ok bool) {
	if soundID == "" {
		return 0, false
	}
	now := s.out.CurrentTime()
	s.mu.Lock()
	if !s.playing || s.pattern == nil || len(s.recent) == 0 {
		s.mu.Unlock()
		return 0, false
	}
	best := s.recent[0]
	for _, e := range s.recent[1:] {
		if math.Abs(e.time-now) < math.Abs(best.time-now) {
			best = e
		}
	}
	i := s.pattern.TrackIndex(soundID)
	if i < 0 {
		s.pattern.Tracks = append(s.pattern.Tracks, beatpad.NewTrack(soundID, soundType))
		i = len(s.pattern.Tracks) - 1
	}
	changed := !s.pattern.Tracks[i].Steps[best.step].Active
	s.pattern.Tracks[i].Steps[best.step].Active = true
	var p beatpad.Pattern
	if changed {
		p = s.pattern.Copy()
	}
	s.mu.Unlock()
	if changed {
		s.log.WithField("sound", soundID).WithField("step", best.step).Debug("recorded")
		s.patternListeners.Notify(p)
	}
	return best.step, true
}

// OnPatternChange registers a listener called with a copy of the pattern
// after Record changed it.
func (s *Scheduler) OnPatternChange(fn func(beatpad.Pattern)) (unsubscribe func()) {
	return s.patternListeners.Add(fn)
}
