// Package sequencer plays a step pattern in time with the output clock. A
// coarse timer decides what to schedule; the sounds themselves are started
// at exact clock times by the player, a short window ahead of the clock.
package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/beatpad/beatpad"
)

const (
	// StepsPerBeat is the step resolution: sixteenth notes.
	StepsPerBeat = 4
	// DefaultLookAhead is how far ahead of the clock steps are scheduled.
	DefaultLookAhead = 100 * time.Millisecond
	// DefaultInterval is the poll interval of the scheduling loop. It must
	// stay below the look-ahead window or steps get missed.
	DefaultInterval = 25 * time.Millisecond
)

type (
	// Player starts sounds at clock times.
	Player interface {
		SchedulePlay(soundID string, t float64, isSynth bool, volume float64)
	}

	// Output is the part of the output manager the scheduler needs.
	Output interface {
		EnsureRunning(ctx context.Context) bool
		IsRunning() bool
		CurrentTime() float64
	}

	Scheduler struct {
		player    Player
		out       Output
		interval  time.Duration
		lookAhead float64 // seconds
		log       logrus.FieldLogger

		mu        sync.Mutex
		pattern   *beatpad.Pattern
		bpm       float64
		stepCount int
		muted     map[string]bool
		playing   bool
		current   int     // next step to schedule
		nextTime  float64 // clock time of the next step to schedule
		run       uint64  // bumped on every start and stop
		cancel    context.CancelFunc
		recent    []stepEvent // last scheduled steps of this run, oldest first

		pending    []stepEvent // step notifications not yet delivered, in time order
		wake       chan struct{}
		delivering bool // a step listener call is in progress
		stopOwed   bool // playback stopped during that call

		stepListeners    beatpad.Listeners[int]
		stopListeners    beatpad.Listeners[struct{}]
		patternListeners beatpad.Listeners[beatpad.Pattern]
	}

	Option func(*Scheduler)

	trigger struct {
		soundID string
		time    float64
		isSynth bool
		volume  float64
	}

	stepEvent struct {
		step int
		time float64
	}
)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

func WithLookAhead(d time.Duration) Option {
	return func(s *Scheduler) { s.lookAhead = d.Seconds() }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Scheduler) { s.log = log }
}

func New(player Player, out Output, opts ...Option) *Scheduler {
	s := &Scheduler{
		player:    player,
		out:       out,
		interval:  DefaultInterval,
		lookAhead: DefaultLookAhead.Seconds(),
		log:       logrus.StandardLogger(),
		bpm:       beatpad.DefaultBPM,
		stepCount: 16,
		muted:     map[string]bool{},
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.WithField("component", "sequencer")
	if s.interval >= time.Duration(s.lookAhead*float64(time.Second)) {
		s.log.Warnf("poll interval %v is not below the look-ahead window %vs, steps may be missed", s.interval, s.lookAhead)
	}
	return s
}

// SetPattern replaces the pattern played by the current or the next run and
// takes over its tempo. The playback position is kept.
func (s *Scheduler) SetPattern(p beatpad.Pattern) {
	cp := p.Copy()
	cp.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pattern = &cp
	s.bpm = beatpad.ClampBPM(cp.BPM)
	s.pattern.BPM = s.bpm
}

// Pattern returns a copy of the current pattern.
func (s *Scheduler) Pattern() (beatpad.Pattern, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pattern == nil {
		return beatpad.Pattern{}, false
	}
	return s.pattern.Copy(), true
}

// Start makes sure the output is running and starts playing from step 0 at
// the current clock time. It returns false if there is no pattern or the
// output cannot be started. Starting while playing is a no-op returning
// true.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	playing, hasPattern := s.playing, s.pattern != nil
	s.mu.Unlock()
	if playing {
		return true
	}
	if !hasPattern {
		s.log.Warn("no pattern set, cannot start")
		return false
	}
	if !s.out.EnsureRunning(ctx) {
		s.log.Warn("output not running, cannot start")
		return false
	}
	s.mu.Lock()
	if s.playing {
		s.mu.Unlock()
		return true
	}
	s.playing = true
	s.current = 0
	s.nextTime = s.out.CurrentTime()
	s.run++
	run := s.run
	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.pending = nil
	wake := make(chan struct{}, 1)
	s.wake = wake
	s.mu.Unlock()
	s.log.Info("sequencer started")
	go s.notifier(loopCtx, run, wake)
	if s.tick(run) {
		go s.loop(loopCtx, run)
	}
	return true
}

func (s *Scheduler) loop(ctx context.Context, run uint64) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(run) {
				return
			}
		}
	}
}

// tick is one scheduling pass of the given run. It returns false once the
// run is over.
func (s *Scheduler) tick(run uint64) bool {
	s.mu.Lock()
	if !s.playing || run != s.run {
		s.mu.Unlock()
		return false
	}
	if !s.out.IsRunning() {
		notify := s.halt()
		s.mu.Unlock()
		s.log.Info("output no longer running, sequencer stopped")
		if notify {
			s.notifyStopped()
		}
		return false
	}
	now := s.out.CurrentTime()
	secondsPerStep := 60 / s.bpm / StepsPerBeat
	var triggers []trigger
	var steps []stepEvent
	for s.nextTime < now+s.lookAhead {
		for _, track := range s.pattern.Tracks {
			if !track.Active(s.current) || s.muted[track.SoundID] {
				continue
			}
			triggers = append(triggers, trigger{
				soundID: track.SoundID,
				time:    s.nextTime,
				isSynth: track.SoundType == beatpad.SoundTypeSynth || beatpad.IsSynthSound(track.SoundID),
				volume:  track.Gain(),
			})
		}
		steps = append(steps, stepEvent{step: s.current, time: s.nextTime})
		s.current = (s.current + 1) % s.stepCount
		s.nextTime += secondsPerStep
	}
	s.pending = append(s.pending, steps...)
	wake := s.wake
	s.recent = append(s.recent, steps...)
	if n := len(s.recent); n > beatpad.MaxSteps {
		s.recent = append(s.recent[:0], s.recent[n-beatpad.MaxSteps:]...)
	}
	s.mu.Unlock()
	for _, t := range triggers {
		s.player.SchedulePlay(t.soundID, t.time, t.isSynth, t.volume)
	}
	if len(steps) > 0 {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
	return true
}

// notifier delivers the step notifications of one run in order, each when
// the clock reaches its step. It ends with the run.
func (s *Scheduler) notifier(ctx context.Context, run uint64, wake <-chan struct{}) {
	for {
		s.mu.Lock()
		if run != s.run {
			s.mu.Unlock()
			return
		}
		if len(s.pending) == 0 {
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return
			case <-wake:
			}
			continue
		}
		e := s.pending[0]
		s.mu.Unlock()
		if d := time.Duration((e.time - s.out.CurrentTime()) * float64(time.Second)); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		s.mu.Lock()
		if run != s.run {
			s.mu.Unlock()
			return
		}
		s.pending = s.pending[1:]
		s.delivering = true
		s.mu.Unlock()
		s.stepListeners.Notify(e.step)
		s.mu.Lock()
		s.delivering = false
		owed := s.stopOwed
		s.stopOwed = false
		s.mu.Unlock()
		if owed {
			s.notifyStopped()
			return
		}
	}
}

// halt ends the current run. The caller holds s.mu and must call
// notifyStopped if halt returns true. Otherwise a step listener is running
// and the notifier sends the stop notification after it, so that 0 stays the
// last step reported.
func (s *Scheduler) halt() (notify bool) {
	s.playing = false
	s.current = 0
	s.recent = s.recent[:0]
	s.pending = nil
	s.run++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.delivering {
		s.stopOwed = true
		return false
	}
	return true
}

func (s *Scheduler) notifyStopped() {
	s.stepListeners.Notify(0)
	s.stopListeners.Notify(struct{}{})
}

// Stop stops playing and rewinds to step 0. Sounds already handed to the
// player still play. Stop can be called at any time.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasPlaying := s.playing
	notify := s.halt()
	s.mu.Unlock()
	if wasPlaying {
		s.log.Info("sequencer stopped")
	}
	if notify {
		s.notifyStopped()
	}
}

// Toggle stops when playing and starts otherwise. It returns whether the
// sequencer is playing afterwards.
func (s *Scheduler) Toggle(ctx context.Context) bool {
	if s.Playing() {
		s.Stop()
		return false
	}
	return s.Start(ctx)
}

// SetBpm sets the tempo, clamped to [MinBPM, MaxBPM]. Steps already
// scheduled keep their times.
func (s *Scheduler) SetBpm(bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bpm = beatpad.ClampBPM(bpm)
	if s.pattern != nil {
		s.pattern.BPM = s.bpm
	}
}

func (s *Scheduler) Bpm() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// SetStepCount sets the loop length to one of beatpad.StepCounts. Pattern
// data past the loop is kept.
func (s *Scheduler) SetStepCount(n int) {
	if !beatpad.ValidStepCount(n) {
		s.log.WithField("steps", n).Warn("invalid step count")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepCount = n
	if s.current >= n {
		s.current = 0
	}
}

func (s *Scheduler) StepCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stepCount
}

// SetMutedTracks replaces the set of muted sound ids. It applies from the
// next scheduling pass.
func (s *Scheduler) SetMutedTracks(soundIDs []string) {
	muted := make(map[string]bool, len(soundIDs))
	for _, id := range soundIDs {
		muted[id] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

func (s *Scheduler) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Scheduler) CurrentStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnStep registers a listener called with each step index when that step
// sounds, and with 0 on stop.
func (s *Scheduler) OnStep(fn func(step int)) (unsubscribe func()) {
	return s.stepListeners.Add(fn)
}

// OnStop registers a listener called whenever playback stops, also when the
// output stopping ends it.
func (s *Scheduler) OnStop(fn func()) (unsubscribe func()) {
	return s.stopListeners.Add(func(struct{}) { fn() })
}
