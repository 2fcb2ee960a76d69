// Package engine puts the output, the sampler, the synth and the sequencer
// together behind the one interface the user interface talks to.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/beatpad/beatpad"
	"github.com/beatpad/beatpad/graph"
	"github.com/beatpad/beatpad/output"
	"github.com/beatpad/beatpad/sampler"
	"github.com/beatpad/beatpad/sequencer"
	"github.com/beatpad/beatpad/synth"
)

// State is the lifecycle state of the engine.
type State string

const (
	Uninitialized State = "uninitialized"
	Loading       State = "loading"
	Ready         State = "ready"
	Error         State = "error"
)

// Test tone played by PlayTestTone.
const (
	TestToneFrequency = 440.0
	TestToneDuration  = 0.5
)

type (
	Engine struct {
		output    *output.Manager
		sampler   *sampler.Sampler
		synth     *synth.Engine
		sequencer *sequencer.Scheduler
		log       logrus.FieldLogger

		mu        sync.Mutex
		state     State
		listeners beatpad.Listeners[State]
	}

	Config struct {
		Logger    logrus.FieldLogger
		Output    []output.Option
		Sampler   []sampler.Option
		Synth     []synth.Option
		Sequencer []sequencer.Option
	}
)

// New wires an engine on top of backend. Nothing is opened before Init.
func New(backend output.Backend, cfg Config) *Engine {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{log: log.WithField("component", "engine"), state: Uninitialized}
	e.output = output.NewManager(backend, append([]output.Option{output.WithLogger(log)}, cfg.Output...)...)
	e.sampler = sampler.New(e.output, append([]sampler.Option{sampler.WithLogger(log)}, cfg.Sampler...)...)
	e.synth = synth.New(e.output, append([]synth.Option{synth.WithLogger(log)}, cfg.Synth...)...)
	e.sequencer = sequencer.New(e, e.output, append([]sequencer.Option{sequencer.WithLogger(log)}, cfg.Sequencer...)...)
	return e
}

// Init opens the output and loads the sounds. Sounds that fail to load are
// skipped; failing to open the output puts the engine in the Error state
// and is returned. Calling Init on an initialized engine only resumes the
// output.
func (e *Engine) Init(ctx context.Context, sounds []beatpad.Sound) error {
	switch e.State() {
	case Ready, Loading:
		e.Resume(ctx)
		return nil
	}
	e.setState(Loading)
	if _, err := e.output.Open(); err != nil {
		e.log.WithError(err).Error("failed to initialize audio engine")
		e.setState(Error)
		return fmt.Errorf("cannot initialize audio engine: %w", err)
	}
	if err := e.sampler.Load(ctx, sounds); err != nil {
		e.setState(Error)
		return fmt.Errorf("cannot initialize audio engine: %w", err)
	}
	e.setState(Ready)
	return nil
}

// Resume makes sure the output is running.
func (e *Engine) Resume(ctx context.Context) bool {
	return e.output.EnsureRunning(ctx)
}

// Dispose stops everything and closes the output. Sounds have to be loaded
// again by the next Init.
func (e *Engine) Dispose() {
	e.sequencer.Stop()
	e.synth.ReleaseAll()
	e.output.Dispose()
	e.sampler.Clear()
	e.setState(Uninitialized)
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	old := e.state
	e.state = s
	e.mu.Unlock()
	if old != s {
		e.log.Infof("audio engine %s", s)
		e.listeners.Notify(s)
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// OnStateChange registers a listener for engine state changes.
func (e *Engine) OnStateChange(fn func(State)) (unsubscribe func()) {
	return e.listeners.Add(fn)
}

// OnOutputStateChange registers a listener for output state changes. The
// listeners are dropped by Dispose.
func (e *Engine) OnOutputStateChange(fn func(output.State)) (unsubscribe func()) {
	return e.output.OnStateChange(fn)
}

func (e *Engine) OutputState() output.State { return e.output.State() }
func (e *Engine) IsSuspended() bool         { return e.output.IsSuspended() }
func (e *Engine) IsRunning() bool           { return e.output.IsRunning() }
func (e *Engine) CurrentTime() float64      { return e.output.CurrentTime() }

// Level returns the metered output level, the meter minimum while the
// output is not open.
func (e *Engine) Level() graph.Level {
	g := e.output.Graph()
	if g == nil {
		return graph.Level{graph.MeterMinDB, graph.MeterMinDB}
	}
	if err := g.Meter().Err(); err != nil {
		e.log.WithError(err).Warn("bad samples in the output")
	}
	return g.Meter().Level()
}

// Record writes soundID into the playing pattern at the step nearest to
// now. Play the sound separately to hear it.
func (e *Engine) Record(soundID string) (step int, ok bool) {
	return e.sequencer.Record(soundID, beatpad.SoundTypeOf(soundID))
}

func (e *Engine) ready(what, id string) bool {
	if e.State() != Ready {
		e.log.WithField("sound", id).Warnf("audio engine not initialized, cannot %s", what)
		return false
	}
	return true
}

// Play plays a drum sound now, resuming the output if needed.
func (e *Engine) Play(ctx context.Context, soundID string) {
	if !e.ready("play", soundID) || !e.Resume(ctx) {
		return
	}
	e.sampler.PlayNow(soundID)
}

// PlaySynth plays a one-shot synth note now.
func (e *Engine) PlaySynth(ctx context.Context, noteID string) {
	if !e.ready("play synth", noteID) || !e.Resume(ctx) {
		return
	}
	e.synth.PlayNote(noteID)
}

func (e *Engine) NoteOn(ctx context.Context, noteID string) {
	if !e.ready("start note", noteID) || !e.Resume(ctx) {
		return
	}
	e.synth.NoteOn(noteID)
}

func (e *Engine) NoteOff(noteID string) {
	e.synth.NoteOff(noteID)
}

// SchedulePlay starts a sound at clock time t. Synth sounds are given by
// note id or synth sound id. The volume applies to this sound only.
func (e *Engine) SchedulePlay(soundID string, t float64, isSynth bool, volume float64) {
	if !e.ready("schedule", soundID) {
		return
	}
	if isSynth {
		e.synth.ScheduleNote(soundID, t, volume)
		return
	}
	e.sampler.PlayAt(soundID, t, volume)
}

// SetVolume sets the master volume, clamped to [0, 1].
func (e *Engine) SetVolume(v float64) { e.sampler.SetMasterVolume(v) }
func (e *Engine) Volume() float64     { return e.sampler.MasterVolume() }

// PlayTestTone plays a short sine tone to check the audio path.
func (e *Engine) PlayTestTone(ctx context.Context) {
	if !e.Resume(ctx) {
		e.log.Warn("output not running, cannot play test tone")
		return
	}
	e.synth.PlayTone(TestToneFrequency, TestToneDuration, beatpad.Sine)
}

func (e *Engine) SetWaveform(w beatpad.Waveform) { e.synth.SetWaveform(w) }
func (e *Engine) SetOctave(o int)                { e.synth.SetOctave(o) }
func (e *Engine) SetDetune(cents float64)        { e.synth.SetDetune(cents) }
func (e *Engine) SetAttack(seconds float64)      { e.synth.SetAttack(seconds) }
func (e *Engine) SetRelease(seconds float64)     { e.synth.SetRelease(seconds) }
func (e *Engine) SetFilterCutoff(hz float64)     { e.synth.SetFilterCutoff(hz) }
func (e *Engine) SetSynthSettings(s beatpad.SynthSettings) {
	e.synth.SetSettings(s)
}

func (e *Engine) Waveform() beatpad.Waveform           { return e.synth.Waveform() }
func (e *Engine) Octave() int                          { return e.synth.Octave() }
func (e *Engine) Detune() float64                      { return e.synth.Detune() }
func (e *Engine) Attack() float64                      { return e.synth.Attack() }
func (e *Engine) Release() float64                     { return e.synth.Release() }
func (e *Engine) FilterCutoff() float64                { return e.synth.FilterCutoff() }
func (e *Engine) SynthSettings() beatpad.SynthSettings { return e.synth.Settings() }
func (e *Engine) ActiveVoices() []string               { return e.synth.ActiveVoices() }
func (e *Engine) LoadedSounds() []string               { return e.sampler.IDs() }

// Sequencer returns the step sequencer, which plays through this engine.
func (e *Engine) Sequencer() *sequencer.Scheduler { return e.sequencer }
