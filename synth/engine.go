// Package synth plays synthesized notes: an oscillator through a low-pass
// filter and a gain envelope per note, either held (NoteOn/NoteOff) or as a
// self-contained one-shot.
package synth

import (
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/beatpad/beatpad"
	"github.com/beatpad/beatpad/graph"
)

// Envelope shape. Attack and release come from the settings.
const (
	PeakGain     = 0.5
	SustainLevel = 0.3 * PeakGain
	DecayTime    = 0.1  // seconds from peak to sustain
	HoldTime     = 0.1  // seconds one-shots hold the sustain level
	FastRelease  = 0.01 // seconds, when a held note is retriggered
	stopTail     = 0.1  // oscillator runs this long after the release ends
)

type (
	// Output is the part of the output manager the engine needs.
	Output interface {
		Graph() *graph.Context
		IsRunning() bool
		IsSuspended() bool
	}

	Engine struct {
		out Output
		log logrus.FieldLogger

		mu       sync.Mutex
		settings beatpad.SynthSettings
		voices   map[string]*graph.Voice // held notes by note id
	}

	Option func(*Engine)
)

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

func WithSettings(s beatpad.SynthSettings) Option {
	return func(e *Engine) { e.settings = s.Clamp() }
}

func New(out Output, opts ...Option) *Engine {
	e := &Engine{
		out:      out,
		log:      logrus.StandardLogger(),
		settings: beatpad.DefaultSynthSettings,
		voices:   map[string]*graph.Voice{},
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.WithField("component", "synth")
	return e
}

// newVoice builds a voice for the note with the current settings. The
// caller holds e.mu.
func (e *Engine) newVoice(g *graph.Context, note beatpad.Note, start, gain float64) *graph.Voice {
	return graph.NewVoice(g, graph.VoiceConfig{
		Waveform:  e.settings.Waveform,
		Frequency: note.Frequency * math.Pow(2, float64(e.settings.Octave)),
		Detune:    e.settings.Detune,
		Cutoff:    e.settings.FilterCutoff,
		Gain:      gain,
		Start:     start,
	})
}

func (e *Engine) playable(id string) (*graph.Context, beatpad.Note, bool) {
	note, ok := beatpad.LookupNote(id)
	if !ok {
		e.log.WithField("note", id).Warn("unknown note")
		return nil, note, false
	}
	g := e.out.Graph()
	if g == nil || !e.out.IsRunning() {
		e.log.WithField("note", id).Warn("output not running, cannot play note")
		return nil, note, false
	}
	return g, note, true
}

// NoteOn starts a held note. A note already held with the same id is
// released quickly first, so there is never more than one voice per note.
func (e *Engine) NoteOn(id string) {
	g, note, ok := e.playable(id)
	if !ok {
		return
	}
	now := g.CurrentTime()
	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.voices[note.ID]; ok {
		release(old, now, FastRelease)
		delete(e.voices, note.ID)
	}
	v := e.newVoice(g, note, now, 1)
	env := v.Envelope()
	env.SetValueAtTime(0, now)
	env.LinearRampToValueAtTime(PeakGain, now+e.settings.Attack)
	env.LinearRampToValueAtTime(SustainLevel, now+e.settings.Attack+DecayTime)
	e.voices[note.ID] = v
	g.Start(v)
}

// NoteOff releases a held note from wherever its envelope currently is.
func (e *Engine) NoteOff(id string) {
	note, ok := beatpad.LookupNote(id)
	if !ok {
		e.log.WithField("note", id).Warn("unknown note")
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.voices[note.ID]
	if !ok {
		e.log.WithField("note", id).Warn("note off without active voice")
		return
	}
	delete(e.voices, note.ID)
	var now float64
	if g := e.out.Graph(); g != nil {
		now = g.CurrentTime()
	}
	release(v, now, e.settings.Release)
}

func release(v *graph.Voice, now, duration float64) {
	env := v.Envelope()
	current := env.ValueAt(now)
	env.CancelScheduledValues(now)
	env.SetValueAtTime(current, now)
	env.LinearRampToValueAtTime(0, now+duration)
	v.Stop(now + duration + stopTail)
}

// PlayNote plays a one-shot note right away.
func (e *Engine) PlayNote(id string) {
	g, note, ok := e.playable(id)
	if !ok {
		return
	}
	e.scheduleOneShot(g, note, g.CurrentTime(), 1)
}

// ScheduleNote plays a one-shot note at clock time t with the given volume,
// clamped to [0, 1]. Nothing is scheduled while the output is suspended.
func (e *Engine) ScheduleNote(id string, t, volume float64) {
	note, ok := beatpad.LookupNote(id)
	if !ok {
		e.log.WithField("note", id).Warn("unknown note")
		return
	}
	g := e.out.Graph()
	if g == nil {
		e.log.WithField("note", id).Warn("output not opened, cannot schedule note")
		return
	}
	if e.out.IsSuspended() {
		e.log.WithField("note", id).Debug("output suspended, note not scheduled")
		return
	}
	e.scheduleOneShot(g, note, t, beatpad.Clamp(volume, 0, 1))
}

// scheduleOneShot builds the whole attack, decay, hold and release envelope
// up front from the current settings; the voice stops itself at the end.
func (e *Engine) scheduleOneShot(g *graph.Context, note beatpad.Note, t, volume float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	attack, rel := e.settings.Attack, e.settings.Release
	v := e.newVoice(g, note, t, volume)
	env := v.Envelope()
	env.SetValueAtTime(0, t)
	env.LinearRampToValueAtTime(PeakGain, t+attack)
	env.LinearRampToValueAtTime(SustainLevel, t+attack+DecayTime)
	env.SetValueAtTime(SustainLevel, t+attack+DecayTime+HoldTime)
	env.LinearRampToValueAtTime(0, t+attack+DecayTime+HoldTime+rel)
	v.Stop(t + OneShotDuration(e.settings))
	g.Start(v)
}

// OneShotDuration is how long a one-shot note lasts with the given settings.
func OneShotDuration(s beatpad.SynthSettings) float64 {
	return s.Attack + DecayTime + HoldTime + s.Release
}

// PlayTone plays a plain tone at a fixed frequency, bypassing the note table
// and the settings. It is used to check that audio comes out at all.
func (e *Engine) PlayTone(frequency, duration float64, waveform beatpad.Waveform) {
	g := e.out.Graph()
	if g == nil || !e.out.IsRunning() {
		e.log.Warn("output not running, cannot play tone")
		return
	}
	const level, ramp = 0.3, 0.01
	now := g.CurrentTime()
	v := graph.NewVoice(g, graph.VoiceConfig{
		Waveform:  waveform,
		Frequency: frequency,
		Cutoff:    beatpad.MaxFilterCutoff,
		Gain:      1,
		Start:     now,
	})
	env := v.Envelope()
	env.SetValueAtTime(0, now)
	env.LinearRampToValueAtTime(level, now+ramp)
	env.SetValueAtTime(level, now+math.Max(ramp, duration-ramp))
	env.LinearRampToValueAtTime(0, now+duration)
	v.Stop(now + duration)
	g.Start(v)
}

// ReleaseAll releases every held note.
func (e *Engine) ReleaseAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	var now float64
	if g := e.out.Graph(); g != nil {
		now = g.CurrentTime()
	}
	for id, v := range e.voices {
		release(v, now, FastRelease)
		delete(e.voices, id)
	}
}

// Voice returns the voice holding a note, if the note is held.
func (e *Engine) Voice(id string) (*graph.Voice, bool) {
	note, ok := beatpad.LookupNote(id)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.voices[note.ID]
	return v, ok
}

// ActiveVoices returns the ids of the held notes, sorted.
func (e *Engine) ActiveVoices() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.voices))
	for id := range e.voices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Settings returns a copy of the current settings.
func (e *Engine) Settings() beatpad.SynthSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

func (e *Engine) update(f func(s *beatpad.SynthSettings)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f(&e.settings)
	e.settings = e.settings.Clamp()
}

// SetWaveform changes the waveform of new voices. Unknown waveforms are
// ignored.
func (e *Engine) SetWaveform(w beatpad.Waveform) {
	if !w.Valid() {
		e.log.WithField("waveform", w).Warn("unknown waveform")
		return
	}
	e.update(func(s *beatpad.SynthSettings) { s.Waveform = w })
}

func (e *Engine) SetOctave(o int) {
	e.update(func(s *beatpad.SynthSettings) { s.Octave = o })
}

func (e *Engine) SetDetune(cents float64) {
	e.update(func(s *beatpad.SynthSettings) { s.Detune = cents })
}

func (e *Engine) SetAttack(seconds float64) {
	e.update(func(s *beatpad.SynthSettings) { s.Attack = seconds })
}

func (e *Engine) SetRelease(seconds float64) {
	e.update(func(s *beatpad.SynthSettings) { s.Release = seconds })
}

func (e *Engine) SetFilterCutoff(hz float64) {
	e.update(func(s *beatpad.SynthSettings) { s.FilterCutoff = hz })
}

// SetSettings replaces all settings at once, clamped.
func (e *Engine) SetSettings(s beatpad.SynthSettings) {
	e.update(func(cur *beatpad.SynthSettings) { *cur = s })
}

func (e *Engine) Waveform() beatpad.Waveform { return e.Settings().Waveform }
func (e *Engine) Octave() int                { return e.Settings().Octave }
func (e *Engine) Detune() float64            { return e.Settings().Detune }
func (e *Engine) Attack() float64            { return e.Settings().Attack }
func (e *Engine) Release() float64           { return e.Settings().Release }
func (e *Engine) FilterCutoff() float64      { return e.Settings().FilterCutoff }
