package engine_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	"github.com/beatpad/beatpad"
	"github.com/beatpad/beatpad/engine"
	"github.com/beatpad/beatpad/graph"
	"github.com/beatpad/beatpad/output"
	"github.com/beatpad/beatpad/sampler"
	"github.com/beatpad/beatpad/sequencer"
)

func writeKick(t *testing.T, dir string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, "kick.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           make([]int, 441),
		SourceBitDepth: 16,
	}
	for i := range buf.Data {
		buf.Data[i] = 8000
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func newEngine(t *testing.T, backend *output.HeadlessBackend) *engine.Engine {
	dir := t.TempDir()
	writeKick(t, dir)
	l := logrus.New()
	l.SetOutput(io.Discard)
	return engine.New(backend, engine.Config{
		Logger:    l,
		Output:    []output.Option{output.WithSettleDelay(time.Millisecond)},
		Sampler:   []sampler.Option{sampler.WithFetcher(sampler.LocatorFetcher{FS: os.DirFS(dir)})},
		Sequencer: []sequencer.Option{sequencer.WithInterval(5 * time.Millisecond)},
	})
}

var sounds = []beatpad.Sound{
	{ID: "kick", Name: "Kick", Locator: "kick.wav"},
	{ID: "snare", Name: "Snare", Locator: "snare.wav"},
}

func TestInitFailureSetsErrorState(t *testing.T) {
	cause := errors.New("audio denied")
	e := newEngine(t, &output.HeadlessBackend{OpenErr: cause})
	var states []engine.State
	e.OnStateChange(func(s engine.State) { states = append(states, s) })
	err := e.Init(context.Background(), sounds)
	if !errors.Is(err, cause) {
		t.Fatalf("expected the open error, got %v", err)
	}
	if e.State() != engine.Error {
		t.Fatalf("expected error state, got %s", e.State())
	}
	if expected := []engine.State{engine.Loading, engine.Error}; !reflect.DeepEqual(states, expected) {
		t.Fatalf("got states %v, expected %v", states, expected)
	}
}

func TestInitSkipsBrokenSounds(t *testing.T) {
	backend := &output.HeadlessBackend{}
	e := newEngine(t, backend)
	if err := e.Init(context.Background(), sounds); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if e.State() != engine.Ready {
		t.Fatalf("expected ready, got %s", e.State())
	}
	if got := e.LoadedSounds(); !reflect.DeepEqual(got, []string{"kick"}) {
		t.Fatalf("got sounds %v, expected [kick]", got)
	}
	if !e.IsSuspended() {
		t.Fatalf("output should start suspended")
	}
	e.Play(context.Background(), "snare")
	e.Play(context.Background(), "kick")
	if !e.IsRunning() {
		t.Fatalf("Play should resume the output")
	}
	if n := backend.Device().Resumes(); n != 1 {
		t.Fatalf("expected one resume, got %d", n)
	}
	if err := e.Init(context.Background(), sounds); err != nil || e.State() != engine.Ready {
		t.Fatalf("second Init should keep the engine ready: %v", err)
	}
}

func TestPlayBeforeInit(t *testing.T) {
	e := newEngine(t, &output.HeadlessBackend{})
	e.Play(context.Background(), "kick")
	e.NoteOn(context.Background(), "C4")
	e.NoteOff("C4")
	e.SchedulePlay("kick", 1, false, 1)
	if e.State() != engine.Uninitialized || e.IsRunning() {
		t.Fatalf("playing before Init should change nothing")
	}
	if e.Volume() != 1 {
		t.Fatalf("volume before Init should be 1")
	}
}

func TestSequencerPlaysThroughEngine(t *testing.T) {
	backend := &output.HeadlessBackend{}
	e := newEngine(t, backend)
	if err := e.Init(context.Background(), sounds); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	p := beatpad.DefaultPattern()
	p.ToggleStep(p.TrackIndex("kick"), 0)
	p.ToggleSoundOnStep(beatpad.SynthSoundID("C4"), 0, beatpad.SoundTypeSynth)
	seq := e.Sequencer()
	seq.SetPattern(p)
	if !seq.Start(context.Background()) {
		t.Fatalf("sequencer did not start")
	}
	defer seq.Stop()
	if buf := backend.Device().Render(1); buf == nil {
		t.Fatalf("device should be running")
	}
	stopped := make(chan struct{}, 1)
	seq.OnStop(func() {
		select {
		case stopped <- struct{}{}:
		default:
		}
	})
	backend.Device().Interrupt()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("sequencer did not stop after the output was suspended")
	}
	if seq.Playing() || seq.CurrentStep() != 0 {
		t.Fatalf("after auto-stop: playing %v, step %d", seq.Playing(), seq.CurrentStep())
	}
}

func TestSynthThroughEngine(t *testing.T) {
	e := newEngine(t, &output.HeadlessBackend{})
	if err := e.Init(context.Background(), nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	e.SetOctave(7)
	e.SetWaveform(beatpad.Square)
	if e.Octave() != beatpad.MaxOctave || e.SynthSettings().Waveform != beatpad.Square {
		t.Fatalf("settings not passed to the synth: %+v", e.SynthSettings())
	}
	e.NoteOn(context.Background(), "C4")
	e.NoteOn(context.Background(), "C4")
	if got := e.ActiveVoices(); !reflect.DeepEqual(got, []string{"C4"}) {
		t.Fatalf("got voices %v, expected [C4]", got)
	}
	e.NoteOff("C4")
	if len(e.ActiveVoices()) != 0 {
		t.Fatalf("NoteOff should release C4")
	}
	e.PlayTestTone(context.Background())
	e.SetVolume(2)
	if e.Volume() != 1 {
		t.Fatalf("volume should be clamped to 1, got %v", e.Volume())
	}
}

func TestDispose(t *testing.T) {
	e := newEngine(t, &output.HeadlessBackend{Initial: output.Running})
	if err := e.Init(context.Background(), sounds); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	e.Dispose()
	if e.State() != engine.Uninitialized || e.OutputState() != output.Closed {
		t.Fatalf("after Dispose: engine %s, output %s", e.State(), e.OutputState())
	}
	if len(e.LoadedSounds()) != 0 {
		t.Fatalf("Dispose should forget the sounds")
	}
	if e.CurrentTime() != 0 {
		t.Fatalf("closed output should report time 0")
	}
	if err := e.Init(context.Background(), sounds); err != nil || e.State() != engine.Ready {
		t.Fatalf("engine should initialize again after Dispose: %v", err)
	}
}

func TestLevelFollowsPlayback(t *testing.T) {
	backend := &output.HeadlessBackend{Initial: output.Running}
	e := newEngine(t, backend)
	silent := graph.Level{graph.MeterMinDB, graph.MeterMinDB}
	if e.Level() != silent {
		t.Fatalf("level before Init should be the minimum, got %v", e.Level())
	}
	if err := e.Init(context.Background(), sounds); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	e.Play(context.Background(), "kick")
	backend.Device().Render(441)
	if l := e.Level(); l[0] <= graph.MeterMinDB || l[1] <= graph.MeterMinDB {
		t.Fatalf("level should rise while the kick plays, got %v", l)
	}
}

func TestRecordThroughEngine(t *testing.T) {
	e := newEngine(t, &output.HeadlessBackend{Initial: output.Running})
	if err := e.Init(context.Background(), sounds); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, ok := e.Record("kick"); ok {
		t.Fatalf("Record should fail while the sequencer is stopped")
	}
	e.Sequencer().SetPattern(beatpad.DefaultPattern())
	if !e.Sequencer().Start(context.Background()) {
		t.Fatalf("sequencer did not start")
	}
	defer e.Sequencer().Stop()
	step, ok := e.Record(beatpad.SynthSoundID("E4"))
	if !ok || step != 0 {
		t.Fatalf("Record at the start = %d, %v; expected step 0", step, ok)
	}
	p, _ := e.Sequencer().Pattern()
	i := p.TrackIndex("synth-E4")
	if i < 0 || p.Tracks[i].SoundType != beatpad.SoundTypeSynth || !p.Tracks[i].Active(0) {
		t.Fatalf("recorded synth note missing: %+v", p.Tracks)
	}
}
