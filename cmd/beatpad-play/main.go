package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/beatpad/beatpad"
	"github.com/beatpad/beatpad/cmd"
	"github.com/beatpad/beatpad/engine"
	"github.com/beatpad/beatpad/graph"
	"github.com/beatpad/beatpad/output"
	"github.com/beatpad/beatpad/sampler"
	"github.com/beatpad/beatpad/sequencer"
	"github.com/beatpad/beatpad/version"
)

var (
	root        = flag.String("root", ".", "Directory the sound locators are relative to.")
	patternFile = flag.String("pattern", "", "Pattern file (.yml or .json) to play. Defaults to the recovery file, then to an empty pattern.")
	presetID    = flag.String("preset", "", "Play a built-in preset instead of a pattern file.")
	bpm         = flag.Float64("bpm", 0, "Override the tempo of the pattern.")
	steps       = flag.Int("steps", 16, "Number of steps in the loop: 4, 8, 16 or 32.")
	mute        = flag.String("mute", "", "Comma separated sound ids to mute.")
	backendName = flag.String("backend", "oto", "Audio backend: "+strings.Join(cmd.BackendNames(), ", ")+".")
	sampleRate  = flag.Int("rate", graph.DefaultSampleRate, "Output sample rate.")
	midiInput   = flag.String("midi-input", "", "Connect MIDI input to matching device name prefix.")
	midiFirst   = flag.Bool("midi-first", false, "Connect the first MIDI input found.")
	testTone    = flag.Bool("test-tone", false, "Play a test tone before starting.")
	record      = flag.Bool("record", false, "Record MIDI notes into the pattern while it plays.")
	duration    = flag.Duration("duration", 0, "Stop after this long. By default plays until interrupted.")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn or error.")
	listPresets = flag.Bool("list-presets", false, "List the built-in presets and exit.")
	versionFlag = flag.Bool("v", false, "Print version.")
)

// keyboard plays MIDI notes on the engine, and records them into the
// pattern when record is set.
type keyboard struct {
	ctx    context.Context
	e      *engine.Engine
	record bool
}

func (k keyboard) NoteOn(noteID string) {
	k.e.NoteOn(k.ctx, noteID)
	if k.record {
		k.e.Sequencer().Record(beatpad.SynthSoundID(noteID), beatpad.SoundTypeSynth)
	}
}

func (k keyboard) NoteOff(noteID string) { k.e.NoteOff(noteID) }

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.String())
		os.Exit(0)
	}
	if *listPresets {
		for _, p := range beatpad.Presets() {
			fmt.Printf("%-12s %s (%v bpm)\n", p.ID, p.Name, p.BPM)
		}
		os.Exit(0)
	}
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(2)
	}
	log := logrus.StandardLogger()
	log.SetLevel(level)
	newBackend, ok := cmd.Backends[*backendName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown backend %q, expected one of %v\n", *backendName, cmd.BackendNames())
		os.Exit(2)
	}
	if err := run(newBackend(), log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(backend output.Backend, log *logrus.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	recoveryFile := ""
	if configDir, err := os.UserConfigDir(); err == nil {
		recoveryFile = filepath.Join(configDir, "Beatpad", "beatpad-play-recovery.yml")
	}
	pattern, err := loadPattern(recoveryFile, log)
	if err != nil {
		return err
	}
	e := engine.New(backend, engine.Config{
		Logger:  log,
		Output:  []output.Option{output.WithSampleRate(*sampleRate)},
		Sampler: []sampler.Option{sampler.WithFetcher(sampler.LocatorFetcher{FS: os.DirFS(*root)})},
	})
	defer e.Dispose()
	go cmd.PumpHeadless(ctx, backend, *sampleRate, 10*time.Millisecond)
	if err := e.Init(ctx, beatpad.DrumSounds); err != nil {
		return err
	}
	midi := cmd.NewMIDIInput(keyboard{ctx: ctx, e: e, record: *record}, log)
	defer midi.Close()
	if err := midi.TryToOpenBy(*midiInput, *midiFirst); err != nil {
		log.WithError(err).Warn("MIDI input not connected")
	}
	if *testTone {
		e.PlayTestTone(ctx)
	}
	seq := e.Sequencer()
	seq.SetPattern(pattern)
	if *bpm > 0 {
		seq.SetBpm(*bpm)
	}
	seq.SetStepCount(*steps)
	if *mute != "" {
		seq.SetMutedTracks(strings.Split(*mute, ","))
	}
	seq.OnStep(func(step int) { log.WithField("step", step).Debug("step") })
	seq.OnPatternChange(func(p beatpad.Pattern) {
		log.WithField("tracks", len(p.Tracks)).Info("note recorded")
	})
	stopped := make(chan struct{}, 1)
	seq.OnStop(func() {
		select {
		case stopped <- struct{}{}:
		default:
		}
	})
	if !seq.Start(ctx) {
		return fmt.Errorf("cannot start the sequencer, output is %s", e.OutputState())
	}
	log.Infof("playing %q at %v bpm, press Ctrl+C to stop", pattern.Name, seq.Bpm())
	select {
	case <-ctx.Done():
		seq.Stop()
	case <-stopped:
		log.Warn("playback stopped by the output")
	}
	return saveRecovery(recoveryFile, seq, log)
}

func loadPattern(recoveryFile string, log logrus.FieldLogger) (beatpad.Pattern, error) {
	if *presetID != "" {
		p, ok := beatpad.Preset(*presetID)
		if !ok {
			return beatpad.Pattern{}, fmt.Errorf("no preset %q, see -list-presets", *presetID)
		}
		return p, nil
	}
	if *patternFile != "" {
		data, err := os.ReadFile(*patternFile)
		if err != nil {
			return beatpad.Pattern{}, fmt.Errorf("could not read pattern file %v: %w", *patternFile, err)
		}
		p, err := beatpad.DecodePattern(data)
		if err != nil {
			return beatpad.Pattern{}, fmt.Errorf("could not load pattern file %v: %w", *patternFile, err)
		}
		return p, nil
	}
	if recoveryFile != "" {
		if data, err := os.ReadFile(recoveryFile); err == nil {
			return beatpad.LoadPatternOrDefault(data, beatpad.DefaultPattern(), log), nil
		}
	}
	return beatpad.DefaultPattern(), nil
}

func saveRecovery(recoveryFile string, seq *sequencer.Scheduler, log logrus.FieldLogger) error {
	p, ok := seq.Pattern()
	if !ok || recoveryFile == "" {
		return nil
	}
	data, err := beatpad.EncodePattern(p, recoveryFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(recoveryFile), os.ModePerm); err != nil {
		return fmt.Errorf("could not create recovery directory: %w", err)
	}
	if err := os.WriteFile(recoveryFile, data, 0644); err != nil {
		return fmt.Errorf("could not write recovery file %v: %w", recoveryFile, err)
	}
	log.WithField("file", recoveryFile).Debug("pattern saved")
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Beatpad command line utility for playing step patterns.\nUsage: %s [flags]\n", os.Args[0])
	flag.PrintDefaults()
}
