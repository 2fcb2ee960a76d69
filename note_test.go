package beatpad_test

import (
	"math"
	"testing"

	"github.com/beatpad/beatpad"
)

func TestNotes(t *testing.T) {
	cases := []struct {
		id    string
		freq  float64
		black bool
	}{
		{"A4", 440, false},
		{"C4", 261.6256, false},
		{"synth-C#4", 277.1826, true},
		{"C3", 130.8128, false},
		{"B5", 987.7666, false},
	}
	for _, c := range cases {
		n, ok := beatpad.LookupNote(c.id)
		if !ok {
			t.Fatalf("note %v not found", c.id)
		}
		if math.Abs(n.Frequency-c.freq) > 1e-3 || n.BlackKey != c.black {
			t.Fatalf("%v: got %v Hz black %v, expected %v Hz black %v", c.id, n.Frequency, n.BlackKey, c.freq, c.black)
		}
	}
	if _, ok := beatpad.LookupNote("H2"); ok {
		t.Fatalf("H2 should not exist")
	}
	if len(beatpad.SynthNotes) != 13 || beatpad.SynthNotes[0].ID != "C4" || beatpad.SynthNotes[12].ID != "C5" {
		t.Fatalf("synth keyboard should span C4..C5")
	}
	if id, ok := beatpad.NoteForMIDI(60); !ok || id != "C4" {
		t.Fatalf("MIDI 60 should be C4, got %q", id)
	}
	if _, ok := beatpad.NoteForMIDI(100); ok {
		t.Fatalf("MIDI 100 is outside the note table")
	}
}

func TestSynthSettingsClamp(t *testing.T) {
	s := beatpad.SynthSettings{Waveform: "noise", Octave: -3, Detune: 101, Attack: 2, Release: 0, FilterCutoff: 9000}.Clamp()
	expected := beatpad.SynthSettings{Waveform: beatpad.Sawtooth, Octave: -2, Detune: 100, Attack: 1, Release: 0.05, FilterCutoff: 8000}
	if s != expected {
		t.Fatalf("got %+v, expected %+v", s, expected)
	}
}

func TestSynthSettingsClampNaN(t *testing.T) {
	nan := math.NaN()
	s := beatpad.SynthSettings{Waveform: beatpad.Sine, Detune: nan, Attack: nan, Release: nan, FilterCutoff: nan}.Clamp()
	if s.Detune != beatpad.MinDetune || s.Attack != beatpad.MinAttack || s.Release != beatpad.MinRelease || s.FilterCutoff != beatpad.MinFilterCutoff {
		t.Fatalf("NaN settings should clamp to their minimum, got %+v", s)
	}
}
