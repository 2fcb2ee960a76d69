package beatpad_test

import (
	"errors"
	"io"
	"math"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/beatpad/beatpad"
)

func checkPadded(t *testing.T, p beatpad.Pattern) {
	t.Helper()
	for i, track := range p.Tracks {
		if len(track.Steps) != beatpad.MaxSteps {
			t.Fatalf("track %d (%v) has %d steps, expected %d", i, track.SoundID, len(track.Steps), beatpad.MaxSteps)
		}
	}
}

func TestPatternStepsStayPadded(t *testing.T) {
	p := beatpad.DefaultPattern()
	checkPadded(t, p)
	p.ToggleStep(0, 3)
	p.ToggleStep(0, 31)
	p.ToggleStep(0, 32)
	p.ToggleStep(99, 0)
	checkPadded(t, p)
	p.ToggleSoundOnStep(beatpad.SynthSoundID("E4"), 7, beatpad.SoundTypeSynth)
	checkPadded(t, p)
	p.Tracks = append(p.Tracks, beatpad.Track{SoundID: "short", SoundType: beatpad.SoundTypeDrum, Steps: make([]beatpad.Step, 4)})
	p.Normalize()
	checkPadded(t, p)
	p.Clear()
	checkPadded(t, p)
}

func TestToggleSoundOnStep(t *testing.T) {
	p := beatpad.DefaultPattern()
	p.ToggleSoundOnStep("snare", 4, beatpad.SoundTypeDrum)
	if !p.Tracks[p.TrackIndex("snare")].Active(4) {
		t.Fatalf("snare step 4 should be on")
	}
	p.ToggleSoundOnStep("snare", 4, beatpad.SoundTypeDrum)
	if p.Tracks[p.TrackIndex("snare")].Active(4) {
		t.Fatalf("snare step 4 should be off again")
	}
	n := len(p.Tracks)
	p.ToggleSoundOnStep("synth-G4", 2, beatpad.SoundTypeSynth)
	if len(p.Tracks) != n+1 {
		t.Fatalf("a track should be created for a new sound")
	}
	track := p.Tracks[n]
	if track.SoundType != beatpad.SoundTypeSynth || !track.Active(2) || track.Active(3) {
		t.Fatalf("unexpected new track %+v", track)
	}
}

func TestPatternCopyDoesNotAlias(t *testing.T) {
	vol := 0.5
	p := beatpad.DefaultPattern()
	p.Tracks[0].Volume = &vol
	c := p.Copy()
	c.ToggleStep(0, 0)
	*c.Tracks[0].Volume = 0.9
	if p.Tracks[0].Active(0) || *p.Tracks[0].Volume != 0.5 {
		t.Fatalf("modifying a copy changed the original")
	}
}

func TestTrackGain(t *testing.T) {
	cases := []struct {
		volume *float64
		want   float64
	}{
		{nil, 1}, {ptr(0.3), 0.3}, {ptr(-1), 0}, {ptr(4), 1},
		{ptr(math.NaN()), 0}, {ptr(math.Inf(1)), 1},
	}
	for _, c := range cases {
		track := beatpad.Track{Volume: c.volume}
		if got := track.Gain(); got != c.want {
			t.Fatalf("Gain() = %v, expected %v", got, c.want)
		}
	}
}

func ptr(v float64) *float64 { return &v }

func TestClampMapsNaNToLow(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{math.NaN(), 60}, {math.Inf(1), 200}, {math.Inf(-1), 60}, {120, 120},
	}
	for _, c := range cases {
		if got := beatpad.ClampBPM(c.in); got != c.want {
			t.Fatalf("ClampBPM(%v) = %v, expected %v", c.in, got, c.want)
		}
	}
	p := beatpad.DefaultPattern()
	p.BPM = math.NaN()
	p.Normalize()
	if p.BPM != beatpad.MinBPM {
		t.Fatalf("Normalize kept tempo %v", p.BPM)
	}
}

func TestDecodePattern(t *testing.T) {
	json := `{"id":"p1","name":"Mine","bpm":250,"tracks":[
		{"soundId":"kick","soundType":"drum","steps":[{"active":true},{"active":false}],"volume":0.5}]}`
	p, err := beatpad.DecodePattern([]byte(json))
	if err != nil {
		t.Fatalf("DecodePattern failed: %v", err)
	}
	if p.ID != "p1" || p.Name != "Mine" || p.BPM != 200 {
		t.Fatalf("unexpected pattern header %v %v %v", p.ID, p.Name, p.BPM)
	}
	checkPadded(t, p)
	if !p.Tracks[0].Active(0) || p.Tracks[0].Active(1) || p.Tracks[0].Gain() != 0.5 {
		t.Fatalf("unexpected track %+v", p.Tracks[0])
	}
	yml := "id: p2\nname: Yaml\nbpm: 90\ntracks:\n  - soundId: synth-C4\n    soundType: synth\n    steps: [{active: true}]\n"
	p, err = beatpad.DecodePattern([]byte(yml))
	if err != nil {
		t.Fatalf("DecodePattern failed for yaml: %v", err)
	}
	if p.BPM != 90 || p.Tracks[0].SoundType != beatpad.SoundTypeSynth || p.Tracks[0].Volume != nil {
		t.Fatalf("unexpected yaml pattern %+v", p)
	}
}

func TestDecodePatternRejectsMalformed(t *testing.T) {
	cases := []string{
		`[]`,
		`{"name":"x","bpm":120,"tracks":[]}`,
		`{"id":"x","name":"x","bpm":"fast","tracks":[]}`,
		`{"id":"x","name":"x","bpm":120}`,
		`{"id":"x","name":"x","bpm":120,"tracks":[{"soundId":"kick","soundType":"bass","steps":[]}]}`,
		`{"id":"x","name":"x","bpm":120,"tracks":[{"soundId":"kick","soundType":"drum","steps":[true]}]}`,
		`{"id":"x","name":"x","bpm":120,"tracks":[{"soundId":"kick","soundType":"drum","steps":[{"active":1}]}]}`,
		`{"id":"x","name":"x","bpm":120,"tracks":[{"soundId":"kick","soundType":"drum","steps":[],"volume":"loud"}]}`,
		`: not yaml: [`,
		`{id: x, name: x, bpm: .nan, tracks: []}`,
		`{id: x, name: x, bpm: .inf, tracks: []}`,
		`{id: x, name: x, bpm: -.inf, tracks: []}`,
		`{id: x, name: x, bpm: 120, tracks: [{soundId: kick, soundType: drum, steps: [], volume: .nan}]}`,
	}
	for _, c := range cases {
		if _, err := beatpad.DecodePattern([]byte(c)); !errors.Is(err, beatpad.ErrInvalidPattern) {
			t.Fatalf("DecodePattern(%s): expected ErrInvalidPattern, got %v", c, err)
		}
	}
}

func TestLoadPatternOrDefault(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	def := beatpad.DefaultPattern()
	got := beatpad.LoadPatternOrDefault([]byte(`{"id":1}`), def, l)
	if !reflect.DeepEqual(got, def) {
		t.Fatalf("invalid data should give the default pattern")
	}
}

func TestEncodePattern(t *testing.T) {
	p, ok := beatpad.Preset("basic-rock")
	if !ok {
		t.Fatalf("basic-rock preset missing")
	}
	for _, format := range []string{"json", "yaml", "pattern.json", "pattern.yml"} {
		data, err := beatpad.EncodePattern(p, format)
		if err != nil {
			t.Fatalf("EncodePattern(%v) failed: %v", format, err)
		}
		back, err := beatpad.DecodePattern(data)
		if err != nil {
			t.Fatalf("DecodePattern of %v output failed: %v", format, err)
		}
		if !reflect.DeepEqual(back, p) {
			t.Fatalf("%v: pattern changed in encoding", format)
		}
	}
}
