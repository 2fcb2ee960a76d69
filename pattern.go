package beatpad

import "slices"

const (
	// MaxSteps is the number of steps stored in every track. It exceeds any
	// step count the sequencer plays, so shrinking and growing the step count
	// never loses step data.
	MaxSteps = 32

	MinBPM     = 60
	MaxBPM     = 200
	DefaultBPM = 120
)

// StepCounts lists the step counts the sequencer can play.
var StepCounts = []int{4, 8, 16, 32}

type (
	// Pattern is a named, tempo-tagged grid of tracks. Each track binds one
	// sound to MaxSteps on/off steps.
	Pattern struct {
		ID     string  `yaml:"id" json:"id"`
		Name   string  `yaml:"name" json:"name"`
		BPM    float64 `yaml:"bpm" json:"bpm"`
		Tracks []Track `yaml:"tracks" json:"tracks"`
	}

	// Track is one row of the pattern. Volume is optional; a nil Volume plays
	// at full volume.
	Track struct {
		SoundID   string    `yaml:"soundId" json:"soundId"`
		SoundType SoundType `yaml:"soundType" json:"soundType"`
		Steps     []Step    `yaml:"steps,flow" json:"steps"`
		Volume    *float64  `yaml:"volume,omitempty" json:"volume,omitempty"`
	}

	Step struct {
		Active bool `yaml:"active" json:"active"`
	}
)

// ValidStepCount reports whether n is one of StepCounts.
func ValidStepCount(n int) bool {
	return slices.Contains(StepCounts, n)
}

// ClampBPM limits bpm to [MinBPM, MaxBPM].
func ClampBPM(bpm float64) float64 {
	return Clamp(bpm, MinBPM, MaxBPM)
}

// NewTrack returns a track with MaxSteps inactive steps.
func NewTrack(soundID string, soundType SoundType) Track {
	return Track{SoundID: soundID, SoundType: soundType, Steps: make([]Step, MaxSteps)}
}

// DefaultPattern returns an empty pattern with one drum track per DrumSounds
// entry.
func DefaultPattern() Pattern {
	p := Pattern{ID: "default", Name: "Pattern 1", BPM: DefaultBPM}
	for _, s := range DrumSounds {
		p.Tracks = append(p.Tracks, NewTrack(s.ID, SoundTypeDrum))
	}
	return p
}

func (t *Track) Copy() Track {
	ret := Track{SoundID: t.SoundID, SoundType: t.SoundType, Steps: slices.Clone(t.Steps)}
	if t.Volume != nil {
		v := *t.Volume
		ret.Volume = &v
	}
	return ret
}

// Active reports whether step i is on. Steps outside the track are off.
func (t *Track) Active(i int) bool {
	return i >= 0 && i < len(t.Steps) && t.Steps[i].Active
}

// Gain returns the track volume clamped to [0,1], or 1 when unset.
func (t *Track) Gain() float64 {
	if t.Volume == nil {
		return 1
	}
	return Clamp(*t.Volume, 0, 1)
}

func (t *Track) normalize() {
	switch {
	case len(t.Steps) < MaxSteps:
		t.Steps = append(t.Steps, make([]Step, MaxSteps-len(t.Steps))...)
	case len(t.Steps) > MaxSteps:
		t.Steps = t.Steps[:MaxSteps]
	}
}

func (p *Pattern) Copy() Pattern {
	tracks := make([]Track, len(p.Tracks))
	for i := range p.Tracks {
		tracks[i] = p.Tracks[i].Copy()
	}
	return Pattern{ID: p.ID, Name: p.Name, BPM: p.BPM, Tracks: tracks}
}

// Normalize pads or cuts every track to MaxSteps and clamps the tempo.
func (p *Pattern) Normalize() {
	p.BPM = ClampBPM(p.BPM)
	for i := range p.Tracks {
		p.Tracks[i].normalize()
	}
}

// TrackIndex returns the index of the first track playing soundID, or -1.
func (p *Pattern) TrackIndex(soundID string) int {
	return slices.IndexFunc(p.Tracks, func(t Track) bool { return t.SoundID == soundID })
}

// ToggleStep flips a step of a track. Out of range indices are ignored.
func (p *Pattern) ToggleStep(track, step int) {
	if track < 0 || track >= len(p.Tracks) || step < 0 || step >= MaxSteps {
		return
	}
	t := &p.Tracks[track]
	t.normalize()
	t.Steps[step].Active = !t.Steps[step].Active
}

// ToggleSoundOnStep flips the step of the track playing soundID, creating a
// track with only that step active when the sound has no track yet.
func (p *Pattern) ToggleSoundOnStep(soundID string, step int, soundType SoundType) {
	if step < 0 || step >= MaxSteps {
		return
	}
	if i := p.TrackIndex(soundID); i >= 0 {
		p.ToggleStep(i, step)
		return
	}
	t := NewTrack(soundID, soundType)
	t.Steps[step].Active = true
	p.Tracks = append(p.Tracks, t)
}

// Clear turns every step off and keeps the tracks.
func (p *Pattern) Clear() {
	for i := range p.Tracks {
		p.Tracks[i].Steps = make([]Step, MaxSteps)
	}
}
