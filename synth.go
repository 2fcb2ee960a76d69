package beatpad

// Waveform is the oscillator shape of a synth voice.
type Waveform string

const (
	Sine     Waveform = "sine"
	Square   Waveform = "square"
	Sawtooth Waveform = "sawtooth"
	Triangle Waveform = "triangle"
)

// Ranges of the synth parameters. Setters clamp into these.
const (
	MinOctave       = -2
	MaxOctave       = 2
	MinDetune       = -100.0 // cents
	MaxDetune       = 100.0
	MinAttack       = 0.01 // seconds
	MaxAttack       = 1.0
	MinRelease      = 0.05 // seconds
	MaxRelease      = 2.0
	MinFilterCutoff = 200.0 // Hz
	MaxFilterCutoff = 8000.0
)

// SynthSettings are the parameters new synth voices are built with.
type SynthSettings struct {
	Waveform     Waveform `yaml:"waveform" json:"waveform"`
	Octave       int      `yaml:"octave" json:"octave"`
	Detune       float64  `yaml:"detune" json:"detune"`
	Attack       float64  `yaml:"attack" json:"attack"`
	Release      float64  `yaml:"release" json:"release"`
	FilterCutoff float64  `yaml:"filterCutoff" json:"filterCutoff"`
}

var DefaultSynthSettings = SynthSettings{
	Waveform:     Sawtooth,
	Octave:       0,
	Detune:       0,
	Attack:       0.01,
	Release:      0.3,
	FilterCutoff: 8000,
}

func (w Waveform) Valid() bool {
	switch w {
	case Sine, Square, Sawtooth, Triangle:
		return true
	}
	return false
}

// Clamp returns a copy of s with every parameter in range. An unknown
// waveform falls back to the default one.
func (s SynthSettings) Clamp() SynthSettings {
	if !s.Waveform.Valid() {
		s.Waveform = DefaultSynthSettings.Waveform
	}
	s.Octave = ClampInt(s.Octave, MinOctave, MaxOctave)
	s.Detune = Clamp(s.Detune, MinDetune, MaxDetune)
	s.Attack = Clamp(s.Attack, MinAttack, MaxAttack)
	s.Release = Clamp(s.Release, MinRelease, MaxRelease)
	s.FilterCutoff = Clamp(s.FilterCutoff, MinFilterCutoff, MaxFilterCutoff)
	return s
}
