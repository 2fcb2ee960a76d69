package beatpad

import "strings"

// SoundType tells the sequencer which player a track triggers.
type SoundType string

const (
	SoundTypeDrum  SoundType = "drum"
	SoundTypeSynth SoundType = "synth"
)

// synthSoundPrefix marks sound ids that name synth notes, e.g. "synth-C4".
const synthSoundPrefix = "synth-"

func (t SoundType) Valid() bool {
	return t == SoundTypeDrum || t == SoundTypeSynth
}

// IsSynthSound reports whether a sound id refers to a synth note.
func IsSynthSound(soundID string) bool {
	return strings.HasPrefix(soundID, synthSoundPrefix)
}

// SynthSoundID returns the sound id of a synth note, as used in pattern
// tracks.
func SynthSoundID(noteID string) string {
	return synthSoundPrefix + strings.TrimPrefix(noteID, synthSoundPrefix)
}

// SoundTypeOf guesses the sound type of a sound id.
func SoundTypeOf(soundID string) SoundType {
	if IsSynthSound(soundID) {
		return SoundTypeSynth
	}
	return SoundTypeDrum
}
