package beatpad

import (
	"fmt"
	"math"
	"strings"
)

// Note is a named pitch with its base frequency at octave shift 0.
type Note struct {
	ID        string
	Frequency float64
	BlackKey  bool
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

const (
	lowestNoteKey  = 48 // C3
	highestNoteKey = 83 // B5
)

// Notes is the note table C3..B5 in equal temperament, A4 = 440 Hz.
var Notes = func() []Note {
	ret := make([]Note, 0, highestNoteKey-lowestNoteKey+1)
	for key := lowestNoteKey; key <= highestNoteKey; key++ {
		ret = append(ret, noteForKey(key))
	}
	return ret
}()

// SynthNotes are the notes playable on the keyboard, C4..C5.
var SynthNotes = Notes[12:25]

var notesByID = func() map[string]Note {
	ret := make(map[string]Note, len(Notes))
	for _, n := range Notes {
		ret[n.ID] = n
	}
	return ret
}()

func noteForKey(key int) Note {
	name := noteNames[key%12]
	return Note{
		ID:        fmt.Sprintf("%s%d", name, key/12-1),
		Frequency: 440 * math.Pow(2, float64(key-69)/12),
		BlackKey:  strings.HasSuffix(name, "#"),
	}
}

// LookupNote finds a note by id. Both plain ids ("C4") and synth sound ids
// ("synth-C4") are accepted.
func LookupNote(id string) (Note, bool) {
	n, ok := notesByID[strings.TrimPrefix(id, synthSoundPrefix)]
	return n, ok
}

// NoteForMIDI returns the note id for a MIDI key number, if the key is in the
// note table.
func NoteForMIDI(key byte) (string, bool) {
	if int(key) < lowestNoteKey || int(key) > highestNoteKey {
		return "", false
	}
	return Notes[int(key)-lowestNoteKey].ID, true
}
