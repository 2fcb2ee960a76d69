package cmd

type (
	// MIDIInput is a source of keyboard notes.
	MIDIInput interface {
		InputNames() []string
		TryToOpenBy(namePrefix string, takeFirst bool) error
		Close()
	}

	// NoteHandler receives the notes played on a MIDI input, as note ids.
	NoteHandler interface {
		NoteOn(noteID string)
		NoteOff(noteID string)
	}

	NullMIDIInput struct{}
)

func (NullMIDIInput) InputNames() []string { return nil }
func (NullMIDIInput) Close()               {}

func (NullMIDIInput) TryToOpenBy(namePrefix string, takeFirst bool) error {
	return nil
}
