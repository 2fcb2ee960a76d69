//go:build !cgo

package cmd

import "github.com/sirupsen/logrus"

func NewMIDIInput(handler NoteHandler, log logrus.FieldLogger) MIDIInput {
	// with no cgo, we cannot use MIDI, so return a null input
	return NullMIDIInput{}
}
