//go:build cgo

package cmd

import (
	"github.com/sirupsen/logrus"

	"github.com/beatpad/beatpad/gomidi"
)

func NewMIDIInput(handler NoteHandler, log logrus.FieldLogger) MIDIInput {
	return gomidi.NewContext(handler, log)
}
