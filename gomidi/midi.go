// Package gomidi feeds a MIDI keyboard into the synth using rtmidi.
package gomidi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/beatpad/beatpad"
)

type (
	// NoteHandler receives the notes played on the keyboard, as note ids.
	NoteHandler interface {
		NoteOn(noteID string)
		NoteOff(noteID string)
	}

	RTMIDIContext struct {
		driver  *rtmididrv.Driver
		handler NoteHandler
		log     logrus.FieldLogger

		mu        sync.Mutex
		currentIn drivers.In
		stop      func()
	}
)

// NewContext opens the rtmidi driver. If that fails the context has no
// inputs but can still be used.
func NewContext(handler NoteHandler, log logrus.FieldLogger) *RTMIDIContext {
	m := &RTMIDIContext{handler: handler, log: log.WithField("component", "midi")}
	var err error
	if m.driver, err = rtmididrv.New(); err != nil {
		m.log.WithError(err).Warn("no MIDI driver available")
		m.driver = nil
	}
	return m
}

// InputNames lists the MIDI inputs.
func (m *RTMIDIContext) InputNames() []string {
	if m.driver == nil {
		return nil
	}
	ins, err := m.driver.Ins()
	if err != nil {
		return nil
	}
	ret := make([]string, len(ins))
	for i, in := range ins {
		ret[i] = in.String()
	}
	return ret
}

// TryToOpenBy opens the first input whose name starts with namePrefix, or
// simply the first input if takeFirst is set.
func (m *RTMIDIContext) TryToOpenBy(namePrefix string, takeFirst bool) error {
	if namePrefix == "" && !takeFirst {
		return nil
	}
	if m.driver == nil {
		return errors.New("no MIDI driver available")
	}
	ins, err := m.driver.Ins()
	if err != nil {
		return fmt.Errorf("cannot list MIDI inputs: %w", err)
	}
	for _, in := range ins {
		if takeFirst || strings.HasPrefix(in.String(), namePrefix) {
			return m.open(in)
		}
	}
	if takeFirst {
		return errors.New("could not find any MIDI input")
	}
	return fmt.Errorf("could not find any MIDI input starting with %q", namePrefix)
}

func (m *RTMIDIContext) open(in drivers.In) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCurrent()
	if err := in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(in, m.HandleMessage)
	if err != nil {
		in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	m.currentIn, m.stop = in, stop
	m.log.WithField("input", in.String()).Info("MIDI input opened")
	return nil
}

func (m *RTMIDIContext) closeCurrent() {
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
	if m.currentIn != nil && m.currentIn.IsOpen() {
		m.currentIn.Close()
	}
	m.currentIn = nil
}

// HandleMessage turns note on and note off messages into synth notes.
// Keys outside the note table are ignored.
func (m *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	noteID, on, ok := Translate(msg)
	if !ok {
		return
	}
	if on {
		m.handler.NoteOn(noteID)
	} else {
		m.handler.NoteOff(noteID)
	}
}

// Translate maps a MIDI message to a note id and whether the note starts or
// ends. A note on with velocity 0 ends the note.
func Translate(msg midi.Message) (noteID string, on bool, ok bool) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		on = true
	case msg.GetNoteEnd(&channel, &key):
	default:
		return "", false, false
	}
	noteID, ok = beatpad.NoteForMIDI(key)
	return noteID, on, ok
}

func (m *RTMIDIContext) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCurrent()
	if m.driver != nil {
		m.driver.Close()
	}
}
