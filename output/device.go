// Package output owns the audio output: it opens the platform device, tracks
// its closed/suspended/running state and resumes it when playback needs it.
package output

import (
	"context"
	"errors"

	"github.com/beatpad/beatpad/graph"
)

// State is the lifecycle state of the output.
type State string

const (
	Closed    State = "closed"
	Suspended State = "suspended"
	Running   State = "running"
)

// ErrClosed is returned by devices used after Close.
var ErrClosed = errors.New("output device is closed")

type (
	// Backend opens a platform audio device that renders g. The device reports
	// every state change it makes on its own (e.g. the OS taking the audio
	// away) through notify. Backends must not call notify from within Open.
	Backend interface {
		Open(g *graph.Context, notify func(State)) (Device, error)
	}

	// Device is an open audio output.
	Device interface {
		State() State
		Resume(ctx context.Context) error
		Suspend() error
		Close() error
	}

	BackendFunc func(g *graph.Context, notify func(State)) (Device, error)
)

func (f BackendFunc) Open(g *graph.Context, notify func(State)) (Device, error) {
	return f(g, notify)
}
