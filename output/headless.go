package output

import (
	"context"
	"sync"

	"github.com/beatpad/beatpad/graph"
)

// HeadlessBackend opens devices that render into nothing: the clock only
// advances when Render is called. It is used in tests and as a silent
// fallback when no sound card is available.
type HeadlessBackend struct {
	// Initial is the state a new device starts in; Suspended if empty.
	Initial State
	// ResumeHook, if set, runs inside every Resume before the device starts
	// running. Returning an error leaves the device suspended.
	ResumeHook func(ctx context.Context) error
	// OpenErr, if set, makes Open fail.
	OpenErr error

	mu     sync.Mutex
	device *HeadlessDevice
}

// HeadlessDevice is the device returned by HeadlessBackend.
type HeadlessDevice struct {
	g      *graph.Context
	notify func(State)
	hook   func(ctx context.Context) error

	mu      sync.Mutex
	state   State
	resumes int
	buf     []float32
}

func (b *HeadlessBackend) Open(g *graph.Context, notify func(State)) (Device, error) {
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	initial := b.Initial
	if initial == "" {
		initial = Suspended
	}
	d := &HeadlessDevice{g: g, notify: notify, hook: b.ResumeHook, state: initial}
	b.mu.Lock()
	b.device = d
	b.mu.Unlock()
	return d, nil
}

// Device returns the most recently opened device, nil if none.
func (b *HeadlessBackend) Device() *HeadlessDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device
}

func (d *HeadlessDevice) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *HeadlessDevice) Resume(ctx context.Context) error {
	d.mu.Lock()
	if d.state == Closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.resumes++
	d.mu.Unlock()
	if d.hook != nil {
		if err := d.hook(ctx); err != nil {
			return err
		}
	}
	return d.set(Running)
}

func (d *HeadlessDevice) Suspend() error {
	return d.set(Suspended)
}

func (d *HeadlessDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Closed
	return nil
}

// Interrupt suspends the device as if the platform took the audio away, and
// reports the change through the notify callback.
func (d *HeadlessDevice) Interrupt() {
	if d.set(Suspended) == nil {
		d.notify(Suspended)
	}
}

// Resumes is the number of times Resume was called.
func (d *HeadlessDevice) Resumes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resumes
}

// Render renders the given number of frames if the device is running and
// returns the rendered interleaved stereo samples. The returned slice is
// reused by the next call.
func (d *HeadlessDevice) Render(frames int) []float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != Running {
		return nil
	}
	if cap(d.buf) < 2*frames {
		d.buf = make([]float32, 2*frames)
	}
	d.buf = d.buf[:2*frames]
	d.g.Render(d.buf)
	return d.buf
}

func (d *HeadlessDevice) set(s State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Closed {
		return ErrClosed
	}
	d.state = s
	return nil
}
