// Package oto plays the engine graph through the sound card using oto.
package oto

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/beatpad/beatpad/graph"
	"github.com/beatpad/beatpad/output"
)

const channelCount = 2

// DefaultBufferSize is the device buffer used when Backend.BufferSize is 0.
const DefaultBufferSize = 40 * time.Millisecond

// Backend opens the sound card as an output.Backend. oto allows only one
// context per process, so every device opened by any Backend shares it and
// must use the same sample rate.
type Backend struct {
	BufferSize time.Duration
}

var (
	contextOnce sync.Once
	otoContext  *oto.Context
	contextRate int
	contextErr  error
)

func sharedContext(sampleRate int, bufferSize time.Duration) (*oto.Context, error) {
	contextOnce.Do(func() {
		var ready chan struct{}
		otoContext, ready, contextErr = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channelCount,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   bufferSize,
		})
		if contextErr != nil {
			contextErr = fmt.Errorf("cannot create oto context: %w", contextErr)
			return
		}
		contextRate = sampleRate
		<-ready
	})
	if contextErr != nil {
		return nil, contextErr
	}
	if contextRate != sampleRate {
		return nil, fmt.Errorf("oto context already runs at %d Hz, cannot open at %d Hz", contextRate, sampleRate)
	}
	return otoContext, nil
}

func (b Backend) Open(g *graph.Context, notify func(output.State)) (output.Device, error) {
	bufferSize := b.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	ctx, err := sharedContext(g.SampleRate(), bufferSize)
	if err != nil {
		return nil, err
	}
	d := &Device{ctx: ctx, graph: g, state: output.Suspended}
	d.player = ctx.NewPlayer(d)
	return d, nil
}

// Device renders the graph whenever oto asks for more samples, so the graph
// clock stands still while the device is suspended.
type Device struct {
	ctx    *oto.Context
	graph  *graph.Context
	player *oto.Player

	mu    sync.Mutex
	state output.State

	floatBuffer []float32
	tmpBuffer   []byte
}

// Read implements io.Reader for the oto player.
func (d *Device) Read(p []byte) (int, error) {
	frames := len(p) / (2 * channelCount)
	if frames == 0 {
		return 0, nil
	}
	if cap(d.floatBuffer) < frames*channelCount {
		d.floatBuffer = make([]float32, frames*channelCount)
	}
	buf := d.floatBuffer[:frames*channelCount]
	d.graph.Render(buf)
	// we reuse the old capacity tmpBuffer by setting its length to zero
	d.tmpBuffer = FloatBufferTo16BitLE(buf, d.tmpBuffer[:0])
	n := copy(p, d.tmpBuffer)
	clear(p[n:])
	return len(p), nil
}

func (d *Device) State() output.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != output.Closed && d.ctx.Err() != nil {
		return output.Closed
	}
	return d.state
}

func (d *Device) Resume(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == output.Closed {
		return output.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := d.ctx.Resume(); err != nil {
		return fmt.Errorf("cannot resume oto context: %w", err)
	}
	d.player.Play()
	d.state = output.Running
	return nil
}

func (d *Device) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == output.Closed {
		return output.ErrClosed
	}
	d.player.Pause()
	if err := d.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	d.state = output.Suspended
	return nil
}

// Close disposes of the player. The shared oto context is only suspended,
// as oto cannot close it.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == output.Closed {
		return nil
	}
	d.state = output.Closed
	if err := d.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	if err := d.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

var _ io.Reader = (*Device)(nil)
