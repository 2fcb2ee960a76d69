// Package sampler loads drum samples and plays them through the output graph,
// either right away or at a time on the output clock.
package sampler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/beatpad/beatpad"
	"github.com/beatpad/beatpad/graph"
)

// DefaultConcurrency is the number of sounds fetched at the same time.
const DefaultConcurrency = 4

type (
	// Output is the part of the output manager the sampler needs.
	Output interface {
		Graph() *graph.Context
		IsRunning() bool
		IsSuspended() bool
	}

	Sampler struct {
		out         Output
		fetcher     Fetcher
		concurrency int
		log         logrus.FieldLogger

		mu      sync.RWMutex
		buffers map[string]*graph.Buffer
	}

	Option func(*Sampler)
)

func WithFetcher(f Fetcher) Option {
	return func(s *Sampler) { s.fetcher = f }
}

func WithConcurrency(n int) Option {
	return func(s *Sampler) { s.concurrency = n }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Sampler) { s.log = log }
}

func New(out Output, opts ...Option) *Sampler {
	s := &Sampler{
		out:         out,
		fetcher:     LocatorFetcher{},
		concurrency: DefaultConcurrency,
		log:         logrus.StandardLogger(),
		buffers:     map[string]*graph.Buffer{},
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.WithField("component", "sampler")
	return s
}

// Load fetches and decodes the sounds in parallel. A sound that cannot be
// fetched or decoded is logged and skipped; Load only returns an error when
// ctx is cancelled.
func (s *Sampler) Load(ctx context.Context, sounds []beatpad.Sound) error {
	g, ctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for _, sound := range sounds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := s.loadOne(ctx, sound)
			if err != nil {
				s.log.WithError(err).WithField("sound", sound.ID).Warn("skipping sound")
				return nil
			}
			s.Store(sound.ID, buf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("loading sounds: %w", err)
	}
	s.log.Infof("loaded %d of %d sounds", len(s.IDs()), len(sounds))
	return nil
}

func (s *Sampler) loadOne(ctx context.Context, sound beatpad.Sound) (*graph.Buffer, error) {
	data, err := s.fetcher.Fetch(ctx, sound.Locator)
	if err != nil {
		return nil, err
	}
	buf, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %v: %w", sound.Locator, err)
	}
	return buf, nil
}

// Store caches a decoded buffer under id, replacing any previous one.
func (s *Sampler) Store(id string, b *graph.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers[id] = b
}

// Clear forgets all loaded sounds.
func (s *Sampler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.buffers)
}

func (s *Sampler) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buffers[id]
	return ok
}

// IDs returns the ids of the loaded sounds, sorted.
func (s *Sampler) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.buffers))
	for id := range s.buffers {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (s *Sampler) buffer(id string) (*graph.Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buffers[id]
	return b, ok
}

// PlayNow plays the sound immediately. The output must be running. Every
// call starts a new source, so retriggers overlap.
func (s *Sampler) PlayNow(id string) {
	g := s.out.Graph()
	if g == nil || !s.out.IsRunning() {
		s.log.WithField("sound", id).Warn("output not running, cannot play sound")
		return
	}
	b, ok := s.buffer(id)
	if !ok {
		s.log.WithField("sound", id).Warn("sound not loaded")
		return
	}
	g.Start(graph.NewBufferSource(g, b, g.CurrentTime(), 1))
}

// PlayAt plays the sound at clock time t with the given volume, clamped to
// [0, 1]. Nothing is scheduled while the output is suspended.
func (s *Sampler) PlayAt(id string, t, volume float64) {
	g := s.out.Graph()
	if g == nil {
		s.log.WithField("sound", id).Warn("output not opened, cannot schedule sound")
		return
	}
	if s.out.IsSuspended() {
		s.log.WithField("sound", id).Debug("output suspended, sound not scheduled")
		return
	}
	b, ok := s.buffer(id)
	if !ok {
		s.log.WithField("sound", id).Warn("sound not loaded")
		return
	}
	g.Start(graph.NewBufferSource(g, b, t, beatpad.Clamp(volume, 0, 1)))
}

// SetMasterVolume sets the gain of the whole output, clamped to [0, 1].
func (s *Sampler) SetMasterVolume(v float64) {
	g := s.out.Graph()
	if g == nil {
		s.log.Debug("output not opened, master volume unchanged")
		return
	}
	g.SetMasterGain(beatpad.Clamp(v, 0, 1))
}

// MasterVolume returns the output gain, 1 if the output is not opened.
func (s *Sampler) MasterVolume() float64 {
	if g := s.out.Graph(); g != nil {
		return g.MasterGain()
	}
	return 1
}
