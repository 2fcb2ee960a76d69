package output

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/beatpad/beatpad"
	"github.com/beatpad/beatpad/graph"
)

const (
	// DefaultSettleDelay is waited after a platform resume returns, because
	// some platforms report running before audio actually flows.
	DefaultSettleDelay = 50 * time.Millisecond
	// DefaultResumeTimeout bounds a single platform resume.
	DefaultResumeTimeout = 5 * time.Second

	resumeKey = "resume"
)

type (
	// Manager owns the one audio output of the engine. The output is opened
	// once with Open and stays open until Dispose; the graph it renders is
	// shared by every player.
	Manager struct {
		backend       Backend
		sampleRate    int
		settleDelay   time.Duration
		resumeTimeout time.Duration
		log           logrus.FieldLogger

		openMu sync.Mutex // serializes Open and Dispose

		mu         sync.Mutex
		device     Device
		graph      *graph.Context
		state      State
		generation uint64

		resume    singleflight.Group
		listeners beatpad.Listeners[State]
	}

	Option func(*Manager)
)

func WithSampleRate(rate int) Option {
	return func(m *Manager) { m.sampleRate = rate }
}

func WithSettleDelay(d time.Duration) Option {
	return func(m *Manager) { m.settleDelay = d }
}

func WithResumeTimeout(d time.Duration) Option {
	return func(m *Manager) { m.resumeTimeout = d }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) { m.log = log }
}

func NewManager(backend Backend, opts ...Option) *Manager {
	m := &Manager{
		backend:       backend,
		sampleRate:    graph.DefaultSampleRate,
		settleDelay:   DefaultSettleDelay,
		resumeTimeout: DefaultResumeTimeout,
		log:           logrus.StandardLogger(),
		state:         Closed,
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.WithField("component", "output")
	return m
}

// Open opens the output if it is not open yet and returns the graph it
// renders. Calling Open again returns the same graph.
func (m *Manager) Open() (*graph.Context, error) {
	m.openMu.Lock()
	defer m.openMu.Unlock()
	m.mu.Lock()
	if m.graph != nil {
		g := m.graph
		m.mu.Unlock()
		return g, nil
	}
	gen := m.generation
	m.mu.Unlock()

	g := graph.NewContext(m.sampleRate)
	dev, err := m.backend.Open(g, func(s State) { m.setState(gen, s) })
	if err != nil {
		return nil, fmt.Errorf("cannot open audio output: %w", err)
	}
	m.mu.Lock()
	m.device = dev
	m.graph = g
	m.mu.Unlock()
	m.log.WithField("sampleRate", g.SampleRate()).Info("audio output opened")
	m.setState(gen, dev.State())
	return g, nil
}

// EnsureRunning makes sure the output is running, resuming it if it is
// suspended. Concurrent callers share a single platform resume and all see
// its outcome. It returns false if the output is not open, is closed, or did
// not reach the running state.
func (m *Manager) EnsureRunning(ctx context.Context) bool {
	m.mu.Lock()
	dev, state := m.device, m.state
	m.mu.Unlock()
	if dev == nil {
		m.log.Warn("audio output not opened yet")
		return false
	}
	switch state {
	case Running:
		return true
	case Suspended:
	default:
		m.log.Warnf("audio output is %s, cannot resume", state)
		return false
	}
	ch := m.resume.DoChan(resumeKey, func() (any, error) {
		return nil, m.performResume(dev)
	})
	select {
	case res := <-ch:
		if res.Shared {
			m.log.Debug("joined resume already in progress")
		}
		if res.Err != nil {
			m.log.WithError(res.Err).Error("failed to resume audio output")
		}
	case <-ctx.Done():
		return false
	}
	s := m.State()
	m.log.Debugf("audio output state after resume: %s", s)
	return s == Running
}

func (m *Manager) performResume(dev Device) error {
	m.log.Info("resuming suspended audio output")
	ctx, cancel := context.WithTimeout(context.Background(), m.resumeTimeout)
	defer cancel()
	if err := dev.Resume(ctx); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	time.Sleep(m.settleDelay)
	m.mu.Lock()
	gen, same := m.generation, m.device == dev
	m.mu.Unlock()
	if same {
		m.setState(gen, dev.State())
	}
	return nil
}

// Suspend suspends the output, e.g. when the application is backgrounded.
func (m *Manager) Suspend() error {
	m.mu.Lock()
	dev, gen := m.device, m.generation
	m.mu.Unlock()
	if dev == nil {
		return nil
	}
	if err := dev.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend audio output: %w", err)
	}
	m.setState(gen, dev.State())
	return nil
}

// OnStateChange registers a listener called with the new state on every
// transition, including the ones the platform makes on its own.
func (m *Manager) OnStateChange(fn func(State)) (unsubscribe func()) {
	return m.listeners.Add(fn)
}

// Dispose closes the output and forgets listeners and any resume in
// flight. The manager can be opened again afterwards.
func (m *Manager) Dispose() {
	m.openMu.Lock()
	defer m.openMu.Unlock()
	m.mu.Lock()
	dev := m.device
	m.device = nil
	m.graph = nil
	m.state = Closed
	m.generation++
	m.mu.Unlock()
	m.resume.Forget(resumeKey)
	m.listeners.Clear()
	if dev == nil {
		return
	}
	if err := dev.Close(); err != nil {
		m.log.WithError(err).Warn("failed to close audio output")
	}
	m.log.Info("audio output closed")
}

func (m *Manager) setState(gen uint64, s State) {
	m.mu.Lock()
	if gen != m.generation || m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	m.mu.Unlock()
	m.log.Infof("audio output state changed: %s", s)
	m.listeners.Notify(s)
}

// State returns the current state; Closed when the output is not open.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsRunning() bool   { return m.State() == Running }
func (m *Manager) IsSuspended() bool { return m.State() == Suspended }

// Graph returns the rendered graph, or nil when the output is not open.
func (m *Manager) Graph() *graph.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.graph
}

// CurrentTime returns the output clock in seconds, 0 when not open.
func (m *Manager) CurrentTime() float64 {
	if g := m.Graph(); g != nil {
		return g.CurrentTime()
	}
	return 0
}
