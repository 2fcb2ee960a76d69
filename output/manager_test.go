package output_test

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/beatpad/beatpad/output"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newManager(b output.Backend) *output.Manager {
	return output.NewManager(b,
		output.WithSampleRate(1000),
		output.WithSettleDelay(time.Millisecond),
		output.WithLogger(quietLogger()))
}

func TestEnsureRunningSharesOneResume(t *testing.T) {
	release := make(chan struct{})
	backend := &output.HeadlessBackend{ResumeHook: func(ctx context.Context) error {
		<-release
		return nil
	}}
	m := newManager(backend)
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	const callers = 8
	results := make([]bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.EnsureRunning(context.Background())
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	for i, ok := range results {
		if !ok {
			t.Fatalf("caller %d: EnsureRunning returned false", i)
		}
	}
	if n := backend.Device().Resumes(); n != 1 {
		t.Fatalf("expected exactly one platform resume, got %d", n)
	}
	if !m.IsRunning() {
		t.Fatalf("manager should be running, is %s", m.State())
	}
}

func TestEnsureRunningSharesFailedResume(t *testing.T) {
	release := make(chan struct{})
	backend := &output.HeadlessBackend{ResumeHook: func(ctx context.Context) error {
		<-release
		return errors.New("not allowed to start audio")
	}}
	m := newManager(backend)
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	const callers = 8
	results := make([]bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.EnsureRunning(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	for i, ok := range results {
		if ok {
			t.Fatalf("caller %d: EnsureRunning returned true after a failed resume", i)
		}
	}
	if n := backend.Device().Resumes(); n != 1 {
		t.Fatalf("expected exactly one platform resume, got %d", n)
	}
	if !m.IsSuspended() {
		t.Fatalf("manager should stay suspended, is %s", m.State())
	}
}

func TestEnsureRunningWhenRunningDoesNotResume(t *testing.T) {
	backend := &output.HeadlessBackend{Initial: output.Running}
	m := newManager(backend)
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !m.EnsureRunning(context.Background()) {
		t.Fatalf("EnsureRunning returned false for a running output")
	}
	if n := backend.Device().Resumes(); n != 0 {
		t.Fatalf("expected no resume, got %d", n)
	}
}

func TestEnsureRunningFailsWhenNotOpened(t *testing.T) {
	m := newManager(&output.HeadlessBackend{})
	if m.EnsureRunning(context.Background()) {
		t.Fatalf("EnsureRunning should fail before Open")
	}
	if m.State() != output.Closed {
		t.Fatalf("state before Open should be closed, got %s", m.State())
	}
	if m.CurrentTime() != 0 {
		t.Fatalf("CurrentTime before Open should be 0")
	}
}

func TestEnsureRunningFailsAfterDispose(t *testing.T) {
	m := newManager(&output.HeadlessBackend{})
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	m.Dispose()
	if m.EnsureRunning(context.Background()) {
		t.Fatalf("EnsureRunning should fail after Dispose")
	}
	if m.Graph() != nil {
		t.Fatalf("graph should be released after Dispose")
	}
}

func TestEnsureRunningReportsFailedResume(t *testing.T) {
	backend := &output.HeadlessBackend{ResumeHook: func(ctx context.Context) error {
		return errors.New("not allowed")
	}}
	m := newManager(backend)
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if m.EnsureRunning(context.Background()) {
		t.Fatalf("EnsureRunning should fail when the resume fails")
	}
	if !m.IsSuspended() {
		t.Fatalf("output should stay suspended, is %s", m.State())
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	m := newManager(&output.HeadlessBackend{})
	g1, err := m.Open()
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	g2, err := m.Open()
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if g1 != g2 {
		t.Fatalf("second Open returned a different graph")
	}
	if g1.SampleRate() != 1000 {
		t.Fatalf("sample rate option ignored, got %d", g1.SampleRate())
	}
}

func TestOpenWrapsBackendError(t *testing.T) {
	cause := errors.New("no sound card")
	m := newManager(&output.HeadlessBackend{OpenErr: cause})
	_, err := m.Open()
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped backend error, got %v", err)
	}
	if m.State() != output.Closed {
		t.Fatalf("failed Open should leave the output closed")
	}
}

func TestStateListeners(t *testing.T) {
	backend := &output.HeadlessBackend{}
	m := newManager(backend)
	var got []output.State
	unsubscribe := m.OnStateChange(func(s output.State) { got = append(got, s) })
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	m.EnsureRunning(context.Background())
	backend.Device().Interrupt()
	unsubscribe()
	unsubscribe()
	m.EnsureRunning(context.Background())
	expected := []output.State{output.Suspended, output.Running, output.Suspended}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("got transitions %v, expected %v", got, expected)
	}
}

func TestDisposeWithoutOpen(t *testing.T) {
	m := newManager(&output.HeadlessBackend{})
	m.Dispose()
	m.Dispose()
	if m.State() != output.Closed {
		t.Fatalf("expected closed, got %s", m.State())
	}
}

func TestClockStandsStillWhileSuspended(t *testing.T) {
	backend := &output.HeadlessBackend{}
	m := newManager(backend)
	if _, err := m.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	dev := backend.Device()
	dev.Render(500)
	if m.CurrentTime() != 0 {
		t.Fatalf("suspended device should not advance the clock")
	}
	m.EnsureRunning(context.Background())
	dev.Render(500)
	if m.CurrentTime() != 0.5 {
		t.Fatalf("expected clock at 0.5s, got %v", m.CurrentTime())
	}
	if err := m.Suspend(); err != nil {
		t.Fatalf("Suspend failed: %v", err)
	}
	dev.Render(500)
	if m.CurrentTime() != 0.5 {
		t.Fatalf("clock advanced while suspended: %v", m.CurrentTime())
	}
}
