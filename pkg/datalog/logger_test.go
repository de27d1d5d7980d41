package datalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource produces a fixed sample per capture, with an optional per-call
// delay and a programmable failure.
type fakeSource struct {
	mu       sync.Mutex
	titles   []string
	values   []float64
	delay    time.Duration
	failAt   int // fail on the Nth capture (1-based), 0 = never
	captures int
}

func (s *fakeSource) Titles() []string { return s.titles }

func (s *fakeSource) CaptureSample() ([]float64, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures++
	if s.failAt > 0 && s.captures >= s.failAt {
		return nil, errors.New("instrument went away")
	}
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out, nil
}

func (s *fakeSource) captureCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}

// recordingOutput counts published samples.
type recordingOutput struct {
	mu      sync.Mutex
	samples []Sample
	closed  bool
}

func (o *recordingOutput) Publish(s Sample) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.samples = append(o.samples, s)
	return nil
}

func (o *recordingOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *recordingOutput) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.samples)
}

func newTestFile(t *testing.T, titles []string) *File {
	t.Helper()
	f, err := Create(t.TempDir(), "", "test", titles, nil)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestLogger_StartAndStop(t *testing.T) {
	src := &fakeSource{titles: []string{"A"}, values: []float64{1.0}, delay: time.Millisecond}
	out := &recordingOutput{}
	l := New(src, newTestFile(t, src.Titles()), out)

	require.NoError(t, l.Start())
	waitFor(t, func() bool { return src.captureCount() >= 3 }, "no samples captured")
	require.NoError(t, l.Stop())

	assert.GreaterOrEqual(t, out.count(), 3)
}

func TestLogger_DoubleStart(t *testing.T) {
	src := &fakeSource{titles: []string{"A"}, values: []float64{1.0}, delay: time.Millisecond}
	l := New(src, newTestFile(t, src.Titles()))

	require.NoError(t, l.Start())
	assert.Error(t, l.Start())
	require.NoError(t, l.Stop())
}

func TestLogger_StopWithoutStart(t *testing.T) {
	src := &fakeSource{titles: []string{"A"}, values: []float64{1.0}}
	l := New(src, newTestFile(t, src.Titles()))

	assert.NoError(t, l.Stop())
}

func TestLogger_StopIsIdempotent(t *testing.T) {
	src := &fakeSource{titles: []string{"A"}, values: []float64{1.0}, delay: time.Millisecond}
	l := New(src, newTestFile(t, src.Titles()))

	require.NoError(t, l.Start())
	require.NoError(t, l.Stop())
	require.NoError(t, l.Stop())
}

func TestLogger_CaptureFailureIsFatal(t *testing.T) {
	src := &fakeSource{titles: []string{"A"}, values: []float64{1.0}, failAt: 2}
	l := New(src, newTestFile(t, src.Titles()))

	require.NoError(t, l.Start())
	waitFor(t, func() bool { return src.captureCount() >= 2 }, "loop never reached failing capture")

	err := l.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instrument went away")
}

func TestLogger_RunStopsOnContextCancel(t *testing.T) {
	src := &fakeSource{titles: []string{"A"}, values: []float64{1.0}, delay: time.Millisecond}
	l := New(src, newTestFile(t, src.Titles()))

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	waitFor(t, func() bool { return src.captureCount() >= 2 }, "no samples captured")
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestLogger_RunReturnsLoopError(t *testing.T) {
	src := &fakeSource{titles: []string{"A"}, values: []float64{1.0}, failAt: 1}
	l := New(src, newTestFile(t, src.Titles()))

	err := l.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instrument went away")
}

func TestLogger_ElapsedIsMonotonic(t *testing.T) {
	src := &fakeSource{titles: []string{"A"}, values: []float64{1.0}, delay: time.Millisecond}
	out := &recordingOutput{}
	l := New(src, newTestFile(t, src.Titles()), out)

	require.NoError(t, l.Start())
	waitFor(t, func() bool { return out.count() >= 4 }, "no samples published")
	require.NoError(t, l.Stop())

	out.mu.Lock()
	defer out.mu.Unlock()
	for i := 1; i < len(out.samples); i++ {
		assert.GreaterOrEqual(t, out.samples[i].Elapsed, out.samples[i-1].Elapsed)
	}
}
