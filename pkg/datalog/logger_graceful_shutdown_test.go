package datalog

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLogger_GracefulShutdown_NoWritesAfterStop tests that no sample line
// appears in the output file once Stop has returned.
func TestLogger_GracefulShutdown_NoWritesAfterStop(t *testing.T) {
	src := &fakeSource{titles: []string{"A"}, values: []float64{1.0}, delay: 5 * time.Millisecond}
	file := newTestFile(t, src.Titles())
	l := New(src, file)

	require.NoError(t, l.Start())
	waitFor(t, func() bool { return src.captureCount() >= 2 }, "no samples captured")
	require.NoError(t, l.Stop())

	before, err := os.ReadFile(file.Path())
	require.NoError(t, err)

	// Give a leaked goroutine ample time to misbehave.
	time.Sleep(50 * time.Millisecond)

	after, err := os.ReadFile(file.Path())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after), "file grew after Stop returned")
}

// TestLogger_GracefulShutdown_StopBeforeFirstCycle tests that stopping
// immediately after Start still joins the acquisition goroutine cleanly.
func TestLogger_GracefulShutdown_StopBeforeFirstCycle(t *testing.T) {
	src := &fakeSource{titles: []string{"A"}, values: []float64{1.0}, delay: 100 * time.Millisecond}
	file := newTestFile(t, src.Titles())
	l := New(src, file)

	require.NoError(t, l.Start())

	done := make(chan error, 1)
	go func() { done <- l.Stop() }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	// At most the single in-flight cycle may have been written.
	assert.LessOrEqual(t, src.captureCount(), 1)
}
