package datalog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Source produces one multi-channel sample per call. Capture order must
// match the title order.
type Source interface {
	Titles() []string
	CaptureSample() ([]float64, error)
}

// Output receives every sample after it has been written to the file.
// Publish failures are logged and do not stop acquisition.
type Output interface {
	Publish(Sample) error
	Close() error
}

type loggerState int

const (
	stateIdle loggerState = iota
	stateRunning
	stateStopRequested
	stateStopped
)

// Logger is the background sampling loop for one instrument session. A
// single goroutine performs all instrument reads and file writes, so no
// locking is needed around the session state itself. Cycles run back to
// back with no artificial delay; the cadence is bounded only by the
// instrument's response latency.
type Logger struct {
	src     Source
	file    *File
	outputs []Output

	mu    sync.Mutex
	state loggerState
	stop  chan struct{}
	done  chan struct{}
	err   error
}

// New creates a logger that captures from src and writes to file,
// forwarding each sample to any extra outputs.
func New(src Source, file *File, outputs ...Output) *Logger {
	return &Logger{
		src:     src,
		file:    file,
		outputs: outputs,
	}
}

// Start launches the acquisition goroutine. It fails if the logger has
// already been started.
func (l *Logger) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != stateIdle {
		return fmt.Errorf("datalog: logger already started")
	}
	l.state = stateRunning
	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	go l.run()
	return nil
}

// run is the acquisition loop. The stop signal is checked once per cycle;
// a capture or write failure is fatal to the session and ends the loop.
func (l *Logger) run() {
	defer close(l.done)

	start := time.Now()
	for {
		select {
		case <-l.stop:
			return
		default:
		}

		elapsed := time.Since(start).Seconds()
		values, err := l.src.CaptureSample()
		if err != nil {
			l.setErr(fmt.Errorf("sample capture failed: %w", err))
			return
		}

		s := Sample{Elapsed: elapsed, Values: values}
		if err := l.file.WriteSample(s); err != nil {
			l.setErr(err)
			return
		}

		for _, out := range l.outputs {
			if err := out.Publish(s); err != nil {
				log.Printf("datalog: publish failed: %v", err)
			}
		}
	}
}

// Stop signals the acquisition goroutine and blocks until it has exited.
// No sample is written after Stop returns. It returns the error that ended
// the loop, if any, and is safe to call more than once.
func (l *Logger) Stop() error {
	l.mu.Lock()
	switch l.state {
	case stateIdle:
		l.mu.Unlock()
		return nil
	case stateRunning:
		l.state = stateStopRequested
		close(l.stop)
	}
	done := l.done
	l.mu.Unlock()

	<-done

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = stateStopped
	return l.err
}

// Run starts the logger and stops it when ctx is cancelled or the loop
// fails, whichever comes first. Stop is guaranteed on every exit path.
func (l *Logger) Run(ctx context.Context) error {
	if err := l.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-l.done:
	}
	return l.Stop()
}

func (l *Logger) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err == nil {
		l.err = err
	}
}
