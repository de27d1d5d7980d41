package transport

import (
	"strings"
	"sync"
)

// Mock is an in-memory Transport that simulates an instrument for tests
// and development. Written lines are recorded; responses are served from a
// FIFO queue. When Respond is set it is invoked for every complete line
// written and may queue replies, which is how a scripted instrument is
// modelled.
type Mock struct {
	mu sync.Mutex

	// Respond simulates the instrument: it receives each written line and
	// returns response lines to queue, if any.
	Respond func(line string) []string

	written []string
	partial string
	queue   []string
	closed  bool
}

// NewMock creates an empty mock transport.
func NewMock() *Mock {
	return &Mock{}
}

// Write records outgoing data, splitting it into newline-terminated lines
// and feeding each complete line to Respond.
func (m *Mock) Write(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.partial += string(p)
	for {
		i := strings.IndexByte(m.partial, '\n')
		if i < 0 {
			return nil
		}
		line := strings.TrimRight(m.partial[:i], "\r")
		m.partial = m.partial[i+1:]
		m.written = append(m.written, line)
		if m.Respond != nil {
			m.queue = append(m.queue, m.Respond(line)...)
		}
	}
}

// QueueLine appends a line to be returned by a future ReadLine call.
func (m *Mock) QueueLine(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, line)
}

// ReadLine pops the next queued response, or ErrTimeout when none remain.
func (m *Mock) ReadLine() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return "", ErrTimeout
	}
	line := m.queue[0]
	m.queue = m.queue[1:]
	return line, nil
}

// Flush is a no-op.
func (m *Mock) Flush() error { return nil }

// ResetInputBuffer discards all queued responses.
func (m *Mock) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
	return nil
}

// Close marks the transport closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Written returns a copy of every complete line written so far.
func (m *Mock) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.written))
	copy(out, m.written)
	return out
}

// Closed reports whether Close has been called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
