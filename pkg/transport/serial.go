package transport

import (
	"bytes"
	"fmt"

	"go.bug.st/serial"
)

// Serial is a Transport backed by a physical serial port.
type Serial struct {
	port serial.Port

	// pending holds bytes received past the last returned line.
	pending []byte
}

// Open opens the named serial port in 8N1 mode. Zero-valued options fall
// back to DefaultBaudRate and DefaultReadTimeout.
func Open(name string, opts Options) (*Serial, error) {
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}

	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", name, err)
	}

	return &Serial{port: port}, nil
}

// NewSerial wraps an already-open port. Used by tests with a stub port.
func NewSerial(port serial.Port) *Serial {
	return &Serial{port: port}
}

// Write sends raw bytes to the instrument.
func (s *Serial) Write(p []byte) error {
	if _, err := s.port.Write(p); err != nil {
		return fmt.Errorf("serial write failed: %w", err)
	}
	return nil
}

// ReadLine returns the next newline-terminated line with CR/LF stripped.
// A read that times out before a full line arrives returns ErrTimeout.
func (s *Serial) ReadLine() (string, error) {
	buf := make([]byte, 256)
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := string(bytes.TrimRight(s.pending[:i], "\r"))
			s.pending = s.pending[i+1:]
			return line, nil
		}

		n, err := s.port.Read(buf)
		if err != nil {
			return "", fmt.Errorf("serial read failed: %w", err)
		}
		if n == 0 {
			// go.bug.st/serial signals an expired read timeout with a
			// zero-byte read and no error.
			return "", ErrTimeout
		}
		s.pending = append(s.pending, buf[:n]...)
	}
}

// Flush blocks until the output buffer has drained to the device.
func (s *Serial) Flush() error {
	return s.port.Drain()
}

// ResetInputBuffer discards driver-buffered input and any partial line
// already read from the port.
func (s *Serial) ResetInputBuffer() error {
	s.pending = nil
	return s.port.ResetInputBuffer()
}

// Close closes the serial port.
func (s *Serial) Close() error {
	return s.port.Close()
}
