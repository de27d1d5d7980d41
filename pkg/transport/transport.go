package transport

import (
	"errors"
	"time"
)

const (
	// DefaultBaudRate is the factory baud rate of the instrument's RS-232 port.
	DefaultBaudRate = 19200
	// DefaultReadTimeout bounds a single blocking line read.
	DefaultReadTimeout = 2 * time.Second
)

// ErrTimeout is returned by ReadLine when no complete line arrives within
// the configured read timeout.
var ErrTimeout = errors.New("transport: read timeout")

// Transport is a blocking, line-oriented byte channel to an instrument.
type Transport interface {
	// Write sends raw bytes to the instrument.
	Write(p []byte) error
	// ReadLine blocks until one newline-terminated line is received and
	// returns it with the line terminator stripped. It may return an
	// empty string if the instrument sent a blank line.
	ReadLine() (string, error)
	// Flush blocks until all written bytes have been transmitted.
	Flush() error
	// ResetInputBuffer discards any received but unread bytes.
	ResetInputBuffer() error
	Close() error
}

// Options configures how a serial transport is opened.
type Options struct {
	BaudRate    int
	ReadTimeout time.Duration
}

// Ensure Serial implements Transport.
var _ Transport = (*Serial)(nil)

// Ensure Mock implements Transport.
var _ Transport = (*Mock)(nil)
