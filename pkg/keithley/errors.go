// Package keithley drives a Keithley 2700 multimeter with a 7700
// multiplexer card over a serial transport, converting raw resistance and
// DC-voltage readings into temperatures.
package keithley

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFunction is returned when an unsupported measurement function
// is requested at channel registration time.
var ErrInvalidFunction = errors.New("keithley: invalid function")

// ProtocolError reports a failure of the instrument protocol: a connect or
// identification failure, a non-zero instrument error code, or a read of a
// channel that was never configured.
type ProtocolError struct {
	Port string // serial port, set for connect-time failures
	Cmd  string // command that was running, if any
	Code int    // instrument error code, 0 if not applicable
	Msg  string
	Err  error // underlying transport error, if any
}

func (e *ProtocolError) Error() string {
	var b strings.Builder
	b.WriteString("keithley: ")
	b.WriteString(e.Msg)
	if e.Cmd != "" {
		fmt.Fprintf(&b, " while running %q", e.Cmd)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (%d)", e.Code)
	}
	if e.Port != "" {
		fmt.Fprintf(&b, " on port %s", e.Port)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProtocolError) Unwrap() error { return e.Err }
