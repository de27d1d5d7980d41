package keithley

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/lsgunth/dtdatalog/pkg/transport"
)

// idnPrefix is the expected start of the identification response.
const idnPrefix = "KEITHLEY"

var (
	// settleDelay follows the wakeup terminators so the instrument can
	// finish echoing before the input buffer is discarded.
	settleDelay = 50 * time.Millisecond
	// resetDelay gives the instrument time to complete a *RST.
	resetDelay = time.Second
)

// Client implements the command/query protocol of the instrument. It owns
// the transport and tracks which channel is currently routed so redundant
// relay and configuration commands can be skipped. A Client must only be
// used from a single goroutine.
type Client struct {
	// Debug traces every command and response via the standard logger.
	Debug bool

	tr       transport.Transport
	lastRead int
	order    []int
	config   map[int]ChannelConfig

	// coldJunction is the reference-junction temperature used for
	// thermocouple compensation. It defaults to 0 and is updated whenever
	// a cold-junction RTD channel is read, so such a channel must be read
	// before any thermocouple that depends on it.
	coldJunction float64
}

// Open opens the named serial port and establishes a session. Zero-valued
// options select the instrument's defaults (19200 baud, 2s read timeout).
// Transport failures during open are reported as a ProtocolError carrying
// the port name.
func Open(port string, opts transport.Options) (*Client, error) {
	tr, err := transport.Open(port, opts)
	if err != nil {
		return nil, &ProtocolError{Port: port, Msg: "could not connect", Err: err}
	}

	c, err := NewClient(tr)
	if err != nil {
		tr.Close()
		return nil, err
	}
	return c, nil
}

// NewClient establishes a session over an already-open transport: it wakes
// the instrument, verifies its identity and resets it to a known state.
func NewClient(tr transport.Transport) (*Client, error) {
	c := &Client{
		tr:     tr,
		config: make(map[int]ChannelConfig),
	}

	// Two bare terminators flush any partial command left in the
	// instrument's parser from a previous session.
	if err := tr.Write([]byte("\r\n\r\n")); err != nil {
		return nil, err
	}
	if err := tr.Flush(); err != nil {
		return nil, err
	}
	time.Sleep(settleDelay)
	if err := tr.ResetInputBuffer(); err != nil {
		return nil, err
	}

	idn, err := c.Query("*IDN?")
	if err != nil {
		return nil, &ProtocolError{Msg: "communication failure", Err: err}
	}
	if !strings.HasPrefix(idn, idnPrefix) {
		return nil, &ProtocolError{Msg: fmt.Sprintf("communication failure: unexpected identification %q", idn)}
	}

	if err := c.command("*RST", false); err != nil {
		return nil, err
	}
	time.Sleep(resetDelay)

	for _, cmd := range []string{"SYST:BEEP OFF", "ROUT:CLOS:ACON 1", "TRAC:CLEAR"} {
		if err := c.command(cmd, true); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.tr.Close()
}

// ColdJunctionTemp returns the current cold-junction reference temperature.
func (c *Client) ColdJunctionTemp() float64 {
	return c.coldJunction
}

func (c *Client) debugf(format string, args ...any) {
	if c.Debug {
		log.Printf(format, args...)
	}
}

// command sends cmd to the instrument. With checkError set the error queue
// is cleared first and queried afterwards; a non-zero code becomes a
// ProtocolError carrying the command, message and code.
func (c *Client) command(cmd string, checkError bool) error {
	c.debugf("-> %s", cmd)

	if checkError {
		if err := c.tr.Write([]byte("SYST:CLE\n")); err != nil {
			return fmt.Errorf("command %q: %w", cmd, err)
		}
	}

	if err := c.tr.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("command %q: %w", cmd, err)
	}

	if !checkError {
		return nil
	}

	if err := c.tr.Write([]byte("SYST:ERR?\n")); err != nil {
		return fmt.Errorf("command %q: %w", cmd, err)
	}

	var resp string
	for resp == "" {
		line, err := c.tr.ReadLine()
		if err != nil {
			return fmt.Errorf("error check for %q: %w", cmd, err)
		}
		resp = strings.TrimSpace(line)
	}
	c.debugf("<- %s", resp)

	codeStr, msg, _ := strings.Cut(resp, ",")
	code, err := strconv.Atoi(strings.TrimSpace(codeStr))
	if err != nil {
		return &ProtocolError{Cmd: cmd, Msg: fmt.Sprintf("malformed error response %q", resp), Err: err}
	}
	if code != 0 {
		return &ProtocolError{
			Cmd:  cmd,
			Code: code,
			Msg:  strings.Trim(strings.TrimSpace(msg), `"`),
		}
	}
	return nil
}

// Query optionally issues cmd without error checking, then blocks until one
// non-empty response line arrives and returns it raw.
func (c *Client) Query(cmd string) (string, error) {
	if cmd != "" {
		if err := c.command(cmd, false); err != nil {
			return "", err
		}
	}

	for {
		line, err := c.tr.ReadLine()
		if err != nil {
			return "", fmt.Errorf("query %q: %w", cmd, err)
		}
		line = strings.TrimSpace(line)
		if line != "" {
			c.debugf("<- %s", line)
			return line, nil
		}
	}
}

// setupChannel sends the configuration sequence for one channel: function,
// range (explicit or auto) and aperture, each error-checked and suffixed
// with a channel-list clause for relay-routed channels.
func (c *Client) setupChannel(cfg ChannelConfig) error {
	var clist string
	if cfg.Channel >= 100 {
		clist = fmt.Sprintf(", (@%d)", cfg.Channel)
	}

	fn := string(cfg.Func)
	rng := cfg.Range
	switch cfg.Func {
	case FuncRTD:
		fn = string(FuncResistance)
	case FuncThermocouple:
		fn = string(FuncVoltDC)
		rng = thermocoupleRange
	}

	if err := c.command(fmt.Sprintf("FUNC '%s'%s", fn, clist), true); err != nil {
		return err
	}

	if rng == 0 {
		if err := c.command(fmt.Sprintf("%s:RANG:AUTO ON%s", fn, clist), true); err != nil {
			return err
		}
	} else {
		if err := c.command(fmt.Sprintf("%s:RANG %g%s", fn, rng, clist), true); err != nil {
			return err
		}
	}

	if cfg.Aperture != 0 {
		if err := c.command(fmt.Sprintf("%s:APER %g%s", fn, cfg.Aperture, clist), true); err != nil {
			return err
		}
	}

	return nil
}

// AddChannel validates and configures a channel, stores its configuration
// and returns the channel number. Re-adding an existing channel replaces
// its configuration but keeps its position in the read order.
func (c *Client) AddChannel(cfg ChannelConfig) (int, error) {
	if !validFuncs[cfg.Func] {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFunction, cfg.Func)
	}

	cfg = cfg.withDefaults()
	if err := c.setupChannel(cfg); err != nil {
		return 0, err
	}

	if _, exists := c.config[cfg.Channel]; !exists {
		c.order = append(c.order, cfg.Channel)
	}
	c.config[cfg.Channel] = cfg

	return cfg.Channel, nil
}

// RemoveChannel drops a channel from the session. Removing an unknown
// channel is a no-op.
func (c *Client) RemoveChannel(ch int) {
	if _, ok := c.config[ch]; !ok {
		return
	}
	delete(c.config, ch)
	for i, n := range c.order {
		if n == ch {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// ReadChannel routes to the given channel if it is not already selected,
// triggers a reading and converts it according to the channel's function.
// An out-of-range or invalid reading is returned as NaN with a nil error.
func (c *Client) ReadChannel(ch int) (float64, error) {
	cfg, ok := c.config[ch]
	if !ok {
		return 0, &ProtocolError{Msg: fmt.Sprintf("unconfigured channel: %d", ch)}
	}

	if ch != c.lastRead {
		if ch >= 100 {
			if err := c.command(fmt.Sprintf("ROUT:CLOS (@%d)", ch), true); err != nil {
				return 0, err
			}
		} else {
			// Internal function state is shared across the instrument and
			// must be re-asserted after any routing change.
			if err := c.command("ROUT:OPEN:ALL", true); err != nil {
				return 0, err
			}
			if err := c.setupChannel(cfg); err != nil {
				return 0, err
			}
		}
	}

	resp, err := c.Query("READ?")
	if err != nil {
		return 0, err
	}
	c.lastRead = ch

	val, err := parseReading(resp)
	if err != nil {
		return 0, &ProtocolError{Cmd: "READ?", Msg: fmt.Sprintf("unparseable reading %q", resp), Err: err}
	}

	switch cfg.Func {
	case FuncRTD:
		t := RTDToDegC(val, cfg.RTD.Alpha, cfg.RTD.R0)
		if cfg.RTD.ColdJunction {
			c.coldJunction = t
		}
		return t, nil
	case FuncThermocouple:
		t, ok := ThermocoupleToDegC(val, cfg.Thermocouple.SensorType, c.coldJunction)
		if !ok {
			return math.NaN(), nil
		}
		return t, nil
	default:
		return val, nil
	}
}

// ReadAll reads every configured channel in registration order. The result
// order matches the column order of the data file exactly.
func (c *Client) ReadAll() ([]float64, error) {
	values := make([]float64, 0, len(c.order))
	for _, ch := range c.order {
		v, err := c.ReadChannel(ch)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// parseReading extracts the leading numeric token of a READ? response,
// stripping the trailing unit suffix (e.g. "+1.0521E+03OHM,...").
func parseReading(resp string) (float64, error) {
	first, _, _ := strings.Cut(resp, ",")
	first = strings.TrimRightFunc(first, unicode.IsLetter)
	return strconv.ParseFloat(strings.TrimSpace(first), 64)
}
