package keithley

import "fmt"

// Func identifies a measurement function of the instrument. RTD and
// Thermocouple are pseudo-functions handled by this package: they measure
// resistance and DC voltage respectively and convert the result to a
// temperature in degrees Celsius.
type Func string

const (
	FuncVoltDC       Func = "VOLT:DC"
	FuncVoltAC       Func = "VOLT:AC"
	FuncCurrDC       Func = "CURR:DC"
	FuncCurrAC       Func = "CURR:AC"
	FuncResistance   Func = "RES"
	FuncFourWireRes  Func = "FRES"
	FuncTemperature  Func = "TEMP"
	FuncFrequency    Func = "FREQ"
	FuncPeriod       Func = "PER"
	FuncContinuity   Func = "CONT"
	FuncRTD          Func = "RTD"
	FuncThermocouple Func = "THERMOCOUPLE"
)

var validFuncs = map[Func]bool{
	FuncVoltDC:       true,
	FuncVoltAC:       true,
	FuncCurrDC:       true,
	FuncCurrAC:       true,
	FuncResistance:   true,
	FuncFourWireRes:  true,
	FuncTemperature:  true,
	FuncFrequency:    true,
	FuncPeriod:       true,
	FuncContinuity:   true,
	FuncRTD:          true,
	FuncThermocouple: true,
}

const (
	// DefaultRTDAlpha is the temperature coefficient of a standard
	// IEC 60751 platinum RTD.
	DefaultRTDAlpha = 0.00385
	// DefaultRTDR0 is the resistance of a Pt1000 element at 0 degC.
	DefaultRTDR0 = 1000.0
	// DefaultSensorType is the thermocouple type assumed when none is given.
	DefaultSensorType = "K"

	// thermocoupleRange is the fixed DC-voltage range (in volts) forced for
	// thermocouple channels. Thermocouple emf never exceeds 100 mV.
	thermocoupleRange = 0.1
)

// RTDParams holds the calibration of an RTD channel. ColdJunction marks the
// channel as the reference-junction source: every read of it updates the
// session's cold-junction temperature used by thermocouple conversion.
type RTDParams struct {
	Alpha        float64
	R0           float64
	ColdJunction bool
}

// ThermocoupleParams holds the sensor type of a thermocouple channel.
type ThermocoupleParams struct {
	SensorType string
}

// ChannelConfig describes one measurement channel. Channels numbered 100 and
// above are relay-routed through the multiplexer card; lower numbers select
// internal instrument functions directly. A Range of 0 selects auto-ranging
// and an Aperture of 0 leaves the instrument's integration time unchanged.
type ChannelConfig struct {
	Func     Func
	Channel  int
	Range    float64
	Aperture float64

	// Exactly one of these is set, depending on Func.
	RTD          *RTDParams
	Thermocouple *ThermocoupleParams
}

// withDefaults fills in kind-specific parameters that were left unset.
func (cfg ChannelConfig) withDefaults() ChannelConfig {
	switch cfg.Func {
	case FuncRTD:
		if cfg.RTD == nil {
			cfg.RTD = &RTDParams{}
		}
		if cfg.RTD.Alpha == 0 {
			p := *cfg.RTD
			p.Alpha = DefaultRTDAlpha
			cfg.RTD = &p
		}
		if cfg.RTD.R0 == 0 {
			p := *cfg.RTD
			p.R0 = DefaultRTDR0
			cfg.RTD = &p
		}
	case FuncThermocouple:
		if cfg.Thermocouple == nil {
			cfg.Thermocouple = &ThermocoupleParams{}
		}
		if cfg.Thermocouple.SensorType == "" {
			p := *cfg.Thermocouple
			p.SensorType = DefaultSensorType
			cfg.Thermocouple = &p
		}
	}
	return cfg
}

// Channel is a named channel descriptor for use in a Registry.
type Channel struct {
	Name string
	ChannelConfig
}

// NewChannel creates a named channel for a plain measurement function.
func NewChannel(name string, fn Func, ch int) Channel {
	return Channel{Name: name, ChannelConfig: ChannelConfig{Func: fn, Channel: ch}}
}

// NewRTD creates a named RTD channel.
func NewRTD(name string, ch int, params RTDParams) Channel {
	return Channel{Name: name, ChannelConfig: ChannelConfig{
		Func:    FuncRTD,
		Channel: ch,
		RTD:     &params,
	}}
}

// NewThermocouple creates a named thermocouple channel.
func NewThermocouple(name string, ch int, params ThermocoupleParams) Channel {
	return Channel{Name: name, ChannelConfig: ChannelConfig{
		Func:         FuncThermocouple,
		Channel:      ch,
		Thermocouple: &params,
	}}
}

// Registry is an ordered list of channel descriptors bound to one
// instrument session. Declaration order determines read order and the
// column order of the output file.
type Registry struct {
	Name     string
	Channels []Channel
}

// Setup registers every channel with the client in declaration order and
// returns the assigned channel numbers.
func (r *Registry) Setup(c *Client) ([]int, error) {
	chans := make([]int, 0, len(r.Channels))
	for _, ch := range r.Channels {
		n, err := c.AddChannel(ch.ChannelConfig)
		if err != nil {
			return nil, fmt.Errorf("setup of channel %q: %w", ch.Name, err)
		}
		chans = append(chans, n)
	}
	return chans, nil
}

// Titles returns the channel display names in declaration order.
func (r *Registry) Titles() []string {
	titles := make([]string, len(r.Channels))
	for i, ch := range r.Channels {
		titles[i] = ch.Name
	}
	return titles
}

// ThermocoupleBlock is the standard thermocouple-block measurement setup: a
// Pt1000 RTD on the block acting as the cold-junction reference, followed
// by type K thermocouples on multiplexer channels 112 through 116.
func ThermocoupleBlock() *Registry {
	return &Registry{
		Name: "thermoblock",
		Channels: []Channel{
			NewRTD("RTD", 106, RTDParams{Alpha: DefaultRTDAlpha, R0: DefaultRTDR0, ColdJunction: true}),
			NewThermocouple("T12", 112, ThermocoupleParams{SensorType: "K"}),
			NewThermocouple("T13", 113, ThermocoupleParams{SensorType: "K"}),
			NewThermocouple("T14", 114, ThermocoupleParams{SensorType: "K"}),
			NewThermocouple("T15", 115, ThermocoupleParams{SensorType: "K"}),
			NewThermocouple("T16", 116, ThermocoupleParams{SensorType: "K"}),
		},
	}
}
