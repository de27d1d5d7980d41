// Package config loads and saves the logger's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig    `yaml:"serial"`
	Log      LogConfig       `yaml:"log"`
	Channels []ChannelConfig `yaml:"channels"`
	Outputs  OutputsConfig   `yaml:"outputs"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// LogConfig controls output file naming and header metadata.
type LogConfig struct {
	Dir      string            `yaml:"dir"`
	Prefix   string            `yaml:"prefix"`
	Tag      string            `yaml:"tag"`
	Metadata map[string]string `yaml:"metadata"`
}

// ChannelConfig describes one measurement channel. Alpha, R0 and
// ColdJunction apply to RTD channels; SensorType to thermocouples. A zero
// Range selects auto-ranging and a zero Aperture leaves the instrument's
// integration time unchanged.
type ChannelConfig struct {
	Name         string  `yaml:"name"`
	Function     string  `yaml:"function"`
	Channel      int     `yaml:"channel"`
	Range        float64 `yaml:"range"`
	Aperture     float64 `yaml:"aperture"`
	Alpha        float64 `yaml:"alpha"`
	R0           float64 `yaml:"r0"`
	ColdJunction bool    `yaml:"cold_junction"`
	SensorType   string  `yaml:"sensor_type"`
}

// OutputsConfig enables live sample forwarding.
type OutputsConfig struct {
	Console bool       `yaml:"console"`
	MQTT    MQTTConfig `yaml:"mqtt"`
}

// MQTTConfig contains MQTT broker settings.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Server   string `yaml:"server"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the standard thermocouple-block measurement setup.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyUSB0",
			BaudRate:    19200,
			ReadTimeout: 2 * time.Second,
		},
		Log: LogConfig{
			Tag: "thermoblock",
		},
		Channels: []ChannelConfig{
			{Name: "RTD", Function: "RTD", Channel: 106, Alpha: 0.00385, R0: 1000, ColdJunction: true},
			{Name: "T12", Function: "THERMOCOUPLE", Channel: 112, SensorType: "K"},
			{Name: "T13", Function: "THERMOCOUPLE", Channel: 113, SensorType: "K"},
			{Name: "T14", Function: "THERMOCOUPLE", Channel: 114, SensorType: "K"},
			{Name: "T15", Function: "THERMOCOUPLE", Channel: 115, SensorType: "K"},
			{Name: "T16", Function: "THERMOCOUPLE", Channel: 116, SensorType: "K"},
		},
		Outputs: OutputsConfig{
			MQTT: MQTTConfig{
				Server:   "tcp://localhost:1883",
				ClientID: "dtdatalog",
				Topic:    "dtdatalog/samples",
			},
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if len(c.Channels) == 0 {
		c.Channels = def.Channels
	}

	if c.Outputs.MQTT.Server == "" {
		c.Outputs.MQTT.Server = def.Outputs.MQTT.Server
	}
	if c.Outputs.MQTT.ClientID == "" {
		c.Outputs.MQTT.ClientID = def.Outputs.MQTT.ClientID
	}
	if c.Outputs.MQTT.Topic == "" {
		c.Outputs.MQTT.Topic = def.Outputs.MQTT.Topic
	}
}
