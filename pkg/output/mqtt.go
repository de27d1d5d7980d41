package output

import (
	"encoding/json"
	"fmt"
	"math"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lsgunth/dtdatalog/pkg/datalog"
)

const (
	// DefaultTopic is the state topic used when none is configured.
	DefaultTopic = "dtdatalog/samples"
	// DefaultClientID identifies this logger to the broker.
	DefaultClientID = "dtdatalog"
)

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Server   string
	ClientID string
	Topic    string
	Username string
	Password string
}

// Ensure MQTT implements datalog.Output.
var _ datalog.Output = (*MQTT)(nil)

// MQTT publishes every sample as a JSON payload to a single state topic.
type MQTT struct {
	client mqtt.Client
	topic  string
	titles []string
}

// NewMQTT connects to the broker and returns a sample publisher.
func NewMQTT(cfg MQTTConfig, titles []string) (*MQTT, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	return &MQTT{client: client, topic: cfg.Topic, titles: titles}, nil
}

// Publish sends {"elapsed": ..., "readings": {name: value}} with invalid
// (NaN) readings encoded as JSON null.
func (m *MQTT) Publish(s datalog.Sample) error {
	payload, err := m.payload(s)
	if err != nil {
		return err
	}

	token := m.client.Publish(m.topic, 0, false, payload)
	token.Wait()
	return token.Error()
}

func (m *MQTT) payload(s datalog.Sample) ([]byte, error) {
	readings := make(map[string]any, len(s.Values))
	for i, v := range s.Values {
		name := fmt.Sprintf("ch%d", i)
		if i < len(m.titles) {
			name = m.titles[i]
		}
		if math.IsNaN(v) {
			readings[name] = nil
		} else {
			readings[name] = v
		}
	}

	return json.Marshal(map[string]any{
		"elapsed":  s.Elapsed,
		"readings": readings,
	})
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}
