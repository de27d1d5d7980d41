package keithley

import "fmt"

// Source binds a Registry to a Client session and exposes it as a sample
// source for the data logger: one capture reads every registered channel in
// declaration order.
type Source struct {
	client   *Client
	registry *Registry
	channels []int
}

// NewSource registers every channel of the registry with the client and
// returns a source that captures them in declaration order.
func NewSource(client *Client, registry *Registry) (*Source, error) {
	chans, err := registry.Setup(client)
	if err != nil {
		return nil, fmt.Errorf("registry %q: %w", registry.Name, err)
	}
	return &Source{
		client:   client,
		registry: registry,
		channels: chans,
	}, nil
}

// Titles returns the column titles in capture order.
func (s *Source) Titles() []string {
	return s.registry.Titles()
}

// CaptureSample reads every channel once, in registration order.
func (s *Source) CaptureSample() ([]float64, error) {
	values := make([]float64, 0, len(s.channels))
	for _, ch := range s.channels {
		v, err := s.client.ReadChannel(ch)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
