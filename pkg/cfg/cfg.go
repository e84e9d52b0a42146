package cfg

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AlessandroAnnini/midi-controller/pkg/ctrl"
)

const DefaultDebounceMs = 10

// Configuration is the persistent configuration of the mirror: which port to
// listen on, the debounce window, and the per-control value transformers.
type Configuration struct {
	PortNumber   int                                       `json:"port_number,omitempty"`
	PortName     string                                    `json:"port_name,omitempty"`
	DebounceMs   *int                                      `json:"debounce_ms,omitempty"`
	Transformers map[ctrl.ControlID]ctrl.TransformerConfig `json:"transformers,omitempty"`
}

// Default returns the configuration used when no file is present: all ports,
// the default debounce window, identity transformers.
func Default() Configuration {
	return Configuration{
		PortNumber: -1,
	}
}

// ReadFile reads and validates the configuration from the given file.
func ReadFile(filename string) (Configuration, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Configuration{}, err
	}
	defer f.Close()

	result, err := Read(f)
	if err != nil {
		return Configuration{}, fmt.Errorf("cannot read configuration file %s: %w", filename, err)
	}
	return result, nil
}

// Read reads and validates a configuration. Invalid transformer entries are
// rejected here, before any message is processed.
func Read(r io.Reader) (Configuration, error) {
	var result Configuration

	bytes, err := io.ReadAll(r)
	if err != nil {
		return Configuration{}, err
	}

	err = json.Unmarshal(bytes, &result)
	if err != nil {
		return Configuration{}, err
	}

	if err := result.TransformerConfigs().Validate(); err != nil {
		return Configuration{}, err
	}
	if result.DebounceMs != nil && *result.DebounceMs < 0 {
		return Configuration{}, fmt.Errorf("invalid debounce window %dms: must not be negative", *result.DebounceMs)
	}

	return result, nil
}

// Window returns the configured debounce window.
func (c Configuration) Window() time.Duration {
	if c.DebounceMs == nil {
		return DefaultDebounceMs * time.Millisecond
	}
	return time.Duration(*c.DebounceMs) * time.Millisecond
}

// TransformerConfigs returns the per-control transformers.
func (c Configuration) TransformerConfigs() ctrl.Transformers {
	result := make(ctrl.Transformers, len(c.Transformers))
	for id, config := range c.Transformers {
		result[id] = config
	}
	return result
}
