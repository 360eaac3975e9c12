package codec

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"ipscope/internal/domain"
)

// YAMLCodec exports the live table as a YAML document
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the MIME type of the output
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

type yamlInventory struct {
	Hosts []yamlHost `yaml:"hosts"`
}

type yamlHost struct {
	IP          string `yaml:"ip"`
	Hostname    string `yaml:"hostname"`
	MACAddress  string `yaml:"mac_address"`
	Vendor      string `yaml:"vendor"`
	Status      string `yaml:"status"`
	LastChecked string `yaml:"last_checked"`
	LastUp      string `yaml:"last_up,omitempty"`
}

// Export writes states under a top-level hosts key
func (c *YAMLCodec) Export(states []domain.ObservedState, w io.Writer) error {
	inv := yamlInventory{Hosts: make([]yamlHost, 0, len(states))}
	for _, s := range states {
		h := yamlHost{
			IP:          s.Address,
			Hostname:    s.Name,
			MACAddress:  s.MAC,
			Vendor:      s.Vendor,
			Status:      string(s.Status),
			LastChecked: s.LastChecked.UTC().Format(time.RFC3339),
		}
		if s.LastUp != nil {
			h.LastUp = s.LastUp.UTC().Format(time.RFC3339)
		}
		inv.Hosts = append(inv.Hosts, h)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}
