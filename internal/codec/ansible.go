package codec

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"ipscope/internal/domain"
)

// AnsibleCodec exports Up hosts as an Ansible YAML inventory, one group per vendor
type AnsibleCodec struct{}

// NewAnsibleCodec creates a new Ansible codec
func NewAnsibleCodec() *AnsibleCodec {
	return &AnsibleCodec{}
}

// Format returns the codec format identifier
func (c *AnsibleCodec) Format() string {
	return "ansible"
}

// ContentType returns the MIME type of the output
func (c *AnsibleCodec) ContentType() string {
	return "application/yaml"
}

type ansibleInventory struct {
	All ansibleGroup `yaml:"all"`
}

type ansibleGroup struct {
	Children map[string]ansibleGroupDef `yaml:"children,omitempty"`
}

type ansibleGroupDef struct {
	Hosts map[string]ansibleHost `yaml:"hosts"`
}

type ansibleHost struct {
	AnsibleHost string `yaml:"ansible_host"`
	MACAddress  string `yaml:"mac_address,omitempty"`
	Vendor      string `yaml:"vendor,omitempty"`
}

// Export writes the inventory. Hosts are keyed by name when the name is a
// usable inventory hostname, otherwise by address.
func (c *AnsibleCodec) Export(states []domain.ObservedState, w io.Writer) error {
	inv := ansibleInventory{
		All: ansibleGroup{Children: make(map[string]ansibleGroupDef)},
	}

	for _, s := range states {
		if s.Status != domain.StatusUp {
			continue
		}

		group := groupName(s.Vendor)
		def, ok := inv.All.Children[group]
		if !ok {
			def = ansibleGroupDef{Hosts: make(map[string]ansibleHost)}
			inv.All.Children[group] = def
		}

		host := ansibleHost{AnsibleHost: s.Address}
		if s.MAC != domain.NoMAC {
			host.MACAddress = s.MAC
		}
		if s.Vendor != domain.UnknownVendor {
			host.Vendor = s.Vendor
		}

		key := s.Address
		if isInventoryName(s.Name) {
			if _, taken := def.Hosts[s.Name]; !taken {
				key = s.Name
			}
		}
		def.Hosts[key] = host
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(&inv); err != nil {
		return fmt.Errorf("failed to encode Ansible inventory: %w", err)
	}
	return nil
}

// groupName turns a vendor into a valid Ansible group name
func groupName(vendor string) string {
	if vendor == "" || vendor == domain.UnknownVendor {
		return "vendor_unknown"
	}

	var b strings.Builder
	b.WriteString("vendor_")
	underscore := true
	for _, r := range strings.ToLower(vendor) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		case !underscore:
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func isInventoryName(name string) bool {
	if name == "" || name == domain.UnknownName {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '.' || r == '_') {
			return false
		}
	}
	return true
}
