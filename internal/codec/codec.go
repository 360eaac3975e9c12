// Package codec renders the live inventory in formats other tools consume.
package codec

import (
	"io"
	"sort"

	"ipscope/internal/domain"
)

// Exporter writes live state in one format
type Exporter interface {
	Export(states []domain.ObservedState, w io.Writer) error
	Format() string
	ContentType() string
}

// Registry looks exporters up by format name
type Registry struct {
	exporters map[string]Exporter
}

// NewRegistry creates a registry holding exporters
func NewRegistry(exporters ...Exporter) *Registry {
	r := &Registry{exporters: make(map[string]Exporter, len(exporters))}
	for _, e := range exporters {
		r.exporters[e.Format()] = e
	}
	return r
}

// DefaultRegistry holds the JSON, YAML and Ansible exporters
func DefaultRegistry() *Registry {
	return NewRegistry(NewJSONCodec(), NewYAMLCodec(), NewAnsibleCodec())
}

// Get returns the exporter for format
func (r *Registry) Get(format string) (Exporter, bool) {
	e, ok := r.exporters[format]
	return e, ok
}

// Formats lists the registered format names, sorted
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.exporters))
	for name := range r.exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
