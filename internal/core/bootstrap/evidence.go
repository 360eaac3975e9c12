// Package bootstrap inspects the host at startup and recommends how far
// ipscope may go: which mode to run in, whether nmap can run privileged, and
// which local subnets are candidates for scanning.
package bootstrap

import (
	"sort"
	"strconv"
	"sync/atomic"
)

// Category classifies evidence
type Category string

const (
	CategoryPermissions Category = "permissions"
	CategoryCapability  Category = "capability"
	CategoryNetwork     Category = "network"
)

var evidenceSeq atomic.Uint64

// Evidence is a single finding about the host
type Evidence struct {
	ID         string         `json:"id"`
	Category   Category       `json:"category"`
	Property   string         `json:"property"`
	Value      any            `json:"value"`
	Confidence float64        `json:"confidence"` // 0.0-1.0
	Method     string         `json:"method"`     // e.g. "ping -c 1 127.0.0.1 succeeded"
	Raw        map[string]any `json:"raw,omitempty"`
}

// NewEvidence creates evidence with a process-unique ID
func NewEvidence(cat Category, prop string, value any, conf float64, method string) Evidence {
	return Evidence{
		ID:         string(cat) + "/" + prop + "#" + strconv.FormatUint(evidenceSeq.Add(1), 10),
		Category:   cat,
		Property:   prop,
		Value:      value,
		Confidence: conf,
		Method:     method,
	}
}

// WithRaw attaches raw data and returns the evidence
func (e Evidence) WithRaw(raw map[string]any) Evidence {
	e.Raw = raw
	return e
}

// EvidenceSet aggregates findings
type EvidenceSet struct {
	items []Evidence
}

// NewEvidenceSet creates an empty set
func NewEvidenceSet() *EvidenceSet {
	return &EvidenceSet{}
}

// Add appends evidence
func (es *EvidenceSet) Add(items ...Evidence) {
	es.items = append(es.items, items...)
}

// All returns every item
func (es *EvidenceSet) All() []Evidence {
	return es.items
}

// Count returns the number of items
func (es *EvidenceSet) Count() int {
	return len(es.items)
}

// ByProperty returns all evidence for a property
func (es *EvidenceSet) ByProperty(cat Category, prop string) []Evidence {
	var result []Evidence
	for _, e := range es.items {
		if e.Category == cat && e.Property == prop {
			result = append(result, e)
		}
	}
	return result
}

// BestValue returns the highest-confidence value for a property
func (es *EvidenceSet) BestValue(cat Category, prop string) (any, float64, bool) {
	var best Evidence
	found := false
	for _, e := range es.items {
		if e.Category == cat && e.Property == prop && (!found || e.Confidence > best.Confidence) {
			best = e
			found = true
		}
	}
	if !found {
		return nil, 0, false
	}
	return best.Value, best.Confidence, true
}

// Bool returns the best value of a boolean property, false when absent
func (es *EvidenceSet) Bool(cat Category, prop string) bool {
	v, _, ok := es.BestValue(cat, prop)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// AggregateConfidence combines corroborating evidence: the maximum plus a
// decaying bonus per extra source, capped at 0.99
func (es *EvidenceSet) AggregateConfidence(cat Category, prop string) float64 {
	var confidences []float64
	for _, e := range es.ByProperty(cat, prop) {
		confidences = append(confidences, e.Confidence)
	}
	if len(confidences) == 0 {
		return 0
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(confidences)))
	result := confidences[0]
	for i := 1; i < len(confidences); i++ {
		result += confidences[i] * 0.1 / float64(i)
	}
	if result > 0.99 {
		result = 0.99
	}
	return result
}
