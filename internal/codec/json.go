package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"ipscope/internal/domain"
)

// JSONCodec exports the live table as a JSON array
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the MIME type of the output
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Export writes states as indented JSON
func (c *JSONCodec) Export(states []domain.ObservedState, w io.Writer) error {
	if states == nil {
		states = []domain.ObservedState{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(states); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
