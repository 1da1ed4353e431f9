package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"archsketch/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Parse imports a specification from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.Specification, error) {
	var spec domain.Specification
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	return spec.Clone(), nil
}

// Export exports a specification to JSON
func (c *JSONCodec) Export(spec *domain.Specification, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(spec); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
