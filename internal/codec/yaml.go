package codec

import (
	"fmt"
	"io"

	"archsketch/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Parse imports a specification from YAML
func (c *YAMLCodec) Parse(r io.Reader) (*domain.Specification, error) {
	var spec domain.Specification
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return spec.Clone(), nil
}

// Export exports a specification to YAML
func (c *YAMLCodec) Export(spec *domain.Specification, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(spec); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
