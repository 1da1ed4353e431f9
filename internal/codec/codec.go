// Package codec converts specifications to and from their wire formats.
//
// ModelOutput decodes untrusted language-model text into a candidate
// Specification. JSON and YAML codecs import and export specifications that
// have already been validated.
package codec

import (
	"io"

	"archsketch/internal/domain"
)

// Importer interface for importing specifications from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.Specification, error)
	Format() string
}

// Exporter interface for exporting specifications to various formats
type Exporter interface {
	Export(spec *domain.Specification, w io.Writer) error
	Format() string
}

// ForFormat returns the importer/exporter pair for "json" or "yaml"
func ForFormat(format string) (Importer, Exporter, bool) {
	switch format {
	case "json":
		c := NewJSONCodec()
		return c, c, true
	case "yaml", "yml":
		c := NewYAMLCodec()
		return c, c, true
	}
	return nil, nil, false
}
