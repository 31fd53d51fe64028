package catalog

import (
	"fmt"
	"os"

	integration "github.com/goliatone/go-integration"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a catalog (YAML or JSON).
type File struct {
	Version      int               `json:"version" yaml:"version"`
	Fields       []CanonicalField  `json:"fields" yaml:"fields"`
	Templates    []MappingTemplate `json:"templates,omitempty" yaml:"templates,omitempty"`
	Connectors   []ConnectorType   `json:"connectors,omitempty" yaml:"connectors,omitempty"`
	SourceFields []string          `json:"source_fields,omitempty" yaml:"source_fields,omitempty"`
}

// Parse decodes a catalog document. yaml can handle JSON too, so a single
// attempt is fine.
func Parse(data []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, integration.CloneError(integration.ErrValidation, "parse catalog", err, nil)
	}
	if len(f.Fields) == 0 {
		return nil, integration.CloneError(integration.ErrValidation, "catalog requires at least one field", nil, nil)
	}
	return New(f.Fields, f.Templates, f.Connectors, f.SourceFields)
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

// Export converts a catalog back to its file shape.
func Export(c *Catalog) File {
	return File{
		Version:      1,
		Fields:       c.Fields(),
		Templates:    c.Templates(),
		Connectors:   c.Connectors(),
		SourceFields: c.SourceFields(),
	}
}
