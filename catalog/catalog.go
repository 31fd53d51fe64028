package catalog

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-errors"
	integration "github.com/goliatone/go-integration"
)

// Catalog bundles the read-only reference data consumed by the wizard:
// canonical schema, mapping templates, connector types and the illustrative
// list of source field names.
type Catalog struct {
	fields       []CanonicalField
	templates    []MappingTemplate
	connectors   []ConnectorType
	sourceFields []string

	fieldIdx     map[string]int
	templateIdx  map[string]int
	connectorIdx map[string]int
}

// New validates the inputs and builds an indexed catalog.
func New(fields []CanonicalField, templates []MappingTemplate, connectors []ConnectorType, sourceFields []string) (*Catalog, error) {
	c := &Catalog{
		fieldIdx:     make(map[string]int, len(fields)),
		templateIdx:  make(map[string]int, len(templates)),
		connectorIdx: make(map[string]int, len(connectors)),
	}

	var errs error
	for idx, f := range fields {
		f.ID = strings.TrimSpace(f.ID)
		f.DataType = normalizeDataType(f.DataType)
		if f.DataType == "" {
			f.DataType = DataTypeText
		}
		if err := validateField(f); err != nil {
			errs = errors.Join(errs, fmt.Errorf("fields[%d]: %w", idx, err))
			continue
		}
		if _, dup := c.fieldIdx[f.ID]; dup {
			errs = errors.Join(errs, fmt.Errorf("fields[%d]: duplicate field id %q", idx, f.ID))
			continue
		}
		c.fieldIdx[f.ID] = len(c.fields)
		c.fields = append(c.fields, f)
	}

	for idx, t := range templates {
		t = t.Clone()
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			errs = errors.Join(errs, fmt.Errorf("templates[%d]: id is required", idx))
			continue
		}
		if _, dup := c.templateIdx[t.ID]; dup {
			errs = errors.Join(errs, fmt.Errorf("templates[%d]: duplicate template id %q", idx, t.ID))
			continue
		}
		if strings.TrimSpace(t.DisplayName) == "" {
			t.DisplayName = t.ID
		}
		for fieldID, source := range t.Mappings {
			if _, ok := c.fieldIdx[fieldID]; !ok {
				errs = errors.Join(errs, fmt.Errorf("template %s: unknown canonical field %q", t.ID, fieldID))
			}
			if strings.TrimSpace(source) == "" {
				errs = errors.Join(errs, fmt.Errorf("template %s: empty source for %q", t.ID, fieldID))
			}
		}
		c.templateIdx[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}

	for idx, conn := range connectors {
		conn.ID = strings.TrimSpace(conn.ID)
		if conn.ID == "" {
			errs = errors.Join(errs, fmt.Errorf("connectors[%d]: id is required", idx))
			continue
		}
		if _, dup := c.connectorIdx[conn.ID]; dup {
			errs = errors.Join(errs, fmt.Errorf("connectors[%d]: duplicate connector id %q", idx, conn.ID))
			continue
		}
		if !conn.Category.Valid() {
			errs = errors.Join(errs, fmt.Errorf("connector %s: unknown category %q", conn.ID, conn.Category))
			continue
		}
		if strings.TrimSpace(conn.DisplayName) == "" {
			conn.DisplayName = conn.ID
		}
		c.connectorIdx[conn.ID] = len(c.connectors)
		c.connectors = append(c.connectors, conn)
	}

	for _, tpl := range c.templates {
		if tpl.Connector == "" {
			continue
		}
		if _, ok := c.connectorIdx[tpl.Connector]; !ok {
			errs = errors.Join(errs, fmt.Errorf("template %s: unknown connector %q", tpl.ID, tpl.Connector))
		}
	}

	seen := make(map[string]struct{}, len(sourceFields))
	for _, name := range sourceFields {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		c.sourceFields = append(c.sourceFields, name)
	}

	if errs != nil {
		return nil, integration.CloneError(integration.ErrValidation, "invalid catalog", errs, map[string]any{
			"fields":     len(fields),
			"templates":  len(templates),
			"connectors": len(connectors),
		})
	}
	return c, nil
}

func validateField(f CanonicalField) error {
	if f.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(f.DisplayName) == "" {
		return fmt.Errorf("field %s: display_name is required", f.ID)
	}
	if !f.DataType.Valid() {
		return fmt.Errorf("field %s: unknown data type %q", f.ID, f.DataType)
	}
	return nil
}

// Fields returns the canonical schema in order.
func (c *Catalog) Fields() []CanonicalField {
	if c == nil {
		return nil
	}
	return append([]CanonicalField(nil), c.fields...)
}

func (c *Catalog) Field(id string) (CanonicalField, bool) {
	if c == nil {
		return CanonicalField{}, false
	}
	idx, ok := c.fieldIdx[id]
	if !ok {
		return CanonicalField{}, false
	}
	return c.fields[idx], true
}

// RequiredFields returns the required canonical fields in schema order.
func (c *Catalog) RequiredFields() []CanonicalField {
	var out []CanonicalField
	for _, f := range c.Fields() {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

func (c *Catalog) Templates() []MappingTemplate {
	if c == nil {
		return nil
	}
	out := make([]MappingTemplate, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t.Clone())
	}
	return out
}

// Template looks a template up by id. The returned mappings are a copy.
func (c *Catalog) Template(id string) (MappingTemplate, bool) {
	if c == nil {
		return MappingTemplate{}, false
	}
	idx, ok := c.templateIdx[strings.TrimSpace(id)]
	if !ok {
		return MappingTemplate{}, false
	}
	return c.templates[idx].Clone(), true
}

func (c *Catalog) Connectors() []ConnectorType {
	if c == nil {
		return nil
	}
	return append([]ConnectorType(nil), c.connectors...)
}

func (c *Catalog) Connector(id string) (ConnectorType, bool) {
	if c == nil {
		return ConnectorType{}, false
	}
	idx, ok := c.connectorIdx[strings.TrimSpace(id)]
	if !ok {
		return ConnectorType{}, false
	}
	return c.connectors[idx], true
}

// ConnectorsByCategory filters connectors for a system type, keeping catalog order.
func (c *Catalog) ConnectorsByCategory(category integration.SystemType) []ConnectorType {
	var out []ConnectorType
	for _, conn := range c.Connectors() {
		if conn.Category == category {
			out = append(out, conn)
		}
	}
	return out
}

// SourceFields is the illustrative list of source field names offered for manual mapping.
func (c *Catalog) SourceFields() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.sourceFields...)
}
