package catalog

import (
	"strings"

	integration "github.com/goliatone/go-integration"
)

// DataType is the value type of a canonical field.
type DataType string

const (
	DataTypeText    DataType = "text"
	DataTypeDate    DataType = "date"
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeEnum    DataType = "enum"
)

func (d DataType) Valid() bool {
	switch d {
	case DataTypeText, DataTypeDate, DataTypeNumber, DataTypeBoolean, DataTypeEnum:
		return true
	}
	return false
}

func normalizeDataType(d DataType) DataType {
	return DataType(strings.ToLower(strings.TrimSpace(string(d))))
}

// CanonicalField is a normalized, system-agnostic attribute every source
// system maps onto.
type CanonicalField struct {
	ID          string   `json:"id" yaml:"id"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	Required    bool     `json:"required" yaml:"required"`
	DataType    DataType `json:"data_type" yaml:"data_type"`
}

// MappingTemplate is a named preset mapping canonical field ids to source field names.
type MappingTemplate struct {
	ID          string            `json:"id" yaml:"id"`
	DisplayName string            `json:"display_name" yaml:"display_name"`
	Connector   string            `json:"connector,omitempty" yaml:"connector,omitempty"`
	Mappings    map[string]string `json:"mappings" yaml:"mappings"`
}

// Clone returns a copy whose Mappings can be mutated freely.
func (t MappingTemplate) Clone() MappingTemplate {
	out := t
	out.Mappings = make(map[string]string, len(t.Mappings))
	for k, v := range t.Mappings {
		out.Mappings[k] = v
	}
	return out
}

// ConnectorType is an entry of the connector catalog shown on the system-type
// step and in the "request a connection" flow.
type ConnectorType struct {
	ID          string                 `json:"id" yaml:"id"`
	DisplayName string                 `json:"display_name" yaml:"display_name"`
	Category    integration.SystemType `json:"category" yaml:"category"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
}
