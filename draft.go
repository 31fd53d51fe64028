package integration

import (
	"fmt"
	"strings"
)

// SystemType is the category of the external system being connected.
type SystemType string

const (
	SystemTypeNone       SystemType = ""
	SystemTypeCRM        SystemType = "crm"
	SystemTypeBilling    SystemType = "billing"
	SystemTypeEMR        SystemType = "emr"
	SystemTypeMarketing  SystemType = "marketing"
	SystemTypeOperations SystemType = "operations"
	SystemTypeOther      SystemType = "other"
)

var systemTypeNames = map[SystemType]string{
	SystemTypeCRM:        "CRM",
	SystemTypeBilling:    "Billing",
	SystemTypeEMR:        "EMR/Clinical",
	SystemTypeMarketing:  "Marketing",
	SystemTypeOperations: "Operations",
	SystemTypeOther:      "Other",
}

// SystemTypes lists the selectable system types in display order.
func SystemTypes() []SystemType {
	return []SystemType{
		SystemTypeCRM,
		SystemTypeBilling,
		SystemTypeEMR,
		SystemTypeMarketing,
		SystemTypeOperations,
		SystemTypeOther,
	}
}

func (s SystemType) Valid() bool {
	_, ok := systemTypeNames[s]
	return ok
}

func (s SystemType) DisplayName() string {
	if name, ok := systemTypeNames[s]; ok {
		return name
	}
	return string(s)
}

func ParseSystemType(raw string) (SystemType, error) {
	st := SystemType(strings.ToLower(strings.TrimSpace(raw)))
	if st == "clinical" {
		st = SystemTypeEMR
	}
	if !st.Valid() {
		return SystemTypeNone, CloneError(ErrValidation, fmt.Sprintf("unknown system type %q", raw), nil, nil)
	}
	return st, nil
}

// TestResult is written by the verification pipeline only.
type TestResult struct {
	Success     bool     `json:"success" yaml:"success"`
	RecordCount *int     `json:"record_count,omitempty" yaml:"record_count,omitempty"`
	Errors      []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func (r *TestResult) Clone() *TestResult {
	if r == nil {
		return nil
	}
	out := &TestResult{Success: r.Success}
	if r.RecordCount != nil {
		n := *r.RecordCount
		out.RecordCount = &n
	}
	if len(r.Errors) > 0 {
		out.Errors = append([]string(nil), r.Errors...)
	}
	return out
}

// Draft is the configuration accumulated across the wizard steps.
type Draft struct {
	SystemType    SystemType        `json:"system_type" yaml:"system_type"`
	SystemName    string            `json:"system_name" yaml:"system_name"`
	Credentials   Credentials       `json:"credentials,omitempty" yaml:"-"`
	FieldMappings map[string]string `json:"field_mappings" yaml:"field_mappings"`
	TestResult    *TestResult       `json:"test_result,omitempty" yaml:"test_result,omitempty"`
}

// NewDraft returns the empty initial draft.
func NewDraft() *Draft {
	return &Draft{FieldMappings: make(map[string]string)}
}

// Clone returns a deep copy. Credential variants are values so they copy by assignment.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := &Draft{
		SystemType:    d.SystemType,
		SystemName:    d.SystemName,
		Credentials:   d.Credentials,
		FieldMappings: make(map[string]string, len(d.FieldMappings)),
		TestResult:    d.TestResult.Clone(),
	}
	for k, v := range d.FieldMappings {
		out.FieldMappings[k] = v
	}
	return out
}

// Redacted returns a copy safe for logs and summaries.
func (d *Draft) Redacted() *Draft {
	out := d.Clone()
	if out != nil && out.Credentials != nil {
		out.Credentials = out.Credentials.Redacted()
	}
	return out
}

// CredentialKind returns the selected credential variant, if any.
func (d *Draft) CredentialKind() CredentialKind {
	if d == nil || d.Credentials == nil {
		return CredentialKindNone
	}
	return d.Credentials.Kind()
}
