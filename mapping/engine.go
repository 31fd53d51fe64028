package mapping

import (
	"fmt"
	"sort"
	"strings"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/catalog"
)

// NoMapping is the sentinel passed to SetMapping to remove a field's mapping.
const NoMapping = "no-mapping"

// Schema is the reference data the engine reads: the canonical schema and
// the template catalog. *catalog.Catalog satisfies it.
type Schema interface {
	Fields() []catalog.CanonicalField
	Field(id string) (catalog.CanonicalField, bool)
	Template(id string) (catalog.MappingTemplate, bool)
}

// Completeness is an informational mapped/total count over the canonical schema.
type Completeness struct {
	Mapped int
	Total  int
}

func (c Completeness) Percent() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Mapped) * 100 / float64(c.Total)
}

// Engine maintains the canonical to source field mapping of a draft. Its only
// side effect is mutating the draft's FieldMappings.
type Engine struct {
	schema       Schema
	draft        *integration.Draft
	lastTemplate string
	logger       integration.Logger
}

type Option func(*Engine)

func WithLogger(logger integration.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func NewEngine(schema Schema, draft *integration.Draft, opts ...Option) *Engine {
	if draft == nil {
		draft = integration.NewDraft()
	}
	if draft.FieldMappings == nil {
		draft.FieldMappings = make(map[string]string)
	}
	e := &Engine{schema: schema, draft: draft}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.logger = integration.NormalizeLogger(e.logger)
	return e
}

// ApplyTemplate replaces the whole mapping with the template's mapping. It is
// not a merge: manual edits made before are discarded. Unknown ids return
// ErrInvalidTemplate and leave the mapping untouched.
func (e *Engine) ApplyTemplate(templateID string) error {
	tpl, ok := e.schema.Template(templateID)
	if !ok {
		return integration.CloneError(
			integration.ErrInvalidTemplate,
			fmt.Sprintf("unknown mapping template %q", templateID),
			nil,
			map[string]any{"template_id": templateID},
		)
	}

	next := make(map[string]string, len(tpl.Mappings))
	for fieldID, source := range tpl.Mappings {
		next[fieldID] = source
	}
	e.draft.FieldMappings = next
	e.lastTemplate = tpl.ID

	e.logger.Debug("mapping template %s applied: %d fields", tpl.ID, len(next))
	e.warnDuplicates()
	return nil
}

// SetMapping upserts a mapping, or removes it when source is NoMapping or blank.
// Source names are not checked against any source schema.
func (e *Engine) SetMapping(fieldID, source string) error {
	fieldID = strings.TrimSpace(fieldID)
	if _, ok := e.schema.Field(fieldID); !ok {
		return integration.CloneError(
			integration.ErrUnknownField,
			fmt.Sprintf("unknown canonical field %q", fieldID),
			nil,
			map[string]any{"field_id": fieldID},
		)
	}

	source = strings.TrimSpace(source)
	if source == "" || source == NoMapping {
		delete(e.draft.FieldMappings, fieldID)
		return nil
	}

	e.draft.FieldMappings[fieldID] = source
	e.warnDuplicates()
	return nil
}

// Mapping returns the source mapped to fieldID.
func (e *Engine) Mapping(fieldID string) (string, bool) {
	source, ok := e.draft.FieldMappings[fieldID]
	return source, ok
}

// Mappings returns a copy of the current mapping.
func (e *Engine) Mappings() map[string]string {
	out := make(map[string]string, len(e.draft.FieldMappings))
	for k, v := range e.draft.FieldMappings {
		out[k] = v
	}
	return out
}

// LastTemplate is the id of the last applied template, for highlighting only.
func (e *Engine) LastTemplate() string {
	return e.lastTemplate
}

// Clear drops every mapping and the last-template marker.
func (e *Engine) Clear() {
	e.draft.FieldMappings = make(map[string]string)
	e.lastTemplate = ""
}

func (e *Engine) Completeness() Completeness {
	return ComputeCompleteness(e.schema.Fields(), e.draft.FieldMappings)
}

func (e *Engine) RequiredSatisfied() bool {
	return RequiredSatisfied(e.schema.Fields(), e.draft.FieldMappings)
}

func (e *Engine) MissingRequired() []string {
	return MissingRequired(e.schema.Fields(), e.draft.FieldMappings)
}

func (e *Engine) DuplicateSources() map[string][]string {
	return DuplicateSources(e.draft.FieldMappings)
}

// ApplySuggestions fills unmapped fields with suggestions scoring at least
// minScore. Existing mappings are never overwritten.
func (e *Engine) ApplySuggestions(sourceFields []string, minScore float64) []Suggestion {
	var unmapped []catalog.CanonicalField
	taken := make(map[string]struct{}, len(e.draft.FieldMappings))
	for _, source := range e.draft.FieldMappings {
		taken[source] = struct{}{}
	}
	for _, f := range e.schema.Fields() {
		if strings.TrimSpace(e.draft.FieldMappings[f.ID]) == "" {
			unmapped = append(unmapped, f)
		}
	}
	var free []string
	for _, s := range sourceFields {
		if _, ok := taken[s]; !ok {
			free = append(free, s)
		}
	}

	var applied []Suggestion
	for _, s := range Suggest(unmapped, free) {
		if s.Score < minScore {
			continue
		}
		e.draft.FieldMappings[s.FieldID] = s.Source
		applied = append(applied, s)
	}
	return applied
}

func (e *Engine) warnDuplicates() {
	for source, fields := range e.DuplicateSources() {
		e.logger.Warn("source field %s mapped to several canonical fields: %s", source, strings.Join(fields, ","))
	}
}

// ComputeCompleteness counts non-empty mappings over the schema.
func ComputeCompleteness(fields []catalog.CanonicalField, mappings map[string]string) Completeness {
	c := Completeness{Total: len(fields)}
	for _, f := range fields {
		if strings.TrimSpace(mappings[f.ID]) != "" {
			c.Mapped++
		}
	}
	return c
}

// RequiredSatisfied reports whether every required field has a non-empty mapping.
func RequiredSatisfied(fields []catalog.CanonicalField, mappings map[string]string) bool {
	return len(MissingRequired(fields, mappings)) == 0
}

// MissingRequired lists unmapped required field ids in schema order.
func MissingRequired(fields []catalog.CanonicalField, mappings map[string]string) []string {
	var out []string
	for _, f := range fields {
		if f.Required && strings.TrimSpace(mappings[f.ID]) == "" {
			out = append(out, f.ID)
		}
	}
	return out
}

// DuplicateSources groups canonical field ids sharing the same source field.
// Only sources used more than once are returned; field ids are sorted.
func DuplicateSources(mappings map[string]string) map[string][]string {
	bySource := make(map[string][]string)
	for fieldID, source := range mappings {
		if source == "" {
			continue
		}
		bySource[source] = append(bySource[source], fieldID)
	}
	out := make(map[string][]string)
	for source, ids := range bySource {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		out[source] = ids
	}
	return out
}
