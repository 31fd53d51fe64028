package wizard

import (
	"fmt"
	"strings"

	integration "github.com/goliatone/go-integration"
	"github.com/goliatone/go-integration/mapping"
)

const (
	GuardSystemSelected      = "system_selected"
	GuardCredentialsComplete = "credentials_complete"
	GuardRequiredMapped      = "required_mapped"
	GuardPipelineIdle        = "pipeline_idle"
)

// GuardInput is what a guard sees. Draft is a copy.
type GuardInput struct {
	Step            Step
	Draft           *integration.Draft
	Schema          mapping.Schema
	PipelineRunning bool
}

// Guard is a pure predicate over the session state.
type Guard func(GuardInput) bool

// GuardRegistry stores named guard functions.
type GuardRegistry struct {
	guards map[string]Guard
}

// NewGuardRegistry creates an empty registry.
func NewGuardRegistry() *GuardRegistry {
	return &GuardRegistry{guards: make(map[string]Guard)}
}

// DefaultGuards registers the step validation predicates.
func DefaultGuards() *GuardRegistry {
	g := NewGuardRegistry()
	_ = g.Register(GuardSystemSelected, SystemSelected)
	_ = g.Register(GuardCredentialsComplete, CredentialsComplete)
	_ = g.Register(GuardRequiredMapped, RequiredMapped)
	_ = g.Register(GuardPipelineIdle, PipelineIdle)
	return g
}

// Register stores a guard by name.
func (g *GuardRegistry) Register(name string, guard Guard) error {
	name = strings.TrimSpace(name)
	if name == "" || guard == nil {
		return nil
	}
	if g.guards == nil {
		g.guards = make(map[string]Guard)
	}
	if _, exists := g.guards[name]; exists {
		return fmt.Errorf("guard %s already registered", name)
	}
	g.guards[name] = guard
	return nil
}

// Lookup retrieves a guard by name.
func (g *GuardRegistry) Lookup(name string) (Guard, bool) {
	if g == nil {
		return nil, false
	}
	fn, ok := g.guards[name]
	return fn, ok
}

// SystemSelected: a system type is chosen and the trimmed name is non-empty.
func SystemSelected(in GuardInput) bool {
	return in.Draft != nil &&
		in.Draft.SystemType.Valid() &&
		strings.TrimSpace(in.Draft.SystemName) != ""
}

// CredentialsComplete: every field the selected variant requires is set.
func CredentialsComplete(in GuardInput) bool {
	return in.Draft != nil && integration.CredentialsComplete(in.Draft.Credentials)
}

// RequiredMapped: every required canonical field has a mapping.
func RequiredMapped(in GuardInput) bool {
	if in.Draft == nil || in.Schema == nil {
		return false
	}
	return mapping.RequiredSatisfied(in.Schema.Fields(), in.Draft.FieldMappings)
}

func PipelineIdle(in GuardInput) bool {
	return !in.PipelineRunning
}
