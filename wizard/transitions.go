package wizard

import (
	"fmt"
	"strings"
)

// Transition is one row of the wizard transition table.
type Transition struct {
	Event  Event
	From   Step
	To     Step
	Guards []string
}

func (t Transition) ID() string {
	return fmt.Sprintf("%s:%s->%s", t.Event, t.From, t.To)
}

// DefaultTransitions is the strictly linear table: forward moves are gated on
// the current step's predicate, backward moves only on the pipeline being idle.
func DefaultTransitions() []Transition {
	return []Transition{
		{Event: EventAdvance, From: StepSystemType, To: StepAuthentication, Guards: []string{GuardSystemSelected}},
		{Event: EventAdvance, From: StepAuthentication, To: StepFieldMapping, Guards: []string{GuardCredentialsComplete}},
		{Event: EventAdvance, From: StepFieldMapping, To: StepSyncTest, Guards: []string{GuardRequiredMapped}},
		{Event: EventRetreat, From: StepAuthentication, To: StepSystemType, Guards: []string{GuardPipelineIdle}},
		{Event: EventRetreat, From: StepFieldMapping, To: StepAuthentication, Guards: []string{GuardPipelineIdle}},
		{Event: EventRetreat, From: StepSyncTest, To: StepFieldMapping, Guards: []string{GuardPipelineIdle}},
	}
}

// transitionTable indexes transitions by event and source step.
type transitionTable map[Event]map[Step]Transition

func compileTransitions(transitions []Transition, guards *GuardRegistry) (transitionTable, error) {
	table := make(transitionTable)
	for idx, t := range transitions {
		if t.Event != EventAdvance && t.Event != EventRetreat {
			return nil, fmt.Errorf("transitions[%d]: unknown event %q", idx, t.Event)
		}
		if !t.From.Valid() || !t.To.Valid() {
			return nil, fmt.Errorf("transitions[%d]: invalid step", idx)
		}
		if t.Event == EventAdvance && t.To != t.From+1 {
			return nil, fmt.Errorf("transitions[%d]: advance must move exactly one step forward", idx)
		}
		if t.Event == EventRetreat && t.To != t.From-1 {
			return nil, fmt.Errorf("transitions[%d]: retreat must move exactly one step back", idx)
		}
		for _, name := range t.Guards {
			if _, ok := guards.Lookup(strings.TrimSpace(name)); !ok {
				return nil, fmt.Errorf("transitions[%d]: guard %s not registered", idx, name)
			}
		}
		byStep, ok := table[t.Event]
		if !ok {
			byStep = make(map[Step]Transition)
			table[t.Event] = byStep
		}
		if _, dup := byStep[t.From]; dup {
			return nil, fmt.Errorf("transitions[%d]: duplicate %s from %s", idx, t.Event, t.From)
		}
		t.Guards = append([]string(nil), t.Guards...)
		byStep[t.From] = t
	}
	return table, nil
}

func (tt transitionTable) lookup(event Event, from Step) (Transition, bool) {
	t, ok := tt[event][from]
	return t, ok
}
