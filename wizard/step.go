package wizard

import "fmt"

// Step is a state of the linear wizard.
type Step int

const (
	StepSystemType Step = iota + 1
	StepAuthentication
	StepFieldMapping
	StepSyncTest
)

var stepNames = map[Step]string{
	StepSystemType:     "system_type",
	StepAuthentication: "authentication",
	StepFieldMapping:   "field_mapping",
	StepSyncTest:       "sync_test",
}

var stepTitles = map[Step]string{
	StepSystemType:     "System Type",
	StepAuthentication: "Authentication",
	StepFieldMapping:   "Field Mapping",
	StepSyncTest:       "Sync Test",
}

// Steps lists the wizard steps in order.
func Steps() []Step {
	return []Step{StepSystemType, StepAuthentication, StepFieldMapping, StepSyncTest}
}

func (s Step) Valid() bool {
	_, ok := stepNames[s]
	return ok
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

func (s Step) Title() string {
	if title, ok := stepTitles[s]; ok {
		return title
	}
	return s.String()
}

// Event drives a transition.
type Event string

const (
	EventAdvance Event = "advance"
	EventRetreat Event = "retreat"
)
