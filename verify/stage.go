package verify

import (
	"fmt"
	"strings"
	"time"
)

// Status of a stage within the current run.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Stage is one step of the verification pipeline definition.
type Stage struct {
	Name               string        `json:"name" yaml:"name" mapstructure:"name"`
	SimulatedDuration  time.Duration `json:"simulated_duration" yaml:"simulated_duration" mapstructure:"simulated_duration"`
	SuccessProbability float64       `json:"success_probability" yaml:"success_probability" mapstructure:"success_probability"`
	SuccessMessage     string        `json:"success_message" yaml:"success_message" mapstructure:"success_message"`
	FailureMessage     string        `json:"failure_message" yaml:"failure_message" mapstructure:"failure_message"`
	FailureDetail      string        `json:"failure_detail" yaml:"failure_detail" mapstructure:"failure_detail"`
}

func (s Stage) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("stage name is required")
	}
	if s.SimulatedDuration < 0 {
		return fmt.Errorf("stage %s: negative duration", s.Name)
	}
	if s.SuccessProbability < 0 || s.SuccessProbability > 1 {
		return fmt.Errorf("stage %s: success probability %v outside [0,1]", s.Name, s.SuccessProbability)
	}
	return nil
}

// StageState is the observable state of a stage.
type StageState struct {
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Duration is zero until the stage finished.
func (s StageState) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// DefaultStages is the five-stage sequence run against a configured integration.
func DefaultStages() []Stage {
	return []Stage{
		{
			Name:               "Connection Test",
			SimulatedDuration:  1500 * time.Millisecond,
			SuccessProbability: 0.95,
			SuccessMessage:     "Successfully connected to the source system",
			FailureMessage:     "Unable to reach the source system",
			FailureDetail:      "Check the server URL and that the system accepts connections from this network.",
		},
		{
			Name:               "Authentication",
			SimulatedDuration:  1000 * time.Millisecond,
			SuccessProbability: 0.90,
			SuccessMessage:     "Credentials accepted",
			FailureMessage:     "Authentication rejected",
			FailureDetail:      "Verify the credentials and that the account has API access enabled.",
		},
		{
			Name:               "Field Validation",
			SimulatedDuration:  2000 * time.Millisecond,
			SuccessProbability: 0.85,
			SuccessMessage:     "All mapped fields exist in the source system",
			FailureMessage:     "Some mapped fields were not found",
			FailureDetail:      "Review the field mapping; one or more source fields are missing or renamed.",
		},
		{
			Name:               "Data Sync Test",
			SimulatedDuration:  3000 * time.Millisecond,
			SuccessProbability: 0.80,
			SuccessMessage:     "Sample records synchronized",
			FailureMessage:     "Sample sync failed",
			FailureDetail:      "Records could not be converted to the canonical schema; check data types of mapped fields.",
		},
		{
			Name:               "Final Verification",
			SimulatedDuration:  1500 * time.Millisecond,
			SuccessProbability: 0.95,
			SuccessMessage:     "Integration verified end to end",
			FailureMessage:     "Final verification failed",
			FailureDetail:      "The integration responded inconsistently; run the verification again.",
		},
	}
}

// ValidateStages checks every stage and rejects duplicate names.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return fmt.Errorf("at least one stage is required")
	}
	seen := make(map[string]struct{}, len(stages))
	for idx, s := range stages {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("stages[%d]: %w", idx, err)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("stages[%d]: duplicate stage %q", idx, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}
