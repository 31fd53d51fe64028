package wizard

import (
	"strings"
	"time"

	integration "github.com/goliatone/go-integration"
)

// Completed is handed to the system of record when a session is committed.
type Completed struct {
	SessionID   string             `json:"session_id"`
	Draft       *integration.Draft `json:"draft"`
	CompletedAt time.Time          `json:"completed_at"`
}

func (Completed) Type() string { return "integration::completed" }

func (c Completed) Validate() error {
	var problems []string
	if strings.TrimSpace(c.SessionID) == "" {
		problems = append(problems, "session id is required")
	}
	switch {
	case c.Draft == nil:
		problems = append(problems, "draft is required")
	case c.Draft.TestResult == nil || !c.Draft.TestResult.Success:
		problems = append(problems, "draft has no successful verification")
	}
	if len(problems) > 0 {
		return integration.CloneError(
			integration.ErrValidation,
			strings.Join(problems, "; "),
			nil,
			map[string]any{"session_id": c.SessionID},
		)
	}
	return nil
}

var _ integration.Message = Completed{}
