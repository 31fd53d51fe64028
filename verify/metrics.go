package verify

import "time"

// MetricsRecorder observes stage and run outcomes.
type MetricsRecorder interface {
	RecordStage(stage string, status Status, duration time.Duration)
	RecordRun(success bool, duration time.Duration)
	RecordCanceled(stage string)
}

type nopRecorder struct{}

func (nopRecorder) RecordStage(string, Status, time.Duration) {}
func (nopRecorder) RecordRun(bool, time.Duration)             {}
func (nopRecorder) RecordCanceled(string)                     {}
