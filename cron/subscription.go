package cron

import (
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
)

type Subscription interface {
	Unsubscribe()
}

// Status reports where a scheduled job is in its lifecycle.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusIdle      Status = "idle"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// terminal statuses close Done. Failed is not terminal for recurring jobs.
func (s Status) terminal() bool {
	switch s {
	case StatusCompleted, StatusCanceled, StatusStopped:
		return true
	}
	return false
}

// Handle controls one scheduled job.
type Handle interface {
	Subscription
	Cancel()
	Status() Status
	Err() error
	Done() <-chan struct{}
	Name() string
	Runs() int
	LastRun() time.Time
}

type handle struct {
	scheduler *Scheduler
	id        int64
	name      string
	entryID   rcron.EntryID
	done      chan struct{}

	mu      sync.RWMutex
	status  Status
	err     error
	runs    int
	lastRun time.Time
	once    sync.Once
}

func (h *handle) Unsubscribe() { h.Cancel() }

func (h *handle) Cancel() {
	h.once.Do(func() {
		h.scheduler.unschedule(h.id)
		h.setTerminal(StatusCanceled, nil)
	})
}

func (h *handle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Err is the error of the most recent run.
func (h *handle) Err() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

func (h *handle) Done() <-chan struct{} { return h.done }

func (h *handle) Name() string { return h.name }

// Runs counts started runs regardless of outcome.
func (h *handle) Runs() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.runs
}

func (h *handle) LastRun() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastRun
}

func (h *handle) markRun(at time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs++
	h.lastRun = at
	return h.runs
}

func (h *handle) setStatus(status Status, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.err = err
}

func (h *handle) setTerminal(status Status, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.err = err
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}
