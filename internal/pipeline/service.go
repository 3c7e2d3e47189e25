package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/enade/internal/core"
	"github.com/JonMunkholm/enade/internal/logging"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// Run is a snapshot of one background run.
type Run struct {
	ID         string            `json:"id"`
	Status     RunStatus         `json:"status"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Report     *Report           `json:"report,omitempty"`
	Error      *core.UserMessage `json:"error,omitempty"`
}

// Service starts runs in the background and remembers their outcome for the
// life of the process.
type Service struct {
	driver  *Driver
	plan    Plan
	limiter *RunLimiter

	// base outlives the requests that start runs; cancelling it aborts them.
	base context.Context

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewService creates a service that executes plan on every Start. Runs
// inherit ctx, so cancelling it aborts whatever is in flight.
func NewService(ctx context.Context, driver *Driver, plan Plan, limiter *RunLimiter) *Service {
	return &Service{
		driver:  driver,
		plan:    plan,
		limiter: limiter,
		base:    ctx,
		runs:    make(map[string]*Run),
	}
}

// Start launches a run and returns immediately. It fails with ErrTooManyRuns
// when the limiter has no free slot.
func (s *Service) Start() (Run, error) {
	if !s.limiter.TryAcquire() {
		return Run{}, ErrTooManyRuns
	}

	run := &Run{
		ID:        uuid.NewString(),
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.runs[run.ID] = run
	snapshot := *run
	s.mu.Unlock()

	go s.execute(run.ID)

	return snapshot, nil
}

func (s *Service) execute(id string) {
	defer s.limiter.Release()

	ctx := core.ContextWithRunID(s.base, id)
	report, err := s.driver.Run(ctx, s.plan)

	finished := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	run := s.runs[id]
	run.FinishedAt = &finished
	run.Report = report
	if err != nil {
		msg := core.MapError(err)
		run.Status = StatusFailed
		run.Error = &msg
		return
	}
	run.Status = StatusSucceeded
	logging.FromContext(ctx).Debug("run recorded", "status", run.Status)
}

// Get returns a snapshot of run id.
func (s *Service) Get(id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return Run{}, ErrRunNotFound
	}
	return *run, nil
}

// List returns snapshots of every run, newest first.
func (s *Service) List() []Run {
	s.mu.RLock()
	runs := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, *r)
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}

// LimiterStatus reports the run limiter's state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// Wait blocks until every run has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
