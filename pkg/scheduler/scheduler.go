/*
 * Copyright 2026 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package scheduler drives the periodic jobs of the monitoring plane.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/netpulse/pkg/kv"
	"github.com/carverauto/netpulse/pkg/logger"
	"github.com/carverauto/netpulse/pkg/models"
)

const lockSlack = 5 * time.Second

// Handler is one job occurrence. The context is cancelled on shutdown.
type Handler func(ctx context.Context) error

// DailyAt pins a job to a wall-clock minute (UTC). The scheduler ticks
// such jobs every minute and fires only when hh:mm matches.
type DailyAt struct {
	Hour   int
	Minute int
}

// Job is a registered periodic job.
type Job struct {
	ID       string
	Interval time.Duration
	At       *DailyAt
	Handler  Handler
}

// EventSink receives operational log rows for scheduler failures.
type EventSink interface {
	AppendSystemEvent(ctx context.Context, event *models.SystemEvent)
}

// Scheduler runs registered jobs on fixed intervals. Each occurrence is
// gated twice: an in-process flag caps concurrency at one per job, and
// a shared cache key elects a single runner across replicas.
type Scheduler struct {
	locks  kv.Store
	events EventSink
	logger logger.Logger

	mu      sync.Mutex
	jobs    []*Job
	inRun   map[string]bool
	started bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Scheduler. locks may be nil in single-replica setups;
// the cross-replica gate then always passes.
func New(locks kv.Store, events EventSink, log logger.Logger) *Scheduler {
	return &Scheduler{
		locks:  locks,
		events: events,
		logger: log.WithComponent("scheduler"),
		inRun:  make(map[string]bool),
	}
}

// Register adds a job. The registry is mutated only before Start.
func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler: register %s: already started", job.ID)
	}

	if job.At != nil {
		job.Interval = time.Minute
	}

	if job.Interval <= 0 {
		return fmt.Errorf("scheduler: register %s: non-positive interval", job.ID)
	}

	s.jobs = append(s.jobs, &job)

	return nil
}

// Start launches one ticker goroutine per job.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	jobs := s.jobs
	s.mu.Unlock()

	for _, job := range jobs {
		s.wg.Add(1)

		go s.runLoop(ctx, job)
	}

	s.logger.Info().Int("jobs", len(jobs)).Msg("scheduler started")
}

// Stop cancels tickers and waits for in-flight runs to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	s.wg.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runLoop(ctx context.Context, job *Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx, job)
		}
	}
}

// Tick runs one occurrence of a job if both gates pass. Exposed for
// tests and for the manual "poll now" API path.
func (s *Scheduler) Tick(ctx context.Context, job *Job) {
	now := time.Now().UTC()

	if job.At != nil && (now.Hour() != job.At.Hour || now.Minute() != job.At.Minute) {
		return
	}

	if !s.beginRun(job.ID) {
		// The previous occurrence is still running; a slow run skips
		// its next tick.
		s.logger.Debug().Str("job", job.ID).Msg("previous run still in flight, skipping tick")

		return
	}
	defer s.endRun(job.ID)

	if !s.acquireLeaderLock(ctx, job) {
		return
	}

	runID := uuid.NewString()
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job", job.ID).
				Str("run_id", runID).
				Interface("panic", r).
				Msg("job panicked")

			s.recordFailure(ctx, job.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	if err := job.Handler(ctx); err != nil {
		s.logger.Error().Err(err).
			Str("job", job.ID).
			Str("run_id", runID).
			Msg("job failed")

		s.recordFailure(ctx, job.ID, err.Error())

		return
	}

	s.logger.Debug().
		Str("job", job.ID).
		Str("run_id", runID).
		Dur("elapsed", time.Since(started)).
		Msg("job complete")
}

// acquireLeaderLock elects one replica per occurrence. The gate fails
// open on cache errors: running twice is recoverable, never running is
// not.
func (s *Scheduler) acquireLeaderLock(ctx context.Context, job *Job) bool {
	if s.locks == nil {
		return true
	}

	ttl := job.Interval - lockSlack
	if ttl <= 0 {
		ttl = job.Interval / 2
	}

	acquired, err := s.locks.Acquire(ctx, "sched:"+job.ID, ttl)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("job", job.ID).
			Msg("scheduler lock unreachable, failing open")

		return true
	}

	return acquired
}

func (s *Scheduler) beginRun(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inRun[jobID] {
		return false
	}

	s.inRun[jobID] = true

	return true
}

func (s *Scheduler) endRun(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inRun[jobID] = false
}

func (s *Scheduler) recordFailure(ctx context.Context, jobID, message string) {
	if s.events == nil {
		return
	}

	s.events.AppendSystemEvent(ctx, &models.SystemEvent{
		Level:     models.EventLevelError,
		Source:    "scheduler",
		EventType: "job_failed",
		Message:   fmt.Sprintf("job %s: %s", jobID, message),
	})
}
