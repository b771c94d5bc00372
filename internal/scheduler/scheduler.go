// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic housekeeping jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/launchbio/internal/model"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 5 * time.Minute

// JobFunc is a unit of scheduled work.
type JobFunc func(ctx context.Context) error

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name     string
	Schedule string
	NextRun  time.Time
	LastRun  time.Time
}

type registeredJob struct {
	name     string
	schedule string
	entryID  cron.EntryID
	run      JobFunc
}

// Scheduler wraps a cron instance with named, triggerable jobs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		timeout: DefaultJobTimeout,
		jobs:    make(map[string]*registeredJob),
	}
}

// Register adds a job under a unique name. schedule accepts standard
// five-field cron expressions and descriptors such as "@every 1h".
func (s *Scheduler) Register(name, schedule string, run JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	job := &registeredJob{name: name, schedule: schedule, run: run}
	id, err := s.cron.AddFunc(schedule, func() { s.execute(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", schedule, name, err)
	}
	job.entryID = id
	s.jobs[name] = job
	return nil
}

// Start begins running registered jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Trigger runs the named job immediately on the calling goroutine.
func (s *Scheduler) Trigger(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	return s.runJob(job)
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		infos = append(infos, JobInfo{
			Name:     job.name,
			Schedule: job.schedule,
			NextRun:  entry.Next,
			LastRun:  entry.Prev,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *Scheduler) execute(job *registeredJob) {
	if err := s.runJob(job); err != nil {
		s.logger.Error("scheduled job failed", "job", job.name, "error", err, "category", model.EventCategorySystem)
	}
}

func (s *Scheduler) runJob(job *registeredJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := job.run(ctx)
	s.logger.Debug("scheduled job finished", "job", job.name, "duration", time.Since(start), "ok", err == nil)
	return err
}
