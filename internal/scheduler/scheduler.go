// Squad API - Community Platform Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/squadapi

// Package scheduler runs periodic maintenance jobs on cron schedules:
// applying due user statuses, settling closed auctions and collecting
// store garbage.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/squadapi/internal/logging"
	"github.com/tomtom215/squadapi/internal/metrics"
)

// Job is one scheduled unit of work. Run returns the number of documents it
// changed.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (int, error)
}

// ErrUnknownJob is returned by RunNow for an unregistered job name.
var ErrUnknownJob = errors.New("unknown job")

// Scheduler owns a cron instance and the jobs registered on it.
type Scheduler struct {
	cron           *cron.Cron
	jobs           map[string]Job
	runImmediately bool

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates every job spec and registers the jobs. Specs use the
// standard five field format or descriptors such as "@every 5m".
func New(runImmediately bool, jobs ...Job) (*Scheduler, error) {
	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		), cron.WithLogger(logger)),
		jobs:           make(map[string]Job, len(jobs)),
		runImmediately: runImmediately,
	}
	for _, job := range jobs {
		if job.Spec == "" {
			continue
		}
		if _, dup := s.jobs[job.Name]; dup {
			return nil, fmt.Errorf("duplicate job %q", job.Name)
		}
		job := job
		if _, err := s.cron.AddFunc(job.Spec, func() { s.execute(job) }); err != nil {
			return nil, fmt.Errorf("job %s: invalid schedule %q: %w", job.Name, job.Spec, err)
		}
		s.jobs[job.Name] = job
	}
	return s, nil
}

// Start begins firing jobs. Jobs run with a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if s.runImmediately {
		for _, job := range s.jobs {
			go s.execute(job)
		}
	}
	s.cron.Start()
	logging.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-s.cron.Stop().Done()
	logging.Info().Msg("Scheduler stopped")
	return nil
}

// RunNow runs the named job synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int, error) {
	job, ok := s.jobs[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, job)
}

func (s *Scheduler) execute(job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	_, _ = s.run(ctx, job)
}

func (s *Scheduler) run(ctx context.Context, job Job) (int, error) {
	start := time.Now()
	n, err := job.Run(ctx)
	metrics.RecordJobRun(job.Name, time.Since(start), n, err)

	log := logging.Ctx(ctx).With().Str("job", job.Name).Logger()
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Scheduled job failed")
		return n, err
	}
	if n > 0 {
		log.Info().Int("changed", n).Dur("duration", time.Since(start)).Msg("Scheduled job completed")
	}
	return n, nil
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
