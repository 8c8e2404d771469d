// Package scheduler runs the service's periodic jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultJobTimeout bounds a single job run
const DefaultJobTimeout = 10 * time.Minute

// JobFunc is the body of a scheduled job
type JobFunc func(ctx context.Context) error

// Config holds the scheduler settings
type Config struct {
	Timezone   string // IANA name or "Local"
	JobTimeout time.Duration
}

// Scheduler owns a cron runner and the named jobs registered on it
type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	timeout time.Duration

	mu   sync.Mutex
	jobs map[string]registeredJob
}

type registeredJob struct {
	id   cron.EntryID
	spec string
}

// New creates a scheduler. Jobs that panic are recovered and a job still
// running when its next tick arrives is skipped.
func New(config Config, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	loc := time.Local
	if config.Timezone != "" && config.Timezone != "Local" {
		var err error
		if loc, err = time.LoadLocation(config.Timezone); err != nil {
			return nil, fmt.Errorf("load scheduler timezone %q: %w", config.Timezone, err)
		}
	}
	timeout := config.JobTimeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}

	cronLog := NewCronLogger(log)
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		log:     log,
		timeout: timeout,
		jobs:    map[string]registeredJob{},
	}, nil
}

// Add registers a job under a unique name with a standard 5-field cron spec
func (s *Scheduler) Add(name, spec string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	id, err := s.cron.AddFunc(spec, s.wrap(name, job))
	if err != nil {
		return fmt.Errorf("schedule job %q with %q: %w", name, spec, err)
	}
	s.jobs[name] = registeredJob{id: id, spec: spec}
	return nil
}

// RunNow runs a registered job synchronously, outside its schedule.
// The run goes through the same recover and skip-if-running wrappers.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	s.cron.Entry(job.id).WrappedJob.Run()
	return nil
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, job := range s.jobs {
		s.log.Info("Scheduled job",
			zap.String("job", name),
			zap.String("spec", job.spec),
			zap.Time("next", s.cron.Entry(job.id).Next),
		)
	}
}

// Stop stops the scheduler and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduled jobs: %w", ctx.Err())
	}
}

// Names returns the registered job names, sorted
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the next activation of a job, zero when unknown or not started
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(job.id).Next
}

func (s *Scheduler) wrap(name string, job JobFunc) func() {
	return func() {
		jobLog := s.log.With(zap.String("job", name))
		ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), jobLog), s.timeout)
		defer cancel()

		start := time.Now()
		err := job(ctx)
		prometheus.RecordJobRun(name, err)
		if err != nil {
			jobLog.Error("Scheduled job failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
			return
		}
		jobLog.Info("Scheduled job finished", zap.Duration("duration", time.Since(start)))
	}
}
