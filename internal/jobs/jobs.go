// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"riteswipe-api/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Func is one unit of scheduled work.
type Func func(ctx context.Context) error

// Scheduler wraps a cron runner. Runs of the same job never overlap.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Entry

	mu   sync.Mutex
	jobs map[string]Func
	ctx  context.Context
}

func NewScheduler(log *logrus.Entry) *Scheduler {
	logger := cron.PrintfLogger(log)
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		log:  log,
		jobs: make(map[string]Func),
		ctx:  context.Background(),
	}
}

// Add registers fn under name with a cron spec such as "@every 15s" or "0 3 * * *".
func (s *Scheduler) Add(name, spec string, fn Func) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.run(s.context(), name, fn) }); err != nil {
		return fmt.Errorf("scheduling %s (%s): %w", name, spec, err)
	}
	s.jobs[name] = fn
	return nil
}

// Every registers fn to run at a fixed interval.
func (s *Scheduler) Every(name string, interval time.Duration, fn Func) error {
	if interval <= 0 {
		return fmt.Errorf("job %q: interval must be positive", name)
	}
	return s.Add(name, "@every "+interval.String(), fn)
}

// Start runs the schedule until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.log.Info("scheduler stopped")
	}()
}

// RunNow runs a registered job once, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	fn, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.run(ctx, name, fn)
}

func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) run(ctx context.Context, name string, fn Func) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	metrics.JobRun(name, err == nil, elapsed)

	log := s.log.WithFields(logrus.Fields{"job": name, "elapsed": elapsed.String()})
	if err != nil {
		log.WithError(err).Error("job failed")
		return err
	}
	log.Debug("job finished")
	return nil
}
