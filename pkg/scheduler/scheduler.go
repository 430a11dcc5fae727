// Package scheduler runs named recurring jobs.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Func a job function.
type Func func(ctx context.Context)

type job struct {
	name     string
	interval time.Duration
	fn       Func
	next     time.Time
	cancel   context.CancelFunc
}

// Scheduler runs recurring jobs identified by name.
// A name can only be armed once: arming an already pending job is a no-op.
type Scheduler struct {
	ctx context.Context

	mu      sync.Mutex
	jobs    map[string]*job
	stopped bool
	wg      sync.WaitGroup

	now func() time.Time
}

// New creates a scheduler. Jobs are stopped when ctx is done or when Stop is called.
func New(ctx context.Context) *Scheduler {
	return &Scheduler{
		ctx:  ctx,
		jobs: make(map[string]*job),
		now:  time.Now,
	}
}

// ScheduleRecurring arms a job running fn now and then every interval.
// It returns false if a job with the same name is already pending.
func (s *Scheduler) ScheduleRecurring(name string, interval time.Duration, fn Func) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || interval <= 0 {
		return false
	}

	if _, ok := s.jobs[name]; ok {
		log.Debug().Str("job", name).Msg("Job already scheduled")
		return false
	}

	ctx, cancel := context.WithCancel(s.ctx)

	j := &job{
		name:     name,
		interval: interval,
		fn:       fn,
		next:     s.now(),
		cancel:   cancel,
	}
	s.jobs[name] = j

	s.wg.Add(1)
	go s.loop(ctx, j)

	log.Info().Str("job", name).Dur("interval", interval).Msg("Job scheduled")

	return true
}

// Next returns the next run time of a pending job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return time.Time{}, false
	}

	return j.next, true
}

// Unschedule stops a job. It returns false if the job was not pending.
func (s *Scheduler) Unschedule(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return false
	}

	j.cancel()
	delete(s.jobs, name)

	return true
}

// Stop stops all the jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for name, j := range s.jobs {
		j.cancel()
		delete(s.jobs, name)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	defer s.wg.Done()

	s.run(ctx, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, j)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, j *job) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	j.next = s.now().Add(j.interval)
	s.mu.Unlock()

	logger := log.With().Str("job", j.name).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Job panicked")
		}
	}()

	logger.Debug().Msg("Running job")

	j.fn(logger.WithContext(ctx))
}
