package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a periodic task. The context is cancelled on Stop.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on fixed intervals.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*jobEntry
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type jobEntry struct {
	interval time.Duration
	stopCh   chan struct{}
	runs     int64
}

// New creates a new Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make(map[string]*jobEntry),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Every registers job to run on a fixed interval. When immediate is set
// the first run happens right away instead of after one interval.
// A job with the same name is replaced.
func (s *Scheduler) Every(name string, interval time.Duration, immediate bool, job Job) {
	if interval <= 0 {
		s.logger.Warn("scheduler job ignored, non-positive interval", zap.String("name", name))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}

	if old, ok := s.jobs[name]; ok {
		close(old.stopCh)
	}
	entry := &jobEntry{interval: interval, stopCh: make(chan struct{})}
	s.jobs[name] = entry

	s.wg.Add(1)
	go s.loop(name, entry, immediate, job)
	s.logger.Info("scheduler job registered", zap.String("name", name), zap.Duration("interval", interval))
}

func (s *Scheduler) loop(name string, entry *jobEntry, immediate bool, job Job) {
	defer s.wg.Done()
	ticker := time.NewTicker(entry.interval)
	defer ticker.Stop()

	if immediate {
		s.run(name, entry, job)
	}
	for {
		select {
		case <-ticker.C:
			s.run(name, entry, job)
		case <-entry.stopCh:
			return
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) run(name string, entry *jobEntry, job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler job panicked",
				zap.String("job", name),
				zap.Any("recover", r))
		}
	}()
	s.mu.Lock()
	entry.runs++
	s.mu.Unlock()
	if err := job(s.ctx); err != nil && s.ctx.Err() == nil {
		s.logger.Warn("scheduler job failed", zap.String("job", name), zap.Error(err))
	}
}

// Remove stops and removes a job by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.jobs[name]; ok {
		close(entry.stopCh)
		delete(s.jobs, name)
	}
}

// Runs reports how many times the named job has started.
func (s *Scheduler) Runs(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.jobs[name]; ok {
		return entry.runs
	}
	return 0
}

// Jobs returns the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stop cancels all jobs and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}
