package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Dropper is told about jobs rejected by a full queue.
type Dropper interface {
	JobDropped(job string)
}

// Service runs best-effort background jobs on a bounded queue. Jobs never
// block the caller: when the queue is full the job is dropped and logged.
type Service struct {
	queue   chan job
	timeout time.Duration
	workers int
	dropper Dropper

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
	stopped bool
}

type job struct {
	Name string
	Run  func(context.Context) error
}

type Options struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
	Dropper   Dropper
}

func New(opts Options) *Service {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 128
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Service{
		queue:   make(chan job, opts.QueueSize),
		timeout: opts.Timeout,
		workers: opts.Workers,
		dropper: opts.Dropper,
	}
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.stop = make(chan struct{})
	base := context.WithoutCancel(ctx)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(base, s.stop)
	}
}

// Stop tells the workers to exit and waits for in-flight jobs, each of which
// keeps its own timeout. Jobs still queued are discarded.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.started && !s.stopped {
		s.stopped = true
		close(s.stop)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) Enqueue(name string, run func(context.Context) error) bool {
	select {
	case s.queue <- job{Name: name, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "job", name)
		if s.dropper != nil {
			s.dropper.JobDropped(name)
		}
		return false
	}
}

// RunNow executes a job synchronously with the same timeout and panic guard
// as queued jobs.
func (s *Service) RunNow(ctx context.Context, name string, run func(context.Context) error) error {
	return s.runJob(ctx, job{Name: name, Run: run})
}

func (s *Service) worker(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		select {
		case <-stop:
			return
		case j := <-s.queue:
			if err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "job", j.Name, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.Name, r)
		}
	}()
	return j.Run(ctx)
}
