package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskID is the handle returned by Register. Re-registering a task name
// issues a fresh handle and invalidates the previous one.
type TaskID string

// Mode controls what happens when a tick arrives while the previous run
// of the same task is still in flight.
type Mode int

const (
	// ModeSkip drops the tick. Used for transition-sensitive polls where
	// two overlapping runs could observe the same edge twice.
	ModeSkip Mode = iota

	// ModeOverlap starts a concurrent run. Safe for idempotent fetches.
	ModeOverlap
)

// TaskFunc is one poll iteration. Errors are logged and the task keeps
// its schedule; returning an error never unregisters a task.
type TaskFunc func(ctx context.Context) error

// Logger is the minimal logging interface used by the scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type task struct {
	id      TaskID
	name    string
	mode    Mode
	fn      TaskFunc
	cancel  context.CancelFunc
	running atomic.Bool
}

// Scheduler runs named repeating tasks on fixed periods.
//
// A registered task first fires one full period after registration, never
// immediately. One live handle exists per task name: re-registering a
// name cancels the previous schedule before starting the new one.
type Scheduler struct {
	logger Logger

	mu      sync.Mutex
	tasks   map[string]*task
	stopped bool

	// wg tracks ticker loops and in-flight runs so Stop can wait for
	// everything to drain.
	wg sync.WaitGroup
}

// New creates an empty scheduler.
func New(logger Logger) *Scheduler {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{
		logger: logger,
		tasks:  make(map[string]*task),
	}
}

// Register schedules fn to run every period. If a task with the same name
// is already registered its schedule is cancelled first; an in-flight run
// of the old task finishes but its successor ticks never fire.
//
// Registering on a stopped scheduler is a no-op and returns an empty id.
func (s *Scheduler) Register(name string, period time.Duration, mode Mode, fn TaskFunc) TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.logger.Warn("ignoring task registration on stopped scheduler", "task", name)
		return ""
	}

	if prev, ok := s.tasks[name]; ok {
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{
		id:     TaskID(uuid.NewString()),
		name:   name,
		mode:   mode,
		fn:     fn,
		cancel: cancel,
	}
	s.tasks[name] = t

	s.wg.Add(1)
	go s.loop(ctx, t, period)

	s.logger.Debug("task registered", "task", name, "period", period.String())
	return t.id
}

// Unregister cancels one task by handle. A stale handle (already
// re-registered or unregistered) is a no-op.
func (s *Scheduler) Unregister(id TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, t := range s.tasks {
		if t.id == id {
			t.cancel()
			delete(s.tasks, name)
			return
		}
	}
}

// UnregisterAll cancels every schedule. In-flight runs are not
// interrupted beyond their context being cancelled; their results are
// discarded by virtue of nothing firing afterwards. Idempotent.
func (s *Scheduler) UnregisterAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, t := range s.tasks {
		t.cancel()
		delete(s.tasks, name)
	}
}

// Stop unregisters everything and blocks until all ticker loops and
// in-flight runs have returned. The scheduler cannot be reused.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.UnregisterAll()
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t *task, period time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if t.mode == ModeSkip && !t.running.CompareAndSwap(false, true) {
				s.logger.Debug("tick skipped, previous run still in flight", "task", t.name)
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if t.mode == ModeSkip {
					defer t.running.Store(false)
				}
				s.run(ctx, t)
			}()
		}
	}
}

// run executes one iteration inside its own failure boundary. Neither an
// error nor a panic unregisters the task.
func (s *Scheduler) run(ctx context.Context, t *task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("poll task panicked", "task", t.name, "panic", r)
		}
	}()

	if err := t.fn(ctx); err != nil {
		s.logger.Warn("poll task failed", "task", t.name, "error", err)
	}
}
