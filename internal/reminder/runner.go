package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "beatclock/internal/log"
)

// DefaultPollSpec polls once per second; delivery latency is bounded by it.
const DefaultPollSpec = "@every 1s"

// Runner drives Scheduler.Poll from a single cron job. It is started once at
// initialization and stopped at teardown.
type Runner struct {
	sched *Scheduler
	spec  string
	now   func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// NewRunner returns a stopped Runner. An empty spec uses DefaultPollSpec.
func NewRunner(s *Scheduler, spec string) *Runner {
	if spec == "" {
		spec = DefaultPollSpec
	}
	return &Runner{sched: s, spec: spec, now: time.Now}
}

// Start registers the poll job and starts the cron loop.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("reminder runner already started")
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(r.spec, r.tick); err != nil {
		return fmt.Errorf("invalid poll spec %q: %w", r.spec, err)
	}
	c.Start()
	r.cron = c

	appLog.Info("reminder runner started", "spec", r.spec)
	return nil
}

// Stop cancels the poll job and waits for a running poll to finish or ctx
// to expire.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return nil
	}

	done := c.Stop()
	select {
	case <-done.Done():
		appLog.Info("reminder runner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) tick() {
	if fired := r.sched.Poll(r.now()); len(fired) > 0 {
		appLog.Debug("poll activated reminders", "count", len(fired))
	}
}

// cronLogger routes cron's own logging through the app logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
