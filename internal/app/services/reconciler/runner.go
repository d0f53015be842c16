package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/memetip/tipboard/internal/app/metrics"
	"github.com/memetip/tipboard/internal/app/system"
	"github.com/memetip/tipboard/pkg/logger"
)

// DefaultInterval matches the reference cadence of the reconciliation loop.
const DefaultInterval = 30 * time.Second

var _ system.Service = (*Runner)(nil)

// Runner drives RunPass on a fixed period. A tick that fires while a pass is
// still running is skipped, not queued.
type Runner struct {
	service  *Service
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
}

// NewRunner creates a lifecycle-managed reconciliation runner.
func NewRunner(service *Service, interval time.Duration, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewDefault("reconciler-runner")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{
		service:  service,
		log:      log,
		interval: interval,
	}
}

func (r *Runner) Name() string { return "reconciler" }

func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{log: r.log}),
	))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
		if runCtx.Err() != nil {
			return
		}
		if err := r.service.RunPass(runCtx); err != nil {
			r.log.WithError(err).Warn("reconciliation pass aborted")
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("schedule reconciliation: %w", err)
	}

	c.Start()
	r.cron = c
	r.cancel = cancel
	r.running = true

	r.log.WithField("interval", r.interval).Info("reconciliation runner started")
	return nil
}

func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c := r.cron
	cancel := r.cancel
	r.cron = nil
	r.cancel = nil
	r.running = false
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// Stop returns a context that is done once in-flight jobs finish.
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("reconciliation runner stopped")
	return nil
}

// cronLogger adapts pkg/logger to the cron logging interface. The skip
// message is the scheduler dropping a tick because a pass is still running.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		metrics.RecordSkippedTick()
		l.log.Warn("reconciliation tick skipped; previous pass still running")
		return
	}
	l.log.Debugf("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).Errorf("cron: %s %v", msg, keysAndValues)
}
