package reward

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tradon-app/tradon/internal/app/system"
	"github.com/tradon-app/tradon/pkg/logger"
)

var _ system.Service = (*Runner)(nil)

// Runner drives the periodic reward evaluations: a ticker re-evaluates the
// earning timer and a cron schedule re-arms daily tasks. Both evaluations are
// idempotent, so irregular ticks (a backgrounded host, a stalled scheduler)
// cannot double-grant.
type Runner struct {
	service  *Service
	log      *logger.Logger
	interval time.Duration
	// minGap collapses sub-interval repeats so bursty scheduling does not
	// trigger redundant snapshot writes.
	minGap   time.Duration
	schedule string

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	cron     *cron.Cron
	lastTick time.Time
	running  bool
}

// NewRunner creates a lifecycle-managed reward runner.
func NewRunner(service *Service, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewDefault("reward-runner")
	}
	return &Runner{
		service:  service,
		log:      log,
		interval: time.Second,
		minGap:   500 * time.Millisecond,
		schedule: "@midnight",
	}
}

func (r *Runner) Name() string { return "reward-runner" }

func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, r.service.ResetDailyTasks); err != nil {
		r.running = false
		r.cancel = nil
		r.mu.Unlock()
		cancel()
		return err
	}
	r.cron = c
	r.mu.Unlock()

	// Re-arm immediately so a restart after midnight does not leave daily
	// tasks stale until the next cron firing.
	r.service.ResetDailyTasks()
	c.Start()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick()
			}
		}
	}()

	r.log.Info("reward runner started")
	return nil
}

func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	c := r.cron
	r.running = false
	r.cancel = nil
	r.cron = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("reward runner stopped")
	return nil
}

func (r *Runner) tick() {
	r.mu.Lock()
	now := time.Now()
	if now.Sub(r.lastTick) < r.minGap {
		r.mu.Unlock()
		return
	}
	r.lastTick = now
	r.mu.Unlock()

	r.service.Tick()
}
