package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/service"
)

// Sweeper runs one SLA sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// SLAWorker runs the SLA sweep on a cron schedule. Overlapping runs are
// skipped, so a slow sweep delays the next one instead of piling up.
type SLAWorker struct {
	mu      sync.Mutex
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	logger  *zap.Logger
	baseCtx context.Context
}

// NewSLAWorker registers the sweep under schedule, a 5-field cron
// expression or a descriptor such as "@every 15m".
func NewSLAWorker(sweeper Sweeper, schedule string, timeout time.Duration, logger *zap.Logger) (*SLAWorker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &SLAWorker{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		sweeper: sweeper,
		timeout: timeout,
		logger:  logger,
		baseCtx: context.Background(),
	}
	if _, err := w.cron.AddFunc(schedule, func() { w.RunOnce(w.context()) }); err != nil {
		return nil, fmt.Errorf("sla worker: invalid schedule %q: %w", schedule, err)
	}
	return w, nil
}

// Start runs the schedule until ctx is cancelled. In-flight sweeps see the
// cancellation and finish before Start returns.
func (w *SLAWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	w.baseCtx = ctx
	w.mu.Unlock()

	w.cron.Start()
	w.logger.Info("sla worker started")

	<-ctx.Done()
	<-w.cron.Stop().Done()
	w.logger.Info("sla worker stopped")
	return ctx.Err()
}

// RunOnce performs a single bounded sweep and logs its outcome.
func (w *SLAWorker) RunOnce(ctx context.Context) (service.SweepResult, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	result, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.logger.Error("sla sweep failed", zap.Error(err))
	}
	return result, err
}

// Entries reports the number of registered schedules.
func (w *SLAWorker) Entries() int {
	return len(w.cron.Entries())
}

func (w *SLAWorker) context() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.baseCtx
}
