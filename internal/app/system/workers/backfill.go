// internal/app/system/workers/backfill.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/casehub/internal/app/allocation"
	"go.uber.org/zap"
)

// AssignmentBackfill is a background worker that periodically tops
// every user back up to the default target, catching users whose
// signup/login allocation failed or who were left short by an
// exhausted pool that has since been refilled.
type AssignmentBackfill struct {
	engine   *allocation.Engine
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewAssignmentBackfill creates a new backfill worker.
func NewAssignmentBackfill(engine *allocation.Engine, logger *zap.Logger, interval time.Duration) *AssignmentBackfill {
	return &AssignmentBackfill{
		engine:   engine,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background backfill loop.
func (w *AssignmentBackfill) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("assignment backfill worker started",
		zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *AssignmentBackfill) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("assignment backfill worker stopped")
}

func (w *AssignmentBackfill) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *AssignmentBackfill) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := w.engine.Rebalance(ctx)
	if err != nil {
		w.log.Error("backfill sweep failed", zap.Error(err))
		return
	}

	if report.Assigned > 0 || len(report.Failures) > 0 {
		w.log.Info("backfill sweep finished",
			zap.Int("users", report.Users),
			zap.Int("assigned", report.Assigned),
			zap.Int("failures", len(report.Failures)))
	}
}
