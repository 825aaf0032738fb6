package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// jobTimeout bounds one reconciliation pass.
const jobTimeout = 30 * time.Minute

// FilterReconciler rebuilds region filters from their businesses.
type FilterReconciler interface {
	ReconcileFilters(ctx context.Context) (service.ReconcileReport, error)
}

// FilterReconcileScheduler periodically repairs drift between region filters
// and the businesses they summarise.
type FilterReconcileScheduler struct {
	cron       *cron.Cron
	reconciler FilterReconciler
	spec       string
}

// NewFilterReconcileScheduler runs reconciler on the standard 5-field cron
// spec. An empty spec disables the job.
func NewFilterReconcileScheduler(reconciler FilterReconciler, spec string) *FilterReconcileScheduler {
	cronLogger := cron.PrintfLogger(cronLogAdapter{})
	return &FilterReconcileScheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		reconciler: reconciler,
		spec:       spec,
	}
}

func (s *FilterReconcileScheduler) Start() error {
	if s.spec == "" {
		logger.Info("Filter reconcile scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.run); err != nil {
		logger.Error("Failed to add cron job for filter reconciliation", err, logger.Fields{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Filter reconcile scheduler started", logger.Fields{
		"spec": s.spec,
	})
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *FilterReconcileScheduler) Stop() {
	logger.Info("Stopping filter reconcile scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Filter reconcile scheduler stopped")
}

func (s *FilterReconcileScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	started := time.Now()
	logger.Info("Starting scheduled filter reconciliation")

	report, err := s.reconciler.ReconcileFilters(ctx)
	if err != nil {
		logger.Error("Scheduled filter reconciliation failed", err, logger.Fields{
			"checked": report.Checked,
		})
		return
	}

	logger.Info("Scheduled filter reconciliation finished", logger.Fields{
		"checked":     report.Checked,
		"repaired":    report.Repaired,
		"failed":      report.Failed,
		"duration_ms": time.Since(started).Milliseconds(),
	})
}

// cronLogAdapter routes cron's own messages (panics, skipped runs) to the
// application logger.
type cronLogAdapter struct{}

func (cronLogAdapter) Printf(format string, args ...interface{}) {
	logger.Warn("cron", logger.Fields{
		"detail": fmt.Sprintf(format, args...),
	})
}
