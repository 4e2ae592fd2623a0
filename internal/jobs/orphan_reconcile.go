// File: internal/jobs/orphan_reconcile.go
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"coach_admin_backend/internal/config"
	"coach_admin_backend/internal/platform/metrics"
	"coach_admin_backend/internal/profile"
)

// OrphanFinder is the part of profile.Service the sweep needs.
type OrphanFinder interface {
	FindOrphanedAccounts(ctx context.Context) ([]profile.Account, error)
}

// OrphanReconcileJob periodically reports identity-provider accounts that
// were created without a profile. It never deletes anything.
type OrphanReconcileJob struct {
	finder        OrphanFinder
	prom          *metrics.Prom
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
	timeout       time.Duration
}

// NewOrphanReconcileJob creates a new OrphanReconcileJob.
func NewOrphanReconcileJob(
	finder OrphanFinder,
	prom *metrics.Prom,
	logger *zap.Logger,
	cfg *config.Config,
) *OrphanReconcileJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog)),
	)

	return &OrphanReconcileJob{
		finder:        finder,
		prom:          prom,
		logger:        logger.Named("OrphanReconcileJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
		timeout:       5 * time.Minute,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *OrphanReconcileJob) SetupAndStart() error {
	jobSpec := j.cfg.OrphanReconcileSchedule // e.g. "@hourly", "30 3 * * *"
	if jobSpec == "" {
		j.logger.Info("Orphan reconciliation schedule not defined (ORPHAN_RECONCILE_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule orphan reconciliation job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Orphan reconciliation job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

func (j *OrphanReconcileJob) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error("Orphan reconciliation run failed", zap.Error(err))
	}
}

// RunOnce performs one sweep, logs every orphan and updates the gauge.
func (j *OrphanReconcileJob) RunOnce(ctx context.Context) ([]profile.Account, error) {
	j.logger.Info("Starting orphan reconciliation run...")
	orphans, err := j.finder.FindOrphanedAccounts(ctx)
	if err != nil {
		return nil, err
	}

	for _, acc := range orphans {
		j.logger.Warn("Account has no profile",
			zap.String("uid", acc.UID),
			zap.String("email", acc.Email),
			zap.Time("createdAt", acc.CreatedAt))
	}
	j.prom.SetOrphanedAccounts(len(orphans))
	j.logger.Info("Orphan reconciliation run completed", zap.Int("orphaned_accounts", len(orphans)))
	return orphans, nil
}

// Stop gracefully stops the cron scheduler.
func (j *OrphanReconcileJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping orphan reconciliation scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Orphan reconciliation scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Orphan reconciliation scheduler stop timed out.")
	}
}
