package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// RetiredSectionCleanupJobName is the name of the retired template section cleanup job
	RetiredSectionCleanupJobName = "retired_section_cleanup"
	// StuckAnalysisJobName is the name of the job failing abandoned analyses
	StuckAnalysisJobName = "stuck_analysis_sweep"
)

// defaultJobTimeout bounds a single maintenance run
const defaultJobTimeout = 5 * time.Minute

// SectionCleaner deletes retired template sections nothing refers to anymore.
// It keeps this package independent of the service package.
type SectionCleaner interface {
	CleanupRetiredSections(ctx context.Context) (int, error)
}

// StuckAnalysisSweeper marks documents stuck in processing as failed
type StuckAnalysisSweeper interface {
	FailStuckAnalyses(ctx context.Context, maxAge time.Duration) (int64, error)
}

// RetiredSectionCleanupJob removes retired sections once their last
// section instance is gone
type RetiredSectionCleanupJob struct {
	cleaner SectionCleaner
	logger  *zap.Logger
	timeout time.Duration
}

// NewRetiredSectionCleanupJob creates the cleanup job
func NewRetiredSectionCleanupJob(cleaner SectionCleaner, logger *zap.Logger) *RetiredSectionCleanupJob {
	return &RetiredSectionCleanupJob{
		cleaner: cleaner,
		logger:  logger,
		timeout: defaultJobTimeout,
	}
}

// Run executes one cleanup pass
func (j *RetiredSectionCleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	removed, err := j.cleaner.CleanupRetiredSections(ctx)
	if err != nil {
		j.logger.Error("retired section cleanup failed",
			zap.Int("removed", removed),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if removed > 0 {
		j.logger.Info("retired section cleanup completed",
			zap.Int("removed", removed),
			zap.Duration("duration", time.Since(start)))
	}
}

// StuckAnalysisJob fails documents whose analysis was interrupted, for
// example by a restart while the worker pool held them
type StuckAnalysisJob struct {
	sweeper StuckAnalysisSweeper
	maxAge  time.Duration
	logger  *zap.Logger
	timeout time.Duration
}

// NewStuckAnalysisJob creates the sweep job
func NewStuckAnalysisJob(sweeper StuckAnalysisSweeper, maxAge time.Duration, logger *zap.Logger) *StuckAnalysisJob {
	return &StuckAnalysisJob{
		sweeper: sweeper,
		maxAge:  maxAge,
		logger:  logger,
		timeout: defaultJobTimeout,
	}
}

// Run executes one sweep
func (j *StuckAnalysisJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	failed, err := j.sweeper.FailStuckAnalyses(ctx, j.maxAge)
	if err != nil {
		j.logger.Error("stuck analysis sweep failed", zap.Error(err))
		return
	}
	if failed > 0 {
		j.logger.Warn("failed stuck document analyses",
			zap.Int64("documents", failed),
			zap.Duration("max_age", j.maxAge))
	}
}

// RegisterMaintenanceJobs adds both maintenance jobs to the scheduler. An empty
// expression leaves that job out.
func RegisterMaintenanceJobs(scheduler *Scheduler, cleaner SectionCleaner, sweeper StuckAnalysisSweeper, logger *zap.Logger, cleanupCron, stuckCron string, stuckMaxAge time.Duration) error {
	if cleanupCron != "" {
		job := NewRetiredSectionCleanupJob(cleaner, logger)
		if err := scheduler.AddJob(RetiredSectionCleanupJobName, cleanupCron, job.Run); err != nil {
			return err
		}
	}
	if stuckCron != "" {
		job := NewStuckAnalysisJob(sweeper, stuckMaxAge, logger)
		if err := scheduler.AddJob(StuckAnalysisJobName, stuckCron, job.Run); err != nil {
			return err
		}
	}
	return nil
}
