package core

// retention.go runs the report-history purge in the background.
//
// Generated artifacts are never stored, only their history rows. Those rows
// accumulate with every request, so a long-running job deletes rows older
// than the retention window. The job is context-aware for graceful shutdown
// and logs failures without stopping the application.

import (
	"context"
	"log/slog"
	"time"
)

// HistoryPurger deletes report history rows created before cutoff.
type HistoryPurger interface {
	PurgeReportsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig holds configuration for the retention job.
type RetentionConfig struct {
	ReportDays    int           // Days of history to keep (default: 180)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.ReportDays <= 0 {
		c.ReportDays = 180
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 24 * time.Hour
	}
	return c
}

// RetentionJob periodically purges old report history.
type RetentionJob struct {
	purger HistoryPurger
	cfg    RetentionConfig
	now    func() time.Time
}

// NewRetentionJob creates a job over purger.
func NewRetentionJob(purger HistoryPurger, cfg RetentionConfig) *RetentionJob {
	return &RetentionJob{purger: purger, cfg: cfg.withDefaults(), now: time.Now}
}

// Start runs the purge immediately, then every CheckInterval, until ctx is
// cancelled.
func (j *RetentionJob) Start(ctx context.Context) {
	slog.Info("retention job started",
		"report_days", j.cfg.ReportDays,
		"check_interval", j.cfg.CheckInterval.String(),
	)

	j.RunOnce(ctx)

	ticker := time.NewTicker(j.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs one purge cycle and returns the number of rows removed.
func (j *RetentionJob) RunOnce(ctx context.Context) int64 {
	start := time.Now()
	cutoff := j.now().AddDate(0, 0, -j.cfg.ReportDays)

	purged, err := j.purger.PurgeReportsBefore(ctx, cutoff)
	if err != nil {
		slog.Error("report history purge failed", "error", err)
		return 0
	}

	slog.Info("purged report history",
		"rows_purged", purged,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
