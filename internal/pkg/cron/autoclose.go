package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/metrics"
)

const scanLockKey = "overdue-scan"

type AutoCloseConfig struct {
	Interval    time.Duration
	ScanTimeout time.Duration
	// LockTTL bounds how long a crashed instance can block others.
	LockTTL time.Duration
}

// AutoCloseJobs drives the overdue scan. Only one instance scans at a time;
// the others skip their tick.
type AutoCloseJobs struct {
	closer  timeentry.AutoCloser
	locker  lock.Locker
	metrics *metrics.Metrics
	cfg     AutoCloseConfig
	now     func() time.Time
}

func NewAutoCloseJobs(
	closer timeentry.AutoCloser,
	locker lock.Locker,
	m *metrics.Metrics,
	cfg AutoCloseConfig,
) *AutoCloseJobs {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 5 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.ScanTimeout + time.Minute
	}
	return &AutoCloseJobs{
		closer:  closer,
		locker:  locker,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (j *AutoCloseJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("scan_overdue_entries", j.cfg.Interval, j.ScanOverdueEntries)
}

// ScanOverdueEntries sends reminders and auto-closes entries left open past
// their shift.
func (j *AutoCloseJobs) ScanOverdueEntries(ctx context.Context) error {
	release, err := j.locker.Acquire(ctx, scanLockKey, j.cfg.LockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		slog.Debug("Cron: Overdue scan held by another instance")
		j.metrics.IncRun("skipped_locked")
		return nil
	}
	if err != nil {
		j.metrics.IncRun("failed")
		return fmt.Errorf("failed to acquire scan lock: %w", err)
	}
	defer func() {
		// release on a fresh context so a cancelled scan still frees the lock
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := release(relCtx); err != nil {
			slog.Warn("Cron: Failed to release scan lock", "error", err)
		}
	}()

	scanCtx, cancel := context.WithTimeout(ctx, j.cfg.ScanTimeout)
	defer cancel()

	slog.Info("Cron: Starting overdue entry scan")
	start := time.Now()

	res, err := j.closer.ScanOverdue(scanCtx, j.now())
	if err != nil {
		j.metrics.IncRun("failed")
		return fmt.Errorf("overdue scan: %w", err)
	}

	j.metrics.IncRun("ok")
	j.metrics.ObserveScan(time.Since(start), res.Scanned, map[string]int{
		"reminder_sent":   res.RemindersSent,
		"delivery_failed": res.DeliveryFailed,
		"auto_closed":     res.AutoClosed,
		"conflict":        res.Conflicts,
		"resolve_failed":  res.ResolveFailures,
		"error":           res.Errors,
	})

	slog.Info("Cron: Overdue entry scan completed",
		"scanned", res.Scanned,
		"reminders_sent", res.RemindersSent,
		"auto_closed", res.AutoClosed,
		"duration", time.Since(start),
	)
	return nil
}
