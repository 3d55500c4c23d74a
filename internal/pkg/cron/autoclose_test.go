package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/domain/timeentry"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCloser struct {
	calls atomic.Int32
	res   timeentry.ScanResult
	err   error
	block chan struct{}
}

func (s *stubCloser) ScanOverdue(ctx context.Context, _ time.Time) (timeentry.ScanResult, error) {
	s.calls.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return timeentry.ScanResult{}, ctx.Err()
		}
	}
	return s.res, s.err
}

func newJobs(closer timeentry.AutoCloser, locker lock.Locker) (*AutoCloseJobs, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry(), "timecard")
	return NewAutoCloseJobs(closer, locker, m, AutoCloseConfig{Interval: time.Minute}), m
}

func TestScanOverdueEntries_RecordsResult(t *testing.T) {
	closer := &stubCloser{res: timeentry.ScanResult{Scanned: 4, RemindersSent: 2, AutoClosed: 1}}
	jobs, m := newJobs(closer, lock.NewLocalLocker())

	require.NoError(t, jobs.ScanOverdueEntries(context.Background()))

	assert.Equal(t, int32(1), closer.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EscalationsTotal.WithLabelValues("reminder_sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EscalationsTotal.WithLabelValues("auto_closed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.OpenEntriesScanned))
}

func TestScanOverdueEntries_SkipsWhenLocked(t *testing.T) {
	locker := lock.NewLocalLocker()
	release, err := locker.Acquire(context.Background(), scanLockKey, time.Minute)
	require.NoError(t, err)
	defer release(context.Background())

	closer := &stubCloser{}
	jobs, m := newJobs(closer, locker)

	require.NoError(t, jobs.ScanOverdueEntries(context.Background()))

	assert.Equal(t, int32(0), closer.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanRunsTotal.WithLabelValues("skipped_locked")))
}

func TestScanOverdueEntries_ReleasesLockOnFailure(t *testing.T) {
	locker := lock.NewLocalLocker()
	closer := &stubCloser{err: errors.New("database down")}
	jobs, m := newJobs(closer, locker)

	err := jobs.ScanOverdueEntries(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScanRunsTotal.WithLabelValues("failed")))

	release, err := locker.Acquire(context.Background(), scanLockKey, time.Minute)
	require.NoError(t, err, "lock must be released after a failed scan")
	require.NoError(t, release(context.Background()))
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler()
	closer := &stubCloser{}
	jobs, _ := newJobs(closer, lock.NewLocalLocker())
	jobs.RegisterJobs(s)

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	assert.Equal(t, int32(2), closer.calls.Load())
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	s := NewScheduler()
	closer := &stubCloser{block: make(chan struct{})}
	s.AddJob("slow", time.Hour, func(ctx context.Context) error {
		_, err := closer.ScanOverdue(ctx, time.Now())
		return err
	})
	job := s.jobs[0]

	done := make(chan bool)
	go func() { done <- s.executeJob(context.Background(), job) }()
	require.Eventually(t, func() bool { return closer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, s.executeJob(context.Background(), job))

	close(closer.block)
	assert.True(t, <-done)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	s.AddJob("tick", time.Hour, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
}
