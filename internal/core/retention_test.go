package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type purgeRecorder struct {
	cutoffs []time.Time
	err     error
}

func (p *purgeRecorder) PurgeReportsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return 3, p.err
}

func TestRetentionJob_RunOnce(t *testing.T) {
	p := &purgeRecorder{}
	job := NewRetentionJob(p, RetentionConfig{ReportDays: 30, CheckInterval: time.Hour})
	job.now = func() time.Time { return time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC) }

	assert.Equal(t, int64(3), job.RunOnce(context.Background()))
	assert.Equal(t, []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, p.cutoffs)
}

func TestRetentionJob_FailureReportsZero(t *testing.T) {
	p := &purgeRecorder{err: errors.New("db down")}
	job := NewRetentionJob(p, RetentionConfig{})

	assert.Zero(t, job.RunOnce(context.Background()))
	assert.Equal(t, 180, job.cfg.ReportDays)
	assert.Equal(t, 24*time.Hour, job.cfg.CheckInterval)
}

func TestRetentionJob_StartStopsOnCancel(t *testing.T) {
	p := &purgeRecorder{}
	job := NewRetentionJob(p, RetentionConfig{ReportDays: 1, CheckInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancellation")
	}
	assert.GreaterOrEqual(t, len(p.cutoffs), 2)
}
