package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/armory/internal/common"
)

func TestStartScheduler_RunsJobsUntilCancelled(t *testing.T) {
	var ok, failing atomic.Int32
	jobs := []Job{
		{Name: "ok", Interval: 5 * time.Millisecond, Run: func(ctx context.Context) error {
			ok.Add(1)
			return nil
		}},
		{Name: "failing", Interval: 5 * time.Millisecond, Run: func(ctx context.Context) error {
			failing.Add(1)
			return errors.New("boom")
		}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := startScheduler(ctx, jobs, common.NewSilentLogger())

	assert.Eventually(t, func() bool {
		return ok.Load() >= 2 && failing.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRunJob_DoesNotOverlap(t *testing.T) {
	var running, overlaps atomic.Int32
	job := Job{Name: "slow", Interval: time.Millisecond, Run: func(ctx context.Context) error {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	runJob(ctx, job, common.NewSilentLogger())

	assert.Zero(t, overlaps.Load())
}
