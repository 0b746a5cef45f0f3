package app

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/armory/internal/common"
)

// Job is a named background task run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Jobs returns the scheduled batch jobs.
func (a *App) Jobs() []Job {
	cfg := a.Config.Sync
	return []Job{
		{Name: "resync", Interval: cfg.GetResyncInterval(), Run: func(ctx context.Context) error {
			_, err := a.Sync.ResyncAll(ctx)
			return err
		}},
		{Name: "evict", Interval: cfg.GetEvictInterval(), Run: func(ctx context.Context) error {
			_, err := a.Sync.EvictStaleProfiles(ctx)
			return err
		}},
		{Name: "instances", Interval: cfg.GetInstancesInterval(), Run: func(ctx context.Context) error {
			_, err := a.Sync.RefreshInstances(ctx)
			return err
		}},
	}
}

// StartScheduler launches one ticker goroutine per job.
func (a *App) StartScheduler() {
	ctx, cancel := context.WithCancel(context.Background())
	a.schedulerCancel = cancel
	a.schedulerDone = startScheduler(ctx, a.Jobs(), a.Logger)
}

// StopScheduler cancels the jobs and waits for running ones to return.
func (a *App) StopScheduler() {
	if a.schedulerCancel == nil {
		return
	}
	a.schedulerCancel()
	<-a.schedulerDone
	a.schedulerCancel = nil
	a.schedulerDone = nil
}

// startScheduler runs every job until ctx is cancelled. The returned channel
// closes once all job loops have exited.
func startScheduler(ctx context.Context, jobs []Job, logger *common.Logger) chan struct{} {
	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			runJob(ctx, job, logger)
		}(job)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// runJob ticks job.Run sequentially, so a slow run delays the next one
// instead of overlapping it.
func runJob(ctx context.Context, job Job, logger *common.Logger) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	logger.Info().Str("job", job.Name).Dur("interval", job.Interval).Msg("Scheduler: job registered")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str("job", job.Name).Msg("Scheduler: stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if err := job.Run(ctx); err != nil {
				logger.Warn().Err(err).Str("job", job.Name).Msg("Scheduler: job failed")
				continue
			}
			logger.Info().Str("job", job.Name).Dur("elapsed", time.Since(start)).Msg("Scheduler: job complete")
		}
	}
}
