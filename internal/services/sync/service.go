// Package sync drives enrichment across many characters: scheduled resyncs,
// forced per-user updates, imports, profile eviction and the instance catalogue.
package sync

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/armory/internal/common"
	"github.com/bobmcallan/armory/internal/interfaces"
	"github.com/bobmcallan/armory/internal/metrics"
)

var (
	// ErrCooldown is returned when a forced update is requested too soon.
	ErrCooldown = errors.New("forced update not allowed yet")

	// ErrNoCharacters is returned when a user has no stored characters.
	ErrNoCharacters = errors.New("no characters found")
)

// Report summarises one batch run.
type Report struct {
	RunID     string        `json:"run_id"`
	Job       string        `json:"job"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Processed int           `json:"processed"`
	Updated   int           `json:"updated"`
	Invalid   int           `json:"invalid"`
	Failed    int           `json:"failed"`
	Errors    []ItemError   `json:"errors,omitempty"`

	mu gosync.Mutex
}

// ItemError records one failed item of a batch.
type ItemError struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

func (r *Report) fail(id int64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed++
	r.Errors = append(r.Errors, ItemError{ID: id, Error: err.Error()})
	metrics.SyncItems.WithLabelValues(r.Job, "failed").Inc()
}

func (r *Report) count(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch outcome {
	case "updated":
		r.Updated++
	case "invalid":
		r.Invalid++
	}
	metrics.SyncItems.WithLabelValues(r.Job, outcome).Inc()
}

// Service runs the batch jobs.
type Service struct {
	client   interfaces.BattlenetClient
	enricher interfaces.CharacterEnricher
	writer   interfaces.RecordWriter
	storage  interfaces.StorageManager
	assets   interfaces.AssetCache
	config   common.SyncConfig
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing
}

// NewService creates a batch driver.
func NewService(
	client interfaces.BattlenetClient,
	enricher interfaces.CharacterEnricher,
	writer interfaces.RecordWriter,
	storage interfaces.StorageManager,
	assets interfaces.AssetCache,
	config common.SyncConfig,
	logger *common.Logger,
) *Service {
	return &Service{
		client:   client,
		enricher: enricher,
		writer:   writer,
		storage:  storage,
		assets:   assets,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) newReport(job string) *Report {
	return &Report{
		RunID:     uuid.New().String(),
		Job:       job,
		StartedAt: s.now().UTC(),
	}
}

func (s *Service) finish(r *Report) {
	r.Duration = s.now().Sub(r.StartedAt)
	metrics.SyncDuration.WithLabelValues(r.Job).Observe(r.Duration.Seconds())
	s.logger.Info().
		Str("run_id", r.RunID).
		Str("job", r.Job).
		Int("processed", r.Processed).
		Int("updated", r.Updated).
		Int("invalid", r.Invalid).
		Int("failed", r.Failed).
		Dur("duration", r.Duration).
		Msg("Batch run complete")
}

// forEach runs fn over items with at most limit in flight. A panic in fn is
// recovered and returned as that item's error; item errors never cancel the
// others.
func forEach[T any](ctx context.Context, limit int, items []T, fn func(context.Context, T) error) []error {
	errs := make([]error, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, item := range items {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
				}
			}()
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = fn(gctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		out = append(out, items[start:min(start+size, len(items))])
	}
	return out
}
