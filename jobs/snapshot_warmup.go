package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/innkeeper/backoffice/internal/jobs"
	"github.com/innkeeper/backoffice/internal/pages"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const (
	warmupParallelism = 4
	warmupTimeout     = 20 * time.Second
)

// SnapshotWarmupJob fetches every list resource from the API and stores it as
// the fallback snapshot pages use when the API is down.
type SnapshotWarmupJob struct {
	Warmers []pages.Warmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSnapshotWarmupJob wires dependencies for the warmup handler.
func NewSnapshotWarmupJob(warmers []pages.Warmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *SnapshotWarmupJob {
	return &SnapshotWarmupJob{Warmers: warmers, Logger: logger, Metrics: metrics}
}

// Handle processes snapshot warmup tasks.
func (j *SnapshotWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("snapshot warmup: handler not configured")
	}
	var payload SnapshotWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("snapshot warmup: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	tracker := j.metrics().Track(TaskSnapshotWarmup)
	logger := j.logger()

	selected, unknown := j.selectWarmers(payload.Resources)
	if len(unknown) > 0 {
		logger.Warn("skipping unknown resources", slog.Any("resources", unknown))
	}
	if len(selected) == 0 {
		logger.Info("no resources to warm")
		return tracker.End(nil)
	}

	started := time.Now()
	var saved atomic.Int64
	var g errgroup.Group
	g.SetLimit(warmupParallelism)
	for _, w := range selected {
		g.Go(func() error {
			warmCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
			defer cancel()
			n, err := w.Warm(warmCtx)
			if err != nil {
				logger.Error("warm snapshot", slog.String("resource", w.Resource), slog.Any("error", err))
				return fmt.Errorf("%s: %w", w.Resource, err)
			}
			j.metrics().AddSnapshotRecords(w.Resource, n)
			saved.Add(int64(n))
			return nil
		})
	}
	err := g.Wait()
	logger.Info("completed snapshot warmup",
		slog.Int("resources", len(selected)),
		slog.Int64("records", saved.Load()),
		slog.Duration("duration", time.Since(started)))
	return tracker.End(err)
}

func (j *SnapshotWarmupJob) selectWarmers(resources []string) ([]pages.Warmer, []string) {
	if len(resources) == 0 {
		return j.Warmers, nil
	}
	byName := make(map[string]pages.Warmer, len(j.Warmers))
	for _, w := range j.Warmers {
		byName[w.Resource] = w
	}
	var selected []pages.Warmer
	var unknown []string
	seen := make(map[string]bool, len(resources))
	for _, name := range resources {
		if seen[name] {
			continue
		}
		seen[name] = true
		if w, ok := byName[name]; ok {
			selected = append(selected, w)
			continue
		}
		unknown = append(unknown, name)
	}
	return selected, unknown
}

func (j *SnapshotWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSnapshotWarmup))
	}
	return slog.Default().With(slog.String("job", TaskSnapshotWarmup))
}

func (j *SnapshotWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
