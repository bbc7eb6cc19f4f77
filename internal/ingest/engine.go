package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/neurod3/catalog-cli/internal/fetcher"
	"github.com/neurod3/catalog-cli/internal/store"
)

// Engine orchestrates source sync runs.
type Engine struct {
	store       store.Store
	fetcher     fetcher.Fetcher
	reg         *Registry
	concurrency int
}

// RunOpts configures which sources to sync and how.
type RunOpts struct {
	Sources []string // restrict to specific source names
	Force   bool     // ignore ShouldRun() scheduling
}

// RunStats summarizes an engine run.
type RunStats struct {
	Synced  int
	Skipped int
	Failed  int
	Rows    int64
}

// NewEngine creates a new sync engine.
func NewEngine(st store.Store, f fetcher.Fetcher, reg *Registry, concurrency int) *Engine {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Engine{
		store:       st,
		fetcher:     f,
		reg:         reg,
		concurrency: concurrency,
	}
}

// Run syncs the selected sources, recording each attempt in the sync log,
// and refreshes the unified view when at least one source synced. Individual
// source failures are logged and counted; they do not abort the run.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (RunStats, error) {
	log := zap.L().With(zap.String("component", "ingest.engine"))
	now := time.Now().UTC()

	sources, err := e.reg.Select(opts.Sources)
	if err != nil {
		return RunStats{}, err
	}
	if len(sources) == 0 {
		log.Info("no sources selected")
		return RunStats{}, nil
	}

	log.Info("selected sources", zap.Int("count", len(sources)))

	var mu sync.Mutex
	var stats RunStats

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, src := range sources {
		g.Go(func() error {
			outcome, rows, err := e.syncSource(gctx, src, now, opts.Force)
			if err != nil {
				// Context cancellation aborts the whole run; source-level
				// failures were already counted.
				return err
			}
			mu.Lock()
			switch outcome {
			case "synced":
				stats.Synced++
				stats.Rows += rows
			case "skipped":
				stats.Skipped++
			case "failed":
				stats.Failed++
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	if stats.Synced > 0 {
		if err := e.store.RefreshUnifiedView(ctx); err != nil {
			return stats, eris.Wrap(err, "engine: refresh unified view")
		}
	}

	log.Info("engine run complete",
		zap.Int("synced", stats.Synced),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
		zap.Int64("rows", stats.Rows),
	)
	return stats, nil
}

func (e *Engine) syncSource(ctx context.Context, src Source, now time.Time, force bool) (string, int64, error) {
	log := zap.L().With(
		zap.String("component", "ingest.engine"),
		zap.String("source", string(src.Name())),
		zap.String("cadence", string(src.Cadence())),
	)

	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	if !force {
		lastSync, err := e.store.LastSyncSuccess(ctx, src.Name())
		if err != nil {
			return "", 0, eris.Wrapf(err, "engine: check last sync for %s", src.Name())
		}
		if !src.ShouldRun(now, lastSync) {
			log.Debug("skipping (not due)")
			return "skipped", 0, nil
		}
	}

	log.Info("starting sync")
	syncID, err := e.store.StartSync(ctx, src.Name())
	if err != nil {
		return "", 0, eris.Wrapf(err, "engine: start sync log for %s", src.Name())
	}

	start := time.Now()
	rows, err := e.runSync(ctx, src)
	elapsed := time.Since(start)

	if err != nil {
		log.Error("sync failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		if logErr := e.store.FailSync(ctx, syncID, err.Error()); logErr != nil {
			log.Error("failed to record sync failure", zap.Error(logErr))
		}
		return "failed", 0, nil
	}

	if err := e.store.CompleteSync(ctx, syncID, rows); err != nil {
		log.Error("failed to record sync completion", zap.Error(err))
	}

	log.Info("sync complete",
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	return "synced", rows, nil
}

func (e *Engine) runSync(ctx context.Context, src Source) (int64, error) {
	records, err := src.Fetch(ctx, e.fetcher)
	if err != nil {
		return 0, eris.Wrapf(err, "engine: fetch %s", src.Name())
	}
	n, err := e.store.UpsertDatasets(ctx, records)
	if err != nil {
		return 0, eris.Wrapf(err, "engine: upsert %s", src.Name())
	}
	return n, nil
}
