package crawler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"chemstalk/internal/config"
	"chemstalk/internal/driver"
	"chemstalk/internal/fetcher"
	"chemstalk/internal/storage"
	"chemstalk/internal/types"
)

// Runner launches crawl runs on demand and enforces that at most one
// run is in flight. Browser sessions and the HTTP fetcher are built
// fresh per run and torn down when it ends.
type Runner struct {
	cfg    *config.Config
	store  storage.Store
	logger *slog.Logger

	running atomic.Bool

	mu   sync.Mutex
	last *Stats
}

// NewRunner creates a runner over a shared store.
func NewRunner(cfg *config.Config, store storage.Store, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		store:  store,
		logger: logger.With("component", "runner"),
	}
}

// Launch wipes the company's stored items and starts a crawl for it in
// the background, returning the number of rows deleted. The run slot is
// reserved before anything is deleted, so a refused launch leaves the
// stored data untouched. Returns types.ErrUnknownCompany for an
// unregistered name and types.ErrCrawlRunning while a previous run is
// still in flight.
func (r *Runner) Launch(ctx context.Context, companyName string) (int64, error) {
	if _, ok := Companies[companyName]; !ok {
		return 0, types.ErrUnknownCompany
	}
	if !r.running.CompareAndSwap(false, true) {
		return 0, types.ErrCrawlRunning
	}

	deleted, err := r.store.DeleteByCompany(ctx, companyName)
	if err != nil {
		r.running.Store(false)
		return 0, err
	}

	go func() {
		defer r.running.Store(false)
		r.run(companyName)
	}()

	return deleted, nil
}

// Running reports whether a crawl is currently in flight.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Stats returns the counters of the current or most recent run.
func (r *Runner) Stats() map[string]any {
	r.mu.Lock()
	stats := r.last
	r.mu.Unlock()

	if stats == nil {
		return map[string]any{"state": "idle"}
	}
	out := stats.Snapshot()
	if r.running.Load() {
		out["state"] = "running"
	} else {
		out["state"] = "finished"
	}
	return out
}

// runConfig returns a copy of the config with the launched company
// threaded into the crawl settings, so extracted items are attributed
// to the company that triggered the run.
func (r *Runner) runConfig(companyName string) *config.Config {
	cfg := *r.cfg
	cfg.Crawler.CompanyName = companyName
	return &cfg
}

func (r *Runner) run(companyName string) {
	logger := r.logger.With("company", companyName, "site", Companies[companyName])
	logger.Info("crawl run starting")

	cfg := r.runConfig(companyName)

	full, err := driver.NewFullLoad(&cfg.Driver, r.logger)
	if err != nil {
		logger.Error("full-load session failed", "error", err)
		return
	}
	defer full.Close()

	eager, err := driver.NewEagerLoad(&cfg.Driver, r.logger)
	if err != nil {
		logger.Error("eager-load session failed", "error", err)
		return
	}
	defer eager.Close()

	fetch, err := fetcher.New(cfg, r.logger)
	if err != nil {
		logger.Error("fetcher init failed", "error", err)
		return
	}

	c := New(cfg, full, eager, fetch, r.store, r.logger)

	r.mu.Lock()
	r.last = c.Stats()
	r.mu.Unlock()

	if err := c.Run(context.Background()); err != nil {
		logger.Error("crawl run failed", "error", err)
		return
	}
	logger.Info("crawl run finished")
}
