// Package crawler implements the crawl-extract-normalize pipeline for
// the vendor catalog: category discovery over a stateful menu, listing
// pagination, redirect resolution, per-product extraction, exhaustive
// availability probing, normalization, and persistence.
package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"chemstalk/internal/config"
	"chemstalk/internal/driver"
	"chemstalk/internal/fetcher"
	"chemstalk/internal/pipeline"
	"chemstalk/internal/storage"
	"chemstalk/internal/types"
)

// Companies maps a company identifier accepted by the trigger interface
// to the site crawler that serves it.
var Companies = map[string]string{
	"AstaTech": "astatechinc_com",
}

// Stats tracks counters for one crawl run.
type Stats struct {
	CategoriesFound atomic.Int64
	ListingPages    atomic.Int64
	ProductsSeen    atomic.Int64
	ItemsScraped    atomic.Int64
	ItemsDropped    atomic.Int64
	ItemsSkipped    atomic.Int64
	ProbesSent      atomic.Int64
	Failures        atomic.Int64
	StartTime       time.Time
}

// Snapshot returns a copy of the stats safe for serialization.
func (s *Stats) Snapshot() map[string]any {
	out := map[string]any{
		"categories_found": s.CategoriesFound.Load(),
		"listing_pages":    s.ListingPages.Load(),
		"products_seen":    s.ProductsSeen.Load(),
		"items_scraped":    s.ItemsScraped.Load(),
		"items_dropped":    s.ItemsDropped.Load(),
		"items_skipped":    s.ItemsSkipped.Load(),
		"probes_sent":      s.ProbesSent.Load(),
		"failures":         s.Failures.Load(),
	}
	if !s.StartTime.IsZero() {
		out["elapsed"] = time.Since(s.StartTime).String()
	}
	return out
}

// Crawler orchestrates one crawl run end to end.
//
// Resource model: the full-load browser session belongs to category
// discovery; the eager session renders product pages and is serialized
// behind a mutex because browser state is mutated destructively by
// every navigation. Listing fetches and availability probes go over
// plain HTTP and fan out within the worker pool bound.
type Crawler struct {
	cfg    *config.Config
	logger *slog.Logger

	categories *CategoryCrawler
	listing    *ListingParser
	redirect   *RedirectResolver
	extractor  *ProductExtractor
	prober     *Prober

	eager   driver.Driver
	eagerMu sync.Mutex

	pipe  *pipeline.Pipeline
	store storage.Store
	dedup *Deduplicator
	stats *Stats
}

// New wires a crawler from its collaborators. The full session drives
// category discovery; the eager session renders product pages.
func New(
	cfg *config.Config,
	full driver.Driver,
	eager driver.Driver,
	fetch *fetcher.HTTPFetcher,
	store storage.Store,
	logger *slog.Logger,
) *Crawler {
	return &Crawler{
		cfg:        cfg,
		logger:     logger.With("component", "crawler"),
		categories: NewCategoryCrawler(full, cfg, logger),
		listing:    NewListingParser(fetch, cfg, logger),
		redirect:   NewRedirectResolver(fetch, cfg, logger),
		extractor:  NewProductExtractor(cfg, logger),
		prober:     NewProber(fetch, cfg, logger),
		eager:      eager,
		pipe:       pipeline.Default(logger),
		store:      store,
		dedup:      NewDeduplicator(),
		stats:      &Stats{},
	}
}

// Stats returns the run counters.
func (c *Crawler) Stats() *Stats {
	return c.stats
}

// Run executes one full crawl: discovery, listing walk, and the
// per-product extract-probe-normalize-persist chain.
func (c *Crawler) Run(ctx context.Context) error {
	c.stats.StartTime = time.Now()

	listingURLs, err := c.categories.Discover(ctx)
	if err != nil {
		return err
	}
	c.stats.CategoriesFound.Store(int64(len(listingURLs)))
	c.logger.Info("category discovery complete", "listing_urls", len(listingURLs))

	productCh := make(chan string, 64)

	// Producer: walk every category's pages, feeding product links.
	var walkWg sync.WaitGroup
	walkWg.Add(1)
	go func() {
		defer walkWg.Done()
		defer close(productCh)
		for _, listingURL := range listingURLs {
			if ctx.Err() != nil {
				return
			}
			if !c.dedup.Claim(listingURL) {
				continue
			}
			pages, err := c.listing.Walk(ctx, listingURL, func(productURL string) {
				c.stats.ProductsSeen.Add(1)
				select {
				case productCh <- productURL:
				case <-ctx.Done():
				}
			})
			c.stats.ListingPages.Add(int64(pages))
			if err != nil {
				// A broken pagination indicator kills this category
				// only; the rest of the crawl continues.
				c.stats.Failures.Add(1)
				c.logger.Error("category walk failed", "url", listingURL, "error", err)
			}
		}
	}()

	// Consumers: bounded worker pool over product links.
	var workWg sync.WaitGroup
	for i := 0; i < c.cfg.Crawler.Concurrency; i++ {
		workWg.Add(1)
		go func(id int) {
			defer workWg.Done()
			logger := c.logger.With("worker_id", id)
			for productURL := range productCh {
				if ctx.Err() != nil {
					return
				}
				c.processProduct(ctx, logger, productURL)
				if delay := c.cfg.Crawler.PolitenessDelay; delay > 0 {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return
					}
				}
			}
		}(i)
	}

	walkWg.Wait()
	workWg.Wait()

	c.logger.Info("crawl complete", "stats", c.stats.Snapshot())
	return ctx.Err()
}

// processProduct runs one listing link through the full per-item chain.
// Structural mismatches skip the item; nothing at this level retries.
func (c *Crawler) processProduct(ctx context.Context, logger *slog.Logger, linkURL string) {
	productURL, err := c.redirect.Resolve(ctx, linkURL)
	if err != nil {
		c.stats.ItemsSkipped.Add(1)
		logger.Debug("listing link skipped", "url", linkURL, "error", err)
		return
	}

	pageHTML, err := c.renderProductPage(productURL)
	if err != nil {
		c.stats.Failures.Add(1)
		logger.Warn("product page render failed", "url", productURL, "error", err)
		return
	}

	item, probeURLs, err := c.extractor.Extract(pageHTML, productURL)
	if err != nil {
		c.stats.Failures.Add(1)
		logger.Warn("product extraction failed", "url", productURL, "error", err)
		return
	}
	if item == nil {
		// Not a product page. Silent skip by contract.
		c.stats.ItemsSkipped.Add(1)
		return
	}

	c.stats.ProbesSent.Add(int64(len(probeURLs)))
	c.prober.Probe(ctx, item, probeURLs)

	processed, err := c.pipe.Process(item)
	if err != nil {
		if types.IsDrop(err) {
			c.stats.ItemsDropped.Add(1)
			return
		}
		c.stats.Failures.Add(1)
		logger.Warn("pipeline failed", "url", productURL, "error", err)
		return
	}

	if err := c.store.Insert(ctx, processed); err != nil {
		// Write failure means the item is dropped, not retried.
		c.stats.ItemsDropped.Add(1)
		var storageErr *types.StorageError
		if errors.As(err, &storageErr) {
			logger.Error("item not persisted", "url", productURL, "error", err)
		}
		return
	}

	c.stats.ItemsScraped.Add(1)
	logger.Debug("item persisted", "cas", processed.CASNumber, "rows", len(processed.Rows), "available", processed.Availability)
}

// renderProductPage navigates the eager session to the product URL and
// returns the rendered DOM. The session is single-owner, so navigate
// and read happen under one critical section.
func (c *Crawler) renderProductPage(productURL string) (string, error) {
	c.eagerMu.Lock()
	defer c.eagerMu.Unlock()

	if err := c.eager.Navigate(productURL); err != nil {
		return "", err
	}
	return c.eager.HTML()
}
