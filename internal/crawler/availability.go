package crawler

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chemstalk/internal/config"
	"chemstalk/internal/fetcher"
	"chemstalk/internal/types"
)

// stockMarkers are the body substrings that indicate a pack size is in
// stock; the second covers region-specific warehouse stock.
var stockMarkers = []string{"in stock", "in China stock"}

// Prober resolves availability for every pack-size row of an item.
//
// Probes are exhaustive by design: every row issues its own dependent
// request and all results are accumulated before the item-level flag is
// folded. Short-circuiting on the first in-stock row would under-report
// availability for the rows after it.
type Prober struct {
	fetch   *fetcher.HTTPFetcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewProber creates a prober over the HTTP fetcher.
func NewProber(fetch *fetcher.HTTPFetcher, cfg *config.Config, logger *slog.Logger) *Prober {
	return &Prober{
		fetch:   fetch,
		timeout: cfg.Crawler.ProbeTimeout,
		logger:  logger.With("component", "availability_prober"),
	}
}

// Probe scatters one request per probe URL, gathers all results, and
// folds them into item.Availability. It returns only after every probe
// for the item has resolved, so the caller can safely hand the item
// downstream. A timeout on a single row is non-fatal: that row counts
// as unavailable.
func (p *Prober) Probe(ctx context.Context, item *types.ChemicalItem, probeURLs []string) {
	results := make([]bool, len(probeURLs))

	var wg sync.WaitGroup
	for i, probeURL := range probeURLs {
		wg.Add(1)
		go func(i int, probeURL string) {
			defer wg.Done()
			results[i] = p.probeOne(ctx, probeURL)
		}(i, probeURL)
	}
	wg.Wait() // fan-in barrier: all rows resolved before the fold

	item.ProbeResults = results
	item.FoldAvailability()

	p.logger.Debug("availability resolved",
		"cas", item.CASNumber,
		"probes", len(probeURLs),
		"available", item.Availability,
	)
}

// probeOne issues a single dependent request and checks the body for a
// stock marker.
func (p *Prober) probeOne(ctx context.Context, probeURL string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.fetch.Fetch(probeCtx, probeURL)
	if err != nil {
		p.logger.Debug("probe failed, treating as unavailable", "url", probeURL, "error", err)
		return false
	}

	body := resp.Text()
	for _, marker := range stockMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
