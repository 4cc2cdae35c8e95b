package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chemstalk/internal/config"
	"chemstalk/internal/fetcher"
	"chemstalk/internal/types"
)

// redirectMarker is the client-side redirect assignment embedded in the
// script text of listing indirection pages. The real destination is the
// quoted path that follows it.
const redirectMarker = "window.parent.location='"

// RedirectResolver follows listing links that land on an indirection
// page instead of the product page itself.
type RedirectResolver struct {
	fetch  *fetcher.HTTPFetcher
	cfg    *config.CrawlerConfig
	logger *slog.Logger
}

// NewRedirectResolver creates a resolver over the HTTP fetcher.
func NewRedirectResolver(fetch *fetcher.HTTPFetcher, cfg *config.Config, logger *slog.Logger) *RedirectResolver {
	return &RedirectResolver{
		fetch:  fetch,
		cfg:    &cfg.Crawler,
		logger: logger.With("component", "redirect_resolver"),
	}
}

// Resolve fetches the listing link and extracts the embedded product
// page URL. A body without the redirect marker means this listing entry
// is not a product indirection; the item is skipped.
func (r *RedirectResolver) Resolve(ctx context.Context, linkURL string) (string, error) {
	resp, err := r.fetch.Fetch(ctx, linkURL)
	if err != nil {
		return "", err
	}

	path, err := extractRedirectPath(resp.Text())
	if err != nil {
		return "", &types.ParseError{URL: linkURL, Err: err}
	}

	return strings.TrimSuffix(r.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/"), nil
}

// extractRedirectPath pulls the quoted path out of the redirect
// assignment.
func extractRedirectPath(body string) (string, error) {
	_, after, found := strings.Cut(body, redirectMarker)
	if !found {
		return "", types.ErrRedirectMarker
	}
	path, _, found := strings.Cut(after, "'")
	if !found {
		return "", fmt.Errorf("%w: unterminated assignment", types.ErrRedirectMarker)
	}
	if path == "" {
		return "", fmt.Errorf("%w: empty path", types.ErrRedirectMarker)
	}
	return path, nil
}
