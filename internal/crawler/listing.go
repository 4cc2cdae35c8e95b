package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"chemstalk/internal/config"
	"chemstalk/internal/fetcher"
	"chemstalk/internal/types"
)

// pageIndicatorSelector matches the span that precedes the "<current>
// of <last>" pagination text node.
const pageIndicatorSelector = `span[style="margin-right:0.3em;"]`

// ListingParser walks one category's listing pages and yields product
// links from the content table, following "Next" until the indicator
// says the last page is reached.
type ListingParser struct {
	fetch    *fetcher.HTTPFetcher
	cfg      *config.CrawlerConfig
	logger   *slog.Logger
	maxPages int
}

// NewListingParser creates a listing parser over the HTTP fetcher.
func NewListingParser(fetch *fetcher.HTTPFetcher, cfg *config.Config, logger *slog.Logger) *ListingParser {
	return &ListingParser{
		fetch:    fetch,
		cfg:      &cfg.Crawler,
		logger:   logger.With("component", "listing_parser"),
		maxPages: cfg.Crawler.MaxListingPages,
	}
}

// Walk fetches every page of the category starting at startURL and
// calls emit for each product link found. It returns the number of
// pages fetched. A malformed pagination indicator is a fatal error for
// the category, never a silent stop.
func (p *ListingParser) Walk(ctx context.Context, startURL string, emit func(productURL string)) (int, error) {
	pageURL := startURL

	for page := 1; ; page++ {
		if page > p.maxPages {
			return page - 1, fmt.Errorf("category %s: more than %d listing pages, refusing to continue", startURL, p.maxPages)
		}

		resp, err := p.fetch.Fetch(ctx, pageURL)
		if err != nil {
			return page - 1, fmt.Errorf("listing page %s: %w", pageURL, err)
		}

		doc, err := resp.Document()
		if err != nil {
			return page, &types.ParseError{URL: pageURL, Err: err}
		}

		links := p.productLinks(doc, resp.FinalURL)
		p.logger.Debug("listing page parsed", "url", pageURL, "page", page, "links", len(links))
		for _, link := range links {
			emit(link)
		}

		last, err := p.isLastPage(doc, pageURL)
		if err != nil {
			return page, err
		}
		if last {
			return page, nil
		}

		next, err := p.nextPageURL(doc, resp.FinalURL)
		if err != nil {
			return page, err
		}
		pageURL = next
	}
}

// productLinks extracts the product-detail links from the content table.
func (p *ListingParser) productLinks(doc *goquery.Document, base string) []string {
	var links []string
	doc.Find(listingLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if abs, err := absoluteURL(base, href); err == nil {
			links = append(links, abs)
		}
	})
	return links
}

// isLastPage reads the "<current> of <last>" indicator. The indicator
// is a bare text node following a marker span, wrapped in fixed
// parenthesis/space characters that are trimmed before splitting.
func (p *ListingParser) isLastPage(doc *goquery.Document, pageURL string) (bool, error) {
	sel := doc.Find(pageIndicatorSelector)
	if sel.Length() == 0 {
		return false, &types.ParseError{URL: pageURL, Selector: pageIndicatorSelector, Err: fmt.Errorf("pagination indicator missing")}
	}

	node := sel.Get(0).NextSibling
	for node != nil && node.Type != html.TextNode {
		node = node.NextSibling
	}
	if node == nil {
		return false, &types.ParseError{URL: pageURL, Selector: pageIndicatorSelector, Err: fmt.Errorf("pagination indicator has no text")}
	}

	current, lastPage, err := parsePageIndicator(node.Data)
	if err != nil {
		return false, &types.ParseError{URL: pageURL, Selector: pageIndicatorSelector, Err: err}
	}
	return current == lastPage, nil
}

// nextPageURL finds the "Next" link and resolves it against the domain.
func (p *ListingParser) nextPageURL(doc *goquery.Document, base string) (string, error) {
	var href string
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), "Next") {
			href, _ = sel.Attr("href")
			return false
		}
		return true
	})
	if href == "" {
		return "", &types.ParseError{URL: base, Err: fmt.Errorf("indicator says more pages but no Next link found")}
	}
	return absoluteURL(base, href)
}

// parsePageIndicator parses text of the form "(<current> of <last>)"
// after trimming the fixed wrapper characters at each end.
func parsePageIndicator(text string) (current, last string, err error) {
	trimmed := strings.Trim(text, "() \n\t\u00a0")
	parts := strings.Split(trimmed, " of ")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed pagination indicator: %q", text)
	}
	current = strings.TrimSpace(parts[0])
	last = strings.TrimSpace(parts[1])
	if current == "" || last == "" {
		return "", "", fmt.Errorf("malformed pagination indicator: %q", text)
	}
	return current, last, nil
}

// absoluteURL resolves href against base.
func absoluteURL(base, href string) (string, error) {
	bu, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	hu, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return bu.ResolveReference(hu).String(), nil
}
