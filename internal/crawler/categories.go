package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chemstalk/internal/config"
	"chemstalk/internal/driver"
	"chemstalk/internal/types"
)

// Selectors for the catalog's menu structure. The menu is stateful DOM:
// a MenuCategory anchor carries an onclick handler that swaps the
// visible submenu in place, so every leaf has to be reached by clicking
// from a freshly loaded root page.
const (
	// menuAnchorSelector matches the top-level menu entries.
	menuAnchorSelector = "#menu a"

	// menuSwitchMarker is the script call that distinguishes a submenu
	// switcher from a directly navigating entry.
	menuSwitchMarker = "TTT("

	// submenuLinkSelector matches the category links a submenu reveals.
	submenuLinkSelector = `a[href*="CCatagory="]`

	// listingLinkSelector matches product links on a listing page; its
	// appearance is the signal that a category click took effect.
	listingLinkSelector = `a[href*="cat="]`
)

// CategoryCrawler walks the catalog's nested menu and produces the set
// of listing-page URLs reachable from it.
type CategoryCrawler struct {
	drv    driver.Driver
	cfg    *config.CrawlerConfig
	dcfg   *config.DriverConfig
	logger *slog.Logger
}

// NewCategoryCrawler creates a crawler over the full-load session.
func NewCategoryCrawler(drv driver.Driver, cfg *config.Config, logger *slog.Logger) *CategoryCrawler {
	return &CategoryCrawler{
		drv:    drv,
		cfg:    &cfg.Crawler,
		dcfg:   &cfg.Driver,
		logger: logger.With("component", "category_crawler"),
	}
}

// Discover returns the listing-page URLs for every reachable category.
//
// A timeout while waiting for a submenu leaf is absorbed: that leaf is
// skipped and enumeration continues. A timeout on a DirectCategory
// click means the catalog structure itself is broken, so the whole
// discovery pass is aborted.
func (c *CategoryCrawler) Discover(ctx context.Context) ([]string, error) {
	nodes, err := c.inspectMenu()
	if err != nil {
		return nil, fmt.Errorf("inspect menu: %w", err)
	}
	c.logger.Info("menu inspected", "categories", len(nodes))

	var urls []string
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch node.Kind {
		case types.MenuCategory:
			leafURLs := c.walkSubmenu(node)
			urls = append(urls, leafURLs...)
		case types.DirectCategory:
			u, err := c.openDirect(node)
			if err != nil {
				if errors.Is(err, types.ErrTimeout) {
					return nil, fmt.Errorf("direct category %q: %w", node.Name, err)
				}
				return nil, err
			}
			urls = append(urls, u)
		}
	}

	return urls, nil
}

// inspectMenu classifies every top-level menu entry.
func (c *CategoryCrawler) inspectMenu() ([]types.CategoryNode, error) {
	if err := c.drv.Navigate(c.cfg.BaseURL); err != nil {
		return nil, err
	}

	els, err := c.drv.Elements(menuAnchorSelector)
	if err != nil {
		return nil, err
	}

	var nodes []types.CategoryNode
	for _, el := range els {
		name, err := el.Text()
		if err != nil {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		onclick, err := el.Attribute("onclick")
		if err != nil {
			continue
		}

		kind := types.DirectCategory
		if strings.Contains(onclick, menuSwitchMarker) {
			kind = types.MenuCategory
		}
		nodes = append(nodes, types.CategoryNode{Name: name, Kind: kind})
	}
	return nodes, nil
}

// walkSubmenu reveals the submenu behind a MenuCategory and records the
// listing URL behind every sub-link. Leaf-level timeouts are skipped.
func (c *CategoryCrawler) walkSubmenu(node types.CategoryNode) []string {
	subNames, err := c.submenuNames(node)
	if err != nil {
		c.logger.Warn("submenu skipped", "category", node.Name, "error", err)
		return nil
	}

	var urls []string
	for _, sub := range subNames {
		u, err := c.openSubLink(node, sub)
		if err != nil {
			c.logger.Warn("sub-category skipped", "category", node.Name, "sub", sub, "error", err)
			continue
		}
		c.logger.Debug("category resolved", "category", node.Name, "sub", sub, "url", u)
		urls = append(urls, u)
	}
	return urls
}

// submenuNames clicks a MenuCategory open and enumerates its sub-links
// by visible text.
func (c *CategoryCrawler) submenuNames(node types.CategoryNode) ([]string, error) {
	if err := c.drv.Navigate(c.cfg.BaseURL); err != nil {
		return nil, err
	}
	if err := c.clickByText(menuAnchorSelector, node.Name); err != nil {
		return nil, err
	}
	if _, err := c.drv.WaitVisible(submenuLinkSelector, c.dcfg.WaitTimeout); err != nil {
		return nil, err
	}

	els, err := c.drv.Elements(submenuLinkSelector)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, el := range els {
		text, err := el.Text()
		if err != nil {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			names = append(names, text)
		}
	}
	return names, nil
}

// openSubLink re-plays the click path root -> category -> sub-link and
// returns the resulting listing URL.
func (c *CategoryCrawler) openSubLink(node types.CategoryNode, subName string) (string, error) {
	if err := c.drv.Navigate(c.cfg.BaseURL); err != nil {
		return "", err
	}
	if err := c.clickByText(menuAnchorSelector, node.Name); err != nil {
		return "", err
	}
	if _, err := c.drv.WaitVisible(submenuLinkSelector, c.dcfg.WaitTimeout); err != nil {
		return "", err
	}
	if err := c.clickByText(submenuLinkSelector, subName); err != nil {
		return "", err
	}
	if _, err := c.drv.WaitVisible(listingLinkSelector, c.dcfg.WaitTimeout); err != nil {
		return "", err
	}
	return c.drv.CurrentURL()
}

// openDirect clicks a DirectCategory entry and returns the listing URL.
func (c *CategoryCrawler) openDirect(node types.CategoryNode) (string, error) {
	if err := c.drv.Navigate(c.cfg.BaseURL); err != nil {
		return "", err
	}
	if err := c.clickByText(menuAnchorSelector, node.Name); err != nil {
		return "", err
	}
	if _, err := c.drv.WaitVisible(listingLinkSelector, c.dcfg.WaitTimeout); err != nil {
		return "", err
	}
	return c.drv.CurrentURL()
}

// clickByText clicks the first element under selector whose trimmed
// visible text matches.
func (c *CategoryCrawler) clickByText(selector, text string) error {
	els, err := c.drv.Elements(selector)
	if err != nil {
		return err
	}
	for _, el := range els {
		t, err := el.Text()
		if err != nil {
			continue
		}
		if strings.TrimSpace(t) == text {
			return el.Click()
		}
	}
	return fmt.Errorf("link with text %q: %w", text, types.ErrNotFound)
}
