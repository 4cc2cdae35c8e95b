package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"chemstalk/internal/config"
	"chemstalk/internal/types"
)

// loadStrategy controls how long Navigate blocks.
type loadStrategy int

const (
	// loadFull waits for the load event. Category discovery needs it:
	// menu scripts must have run before elements are inspected.
	loadFull loadStrategy = iota

	// loadEager waits only until the DOM is stable. Product pages are
	// usable before all assets finish loading.
	loadEager
)

// RodDriver implements Driver on a dedicated Chromium instance via Rod.
type RodDriver struct {
	browser  *rod.Browser
	page     *rod.Page
	strategy loadStrategy
	cfg      *config.DriverConfig
	logger   *slog.Logger

	// mu enforces the single-owner rule: a session's page state must not
	// be touched by two logical workers at once.
	mu sync.Mutex
}

// NewFullLoad starts a session tuned for full page loads.
func NewFullLoad(cfg *config.DriverConfig, logger *slog.Logger) (*RodDriver, error) {
	return newRodDriver(cfg, loadFull, logger.With("component", "driver_full"))
}

// NewEagerLoad starts a session tuned for fast, eager loads.
func NewEagerLoad(cfg *config.DriverConfig, logger *slog.Logger) (*RodDriver, error) {
	return newRodDriver(cfg, loadEager, logger.With("component", "driver_eager"))
}

func newRodDriver(cfg *config.DriverConfig, strategy loadStrategy, logger *slog.Logger) (*RodDriver, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if cfg.WindowSize != "" {
		l = l.Set("window-size", cfg.WindowSize)
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	logger.Info("browser session ready", "headless", cfg.Headless, "eager", strategy == loadEager)

	return &RodDriver{
		browser:  browser,
		page:     page,
		strategy: strategy,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Navigate implements Driver.
func (d *RodDriver) Navigate(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	page := d.page.Timeout(d.cfg.NavTimeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	switch d.strategy {
	case loadEager:
		// DOM settled is good enough; don't wait for images and frames.
		if err := page.WaitDOMStable(300*time.Millisecond, 0); err != nil {
			return wrapTimeout(fmt.Errorf("eager wait %s: %w", url, err))
		}
	default:
		if err := page.WaitLoad(); err != nil {
			return wrapTimeout(fmt.Errorf("wait load %s: %w", url, err))
		}
	}
	return nil
}

// Element implements Driver.
func (d *RodDriver) Element(selector string) (Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	has, el, err := d.page.Has(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if !has {
		return nil, fmt.Errorf("%q: %w", selector, types.ErrNotFound)
	}
	return &rodElement{el: el}, nil
}

// Elements implements Driver.
func (d *RodDriver) Elements(selector string) ([]Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query all %q: %w", selector, err)
	}
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out, nil
}

// WaitVisible implements Driver.
func (d *RodDriver) WaitVisible(selector string, timeout time.Duration) (Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	page := d.page.Timeout(timeout)
	el, err := page.Element(selector)
	if err != nil {
		return nil, wrapTimeout(fmt.Errorf("wait %q: %w", selector, err))
	}
	if err := el.Timeout(timeout).WaitVisible(); err != nil {
		return nil, wrapTimeout(fmt.Errorf("wait visible %q: %w", selector, err))
	}
	return &rodElement{el: el}, nil
}

// CurrentURL implements Driver.
func (d *RodDriver) CurrentURL() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	info, err := d.page.Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

// HTML implements Driver.
func (d *RodDriver) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page.HTML()
}

// Close implements Driver.
func (d *RodDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("browser session closing")
	if err := d.page.Close(); err != nil {
		d.logger.Warn("page close error", "error", err)
	}
	return d.browser.Close()
}

// rodElement adapts *rod.Element to the Element interface.
type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Attribute(name string) (string, error) {
	val, err := e.el.Attribute(name)
	if err != nil {
		return "", err
	}
	if val == nil {
		return "", nil
	}
	return *val, nil
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

// Click fires the element's handler via script execution rather than a
// synthesized mouse event, matching how the catalog menu expects to be
// driven.
func (e *rodElement) Click() error {
	_, err := e.el.Eval(`() => this.click()`)
	return err
}

// wrapTimeout maps rod's context deadline errors onto types.ErrTimeout
// so callers can apply the skip/abort policy without knowing about rod.
func wrapTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", types.ErrTimeout, err)
	}
	return err
}
