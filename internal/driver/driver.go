// Package driver wraps a headless browser session behind the small
// capability surface the crawler needs: navigate, look up elements,
// script-triggered clicks, and bounded visibility waits.
//
// The catalog menu is stateful DOM rather than a set of addressable
// URLs, so the crawler drives it with clicks from a known root state.
// A session is single-owner: simulated browser state (current page,
// input values) is destructively mutated by every action, so a session
// must never be used by two logical flows at once.
package driver

import (
	"time"
)

// Element is a handle to a DOM element on the session's current page.
type Element interface {
	// Attribute returns the value of the named attribute, or "" if the
	// element does not carry it.
	Attribute(name string) (string, error)

	// Text returns the element's visible text.
	Text() (string, error)

	// Click triggers the element's click handler via script execution.
	Click() error
}

// Driver is a single browser session.
type Driver interface {
	// Navigate loads the given URL and waits for the page according to
	// the session's load strategy (full load or eager).
	Navigate(url string) error

	// Element returns the first element matching the CSS selector.
	// Returns types.ErrNotFound if no element matches.
	Element(selector string) (Element, error)

	// Elements returns all elements matching the CSS selector.
	Elements(selector string) ([]Element, error)

	// WaitVisible polls until an element matching the selector is
	// visible, up to the timeout. Returns types.ErrTimeout on expiry.
	WaitVisible(selector string, timeout time.Duration) (Element, error)

	// CurrentURL returns the URL of the current page.
	CurrentURL() (string, error)

	// HTML returns the serialized DOM of the current page.
	HTML() (string, error)

	// Close shuts the session down and releases the browser.
	Close() error
}
