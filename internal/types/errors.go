package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout        = errors.New("wait timed out")
	ErrNotFound       = errors.New("element not found")
	ErrNoCASNumber    = errors.New("page has no CAS number field")
	ErrRedirectMarker = errors.New("redirect marker not found in response body")
	ErrNoData         = errors.New("no data found for the given CAS number")
	ErrNoValidData    = errors.New("no valid data found for the given CAS number")
	ErrUnknownCompany = errors.New("unknown company name")
	ErrCrawlRunning   = errors.New("a crawl run is already in progress")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur while extracting data from a page.
// A ParseError means the page did not have the structure the extractor
// contract requires; the current unit of work is skipped, not retried.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during persistence. A failed
// write rolls back and the item is dropped, never retried.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DropError signals that the normalization pipeline discarded an item.
// A dropped item must not be persisted.
type DropError struct {
	Reason string
}

func (e *DropError) Error() string {
	return fmt.Sprintf("item dropped: %s", e.Reason)
}

// IsDrop reports whether err is a pipeline drop.
func IsDrop(err error) bool {
	var de *DropError
	return errors.As(err, &de)
}
