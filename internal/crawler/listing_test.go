package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chemstalk/internal/config"
	"chemstalk/internal/types"
)

func listingPage(current, last int, withNext bool, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	for _, link := range links {
		fmt.Fprintf(&b, `<tr><td><a href=%q>product</a></td></tr>`, link)
	}
	b.WriteString("</table>")
	fmt.Fprintf(&b, `<span style="margin-right:0.3em;"></span>(%d of %d)`, current, last)
	if withNext {
		fmt.Fprintf(&b, `<a href="/list?page=%d">Next</a>`, current+1)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestWalkFollowsPagination(t *testing.T) {
	pages := map[string]string{
		"1": listingPage(1, 3, true, "showsds.php?cat=AT1"),
		"2": listingPage(2, 3, true, "showsds.php?cat=AT2"),
		"3": listingPage(3, 3, false, "showsds.php?cat=AT3"),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "" {
			page = "1"
		}
		fmt.Fprint(w, pages[page])
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	lp := NewListingParser(newTestFetcher(t, cfg), cfg, testLogger)

	var got []string
	pageCount, err := lp.Walk(context.Background(), srv.URL+"/list?page=1", func(u string) {
		got = append(got, u)
	})
	if err != nil {
		t.Fatalf("walk error: %v", err)
	}
	if pageCount != 3 {
		t.Errorf("expected 3 pages fetched, got %d", pageCount)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 product links across 3 pages, got %d: %v", len(got), got)
	}
	for i, want := range []string{"cat=AT1", "cat=AT2", "cat=AT3"} {
		if !strings.Contains(got[i], want) {
			t.Errorf("link %d: expected %q in %q", i, want, got[i])
		}
	}
}

func TestWalkStopsOnLastPage(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		// Indicator says single page; the Next link must not be followed.
		fmt.Fprint(w, listingPage(1, 1, true, "showsds.php?cat=AT1"))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	lp := NewListingParser(newTestFetcher(t, cfg), cfg, testLogger)

	pages, err := lp.Walk(context.Background(), srv.URL+"/list", func(string) {})
	if err != nil {
		t.Fatalf("walk error: %v", err)
	}
	if hits != 1 || pages != 1 {
		t.Errorf("expected exactly 1 page fetch, got hits=%d pages=%d", hits, pages)
	}
}

func TestWalkMissingIndicatorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="showsds.php?cat=AT1">x</a></body></html>`)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	lp := NewListingParser(newTestFetcher(t, cfg), cfg, testLogger)

	_, err := lp.Walk(context.Background(), srv.URL, func(string) {})
	var parseErr *types.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for missing indicator, got %v", err)
	}
}

func TestWalkMalformedIndicatorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><span style="margin-right:0.3em;"></span>(page one)</body></html>`)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	lp := NewListingParser(newTestFetcher(t, cfg), cfg, testLogger)

	_, err := lp.Walk(context.Background(), srv.URL, func(string) {})
	var parseErr *types.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for malformed indicator, got %v", err)
	}
}

func TestParsePageIndicator(t *testing.T) {
	tests := []struct {
		text        string
		current     string
		last        string
		expectError bool
	}{
		{"(1 of 3)", "1", "3", false},
		{"(3 of 3)", "3", "3", false},
		{"( 12 of 47 )", "12", "47", false},
		{"(page one)", "", "", true},
		{"()", "", "", true},
		{"1 of", "", "", true},
	}

	for _, tt := range tests {
		current, last, err := parsePageIndicator(tt.text)
		if tt.expectError {
			if err == nil {
				t.Errorf("indicator %q: expected error", tt.text)
			}
			continue
		}
		if err != nil {
			t.Errorf("indicator %q: unexpected error: %v", tt.text, err)
			continue
		}
		if current != tt.current || last != tt.last {
			t.Errorf("indicator %q: expected (%s, %s), got (%s, %s)", tt.text, tt.current, tt.last, current, last)
		}
	}
}
