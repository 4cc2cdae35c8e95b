package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"chemstalk/internal/config"
	"chemstalk/internal/types"
)

func probeServer(t *testing.T, bodies map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := r.URL.Query().Get("QTYX")
		fmt.Fprint(w, bodies[n])
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProbeFoldsAnyTrue(t *testing.T) {
	srv := probeServer(t, map[string]string{
		"1": "currently unavailable",
		"2": "2 in stock, ships today",
		"3": "out of stock",
	})

	cfg := config.DefaultConfig()
	p := NewProber(newTestFetcher(t, cfg), cfg, testLogger)

	item := types.NewChemicalItem("AstaTech", "https://www.astatechinc.com/catalog.php?item=AT1")
	urls := []string{
		srv.URL + "/CGetInv.php?QTYX=1",
		srv.URL + "/CGetInv.php?QTYX=2",
		srv.URL + "/CGetInv.php?QTYX=3",
	}

	p.Probe(context.Background(), item, urls)

	if len(item.ProbeResults) != 3 {
		t.Fatalf("expected 3 probe results, got %d", len(item.ProbeResults))
	}
	want := []bool{false, true, false}
	for i, w := range want {
		if item.ProbeResults[i] != w {
			t.Errorf("probe %d: expected %v, got %v", i+1, w, item.ProbeResults[i])
		}
	}
	if !item.Availability {
		t.Error("expected item available when any row is in stock")
	}
}

func TestProbeAllUnavailable(t *testing.T) {
	srv := probeServer(t, map[string]string{
		"1": "out of stock",
		"2": "out of stock",
	})

	cfg := config.DefaultConfig()
	p := NewProber(newTestFetcher(t, cfg), cfg, testLogger)

	item := types.NewChemicalItem("AstaTech", "https://www.astatechinc.com/catalog.php?item=AT2")
	p.Probe(context.Background(), item, []string{
		srv.URL + "/CGetInv.php?QTYX=1",
		srv.URL + "/CGetInv.php?QTYX=2",
	})

	if item.Availability {
		t.Error("expected item unavailable when no row is in stock")
	}
}

func TestProbeChinaStockMarker(t *testing.T) {
	srv := probeServer(t, map[string]string{
		"1": "5 in China stock, ships in 2 weeks",
	})

	cfg := config.DefaultConfig()
	p := NewProber(newTestFetcher(t, cfg), cfg, testLogger)

	item := types.NewChemicalItem("AstaTech", "https://www.astatechinc.com/catalog.php?item=AT3")
	p.Probe(context.Background(), item, []string{srv.URL + "/CGetInv.php?QTYX=1"})

	if !item.Availability {
		t.Error("expected regional warehouse stock to count as available")
	}
}

func TestProbeFailureCountsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("QTYX") == "1" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "in stock")
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	p := NewProber(newTestFetcher(t, cfg), cfg, testLogger)

	item := types.NewChemicalItem("AstaTech", "https://www.astatechinc.com/catalog.php?item=AT4")
	p.Probe(context.Background(), item, []string{
		srv.URL + "/CGetInv.php?QTYX=1",
		srv.URL + "/CGetInv.php?QTYX=2",
	})

	if item.ProbeResults[0] {
		t.Error("failed probe should count as unavailable")
	}
	if !item.ProbeResults[1] {
		t.Error("remaining probe should still resolve")
	}
	if !item.Availability {
		t.Error("one failed probe must not mask an in-stock row")
	}
}

func TestProbeNoURLs(t *testing.T) {
	cfg := config.DefaultConfig()
	p := NewProber(newTestFetcher(t, cfg), cfg, testLogger)

	item := types.NewChemicalItem("AstaTech", "https://www.astatechinc.com/catalog.php?item=AT5")
	p.Probe(context.Background(), item, nil)

	if item.Availability {
		t.Error("item with no probes should be unavailable")
	}
}
