package crawler

import (
	"log/slog"
	"os"
	"testing"

	"chemstalk/internal/config"
	"chemstalk/internal/fetcher"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T, cfg *config.Config) *fetcher.HTTPFetcher {
	t.Helper()
	fetch, err := fetcher.New(cfg, testLogger)
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}
	return fetch
}
