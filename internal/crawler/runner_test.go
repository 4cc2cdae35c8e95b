package crawler

import (
	"context"
	"errors"
	"testing"

	"chemstalk/internal/config"
	"chemstalk/internal/types"
)

type recordingStore struct {
	deleteCalls int
}

func (s *recordingStore) Insert(ctx context.Context, item *types.ChemicalItem) error { return nil }

func (s *recordingStore) DeleteByCompany(ctx context.Context, companyName string) (int64, error) {
	s.deleteCalls++
	return 3, nil
}

func (s *recordingStore) FindByCAS(ctx context.Context, casNumber string) ([]types.StoredChemical, error) {
	return nil, nil
}

func (s *recordingStore) Close(ctx context.Context) error { return nil }

func TestLaunchUnknownCompany(t *testing.T) {
	store := &recordingStore{}
	r := NewRunner(config.DefaultConfig(), store, testLogger)

	_, err := r.Launch(context.Background(), "Nonexistent")
	if !errors.Is(err, types.ErrUnknownCompany) {
		t.Fatalf("expected ErrUnknownCompany, got %v", err)
	}
	if store.deleteCalls != 0 {
		t.Errorf("refused launch must not delete rows, got %d delete calls", store.deleteCalls)
	}
}

func TestLaunchRefusedWhileRunning(t *testing.T) {
	store := &recordingStore{}
	r := NewRunner(config.DefaultConfig(), store, testLogger)
	r.running.Store(true)

	_, err := r.Launch(context.Background(), "AstaTech")
	if !errors.Is(err, types.ErrCrawlRunning) {
		t.Fatalf("expected ErrCrawlRunning, got %v", err)
	}
	// The wipe happens only after the run slot is held.
	if store.deleteCalls != 0 {
		t.Errorf("refused launch must not delete rows, got %d delete calls", store.deleteCalls)
	}
}

func TestRunConfigThreadsCompany(t *testing.T) {
	cfg := config.DefaultConfig()
	r := NewRunner(cfg, &recordingStore{}, testLogger)

	runCfg := r.runConfig("OtherCo")
	if runCfg.Crawler.CompanyName != "OtherCo" {
		t.Errorf("expected launched company in run config, got %q", runCfg.Crawler.CompanyName)
	}
	if cfg.Crawler.CompanyName != "AstaTech" {
		t.Errorf("shared config must not be mutated, got %q", cfg.Crawler.CompanyName)
	}
}
