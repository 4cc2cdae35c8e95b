package query

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"chemstalk/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// stubStore serves canned results for the query surface.
type stubStore struct {
	items []types.StoredChemical
	err   error
}

func (s *stubStore) Insert(ctx context.Context, item *types.ChemicalItem) error { return nil }

func (s *stubStore) DeleteByCompany(ctx context.Context, companyName string) (int64, error) {
	return 0, nil
}

func (s *stubStore) FindByCAS(ctx context.Context, casNumber string) ([]types.StoredChemical, error) {
	return s.items, s.err
}

func (s *stubStore) Close(ctx context.Context) error { return nil }

func TestLookupNoData(t *testing.T) {
	svc := NewService(&stubStore{}, testLogger)

	_, err := svc.Lookup(context.Background(), "0000-00-0")
	if !errors.Is(err, types.ErrNoData) {
		t.Errorf("expected ErrNoData for unknown CAS, got %v", err)
	}
}

func TestLookupPropagatesStoreError(t *testing.T) {
	storeErr := &types.StorageError{Backend: "mongodb", Err: errors.New("down")}
	svc := NewService(&stubStore{err: storeErr}, testLogger)

	_, err := svc.Lookup(context.Background(), "1234-56-7")
	var se *types.StorageError
	if !errors.As(err, &se) {
		t.Errorf("expected StorageError, got %v", err)
	}
}

func TestAveragePrice(t *testing.T) {
	store := &stubStore{items: []types.StoredChemical{
		stored(types.PackSizeRow{Quantity: 100, Unit: "g", Price: "50"}),
	}}
	svc := NewService(store, testLogger)

	avg, err := svc.AveragePrice(context.Background(), "1234-56-7")
	if err != nil {
		t.Fatalf("average price error: %v", err)
	}
	if !almostEqual(avg.AveragePriceGram, 0.5) {
		t.Errorf("expected 0.5 per gram, got %v", avg.AveragePriceGram)
	}
}

func TestAveragePriceNoData(t *testing.T) {
	svc := NewService(&stubStore{}, testLogger)

	_, err := svc.AveragePrice(context.Background(), "0000-00-0")
	if !errors.Is(err, types.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}
