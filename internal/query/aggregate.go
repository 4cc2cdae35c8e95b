// Package query answers price questions over already-persisted items.
// It runs independently of the crawl, on demand, against the store.
package query

import (
	"context"
	"log/slog"
	"strconv"

	"chemstalk/internal/storage"
	"chemstalk/internal/types"
)

// Averages is the unit-normalized price aggregation for one CAS number.
// Prices are averaged per canonical unit, weighted by quantity. Mixing
// currencies within one average is a known limitation of the source
// data and is deliberately not corrected here.
type Averages struct {
	AveragePriceGram       float64 `json:"average_price_g"`
	AveragePriceMilliliter float64 `json:"average_price_ml"`
}

// Service exposes the CAS lookups over a store.
type Service struct {
	store  storage.Store
	logger *slog.Logger
}

// NewService creates a query service.
func NewService(store storage.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With("component", "query_service"),
	}
}

// Lookup returns all stored items for a CAS number.
// Returns types.ErrNoData when nothing is stored for it: an unknown CAS
// number is a failure, never an empty success.
func (s *Service) Lookup(ctx context.Context, casNumber string) ([]types.StoredChemical, error) {
	items, err := s.store.FindByCAS(ctx, casNumber)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, types.ErrNoData
	}
	return items, nil
}

// AveragePrice computes the quantity-weighted average price per gram
// and per millilitre across every stored row for the CAS number.
func (s *Service) AveragePrice(ctx context.Context, casNumber string) (Averages, error) {
	items, err := s.Lookup(ctx, casNumber)
	if err != nil {
		return Averages{}, err
	}
	return Aggregate(items)
}

// Aggregate converts each row to its canonical unit (grams for mass,
// millilitres for volume), sums prices and converted quantities into
// per-unit accumulators, and returns price_sum / quantity_sum for each.
// Returns types.ErrNoValidData when no row contributes to either unit.
func Aggregate(items []types.StoredChemical) (Averages, error) {
	var priceGram, quantityGram float64
	var priceMl, quantityMl float64

	for _, item := range items {
		for _, row := range item.Rows {
			price, err := strconv.ParseFloat(row.Price, 64)
			if err != nil {
				// Row price never went through numeric validation; skip
				// the row rather than failing the whole query.
				continue
			}

			quantity, unit := canonicalize(row.Quantity, row.Unit)
			switch unit {
			case "g":
				priceGram += price
				quantityGram += quantity
			case "ml":
				priceMl += price
				quantityMl += quantity
			}
		}
	}

	if quantityGram == 0 && quantityMl == 0 {
		return Averages{}, types.ErrNoValidData
	}

	var avg Averages
	if quantityGram != 0 {
		avg.AveragePriceGram = priceGram / quantityGram
	}
	if quantityMl != 0 {
		avg.AveragePriceMilliliter = priceMl / quantityMl
	}
	return avg, nil
}

// canonicalize converts a (quantity, unit) pair to canonical mass or
// volume: mg and kg to grams, l to millilitres; g and ml pass through.
func canonicalize(quantity float64, unit string) (float64, string) {
	switch unit {
	case "mg":
		return quantity / 1000, "g"
	case "kg":
		return quantity * 1000, "g"
	case "g":
		return quantity, "g"
	case "l":
		return quantity * 1000, "ml"
	case "ml":
		return quantity, "ml"
	default:
		return 0, ""
	}
}
