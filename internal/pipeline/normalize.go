package pipeline

import (
	"math"
	"strconv"
	"strings"

	"chemstalk/internal/types"
)

// maxRowsPerItem caps how many pack-size rows one item may carry.
const maxRowsPerItem = 5

// validUnits is the canonical unit whitelist. Anything else is not a
// pack size the aggregation query can convert.
var validUnits = map[string]struct{}{
	"mg": {},
	"g":  {},
	"kg": {},
	"ml": {},
	"l":  {},
}

// TruncateRows keeps at most Max rows per item.
type TruncateRows struct {
	Max int
}

func (s *TruncateRows) Name() string { return "truncate_rows" }

func (s *TruncateRows) Process(item *types.ChemicalItem) (*types.ChemicalItem, error) {
	if s.Max > 0 && len(item.Rows) > s.Max {
		item.Rows = item.Rows[:s.Max]
	}
	return item, nil
}

// NumericQuantity drops rows whose quantity text contains a wildcard or
// does not parse as a finite positive number. Partial rows are excluded
// silently; they never fail the whole item.
type NumericQuantity struct{}

func (s *NumericQuantity) Name() string { return "numeric_quantity" }

func (s *NumericQuantity) Process(item *types.ChemicalItem) (*types.ChemicalItem, error) {
	kept := item.Rows[:0]
	for _, row := range item.Rows {
		raw := strings.TrimSpace(row.RawQuantity)
		if raw == "" {
			// Already-normalized rows carry a validated positive quantity
			// and no raw text. A freshly extracted row with empty quantity
			// text is malformed and must not survive as a zero.
			if row.Quantity <= 0 {
				continue
			}
			raw = strconv.FormatFloat(row.Quantity, 'f', -1, 64)
		}
		if strings.Contains(raw, "*") {
			continue
		}

		qty, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(qty) || math.IsInf(qty, 0) || qty <= 0 {
			continue
		}

		row.Quantity = qty
		row.RawQuantity = ""
		row.Unit = strings.TrimSpace(row.Unit)
		row.Currency = strings.TrimSpace(row.Currency)
		row.Price = strings.TrimSpace(row.Price)
		kept = append(kept, row)
	}
	item.Rows = kept
	return item, nil
}

// UnitWhitelist drops rows whose unit is not in the canonical set after
// case and whitespace normalization.
type UnitWhitelist struct{}

func (s *UnitWhitelist) Name() string { return "unit_whitelist" }

func (s *UnitWhitelist) Process(item *types.ChemicalItem) (*types.ChemicalItem, error) {
	kept := item.Rows[:0]
	for _, row := range item.Rows {
		unit := strings.ToLower(strings.TrimSpace(row.Unit))
		if _, ok := validUnits[unit]; !ok {
			continue
		}
		row.Unit = unit
		kept = append(kept, row)
	}
	item.Rows = kept
	return item, nil
}

// RequireRows discards items left with no valid pack-size rows.
type RequireRows struct{}

func (s *RequireRows) Name() string { return "require_rows" }

func (s *RequireRows) Process(item *types.ChemicalItem) (*types.ChemicalItem, error) {
	if len(item.Rows) == 0 {
		return nil, &types.DropError{Reason: "empty quantity list"}
	}
	return item, nil
}
