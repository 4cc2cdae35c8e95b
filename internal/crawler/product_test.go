package crawler

import (
	"testing"

	"chemstalk/internal/config"
	"chemstalk/internal/pipeline"
	"chemstalk/internal/types"
)

const productHTML = `<!DOCTYPE html>
<html>
<body>
<table>
	<tr><td>CAS Number</td><td> 1234-56-7 </td></tr>
	<tr><td>Compound Name</td><td>Test Compound</td></tr>
</table>
<span id="Catalog">AT1</span>
<table>
	<tr><td>Size</td><td>Price (USD)</td><td>Availability</td></tr>
	<tr>
		<td><span id="su1">1/g</span></td>
		<td><input id="UnitPrice1" value="45.00"/></td>
		<td><span>Please enter Qty to check availability</span></td>
	</tr>
	<tr>
		<td><span id="su2">25/mg</span></td>
		<td><input id="UnitPrice2" value="30.00"/></td>
		<td><span>Please enter Qty to check availability</span></td>
	</tr>
</table>
</body>
</html>`

func TestExtractProduct(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Crawler.BaseURL = "https://www.astatechinc.com/"
	e := NewProductExtractor(cfg, testLogger)

	item, probeURLs, err := e.Extract(productHTML, "https://www.astatechinc.com/catalog.php?item=AT1")
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}
	if item == nil {
		t.Fatal("expected an item for a product page")
	}

	if item.CASNumber != "1234-56-7" {
		t.Errorf("expected CAS 1234-56-7, got %q", item.CASNumber)
	}
	if item.CompoundName != "Test Compound" {
		t.Errorf("expected compound name, got %q", item.CompoundName)
	}
	if item.CompanyName != "AstaTech" {
		t.Errorf("expected company AstaTech, got %q", item.CompanyName)
	}

	if len(item.Rows) != 2 {
		t.Fatalf("expected 2 pack-size rows, got %d", len(item.Rows))
	}
	if item.Rows[0].RawQuantity != "1" || item.Rows[0].Unit != "g" || item.Rows[0].Price != "45.00" {
		t.Errorf("row 0 mismatch: %+v", item.Rows[0])
	}
	if item.Rows[1].RawQuantity != "25" || item.Rows[1].Unit != "mg" || item.Rows[1].Price != "30.00" {
		t.Errorf("row 1 mismatch: %+v", item.Rows[1])
	}
	for i, row := range item.Rows {
		if row.Currency != "USD" {
			t.Errorf("row %d: expected shared currency USD, got %q", i, row.Currency)
		}
	}

	if len(probeURLs) != 2 {
		t.Fatalf("expected one probe URL per row, got %d", len(probeURLs))
	}
	want := "https://www.astatechinc.com/CGetInv.php?Catalog=AT1&SUX=1%2Fg&QTY=1&QTYX=1"
	if probeURLs[0] != want {
		t.Errorf("probe URL 0:\n got %q\nwant %q", probeURLs[0], want)
	}
}

func TestExtractEmptyQuantitySpan(t *testing.T) {
	const emptyQuantityHTML = `<!DOCTYPE html>
<html>
<body>
<table>
	<tr><td>CAS Number</td><td>1234-56-7</td></tr>
	<tr><td>Price (USD)</td></tr>
</table>
<span id="Catalog">AT1</span>
<table>
	<tr>
		<td><span id="su1">/g</span></td>
		<td><input id="UnitPrice1" value="45.00"/></td>
		<td><span>Please enter Qty to check availability</span></td>
	</tr>
</table>
</body>
</html>`

	cfg := config.DefaultConfig()
	e := NewProductExtractor(cfg, testLogger)

	item, _, err := e.Extract(emptyQuantityHTML, "https://www.astatechinc.com/catalog.php?item=AT1")
	if err != nil {
		t.Fatalf("extract error: %v", err)
	}
	if len(item.Rows) != 1 {
		t.Fatalf("expected 1 raw row, got %d", len(item.Rows))
	}
	if item.Rows[0].RawQuantity != "" || item.Rows[0].Unit != "g" {
		t.Fatalf("unexpected raw row: %+v", item.Rows[0])
	}

	// A size span with no quantity before the separator must not make it
	// through normalization as a zero-quantity row.
	result, err := pipeline.Default(testLogger).Process(item)
	if result != nil {
		t.Errorf("expected the item to be dropped, got rows: %+v", result.Rows)
	}
	if !types.IsDrop(err) {
		t.Fatalf("expected DropError, got %v", err)
	}
}

func TestExtractNonProductPage(t *testing.T) {
	cfg := config.DefaultConfig()
	e := NewProductExtractor(cfg, testLogger)

	// No CAS field: not a product page, skipped without error.
	item, probeURLs, err := e.Extract(`<html><body><h1>About Us</h1></body></html>`, "https://www.astatechinc.com/about.php")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil || probeURLs != nil {
		t.Errorf("expected nil item and probes, got %+v / %v", item, probeURLs)
	}
}

func TestSplitQuantityUnit(t *testing.T) {
	tests := []struct {
		text     string
		quantity string
		unit     string
	}{
		{"1/g", "1", "g"},
		{"25/mg", "25", "mg"},
		{"100", "100", ""},
		{"", "", ""},
	}

	for _, tt := range tests {
		quantity, unit := splitQuantityUnit(tt.text)
		if quantity != tt.quantity || unit != tt.unit {
			t.Errorf("split %q: expected (%q, %q), got (%q, %q)", tt.text, tt.quantity, tt.unit, quantity, unit)
		}
	}
}

func TestSharedCurrency(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Price (USD)", "USD"},
		{"Price ( EUR )", "EUR"},
		{"Price", ""},
	}

	for _, tt := range tests {
		if got := sharedCurrency(tt.label); got != tt.want {
			t.Errorf("currency of %q: expected %q, got %q", tt.label, tt.want, got)
		}
	}
}
