package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PackSizeRow is one (quantity, unit, currency, price) offering for a
// product. Rows keep the order in which they appear on the product page:
// the Nth row's price input and availability probe share the index N.
type PackSizeRow struct {
	// Quantity is the parsed pack quantity. Zero until the normalization
	// pipeline has parsed RawQuantity.
	Quantity float64 `bson:"quantity" json:"quantity"`

	// RawQuantity is the quantity text as extracted from the page. It may
	// contain wildcards ("*") or garbage; normalization drops such rows.
	RawQuantity string `bson:"-" json:"-"`

	// Unit is the pack unit. After normalization it is lower-cased and a
	// member of the canonical whitelist {mg, g, kg, ml, l}.
	Unit string `bson:"unit" json:"unit"`

	// Currency is the currency token shared by all rows of a product.
	Currency string `bson:"currency" json:"currency"`

	// Price is the pack price text as shown on the page. Not converted
	// between currencies.
	Price string `bson:"price" json:"price"`
}

// ChemicalItem is a single scraped product with all of its pack sizes.
//
// The product extractor creates it, the availability prober accumulates
// per-row booleans into ProbeResults and folds them into Availability,
// and the normalization pipeline filters Rows. After normalization Rows
// is non-empty and every row has a whitelisted unit and a finite,
// positive quantity.
type ChemicalItem struct {
	Timestamp    time.Time     `bson:"datetime" json:"datetime"`
	Availability bool          `bson:"availability" json:"availability"`
	CompanyName  string        `bson:"company_name" json:"company_name"`
	ProductURL   string        `bson:"product_url" json:"product_url"`
	CASNumber    string        `bson:"numcas" json:"numcas"`
	CompoundName string        `bson:"name" json:"name"`
	Rows         []PackSizeRow `bson:"rows" json:"rows"`

	// ProbeResults collects one boolean per availability probe request.
	// Never persisted; Availability is the any-true fold over it.
	ProbeResults []bool `bson:"-" json:"-"`
}

// NewChemicalItem creates an item for a product page URL.
func NewChemicalItem(companyName, productURL string) *ChemicalItem {
	return &ChemicalItem{
		Timestamp:   time.Now(),
		CompanyName: companyName,
		ProductURL:  productURL,
	}
}

// FoldAvailability collapses the accumulated probe results into the
// item-level flag: available if any single pack size probed in stock.
func (i *ChemicalItem) FoldAvailability() {
	i.Availability = false
	for _, ok := range i.ProbeResults {
		if ok {
			i.Availability = true
			return
		}
	}
}

// Clone returns a deep copy of the item.
func (i *ChemicalItem) Clone() *ChemicalItem {
	clone := *i
	clone.Rows = append([]PackSizeRow(nil), i.Rows...)
	clone.ProbeResults = append([]bool(nil), i.ProbeResults...)
	return &clone
}

// StoredChemical is a persisted ChemicalItem plus its storage identity.
// Immutable once written.
type StoredChemical struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChemicalItem `bson:",inline" json:",inline"`
}

// CategoryKind classifies a top-level catalog menu entry.
type CategoryKind int

const (
	// MenuCategory entries carry a menu-switch onclick handler and need a
	// simulated click to reveal a submenu of links.
	MenuCategory CategoryKind = iota

	// DirectCategory entries navigate straight to a listing page.
	DirectCategory
)

func (k CategoryKind) String() string {
	switch k {
	case MenuCategory:
		return "menu"
	case DirectCategory:
		return "direct"
	default:
		return "unknown"
	}
}

// CategoryNode is a top-level menu entry discovered on the catalog root.
// Ephemeral: it only exists while start URLs are being discovered.
type CategoryNode struct {
	Name string
	Kind CategoryKind
}
