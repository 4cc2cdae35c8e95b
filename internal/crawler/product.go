package crawler

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"chemstalk/internal/config"
	"chemstalk/internal/types"
)

// XPath expressions for the product page. The vendor's markup couples
// row index to element id (su{n} for the quantity/unit span, UnitPrice{n}
// for the price input): the Nth span is assumed to belong to the Nth
// input. That zipped-by-index contract comes from the site itself; if a
// page violates it the extracted rows misalign silently.
const (
	casXPath      = `//td[contains(text(), "CAS")]/following-sibling::td[1]`
	compoundXPath = `//td[contains(text(), "Compound")]/following-sibling::td[1]`
	priceXPath    = `//td[contains(text(), "Price")]`
	catalogXPath  = `//*[@id="Catalog"]`

	// packRowXPath matches one table row per pack size still requiring a
	// quantity to be entered before availability is known.
	packRowXPath = `//tr[.//span[contains(text(), "Please enter Qty to check availability")]]`
)

// ProductExtractor turns a rendered product page into a ChemicalItem
// plus the availability probe URLs for its pack-size rows.
type ProductExtractor struct {
	cfg    *config.CrawlerConfig
	logger *slog.Logger
}

// NewProductExtractor creates an extractor.
func NewProductExtractor(cfg *config.Config, logger *slog.Logger) *ProductExtractor {
	return &ProductExtractor{
		cfg:    &cfg.Crawler,
		logger: logger.With("component", "product_extractor"),
	}
}

// Extract parses the page HTML. It returns (nil, nil, nil) when the
// page carries no CAS number field: such pages are not product pages
// and are skipped silently rather than treated as errors.
func (e *ProductExtractor) Extract(pageHTML, pageURL string) (*types.ChemicalItem, []string, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, nil, &types.ParseError{URL: pageURL, Err: err}
	}

	cas := strings.TrimSpace(nodeText(doc, casXPath))
	if cas == "" {
		return nil, nil, nil
	}

	item := types.NewChemicalItem(e.cfg.CompanyName, pageURL)
	item.CASNumber = cas
	item.CompoundName = strings.TrimSpace(nodeText(doc, compoundXPath))

	currency := sharedCurrency(nodeText(doc, priceXPath))

	rows, err := htmlquery.QueryAll(doc, packRowXPath)
	if err != nil {
		return nil, nil, &types.ParseError{URL: pageURL, Selector: packRowXPath, Err: err}
	}

	catalog := strings.TrimSpace(nodeText(doc, catalogXPath))
	var probeURLs []string

	for n := 1; n <= len(rows); n++ {
		sizeText := nodeText(doc, fmt.Sprintf(`//span[@id="su%d"]`, n))
		quantity, unit := splitQuantityUnit(sizeText)

		price := attrValue(doc, fmt.Sprintf(`//input[@id="UnitPrice%d"]`, n), "value")

		item.Rows = append(item.Rows, types.PackSizeRow{
			RawQuantity: quantity,
			Unit:        unit,
			Currency:    currency,
			Price:       strings.TrimSpace(price),
		})

		if catalog != "" {
			probeURLs = append(probeURLs, e.probeURL(catalog, sizeText, n))
		}
	}

	e.logger.Debug("product extracted",
		"url", pageURL,
		"cas", item.CASNumber,
		"rows", len(item.Rows),
		"probes", len(probeURLs),
	)

	return item, probeURLs, nil
}

// probeURL builds the dependent availability request for row n: the
// quantity is forced to 1 so the backend reports stock for the row.
func (e *ProductExtractor) probeURL(catalog, size string, n int) string {
	base := strings.TrimSuffix(e.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/CGetInv.php?Catalog=%s&SUX=%s&QTY=1&QTYX=%d",
		base, url.QueryEscape(catalog), url.QueryEscape(size), n)
}

// splitQuantityUnit splits a "quantity/unit" span text. A span without
// the separator yields the whole text as quantity and an empty unit;
// the normalization pipeline will discard such rows.
func splitQuantityUnit(text string) (quantity, unit string) {
	quantity, unit, _ = strings.Cut(text, "/")
	return quantity, unit
}

// sharedCurrency extracts the parenthesized currency token from the
// price-label cell, e.g. "Price (USD)" -> "USD".
func sharedCurrency(label string) string {
	idx := strings.LastIndex(label, "(")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label[idx+1:]), ")"))
}

// nodeText returns the inner text of the first node matching the XPath,
// or "" when the node is absent.
func nodeText(doc *html.Node, xpath string) string {
	node, err := htmlquery.Query(doc, xpath)
	if err != nil || node == nil {
		return ""
	}
	return htmlquery.InnerText(node)
}

// attrValue returns the named attribute of the first matching node.
func attrValue(doc *html.Node, xpath, attr string) string {
	node, err := htmlquery.Query(doc, xpath)
	if err != nil || node == nil {
		return ""
	}
	return htmlquery.SelectAttr(node, attr)
}
