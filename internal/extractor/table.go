package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/pricetracker/config"
	"sjsage522/pricetracker/helpers"
	"sjsage522/pricetracker/internal/models"
	apperrors "sjsage522/pricetracker/pkg/errors"
)

// IDExtractorFunc derives a record id from the row element's id attribute
type IDExtractorFunc func(elementID string) string

// TableExtractor turns completed-sale table rows into raw sale records
type TableExtractor struct {
	BaseURL     string
	Selectors   config.Selectors
	IDExtractor IDExtractorFunc
}

// NewTableExtractor creates a table extractor for a listing-mode collectible
func NewTableExtractor(c config.Collectible, baseURL string) *TableExtractor {
	prefix := c.IDPrefix
	return &TableExtractor{
		BaseURL:   baseURL,
		Selectors: c.Selectors,
		IDExtractor: func(elementID string) string {
			return helpers.TrimKnownPrefix(elementID, prefix)
		},
	}
}

// Extract parses html and extracts one record per complete sale row
func (e *TableExtractor) Extract(html string) ([]models.RawSaleRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.NewExtraction("extract", "HTML parse error", err)
	}
	return e.ExtractDocument(doc)
}

// ExtractDocument extracts records from an already parsed document.
// Records keep the order in which rows appear on the page.
func (e *TableExtractor) ExtractDocument(doc *goquery.Document) ([]models.RawSaleRecord, error) {
	rows := doc.Find(e.Selectors.Row)
	if rows.Length() == 0 {
		return nil, apperrors.NewExtraction("extract",
			fmt.Sprintf("no rows matched selector %q", e.Selectors.Row), nil)
	}

	records := make([]models.RawSaleRecord, 0, rows.Length())
	rows.Each(func(_ int, s *goquery.Selection) {
		if record, ok := e.processRow(s); ok {
			records = append(records, record)
		}
	})

	return records, nil
}

// processRow extracts a single row. Rows without a date, title or price cell are
// header, ad or spacer rows and are skipped.
func (e *TableExtractor) processRow(s *goquery.Selection) (models.RawSaleRecord, bool) {
	dateSel := s.Find(e.Selectors.Date)
	titleSel := s.Find(e.Selectors.Title)
	priceSel := s.Find(e.Selectors.Price)
	if dateSel.Length() == 0 || titleSel.Length() == 0 || priceSel.Length() == 0 {
		return models.RawSaleRecord{}, false
	}

	var link string
	if href, exists := titleSel.Find("a").First().Attr("href"); exists {
		link = e.ResolveURL(strings.TrimSpace(href))
	}

	var id string
	if elementID, exists := s.Attr("id"); exists && e.IDExtractor != nil {
		id = e.IDExtractor(strings.TrimSpace(elementID))
	}

	return models.RawSaleRecord{
		Date:      collapseSpace(dateSel.First().Text()),
		Title:     collapseSpace(titleSel.First().Text()),
		Price:     collapseSpace(priceSel.First().Text()),
		SourceURL: link,
		ID:        id,
	}, true
}

// ResolveURL resolves href against the extractor's base URL
func (e *TableExtractor) ResolveURL(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	base, err := url.Parse(e.BaseURL)
	if err != nil || e.BaseURL == "" {
		return href
	}
	return base.ResolveReference(ref).String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
