package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"

	"sjsage522/pricetracker/internal/models"
	"sjsage522/pricetracker/logger"
	apperrors "sjsage522/pricetracker/pkg/errors"
)

// Global assignments the price-history page embeds in a script block
const (
	BlobChartData  = "VGPC.chart_data"
	BlobVolumeData = "VGPC.volume_data"
	BlobProduct    = "VGPC.product"
)

var (
	// bare identifier keys directly after "{", "," or whitespace
	bareKeyPattern = regexp.MustCompile(`(^|[{,\s])([A-Za-z0-9_$]+)\s*:`)
	// a comma followed only by whitespace before a closing brace or bracket
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	// a dangling comma at the very end of the text
	danglingCommaPattern = regexp.MustCompile(`,\s*$`)
)

// Cleanup rewrites a JavaScript object literal into JSON text:
//
//  1. bare identifier keys before a colon are double-quoted
//  2. single quotes become double quotes
//  3. trailing commas before "}" or "]" (and at the end of the text) are removed
//
// Known gaps: a colon preceded by a word inside a string value ("note: x") is
// treated as a key, apostrophes inside double-quoted strings are turned into
// quotes, and escaped delimiters are not recognised. Callers fall back to
// ParseBlob's tolerant path for those.
func Cleanup(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = bareKeyPattern.ReplaceAllString(cleaned, `${1}"${2}":`)
	cleaned = strings.ReplaceAll(cleaned, "'", `"`)
	cleaned = trailingCommaPattern.ReplaceAllString(cleaned, "$1")
	cleaned = danglingCommaPattern.ReplaceAllString(cleaned, "")
	return cleaned
}

func assignmentPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(name) + `\s*=\s*(\{[\s\S]*?\})\s*;`)
}

// FindBlob returns the object literal assigned to name. Script elements are
// searched first; the whole text is searched when none of them match.
func FindBlob(html, name string) (string, bool) {
	pattern := assignmentPattern(name)

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		var found string
		doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if groups := pattern.FindStringSubmatch(s.Text()); len(groups) == 2 {
				found = groups[1]
				return false
			}
			return true
		})
		if found != "" {
			return found, true
		}
	}

	if groups := pattern.FindStringSubmatch(html); len(groups) == 2 {
		return groups[1], true
	}
	return "", false
}

// ParseBlob decodes raw into a generic value. The cleaned text is decoded as
// JSON first; if that fails the raw text is tried with a JSON5 parser. The
// cleaned text is always returned for diagnostics.
func ParseBlob(name, raw string) (any, string, error) {
	cleaned := Cleanup(raw)

	var out any
	jsonErr := json.Unmarshal([]byte(cleaned), &out)
	if jsonErr == nil {
		return out, cleaned, nil
	}

	out = nil
	tolerantErr := json5.Unmarshal([]byte(raw), &out)
	if tolerantErr == nil {
		logger.Debug("%s parsed by tolerant fallback after cleanup failed: %v", name, jsonErr)
		return out, cleaned, nil
	}

	return nil, cleaned, apperrors.NewBlobParse(name,
		fmt.Errorf("cleaned text: %v; tolerant parse: %w", jsonErr, tolerantErr))
}

// DiagnosticSink receives the pre- and post-cleanup text of a blob that failed to parse
type DiagnosticSink interface {
	WriteDiagnostic(blob, original, processed string) error
}

// HistoryExtractor extracts chart, volume and product blobs from a price-history page
type HistoryExtractor struct {
	ChartName   string
	VolumeName  string
	ProductName string
	Diagnostics DiagnosticSink
	log         *logger.Logger
}

// NewHistoryExtractor creates an extractor for the standard blob names
func NewHistoryExtractor(diagnostics DiagnosticSink) *HistoryExtractor {
	return &HistoryExtractor{
		ChartName:   BlobChartData,
		VolumeName:  BlobVolumeData,
		ProductName: BlobProduct,
		Diagnostics: diagnostics,
		log:         logger.ForStage("extract"),
	}
}

// Extract pulls all three blobs out of html. Each blob is independent: a blob
// that is missing or fails to parse yields an empty result and an entry in the
// returned error slice, and never prevents the others from being extracted.
func (e *HistoryExtractor) Extract(html string) (models.PriceHistory, []error) {
	history := models.PriceHistory{
		Chart:   models.ChartSeries{},
		Product: map[string]any{},
	}
	var errs []error

	if value, err := e.extractBlob(html, e.ChartName); err != nil {
		errs = append(errs, err)
	} else {
		history.Chart = toChartSeries(value)
		e.log.Info().Int("conditions", len(history.Chart)).Msg("Successfully extracted chart data")
	}

	if value, err := e.extractBlob(html, e.VolumeName); err != nil {
		errs = append(errs, err)
	} else {
		history.Volume = toVolume(value)
		e.log.Info().Int("entries", len(history.Volume)).Msg("Successfully extracted volume data")
	}

	if value, err := e.extractBlob(html, e.ProductName); err != nil {
		errs = append(errs, err)
	} else if product, ok := value.(map[string]any); ok {
		history.Product = product
		e.log.Info().Int("fields", len(product)).Msg("Successfully extracted product data")
	}

	return history, errs
}

func (e *HistoryExtractor) extractBlob(html, name string) (any, error) {
	raw, ok := FindBlob(html, name)
	if !ok {
		err := apperrors.NewExtraction("extract", fmt.Sprintf("no script assignment to %s found", name), nil)
		e.log.Warn().Str("blob", name).Msg("Blob not found")
		return nil, err
	}

	value, cleaned, err := ParseBlob(name, raw)
	if err != nil {
		e.log.Error().Err(err).Str("blob", name).Msg("Error parsing blob, check debug files for details")
		if e.Diagnostics != nil {
			if derr := e.Diagnostics.WriteDiagnostic(name, raw, cleaned); derr != nil {
				e.log.Warn().Err(derr).Str("blob", name).Msg("Failed to write blob diagnostics")
			}
		}
		return nil, err
	}
	return value, nil
}

// toChartSeries converts {condition: [[ts, price], ...]} into a ChartSeries,
// skipping entries that are not numeric pairs
func toChartSeries(value any) models.ChartSeries {
	series := models.ChartSeries{}
	obj, ok := value.(map[string]any)
	if !ok {
		return series
	}
	for condition, rawEntries := range obj {
		pairs := numericPairs(rawEntries)
		if len(pairs) == 0 {
			continue
		}
		entries := make([]models.ChartEntry, 0, len(pairs))
		for _, p := range pairs {
			entries = append(entries, models.ChartEntry{Timestamp: int64(p[0]), Price: p[1]})
		}
		series[condition] = entries
	}
	return series
}

// toVolume converts {volume: [[ts, count], ...]}
func toVolume(value any) []models.VolumeEntry {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	pairs := numericPairs(obj["volume"])
	volume := make([]models.VolumeEntry, 0, len(pairs))
	for _, p := range pairs {
		volume = append(volume, models.VolumeEntry{Timestamp: int64(p[0]), Volume: int64(p[1])})
	}
	return volume
}

func numericPairs(value any) [][2]float64 {
	list, ok := value.([]any)
	if !ok {
		return nil
	}
	pairs := make([][2]float64, 0, len(list))
	for _, item := range list {
		pair, ok := item.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		first, ok1 := pair[0].(float64)
		second, ok2 := pair[1].(float64)
		if !ok1 || !ok2 {
			continue
		}
		pairs = append(pairs, [2]float64{first, second})
	}
	return pairs
}
