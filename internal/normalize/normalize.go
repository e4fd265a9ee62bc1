package normalize

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"sjsage522/pricetracker/internal/models"
	apperrors "sjsage522/pricetracker/pkg/errors"
)

// Result is the outcome of normalizing a single raw record
type Result struct {
	Sale models.NormalizedSale
	Err  error
}

// OK reports whether the record normalized cleanly
func (r Result) OK() bool {
	return r.Err == nil
}

// Anomaly is a record that was dropped, together with the reason
type Anomaly struct {
	Record models.RawSaleRecord
	Err    error
}

// ParsePrice strips currency symbols, thousands separators and whitespace and
// parses the remainder as a non-negative decimal. Signs and exponents are rejected.
func ParsePrice(text string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Sc, r) || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	// plain digits and a decimal point only: no sign, no exponent
	if cleaned == "" || strings.IndexFunc(cleaned, notPriceRune) >= 0 {
		return decimal.Zero, apperrors.NewMalformedPrice(text, nil)
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, apperrors.NewMalformedPrice(text, err)
	}
	return price, nil
}

func notPriceRune(r rune) bool {
	return (r < '0' || r > '9') && r != '.'
}

// ParseDate accepts the listing's short date text as an opaque sortable
// string. Only blank or digit-free text is rejected.
func ParseDate(text string) (string, error) {
	date := strings.Join(strings.Fields(text), " ")
	if date == "" {
		return "", apperrors.NewMalformedDate(text, "sale date is empty")
	}
	if strings.IndexFunc(date, unicode.IsDigit) < 0 {
		return "", apperrors.NewMalformedDate(text, "sale date has no day or year")
	}
	return date, nil
}

// FormatPrice renders a price the way listings display it
func FormatPrice(price decimal.Decimal) string {
	return "$" + price.StringFixed(2)
}

// Sale normalizes one raw record
func Sale(record models.RawSaleRecord) Result {
	price, err := ParsePrice(record.Price)
	if err != nil {
		return Result{Err: err}
	}
	date, err := ParseDate(record.Date)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Sale: models.NormalizedSale{
		Date:           date,
		Title:          record.Title,
		Price:          price,
		FormattedPrice: FormatPrice(price),
	}}
}

// Sales normalizes records and partitions them into valid sales and anomalies.
// Valid sales keep their source order.
func Sales(records []models.RawSaleRecord) ([]models.NormalizedSale, []Anomaly) {
	sales := make([]models.NormalizedSale, 0, len(records))
	var anomalies []Anomaly

	for _, record := range records {
		result := Sale(record)
		if !result.OK() {
			anomalies = append(anomalies, Anomaly{Record: record, Err: result.Err})
			continue
		}
		sales = append(sales, result.Sale)
	}
	return sales, anomalies
}

var hundred = decimal.NewFromInt(100)

// ChartPoint converts an epoch-millisecond timestamp to its UTC day and a
// minor-unit price to major units rounded to two places
func ChartPoint(entry models.ChartEntry) models.PricePoint {
	return models.PricePoint{
		Date:  Day(entry.Timestamp),
		Price: decimal.NewFromFloat(entry.Price).Div(hundred).Round(2),
	}
}

// ChartSeries normalizes every entry of every condition, keeping entry order
func ChartSeries(series models.ChartSeries) map[string][]models.PricePoint {
	out := make(map[string][]models.PricePoint, len(series))
	for condition, entries := range series {
		points := make([]models.PricePoint, 0, len(entries))
		for _, entry := range entries {
			points = append(points, ChartPoint(entry))
		}
		out[condition] = points
	}
	return out
}

// Volume normalizes volume timestamps to UTC days
func Volume(entries []models.VolumeEntry) []models.VolumePoint {
	points := make([]models.VolumePoint, 0, len(entries))
	for _, entry := range entries {
		points = append(points, models.VolumePoint{Date: Day(entry.Timestamp), Volume: entry.Volume})
	}
	return points
}

// Day truncates an epoch-millisecond timestamp to midnight UTC
func Day(epochMillis int64) time.Time {
	t := time.UnixMilli(epochMillis).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// PointsToSales lets chart points flow through the statistics engine
func PointsToSales(title string, points []models.PricePoint) []models.NormalizedSale {
	sales := make([]models.NormalizedSale, 0, len(points))
	for _, p := range points {
		sales = append(sales, models.NormalizedSale{
			Date:           p.Date.Format(time.DateOnly),
			Title:          title,
			Price:          p.Price,
			FormattedPrice: FormatPrice(p.Price),
		})
	}
	return sales
}
