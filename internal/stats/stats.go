package stats

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"sjsage522/pricetracker/internal/models"
	apperrors "sjsage522/pricetracker/pkg/errors"
)

// DefaultBucketWidth is the histogram bucket width in currency units
const DefaultBucketWidth = 20

// Statistics summarizes a set of normalized sales.
// Average is kept at full precision; use Rounded for display values.
type Statistics struct {
	TotalCount        int
	Average           decimal.Decimal
	Median            decimal.Decimal
	Min               decimal.Decimal
	Max               decimal.Decimal
	Range             decimal.Decimal
	StandardDeviation decimal.Decimal

	sorted []decimal.Decimal
}

// Summarize computes summary statistics over sales.
// Empty input is an EmptyDataset error.
func Summarize(sales []models.NormalizedSale) (Statistics, error) {
	if len(sales) == 0 {
		return Statistics{}, apperrors.NewEmptyDataset("summarize")
	}

	prices := make([]decimal.Decimal, len(sales))
	for i, s := range sales {
		prices[i] = s.Price
	}
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].LessThan(prices[j])
	})

	n := decimal.NewFromInt(int64(len(prices)))
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	mean := sum.Div(n)

	variance := decimal.Zero
	for _, p := range prices {
		d := p.Sub(mean)
		variance = variance.Add(d.Mul(d))
	}
	variance = variance.Div(n)

	min := prices[0]
	max := prices[len(prices)-1]

	return Statistics{
		TotalCount:        len(prices),
		Average:           mean,
		Median:            prices[len(prices)/2],
		Min:               min,
		Max:               max,
		Range:             max.Sub(min),
		StandardDeviation: decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64())),
		sorted:            prices,
	}, nil
}

// Rounded returns a copy with every figure rounded to two decimal places
func (s Statistics) Rounded() Statistics {
	s.Average = s.Average.Round(2)
	s.Median = s.Median.Round(2)
	s.Min = s.Min.Round(2)
	s.Max = s.Max.Round(2)
	s.Range = s.Range.Round(2)
	s.StandardDeviation = s.StandardDeviation.Round(2)
	return s
}

// Histogram buckets the summarized prices into half-open intervals of the
// given width. The first bucket starts at floor(min/width)*width and buckets
// are generated while their lower bound does not exceed max.
func (s Statistics) Histogram(width int64) []models.PriceBucket {
	if s.TotalCount == 0 || len(s.sorted) == 0 {
		return nil
	}
	if width <= 0 {
		width = DefaultBucketWidth
	}
	w := decimal.NewFromInt(width)
	start := bucketIndex(s.Min, w).Mul(w)

	var buckets []models.PriceBucket
	for lower := start; lower.LessThanOrEqual(s.Max); lower = lower.Add(w) {
		buckets = append(buckets, models.PriceBucket{LowerBound: lower, UpperBound: lower.Add(w)})
	}

	last := int64(len(buckets) - 1)
	for _, p := range s.sorted {
		idx := bucketIndex(p.Sub(start), w).IntPart()
		if idx > last {
			idx = last
		}
		buckets[idx].Count++
	}

	total := decimal.NewFromInt(int64(s.TotalCount))
	for i := range buckets {
		buckets[i].Percentage = decimal.NewFromInt(int64(buckets[i].Count)).
			Mul(decimal.NewFromInt(100)).
			Div(total).
			Round(1)
	}
	return buckets
}

// bucketIndex returns floor(v/w) for non-negative v. QuoRem is exact where
// Div rounds to DivisionPrecision and can carry a price into the next bucket.
func bucketIndex(v, w decimal.Decimal) decimal.Decimal {
	q, _ := v.QuoRem(w, 0)
	return q
}

// Histogram summarizes sales and buckets them in one call
func Histogram(sales []models.NormalizedSale, width int64) ([]models.PriceBucket, error) {
	s, err := Summarize(sales)
	if err != nil {
		return nil, err
	}
	return s.Histogram(width), nil
}
