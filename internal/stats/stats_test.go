package stats

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricetracker/internal/models"
	apperrors "sjsage522/pricetracker/pkg/errors"
)

func salesOf(prices ...string) []models.NormalizedSale {
	sales := make([]models.NormalizedSale, 0, len(prices))
	for _, p := range prices {
		price := decimal.RequireFromString(p)
		sales = append(sales, models.NormalizedSale{Date: "2024-05-01", Title: "box " + p, Price: price})
	}
	return sales
}

func TestSummarize_Example(t *testing.T) {
	s, err := Summarize(salesOf("230.00", "210.00", "283.00"))
	require.NoError(t, err)

	r := s.Rounded()
	assert.Equal(t, 3, r.TotalCount)
	assert.Equal(t, "241.00", r.Average.StringFixed(2))
	assert.Equal(t, "230.00", r.Median.StringFixed(2))
	assert.Equal(t, "210.00", r.Min.StringFixed(2))
	assert.Equal(t, "283.00", r.Max.StringFixed(2))
	assert.Equal(t, "73.00", r.Range.StringFixed(2))
	// sqrt((121 + 961 + 1764) / 3)
	assert.Equal(t, "30.80", r.StandardDeviation.StringFixed(2))
}

func TestSummarize_MedianUsesUpperMiddle(t *testing.T) {
	s, err := Summarize(salesOf("40", "10", "30", "20"))
	require.NoError(t, err)
	assert.True(t, s.Median.Equal(decimal.NewFromInt(30)), "median %s", s.Median)
	assert.True(t, s.Average.Equal(decimal.NewFromInt(25)))
}

func TestSummarize_SingleSale(t *testing.T) {
	s, err := Summarize(salesOf("99.99"))
	require.NoError(t, err)
	assert.True(t, s.Median.Equal(s.Min))
	assert.True(t, s.Range.IsZero())
	assert.True(t, s.StandardDeviation.IsZero())
}

func TestSummarize_IdenticalPricesHaveZeroDeviation(t *testing.T) {
	s, err := Summarize(salesOf("50", "50", "50", "50", "50"))
	require.NoError(t, err)
	assert.True(t, s.StandardDeviation.IsZero())
	assert.True(t, s.Range.IsZero())
}

func TestSummarize_UnroundedMeanForDeviation(t *testing.T) {
	// mean is 1/3; rounding it first would shift the deviation
	s, err := Summarize(salesOf("0", "0", "1"))
	require.NoError(t, err)
	assert.Equal(t, "0.33", s.Rounded().Average.StringFixed(2))
	assert.Equal(t, "0.4714", s.StandardDeviation.StringFixed(4))
}

func TestSummarize_Empty(t *testing.T) {
	_, err := Summarize(nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeEmptyDataset))
	assert.Contains(t, err.Error(), "no data to analyze")
}

func TestHistogram_Boundaries(t *testing.T) {
	s, err := Summarize(salesOf("205", "219.99", "220", "239", "240"))
	require.NoError(t, err)

	buckets := s.Histogram(20)
	require.Len(t, buckets, 3)

	assert.Equal(t, "200", buckets[0].LowerBound.String())
	assert.Equal(t, "220", buckets[0].UpperBound.String())
	assert.Equal(t, 2, buckets[0].Count)

	// a price equal to an upper bound belongs to the next bucket
	assert.Equal(t, "220", buckets[1].LowerBound.String())
	assert.Equal(t, 2, buckets[1].Count)

	assert.Equal(t, "240", buckets[2].LowerBound.String())
	assert.Equal(t, "260", buckets[2].UpperBound.String())
	assert.Equal(t, 1, buckets[2].Count)

	assert.Equal(t, "40", buckets[0].Percentage.String())
	assert.Equal(t, "20", buckets[2].Percentage.String())
}

func TestHistogram_PriceJustBelowUpperBound(t *testing.T) {
	tests := []struct {
		name   string
		prices []string
		want   map[string]int
	}{
		{
			name:   "max just below bucket end",
			prices: []string{"205.00", "239.99999999999999999"},
			want:   map[string]int{"200": 1, "220": 1},
		},
		{
			name:   "min just below bucket end",
			prices: []string{"219.99999999999999999", "230.00"},
			want:   map[string]int{"200": 1, "220": 1},
		},
		{
			name:   "inner price just below bucket end",
			prices: []string{"219.99999999999999999", "250.00"},
			want:   map[string]int{"200": 1, "220": 0, "240": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Summarize(salesOf(tt.prices...))
			require.NoError(t, err)

			var buckets []models.PriceBucket
			require.NotPanics(t, func() { buckets = s.Histogram(20) })

			got := make(map[string]int, len(buckets))
			for _, b := range buckets {
				got[b.LowerBound.String()] = b.Count
			}
			assert.Equal(t, tt.want, got)

			for _, p := range tt.prices {
				price := decimal.RequireFromString(p)
				inside := 0
				for _, b := range buckets {
					if price.GreaterThanOrEqual(b.LowerBound) && price.LessThan(b.UpperBound) {
						inside++
					}
				}
				assert.Equal(t, 1, inside, "price %s", p)
			}
		})
	}
}

func TestHistogram_PercentageRounding(t *testing.T) {
	s, err := Summarize(salesOf("1", "2", "25"))
	require.NoError(t, err)

	buckets := s.Histogram(20)
	require.Len(t, buckets, 2)
	assert.Equal(t, "66.7", buckets[0].Percentage.String())
	assert.Equal(t, "33.3", buckets[1].Percentage.String())
}

func TestHistogram_DefaultWidth(t *testing.T) {
	s, err := Summarize(salesOf("10", "30"))
	require.NoError(t, err)
	assert.Len(t, s.Histogram(0), 2)
}

func TestHistogram_Helper(t *testing.T) {
	_, err := Histogram(nil, 20)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeEmptyDataset))

	buckets, err := Histogram(salesOf("5"), 20)
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "100", buckets[0].Percentage.String())
}

func TestProperties_RandomSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		n := 1 + rng.Intn(40)
		sales := make([]models.NormalizedSale, n)
		for i := range sales {
			sales[i] = models.NormalizedSale{Price: decimal.New(int64(rng.Intn(100000)), -2)}
		}

		s, err := Summarize(sales)
		require.NoError(t, err)

		assert.True(t, s.Min.LessThanOrEqual(s.Median))
		assert.True(t, s.Median.LessThanOrEqual(s.Max))
		assert.True(t, s.Min.LessThanOrEqual(s.Average))
		assert.True(t, s.Average.LessThanOrEqual(s.Max))
		assert.False(t, s.StandardDeviation.IsNegative())

		buckets := s.Histogram(20)
		total := 0
		for i, b := range buckets {
			total += b.Count
			assert.True(t, b.UpperBound.Sub(b.LowerBound).Equal(decimal.NewFromInt(20)))
			if i > 0 {
				assert.True(t, buckets[i-1].UpperBound.Equal(b.LowerBound), "buckets must be contiguous")
			}
		}
		assert.Equal(t, n, total)

		for _, sale := range sales {
			containing := 0
			for _, b := range buckets {
				if sale.Price.GreaterThanOrEqual(b.LowerBound) && sale.Price.LessThan(b.UpperBound) {
					containing++
				}
			}
			assert.Equal(t, 1, containing, "price %s", sale.Price)
		}
	}
}
