package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawSaleRecord holds one sale row exactly as lifted from the page
type RawSaleRecord struct {
	Date      string `json:"date"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	SourceURL string `json:"url"`
	ID        string `json:"id"`
}

// NormalizedSale is a sale with a validated price and date.
// Price is never negative.
type NormalizedSale struct {
	Date           string          `json:"date"`
	Title          string          `json:"title"`
	Price          decimal.Decimal `json:"price"`
	FormattedPrice string          `json:"formattedPrice"`
}

// PriceBucket is one half-open histogram interval [LowerBound, UpperBound)
type PriceBucket struct {
	LowerBound decimal.Decimal `json:"lowerBound"`
	UpperBound decimal.Decimal `json:"upperBound"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

// ChartEntry is a (timestamp in epoch ms, price in minor units) pair from the chart blob
type ChartEntry struct {
	Timestamp int64
	Price     float64
}

// ChartSeries maps a condition label ("used", "new", ...) to its ordered entries
type ChartSeries map[string][]ChartEntry

// VolumeEntry is a (timestamp in epoch ms, sales volume) pair
type VolumeEntry struct {
	Timestamp int64
	Volume    int64
}

// PricePoint is a normalized chart entry: a UTC calendar day and a price in major units
type PricePoint struct {
	Date  time.Time
	Price decimal.Decimal
}

// VolumePoint is a normalized volume entry
type VolumePoint struct {
	Date   time.Time
	Volume int64
}

// PriceHistory is everything extracted from a price-history page
type PriceHistory struct {
	Chart   ChartSeries
	Volume  []VolumeEntry
	Product map[string]any
}
