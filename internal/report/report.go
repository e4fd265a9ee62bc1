package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"sjsage522/pricetracker/internal/models"
	"sjsage522/pricetracker/internal/stats"
)

// DefaultRecentCount is how many leading sales the report lists
const DefaultRecentCount = 10

// Figures are the rounded summary statistics in machine-readable form
type Figures struct {
	TotalSales        int     `json:"totalSales"`
	AveragePrice      float64 `json:"averagePrice"`
	MedianPrice       float64 `json:"medianPrice"`
	MinPrice          float64 `json:"minPrice"`
	MaxPrice          float64 `json:"maxPrice"`
	PriceRange        float64 `json:"priceRange"`
	StandardDeviation float64 `json:"standardDeviation"`
}

// Bucket is a histogram bucket in machine-readable form
type Bucket struct {
	Range      string  `json:"range"`
	LowerBound float64 `json:"lowerBound"`
	UpperBound float64 `json:"upperBound"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Sale is one row of the recent-sales listing
type Sale struct {
	Date  string  `json:"date"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
}

// Summary is the structured summary persisted next to the text report
type Summary struct {
	Title        string    `json:"title"`
	GeneratedAt  time.Time `json:"generatedAt"`
	Figures
	Distribution []Bucket `json:"priceDistribution"`
	RecentSales  []Sale   `json:"recentSales"`
}

// ConditionSummary holds the figures for one price-history condition
type ConditionSummary struct {
	Figures
	FirstDate string `json:"firstDate"`
	LastDate  string `json:"lastDate"`
}

// HistorySummary summarizes every condition of a price-history page
type HistorySummary struct {
	Title         string                      `json:"title"`
	GeneratedAt   time.Time                   `json:"generatedAt"`
	Conditions    map[string]ConditionSummary `json:"conditions"`
	VolumeEntries int                         `json:"volumeEntries"`
}

// Formatter builds summaries and renders text reports
type Formatter struct {
	RecentCount int
	Now         func() time.Time
}

// NewFormatter creates a formatter listing recentCount sales
func NewFormatter(recentCount int) *Formatter {
	if recentCount <= 0 {
		recentCount = DefaultRecentCount
	}
	return &Formatter{
		RecentCount: recentCount,
		Now:         time.Now,
	}
}

// NewFigures rounds s for display
func NewFigures(s stats.Statistics) Figures {
	r := s.Rounded()
	return Figures{
		TotalSales:        r.TotalCount,
		AveragePrice:      r.Average.InexactFloat64(),
		MedianPrice:       r.Median.InexactFloat64(),
		MinPrice:          r.Min.InexactFloat64(),
		MaxPrice:          r.Max.InexactFloat64(),
		PriceRange:        r.Range.InexactFloat64(),
		StandardDeviation: r.StandardDeviation.InexactFloat64(),
	}
}

// Summary builds the structured summary. sales must be in source order;
// the first RecentCount of them are listed as recent sales.
func (f *Formatter) Summary(title string, s stats.Statistics, buckets []models.PriceBucket, sales []models.NormalizedSale) Summary {
	summary := Summary{
		Title:        title,
		GeneratedAt:  f.Now().UTC(),
		Figures:      NewFigures(s),
		Distribution: make([]Bucket, 0, len(buckets)),
		RecentSales:  make([]Sale, 0, f.RecentCount),
	}

	for _, b := range buckets {
		summary.Distribution = append(summary.Distribution, Bucket{
			Range:      fmt.Sprintf("$%s-$%s", b.LowerBound.String(), b.UpperBound.String()),
			LowerBound: b.LowerBound.InexactFloat64(),
			UpperBound: b.UpperBound.InexactFloat64(),
			Count:      b.Count,
			Percentage: b.Percentage.InexactFloat64(),
		})
	}

	for i, sale := range sales {
		if i == f.RecentCount {
			break
		}
		summary.RecentSales = append(summary.RecentSales, Sale{
			Date:  sale.Date,
			Title: sale.Title,
			Price: sale.Price.Round(2).InexactFloat64(),
		})
	}
	return summary
}

// History builds the per-condition summary for a price-history page
func (f *Formatter) History(title string, conditions map[string]stats.Statistics, points map[string][]models.PricePoint, volumeEntries int) HistorySummary {
	summary := HistorySummary{
		Title:         title,
		GeneratedAt:   f.Now().UTC(),
		Conditions:    make(map[string]ConditionSummary, len(conditions)),
		VolumeEntries: volumeEntries,
	}
	for condition, s := range conditions {
		cs := ConditionSummary{Figures: NewFigures(s)}
		if series := points[condition]; len(series) > 0 {
			cs.FirstDate = series[0].Date.Format(time.DateOnly)
			cs.LastDate = series[len(series)-1].Date.Format(time.DateOnly)
		}
		summary.Conditions[condition] = cs
	}
	return summary
}

// Text renders the human-readable report. Titles are written verbatim.
func (f *Formatter) Text(summary Summary) string {
	var sb strings.Builder

	sb.WriteString(summary.Title + "\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", summary.GeneratedAt.Format(time.RFC3339)))

	figures := newTable("Summary")
	figures.AppendHeader(table.Row{"Measure", "Value"})
	figures.AppendRows([]table.Row{
		{"Total sales", summary.TotalSales},
		{"Average price", money(summary.AveragePrice)},
		{"Median price", money(summary.MedianPrice)},
		{"Min price", money(summary.MinPrice)},
		{"Max price", money(summary.MaxPrice)},
		{"Price range", money(summary.PriceRange)},
		{"Standard deviation", money(summary.StandardDeviation)},
	})
	sb.WriteString(figures.Render() + "\n\n")

	distribution := newTable("Price distribution")
	distribution.AppendHeader(table.Row{"Range", "Count", "Percent"})
	for _, b := range summary.Distribution {
		distribution.AppendRow(table.Row{b.Range, b.Count, fmt.Sprintf("%.1f%%", b.Percentage)})
	}
	sb.WriteString(distribution.Render() + "\n\n")

	recent := newTable(fmt.Sprintf("Recent sales (first %d, source order)", len(summary.RecentSales)))
	recent.AppendHeader(table.Row{"Date", "Price", "Title"})
	for _, s := range summary.RecentSales {
		recent.AppendRow(table.Row{s.Date, money(s.Price), s.Title})
	}
	sb.WriteString(recent.Render() + "\n")

	return sb.String()
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return t
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
