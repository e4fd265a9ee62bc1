package pipeline

import (
	"context"
	"encoding/json"
	"sort"

	"sjsage522/pricetracker/config"
	"sjsage522/pricetracker/helpers"
	"sjsage522/pricetracker/internal"
	"sjsage522/pricetracker/internal/extractor"
	"sjsage522/pricetracker/internal/fetch"
	"sjsage522/pricetracker/internal/models"
	"sjsage522/pricetracker/internal/normalize"
	"sjsage522/pricetracker/internal/report"
	"sjsage522/pricetracker/internal/stats"
	"sjsage522/pricetracker/logger"
	apperrors "sjsage522/pricetracker/pkg/errors"
	"sjsage522/pricetracker/services/publisher"
	"sjsage522/pricetracker/services/storage"
)

// Pipeline runs fetch, extract, normalize, summarize, format and persist
// strictly in sequence for one target
type Pipeline struct {
	fetcher     fetch.Fetcher
	renderer    fetch.Fetcher
	storage     storage.Storage
	publisher   publisher.Publisher
	formatter   *report.Formatter
	baseURL     string
	bucketWidth int64
	anomalyLog  func(path string) helpers.LoggerInterface
	log         *logger.Logger
}

// ListingResult describes a listing-mode run
type ListingResult struct {
	// Scraped is the number of records extracted this run
	Scraped int
	// FetchErr is set when the page could not be retrieved and existing data was analyzed instead
	FetchErr  error
	Anomalies int
	Summary   report.Summary
}

// HistoryResult describes a price-history run
type HistoryResult struct {
	Files      []string
	BlobErrors []error
	Summary    report.HistorySummary
}

// New creates a pipeline
func New(deps internal.Dependencies, cfg *config.Config) *Pipeline {
	pub := deps.Publisher
	if pub == nil {
		pub = publisher.Nop{}
	}
	return &Pipeline{
		fetcher:     deps.Fetcher,
		renderer:    deps.Renderer,
		storage:     deps.Storage,
		publisher:   pub,
		formatter:   report.NewFormatter(cfg.RecentSalesCount),
		baseURL:     cfg.BaseURL,
		bucketWidth: int64(cfg.BucketWidth),
		anomalyLog: func(path string) helpers.LoggerInterface {
			return helpers.NewLogger(path)
		},
		log: logger.ForStage("pipeline"),
	}
}

func (p *Pipeline) logFor(target Target) *logger.Logger {
	return p.log.WithFields(logger.Fields{
		"target": target.Name,
		"mode":   target.Mode,
		"key":    target.Key(),
	})
}

func (p *Pipeline) fetcherFor(target Target) fetch.Fetcher {
	if target.Render && p.renderer != nil {
		return p.renderer
	}
	return p.fetcher
}

// RunListing scrapes the target's sales table and analyzes the stored records.
// With analyzeOnly the scrape is skipped. A fetch failure is logged and the
// existing records are analyzed instead.
func (p *Pipeline) RunListing(ctx context.Context, target Target, analyzeOnly bool) (ListingResult, error) {
	var result ListingResult
	log := p.logFor(target)

	if !analyzeOnly {
		records, err := p.Scrape(ctx, target)
		switch {
		case err == nil:
			result.Scraped = len(records)
		case apperrors.IsType(err, apperrors.ErrorTypeFetch):
			log.Warn().Err(err).Msg("Fetch failed, analyzing existing data")
			result.FetchErr = err
		case apperrors.IsType(err, apperrors.ErrorTypeExtraction):
			log.Warn().Err(err).Msg("No sale rows extracted, analyzing existing data")
		default:
			return result, err
		}
	}

	summary, anomalies, err := p.analyze(ctx, target)
	result.Anomalies = anomalies
	if err != nil {
		return result, err
	}
	result.Summary = summary
	return result, nil
}

// Scrape fetches the listing page, extracts its sale rows and persists them.
// Raw files are written only when at least one record was extracted.
func (p *Pipeline) Scrape(ctx context.Context, target Target) ([]models.RawSaleRecord, error) {
	log := p.logFor(target)
	artifacts := storage.NewArtifacts(p.storage, target.Dir)

	html, err := p.fetcherFor(target).Fetch(ctx, target.URL)
	if err != nil {
		return nil, err
	}

	if err := artifacts.Prepare(); err != nil {
		return nil, err
	}
	if err := artifacts.WritePageSnapshot(html); err != nil {
		return nil, err
	}

	records, err := extractor.NewTableExtractor(target.Collectible, p.baseURL).Extract(html)
	if err != nil {
		p.anomalyLog(artifacts.Path(storage.AnomalyLogFile)).LogError("extract", err)
		return nil, err
	}
	if len(records) == 0 {
		log.Warn().Msg("Sale table had no complete rows, keeping existing raw records")
		return records, nil
	}

	if err := artifacts.WriteRawRecords(records); err != nil {
		return nil, err
	}
	log.Info().Int("records", len(records)).Str("dir", target.Dir).Msg("Saved raw sales")
	return records, nil
}

// Analyze recomputes the summary and report from the stored raw records.
// An empty dataset is returned as an EmptyDataset error and nothing is written.
func (p *Pipeline) Analyze(ctx context.Context, target Target) (report.Summary, error) {
	summary, _, err := p.analyze(ctx, target)
	return summary, err
}

func (p *Pipeline) analyze(ctx context.Context, target Target) (report.Summary, int, error) {
	log := p.logFor(target)
	artifacts := storage.NewArtifacts(p.storage, target.Dir)

	records, err := artifacts.ReadRawRecords()
	if err != nil {
		return report.Summary{}, 0, err
	}

	sales, anomalies := normalize.Sales(records)
	if len(anomalies) > 0 {
		anomalyLog := p.anomalyLog(artifacts.Path(storage.AnomalyLogFile))
		for _, a := range anomalies {
			anomalyLog.LogError("normalize", a.Err)
		}
		log.Warn().Int("dropped", len(anomalies)).Msg("Dropped malformed records")
	}

	s, err := stats.Summarize(sales)
	if err != nil {
		return report.Summary{}, len(anomalies), err
	}

	summary := p.formatter.Summary(target.Title, s, s.Histogram(p.bucketWidth), sales)
	if err := artifacts.WriteSummary(summary); err != nil {
		return report.Summary{}, len(anomalies), err
	}
	if err := artifacts.WriteReport(p.formatter.Text(summary)); err != nil {
		return report.Summary{}, len(anomalies), err
	}
	log.Info().
		Int("sales", summary.TotalSales).
		Float64("average", summary.AveragePrice).
		Float64("median", summary.MedianPrice).
		Msg("Analysis complete")

	p.publish(ctx, target, summary)
	return summary, len(anomalies), nil
}

// RunPriceHistory fetches a price-history page and persists its chart, volume
// and product data with per-condition statistics. A blob that fails to parse
// is reported and skipped; the others are still saved.
func (p *Pipeline) RunPriceHistory(ctx context.Context, target Target) (HistoryResult, error) {
	var result HistoryResult
	log := p.logFor(target)
	artifacts := storage.NewArtifacts(p.storage, target.Dir)

	html, err := p.fetcherFor(target).Fetch(ctx, target.URL)
	if err != nil {
		return result, err
	}

	if err := artifacts.Prepare(); err != nil {
		return result, err
	}
	if err := artifacts.WritePageSnapshot(html); err != nil {
		return result, err
	}

	history, blobErrs := extractor.NewHistoryExtractor(artifacts).Extract(html)
	result.BlobErrors = blobErrs
	if len(blobErrs) > 0 {
		anomalyLog := p.anomalyLog(artifacts.Path(storage.AnomalyLogFile))
		for _, e := range blobErrs {
			anomalyLog.LogError("extract", e)
		}
	}

	if len(history.Chart) == 0 {
		log.Warn().Msg("No price history data found")
		return result, apperrors.NewEmptyDataset("history")
	}

	points := normalize.ChartSeries(history.Chart)
	volume := normalize.Volume(history.Volume)

	files, err := artifacts.WritePriceHistory(points, volume, history.Product)
	result.Files = files
	if err != nil {
		return result, err
	}

	conditions := make([]string, 0, len(points))
	for condition := range points {
		conditions = append(conditions, condition)
	}
	sort.Strings(conditions)

	conditionStats := make(map[string]stats.Statistics, len(points))
	for _, condition := range conditions {
		s, err := stats.Summarize(normalize.PointsToSales(condition, points[condition]))
		if err != nil {
			continue
		}
		conditionStats[condition] = s
		log.Info().
			Str("condition", condition).
			Int("points", s.TotalCount).
			Str("average", s.Rounded().Average.StringFixed(2)).
			Msg("Saved price history")
	}

	result.Summary = p.formatter.History(target.Title, conditionStats, points, len(volume))
	if err := artifacts.WriteHistorySummary(result.Summary); err != nil {
		return result, err
	}
	result.Files = append(result.Files, artifacts.Path(storage.HistorySummaryFile))

	p.publish(ctx, target, result.Summary)
	return result, nil
}

// publish sends v to the publisher; failures are logged and otherwise ignored
func (p *Pipeline) publish(ctx context.Context, target Target, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.LogError("publisher", err, "failed to encode summary for %s", target.Key())
		return
	}
	if err := p.publisher.Publish(ctx, target.Key(), data); err != nil {
		logger.LogError("publisher", err, "failed to publish summary for %s", target.Key())
	}
}

// RenderReport renders summary as the text report
func (p *Pipeline) RenderReport(summary report.Summary) string {
	return p.formatter.Text(summary)
}
