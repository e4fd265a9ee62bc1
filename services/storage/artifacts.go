package storage

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"sjsage522/pricetracker/internal/models"
)

// Artifact file names inside a target directory
const (
	RawRecordsJSON     = "raw-sales.json"
	RawRecordsCSV      = "raw-sales.csv"
	SummaryFile        = "summary.json"
	HistorySummaryFile = "history-summary.json"
	ReportFile         = "report.txt"
	PageSnapshotFile   = "page.html"
	VolumeFile         = "volume-data.csv"
	ProductFile        = "product-metadata.json"
	AnomalyLogFile     = "anomalies.log"
)

// Artifacts reads and writes the persisted files of one collectible target
type Artifacts struct {
	Storage Storage
	Dir     string
}

// NewArtifacts binds storage to a target directory
func NewArtifacts(s Storage, dir string) *Artifacts {
	return &Artifacts{Storage: s, Dir: dir}
}

// Path returns the location of name inside the target directory
func (a *Artifacts) Path(name string) string {
	return filepath.Join(a.Dir, name)
}

// Prepare creates the target directory
func (a *Artifacts) Prepare() error {
	return a.Storage.MakeDir(a.Dir)
}

// WriteRawRecords writes records as JSON and as CSV with an always-quoted title column
func (a *Artifacts) WriteRawRecords(records []models.RawSaleRecord) error {
	if err := a.Storage.WriteJSON(a.Path(RawRecordsJSON), records); err != nil {
		return err
	}

	table := CSVTable{
		Header:        []string{"Date", "Title", "Price", "URL", "ID"},
		Rows:          make([][]string, 0, len(records)),
		QuotedColumns: []int{1},
	}
	for _, r := range records {
		table.Rows = append(table.Rows, []string{r.Date, r.Title, r.Price, r.SourceURL, r.ID})
	}
	return a.Storage.WriteCSV(a.Path(RawRecordsCSV), table)
}

// HasRawRecords reports whether a previous scrape left raw records behind
func (a *Artifacts) HasRawRecords() bool {
	return a.Storage.Exists(a.Path(RawRecordsJSON))
}

// ReadRawRecords loads persisted raw records. A missing file yields no records.
func (a *Artifacts) ReadRawRecords() ([]models.RawSaleRecord, error) {
	if !a.HasRawRecords() {
		return nil, nil
	}
	var records []models.RawSaleRecord
	if err := a.Storage.ReadJSON(a.Path(RawRecordsJSON), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// WriteSummary writes the listing summary
func (a *Artifacts) WriteSummary(summary any) error {
	return a.Storage.WriteJSON(a.Path(SummaryFile), summary)
}

// WriteHistorySummary writes the per-condition price-history summary
func (a *Artifacts) WriteHistorySummary(summary any) error {
	return a.Storage.WriteJSON(a.Path(HistorySummaryFile), summary)
}

// WriteReport writes the rendered text report
func (a *Artifacts) WriteReport(text string) error {
	return a.Storage.WriteText(a.Path(ReportFile), text)
}

// WritePageSnapshot keeps the fetched page for later inspection
func (a *Artifacts) WritePageSnapshot(html string) error {
	return a.Storage.WriteText(a.Path(PageSnapshotFile), html)
}

// ConditionFile is the CSV file name for a chart condition
func ConditionFile(condition string) string {
	return fmt.Sprintf("price-history-%s.csv", condition)
}

// WritePriceHistory writes one CSV per condition, the volume CSV and the product
// metadata. Empty conditions, volume or metadata produce no file.
func (a *Artifacts) WritePriceHistory(points map[string][]models.PricePoint, volume []models.VolumePoint, product map[string]any) ([]string, error) {
	var written []string

	conditions := make([]string, 0, len(points))
	for condition := range points {
		conditions = append(conditions, condition)
	}
	sort.Strings(conditions)

	for _, condition := range conditions {
		series := points[condition]
		if len(series) == 0 {
			continue
		}
		table := CSVTable{Header: []string{"Date", "Price"}, Rows: make([][]string, 0, len(series))}
		for _, p := range series {
			table.Rows = append(table.Rows, []string{p.Date.Format(time.DateOnly), p.Price.StringFixed(2)})
		}
		path := a.Path(ConditionFile(condition))
		if err := a.Storage.WriteCSV(path, table); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if len(volume) > 0 {
		table := CSVTable{Header: []string{"Date", "Volume"}, Rows: make([][]string, 0, len(volume))}
		for _, v := range volume {
			table.Rows = append(table.Rows, []string{v.Date.Format(time.DateOnly), strconv.FormatInt(v.Volume, 10)})
		}
		path := a.Path(VolumeFile)
		if err := a.Storage.WriteCSV(path, table); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if len(product) > 0 {
		path := a.Path(ProductFile)
		if err := a.Storage.WriteJSON(path, product); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	return written, nil
}

// DiagnosticName maps a blob name such as "VGPC.chart_data" to "chart-data"
func DiagnosticName(blob string) string {
	name := blob
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "_", "-")
	if !strings.HasSuffix(name, "-data") {
		name += "-data"
	}
	return name
}

// WriteDiagnostic persists the pre- and post-cleanup text of a blob that
// failed to parse
func (a *Artifacts) WriteDiagnostic(blob, original, processed string) error {
	name := DiagnosticName(blob)
	if err := a.Storage.WriteText(a.Path(fmt.Sprintf("debug-%s-original.txt", name)), original); err != nil {
		return err
	}
	return a.Storage.WriteText(a.Path(fmt.Sprintf("debug-%s-processed.txt", name)), processed)
}
