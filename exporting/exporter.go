package exporting

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"opsdashboard/reporting"
)

// ExportFormat identifies a download payload format.
type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatExcel ExportFormat = "excel"
)

// rankingHeader and trendingHeader are the serialized column orders.
var (
	rankingHeader  = []string{"production_line", "issue_count", "total_rows", "unique_lots"}
	trendingHeader = []string{"issue_category", "current_count", "previous_count", "delta", "direction"}
	drillHeader    = []string{
		"source_file", "source_sheet", "source_row",
		"raw_lot_id", "canonical_lot_id", "production_date",
		"production_line", "primary_issue", "line_issue",
		"shipping_status_display", "latest_ship_date", "is_problematic_but_shipped",
	}
)

// Exporter renders weekly summaries and drill-down tables into file
// payloads. The generation timestamp comes from Now so callers control it;
// it is export metadata only and never feeds back into the pipeline.
type Exporter struct {
	Now func() time.Time
}

// NewExporter creates an exporter using the wall clock.
func NewExporter() *Exporter {
	return &Exporter{Now: time.Now}
}

// WeeklySummaryCSV exports the ranking and trending tables into a single CSV
// payload: a metadata block (week bounds, generation timestamp), then the two
// labeled table sections.
func (e *Exporter) WeeklySummaryCSV(summary *reporting.WeeklySummary) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "week_start,%s\n", summary.WeekStart.Format("2006-01-02"))
	fmt.Fprintf(&buf, "week_end,%s\n", summary.WeekEnd.Format("2006-01-02"))
	fmt.Fprintf(&buf, "generated_utc,%s\n\n", e.Now().UTC().Format(time.RFC3339))

	buf.WriteString("ranking_table\n")
	writer := csv.NewWriter(&buf)
	if err := writer.Write(rankingHeader); err != nil {
		return nil, fmt.Errorf("failed to write ranking header: %w", err)
	}
	for _, entry := range summary.Ranking {
		record := []string{
			entry.ProductionLine,
			strconv.Itoa(entry.IssueCount),
			strconv.Itoa(entry.TotalRows),
			strconv.Itoa(entry.UniqueLots),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write ranking row: %w", err)
		}
	}
	writer.Flush()

	buf.WriteString("\ntrending_table\n")
	writer = csv.NewWriter(&buf)
	if err := writer.Write(trendingHeader); err != nil {
		return nil, fmt.Errorf("failed to write trending header: %w", err)
	}
	for _, entry := range summary.Trending {
		record := []string{
			entry.IssueCategory,
			strconv.Itoa(entry.CurrentCount),
			strconv.Itoa(entry.PreviousCount),
			strconv.Itoa(entry.Delta),
			entry.Direction,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write trending row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WeeklySummaryXLSX exports the weekly summary as an XLSX workbook with
// metadata, ranking and trending sheets.
func (e *Exporter) WeeklySummaryXLSX(summary *reporting.WeeklySummary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "metadata"); err != nil {
		return nil, fmt.Errorf("failed to rename metadata sheet: %w", err)
	}
	metadata := [][]any{
		{"field", "value"},
		{"week_start", summary.WeekStart.Format("2006-01-02")},
		{"week_end", summary.WeekEnd.Format("2006-01-02")},
		{"generated_utc", e.Now().UTC().Format(time.RFC3339)},
	}
	for i, row := range metadata {
		if err := f.SetSheetRow("metadata", fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, fmt.Errorf("failed to write metadata row: %w", err)
		}
	}

	if _, err := f.NewSheet("ranking"); err != nil {
		return nil, fmt.Errorf("failed to create ranking sheet: %w", err)
	}
	if err := writeSheetRow(f, "ranking", 1, toAnySlice(rankingHeader)); err != nil {
		return nil, err
	}
	for i, entry := range summary.Ranking {
		row := []any{entry.ProductionLine, entry.IssueCount, entry.TotalRows, entry.UniqueLots}
		if err := writeSheetRow(f, "ranking", i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet("trending"); err != nil {
		return nil, fmt.Errorf("failed to create trending sheet: %w", err)
	}
	if err := writeSheetRow(f, "trending", 1, toAnySlice(trendingHeader)); err != nil {
		return nil, err
	}
	for i, entry := range summary.Trending {
		row := []any{entry.IssueCategory, entry.CurrentCount, entry.PreviousCount, entry.Delta, entry.Direction}
		if err := writeSheetRow(f, "trending", i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// DrillDownCSV exports drill-down rows with shipping details to CSV.
func (e *Exporter) DrillDownCSV(rows []reporting.DrillDownRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(drillHeader); err != nil {
		return nil, fmt.Errorf("failed to write drill-down header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(drillRecord(row)); err != nil {
			return nil, fmt.Errorf("failed to write drill-down row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DrillDownXLSX exports drill-down rows as a single-sheet XLSX workbook.
func (e *Exporter) DrillDownXLSX(rows []reporting.DrillDownRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "drilldown"); err != nil {
		return nil, fmt.Errorf("failed to rename drill-down sheet: %w", err)
	}
	if err := writeSheetRow(f, "drilldown", 1, toAnySlice(drillHeader)); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := writeSheetRow(f, "drilldown", i+2, toAnySlice(drillRecord(row))); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// drillRecord serializes one display-ready drill-down row.
func drillRecord(row reporting.DrillDownRow) []string {
	return []string{
		row.Source.File,
		row.Source.Sheet,
		strconv.Itoa(row.Source.Row),
		row.RawLotID,
		row.CanonicalLotID,
		formatDate(row.ProductionDate),
		row.ProductionLine,
		row.PrimaryIssue,
		strconv.FormatBool(row.LineIssue),
		row.ShippingStatusDisplay,
		formatDate(row.LatestShipDateDisplay),
		strconv.FormatBool(row.IsProblematicButShipped),
	}
}

// formatDate renders an optional date; absent dates become "".
func formatDate(date *time.Time) string {
	if date == nil {
		return ""
	}
	return date.Format("2006-01-02")
}

// writeSheetRow writes one row at the given 1-based row number.
func writeSheetRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", rowNum), &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

// toAnySlice widens a string slice for excelize row writes.
func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}
