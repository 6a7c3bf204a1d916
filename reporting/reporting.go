package reporting

import (
	"sort"
	"time"

	"opsdashboard/consolidation"
)

// UnspecifiedCategory labels issue rows with no recorded category.
const UnspecifiedCategory = "Unspecified"

// Trend directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
	DirectionFlat = "flat"
)

// Config holds the behavior knobs of the reporting service so business rules
// stay configurable without code edits.
type Config struct {
	// Rule used to determine whether a production row counts as an "issue".
	IssueRuleText string `json:"issue_rule_text"`
	// Label shown when a production lot has no matching shipping record.
	NotFoundShippingLabel string `json:"not_found_shipping_label"`
	// Flat day offset applied to both week bounds for the previous window.
	ComparisonPeriodDays int `json:"comparison_period_days"`
}

// DefaultConfig returns the reporting defaults.
func DefaultConfig() Config {
	return Config{
		IssueRuleText:         "Count row as issue when line_issue is truthy (Yes/True/1).",
		NotFoundShippingLabel: "Not Found / Not Shipped Yet",
		ComparisonPeriodDays:  7,
	}
}

// RankingEntry is one production line in the weekly ranking table.
type RankingEntry struct {
	ProductionLine string `json:"production_line"`
	IssueCount     int    `json:"issue_count"`
	TotalRows      int    `json:"total_rows"`
	UniqueLots     int    `json:"unique_lots"`
}

// TrendingEntry is one issue category compared against the previous window.
type TrendingEntry struct {
	IssueCategory string `json:"issue_category"`
	CurrentCount  int    `json:"current_count"`
	PreviousCount int    `json:"previous_count"`
	Delta         int    `json:"delta"`
	Direction     string `json:"direction"`
}

// WeeklySummary is the aggregated weekly result consumed by UI and export.
type WeeklySummary struct {
	WeekStart time.Time       `json:"week_start"`
	WeekEnd   time.Time       `json:"week_end"`
	Ranking   []RankingEntry  `json:"ranking"`
	Trending  []TrendingEntry `json:"trending"`
}

// DrillDownRow is a display-ready consolidated row backing a ranking or
// trend entry.
type DrillDownRow struct {
	consolidation.ConsolidatedRow
	ShippingStatusDisplay string     `json:"shipping_status_display"`
	LatestShipDateDisplay *time.Time `json:"latest_ship_date_display,omitempty"`
}

// Service generates weekly summaries and drill-down views from consolidated
// rows.
type Service struct {
	config Config
}

// NewService creates a reporting service with the given config.
func NewService(config Config) *Service {
	return &Service{config: config}
}

// WeekBounds returns the inclusive Monday-Sunday calendar week containing
// the anchor date. Monday is day 0 of the week.
func WeekBounds(anchor time.Time) (time.Time, time.Time) {
	day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// WeeklySummary computes the line ranking for the week containing the anchor
// date and the category trend against the previous window. The previous
// window is both week bounds shifted back by ComparisonPeriodDays — a flat
// day offset, deliberately not calendar-week aligned for other period values.
func (s *Service) WeeklySummary(rows []consolidation.ConsolidatedRow, anchor time.Time) *WeeklySummary {
	weekStart, weekEnd := WeekBounds(anchor)
	prevStart := weekStart.AddDate(0, 0, -s.config.ComparisonPeriodDays)
	prevEnd := weekEnd.AddDate(0, 0, -s.config.ComparisonPeriodDays)

	current := filterByDate(rows, weekStart, weekEnd)
	previous := filterByDate(rows, prevStart, prevEnd)

	return &WeeklySummary{
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
		Ranking:   rankLines(current),
		Trending:  trendCategories(current, previous),
	}
}

// DrillDownByLine returns the issue-contributing rows for a production line
// within the current week, sorted by production date descending then
// canonical lot ascending.
func (s *Service) DrillDownByLine(rows []consolidation.ConsolidatedRow, lineName string, anchor time.Time) []DrillDownRow {
	weekStart, weekEnd := WeekBounds(anchor)

	var out []DrillDownRow
	for _, row := range rows {
		if row.ProductionLine != lineName || !row.LineIssue || !inWindow(row.ProductionDate, weekStart, weekEnd) {
			continue
		}
		out = append(out, s.displayRow(row, false))
	}
	sortDrillDown(out)
	return out
}

// DrillDownByCategory returns the affected rows for an issue category.
// The window covers the current week, or previous-start through current-end
// when includePrevious is set for side-by-side analysis.
func (s *Service) DrillDownByCategory(rows []consolidation.ConsolidatedRow, category string, anchor time.Time, includePrevious bool) []DrillDownRow {
	weekStart, weekEnd := WeekBounds(anchor)
	windowStart := weekStart
	if includePrevious {
		windowStart = weekStart.AddDate(0, 0, -s.config.ComparisonPeriodDays)
	}

	var out []DrillDownRow
	for _, row := range rows {
		if !row.LineIssue || !inWindow(row.ProductionDate, windowStart, weekEnd) {
			continue
		}
		if categoryOf(row) != category {
			continue
		}
		out = append(out, s.displayRow(row, true))
	}
	sortDrillDown(out)
	return out
}

// displayRow substitutes the not-found label for an absent shipping status.
// When recomputeShipped is set, IsProblematicButShipped is re-derived from
// the display value.
func (s *Service) displayRow(row consolidation.ConsolidatedRow, recomputeShipped bool) DrillDownRow {
	display := row.ShipStatus
	if display == "" {
		display = s.config.NotFoundShippingLabel
	}
	out := DrillDownRow{
		ConsolidatedRow:       row,
		ShippingStatusDisplay: display,
		LatestShipDateDisplay: row.ShipDate,
	}
	if recomputeShipped {
		out.IsProblematicButShipped = display == "Shipped" || display == "Partial"
	}
	return out
}

// rankLines groups current-window rows by production line and sorts by issue
// count descending, total rows descending, then line name ascending as the
// deterministic tie-break.
func rankLines(rows []consolidation.ConsolidatedRow) []RankingEntry {
	byLine := make(map[string]*RankingEntry)
	lots := make(map[string]map[string]bool)
	for _, row := range rows {
		entry, ok := byLine[row.ProductionLine]
		if !ok {
			entry = &RankingEntry{ProductionLine: row.ProductionLine}
			byLine[row.ProductionLine] = entry
			lots[row.ProductionLine] = make(map[string]bool)
		}
		entry.TotalRows++
		if row.LineIssue {
			entry.IssueCount++
		}
		if row.CanonicalLotID != "" {
			lots[row.ProductionLine][row.CanonicalLotID] = true
		}
	}

	ranking := make([]RankingEntry, 0, len(byLine))
	for line, entry := range byLine {
		entry.UniqueLots = len(lots[line])
		ranking = append(ranking, *entry)
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].IssueCount != ranking[j].IssueCount {
			return ranking[i].IssueCount > ranking[j].IssueCount
		}
		if ranking[i].TotalRows != ranking[j].TotalRows {
			return ranking[i].TotalRows > ranking[j].TotalRows
		}
		return ranking[i].ProductionLine < ranking[j].ProductionLine
	})
	return ranking
}

// trendCategories compares per-category issue counts between the current and
// previous windows; missing group counts default to 0.
func trendCategories(current, previous []consolidation.ConsolidatedRow) []TrendingEntry {
	currentCounts := issueCountsByCategory(current)
	previousCounts := issueCountsByCategory(previous)

	categories := make(map[string]bool)
	for category := range currentCounts {
		categories[category] = true
	}
	for category := range previousCounts {
		categories[category] = true
	}

	trending := make([]TrendingEntry, 0, len(categories))
	for category := range categories {
		entry := TrendingEntry{
			IssueCategory: category,
			CurrentCount:  currentCounts[category],
			PreviousCount: previousCounts[category],
		}
		entry.Delta = entry.CurrentCount - entry.PreviousCount
		switch {
		case entry.Delta > 0:
			entry.Direction = DirectionUp
		case entry.Delta < 0:
			entry.Direction = DirectionDown
		default:
			entry.Direction = DirectionFlat
		}
		trending = append(trending, entry)
	}
	sort.Slice(trending, func(i, j int) bool {
		if trending[i].CurrentCount != trending[j].CurrentCount {
			return trending[i].CurrentCount > trending[j].CurrentCount
		}
		if trending[i].Delta != trending[j].Delta {
			return trending[i].Delta > trending[j].Delta
		}
		return trending[i].IssueCategory < trending[j].IssueCategory
	})
	return trending
}

// issueCountsByCategory counts rows with the line issue flag per category.
func issueCountsByCategory(rows []consolidation.ConsolidatedRow) map[string]int {
	counts := make(map[string]int)
	for _, row := range rows {
		if !row.LineIssue {
			continue
		}
		counts[categoryOf(row)]++
	}
	return counts
}

// categoryOf maps an absent category to the literal "Unspecified".
func categoryOf(row consolidation.ConsolidatedRow) string {
	if row.PrimaryIssue == "" {
		return UnspecifiedCategory
	}
	return row.PrimaryIssue
}

// filterByDate keeps rows whose production date lies within the inclusive
// bounds; rows without a parsed date are excluded.
func filterByDate(rows []consolidation.ConsolidatedRow, start, end time.Time) []consolidation.ConsolidatedRow {
	var out []consolidation.ConsolidatedRow
	for _, row := range rows {
		if inWindow(row.ProductionDate, start, end) {
			out = append(out, row)
		}
	}
	return out
}

// inWindow reports whether the date is within [start, end].
func inWindow(date *time.Time, start, end time.Time) bool {
	if date == nil {
		return false
	}
	return !date.Before(start) && !date.After(end)
}

// sortDrillDown orders rows by production date descending, then canonical
// lot ascending.
func sortDrillDown(rows []DrillDownRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := rows[i].ProductionDate, rows[j].ProductionDate
		switch {
		case di == nil && dj != nil:
			return false
		case di != nil && dj == nil:
			return true
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.After(*dj)
		}
		return rows[i].CanonicalLotID < rows[j].CanonicalLotID
	})
}
