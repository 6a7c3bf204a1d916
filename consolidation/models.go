package consolidation

import (
	"time"
)

// Column names reserved for loader-supplied source annotations.
const (
	ColumnSourceFile  = "source_file"
	ColumnSourceSheet = "source_sheet"
	ColumnSourceRow   = "source_row"
)

// Shipping match statuses on consolidated rows.
const (
	MatchStatusMatched   = "matched"
	MatchStatusUnmatched = "unmatched"
)

// DefaultShipStatus is assumed when a shipping row carries no status.
const DefaultShipStatus = "On Hold"

// ReasonAmbiguousLot overwrites any prior review reason: a disagreement
// between two authoritative-looking lot values outranks a single malformed
// field.
const ReasonAmbiguousLot = "Ambiguous lot match: provided normalized_lot_id conflicts with raw lot normalization"

// ReasonNoShippingMatch is the default review reason for unmatched rows.
// It never overrides an existing non-empty reason.
const ReasonNoShippingMatch = "No matching shipping lot found"

// shippedStatuses are the shipping states that count as "left the plant".
var shippedStatuses = map[string]bool{
	"Shipped": true,
	"Partial": true,
}

// RawRow is an open-ended mapping of column name to scalar value, as handed
// over by the upstream loader. The loader also annotates every row with
// source_file, source_sheet and source_row (1-based, header counted as row 1).
type RawRow map[string]any

// SourceRef identifies the spreadsheet origin of a single row.
type SourceRef struct {
	File  string `json:"source_file"`
	Sheet string `json:"source_sheet"`
	Row   int    `json:"source_row"`
}

// ProductionRow is a production record coalesced onto the fixed schema and
// enriched with normalization outcomes.
type ProductionRow struct {
	Source          SourceRef  `json:"source"`
	RawLotID        string     `json:"raw_lot_id"`
	CanonicalLotID  string     `json:"canonical_lot_id,omitempty"`
	LotStatus       string     `json:"lot_normalization_status"`
	LotErrorReason  string     `json:"lot_error_reason,omitempty"`
	ProductionDate  *time.Time `json:"production_date,omitempty"`
	DateErrorReason string     `json:"date_error_reason,omitempty"`
	ProductionLine  string     `json:"production_line,omitempty"`
	PrimaryIssue    string     `json:"primary_issue,omitempty"`
	LineIssue       bool       `json:"line_issue"`
	NeedsReview     bool       `json:"needs_review"`
	ReviewReason    string     `json:"review_reason,omitempty"`
}

// ShippingRow is a shipping record coalesced onto the fixed schema and
// enriched with normalization outcomes.
type ShippingRow struct {
	Source          SourceRef  `json:"source"`
	RawLotID        string     `json:"raw_lot_id"`
	CanonicalLotID  string     `json:"canonical_lot_id,omitempty"`
	LotStatus       string     `json:"lot_normalization_status"`
	LotErrorReason  string     `json:"lot_error_reason,omitempty"`
	ShipDate        *time.Time `json:"ship_date,omitempty"`
	DateErrorReason string     `json:"date_error_reason,omitempty"`
	ShipStatus      string     `json:"ship_status"`
	NeedsReview     bool       `json:"needs_review"`
	ReviewReason    string     `json:"review_reason,omitempty"`
}

// ConsolidatedRow is one production row left-joined to at most one shipping
// row (the latest by ship date for its canonical lot). Built once per
// consolidation run and immutable afterwards.
type ConsolidatedRow struct {
	Source          SourceRef  `json:"source"`
	RawLotID        string     `json:"raw_lot_id"`
	CanonicalLotID  string     `json:"canonical_lot_id,omitempty"`
	LotStatus       string     `json:"lot_normalization_status"`
	LotErrorReason  string     `json:"lot_error_reason,omitempty"`
	ProductionDate  *time.Time `json:"production_date,omitempty"`
	DateErrorReason string     `json:"date_error_reason,omitempty"`
	ProductionLine  string     `json:"production_line,omitempty"`
	PrimaryIssue    string     `json:"primary_issue,omitempty"`
	LineIssue       bool       `json:"line_issue"`

	ShipStatus          string     `json:"ship_status,omitempty"`
	ShipDate            *time.Time `json:"ship_date,omitempty"`
	ShippingSource      *SourceRef `json:"shipping_source,omitempty"`
	ShippingRawLotID    string     `json:"shipping_raw_lot_id,omitempty"`
	ShippingMatchStatus string     `json:"shipping_match_status"`

	NeedsReview             bool     `json:"needs_review"`
	ReviewReason            string   `json:"review_reason,omitempty"`
	IsProblematicButShipped bool     `json:"is_problematic_but_shipped"`
	HasConflict             bool     `json:"has_conflict"`
	RawLotAliases           []string `json:"raw_lot_aliases,omitempty"`
}

// ConflictRecord reports one canonical lot whose source rows disagree on a
// key attribute. The competing values and originating rows are kept for
// drill-through, not for automatic correction.
type ConflictRecord struct {
	CanonicalLotID          string      `json:"canonical_lot_id"`
	ConflictProductionLines []string    `json:"conflict_production_lines"`
	ConflictShipStatuses    []string    `json:"conflict_ship_statuses"`
	ProductionSources       []SourceRef `json:"production_sources"`
	ShippingSources         []SourceRef `json:"shipping_sources"`
}

// Result bundles the output tables of one consolidation run.
type Result struct {
	Production   []ProductionRow   `json:"production"`
	Shipping     []ShippingRow     `json:"shipping"`
	Consolidated []ConsolidatedRow `json:"consolidated"`
	FlaggedRows  []ConsolidatedRow `json:"flagged_rows"`
	ConflictRows []ConflictRecord  `json:"conflict_rows"`
}
