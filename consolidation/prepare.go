package consolidation

import (
	"fmt"
	"strconv"
	"strings"

	"opsdashboard/normalization"
)

// Source column aliases accepted per logical field. First present wins;
// absent columns are tolerated, not errors.
var (
	lotAliases            = []string{"raw_lot_id", "lot_id", "lot", "lot_number"}
	lineAliases           = []string{"production_line", "line_name", "line"}
	issueCategoryAliases  = []string{"primary_issue", "issue_category", "defect_category"}
	issueFlagAliases      = []string{"line_issue", "line_issue_flag", "issue"}
	productionDateAliases = []string{"production_date", "run_date", "date"}
	shipStatusAliases     = []string{"ship_status", "shipping_status"}
	shipDateAliases       = []string{"ship_date", "shipping_date", "date"}
	providedLotAliases    = []string{"normalized_lot_id"}
)

// PrepareProduction coalesces raw production rows onto the fixed schema and
// applies date and lot normalization row-wise. Row-level defects are captured
// as flags and reasons, never returned as errors; the only error is a row
// missing its loader-supplied source annotation.
func PrepareProduction(raw []RawRow) ([]ProductionRow, error) {
	prepared := make([]ProductionRow, 0, len(raw))
	for i, row := range raw {
		src, err := sourceRef(row, i)
		if err != nil {
			return nil, fmt.Errorf("production: %w", err)
		}

		out := ProductionRow{
			Source:         src,
			RawLotID:       stringValue(coalesce(row, lotAliases...)),
			ProductionLine: stringValue(coalesce(row, lineAliases...)),
			PrimaryIssue:   stringValue(coalesce(row, issueCategoryAliases...)),
			LineIssue:      normalization.TruthyFlag(coalesce(row, issueFlagAliases...)),
		}

		if parsed, ok, reason := normalization.ParseDate(coalesce(row, productionDateAliases...)); ok {
			date := parsed
			out.ProductionDate = &date
		} else {
			out.DateErrorReason = reason
		}

		lot := normalization.NormalizeLotID(coalesce(row, lotAliases...))
		out.CanonicalLotID = lot.CanonicalLotID
		out.LotStatus = lot.Status
		out.LotErrorReason = lot.Reason

		out.NeedsReview = out.DateErrorReason != "" || out.LotStatus != normalization.LotStatusOK
		out.ReviewReason = out.DateErrorReason + out.LotErrorReason
		applyProvidedLotCheck(row, out.CanonicalLotID, &out.NeedsReview, &out.ReviewReason)

		prepared = append(prepared, out)
	}
	return prepared, nil
}

// PrepareShipping coalesces raw shipping rows onto the fixed schema and
// applies date and lot normalization row-wise. A missing shipping status
// defaults to "On Hold".
func PrepareShipping(raw []RawRow) ([]ShippingRow, error) {
	prepared := make([]ShippingRow, 0, len(raw))
	for i, row := range raw {
		src, err := sourceRef(row, i)
		if err != nil {
			return nil, fmt.Errorf("shipping: %w", err)
		}

		out := ShippingRow{
			Source:     src,
			RawLotID:   stringValue(coalesce(row, lotAliases...)),
			ShipStatus: stringValue(coalesce(row, shipStatusAliases...)),
		}
		if strings.TrimSpace(out.ShipStatus) == "" {
			out.ShipStatus = DefaultShipStatus
		}

		if parsed, ok, reason := normalization.ParseDate(coalesce(row, shipDateAliases...)); ok {
			date := parsed
			out.ShipDate = &date
		} else {
			out.DateErrorReason = reason
		}

		lot := normalization.NormalizeLotID(coalesce(row, lotAliases...))
		out.CanonicalLotID = lot.CanonicalLotID
		out.LotStatus = lot.Status
		out.LotErrorReason = lot.Reason

		out.NeedsReview = out.DateErrorReason != "" || out.LotStatus != normalization.LotStatusOK
		out.ReviewReason = out.DateErrorReason + out.LotErrorReason
		applyProvidedLotCheck(row, out.CanonicalLotID, &out.NeedsReview, &out.ReviewReason)

		prepared = append(prepared, out)
	}
	return prepared, nil
}

// applyProvidedLotCheck flags rows whose already-normalized lot value, once
// independently normalized, disagrees with the canonical lot computed from
// the raw identifier. The ambiguity message overwrites any prior reason.
func applyProvidedLotCheck(row RawRow, canonical string, needsReview *bool, reviewReason *string) {
	provided := coalesce(row, providedLotAliases...)
	if provided == nil || canonical == "" {
		return
	}
	providedLot := normalization.NormalizeLotID(provided)
	if providedLot.CanonicalLotID == "" || providedLot.CanonicalLotID == canonical {
		return
	}
	*needsReview = true
	*reviewReason = ReasonAmbiguousLot
}

// coalesce returns the value of the first candidate column present in the
// row, even when that cell is null. Absent columns yield nil rather than an
// error.
func coalesce(row RawRow, candidates ...string) any {
	for _, name := range candidates {
		if value, ok := row[name]; ok {
			return value
		}
	}
	return nil
}

// sourceRef extracts the loader-supplied source annotation. A missing or
// malformed annotation means a broken collaborator, which fails fast rather
// than silently producing wrong joins.
func sourceRef(row RawRow, index int) (SourceRef, error) {
	file := stringValue(row[ColumnSourceFile])
	if strings.TrimSpace(file) == "" {
		return SourceRef{}, fmt.Errorf("raw row %d: missing %s annotation", index, ColumnSourceFile)
	}
	num, ok := intValue(row[ColumnSourceRow])
	if !ok || num < 1 {
		return SourceRef{}, fmt.Errorf("raw row %d: missing or invalid %s annotation", index, ColumnSourceRow)
	}
	return SourceRef{
		File:  file,
		Sheet: stringValue(row[ColumnSourceSheet]),
		Row:   num,
	}, nil
}

// stringValue renders a scalar as a string; nil becomes "".
func stringValue(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}

// intValue converts common scalar representations of an integer.
func intValue(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
