package consolidation

import (
	"sort"
	"time"
)

// LatestShippingByLot selects, per canonical lot, the single shipping row
// with the latest parsed ship date. Rows with no parsed date rank lowest;
// ties keep the earliest row in original order. Rows without a resolvable
// canonical lot are excluded entirely — they never become join targets.
func LatestShippingByLot(shipping []ShippingRow) map[string]ShippingRow {
	latest := make(map[string]ShippingRow)
	for _, row := range shipping {
		if row.CanonicalLotID == "" {
			continue
		}
		best, ok := latest[row.CanonicalLotID]
		if !ok {
			latest[row.CanonicalLotID] = row
			continue
		}
		if shipDateAfter(row.ShipDate, best.ShipDate) {
			latest[row.CanonicalLotID] = row
		}
	}
	return latest
}

// shipDateAfter reports whether a is strictly later than b; a missing date
// never wins.
func shipDateAfter(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}

// DetectConflicts finds canonical lots whose source rows disagree on a key
// attribute: more than one distinct non-null production line, or more than
// one distinct non-null shipping status. It runs over ALL prepared rows of
// both tables, independently of the join, so conflict reporting cannot be
// masked by latest-shipping selection. Rows without a canonical lot never
// participate. Output is sorted by canonical lot ID.
func DetectConflicts(production []ProductionRow, shipping []ShippingRow) []ConflictRecord {
	prodByLot := make(map[string][]ProductionRow)
	for _, row := range production {
		if row.CanonicalLotID == "" {
			continue
		}
		prodByLot[row.CanonicalLotID] = append(prodByLot[row.CanonicalLotID], row)
	}

	shipByLot := make(map[string][]ShippingRow)
	for _, row := range shipping {
		if row.CanonicalLotID == "" {
			continue
		}
		shipByLot[row.CanonicalLotID] = append(shipByLot[row.CanonicalLotID], row)
	}

	lots := make([]string, 0, len(prodByLot)+len(shipByLot))
	seen := make(map[string]bool)
	for lot := range prodByLot {
		if !seen[lot] {
			seen[lot] = true
			lots = append(lots, lot)
		}
	}
	for lot := range shipByLot {
		if !seen[lot] {
			seen[lot] = true
			lots = append(lots, lot)
		}
	}
	sort.Strings(lots)

	var records []ConflictRecord
	for _, lot := range lots {
		prodRows := prodByLot[lot]
		shipRows := shipByLot[lot]

		lines := distinctStrings(prodRows, func(r ProductionRow) string { return r.ProductionLine })
		statuses := distinctStrings(shipRows, func(r ShippingRow) string { return r.ShipStatus })
		if len(lines) <= 1 && len(statuses) <= 1 {
			continue
		}

		records = append(records, ConflictRecord{
			CanonicalLotID:          lot,
			ConflictProductionLines: lines,
			ConflictShipStatuses:    statuses,
			ProductionSources:       distinctSources(prodRows, func(r ProductionRow) SourceRef { return r.Source }),
			ShippingSources:         distinctSources(shipRows, func(r ShippingRow) SourceRef { return r.Source }),
		})
	}
	return records
}

// distinctStrings collects sorted distinct non-empty attribute values.
func distinctStrings[T any](rows []T, attr func(T) string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, row := range rows {
		value := attr(row)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}

// distinctSources deduplicates source references preserving input order.
func distinctSources[T any](rows []T, src func(T) SourceRef) []SourceRef {
	seen := make(map[SourceRef]bool)
	var refs []SourceRef
	for _, row := range rows {
		ref := src(row)
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}
