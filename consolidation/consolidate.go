package consolidation

import (
	"log"
	"sort"
)

// Consolidate merges raw production and shipping logs into reporting-ready
// tables: it prepares both datasets, left-joins production rows to the latest
// shipping record per canonical lot, finalizes review flags, detects
// cross-source conflicts and collects raw lot alias evidence.
//
// FlaggedRows always holds every row with NeedsReview set; Consolidated
// excludes those rows unless includeFlagged is true. The function is a pure
// transformation of its inputs — re-running with identical inputs yields
// identical output tables.
func Consolidate(productionRaw, shippingRaw []RawRow, includeFlagged bool) (*Result, error) {
	production, err := PrepareProduction(productionRaw)
	if err != nil {
		return nil, err
	}
	shipping, err := PrepareShipping(shippingRaw)
	if err != nil {
		return nil, err
	}

	latest := LatestShippingByLot(shipping)
	conflicts := DetectConflicts(production, shipping)

	conflictLots := make(map[string]bool, len(conflicts))
	for _, record := range conflicts {
		conflictLots[record.CanonicalLotID] = true
	}

	aliases := collectAliases(production, shipping)

	all := make([]ConsolidatedRow, 0, len(production))
	for _, p := range production {
		row := ConsolidatedRow{
			Source:          p.Source,
			RawLotID:        p.RawLotID,
			CanonicalLotID:  p.CanonicalLotID,
			LotStatus:       p.LotStatus,
			LotErrorReason:  p.LotErrorReason,
			ProductionDate:  p.ProductionDate,
			DateErrorReason: p.DateErrorReason,
			ProductionLine:  p.ProductionLine,
			PrimaryIssue:    p.PrimaryIssue,
			LineIssue:       p.LineIssue,
			NeedsReview:     p.NeedsReview,
			ReviewReason:    p.ReviewReason,
		}

		if match, ok := latest[p.CanonicalLotID]; ok && p.CanonicalLotID != "" {
			shippingSource := match.Source
			row.ShipStatus = match.ShipStatus
			row.ShipDate = match.ShipDate
			row.ShippingSource = &shippingSource
			row.ShippingRawLotID = match.RawLotID
			row.ShippingMatchStatus = MatchStatusMatched
		} else {
			// Missing shipping matches are review-worthy for
			// cross-file reconciliation.
			row.ShippingMatchStatus = MatchStatusUnmatched
			row.NeedsReview = true
			if row.ReviewReason == "" {
				row.ReviewReason = ReasonNoShippingMatch
			}
		}

		row.IsProblematicButShipped = row.LineIssue && shippedStatuses[row.ShipStatus]
		row.HasConflict = conflictLots[row.CanonicalLotID]
		row.RawLotAliases = aliases[row.CanonicalLotID]

		all = append(all, row)
	}

	result := &Result{
		Production:   production,
		Shipping:     shipping,
		ConflictRows: conflicts,
	}
	for _, row := range all {
		if row.NeedsReview {
			result.FlaggedRows = append(result.FlaggedRows, row)
			if !includeFlagged {
				continue
			}
		}
		result.Consolidated = append(result.Consolidated, row)
	}

	log.Printf("Consolidated %d production rows: %d accepted, %d flagged, %d conflicts",
		len(production), len(result.Consolidated), len(result.FlaggedRows), len(conflicts))

	return result, nil
}

// collectAliases builds the evidence map of every raw lot spelling observed
// per canonical lot, across both prepared tables.
func collectAliases(production []ProductionRow, shipping []ShippingRow) map[string][]string {
	seen := make(map[string]map[string]bool)
	add := func(lot, raw string) {
		if lot == "" {
			return
		}
		if seen[lot] == nil {
			seen[lot] = make(map[string]bool)
		}
		seen[lot][raw] = true
	}
	for _, row := range production {
		add(row.CanonicalLotID, row.RawLotID)
	}
	for _, row := range shipping {
		add(row.CanonicalLotID, row.RawLotID)
	}

	aliases := make(map[string][]string, len(seen))
	for lot, raws := range seen {
		values := make([]string, 0, len(raws))
		for raw := range raws {
			values = append(values, raw)
		}
		sort.Strings(values)
		aliases[lot] = values
	}
	return aliases
}
