package consolidation

import (
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// productionFixture mirrors a small messy production log: mixed lot
// spellings, mixed date formats and one row that fails both normalizers.
func productionFixture() []RawRow {
	return []RawRow{
		{
			"production_date": "2026-02-02", "production_line": "Line 1",
			"raw_lot_id": " LOT_20260202-001 ", "line_issue": "Yes", "primary_issue": "Tool wear",
			"source_file": "prod.xlsx", "source_sheet": "Production", "source_row": 2,
		},
		{
			"production_date": "02/03/2026", "production_line": "Line 2",
			"raw_lot_id": "L0T-20260203-001", "line_issue": "No", "primary_issue": nil,
			"source_file": "prod.xlsx", "source_sheet": "Production", "source_row": 3,
		},
		{
			"production_date": "2026/02/04", "production_line": "Line 1",
			"raw_lot_id": "LOT20260204001", "line_issue": "1", "primary_issue": "Sensor fault",
			"source_file": "prod.xlsx", "source_sheet": "Production", "source_row": 4,
		},
		{
			"production_date": "bad-date", "production_line": "Line 3",
			"raw_lot_id": "BADLOT", "line_issue": "Yes", "primary_issue": "Material shortage",
			"source_file": "prod.xlsx", "source_sheet": "Production", "source_row": 5,
		},
	}
}

func shippingFixture() []RawRow {
	return []RawRow{
		{
			"ship_date": "2026-02-05", "raw_lot_id": "LOT-20260202-001", "ship_status": "Shipped",
			"source_file": "ship.xlsx", "source_sheet": "Shipping", "source_row": 2,
		},
		{
			"ship_date": "2026-02-06", "raw_lot_id": "LOT-20260203-001", "ship_status": "On Hold",
			"source_file": "ship.xlsx", "source_sheet": "Shipping", "source_row": 3,
		},
		{
			"ship_date": "2026-02-07", "raw_lot_id": "LOT-20260203-001", "ship_status": "Partial",
			"source_file": "ship.xlsx", "source_sheet": "Shipping", "source_row": 4,
		},
		{
			"ship_date": "not-a-date", "raw_lot_id": "LOT-20260208-001", "ship_status": "Shipped",
			"source_file": "ship.xlsx", "source_sheet": "Shipping", "source_row": 5,
		},
	}
}

func TestConsolidateJoinsLatestShipping(t *testing.T) {
	result, err := Consolidate(productionFixture(), shippingFixture(), false)
	require.NoError(t, err)

	require.Len(t, result.Consolidated, 2)
	require.Len(t, result.FlaggedRows, 2)
	require.Len(t, result.ConflictRows, 1)

	byLot := make(map[string]ConsolidatedRow)
	for _, row := range result.Consolidated {
		byLot[row.CanonicalLotID] = row
	}

	first := byLot["LOT-20260202-001"]
	assert.Equal(t, MatchStatusMatched, first.ShippingMatchStatus)
	assert.Equal(t, "Shipped", first.ShipStatus)
	require.NotNil(t, first.ShipDate)
	assert.Equal(t, "2026-02-05", first.ShipDate.Format("2006-01-02"))
	require.NotNil(t, first.ShippingSource)
	assert.Equal(t, 2, first.ShippingSource.Row)
	assert.True(t, first.IsProblematicButShipped, "line issue + Shipped must be problematic-but-shipped")
	assert.False(t, first.HasConflict)
	assert.Equal(t, []string{" LOT_20260202-001 ", "LOT-20260202-001"}, first.RawLotAliases)

	// Second lot has two shipping rows; the later one (Partial) wins the
	// join while the disagreement is still reported as a conflict.
	second := byLot["LOT-20260203-001"]
	assert.Equal(t, "Partial", second.ShipStatus)
	require.NotNil(t, second.ShipDate)
	assert.Equal(t, "2026-02-07", second.ShipDate.Format("2006-01-02"))
	assert.True(t, second.HasConflict)
	assert.False(t, second.IsProblematicButShipped, "no line issue means never problematic-but-shipped")
}

func TestConsolidateFlagsUnmatchedAndDefective(t *testing.T) {
	result, err := Consolidate(productionFixture(), shippingFixture(), false)
	require.NoError(t, err)

	byRow := make(map[int]ConsolidatedRow)
	for _, row := range result.FlaggedRows {
		byRow[row.Source.Row] = row
	}

	unmatched, ok := byRow[4]
	require.True(t, ok, "row 4 (no shipping match) must be flagged")
	assert.Equal(t, MatchStatusUnmatched, unmatched.ShippingMatchStatus)
	assert.Equal(t, ReasonNoShippingMatch, unmatched.ReviewReason)
	assert.Empty(t, unmatched.ShipStatus)
	assert.Nil(t, unmatched.ShipDate)

	defective, ok := byRow[5]
	require.True(t, ok, "row 5 (bad date and lot) must be flagged")
	assert.Contains(t, defective.ReviewReason, "Unparseable date value")
	assert.Contains(t, defective.ReviewReason, "does not match expected pattern")
	// Normalization defects keep their own reason; the missing-match
	// default never overwrites it.
	assert.NotEqual(t, ReasonNoShippingMatch, defective.ReviewReason)
}

func TestConsolidateConflictRecord(t *testing.T) {
	result, err := Consolidate(productionFixture(), shippingFixture(), false)
	require.NoError(t, err)

	require.Len(t, result.ConflictRows, 1)
	record := result.ConflictRows[0]
	assert.Equal(t, "LOT-20260203-001", record.CanonicalLotID)
	assert.Equal(t, []string{"On Hold", "Partial"}, record.ConflictShipStatuses)
	assert.Len(t, record.ShippingSources, 2)
}

func TestConsolidateIncludeFlagged(t *testing.T) {
	excluded, err := Consolidate(productionFixture(), shippingFixture(), false)
	require.NoError(t, err)
	included, err := Consolidate(productionFixture(), shippingFixture(), true)
	require.NoError(t, err)

	// FlaggedRows is the same either way; the toggle only widens the
	// consolidated table.
	assert.Equal(t, excluded.FlaggedRows, included.FlaggedRows)
	assert.Len(t, included.Consolidated, len(productionFixture()))
	assert.Equal(t, len(included.Consolidated),
		len(excluded.Consolidated)+len(excluded.FlaggedRows))
}

func TestConsolidateEmptyInputs(t *testing.T) {
	result, err := Consolidate(nil, nil, false)
	require.NoError(t, err)
	assert.Empty(t, result.Consolidated)
	assert.Empty(t, result.FlaggedRows)
	assert.Empty(t, result.ConflictRows)
}

// TestConsolidateDeterministic generates a large randomized dataset and
// checks that two runs over the same inputs produce identical tables.
func TestConsolidateDeterministic(t *testing.T) {
	faker := gofakeit.New(42)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	lines := []string{"Line 1", "Line 2", "Line 3"}
	issues := []string{"Tool wear", "Sensor fault", "Material shortage", ""}
	statuses := []string{"Shipped", "Partial", "On Hold", ""}
	spellings := []string{"LOT-%s-%03d", "LOT_%s_%03d", "lot %s %03d", "L0T-%s-%03d", "JUNK-%s-%03d"}

	var production []RawRow
	for i := 0; i < 150; i++ {
		date := faker.DateRange(start, end)
		lot := fmt.Sprintf(faker.RandomString(spellings), date.Format("20060102"), faker.Number(1, 20))
		production = append(production, RawRow{
			"production_date": date.Format("2006-01-02"),
			"production_line": faker.RandomString(lines),
			"raw_lot_id":      lot,
			"line_issue":      faker.Bool(),
			"primary_issue":   faker.RandomString(issues),
			"source_file":     "prod.xlsx",
			"source_sheet":    "Production",
			"source_row":      i + 2,
		})
	}

	var shipping []RawRow
	for i := 0; i < 120; i++ {
		date := faker.DateRange(start, end)
		lot := fmt.Sprintf(faker.RandomString(spellings), date.Format("20060102"), faker.Number(1, 20))
		shipping = append(shipping, RawRow{
			"ship_date":    date.Format("2006-01-02"),
			"raw_lot_id":   lot,
			"ship_status":  faker.RandomString(statuses),
			"source_file":  "ship.xlsx",
			"source_sheet": "Shipping",
			"source_row":   i + 2,
		})
	}

	first, err := Consolidate(production, shipping, true)
	require.NoError(t, err)
	second, err := Consolidate(production, shipping, true)
	require.NoError(t, err)

	assert.Equal(t, first.Consolidated, second.Consolidated)
	assert.Equal(t, first.FlaggedRows, second.FlaggedRows)
	assert.Equal(t, first.ConflictRows, second.ConflictRows)
}
