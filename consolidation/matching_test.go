package consolidation

import (
	"reflect"
	"testing"
	"time"
)

func day(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestLatestShippingByLotPicksLatestDate(t *testing.T) {
	shipping := []ShippingRow{
		{CanonicalLotID: "LOT-20260203-001", ShipStatus: "On Hold", ShipDate: day("2026-02-05"), Source: SourceRef{File: "ship.xlsx", Row: 2}},
		{CanonicalLotID: "LOT-20260203-001", ShipStatus: "Partial", ShipDate: day("2026-02-07"), Source: SourceRef{File: "ship.xlsx", Row: 3}},
		{CanonicalLotID: "LOT-20260203-001", ShipStatus: "Shipped", ShipDate: day("2026-02-06"), Source: SourceRef{File: "ship.xlsx", Row: 4}},
	}

	latest := LatestShippingByLot(shipping)
	got, ok := latest["LOT-20260203-001"]
	if !ok {
		t.Fatal("lot missing from latest map")
	}
	if got.ShipStatus != "Partial" {
		t.Errorf("ShipStatus = %q, want Partial (latest ship date)", got.ShipStatus)
	}
}

func TestLatestShippingByLotNilDateNeverWins(t *testing.T) {
	shipping := []ShippingRow{
		{CanonicalLotID: "LOT-20260208-001", ShipStatus: "Shipped", ShipDate: day("2026-02-01"), Source: SourceRef{File: "ship.xlsx", Row: 2}},
		{CanonicalLotID: "LOT-20260208-001", ShipStatus: "On Hold", ShipDate: nil, Source: SourceRef{File: "ship.xlsx", Row: 3}},
	}

	latest := LatestShippingByLot(shipping)
	if got := latest["LOT-20260208-001"].ShipStatus; got != "Shipped" {
		t.Errorf("ShipStatus = %q, want dated row to beat undated one", got)
	}

	// An undated row still stands in when it is the only candidate.
	only := LatestShippingByLot(shipping[1:])
	if got := only["LOT-20260208-001"].ShipStatus; got != "On Hold" {
		t.Errorf("ShipStatus = %q, want the sole undated row kept", got)
	}
}

func TestLatestShippingByLotTieKeepsFirst(t *testing.T) {
	shipping := []ShippingRow{
		{CanonicalLotID: "LOT-20260210-001", ShipStatus: "Shipped", ShipDate: day("2026-02-11"), Source: SourceRef{File: "ship.xlsx", Row: 2}},
		{CanonicalLotID: "LOT-20260210-001", ShipStatus: "Partial", ShipDate: day("2026-02-11"), Source: SourceRef{File: "ship.xlsx", Row: 3}},
	}

	latest := LatestShippingByLot(shipping)
	if got := latest["LOT-20260210-001"].Source.Row; got != 2 {
		t.Errorf("Source.Row = %d, want 2 (tie keeps earliest row)", got)
	}
}

func TestLatestShippingByLotSkipsUnresolvedLots(t *testing.T) {
	shipping := []ShippingRow{
		{CanonicalLotID: "", ShipStatus: "Shipped", ShipDate: day("2026-02-01")},
	}
	if latest := LatestShippingByLot(shipping); len(latest) != 0 {
		t.Errorf("latest map has %d entries, want rows without canonical lot excluded", len(latest))
	}
}

func TestDetectConflictsShipStatusDisagreement(t *testing.T) {
	shipping := []ShippingRow{
		{CanonicalLotID: "LOT-20260203-001", ShipStatus: "On Hold", Source: SourceRef{File: "ship.xlsx", Sheet: "Shipping", Row: 3}},
		{CanonicalLotID: "LOT-20260203-001", ShipStatus: "Partial", Source: SourceRef{File: "ship.xlsx", Sheet: "Shipping", Row: 4}},
	}
	production := []ProductionRow{
		{CanonicalLotID: "LOT-20260203-001", ProductionLine: "Line 2", Source: SourceRef{File: "prod.xlsx", Sheet: "Production", Row: 3}},
	}

	records := DetectConflicts(production, shipping)
	if len(records) != 1 {
		t.Fatalf("got %d conflict records, want 1", len(records))
	}
	record := records[0]
	if record.CanonicalLotID != "LOT-20260203-001" {
		t.Errorf("CanonicalLotID = %q", record.CanonicalLotID)
	}
	if want := []string{"On Hold", "Partial"}; !reflect.DeepEqual(record.ConflictShipStatuses, want) {
		t.Errorf("ConflictShipStatuses = %v, want %v sorted", record.ConflictShipStatuses, want)
	}
	if len(record.ConflictProductionLines) != 1 {
		t.Errorf("ConflictProductionLines = %v, want single line", record.ConflictProductionLines)
	}
	if len(record.ShippingSources) != 2 {
		t.Errorf("ShippingSources = %v, want both source rows", record.ShippingSources)
	}
	if len(record.ProductionSources) != 1 {
		t.Errorf("ProductionSources = %v, want one source row", record.ProductionSources)
	}
}

func TestDetectConflictsProductionLineDisagreement(t *testing.T) {
	production := []ProductionRow{
		{CanonicalLotID: "LOT-20260215-001", ProductionLine: "Line 1", Source: SourceRef{File: "prod.xlsx", Row: 2}},
		{CanonicalLotID: "LOT-20260215-001", ProductionLine: "Line 3", Source: SourceRef{File: "prod.xlsx", Row: 3}},
	}

	records := DetectConflicts(production, nil)
	if len(records) != 1 {
		t.Fatalf("got %d conflict records, want 1", len(records))
	}
	if want := []string{"Line 1", "Line 3"}; !reflect.DeepEqual(records[0].ConflictProductionLines, want) {
		t.Errorf("ConflictProductionLines = %v, want %v", records[0].ConflictProductionLines, want)
	}
}

func TestDetectConflictsIgnoresAgreementAndNulls(t *testing.T) {
	production := []ProductionRow{
		{CanonicalLotID: "LOT-20260220-001", ProductionLine: "Line 1", Source: SourceRef{File: "prod.xlsx", Row: 2}},
		{CanonicalLotID: "LOT-20260220-001", ProductionLine: "Line 1", Source: SourceRef{File: "prod.xlsx", Row: 3}},
		// Empty line is a null attribute, not a second distinct value.
		{CanonicalLotID: "LOT-20260220-001", ProductionLine: "", Source: SourceRef{File: "prod.xlsx", Row: 4}},
		// No canonical lot: never participates.
		{CanonicalLotID: "", ProductionLine: "Line 9", Source: SourceRef{File: "prod.xlsx", Row: 5}},
	}

	if records := DetectConflicts(production, nil); len(records) != 0 {
		t.Errorf("got %d conflict records, want none", len(records))
	}
}

func TestDetectConflictsSortedByLot(t *testing.T) {
	production := []ProductionRow{
		{CanonicalLotID: "LOT-20260302-001", ProductionLine: "Line 1", Source: SourceRef{Row: 2, File: "p"}},
		{CanonicalLotID: "LOT-20260302-001", ProductionLine: "Line 2", Source: SourceRef{Row: 3, File: "p"}},
		{CanonicalLotID: "LOT-20260301-001", ProductionLine: "Line 1", Source: SourceRef{Row: 4, File: "p"}},
		{CanonicalLotID: "LOT-20260301-001", ProductionLine: "Line 2", Source: SourceRef{Row: 5, File: "p"}},
	}

	records := DetectConflicts(production, nil)
	if len(records) != 2 {
		t.Fatalf("got %d conflict records, want 2", len(records))
	}
	if records[0].CanonicalLotID != "LOT-20260301-001" || records[1].CanonicalLotID != "LOT-20260302-001" {
		t.Errorf("records out of order: %s, %s", records[0].CanonicalLotID, records[1].CanonicalLotID)
	}
}
