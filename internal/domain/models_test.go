package domain

import "testing"

func TestIsValidRegion(t *testing.T) {
	for _, r := range ValidRegions {
		if !IsValidRegion(r) {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	for _, r := range []string{"", "HURRY", "calm", "hurry "} {
		if IsValidRegion(r) {
			t.Fatalf("expected %q to be invalid", r)
		}
	}
}

func TestRegionCounts_Mapping(t *testing.T) {
	a := &RegionAnalytics{Hurry: 3, Mindfully: 2, Distracted: 1, TotalSelections: 6}
	got := a.RegionCounts()
	if got[RegionHurry] != 3 || got[RegionMindfully] != 2 || got[RegionDistracted] != 1 {
		t.Fatalf("unexpected counts: %v", got)
	}
	if len(got) != len(ValidRegions) {
		t.Fatalf("counts must cover exactly the closed set, got %v", got)
	}
}

func TestTableNames(t *testing.T) {
	if (QRCode{}).TableName() != "qr_codes" ||
		(ScanEvent{}).TableName() != "scan_events" ||
		(Selection{}).TableName() != "selections" ||
		(RegionAnalytics{}).TableName() != "region_analytics" {
		t.Fatalf("unexpected table name mapping")
	}
}
