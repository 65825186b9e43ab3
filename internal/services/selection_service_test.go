package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/digilateral/qr-track-backend/internal/domain"
)

// ----- Fake aggregator -----

type fakeAggregator struct {
	calls   []string // "qrID/region"
	err     error
	summary *RegionSummary
}

func (f *fakeAggregator) Increment(ctx context.Context, qrID, region string) (*RegionSummary, error) {
	f.calls = append(f.calls, qrID+"/"+region)
	if f.err != nil {
		return nil, f.err
	}
	return f.summary, nil
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
}

func newTestSelectionService(t *testing.T, agg RegionAggregator) (*SelectionService, *fakeAggregator) {
	t.Helper()
	db := newServiceDB(t, &domain.Selection{})
	var fa *fakeAggregator
	if agg == nil {
		fa = &fakeAggregator{}
		agg = fa
	}
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	s := NewSelectionService(db, agg, loc)
	s.now = fixedNow
	return s, fa
}

// ----- Tests -----

func TestSelectionStore_MissingFields(t *testing.T) {
	s, _ := newTestSelectionService(t, nil)

	cases := []SelectionInput{
		{DeviceID: "d1", QRID: "", Selection: "hurry"},
		{DeviceID: "d1", QRID: "X1Y2Z3", Selection: "  "},
	}
	for _, in := range cases {
		if _, err := s.Store(context.Background(), in); !errors.Is(err, ErrMissingSelectionFields) {
			t.Fatalf("input %+v: expected ErrMissingSelectionFields, got %v", in, err)
		}
	}
}

func TestSelectionStore_RecordsLocalAndUTCTimestamps(t *testing.T) {
	s, _ := newTestSelectionService(t, nil)

	res, err := s.Store(context.Background(), SelectionInput{
		DeviceID:  "dev-1",
		QRID:      "X1Y2Z3",
		Selection: "window seat",
		IPAddress: "10.1.2.3",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	sel := res.Selection
	if !sel.Timestamp.Equal(fixedNow()) {
		t.Fatalf("Timestamp = %v; want fixed UTC now", sel.Timestamp)
	}
	// 10:30 UTC is 16:00 IST
	if sel.LocalTime != "15/03/2024, 16:00:00" {
		t.Fatalf("LocalTime = %q", sel.LocalTime)
	}
	if res.RegionUpdated {
		t.Fatalf("non-region selection must not update aggregator")
	}
}

func TestSelectionStore_BlankIPDefaultsUnknown(t *testing.T) {
	s, _ := newTestSelectionService(t, nil)

	res, err := s.Store(context.Background(), SelectionInput{
		DeviceID: "dev-1", QRID: "X1Y2Z3", Selection: "hurry",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if res.Selection.IPAddress != "unknown" {
		t.Fatalf("ip = %q; want unknown", res.Selection.IPAddress)
	}
}

func TestSelectionStore_RegionForwardedToAggregator(t *testing.T) {
	s, fa := newTestSelectionService(t, nil)

	res, err := s.Store(context.Background(), SelectionInput{
		DeviceID: "dev-1", QRID: "X1Y2Z3", Selection: "mindfully",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !res.RegionUpdated {
		t.Fatalf("expected RegionUpdated for region selection")
	}
	if len(fa.calls) != 1 || fa.calls[0] != "X1Y2Z3/mindfully" {
		t.Fatalf("aggregator calls = %v", fa.calls)
	}
}

func TestSelectionStore_AggregatorFailureDoesNotFailStore(t *testing.T) {
	fa := &fakeAggregator{err: errors.New("analytics down")}
	s, _ := newTestSelectionService(t, fa)

	res, err := s.Store(context.Background(), SelectionInput{
		DeviceID: "dev-1", QRID: "X1Y2Z3", Selection: "hurry",
	})
	if err != nil {
		t.Fatalf("Store must survive aggregator failure: %v", err)
	}
	if res.RegionUpdated {
		t.Fatalf("RegionUpdated must be false after aggregator failure")
	}
	if res.Selection == nil || res.Selection.Selection != "hurry" {
		t.Fatalf("selection not stored: %+v", res.Selection)
	}
}

func TestSelectionStore_RepeatReplacesPrevious(t *testing.T) {
	s, _ := newTestSelectionService(t, nil)

	x1 := 1.5
	first, err := s.Store(context.Background(), SelectionInput{
		DeviceID: "dev-1", QRID: "X1Y2Z3", Selection: "hurry", CoordX: &x1,
	})
	if err != nil {
		t.Fatalf("first Store: %v", err)
	}

	second, err := s.Store(context.Background(), SelectionInput{
		DeviceID: "dev-1", QRID: "X1Y2Z3", Selection: "distracted",
	})
	if err != nil {
		t.Fatalf("second Store: %v", err)
	}
	if second.Selection.ID != first.Selection.ID {
		t.Fatalf("replace must keep original row identity: %q vs %q",
			second.Selection.ID, first.Selection.ID)
	}
	if second.Selection.Selection != "distracted" {
		t.Fatalf("selection = %q", second.Selection.Selection)
	}
	if second.Selection.CoordX != nil {
		t.Fatalf("coords must be overwritten, not merged")
	}
}

func TestSelectionStore_EmptyDeviceIdentityStillUpserts(t *testing.T) {
	s, _ := newTestSelectionService(t, nil)

	first, err := s.Store(context.Background(), SelectionInput{
		QRID: "X1Y2Z3", Selection: "hurry",
	})
	if err != nil {
		t.Fatalf("anonymous Store: %v", err)
	}
	second, err := s.Store(context.Background(), SelectionInput{
		QRID: "X1Y2Z3", Selection: "mindfully",
	})
	if err != nil {
		t.Fatalf("anonymous repeat Store: %v", err)
	}
	// all unidentified devices share the empty identity row per code
	if second.Selection.ID != first.Selection.ID {
		t.Fatalf("anonymous selections must share one row per code")
	}
}

func TestSelectionGet_FoundAndNotFound(t *testing.T) {
	s, _ := newTestSelectionService(t, nil)

	if _, err := s.Get(context.Background(), "dev-1", "X1Y2Z3"); !errors.Is(err, ErrSelectionNotFound) {
		t.Fatalf("expected ErrSelectionNotFound, got %v", err)
	}

	if _, err := s.Store(context.Background(), SelectionInput{
		DeviceID: "dev-1", QRID: "X1Y2Z3", Selection: "hurry",
	}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := s.Get(context.Background(), "dev-1", "X1Y2Z3")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Selection != "hurry" {
		t.Fatalf("Get returned %q", got.Selection)
	}
}
