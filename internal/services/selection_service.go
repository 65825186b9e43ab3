package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/digilateral/qr-track-backend/internal/domain"
	"github.com/digilateral/qr-track-backend/internal/repo"
)

// localTimeLayout is the display format used for the stored local timestamp.
const localTimeLayout = "02/01/2006, 15:04:05"

// RegionAggregator is the slice of analytics behaviour SelectionService
// depends on: incrementing a region counter after a qualifying selection.
// AnalyticsService satisfies it.
type RegionAggregator interface {
	Increment(ctx context.Context, qrID, region string) (*RegionSummary, error)
}

// SelectionService stores per-device selections and forwards qualifying
// region labels to the aggregator.
type SelectionService struct {
	DB *gorm.DB
	// Aggregator receives qualifying region selections. A nil aggregator
	// disables forwarding.
	Aggregator RegionAggregator
	// Location is the timezone used for the display-formatted local
	// timestamp stored alongside the UTC one.
	Location *time.Location

	// now is swapped in tests for deterministic timestamps.
	now func() time.Time
}

// NewSelectionService constructs a SelectionService. loc may be nil, in which
// case UTC is used for local timestamp formatting.
func NewSelectionService(db *gorm.DB, agg RegionAggregator, loc *time.Location) *SelectionService {
	if loc == nil {
		loc = time.UTC
	}
	return &SelectionService{
		DB:         db,
		Aggregator: agg,
		Location:   loc,
		now:        time.Now,
	}
}

// SelectionInput carries one selection submission. DeviceID may be empty when
// the device could not be identified; such submissions still upsert under the
// empty identity.
type SelectionInput struct {
	DeviceID  string
	QRID      string
	Selection string
	CoordX    *float64
	CoordY    *float64
	IPAddress string
}

// StoreResult reports the stored selection row and whether the region
// aggregator was updated for it.
type StoreResult struct {
	Selection     *domain.Selection `json:"selection"`
	RegionUpdated bool              `json:"regionUpdated"`
}

// Store upserts the selection for (device, code): a repeat submission for the
// same pair fully replaces the previous attribute values. When the selection
// label belongs to the closed region set, the aggregator counter is also
// incremented; an aggregator failure is logged and reported via RegionUpdated
// without failing the stored selection.
func (s *SelectionService) Store(ctx context.Context, in SelectionInput) (*StoreResult, error) {
	in.QRID = strings.TrimSpace(in.QRID)
	in.Selection = strings.TrimSpace(in.Selection)
	if in.QRID == "" || in.Selection == "" {
		return nil, ErrMissingSelectionFields
	}

	ip := strings.TrimSpace(in.IPAddress)
	if ip == "" {
		ip = "unknown"
	}
	now := s.now().UTC()

	sel := &domain.Selection{
		ID:        uuid.NewString(),
		DeviceID:  in.DeviceID,
		QRID:      in.QRID,
		Selection: in.Selection,
		CoordX:    in.CoordX,
		CoordY:    in.CoordY,
		IPAddress: ip,
		Timestamp: now,
		LocalTime: now.In(s.Location).Format(localTimeLayout),
	}
	stored, err := repo.UpsertSelection(ctx, s.DB, sel)
	if err != nil {
		return nil, err
	}

	res := &StoreResult{Selection: stored}
	if s.Aggregator != nil && domain.IsValidRegion(in.Selection) {
		if _, err := s.Aggregator.Increment(ctx, in.QRID, in.Selection); err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("qr_id", in.QRID).
				Str("region", in.Selection).
				Msg("region aggregation failed after selection store")
		} else {
			res.RegionUpdated = true
		}
	}
	return res, nil
}

// Get returns the current selection for (device, code), or
// ErrSelectionNotFound if the pair has never selected.
func (s *SelectionService) Get(ctx context.Context, deviceID, qrID string) (*domain.Selection, error) {
	sel, err := repo.GetSelection(ctx, s.DB, deviceID, qrID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSelectionNotFound
		}
		return nil, err
	}
	return sel, nil
}
