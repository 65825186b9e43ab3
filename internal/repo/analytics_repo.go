// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// RegionAnalytics model.
//
// The increment path is the one correctness-sensitive spot in the system:
// concurrent selections for the same code must not lose counts. It is
// therefore expressed as a single INSERT ... ON CONFLICT DO UPDATE with
// column expressions, so the find-or-create and the increment are one atomic
// store operation.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/digilateral/qr-track-backend/internal/domain"
)

// regionColumn maps a validated region name to its counter column. Callers
// must have validated the name against the closed set; an unknown name here
// is a programming error.
func regionColumn(region string) string {
	switch region {
	case domain.RegionHurry:
		return "hurry"
	case domain.RegionMindfully:
		return "mindfully"
	case domain.RegionDistracted:
		return "distracted"
	default:
		return ""
	}
}

// IncrementRegion lazily creates the per-code analytics row and increments
// the given category counter together with the total, atomically. The region
// must already be validated against domain.ValidRegions; an unrecognized name
// returns gorm.ErrInvalidField without touching the store.
//
// The DO UPDATE arm uses unqualified column references, which resolve to the
// existing row in SQLite, so two concurrent calls serialize on the row and
// both increments survive.
func IncrementRegion(ctx context.Context, db *gorm.DB, qrID, region string) error {
	col := regionColumn(region)
	if col == "" {
		return gorm.ErrInvalidField
	}
	now := time.Now().UTC()

	rec := &domain.RegionAnalytics{
		ID:              uuid.NewString(),
		QRID:            qrID,
		TotalSelections: 1,
		LastUpdated:     &now,
	}
	switch region {
	case domain.RegionHurry:
		rec.Hurry = 1
	case domain.RegionMindfully:
		rec.Mindfully = 1
	case domain.RegionDistracted:
		rec.Distracted = 1
	}

	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "qr_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				col:                gorm.Expr(col + " + 1"),
				"total_selections": gorm.Expr("total_selections + 1"),
				"last_updated":     now,
				"updated_at":       now,
			}),
		}).
		Create(rec).Error
}

// GetRegionAnalytics fetches the analytics row for a code.
// Returns ErrNotFound when no qualifying selection has been recorded yet;
// callers synthesize a zero-valued summary in that case.
func GetRegionAnalytics(ctx context.Context, db *gorm.DB, qrID string) (*domain.RegionAnalytics, error) {
	var rec domain.RegionAnalytics
	if err := db.WithContext(ctx).Where("qr_id = ?", qrID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// CountRegionAnalytics returns the number of codes with analytics rows.
func CountRegionAnalytics(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.RegionAnalytics{}).Count(&total).Error
	return total, err
}

// ListRegionAnalyticsPage returns a page of analytics rows ordered by
// total_selections descending (busiest codes first), with a deterministic
// tie-break on qr_id.
func ListRegionAnalyticsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.RegionAnalytics, error) {
	var out []domain.RegionAnalytics
	err := db.WithContext(ctx).
		Order("total_selections DESC, qr_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// OverallRegionStats aggregates fleet-wide totals across all analytics rows.
type OverallRegionStats struct {
	TotalQRs           int64   `json:"totalQRs"           gorm:"column:total_qrs"`
	TotalSelections    int64   `json:"totalSelections"    gorm:"column:total_selections"`
	AvgSelectionsPerQR float64 `json:"avgSelectionsPerQR" gorm:"column:avg_selections_per_qr"`
	TotalHurry         int64   `json:"totalHurry"         gorm:"column:total_hurry"`
	TotalMindfully     int64   `json:"totalMindfully"     gorm:"column:total_mindfully"`
	TotalDistracted    int64   `json:"totalDistracted"    gorm:"column:total_distracted"`
}

// GetOverallRegionStats computes fleet totals in a single SELECT. All sums
// are COALESCEd so an empty table yields a zero-valued struct, not NULLs.
func GetOverallRegionStats(ctx context.Context, db *gorm.DB) (*OverallRegionStats, error) {
	var stats OverallRegionStats
	err := db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*)                            AS total_qrs,
			COALESCE(SUM(total_selections), 0)  AS total_selections,
			COALESCE(AVG(total_selections), 0)  AS avg_selections_per_qr,
			COALESCE(SUM(hurry), 0)             AS total_hurry,
			COALESCE(SUM(mindfully), 0)         AS total_mindfully,
			COALESCE(SUM(distracted), 0)        AS total_distracted
		FROM region_analytics
		WHERE deleted_at IS NULL`).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
