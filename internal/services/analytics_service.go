package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/digilateral/qr-track-backend/internal/domain"
	"github.com/digilateral/qr-track-backend/internal/repo"
)

// Pagination bounds for the fleet-wide analytics listing.
const (
	defaultAnalyticsPage  = 1
	defaultAnalyticsLimit = 10
	maxAnalyticsLimit     = 100
)

// AnalyticsService maintains and serves the per-code region counters.
type AnalyticsService struct {
	DB *gorm.DB
}

// NewAnalyticsService constructs an AnalyticsService.
func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db}
}

// RegionSummary is the read shape for one code's region counters.
type RegionSummary struct {
	QRID            string           `json:"qrId"`
	Regions         map[string]int64 `json:"regions"`
	TotalSelections int64            `json:"totalSelections"`
	LastUpdated     *time.Time       `json:"lastUpdated"`
}

// summaryFrom projects a stored analytics row into the read shape.
func summaryFrom(rec *domain.RegionAnalytics) *RegionSummary {
	return &RegionSummary{
		QRID:            rec.QRID,
		Regions:         rec.RegionCounts(),
		TotalSelections: rec.TotalSelections,
		LastUpdated:     rec.LastUpdated,
	}
}

// emptySummary is the zero-valued summary for a code with no qualifying
// selections yet.
func emptySummary(qrID string) *RegionSummary {
	regions := make(map[string]int64, len(domain.ValidRegions))
	for _, r := range domain.ValidRegions {
		regions[r] = 0
	}
	return &RegionSummary{QRID: qrID, Regions: regions}
}

// Increment bumps the named region counter for a code, creating the row on
// first use, and returns the updated summary. An unknown region name is
// rejected with ErrInvalidRegion before the store is touched.
func (s *AnalyticsService) Increment(ctx context.Context, qrID, region string) (*RegionSummary, error) {
	qrID = strings.TrimSpace(qrID)
	region = strings.TrimSpace(region)
	if qrID == "" {
		return nil, ErrMissingSelectionFields
	}
	if !domain.IsValidRegion(region) {
		return nil, ErrInvalidRegion
	}

	if err := repo.IncrementRegion(ctx, s.DB, qrID, region); err != nil {
		return nil, err
	}
	rec, err := repo.GetRegionAnalytics(ctx, s.DB, qrID)
	if err != nil {
		return nil, err
	}
	return summaryFrom(rec), nil
}

// GetOne returns the region summary for a single code. A code with no
// qualifying selections yields a zero-valued summary rather than an error, so
// dashboards can render before the first selection arrives.
func (s *AnalyticsService) GetOne(ctx context.Context, qrID string) (*RegionSummary, error) {
	rec, err := repo.GetRegionAnalytics(ctx, s.DB, qrID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptySummary(qrID), nil
		}
		return nil, err
	}
	return summaryFrom(rec), nil
}

// AnalyticsPage is one page of the fleet-wide analytics listing, busiest
// codes first, with overall totals alongside.
type AnalyticsPage struct {
	Data       []*RegionSummary         `json:"data"`
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	Total      int64                    `json:"total"`
	TotalPages int64                    `json:"totalPages"`
	Overall    *repo.OverallRegionStats `json:"overall"`
}

// GetAll lists per-code summaries page by page, ordered by total selections
// descending, together with fleet-wide aggregates. Out-of-range page and
// limit values are clamped to sane defaults.
func (s *AnalyticsService) GetAll(ctx context.Context, page, limit int) (*AnalyticsPage, error) {
	if page < 1 {
		page = defaultAnalyticsPage
	}
	if limit < 1 {
		limit = defaultAnalyticsLimit
	}
	if limit > maxAnalyticsLimit {
		limit = maxAnalyticsLimit
	}

	total, err := repo.CountRegionAnalytics(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	rows, err := repo.ListRegionAnalyticsPage(ctx, s.DB, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	overall, err := repo.GetOverallRegionStats(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	data := make([]*RegionSummary, 0, len(rows))
	for i := range rows {
		data = append(data, summaryFrom(&rows[i]))
	}

	totalPages := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPages++
	}
	return &AnalyticsPage{
		Data:       data,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Overall:    overall,
	}, nil
}
