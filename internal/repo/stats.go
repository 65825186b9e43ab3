// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries over
// the scan-event log, used by the scan analytics reader. Each function is
// context-aware and safe to call from services or handlers.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// DayCount is one bucket of the per-day scan histogram. Day is the UTC
// calendar date in "YYYY-MM-DD" form.
type DayCount struct {
	Day   string `json:"day"   gorm:"column:day"`
	Count int64  `json:"count" gorm:"column:count"`
}

// UniqueIPCount returns the number of distinct originating IPs recorded for a
// code. Repeated scans from the same address count once; the "unknown"
// sentinel counts as one address like any other (observed semantics are
// preserved deliberately, this is raw IP distinctness, not unique visitors).
func UniqueIPCount(ctx context.Context, db *gorm.DB, qrID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(DISTINCT ip_address) FROM scan_events WHERE qr_id = ?", qrID).
		Scan(&n).Error
	return n, err
}

// DeviceTaggedCount returns the number of scan events that carried a device
// identifier. It counts events, not distinct devices.
func DeviceTaggedCount(ctx context.Context, db *gorm.DB, qrID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM scan_events WHERE qr_id = ? AND device_id IS NOT NULL AND device_id <> ''", qrID).
		Scan(&n).Error
	return n, err
}

// ScansByDay groups a code's scan events into UTC calendar-day buckets,
// oldest day first. Codes with no scans return an empty slice.
func ScansByDay(ctx context.Context, db *gorm.DB, qrID string) ([]DayCount, error) {
	var out []DayCount
	err := db.WithContext(ctx).
		Raw(`
			SELECT strftime('%Y-%m-%d', scanned_at) AS day, COUNT(*) AS count
			FROM scan_events
			WHERE qr_id = ?
			GROUP BY day
			ORDER BY day ASC`, qrID).
		Scan(&out).Error
	return out, err
}
