// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Selection
// model.
//
// Selections are last-write-wins per (device_id, qr_id): the upsert fully
// replaces attribute values while keeping the original row identity. The
// conflict target is the composite unique index so the replace happens in a
// single statement, never as a read-modify-write in application code.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/digilateral/qr-track-backend/internal/domain"
)

// UpsertSelection creates or fully replaces the selection for the
// (sel.DeviceID, sel.QRID) pair and returns the persisted row (with its
// original identity when the row already existed).
//
// All attribute columns are overwritten, not merged: selection label,
// coordinates, IP, and both timestamps are taken from sel.
func UpsertSelection(ctx context.Context, db *gorm.DB, sel *domain.Selection) (*domain.Selection, error) {
	if sel.ID == "" {
		sel.ID = uuid.NewString()
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "device_id"}, {Name: "qr_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"selection":  sel.Selection,
				"coord_x":    sel.CoordX,
				"coord_y":    sel.CoordY,
				"ip_address": sel.IPAddress,
				"timestamp":  sel.Timestamp,
				"local_time": sel.LocalTime,
				"updated_at": sel.Timestamp,
			}),
		}).
		Create(sel).Error
	if err != nil {
		return nil, err
	}

	// Re-read so the caller sees the surviving row identity after a replace.
	return GetSelection(ctx, db, sel.DeviceID, sel.QRID)
}

// GetSelection fetches the latest selection for a (deviceID, qrID) pair.
// Returns ErrNotFound if no selection has been stored for the pair.
func GetSelection(ctx context.Context, db *gorm.DB, deviceID, qrID string) (*domain.Selection, error) {
	var sel domain.Selection
	err := db.WithContext(ctx).
		Where("device_id = ? AND qr_id = ?", deviceID, qrID).
		First(&sel).Error
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// CountSelections uses a raw COUNT so a missing table surfaces as an error.
func CountSelections(ctx context.Context, db *gorm.DB, qrID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM selections WHERE qr_id = ? AND deleted_at IS NULL", qrID).
		Scan(&total).Error
	return total, err
}
