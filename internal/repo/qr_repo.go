// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the QRCode
// model and its scan history.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving business rules (artifact ordering, id
// generation, redirect building) to the services package.
//
// Error semantics:
//   - A duplicate qr_id on insert relies on the database unique constraint
//     and is returned as a raw DB error. The service layer detects it and
//     retries with a fresh identifier.
//   - Missing records are reported as ErrNotFound.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/digilateral/qr-track-backend/internal/domain"
)

// CreateQRCode inserts a new code row. The qr_id column carries a unique
// constraint; a collision surfaces as a DB error for the caller to handle
// (the service retries with a freshly generated identifier).
func CreateQRCode(ctx context.Context, db *gorm.DB, qr *domain.QRCode) error {
	return db.WithContext(ctx).Create(qr).Error
}

// GetQRCode fetches a code by its short identifier, without scan history.
// Returns ErrNotFound if the code does not exist.
func GetQRCode(ctx context.Context, db *gorm.DB, qrID string) (*domain.QRCode, error) {
	var qr domain.QRCode
	if err := db.WithContext(ctx).Where("qr_id = ?", qrID).First(&qr).Error; err != nil {
		return nil, err
	}
	return &qr, nil
}

// GetQRCodeWithHistory fetches a code together with its ordered scan history
// (oldest first). Returns ErrNotFound if the code does not exist.
func GetQRCodeWithHistory(ctx context.Context, db *gorm.DB, qrID string) (*domain.QRCode, error) {
	var qr domain.QRCode
	err := db.WithContext(ctx).
		Preload("ScanHistory", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("scanned_at ASC, id ASC")
		}).
		Where("qr_id = ?", qrID).
		First(&qr).Error
	if err != nil {
		return nil, err
	}
	return &qr, nil
}

// AppendScan records one scan: it inserts the event row and bumps the
// denormalized counter and last-scanned timestamp on the code row in the same
// transaction, keeping scan_count equal to the event count. The counter is
// incremented with a column expression so concurrent scans never lose
// updates.
//
// Returns ErrNotFound when the code does not exist.
func AppendScan(ctx context.Context, db *gorm.DB, qrID string, ev *domain.ScanEvent) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev.QRID = qrID
		if ev.ScannedAt.IsZero() {
			ev.ScannedAt = time.Now().UTC()
		}
		if err := tx.Create(ev).Error; err != nil {
			return err
		}

		res := tx.Model(&domain.QRCode{}).
			Where("qr_id = ?", qrID).
			UpdateColumns(map[string]interface{}{
				"scan_count":      gorm.Expr("scan_count + 1"),
				"last_scanned_at": ev.ScannedAt,
				"updated_at":      ev.ScannedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// RecentScans returns the newest limit scan events for a code, newest first.
func RecentScans(ctx context.Context, db *gorm.DB, qrID string, limit int) ([]domain.ScanEvent, error) {
	var out []domain.ScanEvent
	q := db.WithContext(ctx).
		Where("qr_id = ?", qrID).
		Order("scanned_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountScans uses a raw COUNT so a missing table surfaces as an error.
func CountScans(ctx context.Context, db *gorm.DB, qrID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM scan_events WHERE qr_id = ?", qrID).
		Scan(&total).Error
	return total, err
}
