// Package services – QRService
//
// This file implements the QRService, which owns the code lifecycle: creating
// codes (id generation, artifact rendering, tracked/final URL construction),
// recording scans with a redirect target, and projecting scan analytics.
//
// Ordering invariant on creation: the SVG artifact is persisted before the
// database record, so a record never exists without its artifact. An orphaned
// artifact left behind by a later record-write failure is tolerated; cleanup
// is attempted best-effort.
package services

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/digilateral/qr-track-backend/internal/domain"
	"github.com/digilateral/qr-track-backend/internal/qrimg"
	"github.com/digilateral/qr-track-backend/internal/repo"
)

// qrIDLength is the length of generated short code identifiers.
const qrIDLength = 6

// maxIDAttempts bounds the regeneration loop when a freshly generated id
// collides with an existing one.
const maxIDAttempts = 3

// ArtifactStore is the artifact persistence contract required by QRService.
type ArtifactStore interface {
	Write(id string, data []byte) error
	Remove(id string) error
}

// QRService provides code creation, scan recording, and scan analytics.
type QRService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Artifacts stores rendered SVG documents keyed by code id.
	Artifacts ArtifactStore
	// BaseURL is this service's public base URL; the tracked initial URL
	// points at its scan endpoint.
	BaseURL string
	// LandingURL is the external destination clients are redirected to
	// after scan tracking.
	LandingURL string
	// RenderOpts are the fixed visual parameters for generated artifacts.
	RenderOpts qrimg.Options

	// newID generates short identifiers; swapped in tests to force
	// collisions deterministically.
	newID func(length int) (string, error)
}

// NewQRService constructs a QRService with default rendering parameters and
// nanoid-based id generation.
func NewQRService(db *gorm.DB, artifacts ArtifactStore, baseURL, landingURL string) *QRService {
	return &QRService{
		DB:         db,
		Artifacts:  artifacts,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		LandingURL: landingURL,
		RenderOpts: qrimg.DefaultOptions(),
		newID: func(length int) (string, error) {
			return gonanoid.New(length)
		},
	}
}

// CreateResult is the payload returned after a successful code creation.
type CreateResult struct {
	QRID       string `json:"qrId"`
	QRName     string `json:"qrName"`
	InitialURL string `json:"initialUrl"`
	FinalURL   string `json:"finalUrl"`
}

// Create generates a new code for name: a fresh 6-character id, the tracked
// initial URL pointing back at the scan endpoint, the final landing URL, and
// the SVG artifact. The artifact write must succeed before the record is
// created. A unique-id collision triggers regeneration with a bounded number
// of attempts.
func (s *QRService) Create(ctx context.Context, name string) (*CreateResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		qrID, err := s.newID(qrIDLength)
		if err != nil {
			return nil, err
		}

		initialURL := s.BaseURL + "/qr/scan?qrId=" + url.QueryEscape(qrID)
		finalURL := appendQueryParam(s.LandingURL, "qrId", qrID)

		artifact, err := qrimg.RenderSVG(initialURL, s.RenderOpts)
		if err != nil {
			return nil, err
		}
		if err := s.Artifacts.Write(qrID, artifact); err != nil {
			return nil, err
		}

		qr := &domain.QRCode{
			ID:         uuid.NewString(),
			QRID:       qrID,
			QRName:     name,
			InitialURL: initialURL,
			FinalURL:   finalURL,
			CreatedAt:  time.Now().UTC(),
		}
		err = repo.CreateQRCode(ctx, s.DB, qr)
		if err == nil {
			return &CreateResult{
				QRID:       qrID,
				QRName:     name,
				InitialURL: initialURL,
				FinalURL:   finalURL,
			}, nil
		}

		// The record write failed after the artifact was persisted; remove
		// the artifact best-effort and either retry on an id collision or
		// give up.
		_ = s.Artifacts.Remove(qrID)
		if !isDuplicate(err) {
			return nil, err
		}
	}

	return nil, ErrIDExhausted
}

// ScanMeta carries the request metadata recorded with each scan.
type ScanMeta struct {
	IPAddress string
	UserAgent string
	DeviceID  *string
}

// RecordScan appends a scan event for qrID, bumps its counter, and returns
// the redirect target (the code's final URL carrying the identifier).
// Every scan is recorded; repeats from the same device are not deduplicated.
func (s *QRService) RecordScan(ctx context.Context, qrID string, meta ScanMeta) (string, error) {
	qr, err := repo.GetQRCode(ctx, s.DB, qrID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrQRNotFound
		}
		return "", err
	}

	ip := meta.IPAddress
	if strings.TrimSpace(ip) == "" {
		ip = "unknown"
	}
	ev := &domain.ScanEvent{
		ScannedAt: time.Now().UTC(),
		IPAddress: ip,
		UserAgent: meta.UserAgent,
		DeviceID:  meta.DeviceID,
	}
	if err := repo.AppendScan(ctx, s.DB, qrID, ev); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrQRNotFound
		}
		return "", err
	}

	return appendQueryParam(qr.FinalURL, "qrId", qr.QRID), nil
}

// Details returns the full code record including its ordered scan history.
func (s *QRService) Details(ctx context.Context, qrID string) (*domain.QRCode, error) {
	qr, err := repo.GetQRCodeWithHistory(ctx, s.DB, qrID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQRNotFound
		}
		return nil, err
	}
	return qr, nil
}

// ScanSummary is the read-only scan analytics projection for one code.
type ScanSummary struct {
	QRID          string             `json:"qrId"`
	TotalScans    int64              `json:"totalScans"`
	LastScannedAt *time.Time         `json:"lastScannedAt"`
	CreatedAt     time.Time          `json:"createdAt"`
	UniqueIPs     int64              `json:"uniqueIPs"`
	UniqueDevices int64              `json:"uniqueDevices"`
	ScansByDay    []repo.DayCount    `json:"scansByDay"`
	RecentScans   []domain.ScanEvent `json:"recentScans"`
}

// ScanAnalytics projects a code's scan history into summary form: raw IP
// distinctness, device-tagged event count, a per-day histogram, and the last
// 10 scans newest-first. Unknown codes yield ErrQRNotFound.
func (s *QRService) ScanAnalytics(ctx context.Context, qrID string) (*ScanSummary, error) {
	qr, err := repo.GetQRCode(ctx, s.DB, qrID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQRNotFound
		}
		return nil, err
	}

	uniqueIPs, err := repo.UniqueIPCount(ctx, s.DB, qrID)
	if err != nil {
		return nil, err
	}
	tagged, err := repo.DeviceTaggedCount(ctx, s.DB, qrID)
	if err != nil {
		return nil, err
	}
	byDay, err := repo.ScansByDay(ctx, s.DB, qrID)
	if err != nil {
		return nil, err
	}
	recent, err := repo.RecentScans(ctx, s.DB, qrID, 10)
	if err != nil {
		return nil, err
	}

	return &ScanSummary{
		QRID:          qrID,
		TotalScans:    qr.ScanCount,
		LastScannedAt: qr.LastScannedAt,
		CreatedAt:     qr.CreatedAt,
		UniqueIPs:     uniqueIPs,
		UniqueDevices: tagged,
		ScansByDay:    byDay,
		RecentScans:   recent,
	}, nil
}

// appendQueryParam returns rawURL with key=value appended, preserving the
// existing query order. If the parameter is already present the URL is
// returned unchanged, so redirect targets never carry it twice.
func appendQueryParam(rawURL, key, value string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if u.Query().Has(key) {
			return rawURL
		}
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + key + "=" + url.QueryEscape(value)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
