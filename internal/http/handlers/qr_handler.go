// QR code HTTP handlers.
//
// This file exposes REST endpoints for the code lifecycle:
//   - POST /qr/create                (generate a code and its SVG artifact)
//   - GET  /qr/qr-codes/{filename}   (serve the stored SVG artifact)
//   - GET  /qr/qr-details/{qrId}     (full record with scan history)
//   - GET  /qr/scan?qrId=...         (record a scan, 302 to the landing URL)
//   - GET  /qr/analytics/{qrId}      (scan summary projection)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. The scan endpoint is the one
// browsers hit, so its failure mode is a redirect-free JSON error rather than
// a broken redirect chain.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/digilateral/qr-track-backend/internal/domain"
	"github.com/digilateral/qr-track-backend/internal/http/middleware"
	"github.com/digilateral/qr-track-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// QRService defines code lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type QRService interface {
	// Create generates a new code with its tracked URLs and SVG artifact.
	Create(ctx context.Context, name string) (*services.CreateResult, error)
	// RecordScan appends a scan event and returns the redirect target.
	RecordScan(ctx context.Context, qrID string, meta services.ScanMeta) (string, error)
	// Details returns the full record including ordered scan history.
	Details(ctx context.Context, qrID string) (*domain.QRCode, error)
	// ScanAnalytics returns the scan summary projection for one code.
	ScanAnalytics(ctx context.Context, qrID string) (*services.ScanSummary, error)
}

// ArtifactReader serves stored SVG artifacts by file name.
type ArtifactReader interface {
	Read(name string) ([]byte, error)
}

// SelectionService defines selection storage and retrieval operations.
type SelectionService interface {
	// Store upserts the selection for a (device, code) pair.
	Store(ctx context.Context, in services.SelectionInput) (*services.StoreResult, error)
	// Get returns the current selection for a (device, code) pair.
	Get(ctx context.Context, deviceID, qrID string) (*domain.Selection, error)
}

// AnalyticsService defines region counter operations.
type AnalyticsService interface {
	// Increment bumps one region counter and returns the updated summary.
	Increment(ctx context.Context, qrID, region string) (*services.RegionSummary, error)
	// GetOne returns the region summary for a single code.
	GetOne(ctx context.Context, qrID string) (*services.RegionSummary, error)
	// GetAll lists summaries page by page with fleet-wide totals.
	GetAll(ctx context.Context, page, limit int) (*services.AnalyticsPage, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for codes, selections, and region analytics.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	qrSvc        QRService
	artifacts    ArtifactReader
	selectionSvc SelectionService
	analyticsSvc AnalyticsService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(qrSvc QRService, artifacts ArtifactReader, selectionSvc SelectionService, analyticsSvc AnalyticsService) *Handlers {
	return &Handlers{
		qrSvc:        qrSvc,
		artifacts:    artifacts,
		selectionSvc: selectionSvc,
		analyticsSvc: analyticsSvc,
	}
}

//
// DTOs
//

// CreateQRRequest is the JSON payload for generating a code.
type CreateQRRequest struct {
	// QRName labels the code; required, non-blank.
	QRName string `json:"qrName" binding:"required" example:"shelf A3"`
}

//
// Handlers
//

// CreateQR godoc
// @ID          createQR
// @Summary     Generate a QR code
// @Description Creates a code with a fresh short id, its tracked and landing URLs, and a stored SVG artifact.
// @Tags        QR
// @Accept      json
// @Produce     json
//
// @Param       body body handlers.CreateQRRequest true "Create payload"
//
// @Success     201 {object} services.CreateResult
// @Failure     400 {object} handlers.ErrorResponse "Bad request"
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /qr/create [post]
func (h *Handlers) CreateQR(c *gin.Context) {
	var req CreateQRRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.QRName) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "qrName is required")
		return
	}

	res, err := h.qrSvc.Create(c.Request.Context(), req.QRName)
	if err != nil {
		if errors.Is(err, services.ErrEmptyName) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, res)
}

// ServeArtifact godoc
// @ID          serveArtifact
// @Summary     Serve a stored SVG artifact
// @Description Returns the SVG document for a code by file name (with or without the .svg extension).
// @Tags        QR
// @Produce     image/svg+xml
//
// @Param       filename path string true "Artifact file name" example(X1Y2Z3.svg)
//
// @Success     200 {string} string "SVG document"
// @Failure     404 {object} handlers.ErrorResponse "Artifact not found"
// @Router      /qr/qr-codes/{filename} [get]
func (h *Handlers) ServeArtifact(c *gin.Context) {
	name := c.Param("filename")
	data, err := h.artifacts.Read(name)
	if err != nil {
		if os.IsNotExist(err) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "QR artifact not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/svg+xml", data)
}

// QRDetails godoc
// @ID          qrDetails
// @Summary     Get code details
// @Description Returns the full code record including the ordered scan history.
// @Tags        QR
// @Produce     json
//
// @Param       qrId path string true "Short code id" example(X1Y2Z3)
//
// @Success     200 {object} domain.QRCode
// @Failure     404 {object} handlers.ErrorResponse "Code not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /qr/qr-details/{qrId} [get]
func (h *Handlers) QRDetails(c *gin.Context) {
	qr, err := h.qrSvc.Details(c.Request.Context(), c.Param("qrId"))
	if err != nil {
		if errors.Is(err, services.ErrQRNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "QR code not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, qr)
}

// Scan godoc
// @ID          scanQR
// @Summary     Record a scan and redirect
// @Description Appends a scan event for the code and 302-redirects to its landing URL. Every scan is counted, including repeats from the same device.
// @Tags        QR
//
// @Param       qrId query string true "Short code id" example(X1Y2Z3)
//
// @Success     302 {string} string "Redirect to the landing URL"
// @Failure     400 {object} handlers.ErrorResponse "Missing qrId"
// @Failure     404 {object} handlers.ErrorResponse "Code not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /qr/scan [get]
func (h *Handlers) Scan(c *gin.Context) {
	qrID := strings.TrimSpace(c.Query("qrId"))
	if qrID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "qrId query parameter is required")
		return
	}

	meta := services.ScanMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
	if dev := middleware.DeviceIDFrom(c); dev != "" {
		meta.DeviceID = &dev
	}

	target, err := h.qrSvc.RecordScan(c.Request.Context(), qrID, meta)
	if err != nil {
		if errors.Is(err, services.ErrQRNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "QR code not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeScanFailed, err.Error())
		return
	}

	middleware.IncScanRecorded()
	c.Redirect(http.StatusFound, target)
}

// ScanAnalytics godoc
// @ID          scanAnalytics
// @Summary     Scan summary for one code
// @Description Returns scan totals, unique IPs, device-tagged counts, a per-day histogram, and the most recent scans.
// @Tags        QR
// @Produce     json
//
// @Param       qrId path string true "Short code id" example(X1Y2Z3)
//
// @Success     200 {object} services.ScanSummary
// @Failure     404 {object} handlers.ErrorResponse "Code not found"
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /qr/analytics/{qrId} [get]
func (h *Handlers) ScanAnalytics(c *gin.Context) {
	sum, err := h.qrSvc.ScanAnalytics(c.Request.Context(), c.Param("qrId"))
	if err != nil {
		if errors.Is(err, services.ErrQRNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "QR code not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, sum)
}
