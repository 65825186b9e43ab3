// Selection HTTP handlers.
//
// This file exposes REST endpoints for per-device selections:
//   - POST /selection/store                     (upsert the device's selection)
//   - GET  /selection/{deviceId}/{qrId}         (current selection for the pair)
//
// The device identity used for storage is resolved by upstream middleware
// (cookie, body field, header, or a synthesized id). A request whose identity
// could not be resolved is still accepted under the empty identity.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digilateral/qr-track-backend/internal/http/middleware"
	"github.com/digilateral/qr-track-backend/internal/services"
)

// StoreSelectionRequest is the JSON payload for storing a selection.
type StoreSelectionRequest struct {
	// QRID is the short code id the selection belongs to; required.
	QRID string `json:"qrId" binding:"required" example:"X1Y2Z3"`
	// Selection is the chosen label; free-form, but the closed region set
	// additionally feeds the region counters.
	Selection string `json:"selection" binding:"required" example:"hurry"`
	// DeviceID optionally carries the device identity when the client
	// cannot use cookies; middleware resolution takes precedence.
	DeviceID string   `json:"deviceId,omitempty" example:"dv-V1StGXR8_Z5j"`
	CoordX   *float64 `json:"coordX,omitempty" example:"12.5"`
	CoordY   *float64 `json:"coordY,omitempty" example:"48.25"`
}

// StoreSelection godoc
// @ID          storeSelection
// @Summary     Store a selection
// @Description Upserts the latest selection for the (device, code) pair. A repeat submission fully replaces the previous values. Region labels additionally bump the region counters.
// @Tags        Selections
// @Accept      json
// @Produce     json
//
// @Param       body body handlers.StoreSelectionRequest true "Selection payload"
//
// @Success     200 {object} services.StoreResult
// @Failure     400 {object} handlers.ErrorResponse "Missing qrId or selection"
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /selection/store [post]
func (h *Handlers) StoreSelection(c *gin.Context) {
	var req StoreSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "qrId and selection are required")
		return
	}

	res, err := h.selectionSvc.Store(c.Request.Context(), services.SelectionInput{
		DeviceID:  middleware.DeviceIDFrom(c),
		QRID:      req.QRID,
		Selection: req.Selection,
		CoordX:    req.CoordX,
		CoordY:    req.CoordY,
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		if errors.Is(err, services.ErrMissingSelectionFields) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeStoreFailed, err.Error())
		return
	}

	middleware.IncSelectionRecorded()
	ok(c, http.StatusOK, res)
}

// GetSelection godoc
// @ID          getSelection
// @Summary     Get the stored selection for a device and code
// @Tags        Selections
// @Produce     json
//
// @Param       deviceId path string true "Device id" example(dv-V1StGXR8_Z5j)
// @Param       qrId     path string true "Short code id" example(X1Y2Z3)
//
// @Success     200 {object} domain.Selection
// @Failure     404 {object} handlers.ErrorResponse "No selection stored"
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /selection/{deviceId}/{qrId} [get]
func (h *Handlers) GetSelection(c *gin.Context) {
	sel, err := h.selectionSvc.Get(c.Request.Context(), c.Param("deviceId"), c.Param("qrId"))
	if err != nil {
		if errors.Is(err, services.ErrSelectionNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no selection stored for this device and QR code")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, sel)
}
