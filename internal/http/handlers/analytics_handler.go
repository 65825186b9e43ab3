// Region analytics HTTP handlers.
//
// This file exposes REST endpoints for the per-code region counters:
//   - POST /analytics/update     (bump one region counter directly)
//   - GET  /analytics/{qrId}     (counters for one code)
//   - GET  /analytics            (paginated fleet view, busiest first)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/digilateral/qr-track-backend/internal/services"
	"github.com/digilateral/qr-track-backend/internal/utils"
)

// UpdateAnalyticsRequest is the JSON payload for a direct region increment.
type UpdateAnalyticsRequest struct {
	QRID string `json:"qrId" binding:"required" example:"X1Y2Z3"`
	// Region must be one of the closed category set.
	Region string `json:"region" binding:"required" example:"mindfully"`
}

// UpdateAnalytics godoc
// @ID          updateAnalytics
// @Summary     Increment a region counter
// @Description Bumps the named region counter for a code, creating the analytics row on first use, and returns the updated counters.
// @Tags        Analytics
// @Accept      json
// @Produce     json
//
// @Param       body body handlers.UpdateAnalyticsRequest true "Update payload"
//
// @Success     200 {object} services.RegionSummary
// @Failure     400 {object} handlers.ErrorResponse "Missing fields or unknown region"
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /analytics/update [post]
func (h *Handlers) UpdateAnalytics(c *gin.Context) {
	var req UpdateAnalyticsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "qrId and region are required")
		return
	}

	sum, err := h.analyticsSvc.Increment(c.Request.Context(), req.QRID, req.Region)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRegion):
			fail(c, http.StatusBadRequest, ErrCodeInvalidRegion, err.Error())
		case errors.Is(err, services.ErrMissingSelectionFields):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, sum)
}

// GetAnalytics godoc
// @ID          getAnalytics
// @Summary     Region counters for one code
// @Description Returns the per-region counters for a code. A code with no qualifying selections yields zero counters, not an error.
// @Tags        Analytics
// @Produce     json
//
// @Param       qrId path string true "Short code id" example(X1Y2Z3)
//
// @Success     200 {object} services.RegionSummary
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /analytics/{qrId} [get]
func (h *Handlers) GetAnalytics(c *gin.Context) {
	sum, err := h.analyticsSvc.GetOne(c.Request.Context(), c.Param("qrId"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, sum)
}

// ListAnalytics godoc
// @ID          listAnalytics
// @Summary     Fleet-wide region analytics (paginated)
// @Description Returns a page of per-code counters ordered by total selections descending, with fleet-wide aggregates alongside.
// @Tags        Analytics
// @Produce     json
//
// @Param       page  query int false "Page number"    minimum(1) default(1)
// @Param       limit query int false "Items per page" minimum(1) maximum(100) default(10)
//
// @Success     200 {object} services.AnalyticsPage
// @Failure     500 {object} handlers.ErrorResponse "Internal error"
// @Router      /analytics [get]
func (h *Handlers) ListAnalytics(c *gin.Context) {
	page := utils.AtoiDefault(c.Query("page"), 1)
	limit := utils.AtoiDefault(c.Query("limit"), 10)

	res, err := h.analyticsSvc.GetAll(c.Request.Context(), page, limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, res)
}
