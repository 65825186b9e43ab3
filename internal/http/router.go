// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, device identity, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/digilateral/qr-track-backend/internal/config"
	"github.com/digilateral/qr-track-backend/internal/http/handlers"
	"github.com/digilateral/qr-track-backend/internal/http/middleware"
	"github.com/digilateral/qr-track-backend/internal/qrimg"
	"github.com/digilateral/qr-track-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), device identity,
// rate limiting, CORS and security headers, health and metrics endpoints, and
// then mounts the public API groups (/qr, /selection, /analytics).
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression (SVG artifacts compress well)
//  7. Metrics
//  8. Device identity (before the limiter so devices get their own buckets)
//  9. Rate limiter (per device/IP)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, artifacts *qrimg.Store, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Device-ID", // device ids are pseudonymous; keep them out of logs
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Transparent compression; SVG and JSON payloads shrink considerably
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Device identity resolution (cookie → body → header → synthesized)
	r.Use(middleware.DeviceIdentity(middleware.DeviceCookie{
		Name:   cfg.DeviceCookie.Name,
		MaxAge: cfg.DeviceCookie.MaxAge,
		Secure: cfg.DeviceCookie.Secure,
	}))

	// 9) Token-bucket rate limiter per device/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByDeviceOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Device-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Device-ID"},
			ExposeHeaders: []string{"X-Request-ID", "Content-Length"},
			// Credentials are required so the device cookie flows cross-origin
			// from the allowlisted frontends.
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Display timezone for local timestamps; fall back to UTC when the zone
	// database does not know the configured name.
	loc, err := time.LoadLocation(cfg.DisplayTZ)
	if err != nil {
		log.Warn().Err(err).Str("tz", cfg.DisplayTZ).Msg("unknown display timezone; using UTC")
		loc = time.UTC
	}

	// Dependency injection: services ← repo/db/artifacts
	qrSvc := services.NewQRService(db, artifacts, cfg.BaseURL, cfg.LandingURL)
	analyticsSvc := services.NewAnalyticsService(db)
	selectionSvc := services.NewSelectionService(db, analyticsSvc, loc)
	h := handlers.New(qrSvc, artifacts, selectionSvc, analyticsSvc)

	// Public API
	qr := r.Group("/qr")
	{
		qr.POST("/create", h.CreateQR)
		qr.GET("/qr-codes/:filename", h.ServeArtifact)
		qr.GET("/qr-details/:qrId", h.QRDetails)
		qr.GET("/scan", h.Scan)
		qr.GET("/analytics/:qrId", h.ScanAnalytics)
	}

	selection := r.Group("/selection")
	{
		selection.POST("/store", h.StoreSelection)
		selection.GET("/:deviceId/:qrId", h.GetSelection)
	}

	analytics := r.Group("/analytics")
	{
		analytics.POST("/update", h.UpdateAnalytics)
		analytics.GET("", h.ListAnalytics)
		analytics.GET("/:qrId", h.GetAnalytics)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
