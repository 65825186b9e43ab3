// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements DeviceIdentity, the middleware that resolves a stable
// per-device identifier for every request and persists it in a long-lived
// cookie. The identifier keys per-device selections and tags scan events.
//
// Resolution order:
//  1. the device cookie, when present
//  2. a "deviceId" field in a JSON request body (cookie-less clients)
//  3. the X-Device-ID header
//  4. a freshly synthesized identifier
//
// The middleware fails open: if generation fails, the request proceeds with
// an empty identity rather than an error, and downstream code treats all
// unidentified devices as one shared identity.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/digilateral/qr-track-backend/internal/sysutil"
)

const (
	// deviceIDKey is the Gin context key under which the device id is stored.
	deviceIDKey = "deviceID"
	// deviceIDHeader is the fallback HTTP header carrying a device id.
	deviceIDHeader = "X-Device-ID"
	// deviceIDPrefix marks synthesized identifiers.
	deviceIDPrefix = "dv-"
	// deviceIDLength is the random part of a synthesized identifier.
	deviceIDLength = 12
	// maxBodyPeek caps how many bytes of a JSON body are inspected for a
	// deviceId field. Bodies are restored for downstream handlers.
	maxBodyPeek = 1 << 20 // 1 MiB
)

// DeviceCookie configures the device identity cookie.
type DeviceCookie struct {
	// Name is the cookie name, e.g. "qr_device_id".
	Name string
	// MaxAge is the cookie lifetime; typically one year.
	MaxAge time.Duration
	// Secure marks the cookie HTTPS-only; enable in production.
	Secure bool
}

// DeviceIdentity returns a Gin middleware that resolves the device identity
// for each request and refreshes the identity cookie.
//
// The cookie is SameSite=Lax and intentionally NOT HttpOnly: browser clients
// read it to echo the id in JSON payloads for endpoints that cannot rely on
// cookies (e.g. when embedded cross-site).
func DeviceIdentity(cookie DeviceCookie) gin.HandlerFunc {
	maxAge := int(cookie.MaxAge.Seconds())
	return func(c *gin.Context) {
		id := resolveDeviceID(c, cookie.Name)
		if id == "" {
			if fresh, err := gonanoid.New(deviceIDLength); err == nil {
				id = deviceIDPrefix + fresh
			} else {
				LoggerFrom(c).Warn().Err(err).Msg("device id generation failed; proceeding unidentified")
			}
		}

		if id != "" && cookie.Name != "" {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookie.Name, id, maxAge, "/", "", cookie.Secure, false)
		}
		c.Set(deviceIDKey, id)
		c.Next()
	}
}

// resolveDeviceID applies the cookie, body, header precedence.
func resolveDeviceID(c *gin.Context, cookieName string) string {
	var fromCookie string
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil {
			fromCookie = v
		}
	}
	return sysutil.FirstNonEmpty(
		fromCookie,
		deviceIDFromBody(c),
		strings.TrimSpace(c.GetHeader(deviceIDHeader)),
	)
}

// deviceIDFromBody peeks at a JSON request body for a top-level "deviceId"
// string, then restores the body so binding in handlers still works. Non-JSON
// or unparseable bodies yield "".
func deviceIDFromBody(c *gin.Context) string {
	req := c.Request
	if req.Body == nil || req.Method == "GET" || req.Method == "HEAD" {
		return ""
	}
	if ct := req.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return ""
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, maxBodyPeek))
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var probe struct {
		DeviceID string `json:"deviceId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return strings.TrimSpace(probe.DeviceID)
}

// DeviceIDFrom returns the device identity resolved by DeviceIdentity, or ""
// when the middleware did not run or the request is unidentified.
func DeviceIDFrom(c *gin.Context) string {
	if v, ok := c.Get(deviceIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
