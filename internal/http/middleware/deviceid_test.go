package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newDeviceRouter(cookieName string, capture *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(DeviceIdentity(DeviceCookie{Name: cookieName, MaxAge: time.Hour}))
	handle := func(c *gin.Context) {
		*capture = DeviceIDFrom(c)
		c.String(http.StatusOK, "ok")
	}
	r.GET("/probe", handle)
	r.POST("/probe", handle)
	return r
}

func TestDeviceIdentity_SynthesizesAndSetsCookie(t *testing.T) {
	var got string
	r := newDeviceRouter("qr_device_id", &got)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	r.ServeHTTP(w, req)

	if !strings.HasPrefix(got, "dv-") || len(got) != len("dv-")+12 {
		t.Fatalf("expected synthesized dv- id of 12 random chars, got %q", got)
	}

	res := w.Result()
	defer res.Body.Close()
	var cookie *http.Cookie
	for _, ck := range res.Cookies() {
		if ck.Name == "qr_device_id" {
			cookie = ck
		}
	}
	if cookie == nil {
		t.Fatalf("expected qr_device_id cookie to be set; got %v", res.Cookies())
	}
	if cookie.Value != got {
		t.Fatalf("cookie value %q != resolved identity %q", cookie.Value, got)
	}
	if cookie.HttpOnly {
		t.Fatalf("device cookie must be readable by browser clients")
	}
	if cookie.MaxAge != int(time.Hour.Seconds()) {
		t.Fatalf("unexpected cookie MaxAge %d", cookie.MaxAge)
	}
}

func TestDeviceIdentity_CookieWinsOverBodyAndHeader(t *testing.T) {
	var got string
	r := newDeviceRouter("qr_device_id", &got)

	body := `{"deviceId":"dv-frombody0001","qrId":"abc123"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/probe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-ID", "dv-fromheader01")
	req.AddCookie(&http.Cookie{Name: "qr_device_id", Value: "dv-fromcookie01"})
	r.ServeHTTP(w, req)

	if got != "dv-fromcookie01" {
		t.Fatalf("cookie should win, got %q", got)
	}
}

func TestDeviceIdentity_BodyFieldWinsOverHeader(t *testing.T) {
	var got string
	r := newDeviceRouter("qr_device_id", &got)

	body := `{"deviceId":"dv-frombody0001"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/probe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-ID", "dv-fromheader01")
	r.ServeHTTP(w, req)

	if got != "dv-frombody0001" {
		t.Fatalf("JSON body field should win over header, got %q", got)
	}
}

func TestDeviceIdentity_HeaderFallback(t *testing.T) {
	var got string
	r := newDeviceRouter("qr_device_id", &got)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Device-ID", "  dv-fromheader01  ")
	r.ServeHTTP(w, req)

	if got != "dv-fromheader01" {
		t.Fatalf("expected trimmed header identity, got %q", got)
	}
}

func TestDeviceIdentity_BodyIsRestoredForHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(DeviceIdentity(DeviceCookie{Name: "qr_device_id", MaxAge: time.Hour}))

	var seen string
	r.POST("/bind", func(c *gin.Context) {
		var in struct {
			DeviceID  string `json:"deviceId"`
			Selection string `json:"selection"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			t.Fatalf("handler could not rebind body: %v", err)
		}
		seen = in.Selection
		c.String(http.StatusOK, "ok")
	})

	body := `{"deviceId":"dv-frombody0001","selection":"hurry"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
	if seen != "hurry" {
		t.Fatalf("downstream binding lost the body, selection=%q", seen)
	}
}

func TestDeviceIdentity_NonJSONBodyIgnored(t *testing.T) {
	var got string
	r := newDeviceRouter("qr_device_id", &got)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/probe", strings.NewReader("deviceId=dv-nope"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)

	if !strings.HasPrefix(got, "dv-") || got == "dv-nope" {
		t.Fatalf("form bodies must not be peeked, got %q", got)
	}
}

func TestDeviceIdentity_MalformedJSONBodyIgnored(t *testing.T) {
	var got string
	r := newDeviceRouter("qr_device_id", &got)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/probe", strings.NewReader(`{"deviceId":`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-ID", "dv-fromheader01")
	r.ServeHTTP(w, req)

	if got != "dv-fromheader01" {
		t.Fatalf("malformed JSON should fall through to the header, got %q", got)
	}
}

func TestDeviceIDFrom_UnresolvedIsEmpty(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if got := DeviceIDFrom(c); got != "" {
		t.Fatalf("expected empty identity without middleware, got %q", got)
	}
}

func TestDeviceIDFromBody_RespectsPeekLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	// A body larger than the peek cap truncates to invalid JSON and yields "".
	huge := `{"pad":"` + strings.Repeat("x", maxBodyPeek) + `","deviceId":"dv-late"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	if got := deviceIDFromBody(c); got != "" {
		t.Fatalf("oversized body should not resolve an identity, got %q", got)
	}
	// The restored body holds at most the peeked prefix.
	restored, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("reading restored body: %v", err)
	}
	if len(restored) != maxBodyPeek {
		t.Fatalf("restored body length %d, want %d", len(restored), maxBodyPeek)
	}
	if !bytes.HasPrefix(restored, []byte(`{"pad":"`)) {
		t.Fatalf("restored body lost its prefix")
	}
}
