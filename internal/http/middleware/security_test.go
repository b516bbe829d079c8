package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func serveWithSecurity(opt SecurityOptions, mutate func(*http.Request)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders(opt))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if mutate != nil {
		mutate(req)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	w := serveWithSecurity(SecurityOptions{}, nil)

	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", h.Get("X-Content-Type-Options"))
	}
	if h.Get("X-Frame-Options") != "DENY" {
		t.Errorf("X-Frame-Options = %q", h.Get("X-Frame-Options"))
	}
	if h.Get("Referrer-Policy") != "no-referrer" {
		t.Errorf("Referrer-Policy = %q", h.Get("Referrer-Policy"))
	}
	// Optional groups stay off by default.
	if h.Get("Permissions-Policy") != "" || h.Get("Cache-Control") != "" {
		t.Error("optional header groups should be absent by default")
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not appear for plain HTTP")
	}
}

func TestSecurityHeaders_OptionalGroups(t *testing.T) {
	w := serveWithSecurity(SecurityOptions{NoStore: true, EnablePolicy: true}, nil)

	h := w.Header()
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" {
		t.Errorf("no-store headers missing: %v", h)
	}
	if !strings.Contains(h.Get("Permissions-Policy"), "geolocation=()") {
		t.Errorf("Permissions-Policy = %q", h.Get("Permissions-Policy"))
	}
	if h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Errorf("X-Permitted-Cross-Domain-Policies = %q", h.Get("X-Permitted-Cross-Domain-Policies"))
	}
}

func TestSecurityHeaders_HSTSOnlyOverHTTPS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: time.Hour}

	// Plain HTTP: absent.
	w := serveWithSecurity(opt, nil)
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS emitted over plain HTTP")
	}

	// Proxy-terminated TLS via X-Forwarded-Proto.
	w = serveWithSecurity(opt, func(req *http.Request) {
		req.Header.Set("X-Forwarded-Proto", "https")
	})
	hsts := w.Header().Get("Strict-Transport-Security")
	if !strings.HasPrefix(hsts, "max-age=3600") || !strings.Contains(hsts, "includeSubDomains") {
		t.Fatalf("HSTS = %q", hsts)
	}
}

func TestSecurityHeaders_ExposesRequestID(t *testing.T) {
	w := serveWithSecurity(SecurityOptions{}, nil)
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "X-Request-ID") {
		t.Fatalf("Access-Control-Expose-Headers = %q",
			w.Header().Get("Access-Control-Expose-Headers"))
	}
}
