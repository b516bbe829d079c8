package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newIdemRouter(opts IdempotencyOptions, lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ctxKeyTokenID, "tok-1") })
	r.Use(IdempotencyValidator(opts, lookup))
	r.POST("/reviews", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func TestIdempotencyValidator_NoHeaderIsNoOp(t *testing.T) {
	called := false
	r := newIdemRouter(IdempotencyOptions{}, func(context.Context, string, string, time.Time) (bool, error) {
		called = true
		return false, nil
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reviews", nil))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; want 201", w.Code)
	}
	if called {
		t.Fatal("lookup must not run without a header")
	}
}

func TestIdempotencyValidator_RejectsInvalidKeys(t *testing.T) {
	r := newIdemRouter(IdempotencyOptions{MaxLen: 10}, nil)

	bad := []string{
		"has spaces",
		"emoji☃key",
		"waytoolongforthecap", // exceeds MaxLen 10
		"semi;colon",
	}
	for _, key := range bad {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/reviews", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q -> %d; want 400", key, w.Code)
		}
		if !strings.Contains(w.Body.String(), "bad_idempotency_key") {
			t.Fatalf("key %q: body %s", key, w.Body.String())
		}
	}
}

func TestIdempotencyValidator_StashesKeyAndDetectsReplay(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotToken, gotKey string
	lookup := func(_ context.Context, tokenID, key string, _ time.Time) (bool, error) {
		gotToken, gotKey = tokenID, key
		return key == "seen-before", nil
	}

	var replay, bypass bool
	var stashed string
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ctxKeyTokenID, "tok-9") })
	r.Use(IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST("/reviews", func(c *gin.Context) {
		stashed, _ = GetIdempotencyKey(c)
		replay = IsReplay(c)
		bypass = IsRateBypass(c)
		c.Status(http.StatusCreated)
	})

	// Fresh key: stashed, no replay flags.
	req := httptest.NewRequest(http.MethodPost, "/reviews", nil)
	req.Header.Set(HeaderIdempotencyKey, "fresh-key")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if stashed != "fresh-key" || replay || bypass {
		t.Fatalf("fresh key: stashed=%q replay=%v bypass=%v", stashed, replay, bypass)
	}
	if gotToken != "tok-9" || gotKey != "fresh-key" {
		t.Fatalf("lookup keyed by (%q, %q); want (tok-9, fresh-key)", gotToken, gotKey)
	}

	// Known key: replay + rate bypass.
	req = httptest.NewRequest(http.MethodPost, "/reviews", nil)
	req.Header.Set(HeaderIdempotencyKey, "seen-before")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if !replay || !bypass {
		t.Fatalf("known key: replay=%v bypass=%v; want both true", replay, bypass)
	}
}

func TestGetIdempotencyKey_Absent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if key, ok := GetIdempotencyKey(c); ok || key != "" {
		t.Fatalf("GetIdempotencyKey on empty context = (%q, %v)", key, ok)
	}
}
