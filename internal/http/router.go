// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Split rate budgets: writes (token creation, review submission) carry a
//     stricter cap than reads
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/rencom/go-reviews-backend/docs"
	"github.com/rencom/go-reviews-backend/internal/config"
	"github.com/rencom/go-reviews-backend/internal/http/handlers"
	"github.com/rencom/go-reviews-backend/internal/http/middleware"
	"github.com/rencom/go-reviews-backend/internal/repo"
	"github.com/rencom/go-reviews-backend/internal/services"
)

// tokenGate adapts the TokenService to the narrow validator contract the auth
// middleware consumes, so the middleware stays decoupled from the services
// package.
type tokenGate struct {
	svc *services.TokenService
}

// Validate proxies the exact-match token lookup.
func (g tokenGate) Validate(ctx context.Context, value string) (id, name string, err error) {
	t, err := g.svc.Validate(ctx, value)
	if err != nil {
		return "", "", err
	}
	return t.ID, t.Name, nil
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), CORS and security
// headers, health and metrics endpoints, and then mounts the versioned public
// API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with secret/PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. CORS and Security headers
//
// Auth, idempotency, and rate limiting are route-scoped rather than global:
// the auth gate runs before the idempotency validator (the lookup is keyed by
// token), which runs before the write limiter (replays bypass limiting).
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compression (listing payloads are repetitive JSON)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
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
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
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

	// Liveness (root and /health; /health also pings the store)
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "reviews-api", "status": "ok"})
	})
	r.GET("/health", func(c *gin.Context) {
		if err := repo.Ping(db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
	})

	// Swagger UI (opt-in; off by default in production)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← db
	reviewSvc := &services.ReviewService{DB: db}
	tokenSvc := &services.TokenService{DB: db}
	h := handlers.New(reviewSvc, tokenSvc, cfg.IdempotencyTTL)

	// Route-scoped middleware
	auth := middleware.AuthRequired(tokenGate{svc: tokenSvc})
	idem := middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, tokenID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, tokenID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	)
	writeRL := middleware.NewRateLimiter(cfg.RateWrite.RPS, cfg.RateWrite.Burst, middleware.KeyByTokenOrIP())
	readRL := middleware.NewRateLimiter(cfg.RateRead.RPS, cfg.RateRead.Burst, middleware.KeyByTokenOrIP())

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Tokens (creation is the only unauthenticated write)
		api.POST("/tokens", writeRL.Handler(), h.CreateToken)
		api.DELETE("/tokens/:token", readRL.Handler(), h.RevokeToken)

		// Reviews
		api.POST("/reviews", auth, idem, writeRL.Handler(), h.SubmitReview)
		api.DELETE("/reviews/:review_id", auth, readRL.Handler(), h.DeleteReview)
		api.PATCH("/reviews/:review_id/status", auth, readRL.Handler(), h.UpdateReviewStatus)

		// Product views
		api.GET("/products/:product_id/reviews", auth, readRL.Handler(), h.ListReviews)
		api.GET("/products/:product_id/summary", auth, readRL.Handler(), h.ProductSummary)
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

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
