// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// caller identity, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/matchday-live/docs"
	"github.com/tbourn/matchday-live/internal/auth"
	"github.com/tbourn/matchday-live/internal/broadcast"
	"github.com/tbourn/matchday-live/internal/config"
	"github.com/tbourn/matchday-live/internal/domain"
	"github.com/tbourn/matchday-live/internal/http/handlers"
	"github.com/tbourn/matchday-live/internal/http/middleware"
	"github.com/tbourn/matchday-live/internal/livesync"
	"github.com/tbourn/matchday-live/internal/repo"
	"github.com/tbourn/matchday-live/internal/services"
)

// timerRepoShim adapts the repository free functions to the
// services.TimerRepo interface expected by the TimerService.
type timerRepoShim struct{}

// GetMatch proxies repo.GetMatch.
func (timerRepoShim) GetMatch(ctx context.Context, db *gorm.DB, id string) (*domain.Match, error) {
	return repo.GetMatch(ctx, db, id)
}

// GetTimerSettings proxies repo.GetTimerSettings.
func (timerRepoShim) GetTimerSettings(ctx context.Context, db *gorm.DB, matchID string) (*domain.MatchTimerSettings, error) {
	return repo.GetTimerSettings(ctx, db, matchID)
}

// SaveTimerSettings proxies repo.SaveTimerSettings.
func (timerRepoShim) SaveTimerSettings(ctx context.Context, db *gorm.DB, s *domain.MatchTimerSettings) error {
	return repo.SaveTimerSettings(ctx, db, s)
}

// idempotencyStore adapts the idempotency repo helpers to
// handlers.IdempotencyStore.
type idempotencyStore struct{ db *gorm.DB }

func (s idempotencyStore) Lookup(ctx context.Context, scope, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, s.db, scope, key, now)
}

func (s idempotencyStore) Save(ctx context.Context, scope, key string, status int, body []byte, now time.Time, ttl time.Duration) error {
	_, err := repo.CreateIdempotency(ctx, s.db, scope, key, status, body, now, ttl)
	return err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. runner executes sync batches for POST /sync; pub fans timer and
// live-blog changes out to subscribers (nil disables fan-out).
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with secret scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (the timer event stream is excluded)
//  7. Metrics
//  8. Authenticate: record cron/admin identity, never reject
//  9. Idempotency validator (before rate limiter to allow bypass on replay)
//  10. Rate limiter (per principal/IP, bypass on replay)
//  11. CORS and Security headers
//
// Route guards (RequireTrigger, RequireAdmin) run after the global chain.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, runner livesync.Runner, pub broadcast.Publisher, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging, redacted unless LOG_REDACT=false
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{
				"X-RapidAPI-Key", // forwarded by some proxies in front of the service
			},
		}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression; SSE must stay unbuffered
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`/timer/stream$`}),
	))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Caller identity (cron secret or admin session)
	r.Use(middleware.Authenticate(cfg.Auth.CronSecret, auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.AdminRole)))

	// 9) Idempotency validation (before rate limiting)
	idem := idempotencyStore{db: db}
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, scope, key string, now time.Time) (bool, error) {
			rec, err := idem.Lookup(ctx, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 10) Token-bucket rate limiter per principal/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByPrincipalOrIP())
	r.Use(rl.Handler())

	// 11) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match",
		middleware.HeaderCronSecret, middleware.HeaderIdempotencyKey}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", middleware.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
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
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
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
	r.GET("/health", func(c *gin.Context) {
		if err := repo.Ping(db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if cfg.PprofEnabled {
		pprof.Register(r)
	}

	// Dependency injection: services ← repo/db/publisher
	h := handlers.New(handlers.Deps{
		Timers:         services.NewTimerService(db, timerRepoShim{}, nil, pub),
		Automation:     &services.AutomationService{DB: db},
		LiveBlog:       &services.LiveBlogService{DB: db, Publisher: pub},
		Matches:        &services.MatchService{DB: db},
		Sync:           runner,
		Idempotency:    idem,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Sync trigger (cron secret or admin)
		api.POST("/sync", middleware.RequireTrigger(), h.TriggerSync)

		// Fan-facing reads, revalidated on every use
		m := api.Group("/matches/:id", middleware.Revalidate())
		m.GET("/live", h.GetLive)
		m.GET("/timer", h.GetTimer)
		m.GET("/timer/stream", h.StreamTimer)
		m.GET("/live-blog", h.ListEntries)

		// Admin
		admin := m.Group("", middleware.RequireAdmin(), middleware.NoStore())
		admin.POST("/timer/:action", h.TimerAction)
		admin.PUT("/timer/extra-time", h.SetExtraTime)
		admin.GET("/automation", h.GetAutomation)
		admin.PUT("/automation", h.PutAutomation)
		admin.POST("/live-blog", h.PostEntry)
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
