package devserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sidewayqr/internal/auth"
	"sidewayqr/internal/httpmiddleware"
	"sidewayqr/internal/metrics"
)

// Options configures NewRouter.
type Options struct {
	Issuer          string
	SigningKey      string
	SessionTTL      time.Duration
	RateLimitPerMin int
	Metrics         *metrics.Server
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Healthy reports backing store health for /healthz; nil means always healthy.
	Healthy func(ctx context.Context) bool
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type attendRequest struct {
	Code string `json:"code" binding:"required"`
}

// NewRouter builds the HTTP surface over repo.
func NewRouter(repo Repository, opts Options) *gin.Engine {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin).GinMiddleware())

	metricsHandler := promhttp.Handler()
	if opts.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	r.GET("/healthz", func(c *gin.Context) {
		healthy := opts.Healthy == nil || opts.Healthy(c.Request.Context())
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "store": healthy})
	})

	r.POST("/login", func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			opts.Metrics.Login("bad_request")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := repo.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, ErrInvalidLogin) {
				opts.Metrics.Login("rejected")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
				return
			}
			log.Printf("login lookup failed: %v", err)
			opts.Metrics.Login("error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		tok, err := auth.Issue(user.ID, user.Email, opts.Issuer, opts.SigningKey, opts.SessionTTL)
		if err != nil {
			opts.Metrics.Login("error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		opts.Metrics.Login("ok")
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(auth.CookieName, tok.Value, int(opts.SessionTTL.Seconds()), "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"token": tok.Value, "expires_at": tok.ExpiresAt.Unix()})
	})

	authGroup := r.Group("/events", auth.CookieAuth(opts.SigningKey, opts.Issuer))

	authGroup.GET("", func(c *gin.Context) {
		claims, _ := auth.ClaimsFrom(c)
		events, err := repo.AttendedEvents(c.Request.Context(), claims.Subject)
		if err != nil {
			log.Printf("list events for %s failed: %v", claims.Subject, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list events failed"})
			return
		}
		c.JSON(http.StatusOK, events)
	})

	authGroup.POST("/:id/attend", func(c *gin.Context) {
		eventID, err := strconv.Atoi(c.Param("id"))
		if err != nil || eventID < 0 {
			opts.Metrics.CheckIn("bad_request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}
		var req attendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			opts.Metrics.CheckIn("bad_request")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		claims, _ := auth.ClaimsFrom(c)
		created, err := repo.Attend(c.Request.Context(), claims.Subject, eventID, req.Code)
		switch {
		case errors.Is(err, ErrUnknownEvent):
			opts.Metrics.CheckIn("unknown_event")
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, ErrWrongCode):
			opts.Metrics.CheckIn("wrong_code")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case err != nil:
			log.Printf("attend event %d for %s failed: %v", eventID, claims.Subject, err)
			opts.Metrics.CheckIn("error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "attendance failed"})
		case created:
			opts.Metrics.CheckIn("created")
			c.JSON(http.StatusCreated, gin.H{"event_id": eventID, "status": "attended"})
		default:
			opts.Metrics.CheckIn("already_marked")
			c.JSON(http.StatusOK, gin.H{"event_id": eventID, "status": "already_marked"})
		}
	})

	return r
}
