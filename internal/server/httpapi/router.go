package httpapi

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/saywhat/internal/logging"
	"github.com/dmitrijs2005/saywhat/internal/server/metrics"
)

// RouterConfig controls the routes and CORS policy of NewRouter.
type RouterConfig struct {
	BasePath string
	// AllowedOrigins lists the browser origins allowed by CORS. Empty
	// allows any origin.
	AllowedOrigins []string
	// Metrics, when set, instruments every request and is served on MetricsPath.
	Metrics     *metrics.Metrics
	MetricsPath string
}

// NewRouter builds the gin engine serving the settings routes.
func NewRouter(cfg RouterConfig, service ProfileService, logger logging.Logger) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		router.Use(RequestMetrics(cfg.Metrics))
		router.GET(cfg.MetricsPath, gin.WrapH(cfg.Metrics.Handler()))
	}
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	group := router.Group(cfg.BasePath)
	NewProfileHandler(service, logger).Register(group)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "If-None-Match"},
		ExposeHeaders: []string{"ETag"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	allowed := slices.Clone(origins)
	c.AllowOriginFunc = func(origin string) bool {
		return slices.Contains(allowed, origin)
	}
	return c
}

// RequestLogger logs each request after it has been handled.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}

// RequestMetrics records the count and latency of each request by route template.
func RequestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
