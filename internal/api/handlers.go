// internal/api/handlers.go
package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"listing-search-workers/internal/common/logger"
	"listing-search-workers/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Searcher runs one listing search. *search.Service satisfies it.
type Searcher interface {
	Search(ctx context.Context, q search.Query) *search.Response
}

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// API holds dependencies for the HTTP handlers.
type API struct {
	searcher     Searcher
	checks       map[string]ReadinessCheck
	checkTimeout time.Duration
	serviceName  string
	logger       logger.Logger
}

func NewAPI(searcher Searcher, checks map[string]ReadinessCheck, serviceName string, log logger.Logger) *API {
	return &API{
		searcher:     searcher,
		checks:       checks,
		checkTimeout: 2 * time.Second,
		serviceName:  serviceName,
		logger:       log.WithFields(map[string]interface{}{"component": "http"}),
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(a *API) *gin.Engine {
	router := gin.New()
	router.Use(RequestIDMiddleware(a.logger), RecoveryMiddleware(a.logger))
	SetupRoutes(router, a)
	return router
}

func SetupRoutes(router *gin.Engine, a *API) {
	router.GET("/health", a.HealthCheckHandler)
	router.GET("/ready", a.ReadinessHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiRoutes := router.Group("/api")
	{
		apiRoutes.GET("/listings", a.SearchListingsHandler)
	}
}

// SearchListingsHandler answers GET /api/listings. The response is always
// 200; a failed search is reported in the body as type "error".
func (a *API) SearchListingsHandler(c *gin.Context) {
	query := search.Normalize(search.RawParams(c.Request.URL.Query()))
	resp := a.searcher.Search(c.Request.Context(), query)
	c.JSON(http.StatusOK, resp)
}

// HealthCheckHandler reports liveness only.
func (a *API) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   a.serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessHandler runs every registered check and answers 503 if any fails.
func (a *API) ReadinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), a.checkTimeout)
	defer cancel()

	names := make([]string, 0, len(a.checks))
	for name := range a.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	ready := true
	for _, name := range names {
		if err := a.checks[name](ctx); err != nil {
			ready = false
			results[name] = err.Error()
			a.logger.Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": err.Error(),
			})
			continue
		}
		results[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"checks":    results,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
