// Package httpapi is the operational HTTP surface of the store process:
// liveness, readiness of the store session and Prometheus metrics. It
// carries no messaging API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-messenger-store/internal/config"
	"github.com/tbourn/go-messenger-store/internal/http/middleware"
)

// Readiness reports whether the store session is established.
type Readiness interface {
	Ready() bool
}

// TableCheck returns the required tables missing from the store.
type TableCheck func(ctx context.Context) ([]string, error)

// Deps are the collaborators behind /ready. Tables may be nil.
type Deps struct {
	Store  Readiness
	Tables TableCheck
}

const tableCheckTimeout = 2 * time.Second

// NewRouter builds the ops engine.
//
// Middleware order: otelgin, RequestID, Logger, Recovery, Metrics.
func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"code": "method_not_allowed", "message": "method not allowed"})
	})

	r.GET("/health", middleware.Quiet(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", middleware.Quiet(), readyHandler(cfg.Driver, deps))
	r.GET("/metrics", middleware.Quiet(), gin.WrapH(promhttp.Handler()))

	return r
}

func readyHandler(driver string, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps.Store == nil || !deps.Store.Ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "connecting", "driver": driver})
			return
		}
		if deps.Tables != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), tableCheckTimeout)
			defer cancel()
			missing, err := deps.Tables(ctx)
			if err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unknown", "driver": driver})
				return
			}
			if len(missing) > 0 {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "schema_incomplete", "driver": driver, "missing": missing})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "driver": driver})
	}
}
