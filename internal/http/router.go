package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/paperpath/docusign-connect/internal/config"
	"github.com/paperpath/docusign-connect/internal/http/handler"
	httpmiddleware "github.com/paperpath/docusign-connect/internal/http/middleware"
	"github.com/paperpath/docusign-connect/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	connectHandler *handler.ConnectHandler,
	rateLimiter *middleware.RateLimiter,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(httpmiddleware.Session())
	r.Use(otelgin.Middleware(cfg.ServiceName))

	connect := r.Group("/" + cfg.RoutePrefix)
	{
		connect.GET("/login", connectHandler.Login)
		connect.GET("/callback", connectHandler.Callback)
		connect.POST("/event", connectHandler.Event)
		connect.POST("/envelopes", connectHandler.CreateEnvelope)
		connect.POST("/logout", connectHandler.Logout)
	}

	r.GET("/healthz", connectHandler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}
