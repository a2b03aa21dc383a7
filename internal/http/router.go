package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/textbook-analytics/internal/http/handlers"
	httpMW "github.com/yungbote/textbook-analytics/internal/http/middleware"
)

type RouterConfig struct {
	ResultsHandler *httpH.ResultsHandler
	HealthHandler  *httpH.HealthHandler

	AuthMiddleware  *httpMW.AuthMiddleware
	CacheMiddleware gin.HandlerFunc
	CORSOrigins     []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("textbook-analytics"))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			api.Use(cfg.AuthMiddleware.RequireAuth())
		}
		if cfg.CacheMiddleware != nil {
			api.Use(cfg.CacheMiddleware)
		}

		if cfg.ResultsHandler != nil {
			api.GET("/runs/latest", cfg.ResultsHandler.GetLatestRun)
			api.GET("/runs/:id/results", cfg.ResultsHandler.ListResults)
			api.GET("/runs/:id/predictions", cfg.ResultsHandler.ListPredictions)
		}
	}

	return r
}
