package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/config"
	"github.com/stranger-beers/ingestion/internal/auth"
	"github.com/stranger-beers/ingestion/internal/middleware"
	"github.com/stranger-beers/ingestion/internal/registrations"
	"github.com/stranger-beers/ingestion/internal/webhooks"
	"github.com/stranger-beers/ingestion/pkg/response"
)

const serviceName = "stranger-beers-ingestion"

type routerDeps struct {
	cfg           *config.Config
	webhooks      *webhooks.Handler
	registrations *registrations.Handler
	jwt           *auth.JWTService
	ping          func(context.Context) error // nil when the store has nothing to ping
	logger        *zap.Logger
}

func newRouter(d routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(d.logger))

	router.GET("/", func(c *gin.Context) {
		response.OK(c, gin.H{"service": serviceName, "version": version})
	})
	router.GET("/health", func(c *gin.Context) {
		if d.ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.ping(ctx); err != nil {
				d.logger.Warn("health check failed", zap.Error(err))
				response.ServiceUnavailable(c, "database unavailable")
				return
			}
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Webhooks authenticate by signature, not JWT.
	d.webhooks.RegisterRoutes(router)

	admin := router.Group("/admin")
	admin.Use(middleware.JWT(d.jwt), middleware.RequireRole(auth.RoleAdmin))
	d.registrations.RegisterRoutes(admin)

	return router
}
