package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"fieldops-map-backend/config"
	"fieldops-map-backend/internal/logging"
	"fieldops-map-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(server config.ServerConfig, d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(logging.Component("http")))

	handler := NewHandler(d)

	rateLimiter := mw.RateLimiter(rate.Limit(server.RateLimitPerSec), server.RateLimitBurst, server.RequestIPHeader)

	ttl := server.CacheTTL()
	caching := mw.Cache(cache.New(ttl, 10*time.Minute), ttl)

	r.GET("/healthz", handler.Healthz)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/airtable", handler.GetAirtable)
		api.GET("/locations", caching, handler.GetLocations)
		api.GET("/filters", caching, handler.GetFilters)
		api.GET("/map", caching, handler.GetMap)

		api.GET("/technicians/:id/track", handler.GetTechnicianTrack)
		api.GET("/runs", handler.GetRuns)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
