package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"uav-fleet-backend/config"
	"uav-fleet-backend/internal/docking"
	"uav-fleet-backend/internal/geofence"
	"uav-fleet-backend/internal/mw"
	"uav-fleet-backend/internal/store"
	"uav-fleet-backend/internal/tracker"
)

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, s store.Store, coordinator *docking.Coordinator, trk *tracker.Tracker, evaluator *geofence.Evaluator, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, coordinator, trk, evaluator, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/stations", caching, handler.ListStations)
		api.GET("/stations/nearest", handler.NearestStation)

		api.GET("/uavs", handler.ListUAVs)
		api.GET("/uavs/:uav_id", handler.GetUAV)
		api.POST("/uavs/:uav_id/dock", handler.Dock)
		api.POST("/uavs/:uav_id/undock", handler.Undock)
		api.POST("/uavs/:uav_id/undock/emergency", handler.EmergencyUndock)
		api.POST("/uavs/:uav_id/hibernate", handler.JoinHibernation)
		api.DELETE("/uavs/:uav_id/hibernate", handler.LeaveHibernation)

		api.POST("/uavs/:uav_id/position", handler.UpdatePosition)
		api.POST("/positions/bulk", handler.BulkUpdate)
		api.GET("/uavs/:uav_id/history", handler.History)

		api.GET("/geofences", caching, handler.ListGeofences)
		api.GET("/fleet/stats", handler.FleetStats)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
