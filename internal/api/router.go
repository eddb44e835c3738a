package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"equipment-usage-backend/config"
	"equipment-usage-backend/internal/mw"
	"equipment-usage-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, webpushOptions *webpush.Options, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, webpushOptions, cfg.Report)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst, cfg.Server.RequestIPHeader)

	// Reports are the only expensive reads; everything else stays uncached so
	// check-ins and checkouts are visible immediately.
	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/equipment", handler.GetEquipment)

		api.POST("/logs", handler.CheckIn)
		api.GET("/logs/:id", handler.GetLog)
		api.POST("/logs/:id/checkout", handler.CheckOut)
		api.POST("/logs/:id/recompute", handler.Recompute)

		api.GET("/reports/cost", caching, handler.GetCostReport)
		api.GET("/reports/cost/export", handler.ExportCostReport)
		api.GET("/reports/utilization", caching, handler.GetUtilization)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
