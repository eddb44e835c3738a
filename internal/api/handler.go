package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"equipment-usage-backend/config"
	"equipment-usage-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	webpush *webpush.Options
	report  config.ReportConfig
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, webpushOptions *webpush.Options, reportCfg config.ReportConfig) *Handler {
	return &Handler{
		store:   s,
		webpush: webpushOptions,
		report:  reportCfg,
	}
}
