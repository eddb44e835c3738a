package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"equipment-usage-backend/internal/model"
	"equipment-usage-backend/internal/usage"
)

// equipmentStatusResponse is the flattened structure for the API response.
type equipmentStatusResponse struct {
	model.Equipment
	Status       usage.Status `json:"status"`
	IsAvailable  bool         `json:"isAvailable"`
	CurrentLogID string       `json:"currentLogId,omitempty"`
	BusyUntil    *time.Time   `json:"busyUntil,omitempty"`
}

// GetEquipment handles the GET /api/equipment request with live effective
// statuses derived against a single clock reading.
func (h *Handler) GetEquipment(c *gin.Context) {
	equipment, err := h.store.ListEquipment(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve equipment"})
		return
	}

	openLogs, err := h.store.OpenLogs(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve open logs"})
		return
	}

	now := time.Now().UTC()
	occupying := make(map[string]model.UsageLog)
	for _, lg := range openLogs {
		if usage.IsOccupying(lg, now) {
			occupying[lg.EquipmentID] = lg
		}
	}

	response := make([]equipmentStatusResponse, 0, len(equipment))
	for _, eq := range equipment {
		item := equipmentStatusResponse{Equipment: eq, IsAvailable: true}
		if lg, ok := occupying[eq.ID]; ok {
			item.Status = usage.EffectiveStatus(lg, now)
			item.IsAvailable = false
			item.CurrentLogID = lg.ID
			item.BusyUntil = lg.EndTime
		}
		response = append(response, item)
	}
	c.JSON(http.StatusOK, response)
}
