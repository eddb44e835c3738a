package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"equipment-usage-backend/internal/model"
	"equipment-usage-backend/internal/usage"
)

type checkInRequest struct {
	EquipmentID   string     `json:"equipment_id" binding:"required"`
	ProjectID     *string    `json:"project_id"`
	TestProjectID *string    `json:"test_project_id"`
	UserName      string     `json:"user_name"`
	Notes         string     `json:"notes"`
	StartTime     *time.Time `json:"start_time"`
}

// CheckIn handles POST /api/logs.
func (h *Handler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.store.GetEquipment(c.Request.Context(), req.EquipmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up equipment"})
		}
		return
	}

	now := time.Now().UTC()
	start := now
	status := model.StatusInProgress
	if req.StartTime != nil {
		start = req.StartTime.UTC()
		if start.After(now) {
			status = model.StatusNotStarted
		}
	}

	lg := model.UsageLog{
		ID:            uuid.NewString(),
		EquipmentID:   req.EquipmentID,
		ProjectID:     req.ProjectID,
		TestProjectID: req.TestProjectID,
		UserName:      req.UserName,
		Notes:         req.Notes,
		StartTime:     start,
		Status:        status,
	}
	if err := h.store.CheckIn(c.Request.Context(), &lg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create usage log"})
		return
	}

	c.JSON(http.StatusCreated, lg)
}

type checkOutRequest struct {
	EndTime *time.Time `json:"end_time"`
}

// CheckOut handles POST /api/logs/:id/checkout. Completion is the one moment
// a log gains its persisted snapshot.
func (h *Handler) CheckOut(c *gin.Context) {
	// The body is optional; an absent body means "end now".
	var req checkOutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	now := time.Now().UTC()
	end := now
	if req.EndTime != nil {
		end = req.EndTime.UTC()
	}

	lg, err := h.store.CheckOut(c.Request.Context(), c.Param("id"), end, model.StatusCompleted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "usage log not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check out"})
		}
		return
	}

	eq, rates, ok := h.rateInputs(c, lg.EquipmentID)
	if !ok {
		return
	}
	// ok=false here means the log has no usable interval, which is not an
	// error; the checkout still succeeds, just without a snapshot.
	if snap, ok := usage.ComputeSnapshot(*lg, eq, rates, now); ok {
		if err := h.store.SaveSnapshot(c.Request.Context(), lg.ID, snap); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save snapshot"})
			return
		}
		applySnapshot(lg, snap)
	}

	c.JSON(http.StatusOK, lg)
}

// GetLog handles GET /api/logs/:id.
func (h *Handler) GetLog(c *gin.Context) {
	lg, err := h.store.GetLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "usage log not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve usage log"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"log":              lg,
		"effective_status": usage.EffectiveStatus(*lg, time.Now().UTC()),
	})
}

// Recompute handles POST /api/logs/:id/recompute. The diff goes to the audit
// log; a log with no usable interval reports updated=false so the caller can
// flag it for investigation instead of guessing an end time.
func (h *Handler) Recompute(c *gin.Context) {
	lg, err := h.store.GetLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "usage log not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve usage log"})
		}
		return
	}

	eq, rates, ok := h.rateInputs(c, lg.EquipmentID)
	if !ok {
		return
	}

	now := time.Now().UTC()
	result := usage.RecomputeSnapshot(*lg, eq, rates, now)
	if result.Updated {
		if err := h.store.SaveSnapshot(c.Request.Context(), lg.ID, *result.Next); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save snapshot"})
			return
		}
	}
	log.Printf("audit: recompute log=%s updated=%t previous=%+v next=%+v", lg.ID, result.Updated, result.Previous, result.Next)

	c.JSON(http.StatusOK, result)
}

// rateInputs fetches the equipment and category-rate table for snapshot
// computation. A missing equipment row is a data-quality problem, not an
// error: the engine falls through to a zero rate.
func (h *Handler) rateInputs(c *gin.Context, equipmentID string) (*model.Equipment, map[string]float64, bool) {
	eq, err := h.store.GetEquipment(c.Request.Context(), equipmentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up equipment"})
		return nil, nil, false
	}
	rates, err := h.store.CategoryRates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up category rates"})
		return nil, nil, false
	}
	return eq, rates, true
}

func applySnapshot(lg *model.UsageLog, snap usage.Snapshot) {
	lg.SnapshotRateCents = &snap.RateCents
	lg.SnapshotBillableHours = &snap.BillableHours
	lg.SnapshotCostCents = &snap.CostCents
	lg.SnapshotAt = &snap.At
	lg.SnapshotSource = string(snap.Source)
}
