package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"equipment-usage-backend/internal/model"
	"equipment-usage-backend/internal/usage"
)

// Store defines the interface for all database operations. The accounting
// engine itself never touches the database; this layer materializes its
// inputs and persists its one derivative, the snapshot.
type Store interface {
	DB() *gorm.DB

	ReportInputs(ctx context.Context, rangeStart, rangeEnd time.Time) (usage.Inputs, error)
	ListEquipment(ctx context.Context) ([]model.Equipment, error)
	GetEquipment(ctx context.Context, id string) (*model.Equipment, error)
	CategoryRates(ctx context.Context) (map[string]float64, error)
	OpenLogs(ctx context.Context) ([]model.UsageLog, error)

	CheckIn(ctx context.Context, lg *model.UsageLog) error
	CheckOut(ctx context.Context, id string, endTime time.Time, status string) (*model.UsageLog, error)
	GetLog(ctx context.Context, id string) (*model.UsageLog, error)
	SaveSnapshot(ctx context.Context, id string, snap usage.Snapshot) error

	SweepOverdue(ctx context.Context, now time.Time) ([]string, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// ReportInputs fetches every log overlapping [rangeStart, rangeEnd) along
// with the lookup tables the engine resolves against. Filtering beyond the
// overlap predicate is deliberately left to the engine so that every caller
// shares one implementation of "how much of this record counts".
func (s *gormStore) ReportInputs(ctx context.Context, rangeStart, rangeEnd time.Time) (usage.Inputs, error) {
	var in usage.Inputs

	var logs []model.UsageLog
	if err := s.db.WithContext(ctx).
		Where("start_time < ? AND (end_time IS NULL OR end_time > ?)", rangeEnd, rangeStart).
		Find(&logs).Error; err != nil {
		return in, fmt.Errorf("failed to fetch usage logs: %w", err)
	}
	in.Logs = logs

	equipment, err := s.fetchAllEquipment(ctx)
	if err != nil {
		return in, err
	}
	in.Equipment = equipment

	var categoryRates []model.CategoryRate
	if err := s.db.WithContext(ctx).Find(&categoryRates).Error; err != nil {
		return in, fmt.Errorf("failed to fetch category rates: %w", err)
	}
	in.CategoryRates = make(map[string]float64, len(categoryRates))
	for _, cr := range categoryRates {
		in.CategoryRates[cr.Category] = cr.HourlyRateCents
	}

	var projects []model.Project
	if err := s.db.WithContext(ctx).Find(&projects).Error; err != nil {
		return in, fmt.Errorf("failed to fetch projects: %w", err)
	}
	in.Projects = make(map[string]string, len(projects))
	for _, p := range projects {
		in.Projects[p.ID] = p.Name
	}

	var testProjects []model.TestProject
	if err := s.db.WithContext(ctx).Find(&testProjects).Error; err != nil {
		return in, fmt.Errorf("failed to fetch test projects: %w", err)
	}
	in.TestProjects = make(map[string]string, len(testProjects))
	for _, tp := range testProjects {
		in.TestProjects[tp.ID] = tp.Name
	}

	return in, nil
}

// ListEquipment returns all equipment ordered by name.
func (s *gormStore) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	var equipment []model.Equipment
	if err := s.db.WithContext(ctx).Order("name").Find(&equipment).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch equipment: %w", err)
	}
	return equipment, nil
}

// GetEquipment fetches one piece of equipment by id.
func (s *gormStore) GetEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	var eq model.Equipment
	if err := s.db.WithContext(ctx).First(&eq, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &eq, nil
}

// CategoryRates returns the sparse category-rate override table.
func (s *gormStore) CategoryRates(ctx context.Context) (map[string]float64, error) {
	var rates []model.CategoryRate
	if err := s.db.WithContext(ctx).Find(&rates).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch category rates: %w", err)
	}
	rateMap := make(map[string]float64, len(rates))
	for _, r := range rates {
		rateMap[r.Category] = r.HourlyRateCents
	}
	return rateMap, nil
}

// OpenLogs returns every log that has not been completed yet.
func (s *gormStore) OpenLogs(ctx context.Context) ([]model.UsageLog, error) {
	var logs []model.UsageLog
	if err := s.db.WithContext(ctx).
		Where("status <> ?", model.StatusCompleted).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch open logs: %w", err)
	}
	return logs, nil
}

// CheckIn persists a freshly created usage log.
func (s *gormStore) CheckIn(ctx context.Context, lg *model.UsageLog) error {
	if err := s.db.WithContext(ctx).Create(lg).Error; err != nil {
		return fmt.Errorf("failed to create usage log: %w", err)
	}
	return nil
}

// CheckOut closes a log with the given end time and stored status.
func (s *gormStore) CheckOut(ctx context.Context, id string, endTime time.Time, status string) (*model.UsageLog, error) {
	var lg model.UsageLog
	if err := s.db.WithContext(ctx).First(&lg, "id = ?", id).Error; err != nil {
		return nil, err
	}

	lg.EndTime = &endTime
	lg.Status = status
	if err := s.db.WithContext(ctx).Save(&lg).Error; err != nil {
		return nil, fmt.Errorf("failed to check out log %s: %w", id, err)
	}
	return &lg, nil
}

// GetLog fetches one log by id.
func (s *gormStore) GetLog(ctx context.Context, id string) (*model.UsageLog, error) {
	var lg model.UsageLog
	if err := s.db.WithContext(ctx).First(&lg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &lg, nil
}

// SaveSnapshot writes the computed snapshot back onto the log. The write is
// idempotent: saving an identical snapshot leaves the row semantically
// unchanged, and concurrent writers are resolved last-write-wins by the
// database.
func (s *gormStore) SaveSnapshot(ctx context.Context, id string, snap usage.Snapshot) error {
	updates := map[string]any{
		"snapshot_rate_cents":     snap.RateCents,
		"snapshot_billable_hours": snap.BillableHours,
		"snapshot_cost_cents":     snap.CostCents,
		"snapshot_at":             snap.At,
		"snapshot_source":         string(snap.Source),
	}
	if err := s.db.WithContext(ctx).
		Model(&model.UsageLog{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to save snapshot for log %s: %w", id, err)
	}
	return nil
}

// SweepOverdue finds open logs whose expected end has passed and that have
// not been notified yet, stamps them, and returns the affected equipment IDs
// so the caller can dispatch notifications. Runs in one transaction so a
// crashed sweep never half-notifies.
func (s *gormStore) SweepOverdue(ctx context.Context, now time.Time) ([]string, error) {
	var equipmentIDs []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var due []model.UsageLog
		if err := tx.
			Where("status <> ?", model.StatusCompleted).
			Where("end_time IS NOT NULL AND end_time < ?", now).
			Where("overdue_notified_at IS NULL").
			Find(&due).Error; err != nil {
			return fmt.Errorf("failed to fetch overdue logs: %w", err)
		}
		if len(due) == 0 {
			return nil
		}

		ids := make([]string, 0, len(due))
		seen := make(map[string]bool)
		for _, lg := range due {
			ids = append(ids, lg.ID)
			if !seen[lg.EquipmentID] {
				seen[lg.EquipmentID] = true
				equipmentIDs = append(equipmentIDs, lg.EquipmentID)
			}
		}

		if err := tx.Model(&model.UsageLog{}).
			Where("id IN ?", ids).
			Update("overdue_notified_at", now).Error; err != nil {
			return fmt.Errorf("failed to stamp overdue logs: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return equipmentIDs, nil
}

func (s *gormStore) fetchAllEquipment(ctx context.Context) (map[string]model.Equipment, error) {
	var equipment []model.Equipment
	if err := s.db.WithContext(ctx).Find(&equipment).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch equipment: %w", err)
	}
	equipmentMap := make(map[string]model.Equipment, len(equipment))
	for _, e := range equipment {
		equipmentMap[e.ID] = e
	}
	return equipmentMap, nil
}
