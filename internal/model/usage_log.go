package model

import "time"

// Stored lifecycle statuses. Only StatusCompleted is authoritative; the others
// are hints that may be stale relative to the wall clock.
const (
	StatusNotStarted = "not-started"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusOverdue    = "overdue"
)

// UsageLog is a timed record that a piece of equipment was in use, possibly
// still open-ended. A zero StartTime means the start was missing or
// unparsable upstream; the accounting engine treats it as absent.
type UsageLog struct {
	ID            string  `gorm:"primaryKey;size:64"`
	EquipmentID   string  `gorm:"index;size:64;not null"`
	ProjectID     *string `gorm:"index;size:64"`
	TestProjectID *string `gorm:"size:64"`
	StartTime     time.Time
	EndTime       *time.Time
	Status        string `gorm:"size:32;not null;default:not-started"`
	UserName      string `gorm:"size:128"`
	Notes         string `gorm:"size:1024"`

	// Snapshot of the rate/hours/cost that applied at completion or at the
	// last admin recompute. The only persisted derivative.
	SnapshotRateCents     *int64
	SnapshotBillableHours *int64
	SnapshotCostCents     *int64
	SnapshotAt            *time.Time
	SnapshotSource        string `gorm:"size:32"`

	// Set once the overdue sweep has dispatched a notification for this log.
	OverdueNotifiedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Associations
	Equipment Equipment `gorm:"constraint:OnDelete:CASCADE"`
}
