package model

import "time"

// Equipment represents a bookable piece of equipment.
type Equipment struct {
	ID   string `gorm:"primaryKey;size:64"`
	Name string `gorm:"size:256;not null"`
	// Category is nil when the equipment has never been categorized. An empty
	// string is a real category key ("uncategorized") and participates in
	// category-rate lookups.
	Category               *string `gorm:"size:128"`
	DefaultHourlyRateCents float64 `gorm:"not null;default:0"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// CategoryRate is a sparse per-category override of the hourly rate.
type CategoryRate struct {
	Category        string  `gorm:"primaryKey;size:128"`
	HourlyRateCents float64 `gorm:"not null"`
}
