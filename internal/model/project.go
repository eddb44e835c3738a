package model

import "time"

// Project is a pure id -> display name lookup.
type Project struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:256;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TestProject mirrors Project for the test-project dimension.
type TestProject struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:256;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
