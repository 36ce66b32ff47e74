package model

import "time"

// Technician is a field technician as known from the upstream technicians table.
type Technician struct {
	ID        string    `gorm:"primaryKey;size:64"` // Upstream record ID
	Name      string    `gorm:"size:256;not null;index"`
	Email     string    `gorm:"size:256"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TechnicianPosition is the current position of a technician (hot table).
type TechnicianPosition struct {
	TechnicianID string     `gorm:"primaryKey;size:64"`
	ObservedAt   time.Time  `gorm:"not null"`
	Latitude     float64    `gorm:"not null"`
	Longitude    float64    `gorm:"not null"`
	ReportedAt   *time.Time // Upstream "Location date"
}

// TechnicianTrack is a past position of a technician (cold table). The period is
// the span during which the position was the current one. The key includes
// period_start, the hypertable partitioning column.
type TechnicianTrack struct {
	TechnicianID string     `gorm:"primaryKey;size:64;not null;index" json:"technicianId"`
	Latitude     float64    `gorm:"not null" json:"latitude"`
	Longitude    float64    `gorm:"not null" json:"longitude"`
	ReportedAt   *time.Time `json:"reportedAt"`
	PeriodStart  time.Time  `gorm:"primaryKey;not null;index" json:"periodStart"`
	PeriodEnd    time.Time  `gorm:"not null" json:"periodEnd"`
}
