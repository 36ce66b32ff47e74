package model

import "time"

// WorkOrderAssignment remembers which technician a work order was last seen
// assigned to, so new assignments can be detected between polls.
type WorkOrderAssignment struct {
	RecordID    string    `gorm:"primaryKey;size:64"`
	WorkOrderID string    `gorm:"size:128;not null"`
	Technician  string    `gorm:"size:256;not null;index"`
	Step        string    `gorm:"size:64"`
	Priority    string    `gorm:"size:32"`
	UpdatedAt   time.Time `gorm:"not null"`
}
