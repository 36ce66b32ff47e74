package model

import "time"

// PollRun records the outcome of one upstream refresh.
type PollRun struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StartedAt   time.Time `gorm:"not null;index" json:"startedAt"`
	FinishedAt  time.Time `gorm:"not null" json:"finishedAt"`
	WorkOrders  int       `gorm:"not null" json:"workOrders"`
	Mappable    int       `gorm:"not null" json:"mappable"`
	Unmappable  int       `gorm:"not null" json:"unmappable"`
	Technicians int       `gorm:"not null" json:"technicians"`
	Error       string    `gorm:"size:1024" json:"error,omitempty"`
}
