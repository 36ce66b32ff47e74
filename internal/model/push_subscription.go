package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Technicians []SubscribedTechnician `gorm:"foreignKey:Endpoint;references:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscribedTechnician links a subscription to a technician display name. Names
// rather than record IDs are used because work orders reference technicians by name.
type SubscribedTechnician struct {
	Endpoint       string `gorm:"primaryKey"`
	TechnicianName string `gorm:"primaryKey;size:256"`
}
