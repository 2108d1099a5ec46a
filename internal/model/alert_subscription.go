package model

import "time"

// AlertSubscription holds a browser push subscription for geofence
// violation alerts, scoped to the UAVs the subscriber follows.
type AlertSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	UAVs []*UAV `gorm:"many2many:subscription_uav_mapping;"`
}
