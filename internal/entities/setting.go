package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Last preference document read from or written to the remote API
	SettingKeyPreferencesSnapshot   = "preferences_snapshot"
	SettingKeyPreferencesSnapshotAt = "preferences_snapshot_at"

	// Connectivity monitor
	SettingKeyConnectivityOnline    = "connectivity_online"
	SettingKeyConnectivityCheckedAt = "connectivity_checked_at"
)
