package setting

import "time"

const (
	KeyGreeting = "greeting"
	KeyEscrow   = "escrow"
)

// Setting is a persisted scalar configuration value (greeting text, escrow
// address).
type Setting struct {
	ID        uint64    `gorm:"primaryKey;column:id"`
	Key       string    `gorm:"size:32;uniqueIndex:ux_settings_key;column:key_name"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }
