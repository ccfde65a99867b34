package models

import "gorm.io/gorm"

// Reward is the audit record of an administrative grant or penalty. Rows are never updated.
type Reward struct {
	gorm.Model
	ID          uint   `gorm:"primaryKey"`
	GuildID     string `gorm:"index; size:64"`
	RecipientID string `gorm:"size:64"`
	Amount      int64  // as requested
	Applied     int64  // after clamping at zero
	Reason      string
	IssuerID    string `gorm:"size:64"`
}
