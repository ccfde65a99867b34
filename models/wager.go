package models

import (
	"gorm.io/gorm"
	"time"
)

const (
	WagerStatusPending   = "pending"
	WagerStatusActive    = "active"
	WagerStatusCompleted = "completed"
	WagerStatusFailed    = "failed"
	WagerStatusCancelled = "cancelled"
)

type Wager struct {
	gorm.Model
	ID                     uint   `gorm:"primaryKey"`
	OwnerID                string `gorm:"index:idx_wager_owner_guild; size:64"`
	GuildID                string `gorm:"index:idx_wager_owner_guild; size:64"`
	Title                  *string
	Task                   string
	Consequence            string
	DeadlineHours          int
	Deadline               time.Time `gorm:"index"`
	Status                 string    `gorm:"index; size:16"`
	ProofURL               *string
	VerificationPassed     *bool
	VerificationConfidence *int
	VerificationReasoning  *string
	CompletedAt            *time.Time
	ResolvedAt             *time.Time
	OwnerSettled           bool `gorm:"default:false"` // completion reward or failure penalty applied
	MessageID              *string
	ChannelID              string
	Tasks                  []Task `gorm:"foreignKey:WagerID"`
}

// IsTerminal reports whether the wager can no longer change status.
func (w Wager) IsTerminal() bool {
	return w.Status == WagerStatusCompleted || w.Status == WagerStatusFailed || w.Status == WagerStatusCancelled
}

// HasPassingVerification reports whether the stored verification result clears the threshold.
func (w Wager) HasPassingVerification(threshold int) bool {
	return w.VerificationPassed != nil && *w.VerificationPassed &&
		w.VerificationConfidence != nil && *w.VerificationConfidence >= threshold
}

// Description returns the title of a multi-task wager, or the task text otherwise.
func (w Wager) Description() string {
	if w.Title != nil && *w.Title != "" {
		return *w.Title
	}
	return w.Task
}
