package models

import (
	"gorm.io/gorm"
	"time"
)

const (
	TaskStatusActive    = "active"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Task is one ordered sub-task of a multi-task wager.
type Task struct {
	gorm.Model
	ID                     uint `gorm:"primaryKey"`
	WagerID                uint `gorm:"index"`
	Position               int
	Description            string
	DeadlineHours          int
	Deadline               time.Time
	Status                 string `gorm:"size:16"`
	ProofURL               *string
	VerificationPassed     *bool
	VerificationConfidence *int
	VerificationReasoning  *string
	CompletedAt            *time.Time
}
