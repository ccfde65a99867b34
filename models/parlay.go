package models

import "gorm.io/gorm"

const (
	ParlayStatusPending   = "pending"
	ParlayStatusWon       = "won"
	ParlayStatusLost      = "lost"
	ParlayStatusCancelled = "cancelled"
	ParlayStatusVoid      = "void"

	LegStatusPending   = "pending"
	LegStatusCorrect   = "correct"
	LegStatusIncorrect = "incorrect"
	LegStatusCancelled = "cancelled"
)

type Parlay struct {
	gorm.Model
	ID              uint   `gorm:"primaryKey"`
	UserID          string `gorm:"index; size:64"`
	GuildID         string `gorm:"size:64"`
	Amount          int64
	Status          string `gorm:"size:16"`
	PotentialPayout int64
	ActualPayout    *int64
	Settled         bool        `gorm:"default:false"`
	Legs            []ParlayLeg `gorm:"foreignKey:ParlayID"`
}

type ParlayLeg struct {
	gorm.Model
	ID         uint   `gorm:"primaryKey"`
	ParlayID   uint   `gorm:"uniqueIndex:leg_parlay_wager_idx"`
	WagerID    uint   `gorm:"uniqueIndex:leg_parlay_wager_idx; index"`
	Wager      Wager  `gorm:"foreignKey:WagerID"`
	Prediction string `gorm:"size:16"`
	Status     string `gorm:"size:16"`
}
