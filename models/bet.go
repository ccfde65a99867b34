package models

import "gorm.io/gorm"

const (
	PredictionSuccess = "success"
	PredictionFail    = "fail"
)

type Bet struct {
	gorm.Model
	ID         uint   `gorm:"primaryKey"`
	WagerID    uint   `gorm:"uniqueIndex:bet_wager_user_idx"`
	Wager      Wager  `gorm:"foreignKey:WagerID"`
	UserID     string `gorm:"uniqueIndex:bet_wager_user_idx; size:64"`
	GuildID    string `gorm:"size:64"`
	Prediction string `gorm:"size:16"`
	Amount     int64
	Comment    *string
	Settled    bool `gorm:"default:false; index"`
	Payout     *int64
}

// IsValidPrediction reports whether p is one of the two wager outcomes.
func IsValidPrediction(p string) bool {
	return p == PredictionSuccess || p == PredictionFail
}

// OutcomeFor maps a wager result to the winning prediction.
func OutcomeFor(passed bool) string {
	if passed {
		return PredictionSuccess
	}
	return PredictionFail
}
