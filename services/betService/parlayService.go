package betService

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"wagerBot/models"
	"wagerBot/services/common"
	"wagerBot/services/ledgerService"
)

type LegInput struct {
	WagerID    uint
	Prediction string
}

type CreateParlayInput struct {
	UserID  string
	GuildID string
	Amount  int64
	Legs    []LegInput
}

// CreateParlay validates the legs, escrows the stake and records the parlay with its
// potential payout fixed at floor(stake * 1.5^legs).
func CreateParlay(db *gorm.DB, in CreateParlayInput, now time.Time) (*models.Parlay, *models.User, error) {
	if len(in.Legs) < common.MinParlayLegs || len(in.Legs) > common.MaxParlayLegs {
		return nil, nil, common.Reject(common.ErrLegCount, "A parlay needs between %d and %d legs.", common.MinParlayLegs, common.MaxParlayLegs)
	}
	if in.Amount < common.MinimumStake {
		return nil, nil, common.Reject(common.ErrStakeTooLow, "The minimum bet is %d points.", common.MinimumStake)
	}

	seen := make(map[uint]bool, len(in.Legs))
	wagerIDs := make([]uint, 0, len(in.Legs))
	for idx, leg := range in.Legs {
		in.Legs[idx].Prediction = strings.ToLower(strings.TrimSpace(leg.Prediction))
		if !models.IsValidPrediction(in.Legs[idx].Prediction) {
			return nil, nil, common.Reject(common.ErrInvalidPrediction, "Leg %d: prediction must be `success` or `fail`.", idx+1)
		}
		if seen[leg.WagerID] {
			return nil, nil, common.Reject(common.ErrDuplicateLeg, "Wager #%d appears more than once.", leg.WagerID)
		}
		seen[leg.WagerID] = true
		wagerIDs = append(wagerIDs, leg.WagerID)
	}

	var parlay models.Parlay
	var user *models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		var wagers []models.Wager
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id IN ?", wagerIDs).Find(&wagers).Error; err != nil {
			return err
		}
		byID := make(map[uint]models.Wager, len(wagers))
		for _, w := range wagers {
			byID[w.ID] = w
		}

		for _, id := range wagerIDs {
			w, ok := byID[id]
			if !ok {
				return common.Reject(common.ErrWagerNotFound, "Wager #%d was not found.", id)
			}
			if w.GuildID != in.GuildID {
				return common.Reject(common.ErrCommunityMismatch, "Wager #%d belongs to another server.", id)
			}
			if w.OwnerID == in.UserID {
				return common.Reject(common.ErrSelfBet, "You cannot include your own wager #%d in a parlay.", id)
			}
			if w.Status != models.WagerStatusActive || !now.Before(w.Deadline) {
				return common.Reject(common.ErrWagerNotActive, "Wager #%d is no longer open for bets.", id)
			}
		}

		if err := requireEligible(tx, in.UserID, in.GuildID, now); err != nil {
			return err
		}

		var err error
		user, err = ledgerService.GetForUpdate(tx, in.UserID, in.GuildID)
		if err != nil {
			return err
		}
		if err := ledgerService.Escrow(tx, user, in.Amount); err != nil {
			return err
		}

		parlay = models.Parlay{
			UserID:          in.UserID,
			GuildID:         in.GuildID,
			Amount:          in.Amount,
			Status:          models.ParlayStatusPending,
			PotentialPayout: common.ParlayPotentialPayout(in.Amount, len(in.Legs)),
		}
		for _, leg := range in.Legs {
			parlay.Legs = append(parlay.Legs, models.ParlayLeg{
				WagerID:    leg.WagerID,
				Prediction: leg.Prediction,
				Status:     models.LegStatusPending,
			})
		}
		return tx.Create(&parlay).Error
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("Parlay %d placed: user=%s legs=%d amount=%d potential=%d", parlay.ID, in.UserID, len(parlay.Legs), parlay.Amount, parlay.PotentialPayout)
	return &parlay, user, nil
}

// SettleParlayLegs grades every leg on the resolved wager and settles the parlays that can
// now be decided. It returns the parlays that were settled by this call.
func SettleParlayLegs(db *gorm.DB, wagerID uint, passed bool) ([]models.Parlay, error) {
	var legs []models.ParlayLeg
	if err := db.Where("wager_id = ?", wagerID).Find(&legs).Error; err != nil {
		return nil, err
	}

	outcome := models.OutcomeFor(passed)
	for _, leg := range legs {
		status := models.LegStatusIncorrect
		if leg.Prediction == outcome {
			status = models.LegStatusCorrect
		}
		err := db.Model(&models.ParlayLeg{}).
			Where("id = ? AND status = ?", leg.ID, models.LegStatusPending).
			UpdateColumn("status", status).Error
		if err != nil {
			return nil, fmt.Errorf("error grading parlay leg %d: %w", leg.ID, err)
		}
	}

	return evaluateParlays(db, legs)
}

// VoidParlayLegs cancels every leg on a withdrawn wager. Parlays left with fewer than two
// live legs are voided and refunded; the rest get their potential payout recomputed.
func VoidParlayLegs(db *gorm.DB, wagerID uint) ([]models.Parlay, error) {
	var legs []models.ParlayLeg
	if err := db.Where("wager_id = ?", wagerID).Find(&legs).Error; err != nil {
		return nil, err
	}

	for _, leg := range legs {
		err := db.Model(&models.ParlayLeg{}).
			Where("id = ? AND status = ?", leg.ID, models.LegStatusPending).
			UpdateColumn("status", models.LegStatusCancelled).Error
		if err != nil {
			return nil, fmt.Errorf("error cancelling parlay leg %d: %w", leg.ID, err)
		}
	}

	return evaluateParlays(db, legs)
}

func evaluateParlays(db *gorm.DB, legs []models.ParlayLeg) ([]models.Parlay, error) {
	var settled []models.Parlay
	visited := make(map[uint]bool)
	for _, leg := range legs {
		if visited[leg.ParlayID] {
			continue
		}
		visited[leg.ParlayID] = true

		parlay, err := evaluateParlay(db, leg.ParlayID)
		if err != nil {
			return settled, fmt.Errorf("error evaluating parlay %d: %w", leg.ParlayID, err)
		}
		if parlay != nil {
			settled = append(settled, *parlay)
		}
	}
	return settled, nil
}

// evaluateParlay decides one parlay from its legs. A single incorrect leg loses the parlay
// straight away. It returns the parlay only when this call settled it.
func evaluateParlay(db *gorm.DB, parlayID uint) (*models.Parlay, error) {
	var result *models.Parlay
	err := db.Transaction(func(tx *gorm.DB) error {
		var parlay models.Parlay
		err := tx.Preload("Legs").First(&parlay, parlayID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if parlay.Settled {
			return nil
		}

		live, incorrect, correct := 0, 0, 0
		for _, leg := range parlay.Legs {
			switch leg.Status {
			case models.LegStatusCancelled:
				continue
			case models.LegStatusIncorrect:
				incorrect++
			case models.LegStatusCorrect:
				correct++
			}
			live++
		}

		potential := common.ParlayPotentialPayout(parlay.Amount, live)
		var status string
		var payout int64
		switch {
		case incorrect > 0:
			status, payout = models.ParlayStatusLost, 0
		case live < common.MinParlayLegs:
			status, payout = models.ParlayStatusVoid, parlay.Amount
			potential = parlay.PotentialPayout
		case correct == live:
			status, payout = models.ParlayStatusWon, potential
		default:
			if potential != parlay.PotentialPayout {
				return tx.Model(&models.Parlay{}).Where("id = ? AND settled = ?", parlay.ID, false).
					UpdateColumn("potential_payout", potential).Error
			}
			return nil
		}

		update := tx.Model(&models.Parlay{}).
			Where("id = ? AND settled = ?", parlay.ID, false).
			UpdateColumns(map[string]interface{}{
				"status":           status,
				"settled":          true,
				"actual_payout":    payout,
				"potential_payout": potential,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return nil
		}

		switch status {
		case models.ParlayStatusWon:
			err = ledgerService.Credit(tx, parlay.UserID, parlay.GuildID, payout, payout, true)
		case models.ParlayStatusVoid:
			err = ledgerService.Credit(tx, parlay.UserID, parlay.GuildID, payout, 0, false)
		case models.ParlayStatusLost:
			err = ledgerService.RecordLoss(tx, parlay.UserID, parlay.GuildID, parlay.Amount)
		}
		if err != nil {
			return err
		}

		parlay.Status = status
		parlay.Settled = true
		parlay.ActualPayout = &payout
		parlay.PotentialPayout = potential
		result = &parlay
		log.Printf("Parlay %d settled: status=%s payout=%d", parlay.ID, status, payout)
		return nil
	})
	return result, err
}

// ActiveParlays lists the user's unsettled parlays in the guild.
func ActiveParlays(db *gorm.DB, userID string, guildID string) ([]models.Parlay, error) {
	var parlays []models.Parlay
	err := db.Preload("Legs").Preload("Legs.Wager").
		Where("user_id = ? AND guild_id = ? AND settled = ?", userID, guildID, false).
		Order("id").
		Find(&parlays).Error
	return parlays, err
}
