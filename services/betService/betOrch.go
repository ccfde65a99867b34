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

type PlaceBetInput struct {
	WagerID    uint
	UserID     string
	GuildID    string
	Prediction string
	Amount     int64
	Comment    *string
}

// PlaceBet validates and records a bet, escrowing the stake from the bettor's balance.
func PlaceBet(db *gorm.DB, in PlaceBetInput, now time.Time) (*models.Bet, *models.User, error) {
	in.Prediction = strings.ToLower(strings.TrimSpace(in.Prediction))
	if !models.IsValidPrediction(in.Prediction) {
		return nil, nil, common.Reject(common.ErrInvalidPrediction, "Prediction must be `success` or `fail`.")
	}
	if in.Amount < common.MinimumStake {
		return nil, nil, common.Reject(common.ErrStakeTooLow, "The minimum bet is %d points.", common.MinimumStake)
	}

	var bet models.Bet
	var user *models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		wager, err := lockActiveWager(tx, in.WagerID, in.GuildID, now)
		if err != nil {
			return err
		}
		if wager.OwnerID == in.UserID {
			return common.Reject(common.ErrSelfBet, "You cannot bet on your own wager.")
		}

		var existing int64
		if err := tx.Model(&models.Bet{}).Where("wager_id = ? AND user_id = ?", wager.ID, in.UserID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return common.Reject(common.ErrDuplicateBet, "You already have a bet on this wager.")
		}

		if err := requireEligible(tx, in.UserID, in.GuildID, now); err != nil {
			return err
		}

		user, err = ledgerService.GetForUpdate(tx, in.UserID, in.GuildID)
		if err != nil {
			return err
		}
		if err := ledgerService.Escrow(tx, user, in.Amount); err != nil {
			return err
		}

		bet = models.Bet{
			WagerID:    wager.ID,
			UserID:     in.UserID,
			GuildID:    in.GuildID,
			Prediction: in.Prediction,
			Amount:     in.Amount,
			Comment:    in.Comment,
		}
		return tx.Create(&bet).Error
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("Bet %d placed: user=%s wager=%d prediction=%s amount=%d", bet.ID, in.UserID, in.WagerID, in.Prediction, in.Amount)
	return &bet, user, nil
}

// lockActiveWager loads the wager for update so a concurrent resolution waits for the caller.
func lockActiveWager(tx *gorm.DB, wagerID uint, guildID string, now time.Time) (*models.Wager, error) {
	var wager models.Wager
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wager, wagerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.Reject(common.ErrWagerNotFound, "Wager #%d was not found.", wagerID)
	}
	if err != nil {
		return nil, err
	}
	if wager.GuildID != guildID {
		return nil, common.Reject(common.ErrCommunityMismatch, "Wager #%d belongs to another server.", wagerID)
	}
	if wager.Status != models.WagerStatusActive || !now.Before(wager.Deadline) {
		return nil, common.Reject(common.ErrWagerNotActive, "Wager #%d is no longer open for bets.", wagerID)
	}
	return &wager, nil
}

func requireEligible(tx *gorm.DB, userID string, guildID string, now time.Time) error {
	eligible, err := ledgerService.IsEligible(tx, userID, guildID, now)
	if err != nil {
		return err
	}
	if !eligible {
		return common.Reject(common.ErrNotEligible, "You need to create at least one wager this week before you can bet.")
	}
	return nil
}

type BetSettlement struct {
	BetID  uint
	UserID string
	Amount int64
	Payout int64
	Won    bool
}

type SettlementSummary struct {
	WagerID     uint
	Passed      bool
	TotalPool   int64
	WinningPool int64
	TotalPaid   int64
	Settled     []BetSettlement
}

// SettleBetsForWager pays out the proportional pool for a resolved wager. Bets that are
// already settled are skipped, so replaying a resolution changes nothing.
func SettleBetsForWager(db *gorm.DB, wagerID uint, passed bool) (*SettlementSummary, error) {
	var bets []models.Bet
	if err := db.Where("wager_id = ?", wagerID).Order("id").Find(&bets).Error; err != nil {
		return nil, err
	}

	summary := &SettlementSummary{WagerID: wagerID, Passed: passed}
	winningOutcome := models.OutcomeFor(passed)
	unsettled := 0
	for _, bet := range bets {
		summary.TotalPool += bet.Amount
		if bet.Prediction == winningOutcome {
			summary.WinningPool += bet.Amount
		}
		if !bet.Settled {
			unsettled++
		}
	}
	if unsettled == 0 {
		return summary, nil
	}

	for _, bet := range bets {
		if bet.Settled {
			continue
		}
		won := bet.Prediction == winningOutcome && summary.WinningPool > 0
		payout := int64(0)
		if won {
			payout = common.ProportionalPayout(bet.Amount, summary.WinningPool, summary.TotalPool)
		}

		applied, err := settleBet(db, bet, payout, won)
		if err != nil {
			return summary, fmt.Errorf("error settling bet %d: %w", bet.ID, err)
		}
		if !applied {
			continue
		}
		summary.TotalPaid += payout
		summary.Settled = append(summary.Settled, BetSettlement{
			BetID:  bet.ID,
			UserID: bet.UserID,
			Amount: bet.Amount,
			Payout: payout,
			Won:    won,
		})
	}

	log.Printf("Settled %d bets for wager %d: pool=%d winning=%d paid=%d", len(summary.Settled), wagerID, summary.TotalPool, summary.WinningPool, summary.TotalPaid)
	return summary, nil
}

// settleBet marks one bet settled and credits the bettor atomically. It reports false when
// the bet had already been settled by someone else.
func settleBet(db *gorm.DB, bet models.Bet, payout int64, won bool) (bool, error) {
	applied := false
	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Bet{}).
			Where("id = ? AND settled = ?", bet.ID, false).
			UpdateColumns(map[string]interface{}{"settled": true, "payout": payout})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		applied = true

		if won {
			return ledgerService.Credit(tx, bet.UserID, bet.GuildID, payout, payout-bet.Amount, true)
		}
		return ledgerService.RecordLoss(tx, bet.UserID, bet.GuildID, bet.Amount)
	})
	return applied, err
}

// RefundBetsForWager returns every unsettled stake on a cancelled wager.
func RefundBetsForWager(db *gorm.DB, wagerID uint) ([]BetSettlement, error) {
	var bets []models.Bet
	if err := db.Where("wager_id = ? AND settled = ?", wagerID, false).Find(&bets).Error; err != nil {
		return nil, err
	}

	var refunds []BetSettlement
	for _, bet := range bets {
		applied := false
		err := db.Transaction(func(tx *gorm.DB) error {
			result := tx.Model(&models.Bet{}).
				Where("id = ? AND settled = ?", bet.ID, false).
				UpdateColumns(map[string]interface{}{"settled": true, "payout": bet.Amount})
			if result.Error != nil || result.RowsAffected == 0 {
				return result.Error
			}
			applied = true
			return ledgerService.Credit(tx, bet.UserID, bet.GuildID, bet.Amount, 0, false)
		})
		if err != nil {
			return refunds, fmt.Errorf("error refunding bet %d: %w", bet.ID, err)
		}
		if applied {
			refunds = append(refunds, BetSettlement{BetID: bet.ID, UserID: bet.UserID, Amount: bet.Amount, Payout: bet.Amount})
		}
	}
	return refunds, nil
}

type Pool struct {
	Success      int64
	Fail         int64
	SuccessCount int
	FailCount    int
}

// WagerPool totals the stakes on each side of a wager.
func WagerPool(db *gorm.DB, wagerID uint) (Pool, error) {
	var bets []models.Bet
	var pool Pool
	if err := db.Where("wager_id = ?", wagerID).Find(&bets).Error; err != nil {
		return pool, err
	}
	for _, bet := range bets {
		if bet.Prediction == models.PredictionSuccess {
			pool.Success += bet.Amount
			pool.SuccessCount++
		} else {
			pool.Fail += bet.Amount
			pool.FailCount++
		}
	}
	return pool, nil
}

// OpenBets lists the user's unsettled bets in the guild.
func OpenBets(db *gorm.DB, userID string, guildID string) ([]models.Bet, error) {
	var bets []models.Bet
	err := db.Preload("Wager").
		Where("user_id = ? AND guild_id = ? AND settled = ?", userID, guildID, false).
		Order("id").
		Find(&bets).Error
	return bets, err
}
