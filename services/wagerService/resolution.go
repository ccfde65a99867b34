package wagerService

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"wagerBot/models"
	"wagerBot/services/betService"
	"wagerBot/services/common"
	"wagerBot/services/extService"
	"wagerBot/services/ledgerService"
	"wagerBot/services/messageService"
)

// Resolution is everything one delivery of a wager's resolution changed.
type Resolution struct {
	Wager      models.Wager
	Bets       *betService.SettlementSummary
	Refunds    []betService.BetSettlement
	Parlays    []models.Parlay
	OwnerDelta int64
}

// transition moves an active wager into a terminal status exactly once and then delivers
// the resolution. It returns nil when another caller got there first.
func (e *Engine) transition(ctx context.Context, wagerID uint, status string, verdict *extService.VerificationResult, announce bool) (*Resolution, error) {
	now := e.now()
	updates := map[string]interface{}{
		"status":      status,
		"resolved_at": now,
	}
	if status == models.WagerStatusCompleted {
		updates["completed_at"] = now
	}
	if verdict != nil {
		for k, v := range verificationColumns(*verdict) {
			updates[k] = v
		}
	}

	result := e.DB.Model(&models.Wager{}).
		Where("id = ? AND status = ?", wagerID, models.WagerStatusActive).
		UpdateColumns(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	log.Printf("Wager %d moved to %s", wagerID, status)

	return e.deliver(ctx, wagerID, announce)
}

// ResolveWager re-delivers the resolution of a terminal wager. Every effect is guarded by a
// settled flag, so repeating it only finishes work a previous delivery left undone.
func (e *Engine) ResolveWager(ctx context.Context, wagerID uint) (*Resolution, error) {
	return e.deliver(ctx, wagerID, false)
}

// deliver runs the independent consumers of a wager resolution: simple bets, parlay legs
// and the owner's reward or penalty. A failing consumer does not stop the others.
func (e *Engine) deliver(ctx context.Context, wagerID uint, announce bool) (*Resolution, error) {
	wager, err := e.GetWager(wagerID)
	if err != nil {
		return nil, err
	}
	if !wager.IsTerminal() {
		return nil, fmt.Errorf("wager %d is %s, not resolved", wagerID, wager.Status)
	}

	res := &Resolution{Wager: *wager}
	var errs []error

	if wager.Status == models.WagerStatusCancelled {
		res.Refunds, err = betService.RefundBetsForWager(e.DB, wager.ID)
		if err != nil {
			errs = append(errs, err)
		}
		res.Parlays, err = betService.VoidParlayLegs(e.DB, wager.ID)
		if err != nil {
			errs = append(errs, err)
		}
	} else {
		passed := wager.Status == models.WagerStatusCompleted
		res.Bets, err = betService.SettleBetsForWager(e.DB, wager.ID, passed)
		if err != nil {
			errs = append(errs, err)
		}
		res.Parlays, err = betService.SettleParlayLegs(e.DB, wager.ID, passed)
		if err != nil {
			errs = append(errs, err)
		}
		res.OwnerDelta, err = e.settleOwner(*wager)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if announce {
		e.announceResolution(ctx, *res)
	} else {
		e.announceParlays(ctx, res.Parlays)
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		common.LogError(e.DB, wager.GuildID, fmt.Errorf("resolution of wager %d incomplete: %w", wager.ID, joined))
		return res, joined
	}
	return res, nil
}

// settleOwner applies the completion reward or failure penalty once per wager.
func (e *Engine) settleOwner(wager models.Wager) (int64, error) {
	var delta int64
	err := e.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Wager{}).
			Where("id = ? AND owner_settled = ?", wager.ID, false).
			UpdateColumn("owner_settled", true)
		if result.Error != nil || result.RowsAffected == 0 {
			return result.Error
		}

		switch wager.Status {
		case models.WagerStatusCompleted:
			reward := common.CompletionReward(wager.DeadlineHours)
			if err := ledgerService.Credit(tx, wager.OwnerID, wager.GuildID, reward, reward, false); err != nil {
				return err
			}
			delta = reward
		case models.WagerStatusFailed:
			penalty, err := ledgerService.ApplyPenalty(tx, wager.OwnerID, wager.GuildID)
			if err != nil {
				return err
			}
			delta = -penalty
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error settling owner of wager %d: %w", wager.ID, err)
	}
	return delta, nil
}

func (e *Engine) announceResolution(ctx context.Context, res Resolution) {
	e.background(ctx, "announceResolution", func(ctx context.Context) {
		event := messageService.WagerResultEvent{
			Wager:      res.Wager,
			OwnerDelta: res.OwnerDelta,
		}
		if res.Bets != nil {
			event.TotalPool = res.Bets.TotalPool
			event.TotalPaid = res.Bets.TotalPaid
			for _, s := range res.Bets.Settled {
				event.Payouts = append(event.Payouts, messageService.Payout{UserID: s.UserID, Amount: s.Amount, Payout: s.Payout, Won: s.Won})
			}
		}
		if len(res.Refunds) > 0 {
			event.Refunded = true
			for _, s := range res.Refunds {
				event.TotalPool += s.Amount
				event.Payouts = append(event.Payouts, messageService.Payout{UserID: s.UserID, Amount: s.Amount, Payout: s.Payout})
			}
		}

		if res.Wager.Status != models.WagerStatusCancelled {
			confidence := 0
			if res.Wager.VerificationConfidence != nil {
				confidence = *res.Wager.VerificationConfidence
			}
			narration, err := e.Narrator.Narrate(ctx, extService.NarrationRequest{
				Outcome:     res.Wager.Status,
				Task:        res.Wager.Description(),
				Consequence: res.Wager.Consequence,
				Confidence:  confidence,
			})
			if err != nil {
				log.Printf("Narration failed for wager %d: %v", res.Wager.ID, err)
			}
			if narration != nil {
				event.Script = narration.Script
				event.AudioURL = narration.AudioURL
			}
		}

		if err := e.Announcer.WagerResolved(event); err != nil {
			log.Printf("Error announcing result of wager %d: %v", res.Wager.ID, err)
		}
		for _, parlay := range res.Parlays {
			if err := e.Announcer.ParlaySettled(parlay); err != nil {
				log.Printf("Error announcing parlay %d: %v", parlay.ID, err)
			}
		}
	})
}

func (e *Engine) announceParlays(ctx context.Context, parlays []models.Parlay) {
	if len(parlays) == 0 {
		return
	}
	e.background(ctx, "announceParlays", func(ctx context.Context) {
		for _, parlay := range parlays {
			if err := e.Announcer.ParlaySettled(parlay); err != nil {
				log.Printf("Error announcing parlay %d: %v", parlay.ID, err)
			}
		}
	})
}
