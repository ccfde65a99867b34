package wagerService

import (
	"context"
	"errors"
	"fmt"
	"log"

	"wagerBot/models"
	"wagerBot/services/common"
)

// SweepExpired fails every active wager whose deadline has passed without a passing verdict,
// including multi-task wagers with an overdue sub-task. It is safe to run concurrently with
// itself; wagers already moved out of active are skipped. It then retries resolutions that
// stopped partway. It returns how many wagers it failed.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	now := e.now()
	var errs []error
	failed := 0

	var overdueTasks []models.Task
	err := e.DB.Joins("JOIN wagers ON wagers.id = tasks.wager_id").
		Where("tasks.status = ? AND tasks.deadline <= ? AND wagers.status = ?", models.TaskStatusActive, now, models.WagerStatusActive).
		Find(&overdueTasks).Error
	if err != nil {
		return 0, err
	}
	for _, task := range overdueTasks {
		err := e.DB.Model(&models.Task{}).
			Where("id = ? AND status = ?", task.ID, models.TaskStatusActive).
			UpdateColumn("status", models.TaskStatusFailed).Error
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res, err := e.transition(ctx, task.WagerID, models.WagerStatusFailed, nil, true)
		if err != nil {
			errs = append(errs, fmt.Errorf("error failing wager %d for task %d: %w", task.WagerID, task.ID, err))
		}
		if res != nil {
			failed++
		}
	}

	var expired []models.Wager
	err = e.DB.Where("status = ? AND deadline <= ?", models.WagerStatusActive, now).Find(&expired).Error
	if err != nil {
		return failed, err
	}
	for _, wager := range expired {
		if wager.HasPassingVerification(common.VerificationThreshold) {
			continue
		}
		res, err := e.transition(ctx, wager.ID, models.WagerStatusFailed, nil, true)
		if err != nil {
			errs = append(errs, fmt.Errorf("error expiring wager %d: %w", wager.ID, err))
		}
		if res != nil {
			failed++
		}
	}

	if failed > 0 {
		log.Printf("Expiry sweep failed %d wagers", failed)
	}

	if _, err := e.RetryUnsettled(ctx); err != nil {
		errs = append(errs, err)
	}
	return failed, errors.Join(errs...)
}

// RetryUnsettled re-delivers the resolution of every terminal wager that still has work left:
// an owner reward or penalty not applied, an unsettled bet or a pending parlay leg. This is
// what finishes a resolution interrupted between the status change and its settlement.
func (e *Engine) RetryUnsettled(ctx context.Context) (int, error) {
	var wagers []models.Wager
	err := e.DB.Where("status IN ?", []string{models.WagerStatusCompleted, models.WagerStatusFailed, models.WagerStatusCancelled}).
		Where(e.DB.Where("owner_settled = ? AND status IN ?", false, []string{models.WagerStatusCompleted, models.WagerStatusFailed}).
			Or("EXISTS (SELECT 1 FROM bets WHERE bets.wager_id = wagers.id AND bets.settled = ? AND bets.deleted_at IS NULL)", false).
			Or("EXISTS (SELECT 1 FROM parlay_legs WHERE parlay_legs.wager_id = wagers.id AND parlay_legs.status = ? AND parlay_legs.deleted_at IS NULL)", models.LegStatusPending)).
		Find(&wagers).Error
	if err != nil {
		return 0, err
	}

	var errs []error
	retried := 0
	for _, wager := range wagers {
		log.Printf("Retrying unfinished resolution of wager %d (%s)", wager.ID, wager.Status)
		if _, err := e.ResolveWager(ctx, wager.ID); err != nil {
			errs = append(errs, fmt.Errorf("error retrying resolution of wager %d: %w", wager.ID, err))
			continue
		}
		retried++
	}
	return retried, errors.Join(errs...)
}
