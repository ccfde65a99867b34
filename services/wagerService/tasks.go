package wagerService

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
	"wagerBot/models"
	"wagerBot/services/common"
	"wagerBot/services/extService"
)

func (e *Engine) getTask(taskID uint) (*models.Task, error) {
	var task models.Task
	err := e.DB.First(&task, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.Reject(common.ErrTaskNotFound, "Task #%d was not found.", taskID)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// SubmitTaskProof attaches proof to one sub-task of an active multi-task wager and verifies it
// in the background.
func (e *Engine) SubmitTaskProof(ctx context.Context, taskID uint, ownerID string, proofURL string) (*models.Task, error) {
	proofURL = strings.TrimSpace(proofURL)
	if proofURL == "" {
		return nil, common.Reject(common.ErrInvalidText, "A proof attachment is required.")
	}
	task, err := e.getTask(taskID)
	if err != nil {
		return nil, err
	}
	wager, err := e.ownedActiveWager(task.WagerID, ownerID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusActive {
		return nil, common.Reject(common.ErrWagerNotActive, "Task #%d is already %s.", taskID, task.Status)
	}
	if !e.now().Before(task.Deadline) {
		return nil, common.Reject(common.ErrWagerNotActive, "The deadline for task #%d has passed.", taskID)
	}

	err = e.DB.Model(&models.Task{}).
		Where("id = ? AND status = ?", task.ID, models.TaskStatusActive).
		UpdateColumn("proof_url", proofURL).Error
	if err != nil {
		return nil, err
	}
	task.ProofURL = &proofURL

	proofed := *task
	parent := *wager
	parent.ProofURL = &proofURL
	e.background(ctx, "verifyTaskProof", func(ctx context.Context) {
		if err := e.Announcer.ProofSubmitted(parent); err != nil {
			log.Printf("Error announcing proof for task %d: %v", proofed.ID, err)
		}
		verdict := e.verify(ctx, extService.VerificationRequest{
			ProofURL:    proofURL,
			Task:        proofed.Description,
			Consequence: parent.Consequence,
		})
		if _, err := e.ApplyTaskVerificationResult(ctx, proofed.ID, verdict); err != nil {
			common.LogError(e.DB, parent.GuildID, err)
		}
	})
	return task, nil
}

// ApplyTaskVerificationResult records a sub-task verdict. Once every sub-task has passed the
// parent wager completes.
func (e *Engine) ApplyTaskVerificationResult(ctx context.Context, taskID uint, result extService.VerificationResult) (*models.Task, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}
	task, err := e.getTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusActive {
		return task, nil
	}

	updates := verificationColumns(result)
	passed := result.Passed && result.Confidence >= common.VerificationThreshold
	if passed {
		updates["status"] = models.TaskStatusCompleted
		updates["completed_at"] = e.now()
	}
	err = e.DB.Model(&models.Task{}).
		Where("id = ? AND status = ?", task.ID, models.TaskStatusActive).
		UpdateColumns(updates).Error
	if err != nil {
		return nil, err
	}
	if !passed {
		return e.getTask(taskID)
	}

	if err := e.completeIfAllTasksPassed(ctx, task.WagerID); err != nil {
		return nil, err
	}
	return e.getTask(taskID)
}

func (e *Engine) completeIfAllTasksPassed(ctx context.Context, wagerID uint) error {
	wager, err := e.GetWager(wagerID)
	if err != nil {
		return err
	}
	if wager.Status != models.WagerStatusActive || len(wager.Tasks) == 0 {
		return nil
	}

	lowest := 100
	for _, task := range wager.Tasks {
		if task.Status != models.TaskStatusCompleted {
			return nil
		}
		if task.VerificationConfidence != nil && *task.VerificationConfidence < lowest {
			lowest = *task.VerificationConfidence
		}
	}

	verdict := extService.VerificationResult{
		Passed:     true,
		Confidence: lowest,
		Reasoning:  fmt.Sprintf("All %d tasks verified.", len(wager.Tasks)),
	}
	_, err = e.transition(ctx, wager.ID, models.WagerStatusCompleted, &verdict, true)
	return err
}
