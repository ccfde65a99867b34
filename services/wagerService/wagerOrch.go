package wagerService

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"wagerBot/models"
	"wagerBot/services/common"
	"wagerBot/services/extService"
	"wagerBot/services/ledgerService"
)

const (
	MaxTaskLength        = 500
	MaxConsequenceLength = 300
	MaxTitleLength       = 100
)

type CreateWagerInput struct {
	OwnerID       string
	GuildID       string
	ChannelID     string
	Task          string
	Consequence   string
	DeadlineHours int
}

type TaskInput struct {
	Description   string
	DeadlineHours int
}

type CreateMultiTaskInput struct {
	OwnerID     string
	GuildID     string
	ChannelID   string
	Title       string
	Consequence string
	Tasks       []TaskInput
}

func validateText(field string, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", common.Reject(common.ErrInvalidText, "The %s cannot be empty.", field)
	}
	if utf8.RuneCountInString(value) > max {
		return "", common.Reject(common.ErrInvalidText, "The %s must be at most %d characters.", field, max)
	}
	return value, nil
}

func validateDeadline(hours int) error {
	if !common.ValidDeadlineHours(hours) {
		return common.Reject(common.ErrInvalidDeadline, "The deadline must be between %d and %d hours.", common.MinDeadlineHours, common.MaxDeadlineHours)
	}
	return nil
}

// CreateWager opens a single-task wager and seeds the owner's balance.
func (e *Engine) CreateWager(ctx context.Context, in CreateWagerInput) (*models.Wager, error) {
	task, err := validateText("task", in.Task, MaxTaskLength)
	if err != nil {
		return nil, err
	}
	consequence, err := validateText("consequence", in.Consequence, MaxConsequenceLength)
	if err != nil {
		return nil, err
	}
	if err := validateDeadline(in.DeadlineHours); err != nil {
		return nil, err
	}

	now := e.now()
	wager := models.Wager{
		OwnerID:       in.OwnerID,
		GuildID:       in.GuildID,
		ChannelID:     in.ChannelID,
		Task:          task,
		Consequence:   consequence,
		DeadlineHours: in.DeadlineHours,
		Deadline:      now.Add(time.Duration(in.DeadlineHours) * time.Hour),
		Status:        models.WagerStatusActive,
	}
	wager.CreatedAt = now

	if err := e.insertWager(&wager); err != nil {
		return nil, err
	}
	e.announceCreated(ctx, wager)
	return &wager, nil
}

// CreateMultiTaskWager opens a wager made of ordered sub-tasks. Its deadline is the latest
// sub-task deadline.
func (e *Engine) CreateMultiTaskWager(ctx context.Context, in CreateMultiTaskInput) (*models.Wager, error) {
	title, err := validateText("title", in.Title, MaxTitleLength)
	if err != nil {
		return nil, err
	}
	consequence, err := validateText("consequence", in.Consequence, MaxConsequenceLength)
	if err != nil {
		return nil, err
	}
	if len(in.Tasks) == 0 || len(in.Tasks) > common.MaxSubTasks {
		return nil, common.Reject(common.ErrInvalidText, "A multi-task wager needs between 1 and %d tasks.", common.MaxSubTasks)
	}

	now := e.now()
	wager := models.Wager{
		OwnerID:     in.OwnerID,
		GuildID:     in.GuildID,
		ChannelID:   in.ChannelID,
		Title:       &title,
		Consequence: consequence,
		Status:      models.WagerStatusActive,
	}
	wager.CreatedAt = now

	descriptions := make([]string, 0, len(in.Tasks))
	for idx, t := range in.Tasks {
		description, err := validateText("task", t.Description, MaxTaskLength)
		if err != nil {
			return nil, err
		}
		if err := validateDeadline(t.DeadlineHours); err != nil {
			return nil, err
		}
		deadline := now.Add(time.Duration(t.DeadlineHours) * time.Hour)
		if t.DeadlineHours > wager.DeadlineHours {
			wager.DeadlineHours = t.DeadlineHours
			wager.Deadline = deadline
		}
		wager.Tasks = append(wager.Tasks, models.Task{
			Position:      idx + 1,
			Description:   description,
			DeadlineHours: t.DeadlineHours,
			Deadline:      deadline,
			Status:        models.TaskStatusActive,
		})
		descriptions = append(descriptions, description)
	}
	wager.Task = strings.Join(descriptions, "; ")

	if err := e.insertWager(&wager); err != nil {
		return nil, err
	}
	e.announceCreated(ctx, wager)
	return &wager, nil
}

func (e *Engine) insertWager(wager *models.Wager) error {
	err := e.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := ledgerService.GetOrCreate(tx, wager.OwnerID, wager.GuildID); err != nil {
			return err
		}
		return tx.Create(wager).Error
	})
	if err != nil {
		return err
	}
	log.Printf("Wager %d created: owner=%s guild=%s deadline=%s", wager.ID, wager.OwnerID, wager.GuildID, wager.Deadline.Format(time.RFC3339))
	return nil
}

func (e *Engine) announceCreated(ctx context.Context, wager models.Wager) {
	e.background(ctx, "announceCreated", func(ctx context.Context) {
		handle, err := e.Announcer.WagerCreated(wager)
		if err != nil {
			log.Printf("Error announcing wager %d: %v", wager.ID, err)
			return
		}
		if handle == nil {
			return
		}
		err = e.DB.Model(&models.Wager{}).Where("id = ?", wager.ID).UpdateColumns(map[string]interface{}{
			"message_id": handle.MessageID,
			"channel_id": handle.ChannelID,
		}).Error
		if err != nil {
			log.Printf("Error storing message handle for wager %d: %v", wager.ID, err)
		}
	})
}

// GetWager loads a wager with its tasks.
func (e *Engine) GetWager(wagerID uint) (*models.Wager, error) {
	var wager models.Wager
	err := e.DB.Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).First(&wager, wagerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.Reject(common.ErrWagerNotFound, "Wager #%d was not found.", wagerID)
	}
	if err != nil {
		return nil, err
	}
	return &wager, nil
}

func (e *Engine) ownedActiveWager(wagerID uint, ownerID string) (*models.Wager, error) {
	wager, err := e.GetWager(wagerID)
	if err != nil {
		return nil, err
	}
	if wager.OwnerID != ownerID {
		return nil, common.Reject(common.ErrNotOwner, "Only the owner of wager #%d can do that.", wagerID)
	}
	if wager.Status != models.WagerStatusActive {
		return nil, common.Reject(common.ErrWagerNotActive, "Wager #%d is already %s.", wagerID, wager.Status)
	}
	return wager, nil
}

// SubmitProof attaches proof to an active single-task wager and sends it for verification
// in the background. The wager's status is left to the verification result.
func (e *Engine) SubmitProof(ctx context.Context, wagerID uint, ownerID string, proofURL string) (*models.Wager, error) {
	proofURL = strings.TrimSpace(proofURL)
	if proofURL == "" {
		return nil, common.Reject(common.ErrInvalidText, "A proof attachment is required.")
	}
	wager, err := e.ownedActiveWager(wagerID, ownerID)
	if err != nil {
		return nil, err
	}
	if len(wager.Tasks) > 0 {
		return nil, common.Reject(common.ErrInvalidText, "Wager #%d has several tasks. Submit proof for each task instead.", wagerID)
	}
	if !e.now().Before(wager.Deadline) {
		return nil, common.Reject(common.ErrWagerNotActive, "The deadline for wager #%d has passed.", wagerID)
	}

	result := e.DB.Model(&models.Wager{}).
		Where("id = ? AND status = ?", wager.ID, models.WagerStatusActive).
		UpdateColumn("proof_url", proofURL)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, common.Reject(common.ErrWagerNotActive, "Wager #%d is no longer active.", wagerID)
	}
	wager.ProofURL = &proofURL

	proofed := *wager
	e.background(ctx, "verifyProof", func(ctx context.Context) {
		if err := e.Announcer.ProofSubmitted(proofed); err != nil {
			log.Printf("Error announcing proof for wager %d: %v", proofed.ID, err)
		}
		verdict := e.verify(ctx, extService.VerificationRequest{
			ProofURL:    proofURL,
			Task:        proofed.Task,
			Consequence: proofed.Consequence,
		})
		if _, err := e.ApplyVerificationResult(ctx, proofed.ID, verdict); err != nil {
			common.LogError(e.DB, proofed.GuildID, err)
		}
	})
	return wager, nil
}

// verify asks the judge and degrades to a failed, zero-confidence result if it cannot answer.
func (e *Engine) verify(ctx context.Context, req extService.VerificationRequest) extService.VerificationResult {
	result, err := e.Verifier.Verify(ctx, req)
	if err != nil {
		log.Printf("Verification unavailable: %v", err)
		return extService.Unverified("Verification service unavailable.")
	}
	if err := result.Validate(); err != nil {
		log.Printf("Verification returned an invalid result: %v", err)
		return extService.Unverified("Verification returned an invalid result.")
	}
	return result
}

// ApplyVerificationResult records a verdict for a single-task wager. A pass at or above the
// confidence threshold completes the wager; anything else leaves it active. Verdicts for
// wagers that are no longer active are ignored.
func (e *Engine) ApplyVerificationResult(ctx context.Context, wagerID uint, result extService.VerificationResult) (*models.Wager, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}
	wager, err := e.GetWager(wagerID)
	if err != nil {
		return nil, err
	}
	if len(wager.Tasks) > 0 {
		return nil, common.Reject(common.ErrInvalidText, "Wager #%d has several tasks. Each task is verified on its own.", wagerID)
	}
	if wager.Status != models.WagerStatusActive {
		return wager, nil
	}

	if result.Passed && result.Confidence >= common.VerificationThreshold {
		if _, err := e.transition(ctx, wager.ID, models.WagerStatusCompleted, &result, true); err != nil {
			return nil, err
		}
		return e.GetWager(wagerID)
	}

	err = e.DB.Model(&models.Wager{}).
		Where("id = ? AND status = ?", wager.ID, models.WagerStatusActive).
		UpdateColumns(verificationColumns(result)).Error
	if err != nil {
		return nil, err
	}
	log.Printf("Wager %d verification did not pass: passed=%t confidence=%d", wager.ID, result.Passed, result.Confidence)
	return e.GetWager(wagerID)
}

func verificationColumns(result extService.VerificationResult) map[string]interface{} {
	return map[string]interface{}{
		"verification_passed":     result.Passed,
		"verification_confidence": result.Confidence,
		"verification_reasoning":  result.Reasoning,
	}
}

// ForfeitWager lets the owner give up. The wager fails with a full-confidence forfeit verdict.
func (e *Engine) ForfeitWager(ctx context.Context, wagerID uint, ownerID string) (*Resolution, error) {
	wager, err := e.ownedActiveWager(wagerID, ownerID)
	if err != nil {
		return nil, err
	}
	verdict := extService.VerificationResult{Passed: false, Confidence: 100, Reasoning: "Forfeited by owner."}
	res, err := e.transition(ctx, wager.ID, models.WagerStatusFailed, &verdict, true)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, common.Reject(common.ErrWagerNotActive, "Wager #%d is no longer active.", wagerID)
	}
	return res, nil
}

// CancelWager withdraws an active wager. Stakes are refunded and parlay legs on it are voided.
func (e *Engine) CancelWager(ctx context.Context, wagerID uint, requesterID string, isAdmin bool) (*Resolution, error) {
	wager, err := e.GetWager(wagerID)
	if err != nil {
		return nil, err
	}
	if wager.OwnerID != requesterID && !isAdmin {
		return nil, common.Reject(common.ErrNotOwner, "Only the owner or an admin can cancel wager #%d.", wagerID)
	}
	if wager.Status != models.WagerStatusActive {
		return nil, common.Reject(common.ErrWagerNotActive, "Wager #%d is already %s.", wagerID, wager.Status)
	}
	res, err := e.transition(ctx, wager.ID, models.WagerStatusCancelled, nil, true)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, common.Reject(common.ErrWagerNotActive, "Wager #%d is no longer active.", wagerID)
	}
	return res, nil
}
