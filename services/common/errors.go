package common

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"wagerBot/models"
)

var (
	ErrWagerNotFound       = errors.New("wager not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrWagerNotActive      = errors.New("wager is not active")
	ErrNotOwner            = errors.New("only the wager owner can do that")
	ErrInvalidText         = errors.New("invalid text")
	ErrInvalidDeadline     = errors.New("invalid deadline")
	ErrInvalidPrediction   = errors.New("invalid prediction")
	ErrInvalidConfidence   = errors.New("invalid confidence")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrStakeTooLow         = errors.New("stake below minimum")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateBet        = errors.New("duplicate bet")
	ErrSelfBet             = errors.New("cannot bet on own wager")
	ErrNotEligible         = errors.New("not eligible to bet")
	ErrLegCount            = errors.New("invalid parlay leg count")
	ErrDuplicateLeg        = errors.New("duplicate wager in parlay")
	ErrCommunityMismatch   = errors.New("wager belongs to another server")
)

// UserError carries a human-readable reason for a rejected command.
type UserError struct {
	Kind   error
	Reason string
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

func (e *UserError) Unwrap() error {
	return e.Kind
}

// Reject builds a UserError for kind with a formatted reason.
func Reject(kind error, format string, args ...interface{}) error {
	return &UserError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// UserMessage returns the text to show the user for err. Unexpected errors get a generic message.
func UserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.Reason
	}
	return fmt.Sprintf("An error occured: %v", err)
}

// IsUserError reports whether err is a synchronous rejection rather than a system failure.
func IsUserError(err error) bool {
	var userErr *UserError
	return errors.As(err, &userErr)
}

// LogError prints err and persists it to the error log table.
func LogError(db *gorm.DB, guildID string, err error) {
	if err == nil {
		return
	}
	log.Printf("[%s] %v", guildID, err)
	errLog := models.ErrorLog{
		GuildID: guildID,
		Message: fmt.Sprintf("%v", err),
	}
	if dbErr := db.Create(&errLog).Error; dbErr != nil {
		log.Printf("Error writing error log: %v", dbErr)
	}
}
