package interactionService

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
	"wagerBot/models"
	"wagerBot/services/betService"
	"wagerBot/services/common"
	"wagerBot/services/ledgerService"
	"wagerBot/services/messageService"
)

const (
	WagerBetPrefix  = "wager_bet_"
	BetAmountPrefix = "bet_amount_"
	BetCancelPrefix = "bet_cancel_"
)

var QuickAmounts = []int64{10, 25, 50, 100}

// ParseWagerBetID splits "wager_bet_<wagerID>_<prediction>".
func ParseWagerBetID(customID string) (uint, string, error) {
	rest := strings.TrimPrefix(customID, WagerBetPrefix)
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 {
		return 0, "", fmt.Errorf("malformed bet button id %q", customID)
	}
	wagerID, err := strconv.ParseUint(rest[:idx], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed bet button id %q: %w", customID, err)
	}
	prediction := rest[idx+1:]
	if !models.IsValidPrediction(prediction) {
		return 0, "", fmt.Errorf("malformed bet button id %q: unknown prediction", customID)
	}
	return uint(wagerID), prediction, nil
}

// ParseBetAmountID splits "bet_amount_<session>_<amount>".
func ParseBetAmountID(customID string) (string, int64, error) {
	rest := strings.TrimPrefix(customID, BetAmountPrefix)
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 {
		return "", 0, fmt.Errorf("malformed amount button id %q", customID)
	}
	amount, err := strconv.ParseInt(rest[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed amount button id %q: %w", customID, err)
	}
	return rest[:idx], amount, nil
}

// HandleWagerBetButton starts a bet from the buttons on a wager announcement: it remembers the
// chosen side and asks for an amount.
func HandleWagerBetButton(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB, sessions *SessionStore) {
	wagerID, prediction, err := ParseWagerBetID(i.MessageComponentData().CustomID)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}
	userID := common.InteractionUserID(i)

	var wager models.Wager
	result := db.Where("id = ? AND guild_id = ?", wagerID, i.GuildID).Limit(1).Find(&wager)
	if result.Error != nil {
		common.SendError(s, i, result.Error, db)
		return
	}
	if result.RowsAffected == 0 || wager.Status != models.WagerStatusActive {
		common.RespondEphemeral(s, i, "This wager is no longer open for betting.", db)
		return
	}
	if wager.OwnerID == userID {
		common.RespondEphemeral(s, i, "You cannot bet on your own wager.", db)
		return
	}

	user, err := ledgerService.GetOrCreate(db, userID, i.GuildID)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}
	if i.Member != nil {
		common.UpdateUserUsername(db, user, common.GetUsernameFromUser(i.Member.User))
	}

	sessionID, err := sessions.PutBetSelection(context.Background(), BetSelection{
		UserID:     userID,
		GuildID:    i.GuildID,
		WagerID:    wagerID,
		Prediction: prediction,
	})
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Betting **%s** on wager #%d. You have **%d** points. How much?", prediction, wagerID, user.Points),
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: messageService.GetAmountButtons(sessionID, QuickAmounts)},
			},
		},
	})
	if err != nil {
		common.LogError(db, i.GuildID, err)
	}
}

// HandleBetAmountButton places the bet remembered under the session id.
func HandleBetAmountButton(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB, sessions *SessionStore) {
	ctx := context.Background()
	sessionID, amount, err := ParseBetAmountID(i.MessageComponentData().CustomID)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}

	sel, ok, err := sessions.BetSelection(ctx, sessionID)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}
	if !ok || sel.UserID != common.InteractionUserID(i) {
		updateMessage(s, i, db, "This bet selection expired. Press the button on the wager again.")
		return
	}

	bet, user, err := betService.PlaceBet(db, betService.PlaceBetInput{
		WagerID:    sel.WagerID,
		UserID:     sel.UserID,
		GuildID:    sel.GuildID,
		Prediction: sel.Prediction,
		Amount:     amount,
	}, time.Now().UTC())
	if err != nil {
		if common.IsUserError(err) {
			updateMessage(s, i, db, common.UserMessage(err))
			return
		}
		common.SendError(s, i, err, db)
		return
	}
	if err := sessions.Delete(ctx, sessionID); err != nil {
		common.LogError(db, i.GuildID, err)
	}

	updateMessage(s, i, db, fmt.Sprintf("Placed **%d** points on **%s** for wager #%d. Balance: **%d** points.", bet.Amount, bet.Prediction, bet.WagerID, user.Points))
}

func HandleBetCancelButton(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB, sessions *SessionStore) {
	sessionID := strings.TrimPrefix(i.MessageComponentData().CustomID, BetCancelPrefix)
	if err := sessions.Delete(context.Background(), sessionID); err != nil {
		common.LogError(db, i.GuildID, err)
	}
	updateMessage(s, i, db, "Bet cancelled.")
}

func updateMessage(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB, content string) {
	empty := []discordgo.MessageComponent{}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: empty,
		},
	})
	if err != nil {
		common.LogError(db, i.GuildID, err)
	}
}
