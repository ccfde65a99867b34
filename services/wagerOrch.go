package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"wagerBot/models"
	"wagerBot/services/betService"
	"wagerBot/services/common"
	"wagerBot/services/messageService"
	"wagerBot/services/wagerService"
)

// ParseTaskList reads "24:run 5k; 48:read a book" into ordered task inputs.
func ParseTaskList(raw string) ([]wagerService.TaskInput, error) {
	var tasks []wagerService.TaskInput
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hoursStr, description, ok := strings.Cut(part, ":")
		if !ok {
			return nil, common.Reject(common.ErrInvalidText, "Task %q must look like hours:description.", part)
		}
		hours, err := strconv.Atoi(strings.TrimSpace(hoursStr))
		if err != nil {
			return nil, common.Reject(common.ErrInvalidDeadline, "Task %q has an invalid number of hours.", part)
		}
		tasks = append(tasks, wagerService.TaskInput{Description: strings.TrimSpace(description), DeadlineHours: hours})
	}
	if len(tasks) == 0 {
		return nil, common.Reject(common.ErrInvalidText, "List at least one task.")
	}
	return tasks, nil
}

// ParseLegs reads "12:success,15:fail" into parlay legs.
func ParseLegs(raw string) ([]betService.LegInput, error) {
	var legs []betService.LegInput
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idStr, prediction, ok := strings.Cut(part, ":")
		if !ok {
			return nil, common.Reject(common.ErrInvalidPrediction, "Leg %q must look like wagerID:success or wagerID:fail.", part)
		}
		wagerID, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(idStr), "#"), 10, 64)
		if err != nil {
			return nil, common.Reject(common.ErrWagerNotFound, "Leg %q has an invalid wager ID.", part)
		}
		legs = append(legs, betService.LegInput{WagerID: uint(wagerID), Prediction: strings.ToLower(strings.TrimSpace(prediction))})
	}
	return legs, nil
}

func (h *Handler) CreateWager(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := optionMap(i.ApplicationCommandData().Options)
	wager, err := h.Engine.CreateWager(context.Background(), wagerService.CreateWagerInput{
		OwnerID:       common.InteractionUserID(i),
		GuildID:       i.GuildID,
		ChannelID:     i.ChannelID,
		Task:          options["task"].StringValue(),
		Consequence:   options["consequence"].StringValue(),
		DeadlineHours: int(options["hours"].IntValue()),
	})
	if err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}
	h.rememberUsername(i)

	common.RespondEphemeral(s, i, fmt.Sprintf("Wager #%d created. Deadline <t:%d:R>. Submit proof with `/submit-proof`.", wager.ID, wager.Deadline.Unix()), h.DB)
}

func (h *Handler) CreateMultiWager(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := optionMap(i.ApplicationCommandData().Options)
	tasks, err := ParseTaskList(options["tasks"].StringValue())
	if err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}
	wager, err := h.Engine.CreateMultiTaskWager(context.Background(), wagerService.CreateMultiTaskInput{
		OwnerID:     common.InteractionUserID(i),
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		Title:       options["title"].StringValue(),
		Consequence: options["consequence"].StringValue(),
		Tasks:       tasks,
	})
	if err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}
	h.rememberUsername(i)

	common.RespondEphemeral(s, i, fmt.Sprintf("Wager #%d created with %d tasks. Submit proof per task with `/submit-proof task:<n>`.", wager.ID, len(wager.Tasks)), h.DB)
}

func (h *Handler) SubmitProof(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	options := optionMap(data.Options)
	wagerID := uint(options["wager-id"].IntValue())
	ownerID := common.InteractionUserID(i)

	proofURL := ""
	if opt, ok := options["proof"]; ok && data.Resolved != nil {
		if attachmentID, ok := opt.Value.(string); ok {
			if attachment, ok := data.Resolved.Attachments[attachmentID]; ok {
				proofURL = attachment.URL
			}
		}
	}
	if proofURL == "" {
		common.SendError(s, i, common.Reject(common.ErrInvalidText, "Attach an image as proof."), h.DB)
		return
	}

	ctx := context.Background()
	if opt, ok := options["task"]; ok {
		wager, err := h.Engine.GetWager(wagerID)
		if err != nil {
			common.SendError(s, i, err, h.DB)
			return
		}
		position := int(opt.IntValue())
		var task *models.Task
		for idx := range wager.Tasks {
			if wager.Tasks[idx].Position == position {
				task = &wager.Tasks[idx]
				break
			}
		}
		if task == nil {
			common.SendError(s, i, common.Reject(common.ErrTaskNotFound, "Wager #%d has no task %d.", wagerID, position), h.DB)
			return
		}
		if _, err := h.Engine.SubmitTaskProof(ctx, task.ID, ownerID, proofURL); err != nil {
			common.SendError(s, i, err, h.DB)
			return
		}
		common.RespondEphemeral(s, i, fmt.Sprintf("Proof for task %d of wager #%d received. Verifying...", position, wagerID), h.DB)
		return
	}

	if _, err := h.Engine.SubmitProof(ctx, wagerID, ownerID, proofURL); err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}
	common.RespondEphemeral(s, i, fmt.Sprintf("Proof for wager #%d received. Verifying...", wagerID), h.DB)
}

func (h *Handler) Forfeit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := optionMap(i.ApplicationCommandData().Options)
	wagerID := uint(options["wager-id"].IntValue())

	res, err := h.Engine.ForfeitWager(context.Background(), wagerID, common.InteractionUserID(i))
	if err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}
	common.RespondEphemeral(s, i, forfeitMessage(wagerID, res.OwnerDelta), h.DB)
}

// forfeitMessage reports the penalty as a positive amount; ownerDelta is the signed balance change.
func forfeitMessage(wagerID uint, ownerDelta int64) string {
	return fmt.Sprintf("You forfeited wager #%d. Penalty: **%d** points.", wagerID, -ownerDelta)
}

func (h *Handler) CancelWager(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := optionMap(i.ApplicationCommandData().Options)
	wagerID := uint(options["wager-id"].IntValue())

	res, err := h.Engine.CancelWager(context.Background(), wagerID, common.InteractionUserID(i), common.IsAdmin(s, i))
	if err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}
	common.RespondEphemeral(s, i, fmt.Sprintf("Wager #%d cancelled. %d bets refunded.", wagerID, len(res.Refunds)), h.DB)
}

func (h *Handler) PlaceBet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := optionMap(i.ApplicationCommandData().Options)
	in := betService.PlaceBetInput{
		WagerID:    uint(options["wager-id"].IntValue()),
		UserID:     common.InteractionUserID(i),
		GuildID:    i.GuildID,
		Prediction: options["prediction"].StringValue(),
		Amount:     options["amount"].IntValue(),
	}
	if opt, ok := options["comment"]; ok {
		comment := opt.StringValue()
		in.Comment = &comment
	}

	bet, user, err := betService.PlaceBet(h.DB, in, time.Now().UTC())
	if err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}
	h.rememberUsername(i)

	common.RespondEphemeral(s, i, fmt.Sprintf("Placed **%d** points on **%s** for wager #%d. Balance: **%d** points.", bet.Amount, bet.Prediction, bet.WagerID, user.Points), h.DB)
}

func (h *Handler) CreateParlay(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := optionMap(i.ApplicationCommandData().Options)
	legs, err := ParseLegs(options["legs"].StringValue())
	if err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}

	parlay, user, err := betService.CreateParlay(h.DB, betService.CreateParlayInput{
		UserID:  common.InteractionUserID(i),
		GuildID: i.GuildID,
		Amount:  options["amount"].IntValue(),
		Legs:    legs,
	}, time.Now().UTC())
	if err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}
	h.rememberUsername(i)

	common.RespondEphemeral(s, i, fmt.Sprintf("Parlay #%d placed: %d legs, **%d** points staked, potential payout **%d**. Balance: **%d** points.", parlay.ID, len(parlay.Legs), parlay.Amount, parlay.PotentialPayout, user.Points), h.DB)
}

func (h *Handler) MyOpenBets(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := common.InteractionUserID(i)
	bets, err := betService.OpenBets(h.DB, userID, i.GuildID)
	if err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}
	parlays, err := betService.ActiveParlays(h.DB, userID, i.GuildID)
	if err != nil {
		common.SendError(s, i, err, h.DB)
		return
	}

	if len(bets) == 0 && len(parlays) == 0 {
		common.RespondEphemeral(s, i, "You have no open bets.", h.DB)
		return
	}

	var description strings.Builder
	for _, bet := range bets {
		description.WriteString(fmt.Sprintf("**#%d** %s: **%s** for %d points\n", bet.WagerID, bet.Wager.Description(), bet.Prediction, bet.Amount))
	}
	for _, parlay := range parlays {
		description.WriteString(fmt.Sprintf("\n**Parlay #%d** (%d points, potential %d)\n", parlay.ID, parlay.Amount, parlay.PotentialPayout))
		for _, leg := range parlay.Legs {
			description.WriteString(fmt.Sprintf("- #%d **%s** %s\n", leg.WagerID, leg.Prediction, messageService.LegStatusLabel(leg.Status)))
		}
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title:       "🎲 Your Open Bets",
				Description: description.String(),
				Color:       0x3498db,
			}},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		common.SendError(s, i, err, h.DB)
	}
}

func (h *Handler) rememberUsername(i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	var user models.User
	result := h.DB.Where("discord_id = ? AND guild_id = ?", i.Member.User.ID, i.GuildID).Limit(1).Find(&user)
	if result.Error != nil || result.RowsAffected == 0 {
		return
	}
	common.UpdateUserUsername(h.DB, &user, common.GetUsernameFromUser(i.Member.User))
}
