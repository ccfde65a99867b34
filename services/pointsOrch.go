package services

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
	"wagerBot/services/common"
	"wagerBot/services/ledgerService"
)

func ShowPoints(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	user, err := ledgerService.GetOrCreate(db, common.InteractionUserID(i), i.GuildID)
	if err != nil {
		common.SendError(s, i, fmt.Errorf("error loading balance: %v", err), db)
		return
	}
	if i.Member != nil {
		common.UpdateUserUsername(db, user, common.GetUsernameFromUser(i.Member.User))
	}

	common.RespondEphemeral(s, i, fmt.Sprintf("You have **%d** points.", user.Points), db)
}

// AdjustPoints grants or removes points. The balance never drops below zero and every
// adjustment leaves a reward record.
func AdjustPoints(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	if !common.IsAdmin(s, i) {
		common.RespondEphemeral(s, i, "You are not authorized to use this command.", db)
		return
	}

	options := optionMap(i.ApplicationCommandData().Options)
	targetUser := options["user"].UserValue(s)
	reward, user, err := ledgerService.AdminAdjust(db, ledgerService.AdjustInput{
		GuildID:     i.GuildID,
		RecipientID: targetUser.ID,
		Amount:      options["amount"].IntValue(),
		Reason:      options["reason"].StringValue(),
		IssuerID:    common.InteractionUserID(i),
	})
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}
	common.UpdateUserUsername(db, user, common.GetUsernameFromUser(targetUser))

	response := fmt.Sprintf("Adjusted **%s** by **%+d** points (%s). New balance: **%d**.", common.GetUsernameFromUser(targetUser), reward.Applied, reward.Reason, user.Points)
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: response,
		},
	})
	if err != nil {
		common.SendError(s, i, err, db)
	}
}

func ShowStats(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	userID := common.InteractionUserID(i)
	user, err := ledgerService.GetOrCreate(db, userID, i.GuildID)
	if err != nil {
		common.SendError(s, i, fmt.Errorf("error loading balance: %v", err), db)
		return
	}

	netPoints := user.TotalPointsWon - user.TotalPointsLost
	var winRate float64
	if user.TotalBets > 0 {
		winRate = float64(user.CorrectBets) / float64(user.TotalBets) * 100
	}

	embed := &discordgo.MessageEmbed{
		Title:       "📊 Your Betting Statistics",
		Description: fmt.Sprintf("Statistics for <@%s>", userID),
		Color:       0xe67e22,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Total Bets",
				Value:  fmt.Sprintf("%d", user.TotalBets),
				Inline: true,
			},
			{
				Name:   "Correct",
				Value:  fmt.Sprintf("%d", user.CorrectBets),
				Inline: true,
			},
			{
				Name:   "Win Rate",
				Value:  fmt.Sprintf("%.1f%%", winRate),
				Inline: true,
			},
			{
				Name:   "Points Won",
				Value:  fmt.Sprintf("%d", user.TotalPointsWon),
				Inline: true,
			},
			{
				Name:   "Points Lost",
				Value:  fmt.Sprintf("%d", user.TotalPointsLost),
				Inline: true,
			},
			{
				Name:   "Net Points",
				Value:  fmt.Sprintf("%d", netPoints),
				Inline: true,
			},
			{
				Name:   "Current Points",
				Value:  fmt.Sprintf("%d", user.Points),
				Inline: true,
			},
		},
	}

	if user.TotalBets == 0 {
		embed.Description = fmt.Sprintf("Statistics for <@%s>\n\nYou haven't placed any bets yet!", userID)
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		common.SendError(s, i, err, db)
	}
}
