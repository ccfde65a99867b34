package services

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
	"wagerBot/services/common"
	"wagerBot/services/ledgerService"
)

func ShowLeaderboard(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	users, err := ledgerService.Leaderboard(db, i.GuildID, 10)
	if err != nil {
		common.SendError(s, i, err, db)
		return
	}

	if len(users) == 0 {
		common.RespondEphemeral(s, i, "No users found on the leaderboard.", db)
		return
	}

	var description strings.Builder
	for idx, user := range users {
		description.WriteString(fmt.Sprintf("**%d. %s** - %d points\n", idx+1, common.DisplayName(user), user.Points))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🏆 Leaderboard",
		Description: description.String(),
		Color:       0x00ff00,
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
	if err != nil {
		common.SendError(s, i, err, db)
	}
}
