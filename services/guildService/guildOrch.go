package guildService

import (
	"log"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
	"wagerBot/models"
	"wagerBot/services/common"
)

// GetGuildInfo loads the guild's settings, creating them with channelId as the betting
// channel on first use. The stored name is refreshed from Discord when it changed.
func GetGuildInfo(s *discordgo.Session, db *gorm.DB, guildID string, channelId string) (*models.Guild, error) {
	var guild models.Guild
	guildResult := db.Where("guild_id = ?", guildID).Limit(1).Find(&guild)
	if guildResult.Error != nil {
		return nil, guildResult.Error
	}

	if guildResult.RowsAffected == 0 {
		guild = models.Guild{GuildID: guildID, BetChannelID: channelId}
		if s != nil {
			if guildInfo, err := s.Guild(guildID); err == nil {
				guild.GuildName = guildInfo.Name
			} else {
				log.Printf("Error fetching guild %s: %v", guildID, err)
			}
		}
		if err := db.Create(&guild).Error; err != nil {
			return nil, err
		}
		return &guild, nil
	}

	if s != nil {
		checkGuild, err := s.Guild(guildID)
		if err != nil {
			log.Printf("Error fetching guild %s: %v", guildID, err)
		} else if guild.GuildName != checkGuild.Name {
			guild.GuildName = checkGuild.Name
			db.Model(&guild).UpdateColumn("guild_name", guild.GuildName)
		}
	}

	return &guild, nil
}

// UpdateBettingChannel points the guild's announcements at channelID.
func UpdateBettingChannel(s *discordgo.Session, db *gorm.DB, guildID string, channelID string) (*models.Guild, error) {
	guild, err := GetGuildInfo(s, db, guildID, channelID)
	if err != nil {
		return nil, err
	}
	if guild.BetChannelID == channelID {
		return guild, nil
	}
	guild.BetChannelID = channelID
	if err := db.Model(guild).UpdateColumn("bet_channel_id", channelID).Error; err != nil {
		return nil, err
	}
	return guild, nil
}

func SetBettingChannel(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB) {
	if !common.IsAdmin(s, i) {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "You are not authorized to use this command.",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		if err != nil {
			common.SendError(s, i, err, db)
		}
		return
	}

	if _, err := UpdateBettingChannel(s, db, i.GuildID, i.ChannelID); err != nil {
		common.SendError(s, i, err, db)
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Channel set successfully",
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		common.SendError(s, i, err, db)
	}
}
