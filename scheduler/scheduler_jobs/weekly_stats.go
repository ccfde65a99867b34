package scheduler_jobs

import (
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"gorm.io/gorm"
	"wagerBot/models"
	"wagerBot/services/common"
	"wagerBot/services/ledgerService"
	"wagerBot/services/messageService"
)

const leaderboardSize = 10

// BuildWeeklySnapshot summarises the week before the one containing now for one guild.
func BuildWeeklySnapshot(db *gorm.DB, guildID string, now time.Time) (*messageService.WeeklySnapshot, error) {
	start, end := common.WeekBounds(now.UTC().AddDate(0, 0, -7))
	snapshot := &messageService.WeeklySnapshot{GuildID: guildID}

	top, err := ledgerService.Leaderboard(db, guildID, leaderboardSize)
	if err != nil {
		return nil, err
	}
	snapshot.Top = top

	inWeek := db.Model(&models.Wager{}).Where("guild_id = ? AND created_at >= ? AND created_at < ?", guildID, start, end).Session(&gorm.Session{})
	if err := inWeek.Count(&snapshot.Created).Error; err != nil {
		return nil, err
	}
	if err := inWeek.Where("status = ?", models.WagerStatusCompleted).Count(&snapshot.Completed).Error; err != nil {
		return nil, err
	}
	if err := inWeek.Where("status = ?", models.WagerStatusFailed).Count(&snapshot.Failed).Error; err != nil {
		return nil, err
	}
	return snapshot, nil
}

// PostWeeklyStats posts last week's snapshot to every guild that has a betting channel.
func PostWeeklyStats(db *gorm.DB, announcer messageService.Announcer, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("Recovered in PostWeeklyStats", r)
			debug.PrintStack()
			err = fmt.Errorf("panic recovered in PostWeeklyStats: %v", r)
		}
	}()

	var guilds []models.Guild
	if err := db.Where("bet_channel_id <> ''").Find(&guilds).Error; err != nil {
		return err
	}

	for _, guild := range guilds {
		snapshot, err := BuildWeeklySnapshot(db, guild.GuildID, now)
		if err != nil {
			common.LogError(db, guild.GuildID, err)
			continue
		}
		if err := announcer.WeeklyStats(*snapshot); err != nil {
			log.Printf("Error posting weekly stats to guild %s: %v", guild.GuildID, err)
		}
	}
	return nil
}
