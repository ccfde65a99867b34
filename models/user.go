package models

import "gorm.io/gorm"

// User is a ledger balance: one row per Discord user per guild.
type User struct {
	gorm.Model
	ID              uint   `gorm:"primaryKey"`
	DiscordID       string `gorm:"uniqueIndex:user_guild_idx; size:64"`
	GuildID         string `gorm:"uniqueIndex:user_guild_idx; size:64"`
	Points          int64
	TotalPointsWon  int64
	TotalPointsLost int64
	TotalBets       int
	CorrectBets     int
	Username        *string
}
