package ledgerService

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"wagerBot/models"
	"wagerBot/services/common"
)

// GetOrCreate returns the user's balance row in the guild, seeding it with the starting
// points on first activity.
func GetOrCreate(db *gorm.DB, discordID string, guildID string) (*models.User, error) {
	var user models.User
	result := db.Where(models.User{DiscordID: discordID, GuildID: guildID}).
		Attrs(models.User{Points: common.StartingPoints}).
		FirstOrCreate(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

// GetForUpdate loads (creating if needed) the balance row and locks it for the rest of tx.
func GetForUpdate(tx *gorm.DB, discordID string, guildID string) (*models.User, error) {
	if _, err := GetOrCreate(tx, discordID, guildID); err != nil {
		return nil, err
	}
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("discord_id = ? AND guild_id = ?", discordID, guildID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Escrow removes a stake from the balance at placement time and counts the bet.
func Escrow(tx *gorm.DB, user *models.User, amount int64) error {
	if amount <= 0 {
		return common.Reject(common.ErrInvalidAmount, "Amount must be positive.")
	}
	if user.Points < amount {
		return common.Reject(common.ErrInsufficientBalance, "You do not have enough points. You have %d.", user.Points)
	}
	result := tx.Model(&models.User{}).
		Where("id = ? AND points >= ?", user.ID, amount).
		UpdateColumns(map[string]interface{}{
			"points":     gorm.Expr("points - ?", amount),
			"total_bets": gorm.Expr("total_bets + ?", 1),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.Reject(common.ErrInsufficientBalance, "You do not have enough points.")
	}
	user.Points -= amount
	user.TotalBets++
	return nil
}

// Credit adds points to a balance. won is added to the lifetime winnings counter and correct
// bumps the correct-bet count.
func Credit(tx *gorm.DB, discordID string, guildID string, points int64, won int64, correct bool) error {
	user, err := GetOrCreate(tx, discordID, guildID)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"points":           gorm.Expr("points + ?", points),
		"total_points_won": gorm.Expr("total_points_won + ?", won),
	}
	if correct {
		updates["correct_bets"] = gorm.Expr("correct_bets + ?", 1)
	}
	return tx.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumns(updates).Error
}

// RecordLoss adds to lifetime losses without touching the balance; the stake left it at placement.
func RecordLoss(tx *gorm.DB, discordID string, guildID string, lost int64) error {
	user, err := GetOrCreate(tx, discordID, guildID)
	if err != nil {
		return err
	}
	return tx.Model(&models.User{}).Where("id = ?", user.ID).
		UpdateColumn("total_points_lost", gorm.Expr("total_points_lost + ?", lost)).Error
}

// ApplyPenalty debits the failure penalty from the owner and returns the amount taken.
func ApplyPenalty(tx *gorm.DB, discordID string, guildID string) (int64, error) {
	user, err := GetForUpdate(tx, discordID, guildID)
	if err != nil {
		return 0, err
	}
	penalty := common.FailurePenalty(user.Points)
	_, applied := common.ClampBalance(user.Points, -penalty)
	err = tx.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumns(map[string]interface{}{
		"points":            gorm.Expr("points + ?", applied),
		"total_points_lost": gorm.Expr("total_points_lost + ?", -applied),
	}).Error
	if err != nil {
		return 0, err
	}
	return -applied, nil
}

type AdjustInput struct {
	GuildID     string
	RecipientID string
	Amount      int64
	Reason      string
	IssuerID    string
}

// AdminAdjust applies a signed administrative grant or penalty, clamped at zero, and writes
// the audit record in the same transaction.
func AdminAdjust(db *gorm.DB, in AdjustInput) (*models.Reward, *models.User, error) {
	if in.Amount == 0 {
		return nil, nil, common.Reject(common.ErrInvalidAmount, "Amount must not be zero.")
	}
	if in.Reason == "" {
		return nil, nil, common.Reject(common.ErrInvalidText, "A reason is required.")
	}

	var reward models.Reward
	var user *models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = GetForUpdate(tx, in.RecipientID, in.GuildID)
		if err != nil {
			return err
		}
		next, applied := common.ClampBalance(user.Points, in.Amount)
		updates := map[string]interface{}{"points": next}
		if applied > 0 {
			updates["total_points_won"] = gorm.Expr("total_points_won + ?", applied)
		} else if applied < 0 {
			updates["total_points_lost"] = gorm.Expr("total_points_lost + ?", -applied)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumns(updates).Error; err != nil {
			return err
		}
		user.Points = next

		reward = models.Reward{
			GuildID:     in.GuildID,
			RecipientID: in.RecipientID,
			Amount:      in.Amount,
			Applied:     applied,
			Reason:      in.Reason,
			IssuerID:    in.IssuerID,
		}
		return tx.Create(&reward).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &reward, user, nil
}

// IsEligible reports whether the user created a wager in the guild during the week containing now.
func IsEligible(db *gorm.DB, discordID string, guildID string, now time.Time) (bool, error) {
	start, end := common.WeekBounds(now)
	var count int64
	err := db.Model(&models.Wager{}).
		Where("owner_id = ? AND guild_id = ? AND created_at >= ? AND created_at < ?", discordID, guildID, start, end).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Leaderboard returns the top balances in the guild.
func Leaderboard(db *gorm.DB, guildID string, limit int) ([]models.User, error) {
	var users []models.User
	err := db.Where("guild_id = ?", guildID).Order("points desc").Limit(limit).Find(&users).Error
	return users, err
}
