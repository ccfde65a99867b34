package betService

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"wagerBot/models"
)

func newMockDB() (*gorm.DB, sqlmock.Sqlmock, error) {
	db, mock, err := sqlmock.New()
	if err != nil {
		return nil, nil, err
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})

	return gormDB, mock, err
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "bets.db") + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate test DB: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func seedWager(t *testing.T, db *gorm.DB, ownerID string, guildID string) models.Wager {
	t.Helper()
	wager := models.Wager{
		OwnerID:       ownerID,
		GuildID:       guildID,
		Task:          "run 5k",
		Consequence:   "buy donuts",
		DeadlineHours: 24,
		Deadline:      testNow.Add(24 * time.Hour),
		Status:        models.WagerStatusActive,
	}
	wager.CreatedAt = testNow.Add(-time.Hour)
	if err := db.Create(&wager).Error; err != nil {
		t.Fatalf("Failed to create wager: %v", err)
	}
	return wager
}

// makeEligible gives the user a wager of their own this week.
func makeEligible(t *testing.T, db *gorm.DB, userID string, guildID string) {
	t.Helper()
	seedWager(t, db, userID, guildID)
}

func balanceOf(t *testing.T, db *gorm.DB, userID string, guildID string) models.User {
	t.Helper()
	var user models.User
	if err := db.Where("discord_id = ? AND guild_id = ?", userID, guildID).First(&user).Error; err != nil {
		t.Fatalf("Failed to load balance for %s: %v", userID, err)
	}
	return user
}
