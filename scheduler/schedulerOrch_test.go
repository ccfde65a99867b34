package scheduler

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"wagerBot/models"
	"wagerBot/services/wagerService"
)

func TestSetupCron(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "cron.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	engine := wagerService.NewEngine(db, nil, nil, nil)

	tests := []struct {
		name    string
		sweep   string
		stats   string
		wantErr bool
	}{
		{"defaults", "", "", false},
		{"custom", "0 */15 * * * *", "0 0 9 * * 1", false},
		{"five fields", "0 * * * *", "", true},
		{"garbage", "", "whenever", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := SetupCron(engine, db, nil, tt.sweep, tt.stats)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(c.Entries()) != 2 {
				t.Errorf("Expected 2 jobs, got %d", len(c.Entries()))
			}
			<-c.Stop().Done()
		})
	}
}
