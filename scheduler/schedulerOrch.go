package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"wagerBot/scheduler/scheduler_jobs"
	"wagerBot/services/common"
	"wagerBot/services/messageService"
	"wagerBot/services/wagerService"
)

const (
	DefaultSweepSchedule = "0 0 * * * *" // every hour
	DefaultStatsSchedule = "0 0 0 * * 1" // Monday 00:00 UTC
)

// SetupCron registers the periodic jobs and starts the scheduler. The caller stops it.
func SetupCron(engine *wagerService.Engine, db *gorm.DB, announcer messageService.Announcer, sweepSchedule string, statsSchedule string) (*cron.Cron, error) {
	if sweepSchedule == "" {
		sweepSchedule = DefaultSweepSchedule
	}
	if statsSchedule == "" {
		statsSchedule = DefaultStatsSchedule
	}

	cronService := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	_, err := cronService.AddFunc(sweepSchedule, func() {
		err := scheduler_jobs.CheckExpiredWagers(engine)
		if err != nil {
			common.LogError(db, "CRON", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("error scheduling expiry sweep: %w", err)
	}

	_, err = cronService.AddFunc(statsSchedule, func() {
		err := scheduler_jobs.PostWeeklyStats(db, announcer, time.Now())
		if err != nil {
			common.LogError(db, "CRON", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("error scheduling weekly stats: %w", err)
	}

	cronService.Start()
	log.Printf("Scheduler started: sweep=%q stats=%q", sweepSchedule, statsSchedule)
	return cronService, nil
}
