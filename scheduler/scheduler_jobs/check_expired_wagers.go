package scheduler_jobs

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"

	"wagerBot/services/wagerService"
)

// CheckExpiredWagers fails active wagers whose deadline has passed without a passing verdict.
func CheckExpiredWagers(engine *wagerService.Engine) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Println("Recovered in CheckExpiredWagers", r)
			debug.PrintStack()
			err = fmt.Errorf("panic recovered in CheckExpiredWagers: %v", r)
		}
	}()

	failed, err := engine.SweepExpired(context.Background())
	if err != nil {
		return err
	}
	if failed > 0 {
		log.Printf("CheckExpiredWagers: %d wagers expired", failed)
	}
	return nil
}
