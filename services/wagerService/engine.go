package wagerService

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"gorm.io/gorm"
	"wagerBot/services/extService"
	"wagerBot/services/messageService"
)

const backgroundTimeout = 2 * time.Minute

// Engine owns wager state transitions and fans each resolution out to settlement.
type Engine struct {
	DB        *gorm.DB
	Verifier  extService.Verifier
	Narrator  extService.Narrator
	Announcer messageService.Announcer
	Now       func() time.Time

	wg sync.WaitGroup
}

func NewEngine(db *gorm.DB, verifier extService.Verifier, narrator extService.Narrator, announcer messageService.Announcer) *Engine {
	if verifier == nil {
		verifier = extService.UnavailableVerifier{}
	}
	if narrator == nil {
		narrator = extService.NoopNarrator{}
	}
	if announcer == nil {
		announcer = messageService.LogAnnouncer{}
	}
	return &Engine{
		DB:        db,
		Verifier:  verifier,
		Narrator:  narrator,
		Announcer: announcer,
		Now:       time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

// Wait blocks until background verification and announcement work has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// background runs fn detached from the caller's cancellation. Panics are logged, never propagated.
func (e *Engine) background(ctx context.Context, name string, fn func(ctx context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Recovered in %s: %v", name, r)
				debug.PrintStack()
			}
		}()
		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), backgroundTimeout)
		defer cancel()
		fn(bgCtx)
	}()
}
