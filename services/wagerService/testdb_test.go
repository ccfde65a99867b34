package wagerService

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"wagerBot/models"
	"wagerBot/services/betService"
	"wagerBot/services/extService"
	"wagerBot/services/messageService"
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
	dsn := "file:" + filepath.Join(t.TempDir(), "wagers.db") + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
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

var testStart = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type fakeVerifier struct {
	mu       sync.Mutex
	result   extService.VerificationResult
	err      error
	requests []extService.VerificationRequest
}

func (f *fakeVerifier) Verify(ctx context.Context, req extService.VerificationRequest) (extService.VerificationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.result, f.err
}

type recordingAnnouncer struct {
	mu       sync.Mutex
	created  []models.Wager
	proofs   []models.Wager
	resolved []messageService.WagerResultEvent
	parlays  []models.Parlay
}

func (a *recordingAnnouncer) WagerCreated(wager models.Wager) (*messageService.MessageHandle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created = append(a.created, wager)
	return nil, nil
}

func (a *recordingAnnouncer) ProofSubmitted(wager models.Wager) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.proofs = append(a.proofs, wager)
	return nil
}

func (a *recordingAnnouncer) WagerResolved(event messageService.WagerResultEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resolved = append(a.resolved, event)
	return nil
}

func (a *recordingAnnouncer) ParlaySettled(parlay models.Parlay) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.parlays = append(a.parlays, parlay)
	return nil
}

func (a *recordingAnnouncer) WeeklyStats(snapshot messageService.WeeklySnapshot) error {
	return nil
}

type testEngine struct {
	*Engine
	verifier  *fakeVerifier
	announcer *recordingAnnouncer
	clock     time.Time
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	te := &testEngine{
		verifier:  &fakeVerifier{},
		announcer: &recordingAnnouncer{},
		clock:     testStart,
	}
	te.Engine = NewEngine(newTestDB(t), te.verifier, nil, te.announcer)
	te.Engine.Now = func() time.Time { return te.clock }
	t.Cleanup(te.Wait)
	return te
}

func (te *testEngine) createWager(t *testing.T, ownerID string, hours int) *models.Wager {
	t.Helper()
	wager, err := te.CreateWager(context.Background(), CreateWagerInput{
		OwnerID:       ownerID,
		GuildID:       "g1",
		ChannelID:     "c1",
		Task:          "run 5k",
		Consequence:   "buy donuts",
		DeadlineHours: hours,
	})
	if err != nil {
		t.Fatalf("Failed to create wager: %v", err)
	}
	return wager
}

// bet makes the user eligible with a wager of their own and places a bet.
func (te *testEngine) bet(t *testing.T, wagerID uint, userID string, prediction string, amount int64) {
	t.Helper()
	te.createWager(t, userID, 168)
	_, _, err := betService.PlaceBet(te.DB, betService.PlaceBetInput{
		WagerID:    wagerID,
		UserID:     userID,
		GuildID:    "g1",
		Prediction: prediction,
		Amount:     amount,
	}, te.clock)
	if err != nil {
		t.Fatalf("Failed to place bet for %s: %v", userID, err)
	}
}

func (te *testEngine) points(t *testing.T, userID string) int64 {
	t.Helper()
	var user models.User
	if err := te.DB.Where("discord_id = ? AND guild_id = ?", userID, "g1").First(&user).Error; err != nil {
		t.Fatalf("Failed to load balance for %s: %v", userID, err)
	}
	return user.Points
}
