package betService

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
	"wagerBot/models"
	"wagerBot/services/common"
	"wagerBot/services/ledgerService"
)

func TestPlaceBet(t *testing.T) {
	db := newTestDB(t)
	wager := seedWager(t, db, "owner", "g1")
	makeEligible(t, db, "bettor", "g1")

	bet, user, err := PlaceBet(db, PlaceBetInput{WagerID: wager.ID, UserID: "bettor", GuildID: "g1", Prediction: "Success", Amount: 30}, testNow)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if bet.Prediction != models.PredictionSuccess || bet.Amount != 30 || bet.Settled {
		t.Errorf("Unexpected bet: %+v", bet)
	}
	if user.Points != 70 {
		t.Errorf("Expected 70 points after escrow, got %d", user.Points)
	}
	if stored := balanceOf(t, db, "bettor", "g1"); stored.Points != 70 || stored.TotalBets != 1 {
		t.Errorf("Expected stored 70 points and 1 bet, got %d / %d", stored.Points, stored.TotalBets)
	}

	_, _, err = PlaceBet(db, PlaceBetInput{WagerID: wager.ID, UserID: "bettor", GuildID: "g1", Prediction: "fail", Amount: 10}, testNow)
	if !errors.Is(err, common.ErrDuplicateBet) {
		t.Errorf("Expected ErrDuplicateBet, got %v", err)
	}
	if stored := balanceOf(t, db, "bettor", "g1"); stored.Points != 70 {
		t.Errorf("Expected duplicate to leave 70 points, got %d", stored.Points)
	}
}

func TestPlaceBetConcurrentNoDoubleSpend(t *testing.T) {
	db := newTestDB(t)
	makeEligible(t, db, "bettor", "g1")
	if _, err := ledgerService.GetOrCreate(db, "bettor", "g1"); err != nil {
		t.Fatalf("Failed to seed balance: %v", err)
	}
	var wagers []models.Wager
	for _, owner := range []string{"o1", "o2", "o3", "o4", "o5"} {
		wagers = append(wagers, seedWager(t, db, owner, "g1"))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(wagers))
	for idx, wager := range wagers {
		wg.Add(1)
		go func(idx int, wagerID uint) {
			defer wg.Done()
			_, _, errs[idx] = PlaceBet(db, PlaceBetInput{WagerID: wagerID, UserID: "bettor", GuildID: "g1", Prediction: "fail", Amount: 40}, testNow)
		}(idx, wager.ID)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			accepted++
		case !errors.Is(err, common.ErrInsufficientBalance):
			t.Errorf("Expected ErrInsufficientBalance, got %v", err)
		}
	}
	if accepted != 2 {
		t.Errorf("Expected 2 bets accepted, got %d", accepted)
	}
	stored := balanceOf(t, db, "bettor", "g1")
	if stored.Points != 20 || stored.TotalBets != 2 {
		t.Errorf("Expected 20 points and 2 bets, got %d / %d", stored.Points, stored.TotalBets)
	}
	var count int64
	db.Model(&models.Bet{}).Where("user_id = ?", "bettor").Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 bets recorded, got %d", count)
	}
}

func TestPlaceBetRejections(t *testing.T) {
	db := newTestDB(t)
	wager := seedWager(t, db, "owner", "g1")
	otherGuild := seedWager(t, db, "owner2", "g2")
	expired := seedWager(t, db, "owner3", "g1")
	db.Model(&models.Wager{}).Where("id = ?", expired.ID).UpdateColumn("deadline", testNow.Add(-time.Minute))
	closed := seedWager(t, db, "owner4", "g1")
	db.Model(&models.Wager{}).Where("id = ?", closed.ID).UpdateColumn("status", models.WagerStatusCompleted)
	makeEligible(t, db, "bettor", "g1")

	tests := []struct {
		name string
		in   PlaceBetInput
		want error
	}{
		{"bad prediction", PlaceBetInput{WagerID: wager.ID, UserID: "bettor", GuildID: "g1", Prediction: "maybe", Amount: 10}, common.ErrInvalidPrediction},
		{"stake too low", PlaceBetInput{WagerID: wager.ID, UserID: "bettor", GuildID: "g1", Prediction: "fail", Amount: 9}, common.ErrStakeTooLow},
		{"missing wager", PlaceBetInput{WagerID: 9999, UserID: "bettor", GuildID: "g1", Prediction: "fail", Amount: 10}, common.ErrWagerNotFound},
		{"other guild", PlaceBetInput{WagerID: otherGuild.ID, UserID: "bettor", GuildID: "g1", Prediction: "fail", Amount: 10}, common.ErrCommunityMismatch},
		{"deadline passed", PlaceBetInput{WagerID: expired.ID, UserID: "bettor", GuildID: "g1", Prediction: "fail", Amount: 10}, common.ErrWagerNotActive},
		{"resolved", PlaceBetInput{WagerID: closed.ID, UserID: "bettor", GuildID: "g1", Prediction: "fail", Amount: 10}, common.ErrWagerNotActive},
		{"own wager", PlaceBetInput{WagerID: wager.ID, UserID: "owner", GuildID: "g1", Prediction: "success", Amount: 10}, common.ErrSelfBet},
		{"insufficient", PlaceBetInput{WagerID: wager.ID, UserID: "bettor", GuildID: "g1", Prediction: "fail", Amount: 101}, common.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := PlaceBet(db, tt.in, testNow)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	var count int64
	db.Model(&models.Bet{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no bets recorded, got %d", count)
	}
}

func TestPlaceBetRequiresWeeklyWager(t *testing.T) {
	db := newTestDB(t)
	wager := seedWager(t, db, "owner", "g1")

	lastWeek := seedWager(t, db, "lurker", "g1")
	db.Model(&models.Wager{}).Where("id = ?", lastWeek.ID).UpdateColumn("created_at", testNow.AddDate(0, 0, -7))
	before := ledgerBalance(db, "lurker", "g1")

	_, _, err := PlaceBet(db, PlaceBetInput{WagerID: wager.ID, UserID: "lurker", GuildID: "g1", Prediction: "fail", Amount: 50}, testNow)
	if !errors.Is(err, common.ErrNotEligible) {
		t.Fatalf("Expected ErrNotEligible, got %v", err)
	}

	after := ledgerBalance(db, "lurker", "g1")
	if before != after {
		t.Errorf("Expected balance unchanged at %d, got %d", before, after)
	}
}

// ledgerBalance returns the stored points, or -1 when the user has no balance row.
func ledgerBalance(db *gorm.DB, userID string, guildID string) int64 {
	var user models.User
	result := db.Where("discord_id = ? AND guild_id = ?", userID, guildID).Limit(1).Find(&user)
	if result.RowsAffected == 0 {
		return -1
	}
	return user.Points
}

func placeAll(t *testing.T, db *gorm.DB, wagerID uint, bets []PlaceBetInput) {
	t.Helper()
	for _, in := range bets {
		makeEligible(t, db, in.UserID, in.GuildID)
		in.WagerID = wagerID
		if _, _, err := PlaceBet(db, in, testNow); err != nil {
			t.Fatalf("Failed to place bet for %s: %v", in.UserID, err)
		}
	}
}

func TestSettleBetsForWager(t *testing.T) {
	db := newTestDB(t)
	wager := seedWager(t, db, "owner", "g1")
	placeAll(t, db, wager.ID, []PlaceBetInput{
		{UserID: "a", GuildID: "g1", Prediction: "success", Amount: 20},
		{UserID: "b", GuildID: "g1", Prediction: "success", Amount: 10},
		{UserID: "c", GuildID: "g1", Prediction: "fail", Amount: 15},
	})

	summary, err := SettleBetsForWager(db, wager.ID, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.TotalPool != 45 || summary.WinningPool != 30 || summary.TotalPaid != 45 {
		t.Errorf("Unexpected summary: %+v", summary)
	}

	want := map[string]struct {
		points int64
		payout int64
	}{
		"a": {110, 30},
		"b": {105, 15},
		"c": {85, 0},
	}
	for _, s := range summary.Settled {
		if s.Payout != want[s.UserID].payout {
			t.Errorf("Expected %s payout %d, got %d", s.UserID, want[s.UserID].payout, s.Payout)
		}
	}
	for id, w := range want {
		if got := balanceOf(t, db, id, "g1").Points; got != w.points {
			t.Errorf("Expected %s to have %d points, got %d", id, w.points, got)
		}
	}
	if c := balanceOf(t, db, "c", "g1"); c.TotalPointsLost != 15 {
		t.Errorf("Expected c to have lost 15, got %d", c.TotalPointsLost)
	}
	if a := balanceOf(t, db, "a", "g1"); a.CorrectBets != 1 || a.TotalPointsWon != 10 {
		t.Errorf("Expected a to have 1 correct bet and 10 won, got %d / %d", a.CorrectBets, a.TotalPointsWon)
	}

	var open int64
	db.Model(&models.Bet{}).Where("wager_id = ? AND settled = ?", wager.ID, false).Count(&open)
	if open != 0 {
		t.Errorf("Expected every bet settled, %d open", open)
	}

	replay, err := SettleBetsForWager(db, wager.ID, true)
	if err != nil {
		t.Fatalf("Unexpected error on replay: %v", err)
	}
	if len(replay.Settled) != 0 || replay.TotalPaid != 0 {
		t.Errorf("Expected replay to settle nothing, got %+v", replay)
	}
	if got := balanceOf(t, db, "a", "g1").Points; got != 110 {
		t.Errorf("Expected replay to leave a at 110, got %d", got)
	}
}

func TestSettleBetsForWagerNoWinners(t *testing.T) {
	db := newTestDB(t)
	wager := seedWager(t, db, "owner", "g1")
	placeAll(t, db, wager.ID, []PlaceBetInput{
		{UserID: "a", GuildID: "g1", Prediction: "success", Amount: 20},
		{UserID: "b", GuildID: "g1", Prediction: "success", Amount: 10},
	})

	summary, err := SettleBetsForWager(db, wager.ID, false)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.TotalPaid != 0 || len(summary.Settled) != 2 {
		t.Errorf("Expected two losing settlements and nothing paid, got %+v", summary)
	}
	if got := balanceOf(t, db, "a", "g1").Points; got != 80 {
		t.Errorf("Expected a to keep 80, got %d", got)
	}
}

func TestSettleBetsForWagerResumesPartialSettlement(t *testing.T) {
	db := newTestDB(t)
	wager := seedWager(t, db, "owner", "g1")
	placeAll(t, db, wager.ID, []PlaceBetInput{
		{UserID: "a", GuildID: "g1", Prediction: "success", Amount: 20},
		{UserID: "b", GuildID: "g1", Prediction: "success", Amount: 10},
		{UserID: "c", GuildID: "g1", Prediction: "fail", Amount: 15},
	})

	var first models.Bet
	db.Where("wager_id = ? AND user_id = ?", wager.ID, "a").First(&first)
	if _, err := settleBet(db, first, 30, true); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	summary, err := SettleBetsForWager(db, wager.ID, true)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(summary.Settled) != 2 {
		t.Errorf("Expected the two remaining bets settled, got %d", len(summary.Settled))
	}
	if got := balanceOf(t, db, "a", "g1").Points; got != 110 {
		t.Errorf("Expected a paid once to 110, got %d", got)
	}
	if got := balanceOf(t, db, "b", "g1").Points; got != 105 {
		t.Errorf("Expected b paid from the full pool to 105, got %d", got)
	}
}

func TestRefundBetsForWager(t *testing.T) {
	db := newTestDB(t)
	wager := seedWager(t, db, "owner", "g1")
	placeAll(t, db, wager.ID, []PlaceBetInput{
		{UserID: "a", GuildID: "g1", Prediction: "success", Amount: 20},
		{UserID: "c", GuildID: "g1", Prediction: "fail", Amount: 15},
	})

	refunds, err := RefundBetsForWager(db, wager.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(refunds) != 2 {
		t.Fatalf("Expected 2 refunds, got %d", len(refunds))
	}
	for _, id := range []string{"a", "c"} {
		if got := balanceOf(t, db, id, "g1").Points; got != common.StartingPoints {
			t.Errorf("Expected %s refunded to %d, got %d", id, common.StartingPoints, got)
		}
	}

	again, err := RefundBetsForWager(db, wager.ID)
	if err != nil || len(again) != 0 {
		t.Errorf("Expected replay to refund nothing, got %d (%v)", len(again), err)
	}
}

func TestWagerPool(t *testing.T) {
	db := newTestDB(t)
	wager := seedWager(t, db, "owner", "g1")
	placeAll(t, db, wager.ID, []PlaceBetInput{
		{UserID: "a", GuildID: "g1", Prediction: "success", Amount: 20},
		{UserID: "b", GuildID: "g1", Prediction: "success", Amount: 10},
		{UserID: "c", GuildID: "g1", Prediction: "fail", Amount: 15},
	})

	pool, err := WagerPool(db, wager.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if pool.Success != 30 || pool.Fail != 15 || pool.SuccessCount != 2 || pool.FailCount != 1 {
		t.Errorf("Unexpected pool: %+v", pool)
	}

	open, err := OpenBets(db, "a", "g1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(open) != 1 || open[0].Wager.ID != wager.ID {
		t.Errorf("Expected one open bet on wager %d, got %+v", wager.ID, open)
	}
}

func TestSettleBetsForWagerDBError(t *testing.T) {
	db, mock, err := newMockDB()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	mock.ExpectQuery("SELECT \\* FROM `bets`").
		WillReturnError(errors.New("connection reset"))

	if _, err := SettleBetsForWager(db, 1, true); err == nil {
		t.Error("Expected the query error to be returned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
