package messageService

import (
	"log"

	"wagerBot/models"
)

// WagerResultEvent carries what a result post needs to render.
type WagerResultEvent struct {
	Wager      models.Wager
	OwnerDelta int64
	TotalPool  int64
	TotalPaid  int64
	Payouts    []Payout
	Script     string
	AudioURL   string
	Refunded   bool
}

type Payout struct {
	UserID string
	Amount int64
	Payout int64
	Won    bool
}

type WeeklySnapshot struct {
	GuildID   string
	Top       []models.User
	Created   int64
	Completed int64
	Failed    int64
}

// Announcer posts engine events to the chat platform. Posting is best-effort: callers log
// errors and carry on.
type Announcer interface {
	WagerCreated(wager models.Wager) (*MessageHandle, error)
	ProofSubmitted(wager models.Wager) error
	WagerResolved(event WagerResultEvent) error
	ParlaySettled(parlay models.Parlay) error
	WeeklyStats(snapshot WeeklySnapshot) error
}

// MessageHandle identifies a posted message so it can be edited later.
type MessageHandle struct {
	ChannelID string
	MessageID string
}

// LogAnnouncer writes events to the process log. Used when no Discord session is available.
type LogAnnouncer struct{}

func (LogAnnouncer) WagerCreated(wager models.Wager) (*MessageHandle, error) {
	log.Printf("Wager %d created by %s: %s (due %s)", wager.ID, wager.OwnerID, wager.Description(), wager.Deadline.UTC().Format("2006-01-02 15:04"))
	return nil, nil
}

func (LogAnnouncer) ProofSubmitted(wager models.Wager) error {
	log.Printf("Proof submitted for wager %d", wager.ID)
	return nil
}

func (LogAnnouncer) WagerResolved(event WagerResultEvent) error {
	log.Printf("Wager %d resolved as %s: pool=%d paid=%d owner=%+d", event.Wager.ID, event.Wager.Status, event.TotalPool, event.TotalPaid, event.OwnerDelta)
	return nil
}

func (LogAnnouncer) ParlaySettled(parlay models.Parlay) error {
	log.Printf("Parlay %d settled as %s", parlay.ID, parlay.Status)
	return nil
}

func (LogAnnouncer) WeeklyStats(snapshot WeeklySnapshot) error {
	log.Printf("Weekly stats for %s: created=%d completed=%d failed=%d", snapshot.GuildID, snapshot.Created, snapshot.Completed, snapshot.Failed)
	return nil
}
