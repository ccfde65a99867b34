package models

// All lists every table the bot owns, in migration order.
func All() []interface{} {
	return []interface{}{
		&Guild{}, &User{}, &Wager{}, &Task{}, &Bet{}, &Parlay{}, &ParlayLeg{}, &Reward{}, &ErrorLog{},
	}
}
