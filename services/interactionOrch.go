package services

import (
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
	"wagerBot/services/interactionService"
)

func HandleComponentInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, db *gorm.DB, sessions *interactionService.SessionStore) {
	customID := i.MessageComponentData().CustomID

	switch {
	case strings.HasPrefix(customID, interactionService.WagerBetPrefix):
		interactionService.HandleWagerBetButton(s, i, db, sessions)
	case strings.HasPrefix(customID, interactionService.BetAmountPrefix):
		interactionService.HandleBetAmountButton(s, i, db, sessions)
	case strings.HasPrefix(customID, interactionService.BetCancelPrefix):
		interactionService.HandleBetCancelButton(s, i, db, sessions)
	default:
		log.Printf("Unhandled component interaction: %s", customID)
	}
}
