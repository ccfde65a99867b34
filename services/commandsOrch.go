package services

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
	"wagerBot/services/common"
	"wagerBot/services/guildService"
	"wagerBot/services/interactionService"
	"wagerBot/services/wagerService"
)

// Handler routes Discord interactions to the wager engine and the read models.
type Handler struct {
	DB       *gorm.DB
	Engine   *wagerService.Engine
	Sessions *interactionService.SessionStore
}

func (h *Handler) HandleSlashCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		common.RespondEphemeral(s, i, "Wagers only work inside a server.", h.DB)
		return
	}
	if _, err := guildService.GetGuildInfo(s, h.DB, i.GuildID, i.ChannelID); err != nil {
		log.Printf("Error loading guild %s: %v", i.GuildID, err)
	}

	switch i.ApplicationCommandData().Name {
	case "create-wager":
		h.CreateWager(s, i)
	case "create-multi-wager":
		h.CreateMultiWager(s, i)
	case "submit-proof":
		h.SubmitProof(s, i)
	case "forfeit":
		h.Forfeit(s, i)
	case "cancel-wager":
		h.CancelWager(s, i)
	case "bet":
		h.PlaceBet(s, i)
	case "parlay":
		h.CreateParlay(s, i)
	case "my-bets":
		h.MyOpenBets(s, i)
	case "my-points":
		ShowPoints(s, i, h.DB)
	case "my-stats":
		ShowStats(s, i, h.DB)
	case "leaderboard":
		ShowLeaderboard(s, i, h.DB)
	case "adjust-points":
		AdjustPoints(s, i, h.DB)
	case "set-betting-channel":
		guildService.SetBettingChannel(s, i, h.DB)
	}
}

func (h *Handler) HandleComponentInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	HandleComponentInteraction(s, i, h.DB, h.Sessions)
}

func Commands() []*discordgo.ApplicationCommand {
	minStake := float64(10)
	minHours := float64(1)
	maxHours := float64(168)

	return []*discordgo.ApplicationCommand{
		{
			Name:        "create-wager",
			Description: "Commit to a task with a deadline and a consequence",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "task",
					Description: "What you will do",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
					MaxLength:   wagerService.MaxTaskLength,
				},
				{
					Name:        "consequence",
					Description: "What happens if you don't",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
					MaxLength:   wagerService.MaxConsequenceLength,
				},
				{
					Name:        "hours",
					Description: "Hours until the deadline (1-168)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
					MinValue:    &minHours,
					MaxValue:    maxHours,
				},
			},
		},
		{
			Name:        "create-multi-wager",
			Description: "Commit to several tasks at once",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "title",
					Description: "Name of the challenge",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
					MaxLength:   wagerService.MaxTitleLength,
				},
				{
					Name:        "tasks",
					Description: "Tasks as hours:description separated by ; (e.g. 24:run 5k; 48:read a book)",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
				{
					Name:        "consequence",
					Description: "What happens if you don't",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
					MaxLength:   wagerService.MaxConsequenceLength,
				},
			},
		},
		{
			Name:        "submit-proof",
			Description: "Submit proof for your wager or one of its tasks",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "wager-id",
					Description: "Wager ID",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
				{
					Name:        "proof",
					Description: "Image proving you did it",
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Required:    true,
				},
				{
					Name:        "task",
					Description: "Task number for multi-task wagers",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    false,
				},
			},
		},
		{
			Name:        "forfeit",
			Description: "Give up on your wager",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "wager-id",
					Description: "Wager ID",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
			},
		},
		{
			Name:        "cancel-wager",
			Description: "Withdraw a wager and refund every stake",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "wager-id",
					Description: "Wager ID",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
			},
		},
		{
			Name:        "bet",
			Description: "Bet on whether someone completes their wager",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "wager-id",
					Description: "Wager ID",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
				{
					Name:        "prediction",
					Description: "Will they do it?",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "They'll do it", Value: "success"},
						{Name: "They won't", Value: "fail"},
					},
				},
				{
					Name:        "amount",
					Description: "Points to stake (min 10)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
					MinValue:    &minStake,
				},
				{
					Name:        "comment",
					Description: "Optional trash talk",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    false,
				},
			},
		},
		{
			Name:        "parlay",
			Description: "Combine 2-10 wager predictions into one bet",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "legs",
					Description: "Legs as wagerID:success|fail separated by commas (e.g. 12:success,15:fail)",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
				{
					Name:        "amount",
					Description: "Points to stake (min 10)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
					MinValue:    &minStake,
				},
			},
		},
		{
			Name:        "my-bets",
			Description: "Show your open bets and parlays",
		},
		{
			Name:        "my-points",
			Description: "Show your current points",
		},
		{
			Name:        "my-stats",
			Description: "Show your betting statistics",
		},
		{
			Name:        "leaderboard",
			Description: "Show the top users by points",
		},
		{
			Name:        "adjust-points",
			Description: "🛡 Grant or take points from a user - ADMIN ONLY",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        "user",
					Description: "User to adjust",
					Type:        discordgo.ApplicationCommandOptionUser,
					Required:    true,
				},
				{
					Name:        "amount",
					Description: "Points to add (negative to remove)",
					Type:        discordgo.ApplicationCommandOptionInteger,
					Required:    true,
				},
				{
					Name:        "reason",
					Description: "Why",
					Type:        discordgo.ApplicationCommandOptionString,
					Required:    true,
				},
			},
		},
		{
			Name:        "set-betting-channel",
			Description: "🛡 Sets the current channel to the main channel for wager posts - ADMIN ONLY",
		},
	}
}

func RegisterCommands(s *discordgo.Session) error {
	commands := Commands()
	for _, cmd := range commands {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("cannot create '%v' command: %v", cmd.Name, err)
		}
	}
	return nil
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}
