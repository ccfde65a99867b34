package messageService

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
	"wagerBot/models"
	"wagerBot/services/common"
)

const (
	colorInfo    = 0x3498db
	colorSuccess = 0x57F287
	colorFailure = 0xED4245
	colorNeutral = 0x95a5a6
)

// DiscordAnnouncer posts to the guild's betting channel, falling back to the channel the
// wager was created in.
type DiscordAnnouncer struct {
	Session *discordgo.Session
	DB      *gorm.DB
}

func (a *DiscordAnnouncer) channelFor(guildID string, fallback string) (string, error) {
	var guild models.Guild
	err := a.DB.Where("guild_id = ?", guildID).First(&guild).Error
	if err == nil && guild.BetChannelID != "" {
		return guild.BetChannelID, nil
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", errors.New("no betting channel set for guild " + guildID)
}

func (a *DiscordAnnouncer) WagerCreated(wager models.Wager) (*MessageHandle, error) {
	channelID, err := a.channelFor(wager.GuildID, wager.ChannelID)
	if err != nil {
		return nil, err
	}
	msg, err := a.Session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{BuildWagerEmbed(wager)},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: GetWagerBetButtons(wager.ID)},
		},
	})
	if err != nil {
		return nil, err
	}
	return &MessageHandle{ChannelID: msg.ChannelID, MessageID: msg.ID}, nil
}

func (a *DiscordAnnouncer) ProofSubmitted(wager models.Wager) error {
	channelID, err := a.channelFor(wager.GuildID, wager.ChannelID)
	if err != nil {
		return err
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📸 Proof Submitted for Wager #%d", wager.ID),
		Description: fmt.Sprintf("%s submitted proof for **%s**. Verifying...", common.Mention(wager.OwnerID), wager.Description()),
		Color:       colorInfo,
	}
	if wager.ProofURL != nil {
		embed.Image = &discordgo.MessageEmbedImage{URL: *wager.ProofURL}
	}
	_, err = a.Session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	})
	return err
}

func (a *DiscordAnnouncer) WagerResolved(event WagerResultEvent) error {
	wager := event.Wager
	channelID, err := a.channelFor(wager.GuildID, wager.ChannelID)
	if err != nil {
		return err
	}
	_, err = a.Session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{BuildWagerResultEmbed(event)},
	})
	if err != nil {
		return err
	}

	// strip the bet buttons from the original post
	if wager.MessageID != nil && wager.ChannelID != "" {
		empty := []discordgo.MessageComponent{}
		_, err = a.Session.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         *wager.MessageID,
			Channel:    wager.ChannelID,
			Components: &empty,
		})
	}
	return err
}

func (a *DiscordAnnouncer) ParlaySettled(parlay models.Parlay) error {
	channelID, err := a.channelFor(parlay.GuildID, "")
	if err != nil {
		return err
	}
	_, err = a.Session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{BuildParlayResultEmbed(parlay)},
	})
	return err
}

func (a *DiscordAnnouncer) WeeklyStats(snapshot WeeklySnapshot) error {
	channelID, err := a.channelFor(snapshot.GuildID, "")
	if err != nil {
		return err
	}
	_, err = a.Session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{BuildWeeklyStatsEmbed(snapshot)},
	})
	return err
}

func GetWagerBetButtons(wagerID uint) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "They'll do it",
			Style:    discordgo.SuccessButton,
			CustomID: fmt.Sprintf("wager_bet_%d_%s", wagerID, models.PredictionSuccess),
			Emoji:    &discordgo.ComponentEmoji{Name: "✅"},
		},
		discordgo.Button{
			Label:    "They won't",
			Style:    discordgo.DangerButton,
			CustomID: fmt.Sprintf("wager_bet_%d_%s", wagerID, models.PredictionFail),
			Emoji:    &discordgo.ComponentEmoji{Name: "❌"},
		},
	}
}

// GetAmountButtons offers quick stake amounts for a pending bet selection.
func GetAmountButtons(sessionID string, amounts []int64) []discordgo.MessageComponent {
	var buttons []discordgo.MessageComponent
	for _, amount := range amounts {
		buttons = append(buttons, discordgo.Button{
			Label:    fmt.Sprintf("%d", amount),
			Style:    discordgo.PrimaryButton,
			CustomID: fmt.Sprintf("bet_amount_%s_%d", sessionID, amount),
		})
	}
	buttons = append(buttons, discordgo.Button{
		Label:    "Cancel",
		Style:    discordgo.SecondaryButton,
		CustomID: fmt.Sprintf("bet_cancel_%s", sessionID),
	})
	return buttons
}

func BuildWagerEmbed(wager models.Wager) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Consequence", Value: wager.Consequence},
		{Name: "Deadline", Value: fmt.Sprintf("<t:%d:R>", wager.Deadline.Unix()), Inline: true},
		{Name: "Wager ID", Value: fmt.Sprintf("%d", wager.ID), Inline: true},
	}
	if len(wager.Tasks) > 0 {
		var tasks strings.Builder
		for _, task := range wager.Tasks {
			tasks.WriteString(fmt.Sprintf("%d. %s (<t:%d:R>)\n", task.Position, task.Description, task.Deadline.Unix()))
		}
		fields = append([]*discordgo.MessageEmbedField{{Name: "Tasks", Value: tasks.String()}}, fields...)
	}
	return &discordgo.MessageEmbed{
		Title:       "📢 New Wager",
		Description: fmt.Sprintf("%s commits to: **%s**", common.Mention(wager.OwnerID), wager.Description()),
		Fields:      fields,
		Color:       colorInfo,
	}
}

func BuildWagerResultEmbed(event WagerResultEvent) *discordgo.MessageEmbed {
	wager := event.Wager
	embed := &discordgo.MessageEmbed{
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total Pool", Value: fmt.Sprintf("**%d** points", event.TotalPool), Inline: true},
			{Name: "Paid Out", Value: fmt.Sprintf("**%d** points", event.TotalPaid), Inline: true},
		},
	}

	switch wager.Status {
	case models.WagerStatusCompleted:
		embed.Title = fmt.Sprintf("🏆 Wager #%d Completed", wager.ID)
		embed.Color = colorSuccess
		embed.Description = fmt.Sprintf("%s did it: **%s**\nReward: **+%d** points", common.Mention(wager.OwnerID), wager.Description(), event.OwnerDelta)
	case models.WagerStatusFailed:
		embed.Title = fmt.Sprintf("💀 Wager #%d Failed", wager.ID)
		embed.Color = colorFailure
		embed.Description = fmt.Sprintf("%s did not make it: **%s**\nConsequence: %s\nPenalty: **%d** points", common.Mention(wager.OwnerID), wager.Description(), wager.Consequence, event.OwnerDelta)
	default:
		embed.Title = fmt.Sprintf("🚫 Wager #%d Cancelled", wager.ID)
		embed.Color = colorNeutral
		embed.Description = fmt.Sprintf("**%s** was withdrawn. All stakes were refunded.", wager.Description())
	}

	if wager.VerificationReasoning != nil && *wager.VerificationReasoning != "" {
		confidence := 0
		if wager.VerificationConfidence != nil {
			confidence = *wager.VerificationConfidence
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("Verdict (%d%% confidence)", confidence),
			Value: *wager.VerificationReasoning,
		})
	}

	var winners, losers strings.Builder
	for _, p := range event.Payouts {
		if p.Won {
			winners.WriteString(fmt.Sprintf("%s +%d\n", common.Mention(p.UserID), p.Payout))
		} else if !event.Refunded {
			losers.WriteString(fmt.Sprintf("%s -%d\n", common.Mention(p.UserID), p.Amount))
		}
	}
	if winners.Len() > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Winners", Value: winners.String()})
	}
	if losers.Len() > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Losers", Value: losers.String()})
	}
	if event.Script != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "🎙️", Value: event.Script})
	}
	if event.AudioURL != "" {
		embed.URL = event.AudioURL
	}
	return embed
}

func BuildParlayResultEmbed(parlay models.Parlay) *discordgo.MessageEmbed {
	var title string
	var color int
	var description strings.Builder

	payout := int64(0)
	if parlay.ActualPayout != nil {
		payout = *parlay.ActualPayout
	}

	switch parlay.Status {
	case models.ParlayStatusWon:
		title = "🎉 Parlay Hit!"
		color = colorSuccess
		description.WriteString(fmt.Sprintf("%s Your parlay has been **won**!\n\n", common.Mention(parlay.UserID)))
		description.WriteString(fmt.Sprintf("**Amount Wagered:** %d points\n", parlay.Amount))
		description.WriteString(fmt.Sprintf("**Payout:** %d points\n", payout))
	case models.ParlayStatusVoid:
		title = "↩️ Parlay Voided"
		color = colorNeutral
		description.WriteString(fmt.Sprintf("%s Too many legs were cancelled. Your **%d** points were refunded.\n", common.Mention(parlay.UserID), payout))
	default:
		title = "💔 Parlay Lost"
		color = colorFailure
		description.WriteString(fmt.Sprintf("%s Your parlay has been **lost**.\n\n", common.Mention(parlay.UserID)))
		description.WriteString(fmt.Sprintf("**Amount Wagered:** %d points\n", parlay.Amount))
	}

	if len(parlay.Legs) > 0 {
		description.WriteString("\n**Parlay Details:**\n")
		for idx, leg := range parlay.Legs {
			description.WriteString(fmt.Sprintf("%d. Wager #%d: **%s** - %s\n", idx+1, leg.WagerID, leg.Prediction, LegStatusLabel(leg.Status)))
		}
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description.String(),
		Color:       color,
	}
}

func BuildWeeklyStatsEmbed(snapshot WeeklySnapshot) *discordgo.MessageEmbed {
	var board strings.Builder
	for idx, user := range snapshot.Top {
		board.WriteString(fmt.Sprintf("**%d. %s** - %d points\n", idx+1, common.DisplayName(user), user.Points))
	}
	if board.Len() == 0 {
		board.WriteString("_No activity yet_")
	}
	return &discordgo.MessageEmbed{
		Title: "📊 Weekly Wrap-up",
		Color: 0xe67e22,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Wagers Created", Value: fmt.Sprintf("%d", snapshot.Created), Inline: true},
			{Name: "Completed", Value: fmt.Sprintf("%d", snapshot.Completed), Inline: true},
			{Name: "Failed", Value: fmt.Sprintf("%d", snapshot.Failed), Inline: true},
			{Name: "🏆 Leaderboard", Value: board.String()},
		},
	}
}

func LegStatusLabel(status string) string {
	switch status {
	case models.LegStatusCorrect:
		return "✅ Won"
	case models.LegStatusIncorrect:
		return "❌ Lost"
	case models.LegStatusCancelled:
		return "🚫 Cancelled"
	default:
		return "⏳ Pending"
	}
}
