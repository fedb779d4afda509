package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"aurabot/internal/game/lottery"
	"aurabot/internal/model"
	"aurabot/internal/repository"
	"aurabot/internal/service"
)

// LotteryHistorian reads past drawings.
type LotteryHistorian interface {
	LotteryHistory(ctx context.Context, limit int) ([]*model.LotteryResult, error)
}

// LotteryHandler handles the /lottery command family.
type LotteryHandler struct {
	lottery *lottery.Manager
	history LotteryHistorian
	audit   *service.AuditService
}

// NewLotteryHandler creates a new LotteryHandler.
func NewLotteryHandler(m *lottery.Manager, history LotteryHistorian, audit *service.AuditService) *LotteryHandler {
	return &LotteryHandler{lottery: m, history: history, audit: audit}
}

// Handle routes /lottery subcommands.
func (h *LotteryHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondEphemeral(s, i, "Pick a lottery subcommand.")
	}

	sub := options[0]
	switch sub.Name {
	case "start":
		return h.handleStart(s, i, sub.Options)
	case "buy":
		return h.handleBuy(s, i, sub.Options)
	case "status":
		return h.handleStatus(s, i)
	case "end":
		return h.handleEnd(s, i)
	case "history":
		return h.handleHistory(s, i)
	default:
		return respondEphemeral(s, i, "Unknown lottery subcommand.")
	}
}

func (h *LotteryHandler) handleStart(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	starterID, err := userID(i)
	if err != nil {
		return err
	}
	channel, err := channelID(i)
	if err != nil {
		return err
	}

	minutes := int64(60)
	if opt, ok := optionMap(opts)["minutes"]; ok {
		minutes = opt.IntValue()
	}

	_, err = h.lottery.Start(channel, time.Duration(minutes)*time.Minute)
	switch {
	case errors.Is(err, lottery.ErrAlreadyRunning):
		return respondEphemeral(s, i, "A lottery is already running in this channel.")
	case errors.Is(err, lottery.ErrInvalidLength):
		return respondEphemeral(s, i, "The lottery needs a positive duration.")
	case err != nil:
		return err
	}

	h.audit.Record(model.AuditCommand, starterID, username(i),
		fmt.Sprintf("started a %dm lottery", minutes))
	return respond(s, i, fmt.Sprintf(
		"A lottery is open for %d minutes! Tickets cost %d AURAcoins, buy with `/lottery buy`.",
		minutes, h.lottery.TicketPrice()))
}

func (h *LotteryHandler) handleBuy(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()
	buyerID, err := userID(i)
	if err != nil {
		return err
	}
	channel, err := channelID(i)
	if err != nil {
		return err
	}

	qty := 1
	if opt, ok := optionMap(opts)["tickets"]; ok {
		qty = int(opt.IntValue())
	}

	balance, err := h.lottery.BuyTicket(ctx, channel, buyerID, qty)
	switch {
	case errors.Is(err, lottery.ErrNotRunning):
		return respondEphemeral(s, i, "No lottery is running here. Start one with `/lottery start`.")
	case errors.Is(err, lottery.ErrInvalidQty):
		return respondEphemeral(s, i, "Buy at least one ticket.")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return respondEphemeral(s, i, "You cannot afford that many tickets.")
	case err != nil:
		return err
	}

	return respond(s, i, fmt.Sprintf("%s buys %d ticket(s). Balance: %d AURAcoins.",
		mention(buyerID), qty, balance))
}

func (h *LotteryHandler) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	channel, err := channelID(i)
	if err != nil {
		return err
	}

	status, err := h.lottery.Status(channel)
	if errors.Is(err, lottery.ErrNotRunning) {
		return respondEphemeral(s, i, "No lottery is running here.")
	}
	if err != nil {
		return err
	}

	return respond(s, i, fmt.Sprintf(
		"Lottery: %d tickets from %d players, pot %d AURAcoins. Drawing in %s.",
		status.Tickets, status.Entrants, status.Pot, status.TimeLeft.Round(time.Second)))
}

func (h *LotteryHandler) handleEnd(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	enderID, err := userID(i)
	if err != nil {
		return err
	}
	channel, err := channelID(i)
	if err != nil {
		return err
	}

	res, err := h.lottery.End(ctx, channel)
	if errors.Is(err, lottery.ErrNotRunning) {
		return respondEphemeral(s, i, "No lottery is running here.")
	}
	if err != nil {
		return err
	}

	h.audit.Record(model.AuditGameResult, enderID, username(i),
		fmt.Sprintf("ended lottery, pot %d to %d", res.Pot, res.WinnerID))
	return respond(s, i, LotteryResultMessage(res))
}

func (h *LotteryHandler) handleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	results, err := h.history.LotteryHistory(ctx, 5)
	if err != nil {
		return respondEphemeral(s, i, "Could not fetch lottery history.")
	}
	if len(results) == 0 {
		return respondEphemeral(s, i, "No lotteries have been drawn yet.")
	}

	var b strings.Builder
	b.WriteString("Recent lottery winners:\n")
	for _, r := range results {
		if r.WinnerID == 0 {
			fmt.Fprintf(&b, "- no entrants (pot %d)\n", r.Pot)
			continue
		}
		fmt.Fprintf(&b, "- %s won %d AURAcoins (%d tickets sold)\n", mention(r.WinnerID), r.Pot, r.Tickets)
	}
	return respondEphemeral(s, i, b.String())
}

// LotteryResultMessage renders a drawing result. Shared with the timer
// announcement path in the bot.
func LotteryResultMessage(res *lottery.Result) string {
	if res.WinnerID == 0 {
		return "The lottery closed with no entrants. Better luck next time."
	}
	return fmt.Sprintf("The lottery is drawn! %s wins the pot of %d AURAcoins (%d tickets sold).",
		mention(res.WinnerID), res.Pot, res.Tickets)
}
