package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"aurabot/internal/game/fishing"
	"aurabot/internal/model"
	"aurabot/internal/repository"
	"aurabot/internal/service"
)

// FishingHandler handles the /fish command family.
type FishingHandler struct {
	pond  *fishing.Pond
	audit *service.AuditService
}

// NewFishingHandler creates a new FishingHandler.
func NewFishingHandler(pond *fishing.Pond, audit *service.AuditService) *FishingHandler {
	return &FishingHandler{pond: pond, audit: audit}
}

// Handle routes /fish subcommands.
func (h *FishingHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondEphemeral(s, i, "Pick a fishing subcommand.")
	}

	sub := options[0]
	switch sub.Name {
	case "cast":
		return h.handleCast(s, i)
	case "bait":
		return h.handleBait(s, i, sub.Options)
	case "basket":
		return h.handleBasket(s, i)
	case "sell":
		return h.handleSell(s, i)
	default:
		return respondEphemeral(s, i, "Unknown fishing subcommand.")
	}
}

func (h *FishingHandler) handleCast(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	fisherID, err := userID(i)
	if err != nil {
		return err
	}

	catch, err := h.pond.Fish(ctx, fisherID)
	switch {
	case errors.Is(err, fishing.ErrNoBait):
		return respondEphemeral(s, i, fmt.Sprintf(
			"You have no bait. Buy some with `/fish bait` (%d AURAcoins each).", h.pond.BaitPrice()))
	case errors.Is(err, fishing.ErrOnCooldown):
		return respondEphemeral(s, i, "The fish are wary. Give it a moment before casting again.")
	case err != nil:
		return err
	}

	h.audit.Record(model.AuditGameResult, fisherID, username(i), "caught "+catch.Name)
	return respond(s, i, fmt.Sprintf(
		"%s reels in a **%s** worth %d AURAcoins! (%d bait left)",
		mention(fisherID), catch.Name, catch.Value, catch.BaitLeft))
}

func (h *FishingHandler) handleBait(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()
	buyerID, err := userID(i)
	if err != nil {
		return err
	}

	qty := 1
	if opt, ok := optionMap(opts)["count"]; ok {
		qty = int(opt.IntValue())
	}

	balance, err := h.pond.BuyBait(ctx, buyerID, qty)
	switch {
	case errors.Is(err, fishing.ErrInvalidCount):
		return respondEphemeral(s, i, "Buy at least one bait.")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return respondEphemeral(s, i, "You cannot afford that much bait.")
	case err != nil:
		return err
	}

	return respond(s, i, fmt.Sprintf("%s buys %d bait. Balance: %d AURAcoins.",
		mention(buyerID), qty, balance))
}

func (h *FishingHandler) handleBasket(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	fisherID, err := userID(i)
	if err != nil {
		return err
	}

	fish, total, err := h.pond.Basket(ctx, fisherID)
	if err != nil {
		return respondEphemeral(s, i, "Could not fetch your basket.")
	}
	if len(fish) == 0 {
		return respondEphemeral(s, i, "Your basket is empty. Go catch something with `/fish cast`.")
	}

	var b strings.Builder
	b.WriteString("Your basket:\n")
	for _, f := range fish {
		fmt.Fprintf(&b, "- %dx %s\n", f.Quantity, f.Item)
	}
	fmt.Fprintf(&b, "Sell everything for %d AURAcoins with `/fish sell`.", total)
	return respondEphemeral(s, i, b.String())
}

func (h *FishingHandler) handleSell(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	fisherID, err := userID(i)
	if err != nil {
		return err
	}

	sale, err := h.pond.SellAll(ctx, fisherID)
	if errors.Is(err, fishing.ErrEmptyBasket) {
		return respondEphemeral(s, i, "You have no fish to sell.")
	}
	if err != nil {
		return err
	}

	h.audit.Record(model.AuditGameResult, fisherID, username(i),
		fmt.Sprintf("sold fish for %d", sale.Total))
	return respond(s, i, fmt.Sprintf("%s sells the catch for %d AURAcoins. Balance: %d.",
		mention(fisherID), sale.Total, sale.NewBalance))
}
