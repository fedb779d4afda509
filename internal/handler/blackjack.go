package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"aurabot/internal/game"
	"aurabot/internal/game/blackjack"
	"aurabot/internal/game/cards"
	"aurabot/internal/model"
	"aurabot/internal/repository"
	"aurabot/internal/service"
)

// BlackjackHandler handles the /blackjack command family. Tables live in
// the shared session registry, one per channel.
type BlackjackHandler struct {
	wallet   *service.WalletService
	recorder blackjack.Recorder
	registry *game.Registry
	audit    *service.AuditService
	newDeck  func() *cards.Deck
}

// NewBlackjackHandler creates a new BlackjackHandler. newDeck supplies a
// fresh shuffled deck per table.
func NewBlackjackHandler(wallet *service.WalletService, recorder blackjack.Recorder, registry *game.Registry, audit *service.AuditService, newDeck func() *cards.Deck) *BlackjackHandler {
	return &BlackjackHandler{
		wallet:   wallet,
		recorder: recorder,
		registry: registry,
		audit:    audit,
		newDeck:  newDeck,
	}
}

// Handle routes /blackjack subcommands.
func (h *BlackjackHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondEphemeral(s, i, "Pick a blackjack subcommand.")
	}

	sub := options[0]
	switch sub.Name {
	case "join":
		return h.handleJoin(s, i)
	case "bet":
		return h.handleBet(s, i, sub.Options)
	case "hit":
		return h.handleHit(s, i)
	case "stand":
		return h.handleStand(s, i)
	case "table":
		return h.handleTable(s, i)
	default:
		return respondEphemeral(s, i, "Unknown blackjack subcommand.")
	}
}

func (h *BlackjackHandler) table(i *discordgo.InteractionCreate) (*blackjack.Table, int64, error) {
	channel, err := channelID(i)
	if err != nil {
		return nil, 0, err
	}
	session, ok := h.registry.Get(channel, game.TypeBlackjack)
	if !ok {
		return nil, channel, nil
	}
	t, _ := session.(*blackjack.Table)
	return t, channel, nil
}

func (h *BlackjackHandler) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	playerID, err := userID(i)
	if err != nil {
		return err
	}

	table, channel, err := h.table(i)
	if err != nil {
		return err
	}

	created := false
	if table == nil {
		table = blackjack.NewTable(channel, h.wallet, h.recorder, h.newDeck())
		if err := h.registry.Create(table); err != nil {
			if !errors.Is(err, game.ErrSessionExists) {
				return err
			}
			// Someone opened a table between the lookup and now.
			if existing, ok := h.registry.Get(channel, game.TypeBlackjack); ok {
				table, _ = existing.(*blackjack.Table)
			}
		} else {
			created = true
		}
	}
	if table == nil {
		return respondEphemeral(s, i, "Could not open a table here, try again.")
	}

	switch err := table.Join(playerID); {
	case errors.Is(err, blackjack.ErrAlreadyJoined):
		return respondEphemeral(s, i, "You are already seated at this table.")
	case errors.Is(err, blackjack.ErrJoiningClosed):
		return respondEphemeral(s, i, "The cards are already dealt, wait for the next round.")
	case err != nil:
		return err
	}

	h.audit.Record(model.AuditCommand, playerID, username(i), "joined blackjack table "+table.GameID())
	if created {
		return respond(s, i, fmt.Sprintf(
			"%s opens a blackjack table! Join with `/blackjack join`, then place your bet with `/blackjack bet`.",
			mention(playerID)))
	}
	return respond(s, i, fmt.Sprintf("%s takes a seat at the blackjack table.", mention(playerID)))
}

func (h *BlackjackHandler) handleBet(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()
	playerID, err := userID(i)
	if err != nil {
		return err
	}

	table, _, err := h.table(i)
	if err != nil {
		return err
	}
	if table == nil {
		return respondEphemeral(s, i, "No open table here. Start one with `/blackjack join`.")
	}

	amount := optionMap(opts)["amount"].IntValue()
	dealt, settlement, err := table.Bet(ctx, playerID, amount)
	switch {
	case errors.Is(err, blackjack.ErrInvalidBet):
		return respondEphemeral(s, i, "The bet must be positive.")
	case errors.Is(err, blackjack.ErrNotJoined):
		return respondEphemeral(s, i, "Join the table first with `/blackjack join`.")
	case errors.Is(err, blackjack.ErrAlreadyBet):
		return respondEphemeral(s, i, "You already placed your bet.")
	case errors.Is(err, blackjack.ErrJoiningClosed):
		return respondEphemeral(s, i, "The cards are already dealt.")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return respondEphemeral(s, i, "You cannot cover that bet.")
	case err != nil:
		return err
	}

	if settlement != nil {
		h.registry.Remove(table.Channel(), game.TypeBlackjack)
		return respond(s, i, renderSettlement(settlement))
	}
	if dealt {
		return respond(s, i, fmt.Sprintf("%s bets %d. Cards are in the air!\n%s",
			mention(playerID), amount, renderTable(table.View())))
	}
	return respond(s, i, fmt.Sprintf("%s bets %d AURAcoins. Waiting for the rest of the table.",
		mention(playerID), amount))
}

func (h *BlackjackHandler) handleHit(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	playerID, err := userID(i)
	if err != nil {
		return err
	}

	table, _, err := h.table(i)
	if err != nil {
		return err
	}
	if table == nil {
		return respondEphemeral(s, i, "No blackjack game is running here.")
	}

	card, hand, settlement, err := table.Hit(ctx, playerID)
	if msg := blackjackActionError(err); msg != "" {
		return respondEphemeral(s, i, msg)
	}
	if err != nil {
		return err
	}

	line := fmt.Sprintf("%s draws %s, hand: %s (%d)", mention(playerID), card, hand, hand.Value())
	if hand.IsBust() {
		line += " **BUST!**"
	}
	if settlement != nil {
		h.registry.Remove(table.Channel(), game.TypeBlackjack)
		h.audit.Record(model.AuditGameResult, playerID, username(i), "blackjack table settled "+settlement.GameID)
		return respond(s, i, line+"\n"+renderSettlement(settlement))
	}
	return respond(s, i, line)
}

func (h *BlackjackHandler) handleStand(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	playerID, err := userID(i)
	if err != nil {
		return err
	}

	table, _, err := h.table(i)
	if err != nil {
		return err
	}
	if table == nil {
		return respondEphemeral(s, i, "No blackjack game is running here.")
	}

	settlement, err := table.Stand(ctx, playerID)
	if msg := blackjackActionError(err); msg != "" {
		return respondEphemeral(s, i, msg)
	}
	if err != nil {
		return err
	}

	if settlement != nil {
		h.registry.Remove(table.Channel(), game.TypeBlackjack)
		h.audit.Record(model.AuditGameResult, playerID, username(i), "blackjack table settled "+settlement.GameID)
		return respond(s, i, fmt.Sprintf("%s stands.\n%s", mention(playerID), renderSettlement(settlement)))
	}
	return respond(s, i, fmt.Sprintf("%s stands.", mention(playerID)))
}

func (h *BlackjackHandler) handleTable(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	table, _, err := h.table(i)
	if err != nil {
		return err
	}
	if table == nil {
		return respondEphemeral(s, i, "No blackjack game is running here.")
	}
	return respondEphemeral(s, i, renderTable(table.View()))
}

func blackjackActionError(err error) string {
	switch {
	case errors.Is(err, blackjack.ErrNotDealt):
		return "The cards are not dealt yet."
	case errors.Is(err, blackjack.ErrNotJoined):
		return "You are not seated at this table."
	case errors.Is(err, blackjack.ErrHandFinished):
		return "Your hand is already finished."
	}
	return ""
}

func renderTable(v blackjack.View) string {
	var b strings.Builder
	if v.Phase == blackjack.PhasePlayerTurns {
		fmt.Fprintf(&b, "Dealer shows %s\n", v.DealerUp)
	}
	for _, p := range v.Players {
		switch {
		case len(p.Hand) == 0:
			fmt.Fprintf(&b, "%s: waiting to bet\n", mention(p.ID))
		case p.Busted:
			fmt.Fprintf(&b, "%s: %s (%d) BUST\n", mention(p.ID), p.Hand, p.Hand.Value())
		case p.Stood:
			fmt.Fprintf(&b, "%s: %s (%d) standing\n", mention(p.ID), p.Hand, p.Hand.Value())
		default:
			fmt.Fprintf(&b, "%s: %s (%d)\n", mention(p.ID), p.Hand, p.Hand.Value())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderSettlement(st *blackjack.Settlement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dealer: %s (%d)\n", st.Dealer, st.Dealer.Value())
	for _, r := range st.Results {
		switch r.Outcome {
		case blackjack.OutcomeBlackjack:
			fmt.Fprintf(&b, "%s: %s BLACKJACK! wins %d\n", mention(r.PlayerID), r.Hand, r.Delta)
		case blackjack.OutcomeWin:
			fmt.Fprintf(&b, "%s: %s (%d) wins %d\n", mention(r.PlayerID), r.Hand, r.Hand.Value(), r.Delta)
		case blackjack.OutcomePush:
			fmt.Fprintf(&b, "%s: %s (%d) push, stake returned\n", mention(r.PlayerID), r.Hand, r.Hand.Value())
		default:
			fmt.Fprintf(&b, "%s: %s (%d) loses %d\n", mention(r.PlayerID), r.Hand, r.Hand.Value(), -r.Delta)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
