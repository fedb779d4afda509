package handler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/bwmarrin/discordgo"

	"aurabot/internal/game/dice"
	"aurabot/internal/game/roulette"
	"aurabot/internal/model"
	"aurabot/internal/repository"
	"aurabot/internal/service"
)

// GameHandler handles the stateless games: dice rolls, coin flips and
// roulette spins.
type GameHandler struct {
	roulette *roulette.Game
	audit    *service.AuditService

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(rouletteGame *roulette.Game, audit *service.AuditService, rng *rand.Rand) *GameHandler {
	return &GameHandler{roulette: rouletteGame, audit: audit, rng: rng}
}

// HandleRoll handles /roll <spec>: a free dice roll, no money involved.
func (h *GameHandler) HandleRoll(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	accountID, err := userID(i)
	if err != nil {
		return err
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	specStr := "d6"
	if opt, ok := opts["dice"]; ok {
		specStr = opt.StringValue()
	}

	spec, err := dice.Parse(specStr)
	if err != nil {
		return respondEphemeral(s, i,
			"That is not a dice spec I understand. Try `2d6`, `d20` or `3d8+2`.")
	}

	h.mu.Lock()
	roll := spec.Roll(h.rng)
	h.mu.Unlock()

	h.audit.Record(model.AuditCommand, accountID, username(i), "rolled "+spec.String())
	return respond(s, i, fmt.Sprintf("%s rolled %s", mention(accountID), roll))
}

// HandleCoinflip handles /coinflip. No money moves, it is just a coin.
func (h *GameHandler) HandleCoinflip(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	accountID, err := userID(i)
	if err != nil {
		return err
	}

	h.mu.Lock()
	heads := h.rng.Intn(2) == 0
	h.mu.Unlock()

	face := "Tails"
	if heads {
		face = "Heads"
	}

	h.audit.Record(model.AuditCommand, accountID, username(i), "flipped "+face)
	return respond(s, i, fmt.Sprintf("%s flipped a coin: **%s**!", mention(accountID), face))
}

// HandleRoulette handles /roulette <bet> <amount>.
func (h *GameHandler) HandleRoulette(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	accountID, err := userID(i)
	if err != nil {
		return err
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	betType := opts["bet"].StringValue()
	amount := opts["amount"].IntValue()

	outcome, err := h.roulette.Play(ctx, accountID, betType, amount)
	switch {
	case errors.Is(err, roulette.ErrInvalidBetType):
		return respondEphemeral(s, i, "Bet on a number 0-36, red, black, even or odd.")
	case errors.Is(err, roulette.ErrInvalidAmount):
		return respondEphemeral(s, i, "The bet amount must be positive.")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return respondEphemeral(s, i, "You do not have enough AURAcoins for that bet.")
	case err != nil:
		return err
	}

	h.audit.Record(model.AuditGameResult, accountID, username(i),
		fmt.Sprintf("roulette %s for %d: landed %d, delta %+d", betType, amount, outcome.Number, outcome.Delta))

	if outcome.Won {
		return respond(s, i, fmt.Sprintf(
			"The ball lands on **%d %s**! %s wins %d AURAcoins (balance %d).",
			outcome.Number, outcome.Color, mention(accountID), outcome.Delta, outcome.NewBalance))
	}
	return respond(s, i, fmt.Sprintf(
		"The ball lands on **%d %s**. %s loses %d AURAcoins (balance %d).",
		outcome.Number, outcome.Color, mention(accountID), amount, outcome.NewBalance))
}
