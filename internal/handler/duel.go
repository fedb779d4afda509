package handler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/bwmarrin/discordgo"

	"aurabot/internal/game/dice"
	"aurabot/internal/game/diceduel"
	"aurabot/internal/game/duelarena"
	"aurabot/internal/model"
	"aurabot/internal/repository"
	"aurabot/internal/service"
)

// DuelHandler handles both wagered duel families: /diceduel (highest roll
// wins) and /duel (turn-based HP combat).
type DuelHandler struct {
	diceDuels *diceduel.Manager
	arena     *duelarena.Arena
	audit     *service.AuditService

	mu  sync.Mutex
	rng *rand.Rand
}

// NewDuelHandler creates a new DuelHandler.
func NewDuelHandler(diceDuels *diceduel.Manager, arena *duelarena.Arena, audit *service.AuditService, rng *rand.Rand) *DuelHandler {
	return &DuelHandler{diceDuels: diceDuels, arena: arena, audit: audit, rng: rng}
}

// HandleDiceDuel routes /diceduel subcommands.
func (h *DuelHandler) HandleDiceDuel(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondEphemeral(s, i, "Pick a diceduel subcommand.")
	}

	sub := options[0]
	switch sub.Name {
	case "challenge":
		return h.handleDiceChallenge(s, i, sub.Options)
	case "accept":
		return h.handleDiceAccept(s, i)
	case "decline":
		return h.handleDiceDecline(s, i)
	case "cancel":
		return h.handleDiceCancel(s, i)
	case "roll":
		return h.handleDiceRoll(s, i, sub.Options)
	default:
		return respondEphemeral(s, i, "Unknown diceduel subcommand.")
	}
}

func (h *DuelHandler) handleDiceChallenge(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()
	challengerID, err := userID(i)
	if err != nil {
		return err
	}
	channel, err := channelID(i)
	if err != nil {
		return err
	}

	m := optionMap(opts)
	challengedID, err := optionUserID(m["opponent"], s)
	if err != nil {
		return err
	}
	stake := m["stake"].IntValue()
	specStr := "2d6"
	if opt, ok := m["dice"]; ok {
		specStr = opt.StringValue()
	}

	spec, err := dice.Parse(specStr)
	if err != nil {
		return respondEphemeral(s, i, "That dice spec is invalid. Try `2d6` or `d20`.")
	}

	duel, err := h.diceDuels.Challenge(ctx, channel, challengerID, challengedID, stake, spec)
	switch {
	case errors.Is(err, diceduel.ErrSelfChallenge):
		return respondEphemeral(s, i, "You cannot duel yourself.")
	case errors.Is(err, diceduel.ErrInvalidStake):
		return respondEphemeral(s, i, "The stake must be positive.")
	case errors.Is(err, diceduel.ErrChallengeExists):
		return respondEphemeral(s, i, "There is already a duel between you two.")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return respondEphemeral(s, i, "One of you cannot cover that stake.")
	case err != nil:
		return err
	}

	h.audit.Record(model.AuditCommand, challengerID, username(i),
		fmt.Sprintf("dice duel challenge %s vs %d for %d", duel.Spec, challengedID, stake))
	return respond(s, i, fmt.Sprintf(
		"%s challenges %s to a %s dice duel for %d AURAcoins! Accept with `/diceduel accept`.",
		mention(challengerID), mention(challengedID), duel.Spec, stake))
}

func (h *DuelHandler) handleDiceAccept(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	challengedID, err := userID(i)
	if err != nil {
		return err
	}

	duel, err := h.diceDuels.Accept(ctx, challengedID)
	switch {
	case errors.Is(err, diceduel.ErrNoChallenge):
		return respondEphemeral(s, i, "Nobody is challenging you to a dice duel.")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return respondEphemeral(s, i, "One of you can no longer cover the stake. The challenge is off.")
	case err != nil:
		return err
	}

	return respond(s, i, fmt.Sprintf(
		"Duel on! %s and %s, roll your %s with `/diceduel roll` before time runs out.",
		mention(duel.ChallengerID), mention(duel.ChallengedID), duel.Spec))
}

func (h *DuelHandler) handleDiceDecline(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	challengedID, err := userID(i)
	if err != nil {
		return err
	}

	duel, err := h.diceDuels.Decline(challengedID)
	if errors.Is(err, diceduel.ErrNoChallenge) {
		return respondEphemeral(s, i, "Nobody is challenging you to a dice duel.")
	}
	if err != nil {
		return err
	}
	return respond(s, i, fmt.Sprintf("%s declines the dice duel from %s.",
		mention(challengedID), mention(duel.ChallengerID)))
}

func (h *DuelHandler) handleDiceCancel(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	challengerID, err := userID(i)
	if err != nil {
		return err
	}

	_, err = h.diceDuels.Cancel(challengerID)
	if errors.Is(err, diceduel.ErrNoChallenge) {
		return respondEphemeral(s, i, "You have no pending dice duel challenge.")
	}
	if err != nil {
		return err
	}
	return respond(s, i, fmt.Sprintf("%s withdraws their dice duel challenge.", mention(challengerID)))
}

func (h *DuelHandler) handleDiceRoll(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()
	playerID, err := userID(i)
	if err != nil {
		return err
	}

	duel, ok := h.diceDuels.Awaiting(playerID)
	if !ok {
		return respondEphemeral(s, i, "No dice duel is waiting on your roll.")
	}

	spec := duel.Spec
	if opt, exists := optionMap(opts)["dice"]; exists {
		spec, err = dice.Parse(opt.StringValue())
		if err != nil {
			return respondEphemeral(s, i, "That dice spec is invalid.")
		}
	}

	h.mu.Lock()
	roll := spec.Roll(h.rng)
	h.mu.Unlock()

	outcome, consumed, err := h.diceDuels.SubmitRoll(ctx, playerID, roll)
	if errors.Is(err, diceduel.ErrSpecMismatch) {
		return respondEphemeral(s, i, fmt.Sprintf(
			"This duel is fought with %s, not %s. Roll again with the right dice.", duel.Spec, spec))
	}
	if err != nil {
		return err
	}
	if !consumed {
		return respondEphemeral(s, i, "No dice duel is waiting on your roll.")
	}

	if outcome == nil {
		return respond(s, i, fmt.Sprintf("%s rolls %s. Waiting for the opponent.", mention(playerID), roll))
	}

	if outcome.Tie {
		return respond(s, i, fmt.Sprintf(
			"%s rolled %d, %s rolled %d. A tie! Both stakes are returned.",
			mention(outcome.ChallengerID), outcome.ChallengerRoll.Total,
			mention(outcome.ChallengedID), outcome.ChallengedRoll.Total))
	}

	h.audit.Record(model.AuditGameResult, outcome.WinnerID, "",
		fmt.Sprintf("dice duel %s won pot %d", outcome.DuelID, outcome.Pot))
	return respond(s, i, fmt.Sprintf(
		"%s rolled %d, %s rolled %d. %s takes the pot of %d AURAcoins!",
		mention(outcome.ChallengerID), outcome.ChallengerRoll.Total,
		mention(outcome.ChallengedID), outcome.ChallengedRoll.Total,
		mention(outcome.WinnerID), outcome.Pot))
}

// HandleDuel routes /duel (arena) subcommands.
func (h *DuelHandler) HandleDuel(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondEphemeral(s, i, "Pick a duel subcommand.")
	}

	sub := options[0]
	switch sub.Name {
	case "challenge":
		return h.handleArenaChallenge(s, i, sub.Options)
	case "accept":
		return h.handleArenaAccept(s, i)
	case "decline":
		return h.handleArenaDecline(s, i)
	case "cancel":
		return h.handleArenaCancel(s, i)
	case "attack":
		return h.handleArenaAttack(s, i)
	case "status":
		return h.handleArenaStatus(s, i)
	default:
		return respondEphemeral(s, i, "Unknown duel subcommand.")
	}
}

func (h *DuelHandler) handleArenaChallenge(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()
	challengerID, err := userID(i)
	if err != nil {
		return err
	}
	channel, err := channelID(i)
	if err != nil {
		return err
	}

	m := optionMap(opts)
	challengedID, err := optionUserID(m["opponent"], s)
	if err != nil {
		return err
	}
	stake := m["stake"].IntValue()

	err = h.arena.Challenge(ctx, channel, challengerID, challengedID, stake)
	switch {
	case errors.Is(err, duelarena.ErrSelfChallenge):
		return respondEphemeral(s, i, "You cannot duel yourself.")
	case errors.Is(err, duelarena.ErrInvalidStake):
		return respondEphemeral(s, i, "The stake must be positive.")
	case errors.Is(err, duelarena.ErrChallengeExists):
		return respondEphemeral(s, i, "There is already a duel between you two.")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return respondEphemeral(s, i, "One of you cannot cover that stake.")
	case err != nil:
		return err
	}

	return respond(s, i, fmt.Sprintf(
		"%s challenges %s to the duel arena for %d AURAcoins! Accept with `/duel accept`.",
		mention(challengerID), mention(challengedID), stake))
}

func (h *DuelHandler) handleArenaAccept(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	challengedID, err := userID(i)
	if err != nil {
		return err
	}

	duel, err := h.arena.Accept(ctx, challengedID)
	switch {
	case errors.Is(err, duelarena.ErrNoChallenge):
		return respondEphemeral(s, i, "Nobody is challenging you in the arena.")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return respondEphemeral(s, i, "One of you can no longer cover the stake. The challenge is off.")
	case err != nil:
		return err
	}

	return respond(s, i, fmt.Sprintf(
		"The arena gates open! %s vs %s, %d HP each. %s strikes first with `/duel attack`.",
		mention(duel.Order[0].ID), mention(duel.Order[1].ID),
		duelarena.StartingHP, mention(duel.Active().ID)))
}

func (h *DuelHandler) handleArenaDecline(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	challengedID, err := userID(i)
	if err != nil {
		return err
	}

	if err := h.arena.Decline(challengedID); errors.Is(err, duelarena.ErrNoChallenge) {
		return respondEphemeral(s, i, "Nobody is challenging you in the arena.")
	} else if err != nil {
		return err
	}
	return respond(s, i, fmt.Sprintf("%s declines the arena duel.", mention(challengedID)))
}

func (h *DuelHandler) handleArenaCancel(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	challengerID, err := userID(i)
	if err != nil {
		return err
	}

	if err := h.arena.Cancel(challengerID); errors.Is(err, duelarena.ErrNoChallenge) {
		return respondEphemeral(s, i, "You have no pending arena challenge.")
	} else if err != nil {
		return err
	}
	return respond(s, i, fmt.Sprintf("%s withdraws their arena challenge.", mention(challengerID)))
}

func (h *DuelHandler) handleArenaAttack(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	attackerID, err := userID(i)
	if err != nil {
		return err
	}

	res, err := h.arena.Attack(ctx, attackerID)
	switch {
	case errors.Is(err, duelarena.ErrNoDuel):
		return respondEphemeral(s, i, "You are not in an active duel.")
	case errors.Is(err, duelarena.ErrNotYourTurn):
		return respondEphemeral(s, i, "It is not your turn.")
	case err != nil:
		return err
	}

	if res.Finished {
		h.audit.Record(model.AuditGameResult, res.WinnerID, "",
			fmt.Sprintf("arena duel won pot %d", res.Pot))
		return respond(s, i, fmt.Sprintf(
			"%s hits %s for %d damage. %s falls! %s wins the pot of %d AURAcoins!",
			mention(res.AttackerID), mention(res.TargetID), res.Damage,
			mention(res.LoserID), mention(res.WinnerID), res.Pot))
	}
	return respond(s, i, fmt.Sprintf(
		"%s hits %s for %d damage (%d HP left). %s, you are up.",
		mention(res.AttackerID), mention(res.TargetID), res.Damage,
		res.TargetHP, mention(res.NextTurnID)))
}

func (h *DuelHandler) handleArenaStatus(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	playerID, err := userID(i)
	if err != nil {
		return err
	}

	duel, ok := h.arena.Duel(playerID)
	if !ok {
		return respondEphemeral(s, i, "You are not in an active duel.")
	}

	return respondEphemeral(s, i, fmt.Sprintf(
		"Stake %d. %s: %d HP, %s: %d HP. %s to act.",
		duel.Stake,
		mention(duel.Order[0].ID), duel.Order[0].HP,
		mention(duel.Order[1].ID), duel.Order[1].HP,
		mention(duel.Active().ID)))
}
