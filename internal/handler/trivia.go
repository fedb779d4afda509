package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"aurabot/internal/game/trivia"
	"aurabot/internal/model"
	"aurabot/internal/repository"
	"aurabot/internal/service"
)

// TriviaHandler handles the /trivia command family.
type TriviaHandler struct {
	trivia *trivia.Manager
	audit  *service.AuditService
}

// NewTriviaHandler creates a new TriviaHandler.
func NewTriviaHandler(m *trivia.Manager, audit *service.AuditService) *TriviaHandler {
	return &TriviaHandler{trivia: m, audit: audit}
}

// Handle routes /trivia subcommands.
func (h *TriviaHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondEphemeral(s, i, "Pick a trivia subcommand.")
	}

	sub := options[0]
	switch sub.Name {
	case "play":
		return h.handlePlay(s, i, sub.Options)
	case "answer":
		return h.handleAnswer(s, i, sub.Options)
	default:
		return respondEphemeral(s, i, "Unknown trivia subcommand.")
	}
}

func (h *TriviaHandler) handlePlay(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()
	playerID, err := userID(i)
	if err != nil {
		return err
	}
	channel, err := channelID(i)
	if err != nil {
		return err
	}

	bet := optionMap(opts)["bet"].IntValue()

	// Question generation waits on the model, so acknowledge first and
	// follow up when the round is ready.
	if err := deferResponse(s, i); err != nil {
		return err
	}

	round, err := h.trivia.Start(ctx, channel, playerID, bet)
	switch {
	case errors.Is(err, trivia.ErrBetOutOfRange):
		return followUp(s, i, "That bet is outside the allowed range.")
	case errors.Is(err, trivia.ErrOnCooldown):
		return followUp(s, i, "You played trivia recently. Take a breather.")
	case errors.Is(err, trivia.ErrRoundRunning):
		return followUp(s, i, "A trivia round is already running in this channel.")
	case errors.Is(err, repository.ErrInsufficientFunds):
		return followUp(s, i, "You cannot cover that bet.")
	case errors.Is(err, trivia.ErrQuestionFailed):
		return followUp(s, i, "I could not come up with a question. Your stake was returned.")
	case err != nil:
		return err
	}

	h.audit.Record(model.AuditCommand, playerID, username(i),
		fmt.Sprintf("trivia round for %d", bet))
	return followUp(s, i, renderQuestion(playerID, round))
}

func (h *TriviaHandler) handleAnswer(s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) error {
	ctx := context.Background()
	playerID, err := userID(i)
	if err != nil {
		return err
	}
	channel, err := channelID(i)
	if err != nil {
		return err
	}

	choice := optionMap(opts)["choice"].StringValue()

	out, err := h.trivia.Answer(ctx, channel, playerID, choice)
	switch {
	case errors.Is(err, trivia.ErrInvalidChoice):
		return respondEphemeral(s, i, "Answer with one of A, B, C or D.")
	case errors.Is(err, trivia.ErrNoRound):
		return respondEphemeral(s, i, "No trivia round is running here.")
	case errors.Is(err, trivia.ErrNotYourRound):
		return respondEphemeral(s, i, "This round belongs to another player.")
	case err != nil:
		return err
	}

	h.audit.Record(model.AuditGameResult, playerID, username(i),
		fmt.Sprintf("trivia answer %s, delta %+d", out.Chosen, out.Delta))

	if out.Correct {
		return respond(s, i, fmt.Sprintf("Correct! %s wins %d AURAcoins.",
			mention(playerID), out.Delta))
	}
	return respond(s, i, fmt.Sprintf("Wrong. The answer was **%s**. %s loses %d AURAcoins.",
		out.Answer, mention(playerID), out.Bet))
}

func renderQuestion(playerID int64, round *trivia.Round) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s bets %d AURAcoins on trivia!\n**%s**\n",
		mention(playerID), round.Bet, round.Question.Text)
	for _, letter := range []string{"A", "B", "C", "D"} {
		fmt.Fprintf(&b, "%s) %s\n", letter, round.Question.Options[letter])
	}
	b.WriteString("Answer with `/trivia answer` before time runs out.")
	return b.String()
}

// TriviaTimeoutMessage renders an expired round announcement for the
// manager's timeout callback.
func TriviaTimeoutMessage(out *trivia.Outcome) string {
	return fmt.Sprintf("Time's up! The answer was **%s**. %s loses %d AURAcoins.",
		out.Answer, mention(out.PlayerID), out.Bet)
}
