// Package bot wires the Discord session, slash command registration and
// interaction dispatch.
package bot

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"aurabot/internal/config"
	"aurabot/internal/game"
	"aurabot/internal/game/cards"
	"aurabot/internal/game/diceduel"
	"aurabot/internal/game/duelarena"
	"aurabot/internal/game/fishing"
	"aurabot/internal/game/lottery"
	"aurabot/internal/game/roulette"
	"aurabot/internal/game/trivia"
	"aurabot/internal/handler"
	"aurabot/internal/llm"
	"aurabot/internal/repository"
	"aurabot/internal/service"
)

// Bot wraps the Discord session with the command dispatch table.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config
	audit   *service.AuditService

	handlers map[string]handler.Func
}

// Dependencies holds everything the bot needs to build its handlers.
type Dependencies struct {
	Config    *config.Config
	Wallet    *service.WalletService
	Audit     *service.AuditService
	Registry  *game.Registry
	Ledger    *repository.LedgerRepository
	Games     *repository.GameRepository
	Roulette  *roulette.Game
	DiceDuels *diceduel.Manager
	Arena     *duelarena.Arena
	Lottery   *lottery.Manager
	Pond      *fishing.Pond
	Trivia    *trivia.Manager
	LLM       llm.Client
	NewDeck   func() *cards.Deck

	// Each handler that rolls dice serializes its own source, so the
	// two families get separate ones.
	GameRand *rand.Rand
	DuelRand *rand.Rand
}

// New creates a Bot, builds the handlers and hooks up the timer
// announcement callbacks. It does not open the gateway connection.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Discord.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}

	session, err := discordgo.New("Bot " + deps.Config.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		session: session,
		cfg:     deps.Config,
		audit:   deps.Audit,
	}

	account := handler.NewAccountHandler(deps.Wallet, deps.Audit)
	games := handler.NewGameHandler(deps.Roulette, deps.Audit, deps.GameRand)
	blackjackH := handler.NewBlackjackHandler(deps.Wallet, deps.Games, deps.Registry, deps.Audit, deps.NewDeck)
	duels := handler.NewDuelHandler(deps.DiceDuels, deps.Arena, deps.Audit, deps.DuelRand)
	lotteryH := handler.NewLotteryHandler(deps.Lottery, deps.Games, deps.Audit)
	fishingH := handler.NewFishingHandler(deps.Pond, deps.Audit)
	ranking := handler.NewRankingHandler(deps.Ledger, deps.Games)
	triviaH := handler.NewTriviaHandler(deps.Trivia, deps.Audit)
	chat := handler.NewChatHandler(deps.LLM, deps.Audit)

	b.handlers = map[string]handler.Func{
		"balance":   account.HandleBalance,
		"daily":     account.HandleDaily,
		"history":   account.HandleHistory,
		"roll":      games.HandleRoll,
		"coinflip":  games.HandleCoinflip,
		"roulette":  games.HandleRoulette,
		"blackjack": blackjackH.Handle,
		"diceduel":  duels.HandleDiceDuel,
		"duel":      duels.HandleDuel,
		"lottery":   lotteryH.Handle,
		"fish":      fishingH.Handle,
		"fishtop":   ranking.HandleFishTop,
		"dueltop":   ranking.HandleDuelTop,
		"trivia":    triviaH.Handle,
		"aura":      chat.Handle,
	}

	// Timer-driven results have no interaction to reply to, so they are
	// announced straight into the channel.
	deps.Lottery.DrawFunc = func(res *lottery.Result) {
		b.announce(res.ChannelID, handler.LotteryResultMessage(res))
	}
	deps.Trivia.TimeoutFunc = func(out *trivia.Outcome) {
		b.announce(out.ChannelID, handler.TriviaTimeoutMessage(out))
	}
	deps.DiceDuels.ExpireFunc = func(d *diceduel.Duel) {
		b.announce(d.ChannelID, fmt.Sprintf(
			"The dice duel between <@%d> and <@%d> timed out. Both stakes are returned.",
			d.ChallengerID, d.ChallengedID))
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)

	return b, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	appID := b.session.State.User.ID
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.Discord.GuildID, commands())
	if err != nil {
		b.session.Close()
		return fmt.Errorf("failed to register slash commands: %w", err)
	}

	log.Info().
		Int("commands", len(registered)).
		Str("guild_id", b.cfg.Discord.GuildID).
		Msg("Slash commands registered")
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	if err := b.session.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close discord session")
	}
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("username", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msg("Bot connected")
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	name := i.ApplicationCommandData().Name
	fn, ok := b.handlers[name]
	if !ok {
		log.Warn().Str("command", name).Msg("No handler for command")
		return
	}

	h := Chain(fn,
		LoggingMiddleware(name),
		RecoveryMiddleware(),
		ErrorMiddleware(name, b.audit),
	)
	// Errors are logged and audited by the middleware chain.
	_ = h(s, i)
}

// announce posts a message outside any interaction, for timer results.
func (b *Bot) announce(channelID int64, content string) {
	_, err := b.session.ChannelMessageSend(strconv.FormatInt(channelID, 10), content)
	if err != nil {
		log.Error().Err(err).Int64("channel_id", channelID).Msg("Failed to announce result")
	}
}
