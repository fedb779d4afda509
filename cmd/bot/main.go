// Package main is the entry point for the AURA casino bot.
package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"aurabot/internal/bot"
	"aurabot/internal/config"
	"aurabot/internal/game"
	"aurabot/internal/game/cards"
	"aurabot/internal/game/diceduel"
	"aurabot/internal/game/duelarena"
	"aurabot/internal/game/fishing"
	"aurabot/internal/game/lottery"
	"aurabot/internal/game/roulette"
	"aurabot/internal/game/trivia"
	"aurabot/internal/llm"
	"aurabot/internal/pkg/db"
	"aurabot/internal/pkg/lock"
	"aurabot/internal/repository"
	"aurabot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// .env is optional, real deployments set env vars directly
	_ = godotenv.Load()

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Repositories
	ledgerRepo := repository.NewLedgerRepository(dbPool.Pool)
	gameRepo := repository.NewGameRepository(dbPool.Pool)
	fishingRepo := repository.NewFishingRepository(dbPool.Pool)
	auditRepo := repository.NewAuditRepository(dbPool.Pool)

	// Services
	wallet := service.NewWalletService(ledgerRepo, lock.NewKeyLock(), cfg.Daily.Amount, cfg.Daily.CooldownHours)
	audit := service.NewAuditService(auditRepo, 256)

	// Games
	registry := game.NewRegistry()

	rouletteGame := roulette.New(wallet, gameRepo, newRand())
	diceDuels := diceduel.NewManager(wallet, gameRepo,
		time.Duration(cfg.Games.DiceDuel.RollTimeoutSeconds)*time.Second)
	arena := duelarena.NewArena(wallet, gameRepo, newRand())
	lotteryManager := lottery.NewManager(wallet, gameRepo, registry, newRand(),
		cfg.Games.Lottery.TicketPrice)
	pond := fishing.NewPond(wallet, fishingRepo, newRand(),
		cfg.Games.Fishing.BaitPrice,
		time.Duration(cfg.Games.Fishing.CooldownSeconds)*time.Second)

	llmClient := llm.NewOllamaClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)
	triviaManager := trivia.NewManager(wallet, llmClient, registry, trivia.Options{
		MinBet:        cfg.Games.Trivia.MinBet,
		MaxBet:        cfg.Games.Trivia.MaxBet,
		Cooldown:      time.Duration(cfg.Games.Trivia.CooldownMinutes) * time.Minute,
		AnswerTimeout: time.Duration(cfg.Games.Trivia.AnswerTimeoutSeconds) * time.Second,
	})

	deps := &bot.Dependencies{
		Config:    cfg,
		Wallet:    wallet,
		Audit:     audit,
		Registry:  registry,
		Ledger:    ledgerRepo,
		Games:     gameRepo,
		Roulette:  rouletteGame,
		DiceDuels: diceDuels,
		Arena:     arena,
		Lottery:   lotteryManager,
		Pond:      pond,
		Trivia:    triviaManager,
		LLM:       llmClient,
		NewDeck:   func() *cards.Deck { return cards.NewDeck(newRand()) },
		GameRand:  newRand(),
		DuelRand:  newRand(),
	}

	discordBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	if err := discordBot.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start bot")
	}
	log.Info().Msg("Bot is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	discordBot.Stop()
	audit.Close()
	log.Info().Msg("Bot stopped gracefully")
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: the append-only AURAcoin ledger. Balances live in the
	// balance column of each account's latest row.
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS auracoin_ledger (
			sequence_id BIGSERIAL PRIMARY KEY,
			account_id BIGINT NOT NULL,
			change_amount BIGINT NOT NULL,
			balance BIGINT NOT NULL,
			kind VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_account ON auracoin_ledger(account_id, sequence_id DESC);
		CREATE INDEX IF NOT EXISTS idx_ledger_kind ON auracoin_ledger(kind, account_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: auracoin_ledger table created")

	// Migration 2: audit log
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS logs (
			id BIGSERIAL PRIMARY KEY,
			kind VARCHAR(50) NOT NULL,
			account_id BIGINT NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: logs table created")

	// Migration 3: per-game result tables
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS blackjack_games (
			id BIGSERIAL PRIMARY KEY,
			game_id UUID NOT NULL,
			channel_id BIGINT NOT NULL,
			player_id BIGINT NOT NULL,
			bet BIGINT NOT NULL,
			outcome VARCHAR(20) NOT NULL,
			delta BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS roulette_games (
			id BIGSERIAL PRIMARY KEY,
			player_id BIGINT NOT NULL,
			bet_type VARCHAR(20) NOT NULL,
			bet BIGINT NOT NULL,
			number INT NOT NULL,
			won BOOLEAN NOT NULL,
			delta BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS dice_duel_results (
			id BIGSERIAL PRIMARY KEY,
			duel_id UUID NOT NULL,
			challenger_id BIGINT NOT NULL,
			challenged_id BIGINT NOT NULL,
			stake BIGINT NOT NULL,
			spec VARCHAR(20) NOT NULL,
			challenger_roll INT NOT NULL,
			challenged_roll INT NOT NULL,
			winner_id BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS duel_results (
			id BIGSERIAL PRIMARY KEY,
			duel_id UUID NOT NULL,
			winner_id BIGINT NOT NULL,
			loser_id BIGINT NOT NULL,
			stake BIGINT NOT NULL,
			pot BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS lottery_results (
			id BIGSERIAL PRIMARY KEY,
			channel_id BIGINT NOT NULL,
			winner_id BIGINT NOT NULL,
			pot BIGINT NOT NULL,
			tickets INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_duel_results_winner ON duel_results(winner_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: game result tables created")

	// Migration 4: fishing inventory
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS fishing_inventory (
			user_id BIGINT NOT NULL,
			item VARCHAR(100) NOT NULL,
			quantity INT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, item)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: fishing_inventory table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
