package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"aurabot/internal/model"
)

// GameRepository persists per-game result rows. Result rows are written
// after the matching ledger entries commit; they are reporting data, not
// the source of truth for balances.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

// RecordBlackjack writes one player's settled blackjack hand.
func (r *GameRepository) RecordBlackjack(ctx context.Context, res *model.BlackjackResult) error {
	const query = `
		INSERT INTO blackjack_games (game_id, channel_id, player_id, bet, outcome, delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.pool.Exec(ctx, query,
		res.GameID, res.ChannelID, res.PlayerID, res.Bet, res.Outcome, res.Delta)
	if err != nil {
		return fmt.Errorf("failed to record blackjack result: %w", err)
	}
	return nil
}

// RecordRoulette writes one resolved roulette bet.
func (r *GameRepository) RecordRoulette(ctx context.Context, res *model.RouletteResult) error {
	const query = `
		INSERT INTO roulette_games (player_id, bet_type, bet, number, won, delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.pool.Exec(ctx, query,
		res.PlayerID, res.BetType, res.Bet, res.Number, res.Won, res.Delta)
	if err != nil {
		return fmt.Errorf("failed to record roulette result: %w", err)
	}
	return nil
}

// RecordDiceDuel writes a settled dice duel.
func (r *GameRepository) RecordDiceDuel(ctx context.Context, res *model.DiceDuelResult) error {
	const query = `
		INSERT INTO dice_duel_results
			(duel_id, challenger_id, challenged_id, stake, spec, challenger_roll, challenged_roll, winner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	_, err := r.pool.Exec(ctx, query,
		res.DuelID, res.ChallengerID, res.ChallengedID, res.Stake, res.Spec,
		res.ChallengerRoll, res.ChallengedRoll, res.WinnerID)
	if err != nil {
		return fmt.Errorf("failed to record dice duel result: %w", err)
	}
	return nil
}

// RecordDuel writes a finished arena duel.
func (r *GameRepository) RecordDuel(ctx context.Context, res *model.DuelResult) error {
	const query = `
		INSERT INTO duel_results (duel_id, winner_id, loser_id, stake, pot, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := r.pool.Exec(ctx, query,
		res.DuelID, res.WinnerID, res.LoserID, res.Stake, res.Pot)
	if err != nil {
		return fmt.Errorf("failed to record duel result: %w", err)
	}
	return nil
}

// RecordLottery writes a finished lottery drawing.
func (r *GameRepository) RecordLottery(ctx context.Context, res *model.LotteryResult) error {
	const query = `
		INSERT INTO lottery_results (channel_id, winner_id, pot, tickets, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	_, err := r.pool.Exec(ctx, query,
		res.ChannelID, res.WinnerID, res.Pot, res.Tickets)
	if err != nil {
		return fmt.Errorf("failed to record lottery result: %w", err)
	}
	return nil
}

// DuelLeaderboard returns top arena duel winners by total pot won.
func (r *GameRepository) DuelLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardRow, error) {
	const query = `
		SELECT winner_id AS account_id, COALESCE(SUM(pot), 0) AS total
		FROM duel_results
		GROUP BY winner_id
		ORDER BY total DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get duel leaderboard: %w", err)
	}
	defer rows.Close()

	var result []*model.LeaderboardRow
	for rows.Next() {
		var row model.LeaderboardRow
		if err := rows.Scan(&row.AccountID, &row.Total); err != nil {
			return nil, fmt.Errorf("failed to scan duel leaderboard row: %w", err)
		}
		result = append(result, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating duel leaderboard: %w", err)
	}

	return result, nil
}

// LotteryHistory returns the most recent finished drawings, newest first.
func (r *GameRepository) LotteryHistory(ctx context.Context, limit int) ([]*model.LotteryResult, error) {
	const query = `
		SELECT id, channel_id, winner_id, pot, tickets, created_at
		FROM lottery_results
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get lottery history: %w", err)
	}
	defer rows.Close()

	var result []*model.LotteryResult
	for rows.Next() {
		var res model.LotteryResult
		err := rows.Scan(&res.ID, &res.ChannelID, &res.WinnerID, &res.Pot, &res.Tickets, &res.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lottery result: %w", err)
		}
		result = append(result, &res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lottery history: %w", err)
	}

	return result, nil
}
