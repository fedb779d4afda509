// Package roulette implements single-bet European roulette: 37 pockets
// (0-36), straight number bets and the even-money outside bets.
package roulette

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"aurabot/internal/game"
	"aurabot/internal/model"
)

// Roulette errors.
var (
	ErrInvalidBetType = errors.New("invalid bet: use a number 0-36, red, black, even or odd")
	ErrInvalidAmount  = errors.New("bet amount must be positive")
)

// Payout multipliers, applied to the stake to get the total returned.
const (
	NumberPayout    = 36
	EvenMoneyPayout = 2
)

// redNumbers and blackNumbers are the standard wheel colors. Zero is
// neither and loses every outside bet.
var redNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true,
	16: true, 18: true, 19: true, 21: true, 23: true, 25: true, 27: true,
	30: true, 32: true, 34: true, 36: true,
}

var blackNumbers = map[int]bool{
	2: true, 4: true, 6: true, 8: true, 10: true, 11: true, 13: true,
	15: true, 17: true, 20: true, 22: true, 24: true, 26: true, 28: true,
	29: true, 31: true, 33: true, 35: true,
}

// Color returns "red", "black" or "green" for a pocket.
func Color(number int) string {
	switch {
	case redNumbers[number]:
		return "red"
	case blackNumbers[number]:
		return "black"
	default:
		return "green"
	}
}

// ValidateBetType reports whether a bet type string is playable.
func ValidateBetType(betType string) error {
	switch betType {
	case "red", "black", "even", "odd":
		return nil
	}
	n, err := strconv.Atoi(betType)
	if err != nil || n < 0 || n > 36 {
		return fmt.Errorf("%q: %w", betType, ErrInvalidBetType)
	}
	return nil
}

// Payout returns whether the bet won and the total amount returned to the
// player (stake included). A straight number pays 36x, outside bets pay
// 2x. Zero wins nothing on even/odd.
func Payout(betType string, amount int64, number int) (bool, int64) {
	switch betType {
	case "red":
		if redNumbers[number] {
			return true, amount * EvenMoneyPayout
		}
	case "black":
		if blackNumbers[number] {
			return true, amount * EvenMoneyPayout
		}
	case "even":
		if number != 0 && number%2 == 0 {
			return true, amount * EvenMoneyPayout
		}
	case "odd":
		if number%2 == 1 {
			return true, amount * EvenMoneyPayout
		}
	default:
		if n, err := strconv.Atoi(betType); err == nil && n == number {
			return true, amount * NumberPayout
		}
	}
	return false, 0
}

// Outcome is one resolved spin.
type Outcome struct {
	Number     int
	Color      string
	Won        bool
	Payout     int64
	Delta      int64
	NewBalance int64
}

// Recorder persists resolved bets.
type Recorder interface {
	RecordRoulette(ctx context.Context, res *model.RouletteResult) error
}

// Game plays stateless roulette rounds. The stake is debited up front;
// a winning spin credits the full payout afterwards.
type Game struct {
	wallet   game.Wallet
	recorder Recorder

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a roulette game.
func New(wallet game.Wallet, recorder Recorder, rng *rand.Rand) *Game {
	return &Game{wallet: wallet, recorder: recorder, rng: rng}
}

// Play validates the bet, debits the stake, spins and credits any payout.
func (g *Game) Play(ctx context.Context, playerID int64, betType string, amount int64) (*Outcome, error) {
	if err := ValidateBetType(betType); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	newBalance, err := g.wallet.Apply(ctx, playerID, -amount, model.TxBet)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	number := g.rng.Intn(37)
	g.mu.Unlock()

	won, payout := Payout(betType, amount, number)

	outcome := &Outcome{
		Number:     number,
		Color:      Color(number),
		Won:        won,
		Payout:     payout,
		Delta:      -amount,
		NewBalance: newBalance,
	}

	if won {
		newBalance, err = g.wallet.Apply(ctx, playerID, payout, model.TxWin)
		if err != nil {
			return nil, fmt.Errorf("failed to credit roulette payout: %w", err)
		}
		outcome.Delta = payout - amount
		outcome.NewBalance = newBalance
	}

	err = g.recorder.RecordRoulette(ctx, &model.RouletteResult{
		PlayerID: playerID,
		BetType:  betType,
		Bet:      amount,
		Number:   number,
		Won:      won,
		Delta:    outcome.Delta,
	})
	if err != nil {
		log.Error().Err(err).Int64("player_id", playerID).Msg("Failed to record roulette result")
	}

	return outcome, nil
}
