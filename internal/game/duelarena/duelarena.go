// Package duelarena implements turn-based HP duels. Two players stake the
// same amount, start at 100 HP, and trade attacks of 15-30 damage until
// one drops to zero; the winner takes the pot.
package duelarena

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"aurabot/internal/game"
	"aurabot/internal/model"
	"aurabot/internal/repository"
)

// Combat constants.
const (
	StartingHP = 100
	MinDamage  = 15
	MaxDamage  = 30
)

// Duel arena errors.
var (
	ErrSelfChallenge   = errors.New("you cannot duel yourself")
	ErrInvalidStake    = errors.New("stake must be positive")
	ErrChallengeExists = errors.New("there is already a duel between you two")
	ErrNoChallenge     = errors.New("no pending duel challenge found")
	ErrNoDuel          = errors.New("you are not in an active duel")
	ErrNotYourTurn     = errors.New("it is not your turn")
)

// Recorder persists finished duels.
type Recorder interface {
	RecordDuel(ctx context.Context, res *model.DuelResult) error
}

// Fighter is one side of an active duel.
type Fighter struct {
	ID int64
	HP int
}

// Duel is an active arena fight. The turn index points into Order.
type Duel struct {
	DuelID    string
	ChannelID int64
	Stake     int64
	Order     [2]*Fighter
	turn      int
}

// Active returns the fighter whose turn it is.
func (d *Duel) Active() *Fighter { return d.Order[d.turn] }

// Opponent returns the fighter not currently acting.
func (d *Duel) Opponent() *Fighter { return d.Order[1-d.turn] }

func (d *Duel) fighter(id int64) *Fighter {
	for _, f := range d.Order {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// challenge is a pending, not yet accepted duel.
type challenge struct {
	ChannelID    int64
	ChallengerID int64
	ChallengedID int64
	Stake        int64
}

// AttackResult reports one attack.
type AttackResult struct {
	AttackerID int64
	TargetID   int64
	Damage     int
	TargetHP   int
	Finished   bool
	WinnerID   int64
	LoserID    int64
	Pot        int64
	NextTurnID int64
}

// Arena runs all duels.
type Arena struct {
	mu         sync.Mutex
	challenges []*challenge
	duels      []*Duel

	wallet   game.Wallet
	recorder Recorder
	rng      *rand.Rand
}

// NewArena creates a duel arena.
func NewArena(wallet game.Wallet, recorder Recorder, rng *rand.Rand) *Arena {
	return &Arena{
		wallet:   wallet,
		recorder: recorder,
		rng:      rng,
	}
}

// Challenge opens a duel challenge. Both players must cover the stake and
// neither may already be involved with the other.
func (a *Arena) Challenge(ctx context.Context, channelID, challengerID, challengedID, stake int64) error {
	if challengerID == challengedID {
		return ErrSelfChallenge
	}
	if stake <= 0 {
		return ErrInvalidStake
	}

	for _, id := range []int64{challengerID, challengedID} {
		available, err := a.wallet.Available(ctx, id)
		if err != nil {
			return err
		}
		if available < stake {
			return fmt.Errorf("account %d cannot cover the %d stake: %w",
				id, stake, repository.ErrInsufficientFunds)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range a.challenges {
		if (c.ChallengerID == challengerID && c.ChallengedID == challengedID) ||
			(c.ChallengerID == challengedID && c.ChallengedID == challengerID) {
			return ErrChallengeExists
		}
	}
	for _, d := range a.duels {
		if d.fighter(challengerID) != nil && d.fighter(challengedID) != nil {
			return ErrChallengeExists
		}
	}

	a.challenges = append(a.challenges, &challenge{
		ChannelID:    channelID,
		ChallengerID: challengerID,
		ChallengedID: challengedID,
		Stake:        stake,
	})
	return nil
}

// Accept re-validates both balances, reserves both stakes and starts the
// fight with a random first turn.
func (a *Arena) Accept(ctx context.Context, challengedID int64) (*Duel, error) {
	a.mu.Lock()
	var c *challenge
	for i, cand := range a.challenges {
		if cand.ChallengedID == challengedID {
			c = cand
			a.challenges = append(a.challenges[:i], a.challenges[i+1:]...)
			break
		}
	}
	a.mu.Unlock()
	if c == nil {
		return nil, ErrNoChallenge
	}

	if err := a.wallet.Reserve(ctx, c.ChallengerID, c.Stake); err != nil {
		return nil, err
	}
	if err := a.wallet.Reserve(ctx, c.ChallengedID, c.Stake); err != nil {
		a.wallet.Release(c.ChallengerID, c.Stake)
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	duel := &Duel{
		DuelID:    uuid.NewString(),
		ChannelID: c.ChannelID,
		Stake:     c.Stake,
		Order: [2]*Fighter{
			{ID: c.ChallengerID, HP: StartingHP},
			{ID: c.ChallengedID, HP: StartingHP},
		},
		turn: a.rng.Intn(2),
	}
	a.duels = append(a.duels, duel)
	return duel, nil
}

// Decline drops a pending challenge against the given player.
func (a *Arena) Decline(challengedID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, c := range a.challenges {
		if c.ChallengedID == challengedID {
			a.challenges = append(a.challenges[:i], a.challenges[i+1:]...)
			return nil
		}
	}
	return ErrNoChallenge
}

// Cancel withdraws a pending challenge issued by the given player.
func (a *Arena) Cancel(challengerID int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, c := range a.challenges {
		if c.ChallengerID == challengerID {
			a.challenges = append(a.challenges[:i], a.challenges[i+1:]...)
			return nil
		}
	}
	return ErrNoChallenge
}

// Attack performs the acting player's attack. Out-of-turn attacks are
// rejected, not queued. When the target's HP reaches zero the duel settles
// and the winner takes the pot.
func (a *Arena) Attack(ctx context.Context, attackerID int64) (*AttackResult, error) {
	a.mu.Lock()

	var duel *Duel
	for _, d := range a.duels {
		if d.fighter(attackerID) != nil {
			duel = d
			break
		}
	}
	if duel == nil {
		a.mu.Unlock()
		return nil, ErrNoDuel
	}
	if duel.Active().ID != attackerID {
		a.mu.Unlock()
		return nil, ErrNotYourTurn
	}

	target := duel.Opponent()
	damage := a.rng.Intn(MaxDamage-MinDamage+1) + MinDamage
	target.HP -= damage
	if target.HP < 0 {
		target.HP = 0
	}

	result := &AttackResult{
		AttackerID: attackerID,
		TargetID:   target.ID,
		Damage:     damage,
		TargetHP:   target.HP,
	}

	if target.HP == 0 {
		result.Finished = true
		result.WinnerID = attackerID
		result.LoserID = target.ID
		result.Pot = duel.Stake * 2

		for i, d := range a.duels {
			if d.DuelID == duel.DuelID {
				a.duels = append(a.duels[:i], a.duels[i+1:]...)
				break
			}
		}
		a.mu.Unlock()

		return result, a.settle(ctx, duel, result)
	}

	duel.turn = 1 - duel.turn
	result.NextTurnID = duel.Active().ID
	a.mu.Unlock()
	return result, nil
}

// Duel returns the active duel a player is fighting in, if any.
func (a *Arena) Duel(playerID int64) (*Duel, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, d := range a.duels {
		if d.fighter(playerID) != nil {
			return d, true
		}
	}
	return nil, false
}

func (a *Arena) settle(ctx context.Context, duel *Duel, result *AttackResult) error {
	changes := []game.Change{
		{AccountID: result.LoserID, Delta: -duel.Stake, Kind: model.TxDuelBet},
		{AccountID: result.WinnerID, Delta: -duel.Stake, Kind: model.TxDuelBet},
		{AccountID: result.WinnerID, Delta: result.Pot, Kind: model.TxDuelWin},
	}
	releases := map[int64]int64{
		result.WinnerID: duel.Stake,
		result.LoserID:  duel.Stake,
	}

	if err := a.wallet.Settle(ctx, changes, releases); err != nil {
		return err
	}

	err := a.recorder.RecordDuel(ctx, &model.DuelResult{
		DuelID:   duel.DuelID,
		WinnerID: result.WinnerID,
		LoserID:  result.LoserID,
		Stake:    duel.Stake,
		Pot:      result.Pot,
	})
	if err != nil {
		log.Error().Err(err).Str("duel_id", duel.DuelID).Msg("Failed to record duel result")
	}
	return nil
}
