// Package diceduel implements player-versus-player dice duels. A duel is
// challenged with a stake and a dice spec, accepted by the challenged
// player, then decided by each side submitting one roll of that spec.
package diceduel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"aurabot/internal/game"
	"aurabot/internal/game/dice"
	"aurabot/internal/model"
	"aurabot/internal/repository"
)

// Dice duel errors.
var (
	ErrSelfChallenge   = errors.New("you cannot challenge yourself")
	ErrInvalidStake    = errors.New("stake must be positive")
	ErrChallengeExists = errors.New("there is already a dice duel between you two")
	ErrNoChallenge     = errors.New("no pending dice duel challenge found")
	ErrSpecMismatch    = errors.New("your roll does not match the duel's dice")
)

// Recorder persists settled duels.
type Recorder interface {
	RecordDiceDuel(ctx context.Context, res *model.DiceDuelResult) error
}

// Duel is one challenge, pending or accepted.
type Duel struct {
	DuelID       string
	ChannelID    int64
	ChallengerID int64
	ChallengedID int64
	Stake        int64
	Spec         dice.Spec
	Accepted     bool

	challengerRoll *dice.Roll
	challengedRoll *dice.Roll
	timer          *time.Timer
}

func (d *Duel) involves(userID int64) bool {
	return d.ChallengerID == userID || d.ChallengedID == userID
}

// Outcome is a resolved duel.
type Outcome struct {
	DuelID         string
	ChannelID      int64
	ChallengerID   int64
	ChallengedID   int64
	Stake          int64
	ChallengerRoll dice.Roll
	ChallengedRoll dice.Roll
	Tie            bool
	WinnerID       int64
	LoserID        int64
	Pot            int64
}

// Manager runs all dice duels. ExpireFunc, when set, is called from a
// timer goroutine whenever an accepted duel's roll window runs out.
type Manager struct {
	mu    sync.Mutex
	duels []*Duel

	wallet      game.Wallet
	recorder    Recorder
	rollTimeout time.Duration

	ExpireFunc func(d *Duel)
}

// NewManager creates a dice duel manager.
func NewManager(wallet game.Wallet, recorder Recorder, rollTimeout time.Duration) *Manager {
	return &Manager{
		wallet:      wallet,
		recorder:    recorder,
		rollTimeout: rollTimeout,
	}
}

// Challenge opens a duel. Both players must be able to cover the stake and
// no duel may already exist between the pair, in either direction.
func (m *Manager) Challenge(ctx context.Context, channelID, challengerID, challengedID, stake int64, spec dice.Spec) (*Duel, error) {
	if challengerID == challengedID {
		return nil, ErrSelfChallenge
	}
	if stake <= 0 {
		return nil, ErrInvalidStake
	}

	for _, id := range []int64{challengerID, challengedID} {
		available, err := m.wallet.Available(ctx, id)
		if err != nil {
			return nil, err
		}
		if available < stake {
			return nil, fmt.Errorf("account %d cannot cover the %d stake: %w",
				id, stake, repository.ErrInsufficientFunds)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.duels {
		if d.involves(challengerID) && d.involves(challengedID) {
			return nil, ErrChallengeExists
		}
	}

	duel := &Duel{
		DuelID:       uuid.NewString(),
		ChannelID:    channelID,
		ChallengerID: challengerID,
		ChallengedID: challengedID,
		Stake:        stake,
		Spec:         spec,
	}
	m.duels = append(m.duels, duel)
	return duel, nil
}

// Accept re-validates both balances, reserves both stakes and opens the
// roll window. A failed reservation leaves the challenge pending.
func (m *Manager) Accept(ctx context.Context, challengedID int64) (*Duel, error) {
	m.mu.Lock()
	duel := m.findPending(challengedID)
	if duel == nil {
		m.mu.Unlock()
		return nil, ErrNoChallenge
	}
	// Claim the duel before dropping the lock so a concurrent accept
	// cannot reserve the stakes a second time.
	duel.Accepted = true
	m.mu.Unlock()

	// Balances may have moved since the challenge was issued.
	if err := m.wallet.Reserve(ctx, duel.ChallengerID, duel.Stake); err != nil {
		m.reopen(duel)
		return nil, err
	}
	if err := m.wallet.Reserve(ctx, duel.ChallengedID, duel.Stake); err != nil {
		m.wallet.Release(duel.ChallengerID, duel.Stake)
		m.reopen(duel)
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rollTimeout > 0 {
		id := duel.DuelID
		duel.timer = time.AfterFunc(m.rollTimeout, func() { m.expire(id) })
	}
	return duel, nil
}

// reopen returns a claimed duel to the pending set after a reservation
// failed, dropping any roll that slipped in meanwhile.
func (m *Manager) reopen(d *Duel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Accepted = false
	d.challengerRoll = nil
	d.challengedRoll = nil
}

// Decline drops a pending challenge against the given player.
func (m *Manager) Decline(challengedID int64) (*Duel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	duel := m.findPending(challengedID)
	if duel == nil {
		return nil, ErrNoChallenge
	}
	m.removeLocked(duel.DuelID)
	return duel, nil
}

// Cancel withdraws a pending challenge issued by the given player.
func (m *Manager) Cancel(challengerID int64) (*Duel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.duels {
		if d.ChallengerID == challengerID && !d.Accepted {
			m.removeLocked(d.DuelID)
			return d, nil
		}
	}
	return nil, ErrNoChallenge
}

// SubmitRoll feeds a roll into the caller's accepted duel. The second
// return value reports whether a duel consumed the roll; false with a nil
// error means the player has no duel waiting on them. A roll of the wrong
// spec is rejected with ErrSpecMismatch and the duel keeps waiting.
func (m *Manager) SubmitRoll(ctx context.Context, userID int64, roll dice.Roll) (*Outcome, bool, error) {
	m.mu.Lock()

	var duel *Duel
	for _, d := range m.duels {
		if !d.Accepted || !d.involves(userID) {
			continue
		}
		if d.ChallengerID == userID && d.challengerRoll == nil {
			duel = d
			break
		}
		if d.ChallengedID == userID && d.challengedRoll == nil {
			duel = d
			break
		}
	}
	if duel == nil {
		m.mu.Unlock()
		return nil, false, nil
	}

	if roll.Spec != duel.Spec {
		m.mu.Unlock()
		return nil, true, fmt.Errorf("duel expects %s: %w", duel.Spec, ErrSpecMismatch)
	}

	r := roll
	if duel.ChallengerID == userID {
		duel.challengerRoll = &r
	} else {
		duel.challengedRoll = &r
	}

	if duel.challengerRoll == nil || duel.challengedRoll == nil {
		m.mu.Unlock()
		return nil, true, nil
	}

	if duel.timer != nil {
		duel.timer.Stop()
	}
	m.removeLocked(duel.DuelID)
	m.mu.Unlock()

	outcome, err := m.resolve(ctx, duel)
	return outcome, true, err
}

// resolve settles an accepted duel with both rolls in.
func (m *Manager) resolve(ctx context.Context, duel *Duel) (*Outcome, error) {
	outcome := &Outcome{
		DuelID:         duel.DuelID,
		ChannelID:      duel.ChannelID,
		ChallengerID:   duel.ChallengerID,
		ChallengedID:   duel.ChallengedID,
		Stake:          duel.Stake,
		ChallengerRoll: *duel.challengerRoll,
		ChallengedRoll: *duel.challengedRoll,
	}

	releases := map[int64]int64{
		duel.ChallengerID: duel.Stake,
		duel.ChallengedID: duel.Stake,
	}

	var changes []game.Change
	switch {
	case outcome.ChallengerRoll.Total > outcome.ChallengedRoll.Total:
		outcome.WinnerID, outcome.LoserID = duel.ChallengerID, duel.ChallengedID
	case outcome.ChallengedRoll.Total > outcome.ChallengerRoll.Total:
		outcome.WinnerID, outcome.LoserID = duel.ChallengedID, duel.ChallengerID
	default:
		outcome.Tie = true
	}

	if !outcome.Tie {
		outcome.Pot = duel.Stake * 2
		changes = []game.Change{
			{AccountID: outcome.LoserID, Delta: -duel.Stake, Kind: model.TxDiceDuelBet},
			{AccountID: outcome.WinnerID, Delta: -duel.Stake, Kind: model.TxDiceDuelBet},
			{AccountID: outcome.WinnerID, Delta: outcome.Pot, Kind: model.TxDiceDuelWin},
		}
	}
	// A tie settles with no ledger writes; both holds are just released.

	if err := m.wallet.Settle(ctx, changes, releases); err != nil {
		return nil, err
	}

	err := m.recorder.RecordDiceDuel(ctx, &model.DiceDuelResult{
		DuelID:         duel.DuelID,
		ChallengerID:   duel.ChallengerID,
		ChallengedID:   duel.ChallengedID,
		Stake:          duel.Stake,
		Spec:           duel.Spec.String(),
		ChallengerRoll: outcome.ChallengerRoll.Total,
		ChallengedRoll: outcome.ChallengedRoll.Total,
		WinnerID:       outcome.WinnerID,
	})
	if err != nil {
		log.Error().Err(err).Str("duel_id", duel.DuelID).Msg("Failed to record dice duel result")
	}

	return outcome, nil
}

// expire drops a duel whose roll window ran out, releasing both holds.
func (m *Manager) expire(duelID string) {
	m.mu.Lock()
	var duel *Duel
	for _, d := range m.duels {
		if d.DuelID == duelID {
			duel = d
			break
		}
	}
	if duel == nil {
		m.mu.Unlock()
		return
	}
	m.removeLocked(duelID)
	m.mu.Unlock()

	m.wallet.Release(duel.ChallengerID, duel.Stake)
	m.wallet.Release(duel.ChallengedID, duel.Stake)

	log.Info().
		Str("duel_id", duelID).
		Int64("challenger_id", duel.ChallengerID).
		Int64("challenged_id", duel.ChallengedID).
		Msg("Dice duel roll window expired")

	if m.ExpireFunc != nil {
		m.ExpireFunc(duel)
	}
}

// Awaiting returns the accepted duel still waiting on this player's roll.
func (m *Manager) Awaiting(userID int64) (*Duel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.duels {
		if !d.Accepted || !d.involves(userID) {
			continue
		}
		if d.ChallengerID == userID && d.challengerRoll == nil {
			return d, true
		}
		if d.ChallengedID == userID && d.challengedRoll == nil {
			return d, true
		}
	}
	return nil, false
}

// findPending returns the oldest unaccepted challenge against a player.
// Caller holds m.mu.
func (m *Manager) findPending(challengedID int64) *Duel {
	for _, d := range m.duels {
		if d.ChallengedID == challengedID && !d.Accepted {
			return d
		}
	}
	return nil
}

// removeLocked removes a duel by ID. Caller holds m.mu.
func (m *Manager) removeLocked(duelID string) {
	for i, d := range m.duels {
		if d.DuelID == duelID {
			m.duels = append(m.duels[:i], m.duels[i+1:]...)
			return
		}
	}
}
