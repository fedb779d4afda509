package blackjack

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurabot/internal/game"
	"aurabot/internal/game/cards"
	"aurabot/internal/model"
)

// fakeWallet tracks reservations and settlements in memory.
type fakeWallet struct {
	mu       sync.Mutex
	balances map[int64]int64
	reserved map[int64]int64
	settled  []game.Change
}

func newFakeWallet(balances map[int64]int64) *fakeWallet {
	return &fakeWallet{balances: balances, reserved: make(map[int64]int64)}
}

func (w *fakeWallet) Balance(_ context.Context, id int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[id], nil
}

func (w *fakeWallet) Available(_ context.Context, id int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[id] - w.reserved[id], nil
}

func (w *fakeWallet) Reserve(_ context.Context, id, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[id]-w.reserved[id] < amount {
		return assert.AnError
	}
	w.reserved[id] += amount
	return nil
}

func (w *fakeWallet) Release(id, amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reserved[id] -= amount
}

func (w *fakeWallet) Apply(_ context.Context, id, delta int64, _ string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[id] += delta
	return w.balances[id], nil
}

func (w *fakeWallet) Settle(_ context.Context, changes []game.Change, releases map[int64]int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range changes {
		w.balances[c.AccountID] += c.Delta
		w.settled = append(w.settled, c)
	}
	for id, amount := range releases {
		w.reserved[id] -= amount
	}
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []*model.BlackjackResult
}

func (r *fakeRecorder) RecordBlackjack(_ context.Context, res *model.BlackjackResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func card(rank string) cards.Card { return cards.Card{Rank: rank, Suit: "♠"} }

func TestPlayerWinsAgainstStandingDealer(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 1000})
	recorder := &fakeRecorder{}

	// Deal order for one player: player, dealer, player, dealer.
	deck := cards.NewStacked(card("10"), card("7"), card("9"), card("10"))
	table := NewTable(42, wallet, recorder, deck)

	require.NoError(t, table.Join(1))

	dealt, settlement, err := table.Bet(ctx, 1, 100)
	require.NoError(t, err)
	assert.True(t, dealt)
	require.Nil(t, settlement, "19 vs dealer 17 should wait for the player to act")

	settlement, err = table.Stand(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, settlement)

	require.Len(t, settlement.Results, 1)
	res := settlement.Results[0]
	assert.Equal(t, OutcomeWin, res.Outcome)
	assert.Equal(t, int64(100), res.Delta)

	// Ledger sees a bet debit and a 2x win credit; net +100.
	balance, _ := wallet.Balance(ctx, 1)
	assert.Equal(t, int64(1100), balance)
	available, _ := wallet.Available(ctx, 1)
	assert.Equal(t, int64(1100), available, "hold must be released at settlement")

	require.Len(t, recorder.results, 1)
	assert.Equal(t, table.GameID(), recorder.results[0].GameID)
}

func TestBustedPlayerLosesOnce(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500})
	recorder := &fakeRecorder{}

	deck := cards.NewStacked(card("10"), card("7"), card("6"), card("10"), card("K"))
	table := NewTable(42, wallet, recorder, deck)

	require.NoError(t, table.Join(1))
	_, _, err := table.Bet(ctx, 1, 200)
	require.NoError(t, err)

	c, hand, settlement, err := table.Hit(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "K", c.Rank)
	assert.True(t, hand.IsBust())
	require.NotNil(t, settlement, "table with only busted hands settles immediately")

	assert.Equal(t, OutcomeLoss, settlement.Results[0].Outcome)
	assert.Equal(t, int64(-200), settlement.Results[0].Delta)

	balance, _ := wallet.Balance(ctx, 1)
	assert.Equal(t, int64(300), balance)

	// The busted hand is finished; further moves are rejected.
	_, _, _, err = table.Hit(ctx, 1)
	assert.ErrorIs(t, err, ErrHandFinished)
}

func TestPushLeavesBalanceUntouched(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 1000})
	recorder := &fakeRecorder{}

	deck := cards.NewStacked(card("10"), card("10"), card("8"), card("8"))
	table := NewTable(42, wallet, recorder, deck)

	require.NoError(t, table.Join(1))
	_, _, err := table.Bet(ctx, 1, 300)
	require.NoError(t, err)

	settlement, err := table.Stand(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, settlement)

	assert.Equal(t, OutcomePush, settlement.Results[0].Outcome)
	assert.Empty(t, wallet.settled, "a push writes no ledger entries")

	balance, _ := wallet.Balance(ctx, 1)
	assert.Equal(t, int64(1000), balance)
	available, _ := wallet.Available(ctx, 1)
	assert.Equal(t, int64(1000), available)
}

func TestNaturalPaysThreeToTwo(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 1000})
	recorder := &fakeRecorder{}

	// Player A+K natural, dealer 9+8 stands on 17.
	deck := cards.NewStacked(card("A"), card("9"), card("K"), card("8"))
	table := NewTable(42, wallet, recorder, deck)

	require.NoError(t, table.Join(1))
	dealt, settlement, err := table.Bet(ctx, 1, 100)
	require.NoError(t, err)
	assert.True(t, dealt)
	require.NotNil(t, settlement, "a lone natural settles straight from the deal")

	assert.Equal(t, OutcomeBlackjack, settlement.Results[0].Outcome)
	assert.Equal(t, int64(150), settlement.Results[0].Delta)

	balance, _ := wallet.Balance(ctx, 1)
	assert.Equal(t, int64(1150), balance)
}

func TestJoinAndBetRules(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 1000, 2: 1000})
	recorder := &fakeRecorder{}

	table := NewTable(42, wallet, recorder, cards.NewStacked(
		card("10"), card("9"), card("7"),
		card("7"), card("8"), card("10"),
	))

	require.NoError(t, table.Join(1))
	assert.ErrorIs(t, table.Join(1), ErrAlreadyJoined)
	require.NoError(t, table.Join(2))

	_, _, err := table.Bet(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidBet)

	_, _, err = table.Bet(ctx, 3, 100)
	assert.ErrorIs(t, err, ErrNotJoined)

	dealt, _, err := table.Bet(ctx, 1, 100)
	require.NoError(t, err)
	assert.False(t, dealt, "deal waits for all players to bet")

	_, _, err = table.Bet(ctx, 1, 100)
	assert.ErrorIs(t, err, ErrAlreadyBet)

	dealt, _, err = table.Bet(ctx, 2, 100)
	require.NoError(t, err)
	assert.True(t, dealt)

	// Joining after the deal is rejected.
	assert.ErrorIs(t, table.Join(3), ErrJoiningClosed)
}

func TestAbortReleasesHolds(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 1000, 2: 1000})
	table := NewTable(42, wallet, &fakeRecorder{}, cards.NewStacked(card("2"), card("3"), card("4")))

	require.NoError(t, table.Join(1))
	require.NoError(t, table.Join(2))
	_, _, err := table.Bet(ctx, 1, 400)
	require.NoError(t, err)

	table.Abort()

	available, _ := wallet.Available(ctx, 1)
	assert.Equal(t, int64(1000), available)
	assert.Empty(t, wallet.settled)
}

func TestOneTablePerChannel(t *testing.T) {
	wallet := newFakeWallet(map[int64]int64{1: 1000})
	recorder := &fakeRecorder{}
	registry := game.NewRegistry()

	first := NewTable(42, wallet, recorder, cards.NewStacked(card("2")))
	require.NoError(t, registry.Create(first))

	second := NewTable(42, wallet, recorder, cards.NewStacked(card("3")))
	assert.ErrorIs(t, registry.Create(second), game.ErrSessionExists)

	// Another channel is unaffected, and a finished table frees its slot.
	other := NewTable(7, wallet, recorder, cards.NewStacked(card("4")))
	require.NoError(t, registry.Create(other))

	require.True(t, registry.Remove(42, game.TypeBlackjack))
	require.NoError(t, registry.Create(second))
}
