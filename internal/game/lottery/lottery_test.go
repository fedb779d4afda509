package lottery

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurabot/internal/game"
	"aurabot/internal/model"
	"aurabot/internal/repository"
)

type fakeWallet struct {
	mu       sync.Mutex
	balances map[int64]int64
	reserved map[int64]int64
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
	if delta < 0 && w.balances[id]+delta < 0 {
		return 0, repository.ErrInsufficientFunds
	}
	w.balances[id] += delta
	return w.balances[id], nil
}

func (w *fakeWallet) Settle(_ context.Context, changes []game.Change, releases map[int64]int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range changes {
		w.balances[c.AccountID] += c.Delta
	}
	for id, amount := range releases {
		w.reserved[id] -= amount
	}
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []*model.LotteryResult
}

func (r *fakeRecorder) RecordLottery(_ context.Context, res *model.LotteryResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func newManager(wallet game.Wallet, recorder Recorder, seed int64) *Manager {
	return NewManager(wallet, recorder, game.NewRegistry(), rand.New(rand.NewSource(seed)), 10)
}

func TestLotteryLifecycle(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500, 2: 500})
	recorder := &fakeRecorder{}
	m := newManager(wallet, recorder, 3)

	_, err := m.Start(42, time.Hour)
	require.NoError(t, err)

	_, err = m.Start(42, time.Hour)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	_, err = m.Start(43, time.Hour)
	require.NoError(t, err, "other channels may run their own lottery")
	_, err = m.End(ctx, 43)
	require.NoError(t, err)

	balance, err := m.BuyTicket(ctx, 42, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(470), balance)

	_, err = m.BuyTicket(ctx, 42, 2, 7)
	require.NoError(t, err)

	status, err := m.Status(42)
	require.NoError(t, err)
	assert.Equal(t, 10, status.Tickets)
	assert.Equal(t, 2, status.Entrants)
	assert.Equal(t, int64(100), status.Pot)
	assert.Positive(t, status.TimeLeft)

	res, err := m.End(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Pot)
	assert.Equal(t, 10, res.Tickets)
	assert.Contains(t, []int64{1, 2}, res.WinnerID)

	winBal, _ := wallet.Balance(ctx, res.WinnerID)
	loseID := int64(3) - res.WinnerID
	loseBal, _ := wallet.Balance(ctx, loseID)
	assert.Equal(t, int64(1000), winBal+loseBal, "pot equals ticket spend")

	require.Len(t, recorder.results, 2)
	assert.Equal(t, res.WinnerID, recorder.results[1].WinnerID)

	_, err = m.Status(42)
	assert.ErrorIs(t, err, ErrNotRunning)
	_, err = m.End(ctx, 42)
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestBuyTicketValidation(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 25})
	m := newManager(wallet, &fakeRecorder{}, 1)

	_, err := m.BuyTicket(ctx, 42, 1, 1)
	assert.ErrorIs(t, err, ErrNotRunning)

	_, err = m.Start(42, time.Hour)
	require.NoError(t, err)

	_, err = m.BuyTicket(ctx, 42, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidQty)

	_, err = m.BuyTicket(ctx, 42, 1, 3)
	assert.ErrorIs(t, err, repository.ErrInsufficientFunds)

	balance, _ := wallet.Balance(ctx, 1)
	assert.Equal(t, int64(25), balance, "failed purchase debits nothing")

	status, _ := m.Status(42)
	assert.Zero(t, status.Tickets)
}

func TestEmptyLotteryDrawsNoWinner(t *testing.T) {
	ctx := context.Background()
	recorder := &fakeRecorder{}
	m := newManager(newFakeWallet(map[int64]int64{}), recorder, 1)

	_, err := m.Start(42, time.Hour)
	require.NoError(t, err)

	res, err := m.End(ctx, 42)
	require.NoError(t, err)
	assert.Zero(t, res.WinnerID)
	assert.Zero(t, res.Pot)

	require.Len(t, recorder.results, 1)
	assert.Zero(t, recorder.results[0].WinnerID)
}

func TestWeightedDrawFavoursBiggerHolders(t *testing.T) {
	// Player 2 holds 9 of 10 tickets; over many seeded draws they must win
	// the overwhelming majority.
	ctx := context.Background()
	wins := map[int64]int{}
	for seed := int64(0); seed < 200; seed++ {
		wallet := newFakeWallet(map[int64]int64{1: 1000, 2: 1000})
		m := newManager(wallet, &fakeRecorder{}, seed)

		_, err := m.Start(42, time.Hour)
		require.NoError(t, err)
		_, err = m.BuyTicket(ctx, 42, 1, 1)
		require.NoError(t, err)
		_, err = m.BuyTicket(ctx, 42, 2, 9)
		require.NoError(t, err)

		res, err := m.End(ctx, 42)
		require.NoError(t, err)
		wins[res.WinnerID]++
	}
	assert.Greater(t, wins[2], wins[1], "nine tickets should beat one")
	assert.Greater(t, wins[2], 120, "holder of 90%% of tickets won only %d of 200", wins[2])
}

func TestTimerDrawsAndAnnounces(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 100})
	m := newManager(wallet, &fakeRecorder{}, 5)

	drawn := make(chan *Result, 1)
	m.DrawFunc = func(res *Result) { drawn <- res }

	_, err := m.Start(42, 20*time.Millisecond)
	require.NoError(t, err)
	_, err = m.BuyTicket(ctx, 42, 1, 2)
	require.NoError(t, err)

	select {
	case res := <-drawn:
		assert.Equal(t, int64(1), res.WinnerID)
		assert.Equal(t, int64(20), res.Pot)
	case <-time.After(2 * time.Second):
		t.Fatal("timer never drew the lottery")
	}

	balance, _ := wallet.Balance(ctx, 1)
	assert.Equal(t, int64(100), balance, "sole entrant gets the pot back")

	_, err = m.Status(42)
	assert.ErrorIs(t, err, ErrNotRunning)

	assert.ErrorIs(t, func() error { _, err := m.Start(42, 0); return err }(), ErrInvalidLength)
}
