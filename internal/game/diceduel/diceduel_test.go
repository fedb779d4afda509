package diceduel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurabot/internal/game"
	"aurabot/internal/game/dice"
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
	if w.balances[id]-w.reserved[id] < amount {
		return repository.ErrInsufficientFunds
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
	}
	for id, amount := range releases {
		w.reserved[id] -= amount
	}
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	results []*model.DiceDuelResult
}

func (r *fakeRecorder) RecordDiceDuel(_ context.Context, res *model.DiceDuelResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

func mustSpec(t *testing.T, s string) dice.Spec {
	t.Helper()
	spec, err := dice.Parse(s)
	require.NoError(t, err)
	return spec
}

func roll(spec dice.Spec, total int) dice.Roll {
	return dice.Roll{Spec: spec, Dice: []int{total - spec.Modifier}, Total: total}
}

func TestDuelStakeMovesFromLoserToWinner(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 1000, 2: 1000})
	recorder := &fakeRecorder{}
	m := NewManager(wallet, recorder, 0)

	spec := mustSpec(t, "2d6")
	_, err := m.Challenge(ctx, 42, 1, 2, 50, spec)
	require.NoError(t, err)

	duel, err := m.Accept(ctx, 2)
	require.NoError(t, err)
	assert.True(t, duel.Accepted)

	outcome, matched, err := m.SubmitRoll(ctx, 1, roll(spec, 9))
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Nil(t, outcome, "duel waits for the second roll")

	outcome, matched, err = m.SubmitRoll(ctx, 2, roll(spec, 7))
	require.NoError(t, err)
	require.True(t, matched)
	require.NotNil(t, outcome)

	assert.False(t, outcome.Tie)
	assert.Equal(t, int64(1), outcome.WinnerID)
	assert.Equal(t, int64(2), outcome.LoserID)
	assert.Equal(t, int64(100), outcome.Pot)

	b1, _ := wallet.Balance(ctx, 1)
	b2, _ := wallet.Balance(ctx, 2)
	assert.Equal(t, int64(1050), b1)
	assert.Equal(t, int64(950), b2)
	assert.Equal(t, int64(2000), b1+b2, "duels are zero sum")

	a1, _ := wallet.Available(ctx, 1)
	a2, _ := wallet.Available(ctx, 2)
	assert.Equal(t, b1, a1, "no hold left after settlement")
	assert.Equal(t, b2, a2)

	require.Len(t, recorder.results, 1)
	assert.Equal(t, int64(1), recorder.results[0].WinnerID)
	assert.Equal(t, 9, recorder.results[0].ChallengerRoll)
}

func TestTieReleasesBothHolds(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500, 2: 500})
	m := NewManager(wallet, &fakeRecorder{}, 0)

	spec := mustSpec(t, "d20")
	_, err := m.Challenge(ctx, 42, 1, 2, 100, spec)
	require.NoError(t, err)
	_, err = m.Accept(ctx, 2)
	require.NoError(t, err)

	_, _, err = m.SubmitRoll(ctx, 1, roll(spec, 11))
	require.NoError(t, err)
	outcome, matched, err := m.SubmitRoll(ctx, 2, roll(spec, 11))
	require.NoError(t, err)
	require.True(t, matched)
	require.NotNil(t, outcome)

	assert.True(t, outcome.Tie)

	b1, _ := wallet.Balance(ctx, 1)
	b2, _ := wallet.Balance(ctx, 2)
	assert.Equal(t, int64(500), b1, "a tie writes no ledger entries")
	assert.Equal(t, int64(500), b2)
	a1, _ := wallet.Available(ctx, 1)
	assert.Equal(t, int64(500), a1)
}

func TestMismatchedSpecIsRejectedWithNotice(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500, 2: 500})
	m := NewManager(wallet, &fakeRecorder{}, 0)

	spec := mustSpec(t, "2d6")
	_, err := m.Challenge(ctx, 42, 1, 2, 50, spec)
	require.NoError(t, err)
	_, err = m.Accept(ctx, 2)
	require.NoError(t, err)

	wrong := mustSpec(t, "d20")
	outcome, matched, err := m.SubmitRoll(ctx, 1, roll(wrong, 15))
	assert.Nil(t, outcome)
	assert.True(t, matched, "the duel saw the roll and rejected it")
	assert.ErrorIs(t, err, ErrSpecMismatch)

	// The duel is still waiting; a correct roll goes through.
	_, matched, err = m.SubmitRoll(ctx, 1, roll(spec, 8))
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestChallengeValidation(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 1000, 2: 30})
	m := NewManager(wallet, &fakeRecorder{}, 0)
	spec := mustSpec(t, "2d6")

	_, err := m.Challenge(ctx, 42, 1, 1, 50, spec)
	assert.ErrorIs(t, err, ErrSelfChallenge)

	_, err = m.Challenge(ctx, 42, 1, 2, 0, spec)
	assert.ErrorIs(t, err, ErrInvalidStake)

	_, err = m.Challenge(ctx, 42, 1, 2, 50, spec)
	assert.ErrorIs(t, err, repository.ErrInsufficientFunds, "challenged player cannot cover the stake")

	wallet.balances[2] = 1000
	_, err = m.Challenge(ctx, 42, 1, 2, 50, spec)
	require.NoError(t, err)

	// No second duel between the same pair, in either direction.
	_, err = m.Challenge(ctx, 42, 1, 2, 20, spec)
	assert.ErrorIs(t, err, ErrChallengeExists)
	_, err = m.Challenge(ctx, 42, 2, 1, 20, spec)
	assert.ErrorIs(t, err, ErrChallengeExists)
}

func TestAcceptRevalidatesBalances(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 100, 2: 100})
	m := NewManager(wallet, &fakeRecorder{}, 0)
	spec := mustSpec(t, "2d6")

	_, err := m.Challenge(ctx, 42, 1, 2, 100, spec)
	require.NoError(t, err)

	// The challenger spends down before the accept.
	wallet.balances[1] = 40

	_, err = m.Accept(ctx, 2)
	assert.ErrorIs(t, err, repository.ErrInsufficientFunds)

	a2, _ := wallet.Available(ctx, 2)
	assert.Equal(t, int64(100), a2, "failed accept leaves no hold behind")

	// The challenge stays pending; the accept goes through once the
	// challenger is funded again.
	wallet.balances[1] = 100
	duel, err := m.Accept(ctx, 2)
	require.NoError(t, err)
	assert.True(t, duel.Accepted)
}

func TestConcurrentAcceptsReserveOnce(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 1000, 2: 1000})
	m := NewManager(wallet, &fakeRecorder{}, 0)
	spec := mustSpec(t, "2d6")

	_, err := m.Challenge(ctx, 42, 1, 2, 300, spec)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Accept(ctx, 2)
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, ErrNoChallenge)
		}
	}
	assert.Equal(t, 1, accepted, "exactly one accept wins the duel")

	a1, _ := wallet.Available(ctx, 1)
	a2, _ := wallet.Available(ctx, 2)
	assert.Equal(t, int64(700), a1, "each stake is held exactly once")
	assert.Equal(t, int64(700), a2)
}

func TestDeclineAndCancel(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500, 2: 500})
	m := NewManager(wallet, &fakeRecorder{}, 0)
	spec := mustSpec(t, "d6")

	_, err := m.Challenge(ctx, 42, 1, 2, 50, spec)
	require.NoError(t, err)
	_, err = m.Decline(2)
	require.NoError(t, err)
	_, err = m.Decline(2)
	assert.ErrorIs(t, err, ErrNoChallenge)

	_, err = m.Challenge(ctx, 42, 1, 2, 50, spec)
	require.NoError(t, err)
	_, err = m.Cancel(1)
	require.NoError(t, err)
	_, err = m.Cancel(1)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestRollWindowTimeoutReleasesHolds(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500, 2: 500})
	m := NewManager(wallet, &fakeRecorder{}, 20*time.Millisecond)
	spec := mustSpec(t, "2d6")

	expired := make(chan *Duel, 1)
	m.ExpireFunc = func(d *Duel) { expired <- d }

	_, err := m.Challenge(ctx, 42, 1, 2, 200, spec)
	require.NoError(t, err)
	_, err = m.Accept(ctx, 2)
	require.NoError(t, err)

	select {
	case d := <-expired:
		assert.Equal(t, int64(1), d.ChallengerID)
	case <-time.After(2 * time.Second):
		t.Fatal("duel did not expire")
	}

	a1, _ := wallet.Available(ctx, 1)
	a2, _ := wallet.Available(ctx, 2)
	assert.Equal(t, int64(500), a1)
	assert.Equal(t, int64(500), a2)

	_, matched, err := m.SubmitRoll(ctx, 1, roll(spec, 9))
	require.NoError(t, err)
	assert.False(t, matched, "expired duel no longer consumes rolls")
}
