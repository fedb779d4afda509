package trivia

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurabot/internal/game"
	"aurabot/internal/repository"
)

const goodQuestion = `Question: What is the capital of France?
A) Berlin
B) Paris
C) Madrid
D) Rome
Answer: B`

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

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(_ context.Context, _, _ string) (string, error) {
	return f.response, f.err
}

func testOptions() Options {
	return Options{
		MinBet:        10,
		MaxBet:        1000,
		Cooldown:      5 * time.Minute,
		AnswerTimeout: time.Hour,
	}
}

func TestParseQuestion(t *testing.T) {
	q, err := ParseQuestion(goodQuestion)
	require.NoError(t, err)
	assert.Equal(t, "What is the capital of France?", q.Text)
	assert.Equal(t, "B", q.Answer)
	assert.Equal(t, "Paris", q.Options["B"])
	assert.Len(t, q.Options, 4)
}

func TestParseQuestionTolerantFormats(t *testing.T) {
	raw := `Sure! Here is your question:

question: Which planet is largest?
a. Mars
b. Venus
C: Jupiter
D) Mercury
answer: c (Jupiter)`

	q, err := ParseQuestion(raw)
	require.NoError(t, err)
	assert.Equal(t, "Which planet is largest?", q.Text)
	assert.Equal(t, "C", q.Answer)
	assert.Equal(t, "Jupiter", q.Options["C"])
}

func TestParseQuestionRejectsIncomplete(t *testing.T) {
	bad := []string{
		"",
		"Question: lonely question with no options\nAnswer: A",
		"Question: no answer line\nA) x\nB) y\nC) z\nD) w",
		"Question: answer points nowhere\nA) x\nB) y\nC) z\nD) w\nAnswer: E",
	}
	for _, raw := range bad {
		_, err := ParseQuestion(raw)
		assert.ErrorIs(t, err, ErrUnparsableQuestion)
	}
}

func TestNormalizeChoice(t *testing.T) {
	for raw, want := range map[string]string{"b": "B", " C) ": "C", "A": "A", "d.": "D"} {
		got, ok := NormalizeChoice(raw)
		assert.True(t, ok, raw)
		assert.Equal(t, want, got)
	}
	for _, raw := range []string{"", "E", "Paris", "AB"} {
		_, ok := NormalizeChoice(raw)
		assert.False(t, ok, raw)
	}
}

func TestCorrectAnswerDoublesStake(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500})
	m := NewManager(wallet, &fakeLLM{response: goodQuestion}, game.NewRegistry(), testOptions())

	round, err := m.Start(ctx, 42, 1, 100)
	require.NoError(t, err)
	require.NotNil(t, round.Question)

	available, _ := wallet.Available(ctx, 1)
	assert.Equal(t, int64(400), available, "stake is held while answering")

	out, err := m.Answer(ctx, 42, 1, "b")
	require.NoError(t, err)
	assert.True(t, out.Correct)
	assert.Equal(t, int64(100), out.Delta)

	balance, _ := wallet.Balance(ctx, 1)
	assert.Equal(t, int64(600), balance)
	available, _ = wallet.Available(ctx, 1)
	assert.Equal(t, balance, available, "hold released at settlement")

	_, err = m.Answer(ctx, 42, 1, "b")
	assert.ErrorIs(t, err, ErrNoRound)
}

func TestWrongAnswerLosesStake(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500})
	m := NewManager(wallet, &fakeLLM{response: goodQuestion}, game.NewRegistry(), testOptions())

	_, err := m.Start(ctx, 42, 1, 100)
	require.NoError(t, err)

	out, err := m.Answer(ctx, 42, 1, "A")
	require.NoError(t, err)
	assert.False(t, out.Correct)
	assert.Equal(t, "B", out.Answer)
	assert.Equal(t, int64(-100), out.Delta)

	balance, _ := wallet.Balance(ctx, 1)
	assert.Equal(t, int64(400), balance)
}

func TestStartValidation(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 5000, 2: 5})
	m := NewManager(wallet, &fakeLLM{response: goodQuestion}, game.NewRegistry(), testOptions())

	_, err := m.Start(ctx, 42, 1, 5)
	assert.ErrorIs(t, err, ErrBetOutOfRange)
	_, err = m.Start(ctx, 42, 1, 2000)
	assert.ErrorIs(t, err, ErrBetOutOfRange)

	_, err = m.Start(ctx, 42, 2, 10)
	assert.ErrorIs(t, err, repository.ErrInsufficientFunds)

	_, err = m.Start(ctx, 42, 1, 100)
	require.NoError(t, err)

	// Second round in the same channel is rejected with no hold left over.
	wallet.balances[3] = 1000
	_, err = m.Start(ctx, 42, 3, 100)
	assert.ErrorIs(t, err, ErrRoundRunning)
	available, _ := wallet.Available(ctx, 3)
	assert.Equal(t, int64(1000), available)

	// Same player again within the cooldown, in another channel.
	out, err := m.Answer(ctx, 42, 1, "B")
	require.NoError(t, err)
	require.True(t, out.Correct)
	_, err = m.Start(ctx, 43, 1, 100)
	assert.ErrorIs(t, err, ErrOnCooldown)

	_, err = m.Answer(ctx, 42, 3, "B")
	assert.ErrorIs(t, err, ErrNoRound)
}

func TestAnswerOwnershipAndChoice(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500})
	m := NewManager(wallet, &fakeLLM{response: goodQuestion}, game.NewRegistry(), testOptions())

	_, err := m.Start(ctx, 42, 1, 100)
	require.NoError(t, err)

	_, err = m.Answer(ctx, 42, 2, "B")
	assert.ErrorIs(t, err, ErrNotYourRound)

	_, err = m.Answer(ctx, 42, 1, "Paris")
	assert.ErrorIs(t, err, ErrInvalidChoice)

	out, err := m.Answer(ctx, 42, 1, "B")
	require.NoError(t, err)
	assert.True(t, out.Correct)
}

func TestProviderFailureReleasesStake(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500})
	registry := game.NewRegistry()
	m := NewManager(wallet, &fakeLLM{err: errors.New("connection refused")}, registry, testOptions())

	_, err := m.Start(ctx, 42, 1, 100)
	assert.ErrorIs(t, err, ErrQuestionFailed)

	available, _ := wallet.Available(ctx, 1)
	assert.Equal(t, int64(500), available, "failed fetch leaves no hold")
	assert.Zero(t, registry.Count(), "failed round is not left registered")

	// Garbled output is the same failure mode as a dead server.
	m2 := NewManager(wallet, &fakeLLM{response: "I refuse to answer."}, registry, testOptions())
	_, err = m2.Start(ctx, 42, 1, 100)
	assert.ErrorIs(t, err, ErrQuestionFailed)
}

func TestTimeoutSettlesAsLoss(t *testing.T) {
	ctx := context.Background()
	wallet := newFakeWallet(map[int64]int64{1: 500})
	opts := testOptions()
	opts.AnswerTimeout = 20 * time.Millisecond
	m := NewManager(wallet, &fakeLLM{response: goodQuestion}, game.NewRegistry(), opts)

	expired := make(chan *Outcome, 1)
	m.TimeoutFunc = func(out *Outcome) { expired <- out }

	_, err := m.Start(ctx, 42, 1, 100)
	require.NoError(t, err)

	select {
	case out := <-expired:
		assert.True(t, out.TimedOut)
		assert.Equal(t, int64(-100), out.Delta)
	case <-time.After(2 * time.Second):
		t.Fatal("round never timed out")
	}

	balance, _ := wallet.Balance(ctx, 1)
	assert.Equal(t, int64(400), balance)
	available, _ := wallet.Available(ctx, 1)
	assert.Equal(t, balance, available)

	_, err = m.Answer(ctx, 42, 1, "B")
	assert.ErrorIs(t, err, ErrNoRound)
}
