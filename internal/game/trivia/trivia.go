// Package trivia implements LLM-generated trivia betting. A player stakes
// coins on answering a generated multiple-choice question within the time
// limit; a correct answer doubles the stake.
package trivia

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"aurabot/internal/game"
	"aurabot/internal/llm"
	"aurabot/internal/model"
)

// Trivia errors.
var (
	ErrBetOutOfRange  = errors.New("trivia bet is outside the allowed range")
	ErrOnCooldown     = errors.New("you played trivia recently, wait a bit")
	ErrRoundRunning   = errors.New("a trivia round is already running in this channel")
	ErrNoRound        = errors.New("no trivia round is running in this channel")
	ErrNotYourRound   = errors.New("this trivia round belongs to another player")
	ErrInvalidChoice  = errors.New("answer with one of A, B, C or D")
	ErrQuestionFailed = errors.New("could not get a trivia question, your stake was returned")
)

const questionSystem = "You write pub trivia. Respond with exactly one question in this format and nothing else:\nQuestion: <text>\nA) <option>\nB) <option>\nC) <option>\nD) <option>\nAnswer: <letter>"

// Round is one active trivia bet.
type Round struct {
	channelID int64
	PlayerID  int64
	Bet       int64
	Question  *Question
	AskedAt   time.Time

	timer   *time.Timer
	settled bool
}

// Channel implements game.Session.
func (r *Round) Channel() int64 { return r.channelID }

// GameType implements game.Session.
func (r *Round) GameType() game.Type { return game.TypeTrivia }

// Outcome is a resolved round.
type Outcome struct {
	ChannelID int64
	PlayerID  int64
	Bet       int64
	Correct   bool
	TimedOut  bool
	Answer    string
	Chosen    string
	Delta     int64
}

// Options configure a trivia manager.
type Options struct {
	MinBet        int64
	MaxBet        int64
	Cooldown      time.Duration
	AnswerTimeout time.Duration
}

// Manager runs trivia rounds, one per channel. TimeoutFunc, when set, is
// called from the timer goroutine when a round expires unanswered.
type Manager struct {
	mu sync.Mutex

	wallet   game.Wallet
	client   llm.Client
	registry *game.Registry
	opts     Options

	lastPlayed map[int64]time.Time
	now        func() time.Time

	TimeoutFunc func(out *Outcome)
}

// NewManager creates a trivia manager.
func NewManager(wallet game.Wallet, client llm.Client, registry *game.Registry, opts Options) *Manager {
	return &Manager{
		wallet:     wallet,
		client:     client,
		registry:   registry,
		opts:       opts,
		lastPlayed: make(map[int64]time.Time),
		now:        time.Now,
	}
}

// Start reserves the stake, generates a question and opens the round.
// Question generation failure releases the hold and aborts. Callers should
// run Start off the interaction path since it waits on the model.
func (m *Manager) Start(ctx context.Context, channelID, playerID, bet int64) (*Round, error) {
	if bet < m.opts.MinBet || bet > m.opts.MaxBet {
		return nil, fmt.Errorf("bet must be between %d and %d: %w",
			m.opts.MinBet, m.opts.MaxBet, ErrBetOutOfRange)
	}

	m.mu.Lock()
	if last, ok := m.lastPlayed[playerID]; ok {
		if wait := m.opts.Cooldown - m.now().Sub(last); wait > 0 {
			m.mu.Unlock()
			return nil, fmt.Errorf("%w (%s left)", ErrOnCooldown, wait.Round(time.Second))
		}
	}
	m.mu.Unlock()

	if err := m.wallet.Reserve(ctx, playerID, bet); err != nil {
		return nil, err
	}

	round := &Round{
		channelID: channelID,
		PlayerID:  playerID,
		Bet:       bet,
	}
	if err := m.registry.Create(round); err != nil {
		m.wallet.Release(playerID, bet)
		if errors.Is(err, game.ErrSessionExists) {
			return nil, ErrRoundRunning
		}
		return nil, err
	}

	raw, err := m.client.Complete(ctx, questionSystem, "Ask one fresh trivia question.")
	if err == nil {
		round.Question, err = ParseQuestion(raw)
	}
	if err != nil {
		m.registry.Remove(channelID, game.TypeTrivia)
		m.wallet.Release(playerID, bet)
		log.Error().Err(err).Int64("player_id", playerID).Msg("Trivia question generation failed")
		return nil, ErrQuestionFailed
	}

	m.mu.Lock()
	round.AskedAt = m.now()
	m.lastPlayed[playerID] = round.AskedAt
	round.timer = time.AfterFunc(m.opts.AnswerTimeout, func() {
		out, err := m.expire(context.Background(), round)
		if err != nil {
			log.Error().Err(err).Int64("player_id", playerID).Msg("Trivia timeout settlement failed")
			return
		}
		if out != nil && m.TimeoutFunc != nil {
			m.TimeoutFunc(out)
		}
	})
	m.mu.Unlock()

	return round, nil
}

// Answer resolves the channel's round with the player's choice.
func (m *Manager) Answer(ctx context.Context, channelID, playerID int64, choice string) (*Outcome, error) {
	letter, ok := NormalizeChoice(choice)
	if !ok {
		return nil, ErrInvalidChoice
	}

	m.mu.Lock()
	round, err := m.round(channelID)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if round.PlayerID != playerID {
		m.mu.Unlock()
		return nil, ErrNotYourRound
	}
	if round.settled {
		m.mu.Unlock()
		return nil, ErrNoRound
	}
	round.settled = true
	round.timer.Stop()
	m.registry.Remove(channelID, game.TypeTrivia)
	m.mu.Unlock()

	out := &Outcome{
		ChannelID: channelID,
		PlayerID:  playerID,
		Bet:       round.Bet,
		Correct:   letter == round.Question.Answer,
		Answer:    round.Question.Answer,
		Chosen:    letter,
	}
	if err := m.settle(ctx, round, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Round returns the active round in a channel, if any.
func (m *Manager) Round(channelID int64) (*Round, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.round(channelID)
	return r, err == nil
}

func (m *Manager) round(channelID int64) (*Round, error) {
	s, ok := m.registry.Get(channelID, game.TypeTrivia)
	if !ok {
		return nil, ErrNoRound
	}
	r, ok := s.(*Round)
	if !ok {
		return nil, ErrNoRound
	}
	return r, nil
}

// expire settles an unanswered round as a loss.
func (m *Manager) expire(ctx context.Context, round *Round) (*Outcome, error) {
	m.mu.Lock()
	if round.settled {
		m.mu.Unlock()
		return nil, nil
	}
	round.settled = true
	m.registry.Remove(round.channelID, game.TypeTrivia)
	m.mu.Unlock()

	out := &Outcome{
		ChannelID: round.channelID,
		PlayerID:  round.PlayerID,
		Bet:       round.Bet,
		TimedOut:  true,
		Answer:    round.Question.Answer,
	}
	if err := m.settle(ctx, round, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) settle(ctx context.Context, round *Round, out *Outcome) error {
	changes := []game.Change{
		{AccountID: round.PlayerID, Delta: -round.Bet, Kind: model.TxTriviaBet},
	}
	out.Delta = -round.Bet
	if out.Correct {
		changes = append(changes, game.Change{
			AccountID: round.PlayerID, Delta: round.Bet * 2, Kind: model.TxTriviaWin,
		})
		out.Delta = round.Bet
	}
	releases := map[int64]int64{round.PlayerID: round.Bet}
	return m.wallet.Settle(ctx, changes, releases)
}
