// Package lottery implements per-channel ticket lotteries. Tickets are
// purchases, not holds: the price is debited when bought and the whole pot
// is credited to the drawn winner.
package lottery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"aurabot/internal/game"
	"aurabot/internal/model"
)

// Lottery errors.
var (
	ErrAlreadyRunning = errors.New("a lottery is already running in this channel")
	ErrNotRunning     = errors.New("no lottery is running in this channel")
	ErrInvalidQty     = errors.New("ticket quantity must be positive")
	ErrInvalidLength  = errors.New("lottery duration must be positive")
)

// Recorder persists finished drawings.
type Recorder interface {
	RecordLottery(ctx context.Context, res *model.LotteryResult) error
}

// Drawing is one running lottery.
type Drawing struct {
	channelID int64
	endsAt    time.Time
	entries   map[int64]int
	tickets   int
	pot       int64
	timer     *time.Timer
}

// Channel implements game.Session.
func (d *Drawing) Channel() int64 { return d.channelID }

// GameType implements game.Session.
func (d *Drawing) GameType() game.Type { return game.TypeLottery }

// Result is a finished drawing. WinnerID is 0 when nobody entered.
type Result struct {
	ChannelID int64
	WinnerID  int64
	Pot       int64
	Tickets   int
}

// Status is a point-in-time view of a running drawing.
type Status struct {
	TimeLeft time.Duration
	Tickets  int
	Entrants int
	Pot      int64
}

// Manager runs all lotteries, one drawing per channel tracked in the
// shared session registry. DrawFunc, when set, is called from the timer
// goroutine with the result of an expired drawing.
type Manager struct {
	mu sync.Mutex

	wallet      game.Wallet
	recorder    Recorder
	registry    *game.Registry
	rng         *rand.Rand
	ticketPrice int64

	DrawFunc func(res *Result)
}

// NewManager creates a lottery manager.
func NewManager(wallet game.Wallet, recorder Recorder, registry *game.Registry, rng *rand.Rand, ticketPrice int64) *Manager {
	return &Manager{
		wallet:      wallet,
		recorder:    recorder,
		registry:    registry,
		rng:         rng,
		ticketPrice: ticketPrice,
	}
}

// TicketPrice returns the price of one ticket.
func (m *Manager) TicketPrice() int64 { return m.ticketPrice }

// Start opens a drawing in a channel. A second concurrent lottery in the
// same channel is rejected.
func (m *Manager) Start(channelID int64, duration time.Duration) (*Drawing, error) {
	if duration <= 0 {
		return nil, ErrInvalidLength
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d := &Drawing{
		channelID: channelID,
		endsAt:    time.Now().Add(duration),
		entries:   make(map[int64]int),
	}
	if err := m.registry.Create(d); err != nil {
		if errors.Is(err, game.ErrSessionExists) {
			return nil, ErrAlreadyRunning
		}
		return nil, err
	}

	d.timer = time.AfterFunc(duration, func() {
		res, err := m.End(context.Background(), channelID)
		if err != nil {
			if !errors.Is(err, ErrNotRunning) {
				log.Error().Err(err).Int64("channel_id", channelID).Msg("Lottery draw failed")
			}
			return
		}
		if m.DrawFunc != nil {
			m.DrawFunc(res)
		}
	})

	return d, nil
}

// BuyTicket debits price x qty and adds weighted entries for the buyer.
func (m *Manager) BuyTicket(ctx context.Context, channelID, buyerID int64, qty int) (int64, error) {
	if qty <= 0 {
		return 0, ErrInvalidQty
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.drawing(channelID)
	if err != nil {
		return 0, err
	}

	cost := m.ticketPrice * int64(qty)
	newBalance, err := m.wallet.Apply(ctx, buyerID, -cost, model.TxLotteryTicket)
	if err != nil {
		return 0, err
	}

	d.entries[buyerID] += qty
	d.tickets += qty
	d.pot += cost
	return newBalance, nil
}

// Status reports a running drawing.
func (m *Manager) Status(channelID int64) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, err := m.drawing(channelID)
	if err != nil {
		return nil, err
	}

	left := time.Until(d.endsAt)
	if left < 0 {
		left = 0
	}
	return &Status{
		TimeLeft: left,
		Tickets:  d.tickets,
		Entrants: len(d.entries),
		Pot:      d.pot,
	}, nil
}

// End closes a drawing now, draws the winner uniformly over the flattened
// ticket pool, credits the pot and records the result.
func (m *Manager) End(ctx context.Context, channelID int64) (*Result, error) {
	m.mu.Lock()
	d, err := m.drawing(channelID)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	m.registry.Remove(channelID, game.TypeLottery)

	res := &Result{
		ChannelID: channelID,
		Pot:       d.pot,
		Tickets:   d.tickets,
	}

	if d.tickets > 0 {
		pool := make([]int64, 0, d.tickets)
		for id, n := range d.entries {
			for i := 0; i < n; i++ {
				pool = append(pool, id)
			}
		}
		res.WinnerID = pool[m.rng.Intn(len(pool))]
	}
	m.mu.Unlock()

	if res.WinnerID != 0 {
		if _, err := m.wallet.Apply(ctx, res.WinnerID, res.Pot, model.TxLotteryWin); err != nil {
			return nil, fmt.Errorf("failed to credit lottery pot: %w", err)
		}
	}

	if err := m.recorder.RecordLottery(ctx, &model.LotteryResult{
		ChannelID: channelID,
		WinnerID:  res.WinnerID,
		Pot:       res.Pot,
		Tickets:   res.Tickets,
	}); err != nil {
		log.Error().Err(err).Int64("channel_id", channelID).Msg("Failed to record lottery result")
	}

	return res, nil
}

// drawing looks up the channel's active drawing. Caller holds m.mu.
func (m *Manager) drawing(channelID int64) (*Drawing, error) {
	s, ok := m.registry.Get(channelID, game.TypeLottery)
	if !ok {
		return nil, ErrNotRunning
	}
	d, ok := s.(*Drawing)
	if !ok {
		return nil, ErrNotRunning
	}
	return d, nil
}
