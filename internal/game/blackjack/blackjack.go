// Package blackjack implements a multiplayer blackjack table. One table
// runs per channel; players join, bet, then play their hands against the
// dealer. Stakes are reserved on bet and settle through the wallet in a
// single batch when the table finishes.
package blackjack

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"aurabot/internal/game"
	"aurabot/internal/game/cards"
	"aurabot/internal/model"
)

// Blackjack errors.
var (
	ErrAlreadyJoined = errors.New("you have already joined this game")
	ErrNotJoined     = errors.New("you have not joined this game")
	ErrJoiningClosed = errors.New("the cards are already dealt")
	ErrNotDealt      = errors.New("the cards have not been dealt yet")
	ErrAlreadyBet    = errors.New("you have already placed a bet")
	ErrHandFinished  = errors.New("your hand is already finished")
	ErrInvalidBet    = errors.New("bet must be positive")
)

// Phase is the table's lifecycle stage.
type Phase int

// Table phases. Joining and betting share the open phase; the deal fires
// once every joined player has bet.
const (
	PhaseOpen Phase = iota
	PhasePlayerTurns
	PhaseSettled
)

// Outcome labels for settled hands.
const (
	OutcomeWin       = "win"
	OutcomeLoss      = "loss"
	OutcomePush      = "push"
	OutcomeBlackjack = "blackjack"
)

// Recorder persists settled hands.
type Recorder interface {
	RecordBlackjack(ctx context.Context, res *model.BlackjackResult) error
}

// Player is one seat at the table.
type Player struct {
	ID    int64
	Hand  cards.Hand
	Bet   int64
	Stood bool
}

func (p *Player) finished() bool {
	return p.Stood || p.Hand.IsBust()
}

// PlayerResult is one player's settled outcome. Delta is the net balance
// change: +bet on a win, -bet on a loss, 0 on a push.
type PlayerResult struct {
	PlayerID int64
	Hand     cards.Hand
	Bet      int64
	Outcome  string
	Delta    int64
}

// Settlement is the final state of a finished table.
type Settlement struct {
	GameID  string
	Dealer  cards.Hand
	Results []PlayerResult
}

// Table is a blackjack session in one channel.
type Table struct {
	mu sync.Mutex

	gameID    string
	channelID int64
	phase     Phase
	deck      *cards.Deck
	dealer    cards.Hand
	players   []*Player

	wallet   game.Wallet
	recorder Recorder
}

// NewTable creates an open table for a channel.
func NewTable(channelID int64, wallet game.Wallet, recorder Recorder, deck *cards.Deck) *Table {
	return &Table{
		gameID:    uuid.NewString(),
		channelID: channelID,
		phase:     PhaseOpen,
		deck:      deck,
		wallet:    wallet,
		recorder:  recorder,
	}
}

// Channel implements game.Session.
func (t *Table) Channel() int64 { return t.channelID }

// GameType implements game.Session.
func (t *Table) GameType() game.Type { return game.TypeBlackjack }

// GameID returns the table's identifier shared by its result rows.
func (t *Table) GameID() string { return t.gameID }

// Join seats a player. Only allowed before the deal.
func (t *Table) Join(playerID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseOpen {
		return ErrJoiningClosed
	}
	if t.find(playerID) != nil {
		return ErrAlreadyJoined
	}
	t.players = append(t.players, &Player{ID: playerID})
	return nil
}

// Bet reserves a player's stake. When every seated player has bet the
// cards are dealt and the table moves to player turns; if everyone is
// dealt a natural the table settles immediately.
func (t *Table) Bet(ctx context.Context, playerID, amount int64) (dealt bool, settlement *Settlement, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseOpen {
		return false, nil, ErrJoiningClosed
	}
	p := t.find(playerID)
	if p == nil {
		return false, nil, ErrNotJoined
	}
	if p.Bet > 0 {
		return false, nil, ErrAlreadyBet
	}
	if amount <= 0 {
		return false, nil, ErrInvalidBet
	}

	if err := t.wallet.Reserve(ctx, playerID, amount); err != nil {
		return false, nil, err
	}
	p.Bet = amount

	for _, other := range t.players {
		if other.Bet == 0 {
			return false, nil, nil
		}
	}

	t.deal()
	if t.allFinished() {
		settlement = t.settle(ctx)
	}
	return true, settlement, nil
}

// Hit deals the player one card. A finished table returns its settlement.
func (t *Table) Hit(ctx context.Context, playerID int64) (cards.Card, cards.Hand, *Settlement, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.actingPlayer(playerID)
	if err != nil {
		return cards.Card{}, nil, nil, err
	}

	c := t.deck.Deal()
	p.Hand = append(p.Hand, c)

	var settlement *Settlement
	if t.allFinished() {
		settlement = t.settle(ctx)
	}
	return c, p.Hand, settlement, nil
}

// Stand ends the player's turn. A finished table returns its settlement.
func (t *Table) Stand(ctx context.Context, playerID int64) (*Settlement, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, err := t.actingPlayer(playerID)
	if err != nil {
		return nil, err
	}

	p.Stood = true
	if t.allFinished() {
		return t.settle(ctx), nil
	}
	return nil, nil
}

// Abort releases every reserved stake without settling. Used when a table
// is torn down before the deal completes.
func (t *Table) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase == PhaseSettled {
		return
	}
	for _, p := range t.players {
		if p.Bet > 0 {
			t.wallet.Release(p.ID, p.Bet)
		}
	}
	t.phase = PhaseSettled
}

// PlayerView is a read-only snapshot of one seat.
type PlayerView struct {
	ID     int64
	Hand   cards.Hand
	Bet    int64
	Stood  bool
	Busted bool
}

// View is a read-only snapshot of the table.
type View struct {
	Phase    Phase
	DealerUp cards.Card
	Players  []PlayerView
}

// View returns a snapshot of the table. The dealer's hole card stays
// hidden until settlement.
func (t *Table) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := View{Phase: t.phase}
	if len(t.dealer) > 0 {
		v.DealerUp = t.dealer[0]
	}
	for _, p := range t.players {
		v.Players = append(v.Players, PlayerView{
			ID:     p.ID,
			Hand:   append(cards.Hand(nil), p.Hand...),
			Bet:    p.Bet,
			Stood:  p.Stood,
			Busted: p.Hand.IsBust(),
		})
	}
	return v
}

func (t *Table) find(playerID int64) *Player {
	for _, p := range t.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (t *Table) actingPlayer(playerID int64) (*Player, error) {
	if t.phase == PhaseOpen {
		return nil, ErrNotDealt
	}
	if t.phase == PhaseSettled {
		return nil, ErrHandFinished
	}
	p := t.find(playerID)
	if p == nil {
		return nil, ErrNotJoined
	}
	if p.finished() {
		return nil, ErrHandFinished
	}
	return p, nil
}

func (t *Table) deal() {
	for i := 0; i < 2; i++ {
		for _, p := range t.players {
			p.Hand = append(p.Hand, t.deck.Deal())
		}
		t.dealer = append(t.dealer, t.deck.Deal())
	}
	// Naturals stand automatically.
	for _, p := range t.players {
		if p.Hand.IsBlackjack() {
			p.Stood = true
		}
	}
	t.phase = PhasePlayerTurns
}

func (t *Table) allFinished() bool {
	if t.phase != PhasePlayerTurns {
		return false
	}
	for _, p := range t.players {
		if !p.finished() {
			return false
		}
	}
	return true
}

// settle plays out the dealer, applies every stake and payout in one
// ledger batch, and records the results. Caller holds t.mu.
func (t *Table) settle(ctx context.Context) *Settlement {
	// Dealer hits below 17, stands on 17 or more. Skipped when every
	// player busted; the dealer wins by default.
	anyLive := false
	for _, p := range t.players {
		if !p.Hand.IsBust() {
			anyLive = true
			break
		}
	}
	if anyLive {
		for t.dealer.Value() < 17 {
			t.dealer = append(t.dealer, t.deck.Deal())
		}
	}

	dealerValue := t.dealer.Value()
	dealerBust := t.dealer.IsBust()
	dealerNatural := t.dealer.IsBlackjack()

	settlement := &Settlement{
		GameID: t.gameID,
		Dealer: append(cards.Hand(nil), t.dealer...),
	}

	var changes []game.Change
	releases := make(map[int64]int64, len(t.players))

	for _, p := range t.players {
		releases[p.ID] = p.Bet
		res := PlayerResult{
			PlayerID: p.ID,
			Hand:     append(cards.Hand(nil), p.Hand...),
			Bet:      p.Bet,
		}

		value := p.Hand.Value()
		switch {
		case p.Hand.IsBust():
			res.Outcome = OutcomeLoss
			res.Delta = -p.Bet
		case p.Hand.IsBlackjack() && !dealerNatural:
			// Naturals pay 3:2.
			res.Outcome = OutcomeBlackjack
			res.Delta = p.Bet * 3 / 2
		case dealerBust || value > dealerValue:
			res.Outcome = OutcomeWin
			res.Delta = p.Bet
		case value == dealerValue:
			res.Outcome = OutcomePush
			res.Delta = 0
		default:
			res.Outcome = OutcomeLoss
			res.Delta = -p.Bet
		}

		switch res.Outcome {
		case OutcomePush:
			// Stake hold is released with no ledger write.
		case OutcomeLoss:
			changes = append(changes, game.Change{AccountID: p.ID, Delta: -p.Bet, Kind: model.TxBet})
		default:
			changes = append(changes,
				game.Change{AccountID: p.ID, Delta: -p.Bet, Kind: model.TxBet},
				game.Change{AccountID: p.ID, Delta: p.Bet + res.Delta, Kind: model.TxWin},
			)
		}

		settlement.Results = append(settlement.Results, res)
	}

	if err := t.wallet.Settle(ctx, changes, releases); err != nil {
		log.Error().Err(err).
			Str("game_id", t.gameID).
			Int64("channel_id", t.channelID).
			Msg("Blackjack settlement failed")
	}

	for _, res := range settlement.Results {
		err := t.recorder.RecordBlackjack(ctx, &model.BlackjackResult{
			GameID:    t.gameID,
			ChannelID: t.channelID,
			PlayerID:  res.PlayerID,
			Bet:       res.Bet,
			Outcome:   res.Outcome,
			Delta:     res.Delta,
		})
		if err != nil {
			log.Error().Err(err).Str("game_id", t.gameID).Msg("Failed to record blackjack result")
		}
	}

	t.phase = PhaseSettled
	return settlement
}
