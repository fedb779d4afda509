// Package model defines the data models shared across the AURA bot.
package model

import "time"

// LedgerEntry is one row of the append-only AURAcoin ledger. The current
// balance of an account is the Balance of its latest entry; accounts with
// no entries have a balance of 0.
type LedgerEntry struct {
	SequenceID int64     `db:"sequence_id"`
	AccountID  int64     `db:"account_id"`
	Change     int64     `db:"change_amount"`
	Balance    int64     `db:"balance"`
	Kind       string    `db:"kind"`
	CreatedAt  time.Time `db:"created_at"`
}

// Ledger entry kinds. Every balance change carries exactly one of these.
const (
	TxBet            = "bet"
	TxWin            = "win"
	TxPush           = "push"
	TxRefund         = "refund"
	TxDailyBonus     = "daily_bonus"
	TxBaitPurchase   = "bait_purchase"
	TxFishSale       = "fish_sale"
	TxLotteryTicket  = "lottery_ticket"
	TxLotteryWin     = "lottery_win"
	TxDiceDuelBet    = "dice_duel_bet"
	TxDiceDuelWin    = "dice_duel_win"
	TxDiceDuelRefund = "dice_duel_refund"
	TxDuelBet        = "duel_bet"
	TxDuelWin        = "duel_win"
	TxTriviaBet      = "trivia_bet"
	TxTriviaWin      = "trivia_win"
)

var validKinds = map[string]struct{}{
	TxBet: {}, TxWin: {}, TxPush: {}, TxRefund: {}, TxDailyBonus: {},
	TxBaitPurchase: {}, TxFishSale: {}, TxLotteryTicket: {}, TxLotteryWin: {},
	TxDiceDuelBet: {}, TxDiceDuelWin: {}, TxDiceDuelRefund: {},
	TxDuelBet: {}, TxDuelWin: {}, TxTriviaBet: {}, TxTriviaWin: {},
}

// ValidKind reports whether s is a known ledger entry kind.
func ValidKind(s string) bool {
	_, ok := validKinds[s]
	return ok
}

// AuditEntry is one row of the logs table. Audit records are advisory;
// losing one never fails a game action.
type AuditEntry struct {
	ID        int64     `db:"id"`
	Kind      string    `db:"kind"`
	AccountID int64     `db:"account_id"`
	Username  string    `db:"username"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

// Audit entry kinds.
const (
	AuditCommand    = "COMMAND_USAGE"
	AuditGameResult = "GAME_RESULT"
	AuditError      = "ERROR"
)

// BlackjackResult records one player's settled hand. All hands of the same
// table share a GameID.
type BlackjackResult struct {
	GameID    string    `db:"game_id"`
	ChannelID int64     `db:"channel_id"`
	PlayerID  int64     `db:"player_id"`
	Bet       int64     `db:"bet"`
	Outcome   string    `db:"outcome"` // win, loss, push, blackjack
	Delta     int64     `db:"delta"`
	CreatedAt time.Time `db:"created_at"`
}

// RouletteResult records one resolved roulette bet.
type RouletteResult struct {
	ID        int64     `db:"id"`
	PlayerID  int64     `db:"player_id"`
	BetType   string    `db:"bet_type"`
	Bet       int64     `db:"bet"`
	Number    int       `db:"number"`
	Won       bool      `db:"won"`
	Delta     int64     `db:"delta"`
	CreatedAt time.Time `db:"created_at"`
}

// DiceDuelResult records a settled dice duel. WinnerID is 0 on a tie.
type DiceDuelResult struct {
	DuelID         string    `db:"duel_id"`
	ChallengerID   int64     `db:"challenger_id"`
	ChallengedID   int64     `db:"challenged_id"`
	Stake          int64     `db:"stake"`
	Spec           string    `db:"spec"`
	ChallengerRoll int       `db:"challenger_roll"`
	ChallengedRoll int       `db:"challenged_roll"`
	WinnerID       int64     `db:"winner_id"`
	CreatedAt      time.Time `db:"created_at"`
}

// DuelResult records a finished arena duel.
type DuelResult struct {
	DuelID    string    `db:"duel_id"`
	WinnerID  int64     `db:"winner_id"`
	LoserID   int64     `db:"loser_id"`
	Stake     int64     `db:"stake"`
	Pot       int64     `db:"pot"`
	CreatedAt time.Time `db:"created_at"`
}

// LotteryResult records one finished drawing. WinnerID is 0 when nobody
// bought a ticket.
type LotteryResult struct {
	ID        int64     `db:"id"`
	ChannelID int64     `db:"channel_id"`
	WinnerID  int64     `db:"winner_id"`
	Pot       int64     `db:"pot"`
	Tickets   int       `db:"tickets"`
	CreatedAt time.Time `db:"created_at"`
}

// InventoryItem is one stack of items (bait or caught fish) held by a user.
type InventoryItem struct {
	UserID   int64  `db:"user_id"`
	Item     string `db:"item"`
	Quantity int    `db:"quantity"`
}

// LeaderboardRow is one aggregated leaderboard line.
type LeaderboardRow struct {
	AccountID int64 `db:"account_id"`
	Total     int64 `db:"total"`
}
