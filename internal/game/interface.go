// Package game defines the shared contracts for the minigames: the wallet
// the games settle through and the per-channel session registry.
package game

import "context"

// Type identifies a game family for session bookkeeping. A channel can run
// at most one active session per type.
type Type string

// Known game types.
const (
	TypeBlackjack Type = "blackjack"
	TypeLottery   Type = "lottery"
	TypeTrivia    Type = "trivia"
)

// Change describes one ledger mutation a game wants applied at settlement.
type Change struct {
	AccountID int64
	Delta     int64
	Kind      string
}

// Wallet is the money interface games settle through. Stakes are reserved
// in memory when a game accepts them and only hit the ledger at settlement;
// Settle applies all changes atomically and drops the listed reservations.
type Wallet interface {
	// Balance returns the ledger balance of an account.
	Balance(ctx context.Context, accountID int64) (int64, error)

	// Available returns the ledger balance minus live reservations.
	Available(ctx context.Context, accountID int64) (int64, error)

	// Reserve places a hold on an account. Fails with ErrInsufficientFunds
	// when the available balance does not cover the amount.
	Reserve(ctx context.Context, accountID, amount int64) error

	// Release drops a hold without touching the ledger.
	Release(accountID, amount int64)

	// Apply validates against the available balance and appends one entry.
	// Returns the new ledger balance.
	Apply(ctx context.Context, accountID, delta int64, kind string) (int64, error)

	// Settle appends all changes in one transaction and releases the given
	// holds. Releases map account ID to the reserved amount to drop; holds
	// are dropped whether or not the changes include a matching debit, so a
	// push releases without any ledger write.
	Settle(ctx context.Context, changes []Change, releases map[int64]int64) error
}

// Session is an active game session tracked by the registry.
type Session interface {
	// Channel returns the channel the session runs in.
	Channel() int64

	// GameType returns the session's game type.
	GameType() Type
}
