// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aurabot/internal/game"
	"aurabot/internal/model"
	"aurabot/internal/pkg/lock"
	"aurabot/internal/repository"
)

// Ledger is the subset of the ledger repository the wallet uses.
type Ledger interface {
	Balance(ctx context.Context, accountID int64) (int64, error)
	Append(ctx context.Context, accountID, delta int64, kind string) (*model.LedgerEntry, error)
	AppendAll(ctx context.Context, changes []repository.Change) ([]*model.LedgerEntry, error)
	LastOfKind(ctx context.Context, accountID int64, kind string) (*model.LedgerEntry, error)
	History(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error)
}

// WalletService manages AURAcoin balances over the append-only ledger.
// Stakes accepted by a game are held as in-memory reservations and only
// written to the ledger at settlement, so an unsettled game never moves
// money; a restart drops the holds and every coin is still accounted for.
type WalletService struct {
	ledger Ledger
	locks  *lock.KeyLock

	mu       sync.Mutex
	reserved map[int64]int64

	bonusAmount   int64
	bonusCooldown time.Duration
}

// NewWalletService creates a new WalletService instance.
func NewWalletService(ledger Ledger, locks *lock.KeyLock, bonusAmount int64, bonusCooldownHours int) *WalletService {
	return &WalletService{
		ledger:        ledger,
		locks:         locks,
		reserved:      make(map[int64]int64),
		bonusAmount:   bonusAmount,
		bonusCooldown: time.Duration(bonusCooldownHours) * time.Hour,
	}
}

// Balance returns an account's ledger balance.
func (s *WalletService) Balance(ctx context.Context, accountID int64) (int64, error) {
	return s.ledger.Balance(ctx, accountID)
}

// Available returns the ledger balance minus live reservations.
func (s *WalletService) Available(ctx context.Context, accountID int64) (int64, error) {
	balance, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return balance - s.reservedFor(accountID), nil
}

// Reserved returns the total amount currently held for an account.
func (s *WalletService) Reserved(accountID int64) int64 {
	return s.reservedFor(accountID)
}

// Reserve places a hold on an account's funds.
func (s *WalletService) Reserve(ctx context.Context, accountID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("reserve amount must be positive, got %d", amount)
	}

	return s.locks.WithLock(accountID, func() error {
		available, err := s.Available(ctx, accountID)
		if err != nil {
			return err
		}
		if amount > available {
			return fmt.Errorf("account %d available %d, need %d: %w",
				accountID, available, amount, repository.ErrInsufficientFunds)
		}

		s.mu.Lock()
		s.reserved[accountID] += amount
		s.mu.Unlock()
		return nil
	})
}

// Release drops a hold without touching the ledger.
func (s *WalletService) Release(accountID, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reserved[accountID] -= amount
	if s.reserved[accountID] <= 0 {
		delete(s.reserved, accountID)
	}
}

// Apply validates and appends a single ledger entry, returning the new
// balance. Debits are checked against the available balance so reserved
// stakes cannot be spent twice.
func (s *WalletService) Apply(ctx context.Context, accountID, delta int64, kind string) (int64, error) {
	var newBalance int64
	err := s.locks.WithLock(accountID, func() error {
		if delta < 0 {
			available, err := s.Available(ctx, accountID)
			if err != nil {
				return err
			}
			if available+delta < 0 {
				return fmt.Errorf("account %d available %d, change %d: %w",
					accountID, available, delta, repository.ErrInsufficientFunds)
			}
		}

		entry, err := s.ledger.Append(ctx, accountID, delta, kind)
		if err != nil {
			return err
		}
		newBalance = entry.Balance
		return nil
	})
	return newBalance, err
}

// Settle appends all changes in one ledger transaction and then releases
// the given holds. The holds are released even when the append fails:
// a failed settlement leaves the stake in the player's ledger balance
// rather than stuck behind a hold.
func (s *WalletService) Settle(ctx context.Context, changes []game.Change, releases map[int64]int64) error {
	repoChanges := make([]repository.Change, len(changes))
	for i, c := range changes {
		repoChanges[i] = repository.Change{AccountID: c.AccountID, Delta: c.Delta, Kind: c.Kind}
	}

	_, err := s.ledger.AppendAll(ctx, repoChanges)

	for accountID, amount := range releases {
		s.Release(accountID, amount)
	}

	if err != nil {
		return fmt.Errorf("settlement failed: %w", err)
	}
	return nil
}

// GrantDailyBonus credits the daily bonus if the cooldown has elapsed.
// The boundary is inclusive: a claim exactly at the cooldown mark succeeds.
// Returns whether the bonus was granted, the wait remaining when it was
// not, and the current ledger balance.
func (s *WalletService) GrantDailyBonus(ctx context.Context, accountID int64) (bool, time.Duration, int64, error) {
	var (
		granted   bool
		remaining time.Duration
		balance   int64
	)

	err := s.locks.WithLock(accountID, func() error {
		last, err := s.ledger.LastOfKind(ctx, accountID, model.TxDailyBonus)
		if err != nil && !errors.Is(err, repository.ErrNoEntry) {
			return err
		}

		if last != nil {
			elapsed := time.Since(last.CreatedAt)
			if elapsed < s.bonusCooldown {
				remaining = s.bonusCooldown - elapsed
				balance, err = s.ledger.Balance(ctx, accountID)
				return err
			}
		}

		entry, err := s.ledger.Append(ctx, accountID, s.bonusAmount, model.TxDailyBonus)
		if err != nil {
			return err
		}
		granted = true
		balance = entry.Balance
		return nil
	})

	return granted, remaining, balance, err
}

// History returns an account's recent ledger entries, newest first.
func (s *WalletService) History(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error) {
	return s.ledger.History(ctx, accountID, limit)
}

func (s *WalletService) reservedFor(accountID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserved[accountID]
}
