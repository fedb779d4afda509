// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aurabot/internal/model"
)

// Common errors for repository operations.
var (
	// ErrInsufficientFunds is returned when a debit would drive an account
	// balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownKind is returned for a ledger kind outside the closed set.
	ErrUnknownKind = errors.New("unknown ledger entry kind")

	// ErrNoEntry is returned when a requested ledger entry does not exist.
	ErrNoEntry = errors.New("ledger entry not found")
)

// Change describes one balance mutation to append to the ledger.
type Change struct {
	AccountID int64
	Delta     int64
	Kind      string
}

// LedgerRepository is the single mutation entry point for the append-only
// AURAcoin ledger. Balances are never stored separately; an account's
// balance is the balance column of its latest entry.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Balance returns the current balance of an account, 0 if it has no entries.
func (r *LedgerRepository) Balance(ctx context.Context, accountID int64) (int64, error) {
	const query = `
		SELECT balance FROM auracoin_ledger
		WHERE account_id = $1
		ORDER BY sequence_id DESC
		LIMIT 1
	`

	var balance int64
	err := r.pool.QueryRow(ctx, query, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}

// Append atomically appends a single entry for one account.
func (r *LedgerRepository) Append(ctx context.Context, accountID, delta int64, kind string) (*model.LedgerEntry, error) {
	entries, err := r.AppendAll(ctx, []Change{{AccountID: accountID, Delta: delta, Kind: kind}})
	if err != nil {
		return nil, err
	}
	return entries[0], nil
}

// AppendAll appends a batch of entries in one transaction. Either every
// change commits or none does; a settlement that pays a winner and debits a
// loser can never half-apply. Each touched account is serialized with a
// transaction-scoped advisory lock, taken in ascending account order to
// avoid lock cycles between concurrent settlements.
func (r *LedgerRepository) AppendAll(ctx context.Context, changes []Change) ([]*model.LedgerEntry, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	for _, c := range changes {
		if !model.ValidKind(c.Kind) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	accounts := make([]int64, 0, len(changes))
	seen := make(map[int64]struct{}, len(changes))
	for _, c := range changes {
		if _, ok := seen[c.AccountID]; !ok {
			seen[c.AccountID] = struct{}{}
			accounts = append(accounts, c.AccountID)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	balances := make(map[int64]int64, len(accounts))
	for _, id := range accounts {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, id); err != nil {
			return nil, fmt.Errorf("failed to lock account %d: %w", id, err)
		}

		var balance int64
		err := tx.QueryRow(ctx, `
			SELECT balance FROM auracoin_ledger
			WHERE account_id = $1
			ORDER BY sequence_id DESC
			LIMIT 1
		`, id).Scan(&balance)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to read balance for account %d: %w", id, err)
		}
		balances[id] = balance
	}

	const insertQuery = `
		INSERT INTO auracoin_ledger (account_id, change_amount, balance, kind, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING sequence_id, account_id, change_amount, balance, kind, created_at
	`

	entries := make([]*model.LedgerEntry, 0, len(changes))
	for _, c := range changes {
		newBalance := balances[c.AccountID] + c.Delta
		if newBalance < 0 {
			return nil, fmt.Errorf("account %d balance %d, change %d: %w",
				c.AccountID, balances[c.AccountID], c.Delta, ErrInsufficientFunds)
		}

		var entry model.LedgerEntry
		err := tx.QueryRow(ctx, insertQuery, c.AccountID, c.Delta, newBalance, c.Kind).Scan(
			&entry.SequenceID,
			&entry.AccountID,
			&entry.Change,
			&entry.Balance,
			&entry.Kind,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to append ledger entry: %w", err)
		}

		balances[c.AccountID] = newBalance
		entries = append(entries, &entry)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit ledger append: %w", err)
	}

	return entries, nil
}

// LastOfKind returns the most recent entry of the given kind for an account.
// Returns ErrNoEntry if the account has none.
func (r *LedgerRepository) LastOfKind(ctx context.Context, accountID int64, kind string) (*model.LedgerEntry, error) {
	const query = `
		SELECT sequence_id, account_id, change_amount, balance, kind, created_at
		FROM auracoin_ledger
		WHERE account_id = $1 AND kind = $2
		ORDER BY sequence_id DESC
		LIMIT 1
	`

	var entry model.LedgerEntry
	err := r.pool.QueryRow(ctx, query, accountID, kind).Scan(
		&entry.SequenceID,
		&entry.AccountID,
		&entry.Change,
		&entry.Balance,
		&entry.Kind,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoEntry
		}
		return nil, fmt.Errorf("failed to get last %s entry: %w", kind, err)
	}

	return &entry, nil
}

// History returns an account's most recent entries, newest first.
func (r *LedgerRepository) History(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error) {
	const query = `
		SELECT sequence_id, account_id, change_amount, balance, kind, created_at
		FROM auracoin_ledger
		WHERE account_id = $1
		ORDER BY sequence_id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var entry model.LedgerEntry
		err := rows.Scan(
			&entry.SequenceID,
			&entry.AccountID,
			&entry.Change,
			&entry.Balance,
			&entry.Kind,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// SumByKind aggregates total change per account for one entry kind,
// largest total first. Used for the fishing earnings leaderboard.
func (r *LedgerRepository) SumByKind(ctx context.Context, kind string, limit int) ([]*model.LeaderboardRow, error) {
	const query = `
		SELECT account_id, COALESCE(SUM(change_amount), 0) AS total
		FROM auracoin_ledger
		WHERE kind = $1
		GROUP BY account_id
		ORDER BY total DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger by kind: %w", err)
	}
	defer rows.Close()

	var result []*model.LeaderboardRow
	for rows.Next() {
		var row model.LeaderboardRow
		if err := rows.Scan(&row.AccountID, &row.Total); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		result = append(result, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard rows: %w", err)
	}

	return result, nil
}
