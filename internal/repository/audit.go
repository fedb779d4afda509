package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"aurabot/internal/model"
)

// AuditRepository handles persistence of the logs table. Audit rows are
// best-effort; callers treat write failures as non-fatal.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository instance.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert writes one audit record.
func (r *AuditRepository) Insert(ctx context.Context, entry *model.AuditEntry) error {
	const query = `
		INSERT INTO logs (kind, account_id, username, message, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	_, err := r.pool.Exec(ctx, query, entry.Kind, entry.AccountID, entry.Username, entry.Message)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Recent returns the newest audit records, newest first.
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	const query = `
		SELECT id, kind, account_id, username, message, created_at
		FROM logs
		ORDER BY id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		var entry model.AuditEntry
		err := rows.Scan(
			&entry.ID,
			&entry.Kind,
			&entry.AccountID,
			&entry.Username,
			&entry.Message,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
