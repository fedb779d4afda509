package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aurabot/internal/model"
)

// FishingRepository handles the fishing inventory: bait and caught fish,
// stored as (user, item, quantity) stacks.
type FishingRepository struct {
	pool *pgxpool.Pool
}

// NewFishingRepository creates a new FishingRepository instance.
func NewFishingRepository(pool *pgxpool.Pool) *FishingRepository {
	return &FishingRepository{pool: pool}
}

// AddItem adds quantity to a user's stack of an item, creating it if absent.
func (r *FishingRepository) AddItem(ctx context.Context, userID int64, item string, quantity int) error {
	const query = `
		INSERT INTO fishing_inventory (user_id, item, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item)
		DO UPDATE SET quantity = fishing_inventory.quantity + $3
	`

	_, err := r.pool.Exec(ctx, query, userID, item, quantity)
	if err != nil {
		return fmt.Errorf("failed to add inventory item: %w", err)
	}
	return nil
}

// ConsumeItem decrements one unit of an item. Returns false when the user
// has none left; the row guard makes the decrement race-safe.
func (r *FishingRepository) ConsumeItem(ctx context.Context, userID int64, item string) (bool, error) {
	const query = `
		UPDATE fishing_inventory
		SET quantity = quantity - 1
		WHERE user_id = $1 AND item = $2 AND quantity > 0
	`

	result, err := r.pool.Exec(ctx, query, userID, item)
	if err != nil {
		return false, fmt.Errorf("failed to consume inventory item: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Quantity returns how many of an item a user holds, 0 if none.
func (r *FishingRepository) Quantity(ctx context.Context, userID int64, item string) (int, error) {
	const query = `
		SELECT quantity FROM fishing_inventory
		WHERE user_id = $1 AND item = $2
	`

	var quantity int
	err := r.pool.QueryRow(ctx, query, userID, item).Scan(&quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		// No row means an empty stack.
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get item quantity: %w", err)
	}
	return quantity, nil
}

// Items returns every non-empty stack a user holds.
func (r *FishingRepository) Items(ctx context.Context, userID int64) ([]*model.InventoryItem, error) {
	const query = `
		SELECT user_id, item, quantity
		FROM fishing_inventory
		WHERE user_id = $1 AND quantity > 0
		ORDER BY item
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	defer rows.Close()

	var items []*model.InventoryItem
	for rows.Next() {
		var item model.InventoryItem
		if err := rows.Scan(&item.UserID, &item.Item, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}

	return items, nil
}

// RemoveItems deletes the given stacks entirely. Used by sell-all after the
// sale proceeds are credited.
func (r *FishingRepository) RemoveItems(ctx context.Context, userID int64, items []string) error {
	const query = `
		DELETE FROM fishing_inventory
		WHERE user_id = $1 AND item = ANY($2)
	`

	_, err := r.pool.Exec(ctx, query, userID, items)
	if err != nil {
		return fmt.Errorf("failed to remove inventory items: %w", err)
	}
	return nil
}
