// Package fishing implements the bait and fishing economy loop: buy bait,
// cast for a weighted random catch, sell the inventory back for coins.
package fishing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"aurabot/internal/model"
)

// Fishing errors.
var (
	ErrNoBait       = errors.New("you have no bait, buy some first")
	ErrOnCooldown   = errors.New("the fish are wary, wait before casting again")
	ErrEmptyBasket  = errors.New("you have no fish to sell")
	ErrInvalidCount = errors.New("bait count must be positive")
)

// baitItem is the inventory row consumed by every cast.
const baitItem = "Bait"

// catchEntry is one species with its sell value and draw weight. Rarer
// fish carry smaller weights and bigger values.
type catchEntry struct {
	Name   string
	Value  int64
	Weight int
}

var catchTable = []catchEntry{
	{Name: "Common Carp", Value: 10, Weight: 300},
	{Name: "Bass", Value: 15, Weight: 250},
	{Name: "Salmon", Value: 25, Weight: 180},
	{Name: "Tuna", Value: 30, Weight: 130},
	{Name: "Rainbow Trout", Value: 50, Weight: 80},
	{Name: "Swordfish", Value: 75, Weight: 40},
	{Name: "Golden Koi", Value: 150, Weight: 15},
	{Name: "Mythic Leviathan", Value: 500, Weight: 5},
}

var totalWeight = func() int {
	var sum int
	for _, c := range catchTable {
		sum += c.Weight
	}
	return sum
}()

// fishValue maps species name to sell value for pricing inventories.
var fishValue = func() map[string]int64 {
	m := make(map[string]int64, len(catchTable))
	for _, c := range catchTable {
		m[c.Name] = c.Value
	}
	return m
}()

// Wallet is the money surface fishing needs. Purchases and sales are
// immediate ledger writes, never holds.
type Wallet interface {
	Apply(ctx context.Context, accountID, delta int64, kind string) (int64, error)
}

// Inventory persists per-user items.
type Inventory interface {
	AddItem(ctx context.Context, userID int64, item string, quantity int) error
	ConsumeItem(ctx context.Context, userID int64, item string) (bool, error)
	Quantity(ctx context.Context, userID int64, item string) (int, error)
	Items(ctx context.Context, userID int64) ([]*model.InventoryItem, error)
	RemoveItems(ctx context.Context, userID int64, items []string) error
}

// Catch is one successful cast.
type Catch struct {
	Name     string
	Value    int64
	BaitLeft int
}

// Sale is the result of selling everything in the basket.
type Sale struct {
	Items      []*model.InventoryItem
	Total      int64
	NewBalance int64
}

// Pond runs the fishing game. The per-user cast cooldown lives in memory
// and resets on restart, which is acceptable for a courtesy rate limit.
type Pond struct {
	wallet    Wallet
	inventory Inventory
	rng       *rand.Rand
	rngMu     sync.Mutex

	baitPrice int64
	cooldown  time.Duration
	lastCast  sync.Map

	now func() time.Time
}

// NewPond creates a fishing pond.
func NewPond(wallet Wallet, inventory Inventory, rng *rand.Rand, baitPrice int64, cooldown time.Duration) *Pond {
	return &Pond{
		wallet:    wallet,
		inventory: inventory,
		rng:       rng,
		baitPrice: baitPrice,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// BaitPrice returns the price of one bait.
func (p *Pond) BaitPrice() int64 { return p.baitPrice }

// BuyBait debits the price and adds bait to the user's inventory.
func (p *Pond) BuyBait(ctx context.Context, userID int64, qty int) (int64, error) {
	if qty <= 0 {
		return 0, ErrInvalidCount
	}

	cost := p.baitPrice * int64(qty)
	newBalance, err := p.wallet.Apply(ctx, userID, -cost, model.TxBaitPurchase)
	if err != nil {
		return 0, err
	}
	if err := p.inventory.AddItem(ctx, userID, baitItem, qty); err != nil {
		return 0, fmt.Errorf("failed to stock bait: %w", err)
	}
	return newBalance, nil
}

// Fish consumes one bait and draws a catch from the weighted table. Casts
// inside the cooldown window are rejected without consuming bait.
func (p *Pond) Fish(ctx context.Context, userID int64) (*Catch, error) {
	if last, ok := p.lastCast.Load(userID); ok {
		if wait := p.cooldown - p.now().Sub(last.(time.Time)); wait > 0 {
			return nil, fmt.Errorf("%w (%s left)", ErrOnCooldown, wait.Round(time.Second))
		}
	}

	consumed, err := p.inventory.ConsumeItem(ctx, userID, baitItem)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrNoBait
	}
	p.lastCast.Store(userID, p.now())

	caught := p.draw()
	if err := p.inventory.AddItem(ctx, userID, caught.Name, 1); err != nil {
		return nil, fmt.Errorf("failed to store catch: %w", err)
	}

	baitLeft, err := p.inventory.Quantity(ctx, userID, baitItem)
	if err != nil {
		return nil, err
	}
	return &Catch{Name: caught.Name, Value: caught.Value, BaitLeft: baitLeft}, nil
}

func (p *Pond) draw() catchEntry {
	p.rngMu.Lock()
	roll := p.rng.Intn(totalWeight)
	p.rngMu.Unlock()

	for _, c := range catchTable {
		roll -= c.Weight
		if roll < 0 {
			return c
		}
	}
	return catchTable[len(catchTable)-1]
}

// Basket returns the user's fish with their sell values, bait excluded.
func (p *Pond) Basket(ctx context.Context, userID int64) ([]*model.InventoryItem, int64, error) {
	items, err := p.inventory.Items(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	var fish []*model.InventoryItem
	var total int64
	for _, it := range items {
		value, ok := fishValue[it.Item]
		if !ok {
			continue
		}
		fish = append(fish, it)
		total += value * int64(it.Quantity)
	}
	return fish, total, nil
}

// SellAll sells every fish in the basket and credits the total.
func (p *Pond) SellAll(ctx context.Context, userID int64) (*Sale, error) {
	fish, total, err := p.Basket(ctx, userID)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrEmptyBasket
	}

	newBalance, err := p.wallet.Apply(ctx, userID, total, model.TxFishSale)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(fish))
	for _, it := range fish {
		names = append(names, it.Item)
	}
	if err := p.inventory.RemoveItems(ctx, userID, names); err != nil {
		return nil, fmt.Errorf("failed to clear sold fish: %w", err)
	}

	return &Sale{Items: fish, Total: total, NewBalance: newBalance}, nil
}
