// Package cards provides the playing card primitives for blackjack:
// a shuffled 52-card deck and hand valuation with soft aces.
package cards

import (
	"math/rand"
	"strings"
)

// Card is a single playing card.
type Card struct {
	Rank string
	Suit string
}

// Suits in deck order.
var Suits = []string{"♠", "♥", "♦", "♣"}

// Ranks in deck order.
var Ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

// rankValues maps a rank to its blackjack value; aces count as 11 here and
// are demoted during hand valuation.
var rankValues = map[string]int{
	"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9,
	"10": 10, "J": 10, "Q": 10, "K": 10, "A": 11,
}

// Value returns the card's blackjack value, counting an ace as 11.
func (c Card) Value() int {
	return rankValues[c.Rank]
}

// IsAce reports whether the card is an ace.
func (c Card) IsAce() bool {
	return c.Rank == "A"
}

// String formats the card as rank plus suit, e.g. "A♠".
func (c Card) String() string {
	return c.Rank + c.Suit
}

// Deck is a single 52-card deck. When exhausted it reshuffles in place so
// dealing never fails mid-hand.
type Deck struct {
	cards []Card
	next  int
	rng   *rand.Rand
}

// NewDeck creates a shuffled deck using the given source of randomness.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, len(Suits)*len(Ranks)),
		rng:   rng,
	}
	for _, suit := range Suits {
		for _, rank := range Ranks {
			d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
		}
	}
	d.shuffle()
	return d
}

// NewStacked creates a deck that deals the given cards in order and
// reshuffles them when exhausted. Intended for deterministic tests.
func NewStacked(cards ...Card) *Deck {
	return &Deck{
		cards: cards,
		rng:   rand.New(rand.NewSource(0)),
	}
}

func (d *Deck) shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	d.next = 0
}

// Deal returns the next card, reshuffling the deck when it runs out.
func (d *Deck) Deal() Card {
	if d.next >= len(d.cards) {
		d.shuffle()
	}
	c := d.cards[d.next]
	d.next++
	return c
}

// Remaining returns how many cards are left before a reshuffle.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}

// Hand is a player's or the dealer's cards.
type Hand []Card

// Value returns the best blackjack value of the hand. Aces start at 11 and
// are demoted to 1 one at a time while the total busts, so the result does
// not depend on card order.
func (h Hand) Value() int {
	total := 0
	aces := 0
	for _, c := range h {
		total += c.Value()
		if c.IsAce() {
			aces++
		}
	}
	for aces > 0 && total > 21 {
		total -= 10
		aces--
	}
	return total
}

// IsBlackjack reports whether the hand is a natural: exactly two cards
// totalling 21.
func (h Hand) IsBlackjack() bool {
	return len(h) == 2 && h.Value() == 21
}

// IsBust reports whether the hand's value exceeds 21.
func (h Hand) IsBust() bool {
	return h.Value() > 21
}

// String formats the hand as space-separated cards.
func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, c := range h {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
