package cards

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestHandValue(t *testing.T) {
	tests := []struct {
		name string
		hand Hand
		want int
	}{
		{name: "two aces and nine", hand: Hand{{Rank: "A"}, {Rank: "A"}, {Rank: "9"}}, want: 21},
		{name: "three aces", hand: Hand{{Rank: "A"}, {Rank: "A"}, {Rank: "A"}}, want: 13},
		{name: "soft seventeen", hand: Hand{{Rank: "A"}, {Rank: "6"}}, want: 17},
		{name: "hard twenty", hand: Hand{{Rank: "K"}, {Rank: "Q"}}, want: 20},
		{name: "ace demoted on bust", hand: Hand{{Rank: "A"}, {Rank: "9"}, {Rank: "5"}}, want: 15},
		{name: "bust", hand: Hand{{Rank: "K"}, {Rank: "Q"}, {Rank: "5"}}, want: 25},
		{name: "empty hand", hand: Hand{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.hand.Value())
		})
	}
}

func TestIsBlackjack(t *testing.T) {
	assert.True(t, Hand{{Rank: "A"}, {Rank: "K"}}.IsBlackjack())
	assert.False(t, Hand{{Rank: "A"}, {Rank: "5"}, {Rank: "5"}}.IsBlackjack(), "three-card 21 is not a natural")
	assert.False(t, Hand{{Rank: "K"}, {Rank: "Q"}}.IsBlackjack())
}

func TestIsBust(t *testing.T) {
	assert.True(t, Hand{{Rank: "K"}, {Rank: "Q"}, {Rank: "5"}}.IsBust())
	assert.False(t, Hand{{Rank: "A"}, {Rank: "K"}, {Rank: "Q"}}.IsBust(), "ace demotes to avoid bust")
}

func TestDeckDealsFullDeck(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(1)))
	assert.Equal(t, 52, d.Remaining())

	seen := make(map[Card]int)
	for i := 0; i < 52; i++ {
		seen[d.Deal()]++
	}

	assert.Len(t, seen, 52, "all 52 cards should be distinct")
	for card, count := range seen {
		assert.Equal(t, 1, count, "card %s dealt more than once", card)
	}
}

func TestDeckReshufflesWhenExhausted(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(1)))
	for i := 0; i < 52; i++ {
		d.Deal()
	}
	assert.Equal(t, 0, d.Remaining())

	// The next deal must still produce a card.
	c := d.Deal()
	assert.NotEmpty(t, c.Rank)
	assert.Equal(t, 51, d.Remaining())
}

func TestStackedDeckDealsInOrder(t *testing.T) {
	d := NewStacked(Card{Rank: "A", Suit: "♠"}, Card{Rank: "K", Suit: "♥"})
	assert.Equal(t, Card{Rank: "A", Suit: "♠"}, d.Deal())
	assert.Equal(t, Card{Rank: "K", Suit: "♥"}, d.Deal())
}

// TestHandValueOrderIndependenceProperty checks that hand valuation does
// not depend on the order cards were dealt.
func TestHandValueOrderIndependenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 10).Draw(t, "size")
		hand := make(Hand, size)
		for i := range hand {
			hand[i] = Card{
				Rank: Ranks[rapid.IntRange(0, len(Ranks)-1).Draw(t, "rank")],
				Suit: Suits[rapid.IntRange(0, len(Suits)-1).Draw(t, "suit")],
			}
		}

		want := hand.Value()

		shuffled := make(Hand, size)
		copy(shuffled, hand)
		seed := rapid.Int64().Draw(t, "seed")
		rand.New(rand.NewSource(seed)).Shuffle(size, func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		if got := shuffled.Value(); got != want {
			t.Fatalf("hand value changed with order: %v=%d, %v=%d", hand, want, shuffled, got)
		}
	})
}
