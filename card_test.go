package blackjacktable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeck_Reset(t *testing.T) {
	deck := NewDeck(1, 15)
	assert.Equal(t, 52, deck.Remaining())
	assert.Equal(t, 52, deck.TotalCards())

	deck = NewDeck(4, 15)
	assert.Equal(t, 208, deck.Remaining())

	// 每種牌恰好 numberOfDecks 張
	counts := make(map[Card]int)
	for deck.Remaining() > 0 {
		card := deck.Deal(false)
		counts[card]++
	}
	assert.Len(t, counts, 52)
	for card, count := range counts {
		assert.Equalf(t, 4, count, "card %s%s", card.Rank, card.Suit)
	}
}

func TestDeck_DealHidden(t *testing.T) {
	deck := NewDeck(1, 15)

	card := deck.Deal(true)
	assert.True(t, card.Hidden)
	assert.NotEmpty(t, card.Rank)

	masked := card.Masked()
	assert.True(t, masked.Hidden)
	assert.Empty(t, masked.Rank)
	assert.Empty(t, masked.Suit)

	visible := deck.Deal(false)
	assert.False(t, visible.Hidden)
	assert.Equal(t, visible, visible.Masked())
}

func TestDeck_AutoReshuffleWhenEmpty(t *testing.T) {
	deck := NewDeck(1, 15)
	for i := 0; i < 52; i++ {
		deck.Deal(false)
	}
	assert.Equal(t, 0, deck.Remaining())

	// 空靴再發牌不會失敗，自動重建並重洗
	card := deck.Deal(false)
	assert.NotEmpty(t, card.Rank)
	assert.Equal(t, 51, deck.Remaining())
}

func TestDeck_NeedsReset(t *testing.T) {
	deck := NewDeck(1, 15)
	assert.False(t, deck.NeedsReset())

	for deck.Remaining() >= 15 {
		deck.Deal(false)
	}
	assert.True(t, deck.NeedsReset())
}

func TestDeck_ShufflePreservesCards(t *testing.T) {
	deck := NewDeck(2, 15)
	before := make(map[Card]int)
	for _, card := range deck.cards {
		before[card]++
	}

	deck.Shuffle()

	after := make(map[Card]int)
	for _, card := range deck.cards {
		after[card]++
	}
	assert.Equal(t, before, after)
}

func TestRank_Value(t *testing.T) {
	assert.Equal(t, 1, Rank_Ace.Value())
	assert.Equal(t, 10, Rank_Ten.Value())
	assert.Equal(t, 10, Rank_Jack.Value())
	assert.Equal(t, 10, Rank_Queen.Value())
	assert.Equal(t, 10, Rank_King.Value())
	assert.Equal(t, 7, Rank_Seven.Value())
}
