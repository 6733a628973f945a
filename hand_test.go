package blackjacktable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestHand(ranks ...Rank) *Hand {
	hand := NewHand()
	for _, rank := range ranks {
		hand.AddCard(Card{Rank: rank, Suit: Suit_Spades})
	}
	return hand
}

func TestHand_Value(t *testing.T) {
	assert.Equal(t, 20, newTestHand(Rank_Ace, Rank_Nine).Value())           // soft 20
	assert.Equal(t, 16, newTestHand(Rank_Ace, Rank_Ten, Rank_Five).Value()) // A 降回 1
	assert.Equal(t, 12, newTestHand(Rank_Ace, Rank_Ace).Value())            // 只升一張 A
	assert.Equal(t, 21, newTestHand(Rank_Seven, Rank_Seven, Rank_Seven).Value())
	assert.Equal(t, 25, newTestHand(Rank_King, Rank_Queen, Rank_Five).Value())
	assert.Equal(t, 0, NewHand().Value())
}

func TestHand_IsSoft(t *testing.T) {
	assert.True(t, newTestHand(Rank_Ace, Rank_Six).IsSoft())
	assert.False(t, newTestHand(Rank_Ace, Rank_Ten, Rank_Five).IsSoft())
	assert.False(t, newTestHand(Rank_Ten, Rank_Seven).IsSoft())
}

func TestHand_IsBlackjack(t *testing.T) {
	assert.True(t, newTestHand(Rank_Ace, Rank_King).IsBlackjack())
	assert.True(t, newTestHand(Rank_Ten, Rank_Ace).IsBlackjack())

	// 三張湊 21 不算 Blackjack
	assert.False(t, newTestHand(Rank_Seven, Rank_Seven, Rank_Seven).IsBlackjack())
	assert.False(t, newTestHand(Rank_Ten, Rank_Ten).IsBlackjack())
}

func TestHand_IsBusted(t *testing.T) {
	assert.False(t, newTestHand(Rank_Ten, Rank_Ace).IsBusted())
	assert.False(t, newTestHand(Rank_Ten, Rank_Five, Rank_Six).IsBusted())
	assert.True(t, newTestHand(Rank_Ten, Rank_Five, Rank_Seven).IsBusted())
}

func TestHand_CanSplit(t *testing.T) {
	assert.True(t, newTestHand(Rank_Eight, Rank_Eight).CanSplit())

	// 同為十點即可分，不要求同字面
	assert.True(t, newTestHand(Rank_King, Rank_Ten).CanSplit())

	assert.False(t, newTestHand(Rank_Eight, Rank_Nine).CanSplit())
	assert.False(t, newTestHand(Rank_Eight, Rank_Eight, Rank_Eight).CanSplit())
}

func TestHand_HiddenCards(t *testing.T) {
	hand := NewHand()
	hand.AddCard(Card{Rank: Rank_King, Suit: Suit_Hearts})
	hand.AddCard(Card{Rank: Rank_Ace, Suit: Suit_Spades, Hidden: true})

	// 蓋牌不列入點數
	assert.Equal(t, 10, hand.Value())
	assert.Equal(t, 10, hand.VisibleValue())
	assert.False(t, hand.IsBlackjack())

	masked := hand.MaskedCards()
	assert.Equal(t, Rank_King, masked[0].Rank)
	assert.Empty(t, masked[1].Rank)
	assert.True(t, masked[1].Hidden)

	hand.RevealAll()
	assert.Equal(t, 21, hand.Value())
	assert.True(t, hand.IsBlackjack())
}

func TestHand_RemoveLastCard(t *testing.T) {
	hand := newTestHand(Rank_Eight, Rank_Nine)

	card, ok := hand.RemoveLastCard()
	assert.True(t, ok)
	assert.Equal(t, Rank_Nine, card.Rank)
	assert.Equal(t, 1, hand.Size())

	hand.Clear()
	_, ok = hand.RemoveLastCard()
	assert.False(t, ok)
}

func TestBustProbability(t *testing.T) {
	assert.Equal(t, 0.0, BustProbability(11))
	assert.Equal(t, 1.0, BustProbability(21))
	assert.Equal(t, 1.0, BustProbability(25))
	assert.InDelta(t, 16.0/52.0, BustProbability(12), 0.0001)
	assert.InDelta(t, 32.0/52.0, BustProbability(16), 0.0001)
	assert.InDelta(t, 40.0/52.0, BustProbability(20), 0.0001)
}
