package blackjacktable

import (
	"math/rand"
)

type Suit string

const (
	Suit_Hearts   Suit = "hearts"
	Suit_Diamonds Suit = "diamonds"
	Suit_Clubs    Suit = "clubs"
	Suit_Spades   Suit = "spades"
)

var AllSuits = []Suit{Suit_Hearts, Suit_Diamonds, Suit_Clubs, Suit_Spades}

type Rank string

const (
	Rank_Ace   Rank = "A"
	Rank_Two   Rank = "2"
	Rank_Three Rank = "3"
	Rank_Four  Rank = "4"
	Rank_Five  Rank = "5"
	Rank_Six   Rank = "6"
	Rank_Seven Rank = "7"
	Rank_Eight Rank = "8"
	Rank_Nine  Rank = "9"
	Rank_Ten   Rank = "10"
	Rank_Jack  Rank = "J"
	Rank_Queen Rank = "Q"
	Rank_King  Rank = "K"
)

var AllRanks = []Rank{
	Rank_Ace, Rank_Two, Rank_Three, Rank_Four, Rank_Five, Rank_Six, Rank_Seven,
	Rank_Eight, Rank_Nine, Rank_Ten, Rank_Jack, Rank_Queen, Rank_King,
}

var rankValues = map[Rank]int{
	Rank_Ace:   1,
	Rank_Two:   2,
	Rank_Three: 3,
	Rank_Four:  4,
	Rank_Five:  5,
	Rank_Six:   6,
	Rank_Seven: 7,
	Rank_Eight: 8,
	Rank_Nine:  9,
	Rank_Ten:   10,
	Rank_Jack:  10,
	Rank_Queen: 10,
	Rank_King:  10,
}

// Value 取得牌面基本點數 (A 以 1 計算，升 11 由 Hand 處理)
func (r Rank) Value() int {
	return rankValues[r]
}

type Card struct {
	Rank   Rank `json:"rank"`
	Suit   Suit `json:"suit"`
	Hidden bool `json:"hidden,omitempty"`
}

// Masked returns the card as seen by players who may not peek at it.
// A hidden card keeps only its hidden flag.
func (c Card) Masked() Card {
	if !c.Hidden {
		return c
	}
	return Card{Hidden: true}
}

// Deck 多副牌靴 (52 × numberOfDecks)
type Deck struct {
	numberOfDecks  int
	resetThreshold int
	cards          []Card
}

func NewDeck(numberOfDecks int, resetThreshold int) *Deck {
	if numberOfDecks < 1 {
		numberOfDecks = 1
	}

	d := &Deck{
		numberOfDecks:  numberOfDecks,
		resetThreshold: resetThreshold,
	}
	d.Reset()
	return d
}

// Reset rebuilds the full shoe in deterministic order. The hidden flag is
// decided at deal time, never stored in the shoe.
func (d *Deck) Reset() {
	d.cards = d.cards[:0]
	for i := 0; i < d.numberOfDecks; i++ {
		for _, suit := range AllSuits {
			for _, rank := range AllRanks {
				d.cards = append(d.cards, Card{Rank: rank, Suit: suit})
			}
		}
	}
}

func (d *Deck) Shuffle() {
	rand.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the top card. An empty shoe resets and reshuffles
// implicitly, so dealing never fails mid-round.
func (d *Deck) Deal(hidden bool) Card {
	if len(d.cards) == 0 {
		d.Reset()
		d.Shuffle()
	}

	card := d.cards[0]
	d.cards = d.cards[1:]
	card.Hidden = hidden
	return card
}

func (d *Deck) Remaining() int {
	return len(d.cards)
}

func (d *Deck) TotalCards() int {
	return CardsPerDeck * d.numberOfDecks
}

// NeedsReset 剩餘牌數低於門檻，開新一輪前應重洗
func (d *Deck) NeedsReset() bool {
	return len(d.cards) < d.resetThreshold
}
