package blackjacktable

type Hand struct {
	Cards []Card `json:"cards"`
}

func NewHand() *Hand {
	return &Hand{
		Cards: make([]Card, 0, 8),
	}
}

func (h *Hand) AddCard(card Card) {
	h.Cards = append(h.Cards, card)
}

// RemoveLastCard pops the most recently dealt card (used by split).
func (h *Hand) RemoveLastCard() (Card, bool) {
	if len(h.Cards) == 0 {
		return Card{}, false
	}

	card := h.Cards[len(h.Cards)-1]
	h.Cards = h.Cards[:len(h.Cards)-1]
	return card, true
}

func (h *Hand) Clear() {
	h.Cards = h.Cards[:0]
}

func (h *Hand) Size() int {
	return len(h.Cards)
}

// Value 計算最佳點數: 每張 A 先以 1 計，再逐張升為 11 直到不超過 21。
// 蓋著的牌不列入計算。
func (h *Hand) Value() int {
	total, aceCount := h.rawValue()
	for aceCount > 0 && total+10 <= BlackjackValue {
		total += 10
		aceCount--
	}
	return total
}

// IsSoft reports whether an ace is currently counted as 11.
func (h *Hand) IsSoft() bool {
	total, aceCount := h.rawValue()
	return aceCount > 0 && total+10 <= BlackjackValue
}

func (h *Hand) rawValue() (int, int) {
	total := 0
	aceCount := 0
	for _, card := range h.Cards {
		if card.Hidden {
			continue
		}
		if card.Rank == Rank_Ace {
			aceCount++
		}
		total += card.Rank.Value()
	}
	return total, aceCount
}

// IsBlackjack 兩張牌湊滿 21 (A + 十點牌)。是否為「天生」Blackjack
// (未經 split) 由 PlayerHand 層判定。
func (h *Hand) IsBlackjack() bool {
	if len(h.Cards) != 2 {
		return false
	}

	hasAce := false
	hasTen := false
	for _, card := range h.Cards {
		if card.Hidden {
			continue
		}
		if card.Rank == Rank_Ace {
			hasAce = true
		} else if card.Rank.Value() == 10 {
			hasTen = true
		}
	}
	return hasAce && hasTen
}

func (h *Hand) IsBusted() bool {
	return h.Value() > BlackjackValue
}

// CanSplit 兩張同點數的牌才能分牌
func (h *Hand) CanSplit() bool {
	if len(h.Cards) != 2 {
		return false
	}
	return h.Cards[0].Rank.Value() == h.Cards[1].Rank.Value()
}

func (h *Hand) RevealAll() {
	for i := range h.Cards {
		h.Cards[i].Hidden = false
	}
}

// VisibleValue sums the face-up cards only (up-card score before reveal).
func (h *Hand) VisibleValue() int {
	total := 0
	for _, card := range h.Cards {
		if !card.Hidden {
			total += card.Rank.Value()
		}
	}
	return total
}

// MaskedCards returns a copy safe to show opponents: hidden cards carry no
// rank or suit.
func (h *Hand) MaskedCards() []Card {
	cards := make([]Card, 0, len(h.Cards))
	for _, card := range h.Cards {
		cards = append(cards, card.Masked())
	}
	return cards
}

func (h *Hand) CloneCards() []Card {
	cards := make([]Card, len(h.Cards))
	copy(cards, h.Cards)
	return cards
}
