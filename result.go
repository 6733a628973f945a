package blackjacktable

type ResultType string

const (
	Result_Win       ResultType = "win"
	Result_Lose      ResultType = "lose"
	Result_Push      ResultType = "push"
	Result_Blackjack ResultType = "blackjack"
	Result_Surrender ResultType = "surrender"
)

// compareWithDealer determines the round outcome for one player hand.
// isNatural marks a two-card 21 dealt before any split.
func compareWithDealer(hand *Hand, isNatural bool, dealer *Hand) ResultType {
	if hand.IsBusted() {
		return Result_Lose
	}

	dealerNatural := dealer.IsBlackjack()

	if isNatural {
		if dealerNatural {
			return Result_Push
		}
		return Result_Blackjack
	}

	if dealer.IsBusted() {
		return Result_Win
	}

	if dealerNatural {
		return Result_Lose
	}

	playerValue := hand.Value()
	dealerValue := dealer.Value()
	switch {
	case playerValue > dealerValue:
		return Result_Win
	case playerValue < dealerValue:
		return Result_Lose
	default:
		return Result_Push
	}
}

// payoutFor 計算淨輸贏 (不含退回的本金): 贏 +bet、Blackjack +bet×賠率、
// 平手 0、輸 -bet、投降 -bet/2。
func payoutFor(result ResultType, bet int, blackjackPayout float64) int {
	switch result {
	case Result_Blackjack:
		return int(float64(bet) * blackjackPayout)
	case Result_Win:
		return bet
	case Result_Lose:
		return -bet
	case Result_Surrender:
		return -(bet / 2)
	default:
		return 0
	}
}

// bustingCardCounts maps the current hand total to the number of cards in a
// full 52-card composition that would bust it. This mirrors the advisory
// shown to players: a fixed full-shoe approximation, not remaining-card odds.
var bustingCardCounts = map[int]int{
	12: 16,
	13: 20,
	14: 24,
	15: 28,
	16: 32,
	17: 36,
	18: 40,
	19: 40,
	20: 40,
}

// BustProbability 爆牌機率估算 (僅供顯示)
func BustProbability(currentValue int) float64 {
	if currentValue >= BlackjackValue {
		return 1.0
	}
	if currentValue <= 11 {
		return 0.0
	}
	return float64(bustingCardCounts[currentValue]) / float64(CardsPerDeck)
}
