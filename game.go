package blackjacktable

import (
	"errors"
)

var (
	ErrGameNoActiveRound     = errors.New("game: no active round")
	ErrGameRoundInProgress   = errors.New("game: round already in progress")
	ErrGameInvalidBet        = errors.New("game: bet out of bounds")
	ErrGameInsufficientChips = errors.New("game: insufficient chips")
	ErrGameInvalidAction     = errors.New("game: action not allowed now")
	ErrGameMaxSplitsReached  = errors.New("game: max splits reached")
	ErrGameInvalidHandIndex  = errors.New("game: invalid hand index")
)

type GamePhase string

const (
	GamePhase_Idle       GamePhase = "idle"        // 尚未下注
	GamePhase_PlayerTurn GamePhase = "player_turn" // 玩家行動中
	GamePhase_GameOver   GamePhase = "game_over"   // 本局結束，待結算
)

type HandStatus string

const (
	HandStatus_Waiting   HandStatus = "waiting"
	HandStatus_Playing   HandStatus = "playing"
	HandStatus_Standing  HandStatus = "standing"
	HandStatus_Busted    HandStatus = "busted"
	HandStatus_Blackjack HandStatus = "blackjack"
	HandStatus_Completed HandStatus = "completed"
)

// PlayerHand 單一手牌的完整狀態，取代來源系統的多張平行字典
type PlayerHand struct {
	Hand      *Hand      `json:"hand"`
	Bet       int        `json:"bet"`
	Status    HandStatus `json:"status"`
	Doubled   bool       `json:"doubled"`
	FromSplit bool       `json:"from_split"`
}

// IsNatural 天生 Blackjack: 前兩張湊滿 21 且未經分牌
func (ph *PlayerHand) IsNatural() bool {
	return ph.Status == HandStatus_Blackjack
}

func (ph *PlayerHand) IsDone() bool {
	switch ph.Status {
	case HandStatus_Standing, HandStatus_Busted, HandStatus_Blackjack, HandStatus_Completed:
		return true
	}
	return false
}

type HandView struct {
	Index   int        `json:"index"`
	Cards   []Card     `json:"cards"`
	Score   int        `json:"score"`
	Bet     int        `json:"bet"`
	Status  HandStatus `json:"status"`
	Doubled bool       `json:"doubled"`
}

type RoundView struct {
	Phase           GamePhase  `json:"phase"`
	RoundNumber     int        `json:"round_number"`
	Hands           []HandView `json:"hands"`
	ActiveHandIndex int        `json:"active_hand_index"`
	DealerCards     []Card     `json:"dealer_cards"`
	DealerScore     int        `json:"dealer_score"`
	CanHit          bool       `json:"can_hit"`
	CanStand        bool       `json:"can_stand"`
	CanDouble       bool       `json:"can_double"`
	CanSplit        bool       `json:"can_split"`
	CanSurrender    bool       `json:"can_surrender"`
	BustProbability float64    `json:"bust_probability"`
	TotalBet        int        `json:"total_bet"`
}

type HandResult struct {
	Index  int        `json:"index"`
	Cards  []Card     `json:"cards"`
	Score  int        `json:"score"`
	Bet    int        `json:"bet"`
	Result ResultType `json:"result"`
	Payout int        `json:"payout"` // 淨輸贏
}

type RoundResult struct {
	HandResults   []HandResult `json:"hand_results"`
	DealerCards   []Card       `json:"dealer_cards"`
	DealerScore   int          `json:"dealer_score"`
	TotalPayout   int          `json:"total_payout"`   // Σ 淨輸贏
	TotalReturned int          `json:"total_returned"` // Σ (本金 + 淨輸贏)，直接加回籌碼
}

// Game is the per-player round engine used in PVE mode. One instance is owned
// by exactly one connection, so it carries no locking of its own.
type Game interface {
	StartRound(bet int, availableChips int, numberOfHands int) (*RoundView, error)
	Hit() (*RoundView, error)
	Stand() (*RoundView, error)
	Double(availableChips int) (*RoundView, error)
	Split(availableChips int) (*RoundView, error)
	Surrender() (*RoundView, error)
	SelectHand(handIndex int) (*RoundView, error)
	Resolve() (*RoundResult, error)
	View() *RoundView
	RoundNumber() int
}

type game struct {
	rules       *Rules
	deck        *Deck
	dealer      *Hand
	hands       []*PlayerHand
	activeIdx   int
	splitCount  int
	surrendered bool
	phase       GamePhase
	roundNumber int
}

func NewGame(rules *Rules) Game {
	deck := NewDeck(rules.NumberOfDecks, rules.DeckResetThreshold)
	deck.Shuffle()

	return &game{
		rules:  rules,
		deck:   deck,
		dealer: NewHand(),
		hands:  make([]*PlayerHand, 0, MaxHandsPerPlayer),
		phase:  GamePhase_Idle,
	}
}

func (g *game) RoundNumber() int {
	return g.roundNumber
}

func (g *game) StartRound(bet int, availableChips int, numberOfHands int) (*RoundView, error) {
	if g.phase == GamePhase_PlayerTurn {
		return nil, ErrGameRoundInProgress
	}
	if numberOfHands < 1 || numberOfHands > MaxHandsPerPlayer {
		return nil, ErrGameInvalidBet
	}
	if bet < g.rules.MinBet || bet > g.rules.MaxBet {
		return nil, ErrGameInvalidBet
	}
	if bet*numberOfHands > availableChips {
		return nil, ErrGameInsufficientChips
	}

	// 開局前牌靴過低先重洗
	if g.deck.NeedsReset() {
		g.deck.Reset()
		g.deck.Shuffle()
	}

	g.dealer.Clear()
	g.hands = g.hands[:0]
	g.activeIdx = 0
	g.splitCount = 0
	g.surrendered = false
	g.roundNumber++

	for i := 0; i < numberOfHands; i++ {
		g.hands = append(g.hands, &PlayerHand{
			Hand:   NewHand(),
			Bet:    bet,
			Status: HandStatus_Waiting,
		})
	}

	// 發牌順序: 玩家各一張 → 莊家明牌 → 玩家各一張 → 莊家暗牌
	for _, ph := range g.hands {
		ph.Hand.AddCard(g.deck.Deal(false))
	}
	g.dealer.AddCard(g.deck.Deal(false))
	for _, ph := range g.hands {
		ph.Hand.AddCard(g.deck.Deal(false))
	}
	g.dealer.AddCard(g.deck.Deal(true))

	for _, ph := range g.hands {
		if ph.Hand.IsBlackjack() {
			ph.Status = HandStatus_Blackjack
		}
	}

	g.phase = GamePhase_PlayerTurn
	g.activateNextHand(UnsetValue)

	return g.View(), nil
}

func (g *game) Hit() (*RoundView, error) {
	ph, err := g.activePlayingHand()
	if err != nil {
		return nil, err
	}

	ph.Hand.AddCard(g.deck.Deal(false))

	if ph.Hand.IsBusted() {
		ph.Status = HandStatus_Busted
		g.activateNextHand(g.activeIdx)
	} else if ph.Hand.Value() == BlackjackValue {
		ph.Status = HandStatus_Standing
		g.activateNextHand(g.activeIdx)
	}

	return g.View(), nil
}

func (g *game) Stand() (*RoundView, error) {
	ph, err := g.activePlayingHand()
	if err != nil {
		return nil, err
	}

	ph.Status = HandStatus_Standing
	g.activateNextHand(g.activeIdx)
	return g.View(), nil
}

// Double 加倍: 限兩張牌、籌碼足夠、分牌後依規則。補一張後強制停牌。
func (g *game) Double(availableChips int) (*RoundView, error) {
	ph, err := g.activePlayingHand()
	if err != nil {
		return nil, err
	}

	if ph.Hand.Size() != 2 {
		return nil, ErrGameInvalidAction
	}
	if ph.FromSplit && !g.rules.AllowDoubleAfterSplit {
		return nil, ErrGameInvalidAction
	}
	if ph.Bet > availableChips {
		return nil, ErrGameInsufficientChips
	}

	ph.Bet *= 2
	ph.Doubled = true
	ph.Hand.AddCard(g.deck.Deal(false))

	if ph.Hand.IsBusted() {
		ph.Status = HandStatus_Busted
	} else {
		ph.Status = HandStatus_Standing
	}
	g.activateNextHand(g.activeIdx)

	return g.View(), nil
}

// Split 分牌: 把第二張移入緊鄰的新手牌，各補一張，押注複製一份。
func (g *game) Split(availableChips int) (*RoundView, error) {
	ph, err := g.activePlayingHand()
	if err != nil {
		return nil, err
	}

	if !ph.Hand.CanSplit() {
		return nil, ErrGameInvalidAction
	}
	if g.splitCount >= g.rules.MaxSplits {
		return nil, ErrGameMaxSplitsReached
	}
	if ph.Bet > availableChips {
		return nil, ErrGameInsufficientChips
	}

	secondCard, _ := ph.Hand.RemoveLastCard()
	splitHand := &PlayerHand{
		Hand:      NewHand(),
		Bet:       ph.Bet,
		Status:    HandStatus_Waiting,
		FromSplit: true,
	}
	splitHand.Hand.AddCard(secondCard)
	ph.FromSplit = true

	ph.Hand.AddCard(g.deck.Deal(false))
	splitHand.Hand.AddCard(g.deck.Deal(false))

	// insert right after the active hand
	idx := g.activeIdx + 1
	g.hands = append(g.hands, nil)
	copy(g.hands[idx+1:], g.hands[idx:])
	g.hands[idx] = splitHand

	g.splitCount++

	// 分牌後剛好湊滿 21 直接停牌換下一手
	if ph.Hand.Value() == BlackjackValue {
		ph.Status = HandStatus_Standing
		g.activateNextHand(g.activeIdx)
	}

	return g.View(), nil
}

// Surrender 投降: 僅限原始單手牌、兩張牌、規則允許；立即輸掉一半押注。
func (g *game) Surrender() (*RoundView, error) {
	ph, err := g.activePlayingHand()
	if err != nil {
		return nil, err
	}

	if !g.rules.AllowSurrender {
		return nil, ErrGameInvalidAction
	}
	if len(g.hands) != 1 || g.splitCount > 0 || ph.Hand.Size() != 2 {
		return nil, ErrGameInvalidAction
	}

	ph.Status = HandStatus_Completed
	g.surrendered = true

	// 結束本局，莊家只翻牌不補牌
	g.dealer.RevealAll()
	g.phase = GamePhase_GameOver

	return g.View(), nil
}

// SelectHand switches play to a waiting hand; the hand being left stands.
func (g *game) SelectHand(handIndex int) (*RoundView, error) {
	if g.phase != GamePhase_PlayerTurn {
		return nil, ErrGameNoActiveRound
	}
	if handIndex < 0 || handIndex >= len(g.hands) {
		return nil, ErrGameInvalidHandIndex
	}
	if g.hands[handIndex].Status != HandStatus_Waiting {
		return nil, ErrGameInvalidAction
	}

	if current := g.hands[g.activeIdx]; current.Status == HandStatus_Playing {
		current.Status = HandStatus_Standing
	}
	g.hands[handIndex].Status = HandStatus_Playing
	g.activeIdx = handIndex

	return g.View(), nil
}

func (g *game) Resolve() (*RoundResult, error) {
	if g.phase != GamePhase_GameOver {
		return nil, ErrGameNoActiveRound
	}

	result := &RoundResult{
		HandResults: make([]HandResult, 0, len(g.hands)),
		DealerCards: g.dealer.CloneCards(),
		DealerScore: g.dealer.Value(),
	}

	for idx, ph := range g.hands {
		var outcome ResultType
		if g.surrendered {
			outcome = Result_Surrender
		} else {
			outcome = compareWithDealer(ph.Hand, ph.IsNatural() && !ph.FromSplit, g.dealer)
		}

		payout := payoutFor(outcome, ph.Bet, g.rules.BlackjackPayout)
		result.HandResults = append(result.HandResults, HandResult{
			Index:  idx,
			Cards:  ph.Hand.CloneCards(),
			Score:  ph.Hand.Value(),
			Bet:    ph.Bet,
			Result: outcome,
			Payout: payout,
		})
		result.TotalPayout += payout
		result.TotalReturned += ph.Bet + payout
	}

	g.phase = GamePhase_Idle
	return result, nil
}

func (g *game) View() *RoundView {
	view := &RoundView{
		Phase:           g.phase,
		RoundNumber:     g.roundNumber,
		Hands:           make([]HandView, 0, len(g.hands)),
		ActiveHandIndex: g.activeIdx,
		DealerCards:     g.dealer.MaskedCards(),
	}

	if g.phase == GamePhase_GameOver {
		view.DealerScore = g.dealer.Value()
	} else {
		view.DealerScore = g.dealer.VisibleValue()
	}

	for idx, ph := range g.hands {
		view.Hands = append(view.Hands, HandView{
			Index:   idx,
			Cards:   ph.Hand.CloneCards(),
			Score:   ph.Hand.Value(),
			Bet:     ph.Bet,
			Status:  ph.Status,
			Doubled: ph.Doubled,
		})
		view.TotalBet += ph.Bet
	}

	if g.phase == GamePhase_PlayerTurn && g.activeIdx < len(g.hands) {
		active := g.hands[g.activeIdx]
		if active.Status == HandStatus_Playing {
			view.CanHit = !active.Hand.IsBusted()
			view.CanStand = !active.Hand.IsBusted()
			view.CanDouble = active.Hand.Size() == 2 &&
				(g.rules.AllowDoubleAfterSplit || !active.FromSplit)
			view.CanSplit = active.Hand.CanSplit() && g.splitCount < g.rules.MaxSplits
			view.CanSurrender = g.rules.AllowSurrender &&
				len(g.hands) == 1 && g.splitCount == 0 && active.Hand.Size() == 2
			view.BustProbability = BustProbability(active.Hand.Value())
		}
	}

	return view
}

func (g *game) activePlayingHand() (*PlayerHand, error) {
	if g.phase != GamePhase_PlayerTurn {
		return nil, ErrGameNoActiveRound
	}
	ph := g.hands[g.activeIdx]
	if ph.Status != HandStatus_Playing {
		return nil, ErrGameInvalidAction
	}
	return ph, nil
}

// activateNextHand promotes the next waiting hand to playing, or hands the
// round over to the dealer when none are left. fromIdx = UnsetValue scans
// from the start (round open).
func (g *game) activateNextHand(fromIdx int) {
	next := UnsetValue
	for offset := 1; offset <= len(g.hands); offset++ {
		idx := (fromIdx + offset + len(g.hands)) % len(g.hands)
		if g.hands[idx].Status == HandStatus_Waiting {
			next = idx
			break
		}
	}

	if next != UnsetValue {
		g.hands[next].Status = HandStatus_Playing
		g.activeIdx = next
		return
	}

	g.playDealer()
}

// playDealer 翻開暗牌；只要還有能贏莊家的手牌 (停牌或 Blackjack)，
// 就依 17 點規則補牌；全數爆牌/投降則不再補。
func (g *game) playDealer() {
	g.dealer.RevealAll()

	eligible := false
	for _, ph := range g.hands {
		if ph.Status == HandStatus_Standing || ph.Status == HandStatus_Blackjack {
			eligible = true
			break
		}
	}

	if eligible {
		for g.shouldDealerHit() {
			g.dealer.AddCard(g.deck.Deal(false))
		}
	}

	g.phase = GamePhase_GameOver
}

func (g *game) shouldDealerHit() bool {
	value := g.dealer.Value()
	if value < DealerStandValue {
		return true
	}
	return value == DealerStandValue && g.rules.DealerHitsSoft17 && g.dealer.IsSoft()
}
