package blackjacktable

import (
	"sort"

	"github.com/thoas/go-funk"
	"github.com/weedbox/syncsaga"
)

func (te *tableEngine) seatPlayer(joinPlayer JoinPlayer) error {
	if te.table.GetSeatByPlayerID(joinPlayer.PlayerID) != nil {
		return ErrTablePlayerAlreadyJoined
	}
	if te.table.IsFull() {
		return ErrTableNoEmptySeats
	}

	chips := joinPlayer.RedeemChips
	if chips <= 0 {
		chips = te.table.Meta.Rules.InitialChips
	}

	te.table.State.Seats = append(te.table.State.Seats, &TableSeat{
		SeatIndex:  te.table.nextSeatIndex(),
		PlayerID:   joinPlayer.PlayerID,
		PlayerName: joinPlayer.PlayerName,
		Chips:      chips,
		Hand:       NewHand(),
		Status:     SeatStatus_Waiting,
	})

	sort.Slice(te.table.State.Seats, func(i, j int) bool {
		return te.table.State.Seats[i].SeatIndex < te.table.State.Seats[j].SeatIndex
	})

	return nil
}

func (te *tableEngine) removeSeat(seat *TableSeat) {
	wasCurrentTurn := te.table.State.Status == TableStateStatus_PlayerTurns &&
		te.table.State.CurrentSeatIdx == seat.SeatIndex &&
		seat.Status == SeatStatus_Playing

	pendingBet := te.table.State.Status == TableStateStatus_Betting &&
		seat.Status == SeatStatus_Betting

	te.table.State.Seats = funk.Filter(te.table.State.Seats, func(s *TableSeat) bool {
		return s.PlayerID != seat.PlayerID
	}).([]*TableSeat)

	if te.table.PlayerCount() == 0 {
		te.rg.Stop()
		te.tb.Cancel()
		te.table.State.Status = TableStateStatus_WaitingForPlayers
		te.table.State.Dealer.Clear()
		te.table.State.CurrentSeatIdx = UnsetValue
		return
	}

	if wasCurrentTurn {
		te.nextTurn()
	}

	// 別讓離席玩家卡住下注柵欄
	if pendingBet {
		te.rg.Ready(int64(seat.SeatIndex))
	}
}

// startBetting 開始下注階段，以 ReadyGroup 作為全桌下注柵欄
func (te *tableEngine) startBetting() {
	rules := te.table.Meta.Rules

	eligible := make([]*TableSeat, 0, len(te.table.State.Seats))
	for _, seat := range te.table.State.Seats {
		seat.Bet = 0
		seat.Hand.Clear()
		if seat.Chips >= rules.MinBet {
			seat.Status = SeatStatus_Betting
			eligible = append(eligible, seat)
		} else {
			seat.Status = SeatStatus_SittingOut
		}
	}

	if len(eligible) == 0 {
		te.table.State.Status = TableStateStatus_WaitingForPlayers
		te.emitEvent("BettingSkipped", "")
		return
	}

	te.table.State.Status = TableStateStatus_Betting
	te.table.State.Dealer.Clear()
	te.table.State.CurrentSeatIdx = UnsetValue

	te.rg.Stop()
	te.rg.SetTimeoutInterval(te.options.BetTimeout)
	te.rg.OnTimeout(func(rg *syncsaga.ReadyGroup) {
		// rg 計時器的 goroutine 不持有桌鎖，只排程不動狀態
		te.schedule(0, "BetTimeout", te.onBetTimeout)
	})
	te.rg.OnCompleted(func(rg *syncsaga.ReadyGroup) {
		// 可能在 PlayerBet 持鎖時同步觸發，同樣只排程
		te.schedule(0, "BetCompleted", func() {
			if te.table.State.Status == TableStateStatus_Betting {
				te.enterDealing()
			}
		})
	})

	te.rg.ResetParticipants()
	for _, seat := range eligible {
		te.rg.Add(int64(seat.SeatIndex), false)
	}
	te.rg.Start()

	te.emitEvent("BettingStarted", "")
	te.emitBetRequestedEvents()
}

// onBetTimeout 逾時未下注者本局旁觀；全員未下注則重開下注窗口
func (te *tableEngine) onBetTimeout() {
	if te.table.State.Status != TableStateStatus_Betting {
		return
	}

	te.rg.Stop()

	anyBet := false
	for _, seat := range te.table.State.Seats {
		switch seat.Status {
		case SeatStatus_BetPlaced:
			anyBet = true
		case SeatStatus_Betting:
			seat.Status = SeatStatus_SittingOut
		}
	}

	if anyBet {
		te.enterDealing()
		return
	}

	te.emitEvent("BettingRestarted", "")
	te.startBetting()
}

func (te *tableEngine) enterDealing() {
	te.rg.Stop()
	te.table.State.Status = TableStateStatus_Dealing
	te.table.State.RoundNumber++

	// 牌靴過低先重洗
	if te.deck.NeedsReset() {
		te.deck.Reset()
		te.deck.Shuffle()
	}

	te.table.State.Dealer.Clear()

	// 發牌順序: 玩家各一張 → 莊家明牌 → 玩家各一張 → 莊家暗牌
	participants := te.participatingSeatIndexes()
	te.dealQueue = te.dealQueue[:0]
	for _, seatIdx := range participants {
		te.dealQueue = append(te.dealQueue, dealStep{SeatIdx: seatIdx})
	}
	te.dealQueue = append(te.dealQueue, dealStep{SeatIdx: UnsetValue})
	for _, seatIdx := range participants {
		te.dealQueue = append(te.dealQueue, dealStep{SeatIdx: seatIdx})
	}
	te.dealQueue = append(te.dealQueue, dealStep{SeatIdx: UnsetValue, Hidden: true})

	te.emitEvent("DealingStarted", "")
	te.schedule(te.options.DealInterval, "DealNext", te.dealNext)
}

func (te *tableEngine) participatingSeatIndexes() []int {
	indexes := make([]int, 0, len(te.table.State.Seats))
	for _, seat := range te.table.State.Seats {
		if seat.Status == SeatStatus_BetPlaced {
			indexes = append(indexes, seat.SeatIndex)
		}
	}
	return indexes
}

// dealNext 逐張發牌，離席座位直接跳過
func (te *tableEngine) dealNext() {
	if te.table.State.Status != TableStateStatus_Dealing {
		return
	}

	for len(te.dealQueue) > 0 {
		step := te.dealQueue[0]
		te.dealQueue = te.dealQueue[1:]

		if step.SeatIdx == UnsetValue {
			te.table.State.Dealer.AddCard(te.deck.Deal(step.Hidden))
		} else {
			seat := te.table.GetSeatByIndex(step.SeatIdx)
			if seat == nil || seat.Status != SeatStatus_BetPlaced {
				continue
			}
			seat.Hand.AddCard(te.deck.Deal(false))
		}

		te.emitEvent("DealCard", "")
		break
	}

	if len(te.dealQueue) > 0 {
		te.schedule(te.options.DealInterval, "DealNext", te.dealNext)
		return
	}

	// 發牌完畢，天生 Blackjack 直接定格
	for _, seat := range te.table.State.Seats {
		if seat.Status == SeatStatus_BetPlaced && seat.Hand.IsBlackjack() {
			seat.Status = SeatStatus_Blackjack
		}
	}

	te.enterPlayerTurns()
}

func (te *tableEngine) enterPlayerTurns() {
	te.table.State.Status = TableStateStatus_PlayerTurns
	te.table.State.CurrentSeatIdx = UnsetValue
	te.nextTurn()
}

// nextTurn 依座位編號順序輪到下一位，沒有人可行動則輪到莊家
func (te *tableEngine) nextTurn() {
	if te.table.State.Status != TableStateStatus_PlayerTurns {
		return
	}

	for _, seat := range te.table.State.Seats {
		if seat.SeatIndex > te.table.State.CurrentSeatIdx && seat.Status == SeatStatus_BetPlaced {
			seat.Status = SeatStatus_Playing
			te.table.State.CurrentSeatIdx = seat.SeatIndex
			te.emitEvent("PlayerTurn", seat.PlayerID)
			return
		}
	}

	te.enterDealerTurn()
}

func (te *tableEngine) validateTurn(playerID string) (*TableSeat, error) {
	if te.table.State.Status != TableStateStatus_PlayerTurns {
		return nil, ErrTablePlayerInvalidGameAction
	}

	seat := te.table.GetSeatByPlayerID(playerID)
	if seat == nil {
		return nil, ErrTablePlayerNotFound
	}
	if seat.SeatIndex != te.table.State.CurrentSeatIdx || seat.Status != SeatStatus_Playing {
		return nil, ErrTableNotPlayerTurn
	}

	return seat, nil
}

func (te *tableEngine) enterDealerTurn() {
	te.table.State.Status = TableStateStatus_DealerTurn
	te.table.State.CurrentSeatIdx = UnsetValue
	te.table.State.Dealer.RevealAll()

	te.emitEvent("DealerTurn", "")
	te.schedule(te.options.DealerDrawInterval, "DealerDraw", te.dealerDraw)
}

// dealerDraw 莊家逐張補牌；全桌皆爆牌或投降則只翻牌不補
func (te *tableEngine) dealerDraw() {
	if te.table.State.Status != TableStateStatus_DealerTurn {
		return
	}

	if te.anySeatCanBeatDealer() && te.shouldDealerHit() {
		te.table.State.Dealer.AddCard(te.deck.Deal(false))
		te.emitEvent("DealerDraw", "")
		te.schedule(te.options.DealerDrawInterval, "DealerDraw", te.dealerDraw)
		return
	}

	te.schedule(te.options.ResolveInterval, "Resolve", te.enterResolving)
}

func (te *tableEngine) anySeatCanBeatDealer() bool {
	for _, seat := range te.table.State.Seats {
		if seat.Status == SeatStatus_Standing || seat.Status == SeatStatus_Blackjack {
			return true
		}
	}
	return false
}

func (te *tableEngine) shouldDealerHit() bool {
	rules := te.table.Meta.Rules
	value := te.table.State.Dealer.Value()
	if value < DealerStandValue {
		return true
	}
	return value == DealerStandValue && rules.DealerHitsSoft17 && te.table.State.Dealer.IsSoft()
}

// enterResolving 比牌結算，籌碼一次加回 (本金 + 淨輸贏)
func (te *tableEngine) enterResolving() {
	if te.table.State.Status != TableStateStatus_DealerTurn {
		return
	}
	te.table.State.Status = TableStateStatus_Resolving

	dealer := te.table.State.Dealer
	result := &TableRoundResult{
		RoundNumber: te.table.State.RoundNumber,
		DealerCards: dealer.CloneCards(),
		DealerScore: dealer.Value(),
	}

	for _, seat := range te.table.State.Seats {
		if seat.Bet <= 0 {
			continue
		}

		var outcome ResultType
		if seat.Status == SeatStatus_Surrendered {
			outcome = Result_Surrender
		} else {
			outcome = compareWithDealer(seat.Hand, seat.Status == SeatStatus_Blackjack, dealer)
		}

		payout := payoutFor(outcome, seat.Bet, te.table.Meta.Rules.BlackjackPayout)
		seat.Chips += seat.Bet + payout

		result.SeatResults = append(result.SeatResults, SeatRoundResult{
			SeatIndex:  seat.SeatIndex,
			PlayerID:   seat.PlayerID,
			PlayerName: seat.PlayerName,
			Cards:      seat.Hand.CloneCards(),
			Score:      seat.Hand.Value(),
			Bet:        seat.Bet,
			Result:     outcome,
			Payout:     payout,
			Chips:      seat.Chips,
		})
	}

	te.table.State.LastRoundResult = result
	te.emitEvent("RoundSettled", "")
	te.emitRoundSettledEvent(result)

	te.schedule(te.options.RoundEndInterval, "RoundEnd", te.enterRoundEnd)
}

// enterRoundEnd 清桌，接著開下一局或等待玩家
func (te *tableEngine) enterRoundEnd() {
	if te.table.State.Status != TableStateStatus_Resolving {
		return
	}
	te.table.State.Status = TableStateStatus_RoundEnd

	for _, seat := range te.table.State.Seats {
		seat.Bet = 0
		seat.Hand.Clear()
		seat.Status = SeatStatus_Waiting
	}
	te.table.State.Dealer.Clear()
	te.table.State.CurrentSeatIdx = UnsetValue

	te.emitEvent("RoundEnd", "")
	te.startBetting()
}
