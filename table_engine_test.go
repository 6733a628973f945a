package blackjacktable

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestEngineOptions() *TableEngineOptions {
	options := NewTableEngineOptions()
	options.BetTimeout = 1
	options.DealInterval = time.Millisecond
	options.DealerDrawInterval = time.Millisecond
	options.ResolveInterval = time.Millisecond
	options.RoundEndInterval = 5 * time.Millisecond
	return options
}

func newTestTableSetting(joinPlayers ...JoinPlayer) TableSetting {
	rules := NewDefaultRules()
	rules.DeckResetThreshold = 0
	return TableSetting{
		TableID:     "test-table",
		GameMode:    GameMode_PVP,
		Rules:       rules,
		JoinPlayers: joinPlayers,
	}
}

// stackEngineDeck 在下注階段替換牌序，發牌時即按固定順序
func stackEngineDeck(engine TableEngine, cards ...Card) {
	te := engine.(*tableEngine)
	te.lock.Lock()
	defer te.lock.Unlock()
	te.deck.cards = append([]Card{}, cards...)
}

func waitForStatus(t *testing.T, engine TableEngine, status TableStateStatus) {
	assert.Eventually(t, func() bool {
		return engine.GetTable().State.Status == status
	}, 2*time.Second, time.Millisecond, "expected status %s", status)
}

func TestTableEngine_CreateTable(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	table, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
		JoinPlayer{PlayerID: "Chuck", PlayerName: "Chuck"},
	))

	assert.Nil(t, err)
	assert.Equal(t, "test-table", table.ID)
	assert.Equal(t, GameMode_PVP, table.Meta.GameMode)
	assert.Equal(t, 2, table.PlayerCount())
	assert.Equal(t, 0, table.State.Seats[0].SeatIndex)
	assert.Equal(t, 1, table.State.Seats[1].SeatIndex)
	assert.Equal(t, 1000, table.State.Seats[0].Chips)

	// 有玩家即進入下注階段
	assert.Equal(t, TableStateStatus_Betting, table.State.Status)
	assert.Equal(t, SeatStatus_Betting, table.State.Seats[0].Status)
}

func TestTableEngine_CreateTableValidation(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())

	setting := newTestTableSetting()
	setting.Rules.MaxSeats = 1
	_, err := engine.CreateTable(setting)
	assert.Nil(t, err)

	engine = NewTableEngine(newTestEngineOptions())
	setting = newTestTableSetting(
		JoinPlayer{PlayerID: "p1"}, JoinPlayer{PlayerID: "p2"},
	)
	setting.Rules.MaxSeats = 1
	_, err = engine.CreateTable(setting)
	assert.Equal(t, ErrTableInvalidCreateSetting, err)
}

func TestTableEngine_PlayerJoinAndLeave(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting())
	assert.Nil(t, err)
	assert.Equal(t, TableStateStatus_WaitingForPlayers, engine.GetTable().State.Status)

	err = engine.PlayerJoin(JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"})
	assert.Nil(t, err)
	assert.Equal(t, TableStateStatus_Betting, engine.GetTable().State.Status)

	err = engine.PlayerJoin(JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"})
	assert.Equal(t, ErrTablePlayerAlreadyJoined, err)

	err = engine.PlayerLeave("Nobody")
	assert.Equal(t, ErrTablePlayerNotFound, err)

	err = engine.PlayerLeave("Jeffrey")
	assert.Nil(t, err)
	assert.Equal(t, 0, engine.GetTable().PlayerCount())
	assert.Equal(t, TableStateStatus_WaitingForPlayers, engine.GetTable().State.Status)
}

func TestTableEngine_TableFull(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	setting := newTestTableSetting(JoinPlayer{PlayerID: "p1"})
	setting.Rules.MaxSeats = 1
	_, err := engine.CreateTable(setting)
	assert.Nil(t, err)

	err = engine.PlayerJoin(JoinPlayer{PlayerID: "p2"})
	assert.Equal(t, ErrTableNoEmptySeats, err)
}

func TestTableEngine_JoinDuringBettingJoinsRound(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
	))
	assert.Nil(t, err)
	assert.Equal(t, TableStateStatus_Betting, engine.GetTable().State.Status)

	var mu sync.Mutex
	betRequested := map[string]int{}
	engine.OnTableBetRequested(func(playerID string, minBet, maxBet int) {
		mu.Lock()
		defer mu.Unlock()
		betRequested[playerID]++
	})

	// 下注中入桌者直接編入本局
	assert.Nil(t, engine.PlayerJoin(JoinPlayer{PlayerID: "Chuck", PlayerName: "Chuck"}))
	assert.Equal(t, SeatStatus_Betting, engine.GetTable().GetSeatByPlayerID("Chuck").Status)

	mu.Lock()
	assert.Equal(t, 1, betRequested["Chuck"])
	mu.Unlock()

	stackEngineDeck(engine,
		c(Rank_Ten), c(Rank_Nine), c(Rank_Seven),
		c(Rank_Six), c(Rank_Eight), c(Rank_Ten))

	// 下注柵欄也等後到的 Chuck
	assert.Nil(t, engine.PlayerBet("Jeffrey", 100))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, TableStateStatus_Betting, engine.GetTable().State.Status)

	assert.Nil(t, engine.PlayerBet("Chuck", 100))
	waitForStatus(t, engine, TableStateStatus_PlayerTurns)
	assert.Equal(t, 2, engine.GetTable().GetSeatByPlayerID("Chuck").Hand.Size())

	// 發牌後入桌被拒
	assert.Equal(t, ErrTableRoundInProgress, engine.PlayerJoin(JoinPlayer{PlayerID: "Fred"}))
	assert.Nil(t, engine.GetTable().GetSeatByPlayerID("Fred"))
}

func TestTableEngine_SeatOrderFollowsJoinOrder(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
		JoinPlayer{PlayerID: "Chuck", PlayerName: "Chuck"},
	))
	assert.Nil(t, err)

	// 空出的座位編號不回收，後入桌者永遠排在後面
	assert.Nil(t, engine.PlayerLeave("Jeffrey"))
	assert.Nil(t, engine.PlayerJoin(JoinPlayer{PlayerID: "Fred", PlayerName: "Fred"}))

	table := engine.GetTable()
	assert.Less(t,
		table.GetSeatByPlayerID("Chuck").SeatIndex,
		table.GetSeatByPlayerID("Fred").SeatIndex)
}

func TestTableEngine_BetValidation(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
		JoinPlayer{PlayerID: "Chuck", PlayerName: "Chuck"},
	))
	assert.Nil(t, err)

	assert.Equal(t, ErrTableInvalidBet, engine.PlayerBet("Jeffrey", 5))
	assert.Equal(t, ErrTableInvalidBet, engine.PlayerBet("Jeffrey", 501))
	assert.Equal(t, ErrTablePlayerNotFound, engine.PlayerBet("Nobody", 100))

	// 下注階段不能做牌局動作
	assert.Equal(t, ErrTablePlayerInvalidGameAction, engine.PlayerHit("Jeffrey"))

	assert.Nil(t, engine.PlayerBet("Jeffrey", 100))
	assert.Equal(t, 900, engine.GetTable().GetSeatByPlayerID("Jeffrey").Chips)
	assert.Equal(t, SeatStatus_BetPlaced, engine.GetTable().GetSeatByPlayerID("Jeffrey").Status)

	// 不能重複下注
	assert.Equal(t, ErrTablePlayerInvalidAction, engine.PlayerBet("Jeffrey", 100))
}

func TestTableEngine_FullRound(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
		JoinPlayer{PlayerID: "Chuck", PlayerName: "Chuck"},
	))
	assert.Nil(t, err)

	// 發牌順序: 座位0, 座位1, 莊家明牌, 座位0, 座位1, 莊家暗牌, 莊家補牌
	stackEngineDeck(engine,
		c(Rank_Ten), c(Rank_Ten), c(Rank_Nine),
		c(Rank_Nine), c(Rank_Eight), c(Rank_Seven),
		c(Rank_Ten))

	assert.Nil(t, engine.PlayerBet("Jeffrey", 100))
	assert.Nil(t, engine.PlayerBet("Chuck", 100))

	waitForStatus(t, engine, TableStateStatus_PlayerTurns)

	table := engine.GetTable()
	assert.Equal(t, 0, table.State.CurrentSeatIdx)
	assert.Equal(t, 19, table.GetSeatByPlayerID("Jeffrey").Hand.Value())
	assert.Equal(t, 18, table.GetSeatByPlayerID("Chuck").Hand.Value())

	// 還沒輪到 Chuck
	assert.Equal(t, ErrTableNotPlayerTurn, engine.PlayerHit("Chuck"))
	assert.Equal(t, 2, table.GetSeatByPlayerID("Chuck").Hand.Size())

	assert.Nil(t, engine.PlayerStand("Jeffrey"))
	assert.Equal(t, 1, table.State.CurrentSeatIdx)
	assert.Nil(t, engine.PlayerStand("Chuck"))

	// 莊家 9+7=16 補到 26 爆牌，兩家皆勝
	assert.Eventually(t, func() bool {
		return engine.GetTable().State.LastRoundResult != nil
	}, 2*time.Second, time.Millisecond)

	result := engine.GetTable().State.LastRoundResult
	assert.Equal(t, 1, result.RoundNumber)
	assert.Equal(t, 26, result.DealerScore)
	assert.Equal(t, 2, len(result.SeatResults))
	for _, seatResult := range result.SeatResults {
		assert.Equal(t, Result_Win, seatResult.Result)
		assert.Equal(t, 100, seatResult.Payout)
		assert.Equal(t, 1100, seatResult.Chips)
	}

	// 結算後自動開下一局
	waitForStatus(t, engine, TableStateStatus_Betting)
	assert.Equal(t, 1100, engine.GetTable().GetSeatByPlayerID("Jeffrey").Chips)
}

func TestTableEngine_DealerStandsWhenAllBusted(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
	))
	assert.Nil(t, err)

	stackEngineDeck(engine,
		c(Rank_Ten), c(Rank_Nine), c(Rank_Six), c(Rank_Seven),
		c(Rank_King))

	assert.Nil(t, engine.PlayerBet("Jeffrey", 100))
	waitForStatus(t, engine, TableStateStatus_PlayerTurns)

	assert.Nil(t, engine.PlayerHit("Jeffrey")) // 16 + K 爆牌

	assert.Eventually(t, func() bool {
		return engine.GetTable().State.LastRoundResult != nil
	}, 2*time.Second, time.Millisecond)

	result := engine.GetTable().State.LastRoundResult
	assert.Equal(t, 16, result.DealerScore) // 全爆不補牌
	assert.Equal(t, Result_Lose, result.SeatResults[0].Result)
	assert.Equal(t, -100, result.SeatResults[0].Payout)
	assert.Equal(t, 900, result.SeatResults[0].Chips)
}

func TestTableEngine_Surrender(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
	))
	assert.Nil(t, err)

	stackEngineDeck(engine,
		c(Rank_Ten), c(Rank_Nine), c(Rank_Six), c(Rank_Seven))

	assert.Nil(t, engine.PlayerBet("Jeffrey", 100))
	waitForStatus(t, engine, TableStateStatus_PlayerTurns)

	assert.Nil(t, engine.PlayerSurrender("Jeffrey"))

	assert.Eventually(t, func() bool {
		return engine.GetTable().State.LastRoundResult != nil
	}, 2*time.Second, time.Millisecond)

	result := engine.GetTable().State.LastRoundResult
	assert.Equal(t, Result_Surrender, result.SeatResults[0].Result)
	assert.Equal(t, -50, result.SeatResults[0].Payout)
	assert.Equal(t, 950, result.SeatResults[0].Chips)
}

func TestTableEngine_Double(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
	))
	assert.Nil(t, err)

	stackEngineDeck(engine,
		c(Rank_Five), c(Rank_Nine), c(Rank_Six), c(Rank_Eight),
		c(Rank_Ten))

	assert.Nil(t, engine.PlayerBet("Jeffrey", 100))
	waitForStatus(t, engine, TableStateStatus_PlayerTurns)

	assert.Nil(t, engine.PlayerDouble("Jeffrey"))
	seat := engine.GetTable().GetSeatByPlayerID("Jeffrey")
	assert.Equal(t, 200, seat.Bet)
	assert.Equal(t, 21, seat.Hand.Value())

	assert.Eventually(t, func() bool {
		return engine.GetTable().State.LastRoundResult != nil
	}, 2*time.Second, time.Millisecond)

	result := engine.GetTable().State.LastRoundResult
	assert.Equal(t, Result_Win, result.SeatResults[0].Result)
	assert.Equal(t, 200, result.SeatResults[0].Payout)
	assert.Equal(t, 1100, result.SeatResults[0].Chips)
}

func TestTableEngine_BetTimeoutSitsOutIdleSeats(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
		JoinPlayer{PlayerID: "Chuck", PlayerName: "Chuck"},
	))
	assert.Nil(t, err)

	stackEngineDeck(engine,
		c(Rank_Ten), c(Rank_Nine), c(Rank_Six), c(Rank_Seven))

	assert.Nil(t, engine.PlayerBet("Jeffrey", 100))

	// Chuck 逾時未下注，本局旁觀，牌局照開
	waitForStatus(t, engine, TableStateStatus_PlayerTurns)

	table := engine.GetTable()
	assert.Equal(t, SeatStatus_SittingOut, table.GetSeatByPlayerID("Chuck").Status)
	assert.Equal(t, 1000, table.GetSeatByPlayerID("Chuck").Chips)
	assert.Equal(t, 2, table.GetSeatByPlayerID("Jeffrey").Hand.Size())
	assert.Equal(t, 0, table.GetSeatByPlayerID("Chuck").Hand.Size())
}

func TestTableEngine_LeaveDuringTurnAdvances(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
		JoinPlayer{PlayerID: "Chuck", PlayerName: "Chuck"},
	))
	assert.Nil(t, err)

	stackEngineDeck(engine,
		c(Rank_Ten), c(Rank_Ten), c(Rank_Nine),
		c(Rank_Nine), c(Rank_Eight), c(Rank_Seven),
		c(Rank_Ten))

	assert.Nil(t, engine.PlayerBet("Jeffrey", 100))
	assert.Nil(t, engine.PlayerBet("Chuck", 100))
	waitForStatus(t, engine, TableStateStatus_PlayerTurns)

	// 輪到的玩家離席，直接輪到下一位
	assert.Nil(t, engine.PlayerLeave("Jeffrey"))
	assert.Equal(t, 1, engine.GetTable().State.CurrentSeatIdx)
	assert.Nil(t, engine.PlayerStand("Chuck"))

	assert.Eventually(t, func() bool {
		return engine.GetTable().State.LastRoundResult != nil
	}, 2*time.Second, time.Millisecond)

	result := engine.GetTable().State.LastRoundResult
	assert.Equal(t, 1, len(result.SeatResults))
	assert.Equal(t, "Chuck", result.SeatResults[0].PlayerID)
}

func TestTableEngine_Snapshot(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
		JoinPlayer{PlayerID: "Chuck", PlayerName: "Chuck"},
	))
	assert.Nil(t, err)

	stackEngineDeck(engine,
		c(Rank_Ten), c(Rank_Ten), c(Rank_Nine),
		c(Rank_Nine), c(Rank_Eight), c(Rank_Seven),
		c(Rank_Ten))

	assert.Nil(t, engine.PlayerBet("Jeffrey", 100))
	assert.Nil(t, engine.PlayerBet("Chuck", 100))
	waitForStatus(t, engine, TableStateStatus_PlayerTurns)

	snapshot := engine.GetTable().Snapshot("Jeffrey")
	assert.Equal(t, TableStateStatus_PlayerTurns, snapshot.Status)
	assert.Equal(t, 2, len(snapshot.Seats))
	assert.True(t, snapshot.Seats[0].IsSelf)
	assert.False(t, snapshot.Seats[1].IsSelf)

	// 莊家暗牌遮蔽，明牌可見
	assert.Equal(t, 9, snapshot.DealerScore)
	assert.True(t, snapshot.DealerCards[1].Hidden)
	assert.Empty(t, snapshot.DealerCards[1].Rank)

	// 其他玩家的牌全桌可見
	assert.Equal(t, 18, snapshot.Seats[1].Score)
}

func TestTableEngine_ConcurrentActionsSerialized(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
		JoinPlayer{PlayerID: "Chuck", PlayerName: "Chuck"},
	))
	assert.Nil(t, err)

	var serialMu sync.Mutex
	serials := make([]int64, 0, 64)
	engine.OnTableUpdated(func(table *Table) {
		serialMu.Lock()
		defer serialMu.Unlock()
		serials = append(serials, table.UpdateSerial)
	})

	stackEngineDeck(engine,
		c(Rank_Ten), c(Rank_Nine), c(Rank_Seven),
		c(Rank_Six), c(Rank_Eight), c(Rank_Ten))

	assert.Nil(t, engine.PlayerBet("Jeffrey", 100))
	assert.Nil(t, engine.PlayerBet("Chuck", 100))
	waitForStatus(t, engine, TableStateStatus_PlayerTurns)

	// 同座位多個 goroutine 同時搶著停牌，只會有一次生效
	stand := func(playerID string) int32 {
		var successes int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := engine.PlayerStand(playerID)
				if err == nil {
					atomic.AddInt32(&successes, 1)
					return
				}
				assert.True(t, err == ErrTableNotPlayerTurn || err == ErrTablePlayerInvalidGameAction)
			}()
		}
		wg.Wait()
		return successes
	}

	assert.Equal(t, int32(1), stand("Jeffrey"))
	assert.Equal(t, int32(1), stand("Chuck"))

	assert.Eventually(t, func() bool {
		return engine.GetTable().State.LastRoundResult != nil
	}, 2*time.Second, time.Millisecond)

	// 廣播序號嚴格遞增，快照不會交錯
	serialMu.Lock()
	defer serialMu.Unlock()
	assert.NotEmpty(t, serials)
	for i := 1; i < len(serials); i++ {
		assert.Less(t, serials[i-1], serials[i])
	}
}

func TestTableEngine_CloseTable(t *testing.T) {
	engine := NewTableEngine(newTestEngineOptions())
	_, err := engine.CreateTable(newTestTableSetting(
		JoinPlayer{PlayerID: "Jeffrey", PlayerName: "Jeffrey"},
	))
	assert.Nil(t, err)

	assert.Nil(t, engine.CloseTable())
	assert.Equal(t, TableStateStatus_TableClosed, engine.GetTable().State.Status)

	err = engine.PlayerJoin(JoinPlayer{PlayerID: "Chuck"})
	assert.Equal(t, ErrTableClosed, err)
}
