package blackjacktable

import (
	"errors"
	"sync"
	"time"

	"github.com/weedbox/syncsaga"
	"github.com/weedbox/timebank"
	"go.uber.org/zap"
)

var (
	ErrTableNoEmptySeats            = errors.New("table: no empty seats available")
	ErrTableInvalidCreateSetting    = errors.New("table: invalid create table setting")
	ErrTableClosed                  = errors.New("table: table is closed")
	ErrTablePlayerNotFound          = errors.New("table: player not found")
	ErrTablePlayerAlreadyJoined     = errors.New("table: player already joined")
	ErrTableRoundInProgress         = errors.New("table: round in progress")
	ErrTablePlayerInvalidGameAction = errors.New("table: player invalid game action")
	ErrTablePlayerInvalidAction     = errors.New("table: player invalid action")
	ErrTableInvalidBet              = errors.New("table: bet out of bounds")
	ErrTableInsufficientChips       = errors.New("table: insufficient chips")
	ErrTableNotPlayerTurn           = errors.New("table: not player's turn")
)

type TableEngineOpt func(*tableEngine)

type TableSetting struct {
	TableID     string       `json:"table_id"`
	GameMode    string       `json:"game_mode"`
	Rules       *Rules       `json:"rules"`
	JoinPlayers []JoinPlayer `json:"join_players"`
}

type TableEngine interface {
	// Events
	OnTableUpdated(fn func(*Table))                                     // 桌次更新事件監聽器
	OnTableErrorUpdated(fn func(*Table, error))                         // 錯誤更新事件監聽器
	OnTableSnapshotUpdated(fn func(playerID string, ss *TableSnapshot)) // 玩家視圖更新監聽器
	OnTableRoundSettled(fn func(t *Table, result *TableRoundResult))    // 回合結算監聽器
	OnTableBetRequested(fn func(playerID string, minBet, maxBet int))   // 下注請求監聽器

	// Table Actions
	GetTable() *Table                                      // 取得桌次
	CreateTable(tableSetting TableSetting) (*Table, error) // 建立桌
	CloseTable() error                                     // 關閉桌

	// Player Table Actions
	PlayerJoin(joinPlayer JoinPlayer) error        // 玩家入桌
	PlayerLeave(playerID string) error             // 玩家離桌
	PlayerRedeemChips(joinPlayer JoinPlayer) error // 增購籌碼

	// Player Game Actions
	PlayerBet(playerID string, bet int) error // 玩家下注
	PlayerHit(playerID string) error          // 玩家要牌
	PlayerStand(playerID string) error        // 玩家停牌
	PlayerDouble(playerID string) error       // 玩家加倍
	PlayerSurrender(playerID string) error    // 玩家投降
}

type tableEngine struct {
	lock    sync.Mutex
	options *TableEngineOptions
	table   *Table
	deck    *Deck
	rg      *syncsaga.ReadyGroup
	tb      *timebank.TimeBank
	logger  *zap.Logger

	// 發牌序列，逐張發出 (seatIdx == UnsetValue 表示莊家)
	dealQueue []dealStep

	onTableUpdated         func(*Table)
	onTableErrorUpdated    func(*Table, error)
	onTableSnapshotUpdated func(string, *TableSnapshot)
	onTableRoundSettled    func(*Table, *TableRoundResult)
	onTableBetRequested    func(string, int, int)
}

type dealStep struct {
	SeatIdx int
	Hidden  bool
}

func NewTableEngine(options *TableEngineOptions, opts ...TableEngineOpt) TableEngine {
	callbacks := NewTableEngineCallbacks()
	te := &tableEngine{
		options:                options,
		rg:                     syncsaga.NewReadyGroup(),
		tb:                     timebank.NewTimeBank(),
		logger:                 zap.NewNop(),
		onTableUpdated:         callbacks.OnTableUpdated,
		onTableErrorUpdated:    callbacks.OnTableErrorUpdated,
		onTableSnapshotUpdated: callbacks.OnTableSnapshotUpdated,
		onTableRoundSettled:    callbacks.OnTableRoundSettled,
		onTableBetRequested:    callbacks.OnTableBetRequested,
	}

	for _, opt := range opts {
		opt(te)
	}

	return te
}

func (te *tableEngine) OnTableUpdated(fn func(*Table)) {
	te.onTableUpdated = fn
}

func (te *tableEngine) OnTableErrorUpdated(fn func(*Table, error)) {
	te.onTableErrorUpdated = fn
}

func (te *tableEngine) OnTableSnapshotUpdated(fn func(string, *TableSnapshot)) {
	te.onTableSnapshotUpdated = fn
}

func (te *tableEngine) OnTableRoundSettled(fn func(*Table, *TableRoundResult)) {
	te.onTableRoundSettled = fn
}

func (te *tableEngine) OnTableBetRequested(fn func(string, int, int)) {
	te.onTableBetRequested = fn
}

func (te *tableEngine) GetTable() *Table {
	return te.table
}

func (te *tableEngine) CreateTable(tableSetting TableSetting) (*Table, error) {
	rules := tableSetting.Rules
	if rules == nil {
		rules = NewDefaultRules()
	}
	if rules.MaxSeats < 1 || rules.MinBet < 1 || rules.MaxBet < rules.MinBet {
		return nil, ErrTableInvalidCreateSetting
	}
	if len(tableSetting.JoinPlayers) > rules.MaxSeats {
		return nil, ErrTableInvalidCreateSetting
	}

	te.lock.Lock()
	defer te.lock.Unlock()

	gameMode := tableSetting.GameMode
	if gameMode == "" {
		gameMode = GameMode_PVP
	}

	te.table = NewTable(tableSetting.TableID, gameMode, rules)
	te.deck = NewDeck(rules.NumberOfDecks, rules.DeckResetThreshold)
	te.deck.Shuffle()

	for _, joinPlayer := range tableSetting.JoinPlayers {
		if err := te.seatPlayer(joinPlayer); err != nil {
			return nil, err
		}
	}

	te.table.State.Status = TableStateStatus_WaitingForPlayers
	te.emitEvent("CreateTable", "")

	if te.table.PlayerCount() > 0 {
		te.startBetting()
	}

	return te.table, nil
}

/*
CloseTable 關閉桌次
  - 適用時機: 強制關閉、桌上已無玩家
*/
func (te *tableEngine) CloseTable() error {
	te.lock.Lock()
	defer te.lock.Unlock()

	te.table.State.Status = TableStateStatus_TableClosed
	te.rg.Stop()
	te.tb.Cancel()

	te.emitEvent("CloseTable", "")
	return nil
}

func (te *tableEngine) PlayerJoin(joinPlayer JoinPlayer) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table.State.Status == TableStateStatus_TableClosed {
		return ErrTableClosed
	}

	// 發牌到結算之間不收新玩家
	switch te.table.State.Status {
	case TableStateStatus_Dealing, TableStateStatus_PlayerTurns,
		TableStateStatus_DealerTurn, TableStateStatus_Resolving:
		return ErrTableRoundInProgress
	}

	if err := te.seatPlayer(joinPlayer); err != nil {
		return err
	}

	// 下注中入桌者直接加入本局的下注柵欄
	if te.table.State.Status == TableStateStatus_Betting {
		seat := te.table.GetSeatByPlayerID(joinPlayer.PlayerID)
		if seat.Chips >= te.table.Meta.Rules.MinBet {
			seat.Status = SeatStatus_Betting
			te.rg.Add(int64(seat.SeatIndex), false)
			te.emitBetRequestedEvent(seat.PlayerID)
		} else {
			seat.Status = SeatStatus_SittingOut
		}
	}

	te.emitEvent("PlayerJoin", joinPlayer.PlayerID)

	// 第一位玩家入桌即開始下注
	if te.table.State.Status == TableStateStatus_WaitingForPlayers {
		te.startBetting()
	}

	return nil
}

func (te *tableEngine) PlayerLeave(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	seat := te.table.GetSeatByPlayerID(playerID)
	if seat == nil {
		return ErrTablePlayerNotFound
	}

	te.removeSeat(seat)
	te.emitEvent("PlayerLeave", playerID)
	return nil
}

/*
PlayerRedeemChips 增購籌碼
  - 適用時機: 籌碼不足繼續下注時
*/
func (te *tableEngine) PlayerRedeemChips(joinPlayer JoinPlayer) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	seat := te.table.GetSeatByPlayerID(joinPlayer.PlayerID)
	if seat == nil {
		return ErrTablePlayerNotFound
	}

	seat.Chips += joinPlayer.RedeemChips

	// 旁觀中且補足籌碼，下一局自動恢復參與
	if seat.Status == SeatStatus_SittingOut && seat.Chips >= te.table.Meta.Rules.MinBet {
		seat.Status = SeatStatus_Waiting
	}

	te.emitEvent("PlayerRedeemChips", joinPlayer.PlayerID)
	return nil
}

func (te *tableEngine) PlayerBet(playerID string, bet int) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	if te.table.State.Status != TableStateStatus_Betting {
		te.emitErrorEvent("PlayerBet", playerID, ErrTablePlayerInvalidGameAction)
		return ErrTablePlayerInvalidGameAction
	}

	seat := te.table.GetSeatByPlayerID(playerID)
	if seat == nil {
		return ErrTablePlayerNotFound
	}
	if seat.Status != SeatStatus_Betting {
		te.emitErrorEvent("PlayerBet", playerID, ErrTablePlayerInvalidAction)
		return ErrTablePlayerInvalidAction
	}

	rules := te.table.Meta.Rules
	if bet < rules.MinBet || bet > rules.MaxBet {
		te.emitErrorEvent("PlayerBet", playerID, ErrTableInvalidBet)
		return ErrTableInvalidBet
	}
	if bet > seat.Chips {
		te.emitErrorEvent("PlayerBet", playerID, ErrTableInsufficientChips)
		return ErrTableInsufficientChips
	}

	seat.Bet = bet
	seat.Chips -= bet
	seat.Status = SeatStatus_BetPlaced

	te.emitEvent("PlayerBet", playerID)

	// ready group 收齊所有下注後進入發牌
	te.rg.Ready(int64(seat.SeatIndex))
	return nil
}

func (te *tableEngine) PlayerHit(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	seat, err := te.validateTurn(playerID)
	if err != nil {
		te.emitErrorEvent("PlayerHit", playerID, err)
		return err
	}

	seat.Hand.AddCard(te.deck.Deal(false))

	if seat.Hand.IsBusted() {
		seat.Status = SeatStatus_Busted
		te.emitEvent("PlayerHit", playerID)
		te.nextTurn()
		return nil
	}

	if seat.Hand.Value() == BlackjackValue {
		seat.Status = SeatStatus_Standing
		te.emitEvent("PlayerHit", playerID)
		te.nextTurn()
		return nil
	}

	te.emitEvent("PlayerHit", playerID)
	return nil
}

func (te *tableEngine) PlayerStand(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	seat, err := te.validateTurn(playerID)
	if err != nil {
		te.emitErrorEvent("PlayerStand", playerID, err)
		return err
	}

	seat.Status = SeatStatus_Standing
	te.emitEvent("PlayerStand", playerID)
	te.nextTurn()
	return nil
}

// PlayerDouble 加倍: 限兩張牌且籌碼足夠，補一張後強制停牌
func (te *tableEngine) PlayerDouble(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	seat, err := te.validateTurn(playerID)
	if err != nil {
		te.emitErrorEvent("PlayerDouble", playerID, err)
		return err
	}

	if seat.Hand.Size() != 2 {
		te.emitErrorEvent("PlayerDouble", playerID, ErrTablePlayerInvalidAction)
		return ErrTablePlayerInvalidAction
	}
	if seat.Bet > seat.Chips {
		te.emitErrorEvent("PlayerDouble", playerID, ErrTableInsufficientChips)
		return ErrTableInsufficientChips
	}

	seat.Chips -= seat.Bet
	seat.Bet *= 2
	seat.Hand.AddCard(te.deck.Deal(false))

	if seat.Hand.IsBusted() {
		seat.Status = SeatStatus_Busted
	} else {
		seat.Status = SeatStatus_Standing
	}

	te.emitEvent("PlayerDouble", playerID)
	te.nextTurn()
	return nil
}

// PlayerSurrender 投降: 限兩張牌且規則允許，立即輸掉一半押注
func (te *tableEngine) PlayerSurrender(playerID string) error {
	te.lock.Lock()
	defer te.lock.Unlock()

	seat, err := te.validateTurn(playerID)
	if err != nil {
		te.emitErrorEvent("PlayerSurrender", playerID, err)
		return err
	}

	if !te.table.Meta.Rules.AllowSurrender || seat.Hand.Size() != 2 {
		te.emitErrorEvent("PlayerSurrender", playerID, ErrTablePlayerInvalidAction)
		return ErrTablePlayerInvalidAction
	}

	seat.Status = SeatStatus_Surrendered
	te.emitEvent("PlayerSurrender", playerID)
	te.nextTurn()
	return nil
}

func (te *tableEngine) schedule(after time.Duration, name string, fn func()) {
	if err := te.tb.NewTask(after, func(isCancelled bool) {
		if isCancelled {
			return
		}

		te.lock.Lock()
		defer te.lock.Unlock()

		if te.table.State.Status == TableStateStatus_TableClosed {
			return
		}

		fn()
	}); err != nil {
		te.logger.Error("schedule task failed", zap.String("task", name), zap.Error(err))
	}
}
