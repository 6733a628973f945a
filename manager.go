package blackjacktable

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrManagerTableNotFound  = errors.New("manager: table not found")
	ErrManagerPlayerNotFound = errors.New("manager: player not found")
)

type Manager interface {
	Reset()

	// TableEngine Actions
	GetTableEngine(tableID string) (TableEngine, error)
	CreateTable(setting TableSetting) (*Table, error)
	CloseTable(tableID string) error
	TableCount() int

	// Matchmaking
	AssignPlayer(joinPlayer JoinPlayer) (*Table, error) // 找一張未滿的桌入座，沒有則開新桌
	ReleasePlayer(playerID string) error                // 離桌，空桌自動關閉
	GetPlayerTable(playerID string) (TableEngine, error)

	// Player Game Actions
	PlayerBet(playerID string, bet int) error
	PlayerHit(playerID string) error
	PlayerStand(playerID string) error
	PlayerDouble(playerID string) error
	PlayerSurrender(playerID string) error
}

type manager struct {
	lock         sync.Mutex
	options      *TableEngineOptions
	callbacks    *TableEngineCallbacks
	rules        *Rules
	tableEngines sync.Map // tableID -> TableEngine
	playerTables sync.Map // playerID -> tableID
}

type ManagerOpt func(*manager)

func WithTableEngineOptions(options *TableEngineOptions) ManagerOpt {
	return func(m *manager) {
		m.options = options
	}
}

func WithTableEngineCallbacks(callbacks *TableEngineCallbacks) ManagerOpt {
	return func(m *manager) {
		m.callbacks = callbacks
	}
}

func WithTableRules(rules *Rules) ManagerOpt {
	return func(m *manager) {
		m.rules = rules
	}
}

func NewManager(opts ...ManagerOpt) Manager {
	m := &manager{
		options:   NewTableEngineOptions(),
		callbacks: NewTableEngineCallbacks(),
		rules:     NewDefaultRules(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *manager) Reset() {
	m.tableEngines.Range(func(key, value interface{}) bool {
		value.(TableEngine).CloseTable()
		return true
	})
	m.tableEngines = sync.Map{}
	m.playerTables = sync.Map{}
}

func (m *manager) GetTableEngine(tableID string) (TableEngine, error) {
	tableEngine, exist := m.tableEngines.Load(tableID)
	if !exist {
		return nil, ErrManagerTableNotFound
	}
	return tableEngine.(TableEngine), nil
}

func (m *manager) CreateTable(setting TableSetting) (*Table, error) {
	if setting.TableID == "" {
		setting.TableID = uuid.New().String()
	}
	if setting.Rules == nil {
		setting.Rules = m.rules
	}

	tableEngine := NewTableEngine(m.options)
	tableEngine.OnTableUpdated(m.callbacks.OnTableUpdated)
	tableEngine.OnTableErrorUpdated(m.callbacks.OnTableErrorUpdated)
	tableEngine.OnTableSnapshotUpdated(m.callbacks.OnTableSnapshotUpdated)
	tableEngine.OnTableRoundSettled(m.callbacks.OnTableRoundSettled)
	tableEngine.OnTableBetRequested(m.callbacks.OnTableBetRequested)

	table, err := tableEngine.CreateTable(setting)
	if err != nil {
		return nil, err
	}

	m.tableEngines.Store(table.ID, tableEngine)

	for _, joinPlayer := range setting.JoinPlayers {
		m.playerTables.Store(joinPlayer.PlayerID, table.ID)
	}

	return table, nil
}

func (m *manager) CloseTable(tableID string) error {
	tableEngine, err := m.GetTableEngine(tableID)
	if err != nil {
		return ErrManagerTableNotFound
	}

	for _, seat := range tableEngine.GetTable().State.Seats {
		m.playerTables.Delete(seat.PlayerID)
	}

	if err := tableEngine.CloseTable(); err != nil {
		return err
	}

	m.tableEngines.Delete(tableID)
	return nil
}

func (m *manager) TableCount() int {
	count := 0
	m.tableEngines.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

/*
AssignPlayer 配桌
  - 先找一張還有空位的桌，找不到就開新桌
*/
func (m *manager) AssignPlayer(joinPlayer JoinPlayer) (*Table, error) {
	// 配桌需要互斥，避免兩位玩家同時搶到最後一個空位
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, exist := m.playerTables.Load(joinPlayer.PlayerID); exist {
		return nil, ErrTablePlayerAlreadyJoined
	}

	var joined TableEngine
	var joinErr error
	m.tableEngines.Range(func(key, value interface{}) bool {
		tableEngine := value.(TableEngine)
		table := tableEngine.GetTable()
		if table.State.Status == TableStateStatus_TableClosed || table.IsFull() {
			return true
		}

		err := tableEngine.PlayerJoin(joinPlayer)
		if err == nil {
			joined = tableEngine
			return false
		}
		// 局中的桌不收人，繼續找下一張
		if err == ErrTableRoundInProgress {
			return true
		}
		joinErr = err
		return false
	})

	if joinErr != nil {
		return nil, joinErr
	}
	if joined == nil {
		return m.createTableLocked(joinPlayer)
	}

	table := joined.GetTable()
	m.playerTables.Store(joinPlayer.PlayerID, table.ID)
	return table, nil
}

func (m *manager) createTableLocked(joinPlayer JoinPlayer) (*Table, error) {
	return m.CreateTable(TableSetting{
		GameMode:    GameMode_PVP,
		JoinPlayers: []JoinPlayer{joinPlayer},
	})
}

func (m *manager) ReleasePlayer(playerID string) error {
	tableID, exist := m.playerTables.Load(playerID)
	if !exist {
		return ErrManagerPlayerNotFound
	}

	tableEngine, err := m.GetTableEngine(tableID.(string))
	if err != nil {
		m.playerTables.Delete(playerID)
		return err
	}

	if err := tableEngine.PlayerLeave(playerID); err != nil {
		return err
	}
	m.playerTables.Delete(playerID)

	// 空桌直接收掉
	if tableEngine.GetTable().PlayerCount() == 0 {
		tableEngine.CloseTable()
		m.tableEngines.Delete(tableID)
	}

	return nil
}

func (m *manager) GetPlayerTable(playerID string) (TableEngine, error) {
	tableID, exist := m.playerTables.Load(playerID)
	if !exist {
		return nil, ErrManagerPlayerNotFound
	}
	return m.GetTableEngine(tableID.(string))
}

func (m *manager) PlayerBet(playerID string, bet int) error {
	tableEngine, err := m.GetPlayerTable(playerID)
	if err != nil {
		return err
	}
	return tableEngine.PlayerBet(playerID, bet)
}

func (m *manager) PlayerHit(playerID string) error {
	tableEngine, err := m.GetPlayerTable(playerID)
	if err != nil {
		return err
	}
	return tableEngine.PlayerHit(playerID)
}

func (m *manager) PlayerStand(playerID string) error {
	tableEngine, err := m.GetPlayerTable(playerID)
	if err != nil {
		return err
	}
	return tableEngine.PlayerStand(playerID)
}

func (m *manager) PlayerDouble(playerID string) error {
	tableEngine, err := m.GetPlayerTable(playerID)
	if err != nil {
		return err
	}
	return tableEngine.PlayerDouble(playerID)
}

func (m *manager) PlayerSurrender(playerID string) error {
	tableEngine, err := m.GetPlayerTable(playerID)
	if err != nil {
		return err
	}
	return tableEngine.PlayerSurrender(playerID)
}
