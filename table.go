package blackjacktable

import (
	"encoding/json"
	"time"
)

type TableStateStatus string

const (
	// TableStateStatus: 桌狀態即回合階段
	TableStateStatus_TableCreated      TableStateStatus = "table_created"
	TableStateStatus_WaitingForPlayers TableStateStatus = "waiting_for_players"
	TableStateStatus_Betting           TableStateStatus = "betting"
	TableStateStatus_Dealing           TableStateStatus = "dealing"
	TableStateStatus_PlayerTurns       TableStateStatus = "player_turns"
	TableStateStatus_DealerTurn        TableStateStatus = "dealer_turn"
	TableStateStatus_Resolving         TableStateStatus = "resolving"
	TableStateStatus_RoundEnd          TableStateStatus = "round_end"
	TableStateStatus_TableClosed       TableStateStatus = "table_closed"
)

type SeatStatus string

const (
	SeatStatus_Waiting     SeatStatus = "waiting"    // 入座但未在本局
	SeatStatus_Betting     SeatStatus = "betting"    // 等待下注
	SeatStatus_BetPlaced   SeatStatus = "bet_placed" // 已下注
	SeatStatus_Playing     SeatStatus = "playing"    // 行動中
	SeatStatus_Standing    SeatStatus = "standing"
	SeatStatus_Busted      SeatStatus = "busted"
	SeatStatus_Blackjack   SeatStatus = "blackjack"
	SeatStatus_Surrendered SeatStatus = "surrendered"
	SeatStatus_SittingOut  SeatStatus = "sitting_out" // 本局旁觀 (中途入座或逾時未下注)
)

type Table struct {
	UpdateSerial int64       `json:"update_serial"`
	ID           string      `json:"id"`
	Meta         TableMeta   `json:"meta"`
	State        *TableState `json:"state"`
	UpdateAt     int64       `json:"update_at"`
}

type TableMeta struct {
	GameMode string `json:"game_mode"`
	Rules    *Rules `json:"rules"`
}

type TableState struct {
	Status          TableStateStatus  `json:"status"`
	StartAt         int64             `json:"start_at"`
	RoundNumber     int               `json:"round_number"`
	Seats           []*TableSeat      `json:"seats"`
	Dealer          *Hand             `json:"dealer"`
	CurrentSeatIdx  int               `json:"current_seat_idx"`
	LastRoundResult *TableRoundResult `json:"last_round_result,omitempty"`
}

type TableSeat struct {
	SeatIndex  int        `json:"seat_index"`
	PlayerID   string     `json:"player_id"`
	PlayerName string     `json:"player_name"`
	Chips      int        `json:"chips"`
	Bet        int        `json:"bet"`
	Hand       *Hand      `json:"hand"`
	Status     SeatStatus `json:"status"`
}

type SeatRoundResult struct {
	SeatIndex  int        `json:"seat_index"`
	PlayerID   string     `json:"player_id"`
	PlayerName string     `json:"player_name"`
	Cards      []Card     `json:"cards"`
	Score      int        `json:"score"`
	Bet        int        `json:"bet"`
	Result     ResultType `json:"result"`
	Payout     int        `json:"payout"`
	Chips      int        `json:"chips"`
}

type TableRoundResult struct {
	RoundNumber int               `json:"round_number"`
	DealerCards []Card            `json:"dealer_cards"`
	DealerScore int               `json:"dealer_score"`
	SeatResults []SeatRoundResult `json:"seat_results"`
}

func NewTable(id string, gameMode string, rules *Rules) *Table {
	return &Table{
		ID: id,
		Meta: TableMeta{
			GameMode: gameMode,
			Rules:    rules,
		},
		State: &TableState{
			Status:         TableStateStatus_TableCreated,
			StartAt:        time.Now().Unix(),
			Seats:          make([]*TableSeat, 0, rules.MaxSeats),
			Dealer:         NewHand(),
			CurrentSeatIdx: UnsetValue,
		},
		UpdateAt: time.Now().Unix(),
	}
}

func (t *Table) GetJSON() (string, error) {
	encoded, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (t *Table) GetSeatByPlayerID(playerID string) *TableSeat {
	for _, seat := range t.State.Seats {
		if seat.PlayerID == playerID {
			return seat
		}
	}
	return nil
}

func (t *Table) GetSeatByIndex(seatIdx int) *TableSeat {
	for _, seat := range t.State.Seats {
		if seat.SeatIndex == seatIdx {
			return seat
		}
	}
	return nil
}

func (t *Table) PlayerCount() int {
	return len(t.State.Seats)
}

func (t *Table) IsFull() bool {
	return len(t.State.Seats) >= t.Meta.Rules.MaxSeats
}

// ParticipatingSeats 本局有下注資格的座位 (非旁觀)
func (t *Table) ParticipatingSeats() []*TableSeat {
	seats := make([]*TableSeat, 0, len(t.State.Seats))
	for _, seat := range t.State.Seats {
		if seat.Status != SeatStatus_Waiting && seat.Status != SeatStatus_SittingOut {
			seats = append(seats, seat)
		}
	}
	return seats
}

// nextSeatIndex 配出比在座者都大的編號，座位順序即入桌順序；空出的編號不回收
func (t *Table) nextSeatIndex() int {
	next := 0
	for _, seat := range t.State.Seats {
		if seat.SeatIndex >= next {
			next = seat.SeatIndex + 1
		}
	}
	return next
}

// dealerRevealed 莊家暗牌是否已翻開
func (t *Table) dealerRevealed() bool {
	switch t.State.Status {
	case TableStateStatus_DealerTurn, TableStateStatus_Resolving, TableStateStatus_RoundEnd:
		return true
	}
	return false
}

// TableSeatSnapshot is what one player is allowed to see of a seat.
type TableSeatSnapshot struct {
	SeatIndex  int        `json:"seat_index"`
	PlayerID   string     `json:"player_id"`
	PlayerName string     `json:"player_name"`
	Chips      int        `json:"chips"`
	Bet        int        `json:"bet"`
	Cards      []Card     `json:"cards"`
	Score      int        `json:"score"`
	Status     SeatStatus `json:"status"`
	IsSelf     bool       `json:"is_self"`
}

// TableSnapshot 對單一玩家的桌面視圖，莊家暗牌在攤牌前遮蔽
type TableSnapshot struct {
	TableID        string              `json:"table_id"`
	UpdateSerial   int64               `json:"update_serial"`
	Status         TableStateStatus    `json:"status"`
	RoundNumber    int                 `json:"round_number"`
	Seats          []TableSeatSnapshot `json:"seats"`
	DealerCards    []Card              `json:"dealer_cards"`
	DealerScore    int                 `json:"dealer_score"`
	CurrentSeatIdx int                 `json:"current_seat_idx"`
}

// Snapshot renders the table as seen by playerID. Every player sees every
// seat's cards face up; only the dealer's hole card is masked.
func (t *Table) Snapshot(playerID string) *TableSnapshot {
	snapshot := &TableSnapshot{
		TableID:        t.ID,
		UpdateSerial:   t.UpdateSerial,
		Status:         t.State.Status,
		RoundNumber:    t.State.RoundNumber,
		Seats:          make([]TableSeatSnapshot, 0, len(t.State.Seats)),
		CurrentSeatIdx: t.State.CurrentSeatIdx,
	}

	if t.dealerRevealed() {
		snapshot.DealerCards = t.State.Dealer.CloneCards()
		snapshot.DealerScore = t.State.Dealer.Value()
	} else {
		snapshot.DealerCards = t.State.Dealer.MaskedCards()
		snapshot.DealerScore = t.State.Dealer.VisibleValue()
	}

	for _, seat := range t.State.Seats {
		snapshot.Seats = append(snapshot.Seats, TableSeatSnapshot{
			SeatIndex:  seat.SeatIndex,
			PlayerID:   seat.PlayerID,
			PlayerName: seat.PlayerName,
			Chips:      seat.Chips,
			Bet:        seat.Bet,
			Cards:      seat.Hand.CloneCards(),
			Score:      seat.Hand.Value(),
			Status:     seat.Status,
			IsSelf:     seat.PlayerID == playerID,
		})
	}

	return snapshot
}
