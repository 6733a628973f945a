package protocol

import (
	"github.com/weedbox/blackjacktable"
)

// client → server payloads

type JoinPayload struct {
	PlayerName string                        `json:"player_name"`
	GameMode   string                        `json:"game_mode"`        // pve / pvp
	BuyIn      int                           `json:"buy_in,omitempty"` // 0 = 使用預設籌碼
	Rules      *blackjacktable.RuleOverrides `json:"rules,omitempty"`  // 僅單人模式生效
}

type BetPayload struct {
	Amount        int `json:"amount"`
	NumberOfHands int `json:"number_of_hands,omitempty"` // 單人模式可一次下多手，預設 1
}

type SelectHandPayload struct {
	HandIndex int `json:"hand_index"`
}

// server → client payloads

type WelcomePayload struct {
	PlayerID   string                `json:"player_id"`
	PlayerName string                `json:"player_name"`
	GameMode   string                `json:"game_mode"`
	Chips      int                   `json:"chips"`
	Rules      *blackjacktable.Rules `json:"rules"`
}

type GameStatePayload struct {
	View  *blackjacktable.RoundView `json:"view"`
	Chips int                       `json:"chips"`
}

type RoundResultPayload struct {
	Result *blackjacktable.RoundResult `json:"result"`
	Chips  int                         `json:"chips"`
}

type BetRequestPayload struct {
	MinBet int `json:"min_bet"`
	MaxBet int `json:"max_bet"`
	Chips  int `json:"chips"`
}

type NoticePayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RecordsResultPayload struct {
	Record *RecordSummary `json:"record,omitempty"`
}

type RecordSummary struct {
	PlayerName   string  `json:"player_name"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Pushes       int     `json:"pushes"`
	Blackjacks   int     `json:"blackjacks"`
	Surrenders   int     `json:"surrenders"`
	RoundsPlayed int     `json:"rounds_played"`
	NetChips     int     `json:"net_chips"`
	MaxChips     int     `json:"max_chips"`
	BestStreak   int     `json:"best_streak"`
	WinRate      float64 `json:"win_rate"`
}

type TopRecordsResultPayload struct {
	Records []RecordSummary `json:"records"`
}

type HistoryEntry struct {
	RoundNumber int    `json:"round_number"`
	Description string `json:"description"`
	NetPayout   int    `json:"net_payout"`
	PlayedAt    int64  `json:"played_at"`
}

type HistoryResultPayload struct {
	Entries []HistoryEntry `json:"entries"`
}
