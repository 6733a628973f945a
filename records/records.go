// Package records persists per-player win/loss statistics as a JSON file.
package records

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/weedbox/blackjacktable"
	"go.uber.org/zap"
)

const (
	MaxRecords        = 100 // 檔案中最多保留的玩家數
	TopRecordsDisplay = 10  // 排行榜顯示人數
)

var (
	ErrRecordNotFound = errors.New("records: record not found")
)

type PlayerRecord struct {
	PlayerName    string `json:"player_name"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	Pushes        int    `json:"pushes"`
	Blackjacks    int    `json:"blackjacks"`
	Surrenders    int    `json:"surrenders"`
	RoundsPlayed  int    `json:"rounds_played"`
	TotalWagered  int    `json:"total_wagered"`
	NetChips      int    `json:"net_chips"`
	MaxChips      int    `json:"max_chips"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
	UpdatedAt     int64  `json:"updated_at"`
}

func (r *PlayerRecord) WinRate() float64 {
	if r.RoundsPlayed == 0 {
		return 0
	}
	return float64(r.Wins+r.Blackjacks) / float64(r.RoundsPlayed)
}

type Store struct {
	mu      sync.RWMutex
	path    string
	records map[string]*PlayerRecord
	logger  *zap.Logger
}

type StoreOpt func(*Store)

func WithLogger(logger *zap.Logger) StoreOpt {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore 載入既有紀錄檔，不存在則從空紀錄開始
func NewStore(path string, opts ...StoreOpt) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]*PlayerRecord),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	var loaded []*PlayerRecord
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, err
	}

	for _, record := range loaded {
		s.records[record.PlayerName] = record
	}

	return s, nil
}

// RecordResult 記錄一手牌的結果並落盤
func (s *Store) RecordResult(playerName string, result blackjacktable.ResultType, bet, payout, finalChips int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[playerName]
	if !ok {
		record = &PlayerRecord{PlayerName: playerName}
		s.records[playerName] = record
	}

	switch result {
	case blackjacktable.Result_Win:
		record.Wins++
		record.CurrentStreak++
	case blackjacktable.Result_Blackjack:
		record.Blackjacks++
		record.CurrentStreak++
	case blackjacktable.Result_Lose:
		record.Losses++
		record.CurrentStreak = 0
	case blackjacktable.Result_Push:
		record.Pushes++
	case blackjacktable.Result_Surrender:
		record.Surrenders++
		record.CurrentStreak = 0
	}

	if record.CurrentStreak > record.BestStreak {
		record.BestStreak = record.CurrentStreak
	}
	if finalChips > record.MaxChips {
		record.MaxChips = finalChips
	}

	record.RoundsPlayed++
	record.TotalWagered += bet
	record.NetChips += payout
	record.UpdatedAt = time.Now().Unix()

	s.save()
}

func (s *Store) Get(playerName string) (PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[playerName]
	if !ok {
		return PlayerRecord{}, ErrRecordNotFound
	}
	return *record, nil
}

// Top 排行榜: 勝場多優先，勝場相同則敗場少優先
func (s *Store) Top(n int) []PlayerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranked := s.rankedLocked()
	if n > len(ranked) {
		n = len(ranked)
	}

	top := make([]PlayerRecord, 0, n)
	for _, record := range ranked[:n] {
		top = append(top, *record)
	}
	return top
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) rankedLocked() []*PlayerRecord {
	ranked := make([]*PlayerRecord, 0, len(s.records))
	for _, record := range s.records {
		ranked = append(ranked, record)
	}

	sort.Slice(ranked, func(i, j int) bool {
		totalWinsI := ranked[i].Wins + ranked[i].Blackjacks
		totalWinsJ := ranked[j].Wins + ranked[j].Blackjacks
		if totalWinsI != totalWinsJ {
			return totalWinsI > totalWinsJ
		}
		if ranked[i].Losses != ranked[j].Losses {
			return ranked[i].Losses < ranked[j].Losses
		}
		return ranked[i].PlayerName < ranked[j].PlayerName
	})

	return ranked
}

// save 落盤，超過上限時淘汰排名最低的玩家。caller 需持有寫鎖。
func (s *Store) save() {
	ranked := s.rankedLocked()
	if len(ranked) > MaxRecords {
		for _, evicted := range ranked[MaxRecords:] {
			delete(s.records, evicted.PlayerName)
		}
		ranked = ranked[:MaxRecords]
	}

	data, err := json.MarshalIndent(ranked, "", "  ")
	if err != nil {
		s.logger.Error("marshal records failed", zap.Error(err))
		return
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		s.logger.Error("write records file failed", zap.String("path", s.path), zap.Error(err))
	}
}
