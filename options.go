package blackjacktable

import (
	"time"

	"go.uber.org/zap"
)

type TableEngineCallbacks struct {
	OnTableUpdated         func(t *Table)
	OnTableErrorUpdated    func(t *Table, err error)
	OnTableSnapshotUpdated func(playerID string, snapshot *TableSnapshot)
	OnTableRoundSettled    func(t *Table, result *TableRoundResult)
	OnTableBetRequested    func(playerID string, minBet, maxBet int)
}

func NewTableEngineCallbacks() *TableEngineCallbacks {
	return &TableEngineCallbacks{
		OnTableUpdated:         func(*Table) {},
		OnTableErrorUpdated:    func(*Table, error) {},
		OnTableSnapshotUpdated: func(string, *TableSnapshot) {},
		OnTableRoundSettled:    func(*Table, *TableRoundResult) {},
		OnTableBetRequested:    func(string, int, int) {},
	}
}

type TableEngineOptions struct {
	BetTimeout         int           // 下注等待秒數 (ReadyGroup)
	DealInterval       time.Duration // 每張發牌間隔
	DealerDrawInterval time.Duration // 莊家補牌間隔
	ResolveInterval    time.Duration // 攤牌到結算間隔
	RoundEndInterval   time.Duration // 結算到下一局間隔
}

func NewTableEngineOptions() *TableEngineOptions {
	return &TableEngineOptions{
		BetTimeout:         60,
		DealInterval:       300 * time.Millisecond,
		DealerDrawInterval: 500 * time.Millisecond,
		ResolveInterval:    time.Second,
		RoundEndInterval:   3 * time.Second,
	}
}

// WithLogger 預設不輸出任何日誌
func WithLogger(logger *zap.Logger) TableEngineOpt {
	return func(te *tableEngine) {
		te.logger = logger
	}
}
