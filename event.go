package blackjacktable

import (
	"time"

	"go.uber.org/zap"
)

func (te *tableEngine) emitEvent(eventName string, playerID string) {
	// refresh table
	te.table.UpdateAt = time.Now().Unix()
	te.table.UpdateSerial++

	te.logger.Debug("emit event",
		zap.String("table_id", te.table.ID),
		zap.Int64("serial", te.table.UpdateSerial),
		zap.String("status", string(te.table.State.Status)),
		zap.String("player_id", playerID),
		zap.String("event", eventName),
	)

	te.onTableUpdated(te.table)

	// 每位玩家各自的視圖
	for _, seat := range te.table.State.Seats {
		te.onTableSnapshotUpdated(seat.PlayerID, te.table.Snapshot(seat.PlayerID))
	}
}

func (te *tableEngine) emitErrorEvent(eventName string, playerID string, err error) {
	te.logger.Warn("emit error event",
		zap.String("table_id", te.table.ID),
		zap.String("player_id", playerID),
		zap.String("event", eventName),
		zap.Error(err),
	)

	te.onTableErrorUpdated(te.table, err)
}

func (te *tableEngine) emitRoundSettledEvent(result *TableRoundResult) {
	te.onTableRoundSettled(te.table, result)
}

func (te *tableEngine) emitBetRequestedEvent(playerID string) {
	te.onTableBetRequested(playerID, te.table.Meta.Rules.MinBet, te.table.Meta.Rules.MaxBet)
}

func (te *tableEngine) emitBetRequestedEvents() {
	for _, seat := range te.table.State.Seats {
		if seat.Status == SeatStatus_Betting {
			te.emitBetRequestedEvent(seat.PlayerID)
		}
	}
}
