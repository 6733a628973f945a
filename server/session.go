package server

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weedbox/blackjacktable"
	"github.com/weedbox/blackjacktable/protocol"
	"github.com/weedbox/blackjacktable/records"
	"go.uber.org/zap"
)

const historySize = 10

var errSessionClosed = errors.New("server: session closed")

type session struct {
	server *Server
	conn   clientConn
	logger *zap.Logger

	playerID   string
	playerName string
	gameMode   string

	// join 時定案的有效規則與買入額
	rules *blackjacktable.Rules
	buyIn int

	// PVE 專用: 一條連線獨佔一個牌局引擎
	game  blackjacktable.Game
	chips int

	// 桌次引擎從自己的 goroutine 推播結算，須與連線 goroutine 互斥
	historyMu sync.Mutex
	history   []protocol.HistoryEntry
}

func newSession(server *Server, conn clientConn) *session {
	return &session{
		server:  server,
		conn:    conn,
		logger:  server.logger.With(zap.String("remote", conn.RemoteAddr())),
		history: make([]protocol.HistoryEntry, 0, historySize),
	}
}

func (s *session) run() {
	defer s.cleanup()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.server.config.ConnTimeout))

		line, err := s.conn.ReadLine()
		if err != nil {
			s.logger.Debug("connection closed", zap.Error(err))
			return
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		envelope, err := protocol.Decode(line)
		if err != nil {
			s.sendError("bad_message", "malformed message")
			continue
		}

		if s.playerID == "" && envelope.Type != protocol.MessageType_Join {
			s.sendError("join_required", "send join first")
			continue
		}

		if err := s.dispatch(envelope); err != nil {
			return
		}
	}
}

func (s *session) dispatch(envelope *protocol.Envelope) error {
	switch envelope.Type {
	case protocol.MessageType_Join:
		s.handleJoin(envelope)
	case protocol.MessageType_Bet:
		s.handleBet(envelope)
	case protocol.MessageType_Hit:
		s.handleAction(protocol.MessageType_Hit)
	case protocol.MessageType_Stand:
		s.handleAction(protocol.MessageType_Stand)
	case protocol.MessageType_Double:
		s.handleAction(protocol.MessageType_Double)
	case protocol.MessageType_Surrender:
		s.handleAction(protocol.MessageType_Surrender)
	case protocol.MessageType_Split:
		s.handleSplit()
	case protocol.MessageType_SelectHand:
		s.handleSelectHand(envelope)
	case protocol.MessageType_NewGame:
		s.handleNewGame()
	case protocol.MessageType_Records:
		s.handleRecords()
	case protocol.MessageType_TopRecords:
		s.handleTopRecords()
	case protocol.MessageType_History:
		s.handleHistory()
	case protocol.MessageType_Ping:
		s.send(protocol.MessageType_Pong, nil)
	case protocol.MessageType_Leave:
		return errSessionClosed
	default:
		s.sendError("unknown_type", fmt.Sprintf("unknown message type: %s", envelope.Type))
	}

	return nil
}

func (s *session) handleJoin(envelope *protocol.Envelope) {
	if s.playerID != "" {
		s.sendError("already_joined", "already joined")
		return
	}

	var payload protocol.JoinPayload
	if err := envelope.Bind(&payload); err != nil {
		s.sendError("bad_message", "malformed join payload")
		return
	}

	playerName := strings.TrimSpace(payload.PlayerName)
	if playerName == "" {
		s.sendError("invalid_name", "player name is required")
		return
	}

	gameMode := payload.GameMode
	if gameMode == "" {
		gameMode = blackjacktable.GameMode_PVE
	}
	if gameMode != blackjacktable.GameMode_PVE && gameMode != blackjacktable.GameMode_PVP {
		s.sendError("invalid_mode", "game mode must be pve or pvp")
		return
	}

	if payload.BuyIn < 0 {
		s.sendError("invalid_buy_in", "buy-in can not be negative")
		return
	}

	playerID := uuid.New().String()
	rules := s.server.rules
	buyIn := payload.BuyIn
	if buyIn == 0 {
		buyIn = rules.InitialChips
	}

	if gameMode == blackjacktable.GameMode_PVP {
		// 多人桌共用規則，join 帶的覆寫只對單人模式有效
		if _, err := s.server.manager.AssignPlayer(blackjacktable.JoinPlayer{
			PlayerID:    playerID,
			PlayerName:  playerName,
			RedeemChips: buyIn,
		}); err != nil {
			s.sendError("join_failed", err.Error())
			return
		}
	} else {
		rules = payload.Rules.Apply(rules)
		s.game = blackjacktable.NewGame(rules)
		s.chips = buyIn
	}

	s.rules = rules
	s.buyIn = buyIn

	s.playerID = playerID
	s.playerName = playerName
	s.gameMode = gameMode
	s.logger = s.logger.With(zap.String("player_id", playerID), zap.String("player_name", playerName))
	s.server.sessions.Store(playerID, s)

	s.logger.Info("player joined", zap.String("game_mode", gameMode))

	s.send(protocol.MessageType_Welcome, protocol.WelcomePayload{
		PlayerID:   playerID,
		PlayerName: playerName,
		GameMode:   gameMode,
		Chips:      buyIn,
		Rules:      rules,
	})

	if gameMode == blackjacktable.GameMode_PVE {
		s.sendBetRequest()
	}
}

func (s *session) handleBet(envelope *protocol.Envelope) {
	var payload protocol.BetPayload
	if err := envelope.Bind(&payload); err != nil {
		s.sendError("bad_message", "malformed bet payload")
		return
	}

	if s.gameMode == blackjacktable.GameMode_PVP {
		if err := s.server.manager.PlayerBet(s.playerID, payload.Amount); err != nil {
			s.sendError(errorCode(err), err.Error())
		}
		return
	}

	numberOfHands := payload.NumberOfHands
	if numberOfHands <= 0 {
		numberOfHands = 1
	}

	view, err := s.game.StartRound(payload.Amount, s.chips, numberOfHands)
	if err != nil {
		s.sendError(errorCode(err), err.Error())
		return
	}

	s.chips -= view.TotalBet
	s.sendGameState(view)
	s.maybeResolve(view)
}

func (s *session) handleAction(msgType protocol.MessageType) {
	if s.gameMode == blackjacktable.GameMode_PVP {
		var err error
		switch msgType {
		case protocol.MessageType_Hit:
			err = s.server.manager.PlayerHit(s.playerID)
		case protocol.MessageType_Stand:
			err = s.server.manager.PlayerStand(s.playerID)
		case protocol.MessageType_Double:
			err = s.server.manager.PlayerDouble(s.playerID)
		case protocol.MessageType_Surrender:
			err = s.server.manager.PlayerSurrender(s.playerID)
		}
		if err != nil {
			s.sendError(errorCode(err), err.Error())
		}
		return
	}

	switch msgType {
	case protocol.MessageType_Hit:
		s.pveAction(func() (*blackjacktable.RoundView, error) { return s.game.Hit() })
	case protocol.MessageType_Stand:
		s.pveAction(func() (*blackjacktable.RoundView, error) { return s.game.Stand() })
	case protocol.MessageType_Double:
		s.pveAction(func() (*blackjacktable.RoundView, error) { return s.game.Double(s.chips) })
	case protocol.MessageType_Surrender:
		s.pveAction(func() (*blackjacktable.RoundView, error) { return s.game.Surrender() })
	}
}

func (s *session) handleSplit() {
	if s.gameMode == blackjacktable.GameMode_PVP {
		s.sendError("unsupported", "split is not available at multiplayer tables")
		return
	}

	s.pveAction(func() (*blackjacktable.RoundView, error) { return s.game.Split(s.chips) })
}

func (s *session) handleSelectHand(envelope *protocol.Envelope) {
	if s.gameMode == blackjacktable.GameMode_PVP {
		s.sendError("unsupported", "select_hand is not available at multiplayer tables")
		return
	}

	var payload protocol.SelectHandPayload
	if err := envelope.Bind(&payload); err != nil {
		s.sendError("bad_message", "malformed select_hand payload")
		return
	}

	s.pveAction(func() (*blackjacktable.RoundView, error) { return s.game.SelectHand(payload.HandIndex) })
}

// pveAction 執行單人模式動作；加倍/分牌會增加押注，差額從籌碼扣除
func (s *session) pveAction(fn func() (*blackjacktable.RoundView, error)) {
	before := s.game.View().TotalBet

	view, err := fn()
	if err != nil {
		s.sendError(errorCode(err), err.Error())
		return
	}

	if view.TotalBet > before {
		s.chips -= view.TotalBet - before
	}

	s.sendGameState(view)
	s.maybeResolve(view)
}

// maybeResolve 回合結束時結算: 加回籌碼、寫入戰績與歷史
func (s *session) maybeResolve(view *blackjacktable.RoundView) {
	if view.Phase != blackjacktable.GamePhase_GameOver {
		return
	}

	result, err := s.game.Resolve()
	if err != nil {
		s.logger.Error("resolve failed", zap.Error(err))
		return
	}

	s.chips += result.TotalReturned

	for _, handResult := range result.HandResults {
		s.server.store.RecordResult(s.playerName, handResult.Result, handResult.Bet, handResult.Payout, s.chips)
	}

	s.appendHistory(protocol.HistoryEntry{
		RoundNumber: s.game.RoundNumber(),
		Description: describeRound(result),
		NetPayout:   result.TotalPayout,
		PlayedAt:    time.Now().Unix(),
	})

	s.send(protocol.MessageType_RoundResult, protocol.RoundResultPayload{
		Result: result,
		Chips:  s.chips,
	})

	if s.chips < s.rules.MinBet {
		s.send(protocol.MessageType_Notice, protocol.NoticePayload{
			Message: "out of chips, send new_game to start over",
		})
		return
	}

	s.sendBetRequest()
}

func (s *session) handleNewGame() {
	if s.gameMode == blackjacktable.GameMode_PVP {
		s.sendError("unsupported", "new_game is not available at multiplayer tables")
		return
	}

	if s.game.View().Phase == blackjacktable.GamePhase_PlayerTurn {
		s.sendError("invalid_action", "round still in progress")
		return
	}

	s.chips = s.buyIn
	s.send(protocol.MessageType_Notice, protocol.NoticePayload{
		Message: fmt.Sprintf("chips reset to %d", s.chips),
	})
	s.sendBetRequest()
}

func (s *session) handleRecords() {
	payload := protocol.RecordsResultPayload{}
	if record, err := s.server.store.Get(s.playerName); err == nil {
		summary := toSummary(record)
		payload.Record = &summary
	}
	s.send(protocol.MessageType_RecordsResult, payload)
}

func (s *session) handleTopRecords() {
	top := s.server.store.Top(records.TopRecordsDisplay)

	summaries := make([]protocol.RecordSummary, 0, len(top))
	for _, record := range top {
		summaries = append(summaries, toSummary(record))
	}

	s.send(protocol.MessageType_TopRecordsResult, protocol.TopRecordsResultPayload{
		Records: summaries,
	})
}

func (s *session) handleHistory() {
	s.send(protocol.MessageType_HistoryResult, protocol.HistoryResultPayload{
		Entries: s.historyEntries(),
	})
}

// pushSnapshot PVP 桌面更新，由桌次引擎事件觸發
func (s *session) pushSnapshot(snapshot *blackjacktable.TableSnapshot) {
	s.send(protocol.MessageType_TableState, snapshot)
}

func (s *session) pushBetRequest(minBet, maxBet int) {
	s.send(protocol.MessageType_BetRequest, protocol.BetRequestPayload{
		MinBet: minBet,
		MaxBet: maxBet,
	})
}

// pushRoundSettled PVP 回合結算，寫入該玩家座位的戰績與歷史
func (s *session) pushRoundSettled(result *blackjacktable.TableRoundResult) {
	for _, seatResult := range result.SeatResults {
		if seatResult.PlayerID != s.playerID {
			continue
		}

		s.server.store.RecordResult(s.playerName, seatResult.Result, seatResult.Bet, seatResult.Payout, seatResult.Chips)
		s.appendHistory(protocol.HistoryEntry{
			RoundNumber: result.RoundNumber,
			Description: fmt.Sprintf("%s (%+d)", seatResult.Result, seatResult.Payout),
			NetPayout:   seatResult.Payout,
			PlayedAt:    time.Now().Unix(),
		})
	}

	s.send(protocol.MessageType_TableRoundResult, result)
}

func (s *session) appendHistory(entry protocol.HistoryEntry) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append(s.history, entry)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
}

func (s *session) historyEntries() []protocol.HistoryEntry {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	entries := make([]protocol.HistoryEntry, len(s.history))
	copy(entries, s.history)
	return entries
}

func (s *session) sendBetRequest() {
	rules := s.rules
	s.send(protocol.MessageType_BetRequest, protocol.BetRequestPayload{
		MinBet: rules.MinBet,
		MaxBet: rules.MaxBet,
		Chips:  s.chips,
	})
}

func (s *session) sendGameState(view *blackjacktable.RoundView) {
	s.send(protocol.MessageType_GameState, protocol.GameStatePayload{
		View:  view,
		Chips: s.chips,
	})
}

func (s *session) send(msgType protocol.MessageType, payload interface{}) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		s.logger.Error("encode message failed", zap.String("type", string(msgType)), zap.Error(err))
		return
	}

	if err := s.conn.WriteLine(data); err != nil {
		s.logger.Debug("write failed", zap.Error(err))
	}
}

func (s *session) sendError(code string, message string) {
	s.send(protocol.MessageType_Error, protocol.ErrorPayload{
		Code:    code,
		Message: message,
	})
}

func (s *session) cleanup() {
	if s.playerID != "" {
		s.server.sessions.Delete(s.playerID)

		if s.gameMode == blackjacktable.GameMode_PVP {
			if err := s.server.manager.ReleasePlayer(s.playerID); err != nil {
				s.logger.Debug("release player failed", zap.Error(err))
			}
		}

		s.logger.Info("player left")
	}

	s.conn.Close()
}

func toSummary(record records.PlayerRecord) protocol.RecordSummary {
	return protocol.RecordSummary{
		PlayerName:   record.PlayerName,
		Wins:         record.Wins,
		Losses:       record.Losses,
		Pushes:       record.Pushes,
		Blackjacks:   record.Blackjacks,
		Surrenders:   record.Surrenders,
		RoundsPlayed: record.RoundsPlayed,
		NetChips:     record.NetChips,
		MaxChips:     record.MaxChips,
		BestStreak:   record.BestStreak,
		WinRate:      record.WinRate(),
	}
}

func describeRound(result *blackjacktable.RoundResult) string {
	parts := make([]string, 0, len(result.HandResults))
	for _, handResult := range result.HandResults {
		parts = append(parts, fmt.Sprintf("%s (%+d)", handResult.Result, handResult.Payout))
	}
	return strings.Join(parts, ", ")
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, blackjacktable.ErrGameInvalidBet),
		errors.Is(err, blackjacktable.ErrTableInvalidBet):
		return "invalid_bet"
	case errors.Is(err, blackjacktable.ErrGameInsufficientChips),
		errors.Is(err, blackjacktable.ErrTableInsufficientChips):
		return "insufficient_chips"
	case errors.Is(err, blackjacktable.ErrTableNotPlayerTurn):
		return "not_your_turn"
	case errors.Is(err, blackjacktable.ErrGameMaxSplitsReached):
		return "max_splits"
	case errors.Is(err, blackjacktable.ErrGameRoundInProgress):
		return "round_in_progress"
	case errors.Is(err, blackjacktable.ErrTableNoEmptySeats):
		return "no_empty_seats"
	default:
		return "invalid_action"
	}
}
