// Package protocol defines the line-delimited JSON messages exchanged
// between clients and the blackjack server. Every line on the wire is one
// envelope: {"type": "...", "payload": {...}}.
package protocol

import (
	"encoding/json"
	"errors"
)

var (
	ErrInvalidEnvelope = errors.New("protocol: invalid envelope")
)

type MessageType string

const (
	// client → server
	MessageType_Join       MessageType = "join"
	MessageType_Bet        MessageType = "bet"
	MessageType_Hit        MessageType = "hit"
	MessageType_Stand      MessageType = "stand"
	MessageType_Double     MessageType = "double"
	MessageType_Split      MessageType = "split"
	MessageType_Surrender  MessageType = "surrender"
	MessageType_SelectHand MessageType = "select_hand"
	MessageType_NewGame    MessageType = "new_game"
	MessageType_Records    MessageType = "records"
	MessageType_TopRecords MessageType = "top_records"
	MessageType_History    MessageType = "history"
	MessageType_Leave      MessageType = "leave"
	MessageType_Ping       MessageType = "ping"

	// server → client
	MessageType_Welcome          MessageType = "welcome"
	MessageType_GameState        MessageType = "game_state"
	MessageType_TableState       MessageType = "table_state"
	MessageType_BetRequest       MessageType = "bet_request"
	MessageType_RoundResult      MessageType = "round_result"
	MessageType_TableRoundResult MessageType = "table_round_result"
	MessageType_RecordsResult    MessageType = "records_result"
	MessageType_TopRecordsResult MessageType = "top_records_result"
	MessageType_HistoryResult    MessageType = "history_result"
	MessageType_Notice           MessageType = "notice"
	MessageType_Error            MessageType = "error"
	MessageType_Pong             MessageType = "pong"
)

type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode 封裝訊息並補上換行 (一行一則)
func Encode(msgType MessageType, payload interface{}) ([]byte, error) {
	envelope := Envelope{Type: msgType}

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		envelope.Payload = encoded
	}

	line, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	return append(line, '\n'), nil
}

func Decode(line []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return nil, ErrInvalidEnvelope
	}
	if envelope.Type == "" {
		return nil, ErrInvalidEnvelope
	}
	return &envelope, nil
}

// Bind 解出 payload 內容
func (e *Envelope) Bind(v interface{}) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}
