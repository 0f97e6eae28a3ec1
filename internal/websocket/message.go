package websocket

import "encoding/json"

type OutgoingMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// IncomingMessage Data 保持原始 JSON，由游戏层按 Event 解析
type IncomingMessage struct {
	From  string          `json:"from"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// 客户端 → 服务端事件
const (
	EventPlayerAction  = "player_action"
	EventNextHand      = "next_hand"
	EventRetryShowdown = "retry_showdown"
	EventResolveLocal  = "resolve_local"
	EventGetState      = "get_state"
)

// 服务端 → 客户端事件
const (
	EventState          = "state"
	EventYourTurn       = "your_turn"
	EventActionRejected = "action_rejected"
	EventShowdownResult = "showdown_result"
	EventShowdownFailed = "showdown_failed"
	EventTournamentOver = "tournament_over"
	EventSessionStarted = "session_started"
)
