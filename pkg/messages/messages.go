package messages

import "encoding/json"

// Message types
const (
	MessageTypeClientJoin        = "client_join"
	MessageTypeClientStartGame   = "client_start_game"
	MessageTypeClientSelectCard  = "client_select_card"
	MessageTypeClientRestartGame = "client_restart_game"
	MessageTypeClientPing        = "client_ping"

	MessageTypeServerJoinSuccess  = "server_join_success"
	MessageTypeServerCardFlip     = "server_card_flip"
	MessageTypeServerPairMatch    = "server_pair_match"
	MessageTypeServerPairMismatch = "server_pair_mismatch"
	MessageTypeServerGameWon      = "server_game_won"
	MessageTypeServerGameSnapshot = "server_game_snapshot"
	MessageTypeServerPong         = "server_pong"
	MessageTypeServerError        = "server_error"
)

// Message represents a generic message for serialization/deserialization.
// ClientID 0 means the message is from the server.
type Message struct {
	ClientID uint32          `json:"clientID"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
