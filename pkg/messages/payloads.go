package messages

import "github.com/cbodonnell/flipside/pkg/game/types"

// ClientJoin subscribes the sender to a game session. An empty SessionID
// creates a new session; a known SessionID attaches to it, restoring it
// from storage if it is not live.
type ClientJoin struct {
	SessionID string `json:"sessionId,omitempty"`
}

// ClientSelectCard selects a card in the sender's session.
type ClientSelectCard struct {
	CardID int `json:"cardId"`
}

// ServerJoinSuccess confirms a join and carries the current snapshot.
type ServerJoinSuccess struct {
	SessionID string           `json:"sessionId"`
	State     *types.GameState `json:"state"`
}

// ServerCardFlip notifies that a card turned face-up.
type ServerCardFlip struct {
	CardID int `json:"cardId"`
}

// ServerPairMatch notifies that the selected pair matched.
type ServerPairMatch struct {
	CardIDs        []int `json:"cardIds"`
	MatchedPairs   int   `json:"matchedPairs"`
	RemainingPairs int   `json:"remainingPairs"`
}

// ServerPairMismatch notifies that the selected pair did not match. The
// cards stay face-up server-side until the mismatch delay elapses, after
// which a fresh snapshot is broadcast.
type ServerPairMismatch struct {
	CardIDs []int `json:"cardIds"`
}

// ServerGameWon notifies that the last pair was matched.
type ServerGameWon struct{}

// ServerGameSnapshot carries a full read-only snapshot of a session.
type ServerGameSnapshot struct {
	SessionID string           `json:"sessionId"`
	State     *types.GameState `json:"state"`
}

// ServerError carries a human-readable failure reason.
type ServerError struct {
	Message string `json:"message"`
}
