package types

// EventType identifies a game event emitted by the engine.
type EventType string

const (
	// EventCardFlip is emitted when a selection turns a card face-up.
	EventCardFlip EventType = "card_flip"
	// EventPairMatch is emitted when the two selected cards share a symbol.
	EventPairMatch EventType = "pair_match"
	// EventPairMismatch is emitted when the two selected cards differ.
	// The cards stay face-up until the mismatch delay elapses.
	EventPairMismatch EventType = "pair_mismatch"
	// EventGameWon is emitted when the last pair is matched.
	EventGameWon EventType = "game_won"
)

// Event is a notification emitted by the engine to its sink. Payloads are
// minimal: collaborators that need full state ask for a snapshot.
type Event struct {
	Type    EventType `json:"type"`
	CardIDs []int     `json:"cardIds,omitempty"`
}

// ConnectClientEvent tells the session loop a client connected.
type ConnectClientEvent struct {
	ClientID uint32
}

// DisconnectClientEvent tells the session loop a client disconnected.
type DisconnectClientEvent struct {
	ClientID uint32
}
