package types

// Card is a single card on the board. IDs are assigned once when the deck
// is created and stay stable for the rest of the game, so collaborators can
// hold on to them across flips.
type Card struct {
	ID      int    `json:"id"`
	Symbol  string `json:"symbol"`
	FaceUp  bool   `json:"faceUp"`
	Matched bool   `json:"matched"`
}
