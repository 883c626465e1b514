package types

// Phase is the engine's top-level mode. It gates which inputs are accepted:
// selections are only honored while the phase is PhaseReady.
type Phase string

const (
	// PhaseIdle means no game has been started yet.
	PhaseIdle Phase = "idle"
	// PhaseRevealing is the initial memorize window with every card
	// face-up. Input is ignored until the reveal timer fires.
	PhaseRevealing Phase = "revealing"
	// PhaseReady accepts selections.
	PhaseReady Phase = "ready"
	// PhaseEvaluating means a second card was just selected and the pair
	// is being resolved. Input is ignored until evaluation completes.
	PhaseEvaluating Phase = "evaluating"
	// PhaseWon is terminal until a restart.
	PhaseWon Phase = "won"
)

// GameState is a read-only snapshot of a game. The engine owns the only
// mutable copy; collaborators receive copies and must not expect writes to
// be observed.
type GameState struct {
	Cards        []Card `json:"cards"`
	Phase        Phase  `json:"phase"`
	MatchedPairs int    `json:"matchedPairs"`
}

// PairCount returns the total number of pairs in the deck.
func (s *GameState) PairCount() int {
	return len(s.Cards) / 2
}

// RemainingPairs returns the number of pairs not yet matched.
func (s *GameState) RemainingPairs() int {
	return s.PairCount() - s.MatchedPairs
}

// RemainingCards returns the number of cards not yet matched.
func (s *GameState) RemainingCards() int {
	return 2 * s.RemainingPairs()
}

// Copy returns a deep copy of the state.
func (s *GameState) Copy() *GameState {
	cards := make([]Card, len(s.Cards))
	copy(cards, s.Cards)
	return &GameState{
		Cards:        cards,
		Phase:        s.Phase,
		MatchedPairs: s.MatchedPairs,
	}
}
