package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/cbodonnell/flipside/pkg/game/constants"
	"github.com/cbodonnell/flipside/pkg/game/types"
	"github.com/cbodonnell/flipside/pkg/scheduler"
)

// EventSink receives game events as they are emitted. The sink runs with
// the game lock held, possibly on a timer goroutine; it must return quickly
// and must not call back into the Game.
type EventSink func(types.Event)

// Game is the authoritative pairs-matching state machine. It validates
// selections, evaluates matches, drives the timed reveal and mismatch
// transitions, and emits events to its sink. All invalid or out-of-phase
// input is absorbed as a silent no-op.
type Game struct {
	mu           sync.Mutex
	cards        []types.Card
	selection    []int
	phase        types.Phase
	matchedPairs int
	pairs        int

	// generation increments on every start, restart, restore, and stop.
	// Scheduled callbacks carry the generation they were created under and
	// are dropped when it no longer matches, so a timer from a superseded
	// game can never touch the current deck.
	generation uint64

	// stopped locks out selections after Stop until the game is started,
	// restarted, or restored.
	stopped bool

	symbols        []string
	revealDuration time.Duration
	mismatchDelay  time.Duration

	scheduler scheduler.Scheduler
	rng       *rand.Rand
	sink      EventSink
}

// NewGameOptions contains options for creating a new Game.
type NewGameOptions struct {
	// Symbols is the symbol set, one entry per pair. Defaults to the
	// standard alphabet of constants.DefaultPairCount symbols.
	Symbols []string
	// RevealDuration overrides the initial memorize window.
	RevealDuration time.Duration
	// MismatchDelay overrides how long a mismatched pair stays face-up.
	MismatchDelay time.Duration
	// Scheduler issues the reveal and mismatch timers. Defaults to a
	// TimerScheduler.
	Scheduler scheduler.Scheduler
	// Rand seeds the deck shuffle. Defaults to a time-seeded source.
	Rand *rand.Rand
	// EventSink receives game events. Optional.
	EventSink EventSink
}

// NewGame creates a Game in the idle phase. No deck exists until Start.
func NewGame(opts NewGameOptions) *Game {
	symbols := opts.Symbols
	if len(symbols) == 0 {
		symbols = constants.DefaultSymbols(constants.DefaultPairCount)
	}
	revealDuration := opts.RevealDuration
	if revealDuration == 0 {
		revealDuration = constants.RevealDuration
	}
	mismatchDelay := opts.MismatchDelay
	if mismatchDelay == 0 {
		mismatchDelay = constants.MismatchDelay
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = scheduler.NewTimerScheduler()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Game{
		phase:          types.PhaseIdle,
		pairs:          len(symbols),
		symbols:        symbols,
		revealDuration: revealDuration,
		mismatchDelay:  mismatchDelay,
		scheduler:      sched,
		rng:            rng,
		sink:           opts.EventSink,
	}
}

// Start begins a fresh game: every pending timer is cancelled, a new deck
// is dealt face-up, and the reveal timer is scheduled. Selections are
// ignored until the reveal window elapses.
func (g *Game) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.start()
}

// Restart is equivalent to Start. The previous game's timers are cancelled
// first so a stale callback cannot mutate the new deck.
func (g *Game) Restart() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.start()
}

// start resets all state and opens the reveal window.
// Assumes lock is held by caller.
func (g *Game) start() {
	g.scheduler.CancelAll()
	g.generation++
	g.stopped = false
	g.cards = NewDeck(g.symbols, g.rng)
	g.pairs = len(g.symbols)
	g.selection = g.selection[:0]
	g.matchedPairs = 0
	g.phase = types.PhaseRevealing
	g.scheduleAfter(g.revealDuration, g.endReveal)
}

// Stop cancels all pending timers, invalidates any in-flight callbacks, and
// stops accepting selections. The game keeps its current state so a final
// snapshot can be taken; Start, Restart, or Restore bring it back to life.
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scheduler.CancelAll()
	g.generation++
	g.stopped = true
}

// Select applies a card selection. It is a silent no-op when the game is
// not accepting input, the id does not resolve, or the card is already
// matched or face-up. A valid selection flips the card and, when it is the
// second of the turn, evaluates the pair synchronously.
func (g *Game) Select(cardID int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped || g.phase != types.PhaseReady {
		return
	}
	card := g.cardByID(cardID)
	if card == nil || card.Matched || card.FaceUp {
		return
	}

	card.FaceUp = true
	g.selection = append(g.selection, cardID)
	g.emit(types.Event{Type: types.EventCardFlip, CardIDs: []int{cardID}})

	if len(g.selection) < 2 {
		return
	}
	g.phase = types.PhaseEvaluating
	g.evaluate()
}

// evaluate resolves the two buffered selections.
// Assumes lock is held by caller and selection has length 2.
func (g *Game) evaluate() {
	first := g.cardByID(g.selection[0])
	second := g.cardByID(g.selection[1])
	if first == nil || second == nil {
		// A buffered id that no longer resolves means the deck was
		// replaced out from under the turn. Drop the selection and
		// unlock the board rather than propagating an error.
		g.selection = g.selection[:0]
		g.phase = types.PhaseReady
		return
	}

	if first.Symbol != second.Symbol {
		g.emit(types.Event{Type: types.EventPairMismatch, CardIDs: []int{first.ID, second.ID}})
		g.scheduleAfter(g.mismatchDelay, g.endMismatch)
		return
	}

	first.Matched = true
	second.Matched = true
	g.matchedPairs++
	cardIDs := []int{first.ID, second.ID}
	g.selection = g.selection[:0]
	g.emit(types.Event{Type: types.EventPairMatch, CardIDs: cardIDs})

	if g.matchedPairs == g.pairs {
		g.phase = types.PhaseWon
		g.emit(types.Event{Type: types.EventGameWon})
		return
	}
	g.phase = types.PhaseReady
}

// endReveal closes the memorize window: all cards turn face-down and the
// board starts accepting selections.
// Assumes lock is held by caller.
func (g *Game) endReveal() {
	for i := range g.cards {
		g.cards[i].FaceUp = false
	}
	g.phase = types.PhaseReady
}

// endMismatch turns the mismatched pair back down and unlocks the board.
// Assumes lock is held by caller.
func (g *Game) endMismatch() {
	for _, id := range g.selection {
		if card := g.cardByID(id); card != nil {
			card.FaceUp = false
		}
	}
	g.selection = g.selection[:0]
	g.phase = types.PhaseReady
}

// Snapshot returns a deep copy of the current game state.
func (g *Game) Snapshot() *types.GameState {
	g.mu.Lock()
	defer g.mu.Unlock()

	cards := make([]types.Card, len(g.cards))
	copy(cards, g.cards)
	return &types.GameState{
		Cards:        cards,
		Phase:        g.phase,
		MatchedPairs: g.matchedPairs,
	}
}

// Restore rebuilds the game from a persisted snapshot. Transient phases
// are normalized: a snapshot taken mid-reveal restarts the reveal window,
// and one taken mid-evaluation collapses to the ready phase with the
// selection cleared and unmatched cards face-down. The matched pair count
// is recomputed from the cards rather than trusted.
func (g *Game) Restore(state *types.GameState) error {
	if state == nil || len(state.Cards) == 0 {
		return fmt.Errorf("empty game state")
	}
	if len(state.Cards)%2 != 0 {
		return fmt.Errorf("odd card count %d", len(state.Cards))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.scheduler.CancelAll()
	g.generation++
	g.stopped = false

	g.cards = make([]types.Card, len(state.Cards))
	copy(g.cards, state.Cards)
	g.pairs = len(g.cards) / 2
	g.selection = g.selection[:0]

	matched := 0
	for _, card := range g.cards {
		if card.Matched {
			matched++
		}
	}
	if matched%2 != 0 {
		return fmt.Errorf("odd matched card count %d", matched)
	}
	g.matchedPairs = matched / 2

	switch state.Phase {
	case types.PhaseIdle:
		g.phase = types.PhaseIdle
	case types.PhaseWon:
		g.phase = types.PhaseWon
	case types.PhaseRevealing:
		for i := range g.cards {
			g.cards[i].FaceUp = true
		}
		g.phase = types.PhaseRevealing
		g.scheduleAfter(g.revealDuration, g.endReveal)
	default:
		for i := range g.cards {
			if !g.cards[i].Matched {
				g.cards[i].FaceUp = false
			}
		}
		g.phase = types.PhaseReady
	}

	return nil
}

// scheduleAfter schedules fn under the current generation. The callback
// takes the game lock and is dropped if the game was restarted, restored,
// or stopped in the meantime.
// Assumes lock is held by caller.
func (g *Game) scheduleAfter(d time.Duration, fn func()) {
	gen := g.generation
	g.scheduler.After(d, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		if gen != g.generation {
			return
		}
		fn()
	})
}

// cardByID returns a pointer into the live deck, or nil.
// Assumes lock is held by caller.
func (g *Game) cardByID(cardID int) *types.Card {
	for i := range g.cards {
		if g.cards[i].ID == cardID {
			return &g.cards[i]
		}
	}
	return nil
}

// emit delivers an event to the sink, if one is set.
// Assumes lock is held by caller.
func (g *Game) emit(event types.Event) {
	if g.sink != nil {
		g.sink(event)
	}
}
