package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/cbodonnell/flipside/pkg/game/constants"
	"github.com/cbodonnell/flipside/pkg/game/types"
	"github.com/cbodonnell/flipside/pkg/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testGame struct {
	game   *Game
	sched  *scheduler.ManualScheduler
	events []types.Event
}

func newTestGame(symbols []string) *testGame {
	tg := &testGame{
		sched: scheduler.NewManualScheduler(),
	}
	tg.game = NewGame(NewGameOptions{
		Symbols:   symbols,
		Scheduler: tg.sched,
		Rand:      rand.New(rand.NewSource(1)),
		EventSink: func(event types.Event) {
			tg.events = append(tg.events, event)
		},
	})
	return tg
}

// pairBySymbol returns the two card IDs carrying each symbol.
func pairBySymbol(t *testing.T, state *types.GameState) map[string][]int {
	t.Helper()
	pairs := make(map[string][]int)
	for _, card := range state.Cards {
		pairs[card.Symbol] = append(pairs[card.Symbol], card.ID)
	}
	for symbol, ids := range pairs {
		require.Len(t, ids, 2, "symbol %s", symbol)
	}
	return pairs
}

func eventTypes(events []types.Event) []types.EventType {
	eventTypes := make([]types.EventType, len(events))
	for i, event := range events {
		eventTypes[i] = event.Type
	}
	return eventTypes
}

func TestGame_StartOpensRevealWindow(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	tg.game.Start()

	state := tg.game.Snapshot()
	assert.Equal(t, types.PhaseRevealing, state.Phase)
	for _, card := range state.Cards {
		assert.True(t, card.FaceUp)
	}

	// selections are ignored during the reveal
	tg.game.Select(state.Cards[0].ID)
	assert.Empty(t, tg.events)

	tg.sched.Advance(constants.RevealDuration)
	state = tg.game.Snapshot()
	assert.Equal(t, types.PhaseReady, state.Phase)
	for _, card := range state.Cards {
		assert.False(t, card.FaceUp)
	}
}

func TestGame_SelectBeforeStartIsNoOp(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	tg.game.Select(1)

	assert.Empty(t, tg.events)
	assert.Equal(t, types.PhaseIdle, tg.game.Snapshot().Phase)
}

func TestGame_MatchResolvesSynchronously(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	tg.game.Start()
	pairs := pairBySymbol(t, tg.game.Snapshot())
	tg.sched.Advance(constants.RevealDuration)

	anchor := pairs["anchor"]
	tg.game.Select(anchor[0])

	state := tg.game.Snapshot()
	assert.Equal(t, types.PhaseReady, state.Phase)
	require.Equal(t, []types.EventType{types.EventCardFlip}, eventTypes(tg.events))
	assert.Equal(t, []int{anchor[0]}, tg.events[0].CardIDs)

	tg.game.Select(anchor[1])

	state = tg.game.Snapshot()
	assert.Equal(t, types.PhaseReady, state.Phase)
	assert.Equal(t, 1, state.MatchedPairs)
	for _, card := range state.Cards {
		if card.ID == anchor[0] || card.ID == anchor[1] {
			assert.True(t, card.Matched)
			assert.True(t, card.FaceUp)
		} else {
			assert.False(t, card.Matched)
		}
	}
	require.Equal(t, []types.EventType{
		types.EventCardFlip,
		types.EventCardFlip,
		types.EventPairMatch,
	}, eventTypes(tg.events))
	assert.ElementsMatch(t, anchor, tg.events[2].CardIDs)
}

func TestGame_MismatchHoldsForDelay(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	tg.game.Start()
	pairs := pairBySymbol(t, tg.game.Snapshot())
	tg.sched.Advance(constants.RevealDuration)

	first := pairs["anchor"][0]
	second := pairs["bell"][0]
	tg.game.Select(first)
	tg.game.Select(second)

	state := tg.game.Snapshot()
	assert.Equal(t, types.PhaseEvaluating, state.Phase)
	assert.Equal(t, 0, state.MatchedPairs)
	require.Equal(t, []types.EventType{
		types.EventCardFlip,
		types.EventCardFlip,
		types.EventPairMismatch,
	}, eventTypes(tg.events))

	// input stays locked out while the pair is showing
	tg.game.Select(pairs["anchor"][1])
	assert.Len(t, tg.events, 3)

	// one tick short of the delay, still evaluating
	tg.sched.Advance(constants.MismatchDelay - time.Millisecond)
	assert.Equal(t, types.PhaseEvaluating, tg.game.Snapshot().Phase)

	tg.sched.Advance(time.Millisecond)
	state = tg.game.Snapshot()
	assert.Equal(t, types.PhaseReady, state.Phase)
	for _, card := range state.Cards {
		assert.False(t, card.FaceUp)
		assert.False(t, card.Matched)
	}
}

func TestGame_InvalidSelectionsAreNoOps(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	tg.game.Start()
	pairs := pairBySymbol(t, tg.game.Snapshot())
	tg.sched.Advance(constants.RevealDuration)

	anchor := pairs["anchor"]
	tg.game.Select(anchor[0])
	tg.game.Select(anchor[0]) // already face-up
	tg.game.Select(9999)      // unknown id
	require.Len(t, tg.events, 1)

	tg.game.Select(anchor[1])
	require.Equal(t, types.EventPairMatch, tg.events[len(tg.events)-1].Type)

	// matched cards cannot be selected again
	tg.game.Select(anchor[0])
	assert.Len(t, tg.events, 3)
	assert.Equal(t, 1, tg.game.Snapshot().MatchedPairs)
}

func TestGame_WinOnLastPair(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	tg.game.Start()
	pairs := pairBySymbol(t, tg.game.Snapshot())
	tg.sched.Advance(constants.RevealDuration)

	tg.game.Select(pairs["anchor"][0])
	tg.game.Select(pairs["anchor"][1])
	assert.Equal(t, types.PhaseReady, tg.game.Snapshot().Phase)

	tg.game.Select(pairs["bell"][0])
	tg.game.Select(pairs["bell"][1])

	state := tg.game.Snapshot()
	assert.Equal(t, types.PhaseWon, state.Phase)
	assert.Equal(t, 2, state.MatchedPairs)
	assert.Equal(t, 0, state.RemainingPairs())
	require.Equal(t, []types.EventType{
		types.EventCardFlip,
		types.EventCardFlip,
		types.EventPairMatch,
		types.EventCardFlip,
		types.EventCardFlip,
		types.EventPairMatch,
		types.EventGameWon,
	}, eventTypes(tg.events))

	// terminal until a restart
	tg.game.Select(pairs["anchor"][0])
	assert.Len(t, tg.events, 7)

	tg.game.Restart()
	assert.Equal(t, types.PhaseRevealing, tg.game.Snapshot().Phase)
	assert.Equal(t, 0, tg.game.Snapshot().MatchedPairs)
}

func TestGame_RestartCancelsMismatchTimer(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	tg.game.Start()
	pairs := pairBySymbol(t, tg.game.Snapshot())
	tg.sched.Advance(constants.RevealDuration)

	// leave a mismatch timer in flight, then restart under it
	tg.game.Select(pairs["anchor"][0])
	tg.game.Select(pairs["bell"][0])
	require.Equal(t, types.PhaseEvaluating, tg.game.Snapshot().Phase)

	tg.game.Restart()
	assert.Equal(t, types.PhaseRevealing, tg.game.Snapshot().Phase)
	assert.Equal(t, 1, tg.sched.Pending(), "only the new reveal timer should be pending")

	tg.sched.Advance(constants.RevealDuration)
	state := tg.game.Snapshot()
	assert.Equal(t, types.PhaseReady, state.Phase)

	// the old mismatch delay elapsing must not touch the new deck
	tg.sched.Advance(constants.MismatchDelay)
	assert.Equal(t, state, tg.game.Snapshot())
}

func TestGame_StopCancelsTimers(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	tg.game.Start()
	tg.game.Stop()

	assert.Equal(t, 0, tg.sched.Pending())
	tg.sched.Advance(constants.RevealDuration)
	assert.Equal(t, types.PhaseRevealing, tg.game.Snapshot().Phase, "no transition after stop")
}

func TestGame_StopLocksOutSelections(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	tg.game.Start()
	pairs := pairBySymbol(t, tg.game.Snapshot())
	tg.sched.Advance(constants.RevealDuration)

	tg.game.Stop()
	state := tg.game.Snapshot()
	assert.Equal(t, types.PhaseReady, state.Phase, "stop keeps state for a final snapshot")

	// a stopped game absorbs input and schedules nothing
	tg.game.Select(pairs["anchor"][0])
	tg.game.Select(pairs["bell"][0])
	assert.Empty(t, tg.events)
	assert.Equal(t, 0, tg.sched.Pending())
	assert.Equal(t, state, tg.game.Snapshot())

	// a restart brings it back to life
	tg.game.Restart()
	tg.sched.Advance(constants.RevealDuration)
	tg.game.Select(pairs["anchor"][0])
	require.Len(t, tg.events, 1)
	assert.Equal(t, types.EventCardFlip, tg.events[0].Type)
}

func TestGame_FullGameDefaultPairs(t *testing.T) {
	tg := newTestGame(constants.DefaultSymbols(constants.DefaultPairCount))
	tg.game.Start()

	state := tg.game.Snapshot()
	require.Len(t, state.Cards, 16)
	for _, card := range state.Cards {
		assert.True(t, card.FaceUp)
	}
	pairs := pairBySymbol(t, state)

	tg.sched.Advance(constants.RevealDuration)
	state = tg.game.Snapshot()
	assert.Equal(t, types.PhaseReady, state.Phase)
	for _, card := range state.Cards {
		assert.False(t, card.FaceUp)
	}

	// one match resolves immediately
	tg.game.Select(pairs["anchor"][0])
	tg.game.Select(pairs["anchor"][1])
	assert.Equal(t, 1, tg.game.Snapshot().MatchedPairs)
	assert.Equal(t, types.PhaseReady, tg.game.Snapshot().Phase)

	// one mismatch holds, then flips back with the count unchanged
	tg.game.Select(pairs["bell"][0])
	tg.game.Select(pairs["crown"][0])
	assert.Equal(t, types.PhaseEvaluating, tg.game.Snapshot().Phase)
	tg.sched.Advance(constants.MismatchDelay)
	assert.Equal(t, 1, tg.game.Snapshot().MatchedPairs)

	// clear the rest of the board
	for _, symbol := range constants.DefaultSymbols(constants.DefaultPairCount) {
		if symbol == "anchor" {
			continue
		}
		tg.game.Select(pairs[symbol][0])
		tg.game.Select(pairs[symbol][1])
	}

	state = tg.game.Snapshot()
	assert.Equal(t, types.PhaseWon, state.Phase)
	assert.Equal(t, constants.DefaultPairCount, state.MatchedPairs)
	assert.Equal(t, 0, state.RemainingCards())
	assert.Equal(t, types.EventGameWon, tg.events[len(tg.events)-1].Type)
}

func TestGame_SnapshotIsDeepCopy(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	tg.game.Start()

	state := tg.game.Snapshot()
	state.Cards[0].Matched = true
	state.Cards[0].Symbol = "mutated"

	fresh := tg.game.Snapshot()
	assert.False(t, fresh.Cards[0].Matched)
	assert.NotEqual(t, "mutated", fresh.Cards[0].Symbol)
}

func TestGame_Restore(t *testing.T) {
	tests := []struct {
		name      string
		state     *types.GameState
		wantErr   bool
		wantPhase types.Phase
		wantPairs int
	}{
		{
			name:    "nil state",
			state:   nil,
			wantErr: true,
		},
		{
			name:    "empty state",
			state:   &types.GameState{},
			wantErr: true,
		},
		{
			name: "odd card count",
			state: &types.GameState{
				Cards: []types.Card{{ID: 1, Symbol: "anchor"}},
				Phase: types.PhaseReady,
			},
			wantErr: true,
		},
		{
			name: "ready with one matched pair",
			state: &types.GameState{
				Cards: []types.Card{
					{ID: 1, Symbol: "anchor", Matched: true, FaceUp: true},
					{ID: 2, Symbol: "bell"},
					{ID: 3, Symbol: "anchor", Matched: true, FaceUp: true},
					{ID: 4, Symbol: "bell", FaceUp: true},
				},
				Phase:        types.PhaseReady,
				MatchedPairs: 99, // recomputed from the cards, not trusted
			},
			wantPhase: types.PhaseReady,
			wantPairs: 1,
		},
		{
			name: "evaluating collapses to ready",
			state: &types.GameState{
				Cards: []types.Card{
					{ID: 1, Symbol: "anchor", FaceUp: true},
					{ID: 2, Symbol: "bell", FaceUp: true},
					{ID: 3, Symbol: "anchor"},
					{ID: 4, Symbol: "bell"},
				},
				Phase: types.PhaseEvaluating,
			},
			wantPhase: types.PhaseReady,
			wantPairs: 0,
		},
		{
			name: "revealing restarts the reveal window",
			state: &types.GameState{
				Cards: []types.Card{
					{ID: 1, Symbol: "anchor"},
					{ID: 2, Symbol: "bell", FaceUp: true},
					{ID: 3, Symbol: "anchor"},
					{ID: 4, Symbol: "bell"},
				},
				Phase: types.PhaseRevealing,
			},
			wantPhase: types.PhaseRevealing,
			wantPairs: 0,
		},
		{
			name: "won stays won",
			state: &types.GameState{
				Cards: []types.Card{
					{ID: 1, Symbol: "anchor", Matched: true, FaceUp: true},
					{ID: 2, Symbol: "anchor", Matched: true, FaceUp: true},
				},
				Phase: types.PhaseWon,
			},
			wantPhase: types.PhaseWon,
			wantPairs: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := newTestGame([]string{"anchor", "bell"})
			err := tg.game.Restore(tt.state)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			state := tg.game.Snapshot()
			assert.Equal(t, tt.wantPhase, state.Phase)
			assert.Equal(t, tt.wantPairs, state.MatchedPairs)

			switch tt.wantPhase {
			case types.PhaseRevealing:
				for _, card := range state.Cards {
					assert.True(t, card.FaceUp)
				}
				tg.sched.Advance(constants.RevealDuration)
				assert.Equal(t, types.PhaseReady, tg.game.Snapshot().Phase)
			case types.PhaseReady:
				for _, card := range state.Cards {
					if !card.Matched {
						assert.False(t, card.FaceUp, "unmatched card %d should be face-down", card.ID)
					}
				}
			}
		})
	}
}

func TestGame_RestoredGameIsPlayable(t *testing.T) {
	tg := newTestGame([]string{"anchor", "bell"})
	require.NoError(t, tg.game.Restore(&types.GameState{
		Cards: []types.Card{
			{ID: 1, Symbol: "anchor", Matched: true, FaceUp: true},
			{ID: 2, Symbol: "bell"},
			{ID: 3, Symbol: "anchor", Matched: true, FaceUp: true},
			{ID: 4, Symbol: "bell"},
		},
		Phase: types.PhaseReady,
	}))

	tg.game.Select(2)
	tg.game.Select(4)

	state := tg.game.Snapshot()
	assert.Equal(t, types.PhaseWon, state.Phase)
	assert.Equal(t, 2, state.MatchedPairs)
	assert.Equal(t, types.EventGameWon, tg.events[len(tg.events)-1].Type)
}
