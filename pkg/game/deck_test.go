package game

import (
	"math/rand"
	"testing"

	"github.com/cbodonnell/flipside/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeck(t *testing.T) {
	symbols := []string{"anchor", "bell", "crown", "dice"}
	deck := NewDeck(symbols, rand.New(rand.NewSource(1)))

	require.Len(t, deck, 2*len(symbols))

	counts := make(map[string]int)
	seenIDs := make(map[int]bool)
	for i, card := range deck {
		counts[card.Symbol]++
		assert.True(t, card.FaceUp, "card %d should start face-up", card.ID)
		assert.False(t, card.Matched, "card %d should start unmatched", card.ID)
		assert.Equal(t, i+1, card.ID, "IDs are positional")
		assert.False(t, seenIDs[card.ID], "IDs are unique")
		seenIDs[card.ID] = true
	}
	for _, symbol := range symbols {
		assert.Equal(t, 2, counts[symbol], "two cards per symbol")
	}
}

func TestNewDeck_Deterministic(t *testing.T) {
	symbols := []string{"anchor", "bell", "crown", "dice", "feather", "grape"}

	first := NewDeck(symbols, rand.New(rand.NewSource(42)))
	second := NewDeck(symbols, rand.New(rand.NewSource(42)))
	assert.Equal(t, first, second, "same seed produces the same order")

	third := NewDeck(symbols, rand.New(rand.NewSource(43)))
	assert.NotEqual(t, symbolsInOrder(first), symbolsInOrder(third), "different seed produces a different order")
}

func TestNewDeck_PositionOccupancyUniform(t *testing.T) {
	symbols := []string{"anchor", "bell", "crown", "dice"}
	rng := rand.New(rand.NewSource(99))
	const runs = 5000

	// occupancy[position][symbol] counts how often each symbol lands at
	// each position across many shuffles
	occupancy := make([]map[string]int, 2*len(symbols))
	for i := range occupancy {
		occupancy[i] = make(map[string]int)
	}
	for run := 0; run < runs; run++ {
		for i, card := range NewDeck(symbols, rng) {
			occupancy[i][card.Symbol]++
		}
	}

	// each of the 4 symbols occupies 2 of 8 slots, so every position sees
	// each symbol with probability 1/4
	expected := float64(runs) / float64(len(symbols))
	tolerance := 0.15 * expected
	for position, counts := range occupancy {
		for _, symbol := range symbols {
			count := float64(counts[symbol])
			assert.InDelta(t, expected, count, tolerance,
				"symbol %s at position %d: got %v, expected %v +/- %v",
				symbol, position, count, expected, tolerance)
		}
	}
}

func TestNewDeck_FreshBackingStorage(t *testing.T) {
	symbols := []string{"anchor", "bell"}
	rng := rand.New(rand.NewSource(7))

	first := NewDeck(symbols, rng)
	second := NewDeck(symbols, rng)

	first[0].Symbol = "mutated"
	first[0].Matched = true
	for _, card := range second {
		assert.NotEqual(t, "mutated", card.Symbol)
		assert.False(t, card.Matched)
	}
}

func symbolsInOrder(cards []types.Card) []string {
	symbols := make([]string, len(cards))
	for i, card := range cards {
		symbols[i] = card.Symbol
	}
	return symbols
}
