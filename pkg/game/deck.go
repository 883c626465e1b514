package game

import (
	"math/rand"

	"github.com/cbodonnell/flipside/pkg/game/types"
)

// NewDeck builds a shuffled deck of two cards per symbol, all face-up for
// the initial memorize reveal. The randomness source is injected so tests
// can seed it. Every call allocates fresh backing storage.
func NewDeck(symbols []string, rng *rand.Rand) []types.Card {
	cards := make([]types.Card, 0, 2*len(symbols))
	for _, symbol := range symbols {
		cards = append(cards,
			types.Card{Symbol: symbol, FaceUp: true},
			types.Card{Symbol: symbol, FaceUp: true},
		)
	}

	// Fisher-Yates: walk down from the top card, swapping each position
	// with a uniform pick at or below it.
	for i := len(cards) - 1; i >= 1; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}

	// IDs are positional and assigned after the shuffle so they remain
	// stable references for the rest of the game.
	for i := range cards {
		cards[i].ID = i + 1
	}

	return cards
}
