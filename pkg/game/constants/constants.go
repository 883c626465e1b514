package constants

import "time"

const (
	// DefaultPairCount is the number of symbol pairs in a standard game.
	DefaultPairCount = 8
	// RevealDuration is how long the full deck stays face-up at the start
	// of a game before play begins.
	RevealDuration = 1000 * time.Millisecond
	// MismatchDelay is how long a mismatched pair stays face-up before
	// both cards are turned back down.
	MismatchDelay = 800 * time.Millisecond
)

// SymbolAlphabet is the pool of card symbols. A game of P pairs uses the
// first P entries. The values are opaque to the engine; collaborators map
// them to artwork, labels, or tones.
var SymbolAlphabet = []string{
	"anchor",
	"bell",
	"crown",
	"dice",
	"feather",
	"grape",
	"key",
	"leaf",
	"moon",
	"pearl",
	"rocket",
	"star",
}

// DefaultSymbols returns the symbol set for a game of n pairs.
// It panics if n exceeds the alphabet size.
func DefaultSymbols(n int) []string {
	if n < 1 || n > len(SymbolAlphabet) {
		panic("pair count out of range for symbol alphabet")
	}
	symbols := make([]string, n)
	copy(symbols, SymbolAlphabet[:n])
	return symbols
}
