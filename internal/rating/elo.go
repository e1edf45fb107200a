// Package rating computes MMR deltas for finished matches. The engine is
// pure: it never touches the store and has no side effects, so the override
// path can re-run it against a match's initial MMRs any number of times.
package rating

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidResult is returned for a result outside {draw, p1 win, p2 win}.
// Hitting it is a programmer error, not a user error.
var ErrInvalidResult = errors.New("rating: invalid result")

// DefaultKFactor is the constant K used unless configured otherwise.
const DefaultKFactor = 32

// Engine is an Elo rater with a fixed K.
type Engine struct {
	K int
}

// NewEngine returns an engine with the given K factor, falling back to the
// default for non-positive values.
func NewEngine(k int) *Engine {
	if k <= 0 {
		k = DefaultKFactor
	}
	return &Engine{K: k}
}

// Delta returns the signed MMR change for player 1 given both players'
// MMRs before the match and the result (0 draw, 1 p1 won, 2 p2 won).
// Player 2 receives the negation.
func (e *Engine) Delta(p1Before, p2Before, result int) (int, error) {
	var score float64
	switch result {
	case 0:
		score = 0.5
	case 1:
		score = 1.0
	case 2:
		score = 0.0
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidResult, result)
	}

	expected := 1.0 / (1.0 + math.Pow(10, float64(p2Before-p1Before)/400.0))
	return int(math.Round(float64(e.K) * (score - expected))), nil
}
