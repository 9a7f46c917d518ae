// Package minimax picks a move by looking a few ticks ahead over every
// combination of live snakes' moves and scoring the leaves.
package minimax

import (
	"fmt"
	"time"

	"github.com/brensch/snekmax/executor/heuristic"
)

// Policy selects how opponents are modelled inside the tree.
type Policy int

const (
	// MaxN lets every snake pick the line best for itself.
	MaxN Policy = iota
	// Paranoid assumes every opponent plays to hurt the controlled snake.
	Paranoid
)

func (p Policy) String() string {
	switch p {
	case Paranoid:
		return "paranoid"
	default:
		return "maxn"
	}
}

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "maxn":
		return MaxN, nil
	case "paranoid":
		return Paranoid, nil
	}
	return MaxN, fmt.Errorf("unknown search policy %q", s)
}

// Config holds the search knobs. Depth is the main cost/quality trade-off:
// every extra ply multiplies the work by roughly 3^(live snakes).
type Config struct {
	Depth     int
	Policy    Policy
	Weights   heuristic.Weights
	LowHealth int32
	// Budget enables iterative deepening: deeper passes are skipped once the
	// next one is predicted to overrun it. Zero searches straight to Depth.
	Budget time.Duration
}

const DefaultDepth = 3

func DefaultConfig() Config {
	return Config{
		Depth:     DefaultDepth,
		Policy:    MaxN,
		Weights:   heuristic.DefaultWeights,
		LowHealth: heuristic.DefaultLowHealth,
	}
}

func (c Config) params() heuristic.Params {
	return heuristic.Params{Weights: c.Weights, LowHealth: c.LowHealth}
}
