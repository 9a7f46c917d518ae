package heuristic

import (
	"github.com/brensch/snekmax/game"
)

// Weights scale each score term before they are averaged.
type Weights struct {
	Territory float64
	Food      float64
	Threat    float64
	Kill      float64
}

// DefaultWeights favour space and safety over chasing food.
var DefaultWeights = Weights{Territory: 10, Food: 5, Threat: 1000, Kill: 10}

// Sum is the divisor used by Aggregate.
func (w Weights) Sum() float64 { return w.Territory + w.Food + w.Threat + w.Kill }

// DefaultLowHealth is the health under which food distance starts to count.
const DefaultLowHealth int32 = 30

// bumpRange is the head distance at which two snakes can meet next tick.
const bumpRange = 2

// Params configure Evaluate.
type Params struct {
	Weights   Weights
	LowHealth int32
}

func DefaultParams() Params {
	return Params{Weights: DefaultWeights, LowHealth: DefaultLowHealth}
}

// Win terms.
const (
	Lost    = -1
	Ongoing = 0
	Won     = 1
)

// Score is one snake's view of a board. Win dominates everything else; the
// remaining terms are folded into Aggregate.
type Score struct {
	Win int
	// Territory is the number of owned cells.
	Territory int
	// FoodDistance is the path length to the nearest food while hungry, 0 otherwise.
	FoodDistance int
	// Threat counts equal or longer heads within bumping range.
	Threat int
	// Kill counts shorter heads within bumping range when there is room to take them.
	Kill int
	// Aggregate is the weighted sum of the terms divided by the weight sum.
	Aggregate float64
}

// Compare orders scores: win term, then aggregate, then smaller food distance,
// then larger territory. It returns >0 when a is better than b.
func Compare(a, b Score) int {
	switch {
	case a.Win != b.Win:
		return a.Win - b.Win
	case a.Aggregate > b.Aggregate:
		return 1
	case a.Aggregate < b.Aggregate:
		return -1
	case a.FoodDistance != b.FoodDistance:
		return b.FoodDistance - a.FoodDistance
	default:
		return a.Territory - b.Territory
	}
}

// Better reports whether a is strictly better than b.
func Better(a, b Score) bool { return Compare(a, b) > 0 }

// Evaluate scores every snake of state, indexed like state.Snakes.
func Evaluate(state *game.GameState, p Params) []Score {
	grid := game.NewGrid(state)
	tr := estimateTerritory(state, grid)
	out := make([]Score, len(state.Snakes))
	alive := state.AliveCount()
	for i := range state.Snakes {
		out[i] = score(state, grid, tr, alive, i, p)
	}
	return out
}

// EvaluateSnake scores the snake at idx only.
func EvaluateSnake(state *game.GameState, idx int, p Params) Score {
	grid := game.NewGrid(state)
	return score(state, grid, estimateTerritory(state, grid), state.AliveCount(), idx, p)
}

func score(state *game.GameState, grid *game.Grid, tr *Territory, alive, idx int, p Params) Score {
	me := &state.Snakes[idx]
	if !me.Alive() {
		return Score{Win: Lost}
	}

	s := Score{Territory: tr.Owned[idx]}
	if !state.Solo && alive == 1 {
		s.Win = Won
	}

	if me.Health < p.LowHealth && len(state.Food) > 0 {
		if path, ok := pathToNearestFood(grid, me.Head()); ok {
			s.FoodDistance = len(path) - 1
		} else {
			s.FoodDistance = int(state.Width * state.Height)
		}
	}

	kills := 0
	for j := range state.Snakes {
		other := &state.Snakes[j]
		if j == idx || !other.Alive() {
			continue
		}
		if state.Distance(me.Head(), other.Head()) > bumpRange {
			continue
		}
		if other.Length() >= me.Length() {
			s.Threat++
		} else {
			kills++
		}
	}
	if kills > 0 && reachableArea(grid, me.Head()) > me.Length() {
		s.Kill = kills
	}

	w := p.Weights
	if sum := w.Sum(); sum > 0 {
		s.Aggregate = (w.Territory*float64(s.Territory) -
			w.Food*float64(s.FoodDistance) -
			w.Threat*float64(s.Threat) +
			w.Kill*float64(s.Kill)) / sum
	}
	return s
}
