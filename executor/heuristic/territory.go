// Package heuristic scores a board from one snake's point of view.
//
// The main feature is territory: every cell goes to the snake that can reach
// it first, with body segments treated as walls until the tick they vacate.
package heuristic

import (
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/search"
)

// Owner markers for cells no single snake claims.
const (
	NoOwner = -1
	Tied    = -2
)

// Territory is the race partition of the board among the live snakes.
// Slices are indexed like state.Snakes; dead snakes own nothing.
type Territory struct {
	grid  *game.Grid
	dist  [][]int
	owner []int

	// Owned counts the cells each snake reaches strictly first.
	Owned []int
	// Contested counts the cells each snake can reach without owning them.
	Contested []int
}

// timed is a cell paired with the tick a head would arrive there, capped once
// every finite body segment has vacated.
type timed struct {
	p game.Point
	t int32
}

// EstimateTerritory runs one arrival-time search per live snake and assigns
// each reachable cell to the snake with the smallest arrival time. Equal times
// go to the longer snake; equal times and lengths leave the cell Tied.
func EstimateTerritory(state *game.GameState) *Territory {
	return estimateTerritory(state, game.NewGrid(state))
}

func estimateTerritory(state *game.GameState, grid *game.Grid) *Territory {
	n := len(state.Snakes)
	tr := &Territory{
		grid:      grid,
		dist:      make([][]int, n),
		owner:     make([]int, grid.Size()),
		Owned:     make([]int, n),
		Contested: make([]int, n),
	}

	var horizon int32
	for i := range state.Snakes {
		if s := &state.Snakes[i]; s.Alive() && int32(s.Length()) > horizon {
			horizon = int32(s.Length())
		}
	}
	for i := range state.Snakes {
		if s := &state.Snakes[i]; s.Alive() && grid.InBounds(s.Head()) {
			tr.dist[i] = arrivals(grid, s.Head(), horizon)
		}
	}

	for c := range tr.owner {
		owner, bestD, bestLen, tied := NoOwner, 0, 0, false
		for i, d := range tr.dist {
			if d == nil || d[c] < 0 {
				continue
			}
			l := state.Snakes[i].Length()
			switch {
			case owner == NoOwner || d[c] < bestD || (d[c] == bestD && l > bestLen):
				owner, bestD, bestLen, tied = i, d[c], l, false
			case d[c] == bestD && l == bestLen:
				tied = true
			}
		}
		if owner == NoOwner {
			tr.owner[c] = NoOwner
			continue
		}
		if tied {
			owner = Tied
		}
		tr.owner[c] = owner
		for i, d := range tr.dist {
			if d == nil || d[c] < 0 {
				continue
			}
			if i == owner {
				tr.Owned[i]++
			} else {
				tr.Contested[i]++
			}
		}
	}
	return tr
}

// arrivals returns, per dense cell index, the fewest ticks for a head at start
// to enter the cell, or -1 when it never can. The start cell itself only counts
// if the head can come back to it.
func arrivals(grid *game.Grid, start game.Point, horizon int32) []int {
	neighbors := func(n timed) []timed {
		at := n.t + 1
		out := make([]timed, 0, 4)
		for _, q := range grid.Neighbors(n.p) {
			c, _ := grid.Cell(q)
			if c.Hazard || c.Vacates > at {
				continue
			}
			out = append(out, timed{p: q, t: min(at, horizon)})
		}
		return out
	}

	out := make([]int, grid.Size())
	for i := range out {
		out[i] = -1
	}
	for n, d := range search.Distances(timed{p: start}, neighbors) {
		if d == 0 {
			continue
		}
		i := grid.Index(n.p)
		if out[i] < 0 || d < out[i] {
			out[i] = d
		}
	}
	return out
}

// Owner returns the index of the snake owning p, NoOwner or Tied.
func (tr *Territory) Owner(p game.Point) int {
	if !tr.grid.InBounds(p) {
		return NoOwner
	}
	return tr.owner[tr.grid.Index(p)]
}

// Distance is the arrival time of snake i at p, if it can get there.
func (tr *Territory) Distance(i int, p game.Point) (int, bool) {
	if i < 0 || i >= len(tr.dist) || tr.dist[i] == nil || !tr.grid.InBounds(p) {
		return 0, false
	}
	d := tr.dist[i][tr.grid.Index(p)]
	return d, d >= 0
}

// ReachableArea is the number of cells reachable from from through cells a head
// could legally enter next tick, from itself included.
func ReachableArea(state *game.GameState, from game.Point) int {
	return reachableArea(game.NewGrid(state), state.Normalize(from))
}

func reachableArea(grid *game.Grid, from game.Point) int {
	if !grid.InBounds(from) {
		return 0
	}
	include := func(p game.Point) bool {
		if p == from {
			return true
		}
		c, ok := grid.Cell(p)
		return ok && !c.Hazard && c.Vacates <= 1
	}
	return len(search.FloodFill(from, include, grid.Neighbors))
}

// PathToNearestFood returns the shortest legal path from from to the closest
// food, start and food included.
func PathToNearestFood(state *game.GameState, from game.Point) ([]game.Point, bool) {
	return pathToNearestFood(game.NewGrid(state), state.Normalize(from))
}

func pathToNearestFood(grid *game.Grid, from game.Point) ([]game.Point, bool) {
	if !grid.InBounds(from) {
		return nil, false
	}
	passable := func(p game.Point) []game.Point {
		ns := grid.Neighbors(p)
		out := ns[:0]
		for _, q := range ns {
			if c, _ := grid.Cell(q); !c.Hazard && c.Vacates <= 1 {
				out = append(out, q)
			}
		}
		return out
	}
	isFood := func(p game.Point) bool {
		c, _ := grid.Cell(p)
		return c.Food
	}

	target, ok := search.BreadthFirst(from, isFood, passable)
	if !ok {
		return nil, false
	}
	heuristic := func(p game.Point) int { return grid.Distance(p, target) }
	return search.ShortestPath(from, func(p game.Point) bool { return p == target }, passable, heuristic, nil)
}
