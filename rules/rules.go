// Package rules advances a game state by one tick.
//
// Resolution is two-phase: every snake first steps independently against the
// pre-tick board (StepSnake), then ApplyTick judges collisions and food against
// everyone's simultaneous new positions.
package rules

import (
	"github.com/brensch/snekmax/game"
)

// DefaultMove is answered when a snake has nothing better to do.
const DefaultMove = game.Up

// Moves returns the directions that do not reverse the snake onto its own neck,
// in game.Directions order. Dead snakes have none.
func Moves(state *game.GameState, s *game.Snake) []game.Direction {
	if !s.Alive() {
		return nil
	}
	neck, hasNeck := s.Neck()
	out := make([]game.Direction, 0, 4)
	for _, d := range game.Directions {
		if hasNeck && state.Normalize(s.Head().Move(d)) == neck {
			continue
		}
		out = append(out, d)
	}
	return out
}

// LegalMoves returns the non-reversing moves whose target cell is on the board,
// hazard-free and not covered by a body that stays put next tick.
func LegalMoves(state *game.GameState, s *game.Snake) []game.Direction {
	cands := Moves(state, s)
	out := cands[:0]
	for _, d := range cands {
		if state.IsLegalCell(s.Head().Move(d)) {
			out = append(out, d)
		}
	}
	return out
}

// StepSnake moves one snake in direction d against the pre-tick state.
// It resolves the new head, growth, food, hazard damage and self or wall
// collisions. Other snakes are not considered; see ApplyTick.
func StepSnake(s *game.Snake, d game.Direction, state *game.GameState) game.Snake {
	if !s.Alive() {
		return *s
	}

	newHead := state.Normalize(s.Head().Move(d))
	ate := state.IsFood(newHead)

	keep := len(s.Body)
	if !ate && !state.Ruleset.Constrictor() {
		keep--
	}
	body := make([]game.Point, 0, keep+1)
	body = append(body, newHead)
	body = append(body, s.Body[:keep]...)

	health := s.Health
	switch {
	case !state.InBounds(newHead) || contains(body[1:], newHead):
		health = 0
	case ate:
		health = game.MaxHealth
	default:
		if state.IsHazard(newHead) {
			health -= state.Ruleset.HazardDamagePerTurn
		}
		health = clampHealth(health - 1)
	}

	return game.Snake{Id: s.Id, Health: health, Body: body}
}

// ApplyTick resolves a tick in which every snake of state has already been
// stepped into moved (same order, same length). Snakes still alive after their
// own step are eliminated when their head meets an equal or longer head, or
// lands on any other live snake's body behind its head. Food under any live
// head is consumed. The returned state shares no snake storage with state.
func ApplyTick(state *game.GameState, moved []game.Snake) *game.GameState {
	out := make([]game.Snake, len(moved))
	copy(out, moved)

	for i := range moved {
		me := &moved[i]
		if !me.Alive() {
			continue
		}
		head := me.Head()
		for j := range moved {
			other := &moved[j]
			if i == j || !other.Alive() {
				continue
			}
			if other.Head() == head && other.Length() >= me.Length() {
				out[i].Health = 0
				break
			}
			if contains(other.Body[1:], head) {
				out[i].Health = 0
				break
			}
		}
	}

	food := state.Food
	for i := range moved {
		if !moved[i].Alive() {
			continue
		}
		if idx := indexOf(food, moved[i].Head()); idx >= 0 {
			next := make([]game.Point, 0, len(food)-1)
			next = append(next, food[:idx]...)
			next = append(next, food[idx+1:]...)
			food = next
		}
	}

	next := state.WithSnakes(out)
	next.Food = food
	next.Turn = state.Turn + 1
	return next
}

// Advance steps every snake with its move and resolves the tick. Live snakes
// missing from moves die, matching a snake that failed to answer.
func Advance(state *game.GameState, moves map[string]game.Direction) *game.GameState {
	moved := make([]game.Snake, len(state.Snakes))
	for i := range state.Snakes {
		s := &state.Snakes[i]
		d, ok := moves[s.Id]
		if !ok {
			moved[i] = *s
			if s.Alive() {
				moved[i].Health = 0
			}
			continue
		}
		moved[i] = StepSnake(s, d, state)
	}
	return ApplyTick(state, moved)
}

// IsGameOver reports whether the game has ended: nobody left in solo games,
// at most one survivor otherwise.
func IsGameOver(state *game.GameState) bool {
	alive := state.AliveCount()
	if state.Solo {
		return alive == 0
	}
	return alive <= 1
}

// Winner returns the id of the last snake standing, if there is exactly one.
func Winner(state *game.GameState) (string, bool) {
	id := ""
	for i := range state.Snakes {
		if state.Snakes[i].Alive() {
			if id != "" {
				return "", false
			}
			id = state.Snakes[i].Id
		}
	}
	return id, id != ""
}

func clampHealth(h int32) int32 {
	if h < 0 {
		return 0
	}
	if h > game.MaxHealth {
		return game.MaxHealth
	}
	return h
}

func contains(ps []game.Point, p game.Point) bool { return indexOf(ps, p) >= 0 }

func indexOf(ps []game.Point, p game.Point) int {
	for i, q := range ps {
		if q == p {
			return i
		}
	}
	return -1
}
