package server

import (
	"errors"
	"fmt"

	"github.com/brensch/snekmax/game"
)

var (
	// ErrNoYou is returned when the request's own snake is missing from the board.
	ErrNoYou = errors.New("you are not on the board")
	// ErrBoardSize is returned for boards with a side outside [1, MaxBoardSide].
	ErrBoardSize = errors.New("board size out of range")
)

// MaxBoardSide bounds each board dimension. Every evaluation allocates a
// width*height grid.
const MaxBoardSide = 255

// ToGameState converts a request into the engine's snapshot. Solo is derived
// from the snake count.
func ToGameState(req *GameRequest) (*game.GameState, error) {
	if req.Board.Width <= 0 || req.Board.Height <= 0 || req.Board.Width > MaxBoardSide || req.Board.Height > MaxBoardSide {
		return nil, fmt.Errorf("board %dx%d: %w", req.Board.Width, req.Board.Height, ErrBoardSize)
	}
	state := &game.GameState{
		Width:   int32(req.Board.Width),
		Height:  int32(req.Board.Height),
		YouId:   req.You.ID,
		Turn:    int32(req.Turn),
		Food:    coords(req.Board.Food),
		Hazards: coords(req.Board.Hazards),
		Snakes:  make([]game.Snake, len(req.Board.Snakes)),
		Ruleset: game.Ruleset{
			Name:                game.RulesetName(req.Game.Ruleset.Name, req.Game.Map),
			FoodSpawnChance:     int32(req.Game.Ruleset.Settings.FoodSpawnChance),
			MinimumFood:         int32(req.Game.Ruleset.Settings.MinimumFood),
			HazardDamagePerTurn: int32(req.Game.Ruleset.Settings.HazardDamagePerTurn),
		},
		Solo: len(req.Board.Snakes) == 1,
	}
	for i, s := range req.Board.Snakes {
		state.Snakes[i] = game.Snake{Id: s.ID, Health: int32(s.Health), Body: coords(s.Body)}
	}
	if state.SnakeIndex(state.YouId) < 0 {
		return nil, fmt.Errorf("snake %q: %w", req.You.ID, ErrNoYou)
	}
	return state, nil
}

func coords(cs []Coord) []game.Point {
	if len(cs) == 0 {
		return nil
	}
	ps := make([]game.Point, len(cs))
	for i, c := range cs {
		ps[i] = game.Point{X: int32(c.X), Y: int32(c.Y)}
	}
	return ps
}
