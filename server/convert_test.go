package server

import (
	"errors"
	"testing"
	"time"

	"github.com/brensch/snekmax/game"
)

func TestToGameState(t *testing.T) {
	req := &GameRequest{
		Game: Game{
			ID:  "g",
			Map: "wrapped-constrictor",
			Ruleset: Ruleset{Name: "standard", Settings: RulesetSettings{
				FoodSpawnChance: 15, MinimumFood: 1, HazardDamagePerTurn: 14,
			}},
		},
		Turn: 9,
		Board: Board{
			Width: 11, Height: 11,
			Food:    []Coord{{X: 1, Y: 2}},
			Hazards: []Coord{{X: 0, Y: 0}, {X: 0, Y: 1}},
			Snakes:  []Battlesnake{{ID: "me", Health: 50, Body: []Coord{{X: 5, Y: 5}, {X: 5, Y: 4}}}},
		},
		You: Battlesnake{ID: "me"},
	}
	state, err := ToGameState(req)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !state.Solo || state.Turn != 9 || state.YouId != "me" {
		t.Fatalf("state=%+v", state)
	}
	if !state.Ruleset.Wrapped() || !state.Ruleset.Constrictor() || state.Ruleset.HazardDamagePerTurn != 14 {
		t.Fatalf("ruleset=%+v", state.Ruleset)
	}
	if len(state.Hazards) != 2 || state.Food[0] != (game.Point{X: 1, Y: 2}) {
		t.Fatalf("food=%v hazards=%v", state.Food, state.Hazards)
	}
	if state.Snakes[0].Body[1] != (game.Point{X: 5, Y: 4}) || state.Snakes[0].Health != 50 {
		t.Fatalf("snake=%+v", state.Snakes[0])
	}

	req.You.ID = "ghost"
	if _, err := ToGameState(req); !errors.Is(err, ErrNoYou) {
		t.Fatalf("err=%v want ErrNoYou", err)
	}
	req.You.ID = "me"
	for _, size := range [][2]int{{0, 11}, {11, -1}, {MaxBoardSide + 1, 11}, {11, 100000}} {
		req.Board.Width, req.Board.Height = size[0], size[1]
		if _, err := ToGameState(req); !errors.Is(err, ErrBoardSize) {
			t.Fatalf("board %dx%d: err=%v want ErrBoardSize", size[0], size[1], err)
		}
	}
	req.Board.Width, req.Board.Height = MaxBoardSide, MaxBoardSide
	if _, err := ToGameState(req); err != nil {
		t.Fatalf("largest board rejected: %v", err)
	}
}

func TestMoveBudget(t *testing.T) {
	s := &Server{budget: 400 * time.Millisecond}
	for _, tc := range []struct {
		timeout int
		want    time.Duration
	}{
		{0, 400 * time.Millisecond},
		{1000, 400 * time.Millisecond},
		{500, 300 * time.Millisecond},
		{100, minBudget},
	} {
		if got := s.moveBudget(tc.timeout); got != tc.want {
			t.Fatalf("timeout=%d budget=%s want=%s", tc.timeout, got, tc.want)
		}
	}
	s.budget = 0
	if got := s.moveBudget(500); got != 300*time.Millisecond {
		t.Fatalf("unbounded budget=%s want=300ms", got)
	}
}
