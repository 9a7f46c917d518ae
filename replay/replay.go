package replay

import (
	"errors"
	"fmt"

	"github.com/brensch/snekmax/executor/minimax"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/store"
)

var ErrSnakeNotFound = errors.New("snake not in game")

// Turn compares the engine's choice with the move actually played.
type Turn struct {
	Turn   int32
	Engine game.Direction
	Actual game.Direction
	// Known is false on the last turn or when the next frame's head is not
	// adjacent to this one.
	Known bool
	Stats minimax.Stats
}

type Result struct {
	GameID  string
	SnakeID string
	Winner  string

	Turns    []Turn
	Compared int
	Agreed   int

	// Archive has one row per frame with every snake's actual move.
	Archive []store.ArchiveTurnRow
	// Decisions has one row per turn the snake was alive for.
	Decisions []store.DecisionRow
}

// Agreement is the fraction of comparable turns where the engine picked the
// move that was played.
func (r Result) Agreement() float64 {
	if r.Compared == 0 {
		return 0
	}
	return float64(r.Agreed) / float64(r.Compared)
}

// Replay asks the engine for snakeID's move on every frame the snake was
// alive for and scores it against what the snake did.
func Replay(g Game, snakeID string, cfg minimax.Config) (Result, error) {
	if len(g.Frames) == 0 {
		return Result{}, fmt.Errorf("game %s: %w", g.Info.ID, ErrNoFrames)
	}
	res := Result{GameID: g.Info.ID, SnakeID: snakeID, Winner: g.Winner()}
	found := false

	for i := range g.Frames {
		state := g.State(i, snakeID)
		var next *game.GameState
		if i+1 < len(g.Frames) {
			next = g.State(i+1, snakeID)
		}
		moves := actualMoves(state, next)
		res.Archive = append(res.Archive, store.NewArchiveTurnRow(res.GameID, store.SourceReplay, state, moves))

		you, ok := state.You()
		if !ok {
			continue
		}
		found = true
		if !you.Alive() {
			continue
		}

		move, stats := minimax.Decide(state, cfg)
		t := Turn{Turn: state.Turn, Engine: move, Stats: stats}
		t.Actual, t.Known = moves[snakeID]
		res.Turns = append(res.Turns, t)

		row, err := store.NewDecisionRow(res.GameID, state, move, stats, cfg.Budget)
		if err != nil {
			return Result{}, fmt.Errorf("turn %d: %w", state.Turn, err)
		}
		if t.Known {
			res.Compared++
			if t.Actual == t.Engine {
				res.Agreed++
			}
			row.ActualMove = t.Actual.String()
		}
		res.Decisions = append(res.Decisions, row)
	}
	if !found {
		return Result{}, fmt.Errorf("%q in game %s: %w", snakeID, res.GameID, ErrSnakeNotFound)
	}
	store.SetOutcome(res.Archive, res.Winner)
	return res, nil
}

// actualMoves derives each live snake's move from the change in its head.
func actualMoves(state, next *game.GameState) map[string]game.Direction {
	moves := make(map[string]game.Direction)
	if next == nil {
		return moves
	}
	for i := range state.Snakes {
		s := &state.Snakes[i]
		j := next.SnakeIndex(s.Id)
		if !s.Alive() || j < 0 || len(next.Snakes[j].Body) == 0 {
			continue
		}
		d, ok := game.DirectionBetween(s.Head(), next.Snakes[j].Head(), state.Width, state.Height, state.Wrapped())
		if ok {
			moves[s.Id] = d
		}
	}
	return moves
}
