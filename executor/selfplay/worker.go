// Package selfplay runs local games where every snake is driven by the
// decision engine, recording one archive row per turn.
package selfplay

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/snekmax/executor/minimax"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/rules"
	"github.com/brensch/snekmax/store"
)

type Options struct {
	Snakes  int
	Width   int32
	Height  int32
	Ruleset game.Ruleset
	// MaxTurns ends a game early as a draw unless one snake is left. Zero
	// means play until the game is over.
	MaxTurns int
	// Seed drives food placement. Zero picks one from the clock.
	Seed int64
	// OnTurn sees every state before its moves are chosen, and the final one.
	OnTurn func(*game.GameState)
}

func DefaultOptions() Options {
	return Options{
		Snakes:   2,
		Width:    11,
		Height:   11,
		Ruleset:  game.Ruleset{Name: game.RulesetStandard, MinimumFood: 1, FoodSpawnChance: 15},
		MaxTurns: 500,
	}
}

type GameResult struct {
	GameID   string
	WinnerID string
	Turns    int
}

var ErrBadOptions = errors.New("invalid self-play options")

// PlayGame plays one game to the end. Rows cover every turn plus the terminal
// state, with values filled from the outcome. A cancelled context abandons
// the game and returns ctx.Err().
func PlayGame(ctx context.Context, cfg minimax.Config, opts Options) ([]store.ArchiveTurnRow, GameResult, error) {
	state, err := NewGame(opts)
	if err != nil {
		return nil, GameResult{}, err
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	settings := rules.FoodSettingsFor(state.Ruleset)
	state = rules.SpawnFood(state, rng, rules.FoodSettings{MinimumFood: settings.MinimumFood})

	gameID := uuid.NewString()
	rows := make([]store.ArchiveTurnRow, 0, 256)

	for !rules.IsGameOver(state) && (opts.MaxTurns <= 0 || int(state.Turn) < opts.MaxTurns) {
		if err := ctx.Err(); err != nil {
			return nil, GameResult{GameID: gameID, Turns: int(state.Turn)}, err
		}
		if opts.OnTurn != nil {
			opts.OnTurn(state)
		}

		moves := chooseMoves(state, cfg)
		rows = append(rows, store.NewArchiveTurnRow(gameID, store.SourceArena, state, moves))
		state = rules.SpawnFood(rules.Advance(state, moves), rng, settings)
	}
	if opts.OnTurn != nil {
		opts.OnTurn(state)
	}

	rows = append(rows, store.NewArchiveTurnRow(gameID, store.SourceArena, state, nil))
	winner, _ := rules.Winner(state)
	store.SetOutcome(rows, winner)
	return rows, GameResult{GameID: gameID, WinnerID: winner, Turns: int(state.Turn)}, nil
}

// chooseMoves asks the engine for every live snake's move in parallel, each
// from its own point of view.
func chooseMoves(state *game.GameState, cfg minimax.Config) map[string]game.Direction {
	moves := make(map[string]game.Direction, len(state.Snakes))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range state.Snakes {
		if !state.Snakes[i].Alive() {
			continue
		}
		id := state.Snakes[i].Id
		wg.Go(func() {
			local := state.Clone()
			local.YouId = id
			move, _ := minimax.Decide(local, cfg)
			mu.Lock()
			moves[id] = move
			mu.Unlock()
		})
	}
	wg.Wait()
	return moves
}

// NewGame lays out opts.Snakes snakes of length three, stacked on their start
// cell, one per corner inset by a cell.
func NewGame(opts Options) (*game.GameState, error) {
	if opts.Snakes < 1 || opts.Snakes > 4 {
		return nil, fmt.Errorf("%d snakes: %w", opts.Snakes, ErrBadOptions)
	}
	if opts.Width < 3 || opts.Height < 3 {
		return nil, fmt.Errorf("%dx%d board: %w", opts.Width, opts.Height, ErrBadOptions)
	}
	starts := []game.Point{
		{X: 1, Y: 1},
		{X: opts.Width - 2, Y: opts.Height - 2},
		{X: 1, Y: opts.Height - 2},
		{X: opts.Width - 2, Y: 1},
	}
	state := &game.GameState{
		Width:   opts.Width,
		Height:  opts.Height,
		Ruleset: opts.Ruleset,
		Solo:    opts.Snakes == 1,
		Snakes:  make([]game.Snake, opts.Snakes),
	}
	if state.Ruleset.Name == "" {
		state.Ruleset.Name = game.RulesetStandard
	}
	for i := range state.Snakes {
		p := starts[i]
		state.Snakes[i] = game.Snake{
			Id:     uuid.NewString(),
			Health: game.MaxHealth,
			Body:   []game.Point{p, p, p},
		}
	}
	state.YouId = state.Snakes[0].Id
	return state, nil
}
