package minimax

import (
	"github.com/brensch/snekmax/executor/heuristic"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/rules"
)

// BestHeuristic is the cheap one-ply answer: move the controlled snake alone,
// keep everyone else where they are, and prefer surviving over the score.
func BestHeuristic(state *game.GameState, cfg Config) game.Direction {
	st := state.Preorder()
	if len(st.Snakes) == 0 || st.Snakes[0].Id != st.YouId || !st.Snakes[0].Alive() {
		return rules.DefaultMove
	}
	cands := rules.LegalMoves(st, &st.Snakes[0])
	if len(cands) == 0 {
		cands = rules.Moves(st, &st.Snakes[0])
	}
	if len(cands) == 0 {
		return rules.DefaultMove
	}
	return bestHeuristic(st, cands, cfg)
}

// bestHeuristic expects st preordered and cands non-empty.
func bestHeuristic(st *game.GameState, cands []game.Direction, cfg Config) game.Direction {
	best := cands[0]
	var bestAlive bool
	var bestScore heuristic.Score
	for i, d := range cands {
		pending := make([]game.Snake, len(st.Snakes))
		copy(pending, st.Snakes)
		pending[0] = rules.StepSnake(&st.Snakes[0], d, st)
		next := rules.ApplyTick(st, pending)

		alive := next.Snakes[0].Alive()
		sc := heuristic.EvaluateSnake(next, 0, cfg.params())
		if i == 0 || (alive && !bestAlive) || (alive == bestAlive && heuristic.Better(sc, bestScore)) {
			best, bestAlive, bestScore = d, alive, sc
		}
	}
	return best
}
