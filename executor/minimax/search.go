package minimax

import (
	"time"

	"github.com/brensch/snekmax/executor/heuristic"
	"github.com/brensch/snekmax/game"
	"github.com/brensch/snekmax/rules"
)

// Candidate is a root move and the score its best line leads to.
type Candidate struct {
	Move  game.Direction
	Score heuristic.Score
}

// Stats describe one decision for the caller to log or record.
type Stats struct {
	// Depth is the deepest completed pass.
	Depth   int
	Nodes   int
	Elapsed time.Duration
	// Fallback is set when the one-ply scorer overrode the tree.
	Fallback   bool
	Candidates []Candidate
}

// Decide returns the controlled snake's move. It never fails: with no snake
// to move or no moves to try it answers rules.DefaultMove.
//
// Snakes take turns inside a ply but their steps are only applied together
// once the last live snake has chosen, so collisions are judged on
// simultaneous positions exactly as the game does.
func Decide(state *game.GameState, cfg Config) (game.Direction, Stats) {
	start := time.Now()
	var stats Stats

	st := state.Preorder()
	if len(st.Snakes) == 0 || st.Snakes[0].Id != st.YouId || !st.Snakes[0].Alive() {
		stats.Elapsed = time.Since(start)
		return rules.DefaultMove, stats
	}
	you := &st.Snakes[0]

	cands := rules.LegalMoves(st, you)
	if len(cands) == 0 {
		cands = rules.Moves(st, you)
	}
	if len(cands) == 0 {
		stats.Elapsed = time.Since(start)
		return rules.DefaultMove, stats
	}

	depth := max(cfg.Depth, 1)
	s := &searcher{cfg: cfg}
	first := depth
	if cfg.Budget > 0 {
		first = 1
	}
	growth := time.Duration(1)
	for range st.AliveCount() {
		growth *= 3
	}
	for d := first; d <= depth; d++ {
		passStart := time.Now()
		stats.Candidates = s.root(st, cands, d)
		stats.Depth = d
		if cfg.Budget <= 0 {
			continue
		}
		pass := time.Since(passStart)
		if time.Since(start)+pass*growth > cfg.Budget {
			break
		}
	}
	stats.Nodes = s.nodes

	best := stats.Candidates[0]
	for _, c := range stats.Candidates[1:] {
		if heuristic.Better(c.Score, best.Score) {
			best = c
		}
	}

	move := best.Move
	target := st.Normalize(you.Head().Move(move))
	if best.Score.Win == heuristic.Lost || !st.InBounds(target) {
		move = bestHeuristic(st, cands, cfg)
		stats.Fallback = move != best.Move
	}
	stats.Elapsed = time.Since(start)
	return move, stats
}

type searcher struct {
	cfg   Config
	nodes int
}

func (s *searcher) root(st *game.GameState, cands []game.Direction, depth int) []Candidate {
	out := make([]Candidate, 0, len(cands))
	you := &st.Snakes[0]
	for _, d := range cands {
		pending := make([]game.Snake, len(st.Snakes))
		copy(pending, st.Snakes)
		pending[0] = rules.StepSnake(you, d, st)
		res := s.ply(st, pending, depth, 1)
		out = append(out, Candidate{Move: d, Score: res[0]})
	}
	return out
}

// ply expands the snake at idx on the board base. pending holds the snakes
// already stepped this ply; once idx runs past the last snake the tick is
// applied and the next ply starts, or the leaf is scored.
func (s *searcher) ply(base *game.GameState, pending []game.Snake, depth, idx int) []heuristic.Score {
	s.nodes++
	if idx >= len(base.Snakes) {
		next := rules.ApplyTick(base, pending)
		if depth <= 1 || !next.Snakes[0].Alive() || rules.IsGameOver(next) {
			return heuristic.Evaluate(next, s.cfg.params())
		}
		fresh := make([]game.Snake, len(next.Snakes))
		copy(fresh, next.Snakes)
		return s.ply(next, fresh, depth-1, 0)
	}

	snake := &base.Snakes[idx]
	if !snake.Alive() {
		return s.ply(base, pending, depth, idx+1)
	}

	var best []heuristic.Score
	for _, d := range rules.Moves(base, snake) {
		branch := make([]game.Snake, len(pending))
		copy(branch, pending)
		branch[idx] = rules.StepSnake(snake, d, base)
		res := s.ply(base, branch, depth, idx+1)
		if best == nil || s.prefer(idx, res, best) {
			best = res
		}
	}
	return best
}

// prefer reports whether the snake at idx picks cand over best.
func (s *searcher) prefer(idx int, cand, best []heuristic.Score) bool {
	if s.cfg.Policy == Paranoid && idx != 0 {
		return heuristic.Better(best[0], cand[0])
	}
	return heuristic.Better(cand[idx], best[idx])
}
