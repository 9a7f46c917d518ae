package store

import (
	"time"

	"github.com/brensch/snekmax/executor/minimax"
	"github.com/brensch/snekmax/game"
)

// DecisionRow records one answered move request, or one replayed turn when
// ActualMove is set.
type DecisionRow struct {
	GameID     string `parquet:"game_id,dict"`
	Turn       int32  `parquet:"turn"`
	YouID      string `parquet:"you_id,dict"`
	Ruleset    string `parquet:"ruleset,dict"`
	RecordedAt int64  `parquet:"recorded_at_ms"`

	StateJSON []byte `parquet:"state_json"`

	Move       string `parquet:"move,dict"`
	ActualMove string `parquet:"actual_move,dict,optional"`

	Candidates []CandidateRow `parquet:"candidates"`

	Depth      int32 `parquet:"depth"`
	Nodes      int64 `parquet:"nodes"`
	ElapsedUS  int64 `parquet:"elapsed_us"`
	OverBudget bool  `parquet:"over_budget"`
	Fallback   bool  `parquet:"fallback"`
}

type CandidateRow struct {
	Move         string  `parquet:"move,dict"`
	Win          int32   `parquet:"win"`
	Territory    int32   `parquet:"territory"`
	FoodDistance int32   `parquet:"food_distance"`
	Threat       int32   `parquet:"threat"`
	Kill         int32   `parquet:"kill"`
	Aggregate    float64 `parquet:"aggregate"`
}

// NewDecisionRow flattens a decision. budget <= 0 never reports over budget.
func NewDecisionRow(gameID string, state *game.GameState, move game.Direction, stats minimax.Stats, budget time.Duration) (DecisionRow, error) {
	js, err := EncodeState(state)
	if err != nil {
		return DecisionRow{}, err
	}
	row := DecisionRow{
		GameID:     gameID,
		Turn:       state.Turn,
		YouID:      state.YouId,
		Ruleset:    state.Ruleset.Name,
		RecordedAt: time.Now().UnixMilli(),
		StateJSON:  js,
		Move:       move.String(),
		Candidates: make([]CandidateRow, len(stats.Candidates)),
		Depth:      int32(stats.Depth),
		Nodes:      int64(stats.Nodes),
		ElapsedUS:  stats.Elapsed.Microseconds(),
		OverBudget: budget > 0 && stats.Elapsed > budget,
		Fallback:   stats.Fallback,
	}
	for i, c := range stats.Candidates {
		row.Candidates[i] = CandidateRow{
			Move:         c.Move.String(),
			Win:          int32(c.Score.Win),
			Territory:    int32(c.Score.Territory),
			FoodDistance: int32(c.Score.FoodDistance),
			Threat:       int32(c.Score.Threat),
			Kill:         int32(c.Score.Kill),
			Aggregate:    c.Score.Aggregate,
		}
	}
	return row, nil
}
