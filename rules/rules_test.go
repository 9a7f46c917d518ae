package rules

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/brensch/snekmax/game"
)

func logTick(t *testing.T, name string, before *game.GameState, moves map[string]game.Direction, after *game.GameState) {
	t.Helper()
	ids := make([]string, 0, len(moves))
	for id := range moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var mv strings.Builder
	mv.WriteString("Moves:")
	for _, id := range ids {
		fmt.Fprintf(&mv, " %s=%s", id, moves[id])
	}
	mv.WriteByte('\n')
	t.Logf("=== %s ===\nBefore:\n%s\n%s%sAfter:\n%s\n%s", name,
		game.Describe(before), game.Render(before), mv.String(), game.Describe(after), game.Render(after))
}

func wantBody(t *testing.T, name string, got, want []game.Point) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s body len=%d want=%d (%v)", name, len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s body[%d]=%v want=%v", name, i, got[i], want[i])
		}
	}
}

func soloState(w, h int32, health int32, body []game.Point, food []game.Point) *game.GameState {
	return &game.GameState{
		Width:  w,
		Height: h,
		YouId:  "me",
		Snakes: []game.Snake{{Id: "me", Health: health, Body: body}},
		Food:   food,
	}
}

func TestAdvance_NormalMove_NoFood(t *testing.T) {
	before := soloState(7, 7, 10, []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}}, nil)
	moves := map[string]game.Direction{"me": game.Up}
	after := Advance(before, moves)
	logTick(t, "normal move", before, moves, after)

	wantBody(t, "me", after.Snakes[0].Body, []game.Point{{X: 3, Y: 4}, {X: 3, Y: 3}, {X: 3, Y: 2}})
	if after.Snakes[0].Health != 9 {
		t.Fatalf("health=%d want=9", after.Snakes[0].Health)
	}
	if after.Turn != 1 {
		t.Fatalf("turn=%d want=1", after.Turn)
	}
	wantBody(t, "before", before.Snakes[0].Body, []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}})
}

func TestAdvance_EatFood_GrowsByKeepingTail(t *testing.T) {
	before := soloState(7, 7, 10, []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}}, []game.Point{{X: 3, Y: 4}})
	moves := map[string]game.Direction{"me": game.Up}
	after := Advance(before, moves)
	logTick(t, "eat food", before, moves, after)

	wantBody(t, "me", after.Snakes[0].Body, []game.Point{{X: 3, Y: 4}, {X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}})
	if after.Snakes[0].Health != game.MaxHealth {
		t.Fatalf("health=%d want=%d", after.Snakes[0].Health, game.MaxHealth)
	}
	if len(after.Food) != 0 {
		t.Fatalf("food len=%d want=0", len(after.Food))
	}
	if len(before.Food) != 1 {
		t.Fatalf("input food mutated: len=%d want=1", len(before.Food))
	}
}

func TestAdvance_StackedSpawn(t *testing.T) {
	stacked := []game.Point{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}

	before := soloState(7, 7, 10, stacked, []game.Point{{X: 1, Y: 2}})
	after := Advance(before, map[string]game.Direction{"me": game.Up})
	wantBody(t, "eat", after.Snakes[0].Body, []game.Point{{X: 1, Y: 2}, {X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}})

	before = soloState(7, 7, 10, stacked, nil)
	after = Advance(before, map[string]game.Direction{"me": game.Up})
	wantBody(t, "move", after.Snakes[0].Body, []game.Point{{X: 1, Y: 2}, {X: 1, Y: 1}, {X: 1, Y: 1}})
	if !after.Snakes[0].Alive() {
		t.Fatalf("stacked snake died stepping off its spawn")
	}
}

func TestStepSnake_WrapsAcrossEdge(t *testing.T) {
	before := soloState(11, 11, 50, []game.Point{{X: 0, Y: 5}, {X: 1, Y: 5}, {X: 2, Y: 5}}, nil)
	before.Ruleset = game.Ruleset{Name: game.RulesetWrapped}

	got := StepSnake(&before.Snakes[0], game.Left, before)
	wantBody(t, "me", got.Body, []game.Point{{X: 10, Y: 5}, {X: 0, Y: 5}, {X: 1, Y: 5}})
	if got.Health != 49 {
		t.Fatalf("health=%d want=49", got.Health)
	}

	before.Snakes[0].Body = []game.Point{{X: 4, Y: 10}, {X: 4, Y: 9}, {X: 4, Y: 8}}
	got = StepSnake(&before.Snakes[0], game.Up, before)
	if got.Head() != (game.Point{X: 4, Y: 0}) {
		t.Fatalf("head=%v want=(4,0)", got.Head())
	}
}

func TestStepSnake_LeavingBoardKills(t *testing.T) {
	before := soloState(11, 11, 50, []game.Point{{X: 0, Y: 5}, {X: 1, Y: 5}, {X: 2, Y: 5}}, nil)
	got := StepSnake(&before.Snakes[0], game.Left, before)
	if got.Alive() {
		t.Fatalf("snake survived leaving the board: health=%d head=%v", got.Health, got.Head())
	}
}

func TestStepSnake_SelfCollisionKills(t *testing.T) {
	// Curled so that moving right lands on a segment that does not vacate.
	body := []game.Point{{X: 2, Y: 2}, {X: 2, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}}
	before := soloState(7, 7, 50, body, nil)
	got := StepSnake(&before.Snakes[0], game.Right, before)
	if got.Alive() {
		t.Fatalf("snake survived biting itself: %v", got.Body)
	}
}

func TestStepSnake_ChasingOwnTailIsSafe(t *testing.T) {
	// A 2x2 loop: the head moves into the cell the tail is leaving.
	body := []game.Point{{X: 2, Y: 2}, {X: 2, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 2}}
	before := soloState(7, 7, 50, body, nil)
	got := StepSnake(&before.Snakes[0], game.Right, before)
	if !got.Alive() {
		t.Fatalf("snake died chasing its tail: %v", got.Body)
	}
}

func TestStepSnake_HazardDamage(t *testing.T) {
	before := soloState(7, 7, 100, []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}}, nil)
	before.Hazards = []game.Point{{X: 3, Y: 4}}
	before.Ruleset = game.Ruleset{Name: game.RulesetRoyale, HazardDamagePerTurn: 14}

	got := StepSnake(&before.Snakes[0], game.Up, before)
	if got.Health != 85 {
		t.Fatalf("health=%d want=85", got.Health)
	}

	before.Snakes[0].Health = 10
	got = StepSnake(&before.Snakes[0], game.Up, before)
	if got.Alive() {
		t.Fatalf("health=%d want dead after hazard damage exceeds health", got.Health)
	}
}

func TestStepSnake_ConstrictorAlwaysGrows(t *testing.T) {
	before := soloState(7, 7, 100, []game.Point{{X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}}, nil)
	before.Ruleset = game.Ruleset{Name: game.RulesetConstrictor}

	got := StepSnake(&before.Snakes[0], game.Up, before)
	wantBody(t, "me", got.Body, []game.Point{{X: 3, Y: 4}, {X: 3, Y: 3}, {X: 3, Y: 2}, {X: 3, Y: 1}})
}

func TestApplyTick_EqualHeadOnKillsBoth(t *testing.T) {
	before := &game.GameState{
		Width:  11,
		Height: 11,
		YouId:  "a",
		Snakes: []game.Snake{
			{Id: "a", Health: 90, Body: []game.Point{{X: 2, Y: 3}, {X: 1, Y: 3}, {X: 0, Y: 3}}},
			{Id: "b", Health: 90, Body: []game.Point{{X: 4, Y: 3}, {X: 5, Y: 3}, {X: 6, Y: 3}}},
		},
	}
	moves := map[string]game.Direction{"a": game.Right, "b": game.Left}
	after := Advance(before, moves)
	logTick(t, "equal head-on", before, moves, after)

	for _, s := range after.Snakes {
		if s.Alive() {
			t.Fatalf("snake %s survived an equal head-on at %v", s.Id, s.Head())
		}
	}
	if !IsGameOver(after) {
		t.Fatalf("game should be over with no survivors")
	}
	if _, ok := Winner(after); ok {
		t.Fatalf("no winner expected")
	}
}

func TestApplyTick_LongerSnakeWinsHeadOn(t *testing.T) {
	before := &game.GameState{
		Width:  11,
		Height: 11,
		YouId:  "a",
		Snakes: []game.Snake{
			{Id: "a", Health: 90, Body: []game.Point{{X: 2, Y: 3}, {X: 1, Y: 3}, {X: 0, Y: 3}}},
			{Id: "b", Health: 90, Body: []game.Point{{X: 4, Y: 3}, {X: 5, Y: 3}, {X: 6, Y: 3}, {X: 7, Y: 3}}},
		},
	}
	moves := map[string]game.Direction{"a": game.Right, "b": game.Left}
	after := Advance(before, moves)
	logTick(t, "longer head-on", before, moves, after)

	if after.Snakes[0].Alive() {
		t.Fatalf("shorter snake survived")
	}
	if !after.Snakes[1].Alive() {
		t.Fatalf("longer snake died")
	}
	if id, ok := Winner(after); !ok || id != "b" {
		t.Fatalf("winner=%q ok=%v want b", id, ok)
	}
}

func TestApplyTick_BodyCollision(t *testing.T) {
	before := &game.GameState{
		Width:  11,
		Height: 11,
		YouId:  "a",
		Snakes: []game.Snake{
			{Id: "a", Health: 90, Body: []game.Point{{X: 4, Y: 2}, {X: 4, Y: 1}, {X: 4, Y: 0}}},
			{Id: "b", Health: 90, Body: []game.Point{{X: 6, Y: 3}, {X: 5, Y: 3}, {X: 4, Y: 3}, {X: 3, Y: 3}}},
		},
	}
	moves := map[string]game.Direction{"a": game.Up, "b": game.Right}
	after := Advance(before, moves)
	logTick(t, "body collision", before, moves, after)

	if after.Snakes[0].Alive() {
		t.Fatalf("snake a survived running into b's body")
	}
	if !after.Snakes[1].Alive() {
		t.Fatalf("snake b died")
	}
}

func TestApplyTick_EnteringOtherTailIsSafe(t *testing.T) {
	before := &game.GameState{
		Width:  11,
		Height: 11,
		YouId:  "a",
		Snakes: []game.Snake{
			{Id: "a", Health: 90, Body: []game.Point{{X: 3, Y: 2}, {X: 3, Y: 1}, {X: 3, Y: 0}}},
			{Id: "b", Health: 90, Body: []game.Point{{X: 5, Y: 3}, {X: 4, Y: 3}, {X: 3, Y: 3}}},
		},
	}
	moves := map[string]game.Direction{"a": game.Up, "b": game.Right}
	after := Advance(before, moves)
	logTick(t, "tail chase", before, moves, after)

	if !after.Snakes[0].Alive() || !after.Snakes[1].Alive() {
		t.Fatalf("both snakes should survive: a=%d b=%d", after.Snakes[0].Health, after.Snakes[1].Health)
	}
}

func TestApplyTick_DeadSnakesDoNotCollide(t *testing.T) {
	before := &game.GameState{
		Width:  11,
		Height: 11,
		YouId:  "a",
		Snakes: []game.Snake{
			{Id: "a", Health: 90, Body: []game.Point{{X: 4, Y: 2}, {X: 4, Y: 1}, {X: 4, Y: 0}}},
			{Id: "b", Health: 0, Body: []game.Point{{X: 4, Y: 3}, {X: 5, Y: 3}, {X: 6, Y: 3}}},
		},
	}
	after := Advance(before, map[string]game.Direction{"a": game.Up, "b": game.Left})
	if !after.Snakes[0].Alive() {
		t.Fatalf("snake a collided with a corpse")
	}
}

func TestAdvance_MissingMoveKills(t *testing.T) {
	before := &game.GameState{
		Width:  11,
		Height: 11,
		Snakes: []game.Snake{
			{Id: "a", Health: 90, Body: []game.Point{{X: 1, Y: 1}, {X: 1, Y: 0}}},
			{Id: "b", Health: 90, Body: []game.Point{{X: 8, Y: 8}, {X: 8, Y: 7}}},
		},
	}
	after := Advance(before, map[string]game.Direction{"a": game.Up})
	if after.Snakes[1].Alive() {
		t.Fatalf("snake without a move survived")
	}
	if id, ok := Winner(after); !ok || id != "a" {
		t.Fatalf("winner=%q ok=%v want a", id, ok)
	}
}

func TestLegalMoves(t *testing.T) {
	state := &game.GameState{
		Width:  5,
		Height: 5,
		Snakes: []game.Snake{
			{Id: "a", Health: 90, Body: []game.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}},
			{Id: "b", Health: 90, Body: []game.Point{{X: 1, Y: 2}, {X: 0, Y: 2}, {X: 0, Y: 1}, {X: 1, Y: 1}}},
		},
	}
	got := LegalMoves(state, &state.Snakes[0])
	// Up hits b's body at (0,1), down and left leave the board, right reverses.
	if len(got) != 0 {
		t.Fatalf("legal moves=%v want none", got)
	}

	state.Snakes[1].Body = []game.Point{{X: 2, Y: 2}, {X: 1, Y: 2}, {X: 0, Y: 2}, {X: 0, Y: 1}}
	got = LegalMoves(state, &state.Snakes[0])
	// (0,1) is now b's tail and vacates next tick.
	if len(got) != 1 || got[0] != game.Up {
		t.Fatalf("legal moves=%v want [up]", got)
	}

	moves := Moves(state, &state.Snakes[0])
	if len(moves) != 3 {
		t.Fatalf("non-reversing moves=%v want 3", moves)
	}
	for _, d := range moves {
		if d == game.Right {
			t.Fatalf("moves include the reversal onto the neck")
		}
	}
}

func TestIsGameOver_Solo(t *testing.T) {
	state := soloState(5, 5, 50, []game.Point{{X: 2, Y: 2}}, nil)
	state.Solo = true
	if IsGameOver(state) {
		t.Fatalf("solo game with a live snake reported over")
	}
	state.Snakes[0].Health = 0
	if !IsGameOver(state) {
		t.Fatalf("solo game with no live snake reported running")
	}
}

// Lengths never shrink and grow by exactly one on a meal (outside constrictor).
func TestAdvance_LengthMonotone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := rapid.Int32Range(3, 11).Draw(t, "w")
		h := rapid.Int32Range(3, 11).Draw(t, "h")
		start := game.Point{X: w / 2, Y: h / 2}
		state := soloState(w, h, game.MaxHealth, []game.Point{start, start, start}, nil)
		if rapid.Bool().Draw(t, "wrapped") {
			state.Ruleset.Name = game.RulesetWrapped
		}
		nFood := rapid.IntRange(0, 5).Draw(t, "food")
		for i := 0; i < nFood; i++ {
			state.Food = append(state.Food, game.Point{
				X: rapid.Int32Range(0, w-1).Draw(t, "fx"),
				Y: rapid.Int32Range(0, h-1).Draw(t, "fy"),
			})
		}

		turns := rapid.IntRange(1, 30).Draw(t, "turns")
		for i := 0; i < turns && state.Snakes[0].Alive(); i++ {
			d := rapid.SampledFrom(game.Directions[:]).Draw(t, "dir")
			me := &state.Snakes[0]
			target := state.Normalize(me.Head().Move(d))
			ate := state.IsFood(target)
			prevLen := me.Length()

			state = Advance(state, map[string]game.Direction{"me": d})
			got := state.Snakes[0].Length()
			want := prevLen
			if ate {
				want++
			}
			if got != want {
				t.Fatalf("turn %d: len=%d want=%d (ate=%v)", i, got, want, ate)
			}
			if state.Snakes[0].Alive() && ate && state.Snakes[0].Health != game.MaxHealth {
				t.Fatalf("turn %d: health=%d after eating", i, state.Snakes[0].Health)
			}
		}
	})
}

func TestSpawnFood_MinimumIsEnforced(t *testing.T) {
	before := soloState(5, 5, 100, []game.Point{{X: 2, Y: 2}, {X: 2, Y: 2}, {X: 2, Y: 2}}, nil)

	after := SpawnFood(before, nil, FoodSettings{MinimumFood: 3, FoodSpawnChance: 0})
	if len(after.Food) != 3 {
		t.Fatalf("food len=%d want=3", len(after.Food))
	}
	if len(before.Food) != 0 {
		t.Fatalf("input state mutated: food len=%d", len(before.Food))
	}
	for _, f := range after.Food {
		if f == (game.Point{X: 2, Y: 2}) {
			t.Fatalf("food spawned on snake at %v", f)
		}
	}
}

func TestSpawnFood_SpawnChanceCanAddExtra(t *testing.T) {
	before := soloState(5, 5, 100, []game.Point{{X: 2, Y: 2}}, []game.Point{{X: 0, Y: 0}})

	after := SpawnFood(before, rand.New(rand.NewSource(1)), FoodSettings{MinimumFood: 0, FoodSpawnChance: 100})
	if len(after.Food) != 2 {
		t.Fatalf("food len=%d want=2", len(after.Food))
	}

	same := SpawnFood(before, nil, FoodSettings{})
	if same != before {
		t.Fatalf("no-op spawn should return the input state")
	}
}

func TestSpawnFood_FullBoard(t *testing.T) {
	body := []game.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	before := soloState(2, 2, 100, body, nil)
	after := SpawnFood(before, nil, FoodSettings{MinimumFood: 2})
	if len(after.Food) != 0 {
		t.Fatalf("food len=%d want=0 on a full board", len(after.Food))
	}
}

func TestFoodSettingsFor(t *testing.T) {
	if got := FoodSettingsFor(game.Ruleset{}); got != DefaultFoodSettings {
		t.Fatalf("empty ruleset settings=%+v want defaults", got)
	}
	got := FoodSettingsFor(game.Ruleset{MinimumFood: 4, FoodSpawnChance: 25})
	if got.MinimumFood != 4 || got.FoodSpawnChance != 25 {
		t.Fatalf("settings=%+v want min=4 chance=25", got)
	}
}
