package rules

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"

	"github.com/brensch/snekmax/game"
)

// FoodSettings are the server knobs that govern food placement:
// MinimumFood is topped up after every tick and FoodSpawnChance is the
// percentage chance (0-100) of one extra item per tick.
type FoodSettings struct {
	MinimumFood     int
	FoodSpawnChance int
}

// Engine defaults.
var DefaultFoodSettings = FoodSettings{MinimumFood: 1, FoodSpawnChance: 15}

// FoodSettingsFor reads the food knobs from a ruleset, falling back to the
// engine defaults when the ruleset carries none.
func FoodSettingsFor(r game.Ruleset) FoodSettings {
	if r.MinimumFood == 0 && r.FoodSpawnChance == 0 {
		return DefaultFoodSettings
	}
	return FoodSettings{MinimumFood: int(r.MinimumFood), FoodSpawnChance: int(r.FoodSpawnChance)}
}

// SpawnFood returns a copy of state with food placed on free cells according to
// settings. A nil rng derives a seed from the state so replays are stable.
// The input state is left untouched.
func SpawnFood(state *game.GameState, rng *rand.Rand, settings FoodSettings) *game.GameState {
	if state == nil || state.Width <= 0 || state.Height <= 0 {
		return state
	}
	settings.MinimumFood = max(settings.MinimumFood, 0)
	settings.FoodSpawnChance = min(max(settings.FoodSpawnChance, 0), 100)

	deficit := max(settings.MinimumFood-len(state.Food), 0)

	spawnExtra := false
	if settings.FoodSpawnChance > 0 {
		if rng != nil {
			spawnExtra = rng.Intn(100) < settings.FoodSpawnChance
		} else {
			spawnExtra = int(stateSeed(state)%100) < settings.FoodSpawnChance
		}
	}

	toSpawn := deficit
	if spawnExtra {
		toSpawn++
	}
	if toSpawn == 0 {
		return state
	}

	if rng == nil {
		seed := int64(stateSeed(state))
		if seed == 0 {
			seed = 1
		}
		rng = rand.New(rand.NewSource(seed))
	}

	grid := game.NewGrid(state)
	available := make([]game.Point, 0, grid.Size())
	for y := int32(0); y < state.Height; y++ {
		for x := int32(0); x < state.Width; x++ {
			p := game.Point{X: x, Y: y}
			c, _ := grid.Cell(p)
			if c.Food || c.Vacates > 0 {
				continue
			}
			available = append(available, p)
		}
	}

	food := make([]game.Point, len(state.Food), len(state.Food)+toSpawn)
	copy(food, state.Food)
	for ; toSpawn > 0 && len(available) > 0; toSpawn-- {
		i := rng.Intn(len(available))
		food = append(food, available[i])
		available[i] = available[len(available)-1]
		available = available[:len(available)-1]
	}

	out := *state
	out.Food = food
	return &out
}

// stateSeed is a cheap hash of turn, board size, food count and live heads.
func stateSeed(state *game.GameState) uint64 {
	h := fnv.New64a()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(uint32(state.Width))|(uint64(uint32(state.Height))<<32))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(uint32(state.Turn)))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(len(state.Food)))
	_, _ = h.Write(buf[:])

	for i := range state.Snakes {
		s := &state.Snakes[i]
		if !s.Alive() {
			continue
		}
		_, _ = h.Write([]byte(s.Id))
		head := s.Head()
		binary.LittleEndian.PutUint64(buf[:], (uint64(uint32(head.X))<<32)|uint64(uint32(head.Y)))
		_, _ = h.Write(buf[:])
	}

	return h.Sum64()
}
