// Package game defines the core game state types for Battlesnake.
//
// These types represent one turn's snapshot as seen by the decision engine.
// Values are treated as immutable once built: every transition produces a new
// state through Clone or the rules package, never by editing a shared one.
package game

import "strings"

// Ruleset names understood by the simulator. Unknown names behave like Standard.
const (
	RulesetStandard    = "standard"
	RulesetSolo        = "solo"
	RulesetWrapped     = "wrapped"
	RulesetConstrictor = "constrictor"
	RulesetRoyale      = "royale"
	RulesetSquad       = "squad"
)

const MaxHealth int32 = 100

// Ruleset is the named game variant plus the numeric knobs the simulator uses.
type Ruleset struct {
	Name                string
	FoodSpawnChance     int32
	MinimumFood         int32
	HazardDamagePerTurn int32
}

// Wrapped reports whether board edges connect. Map names such as
// "wrapped-constrictor" enable both behaviours.
func (r Ruleset) Wrapped() bool { return strings.Contains(r.Name, RulesetWrapped) }

// RulesetName resolves the variant a game plays. Some arenas run the standard
// ruleset on a map that changes the rules ("wrapped", "wrapped-constrictor"),
// in which case the map name wins.
func RulesetName(ruleset, mapName string) string {
	switch {
	case strings.HasPrefix(mapName, RulesetWrapped):
		return mapName
	case ruleset != "":
		return ruleset
	default:
		return RulesetStandard
	}
}

// Constrictor reports whether snakes grow every tick instead of moving their tail.
func (r Ruleset) Constrictor() bool { return strings.Contains(r.Name, RulesetConstrictor) }

type Snake struct {
	Id     string
	Health int32
	Body   []Point
}

func (s *Snake) Head() Point  { return s.Body[0] }
func (s *Snake) Tail() Point  { return s.Body[len(s.Body)-1] }
func (s *Snake) Length() int  { return len(s.Body) }
func (s *Snake) Alive() bool  { return s.Health > 0 && len(s.Body) > 0 }
func (s *Snake) Clone() Snake { return Snake{Id: s.Id, Health: s.Health, Body: append([]Point(nil), s.Body...)} }

// Neck returns the segment behind the head, if the snake has one distinct from it.
func (s *Snake) Neck() (Point, bool) {
	if len(s.Body) < 2 || s.Body[1] == s.Body[0] {
		return Point{}, false
	}
	return s.Body[1], true
}

// GameState is the complete state needed for rules and search.
// YouId selects the controlled snake. Solo disables win-by-elimination scoring.
type GameState struct {
	Width   int32
	Height  int32
	Snakes  []Snake
	Food    []Point
	Hazards []Point
	YouId   string
	Turn    int32
	Ruleset Ruleset
	Solo    bool
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := &GameState{
		Width:   s.Width,
		Height:  s.Height,
		YouId:   s.YouId,
		Turn:    s.Turn,
		Ruleset: s.Ruleset,
		Solo:    s.Solo,
	}

	if len(s.Food) > 0 {
		out.Food = make([]Point, len(s.Food))
		copy(out.Food, s.Food)
	}
	if len(s.Hazards) > 0 {
		out.Hazards = make([]Point, len(s.Hazards))
		copy(out.Hazards, s.Hazards)
	}

	if len(s.Snakes) > 0 {
		out.Snakes = make([]Snake, len(s.Snakes))
		for i := range s.Snakes {
			out.Snakes[i] = s.Snakes[i].Clone()
		}
	}

	return out
}

// WithSnakes returns a shallow copy of s that uses snakes instead of s.Snakes.
// Food and hazard slices are shared, so callers must not mutate them.
func (s *GameState) WithSnakes(snakes []Snake) *GameState {
	out := *s
	out.Snakes = snakes
	return &out
}

// SnakeIndex returns the index of the snake with the given id, or -1.
func (s *GameState) SnakeIndex(id string) int {
	for i := range s.Snakes {
		if s.Snakes[i].Id == id {
			return i
		}
	}
	return -1
}

// You returns the controlled snake.
func (s *GameState) You() (*Snake, bool) {
	i := s.SnakeIndex(s.YouId)
	if i < 0 {
		return nil, false
	}
	return &s.Snakes[i], true
}

// AliveCount counts snakes with positive health.
func (s *GameState) AliveCount() int {
	n := 0
	for i := range s.Snakes {
		if s.Snakes[i].Alive() {
			n++
		}
	}
	return n
}

// Preorder returns a copy with the controlled snake moved to index 0 and the
// others kept in their original relative order. The search relies on this.
func (s *GameState) Preorder() *GameState {
	out := s.Clone()
	i := out.SnakeIndex(out.YouId)
	if i <= 0 {
		return out
	}
	you := out.Snakes[i]
	copy(out.Snakes[1:i+1], out.Snakes[:i])
	out.Snakes[0] = you
	return out
}
