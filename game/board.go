package game

// Never marks a body cell that does not vacate (constrictor bodies).
const Never int32 = 1 << 30

func (s *GameState) Wrapped() bool { return s.Ruleset.Wrapped() }

// Normalize wraps p onto the board under the wrapped ruleset and returns it
// unchanged otherwise.
func (s *GameState) Normalize(p Point) Point {
	if s.Wrapped() {
		return wrap(p, s.Width, s.Height)
	}
	return p
}

func (s *GameState) InBounds(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

func (s *GameState) IsHazard(p Point) bool { return containsPoint(s.Hazards, p) }
func (s *GameState) IsFood(p Point) bool   { return containsPoint(s.Food, p) }

// VacatesIn returns how many ticks until no live body covers p: 0 when p is
// free now, 1 for a tail that leaves on the next tick, Never for constrictor
// bodies. Stacked segments take the latest departure.
func (s *GameState) VacatesIn(p Point) int32 {
	var worst int32
	constrictor := s.Ruleset.Constrictor()
	for i := range s.Snakes {
		sn := &s.Snakes[i]
		if !sn.Alive() {
			continue
		}
		n := int32(len(sn.Body))
		for j, bp := range sn.Body {
			if bp != p {
				continue
			}
			t := n - int32(j)
			if constrictor {
				t = Never
			}
			if t > worst {
				worst = t
			}
		}
	}
	return worst
}

// IsOccupiedByBody reports whether a live body still covers p next tick.
// A tail segment that is about to move does not count.
func (s *GameState) IsOccupiedByBody(p Point) bool { return s.VacatesIn(p) > 1 }

// IsLegalCell reports whether a head could safely enter p next tick.
func (s *GameState) IsLegalCell(p Point) bool {
	p = s.Normalize(p)
	return s.InBounds(p) && !s.IsHazard(p) && !s.IsOccupiedByBody(p)
}

// Adjacent yields the four neighbours of p in Directions order, wrapped when
// the ruleset is wrapped. Unwrapped neighbours may lie off the board.
func (s *GameState) Adjacent(p Point) [4]Point {
	var out [4]Point
	for i, d := range Directions {
		out[i] = s.Normalize(p.Move(d))
	}
	return out
}

// Distance is the Manhattan distance, wrap-aware under the wrapped ruleset.
func (s *GameState) Distance(a, b Point) int {
	if s.Wrapped() {
		return WrappedDistance(a, b, s.Width, s.Height)
	}
	return ManhattanDistance(a, b)
}

func containsPoint(ps []Point, p Point) bool {
	for _, q := range ps {
		if q == p {
			return true
		}
	}
	return false
}

// Cell is the per-square summary held by a Grid.
type Cell struct {
	Food    bool
	Hazard  bool
	Vacates int32
}

// Grid is a dense index over a GameState for hot loops that would otherwise
// rescan bodies, food and hazards for every lookup. It is read-only after
// construction.
type Grid struct {
	Width   int32
	Height  int32
	wrapped bool
	cells   []Cell
}

func NewGrid(s *GameState) *Grid {
	g := &Grid{
		Width:   s.Width,
		Height:  s.Height,
		wrapped: s.Wrapped(),
		cells:   make([]Cell, int(s.Width)*int(s.Height)),
	}
	for _, f := range s.Food {
		if c := g.at(f); c != nil {
			c.Food = true
		}
	}
	for _, h := range s.Hazards {
		if c := g.at(h); c != nil {
			c.Hazard = true
		}
	}
	constrictor := s.Ruleset.Constrictor()
	for i := range s.Snakes {
		sn := &s.Snakes[i]
		if !sn.Alive() {
			continue
		}
		n := int32(len(sn.Body))
		for j, bp := range sn.Body {
			c := g.at(bp)
			if c == nil {
				continue
			}
			t := n - int32(j)
			if constrictor {
				t = Never
			}
			if t > c.Vacates {
				c.Vacates = t
			}
		}
	}
	return g
}

func (g *Grid) at(p Point) *Cell {
	if p.X < 0 || p.X >= g.Width || p.Y < 0 || p.Y >= g.Height {
		return nil
	}
	return &g.cells[int(p.Y)*int(g.Width)+int(p.X)]
}

// Index maps an in-bounds point to a dense index in [0, Width*Height).
func (g *Grid) Index(p Point) int { return int(p.Y)*int(g.Width) + int(p.X) }

// Size is the number of cells on the board.
func (g *Grid) Size() int { return len(g.cells) }

func (g *Grid) InBounds(p Point) bool { return g.at(p) != nil }

// Cell returns the summary for p; off-board points report ok=false.
func (g *Grid) Cell(p Point) (Cell, bool) {
	c := g.at(p)
	if c == nil {
		return Cell{}, false
	}
	return *c, true
}

// Neighbors returns the on-board neighbours of p, wrapping when required.
func (g *Grid) Neighbors(p Point) []Point {
	out := make([]Point, 0, 4)
	for _, d := range Directions {
		n := p.Move(d)
		if g.wrapped {
			n = wrap(n, g.Width, g.Height)
		}
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Distance is wrap-aware Manhattan distance on this grid.
func (g *Grid) Distance(a, b Point) int {
	if g.wrapped {
		return WrappedDistance(a, b, g.Width, g.Height)
	}
	return ManhattanDistance(a, b)
}
