package game

// Point is a board coordinate.
// Coordinates follow Battlesnake conventions: (0,0) is bottom-left.
type Point struct {
	X int32
	Y int32
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }
func (p Point) Negate() Point     { return Point{X: -p.X, Y: -p.Y} }

// Abs returns the point with both components made non-negative.
func (p Point) Abs() Point {
	return Point{X: abs32(p.X), Y: abs32(p.Y)}
}

// Move returns the neighbouring point in direction d. It does not wrap.
func (p Point) Move(d Direction) Point { return p.Add(d.Vector()) }

// ManhattanDistance is |dx| + |dy| on an unwrapped grid.
func ManhattanDistance(a, b Point) int {
	d := a.Sub(b).Abs()
	return int(d.X) + int(d.Y)
}

// WrappedDistance is the Manhattan distance on a torus of the given size.
func WrappedDistance(a, b Point, width, height int32) int {
	d := a.Sub(b).Abs()
	if width > 0 && width-d.X < d.X {
		d.X = width - d.X
	}
	if height > 0 && height-d.Y < d.Y {
		d.Y = height - d.Y
	}
	return int(d.X) + int(d.Y)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Direction is one of the four moves a snake can make.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every move in the fixed order used for deterministic tie-breaks.
var Directions = [4]Direction{Up, Down, Left, Right}

var directionVectors = [4]Point{
	Up:    {X: 0, Y: 1},
	Down:  {X: 0, Y: -1},
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
}

// Vector is the unit offset for d.
func (d Direction) Vector() Point { return directionVectors[d&3] }

func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "up"
	}
}

// ParseDirection maps the API move names back to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "up":
		return Up, true
	case "down":
		return Down, true
	case "left":
		return Left, true
	case "right":
		return Right, true
	}
	return Up, false
}

// DirectionBetween returns the direction that moves from a to an adjacent b,
// honouring wrap-around on a board of the given size when wrapped is set.
func DirectionBetween(a, b Point, width, height int32, wrapped bool) (Direction, bool) {
	for _, d := range Directions {
		n := a.Move(d)
		if wrapped {
			n = wrap(n, width, height)
		}
		if n == b {
			return d, true
		}
	}
	return Up, false
}

func wrap(p Point, width, height int32) Point {
	if width > 0 {
		p.X = ((p.X % width) + width) % width
	}
	if height > 0 {
		p.Y = ((p.Y % height) + height) % height
	}
	return p
}
