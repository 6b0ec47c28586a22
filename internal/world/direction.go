package world

// Direction is one of the six unit directions a machine can face or probe.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
	Up    Direction = "up"
	Down  Direction = "down"
)

// DefaultFacing is assigned to machines created without an explicit facing.
const DefaultFacing = North

type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

var directionVectors = map[Direction]Vec3{
	North: {X: 0, Y: 0, Z: -1},
	South: {X: 0, Y: 0, Z: 1},
	East:  {X: 1, Y: 0, Z: 0},
	West:  {X: -1, Y: 0, Z: 0},
	Up:    {X: 0, Y: 1, Z: 0},
	Down:  {X: 0, Y: -1, Z: 0},
}

var opposites = map[Direction]Direction{
	North: South,
	South: North,
	East:  West,
	West:  East,
	Up:    Down,
	Down:  Up,
}

// leftTurns is the 4-cycle north -> west -> south -> east -> north.
// Up and down are absent: turning while facing vertically is a no-op.
var leftTurns = map[Direction]Direction{
	North: West,
	West:  South,
	South: East,
	East:  North,
}

var rightTurns = map[Direction]Direction{
	North: East,
	East:  South,
	South: West,
	West:  North,
}

func ParseDirection(s string) (Direction, bool) {
	d := Direction(s)
	_, ok := directionVectors[d]
	return d, ok
}

func (d Direction) Vector() Vec3 {
	return directionVectors[d]
}

func (d Direction) Opposite() Direction {
	if o, ok := opposites[d]; ok {
		return o
	}
	return d
}

func (d Direction) Left() Direction {
	if t, ok := leftTurns[d]; ok {
		return t
	}
	return d
}

func (d Direction) Right() Direction {
	if t, ok := rightTurns[d]; ok {
		return t
	}
	return d
}
