package world

import "testing"

func TestTurnLeftCycle(t *testing.T) {
	for _, start := range []Direction{North, South, East, West} {
		d := start
		for i := 0; i < 4; i++ {
			d = d.Left()
		}
		if d != start {
			t.Errorf("four left turns from %s ended on %s", start, d)
		}
	}
}

func TestTurnRightCycle(t *testing.T) {
	for _, start := range []Direction{North, South, East, West} {
		d := start
		for i := 0; i < 4; i++ {
			d = d.Right()
		}
		if d != start {
			t.Errorf("four right turns from %s ended on %s", start, d)
		}
	}
}

func TestTurnSequence(t *testing.T) {
	if North.Left() != West {
		t.Errorf("expected north->west on left turn, got %s", North.Left())
	}
	if North.Right() != East {
		t.Errorf("expected north->east on right turn, got %s", North.Right())
	}
	if West.Left() != South || South.Left() != East || East.Left() != North {
		t.Error("left turn cycle is not north->west->south->east->north")
	}
}

func TestVerticalFacingsDoNotTurn(t *testing.T) {
	for _, d := range []Direction{Up, Down} {
		if d.Left() != d {
			t.Errorf("left turn while facing %s should be a no-op", d)
		}
		if d.Right() != d {
			t.Errorf("right turn while facing %s should be a no-op", d)
		}
	}
}

func TestOppositeIsInvolution(t *testing.T) {
	for _, d := range []Direction{North, South, East, West, Up, Down} {
		if d.Opposite().Opposite() != d {
			t.Errorf("opposite of opposite of %s is %s", d, d.Opposite().Opposite())
		}
	}
}

func TestOppositeVectorsCancel(t *testing.T) {
	for _, d := range []Direction{North, South, East, West, Up, Down} {
		sum := d.Vector().Add(d.Opposite().Vector())
		if sum != (Vec3{}) {
			t.Errorf("%s and %s vectors do not cancel: %+v", d, d.Opposite(), sum)
		}
	}
}

func TestParseDirection(t *testing.T) {
	if _, ok := ParseDirection("north"); !ok {
		t.Error("north should parse")
	}
	if _, ok := ParseDirection("sideways"); ok {
		t.Error("sideways should not parse")
	}
	if _, ok := ParseDirection(""); ok {
		t.Error("empty string should not parse")
	}
}
