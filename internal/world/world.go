package world

// BlockCategory distinguishes interactable peripherals from plain terrain.
type BlockCategory string

const (
	BlockPeripheral BlockCategory = "peripheral"
	BlockStatic     BlockCategory = "static"
)

// Block is a unit-cell observation at a world coordinate. ID is the block
// type name reported by the machine, not a unique key: blocks are unique per
// (x, y, z) within a world and re-observation overwrites in place.
type Block struct {
	ID       string        `json:"id"`
	X        int           `json:"x"`
	Y        int           `json:"y"`
	Z        int           `json:"z"`
	Category BlockCategory `json:"category"`
	IsSolid  bool          `json:"is_solid"`
}

// Item is a single inventory slot entry.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// World is a named coordinate space. Worlds are created lazily when a machine
// first registers into an unknown world id and are never deleted.
type World struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Blocks []Block `json:"blocks"`
}

// UpsertBlock writes b at its coordinate, replacing any block already there.
func (w *World) UpsertBlock(b Block) {
	for i := range w.Blocks {
		if w.Blocks[i].X == b.X && w.Blocks[i].Y == b.Y && w.Blocks[i].Z == b.Z {
			w.Blocks[i] = b
			return
		}
	}
	w.Blocks = append(w.Blocks, b)
}

// RemoveBlockAt deletes the block at the coordinate if one exists. Air is
// implicit, so observing a void cell just clears whatever was recorded there.
func (w *World) RemoveBlockAt(x, y, z int) bool {
	for i := range w.Blocks {
		if w.Blocks[i].X == x && w.Blocks[i].Y == y && w.Blocks[i].Z == z {
			w.Blocks = append(w.Blocks[:i], w.Blocks[i+1:]...)
			return true
		}
	}
	return false
}

func (w *World) BlockAt(x, y, z int) (Block, bool) {
	for _, b := range w.Blocks {
		if b.X == x && b.Y == y && b.Z == z {
			return b, true
		}
	}
	return Block{}, false
}

// Clone returns a deep copy safe to hand to broadcast serialization.
func (w *World) Clone() World {
	out := World{ID: w.ID, Name: w.Name}
	if len(w.Blocks) > 0 {
		out.Blocks = append([]Block(nil), w.Blocks...)
	}
	return out
}
