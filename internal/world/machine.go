package world

import (
	"encoding/json"
	"fmt"
)

// MachineID derives the stable logical id for a physical device in a world.
// The same computer re-appearing in a different world is a different machine.
func MachineID(computerID, worldID string) string {
	return computerID + ":" + worldID
}

// MachineRecord holds the fields every machine kind shares.
type MachineRecord struct {
	ID         string    `json:"id"`
	ComputerID string    `json:"computer_id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	WorldID    string    `json:"world_id"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Z          int       `json:"z"`
	Facing     Direction `json:"facing"`
}

// Machine is a registered, typed, positioned agent participating in a world.
type Machine interface {
	Record() *MachineRecord
	Clone() Machine
}

// UninitiatedMachine is a machine that has contacted the server but has not
// been accepted or rejected yet. It exists only in memory.
type UninitiatedMachine struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func (m *MachineRecord) Position() Vec3 {
	return Vec3{X: m.X, Y: m.Y, Z: m.Z}
}

func (m *MachineRecord) SetPosition(v Vec3) {
	m.X, m.Y, m.Z = v.X, v.Y, v.Z
}

func (m *MachineRecord) translate(v Vec3) {
	m.SetPosition(m.Position().Add(v))
}

func (m *MachineRecord) MoveForward()  { m.translate(m.Facing.Vector()) }
func (m *MachineRecord) MoveBackward() { m.translate(m.Facing.Opposite().Vector()) }
func (m *MachineRecord) MoveUp()       { m.translate(Up.Vector()) }
func (m *MachineRecord) MoveDown()     { m.translate(Down.Vector()) }
func (m *MachineRecord) TurnLeft()     { m.Facing = m.Facing.Left() }
func (m *MachineRecord) TurnRight()    { m.Facing = m.Facing.Right() }

// ApplyMove mutates position or facing for a movement verb. Returns false
// for verbs the movement engine does not know.
func (m *MachineRecord) ApplyMove(command string) bool {
	switch command {
	case "forward":
		m.MoveForward()
	case "backward":
		m.MoveBackward()
	case "left":
		m.TurnLeft()
	case "right":
		m.TurnRight()
	case "up":
		m.MoveUp()
	case "down":
		m.MoveDown()
	default:
		return false
	}
	return true
}

// Turtle is the only machine kind currently in the fleet.
type Turtle struct {
	MachineRecord
	Fuel      float64 `json:"fuel"`
	Inventory []Item  `json:"inventory"`
}

func (t *Turtle) Record() *MachineRecord { return &t.MachineRecord }

func (t *Turtle) Clone() Machine {
	copied := *t
	if t.Inventory != nil {
		copied.Inventory = append([]Item(nil), t.Inventory...)
	}
	return &copied
}

// Kind is the strategy for one machine type. Adding a new machine kind means
// registering a new Kind, not editing the session handlers.
type Kind struct {
	Type string

	// New builds a fresh record at the origin with the default facing.
	New func(computerID, worldID, name string) Machine

	// Refresh overwrites the device-reported consumables. Nil arguments
	// mean "not reported" and leave the stored values untouched.
	Refresh func(m Machine, fuel *float64, inventory []Item)

	// Decode rebuilds a machine of this kind from its persisted form.
	Decode func(data []byte) (Machine, error)
}

var kinds = map[string]Kind{}

func RegisterKind(k Kind) {
	kinds[k.Type] = k
}

func KindFor(machineType string) (Kind, bool) {
	k, ok := kinds[machineType]
	return k, ok
}

// DecodeMachine rebuilds a persisted machine, routing on its type tag.
func DecodeMachine(data []byte) (Machine, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode machine: %w", err)
	}
	kind, ok := kinds[probe.Type]
	if !ok {
		return nil, fmt.Errorf("decode machine: unknown type %q", probe.Type)
	}
	return kind.Decode(data)
}

func init() {
	RegisterKind(Kind{
		Type: "turtle",
		New: func(computerID, worldID, name string) Machine {
			return &Turtle{MachineRecord: MachineRecord{
				ID:         MachineID(computerID, worldID),
				ComputerID: computerID,
				Name:       name,
				Type:       "turtle",
				WorldID:    worldID,
				Facing:     DefaultFacing,
			}}
		},
		Refresh: func(m Machine, fuel *float64, inventory []Item) {
			t, ok := m.(*Turtle)
			if !ok {
				return
			}
			if fuel != nil {
				t.Fuel = *fuel
			}
			if inventory != nil {
				t.Inventory = append([]Item(nil), inventory...)
			}
		},
		Decode: func(data []byte) (Machine, error) {
			var t Turtle
			if err := json.Unmarshal(data, &t); err != nil {
				return nil, fmt.Errorf("decode turtle: %w", err)
			}
			return &t, nil
		},
	})
}
