// Package protocol defines the JSON wire envelope exchanged over the
// websocket layer and the enums routed through the session handlers.
package protocol

import (
	"encoding/json"

	"TurtleControl/internal/world"
)

type ClientType string

const (
	ClientTypeClient  ClientType = "client"
	ClientTypeMachine ClientType = "machine"
)

func (t ClientType) Valid() bool {
	return t == ClientTypeClient || t == ClientTypeMachine
}

type MessageType string

const (
	MessageRegister   MessageType = "register"
	MessageUnregister MessageType = "unregister"
	MessageData       MessageType = "data"
	MessageInitiate   MessageType = "initiate"
)

// Envelope is the inbound frame. Payload stays raw until a handler that
// knows the role and command decodes it.
type Envelope struct {
	Type       MessageType     `json:"type"`
	ClientType ClientType      `json:"clientType"`
	ID         string          `json:"id,omitempty"`
	APIKey     string          `json:"api_key,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Directive is a handler's verdict on which broadcast must follow.
type Directive string

const (
	SyncMachinesWithClients            Directive = "sync_machines_with_clients"
	SyncMachinesWithCurrentClient      Directive = "sync_machines_with_current_client"
	SyncUninitiatedMachinesWithClients Directive = "sync_uninitiated_machines_with_clients"
	SyncWorldsWithClients              Directive = "sync_worlds_with_clients"
	Pass                               Directive = "pass"
)

// Commands a client may issue through a data message.
const (
	CommandAcceptMachine = "initiate_accept_machine"
	CommandRejectMachine = "initiate_reject_machine"
)

// Commands a machine reports back through a data message.
const (
	CommandResult      = "command_result"
	CommandMoveInspect = "move_inspect"
)

var forwardableCommands = map[string]bool{
	"forward":      true,
	"backward":     true,
	"left":         true,
	"right":        true,
	"up":           true,
	"down":         true,
	"inspect":      true,
	"inspect_up":   true,
	"inspect_down": true,
}

// IsForwardable reports whether a client command is relayed verbatim to the
// target machine rather than handled on the server.
func IsForwardable(command string) bool {
	return forwardableCommands[command]
}

// MachineRegisterPayload accompanies a machine register message.
type MachineRegisterPayload struct {
	Type      string       `json:"type"`
	WorldID   string       `json:"world_id"`
	Fuel      *float64     `json:"fuel,omitempty"`
	Inventory []world.Item `json:"inventory,omitempty"`
}

// InitiatePayload accompanies an uninitiated machine's first contact.
type InitiatePayload struct {
	Type string `json:"type"`
}

// ClientDataPayload accompanies a client data message.
type ClientDataPayload struct {
	Command   string          `json:"command"`
	MachineID string          `json:"machine_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type Coordinates struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// AcceptPayload is the operator-supplied placement for an uninitiated machine.
type AcceptPayload struct {
	Cords   *Coordinates `json:"cords"`
	Facing  string       `json:"facing"`
	WorldID string       `json:"world_id"`
}

// BlockObservation is one face inspection result. Direction is relative to
// the machine: forward, up, or down.
type BlockObservation struct {
	Direction string              `json:"direction"`
	ID        string              `json:"id"`
	Category  world.BlockCategory `json:"category,omitempty"`
	IsSolid   bool                `json:"is_solid"`
}

// CommandResultPayload reports the outcome of a previously dispatched command.
type CommandResultPayload struct {
	Success         bool               `json:"success"`
	OriginCommand   string             `json:"origin_command"`
	InitiatedClient string             `json:"initiated_client,omitempty"`
	Fuel            *float64           `json:"fuel,omitempty"`
	Inventory       []world.Item       `json:"inventory,omitempty"`
	BlockData       []BlockObservation `json:"block_data,omitempty"`
}

/* ----------------------------- Outbound ----------------------------- */

// RejectedSignal is the bare frame sent to a machine an operator turned away.
const RejectedSignal = "REJECTED"

type RegisterAck struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func Error(message string) ErrorFrame {
	return ErrorFrame{Type: "error", Message: message}
}

// InitiateAck carries the issued API key to a freshly accepted machine.
type InitiateAck struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	APIKey  string `json:"api_key"`
	WorldID string `json:"world_id"`
}

// CommandFrame relays an operator command to a machine.
type CommandFrame struct {
	Type            string `json:"type"`
	Command         string `json:"command"`
	InitiatedClient string `json:"initiated_client"`
}

// CommandErrorFrame tells the initiating client its command failed on-device.
type CommandErrorFrame struct {
	Type          string `json:"type"`
	MachineID     string `json:"machine_id"`
	OriginCommand string `json:"origin_command"`
}

// SyncFrame is the broadcast wrapper for store snapshots.
type SyncFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func SyncMachines(machines []map[string]any) SyncFrame {
	return SyncFrame{Type: "sync_machines", Payload: map[string]any{"machines": machines}}
}

func SyncUninitiated(machines []world.UninitiatedMachine) SyncFrame {
	return SyncFrame{Type: "sync_uninitiated", Payload: map[string]any{"machines": machines}}
}

func SyncWorlds(worlds []world.World) SyncFrame {
	return SyncFrame{Type: "sync_worlds", Payload: map[string]any{"worlds": worlds}}
}
