package server

import (
	"encoding/json"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"TurtleControl/internal/protocol"
	"TurtleControl/internal/store"
	"TurtleControl/internal/world"
)

// MachineHandler owns the machine side of the session protocol: the
// uninitiated -> accepted/rejected staging state machine, registration of
// known machines, and ingestion of command results into the world model.
type MachineHandler struct {
	log        *zap.Logger
	registry   *Registry
	worlds     *store.Worlds
	machines   *store.Machines
	machineKey string
}

func NewMachineHandler(log *zap.Logger, registry *Registry, worlds *store.Worlds, machines *store.Machines, machineKey string) *MachineHandler {
	return &MachineHandler{
		log:        log,
		registry:   registry,
		worlds:     worlds,
		machines:   machines,
		machineKey: machineKey,
	}
}

// ensureWorld lazily creates the named world on first reference.
func (h *MachineHandler) ensureWorld(worldID string) {
	if _, ok := h.worlds.Get(worldID); !ok {
		h.worlds.Add(world.World{ID: worldID, Name: worldID})
		h.log.Info("world created", zap.String("world_id", worldID))
	}
}

// RegisterUninitiated stages a machine's first contact. The machine has no
// API key yet; it waits in memory until an operator accepts or rejects it.
func (h *MachineHandler) RegisterUninitiated(conn Conn, env protocol.Envelope) protocol.Directive {
	if env.ID == "" {
		h.log.Info("initiate without computer id ignored")
		return protocol.Pass
	}
	var payload protocol.InitiatePayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			h.log.Info("initiate payload unreadable", zap.Error(err))
		}
	}
	if payload.Type == "" {
		payload.Type = "turtle"
	}
	h.registry.Stage(env.ID, payload.Type, conn)
	h.log.Info("uninitiated machine staged",
		zap.String("computer_id", env.ID), zap.String("machine_type", payload.Type))
	return protocol.SyncUninitiatedMachinesWithClients
}

// Register connects a machine that already holds its key. Unknown worlds are
// created, absent records are created fresh at the origin, and existing
// records only get their device-reported consumables refreshed; position and
// facing are the server's to keep.
func (h *MachineHandler) Register(conn Conn, env protocol.Envelope) protocol.Directive {
	var payload protocol.MachineRegisterPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			h.log.Info("machine register payload unreadable", zap.Error(err))
		}
	}
	if env.ID == "" || payload.Type == "" || payload.WorldID == "" {
		_ = conn.WriteJSON(protocol.Error("Invalid payload"))
		return protocol.Pass
	}
	kind, ok := world.KindFor(payload.Type)
	if !ok {
		_ = conn.WriteJSON(protocol.Error("Invalid machine type"))
		return protocol.Pass
	}

	h.ensureWorld(payload.WorldID)

	id := world.MachineID(env.ID, payload.WorldID)
	m, exists := h.machines.Get(id)
	if !exists {
		m = kind.New(env.ID, payload.WorldID, gofakeit.FirstName())
	}
	kind.Refresh(m, payload.Fuel, payload.Inventory)
	h.machines.Upsert(m)

	h.registry.PutMachine(id, payload.Type, conn)
	_ = conn.WriteJSON(protocol.RegisterAck{Type: "register", ID: id, Name: m.Record().Name})
	h.log.Info("machine registered",
		zap.String("machine_id", id), zap.Bool("existing", exists))
	return protocol.SyncMachinesWithClients
}

// AcceptMachine places a staged machine into a world. Only valid while the
// computer id is staged; the staged entry is consumed either way.
func (h *MachineHandler) AcceptMachine(computerID string, data json.RawMessage, requester Conn) protocol.Directive {
	staged, ok := h.registry.Staged(computerID)
	if !ok {
		h.log.Info("accept for unknown staged machine", zap.String("computer_id", computerID))
		return protocol.Pass
	}

	var payload protocol.AcceptPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			h.log.Info("accept payload unreadable", zap.Error(err))
		}
	}
	facing, facingOK := world.ParseDirection(payload.Facing)
	if payload.Cords == nil || payload.WorldID == "" || !facingOK {
		if requester != nil {
			_ = requester.WriteJSON(protocol.Error("Missing coordinates, facing, or world for accept"))
		}
		h.registry.Unstage(computerID)
		return protocol.SyncUninitiatedMachinesWithClients
	}

	kind, ok := world.KindFor(staged.Type)
	if !ok {
		if requester != nil {
			_ = requester.WriteJSON(protocol.Error("Invalid machine type"))
		}
		h.registry.Unstage(computerID)
		return protocol.SyncUninitiatedMachinesWithClients
	}

	h.ensureWorld(payload.WorldID)

	id := world.MachineID(computerID, payload.WorldID)
	m, exists := h.machines.Get(id)
	if !exists {
		m = kind.New(computerID, payload.WorldID, gofakeit.FirstName())
	}
	rec := m.Record()
	rec.WorldID = payload.WorldID
	rec.SetPosition(world.Vec3{X: payload.Cords.X, Y: payload.Cords.Y, Z: payload.Cords.Z})
	rec.Facing = facing
	h.machines.Upsert(m)

	_ = staged.Conn.WriteJSON(protocol.InitiateAck{
		Type:    "initiate",
		Success: true,
		APIKey:  h.machineKey,
		WorldID: payload.WorldID,
	})
	h.registry.Unstage(computerID)
	h.log.Info("machine accepted",
		zap.String("machine_id", id), zap.String("world_id", payload.WorldID))
	return protocol.SyncUninitiatedMachinesWithClients
}

// RejectMachine turns a staged machine away.
func (h *MachineHandler) RejectMachine(computerID string) protocol.Directive {
	staged, ok := h.registry.Staged(computerID)
	if !ok {
		return protocol.Pass
	}
	_ = staged.Conn.WriteText(protocol.RejectedSignal)
	h.registry.Unstage(computerID)
	h.log.Info("machine rejected", zap.String("computer_id", computerID))
	return protocol.SyncUninitiatedMachinesWithClients
}

// Unregister removes a registered machine's connection by identity.
func (h *MachineHandler) Unregister(conn Conn) protocol.Directive {
	id, ok := h.registry.MachineFor(conn)
	if !ok {
		return protocol.Pass
	}
	h.registry.RemoveMachine(id)
	h.log.Info("machine unregistered", zap.String("machine_id", id))
	return protocol.SyncMachinesWithClients
}

// UnregisterUninitiated removes a staged machine's connection by identity.
func (h *MachineHandler) UnregisterUninitiated(conn Conn) protocol.Directive {
	computerID, ok := h.registry.StagedFor(conn)
	if !ok {
		return protocol.Pass
	}
	h.registry.Unstage(computerID)
	h.log.Info("uninitiated machine unregistered", zap.String("computer_id", computerID))
	return protocol.SyncUninitiatedMachinesWithClients
}

// SendCommand relays an operator command to the live machine connection.
func (h *MachineHandler) SendCommand(machineID, command, username string) protocol.Directive {
	mc, ok := h.registry.GetMachine(machineID)
	if !ok {
		h.log.Info("command for unknown machine",
			zap.String("machine_id", machineID), zap.String("command", command))
		return protocol.Pass
	}
	_ = mc.Conn.WriteJSON(protocol.CommandFrame{
		Type:            "command",
		Command:         command,
		InitiatedClient: username,
	})
	return protocol.Pass
}

// Data ingests a machine's command_result report.
func (h *MachineHandler) Data(conn Conn, env protocol.Envelope) protocol.Directive {
	machineID, ok := h.registry.MachineFor(conn)
	if !ok {
		h.log.Info("data from unregistered machine connection")
		return protocol.Pass
	}

	var result protocol.CommandResultPayload
	if err := json.Unmarshal(env.Payload, &result); err != nil {
		h.log.Info("command result unreadable",
			zap.String("machine_id", machineID), zap.Error(err))
		return protocol.Pass
	}

	if !result.Success {
		// Failed commands never move the simulated position.
		if client, ok := h.registry.GetClient(result.InitiatedClient); ok {
			_ = client.Conn.WriteJSON(protocol.CommandErrorFrame{
				Type:          "command_error",
				MachineID:     machineID,
				OriginCommand: result.OriginCommand,
			})
		}
		return protocol.Pass
	}

	m, ok := h.machines.Get(machineID)
	if !ok {
		h.log.Info("command result for unknown machine record", zap.String("machine_id", machineID))
		return protocol.Pass
	}
	kind, ok := world.KindFor(m.Record().Type)
	if !ok {
		return protocol.Pass
	}
	kind.Refresh(m, result.Fuel, result.Inventory)
	consumablesTouched := result.Fuel != nil || result.Inventory != nil

	rec := m.Record()
	switch {
	case rec.ApplyMove(result.OriginCommand):
		h.machines.Upsert(m)
		return protocol.SyncMachinesWithClients

	case result.OriginCommand == "inspect":
		h.ingestObservations(rec, result.BlockData, rec.Facing)
		h.machines.Upsert(m)
		if consumablesTouched {
			return protocol.SyncMachinesWithClients
		}
		return protocol.SyncWorldsWithClients

	case result.OriginCommand == "inspect_up":
		h.ingestObservations(rec, result.BlockData, world.Up)
		h.machines.Upsert(m)
		if consumablesTouched {
			return protocol.SyncMachinesWithClients
		}
		return protocol.SyncWorldsWithClients

	case result.OriginCommand == "inspect_down":
		h.ingestObservations(rec, result.BlockData, world.Down)
		h.machines.Upsert(m)
		if consumablesTouched {
			return protocol.SyncMachinesWithClients
		}
		return protocol.SyncWorldsWithClients

	case result.OriginCommand == protocol.CommandMoveInspect:
		rec.MoveForward()
		h.ingestObservations(rec, result.BlockData, rec.Facing)
		h.machines.Upsert(m)
		return protocol.SyncMachinesWithClients

	default:
		h.log.Info("unknown origin command",
			zap.String("machine_id", machineID), zap.String("command", result.OriginCommand))
		return protocol.Pass
	}
}

// ingestObservations upserts or clears blocks at the faces the machine
// probed. Observations are relative to the machine: forward resolves through
// its facing, up and down are absolute. Non-solid observations clear the
// coordinate; air is implicit and never persisted.
func (h *MachineHandler) ingestObservations(rec *world.MachineRecord, observations []protocol.BlockObservation, fallback world.Direction) {
	if len(observations) == 0 {
		return
	}
	for _, obs := range observations {
		dir := fallback
		switch obs.Direction {
		case "forward":
			dir = rec.Facing
		case "up":
			dir = world.Up
		case "down":
			dir = world.Down
		}
		coord := rec.Position().Add(dir.Vector())
		if obs.ID == "" || !obs.IsSolid {
			if err := h.worlds.DeleteOrIgnoreBlock(rec.WorldID, coord.X, coord.Y, coord.Z); err != nil {
				h.log.Info("block clear failed", zap.String("world_id", rec.WorldID), zap.Error(err))
			}
			continue
		}
		block := world.Block{
			ID:       obs.ID,
			X:        coord.X,
			Y:        coord.Y,
			Z:        coord.Z,
			Category: obs.Category,
			IsSolid:  obs.IsSolid,
		}
		if block.Category == "" {
			block.Category = world.BlockStatic
		}
		if err := h.worlds.AddOrUpdateBlock(rec.WorldID, block); err != nil {
			h.log.Info("block upsert failed", zap.String("world_id", rec.WorldID), zap.Error(err))
		}
	}
}
