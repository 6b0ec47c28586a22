package server

import (
	"encoding/json"

	"go.uber.org/zap"

	"TurtleControl/internal/protocol"
)

// ClientHandler owns the operator side of the session protocol: registration
// of authenticated clients and decoding of their commands into machine
// handler calls.
type ClientHandler struct {
	log      *zap.Logger
	registry *Registry
	keys     *APIKeys
	machines *MachineHandler
}

func NewClientHandler(log *zap.Logger, registry *Registry, keys *APIKeys, machines *MachineHandler) *ClientHandler {
	return &ClientHandler{log: log, registry: registry, keys: keys, machines: machines}
}

// Register attaches an operator connection under its username and triggers a
// targeted machine sync so the new client catches up immediately.
func (h *ClientHandler) Register(conn Conn, env protocol.Envelope) protocol.Directive {
	if env.ID == "" {
		h.log.Info("client register without username ignored")
		return protocol.Pass
	}
	h.registry.PutClient(env.ID, conn)
	_ = conn.WriteJSON(protocol.RegisterAck{Type: "register", ID: env.ID})
	h.log.Info("client registered", zap.String("username", env.ID))
	return protocol.SyncMachinesWithCurrentClient
}

// Unregister removes an operator connection by identity.
func (h *ClientHandler) Unregister(conn Conn) protocol.Directive {
	username, ok := h.registry.ClientFor(conn)
	if !ok {
		return protocol.Pass
	}
	h.registry.RemoveClient(username)
	h.log.Info("client unregistered", zap.String("username", username))
	return protocol.Pass
}

// Data decodes an operator command and routes it. Accept/reject manage the
// staging collection; movement and inspection verbs are relayed to the
// machine; anything else is logged and dropped.
func (h *ClientHandler) Data(conn Conn, env protocol.Envelope) protocol.Directive {
	username, ok := h.keys.Username(env.APIKey)
	if !ok {
		h.log.Info("client data with unresolvable api key")
		return protocol.Pass
	}

	var payload protocol.ClientDataPayload
	if len(env.Payload) == 0 {
		h.log.Info("client data without payload", zap.String("username", username))
		return protocol.Pass
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		h.log.Info("client data payload unreadable",
			zap.String("username", username), zap.Error(err))
		return protocol.Pass
	}
	if payload.Command == "" {
		h.log.Info("client data without command", zap.String("username", username))
		return protocol.Pass
	}

	switch {
	case payload.Command == protocol.CommandAcceptMachine:
		return h.machines.AcceptMachine(payload.MachineID, payload.Data, conn)

	case payload.Command == protocol.CommandRejectMachine:
		return h.machines.RejectMachine(payload.MachineID)

	case protocol.IsForwardable(payload.Command):
		return h.machines.SendCommand(payload.MachineID, payload.Command, username)

	default:
		h.log.Info("unknown client command",
			zap.String("username", username), zap.String("command", payload.Command))
		return protocol.Pass
	}
}
