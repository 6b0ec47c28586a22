package server

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"TurtleControl/internal/protocol"
	"TurtleControl/internal/store"
	"TurtleControl/internal/taskq"
	"TurtleControl/internal/world"
)

// Dispatcher turns a handler's sync directive into the concrete broadcast,
// executed on the command queue so fan-out latency never blocks ingestion.
type Dispatcher struct {
	log      *zap.Logger
	registry *Registry
	worlds   *store.Worlds
	machines *store.Machines
	queue    *taskq.Queue
	metrics  *Collector
}

func NewDispatcher(log *zap.Logger, registry *Registry, worlds *store.Worlds, machines *store.Machines, queue *taskq.Queue, metrics *Collector) *Dispatcher {
	return &Dispatcher{
		log:      log,
		registry: registry,
		worlds:   worlds,
		machines: machines,
		queue:    queue,
		metrics:  metrics,
	}
}

// Dispatch enqueues the broadcast for a directive. origin is the connection
// whose message produced the directive; targeted syncs go only to it.
func (d *Dispatcher) Dispatch(directive protocol.Directive, origin Conn) {
	if directive == protocol.Pass {
		return
	}
	if d.metrics != nil {
		d.metrics.Broadcasts.WithLabelValues(string(directive)).Inc()
	}
	d.queue.Add(func(_ context.Context) {
		switch directive {
		case protocol.SyncMachinesWithClients:
			d.SyncMachinesWithClients()
		case protocol.SyncMachinesWithCurrentClient:
			d.SyncMachinesWithClient(origin)
		case protocol.SyncUninitiatedMachinesWithClients:
			d.SyncUninitiatedMachinesWithClients()
		case protocol.SyncWorldsWithClients:
			d.SyncWorldsWithClients()
		default:
			d.log.Info("unknown sync directive", zap.String("directive", string(directive)))
		}
	})
}

// MachineViews reads the persisted machines and merges in live connection
// status. Shared by the websocket broadcasts and the REST snapshot surface.
func (d *Dispatcher) MachineViews() []map[string]any {
	machines := d.machines.GetAll()
	views := make([]map[string]any, 0, len(machines))
	for _, m := range machines {
		view, err := machineView(m, d.registry.IsMachineConnected(m.Record().ID))
		if err != nil {
			d.log.Error("machine view failed",
				zap.String("machine_id", m.Record().ID), zap.Error(err))
			continue
		}
		views = append(views, view)
	}
	return views
}

// machineView flattens a machine into its wire form plus connected status.
func machineView(m world.Machine, connected bool) (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var view map[string]any
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, err
	}
	view["connected"] = connected
	return view, nil
}

func (d *Dispatcher) broadcast(frame protocol.SyncFrame) {
	d.registry.ForEachClient(func(c *ClientConnection) {
		if err := c.Conn.WriteJSON(frame); err != nil {
			d.log.Info("broadcast write failed",
				zap.String("username", c.Username), zap.String("frame", frame.Type), zap.Error(err))
		}
	})
}

func (d *Dispatcher) SyncMachinesWithClients() {
	d.broadcast(protocol.SyncMachines(d.MachineViews()))
}

func (d *Dispatcher) SyncMachinesWithClient(conn Conn) {
	if conn == nil {
		return
	}
	if err := conn.WriteJSON(protocol.SyncMachines(d.MachineViews())); err != nil {
		d.log.Info("targeted machine sync failed", zap.Error(err))
	}
}

func (d *Dispatcher) SyncUninitiatedMachinesWithClients() {
	d.broadcast(protocol.SyncUninitiated(d.registry.UninitiatedSnapshot()))
}

func (d *Dispatcher) SyncWorldsWithClients() {
	d.broadcast(protocol.SyncWorlds(d.worlds.GetAll()))
}
