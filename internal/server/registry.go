package server

import (
	"sync"

	"TurtleControl/internal/world"
)

// ClientConnection is an authenticated operator socket.
type ClientConnection struct {
	Conn     Conn
	Username string
}

// MachineConnection is a registered machine socket.
type MachineConnection struct {
	Conn      Conn
	MachineID string
	Type      string
}

// UninitiatedConnection is a staged machine awaiting accept or reject.
type UninitiatedConnection struct {
	Conn       Conn
	ComputerID string
	Type       string
}

// Registry maps live connections to their role-specific keys: clients by
// username, machines by machine id, staged machines by computer id. A
// connection holds exactly one role for its lifetime.
type Registry struct {
	mu          sync.RWMutex
	clients     map[string]*ClientConnection
	machines    map[string]*MachineConnection
	uninitiated map[string]*UninitiatedConnection
}

func NewRegistry() *Registry {
	return &Registry{
		clients:     make(map[string]*ClientConnection),
		machines:    make(map[string]*MachineConnection),
		uninitiated: make(map[string]*UninitiatedConnection),
	}
}

/* ------------------------------ Clients ----------------------------- */

func (r *Registry) PutClient(username string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[username] = &ClientConnection{Conn: conn, Username: username}
}

func (r *Registry) GetClient(username string) (*ClientConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[username]
	return c, ok
}

// ClientFor reverse-looks-up the username registered for a connection.
func (r *Registry) ClientFor(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for username, c := range r.clients {
		if c.Conn.Key() == conn.Key() {
			return username, true
		}
	}
	return "", false
}

func (r *Registry) RemoveClient(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[username]; !ok {
		return false
	}
	delete(r.clients, username)
	return true
}

// ForEachClient calls fn for every connected client under the read lock.
func (r *Registry) ForEachClient(fn func(c *ClientConnection)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		fn(c)
	}
}

/* ----------------------------- Machines ----------------------------- */

func (r *Registry) PutMachine(machineID, machineType string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machines[machineID] = &MachineConnection{Conn: conn, MachineID: machineID, Type: machineType}
}

func (r *Registry) GetMachine(machineID string) (*MachineConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.machines[machineID]
	return m, ok
}

func (r *Registry) IsMachineConnected(machineID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.machines[machineID]
	return ok
}

// MachineFor reverse-looks-up the machine id registered for a connection.
func (r *Registry) MachineFor(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, m := range r.machines {
		if m.Conn.Key() == conn.Key() {
			return id, true
		}
	}
	return "", false
}

func (r *Registry) RemoveMachine(machineID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.machines[machineID]; !ok {
		return false
	}
	delete(r.machines, machineID)
	return true
}

/* ---------------------------- Uninitiated --------------------------- */

func (r *Registry) Stage(computerID, machineType string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uninitiated[computerID] = &UninitiatedConnection{Conn: conn, ComputerID: computerID, Type: machineType}
}

func (r *Registry) Staged(computerID string) (*UninitiatedConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.uninitiated[computerID]
	return u, ok
}

// StagedFor reverse-looks-up the computer id staged for a connection.
func (r *Registry) StagedFor(conn Conn) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, u := range r.uninitiated {
		if u.Conn.Key() == conn.Key() {
			return id, true
		}
	}
	return "", false
}

func (r *Registry) Unstage(computerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uninitiated[computerID]; !ok {
		return false
	}
	delete(r.uninitiated, computerID)
	return true
}

/* ----------------------------- Snapshots ----------------------------- */

// UninitiatedSnapshot lists staged machines for broadcasts and the REST layer.
func (r *Registry) UninitiatedSnapshot() []world.UninitiatedMachine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]world.UninitiatedMachine, 0, len(r.uninitiated))
	for id, u := range r.uninitiated {
		out = append(out, world.UninitiatedMachine{ID: id, Type: u.Type})
	}
	return out
}

// MachinesSnapshot maps connected machine ids to their declared type.
func (r *Registry) MachinesSnapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.machines))
	for id, m := range r.machines {
		out[id] = m.Type
	}
	return out
}

// ClientsSnapshot lists usernames with a live connection.
func (r *Registry) ClientsSnapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.clients))
	for username := range r.clients {
		out = append(out, username)
	}
	return out
}

func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func (r *Registry) MachineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.machines)
}

func (r *Registry) UninitiatedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.uninitiated)
}
