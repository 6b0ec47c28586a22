package server

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"TurtleControl/internal/store"
)

// fakeConn records everything written to it so handler tests never need a
// real socket.
type fakeConn struct {
	key uint64

	mu        sync.Mutex
	frames    []any
	texts     []string
	closed    bool
	closeCode int
}

var fakeConnKeys atomic.Uint64

func newFakeConn() *fakeConn {
	return &fakeConn{key: fakeConnKeys.Add(1)}
}

func (c *fakeConn) Key() uint64 { return c.key }

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, v)
	return nil
}

func (c *fakeConn) WriteText(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, s)
	return nil
}

func (c *fakeConn) ClosePolicy(code int, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCode = code
	return nil
}

func (c *fakeConn) Frames() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.frames...)
}

func (c *fakeConn) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.texts...)
}

func (c *fakeConn) Closed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}

func (c *fakeConn) lastFrame(t *testing.T) any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		t.Fatal("no frame written")
	}
	return c.frames[len(c.frames)-1]
}

const testMachineKey = "machine-secret"

// fixture wires the handlers over fresh stores and registry for one test.
type fixture struct {
	registry *Registry
	keys     *APIKeys
	worlds   *store.Worlds
	machines *store.Machines
	machineH *MachineHandler
	clientH  *ClientHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		registry: NewRegistry(),
		keys:     NewAPIKeys(),
		worlds:   store.NewWorlds(filepath.Join(dir, "world.json")),
		machines: store.NewMachines(filepath.Join(dir, "machine.json")),
	}
	f.machineH = NewMachineHandler(zap.NewNop(), f.registry, f.worlds, f.machines, testMachineKey)
	f.clientH = NewClientHandler(zap.NewNop(), f.registry, f.keys, f.machineH)
	return f
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}
