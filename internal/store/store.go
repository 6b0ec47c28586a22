// Package store holds the three persisted collections. Each repository is an
// in-memory table guarded by its own mutex, snapshotted to a JSON document on
// a flush interval. There are no cross-collection transactions: a registration
// that creates a world and then a machine is two independent writes.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"TurtleControl/internal/world"
)

// ErrNotFound is returned when an id resolves to nothing in a collection.
var ErrNotFound = errors.New("not found")

func readDocument(path string, out any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %q: %w", path, err)
	}
	return nil
}

func writeDocument(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %q: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %q: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}

/* ------------------------------ Worlds ------------------------------ */

type worldsDocument struct {
	Worlds []world.World `json:"worlds"`
}

type Worlds struct {
	mu     sync.Mutex
	path   string
	worlds []world.World
	dirty  bool
}

func NewWorlds(path string) *Worlds {
	return &Worlds{path: path}
}

func (s *Worlds) Load() error {
	var doc worldsDocument
	if err := readDocument(s.path, &doc); err != nil {
		return err
	}
	s.mu.Lock()
	s.worlds = doc.Worlds
	s.mu.Unlock()
	return nil
}

func (s *Worlds) indexLocked(id string) int {
	for i := range s.worlds {
		if s.worlds[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Worlds) Get(id string) (world.World, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.worlds[i].Clone(), true
	}
	return world.World{}, false
}

func (s *Worlds) GetAll() []world.World {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]world.World, 0, len(s.worlds))
	for i := range s.worlds {
		out = append(out, s.worlds[i].Clone())
	}
	return out
}

// Add inserts a world unless the id already exists.
func (s *Worlds) Add(w world.World) world.World {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(w.ID); i >= 0 {
		return s.worlds[i].Clone()
	}
	s.worlds = append(s.worlds, w.Clone())
	s.dirty = true
	return w
}

// AddOrUpdateBlock upserts a block by coordinate inside the named world.
func (s *Worlds) AddOrUpdateBlock(worldID string, b world.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(worldID)
	if i < 0 {
		return fmt.Errorf("world %q: %w", worldID, ErrNotFound)
	}
	s.worlds[i].UpsertBlock(b)
	s.dirty = true
	return nil
}

// DeleteOrIgnoreBlock clears the coordinate if a block was recorded there.
func (s *Worlds) DeleteOrIgnoreBlock(worldID string, x, y, z int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(worldID)
	if i < 0 {
		return fmt.Errorf("world %q: %w", worldID, ErrNotFound)
	}
	if s.worlds[i].RemoveBlockAt(x, y, z) {
		s.dirty = true
	}
	return nil
}

func (s *Worlds) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	doc := worldsDocument{Worlds: make([]world.World, 0, len(s.worlds))}
	for i := range s.worlds {
		doc.Worlds = append(doc.Worlds, s.worlds[i].Clone())
	}
	s.dirty = false
	s.mu.Unlock()
	return writeDocument(s.path, doc)
}

/* ----------------------------- Machines ----------------------------- */

type machinesDocument struct {
	Machines []json.RawMessage `json:"machines"`
}

type Machines struct {
	mu       sync.Mutex
	path     string
	machines []world.Machine
	dirty    bool
}

func NewMachines(path string) *Machines {
	return &Machines{path: path}
}

func (s *Machines) Load() error {
	var doc machinesDocument
	if err := readDocument(s.path, &doc); err != nil {
		return err
	}
	loaded := make([]world.Machine, 0, len(doc.Machines))
	for _, raw := range doc.Machines {
		m, err := world.DecodeMachine(raw)
		if err != nil {
			return err
		}
		loaded = append(loaded, m)
	}
	s.mu.Lock()
	s.machines = loaded
	s.mu.Unlock()
	return nil
}

func (s *Machines) indexLocked(id string) int {
	for i := range s.machines {
		if s.machines[i].Record().ID == id {
			return i
		}
	}
	return -1
}

func (s *Machines) Get(id string) (world.Machine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.machines[i].Clone(), true
	}
	return nil, false
}

func (s *Machines) GetAll() []world.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]world.Machine, 0, len(s.machines))
	for _, m := range s.machines {
		out = append(out, m.Clone())
	}
	return out
}

// Upsert writes the machine at its existing index or appends it. A machine
// id, once persisted, never gains a duplicate row.
func (s *Machines) Upsert(m world.Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := m.Clone()
	if i := s.indexLocked(m.Record().ID); i >= 0 {
		s.machines[i] = copied
	} else {
		s.machines = append(s.machines, copied)
	}
	s.dirty = true
}

func (s *Machines) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("machine %q: %w", id, ErrNotFound)
	}
	s.machines = append(s.machines[:i], s.machines[i+1:]...)
	s.dirty = true
	return nil
}

func (s *Machines) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	doc := machinesDocument{Machines: make([]json.RawMessage, 0, len(s.machines))}
	for _, m := range s.machines {
		raw, err := json.Marshal(m)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("marshal machine %q: %w", m.Record().ID, err)
		}
		doc.Machines = append(doc.Machines, raw)
	}
	s.dirty = false
	s.mu.Unlock()
	return writeDocument(s.path, doc)
}

/* ------------------------------ Users ------------------------------- */

// User is persisted for the HTTP login layer; the core only reads it.
type User struct {
	ID           string `json:"id"`
	PasswordHash string `json:"password_hash"`
}

type usersDocument struct {
	Users []User `json:"users"`
}

type Users struct {
	mu    sync.Mutex
	path  string
	users []User
	dirty bool
}

func NewUsers(path string) *Users {
	return &Users{path: path}
}

func (s *Users) Load() error {
	var doc usersDocument
	if err := readDocument(s.path, &doc); err != nil {
		return err
	}
	s.mu.Lock()
	s.users = doc.Users
	s.mu.Unlock()
	return nil
}

func (s *Users) Get(id string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

func (s *Users) Upsert(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == u.ID {
			s.users[i] = u
			s.dirty = true
			return
		}
	}
	s.users = append(s.users, u)
	s.dirty = true
}

func (s *Users) Flush() error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	doc := usersDocument{Users: append([]User(nil), s.users...)}
	s.dirty = false
	s.mu.Unlock()
	return writeDocument(s.path, doc)
}
