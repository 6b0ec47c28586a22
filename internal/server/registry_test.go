package server

import "testing"

func TestRegistryReverseLookups(t *testing.T) {
	r := NewRegistry()
	clientConn := newFakeConn()
	machineConn := newFakeConn()
	stagedConn := newFakeConn()

	r.PutClient("sam", clientConn)
	r.PutMachine("7:W1", "turtle", machineConn)
	r.Stage("9", "turtle", stagedConn)

	if username, ok := r.ClientFor(clientConn); !ok || username != "sam" {
		t.Errorf("ClientFor = %q, %v", username, ok)
	}
	if id, ok := r.MachineFor(machineConn); !ok || id != "7:W1" {
		t.Errorf("MachineFor = %q, %v", id, ok)
	}
	if id, ok := r.StagedFor(stagedConn); !ok || id != "9" {
		t.Errorf("StagedFor = %q, %v", id, ok)
	}

	// A connection holds exactly one role.
	if _, ok := r.MachineFor(clientConn); ok {
		t.Error("client connection must not resolve as a machine")
	}
	if _, ok := r.ClientFor(machineConn); ok {
		t.Error("machine connection must not resolve as a client")
	}
	if _, ok := r.StagedFor(machineConn); ok {
		t.Error("registered machine connection must not resolve as staged")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.PutClient("sam", newFakeConn())
	r.PutMachine("7:W1", "turtle", newFakeConn())
	r.Stage("9", "turtle", newFakeConn())

	if !r.RemoveClient("sam") || r.RemoveClient("sam") {
		t.Error("RemoveClient should report the first removal only")
	}
	if !r.RemoveMachine("7:W1") || r.RemoveMachine("7:W1") {
		t.Error("RemoveMachine should report the first removal only")
	}
	if !r.Unstage("9") || r.Unstage("9") {
		t.Error("Unstage should report the first removal only")
	}

	if r.ClientCount() != 0 || r.MachineCount() != 0 || r.UninitiatedCount() != 0 {
		t.Error("registry should be empty after removals")
	}
}

func TestRegistrySnapshots(t *testing.T) {
	r := NewRegistry()
	r.PutClient("sam", newFakeConn())
	r.PutMachine("7:W1", "turtle", newFakeConn())
	r.Stage("9", "turtle", newFakeConn())

	if got := r.ClientsSnapshot(); len(got) != 1 || got[0] != "sam" {
		t.Errorf("ClientsSnapshot = %v", got)
	}
	if got := r.MachinesSnapshot(); got["7:W1"] != "turtle" {
		t.Errorf("MachinesSnapshot = %v", got)
	}
	staged := r.UninitiatedSnapshot()
	if len(staged) != 1 || staged[0].ID != "9" || staged[0].Type != "turtle" {
		t.Errorf("UninitiatedSnapshot = %v", staged)
	}
	if !r.IsMachineConnected("7:W1") || r.IsMachineConnected("8:W1") {
		t.Error("IsMachineConnected mismatch")
	}
}
