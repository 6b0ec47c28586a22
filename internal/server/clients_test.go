package server

import (
	"testing"

	"TurtleControl/internal/protocol"
)

func TestClientRegister(t *testing.T) {
	f := newFixture(t)
	conn := newFakeConn()

	directive := f.clientH.Register(conn, protocol.Envelope{
		Type:       protocol.MessageRegister,
		ClientType: protocol.ClientTypeClient,
		ID:         "sam",
	})
	if directive != protocol.SyncMachinesWithCurrentClient {
		t.Errorf("directive = %q", directive)
	}
	if _, ok := f.registry.GetClient("sam"); !ok {
		t.Error("client not in the registry")
	}
	ack, ok := conn.lastFrame(t).(protocol.RegisterAck)
	if !ok || ack.ID != "sam" {
		t.Errorf("ack = %+v", conn.lastFrame(t))
	}
}

func TestClientRegisterWithoutUsernameIgnored(t *testing.T) {
	f := newFixture(t)
	if d := f.clientH.Register(newFakeConn(), protocol.Envelope{}); d != protocol.Pass {
		t.Errorf("directive = %q", d)
	}
	if f.registry.ClientCount() != 0 {
		t.Error("nothing should be registered")
	}
}

func TestClientUnregister(t *testing.T) {
	f := newFixture(t)
	conn := newFakeConn()
	f.registry.PutClient("sam", conn)

	if d := f.clientH.Unregister(conn); d != protocol.Pass {
		t.Errorf("directive = %q", d)
	}
	if f.registry.ClientCount() != 0 {
		t.Error("client should be gone")
	}
	if d := f.clientH.Unregister(conn); d != protocol.Pass {
		t.Errorf("second unregister directive = %q", d)
	}
}

func TestClientDataForwardsMovement(t *testing.T) {
	f := newFixture(t)
	key := f.keys.Issue("sam")
	machineConn := newFakeConn()
	f.registry.PutMachine("7:W1", "turtle", machineConn)

	directive := f.clientH.Data(newFakeConn(), protocol.Envelope{
		APIKey: key,
		Payload: rawJSON(t, protocol.ClientDataPayload{
			Command:   "forward",
			MachineID: "7:W1",
		}),
	})
	if directive != protocol.Pass {
		t.Errorf("directive = %q", directive)
	}
	frame, ok := machineConn.lastFrame(t).(protocol.CommandFrame)
	if !ok || frame.Command != "forward" || frame.InitiatedClient != "sam" {
		t.Errorf("machine got %+v", machineConn.lastFrame(t))
	}
}

func TestClientDataRoutesAccept(t *testing.T) {
	f := newFixture(t)
	key := f.keys.Issue("sam")
	stagedConn := newFakeConn()
	f.registry.Stage("7", "turtle", stagedConn)

	directive := f.clientH.Data(newFakeConn(), protocol.Envelope{
		APIKey: key,
		Payload: rawJSON(t, protocol.ClientDataPayload{
			Command:   protocol.CommandAcceptMachine,
			MachineID: "7",
			Data: rawJSON(t, protocol.AcceptPayload{
				Cords:   &protocol.Coordinates{X: 1, Y: 2, Z: 3},
				Facing:  "south",
				WorldID: "W1",
			}),
		}),
	})
	if directive != protocol.SyncUninitiatedMachinesWithClients {
		t.Errorf("directive = %q", directive)
	}
	if _, ok := f.machines.Get("7:W1"); !ok {
		t.Error("accept routed through client data should persist the machine")
	}
}

func TestClientDataRoutesReject(t *testing.T) {
	f := newFixture(t)
	key := f.keys.Issue("sam")
	stagedConn := newFakeConn()
	f.registry.Stage("7", "turtle", stagedConn)

	directive := f.clientH.Data(newFakeConn(), protocol.Envelope{
		APIKey: key,
		Payload: rawJSON(t, protocol.ClientDataPayload{
			Command:   protocol.CommandRejectMachine,
			MachineID: "7",
		}),
	})
	if directive != protocol.SyncUninitiatedMachinesWithClients {
		t.Errorf("directive = %q", directive)
	}
	if texts := stagedConn.Texts(); len(texts) != 1 || texts[0] != protocol.RejectedSignal {
		t.Errorf("staged machine got %v", texts)
	}
}

func TestClientDataDropsUnroutable(t *testing.T) {
	f := newFixture(t)
	key := f.keys.Issue("sam")

	cases := []struct {
		name string
		env  protocol.Envelope
	}{
		{"unresolvable key", protocol.Envelope{APIKey: "stale",
			Payload: rawJSON(t, protocol.ClientDataPayload{Command: "forward"})}},
		{"missing payload", protocol.Envelope{APIKey: key}},
		{"missing command", protocol.Envelope{APIKey: key,
			Payload: rawJSON(t, protocol.ClientDataPayload{MachineID: "7:W1"})}},
		{"unknown command", protocol.Envelope{APIKey: key,
			Payload: rawJSON(t, protocol.ClientDataPayload{Command: "self_destruct", MachineID: "7:W1"})}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if d := f.clientH.Data(newFakeConn(), tc.env); d != protocol.Pass {
				t.Errorf("directive = %q", d)
			}
		})
	}
}
