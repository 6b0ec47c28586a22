package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"TurtleControl/internal/logging"
	"TurtleControl/internal/protocol"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWS owns one socket: it parses frames synchronously and defers all
// processing onto the message queue, one task per frame, so per-connection
// ordering follows arrival order. Socket closure is routed through the same
// queue as a synthetic task, which guarantees any already-enqueued messages
// from this connection drain before unregistration runs.
func (a *App) serveWS(w http.ResponseWriter, r *http.Request) {
	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Info("upgrade failed", zap.Error(err))
		return
	}
	conn := newWSConn(sock)
	a.log.Info("new connection initiating")

	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			break
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// Malformed frames die here; the connection stays open.
			a.log.Info("malformed envelope dropped",
				zap.String("message", logging.Redact(string(data))), zap.Error(err))
			continue
		}
		a.messageQueue.Add(func(_ context.Context) { a.process(conn, env) })
	}

	a.messageQueue.Add(func(_ context.Context) { a.connectionClosed(conn) })
}

func (a *App) process(conn Conn, env protocol.Envelope) {
	a.metrics.MessagesProcessed.WithLabelValues(string(env.Type)).Inc()

	// First contact: the machine has no key yet, this is how it gets one.
	if env.Type == protocol.MessageInitiate {
		a.dispatcher.Dispatch(a.machineHandler.RegisterUninitiated(conn, env), conn)
		return
	}

	if !env.ClientType.Valid() {
		a.log.Info("invalid client type", zap.String("clientType", string(env.ClientType)))
		_ = conn.ClosePolicy(websocket.ClosePolicyViolation, "Invalid client type")
		return
	}
	if !isAuthorized(a.keys, a.cfg.MachineAPIKey, env.APIKey, env.ClientType) {
		a.metrics.Unauthorized.Inc()
		a.log.Info("unauthorized message refused", zap.String("clientType", string(env.ClientType)))
		_ = conn.ClosePolicy(websocket.ClosePolicyViolation, "Not authorized")
		return
	}

	switch env.Type {
	case protocol.MessageRegister:
		if env.ClientType == protocol.ClientTypeClient {
			a.dispatcher.Dispatch(a.clientHandler.Register(conn, env), conn)
		} else {
			a.dispatcher.Dispatch(a.machineHandler.Register(conn, env), conn)
		}

	case protocol.MessageUnregister:
		if env.ClientType == protocol.ClientTypeClient {
			a.dispatcher.Dispatch(a.clientHandler.Unregister(conn), conn)
		} else {
			a.dispatcher.Dispatch(a.machineHandler.Unregister(conn), conn)
		}

	case protocol.MessageData:
		if env.ClientType == protocol.ClientTypeClient {
			a.dispatcher.Dispatch(a.clientHandler.Data(conn, env), conn)
		} else {
			a.dispatcher.Dispatch(a.machineHandler.Data(conn, env), conn)
		}

	default:
		a.log.Info("unknown message type", zap.String("type", string(env.Type)))
	}
}

// connectionClosed sweeps the connection out of whichever collection holds
// it. At most one of these finds anything: a connection has one role.
func (a *App) connectionClosed(conn Conn) {
	a.log.Info("connection closed")
	a.dispatcher.Dispatch(a.clientHandler.Unregister(conn), conn)
	a.dispatcher.Dispatch(a.machineHandler.Unregister(conn), conn)
	a.dispatcher.Dispatch(a.machineHandler.UnregisterUninitiated(conn), conn)
}
