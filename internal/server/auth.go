package server

import (
	"sync"

	"github.com/google/uuid"

	"TurtleControl/internal/protocol"
)

// APIKeys is the ephemeral bidirectional apiKey<->username table. Keys are
// issued by the HTTP login layer and consumed here for authorization only.
// A username holds at most one active key; issuing a new one revokes the old.
type APIKeys struct {
	mu     sync.RWMutex
	byKey  map[string]string
	byUser map[string]string
}

func NewAPIKeys() *APIKeys {
	return &APIKeys{
		byKey:  make(map[string]string),
		byUser: make(map[string]string),
	}
}

func (a *APIKeys) Add(apiKey, username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if old, ok := a.byUser[username]; ok {
		delete(a.byKey, old)
	}
	a.byKey[apiKey] = username
	a.byUser[username] = apiKey
}

// Issue mints a fresh key for the username and registers it.
func (a *APIKeys) Issue(username string) string {
	key := uuid.NewString()
	a.Add(key, username)
	return key
}

func (a *APIKeys) Username(apiKey string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	username, ok := a.byKey[apiKey]
	return username, ok
}

func (a *APIKeys) KeyFor(username string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	key, ok := a.byUser[username]
	return key, ok
}

func (a *APIKeys) IsClientAuthorized(apiKey string) bool {
	_, ok := a.Username(apiKey)
	return ok
}

// isAuthorized gates every inbound message before role dispatch. Clients
// resolve through the key table; machines must present the configured
// machine key. The initiate message never reaches this check.
func isAuthorized(keys *APIKeys, machineKey, apiKey string, clientType protocol.ClientType) bool {
	if apiKey == "" {
		return false
	}
	switch clientType {
	case protocol.ClientTypeClient:
		return keys.IsClientAuthorized(apiKey)
	case protocol.ClientTypeMachine:
		return machineKey != "" && apiKey == machineKey
	default:
		return false
	}
}
