package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"TurtleControl/internal/logging"
	"TurtleControl/internal/store"
	"TurtleControl/internal/taskq"
)

// App wires the session core together: stores, registries, the two task
// queues, the role handlers, and the sync dispatcher.
type App struct {
	cfg AppConfig
	log *zap.Logger

	registry *Registry
	keys     *APIKeys
	worlds   *store.Worlds
	machines *store.Machines
	users    *store.Users

	messageQueue *taskq.Queue
	commandQueue *taskq.Queue

	machineHandler *MachineHandler
	clientHandler  *ClientHandler
	dispatcher     *Dispatcher
	metrics        *Collector
}

// NewApp builds the core. Loading store snapshots is part of construction so
// a half-initialized app is never reachable.
func NewApp(cfg AppConfig) (*App, error) {
	a := &App{
		cfg:      cfg,
		log:      logging.Tagged("server"),
		registry: NewRegistry(),
		keys:     NewAPIKeys(),
		worlds:   store.NewWorlds(cfg.WorldsPath),
		machines: store.NewMachines(cfg.MachinesPath),
		users:    store.NewUsers(cfg.UsersPath),
	}

	if err := a.worlds.Load(); err != nil {
		return nil, err
	}
	if err := a.machines.Load(); err != nil {
		return nil, err
	}
	if err := a.users.Load(); err != nil {
		return nil, err
	}

	a.messageQueue = taskq.New("messageQueue", cfg.MaxConcurrency, cfg.WorkerTimeout, logging.Tagged("taskq"))
	a.commandQueue = taskq.New("commandQueue", cfg.MaxConcurrency, cfg.WorkerTimeout, logging.Tagged("taskq"))

	metrics, err := NewCollector(prometheus.NewRegistry(), a.registry, a.messageQueue, a.commandQueue)
	if err != nil {
		return nil, err
	}
	a.metrics = metrics

	a.machineHandler = NewMachineHandler(logging.Tagged("machines"), a.registry, a.worlds, a.machines, cfg.MachineAPIKey)
	a.clientHandler = NewClientHandler(logging.Tagged("clients"), a.registry, a.keys, a.machineHandler)
	a.dispatcher = NewDispatcher(logging.Tagged("sync"), a.registry, a.worlds, a.machines, a.commandQueue, metrics)
	return a, nil
}

// APIKeys exposes the key table to the HTTP login collaborator.
func (a *App) APIKeys() *APIKeys { return a.keys }

// Users exposes the user store to the HTTP login collaborator.
func (a *App) Users() *store.Users { return a.users }

func (a *App) flushStores() {
	if err := a.worlds.Flush(); err != nil {
		a.log.Error("world flush failed", zap.Error(err))
	}
	if err := a.machines.Flush(); err != nil {
		a.log.Error("machine flush failed", zap.Error(err))
	}
	if err := a.users.Flush(); err != nil {
		a.log.Error("user flush failed", zap.Error(err))
	}
}

// StartApp runs the server until the listener fails.
func StartApp(cfg AppConfig) {
	if err := logging.Init(cfg.LogLevel); err != nil {
		panic(err)
	}
	log := logging.Tagged("app")

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}

	if cfg.MachineAPIKey == "" {
		log.Warn("no machine API key configured; machines cannot authorize")
	}

	// Periodic store flush; the in-memory tables are the source of truth.
	go func() {
		ticker := time.NewTicker(cfg.FlushInterval)
		defer ticker.Stop()
		for range ticker.C {
			app.flushStores()
		}
	}()

	if err := app.startServer(); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
