package command

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/yndnr/chartered-cli/internal/cli/config"
	"github.com/yndnr/chartered-cli/internal/cli/connection"
	"github.com/yndnr/chartered-cli/internal/core/service"
	"github.com/yndnr/chartered-cli/internal/storage"
	"github.com/yndnr/chartered-cli/internal/telemetry/logger"
	"github.com/yndnr/chartered-cli/internal/telemetry/metric"
)

// Runtime holds the components shared by every command run in one
// process. The shell keeps a single Runtime across lines.
type Runtime struct {
	Config    *config.CLIConfig
	Logger    logger.Logger
	Metrics   *metric.Registry
	Storage   storage.KVEngine
	Store     *service.AuthStore
	Gateway   *connection.Gateway
	Login     *service.LoginFlow
	Navigator *browserNavigator

	mu        sync.Mutex
	scheduler *service.ExtensionScheduler
	sync      *service.SessionSync
	closed    bool
}

// NewRuntime wires storage, the auth store, the gateway and the login
// flow from cfg. Diagnostics go to errOut.
func NewRuntime(cfg *config.CLIConfig, errOut io.Writer) (*Runtime, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: errOut,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.SetDefault(log)

	kv, err := openStorage(cfg, log)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:  cfg,
		Logger:  log,
		Metrics: metric.NewRegistry(),
		Storage: kv,
	}

	if err := rt.wire(errOut); err != nil {
		kv.Close()
		return nil, err
	}
	return rt, nil
}

func openStorage(cfg *config.CLIConfig, log logger.Logger) (storage.KVEngine, error) {
	path := cfg.StoragePath()

	switch cfg.Storage.Engine {
	case storage.EngineMemory:
	case storage.EngineBadger:
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	kv, err := storage.Open(storage.Config{
		Engine: cfg.Storage.Engine,
		Path:   path,
	}, log.Slog())
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	return kv, nil
}

func (r *Runtime) wire(errOut io.Writer) error {
	persist, err := service.NewSessionPersistence(r.Storage,
		service.WithPassphrase(r.Config.Storage.EncryptionPassphrase),
		service.WithPersistenceLogger(r.Logger),
	)
	if err != nil {
		return err
	}

	r.Store, err = service.NewAuthStore(persist, service.WithStoreLogger(r.Logger))
	if err != nil {
		return err
	}
	r.Metrics.MustRegister(metric.NewCollector(r.Store))

	r.Gateway, err = connection.NewGateway(r.Store, connection.Config{
		BaseURL:    r.Config.Server.URL,
		Timeout:    r.Config.Gateway.Timeout,
		CAFile:     r.Config.Server.CAFile,
		ClientCert: r.Config.Server.ClientCert,
		ClientKey:  r.Config.Server.ClientKey,
		RateLimit:  r.Config.Gateway.RateLimit,
		Burst:      r.Config.Gateway.Burst,
	},
		connection.WithMetrics(r.Metrics),
		connection.WithLogger(r.Logger),
	)
	if err != nil {
		return err
	}

	r.Navigator = &browserNavigator{out: errOut}
	r.Login = service.NewLoginFlow(r.Store, r.Gateway, r.Navigator, r.telemetry())
	return nil
}

func (r *Runtime) telemetry() service.Telemetry {
	return service.Telemetry{Logger: r.Logger, Metrics: r.Metrics}
}

// Scheduler returns the extension scheduler, creating it on first use.
// One-shot commands never create it.
func (r *Runtime) Scheduler() *service.ExtensionScheduler {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.scheduler == nil {
		r.scheduler = service.NewExtensionScheduler(r.Store, r.Gateway, r.Config.Extension.Interval, r.telemetry())
	}
	return r.scheduler
}

// StartSync follows changes other processes make to the session file.
// Engines without a file have nothing to follow.
func (r *Runtime) StartSync() error {
	if engine := r.Config.Storage.Engine; engine != "" && engine != storage.EngineFile {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sync != nil {
		return nil
	}
	s, err := service.NewSessionSync(r.Store, r.Config.StoragePath(), r.Logger)
	if err != nil {
		return err
	}
	s.Start()
	r.sync = s
	return nil
}

// Close stops background work and closes storage. It is idempotent.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	scheduler, ss := r.scheduler, r.sync
	r.mu.Unlock()

	if scheduler != nil {
		scheduler.Close()
	}
	if ss != nil {
		if err := ss.Close(); err != nil {
			r.Logger.Warn("stop session sync", "error", err)
		}
	}
	if r.Gateway != nil {
		r.Gateway.Close()
	}
	return r.Storage.Close()
}
