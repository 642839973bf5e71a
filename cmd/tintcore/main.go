// Tint Core - Electrochromic Panel Fleet Control
//
// This is the main entry point for the Tint Core service. It wires the
// SQLite-backed fleet store, the tint control engine, the execution
// backend (simulator or remote vendor API), the REST/WebSocket API, and
// the optional MQTT and InfluxDB integrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tintworks/tintcore/migrations"

	"github.com/tintworks/tintcore/internal/api"
	"github.com/tintworks/tintcore/internal/audit"
	"github.com/tintworks/tintcore/internal/backend"
	"github.com/tintworks/tintcore/internal/engine"
	"github.com/tintworks/tintcore/internal/fleet"
	"github.com/tintworks/tintcore/internal/infrastructure/config"
	"github.com/tintworks/tintcore/internal/infrastructure/database"
	"github.com/tintworks/tintcore/internal/infrastructure/influxdb"
	"github.com/tintworks/tintcore/internal/infrastructure/logging"
	"github.com/tintworks/tintcore/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Tint Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise fleet store: seed the default fleet on first run,
	// import any legacy JSON snapshot, then load the cache.
	store := fleet.NewStore(
		fleet.NewSQLiteConfigRepository(db.DB),
		fleet.NewSQLiteStateRepository(db.DB),
		log,
	)
	if err := store.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrapping fleet: %w", err)
	}
	if err := store.ImportLegacySnapshot(ctx, cfg.Database.LegacySnapshot); err != nil {
		return fmt.Errorf("importing legacy snapshot: %w", err)
	}
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("loading fleet store: %w", err)
	}
	log.Info("fleet store loaded", "panels", len(store.ListPanels()), "groups", len(store.ListGroups()))

	// Broadcaster fans committed panel state out to the WebSocket hub
	// and the optional MQTT/InfluxDB sinks.
	broadcaster := engine.NewBroadcaster(store, log)

	// Select execution backend
	be, err := buildBackend(cfg, store, broadcaster, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing backend", "mode", be.Mode())
		if closeErr := be.Close(); closeErr != nil {
			log.Error("error closing backend", "error", closeErr)
		}
	}()
	log.Info("backend initialised", "mode", be.Mode())

	auditRepo := audit.NewSQLiteRepository(db.DB)

	eng := engine.New(store, be, auditRepo, log)

	// Connect to MQTT broker (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		broadcaster.AddSink(mqtt.NewPanelStatePublisher(mqttClient))
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(influxErr, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case influxErr != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		broadcaster.AddSink(influxdb.NewTransitionRecorder(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Start API server
	srv, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Store:    store,
		Engine:   eng,
		Audit:    auditRepo,
		Mode:     be.Mode(),
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	broadcaster.AddSink(srv.Hub())

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, MQTT, backend, database.

	log.Info("Tint Core stopped")
	return nil
}

// loadConfig loads the config file, falling back to built-in defaults
// when no file exists so sim mode works out of the box.
func loadConfig(log *logging.Logger) (*config.Config, error) {
	path := getConfigPath()
	cfg, err := config.Load(path)
	if err == nil {
		log.Info("configuration loaded", "path", path)
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		log.Info("no config file, using defaults", "path", path)
		return config.Default(), nil
	}
	return nil, fmt.Errorf("loading config: %w", err)
}

// getConfigPath returns the configuration file path.
// Uses TINTCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TINTCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildBackend selects the execution backend from config.
func buildBackend(cfg *config.Config, store *fleet.Store, publisher backend.Publisher, log *logging.Logger) (backend.Backend, error) {
	switch cfg.Service.Mode {
	case "sim", "":
		return backend.NewSimulator(store, log, backend.SimulatorOptions{
			MinDwell:        cfg.MinDwell(),
			Strategy:        cfg.Service.Transition.Strategy,
			TransitionDelay: cfg.TransitionDelay(),
			Publisher:       publisher,
		}), nil
	case "real":
		return backend.NewRemote(store, log, backend.RemoteOptions{
			URL:       cfg.Service.Remote.URL,
			APIKey:    cfg.Service.Remote.APIKey,
			SiteID:    cfg.Service.Remote.SiteID,
			Timeout:   time.Duration(cfg.Service.Remote.TimeoutSeconds) * time.Second,
			Publisher: publisher,
		}), nil
	default:
		return nil, fmt.Errorf("unknown service mode %q (want sim or real)", cfg.Service.Mode)
	}
}
