// Chimera Core - device registry API
//
// This is the main entry point for the Chimera Core service. It serves the
// device registry over HTTP, lets clients rename devices, move them between
// groups, and toggle content blocklists, and fans committed changes out to
// WebSocket clients, MQTT, and InfluxDB.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/chimera-core/migrations"

	"github.com/nerrad567/chimera-core/internal/api"
	"github.com/nerrad567/chimera-core/internal/device"
	"github.com/nerrad567/chimera-core/internal/infrastructure/config"
	"github.com/nerrad567/chimera-core/internal/infrastructure/database"
	"github.com/nerrad567/chimera-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/chimera-core/internal/infrastructure/logging"
	"github.com/nerrad567/chimera-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
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
// It returns nil on a clean shutdown once ctx is cancelled.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Chimera Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if configPath == "" {
		log.Info("no config file found, using built-in defaults", "path", defaultConfigPath)
	} else {
		log.Info("configuration loaded", "path", configPath)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open registry storage
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			log.Error("error closing registry", "error", closeErr)
		}
	}()

	devices, err := store.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading registry: %w", err)
	}

	groups, err := device.LoadGroupTable(cfg.Registry.GroupsFile)
	if err != nil {
		return fmt.Errorf("loading group table: %w", err)
	}

	service := device.NewService(store, groups)
	service.SetLogger(log.With("component", "device"))
	log.Info("device registry initialised",
		"backend", cfg.Registry.Backend,
		"devices", len(devices),
		"groups", len(groups.All()),
	)

	// Optional backends reported on /api/health
	checks := make(map[string]api.HealthChecker)

	// Connect to MQTT broker (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		mqttClient.SetLogger(log.With("component", "mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		service.AddObserver(newMQTTObserver(mqttClient))
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		service.AddObserver(newInfluxObserver(influxClient))
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Start HTTP API
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Service:  service,
		Checks:   checks,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	if !cfg.AuthEnabled() {
		log.Warn("bearer auth disabled; mutating routes are open")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, MQTT, then registry storage.
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path and whether it was set
// explicitly through CHIMERA_CONFIG.
func getConfigPath() (string, bool) {
	if path := os.Getenv("CHIMERA_CONFIG"); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

// loadConfig reads the configuration file. A missing default file falls
// back to built-in defaults; a missing explicit file is an error. The
// returned path is empty when defaults were used.
func loadConfig() (*config.Config, string, error) {
	path, explicit := getConfigPath()
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			cfg, err := config.Default()
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// openStore builds the registry store for the configured backend. The
// returned close function releases any resources the store holds.
func openStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (device.Store, func() error, error) {
	storeLog := log.With("component", "registry")

	if cfg.Registry.Backend != config.BackendSQLite {
		store := device.NewJSONStore(cfg.Registry.Path)
		store.SetLogger(storeLog)
		log.Info("using JSON registry", "path", cfg.Registry.Path)
		return store, func() error { return nil }, nil
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	closeDB := func() error {
		log.Info("closing database")
		return db.Close()
	}
	log.Info("database connected", "path", cfg.Database.Path)

	if err := db.Migrate(ctx); err != nil {
		closeDB() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")

	store := device.NewSQLiteStore(db)
	store.SetLogger(storeLog)

	if cfg.Registry.SeedFile != "" {
		if _, err := store.SeedFromFile(ctx, cfg.Registry.SeedFile); err != nil {
			closeDB() //nolint:errcheck // already failing
			return nil, nil, fmt.Errorf("seeding registry: %w", err)
		}
	}

	return store, closeDB, nil
}
