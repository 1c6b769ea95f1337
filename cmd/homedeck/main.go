// Homedeck Core - personal home dashboard backend
//
// This is the main entry point for the Homedeck Core application.
// Homedeck polls the device backends around the house (lights, speakers,
// plugs, streaming box, thermostat), keeps the latest value of every
// signal in memory, and serves the wall dashboard over REST and WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/homedeck/homedeck-core/migrations"

	"github.com/homedeck/homedeck-core/internal/announce"
	"github.com/homedeck/homedeck-core/internal/api"
	"github.com/homedeck/homedeck-core/internal/bus"
	"github.com/homedeck/homedeck-core/internal/family"
	"github.com/homedeck/homedeck-core/internal/family/hue"
	"github.com/homedeck/homedeck-core/internal/family/nest"
	"github.com/homedeck/homedeck-core/internal/family/sonos"
	"github.com/homedeck/homedeck-core/internal/family/stream"
	"github.com/homedeck/homedeck-core/internal/family/tapo"
	"github.com/homedeck/homedeck-core/internal/health"
	"github.com/homedeck/homedeck-core/internal/infrastructure/config"
	"github.com/homedeck/homedeck-core/internal/infrastructure/database"
	"github.com/homedeck/homedeck-core/internal/infrastructure/influxdb"
	"github.com/homedeck/homedeck-core/internal/infrastructure/logging"
	"github.com/homedeck/homedeck-core/internal/infrastructure/mqtt"
	"github.com/homedeck/homedeck-core/internal/ingest"
	"github.com/homedeck/homedeck-core/internal/poll"
	"github.com/homedeck/homedeck-core/internal/rooms"
	"github.com/homedeck/homedeck-core/internal/store"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Homedeck Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Room mapper: device names to canonical rooms, first match wins
	mapper, err := rooms.NewMapper(cfg.Rooms)
	if err != nil {
		return fmt.Errorf("building room mapper: %w", err)
	}
	log.Info("room mapper initialised", "rooms", len(mapper.Rooms()))

	// State store and history, warmed from SQLite
	signals := store.NewSignals()
	history := store.NewHistory(
		store.NewSQLiteHistoryRepository(db),
		store.HistoryConfig{
			TemperatureWindow: time.Duration(cfg.Retention.TemperatureHours) * time.Hour,
			ActivityWindow:    time.Duration(cfg.Retention.ActivityHours) * time.Hour,
		},
		log,
	)
	roomNames := make([]string, 0, len(mapper.Rooms()))
	for _, room := range mapper.Rooms() {
		roomNames = append(roomNames, string(room))
	}
	if loadErr := history.Load(ctx, roomNames); loadErr != nil {
		return fmt.Errorf("loading history: %w", loadErr)
	}
	log.Info("history loaded")

	// Event bus
	eventBus := bus.New()
	eventBus.SetLogger(log)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB telemetry mirror (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the device family clients. A family with missing config is
	// disabled with a warning, never fatal.
	clients, controllers := buildFamilies(cfg, mapper, log)
	if len(clients) == 0 {
		log.Warn("no device families configured, dashboard will be empty")
	}

	// Connection monitor over every configured family
	checkers := make([]health.Checker, 0, len(clients))
	for _, c := range clients {
		checkers = append(checkers, c)
	}
	monitor := health.NewMonitor(checkers, eventBus, log)

	// First sweep before polls start, so state polls are not all gated
	// behind an unknown connection state for a full health interval.
	monitor.CheckAll(ctx)
	log.Info("initial health sweep complete")

	// Announcer: retained health topics plus spoken fallback
	var broker announce.Broker
	if mqttClient != nil {
		broker = mqttClient
	}
	var speaker announce.Speaker
	if controllers.sonos != nil {
		speaker = controllers.sonos
	}
	announcer := announce.New(broker, speaker, cfg.Site.AnnounceUnit, log)
	announcer.Attach(eventBus)
	defer announcer.Detach(eventBus)

	// Poll scheduler and ingest pipeline
	scheduler := poll.New(log)
	defer scheduler.Stop()

	var mirror ingest.Mirror
	if influxClient != nil {
		mirror = influxClient
	}
	service := ingest.New(ingest.Deps{
		Signals:   signals,
		History:   history,
		Bus:       eventBus,
		Monitor:   monitor,
		Scheduler: scheduler,
		Clients:   clients,
		Mirror:    mirror,
		Polling:   cfg.Polling,
		Logger:    log,
	})
	service.Start()
	defer service.Stop()

	// API server
	apiDeps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Signals: signals,
		History: history,
		Monitor: monitor,
		Layout:  store.NewSQLiteLayoutRepository(db),
		Bus:     eventBus,
		Version: version,
	}
	if controllers.hue != nil {
		apiDeps.Lights = controllers.hue
	}
	if controllers.tapo != nil {
		apiDeps.Plugs = controllers.tapo
	}
	if controllers.sonos != nil {
		apiDeps.Speakers = controllers.sonos
	}

	apiServer, err := api.New(apiDeps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. Ingest service, scheduler (waits for in-flight polls)
	// 3. Announcer
	// 4. InfluxDB, MQTT (if enabled)
	// 5. Database

	log.Info("Homedeck Core stopped")
	return nil
}

// familyControllers holds the typed clients the API and announcer need
// beyond the generic family.Client surface.
type familyControllers struct {
	hue   *hue.Client
	sonos *sonos.Client
	tapo  *tapo.Client
}

// buildFamilies constructs one client per configured family.
//
// A family whose config is incomplete returns a ConfigError and is skipped
// with a warning; the rest of the system runs without it.
func buildFamilies(cfg *config.Config, mapper *rooms.Mapper, log *logging.Logger) ([]family.Client, familyControllers) {
	var clients []family.Client
	var ctrl familyControllers

	if cfg.Families.Hue.Configured() {
		client, err := hue.New(cfg.Families.Hue, mapper, log)
		if err != nil {
			log.Warn("hue family disabled", "error", err)
		} else {
			clients = append(clients, client)
			ctrl.hue = client
		}
	} else {
		log.Info("hue family not configured")
	}

	if cfg.Families.Sonos.Configured() {
		client, err := sonos.New(cfg.Families.Sonos, mapper, log)
		if err != nil {
			log.Warn("sonos family disabled", "error", err)
		} else {
			clients = append(clients, client)
			ctrl.sonos = client
		}
	} else {
		log.Info("sonos family not configured")
	}

	if cfg.Families.Tapo.Configured() {
		client, err := tapo.New(cfg.Families.Tapo, mapper, log)
		if err != nil {
			log.Warn("tapo family disabled", "error", err)
		} else {
			clients = append(clients, client)
			ctrl.tapo = client
		}
	} else {
		log.Info("tapo family not configured")
	}

	if cfg.Families.Stream.Configured() {
		client, err := stream.New(cfg.Families.Stream, log)
		if err != nil {
			log.Warn("stream family disabled", "error", err)
		} else {
			clients = append(clients, client)
		}
	} else {
		log.Info("stream family not configured")
	}

	if cfg.Families.Nest.Configured() {
		client, err := nest.New(cfg.Families.Nest, log)
		if err != nil {
			log.Warn("nest family disabled", "error", err)
		} else {
			clients = append(clients, client)
		}
	} else {
		log.Info("nest family not configured")
	}

	return clients, ctrl
}

// getConfigPath returns the configuration file path.
// Uses HOMEDECK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMEDECK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// MQTT and InfluxDB are optional and skipped when nil.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
