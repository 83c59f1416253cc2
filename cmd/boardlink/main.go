// boardlink - MQTT device relay for embedded boards
//
// This is the main entry point for the boardlink daemon. boardlink lets
// many logical peripherals (GPIO pins, PWM outputs, temperature sensors)
// on one embedded board share a single broker connection:
//   - One MQTT connection, multiplexed by topic
//   - Structured JSON payloads for every peripheral event
//   - Lazy connect with shutdown detection via Last Will
//
// For architecture details, see: docs/architecture/system-overview.md
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/boardlink/migrations"

	"github.com/nerrad567/boardlink/internal/api"
	"github.com/nerrad567/boardlink/internal/board"
	"github.com/nerrad567/boardlink/internal/device"
	"github.com/nerrad567/boardlink/internal/infrastructure/config"
	"github.com/nerrad567/boardlink/internal/infrastructure/database"
	"github.com/nerrad567/boardlink/internal/infrastructure/influxdb"
	"github.com/nerrad567/boardlink/internal/infrastructure/logging"
	"github.com/nerrad567/boardlink/internal/infrastructure/mqtt"
	"github.com/nerrad567/boardlink/internal/payload"
	"github.com/nerrad567/boardlink/internal/relay"
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

// pruneInterval is how often the history journal is swept for expired
// entries.
const pruneInterval = time.Hour

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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting boardlink",
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

	// Open the history journal (optional)
	var db *database.DB
	var history *device.SQLiteStateHistoryRepository
	if cfg.History.Enabled {
		db, err = database.Open(database.Config{
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

		history = device.NewSQLiteStateHistoryRepository(db.DB)
	} else {
		log.Info("state history disabled")
	}

	// Connect to InfluxDB (optional)
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
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the MQTT transport. The broker publishes the Last Will on the
	// board's internal topic if this process dies without saying goodbye,
	// so peers observe unclean exits the same way they observe clean ones.
	if cfg.MQTT.LastWill.Topic == "" {
		cfg.MQTT.LastWill.Topic = board.Topics{}.Internal(cfg.Board.Identifier)
		cfg.MQTT.LastWill.Message = string(payload.ActionShutdown)
	}
	mqttClient := mqtt.New(cfg.MQTT)
	mqttClient.SetLogger(log)
	log.Info("MQTT transport ready",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttClient.ClientID(),
	)

	// Start the relay service. It owns the single worker that talks to the
	// transport; the first queued operation triggers the actual connect.
	svc, err := relay.New(relay.Options{
		Client:     mqttClient,
		DefaultQoS: byte(cfg.MQTT.QoS),
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating relay service: %w", err)
	}
	svc.Start()
	defer func() {
		log.Info("stopping relay service")
		svc.Close()
	}()

	// Wire transport events into the relay
	mqttClient.SetOnMessage(func(topic string, message []byte) error {
		svc.HandleMessage(topic, string(message))
		return nil
	})
	mqttClient.SetOnDisconnect(svc.HandleConnectionLost)
	mqttClient.SetOnConnect(func() {
		log.Info("broker connection up", "client_id", mqttClient.ClientID())
		if influxClient != nil {
			influxClient.WriteConnectionEvent(cfg.Board.Identifier, true)
		}
	})

	// Create the board and subscribe it to its lifecycle topic
	brd, err := board.New(board.Options{
		Identifier: cfg.Board.Identifier,
		Platform:   cfg.Board.Platform,
		Host:       cfg.MQTT.Broker.Host,
		Port:       cfg.MQTT.Broker.Port,
		Relay:      svc,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating board: %w", err)
	}
	svc.AddListener(brd)
	if err := brd.Start(); err != nil {
		return fmt.Errorf("starting board: %w", err)
	}
	log.Info("board started",
		"identifier", brd.Identifier(),
		"platform", brd.Platform(),
		"events_topic", brd.EventsTopic(),
	)

	// Announce shutdown before dropping the connection. Both operations
	// queue behind any in-flight traffic, so the token always goes out
	// ahead of the disconnect.
	defer func() {
		log.Info("announcing shutdown")
		if shutdownErr := brd.Shutdown(); shutdownErr != nil {
			log.Warn("shutdown announcement failed", "error", shutdownErr)
		}
		if discErr := svc.Disconnect(); discErr != nil {
			log.Warn("broker disconnect failed", "error", discErr)
		}
	}()

	// Initialise the device registry
	registry, err := device.NewRegistry(svc)
	if err != nil {
		return fmt.Errorf("creating device registry: %w", err)
	}
	registry.SetLogger(log)
	if history != nil {
		registry.SetHistory(history)
	}
	svc.AddListener(registry)

	// Register configured devices
	if err := registerDevices(cfg, registry, brd, log); err != nil {
		return fmt.Errorf("registering devices: %w", err)
	}
	log.Info("device registry initialised", "devices", registry.GetDeviceCount())

	// Start the history prune loop
	if history != nil && cfg.History.RetentionDays > 0 {
		go pruneHistoryLoop(ctx, history, cfg.HistoryRetention(), log)
	}

	// Start the API server (optional). Registered as a relay listener
	// after the registry so broadcast state is already up to date when
	// events reach the stream.
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log,
			Registry: registry,
			Relay:    svc,
			Board:    brd,
			History:  historyRepo(history),
			Influx:   influxClient,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		svc.AddListener(apiServer)

		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error stopping API server", "error", closeErr)
			}
		}()
		log.Info("API server started",
			"host", cfg.API.Host,
			"port", cfg.API.Port,
		)
	} else {
		log.Info("API server disabled")
	}

	// Verify the hard dependencies are healthy. The broker is exempt: the
	// relay connects lazily and recovers on the next operation, so a dark
	// broker at boot is not fatal.
	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed", "relay_state", svc.State().String())

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse order:
	// 1. API server
	// 2. Shutdown announcement + broker disconnect
	// 3. Relay service
	// 4. InfluxDB (if enabled)
	// 5. Database (if enabled)

	log.Info("boardlink stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses BOARDLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BOARDLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// historyRepo widens the concrete journal to the repository interface,
// preserving nil when history is disabled. A plain assignment would hand
// the API a non-nil interface wrapping a nil pointer.
func historyRepo(history *device.SQLiteStateHistoryRepository) device.StateHistoryRepository {
	if history == nil {
		return nil
	}
	return history
}

// registerDevices constructs and registers every device declared in the
// configuration.
//
// Parameters:
//   - cfg: Application configuration
//   - registry: Device registry to register into
//   - brd: Board the devices belong to
//   - log: Logger instance
//
// Returns:
//   - error: First construction or registration failure
func registerDevices(cfg *config.Config, registry *device.Registry, brd *board.Board, log *logging.Logger) error {
	for i, dc := range cfg.Devices {
		switch dc.Kind {
		case config.DeviceKindGPIO:
			direction := payload.DirectionOut
			if dc.Direction == "in" {
				direction = payload.DirectionIn
			}
			pin, err := device.NewGPIO(device.GPIOOptions{
				Name:      dc.Name,
				Direction: direction,
				Label:     dc.Label,
			})
			if err != nil {
				return fmt.Errorf("devices[%d]: %w", i, err)
			}
			if err := registry.Register(pin, brd); err != nil {
				return fmt.Errorf("devices[%d]: %w", i, err)
			}

		case config.DeviceKindPWM:
			channel, err := device.NewPWM(device.PWMOptions{Name: dc.Name})
			if err != nil {
				return fmt.Errorf("devices[%d]: %w", i, err)
			}
			if err := registry.Register(channel, brd); err != nil {
				return fmt.Errorf("devices[%d]: %w", i, err)
			}

		case config.DeviceKindTemperatureSensor:
			sensor := device.NewTemperatureSensor()
			if err := registry.Register(sensor, brd); err != nil {
				return fmt.Errorf("devices[%d]: %w", i, err)
			}
			if dc.Monitor {
				if err := sensor.Monitor(); err != nil {
					log.Warn("temperature monitor request failed", "error", err)
				}
			}

		default:
			return fmt.Errorf("devices[%d]: unknown kind %q", i, dc.Kind)
		}

		log.Info("device registered",
			"kind", dc.Kind,
			"name", dc.Name,
			"label", dc.Label,
		)
	}

	return nil
}

// pruneHistoryLoop periodically removes journal entries older than the
// configured retention. Runs until the context is cancelled.
func pruneHistoryLoop(ctx context.Context, history *device.SQLiteStateHistoryRepository, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := history.PruneHistory(ctx, retention)
			if err != nil {
				log.Warn("pruning state history failed", "error", err)
				continue
			}
			if pruned > 0 {
				log.Info("state history pruned", "entries", pruned, "retention", retention.String())
			}
		}
	}
}

// healthCheck verifies the storage connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check (may be nil if history disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
