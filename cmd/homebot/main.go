// HomeBot Core - smart home backend
//
// This is the main entry point for the HomeBot Core service. It serves the
// REST API and the real-time WebSocket feed for the dashboard, stores
// devices, rooms, groups, schedules and sensor readings in SQLite, and
// optionally mirrors events to MQTT and readings to InfluxDB.
//
// Usage:
//
//	homebot [-config path] [-seed] [-import-sensors file.csv]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/homebot/homebot-core/internal/activity"
	"github.com/homebot/homebot-core/internal/api"
	"github.com/homebot/homebot-core/internal/auth"
	"github.com/homebot/homebot-core/internal/automation"
	"github.com/homebot/homebot-core/internal/control"
	"github.com/homebot/homebot-core/internal/device"
	"github.com/homebot/homebot-core/internal/identity"
	"github.com/homebot/homebot-core/internal/infrastructure/config"
	"github.com/homebot/homebot-core/internal/infrastructure/database"
	"github.com/homebot/homebot-core/internal/infrastructure/influxdb"
	"github.com/homebot/homebot-core/internal/infrastructure/logging"
	"github.com/homebot/homebot-core/internal/infrastructure/metrics"
	"github.com/homebot/homebot-core/internal/infrastructure/mqtt"
	"github.com/homebot/homebot-core/internal/location"
	"github.com/homebot/homebot-core/internal/sensor"
	"github.com/homebot/homebot-core/migrations"
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

// options are the command-line flags.
type options struct {
	configPath    string
	seed          bool
	importSensors string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		// flag has already printed the problem and usage.
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("homebot", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to the YAML config file (env "+config.EnvPrefix+"CONFIG)")
	fs.BoolVar(&opts.seed, "seed", false, "load the sample rooms and devices when no device exists")
	fs.StringVar(&opts.importSensors, "import-sensors", "", "import sensor readings from a CSV file and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context, opts options) error {
	log := logging.Default()
	log.Info("starting HomeBot Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

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

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	if cfg.Metrics.Enabled {
		metrics.Init(db.DB)
	}

	sensors := sensor.NewService(sensor.NewSQLiteRepository(db.DB), log)
	if opts.importSensors != "" {
		return importSensors(ctx, sensors, opts.importSensors, log)
	}

	devices := device.NewSQLiteRepository(db.DB)
	activities := activity.NewSQLiteRepository(db.DB)
	hub := api.NewHub(cfg.WebSocket, log)

	router := control.NewRouter(control.Config{
		Devices:    devices,
		Groups:     device.NewSQLiteGroupRepository(db.DB),
		Rooms:      location.NewSQLiteRepository(db.DB),
		Schedules:  automation.NewSQLiteRepository(db.DB),
		Activities: activities,
		Logger:     log,
	})

	users := auth.NewLocalProvider(auth.NewUserRepository(db.DB))
	if _, seedErr := auth.SeedAdmin(ctx, users, log); seedErr != nil {
		return fmt.Errorf("seeding admin: %w", seedErr)
	}

	gateway := identity.NewGateway(identity.Config{
		Provider:        users,
		Activities:      activities,
		Devices:         devices,
		FallbackEnabled: cfg.Identity.FallbackEnabled,
		Logger:          log,
	})
	if gateway.FallbackEnabled() {
		log.Warn("identity fallback enabled, admin reads may serve sample data")
	}

	notifiers := control.MultiNotifier{hub}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = startMQTT(cfg, sensors, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()

		events := mqtt.NewEventPublisher(mqttClient, mqttClient.Topics(), mqttClient.QoS(), log)
		go events.Run(ctx)
		notifiers = append(notifiers, events)
	} else {
		log.Info("MQTT disabled")
	}

	router.SetNotifier(notifiers)
	gateway.OnActivity(func(a activity.Activity) {
		notifiers.Notify(control.EventNotification, []string{control.GlobalChannel}, a)
	})

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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		sensors.SetMirror(influxClient)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if opts.seed {
		if _, seedErr := router.SeedSamples(ctx); seedErr != nil {
			return fmt.Errorf("seeding sample household: %w", seedErr)
		}
	}

	go hub.Run(ctx)

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Reports:  cfg.Reports,
		Metrics:  cfg.Metrics,
		Logger:   log,
		Router:   router,
		Sensors:  sensors,
		Identity: gateway,
		Hub:      hub,
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

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API server, InfluxDB,
	// MQTT, then the database.
	return nil
}

// getConfigPath resolves the config file: the -config flag, then
// HOMEBOT_CONFIG, then the default path.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(config.EnvPrefix + "CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// startMQTT connects to the broker and subscribes sensor ingest.
func startMQTT(cfg *config.Config, sensors *sensor.Service, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	ingest := mqtt.NewSensorIngest(sensors, client.Topics())
	if err := ingest.Start(client, client.QoS()); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("subscribing sensor ingest: %w", err)
	}

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"sensor_topic", client.Topics().AllSensorReadings(),
	)
	return client, nil
}

// importSensors loads a CSV file of readings and logs the result.
func importSensors(ctx context.Context, sensors *sensor.Service, path string, log *logging.Logger) error {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return fmt.Errorf("opening sensor csv: %w", err)
	}
	defer f.Close()

	result, err := sensors.Import(ctx, f)
	if err != nil {
		return fmt.Errorf("importing sensor csv: %w", err)
	}
	for _, line := range result.Errors {
		log.Warn("sensor row skipped", "detail", line)
	}
	if result.Imported == 0 && result.Total > 0 {
		return errors.New("no sensor readings imported")
	}
	return nil
}

// healthCheck verifies every infrastructure connection is healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
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
	return nil
}
