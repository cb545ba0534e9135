// Safety Monitor - ASCOM Alpaca SafetyMonitor for roll-off roof observatories
//
// This is the main entry point for the safety monitor. It serves a single
// Alpaca SafetyMonitor device whose IsSafe verdict fuses:
//   - A manual operator override
//   - A solar altitude lockout for the observatory location
//   - The open/closed state reported by the selected roof controller
//
// Usage:
//
//	safetymonitor                     run the server
//	safetymonitor token <subject> [role]  print a bearer token for the setup API
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata" // observatory timezones must resolve on minimal hosts

	"github.com/skyroof/safetymonitor/internal/api"
	"github.com/skyroof/safetymonitor/internal/auth"
	"github.com/skyroof/safetymonitor/internal/discovery"
	"github.com/skyroof/safetymonitor/internal/infrastructure/config"
	"github.com/skyroof/safetymonitor/internal/infrastructure/database"
	"github.com/skyroof/safetymonitor/internal/infrastructure/influxdb"
	"github.com/skyroof/safetymonitor/internal/infrastructure/logging"
	"github.com/skyroof/safetymonitor/internal/infrastructure/mqtt"
	"github.com/skyroof/safetymonitor/internal/monitor"
	"github.com/skyroof/safetymonitor/internal/observability"
	"github.com/skyroof/safetymonitor/internal/roof"
	"github.com/skyroof/safetymonitor/internal/safety"
	"github.com/skyroof/safetymonitor/internal/settings"
	"github.com/skyroof/safetymonitor/internal/solar"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	configEnv   = "SAFETYMONITOR_CONFIG"
	envFilePath = ".env"
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "token" {
		err = runToken(os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting safety monitor",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version).With("site", cfg.Site.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	checks := make(map[string]api.HealthChecker)

	// Open the settings store
	store, db, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		checks["database"] = db
	}

	metrics := observability.NewMetrics()
	finder := solar.NewFinder(solar.SunCalc{}, solar.WithLogger(log))
	fetcher := roof.NewFetcher(cfg.Roof, nil)
	service := safety.NewService(store, finder, fetcher,
		safety.WithRecorder(metrics),
		safety.WithLogger(log),
	)
	log.Info("safety service ready", "roofs", len(service.Registry(ctx).Roofs))

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
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
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	var signer *auth.Signer
	if cfg.Security.JWT.Secret != "" {
		signer, err = auth.NewSigner(cfg.Security.JWT.Secret, cfg.GetTokenTTL())
		if err != nil {
			return fmt.Errorf("creating token signer: %w", err)
		}
		log.Info("setup endpoints require bearer tokens")
	} else {
		log.Warn("no JWT secret configured, setup endpoints are open")
	}

	deps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Site:    cfg.Site,
		Logger:  log,
		Service: service,
		Signer:  signer,
		Metrics: metrics,
		Checks:  checks,
		Version: version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	if db != nil {
		deps.DB = db
	}

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server listening", "addr", srv.Addr(), "unique_id", api.UniqueID(cfg.Site.ID))

	// Alpaca discovery responder
	if cfg.Discovery.Enabled {
		responder := discovery.NewResponder(cfg.Discovery.Port, cfg.API.Port, discovery.WithLogger(log))
		go responder.Run(ctx)
	} else {
		log.Info("Alpaca discovery disabled")
	}

	// Background evaluation loop
	if cfg.Monitor.Enabled {
		sinks := []monitor.Sink{monitor.NewHubSink(srv.Hub())}
		if mqttClient != nil {
			sinks = append(sinks, monitor.NewMQTTSink(mqttClient, mqttClient.Topics()))
		}
		if influxClient != nil {
			sinks = append(sinks, monitor.NewInfluxSink(influxClient))
		}
		mon := monitor.New(service, cfg.GetMonitorInterval(),
			monitor.WithSinks(sinks...),
			monitor.WithLogger(log),
			monitor.WithSite(cfg.Site.ID),
		)
		go mon.Run(ctx)
		log.Info("monitor started", "interval", cfg.GetMonitorInterval(), "sinks", len(sinks))
	} else {
		log.Info("monitor disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database (sqlite backend only)

	log.Info("safety monitor stopped")
	return nil
}

// loadConfig reads .env, then the YAML file named by SAFETYMONITOR_CONFIG or
// the default path. A missing default file falls back to built-in defaults;
// a missing explicitly named file is an error.
func loadConfig(log *logging.Logger) (*config.Config, error) {
	if err := config.LoadEnvFile(envFilePath); err != nil {
		return nil, fmt.Errorf("loading %s: %w", envFilePath, err)
	}

	path, explicit := getConfigPath()
	cfg, err := config.Load(path)
	switch {
	case err == nil:
		log.Info("configuration loaded", "path", path)
		return cfg, nil
	case !explicit && errors.Is(err, fs.ErrNotExist):
		log.Warn("configuration file not found, using defaults", "path", path)
		cfg, err = config.Default()
		if err != nil {
			return nil, fmt.Errorf("loading default config: %w", err)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("loading config: %w", err)
	}
}

// getConfigPath returns the configuration file path and whether it was
// set explicitly through SAFETYMONITOR_CONFIG.
func getConfigPath() (string, bool) {
	if path := os.Getenv(configEnv); path != "" {
		return path, true
	}
	return config.DefaultPath, false
}

// openStore builds the configured settings backend. The returned DB is nil
// for the file backend.
func openStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (safety.Store, *database.DB, error) {
	switch cfg.Settings.Backend {
	case config.BackendSQLite:
		db, err := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		store, err := settings.NewSQLiteStore(ctx, db, cfg.Settings.RoofsFile, settings.WithLogger(log))
		if err != nil {
			db.Close() //nolint:errcheck // already failing
			return nil, nil, fmt.Errorf("opening sqlite settings store: %w", err)
		}
		log.Info("settings store ready", "backend", config.BackendSQLite, "path", cfg.Database.Path)
		return store, db, nil

	default:
		store := settings.NewFileStore(cfg.Settings.SettingsFile, cfg.Settings.RoofsFile, settings.WithLogger(log))
		log.Info("settings store ready",
			"backend", config.BackendFile,
			"settings_file", cfg.Settings.SettingsFile,
			"roofs_file", cfg.Settings.RoofsFile,
		)
		return store, nil, nil
	}
}

// connectMQTT connects the publish-only MQTT client and wires connection
// logging.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	topics, err := mqtt.NewTopics(cfg.Site.ID)
	if err != nil {
		return nil, fmt.Errorf("building MQTT topics: %w", err)
	}
	client, err := mqtt.Connect(cfg.MQTT, topics)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	return client, nil
}

// runToken prints a signed bearer token for the setup API.
func runToken(args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: safetymonitor token <subject> [observer|operator]")
	}
	role := auth.RoleOperator
	if len(args) == 2 {
		role = auth.Role(args[1])
	}
	if !role.IsValid() {
		return fmt.Errorf("%w: %q", auth.ErrInvalidRole, role)
	}

	cfg, err := loadConfig(logging.Discard())
	if err != nil {
		return err
	}
	if cfg.Security.JWT.Secret == "" {
		return fmt.Errorf("%w: set security.jwt.secret or SAFETYMONITOR_JWT_SECRET", auth.ErrNoSecret)
	}

	signer, err := auth.NewSigner(cfg.Security.JWT.Secret, cfg.GetTokenTTL())
	if err != nil {
		return fmt.Errorf("creating token signer: %w", err)
	}
	token, err := signer.Issue(args[0], role)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	fmt.Fprintln(out, token) //nolint:errcheck // CLI output
	return nil
}
