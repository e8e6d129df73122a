package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/pepperpepperpepper/pipegraph/migrations"

	"github.com/pepperpepperpepper/pipegraph/internal/bridge"
	"github.com/pepperpepperpepper/pipegraph/internal/conn"
	"github.com/pepperpepperpepper/pipegraph/internal/control"
	"github.com/pepperpepperpepper/pipegraph/internal/graph"
	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/database"
	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/logging"
	"github.com/pepperpepperpepper/pipegraph/internal/infrastructure/mqtt"
	"github.com/pepperpepperpepper/pipegraph/internal/metrics"
	"github.com/pepperpepperpepper/pipegraph/internal/telemetry"
)

// profileTickInterval is how often the simulated backend emits a
// profiler sample.
const profileTickInterval = time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the mirror daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

//nolint:gocognit // linear startup sequence, one concern per block
func runDaemon(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting pipegraph",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

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

	// Connection backend. "sim" runs the in-process simulated server,
	// seeded with a small plausible graph.
	sim := conn.NewSim()
	defer func() {
		log.Info("closing connection")
		sim.Close()
	}()

	mirror := graph.New(sim, cfg.GetNotifyDebounce())
	mirror.SetLogger(log.With("component", "mirror"))
	mirror.Start()
	defer func() {
		log.Info("closing mirror")
		mirror.Close()
	}()

	ops := control.New(sim, mirror)
	ops.SetLogger(log.With("component", "control"))
	ops.SetRetryBounds(cfg.GetDefaultRetryBudget(), cfg.GetDefaultRetryInterval())

	seedSim(sim)
	log.Info("simulated server seeded", "backend", cfg.Server.Backend)

	// MQTT bridge (optional)
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		)
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		br, brErr := bridge.New(bridge.Options{
			Mirror: mirror,
			Ops:    ops,
			MQTT:   mqttClient,
			Logger: log.With("component", "bridge"),
		})
		if brErr != nil {
			return fmt.Errorf("creating bridge: %w", brErr)
		}
		if startErr := br.Start(); startErr != nil {
			return fmt.Errorf("starting bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping bridge")
			br.Stop()
		}()
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influx, influxErr := telemetry.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		mirror.Notifier().Subscribe(graph.Listener{
			ProfilerChanged: func() {
				if snap, ok := mirror.ProfilerSnapshot(); ok {
					influx.RecordProfiler(snap)
				}
			},
			NodeControlsChanged: func() {
				for _, n := range mirror.Nodes() {
					if controls, ok := mirror.ControlsByID(n.ID); ok {
						influx.RecordNodeVolume(n.Name, controls)
					}
				}
			},
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Prometheus metrics (optional)
	if cfg.Metrics.Enabled {
		metrics.NewCollector(mirror)
		srv := metrics.Serve(cfg.Metrics.Listen, func(err error) {
			log.Error("metrics endpoint failed", "error", err)
		})
		defer func() {
			log.Info("stopping metrics endpoint")
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing metrics endpoint", "error", closeErr)
			}
		}()
		log.Info("metrics endpoint started", "listen", cfg.Metrics.Listen)
	} else {
		log.Info("metrics disabled")
	}

	go profileTicker(ctx, sim)

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// metrics -> InfluxDB -> bridge -> MQTT -> mirror -> connection -> database

	log.Info("pipegraph stopped")
	return nil
}
