package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/sysdeck/agent/internal/adapters"
	"github.com/sysdeck/agent/internal/cleaner"
	"github.com/sysdeck/agent/internal/config"
	"github.com/sysdeck/agent/internal/sink"
	"github.com/sysdeck/agent/internal/sysinfo"
	"github.com/sysdeck/agent/internal/telemetry"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Agent wires the collection pipeline: adapters feed the static loader and
// the poller, both publish to the bus, and the bus fans out to the attached
// sinks.
type Agent struct {
	config    *config.Config
	logger    *zap.Logger
	cache     *sysinfo.Cache
	bus       *sysinfo.Bus
	loader    *sysinfo.StaticLoader
	poller    *sysinfo.Poller
	cleaner   *cleaner.Cleaner
	scheduler gocron.Scheduler
	nats      *telemetry.Client
	handlers  *telemetry.CommandHandlers
	version   string
	ctx       context.Context
	cancel    context.CancelFunc

	shutdownOnce sync.Once
}

// New creates an agent from the configuration file at configPath.
func New(configPath string, version string) (*Agent, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting sysdeck agent",
		zap.String("version", version),
		zap.String("device_id", cfg.DeviceID),
		zap.Bool("elevated", cleaner.IsElevated()))

	ctx, cancel := context.WithCancel(context.Background())

	querier, err := adapters.NewQuerier(adapters.Options{
		Source:        cfg.Poller.Source,
		ExporterURL:   cfg.Poller.ExporterURL,
		PrimaryVolume: cfg.Poller.PrimaryVolume,
	}, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build adapters: %w", err)
	}

	cache := sysinfo.NewCache()
	bus := sysinfo.NewBus(logger, 64)
	bus.Attach(sink.NewConsole(os.Stdout))

	loader := sysinfo.NewStaticLoader(logger, querier, cache, bus, cfg.Static.QueryTimeout)
	poller := sysinfo.NewPoller(logger, querier, cache, bus, sysinfo.PollerConfig{
		Interval:      cfg.Poller.Interval,
		ErrorInterval: cfg.Poller.ErrorInterval,
		QueryTimeout:  cfg.Poller.QueryTimeout,
		GPUFreshness:  cfg.Poller.GPUFreshness,
	})

	cl := cleaner.New(logger, cfg.Cleaner.TempDirs)

	a := &Agent{
		config:  cfg,
		logger:  logger,
		cache:   cache,
		bus:     bus,
		loader:  loader,
		poller:  poller,
		cleaner: cl,
		version: version,
		ctx:     ctx,
		cancel:  cancel,
	}

	if cfg.NATS.Enabled {
		logger.Info("Connecting to NATS...")
		natsClient, err := telemetry.NewClient(&cfg.NATS, logger)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		a.nats = natsClient
		bus.Attach(telemetry.NewSink(natsClient, logger, cfg.SubjectPrefix, cfg.DeviceID))

		a.handlers = telemetry.NewCommandHandlers(
			logger, natsClient, cl, a.refreshStatic, cfg.SubjectPrefix, cfg.DeviceID, version)
		if err := a.handlers.SubscribeAll(); err != nil {
			cancel()
			natsClient.Close()
			return nil, fmt.Errorf("failed to subscribe to commands: %w", err)
		}
	}

	if err := a.initScheduler(); err != nil {
		cancel()
		if a.nats != nil {
			a.nats.Close()
		}
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return a, nil
}

// refreshStatic invalidates the static cache entries and reloads them, so
// the next emissions reflect hardware changes.
func (a *Agent) refreshStatic(ctx context.Context) {
	a.logger.Info("Refreshing static hardware inventory")
	for _, cat := range sysinfo.StaticCategories() {
		a.cache.Invalidate(cat)
	}
	a.loader.Load(ctx)
}

// initScheduler sets up the background maintenance jobs: the periodic static
// inventory refresh and the scheduled cleanup run.
func (a *Agent) initScheduler() error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	if interval := a.config.Static.RefreshInterval; interval > 0 {
		if _, err := s.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() { a.refreshStatic(a.ctx) }),
		); err != nil {
			return fmt.Errorf("static refresh job: %w", err)
		}
		a.logger.Info("Scheduled static inventory refresh", zap.Duration("interval", interval))
	}

	if a.config.Cleaner.Enabled {
		opts := cleaner.Options{
			RecycleBin:     a.config.Cleaner.RecycleBin,
			OptimizeMemory: a.config.Cleaner.MemoryOptimize,
		}
		if _, err := s.NewJob(
			gocron.DurationJob(a.config.Cleaner.Interval),
			gocron.NewTask(func() { a.cleaner.Run(a.ctx, opts) }),
		); err != nil {
			return fmt.Errorf("cleanup job: %w", err)
		}
		a.logger.Info("Scheduled cleanup",
			zap.Duration("interval", a.config.Cleaner.Interval),
			zap.Bool("recycle_bin", opts.RecycleBin),
			zap.Bool("memory_optimize", opts.OptimizeMemory))
	}

	a.scheduler = s
	return nil
}

// Run starts the pipeline and blocks until a shutdown signal arrives.
func (a *Agent) Run() error {
	a.bus.Start()

	// Static inventory first so sinks see the hardware identity before the
	// first volatile tick.
	a.loader.Load(a.ctx)
	a.poller.Start()
	a.scheduler.Start()

	a.logger.Info("Agent running",
		zap.String("device_id", a.config.DeviceID),
		zap.String("version", a.version))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		a.logger.Info("Received shutdown signal")
	case <-a.ctx.Done():
		a.logger.Info("Context cancelled")
	}

	return a.Shutdown()
}

// Shutdown stops collection, flushes the bus and drains the telemetry
// connection. Idempotent; Run and the service manager may both call it.
func (a *Agent) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("Shutting down agent gracefully")

		a.cancel()

		// Stop producers before the bus so nothing publishes into a
		// stopped bus.
		a.poller.Stop()

		if err := a.scheduler.Shutdown(); err != nil {
			a.logger.Error("Error shutting down scheduler", zap.Error(err))
		}

		a.bus.Stop()

		if a.nats != nil {
			drainCtx, drainCancel := context.WithTimeout(context.Background(), a.config.NATS.DrainTimeout)
			defer drainCancel()
			if err := a.nats.Drain(drainCtx); err != nil {
				a.logger.Error("Error draining NATS", zap.Error(err))
			}
		}

		a.logger.Info("Agent shutdown complete")
		a.logger.Sync()
	})
	return nil
}

// initLogger creates the zap logger: JSON to a rotated file, console output
// for interactive runs.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core

	if cfg.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     28, // days
			Compress:   true,
		}
		fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(fileWriter), level))
	}

	if cfg.Console {
		consoleEncoder := zapcore.NewConsoleEncoder(encoderConfig)
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stderr), level))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
