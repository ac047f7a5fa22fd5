package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/okairos/weatherd/internal/aggregate"
	"github.com/okairos/weatherd/internal/cache"
	"github.com/okairos/weatherd/internal/config"
	"github.com/okairos/weatherd/internal/ingest"
	"github.com/okairos/weatherd/internal/pipeline"
	"github.com/okairos/weatherd/internal/routes"
	"github.com/okairos/weatherd/internal/sink"
	"github.com/okairos/weatherd/internal/tracing"
	"github.com/okairos/weatherd/internal/worker"
	"github.com/okairos/weatherd/pkg/types"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg := config.FromEnv()

	shutdownTracer := tracing.InitTracer()

	sinks, store := buildSinks(cfg, logger)
	if len(sinks) == 0 {
		fs, err := sink.NewFilesystem("data")
		if err != nil {
			logger.Fatal().Err(err).Msg("no sink available")
		}
		logger.Warn().Msg("no sinks configured, falling back to ./data")
		sinks = append(sinks, fs)
	}

	dispatcher := sink.NewDispatcher(sink.DispatcherConfig{
		Timeout:     cfg.SinkTimeout,
		RetryBase:   cfg.SinkRetryBase,
		MaxBackoff:  cfg.SinkMaxBackoff,
		MaxAttempts: cfg.SinkMaxAttempts,
	}, logger, sinks...)
	defer dispatcher.Close()

	engine := aggregate.NewEngine(aggregate.Config{
		Interval: cfg.ArchiveInterval,
		Grace:    cfg.ArchiveGrace,
	}, logger, dispatcher.Archive, dispatcher.Daily)

	readings := buildCache(cfg)
	if readings != nil {
		defer readings.Close()
	}

	rt := pipeline.NewRuntime(pipeline.Config{
		QueueSize:   cfg.QueueSize,
		Workers:     cfg.PipelineWorkers,
		PushTimeout: cfg.PushTimeout,
	}, logger)
	if len(cfg.CalibrationOffsets) > 0 {
		rt.Use(&pipeline.CalibrationProcessor{Offsets: cfg.CalibrationOffsets})
	}
	if len(cfg.SpikeMaxDelta) > 0 {
		rt.Use(pipeline.NewSpikeRejectProcessor(cfg.SpikeMaxDelta))
	}
	rt.Use(pipeline.DerivedProcessor{})
	rt.Deliver(engine)
	rt.Deliver(dispatcher)
	if readings != nil {
		rt.Deliver(pipeline.ConsumerFunc{
			ConsumerName: "cache",
			Fn: func(ctx context.Context, obs *types.Observation) error {
				return readings.Store(ctx, obs)
			},
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.Start(ctx)

	udp := &ingest.UDPSource{Addr: cfg.UDPAddr, Logger: logger}
	go func() {
		if err := udp.Run(ctx, rt); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("udp source stopped")
		}
	}()

	if cfg.SimulatorEnabled {
		sim := &pipeline.SimulatorSource{StationID: cfg.SimulatorStation}
		go sim.Run(ctx, rt)
		logger.Info().Str("station", cfg.SimulatorStation).Msg("simulator started")
	}

	sv := worker.NewSupervisor(engine, cfg.ArchiveInterval, logger)
	sv.Start(ctx)

	app := routes.New(store, readings, rt, logger)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: app.Mux(),
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()
	app.SetReady()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	// Ingest first: new requests stop, then the queue drains, then partial
	// windows are archived and flushed to the sinks.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	srv.Shutdown(shutdownCtx)
	sv.Stop()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pipeline drain incomplete")
	}
	if n := engine.Flush(shutdownCtx); n > 0 {
		logger.Info().Int("windows", n).Msg("flushed open windows")
	}

	shutdownTracer(shutdownCtx)
	logger.Info().Msg("bye")
}

// buildSinks assembles every configured backend. The Scylla sink doubles as
// the history read store for the API.
func buildSinks(cfg config.Config, logger zerolog.Logger) ([]sink.Sink, routes.HistoryStore) {
	var sinks []sink.Sink
	var store routes.HistoryStore

	if cfg.SinkDir != "" {
		fs, err := sink.NewFilesystem(cfg.SinkDir)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.SinkDir).Msg("filesystem sink")
		}
		sinks = append(sinks, fs)
	}
	if len(cfg.ScyllaNodes) > 0 {
		sc, err := sink.NewScylla(cfg.ScyllaNodes, cfg.ScyllaKeyspace)
		if err != nil {
			logger.Fatal().Err(err).Msg("scylla sink")
		}
		sinks = append(sinks, sc)
		store = sc
	}
	if len(cfg.KafkaBrokers) > 0 {
		kf, err := sink.NewKafka(cfg.KafkaBrokers)
		if err != nil {
			logger.Fatal().Err(err).Msg("kafka sink")
		}
		sinks = append(sinks, kf)
	}
	if cfg.InfluxURL != "" {
		sinks = append(sinks, sink.NewInflux(cfg.InfluxURL, cfg.InfluxDB))
	}

	for _, s := range sinks {
		logger.Info().Str("sink", s.Name()).Msg("sink registered")
	}
	return sinks, store
}

// buildCache prefers the Valkey cluster; memcached is the single-value
// fallback driver.
func buildCache(cfg config.Config) cache.Cache {
	if len(cfg.ValkeyNodes) > 0 {
		return cache.NewValkey(cfg.ValkeyNodes)
	}
	if cfg.MemcachedAddr != "" {
		return cache.NewMemcached(cfg.MemcachedAddr)
	}
	return nil
}
