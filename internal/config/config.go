// Package config reads the daemon's configuration from the environment.
// Every backend is optional: an empty node list simply leaves that sink or
// cache out of the wiring.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	UDPAddr  string

	ScyllaNodes    []string
	ScyllaKeyspace string
	KafkaBrokers   []string
	ValkeyNodes    []string
	MemcachedAddr  string
	InfluxURL      string
	InfluxDB       string
	SinkDir        string

	ArchiveInterval time.Duration
	ArchiveGrace    time.Duration

	QueueSize       int
	PipelineWorkers int
	PushTimeout     time.Duration

	// CalibrationOffsets are additive per-metric corrections applied to
	// every observation. SpikeMaxDelta bounds the accepted change per
	// metric between consecutive readings of one station. Both are empty
	// unless configured, leaving the matching processor out of the
	// pipeline.
	CalibrationOffsets map[string]float64
	SpikeMaxDelta      map[string]float64

	SinkTimeout     time.Duration
	SinkRetryBase   time.Duration
	SinkMaxBackoff  time.Duration
	SinkMaxAttempts int

	ShutdownTimeout time.Duration

	SimulatorEnabled bool
	SimulatorStation string
}

func FromEnv() Config {
	return Config{
		HTTPAddr: envString("HTTP_ADDR", ":8080"),
		UDPAddr:  envString("UDP_ADDR", ":9876"),

		ScyllaNodes:    envNodes("SCYLLA_NODES"),
		ScyllaKeyspace: envString("SCYLLA_KEYSPACE", "weather"),
		KafkaBrokers:   envNodes("KAFKA_BROKERS"),
		ValkeyNodes:    envNodes("VALKEY_NODES"),
		MemcachedAddr:  os.Getenv("MEMCACHED_ADDR"),
		InfluxURL:      os.Getenv("INFLUX_URL"),
		InfluxDB:       envString("INFLUX_DB", "weather"),
		SinkDir:        os.Getenv("SINK_DIR"),

		ArchiveInterval: envDuration("ARCHIVE_INTERVAL", 5*time.Minute),
		ArchiveGrace:    envDuration("ARCHIVE_GRACE", time.Second),

		QueueSize:       envInt("QUEUE_SIZE", 1024),
		PipelineWorkers: envInt("PIPELINE_WORKERS", 4),
		PushTimeout:     envDuration("PUSH_TIMEOUT", 100*time.Millisecond),

		CalibrationOffsets: envFloatMap("CALIBRATION_OFFSETS"),
		SpikeMaxDelta:      envFloatMap("SPIKE_MAX_DELTA"),

		SinkTimeout:     envDuration("SINK_TIMEOUT", 2*time.Second),
		SinkRetryBase:   envDuration("SINK_RETRY_BASE", 100*time.Millisecond),
		SinkMaxBackoff:  envDuration("SINK_MAX_BACKOFF", 5*time.Second),
		SinkMaxAttempts: envInt("SINK_MAX_ATTEMPTS", 3),

		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		SimulatorEnabled: envBool("SIMULATOR"),
		SimulatorStation: envString("SIMULATOR_STATION", "simulator"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envNodes(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	nodes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nodes = append(nodes, p)
		}
	}
	return nodes
}

// envFloatMap parses comma-separated name=value pairs, e.g.
// CALIBRATION_OFFSETS="barometer=1.2,outTemp=-0.5". Malformed pairs are
// skipped.
func envFloatMap(key string) map[string]float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	m := make(map[string]float64)
	for _, pair := range strings.Split(v, ",") {
		name, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		m[name] = f
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
