package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DomainMaxAuto derives the radius/filter domain maximum from the loaded dataset.
const DomainMaxAuto = "auto"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset and encoding.
	DatasetPath       string
	DomainMin         float64
	DomainMax         float64 // zero when DomainMaxFromData is set
	DomainMaxFromData bool
	MinRadiusPixels   float64
	MaxRadiusPixels   float64
	InitialLowerBound float64
	RenderCacheSize   int

	// Kafka pipeline, off unless KAFKA_ENABLED=true.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox reverse geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	domainMin, err := parseFloat("ENCODER_DOMAIN_MIN", "1")
	if err != nil {
		return nil, err
	}
	minRadius, err := parseFloat("ENCODER_MIN_RADIUS_PIXELS", "1")
	if err != nil {
		return nil, err
	}
	maxRadius, err := parseFloat("ENCODER_MAX_RADIUS_PIXELS", "25")
	if err != nil {
		return nil, err
	}
	lowerBound, err := parseFloat("ENCODER_INITIAL_LOWER_BOUND", "1")
	if err != nil {
		return nil, err
	}

	var domainMax float64
	domainMaxFromData := false
	if raw := strings.TrimSpace(sharedcfg.EnvOrDefault("ENCODER_DOMAIN_MAX", "2268589")); strings.EqualFold(raw, DomainMaxAuto) {
		domainMaxFromData = true
	} else {
		domainMax, err = strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(domainMax) || math.IsInf(domainMax, 0) {
			return nil, errors.New("invalid ENCODER_DOMAIN_MAX")
		}
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatasetPath:       os.Getenv("METHANE_CSV_PATH"),
		DomainMin:         domainMin,
		DomainMax:         domainMax,
		DomainMaxFromData: domainMaxFromData,
		MinRadiusPixels:   minRadius,
		MaxRadiusPixels:   maxRadius,
		InitialLowerBound: lowerBound,
		RenderCacheSize:   parsePositiveInt("RENDER_CACHE_SIZE", 16),

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-emission-reports"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "encoded-emission-points"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "methane-encoder"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parsePositiveInt("MAPBOX_CACHE_SIZE", 1000),
	}

	if !cfg.DomainMaxFromData && cfg.DomainMax <= cfg.DomainMin {
		return nil, errors.New("ENCODER_DOMAIN_MAX must exceed ENCODER_DOMAIN_MIN")
	}
	if cfg.DomainMaxFromData && cfg.DatasetPath == "" {
		return nil, errors.New("ENCODER_DOMAIN_MAX=auto requires METHANE_CSV_PATH")
	}
	if cfg.MinRadiusPixels < 0 || cfg.MaxRadiusPixels < cfg.MinRadiusPixels {
		return nil, errors.New("ENCODER_MIN_RADIUS_PIXELS and ENCODER_MAX_RADIUS_PIXELS must satisfy 0 <= min <= max")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parseFloat(key, def string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(sharedcfg.EnvOrDefault(key, def)), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s: must be finite", key)
	}
	return v, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
