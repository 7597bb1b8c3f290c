// Command encoder serves EPA methane facilities as encoded map points. It
// loads the facility CSV, keeps the session's filter threshold, and
// optionally consumes raw reports from Kafka, encoding and republishing them.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/methane-encoder-service/internal/adapter/csvsource"
	httpadapter "github.com/couchcryptid/methane-encoder-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/methane-encoder-service/internal/adapter/kafka"
	"github.com/couchcryptid/methane-encoder-service/internal/adapter/mapbox"
	"github.com/couchcryptid/methane-encoder-service/internal/adapter/sse"
	"github.com/couchcryptid/methane-encoder-service/internal/config"
	"github.com/couchcryptid/methane-encoder-service/internal/dataset"
	"github.com/couchcryptid/methane-encoder-service/internal/domain"
	"github.com/couchcryptid/methane-encoder-service/internal/observability"
	"github.com/couchcryptid/methane-encoder-service/internal/pipeline"
	"github.com/couchcryptid/methane-encoder-service/internal/render"
)

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("encoder exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	store := dataset.NewStore()
	if cfg.DatasetPath != "" {
		records, err := csvsource.ReadFile(cfg.DatasetPath)
		if err != nil {
			return err
		}
		store.Add(records...)
		logger.Info("dataset loaded", "path", cfg.DatasetPath, "records", store.Len())
	}
	metrics.RecordsLoaded.Set(float64(store.Len()))

	encoding, err := encodingConfig(cfg, store)
	if err != nil {
		return err
	}
	logger.Info("encoding configured",
		"domain_min", encoding.DomainMin,
		"domain_max", encoding.DomainMax,
		"radius_min_pixels", encoding.MinRadiusPixels,
		"radius_max_pixels", encoding.MaxRadiusPixels,
	)

	broker := sse.NewBroker(nil, logger)
	threshold := dataset.NewThreshold(cfg.InitialLowerBound, encoding.DomainMin, encoding.DomainMax, nil)
	metrics.LowerBound.Set(threshold.Get())
	threshold.Subscribe(func(change dataset.ThresholdChange) {
		metrics.LowerBound.Set(change.LowerBound)
		metrics.ThresholdUpdates.Inc()
	})
	threshold.Subscribe(broker.PublishThreshold)

	store.Subscribe(func(version uint64, size int) {
		metrics.RecordsLoaded.Set(float64(size))
		broker.PublishDataset(version, size)
	})

	renderer, err := render.NewCache(cfg.RenderCacheSize, metrics)
	if err != nil {
		return err
	}

	events := sse.Handler(broker, func() any {
		lo, hi := threshold.Range()
		return map[string]any{
			"lower_bound": threshold.Get(),
			"min":         lo,
			"max":         hi,
			"version":     store.Version(),
			"records":     store.Len(),
		}
	}, sse.DefaultKeepalive)

	api := httpadapter.NewAPI(store, threshold, renderer, encoding, events, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, store, api, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	var closers []func() error
	if cfg.KafkaEnabled {
		geocoder, err := newGeocoder(cfg, metrics, logger)
		if err != nil {
			return err
		}

		reader := kafkaadapter.NewReader(cfg, logger)
		writer := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, reader.Close, writer.Close)

		transformer := pipeline.NewTransformer(geocoder, threshold, encoding, logger)
		p := pipeline.New(reader, transformer, pipeline.FanOut{writer, store}, logger, metrics, cfg.BatchSize)

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	} else {
		logger.Info("kafka pipeline disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// encodingConfig builds the base encoding configuration, resolving
// ENCODER_DOMAIN_MAX=auto against the loaded dataset.
func encodingConfig(cfg *config.Config, store *dataset.Store) (domain.EncodingConfig, error) {
	enc := domain.DefaultEncodingConfig()
	enc.DomainMin = cfg.DomainMin
	enc.DomainMax = cfg.DomainMax
	enc.MinRadiusPixels = cfg.MinRadiusPixels
	enc.MaxRadiusPixels = cfg.MaxRadiusPixels
	enc.LowerBound = cfg.InitialLowerBound

	if cfg.DomainMaxFromData {
		enc.DomainMax = store.MaxMethane()
	}
	if err := enc.Validate(); err != nil {
		return domain.EncodingConfig{}, fmt.Errorf("encoding config: %w", err)
	}
	return enc, nil
}

// newGeocoder returns a cached Mapbox geocoder, or nil when geocoding is off.
func newGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.Geocoder, error) {
	if !cfg.MapboxEnabled {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("mapbox geocoding disabled")
		return nil, nil
	}
	client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
	cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
	if err != nil {
		return nil, err
	}
	metrics.GeocodeEnabled.Set(1)
	logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	return cached, nil
}
