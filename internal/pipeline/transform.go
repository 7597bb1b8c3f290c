package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/methane-encoder-service/internal/domain"
)

// LowerBoundSource supplies the filter lower bound in effect right now.
type LowerBoundSource interface {
	Get() float64
}

// EmissionTransformer parses raw reports, optionally reverse geocodes them,
// and encodes them under the current threshold.
type EmissionTransformer struct {
	geocoder   domain.Geocoder
	lowerBound LowerBoundSource
	encoding   domain.EncodingConfig
	logger     *slog.Logger
}

// NewTransformer creates an EmissionTransformer. Pass a nil geocoder to
// disable place name enrichment, and a nil lowerBound to always encode with
// encoding.LowerBound.
func NewTransformer(geocoder domain.Geocoder, lowerBound LowerBoundSource, encoding domain.EncodingConfig, logger *slog.Logger) *EmissionTransformer {
	return &EmissionTransformer{
		geocoder:   geocoder,
		lowerBound: lowerBound,
		encoding:   encoding,
		logger:     logger,
	}
}

func (t *EmissionTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.EncodedFacility, error) {
	record, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.EncodedFacility{}, err
	}

	record = domain.EnrichWithGeocoding(ctx, record, t.geocoder, t.logger)

	cfg := t.encoding
	if t.lowerBound != nil {
		cfg = cfg.WithLowerBound(t.lowerBound.Get())
	}
	return domain.EncodeFacility(record, cfg), nil
}
