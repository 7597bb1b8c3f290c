package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding fills PlaceName from the facility coordinates. A nil
// geocoder, missing coordinates or a provider failure leave the record
// unchanged; enrichment never blocks encoding.
func EnrichWithGeocoding(ctx context.Context, r EmissionRecord, geocoder Geocoder, logger *slog.Logger) EmissionRecord {
	if geocoder == nil || r.PlaceName != "" {
		return r
	}
	if r.Latitude == 0 && r.Longitude == 0 {
		return r
	}

	result, err := geocoder.ReverseGeocode(ctx, r.Latitude, r.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"record_id", r.ID,
			"lat", r.Latitude,
			"lon", r.Longitude,
			"error", err,
		)
		return r
	}

	switch {
	case result.FormattedAddress != "":
		r.PlaceName = result.FormattedAddress
	case result.PlaceName != "":
		r.PlaceName = result.PlaceName
	}
	return r
}
