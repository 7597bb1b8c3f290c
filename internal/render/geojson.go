// Package render turns encoded facilities into GeoJSON for point renderers.
package render

import (
	"github.com/couchcryptid/methane-encoder-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Options controls which records are emitted.
type Options struct {
	// IncludeFiltered keeps records that fail the threshold, flagged with
	// passes_filter=false, instead of dropping them.
	IncludeFiltered bool
}

// FeatureCollection encodes every record under cfg as a Point feature.
// Coordinates are [lon, lat] as RFC 7946 requires.
func FeatureCollection(records []domain.EmissionRecord, cfg domain.EncodingConfig, opts Options) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(records))

	for i := range records {
		enc := domain.Encode(records[i], cfg)
		if !enc.PassesFilter && !opts.IncludeFiltered {
			continue
		}
		fc.Append(Feature(records[i], enc))
	}
	return fc
}

// Feature builds one Point feature from a record and its encoding.
func Feature(r domain.EmissionRecord, enc domain.EncodingResult) *geojson.Feature {
	f := geojson.NewFeature(orb.Point(enc.Position))
	f.ID = r.ID
	f.Properties["facility"] = r.FacilityName
	f.Properties["industry"] = r.IndustryType
	f.Properties["radius"] = enc.Radius
	f.Properties["fill_color"] = enc.FillColor
	f.Properties["filter_value"] = enc.FilterValue
	f.Properties["passes_filter"] = enc.PassesFilter
	if r.PlaceName != "" {
		f.Properties["place_name"] = r.PlaceName
	}
	return f
}
