package render

import "github.com/couchcryptid/methane-encoder-service/internal/domain"

// Layer defaults carried over from the scatterplot layer the points feed.
const (
	RadiusUnits = "pixels"
	Opacity     = 0.4
)

// HighlightColor tints the hovered point.
var HighlightColor = domain.RGB{191, 211, 230}

// LayerStyle describes how a renderer should draw the points.
type LayerStyle struct {
	RadiusUnits     string               `json:"radius_units"`
	RadiusMinPixels float64              `json:"radius_min_pixels"`
	RadiusMaxPixels float64              `json:"radius_max_pixels"`
	Opacity         float64              `json:"opacity"`
	Pickable        bool                 `json:"pickable"`
	AutoHighlight   bool                 `json:"auto_highlight"`
	HighlightColor  domain.RGB           `json:"highlight_color"`
	FilterRange     [2]float64           `json:"filter_range"`
	SliderRange     [2]float64           `json:"slider_range"`
	Legend          []domain.LegendEntry `json:"legend"`
}

// Style returns the layer description for cfg.
func Style(cfg domain.EncodingConfig) LayerStyle {
	return LayerStyle{
		RadiusUnits:     RadiusUnits,
		RadiusMinPixels: cfg.MinRadiusPixels,
		RadiusMaxPixels: cfg.MaxRadiusPixels,
		Opacity:         Opacity,
		Pickable:        true,
		AutoHighlight:   true,
		HighlightColor:  HighlightColor,
		FilterRange:     [2]float64{cfg.LowerBound, cfg.DomainMax},
		SliderRange:     [2]float64{cfg.DomainMin, cfg.DomainMax},
		Legend:          cfg.Palette.Legend(),
	}
}
