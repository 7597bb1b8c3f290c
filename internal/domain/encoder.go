package domain

import (
	"errors"
	"fmt"
	"math"
)

// Defaults for the 2021 EPA methane dataset.
const (
	DefaultDomainMin       = 1
	DefaultDomainMax       = 2268589 // largest methane value in the 2021 dataset
	DefaultMinRadiusPixels = 1
	DefaultMaxRadiusPixels = 25
)

// EncodingConfig is fixed at startup except for LowerBound, which tracks the
// user's threshold and is supplied fresh on every call.
type EncodingConfig struct {
	DomainMin       float64 `json:"domain_min"`
	DomainMax       float64 `json:"domain_max"`
	MinRadiusPixels float64 `json:"min_radius_pixels"`
	MaxRadiusPixels float64 `json:"max_radius_pixels"`
	Palette         Palette `json:"-"`
	LowerBound      float64 `json:"lower_bound"`
}

// DefaultEncodingConfig returns the canonical configuration with the lower
// bound at the domain minimum, so every non-zero record passes.
func DefaultEncodingConfig() EncodingConfig {
	return EncodingConfig{
		DomainMin:       DefaultDomainMin,
		DomainMax:       DefaultDomainMax,
		MinRadiusPixels: DefaultMinRadiusPixels,
		MaxRadiusPixels: DefaultMaxRadiusPixels,
		Palette:         DefaultPalette,
		LowerBound:      DefaultDomainMin,
	}
}

// WithLowerBound returns a copy of c with the given lower bound.
func (c EncodingConfig) WithLowerBound(v float64) EncodingConfig {
	c.LowerBound = v
	return c
}

// Validate rejects configurations that cannot produce a usable scale. A lower
// bound outside the domain is allowed; it simply filters everything out.
func (c EncodingConfig) Validate() error {
	if c.DomainMax <= c.DomainMin {
		return fmt.Errorf("domain max %g must exceed domain min %g", c.DomainMax, c.DomainMin)
	}
	if c.MinRadiusPixels < 0 {
		return errors.New("min radius must not be negative")
	}
	if c.MaxRadiusPixels < c.MinRadiusPixels {
		return fmt.Errorf("max radius %g is below min radius %g", c.MaxRadiusPixels, c.MinRadiusPixels)
	}
	return nil
}

func (c EncodingConfig) radiusScale() RadialScale {
	return NewRadialScale(c.DomainMin, c.DomainMax, c.MinRadiusPixels, c.MaxRadiusPixels)
}

// EncodingResult holds the visual channels for one record.
type EncodingResult struct {
	Position     [2]float64 `json:"position"` // [lon, lat]
	Radius       int        `json:"radius"`
	FillColor    RGB        `json:"fill_color"`
	FilterValue  float64    `json:"filter_value"`
	PassesFilter bool       `json:"passes_filter"`
}

// Position returns the coordinate pair longitude first, per RFC 7946.
func Position(r EmissionRecord) [2]float64 {
	return [2]float64{r.Longitude, r.Latitude}
}

// Radius maps the record's methane value to a whole-pixel radius.
func Radius(r EmissionRecord, cfg EncodingConfig) int {
	return cfg.radiusScale().ScaleRound(r.MethaneTonsCO2e)
}

// FillColor looks up the record's sector in the palette.
func FillColor(r EmissionRecord, cfg EncodingConfig) RGB {
	return cfg.Palette.Color(ParseIndustry(r.IndustryType))
}

// FilterValue is the quantity compared against the threshold. NaN counts as 0,
// as it does for the radius.
func FilterValue(r EmissionRecord) float64 {
	if math.IsNaN(r.MethaneTonsCO2e) {
		return 0
	}
	return r.MethaneTonsCO2e
}

// PassesFilter reports whether LowerBound <= value <= DomainMax.
func PassesFilter(r EmissionRecord, cfg EncodingConfig) bool {
	v := FilterValue(r)
	return cfg.LowerBound <= v && v <= cfg.DomainMax
}

// Encode computes every channel for r under cfg.
func Encode(r EmissionRecord, cfg EncodingConfig) EncodingResult {
	return EncodingResult{
		Position:     Position(r),
		Radius:       Radius(r, cfg),
		FillColor:    FillColor(r, cfg),
		FilterValue:  FilterValue(r),
		PassesFilter: PassesFilter(r, cfg),
	}
}
