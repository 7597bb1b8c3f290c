package domain

import (
	"context"
	"time"
)

// CSV column keys, matched exactly.
const (
	ColumnFacilityName = "Facility Name"
	ColumnLatitude     = "Latitude"
	ColumnLongitude    = "Longitude"
	ColumnIndustryType = "Industry Type (sectors)"
	ColumnMethane      = "Methane (CH4) emissions metric tons carbon equivalent"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// EmissionRecord is one reporting facility. It is immutable once parsed.
type EmissionRecord struct {
	ID              string  `json:"id"`
	FacilityName    string  `json:"facility_name"`
	Longitude       float64 `json:"longitude"`
	Latitude        float64 `json:"latitude"`
	MethaneTonsCO2e float64 `json:"methane_tons_co2e"`
	IndustryType    string  `json:"industry_type"`

	// PlaceName is filled by reverse geocoding when enabled.
	PlaceName string `json:"place_name,omitempty"`
}

// EncodedFacility is a record together with its encoding, destined for the
// sink topic and the in-memory dataset.
type EncodedFacility struct {
	Record      EmissionRecord `json:"record"`
	Encoding    EncodingResult `json:"encoding"`
	LowerBound  float64        `json:"lower_bound"`
	ProcessedAt time.Time      `json:"processed_at"`
}
