package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseRow converts a CSV row keyed by column name into an EmissionRecord.
// It never fails: missing or malformed fields degrade to their zero value.
func ParseRow(row map[string]string) EmissionRecord {
	name := strings.TrimSpace(row[ColumnFacilityName])
	lat := parseFloatOrZero(row[ColumnLatitude])
	lon := parseFloatOrZero(row[ColumnLongitude])

	return EmissionRecord{
		ID:              generateID(name, lat, lon),
		FacilityName:    name,
		Longitude:       lon,
		Latitude:        lat,
		MethaneTonsCO2e: nonNegative(parseFloatOrZero(row[ColumnMethane])),
		IndustryType:    strings.TrimSpace(row[ColumnIndustryType]),
	}
}

// ParseRawEvent deserializes a RawEvent's value into an EmissionRecord. The
// value is a flat JSON object keyed by CSV column name; values may be JSON
// strings or numbers. Only malformed JSON is an error.
func ParseRawEvent(raw RawEvent) (EmissionRecord, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw.Value, &fields); err != nil {
		return EmissionRecord{}, fmt.Errorf("parse raw event: %w", err)
	}

	row := make(map[string]string, len(fields))
	for k, v := range fields {
		row[k] = stringify(v)
	}
	return ParseRow(row), nil
}

// stringify renders a decoded JSON scalar the way it would appear in a CSV
// cell. Objects, arrays and null become "".
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// parseFloatOrZero parses a string as float64, returning 0 on failure or for
// non-finite values.
func parseFloatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// generateID produces a deterministic ID from the facility's identifying
// fields. Reprocessing the same row yields the same ID.
func generateID(name string, lat, lon float64) string {
	input := fmt.Sprintf("%s|%.5f|%.5f", name, lat, lon)
	hash := sha256.Sum256([]byte(input))
	return "fac-" + hex.EncodeToString(hash[:8])
}

// EncodeFacility encodes a record under cfg and stamps it with the clock.
func EncodeFacility(r EmissionRecord, cfg EncodingConfig) EncodedFacility {
	return EncodedFacility{
		Record:      r,
		Encoding:    Encode(r, cfg),
		LowerBound:  cfg.LowerBound,
		ProcessedAt: clock.Now().UTC(),
	}
}

// FormatDetails renders the hover text shown for a picked point.
func FormatDetails(r EmissionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Methane Tons CO2 equivalent: %s\n\n", strconv.FormatFloat(r.MethaneTonsCO2e, 'f', -1, 64))
	fmt.Fprintf(&b, "Industry: %s\n\n", r.IndustryType)
	fmt.Fprintf(&b, "Facility: %s\n", r.FacilityName)
	if r.PlaceName != "" {
		fmt.Fprintf(&b, "\nNear: %s\n", r.PlaceName)
	}
	return b.String()
}
