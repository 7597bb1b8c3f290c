// Package domain models EPA greenhouse gas facility records and their
// scatterplot encodings.
//
// # Data Source
//
// Records come from the EPA Greenhouse Gas Reporting Program, 2021 Data
// Summary Spreadsheets ("Direct Emitters" tab), available at
// https://www.epa.gov/ghgreporting/data-sets. The sheet is trimmed to the
// columns used here and saved as CSV. Upstream producers publish each row as
// flat JSON (column name → value) to the raw Kafka topic.
//
// # Column Conventions
//
// Column names are matched exactly, including case and punctuation:
//
//	"Facility Name"
//	"Latitude", "Longitude"                       decimal degrees, WGS-84
//	"Industry Type (sectors)"                      comma-joined sector names
//	"Methane (CH4) emissions metric tons carbon equivalent"
//
// Values may arrive as JSON strings or JSON numbers depending on the
// producer. Anything that does not parse as a finite number is treated as 0;
// a negative methane quantity is also treated as 0.
//
// # Encoding
//
// Each record maps to four visual channels consumed by a point renderer:
//
//	position      [longitude, latitude]  (RFC 7946 §3.1.1 order)
//	radius        radial scale of methane onto [minRadius, maxRadius] pixels
//	fill colour   industry palette with an "Other" fallback
//	filter        methane compared against [lowerBound, domainMax]
//
// The radial scale interpolates in squared-radius space so the rendered
// circle area, not its radius, is proportional to the emissions value.
// Outputs are clamped to the radius range and rounded to whole pixels.
//
// The lower bound is the only value that changes while a map is open. It is
// never read from package state: callers snapshot it into an [EncodingConfig]
// and pass it on every call, so a threshold change is visible on the very next
// evaluation.
//
// # ID Generation
//
// Record IDs are deterministic SHA-256 prefixes of name|lat|lon so replaying
// the raw topic upserts instead of duplicating. See [generateID].
package domain
