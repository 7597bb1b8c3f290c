// Command validate performs end-to-end integrity checks across the methane
// fixtures: the source EPA CSV, the raw report JSON that feeds the Kafka
// source topic, and the encoded GeoJSON points. It verifies row counts,
// field parity, encoding correctness, and the visual encoding invariants.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/epa-ch4-2021.csv \
//	  -reports-json data/mock/raw_emission_reports.json \
//	  -geojson data/mock/encoded_points.geojson
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/couchcryptid/methane-encoder-service/internal/adapter/csvsource"
	"github.com/couchcryptid/methane-encoder-service/internal/dataset"
	"github.com/couchcryptid/methane-encoder-service/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "EPA methane CSV export")
	reportsPath := flag.String("reports-json", "", "raw report JSON fixture")
	geojsonPath := flag.String("geojson", "", "encoded GeoJSON fixture")
	lowerBound := flag.Float64("lower-bound", domain.DefaultDomainMin, "lower bound the GeoJSON was generated with")
	all := flag.Bool("all", false, "GeoJSON includes points that fail the filter")
	flag.Parse()

	if *csvPath == "" || *reportsPath == "" || *geojsonPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := domain.DefaultEncodingConfig().WithLowerBound(*lowerBound)
	if code := run(*csvPath, *reportsPath, *geojsonPath, cfg, *all); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath, reportsPath, geojsonPath string, cfg domain.EncodingConfig, all bool) int {
	fmt.Println("=== Methane Encoding Integrity Validation ===")
	fmt.Println()

	rows, err := csvsource.ReadRowsFile(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
		return 1
	}

	reports, err := loadReports(reportsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load reports JSON: %v\n", err)
		return 1
	}

	data, err := os.ReadFile(geojsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load GeoJSON: %v\n", err)
		return 1
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse GeoJSON: %v\n", err)
		return 1
	}

	// Facilities reported twice collapse to their latest row, as in the service.
	store := dataset.NewStore()
	for _, row := range rows {
		store.Add(domain.ParseRow(row))
	}
	records := store.All()

	phases := []*phase{
		validateSourceParity(rows, reports),
		validateEncoding(records, fc, cfg, all),
		validateInvariants(fc, cfg),
		validateSchema(fc),
		validateScale(fc, cfg),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d CSV, %d reports JSON, %d GeoJSON features\n", len(rows), len(reports), len(fc.Features))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadReports(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reports []map[string]string
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// ── Phase 1: Source Parity ──
// The reports fixture must carry every CSV row unchanged, in order.

func validateSourceParity(rows, reports []map[string]string) *phase {
	p := &phase{name: "Phase 1: Source Parity (JSON vs CSV)"}

	if len(rows) != len(reports) {
		p.errorf("row count: CSV has %d, reports has %d", len(rows), len(reports))
		return p
	}
	for i := range rows {
		for key, want := range rows[i] {
			got, ok := reports[i][key]
			switch {
			case !ok:
				p.errorf("row %d: reports missing column %q", i+2, key)
			case got != want:
				p.errorf("row %d: column %q: CSV=%q, reports=%q", i+2, key, want, got)
			}
		}
	}
	return p
}

// ── Phase 2: Encoding ──
// Re-encodes every CSV record and compares against the GeoJSON features.

func validateEncoding(records []domain.EmissionRecord, fc *geojson.FeatureCollection, cfg domain.EncodingConfig, all bool) *phase {
	p := &phase{name: "Phase 2: Encoding (GeoJSON vs CSV)"}

	byID := make(map[string]*geojson.Feature, len(fc.Features))
	for _, f := range fc.Features {
		id, _ := f.ID.(string)
		if _, dup := byID[id]; dup {
			p.errorf("duplicate feature id %q", id)
			continue
		}
		byID[id] = f
	}

	expected := 0
	for i := range records {
		r := records[i]
		enc := domain.Encode(r, cfg)
		f, ok := byID[r.ID]
		if !enc.PassesFilter && !all {
			if ok {
				p.errorf("%s (%s): fails filter but is present", r.ID, r.FacilityName)
			}
			continue
		}
		expected++
		if !ok {
			p.errorf("%s (%s): missing from GeoJSON", r.ID, r.FacilityName)
			continue
		}
		compareFeature(p, r, enc, f)
	}

	if expected != len(fc.Features) {
		p.errorf("feature count: expected %d, got %d", expected, len(fc.Features))
	}
	return p
}

func compareFeature(p *phase, r domain.EmissionRecord, enc domain.EncodingResult, f *geojson.Feature) {
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		p.errorf("%s: geometry is %T, expected Point", r.ID, f.Geometry)
		return
	}
	if !floatEq(pt.Lon(), enc.Position[0]) || !floatEq(pt.Lat(), enc.Position[1]) {
		p.errorf("%s: position: expected %v, got %v", r.ID, enc.Position, pt)
	}
	if got := f.Properties.MustFloat64("radius", -1); int(got) != enc.Radius {
		p.errorf("%s: radius: expected %d, got %g", r.ID, enc.Radius, got)
	}
	if got := f.Properties.MustFloat64("filter_value", -1); !floatEq(got, enc.FilterValue) {
		p.errorf("%s: filter_value: expected %g, got %g", r.ID, enc.FilterValue, got)
	}
	if got := f.Properties.MustBool("passes_filter", !enc.PassesFilter); got != enc.PassesFilter {
		p.errorf("%s: passes_filter: expected %t, got %t", r.ID, enc.PassesFilter, got)
	}
	if got, ok := featureColor(f); !ok || got != enc.FillColor {
		p.errorf("%s: fill_color: expected %v, got %v", r.ID, enc.FillColor, f.Properties["fill_color"])
	}
	if got := f.Properties.MustString("facility", ""); got != r.FacilityName {
		p.errorf("%s: facility: expected %q, got %q", r.ID, r.FacilityName, got)
	}
}

// ── Phase 3: Invariants ──
// Checks properties every encoded point must satisfy regardless of input.

func validateInvariants(fc *geojson.FeatureCollection, cfg domain.EncodingConfig) *phase {
	p := &phase{name: "Phase 3: Encoding Invariants"}

	palette := map[domain.RGB]bool{}
	for _, e := range cfg.Palette.Legend() {
		palette[e.Color] = true
	}
	minR, maxR := math.Round(cfg.MinRadiusPixels), math.Round(cfg.MaxRadiusPixels)

	for _, f := range fc.Features {
		id, _ := f.ID.(string)

		r := f.Properties.MustFloat64("radius", -1)
		if r < minR || r > maxR || r != math.Trunc(r) {
			p.errorf("%s: radius %g outside [%g, %g] or not an integer", id, r, minR, maxR)
		}

		if c, ok := featureColor(f); !ok || !palette[c] {
			p.errorf("%s: fill_color %v not in palette", id, f.Properties["fill_color"])
		}

		v := f.Properties.MustFloat64("filter_value", math.NaN())
		passes := f.Properties.MustBool("passes_filter", false)
		if want := v >= cfg.LowerBound && v <= cfg.DomainMax; passes != want {
			p.errorf("%s: passes_filter=%t but filter_value %g with bounds [%g, %g]", id, passes, v, cfg.LowerBound, cfg.DomainMax)
		}

		if pt, ok := f.Geometry.(orb.Point); ok {
			if pt.Lon() < -180 || pt.Lon() > 180 || pt.Lat() < -90 || pt.Lat() > 90 {
				p.errorf("%s: coordinates %v out of range (expected [lon, lat])", id, pt)
			}
		}
	}
	return p
}

// ── Phase 4: Schema ──
// Validates the property set renderers rely on.

var requiredProperties = []string{"facility", "industry", "radius", "fill_color", "filter_value", "passes_filter"}

func validateSchema(fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "Phase 4: Schema (GeoJSON properties)"}

	for i, f := range fc.Features {
		id, ok := f.ID.(string)
		if !ok || id == "" {
			p.errorf("feature %d: missing string id", i)
		}
		if f.Geometry == nil || f.Geometry.GeoJSONType() != geojson.TypePoint {
			p.errorf("feature %d (%s): geometry is not a Point", i, id)
		}
		for _, key := range requiredProperties {
			if _, ok := f.Properties[key]; !ok {
				p.errorf("feature %d (%s): missing property %q", i, id, key)
			}
		}
	}
	return p
}

// ── Phase 5: Scale ──
// Radius must never shrink as methane grows, and the domain ends must land
// exactly on the radius range ends.

func validateScale(fc *geojson.FeatureCollection, cfg domain.EncodingConfig) *phase {
	p := &phase{name: "Phase 5: Scale (monotonicity, boundaries)"}

	if got, want := domain.Radius(domain.EmissionRecord{MethaneTonsCO2e: cfg.DomainMin}, cfg), int(math.Round(cfg.MinRadiusPixels)); got != want {
		p.errorf("domain min %g: radius %d, expected %d", cfg.DomainMin, got, want)
	}
	if got, want := domain.Radius(domain.EmissionRecord{MethaneTonsCO2e: cfg.DomainMax}, cfg), int(math.Round(cfg.MaxRadiusPixels)); got != want {
		p.errorf("domain max %g: radius %d, expected %d", cfg.DomainMax, got, want)
	}

	type point struct {
		id     string
		value  float64
		radius float64
	}
	points := make([]point, 0, len(fc.Features))
	for _, f := range fc.Features {
		id, _ := f.ID.(string)
		points = append(points, point{
			id:     id,
			value:  f.Properties.MustFloat64("filter_value", math.NaN()),
			radius: f.Properties.MustFloat64("radius", -1),
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].value < points[j].value })

	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if cur.radius < prev.radius {
			p.errorf("%s: radius %g at %g is smaller than %s: radius %g at %g", cur.id, cur.radius, cur.value, prev.id, prev.radius, prev.value)
		}
	}
	return p
}

// ── Helpers ──

func featureColor(f *geojson.Feature) (domain.RGB, bool) {
	raw, ok := f.Properties["fill_color"].([]any)
	if !ok || len(raw) != 3 {
		return domain.RGB{}, false
	}
	var c domain.RGB
	for i, v := range raw {
		n, ok := v.(float64)
		if !ok || n < 0 || n > 255 || n != math.Trunc(n) {
			return domain.RGB{}, false
		}
		c[i] = uint8(n)
	}
	return c, true
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
