// Command genpoints reads an EPA methane CSV export and writes the fixtures
// the encoder's tests and demo environment use: the raw reports as JSON (one
// object per CSV row, the shape the Kafka source topic carries) and the
// encoded GeoJSON points. It runs the real domain encoder so the fixtures
// match service output.
//
// Usage:
//
//	go run ./cmd/genpoints \
//	  -csv data/epa-ch4-2021.csv \
//	  -reports-out data/mock/raw_emission_reports.json \
//	  -geojson-out data/mock/encoded_points.geojson
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/methane-encoder-service/internal/adapter/csvsource"
	"github.com/couchcryptid/methane-encoder-service/internal/dataset"
	"github.com/couchcryptid/methane-encoder-service/internal/domain"
	"github.com/couchcryptid/methane-encoder-service/internal/render"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "EPA methane CSV export")
	reportsOut := flag.String("reports-out", "", "output path for raw report JSON fixture")
	geojsonOut := flag.String("geojson-out", "", "output path for encoded GeoJSON fixture")
	lowerBound := flag.Float64("lower-bound", domain.DefaultDomainMin, "filter lower bound in metric tons CO2e")
	all := flag.Bool("all", false, "include points that fail the filter")
	flag.Parse()

	if *csvPath == "" || *reportsOut == "" || *geojsonOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -reports-out, -geojson-out")
	}

	rows, err := csvsource.ReadRowsFile(*csvPath)
	if err != nil {
		return err
	}
	store := dataset.NewStore()
	for _, row := range rows {
		store.Add(domain.ParseRow(row))
	}
	records := store.All()
	log.Printf("read %d rows (%d facilities) from %s", len(rows), len(records), *csvPath)

	if err := writeJSON(*reportsOut, rows); err != nil {
		return fmt.Errorf("writing reports fixture: %w", err)
	}
	log.Printf("wrote reports fixture: %s", *reportsOut)

	cfg := domain.DefaultEncodingConfig().WithLowerBound(*lowerBound)
	fc := render.FeatureCollection(records, cfg, render.Options{IncludeFiltered: *all})
	if err := writeJSON(*geojsonOut, fc); err != nil {
		return fmt.Errorf("writing geojson fixture: %w", err)
	}
	log.Printf("wrote geojson fixture: %s (%d features)", *geojsonOut, len(fc.Features))

	printStats(collectStats(records, cfg))
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// statsResult holds aggregated counts for printStats reporting.
type statsResult struct {
	total         int
	passing       int
	zeroMethane   int
	aboveDomain   int
	maxMethane    float64
	maxFacility   string
	industryCount map[string]int
	radiusCount   map[int]int
}

func collectStats(records []domain.EmissionRecord, cfg domain.EncodingConfig) statsResult {
	s := statsResult{
		total:         len(records),
		industryCount: map[string]int{},
		radiusCount:   map[int]int{},
	}
	for i := range records {
		r := &records[i]
		enc := domain.Encode(*r, cfg)

		s.industryCount[domain.ParseIndustry(r.IndustryType).String()]++
		s.radiusCount[enc.Radius]++
		if enc.PassesFilter {
			s.passing++
		}
		if r.MethaneTonsCO2e == 0 {
			s.zeroMethane++
		}
		if r.MethaneTonsCO2e > cfg.DomainMax {
			s.aboveDomain++
		}
		if r.MethaneTonsCO2e > s.maxMethane {
			s.maxMethane = r.MethaneTonsCO2e
			s.maxFacility = r.FacilityName
		}
	}
	return s
}

func printStats(s statsResult) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", s.total)
	fmt.Printf("Passing filter: %d\n", s.passing)
	fmt.Printf("Zero methane: %d\n", s.zeroMethane)
	fmt.Printf("Above domain max: %d\n", s.aboveDomain)
	fmt.Printf("Max methane: %g (%s)\n", s.maxMethane, s.maxFacility)

	fmt.Print("By industry:")
	for _, i := range domain.Industries() {
		fmt.Printf(" %q=%d", i.String(), s.industryCount[i.String()])
	}
	fmt.Println()

	radii := make([]int, 0, len(s.radiusCount))
	for r := range s.radiusCount {
		radii = append(radii, r)
	}
	sort.Ints(radii)
	fmt.Print("By radius:")
	for _, r := range radii {
		fmt.Printf(" %d=%d", r, s.radiusCount[r])
	}
	fmt.Println()
}
