// Package csvsource loads EPA emission records from a CSV export.
package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/methane-encoder-service/internal/domain"
)

// Read parses a header row followed by data rows. Columns are matched to
// record fields by exact header name; short rows are padded with empty
// cells and malformed values degrade through domain.ParseRow. Only a missing
// header or broken CSV quoting is an error.
func Read(r io.Reader) ([]domain.EmissionRecord, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	records := make([]domain.EmissionRecord, len(rows))
	for i, row := range rows {
		records[i] = domain.ParseRow(row)
	}
	return records, nil
}

// ReadRows returns each non-blank data row keyed by its header name.
func ReadRows(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("read csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var rows []map[string]string
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}
		rows = append(rows, toMap(header, row))
	}
	return rows, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) ([]domain.EmissionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadRowsFile opens path and parses it with ReadRows.
func ReadRowsFile(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func toMap(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, col := range header {
		if i < len(row) {
			m[col] = row[i]
		} else {
			m[col] = ""
		}
	}
	return m
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
