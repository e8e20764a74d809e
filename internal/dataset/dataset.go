package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/apportionment/internal/apportion"
)

var (
	// ErrUnsupportedFormat is returned when a file extension is neither CSV nor YAML.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	// ErrMissingColumn is returned when a CSV header lacks a required column.
	ErrMissingColumn = errors.New("required column missing")
	// ErrInvalidRecord is returned for rows with empty, duplicate or non-numeric fields.
	ErrInvalidRecord = errors.New("invalid dataset record")
)

// Column names recognised in CSV headers, compared case-insensitively.
const (
	ColumnPopulation = "Population"
	ColumnElectors   = "Electors"
)

var idColumns = []string{"State Abbreviation", "Abbreviation", "ID"}

// Record is one row of a CSV dataset.
type Record struct {
	ID    string
	Value int
}

// ReadCSV parses a CSV dataset with a header row, returning the identifier
// and the named value column of every row in file order.
func ReadCSV(r io.Reader, column string) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalidRecord)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idIdx := findColumn(header, idColumns...)
	if idIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, idColumns[0])
	}
	valueIdx := findColumn(header, column)
	if valueIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
	}

	var records []Record
	seen := make(map[string]struct{})
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		id := strings.TrimSpace(row[idIdx])
		if id == "" {
			return nil, fmt.Errorf("%w: line %d has an empty id", ErrInvalidRecord, line)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: line %d repeats id %q", ErrInvalidRecord, line, id)
		}
		seen[id] = struct{}{}

		value, err := parseCount(row[valueIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, line, err)
		}
		records = append(records, Record{ID: id, Value: value})
	}

	return records, nil
}

type yamlDataset struct {
	Subdivisions []yamlSubdivision `yaml:"subdivisions"`
}

type yamlSubdivision struct {
	ID         string `yaml:"id"`
	Population int    `yaml:"population"`
}

// ReadYAML parses a YAML dataset of the form
//
//	subdivisions:
//	  - id: CA
//	    population: 39538223
func ReadYAML(r io.Reader) ([]apportion.Subdivision, error) {
	var doc yamlDataset
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalidRecord)
		}
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	subs := make([]apportion.Subdivision, 0, len(doc.Subdivisions))
	seen := make(map[string]struct{}, len(doc.Subdivisions))
	for i, entry := range doc.Subdivisions {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty id", ErrInvalidRecord, i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: entry %d repeats id %q", ErrInvalidRecord, i, id)
		}
		if entry.Population < 0 {
			return nil, fmt.Errorf("%w: entry %d has negative population %d", ErrInvalidRecord, i, entry.Population)
		}
		seen[id] = struct{}{}
		subs = append(subs, apportion.Subdivision{ID: id, Population: entry.Population})
	}
	return subs, nil
}

// Load reads a population dataset, choosing the parser from the file extension.
func Load(path string) ([]apportion.Subdivision, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err := ReadCSV(f, ColumnPopulation)
		if err != nil {
			return nil, err
		}
		subs := make([]apportion.Subdivision, len(records))
		for i, rec := range records {
			subs[i] = apportion.Subdivision{ID: rec.ID, Population: rec.Value}
		}
		return subs, nil
	case ".yaml", ".yml":
		return ReadYAML(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadTotals reads a CSV of externally published per-subdivision totals,
// such as electoral votes, keyed by identifier.
func LoadTotals(path string, column string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open totals: %w", err)
	}
	defer f.Close()

	records, err := ReadCSV(f, column)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int, len(records))
	for _, rec := range records {
		totals[rec.ID] = rec.Value
	}
	return totals, nil
}

func findColumn(header []string, names ...string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}

// parseCount accepts non-negative integers, tolerating thousands separators.
func parseCount(raw string) (int, error) {
	cleaned := strings.NewReplacer(",", "", "_", "").Replace(strings.TrimSpace(raw))
	value, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	if value < 0 {
		return 0, fmt.Errorf("value must be non-negative, got %d", value)
	}
	return value, nil
}
