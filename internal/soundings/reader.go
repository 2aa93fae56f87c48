package soundings

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
)

// centimetresPerMetre converts logged depth/distance columns to metres.
const centimetresPerMetre = 100.0

// Read parses one sounding log. Rows with a missing or zero position, or a
// missing depth, are skipped rather than treated as errors.
func Read(r io.Reader) ([]Sounding, Schema, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Schema{}, &SchemaError{Reason: "empty log"}
		}
		return nil, Schema{}, fmt.Errorf("failed to read header: %w", err)
	}
	schema, err := ResolveSchema(header)
	if err != nil {
		return nil, Schema{}, err
	}

	points, err := readRows(cr, schema)
	return points, schema, err
}

// ReadFiles concatenates several same-schema logs. Each file's header is
// consumed once; a file whose header differs from the first is rejected.
func ReadFiles(paths ...string) ([]Sounding, Schema, error) {
	if len(paths) == 0 {
		return nil, Schema{}, fmt.Errorf("no log files given")
	}

	var (
		all       []Sounding
		schema    Schema
		firstHdr  []string
		firstPath string
	)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, Schema{}, fmt.Errorf("failed to open %s: %w", path, err)
		}

		cr := csv.NewReader(f)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true

		header, err := cr.Read()
		if err != nil {
			f.Close()
			if errors.Is(err, io.EOF) {
				// An empty log contributes nothing.
				continue
			}
			return nil, Schema{}, fmt.Errorf("failed to read header of %s: %w", path, err)
		}
		header = normaliseHeader(header)

		if firstHdr == nil {
			schema, err = ResolveSchema(header)
			if err != nil {
				f.Close()
				return nil, Schema{}, fmt.Errorf("%s: %w", path, err)
			}
			firstHdr, firstPath = header, path
		} else if !slices.Equal(header, firstHdr) {
			f.Close()
			return nil, Schema{}, &SchemaError{
				Header: header,
				Reason: fmt.Sprintf("header of %s differs from %s", path, firstPath),
			}
		}

		points, err := readRows(cr, schema)
		f.Close()
		if err != nil {
			return nil, Schema{}, fmt.Errorf("%s: %w", path, err)
		}
		all = append(all, points...)
	}

	if firstHdr == nil {
		return nil, Schema{}, &SchemaError{Reason: "all log files are empty"}
	}
	return all, schema, nil
}

func normaliseHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

func readRows(cr *csv.Reader, schema Schema) ([]Sounding, error) {
	var points []Sounding
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if s, ok := parseRow(rec, schema); ok {
			points = append(points, s)
		}
	}
}

func parseRow(rec []string, schema Schema) (Sounding, bool) {
	lat, ok := field(rec, schema.Latitude)
	if !ok {
		return Sounding{}, false
	}
	lon, ok := field(rec, schema.Longitude)
	if !ok {
		return Sounding{}, false
	}
	raw, ok := field(rec, schema.Depth)
	if !ok {
		return Sounding{}, false
	}

	s := Sounding{Latitude: lat, Longitude: lon, DepthM: raw / centimetresPerMetre}
	if !s.validPosition() {
		return Sounding{}, false
	}

	if schema.HasConfidence() {
		conf, ok := field(rec, schema.Confidence)
		if !ok {
			// The column exists but this ping has no value; it can never
			// pass the confidence floor.
			conf = math.NaN()
		}
		s.ConfidencePct = &conf
	}
	return s, true
}

// field parses column i as a finite float.
func field(rec []string, i int) (float64, bool) {
	if i < 0 || i >= len(rec) {
		return 0, false
	}
	v := strings.TrimSpace(rec[i])
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
