package soundings

import "strings"

// Recognised log column names.
const (
	ColLatitude      = "Latitude"
	ColLongitude     = "Longitude"
	ColDepthCM       = "Depth (cm)"
	ColDistanceCM    = "Distance (cm)"
	ColConfidence    = "Confidence"
	ColConfidencePct = "Confidence (%)"
)

// Schema maps the columns of a sounding log onto sounding fields.
// Confidence is -1 when the log has no confidence column.
type Schema struct {
	Latitude    int
	Longitude   int
	Depth       int
	DepthColumn string
	Confidence  int
}

// HasConfidence reports whether the log carries a confidence column.
func (s Schema) HasConfidence() bool { return s.Confidence >= 0 }

// ResolveSchema locates the required columns in a CSV header. "Depth (cm)"
// is preferred over "Distance (cm)"; both are centimetres.
func ResolveSchema(header []string) (Schema, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}

	s := Schema{Latitude: -1, Longitude: -1, Depth: -1, Confidence: -1}
	var ok bool
	if s.Latitude, ok = idx[ColLatitude]; !ok {
		return Schema{}, &SchemaError{Header: header, Reason: "missing " + ColLatitude + " column"}
	}
	if s.Longitude, ok = idx[ColLongitude]; !ok {
		return Schema{}, &SchemaError{Header: header, Reason: "missing " + ColLongitude + " column"}
	}

	switch {
	case has(idx, ColDepthCM):
		s.Depth, s.DepthColumn = idx[ColDepthCM], ColDepthCM
	case has(idx, ColDistanceCM):
		s.Depth, s.DepthColumn = idx[ColDistanceCM], ColDistanceCM
	default:
		return Schema{}, &SchemaError{Header: header, Reason: "no '" + ColDepthCM + "' or '" + ColDistanceCM + "' column"}
	}

	switch {
	case has(idx, ColConfidence):
		s.Confidence = idx[ColConfidence]
	case has(idx, ColConfidencePct):
		s.Confidence = idx[ColConfidencePct]
	}
	return s, nil
}

func has(idx map[string]int, name string) bool {
	_, ok := idx[name]
	return ok
}
