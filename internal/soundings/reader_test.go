package soundings

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestResolveSchema(t *testing.T) {
	tests := []struct {
		name       string
		header     []string
		depthCol   string
		confidence bool
		wantErr    bool
	}{
		{"depth column", []string{"Latitude", "Longitude", "Depth (cm)"}, ColDepthCM, false, false},
		{"distance column", []string{"Unix Timestamp", "Distance (cm)", "Latitude", "Longitude"}, ColDistanceCM, false, false},
		{"depth preferred", []string{"Distance (cm)", "Depth (cm)", "Latitude", "Longitude"}, ColDepthCM, false, false},
		{"confidence", []string{"Latitude", "Longitude", "Depth (cm)", "Confidence"}, ColDepthCM, true, false},
		{"confidence percent", []string{"Latitude", "Longitude", "Depth (cm)", "Confidence (%)"}, ColDepthCM, true, false},
		{"missing depth", []string{"Latitude", "Longitude"}, "", false, true},
		{"missing latitude", []string{"Longitude", "Depth (cm)"}, "", false, true},
		{"missing longitude", []string{"Latitude", "Depth (cm)"}, "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ResolveSchema(tt.header)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSchema))
				var se *SchemaError
				assert.True(t, errors.As(err, &se))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.depthCol, s.DepthColumn)
			assert.Equal(t, tt.confidence, s.HasConfidence())
		})
	}
}

func TestRead_DistanceColumnConvertedToMetres(t *testing.T) {
	log := "Unix Timestamp,Distance (cm),Latitude,Longitude\n" +
		"1700000000000,1000,47.1,-122.3\n"

	points, schema, err := Read(strings.NewReader(log))
	require.NoError(t, err)
	assert.Equal(t, ColDistanceCM, schema.DepthColumn)
	require.Len(t, points, 1)
	assert.Equal(t, 10.0, points[0].DepthM)
	assert.Nil(t, points[0].ConfidencePct)
}

func TestRead_SkipsInvalidRows(t *testing.T) {
	log := "Latitude,Longitude,Depth (cm)\n" +
		"47.1,-122.3,800\n" +
		"0,-122.3,800\n" + // zero latitude
		"47.1,0,800\n" + // zero longitude
		",-122.3,800\n" + // missing latitude
		"47.1,-122.3,\n" + // missing depth
		"abc,-122.3,800\n" + // unparseable
		"NaN,-122.3,800\n" + // non-finite
		"47.2,-122.4,1200\n"

	points, _, err := Read(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 8.0, points[0].DepthM)
	assert.Equal(t, 12.0, points[1].DepthM)
}

func TestRead_MissingConfidenceValueIsNaN(t *testing.T) {
	log := "Latitude,Longitude,Depth (cm),Confidence (%)\n" +
		"47.1,-122.3,800,99\n" +
		"47.1,-122.3,800,\n"

	points, schema, err := Read(strings.NewReader(log))
	require.NoError(t, err)
	assert.True(t, schema.HasConfidence())
	require.Len(t, points, 2)
	require.NotNil(t, points[0].ConfidencePct)
	assert.Equal(t, 99.0, *points[0].ConfidencePct)
	require.NotNil(t, points[1].ConfidencePct)
	assert.NotEqual(t, *points[1].ConfidencePct, *points[1].ConfidencePct, "expected NaN")
}

func TestRead_EmptyAndBadSchema(t *testing.T) {
	_, _, err := Read(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrSchema)

	_, _, err = Read(strings.NewReader("Latitude,Longitude,Speed\n1,2,3\n"))
	assert.ErrorIs(t, err, ErrSchema)
}

func TestReadFiles_ConcatenatesSameSchema(t *testing.T) {
	dir := t.TempDir()
	header := "Latitude,Longitude,Distance (cm)\n"
	a := writeLog(t, dir, "a.csv", header+"47.1,-122.3,600\n47.1,-122.31,700\n")
	b := writeLog(t, dir, "b.csv", header+"47.2,-122.3,800\n")
	empty := writeLog(t, dir, "empty.csv", "")

	points, schema, err := ReadFiles(a, empty, b)
	require.NoError(t, err)
	assert.Equal(t, ColDistanceCM, schema.DepthColumn)
	require.Len(t, points, 3)
	assert.Equal(t, []float64{6, 7, 8}, PointSet{Points: points}.Depths())
}

func TestReadFiles_RejectsDifferentHeader(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "a.csv", "Latitude,Longitude,Distance (cm)\n47.1,-122.3,600\n")
	b := writeLog(t, dir, "b.csv", "Latitude,Longitude,Depth (cm)\n47.1,-122.3,600\n")

	_, _, err := ReadFiles(a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestReadFiles_Errors(t *testing.T) {
	_, _, err := ReadFiles()
	assert.Error(t, err)

	_, _, err = ReadFiles(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	dir := t.TempDir()
	empty := writeLog(t, dir, "empty.csv", "")
	_, _, err = ReadFiles(empty)
	assert.ErrorIs(t, err, ErrSchema)
}
