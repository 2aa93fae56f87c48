package testutil

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

// recorder captures failures from helpers under test without failing the
// surrounding test.
type recorder struct {
	testing.TB
	errors []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func TestAssertStatusCode_Mismatch(t *testing.T) {
	t.Parallel()

	rec := &recorder{TB: t}
	AssertStatusCode(rec, http.StatusOK, http.StatusBadRequest)
	if len(rec.errors) != 1 {
		t.Fatalf("errors = %q, want exactly one", rec.errors)
	}
	if want := "status code = 200, want 400"; rec.errors[0] != want {
		t.Errorf("message = %q, want %q", rec.errors[0], want)
	}

	rec = &recorder{TB: t}
	AssertStatusCode(rec, http.StatusCreated, http.StatusCreated)
	if len(rec.errors) != 0 {
		t.Errorf("matching codes reported %q", rec.errors)
	}
}

func TestSlopeGrid(t *testing.T) {
	pings := SlopeGrid().Pings()
	if len(pings) != 100 {
		t.Fatalf("len = %d, want 100", len(pings))
	}
	if pings[0][2] != 600 || pings[99][2] != 1500 {
		t.Errorf("depth range = %v..%v, want 600..1500", pings[0][2], pings[99][2])
	}
	if pings[99][0] <= pings[0][0] || pings[99][1] <= pings[0][1] {
		t.Errorf("grid should extend north-east: first %v last %v", pings[0], pings[99])
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log.csv")
	g := Grid{Rows: 1, Cols: 2, Lat: 1, Lon: 2, Step: 0.5, DepthCM: func(i, j int) float64 { return 700 }}
	WriteCSV(t, path, g, []string{"Latitude", "Longitude", "Depth (cm)", "Confidence"},
		[]Column{LatColumn, LonColumn, DepthColumn, ConstColumn("99")})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Latitude,Longitude,Depth (cm),Confidence\n" +
		"1.0000000,2.0000000,700,99\n" +
		"1.0000000,2.5000000,700,99\n"
	if got := string(data); got != want {
		t.Errorf("csv =\n%s\nwant\n%s", got, want)
	}
}
