package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/depth.survey/internal/fsutil"
	"github.com/banshee-data/depth.survey/internal/security"
	"github.com/banshee-data/depth.survey/internal/soundings"
	"github.com/banshee-data/depth.survey/internal/timeutil"
)

const (
	logPrefix  = "sensor_data_"
	logExt     = ".csv"
	nameLayout = "20060102_150405"
)

// ErrLogNotFound is returned when a requested log file does not exist.
var ErrLogNotFound = errors.New("log file not found")

// Header is the column layout of every log written by a Recorder. It is
// readable by soundings.Read, which takes depth from "Distance (cm)".
var Header = []string{
	"Unix Timestamp", "Year", "Month", "Day", "Hour", "Minute", "Second",
	soundings.ColDistanceCM, soundings.ColLatitude, soundings.ColLongitude,
}

// LogFile describes one log on disk.
type LogFile struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// LogStore owns the directory of sensor logs.
type LogStore struct {
	fs      fsutil.FileSystem
	clock   timeutil.Clock
	dir     string
	maxRows int
}

// NewLogStore returns a store rooted at dir, creating it if needed. A
// non-positive maxRows disables rotation.
func NewLogStore(fsys fsutil.FileSystem, clock timeutil.Clock, dir string, maxRows int) (*LogStore, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}
	return &LogStore{fs: fsys, clock: clock, dir: dir, maxRows: maxRows}, nil
}

// Dir returns the log directory.
func (s *LogStore) Dir() string { return s.dir }

// newName returns an unused sensor_data_YYYYMMDD_HHMMSS.csv name, adding a
// numeric suffix when a file for the same second already exists.
func (s *LogStore) newName() string {
	stem := logPrefix + s.clock.Now().Format(nameLayout)
	name := stem + logExt
	for i := 1; s.fs.Exists(filepath.Join(s.dir, name)); i++ {
		name = stem + "_" + strconv.Itoa(i) + logExt
	}
	return name
}

// List returns the logs in the directory, newest first.
func (s *LogStore) List() ([]LogFile, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	var out []LogFile
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), logExt) {
			continue
		}
		out = append(out, LogFile{Name: e.Name(), SizeBytes: e.Size(), ModTime: e.ModTime()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].ModTime.After(out[j].ModTime)
		}
		return out[i].Name > out[j].Name
	})
	return out, nil
}

// Resolve maps a client-supplied log name to a path inside the store.
// Names that escape the directory or do not exist are rejected.
func (s *LogStore) Resolve(name string) (string, error) {
	if !strings.HasSuffix(name, logExt) {
		return "", fmt.Errorf("%w: %q", ErrLogNotFound, name)
	}
	p, err := security.ResolveInDirectory(s.dir, name)
	if err != nil {
		return "", err
	}
	if _, err := s.fs.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", ErrLogNotFound, name)
		}
		return "", err
	}
	return p, nil
}

// Recorder appends samples to the store, starting a new file every
// maxRows rows.
type Recorder struct {
	store *LogStore
	files []string
	w     io.WriteCloser
	csv   *csv.Writer
	rows  int // rows in the current file
	total int
}

// NewRecorder returns a Recorder. No file is created until the first
// Write.
func (s *LogStore) NewRecorder() *Recorder {
	return &Recorder{store: s}
}

func (r *Recorder) open() error {
	name := r.store.newName()
	w, err := r.store.fs.Append(filepath.Join(r.store.dir, name))
	if err != nil {
		return fmt.Errorf("create log %s: %w", name, err)
	}
	r.w, r.csv, r.rows = w, csv.NewWriter(w), 0
	r.files = append(r.files, name)
	if err := r.csv.Write(Header); err != nil {
		return err
	}
	diagf("opened log %s", name)
	return nil
}

// Write appends one row, rotating first if the current file is full.
func (r *Recorder) Write(s Sample) error {
	if r.w != nil && r.store.maxRows > 0 && r.rows >= r.store.maxRows {
		if err := r.closeFile(); err != nil {
			return err
		}
	}
	if r.w == nil {
		if err := r.open(); err != nil {
			return err
		}
	}

	t := s.Time
	row := []string{
		strconv.FormatInt(t.UnixMilli(), 10),
		strconv.Itoa(t.Year()),
		strconv.Itoa(int(t.Month())),
		strconv.Itoa(t.Day()),
		strconv.Itoa(t.Hour()),
		strconv.Itoa(t.Minute()),
		strconv.Itoa(t.Second()),
		strconv.FormatFloat(s.DistanceCM, 'f', -1, 64),
		strconv.FormatFloat(s.Lat, 'f', 7, 64),
		strconv.FormatFloat(s.Lon, 'f', 7, 64),
	}
	if err := r.csv.Write(row); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	r.csv.Flush()
	if err := r.csv.Error(); err != nil {
		return fmt.Errorf("flush row: %w", err)
	}
	r.rows++
	r.total++
	return nil
}

func (r *Recorder) closeFile() error {
	if r.w == nil {
		return nil
	}
	r.csv.Flush()
	err := errors.Join(r.csv.Error(), r.w.Close())
	r.w, r.csv = nil, nil
	return err
}

// Close flushes and closes the current file.
func (r *Recorder) Close() error { return r.closeFile() }

// Files returns the names written so far, oldest first.
func (r *Recorder) Files() []string { return append([]string(nil), r.files...) }

// Rows returns the total rows written across all files.
func (r *Recorder) Rows() int { return r.total }
