package tilecache

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/fsutil"
	"github.com/banshee-data/depth.survey/internal/monitoring"
	"github.com/banshee-data/depth.survey/internal/timeutil"
)

var (
	opsf  = monitoring.For("tilecache").Opsf
	diagf = monitoring.For("tilecache").Diagf
)

const (
	tileExt = ".png"
	tmpExt  = ".tmp"

	// EvictFraction is the share of entries removed per eviction round.
	EvictFraction = 0.10
)

// Options controls cache capacity and behaviour.
type Options struct {
	MaxBytes          int64
	MinZoom           int
	JournalMaxEntries int
	KeyIncludesSource bool
	DefaultCenterLat  float64
	DefaultCenterLon  float64
	DefaultCenterZoom int
}

// DefaultOptions returns the stock cache settings: 5 GiB, zoom 17 and up,
// a 100-entry journal and a whole-world default view.
func DefaultOptions() Options {
	return OptionsFrom(config.EmptySurveyConfig())
}

// OptionsFrom maps the tile cache section of cfg onto Options.
func OptionsFrom(cfg *config.SurveyConfig) Options {
	return Options{
		MaxBytes:          cfg.GetTileCacheMaxBytes(),
		MinZoom:           cfg.GetTileCacheMinZoom(),
		JournalMaxEntries: cfg.GetTileJournalMaxEntries(),
		KeyIncludesSource: cfg.GetTileKeyIncludesSource(),
		DefaultCenterLat:  cfg.GetDefaultCenterLat(),
		DefaultCenterLon:  cfg.GetDefaultCenterLon(),
		DefaultCenterZoom: cfg.GetDefaultCenterZoom(),
	}
}

// Stats summarises the cache contents.
type Stats struct {
	Count     int   `json:"count"`
	SizeBytes int64 `json:"size_bytes"`
	SizeLimit int64 `json:"size_limit"`
}

// Cache stores tile images as <md5>.png files in a single directory.
// Only tiles at MinZoom or deeper are stored. All write failures are
// logged and swallowed: a broken cache degrades to a pass-through.
type Cache struct {
	fs    fsutil.FileSystem
	clock timeutil.Clock
	dir   string
	opts  Options

	// mu serialises writers against eviction and Clear.
	mu        sync.Mutex
	journalMu sync.Mutex
}

// New returns a cache rooted at dir, creating the directory if needed.
func New(fsys fsutil.FileSystem, clock timeutil.Clock, dir string, opts Options) (*Cache, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if opts.JournalMaxEntries <= 0 {
		opts.JournalMaxEntries = DefaultOptions().JournalMaxEntries
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create tile cache dir %s: %w", dir, err)
	}
	return &Cache{fs: fsys, clock: clock, dir: dir, opts: opts}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// Cacheable reports whether tiles at zoom z are stored.
func (c *Cache) Cacheable(z int) bool { return z >= c.opts.MinZoom }

func (c *Cache) path(key TileKey) string {
	return filepath.Join(c.dir, key.Hash(c.opts.KeyIncludesSource)+tileExt)
}

// Get returns the cached bytes for key. Tiles below MinZoom always miss.
func (c *Cache) Get(key TileKey) ([]byte, bool) {
	if !c.Cacheable(key.Z) {
		return nil, false
	}
	data, err := c.fs.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores data under key. It is a no-op below MinZoom. The file is
// written to a temporary name and renamed so readers never see a partial
// tile. After a successful write the journal is updated and the cache is
// trimmed back under its size limit.
func (c *Cache) Put(key TileKey, data []byte) {
	if !c.Cacheable(key.Z) || len(data) == 0 {
		return
	}

	c.mu.Lock()
	err := c.writeAtomic(c.path(key), data)
	c.mu.Unlock()
	if err != nil {
		opsf("store %s: %v", key, err)
		return
	}

	c.record(key)
	c.evictIfNeeded()
}

func (c *Cache) writeAtomic(path string, data []byte) error {
	tmp := path + "." + uuid.NewString() + tmpExt
	if err := c.fs.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := c.fs.Rename(tmp, path); err != nil {
		_ = c.fs.Remove(tmp)
		return err
	}
	return nil
}

// tiles lists cached tile files. Temporary files and the journal are
// excluded.
func (c *Cache) tiles() ([]fs.FileInfo, error) {
	entries, err := c.fs.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), tileExt) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Stats returns the entry count and total size of cached tiles.
func (c *Cache) Stats() (Stats, error) {
	st := Stats{SizeLimit: c.opts.MaxBytes}
	entries, err := c.tiles()
	if err != nil {
		return st, fmt.Errorf("list tile cache: %w", err)
	}
	for _, e := range entries {
		st.Count++
		st.SizeBytes += e.Size()
	}
	return st, nil
}

// evictIfNeeded runs only once the total size exceeds the limit. It removes
// the oldest tiles by modification time, a tenth of the entries (at least
// one) per round, until the total is back at or under the limit.
func (c *Cache) evictIfNeeded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.tiles()
	if err != nil {
		opsf("list for eviction: %v", err)
		return
	}
	var total int64
	for _, e := range entries {
		total += e.Size()
	}
	if total <= c.opts.MaxBytes {
		return
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ModTime().Before(entries[j].ModTime())
	})

	removed := 0
	for total > c.opts.MaxBytes && len(entries) > 0 {
		n := int(float64(len(entries)) * EvictFraction)
		if n < 1 {
			n = 1
		}
		for _, e := range entries[:n] {
			if err := c.fs.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				opsf("evict %s: %v", e.Name(), err)
				continue
			}
			total -= e.Size()
			removed++
		}
		entries = entries[n:]
	}
	diagf("evicted %d tiles, %d bytes remain (limit %d)", removed, total, c.opts.MaxBytes)
}

// Clear removes every cached tile, any stray temporary files and the
// journal. The directory itself is kept.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.journalMu.Lock()
	defer c.journalMu.Unlock()

	entries, err := c.fs.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("list tile cache: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, tileExt) && !strings.HasSuffix(name, tmpExt) && name != journalFile {
			continue
		}
		if err := c.fs.Remove(filepath.Join(c.dir, name)); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	opsf("cleared %d files from %s", len(entries), c.dir)
	return nil
}
