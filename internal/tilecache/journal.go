package tilecache

import (
	"encoding/json"
	"path/filepath"
	"time"
)

const journalFile = "tile_metadata.json"

// JournalRecord notes where a tile was last cached. The journal only feeds
// RecommendedCenter and is not an inventory of the cache.
type JournalRecord struct {
	Z         int       `json:"z"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Timestamp time.Time `json:"timestamp"`
}

// Center is a suggested map view.
type Center struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Zoom   int     `json:"zoom"`
	Source string  `json:"source"` // "journal" or "default"
}

func (c *Cache) journalPath() string { return filepath.Join(c.dir, journalFile) }

// readJournal returns nil when the journal is missing or unreadable.
func (c *Cache) readJournal() []JournalRecord {
	data, err := c.fs.ReadFile(c.journalPath())
	if err != nil {
		return nil
	}
	var recs []JournalRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil
	}
	return recs
}

// Journal returns the current journal records, oldest first.
func (c *Cache) Journal() []JournalRecord {
	c.journalMu.Lock()
	defer c.journalMu.Unlock()
	return c.readJournal()
}

// record appends a record for key, keeping at most journalMax entries.
// Failures are logged only.
func (c *Cache) record(key TileKey) {
	lat, lon := key.Center()
	rec := JournalRecord{Z: key.Z, X: key.X, Y: key.Y, Lat: lat, Lon: lon, Timestamp: c.clock.Now().UTC()}

	c.journalMu.Lock()
	defer c.journalMu.Unlock()

	recs := append(c.readJournal(), rec)
	if over := len(recs) - c.opts.JournalMaxEntries; over > 0 {
		recs = recs[over:]
	}
	data, err := json.Marshal(recs)
	if err != nil {
		opsf("encode journal: %v", err)
		return
	}
	if err := c.writeAtomic(c.journalPath(), data); err != nil {
		opsf("write journal: %v", err)
	}
}

// RecommendedCenter returns the centre of the most recently cached tile,
// or the configured default view when the journal is empty.
func (c *Cache) RecommendedCenter() Center {
	recs := c.Journal()
	if len(recs) == 0 {
		return Center{
			Lat:    c.opts.DefaultCenterLat,
			Lon:    c.opts.DefaultCenterLon,
			Zoom:   c.opts.DefaultCenterZoom,
			Source: "default",
		}
	}
	last := recs[len(recs)-1]
	return Center{Lat: last.Lat, Lon: last.Lon, Zoom: last.Z, Source: "journal"}
}
