// Package tilecache serves satellite map tiles through a bounded on-disk
// cache so a survey area stays viewable offline.
package tilecache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
)

// Source names a remote tile provider.
type Source string

const (
	SourceGoogle Source = "google"
	SourceEsri   Source = "esri"
)

// MaxZoom is the deepest zoom level accepted from clients.
const MaxZoom = 22

// TileKey identifies one slippy-map raster tile.
type TileKey struct {
	Z      int    `json:"z"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Source Source `json:"source"`
}

func (k TileKey) String() string {
	return fmt.Sprintf("%s/%d/%d/%d", k.Source, k.Z, k.X, k.Y)
}

// Validate checks that the coordinates exist at the tile's zoom level.
func (k TileKey) Validate() error {
	if k.Z < 0 || k.Z > MaxZoom {
		return fmt.Errorf("zoom %d out of range 0..%d", k.Z, MaxZoom)
	}
	n := 1 << k.Z
	if k.X < 0 || k.X >= n || k.Y < 0 || k.Y >= n {
		return fmt.Errorf("tile %d/%d out of range at zoom %d", k.X, k.Y, k.Z)
	}
	return nil
}

// Hash returns the cache file stem for k: the hex MD5 of "z_x_y". The
// source is left out unless includeSource is set, so two providers share
// one entry per coordinate.
func (k TileKey) Hash(includeSource bool) string {
	s := strconv.Itoa(k.Z) + "_" + strconv.Itoa(k.X) + "_" + strconv.Itoa(k.Y)
	if includeSource {
		s = string(k.Source) + "_" + s
	}
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Center returns the latitude and longitude of the middle of the tile.
func (k TileKey) Center() (lat, lon float64) {
	n := math.Exp2(float64(k.Z))
	lon = (float64(k.X)+0.5)/n*360 - 180
	lat = math.Atan(math.Sinh(math.Pi*(1-2*(float64(k.Y)+0.5)/n))) * 180 / math.Pi
	return lat, lon
}
