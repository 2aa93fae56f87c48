package tilecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/depth.survey/internal/httputil"
)

// ErrTileFetch reports that a tile could not be obtained from its source.
var ErrTileFetch = errors.New("tile fetch failed")

// ErrUnknownSource is returned for a source name with no URL template.
var ErrUnknownSource = errors.New("unknown tile source")

// DefaultSources maps each provider to its URL template. Placeholders are
// {z}, {x} and {y}; note the Esri service orders them z/y/x.
var DefaultSources = map[Source]string{
	SourceGoogle: "https://mt1.google.com/vt/lyrs=s&x={x}&y={y}&z={z}",
	SourceEsri:   "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
}

// browserHeaders are sent with every upstream request. Some providers
// refuse clients that do not look like a browser.
var browserHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Accept":          "image/avif,image/webp,image/apng,image/*,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://www.google.com/maps",
}

// maxTileBytes bounds a single upstream tile body.
const maxTileBytes = 8 << 20

// Service resolves tiles from the cache first and the network second.
type Service struct {
	cache   *Cache
	client  httputil.HTTPClient
	sources map[Source]string
	timeout time.Duration
}

// NewService returns a Service fetching through client. A nil client gets
// a plain *http.Client; the per-request timeout is applied via context.
func NewService(cache *Cache, client httputil.HTTPClient, timeout time.Duration) *Service {
	if client == nil {
		client = httputil.NewClient(0)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{cache: cache, client: client, sources: DefaultSources, timeout: timeout}
}

// WithSources replaces the URL templates, mostly for tests.
func (s *Service) WithSources(src map[Source]string) *Service {
	s.sources = src
	return s
}

// Cache returns the underlying cache.
func (s *Service) Cache() *Cache { return s.cache }

// URL expands the template for key.Source.
func (s *Service) URL(key TileKey) (string, error) {
	tmpl, ok := s.sources[key.Source]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, key.Source)
	}
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(key.Z),
		"{x}", strconv.Itoa(key.X),
		"{y}", strconv.Itoa(key.Y),
	)
	return r.Replace(tmpl), nil
}

// Tile returns the image for key and whether it came from the cache. On a
// miss the tile is downloaded and handed to the cache, which keeps it only
// at cacheable zoom levels. Any network or status failure wraps
// ErrTileFetch.
func (s *Service) Tile(ctx context.Context, key TileKey) ([]byte, bool, error) {
	if data, ok := s.cache.Get(key); ok {
		diagf("hit %s", key)
		return data, true, nil
	}

	url, err := s.URL(key)
	if err != nil {
		return nil, false, err
	}
	data, err := s.fetch(ctx, url)
	if err != nil {
		opsf("fetch %s: %v", key, err)
		return nil, false, err
	}
	s.cache.Put(key, data)
	return data, false, nil
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTileFetch, err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrTileFetch, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTileFetch, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrTileFetch)
	}
	return data, nil
}
