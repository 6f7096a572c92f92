package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Store is the on-disk cache tree shared by every pipeline stage. It only
// knows paths and file mechanics; staleness rules live in staleness.go.
//
// A Store performs no locking. Running two pipeline invocations against the
// same root concurrently is not supported.
type Store struct {
	root string
}

// New creates a Store rooted at the given directory. The directory does not
// need to exist yet; writes create it on demand.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// RawDir is where raw isochrone API responses for a travel mode live.
func (s *Store) RawDir(mode string) string {
	return filepath.Join(s.root, "raw", mode)
}

// RawIsochrone returns the cache path for one raw isochrone response.
func (s *Store) RawIsochrone(mode, stopID, stopName string) string {
	return filepath.Join(s.RawDir(mode), IsochroneFilename(stopID, stopName))
}

// NormalizedDir mirrors RawDir for canonical per-stop features.
func (s *Store) NormalizedDir(mode string) string {
	return filepath.Join(s.root, "normalized", mode)
}

// NormalizedFor maps a raw isochrone path to its normalized counterpart.
func (s *Store) NormalizedFor(mode, rawPath string) string {
	return filepath.Join(s.NormalizedDir(mode), filepath.Base(rawPath))
}

// ConsolidatedPath is the dissolved coverage file for one (mode, tier) group.
func (s *Store) ConsolidatedPath(mode string, tier int) string {
	return filepath.Join(s.root, "consolidated", mode, strconv.Itoa(tier)+".geojson")
}

// SelectedBoundary holds the boundary polygons that matched the selection
// predicate for one source dataset.
func (s *Store) SelectedBoundary(name string) string {
	return filepath.Join(s.root, "boundaries", "selected_"+name+".geojson")
}

// UnionedBoundary holds the dissolved union of a selected boundary set.
func (s *Store) UnionedBoundary(name string) string {
	return filepath.Join(s.root, "boundaries", "unioned_"+name+".geojson")
}

// StopsWithinUnion is the filtered stop collection published for the viewer.
func (s *Store) StopsWithinUnion() string {
	return filepath.Join(s.root, "stops_within_union.geojson")
}

// ParquetSibling maps a GeoJSON artifact to its columnar twin.
func ParquetSibling(geojsonPath string) string {
	return strings.TrimSuffix(geojsonPath, filepath.Ext(geojsonPath)) + ".geoparquet"
}

// WriteFileAtomic writes data to path via a temporary file in the same
// directory followed by a rename, so an interrupted run never leaves a
// half-written file that a later dirty check would treat as valid cache.
func (s *Store) WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish %s: %w", path, err)
	}
	return nil
}

// ListGeoJSON returns the .geojson files directly under dir, sorted by name
// for deterministic batch order. A missing directory is an error: stages must
// not silently consolidate an absent upstream.
func (s *Store) ListGeoJSON(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".geojson") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

var slugRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slugify normalises a stop name for use in a filename.
func Slugify(name string) string {
	return strings.ToLower(strings.Trim(slugRe.ReplaceAllString(name, "_"), "_"))
}

// IsochroneFilename builds the cache filename for one stop's isochrone.
func IsochroneFilename(stopID, stopName string) string {
	return fmt.Sprintf("isochrone_%s_%s.geojson", stopID, Slugify(stopName))
}

var isochroneNameRe = regexp.MustCompile(`^isochrone_([^_]+)_`)

// ParseIsochroneFilename extracts the stop id from an isochrone cache
// filename. The second return is false when the name does not follow the
// isochrone_<stop_id>_<slug> convention.
func ParseIsochroneFilename(path string) (string, bool) {
	m := isochroneNameRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return "", false
	}
	return m[1], true
}
