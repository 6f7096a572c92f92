package spatial

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/transit-coverage/geo"
	"github.com/theoremus-urban-solutions/transit-coverage/stops"
	"github.com/theoremus-urban-solutions/transit-coverage/store"
	"github.com/theoremus-urban-solutions/transit-coverage/writer"
)

// Builder selects administrative boundaries around anchor stops and
// dissolves each selection into a boundary union.
type Builder struct {
	store  *store.Store
	dual   *writer.DualWriter
	logger *zap.Logger
}

// NewBuilder creates a boundary Builder.
func NewBuilder(st *store.Store, dual *writer.DualWriter, logger *zap.Logger) *Builder {
	return &Builder{store: st, dual: dual, logger: logger}
}

// BuildUnions processes every boundary dataset under dir: polygons containing
// at least one anchor stop become the selected_<name> artifact, and their
// dissolved union the unioned_<name> artifact, both dual-format. Datasets
// whose outputs are newer than both the dataset and the stops table are
// skipped. Returns the dataset names available afterwards, sorted.
func (b *Builder) BuildUnions(dir string, anchors []stops.Stop, stopsPath string) ([]string, error) {
	datasets, err := b.store.ListGeoJSON(dir)
	if err != nil {
		return nil, fmt.Errorf("boundary datasets: %w", err)
	}
	var names []string
	for _, ds := range datasets {
		base := filepath.Base(ds)
		// Outputs land in the same directory; never re-read them as datasets.
		if strings.HasPrefix(base, "selected_") || strings.HasPrefix(base, "unioned_") {
			continue
		}
		name := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
		selPath := b.store.SelectedBoundary(name)
		uniPath := b.store.UnionedBoundary(name)
		outputs := []string{
			selPath, store.ParquetSibling(selPath),
			uniPath, store.ParquetSibling(uniPath),
		}
		if !store.Dirty(outputs, []string{ds, stopsPath}) {
			names = append(names, name)
			continue
		}
		if err := b.buildOne(ds, name, anchors); err != nil {
			b.logger.Error("boundary dataset failed",
				zap.String("dataset", ds),
				zap.Error(err))
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (b *Builder) buildOne(ds, name string, anchors []stops.Stop) error {
	data, err := os.ReadFile(ds)
	if err != nil {
		return err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("parse boundaries: %w", err)
	}

	selected := geojson.NewFeatureCollection()
	var geoms []orb.Geometry
	for _, f := range fc.Features {
		g := f.Geometry
		if err := geo.Validate(g); err != nil {
			repaired, rerr := geo.Repair(g)
			if rerr != nil {
				b.logger.Warn("excluding unrepairable boundary polygon",
					zap.String("dataset", name),
					zap.Error(err))
				continue
			}
			g = repaired
		}
		if !containsAny(g, anchors) {
			continue
		}
		selected.Append(f)
		geoms = append(geoms, g)
	}
	if len(geoms) == 0 {
		b.logger.Warn("no boundary polygons matched any anchor stop",
			zap.String("dataset", name))
		return nil
	}
	if err := b.dual.Write(b.store.SelectedBoundary(name), selected); err != nil {
		return err
	}

	union, err := geo.Dissolve(geoms)
	if err != nil {
		return fmt.Errorf("dissolve boundary union: %w", err)
	}
	ufc := geojson.NewFeatureCollection()
	uf := geojson.NewFeature(union)
	uf.Properties["name"] = name
	uf.Properties["boundary_count"] = len(geoms)
	ufc.Append(uf)
	b.logger.Info("boundary union built",
		zap.String("dataset", name),
		zap.Int("selected", len(geoms)))
	return b.dual.Write(b.store.UnionedBoundary(name), ufc)
}

func containsAny(g orb.Geometry, anchors []stops.Stop) bool {
	for _, s := range anchors {
		if geo.ContainsPoint(g, s.Location) {
			return true
		}
	}
	return false
}

// LoadUnion reads a previously built boundary union geometry. The union is
// consumed read-only by the spatial filter.
func (b *Builder) LoadUnion(name string) (orb.Geometry, error) {
	data, err := os.ReadFile(b.store.UnionedBoundary(name))
	if err != nil {
		return nil, fmt.Errorf("read boundary union: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse boundary union: %w", err)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("boundary union %s has no features", name)
	}
	return fc.Features[0].Geometry, nil
}
