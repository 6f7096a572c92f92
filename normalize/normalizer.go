package normalize

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/transit-coverage/geo"
	"github.com/theoremus-urban-solutions/transit-coverage/stops"
	"github.com/theoremus-urban-solutions/transit-coverage/store"
)

// Normalizer reconciles raw isochrone payloads of either dialect into the
// canonical feature schema. Normalization of one file is a pure function of
// the payload and the static stops table, which is what makes the per-file
// dirty check sound.
type Normalizer struct {
	store  *store.Store
	table  *stops.Table
	tiers  []int
	logger *zap.Logger
}

// Result counts per-item outcomes of one batch.
type Result struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// New creates a Normalizer. Tiers must be the configured tier set in
// ascending order; Dialect A time buckets index into it.
func New(st *store.Store, table *stops.Table, tiers []int, logger *zap.Logger) *Normalizer {
	sorted := append([]int(nil), tiers...)
	sort.Ints(sorted)
	return &Normalizer{store: st, table: table, tiers: sorted, logger: logger}
}

// Run normalizes every stale raw file for the given travel modes. Per-file
// failures are logged and counted, never aborting the batch; a missing raw
// directory for a mode is fatal for the stage.
func (n *Normalizer) Run(modes []string) (Result, error) {
	var res Result
	for _, mode := range modes {
		files, err := n.store.ListGeoJSON(n.store.RawDir(mode))
		if err != nil {
			return res, fmt.Errorf("raw isochrones for mode %s: %w", mode, err)
		}
		for _, raw := range files {
			out := n.store.NormalizedFor(mode, raw)
			if !store.DirtyFile(out, raw) {
				res.Skipped++
				continue
			}
			features, err := n.NormalizeFile(mode, raw)
			if err != nil {
				n.logger.Warn("skipping raw isochrone",
					zap.String("file", raw),
					zap.Error(err))
				res.Failed++
				continue
			}
			data, err := geo.Collection(features).MarshalJSON()
			if err != nil {
				res.Failed++
				continue
			}
			if err := n.store.WriteFileAtomic(out, data); err != nil {
				n.logger.Warn("writing normalized features failed",
					zap.String("file", out),
					zap.Error(err))
				res.Failed++
				continue
			}
			res.Succeeded++
		}
	}
	return res, nil
}

// NormalizeFile converts one raw payload into canonical features. The stop
// id comes from the isochrone_<stop_id>_<slug> filename convention; stop
// name enrichment comes from the stops table.
func (n *Normalizer) NormalizeFile(mode, path string) ([]geo.Feature, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := geo.DetectDialect(path, raw)
	if err != nil {
		return nil, err
	}
	stopID, ok := store.ParseIsochroneFilename(path)
	if !ok {
		return nil, &geo.FormatError{Path: path, Reason: "filename does not follow the isochrone_<stop_id>_<slug> convention"}
	}
	stopName := ""
	if s, found := n.table.Get(stopID); found {
		stopName = s.Name
	} else {
		n.logger.Warn("stop id not in stops table",
			zap.String("stop_id", stopID),
			zap.String("file", path))
	}

	var features []geo.Feature
	switch d.Kind {
	case geo.DialectA:
		for i, pf := range d.A.Polygons {
			bucket := pf.Properties.MustInt("bucket", i)
			if bucket < 0 || bucket >= len(n.tiers) {
				n.logger.Warn("time bucket outside configured tiers",
					zap.Int("bucket", bucket),
					zap.String("file", path))
				continue
			}
			if err := geo.Validate(pf.Geometry); err != nil {
				n.logger.Warn("invalid geometry in polygons payload",
					zap.String("file", path),
					zap.Error(err))
				continue
			}
			features = append(features, geo.Feature{
				Geometry: pf.Geometry,
				Props: geo.Properties{
					StopID:    stopID,
					StopName:  stopName,
					Mode:      mode,
					Minutes:   n.tiers[bucket],
					SourceAPI: geo.SourceGraphHopper,
				},
			})
		}
	case geo.DialectB:
		for _, bf := range d.B.Features {
			minutes := bf.Properties.MustInt("contour", 0)
			if err := geo.Validate(bf.Geometry); err != nil {
				n.logger.Warn("invalid geometry in feature collection",
					zap.String("file", path),
					zap.Error(err))
				continue
			}
			features = append(features, geo.Feature{
				Geometry: bf.Geometry,
				Props: geo.Properties{
					StopID:    stopID,
					StopName:  stopName,
					Mode:      mode,
					Minutes:   minutes,
					SourceAPI: geo.SourceMapbox,
				},
			})
		}
	}
	if len(features) == 0 {
		return nil, errors.New("no usable features in payload")
	}
	sort.SliceStable(features, func(i, j int) bool {
		return features[i].Props.Minutes < features[j].Props.Minutes
	})
	return features, nil
}
