package consolidate

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/transit-coverage/geo"
	"github.com/theoremus-urban-solutions/transit-coverage/store"
	"github.com/theoremus-urban-solutions/transit-coverage/writer"
)

// Properties attached to each consolidated coverage feature.
const (
	PropMode              = "mode"
	PropMinutes           = "minutes"
	PropContributingCount = "contributing_feature_count"
)

// Consolidator groups normalized per-stop features by (mode, tier) and
// dissolves each group into one coverage geometry.
type Consolidator struct {
	store  *store.Store
	dual   *writer.DualWriter
	tiers  []int
	logger *zap.Logger
}

// Result counts per-group outcomes of one run.
type Result struct {
	Written int
	Skipped int
	Failed  int
}

// New creates a Consolidator over the configured tier set.
func New(st *store.Store, dual *writer.DualWriter, tiers []int, logger *zap.Logger) *Consolidator {
	sorted := append([]int(nil), tiers...)
	sort.Ints(sorted)
	return &Consolidator{store: st, dual: dual, tiers: sorted, logger: logger}
}

// member is one normalized feature contributing to a tier group, tracked
// with its source file for the dirty check.
type member struct {
	geometry orb.Geometry
	source   string
}

// Run consolidates every stale (mode, tier) group. A group whose output is
// newer than all contributing files is skipped without dissolving; an empty
// group produces no output file, and downstream readers treat a missing
// tier file as "no coverage".
func (c *Consolidator) Run(modes []string) (Result, error) {
	var res Result
	tierSet := make(map[int]bool, len(c.tiers))
	for _, t := range c.tiers {
		tierSet[t] = true
	}
	for _, mode := range modes {
		files, err := c.store.ListGeoJSON(c.store.NormalizedDir(mode))
		if err != nil {
			return res, fmt.Errorf("normalized features for mode %s: %w", mode, err)
		}
		groups := map[int][]member{}
		for _, f := range files {
			if err := c.collect(f, tierSet, groups); err != nil {
				c.logger.Warn("skipping normalized file",
					zap.String("file", f),
					zap.Error(err))
			}
		}
		for _, tier := range c.tiers {
			members := groups[tier]
			if len(members) == 0 {
				continue
			}
			out := c.store.ConsolidatedPath(mode, tier)
			inputs := make([]string, 0, len(members))
			for _, m := range members {
				inputs = append(inputs, m.source)
			}
			if !store.Dirty([]string{out, store.ParquetSibling(out)}, inputs) {
				res.Skipped++
				continue
			}
			if err := c.dissolveGroup(mode, tier, members, out); err != nil {
				c.logger.Error("consolidation failed",
					zap.String("mode", mode),
					zap.Int("tier", tier),
					zap.Error(err))
				res.Failed++
				continue
			}
			res.Written++
		}
	}
	return res, nil
}

// collect partitions one normalized file's features into tier groups.
// Features whose minutes value is not an exact configured tier are dropped
// with a warning — near-tier values are never snapped.
func (c *Consolidator) collect(path string, tierSet map[int]bool, groups map[int][]member) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return err
	}
	for _, gf := range fc.Features {
		f := geo.FromGeoJSON(gf)
		if !tierSet[f.Props.Minutes] {
			c.logger.Warn("dropping feature outside configured tier set",
				zap.Int("minutes", f.Props.Minutes),
				zap.String("file", path))
			continue
		}
		groups[f.Props.Minutes] = append(groups[f.Props.Minutes], member{
			geometry: f.Geometry,
			source:   path,
		})
	}
	return nil
}

// dissolveGroup repairs, dissolves and publishes one (mode, tier) group.
func (c *Consolidator) dissolveGroup(mode string, tier int, members []member, out string) error {
	geoms := make([]orb.Geometry, 0, len(members))
	for _, m := range members {
		g := m.geometry
		if err := geo.Validate(g); err != nil {
			repaired, rerr := geo.Repair(g)
			if rerr != nil {
				c.logger.Warn("excluding unrepairable geometry from group",
					zap.String("mode", mode),
					zap.Int("tier", tier),
					zap.String("source", m.source),
					zap.Error(errors.Join(err, rerr)))
				continue
			}
			g = repaired
		}
		geoms = append(geoms, g)
	}
	if len(geoms) == 0 {
		c.logger.Warn("no survivable features in group, no output written",
			zap.String("mode", mode),
			zap.Int("tier", tier))
		return nil
	}
	dissolved, err := geo.Dissolve(geoms)
	if err != nil {
		return fmt.Errorf("dissolve: %w", err)
	}
	gf := geojson.NewFeature(dissolved)
	gf.Properties[PropMode] = mode
	gf.Properties[PropMinutes] = tier
	gf.Properties[PropContributingCount] = len(geoms)
	fc := geojson.NewFeatureCollection()
	fc.Append(gf)
	return c.dual.Write(out, fc)
}
