package consolidate

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/transit-coverage/geo"
	"github.com/theoremus-urban-solutions/transit-coverage/store"
	"github.com/theoremus-urban-solutions/transit-coverage/writer"
)

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}
}

func writeNormalized(t *testing.T, st *store.Store, mode, stopID string, features []geo.Feature) string {
	t.Helper()
	path := filepath.Join(st.NormalizedDir(mode), fmt.Sprintf("isochrone_%s_stop.geojson", stopID))
	data, err := geo.Collection(features).MarshalJSON()
	require.NoError(t, err)
	require.NoError(t, st.WriteFileAtomic(path, data))
	return path
}

func canonical(stopID string, minutes int, g orb.Geometry) geo.Feature {
	return geo.Feature{
		Geometry: g,
		Props: geo.Properties{
			StopID:    stopID,
			StopName:  "Stop " + stopID,
			Mode:      "foot",
			Minutes:   minutes,
			SourceAPI: geo.SourceMapbox,
		},
	}
}

func newConsolidator(st *store.Store, tiers []int) *Consolidator {
	logger := zap.NewNop()
	return New(st, writer.New(st, logger), tiers, logger)
}

func readTier(t *testing.T, st *store.Store, mode string, tier int) *geojson.Feature {
	t.Helper()
	data, err := os.ReadFile(st.ConsolidatedPath(mode, tier))
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, fc.Features, 1, "one dissolved feature per tier")
	return fc.Features[0]
}

func TestRun_GroupsByTierAndDissolves(t *testing.T) {
	st := store.New(t.TempDir())
	writeNormalized(t, st, "foot", "1001", []geo.Feature{
		canonical("1001", 5, square(0, 0, 1)),
		canonical("1001", 10, square(0, 0, 2)),
	})
	writeNormalized(t, st, "foot", "1002", []geo.Feature{
		canonical("1002", 5, square(0.5, 0, 1)),
		canonical("1002", 10, square(1, 0, 2)),
	})

	c := newConsolidator(st, []int{5, 10, 15})
	res, err := c.Run([]string{"foot"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Written)
	assert.Equal(t, 0, res.Failed)

	five := readTier(t, st, "foot", 5)
	assert.Equal(t, "foot", five.Properties.MustString(PropMode, ""))
	assert.Equal(t, 5, five.Properties.MustInt(PropMinutes, -1))
	assert.Equal(t, 2, five.Properties.MustInt(PropContributingCount, -1))

	// Overlapping unit squares shifted by 0.5 dissolve to a 1.5 area strip.
	assert.InDelta(t, 1.5, geo.Area(five.Geometry), 1e-6)

	// Tier 15 had no members: no file.
	_, err = os.Stat(st.ConsolidatedPath("foot", 15))
	assert.True(t, os.IsNotExist(err))

	// Both formats are published.
	_, err = os.Stat(store.ParquetSibling(st.ConsolidatedPath("foot", 5)))
	assert.NoError(t, err)
}

func TestRun_DropsMinutesOutsideTierSet(t *testing.T) {
	st := store.New(t.TempDir())
	writeNormalized(t, st, "foot", "1001", []geo.Feature{
		canonical("1001", 5, square(0, 0, 1)),
		canonical("1001", 7, square(0, 0, 5)),
	})

	c := newConsolidator(st, []int{5, 10, 15})
	res, err := c.Run([]string{"foot"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)

	five := readTier(t, st, "foot", 5)
	assert.Equal(t, 1, five.Properties.MustInt(PropContributingCount, -1))
	// Near-tier minutes are never snapped into an adjacent tier.
	assert.InDelta(t, 1.0, geo.Area(five.Geometry), 1e-6)
}

func TestRun_SkipsFreshGroups(t *testing.T) {
	st := store.New(t.TempDir())
	src := writeNormalized(t, st, "foot", "1001", []geo.Feature{
		canonical("1001", 5, square(0, 0, 1)),
	})

	c := newConsolidator(st, []int{5, 10, 15})
	res, err := c.Run([]string{"foot"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Written)

	res, err = c.Run([]string{"foot"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Written)
	assert.Equal(t, 1, res.Skipped)

	// Touching the source makes the group stale again.
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))
	res, err = c.Run([]string{"foot"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
}

func TestRun_MissingParquetSiblingForcesRebuild(t *testing.T) {
	st := store.New(t.TempDir())
	writeNormalized(t, st, "foot", "1001", []geo.Feature{
		canonical("1001", 5, square(0, 0, 1)),
	})

	c := newConsolidator(st, []int{5, 10, 15})
	_, err := c.Run([]string{"foot"})
	require.NoError(t, err)

	require.NoError(t, os.Remove(store.ParquetSibling(st.ConsolidatedPath("foot", 5))))

	res, err := c.Run([]string{"foot"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
}

func TestRun_RepairsSelfIntersectingMember(t *testing.T) {
	st := store.New(t.TempDir())
	bowtie := orb.Polygon{orb.Ring{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}}
	writeNormalized(t, st, "foot", "1001", []geo.Feature{
		canonical("1001", 5, bowtie),
		canonical("1001", 5, square(5, 5, 1)),
	})

	c := newConsolidator(st, []int{5, 10, 15})
	res, err := c.Run([]string{"foot"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Written)

	five := readTier(t, st, "foot", 5)
	assert.Equal(t, 2, five.Properties.MustInt(PropContributingCount, -1),
		"repaired geometry still contributes")
	assert.NoError(t, geo.Validate(five.Geometry))
}

func TestRun_MissingNormalizedDirIsFatal(t *testing.T) {
	st := store.New(t.TempDir())
	c := newConsolidator(st, []int{5})
	_, err := c.Run([]string{"foot"})
	assert.Error(t, err)
}

func TestRun_AreaBounds(t *testing.T) {
	st := store.New(t.TempDir())
	inputs := []orb.Geometry{square(0, 0, 1), square(0.25, 0.25, 1), square(3, 3, 2)}
	var features []geo.Feature
	for _, g := range inputs {
		features = append(features, canonical("1001", 10, g))
	}
	writeNormalized(t, st, "foot", "1001", features)

	c := newConsolidator(st, []int{10})
	_, err := c.Run([]string{"foot"})
	require.NoError(t, err)

	ten := readTier(t, st, "foot", 10)
	dissolved := geo.Area(ten.Geometry)
	var maxIn, sum float64
	for _, g := range inputs {
		a := geo.Area(g)
		sum += a
		if a > maxIn {
			maxIn = a
		}
	}
	assert.GreaterOrEqual(t, dissolved, maxIn)
	assert.LessOrEqual(t, dissolved, sum)
}
