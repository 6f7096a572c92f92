package spatial

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/transit-coverage/stops"
)

func unitUnion() orb.Geometry {
	return orb.Polygon{orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
}

func TestFilterStops_ContainmentSplit(t *testing.T) {
	candidates := []stops.Stop{
		{ID: "1", Name: "Inside", TransitMode: "METRO TRAIN", Location: orb.Point{5, 5}},
		{ID: "2", Name: "Outside", TransitMode: "METRO TRAIN", Location: orb.Point{20, 20}},
	}
	records := FilterStops(candidates, nil, unitUnion(), zap.NewNop())

	require.Len(t, records, 1)
	assert.Equal(t, "Inside", records[0].Stop.Name)
	assert.True(t, records[0].WithinUnion)
}

func TestFilterStops_ExcludesModes(t *testing.T) {
	candidates := []stops.Stop{
		{ID: "1", Name: "Train", TransitMode: "METRO TRAIN", Location: orb.Point{5, 5}},
		{ID: "2", Name: "Bus", TransitMode: "METRO BUS", Location: orb.Point{5, 5}},
	}
	records := FilterStops(candidates, []string{"METRO BUS"}, unitUnion(), zap.NewNop())

	require.Len(t, records, 1)
	assert.Equal(t, "Train", records[0].Stop.Name)
}

func TestFilterStops_DedupByIDKeepsFirst(t *testing.T) {
	candidates := []stops.Stop{
		{ID: "1", Name: "First", TransitMode: "METRO TRAIN", Location: orb.Point{2, 2}},
		{ID: "1", Name: "Second", TransitMode: "METRO TRAIN", Location: orb.Point{3, 3}},
	}
	records := FilterStops(candidates, nil, unitUnion(), zap.NewNop())

	require.Len(t, records, 1)
	assert.Equal(t, "First", records[0].Stop.Name)
}

func TestFilterStops_InvalidCoordinatesExcluded(t *testing.T) {
	candidates := []stops.Stop{
		{ID: "1", Name: "NaN", TransitMode: "METRO TRAIN", Location: orb.Point{math.NaN(), 5}},
		{ID: "2", Name: "Inf", TransitMode: "METRO TRAIN", Location: orb.Point{5, math.Inf(1)}},
		{ID: "3", Name: "Fine", TransitMode: "METRO TRAIN", Location: orb.Point{5, 5}},
	}
	records := FilterStops(candidates, nil, unitUnion(), zap.NewNop())

	require.Len(t, records, 1)
	assert.Equal(t, "Fine", records[0].Stop.Name)
}

func TestToCollection(t *testing.T) {
	records := []Record{{
		Stop: stops.Stop{
			ID: "19854", Name: "Flinders Street Station",
			TransitMode: "METRO TRAIN", Location: orb.Point{144.96, -37.81},
		},
		WithinUnion: true,
	}}
	fc := ToCollection(records)

	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, "19854", f.Properties.MustString(stops.ColStopID, ""))
	assert.Equal(t, "METRO TRAIN", f.Properties.MustString(stops.ColMode, ""))
	assert.Equal(t, true, f.Properties["within_union"])
	assert.Equal(t, orb.Point{144.96, -37.81}, f.Geometry)
}
