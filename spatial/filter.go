package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/theoremus-urban-solutions/transit-coverage/geo"
	"github.com/theoremus-urban-solutions/transit-coverage/stops"
)

// Record is one stop that survived the spatial filter. WithinUnion is set
// at filter time and true for every published record.
type Record struct {
	Stop        stops.Stop
	WithinUnion bool
}

// FilterStops subsets candidates to those inside or on the boundary of the
// union polygon, after excluding configured transit modes and deduplicating
// by stop id keeping the first occurrence. The cheap property filters run
// before the containment test as a performance choice; the order never
// changes the result set.
func FilterStops(candidates []stops.Stop, excludeModes []string, union orb.Geometry, logger *zap.Logger) []Record {
	excluded := make(map[string]bool, len(excludeModes))
	for _, m := range excludeModes {
		excluded[m] = true
	}
	seen := map[string]bool{}
	var out []Record
	for _, s := range candidates {
		if excluded[s.TransitMode] {
			continue
		}
		if s.ID != "" {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
		}
		if !validCoordinate(s.Location) {
			logger.Warn("candidate without valid coordinates, excluded",
				zap.String("stop_id", s.ID),
				zap.String("stop_name", s.Name))
			continue
		}
		if !geo.ContainsPoint(union, s.Location) {
			continue
		}
		out = append(out, Record{Stop: s, WithinUnion: true})
	}
	return out
}

func validCoordinate(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) &&
		!math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}

// ToCollection converts filter records into the published stop collection.
func ToCollection(records []Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		f := geojson.NewFeature(r.Stop.Location)
		f.Properties[stops.ColStopID] = r.Stop.ID
		f.Properties[stops.ColStopName] = r.Stop.Name
		f.Properties[stops.ColMode] = r.Stop.TransitMode
		f.Properties["within_union"] = r.WithinUnion
		fc.Append(f)
	}
	return fc
}
