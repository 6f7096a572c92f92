package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Source API identifiers recorded on canonical features.
const (
	SourceGraphHopper = "graphhopper"
	SourceMapbox      = "mapbox"
)

// Canonical property keys. Every normalized feature carries exactly these.
const (
	PropStopID    = "stop_id"
	PropStopName  = "stop_name"
	PropMode      = "mode"
	PropMinutes   = "time_limit_minutes"
	PropSourceAPI = "source_api"
)

// Properties is the canonical property schema shared by every normalized
// isochrone feature, independent of which upstream dialect produced it.
type Properties struct {
	StopID    string
	StopName  string
	Mode      string
	Minutes   int
	SourceAPI string
}

// Feature is one canonical isochrone: a polygon or multipolygon in
// EPSG:4326 plus the canonical properties.
type Feature struct {
	Geometry orb.Geometry
	Props    Properties
}

// ToGeoJSON converts a canonical feature to a GeoJSON feature.
func (f Feature) ToGeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.Properties[PropStopID] = f.Props.StopID
	gf.Properties[PropStopName] = f.Props.StopName
	gf.Properties[PropMode] = f.Props.Mode
	gf.Properties[PropMinutes] = f.Props.Minutes
	gf.Properties[PropSourceAPI] = f.Props.SourceAPI
	return gf
}

// FromGeoJSON reads a canonical feature back from a GeoJSON feature.
func FromGeoJSON(gf *geojson.Feature) Feature {
	return Feature{
		Geometry: gf.Geometry,
		Props: Properties{
			StopID:    gf.Properties.MustString(PropStopID, ""),
			StopName:  gf.Properties.MustString(PropStopName, ""),
			Mode:      gf.Properties.MustString(PropMode, ""),
			Minutes:   gf.Properties.MustInt(PropMinutes, 0),
			SourceAPI: gf.Properties.MustString(PropSourceAPI, ""),
		},
	}
}

// Collection wraps canonical features into a GeoJSON feature collection.
func Collection(features []Feature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(f.ToGeoJSON())
	}
	return fc
}
