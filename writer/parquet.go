package writer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
)

// geoMetadata is the GeoParquet file-level metadata: one primary geometry
// column, WKB-encoded, EPSG:4326.
const geoMetadata = `{"version":"1.0.0","primary_column":"geometry","columns":{"geometry":{"encoding":"WKB","geometry_types":[],"crs":"EPSG:4326"}}}`

// featureRow is the columnar layout: WKB geometry plus the feature
// properties as one JSON column. Keeping properties opaque lets every
// artifact (coverage tiers, boundaries, stops) share a single schema.
type featureRow struct {
	Geometry   []byte `parquet:"geometry,snappy"`
	Properties string `parquet:"properties,snappy"`
}

func marshalParquet(fc *geojson.FeatureCollection) ([]byte, error) {
	rows := make([]featureRow, 0, len(fc.Features))
	for i, f := range fc.Features {
		g, err := wkb.Marshal(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: encode wkb: %w", i, err)
		}
		props, err := json.Marshal(f.Properties)
		if err != nil {
			return nil, fmt.Errorf("feature %d: encode properties: %w", i, err)
		}
		rows = append(rows, featureRow{Geometry: g, Properties: string(props)})
	}
	var buf bytes.Buffer
	pw := parquet.NewGenericWriter[featureRow](&buf, parquet.KeyValueMetadata("geo", geoMetadata))
	if _, err := pw.Write(rows); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}
	return buf.Bytes(), nil
}
