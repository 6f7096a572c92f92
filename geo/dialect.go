package geo

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// DialectKind identifies which upstream response shape a raw payload has.
type DialectKind int

const (
	DialectUnknown DialectKind = iota
	// DialectA is the GraphHopper shape: a top-level "polygons" array of
	// features, one per time bucket.
	DialectA
	// DialectB is the Mapbox shape: a standard GeoJSON FeatureCollection
	// with a "contour" minutes property per feature.
	DialectB
)

func (k DialectKind) String() string {
	switch k {
	case DialectA:
		return "polygons"
	case DialectB:
		return "feature-collection"
	default:
		return "unknown"
	}
}

// FormatError reports a payload that cannot be normalized: an unrecognized
// dialect or a structurally broken body. It skips the item, never the batch.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error in %s: %s", e.Path, e.Reason)
}

// PolygonsPayload is the decoded form of a Dialect A response.
type PolygonsPayload struct {
	Polygons []*geojson.Feature `json:"polygons"`
	Info     json.RawMessage    `json:"info,omitempty"`
}

// Dialect is a raw payload resolved to exactly one of the known shapes.
// Detection happens once at parse time; later stages switch on Kind instead
// of re-sniffing the JSON.
type Dialect struct {
	Kind DialectKind
	A    *PolygonsPayload
	B    *geojson.FeatureCollection
}

// DetectDialect resolves a raw payload into its dialect. The rule is purely
// shape-based: a "polygons" key means Dialect A, a top-level FeatureCollection
// means Dialect B, anything else is a FormatError.
func DetectDialect(path string, raw []byte) (Dialect, error) {
	var probe struct {
		Type     string          `json:"type"`
		Polygons json.RawMessage `json:"polygons"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Dialect{}, &FormatError{Path: path, Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}
	if probe.Polygons != nil {
		var p PolygonsPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return Dialect{}, &FormatError{Path: path, Reason: fmt.Sprintf("bad polygons array: %v", err)}
		}
		return Dialect{Kind: DialectA, A: &p}, nil
	}
	if probe.Type == "FeatureCollection" {
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return Dialect{}, &FormatError{Path: path, Reason: fmt.Sprintf("bad feature collection: %v", err)}
		}
		return Dialect{Kind: DialectB, B: fc}, nil
	}
	return Dialect{}, &FormatError{Path: path, Reason: "unrecognized payload shape"}
}
