package geo

import (
	"errors"
	"fmt"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrUnrepairable marks a geometry that is still invalid after repair. The
// feature is excluded from its consolidation group, never aborting it.
var ErrUnrepairable = errors.New("geometry cannot be repaired")

// Validate checks that a geometry is a usable polygonal area: polygon or
// multipolygon, rings closed with at least four points, non-zero area.
func Validate(g orb.Geometry) error {
	switch t := g.(type) {
	case orb.Polygon:
		if err := validateRings(t); err != nil {
			return err
		}
	case orb.MultiPolygon:
		if len(t) == 0 {
			return errors.New("empty multipolygon")
		}
		for _, p := range t {
			if err := validateRings(p); err != nil {
				return err
			}
		}
	case nil:
		return errors.New("missing geometry")
	default:
		return fmt.Errorf("unsupported geometry type %s", g.GeoJSONType())
	}
	if Area(g) == 0 {
		return errors.New("zero-area geometry")
	}
	return nil
}

func validateRings(p orb.Polygon) error {
	if len(p) == 0 {
		return errors.New("polygon without rings")
	}
	for _, r := range p {
		if len(r) < 4 {
			return fmt.Errorf("ring with %d points", len(r))
		}
		if !r.Closed() {
			return errors.New("unclosed ring")
		}
	}
	return nil
}

// Repair fixes self-intersecting polygons via self-union: the clipping
// engine nodes the rings and dissolves them into a valid result, the same
// effect as the classic zero-width buffer. Returns ErrUnrepairable when the
// output is still empty or degenerate.
func Repair(g orb.Geometry) (orb.Geometry, error) {
	pg, err := toPolygolGeom(g)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrepairable, err)
	}
	fixed, err := polygol.Union(pg)
	if err != nil {
		return nil, fmt.Errorf("%w: self-union failed: %v", ErrUnrepairable, err)
	}
	out := fromPolygolGeom(fixed)
	if out == nil || Area(out) == 0 {
		return nil, ErrUnrepairable
	}
	return out, nil
}

// Dissolve merges a set of polygons into one coverage geometry using a
// hierarchical pairwise union. The binary reduction keeps intermediate
// results compact instead of accumulating one ever-growing geometry the way
// a sequential fold would.
func Dissolve(geoms []orb.Geometry) (orb.Geometry, error) {
	if len(geoms) == 0 {
		return nil, errors.New("nothing to dissolve")
	}
	level := make([]polygol.Geom, 0, len(geoms))
	for _, g := range geoms {
		pg, err := toPolygolGeom(g)
		if err != nil {
			return nil, err
		}
		level = append(level, pg)
	}
	for len(level) > 1 {
		next := make([]polygol.Geom, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			u, err := polygol.Union(level[i], level[i+1])
			if err != nil {
				return nil, fmt.Errorf("union: %w", err)
			}
			next = append(next, u)
		}
		level = next
	}
	out := fromPolygolGeom(level[0])
	if out == nil {
		return nil, errors.New("dissolve produced empty geometry")
	}
	return out, nil
}

// Area returns the planar area of a geometry in squared degrees. Only used
// for relative comparisons, never as a physical quantity.
func Area(g orb.Geometry) float64 {
	return planar.Area(g)
}

// ContainsPoint reports whether a point lies within or on the boundary of a
// polygonal geometry.
func ContainsPoint(g orb.Geometry, p orb.Point) bool {
	switch t := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(t, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(t, p)
	default:
		return false
	}
}

func toPolygolGeom(g orb.Geometry) (polygol.Geom, error) {
	switch t := g.(type) {
	case orb.Polygon:
		return polygol.Geom{polygonCoords(t)}, nil
	case orb.MultiPolygon:
		out := make(polygol.Geom, 0, len(t))
		for _, p := range t {
			out = append(out, polygonCoords(p))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("not a polygonal geometry: %s", g.GeoJSONType())
	}
}

func polygonCoords(p orb.Polygon) [][][]float64 {
	rings := make([][][]float64, 0, len(p))
	for _, r := range p {
		ring := make([][]float64, 0, len(r))
		for _, pt := range r {
			ring = append(ring, []float64{pt[0], pt[1]})
		}
		rings = append(rings, ring)
	}
	return rings
}

func fromPolygolGeom(g polygol.Geom) orb.Geometry {
	mp := make(orb.MultiPolygon, 0, len(g))
	for _, poly := range g {
		p := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			r := make(orb.Ring, 0, len(ring))
			for _, pt := range ring {
				if len(pt) < 2 {
					continue
				}
				r = append(r, orb.Point{pt[0], pt[1]})
			}
			if len(r) > 0 {
				p = append(p, r)
			}
		}
		if len(p) > 0 {
			mp = append(mp, p)
		}
	}
	if len(mp) == 0 {
		return nil
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}
