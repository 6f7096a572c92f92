// Package geo holds the canonical feature model shared by every pipeline
// stage: the single property schema all isochrone dialects normalize to, the
// dialect sum type resolved once at parse time, and the polygon operations
// (validation, repair, dissolve, containment) over EPSG:4326 geometries.
package geo
