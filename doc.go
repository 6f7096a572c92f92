// Package coverage orchestrates the transit coverage pipeline: fetching
// isochrones for public transport stops, normalizing heterogeneous provider
// responses, consolidating them into per-tier coverage polygons, and
// filtering stops by administrative boundary unions. Every stage is gated by
// mtime-based staleness so repeated runs only redo stale work.
package coverage
