// Package writer publishes feature collections in two formats at once:
// GeoJSON and GeoParquet, with staleness-aware skipping.
package writer
