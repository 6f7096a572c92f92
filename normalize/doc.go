// Package normalize converts raw isochrone API responses into the canonical
// feature schema, one normalized file per raw file, gated by staleness.
package normalize
